package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// MaxContentItems is the hard cap on harvested images per page.
const MaxContentItems = 10

var imgSelector = cascadia.MustCompile("img")

// lazySrcAttrs are checked, in order, when an image's src does not qualify.
var lazySrcAttrs = []string{"data-src", "data-lazy-src"}

// HarvestRules decide which images count as platform content.
//
// This is a host/keyword filter, not a layout-aware classifier: decorative
// icons served from the same CDN get through, and content served from an
// unlisted host is missed.
type HarvestRules struct {
	// CDNHosts are hostname fragments; an image qualifies when its host
	// contains any of them.
	CDNHosts []string

	// ExcludePatterns are URL fragments that mark a profile picture.
	ExcludePatterns []string

	// Max caps the result; values <= 0 or above MaxContentItems mean
	// MaxContentItems.
	Max int
}

func (r HarvestRules) limit() int {
	if r.Max <= 0 || r.Max > MaxContentItems {
		return MaxContentItems
	}
	return r.Max
}

// Accepts reports whether imageURL passes the CDN inclusion rule and fails
// the profile-picture exclusion rule.
func (r HarvestRules) Accepts(imageURL string) bool {
	u, err := url.Parse(imageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := strings.ToLower(u.Hostname())

	onCDN := false
	for _, frag := range r.CDNHosts {
		if frag != "" && strings.Contains(host, strings.ToLower(frag)) {
			onCDN = true
			break
		}
	}
	if !onCDN {
		return false
	}

	for _, pat := range r.ExcludePatterns {
		if pat != "" && strings.Contains(imageURL, pat) {
			return false
		}
	}
	return true
}

// HarvestImages returns up to rules.Max content image URLs in DOM order.
// For each <img> the resolved src is tried first, then the lazy-load
// attributes.
func (d *Document) HarvestImages(rules HarvestRules) []string {
	limit := rules.limit()
	images := make([]string, 0, limit)

	d.doc.FindMatcher(imgSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if src := d.pickSource(s, rules); src != "" {
			images = append(images, src)
		}
		return len(images) < limit
	})

	return images
}

// pickSource returns the first qualifying source of an <img>, or "".
func (d *Document) pickSource(s *goquery.Selection, rules HarvestRules) string {
	if src, ok := s.Attr("src"); ok {
		if resolved := d.resolve(src); rules.Accepts(resolved) {
			return resolved
		}
	}
	for _, attr := range lazySrcAttrs {
		if src, ok := s.Attr(attr); ok {
			if resolved := d.resolve(src); rules.Accepts(resolved) {
				return resolved
			}
		}
	}
	return ""
}
