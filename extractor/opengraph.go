package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/dyatlov/go-opengraph/opengraph"
	"github.com/use-agent/unfurl/models"
)

// DefaultTitlePlaceholder is the title used when a page has no og:title.
const DefaultTitlePlaceholder = "No title"

var (
	ogMetaSelector   = cascadia.MustCompile(`meta[property^="og:"]`)
	canonicalLinkSel = cascadia.MustCompile(`link[rel~="canonical"][href]`)
)

// ogProperties are the only og:* properties handed to go-opengraph. Its
// structured aliases (og:image:url, og:image:secure_url) would otherwise
// count as an image.
var ogProperties = map[string]struct{}{
	"og:title":       {},
	"og:description": {},
	"og:image":       {},
	"og:url":         {},
}

// OpenGraph holds the four Open Graph properties a preview needs.
// Each is empty when the tag is absent or has no content.
type OpenGraph struct {
	Title       string
	Description string
	Image       string
	URL         string
}

// OpenGraph reads og:title, og:description, og:image and og:url.
// The first occurrence of each property wins.
func (d *Document) OpenGraph() OpenGraph {
	og := opengraph.NewOpenGraph()
	seen := make(map[string]struct{})

	d.doc.FindMatcher(ogMetaSelector).Each(func(_ int, s *goquery.Selection) {
		prop := strings.TrimSpace(s.AttrOr("property", ""))
		if _, ok := ogProperties[prop]; !ok {
			return
		}
		if _, dup := seen[prop]; dup {
			return
		}
		seen[prop] = struct{}{}
		og.ProcessMeta(map[string]string{
			"property": prop,
			"content":  strings.TrimSpace(s.AttrOr("content", "")),
		})
	})

	out := OpenGraph{
		Title:       og.Title,
		Description: og.Description,
		URL:         og.URL,
	}
	if len(og.Images) > 0 && og.Images[0] != nil {
		out.Image = og.Images[0].URL
	}
	return out
}

// canonicalLink returns the <link rel="canonical"> href, or "".
func (d *Document) canonicalLink() string {
	return strings.TrimSpace(d.doc.FindMatcher(canonicalLinkSel).First().AttrOr("href", ""))
}

// Primary builds the preview record for the page.
//
// blocked is true exactly when both og:title and og:image are missing. A page
// that genuinely has no Open Graph tags is indistinguishable from an anti-bot
// page and is reported as blocked too.
func Primary(d *Document, requestedURL, placeholder string) models.PreviewResult {
	if placeholder == "" {
		placeholder = DefaultTitlePlaceholder
	}
	og := d.OpenGraph()

	res := models.PreviewResult{
		Title:       og.Title,
		Description: og.Description,
		Image:       d.resolve(og.Image),
		URL:         d.canonicalURL(og.URL, requestedURL),
		Blocked:     og.Title == "" && og.Image == "",
	}
	if res.Title == "" {
		res.Title = placeholder
	}
	return res
}

// canonicalURL picks og:url, then <link rel="canonical">, then the page's
// current address, then the requested URL. When the current address is the
// requested URL modulo normalization (e.g. a trailing slash added by the
// browser), the requested spelling is kept.
func (d *Document) canonicalURL(ogURL, requestedURL string) string {
	if ogURL != "" {
		return d.resolve(ogURL)
	}
	if link := d.canonicalLink(); link != "" {
		return d.resolve(link)
	}
	if loc := d.PageURL(); loc != "" && !sameResource(loc, requestedURL) {
		return loc
	}
	return requestedURL
}

// sameResource reports whether a and b address the same resource,
// ignoring scheme/host case, a trailing slash, and the fragment.
func sameResource(a, b string) bool {
	ua, errA := url.Parse(a)
	ub, errB := url.Parse(b)
	if errA != nil || errB != nil {
		return false
	}
	return strings.EqualFold(ua.Scheme, ub.Scheme) &&
		strings.EqualFold(ua.Host, ub.Host) &&
		strings.TrimSuffix(ua.EscapedPath(), "/") == strings.TrimSuffix(ub.EscapedPath(), "/") &&
		ua.RawQuery == ub.RawQuery
}
