// Package extractor derives preview data from a rendered HTML snapshot.
//
// Everything here is a pure read: the browser hands over the document's
// outer HTML and the extractor never touches the live page.
package extractor

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a parsed snapshot of a rendered page.
type Document struct {
	raw  string
	doc  *goquery.Document
	base *url.URL
}

// Parse builds a Document from the rendered HTML. pageURL is the page's
// current address and is used to resolve relative references; it may be
// empty, in which case relative references stay relative.
func Parse(rawHTML, pageURL string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("extractor: parse html: %w", err)
	}

	var base *url.URL
	if pageURL != "" {
		if u, parseErr := url.Parse(pageURL); parseErr == nil {
			base = u
		}
	}

	return &Document{
		raw:  rawHTML,
		doc:  goquery.NewDocumentFromNode(root),
		base: base,
	}, nil
}

// PageURL returns the address the snapshot was taken from, or "".
func (d *Document) PageURL() string {
	if d.base == nil {
		return ""
	}
	return d.base.String()
}

// resolve turns ref into an absolute URL against the page address.
// Unparseable references are returned trimmed but unresolved.
func (d *Document) resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || d.base == nil {
		return ref
	}
	u, err := d.base.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}
