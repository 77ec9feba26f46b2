package engine

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ErrNavigationTimeout is returned (wrapped) by Page.Navigate when the page
// did not finish loading within the timeout. The page may be partially
// loaded at that point.
var ErrNavigationTimeout = errors.New("navigation timed out")

// Launcher starts browser processes. One Launch call yields one process.
type Launcher interface {
	// Name returns the driver identifier (e.g. "rod", "chromedp").
	Name() string

	// Launch starts a new browser process.
	Launch(ctx context.Context) (Browser, error)
}

// Browser is a running browser process.
type Browser interface {
	// NewPage opens a blank tab.
	NewPage(ctx context.Context) (Page, error)

	// Close terminates the process and everything it owns.
	Close() error
}

// Page is a single tab. The extraction logic only ever reads from it,
// except for ScrollTo.
type Page interface {
	// SetUserAgent overrides the identity string sent with every request.
	SetUserAgent(ctx context.Context, ua string) error

	// Navigate loads url and waits until network activity is quiet,
	// bounded by timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// HTML returns the rendered document's outer HTML.
	HTML(ctx context.Context) (string, error)

	// URL returns the page's current address.
	URL(ctx context.Context) (string, error)

	// ScrollTo scrolls the viewport to the vertical offset y.
	ScrollTo(ctx context.Context, y int) error
}

// Options configure a Launcher.
type Options struct {
	Headless   bool
	NoSandbox  bool
	BrowserBin string
	Proxy      string
	Stealth    bool

	// IdleWindow is how long the network must stay quiet after navigation.
	IdleWindow time.Duration
}

// idleWindow returns the configured idle window or the default.
func (o Options) idleWindow() time.Duration {
	if o.IdleWindow <= 0 {
		return 500 * time.Millisecond
	}
	return o.IdleWindow
}

// googleReferer builds a search-results Referer for the target URL so the
// visit looks like it came from a search click. Empty if rawURL has no host.
func googleReferer(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())
}

// NewLauncher returns the Launcher for the named driver.
func NewLauncher(driver string, opts Options) (Launcher, error) {
	switch driver {
	case "", "rod":
		return NewRodLauncher(opts), nil
	case "chromedp":
		return NewChromedpLauncher(opts), nil
	default:
		return nil, fmt.Errorf("unknown browser driver: %q", driver)
	}
}
