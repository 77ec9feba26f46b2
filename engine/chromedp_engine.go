package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/go-rod/stealth"
)

// idleProbeJS reports document readiness and the number of resource
// timing entries; a count that stops growing means the network went quiet.
const idleProbeJS = `(() => ({
	ready: document.readyState,
	count: performance.getEntriesByType('resource').length,
}))()`

// idlePollInterval is how often the chromedp idle probe runs.
const idlePollInterval = 100 * time.Millisecond

// ChromedpLauncher starts one Chromium process per Launch call via chromedp.
type ChromedpLauncher struct {
	opts Options
}

// NewChromedpLauncher creates a ChromedpLauncher.
func NewChromedpLauncher(opts Options) *ChromedpLauncher {
	return &ChromedpLauncher{opts: opts}
}

func (l *ChromedpLauncher) Name() string { return "chromedp" }

// Launch starts Chromium through an exec allocator. The process outlives
// ctx's cancellation; only Close stops it.
func (l *ChromedpLauncher) Launch(ctx context.Context) (Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1440, 900),
	)
	if l.opts.NoSandbox {
		opts = append(opts,
			chromedp.NoSandbox,
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}
	if l.opts.BrowserBin != "" {
		opts = append(opts, chromedp.ExecPath(l.opts.BrowserBin))
	}
	if l.opts.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(l.opts.Proxy))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// The first Run on a fresh context starts the process.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("chromedp: launch browser: %w", err)
	}
	slog.Debug("browser launched", "driver", l.Name())

	return &chromedpBrowser{
		ctx:           browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
		opts:          l.opts,
	}, nil
}

type chromedpBrowser struct {
	ctx           context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	opts          Options

	// tabs holds the cancel func of every page opened on this browser.
	tabs []context.CancelFunc
}

func (b *chromedpBrowser) NewPage(ctx context.Context) (Page, error) {
	tabCtx, cancelTab := chromedp.NewContext(b.ctx)
	p := &chromedpPage{ctx: tabCtx, idle: b.opts.idleWindow()}

	runCtx, done := p.bind(ctx)
	defer done()

	actions := []chromedp.Action{network.Enable()}
	if b.opts.Stealth {
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealth.JS).Do(ctx)
			return err
		}))
	}
	if err := chromedp.Run(runCtx, actions...); err != nil {
		cancelTab()
		return nil, fmt.Errorf("chromedp: create page: %w", err)
	}
	b.tabs = append(b.tabs, cancelTab)
	return p, nil
}

// Close closes the open tabs, shuts the browser down gracefully, then
// releases the allocator, which kills the process if it is still alive.
func (b *chromedpBrowser) Close() error {
	b.releaseTabs()
	err := chromedp.Cancel(b.ctx)
	b.cancelBrowser()
	b.cancelAlloc()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("chromedp: close browser: %w", err)
	}
	return nil
}

// releaseTabs cancels every tab context opened by NewPage.
func (b *chromedpBrowser) releaseTabs() {
	for _, cancel := range b.tabs {
		cancel()
	}
	b.tabs = nil
}

type chromedpPage struct {
	ctx  context.Context
	idle time.Duration
}

// bind derives an action context from the tab that also ends when ctx does.
// Cancelling a derived context aborts the action without closing the tab.
func (p *chromedpPage) bind(ctx context.Context) (context.Context, func()) {
	runCtx, cancel := context.WithCancel(p.ctx)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (p *chromedpPage) SetUserAgent(ctx context.Context, ua string) error {
	runCtx, done := p.bind(ctx)
	defer done()

	err := chromedp.Run(runCtx,
		emulation.SetUserAgentOverride(ua).WithAcceptLanguage("en-US,en;q=0.9"),
	)
	if err != nil {
		return fmt.Errorf("chromedp: set user agent: %w", err)
	}
	return nil
}

func (p *chromedpPage) Navigate(ctx context.Context, target string, timeout time.Duration) error {
	runCtx, done := p.bind(ctx)
	defer done()

	navCtx, cancel := context.WithTimeout(runCtx, timeout)
	defer cancel()

	if ref := googleReferer(target); ref != "" {
		_ = chromedp.Run(navCtx, network.SetExtraHTTPHeaders(network.Headers{"Referer": ref}))
	}

	if err := chromedp.Run(navCtx, chromedp.Navigate(target)); err != nil {
		if navCtx.Err() != nil {
			return fmt.Errorf("chromedp: %w after %s: %w", ErrNavigationTimeout, timeout, err)
		}
		return fmt.Errorf("chromedp: navigate: %w", err)
	}

	if err := p.waitIdle(navCtx); err != nil {
		if navCtx.Err() != nil {
			return fmt.Errorf("chromedp: %w after %s: %w", ErrNavigationTimeout, timeout, err)
		}
		return fmt.Errorf("chromedp: wait idle: %w", err)
	}
	return nil
}

// waitIdle polls the resource timing count until it has not changed for the
// idle window and the document has finished loading.
func (p *chromedpPage) waitIdle(ctx context.Context) error {
	ticker := time.NewTicker(idlePollInterval)
	defer ticker.Stop()

	last := -1
	stableSince := time.Now()
	for {
		var probe struct {
			Ready string `json:"ready"`
			Count int    `json:"count"`
		}
		if err := chromedp.Run(ctx, chromedp.Evaluate(idleProbeJS, &probe)); err != nil {
			return err
		}

		now := time.Now()
		if probe.Count != last {
			last = probe.Count
			stableSince = now
		} else if probe.Ready == "complete" && now.Sub(stableSince) >= p.idle {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *chromedpPage) HTML(ctx context.Context) (string, error) {
	runCtx, done := p.bind(ctx)
	defer done()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("chromedp: read html: %w", err)
	}
	return html, nil
}

func (p *chromedpPage) URL(ctx context.Context) (string, error) {
	runCtx, done := p.bind(ctx)
	defer done()

	var loc string
	if err := chromedp.Run(runCtx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("chromedp: read location: %w", err)
	}
	return loc, nil
}

func (p *chromedpPage) ScrollTo(ctx context.Context, y int) error {
	runCtx, done := p.bind(ctx)
	defer done()

	js := fmt.Sprintf("window.scrollTo(0, %d)", y)
	if err := chromedp.Run(runCtx, chromedp.Evaluate(js, nil)); err != nil {
		return fmt.Errorf("chromedp: scroll: %w", err)
	}
	return nil
}
