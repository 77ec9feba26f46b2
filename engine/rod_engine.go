package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
)

// RodLauncher starts one Chromium process per Launch call via go-rod.
type RodLauncher struct {
	opts Options
}

// NewRodLauncher creates a RodLauncher.
func NewRodLauncher(opts Options) *RodLauncher {
	return &RodLauncher{opts: opts}
}

func (l *RodLauncher) Name() string { return "rod" }

// Launch starts Chromium and connects to it over CDP.
//
// The sandbox flags are dropped when NoSandbox is set: the process runs in an
// already-isolated container where the setuid sandbox cannot start.
func (l *RodLauncher) Launch(ctx context.Context) (Browser, error) {
	ln := launcher.New().
		Headless(l.opts.Headless).
		NoSandbox(l.opts.NoSandbox)

	if l.opts.NoSandbox {
		ln.Set(flags.Flag("disable-setuid-sandbox"))
	}
	if l.opts.BrowserBin != "" {
		ln = ln.Bin(l.opts.BrowserBin)
	}
	if l.opts.Proxy != "" {
		ln = ln.Proxy(l.opts.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	ln.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	ln.Delete(flags.Flag("enable-automation"))
	ln.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	ln.Set(flags.Flag("disable-popup-blocking"))
	ln.Set(flags.Flag("disable-renderer-backgrounding"))
	ln.Set(flags.Flag("disable-background-timer-throttling"))
	ln.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	ln.Set(flags.Flag("disable-component-update"))
	ln.Set(flags.Flag("disable-default-apps"))
	ln.Set(flags.Flag("disable-dev-shm-usage"))
	ln.Set(flags.Flag("disable-extensions"))
	ln.Set(flags.Flag("no-first-run"))

	controlURL, err := ln.Launch()
	if err != nil {
		return nil, fmt.Errorf("rod: launch browser: %w", err)
	}
	slog.Debug("browser launched", "driver", l.Name(), "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		// The process is up but unusable; reap it here since the caller
		// never receives a Browser to close.
		ln.Kill()
		ln.Cleanup()
		return nil, fmt.Errorf("rod: connect to browser: %w", err)
	}

	return &rodBrowser{
		browser:  browser,
		launcher: ln,
		opts:     l.opts,
	}, nil
}

type rodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	opts     Options
}

func (b *rodBrowser) NewPage(ctx context.Context) (Page, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("rod: create page: %w", err)
	}

	// Stealth must be installed before navigation; it only affects
	// documents created after it.
	if b.opts.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	return &rodPage{page: page, idle: b.opts.idleWindow()}, nil
}

// Close drops the CDP connection, kills the process and removes its
// temporary profile directory.
func (b *rodBrowser) Close() error {
	err := b.browser.Close()
	b.launcher.Kill()
	b.launcher.Cleanup()
	if err != nil {
		return fmt.Errorf("rod: close browser: %w", err)
	}
	return nil
}

type rodPage struct {
	page *rod.Page
	idle time.Duration
}

func (p *rodPage) SetUserAgent(ctx context.Context, ua string) error {
	err := p.page.Context(ctx).SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      ua,
		AcceptLanguage: "en-US,en;q=0.9",
	})
	if err != nil {
		return fmt.Errorf("rod: set user agent: %w", err)
	}
	return nil
}

// Navigate loads target and waits for request idle.
//
// The idle waiter MUST be registered before Navigate: it installs a CDP
// listener, and registering it afterwards misses in-flight requests and
// returns instantly.
func (p *rodPage) Navigate(ctx context.Context, target string, timeout time.Duration) error {
	if ref := googleReferer(target); ref != "" {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: proto.NetworkHeaders{"Referer": gson.New(ref)},
		}.Call(p.page)
	}

	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	pg := p.page.Context(navCtx)

	waitIdle := pg.WaitRequestIdle(p.idle, nil, nil, nil)

	if err := pg.Navigate(target); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("rod: %w after %s: %w", ErrNavigationTimeout, timeout, err)
		}
		return fmt.Errorf("rod: navigate: %w", err)
	}

	waitIdle()

	if err := navCtx.Err(); err != nil {
		return fmt.Errorf("rod: %w after %s: %w", ErrNavigationTimeout, timeout, err)
	}
	return nil
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	html, err := p.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("rod: read html: %w", err)
	}
	return html, nil
}

func (p *rodPage) URL(ctx context.Context) (string, error) {
	res, err := p.page.Context(ctx).Eval(`() => window.location.href`)
	if err != nil {
		return "", fmt.Errorf("rod: read location: %w", err)
	}
	return res.Value.Str(), nil
}

func (p *rodPage) ScrollTo(ctx context.Context, y int) error {
	if _, err := p.page.Context(ctx).Eval(`(y) => window.scrollTo(0, y)`, y); err != nil {
		return fmt.Errorf("rod: scroll: %w", err)
	}
	return nil
}
