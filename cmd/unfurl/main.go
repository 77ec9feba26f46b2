package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/unfurl/api"
	"github.com/use-agent/unfurl/config"
	"github.com/use-agent/unfurl/engine"
	"github.com/use-agent/unfurl/scraper"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("unfurl starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"driver", cfg.Browser.Driver,
		"responseMode", cfg.Extractor.ResponseMode,
		"maxSessions", cfg.Browser.MaxSessions,
	)

	// ── 3. Select browser driver ────────────────────────────────────
	// Browsers are launched per request, so nothing starts here.
	launcher, err := engine.NewLauncher(cfg.Browser.Driver, engine.Options{
		Headless:   cfg.Browser.Headless,
		NoSandbox:  cfg.Browser.NoSandbox,
		BrowserBin: cfg.Browser.BrowserBin,
		Proxy:      cfg.Browser.Proxy,
		Stealth:    cfg.Browser.Stealth,
		IdleWindow: cfg.Extractor.IdleWindow,
	})
	if err != nil {
		slog.Error("failed to select browser driver", "error", err)
		os.Exit(1)
	}

	// ── 4. Initialise scraper ───────────────────────────────────────
	sc := scraper.NewScraper(launcher, cfg.Browser, cfg.Extractor)

	// ── 5. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(sc, cfg, startTime)

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// In-flight previews may still be navigating and settling; each one
	// closes its own browser when it returns.
	grace := cfg.Extractor.NavigationTimeout + cfg.Extractor.SettleDelay + 5*time.Second
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err, "active_sessions", sc.Stats().ActiveSessions)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("unfurl stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
