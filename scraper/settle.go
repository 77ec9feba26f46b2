package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/unfurl/engine"
)

// settle waits for lazily-loaded images after the scroll.
//
// With SettlePoll unset it is a fixed SettleDelay. Otherwise SettleDelay is
// the upper bound and the wait ends early once the harvest count has stayed
// the same for SettleStableChecks consecutive polls.
func (s *Scraper) settle(ctx context.Context, page engine.Page, target string, log *slog.Logger) error {
	cfg := s.extractorCfg
	if cfg.SettlePoll <= 0 {
		return sleepCtx(ctx, cfg.SettleDelay)
	}

	checks := cfg.SettleStableChecks
	if checks < 1 {
		checks = 1
	}

	deadline := time.Now().Add(cfg.SettleDelay)
	last, stable := -1, 0
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			log.Debug("settle reached upper bound", "images", last)
			return nil
		}
		if err := sleepCtx(ctx, min(cfg.SettlePoll, remaining)); err != nil {
			return err
		}

		doc, err := s.snapshot(ctx, page, target, log)
		if err != nil {
			// A failed poll is skipped and the wait goes on toward the
			// upper bound; the harvest snapshot reports real faults.
			log.Debug("settle poll failed", "error", err)
			continue
		}
		n := len(doc.HarvestImages(s.rules))
		if n == last {
			stable++
			if stable >= checks {
				log.Debug("settle converged", "images", n)
				return nil
			}
		} else {
			last, stable = n, 0
		}
	}
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
