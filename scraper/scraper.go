package scraper

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/use-agent/unfurl/config"
	"github.com/use-agent/unfurl/engine"
	"github.com/use-agent/unfurl/extractor"
	"github.com/use-agent/unfurl/models"
	"golang.org/x/sync/semaphore"
)

// Response modes.
const (
	// ModeCollection returns the primary record followed by harvested
	// content items.
	ModeCollection = "collection"

	// ModeSingle returns the primary record only and skips scrolling.
	ModeSingle = "single"
)

// Scraper runs one isolated browser session per preview request.
// It is safe for concurrent use; requests share nothing but counters.
type Scraper struct {
	launcher     engine.Launcher
	browserCfg   config.BrowserConfig
	extractorCfg config.ExtractorConfig
	mode         string
	rules        extractor.HarvestRules

	// sessions bounds concurrent browser processes; nil means unbounded.
	sessions *semaphore.Weighted

	activeSessions atomic.Int32
	totalSessions  atomic.Int64
	failedSessions atomic.Int64
}

// NewScraper creates a Scraper that launches browsers through l.
func NewScraper(l engine.Launcher, browserCfg config.BrowserConfig, extractorCfg config.ExtractorConfig) *Scraper {
	mode := ModeCollection
	if extractorCfg.ResponseMode == ModeSingle {
		mode = ModeSingle
	}

	s := &Scraper{
		launcher:     l,
		browserCfg:   browserCfg,
		extractorCfg: extractorCfg,
		mode:         mode,
		rules: extractor.HarvestRules{
			CDNHosts:        extractorCfg.CDNHosts,
			ExcludePatterns: extractorCfg.ExcludePatterns,
			Max:             extractorCfg.MaxItems,
		},
	}
	if browserCfg.MaxSessions > 0 {
		s.sessions = semaphore.NewWeighted(int64(browserCfg.MaxSessions))
	}
	return s
}

// Driver returns the name of the browser driver in use.
func (s *Scraper) Driver() string { return s.launcher.Name() }

// Mode returns ModeCollection or ModeSingle.
func (s *Scraper) Mode() string { return s.mode }

// Stats returns a snapshot of the session counters.
func (s *Scraper) Stats() models.SessionStats {
	return models.SessionStats{
		ActiveSessions: int(s.activeSessions.Load()),
		TotalSessions:  s.totalSessions.Load(),
		FailedSessions: s.failedSessions.Load(),
		MaxSessions:    s.browserCfg.MaxSessions,
	}
}

// Preview validates rawURL, renders it in a fresh browser and extracts the
// preview. Errors are always *models.PreviewError; on error no partial
// result is returned.
//
// Lifecycle:
//
//  1. Validate        – reject non-http(s) input before any allocation
//  2. Launch          – one browser process, one page
//  3. DEFER: close    – runs on every path once the browser started
//  4. Configure       – user agent
//  5. Navigate        – single attempt, idle wait bounded by the timeout
//  6. Primary extract – Open Graph record
//  7. Scroll + settle – collection mode only
//  8. Harvest         – content images from the re-read DOM
func (s *Scraper) Preview(ctx context.Context, rawURL string) (*models.ExtractionResponse, error) {
	// ── 1. Validate ───────────────────────────────────────────────────
	if !ValidURL(rawURL) {
		return nil, models.NewPreviewError(models.ErrCodeInvalidInput,
			"url must be an absolute http or https URL", nil)
	}
	target := strings.TrimSpace(rawURL)

	if s.sessions != nil {
		if err := s.sessions.Acquire(ctx, 1); err != nil {
			return nil, models.NewPreviewError(models.ErrCodeInternal,
				"gave up waiting for a free browser session", err)
		}
		defer s.sessions.Release(1)
	}

	// Client disconnects do not cancel an in-flight extraction; the
	// navigation timeout is the only deadline.
	ctx = context.WithoutCancel(ctx)

	s.activeSessions.Add(1)
	defer s.activeSessions.Add(-1)
	s.totalSessions.Add(1)

	log := slog.With("url", target, "driver", s.launcher.Name())

	// ── 2-3. Launch with guaranteed release ───────────────────────────
	sess := newSession(s.launcher, log)
	defer sess.close()

	resp, err := s.run(ctx, sess, target, log)
	if err != nil {
		s.failedSessions.Add(1)
		return nil, err
	}
	return resp, nil
}

func (s *Scraper) run(ctx context.Context, sess *session, target string, log *slog.Logger) (*models.ExtractionResponse, error) {
	start := time.Now()

	if err := sess.launch(ctx); err != nil {
		return nil, launchError("failed to start browser session", err)
	}

	// ── 4. Configure ──────────────────────────────────────────────────
	if err := sess.configurePage(ctx, s.browserCfg.UserAgent); err != nil {
		return nil, launchError("failed to configure page", err)
	}

	// ── 5. Navigate ───────────────────────────────────────────────────
	navStart := time.Now()
	if err := sess.navigate(ctx, target, s.extractorCfg.NavigationTimeout); err != nil {
		return nil, categorizeNavError(err)
	}
	navigationMs := time.Since(navStart).Milliseconds()

	// ── 6. Primary extraction ─────────────────────────────────────────
	doc, err := s.snapshot(ctx, sess.page, target, log)
	if err != nil {
		return nil, err
	}
	primary := extractor.Primary(doc, target, s.extractorCfg.TitlePlaceholder)

	if s.mode == ModeSingle {
		log.Info("preview extracted",
			"title", primary.Title,
			"blocked", primary.Blocked,
			"navigation_ms", navigationMs,
			"total_ms", time.Since(start).Milliseconds(),
		)
		return &models.ExtractionResponse{Preview: &primary}, nil
	}

	extractor.Enrich(&primary)

	// ── 7. Scroll + settle ────────────────────────────────────────────
	if err := sess.page.ScrollTo(ctx, s.extractorCfg.ScrollOffset); err != nil {
		return nil, extractionError("failed to scroll page", err)
	}
	if err := s.settle(ctx, sess.page, target, log); err != nil {
		return nil, extractionError("settle step failed", err)
	}

	// ── 8. Harvest ────────────────────────────────────────────────────
	doc, err = s.snapshot(ctx, sess.page, target, log)
	if err != nil {
		return nil, err
	}
	images := doc.HarvestImages(s.rules)
	items := make([]models.ContentItem, 0, len(images))
	for _, img := range images {
		items = append(items, models.NewContentItem(img))
	}

	log.Info("preview extracted",
		"title", primary.Title,
		"blocked", primary.Blocked,
		"items", len(items),
		"navigation_ms", navigationMs,
		"total_ms", time.Since(start).Milliseconds(),
	)
	return &models.ExtractionResponse{Preview: &primary, Items: items}, nil
}

// snapshot reads the rendered DOM and the current address and parses them.
// The address is best-effort; the requested URL stands in when it fails.
func (s *Scraper) snapshot(ctx context.Context, page engine.Page, target string, log *slog.Logger) (*extractor.Document, error) {
	rawHTML, err := page.HTML(ctx)
	if err != nil {
		return nil, extractionError("failed to read page HTML", err)
	}

	loc, err := page.URL(ctx)
	if err != nil || loc == "" {
		log.Debug("could not read page location, using requested URL", "error", err)
		loc = target
	}

	doc, err := extractor.Parse(rawHTML, loc)
	if err != nil {
		return nil, extractionError("failed to parse page HTML", err)
	}
	return doc, nil
}
