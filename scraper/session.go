package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/unfurl/engine"
)

// sessionState tracks one request's browser session.
//
//	Idle → Launching → PageReady → Navigating → {Navigated | TimedOut} → Closed
//	Idle → Launching → Failed
//
// Closed is reachable from every state after a successful launch. Failed is
// terminal and has nothing to release.
type sessionState int

const (
	stateIdle sessionState = iota
	stateLaunching
	statePageReady
	stateNavigating
	stateNavigated
	stateTimedOut
	stateClosed
	stateFailed
)

func (s sessionState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateLaunching:
		return "launching"
	case statePageReady:
		return "page_ready"
	case stateNavigating:
		return "navigating"
	case stateNavigated:
		return "navigated"
	case stateTimedOut:
		return "timed_out"
	case stateClosed:
		return "closed"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// session owns exactly one browser process and one page.
type session struct {
	launcher engine.Launcher
	browser  engine.Browser
	page     engine.Page
	state    sessionState
	log      *slog.Logger
}

func newSession(l engine.Launcher, log *slog.Logger) *session {
	return &session{launcher: l, state: stateIdle, log: log}
}

func (s *session) transition(to sessionState) {
	s.log.Debug("session state", "from", s.state.String(), "to", to.String())
	s.state = to
}

// launch starts the browser and opens the page. A failure after the browser
// started leaves the session launched, so close still reaps the process.
func (s *session) launch(ctx context.Context) error {
	s.transition(stateLaunching)

	b, err := s.launcher.Launch(ctx)
	if err != nil {
		s.transition(stateFailed)
		return err
	}
	s.browser = b

	p, err := b.NewPage(ctx)
	if err != nil {
		return err
	}
	s.page = p
	s.transition(statePageReady)
	return nil
}

// configurePage sets the outbound identity. Best-effort evasion only.
func (s *session) configurePage(ctx context.Context, userAgent string) error {
	if userAgent == "" {
		return nil
	}
	return s.page.SetUserAgent(ctx, userAgent)
}

// navigate makes the single navigation attempt for this request.
func (s *session) navigate(ctx context.Context, target string, timeout time.Duration) error {
	s.transition(stateNavigating)
	err := s.page.Navigate(ctx, target, timeout)
	if err != nil {
		if isTimeout(err) {
			s.transition(stateTimedOut)
		}
		return err
	}
	s.transition(stateNavigated)
	return nil
}

// close releases the browser once. It is a no-op before a successful
// launch and after a previous close.
func (s *session) close() {
	if s.browser == nil || s.state == stateClosed {
		return
	}
	if err := s.browser.Close(); err != nil {
		s.log.Warn("browser close failed", "error", err)
	}
	s.transition(stateClosed)
}
