package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Extractor ExtractorConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the per-request browser process.
type BrowserConfig struct {
	// Driver selects the automation library: "rod" or "chromedp".
	Driver string // default: "rod"

	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's OS sandbox. The process is expected to
	// run inside an already-isolated container.
	NoSandbox bool // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is the upstream proxy for all browser traffic.
	Proxy string

	// Stealth injects the anti-bot-detection evasion script into each page.
	Stealth bool // default: true

	// UserAgent is the identity string every page presents.
	UserAgent string

	// MaxSessions bounds concurrent browser processes. 0 means unbounded.
	MaxSessions int // default: 0
}

// ExtractorConfig controls the navigate → extract → scroll → harvest flow.
type ExtractorConfig struct {
	// ResponseMode is "collection" (primary record + content items) or
	// "single" (primary record only).
	ResponseMode string // default: "collection"

	// NavigationTimeout bounds navigation plus the network idle wait.
	NavigationTimeout time.Duration // default: 30s

	// IdleWindow is how long the network must stay quiet to count as idle.
	IdleWindow time.Duration // default: 500ms

	// ScrollOffset is the vertical pixel offset scrolled to before harvesting.
	ScrollOffset int // default: 2000

	// SettleDelay is the fixed wait after scrolling, or the upper bound
	// when SettlePoll is set.
	SettleDelay time.Duration // default: 5s

	// SettlePoll, when > 0, switches the settle step to polling the
	// harvest count at this interval.
	SettlePoll time.Duration // default: 0

	// SettleStableChecks is the number of consecutive unchanged polls
	// that end the settle step early.
	SettleStableChecks int // default: 3

	// MaxItems caps harvested content items (never above 10).
	MaxItems int // default: 10

	// CDNHosts are hostname fragments that mark an image as platform content.
	CDNHosts []string

	// ExcludePatterns are URL fragments that mark an image as a profile picture.
	ExcludePatterns []string

	// TitlePlaceholder is used when the page has no og:title.
	TitlePlaceholder string // default: "No title"
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// DefaultUserAgent mimics a common desktop Chrome.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36"

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("UNFURL_HOST", "0.0.0.0"),
			Port: envIntOr("UNFURL_PORT", 8080),
			Mode: envOr("UNFURL_MODE", "release"),
		},
		Browser: BrowserConfig{
			Driver:      envOr("UNFURL_BROWSER_DRIVER", "rod"),
			Headless:    envBoolOr("UNFURL_HEADLESS", true),
			NoSandbox:   envBoolOr("UNFURL_NO_SANDBOX", true),
			BrowserBin:  os.Getenv("UNFURL_BROWSER_BIN"),
			Proxy:       os.Getenv("UNFURL_PROXY"),
			Stealth:     envBoolOr("UNFURL_STEALTH", true),
			UserAgent:   envOr("UNFURL_USER_AGENT", DefaultUserAgent),
			MaxSessions: envIntOr("UNFURL_MAX_SESSIONS", 0),
		},
		Extractor: ExtractorConfig{
			ResponseMode:       envOr("UNFURL_RESPONSE_MODE", "collection"),
			NavigationTimeout:  envDurationOr("UNFURL_NAV_TIMEOUT", 30*time.Second),
			IdleWindow:         envDurationOr("UNFURL_IDLE_WINDOW", 500*time.Millisecond),
			ScrollOffset:       envIntOr("UNFURL_SCROLL_OFFSET", 2000),
			SettleDelay:        envDurationOr("UNFURL_SETTLE_DELAY", 5*time.Second),
			SettlePoll:         envDurationOr("UNFURL_SETTLE_POLL", 0),
			SettleStableChecks: envIntOr("UNFURL_SETTLE_STABLE_CHECKS", 3),
			MaxItems:           envIntOr("UNFURL_MAX_ITEMS", 10),
			CDNHosts: envSliceOr("UNFURL_CDN_HOSTS", []string{
				"cdninstagram.com", "fbcdn.net",
			}),
			ExcludePatterns: envSliceOr("UNFURL_EXCLUDE_PATTERNS", []string{
				"profile_pic", "s150x150", "t51.2885-19",
			}),
			TitlePlaceholder: envOr("UNFURL_TITLE_PLACEHOLDER", "No title"),
		},
		Log: LogConfig{
			Level:  envOr("UNFURL_LOG_LEVEL", "info"),
			Format: envOr("UNFURL_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
