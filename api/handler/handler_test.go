package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/unfurl/config"
	"github.com/use-agent/unfurl/engine"
	"github.com/use-agent/unfurl/models"
	"github.com/use-agent/unfurl/scraper"
)

type stubPage struct {
	html     string
	location string
	navErr   error

	// started is signalled and release awaited by Navigate when set.
	started chan struct{}
	release chan struct{}
}

func (p *stubPage) Navigate(context.Context, string, time.Duration) error {
	if p.started != nil {
		p.started <- struct{}{}
	}
	if p.release != nil {
		<-p.release
	}
	return p.navErr
}

func (p *stubPage) SetUserAgent(context.Context, string) error { return nil }
func (p *stubPage) HTML(context.Context) (string, error)       { return p.html, nil }
func (p *stubPage) URL(context.Context) (string, error)        { return p.location, nil }
func (p *stubPage) ScrollTo(context.Context, int) error        { return nil }

type stubBrowser struct {
	page   *stubPage
	closed int
}

func (b *stubBrowser) NewPage(context.Context) (engine.Page, error) { return b.page, nil }
func (b *stubBrowser) Close() error                                 { b.closed++; return nil }

type stubLauncher struct {
	browser  *stubBrowser
	launches int
}

func (l *stubLauncher) Name() string { return "stub" }

func (l *stubLauncher) Launch(context.Context) (engine.Browser, error) {
	l.launches++
	return l.browser, nil
}

func newTestScraper(page *stubPage, mode string) (*scraper.Scraper, *stubLauncher) {
	l := &stubLauncher{browser: &stubBrowser{page: page}}
	sc := scraper.NewScraper(l, config.BrowserConfig{}, config.ExtractorConfig{
		ResponseMode:      mode,
		NavigationTimeout: time.Second,
		MaxItems:          10,
		CDNHosts:          []string{"cdninstagram.com", "fbcdn.net"},
		ExcludePatterns:   []string{"profile_pic", "s150x150", "t51.2885-19"},
		TitlePlaceholder:  "No title",
	})
	return sc, l
}

func newTestRouter(sc *scraper.Scraper) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/scrape", Preview(sc))
	r.GET("/api/health", Health(sc, time.Now()))
	return r
}

func post(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/scrape", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPreview_InvalidURL(t *testing.T) {
	sc, l := newTestScraper(&stubPage{}, scraper.ModeSingle)
	r := newTestRouter(sc)

	for _, body := range []string{
		`{"url":"not-a-url"}`,
		`{"url":"file:///etc/passwd"}`,
		`{}`,
		`{"url":null}`,
		`{"url":123}`,
		`{"url":["https://example.com"]}`,
		`{"url":{"href":"https://example.com"}}`,
		`{"url":true}`,
	} {
		w := post(r, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.JSONEq(t, `{"error":"Invalid URL"}`, w.Body.String(), body)
	}
	assert.Equal(t, 0, l.launches)
}

func TestPreview_MalformedBody(t *testing.T) {
	sc, l := newTestScraper(&stubPage{}, scraper.ModeSingle)
	r := newTestRouter(sc)

	for _, body := range []string{`{"url":`, `not json`, ``} {
		w := post(r, body)
		assert.Equal(t, http.StatusInternalServerError, w.Code, body)
		assert.JSONEq(t, `{"error":"Failed to fetch preview"}`, w.Body.String(), body)
	}
	assert.Equal(t, 0, l.launches)
}

func TestPreview_SingleRecord(t *testing.T) {
	page := &stubPage{
		html:     `<html><head><meta property="og:title" content="Example"></head></html>`,
		location: "https://example.com/",
	}
	sc, l := newTestScraper(page, scraper.ModeSingle)
	r := newTestRouter(sc)

	w := post(r, `{"url":"https://example.com"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"title": "Example",
		"description": "",
		"image": "",
		"url": "https://example.com",
		"blocked": false
	}`, w.Body.String())
	assert.Equal(t, 1, l.browser.closed)
}

func TestPreview_BlockedCollection(t *testing.T) {
	page := &stubPage{
		html:     `<html><head><title>Login</title></head><body><form></form></body></html>`,
		location: "https://www.instagram.com/accounts/login/",
	}
	sc, _ := newTestScraper(page, scraper.ModeCollection)
	r := newTestRouter(sc)

	w := post(r, `{"url":"https://www.instagram.com/nasa/"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Items []models.PreviewResult `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "No title", body.Items[0].Title)
	assert.True(t, body.Items[0].Blocked)
}

func TestPreview_NavigationTimeout(t *testing.T) {
	page := &stubPage{navErr: fmt.Errorf("idle wait: %w", engine.ErrNavigationTimeout)}
	sc, l := newTestScraper(page, scraper.ModeCollection)
	r := newTestRouter(sc)

	w := post(r, `{"url":"https://slow.example.com"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch preview"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "timeout")
	assert.Equal(t, 1, l.browser.closed)
}

func getHealth(t *testing.T, r http.Handler) models.HealthResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	sc, _ := newTestScraper(&stubPage{}, scraper.ModeCollection)
	r := newTestRouter(sc)

	resp := getHealth(t, r)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "stub", resp.Driver)
	assert.Equal(t, scraper.ModeCollection, resp.ResponseMode)
	assert.Equal(t, Version, resp.Version)
}

func TestHealth_DegradedWhileSessionsFull(t *testing.T) {
	page := &stubPage{
		html:    `<html><head><meta property="og:title" content="Example"></head></html>`,
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	l := &stubLauncher{browser: &stubBrowser{page: page}}
	sc := scraper.NewScraper(l, config.BrowserConfig{MaxSessions: 1}, config.ExtractorConfig{
		ResponseMode:      scraper.ModeSingle,
		NavigationTimeout: time.Second,
	})
	r := newTestRouter(sc)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- post(r, `{"url":"https://example.com"}`) }()
	<-page.started

	busy := getHealth(t, r)
	assert.Equal(t, "degraded", busy.Status)
	assert.Equal(t, 1, busy.SessionStats.ActiveSessions)
	assert.Equal(t, 1, busy.SessionStats.MaxSessions)

	close(page.release)
	require.Equal(t, http.StatusOK, (<-done).Code)

	idle := getHealth(t, r)
	assert.Equal(t, "healthy", idle.Status)
	assert.Equal(t, 0, idle.SessionStats.ActiveSessions)
}
