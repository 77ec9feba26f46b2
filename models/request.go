package models

// PreviewRequest is the payload for POST /api/scrape.
type PreviewRequest struct {
	// URL is the page to preview. It must be an absolute http(s) URL.
	URL string `json:"url"`
}
