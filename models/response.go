package models

import "encoding/json"

// ContentItemType is the only type a harvested content item carries.
const ContentItemType = "post"

// PreviewResult is the normalized link-preview record for one page.
type PreviewResult struct {
	// Title is the og:title, or the configured placeholder. Never empty.
	Title string `json:"title"`

	// Description is the og:description, possibly empty.
	Description string `json:"description"`

	// Image is the absolute og:image URL, possibly empty.
	Image string `json:"image"`

	// URL is the og:url, else the page's current address.
	URL string `json:"url"`

	// Blocked is true when neither og:title nor og:image was present,
	// which usually means an anti-bot page or a login wall.
	Blocked bool `json:"blocked"`

	// Followers, Following and PostsCount are count tokens such as "1.2K"
	// parsed out of the description. Omitted when not found.
	Followers  string `json:"followers,omitempty"`
	Following  string `json:"following,omitempty"`
	PostsCount string `json:"postsCount,omitempty"`
}

// ContentItem is one piece of embedded visual content found after scrolling.
// Only Image carries information; the other keys keep the shape uniform
// with PreviewResult for clients that render both.
type ContentItem struct {
	Image       string `json:"image"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Blocked     bool   `json:"blocked"`
}

// NewContentItem builds a ContentItem for the given image URL.
func NewContentItem(image string) ContentItem {
	return ContentItem{Image: image, Type: ContentItemType}
}

// ExtractionResponse is either a single PreviewResult or a collection whose
// first element is the PreviewResult followed by ContentItems.
type ExtractionResponse struct {
	// Preview is always set on success.
	Preview *PreviewResult

	// Items is non-nil only in collection mode.
	Items []ContentItem
}

// IsCollection reports whether the response uses the {"items": [...]} shape.
func (r *ExtractionResponse) IsCollection() bool {
	return r.Items != nil
}

// MarshalJSON emits exactly one of the two wire shapes.
func (r *ExtractionResponse) MarshalJSON() ([]byte, error) {
	if !r.IsCollection() {
		return json.Marshal(r.Preview)
	}
	items := make([]any, 0, len(r.Items)+1)
	items = append(items, r.Preview)
	for _, it := range r.Items {
		items = append(items, it)
	}
	return json.Marshal(struct {
		Items []any `json:"items"`
	}{Items: items})
}

// ErrorResponse is the body of every non-200 response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the response for GET /api/health.
type HealthResponse struct {
	Status       string       `json:"status"` // "healthy" or "degraded"
	Uptime       string       `json:"uptime"`
	Driver       string       `json:"driver"`
	ResponseMode string       `json:"response_mode"`
	SessionStats SessionStats `json:"session_stats"`
	Version      string       `json:"version"`
}

// SessionStats reports browser session counters.
type SessionStats struct {
	ActiveSessions int   `json:"active_sessions"`
	TotalSessions  int64 `json:"total_sessions"`
	FailedSessions int64 `json:"failed_sessions"`
	MaxSessions    int   `json:"max_sessions"`
}
