package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/unfurl/models"
	"github.com/use-agent/unfurl/scraper"
)

// Preview returns a handler for POST /api/scrape.
//
// Orchestration flow:
//  1. Decode the body. A url of the wrong JSON type is an invalid URL;
//     a body that is not JSON at all is an internal error.
//  2. Scraper.Preview → single record or collection.
//  3. Map any PreviewError to its status and generic public message.
func Preview(sc *scraper.Scraper) gin.HandlerFunc {
	return func(c *gin.Context) {
		// ── 1. Parse request ────────────────────────────────────────
		var req models.PreviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, "", bindError(err))
			return
		}

		// ── 2. Extract ──────────────────────────────────────────────
		resp, err := sc.Preview(c.Request.Context(), req.URL)
		if err != nil {
			respondError(c, req.URL, err)
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}

// bindError classifies a request decoding failure.
func bindError(err error) *models.PreviewError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return models.NewPreviewError(models.ErrCodeInvalidInput, "url must be a string", err)
	}
	return models.NewPreviewError(models.ErrCodeInternal, "malformed request body", err)
}

// respondError logs the full error and writes the public error body.
// Nothing from the underlying error reaches the client.
func respondError(c *gin.Context, url string, err error) {
	var previewErr *models.PreviewError
	if !errors.As(err, &previewErr) {
		previewErr = models.NewPreviewError(models.ErrCodeInternal, "unexpected error", err)
	}

	status := mapErrorToStatus(previewErr)
	if status >= http.StatusInternalServerError {
		slog.Error("preview failed", "url", url, "code", previewErr.Code, "error", err)
	} else {
		slog.Warn("preview rejected", "url", url, "code", previewErr.Code, "error", err)
	}

	c.JSON(status, models.ErrorResponse{Error: previewErr.PublicMessage()})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.PreviewError) int {
	switch e.Code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	default:
		return http.StatusInternalServerError // 500
	}
}
