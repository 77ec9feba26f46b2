package scraper

import (
	"context"
	"errors"

	"github.com/use-agent/unfurl/engine"
	"github.com/use-agent/unfurl/models"
)

func isTimeout(err error) bool {
	return errors.Is(err, engine.ErrNavigationTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// categorizeNavError wraps a navigation failure into a typed PreviewError.
func categorizeNavError(err error) *models.PreviewError {
	if isTimeout(err) {
		return models.NewPreviewError(models.ErrCodeNavigationTimeout, "navigation timed out", err)
	}
	return models.NewPreviewError(models.ErrCodeNavigation, "navigation to target URL failed", err)
}

func launchError(msg string, err error) *models.PreviewError {
	return models.NewPreviewError(models.ErrCodeLaunchFailure, msg, err)
}

func extractionError(msg string, err error) *models.PreviewError {
	return models.NewPreviewError(models.ErrCodeExtraction, msg, err)
}
