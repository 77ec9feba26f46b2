package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// previewRequest mirrors the unfurl API request model.
type previewRequest struct {
	URL string `json:"url"`
}

// previewRecord covers both the primary record and content items.
type previewRecord struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	URL         string `json:"url"`
	Blocked     bool   `json:"blocked"`
	Type        string `json:"type"`
	Followers   string `json:"followers"`
	Following   string `json:"following"`
	PostsCount  string `json:"postsCount"`
}

// previewResponse accepts either response shape. Items is set only for
// collections; otherwise the record fields sit at the top level.
type previewResponse struct {
	previewRecord
	Items []previewRecord `json:"items"`
	Error string          `json:"error"`
}

func main() {
	apiURL := os.Getenv("UNFURL_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}

	s := server.NewMCPServer(
		"unfurl",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	previewTool := mcp.NewTool("preview_url",
		mcp.WithDescription("Render a web page in a headless browser and return its link preview: Open Graph title, description, image and canonical URL. Profile pages also list their content images."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Absolute http or https URL of the page to preview"),
		),
	)

	s.AddTool(previewTool, handlePreviewURL(apiURL))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}

func handlePreviewURL(apiURL string) server.ToolHandlerFunc {
	// Navigation, idle wait and the settle delay all happen server-side.
	client := &http.Client{Timeout: 90 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		body, err := json.Marshal(previewRequest{URL: url})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/api/scrape", bytes.NewReader(body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var pr previewResponse
		if err := json.Unmarshal(respBody, &pr); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if resp.StatusCode != http.StatusOK {
			errMsg := pr.Error
			if errMsg == "" {
				errMsg = fmt.Sprintf("preview failed with status %d", resp.StatusCode)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		return mcp.NewToolResultText(formatPreview(pr)), nil
	}
}

// formatPreview renders a preview response as plain text for the model.
func formatPreview(pr previewResponse) string {
	primary := pr.previewRecord
	var items []previewRecord
	if len(pr.Items) > 0 {
		primary = pr.Items[0]
		items = pr.Items[1:]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", primary.Title)
	fmt.Fprintf(&b, "URL: %s\n", primary.URL)
	if primary.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", primary.Description)
	}
	if primary.Image != "" {
		fmt.Fprintf(&b, "Image: %s\n", primary.Image)
	}
	if primary.Followers != "" || primary.Following != "" || primary.PostsCount != "" {
		fmt.Fprintf(&b, "Followers: %s  Following: %s  Posts: %s\n",
			primary.Followers, primary.Following, primary.PostsCount)
	}
	if primary.Blocked {
		b.WriteString("\nThe site served a login wall or bot check; the preview is incomplete.\n")
	}

	if len(items) > 0 {
		fmt.Fprintf(&b, "\nContent images (%d):\n", len(items))
		for i, it := range items {
			fmt.Fprintf(&b, "%d. %s\n", i+1, it.Image)
		}
	}
	return b.String()
}
