package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// CLI flags
var (
	apiURL      = flag.String("api-url", "http://localhost:8080", "unfurl API base URL")
	runs        = flag.Int("runs", 3, "Number of runs per URL for averaging")
	output      = flag.String("output", "benchmark-results.json", "JSON output file path")
	placeholder = flag.String("title-placeholder", "No title", "Title the server reports when a page has no og:title")
)

// Test URLs covering plain pages, Open Graph-rich pages and a profile page.
var testURLs = []struct {
	Label string
	URL   string
}{
	{"Static", "https://example.com"},
	{"Blog", "https://go.dev/blog/go1.21"},
	{"News", "https://www.bbc.com/news"},
	{"Repo", "https://github.com/go-rod/rod"},
	{"Profile", "https://www.instagram.com/nasa/"},
}

// --- Response types (mirrors models package) ---

type previewRecord struct {
	Title   string `json:"title"`
	Image   string `json:"image"`
	URL     string `json:"url"`
	Blocked bool   `json:"blocked"`
}

type previewResponse struct {
	previewRecord
	Items []previewRecord `json:"items"`
	Error string          `json:"error"`
}

// --- Benchmark result types ---

type runResult struct {
	Run        int    `json:"run"`
	TotalMs    int64  `json:"total_ms"`
	StatusCode int    `json:"status_code"`
	HasTitle   bool   `json:"has_title"`
	HasImage   bool   `json:"has_image"`
	Blocked    bool   `json:"blocked"`
	Items      int    `json:"items"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

type urlAverages struct {
	TotalMs float64 `json:"total_ms"`
	Items   float64 `json:"items"`
}

type urlResult struct {
	URL      string       `json:"url"`
	Label    string       `json:"label"`
	Runs     []runResult  `json:"runs"`
	Averages *urlAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp  string      `json:"timestamp"`
	APIURL     string      `json:"api_url"`
	RunsPerURL int         `json:"runs_per_url"`
	Results    []urlResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== unfurl Benchmark Suite ===")
	fmt.Printf("API URL:   %s\n", *apiURL)
	fmt.Printf("Runs/URL:  %d\n", *runs)
	fmt.Printf("Output:    %s\n", *output)
	fmt.Println()

	// Quick connectivity check.
	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure unfurl is running (e.g. go run ./cmd/unfurl)\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     *apiURL,
		RunsPerURL: *runs,
	}

	for _, t := range testURLs {
		fmt.Printf("Benchmarking [%s] %s ...\n", t.Label, t.URL)
		ur := urlResult{URL: t.URL, Label: t.Label}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkURL(t.URL, i)
			if rr.Success {
				fmt.Printf("OK  %dms  items=%d blocked=%t\n", rr.TotalMs, rr.Items, rr.Blocked)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			ur.Runs = append(ur.Runs, rr)
		}

		ur.Averages = computeAverages(ur.Runs)
		report.Results = append(report.Results, ur)
		fmt.Println()
	}

	// Print summary table.
	printTable(report.Results)

	// Write JSON report.
	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func benchmarkURL(url string, run int) runResult {
	rr := runResult{Run: run}

	bodyBytes, err := json.Marshal(map[string]string{"url": url})
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}

	req, err := http.NewRequest(http.MethodPost, *apiURL+"/api/scrape", bytes.NewReader(bodyBytes))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 90 * time.Second}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	var pr previewResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}
	rr.TotalMs = time.Since(start).Milliseconds()
	rr.StatusCode = resp.StatusCode

	if resp.StatusCode != http.StatusOK {
		rr.Error = pr.Error
		return rr
	}

	applyPreview(&rr, pr, *placeholder)
	return rr
}

// applyPreview records a successful response. The server always fills the
// title, so the placeholder counts as no title.
func applyPreview(rr *runResult, pr previewResponse, placeholder string) {
	primary := pr.previewRecord
	if len(pr.Items) > 0 {
		primary = pr.Items[0]
		rr.Items = len(pr.Items) - 1
	}
	rr.Success = true
	rr.HasTitle = primary.Title != "" && primary.Title != placeholder
	rr.HasImage = primary.Image != ""
	rr.Blocked = primary.Blocked
}

func computeAverages(runs []runResult) *urlAverages {
	var successCount int
	var avg urlAverages

	for _, r := range runs {
		if !r.Success {
			continue
		}
		successCount++
		avg.TotalMs += float64(r.TotalMs)
		avg.Items += float64(r.Items)
	}

	if successCount == 0 {
		return nil
	}

	n := float64(successCount)
	avg.TotalMs /= n
	avg.Items /= n
	return &avg
}

func printTable(results []urlResult) {
	fmt.Println(strings.Repeat("─", 75))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "URL\tAvg Latency\tAvg Items\tBlocked\n")
	fmt.Fprintf(w, "───\t───────────\t─────────\t───────\n")

	for _, r := range results {
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\n", truncateURL(r.URL, 40))
			continue
		}

		fmt.Fprintf(w, "%s\t%dms\t%.1f\t%d/%d\n",
			truncateURL(r.URL, 40),
			int64(r.Averages.TotalMs),
			r.Averages.Items,
			blockedRuns(r.Runs),
			len(r.Runs),
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 75))
}

func blockedRuns(runs []runResult) int {
	n := 0
	for _, r := range runs {
		if r.Success && r.Blocked {
			n++
		}
	}
	return n
}

func truncateURL(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
