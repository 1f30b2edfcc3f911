// Benchmark harness for the authscan detect endpoint. Runs a fixed set
// of real-world login pages through the API and reports latency, the
// retrieval method chosen, and what was detected.
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
	apiURL = flag.String("api-url", "http://localhost:8080", "Authscan API base URL")
	apiKey = flag.String("api-key", "", "API key for authenticated requests")
	runs   = flag.Int("runs", 3, "Number of runs per URL for averaging")
	output = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Test URLs covering the page types that stress different retrieval paths.
var testURLs = []struct {
	Label string
	URL   string
}{
	{"StaticForm", "https://github.com/login"},
	{"OAuthHeavy", "https://medium.com/m/signin"},
	{"SPA", "https://app.netlify.com/login"},
	{"BotProtected", "https://www.linkedin.com/login"},
	{"NoAuth", "https://example.com"},
}

// --- Request / Response types (mirrors models package) ---

type detectRequest struct {
	URL     string `json:"url"`
	Timeout int    `json:"timeout"`
}

type detectResponse struct {
	Success        bool         `json:"success"`
	AuthFound      bool         `json:"auth_found"`
	ScrapingMethod string       `json:"scraping_method"`
	Components     *components  `json:"components"`
	Metadata       *metadata    `json:"metadata"`
	Error          *errorDetail `json:"error,omitempty"`
}

type components struct {
	TraditionalForm struct {
		Found bool `json:"found"`
	} `json:"traditional_form"`
	OAuthButtons struct {
		Found     bool     `json:"found"`
		Providers []string `json:"providers"`
	} `json:"oauth_buttons"`
}

type metadata struct {
	ScrapeTimeMs int64  `json:"scrape_time_ms"`
	PageTitle    string `json:"page_title"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --- Benchmark result types ---

type runResult struct {
	Run            int      `json:"run"`
	ScrapeTimeMs   int64    `json:"scrape_time_ms"`
	ScrapingMethod string   `json:"scraping_method"`
	AuthFound      bool     `json:"auth_found"`
	FormFound      bool     `json:"form_found"`
	Providers      []string `json:"providers,omitempty"`
	Success        bool     `json:"success"`
	Error          string   `json:"error,omitempty"`
}

type urlResult struct {
	URL     string      `json:"url"`
	Label   string      `json:"label"`
	Runs    []runResult `json:"runs"`
	AvgMs   float64     `json:"avg_ms"`
	Methods []string    `json:"methods"`
}

type benchmarkReport struct {
	Timestamp  string      `json:"timestamp"`
	APIURL     string      `json:"api_url"`
	RunsPerURL int         `json:"runs_per_url"`
	Results    []urlResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== Authscan Benchmark Suite ===")
	fmt.Printf("API URL:   %s\n", *apiURL)
	fmt.Printf("Runs/URL:  %d\n", *runs)
	fmt.Printf("Output:    %s\n", *output)
	fmt.Println()

	// Quick connectivity check.
	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure authscan is running\n")
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
				fmt.Printf("OK  %dms  method=%s  auth=%v\n", rr.ScrapeTimeMs, rr.ScrapingMethod, rr.AuthFound)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			ur.Runs = append(ur.Runs, rr)
		}

		ur.AvgMs = averageMs(ur.Runs)
		ur.Methods = distinctMethods(ur.Runs)
		report.Results = append(report.Results, ur)
		fmt.Println()
	}

	printTable(report.Results)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func benchmarkURL(url string, run int) runResult {
	rr := runResult{Run: run}

	bodyBytes, err := json.Marshal(detectRequest{URL: url, Timeout: 60})
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}

	req, err := http.NewRequest("POST", *apiURL+"/api/v1/detect", bytes.NewReader(bodyBytes))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	client := &http.Client{Timeout: 90 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	var dr detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}

	rr.Success = dr.Success
	rr.ScrapingMethod = dr.ScrapingMethod
	rr.AuthFound = dr.AuthFound
	if dr.Components != nil {
		rr.FormFound = dr.Components.TraditionalForm.Found
		rr.Providers = dr.Components.OAuthButtons.Providers
	}
	if dr.Metadata != nil {
		rr.ScrapeTimeMs = dr.Metadata.ScrapeTimeMs
	}
	if dr.Error != nil {
		rr.Error = dr.Error.Message
	}

	return rr
}

func averageMs(runs []runResult) float64 {
	var sum float64
	var n int
	for _, r := range runs {
		if !r.Success {
			continue
		}
		sum += float64(r.ScrapeTimeMs)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func distinctMethods(runs []runResult) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range runs {
		if r.ScrapingMethod == "" || seen[r.ScrapingMethod] {
			continue
		}
		seen[r.ScrapingMethod] = true
		out = append(out, r.ScrapingMethod)
	}
	return out
}

func printTable(results []urlResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "URL\tAvg Latency\tMethods\tAuth Found\n")
	fmt.Fprintf(w, "───\t───────────\t───────\t──────────\n")

	for _, r := range results {
		if r.AvgMs == 0 {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\n", truncateURL(r.URL, 40))
			continue
		}
		fmt.Fprintf(w, "%s\t%dms\t%s\t%v\n",
			truncateURL(r.URL, 40),
			int64(r.AvgMs),
			strings.Join(r.Methods, ","),
			anyAuthFound(r.Runs),
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

func anyAuthFound(runs []runResult) bool {
	for _, r := range runs {
		if r.AuthFound {
			return true
		}
	}
	return false
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
	return os.WriteFile(path, data, 0o644)
}
