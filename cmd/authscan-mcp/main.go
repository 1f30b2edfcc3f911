// Command authscan-mcp exposes the authscan HTTP API as MCP tools over
// stdio, so agent runtimes can ask whether a page has a login form or
// OAuth sign-in buttons.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// detectRequest mirrors the authscan API request model.
type detectRequest struct {
	URL          string `json:"url"`
	ForceDynamic bool   `json:"force_dynamic,omitempty"`
	Timeout      int    `json:"timeout,omitempty"`
}

// detectResponse mirrors the authscan API response model.
type detectResponse struct {
	Success        bool   `json:"success"`
	URL            string `json:"url"`
	AuthFound      bool   `json:"auth_found"`
	ScrapingMethod string `json:"scraping_method"`
	Components     *struct {
		TraditionalForm struct {
			Found      bool     `json:"found"`
			Indicators []string `json:"indicators"`
		} `json:"traditional_form"`
		OAuthButtons struct {
			Found     bool     `json:"found"`
			Providers []string `json:"providers"`
		} `json:"oauth_buttons"`
	} `json:"components"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("AUTHSCAN_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("AUTHSCAN_API_KEY")

	s := server.NewMCPServer(
		"authscan",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	detectAuthTool := mcp.NewTool("detect_auth",
		mcp.WithDescription("Analyze a web page and report whether it contains authentication components: a traditional login form (password field) and/or OAuth sign-in buttons (Google, GitHub, etc). Uses a headless browser for JavaScript-heavy pages."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the web page to analyze"),
		),
		mcp.WithBoolean("force_dynamic",
			mcp.Description("Skip the fast static fetch and render the page in a headless browser immediately. Slower but more reliable for single-page applications."),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Overall deadline in seconds for the analysis (default: 45, max: 120)"),
		),
	)
	s.AddTool(detectAuthTool, handleDetectAuth(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleDetectAuth(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 150 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		reqBody := detectRequest{URL: url}
		args := request.GetArguments()
		if fd, ok := args["force_dynamic"].(bool); ok {
			reqBody.ForceDynamic = fd
		}
		if timeout, ok := args["timeout"].(float64); ok {
			reqBody.Timeout = int(timeout)
		}

		body, err := json.Marshal(reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/api/v1/detect", bytes.NewReader(body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if apiKey != "" {
			httpReq.Header.Set("X-API-Key", apiKey)
		}

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var detectResp detectResponse
		if err := json.Unmarshal(respBody, &detectResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if detectResp.Error != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s: %s", detectResp.Error.Code, detectResp.Error.Message)), nil
		}

		// Return the full structured response so the agent sees providers
		// and indicators, not just a boolean.
		return mcp.NewToolResultText(string(respBody)), nil
	}
}
