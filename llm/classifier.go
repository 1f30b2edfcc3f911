// Package llm implements the fallback authentication classifier: an
// OpenAI-compatible chat-completion call used only when heuristic
// detection finds nothing in static markup kept after a dynamic-path
// failure.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sreekar9601/getcovered-technical-task/config"
	"github.com/sreekar9601/getcovered-technical-task/models"
)

// maxPromptHTML bounds the markup sent to the model, in bytes.
const maxPromptHTML = 8000

// Client is a lightweight OpenAI-compatible API client for the fallback
// classifier. It uses net/http directly, no third-party SDK needed.
type Client struct {
	httpClient *http.Client
	cfg        config.LLMConfig
}

// NewClient creates a fallback classifier client. Pass a nil httpClient
// to use a default one with the configured timeout.
func NewClient(httpClient *http.Client, cfg config.LLMConfig) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{httpClient: httpClient, cfg: cfg}
}

// verdict is the JSON structure the model is asked to produce.
type verdict struct {
	HasLoginForm          bool     `json:"has_login_form"`
	HasPasswordField      bool     `json:"has_password_field"`
	HasEmailUsernameField bool     `json:"has_email_username_field"`
	OAuthProviders        []string `json:"oauth_providers"`
	Confidence            float64  `json:"confidence"`
	Reasoning             string   `json:"reasoning"`
}

// chatRequest is the OpenAI chat completion request body.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse is the minimal chat completion response we need.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// chatErrorResponse captures an API error from the LLM provider.
type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

const systemPrompt = `You are an authentication-page analyst. You receive an HTML excerpt of a web page and must decide whether it contains a login form or OAuth sign-in buttons.

Return ONLY valid JSON, no markdown fences or explanation, with exactly these fields:
{
  "has_login_form": bool,
  "has_password_field": bool,
  "has_email_username_field": bool,
  "oauth_providers": [lowercase provider names, e.g. "google", "github"],
  "confidence": number between 0 and 1,
  "reasoning": short string
}

Rules:
- has_login_form is true only if the page lets a user sign in (not a registration-only or search form).
- List an OAuth provider only if there is a visible sign-in button or link for it.
- When unsure, prefer false and a low confidence.`

// Classify asks the model whether the markup contains authentication
// components and converts the verdict into detector-shaped evidence.
// The returned components carry indicators but no HTML snippets; the
// model sees an excerpt, not exact source bytes.
func (c *Client) Classify(ctx context.Context, markup, pageURL string) (*models.AuthComponents, error) {
	excerpt := extractRelevantHTML(markup)
	if excerpt == "" {
		return nil, models.NewDetectError(models.ErrCodeLLMFailure, "no markup to classify", nil)
	}

	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Page URL: %s\n\nHTML excerpt:\n%s", pageURL, excerpt)},
		},
		Temperature:    0,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.NewDetectError(models.ErrCodeLLMFailure, "LLM request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewDetectError(models.ErrCodeLLMFailure, "failed to read LLM response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyLLMError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, models.NewDetectError(models.ErrCodeLLMFailure, "failed to parse LLM response", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, models.NewDetectError(models.ErrCodeLLMFailure, "LLM returned no choices", nil)
	}

	var v verdict
	if err := json.Unmarshal([]byte(chatResp.Choices[0].Message.Content), &v); err != nil {
		return nil, models.NewDetectError(models.ErrCodeLLMFailure, "LLM returned invalid verdict JSON", err)
	}

	return verdictToComponents(&v), nil
}

// verdictToComponents maps the model's verdict onto the same evidence
// shape the heuristic detector produces.
func verdictToComponents(v *verdict) *models.AuthComponents {
	out := &models.AuthComponents{
		TraditionalForm: models.AuthComponent{
			HTMLSnippets: []string{},
			Indicators:   []string{},
		},
		OAuthButtons: models.OAuthComponent{
			Providers:    []string{},
			HTMLSnippets: []string{},
			Indicators:   []string{},
		},
	}

	if v.HasLoginForm {
		out.TraditionalForm.Found = true
		if v.HasPasswordField {
			out.TraditionalForm.Indicators = append(out.TraditionalForm.Indicators, "password_input")
		}
		if v.HasEmailUsernameField {
			out.TraditionalForm.Indicators = append(out.TraditionalForm.Indicators, "email_input")
		}
	}

	seen := make(map[string]bool)
	for _, p := range v.OAuthProviders {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out.OAuthButtons.Found = true
		out.OAuthButtons.Providers = append(out.OAuthButtons.Providers, p)
		out.OAuthButtons.Indicators = append(out.OAuthButtons.Indicators, p+"_oauth")
	}

	return out
}

// sectionKeywords mark page regions worth sending to the model.
var sectionKeywords = []string{
	"login", "log-in", "log_in", "signin", "sign-in", "sign_in",
	"auth", "password", "account", "session",
}

// extractRelevantHTML trims the markup to the parts most likely to carry
// authentication components, within the prompt budget. Preference order:
// form elements, then elements whose class/id mention a login keyword,
// then the leading body markup as a last resort.
func extractRelevantHTML(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return clip(markup, maxPromptHTML)
	}

	var parts []string
	budget := maxPromptHTML

	take := func(s *goquery.Selection) {
		s.EachWithBreak(func(_ int, el *goquery.Selection) bool {
			if budget <= 0 {
				return false
			}
			h, err := goquery.OuterHtml(el)
			if err != nil || h == "" {
				return true
			}
			h = clip(h, budget)
			parts = append(parts, h)
			budget -= len(h)
			return true
		})
	}

	take(doc.Find("form"))
	if budget > 0 {
		doc.Find("div[class], div[id], section[class], section[id]").EachWithBreak(func(_ int, el *goquery.Selection) bool {
			if budget <= 0 {
				return false
			}
			class, _ := el.Attr("class")
			id, _ := el.Attr("id")
			hint := strings.ToLower(class + " " + id)
			for _, kw := range sectionKeywords {
				if strings.Contains(hint, kw) {
					take(el)
					break
				}
			}
			return true
		})
	}

	if len(parts) == 0 {
		if body, err := doc.Find("body").Html(); err == nil && body != "" {
			return clip(body, maxPromptHTML)
		}
		return clip(markup, maxPromptHTML)
	}
	return strings.Join(parts, "\n")
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Noop is a classifier that never finds anything. It stands in for the
// real client when no LLM is configured.
type Noop struct{}

// Classify always reports no evidence, without error.
func (Noop) Classify(_ context.Context, _, _ string) (*models.AuthComponents, error) {
	return nil, nil
}

// classifyLLMError maps HTTP status codes to appropriate error codes.
func classifyLLMError(statusCode int, body []byte) *models.DetectError {
	var errResp chatErrorResponse
	msg := "LLM API error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return models.NewDetectError(models.ErrCodeLLMAuthFailure, msg, nil)
	case statusCode == http.StatusTooManyRequests:
		return models.NewDetectError(models.ErrCodeLLMRateLimited, msg, nil)
	default:
		return models.NewDetectError(models.ErrCodeLLMFailure, fmt.Sprintf("LLM API returned %d: %s", statusCode, msg), nil)
	}
}
