package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sreekar9601/getcovered-technical-task/config"
	"github.com/sreekar9601/getcovered-technical-task/models"
)

func fakeLLMServer(t *testing.T, verdictJSON string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header = %q", got)
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"message":"nope"}}`))
			return
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": verdictJSON}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func testClient(baseURL string) *Client {
	return NewClient(nil, config.LLMConfig{
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
	})
}

func TestClassify_PositiveVerdict(t *testing.T) {
	srv := fakeLLMServer(t, `{
		"has_login_form": true,
		"has_password_field": true,
		"has_email_username_field": true,
		"oauth_providers": ["google", "GitHub", "google"],
		"confidence": 0.9,
		"reasoning": "password field inside a form"
	}`, http.StatusOK)
	defer srv.Close()

	got, err := testClient(srv.URL).Classify(context.Background(),
		`<html><body><form><input type="password"></form></body></html>`, "https://example.com")
	if err != nil {
		t.Fatal(err)
	}
	if !got.TraditionalForm.Found {
		t.Error("traditional form should be found")
	}
	wantInd := []string{"password_input", "email_input"}
	if len(got.TraditionalForm.Indicators) != 2 ||
		got.TraditionalForm.Indicators[0] != wantInd[0] ||
		got.TraditionalForm.Indicators[1] != wantInd[1] {
		t.Errorf("indicators = %v, want %v", got.TraditionalForm.Indicators, wantInd)
	}
	// Providers are lowercased and deduplicated, order preserved.
	if len(got.OAuthButtons.Providers) != 2 ||
		got.OAuthButtons.Providers[0] != "google" || got.OAuthButtons.Providers[1] != "github" {
		t.Errorf("providers = %v", got.OAuthButtons.Providers)
	}
	if len(got.TraditionalForm.HTMLSnippets) != 0 {
		t.Error("classifier evidence must not carry HTML snippets")
	}
}

func TestClassify_NegativeVerdict(t *testing.T) {
	srv := fakeLLMServer(t, `{"has_login_form": false, "oauth_providers": [], "confidence": 0.8, "reasoning": "marketing page"}`, http.StatusOK)
	defer srv.Close()

	got, err := testClient(srv.URL).Classify(context.Background(),
		`<html><body><p>hello</p></body></html>`, "https://example.com")
	if err != nil {
		t.Fatal(err)
	}
	if got.HasAuth() {
		t.Errorf("expected no auth, got %+v", got)
	}
	if got.TraditionalForm.Indicators == nil || got.OAuthButtons.Providers == nil {
		t.Error("empty evidence slices must be non-nil")
	}
}

func TestClassify_AuthFailure(t *testing.T) {
	srv := fakeLLMServer(t, "", http.StatusUnauthorized)
	defer srv.Close()

	_, err := testClient(srv.URL).Classify(context.Background(),
		`<html><body><form></form></body></html>`, "https://example.com")
	var de *models.DetectError
	if !errors.As(err, &de) || de.Code != models.ErrCodeLLMAuthFailure {
		t.Errorf("err = %v, want code %s", err, models.ErrCodeLLMAuthFailure)
	}
}

func TestClassify_RateLimited(t *testing.T) {
	srv := fakeLLMServer(t, "", http.StatusTooManyRequests)
	defer srv.Close()

	_, err := testClient(srv.URL).Classify(context.Background(),
		`<html><body><form></form></body></html>`, "https://example.com")
	var de *models.DetectError
	if !errors.As(err, &de) || de.Code != models.ErrCodeLLMRateLimited {
		t.Errorf("err = %v, want code %s", err, models.ErrCodeLLMRateLimited)
	}
}

func TestExtractRelevantHTML(t *testing.T) {
	t.Run("prefers forms", func(t *testing.T) {
		markup := `<html><body>
			<div class="hero">` + strings.Repeat("filler ", 100) + `</div>
			<form id="login"><input type="password"></form>
		</body></html>`
		got := extractRelevantHTML(markup)
		if !strings.Contains(got, `type="password"`) {
			t.Errorf("form content missing from excerpt: %q", got)
		}
		if strings.Contains(got, "hero") {
			t.Error("unrelated hero section should not be included when a form exists")
		}
	})

	t.Run("falls back to keyword sections", func(t *testing.T) {
		markup := `<html><body>
			<div class="nav">menu</div>
			<div class="login-panel"><input type="password"></div>
		</body></html>`
		got := extractRelevantHTML(markup)
		if !strings.Contains(got, "login-panel") {
			t.Errorf("login-keyword section missing: %q", got)
		}
	})

	t.Run("bounded by budget", func(t *testing.T) {
		markup := `<html><body><form>` + strings.Repeat("<input name='x'>", 2000) + `</form></body></html>`
		got := extractRelevantHTML(markup)
		if len(got) > maxPromptHTML+16 {
			t.Errorf("excerpt too large: %d bytes", len(got))
		}
	})
}
