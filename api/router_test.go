package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sreekar9601/getcovered-technical-task/config"
	"github.com/sreekar9601/getcovered-technical-task/models"
)

type fakeService struct {
	resp *models.DetectResponse
}

func (f *fakeService) Detect(_ context.Context, _ *models.DetectRequest) *models.DetectResponse {
	return f.resp
}

type fakeStats struct {
	stats models.BrowserStats
}

func (f *fakeStats) Stats() models.BrowserStats { return f.stats }

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.Server.Mode = gin.TestMode
	cfg.RateLimit.RequestsPerSecond = 100
	cfg.RateLimit.Burst = 100
	return cfg
}

func doRequest(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestDetectEndpoint_Success(t *testing.T) {
	svc := &fakeService{resp: &models.DetectResponse{
		Success:        true,
		URL:            "https://example.com/login",
		AuthFound:      true,
		ScrapingMethod: models.MethodStatic,
	}}
	r := NewRouter(svc, &fakeStats{}, testConfig(), time.Now())

	w := doRequest(r, http.MethodPost, "/api/v1/detect", `{"url":"example.com/login"}`, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	var resp models.DetectResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.AuthFound || resp.ScrapingMethod != models.MethodStatic {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestDetectEndpoint_MissingURL(t *testing.T) {
	r := NewRouter(&fakeService{}, &fakeStats{}, testConfig(), time.Now())

	w := doRequest(r, http.MethodPost, "/api/v1/detect", `{}`, nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestDetectEndpoint_ErrorStatusMapping(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{models.ErrCodeInvalidURL, http.StatusBadRequest},
		{models.ErrCodeTimeout, http.StatusGatewayTimeout},
		{models.ErrCodeBlocked, http.StatusBadGateway},
		{models.ErrCodeNetwork, http.StatusBadGateway},
		{models.ErrCodeRender, http.StatusBadGateway},
		{models.ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			svc := &fakeService{resp: &models.DetectResponse{
				Success: false,
				Error:   &models.ErrorDetail{Code: tt.code, Message: "boom"},
			}}
			r := NewRouter(svc, &fakeStats{}, testConfig(), time.Now())

			w := doRequest(r, http.MethodPost, "/api/v1/detect", `{"url":"example.com"}`, nil)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestDetectEndpoint_AuthRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.APIKeys = []string{"secret"}
	r := NewRouter(&fakeService{resp: &models.DetectResponse{Success: true}}, &fakeStats{}, cfg, time.Now())

	if w := doRequest(r, http.MethodPost, "/api/v1/detect", `{"url":"example.com"}`, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no key: status = %d, want 401", w.Code)
	}
	if w := doRequest(r, http.MethodPost, "/api/v1/detect", `{"url":"example.com"}`, map[string]string{"X-API-Key": "wrong"}); w.Code != http.StatusUnauthorized {
		t.Errorf("bad key: status = %d, want 401", w.Code)
	}
	if w := doRequest(r, http.MethodPost, "/api/v1/detect", `{"url":"example.com"}`, map[string]string{"X-API-Key": "secret"}); w.Code != http.StatusOK {
		t.Errorf("good key: status = %d, want 200", w.Code)
	}
	if w := doRequest(r, http.MethodPost, "/api/v1/detect", `{"url":"example.com"}`, map[string]string{"Authorization": "Bearer secret"}); w.Code != http.StatusOK {
		t.Errorf("bearer key: status = %d, want 200", w.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.APIKeys = []string{"secret"}

	t.Run("open without auth", func(t *testing.T) {
		r := NewRouter(&fakeService{}, &fakeStats{stats: models.BrowserStats{MaxContexts: 10, ActiveContexts: 2}}, cfg, time.Now())
		w := doRequest(r, http.MethodGet, "/api/v1/health", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		var resp models.HealthResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Status != "healthy" {
			t.Errorf("status = %q, want healthy", resp.Status)
		}
	})

	t.Run("degraded under pressure", func(t *testing.T) {
		r := NewRouter(&fakeService{}, &fakeStats{stats: models.BrowserStats{MaxContexts: 10, ActiveContexts: 9}}, cfg, time.Now())
		w := doRequest(r, http.MethodGet, "/api/v1/health", "", nil)
		var resp models.HealthResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Status != "degraded" {
			t.Errorf("status = %q, want degraded", resp.Status)
		}
	})
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.RequestsPerSecond = 1
	cfg.RateLimit.Burst = 2
	r := NewRouter(&fakeService{resp: &models.DetectResponse{Success: true}}, &fakeStats{}, cfg, time.Now())

	var limited bool
	for range 5 {
		if w := doRequest(r, http.MethodPost, "/api/v1/detect", `{"url":"example.com"}`, nil); w.Code == http.StatusTooManyRequests {
			limited = true
		}
	}
	if !limited {
		t.Error("burst of 5 requests against burst=2 should hit the rate limit")
	}
}
