package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/gin-gonic/gin"

	"github.com/segmint-dev/segmint/internal/api"
	"github.com/segmint-dev/segmint/internal/model"
	"github.com/segmint-dev/segmint/internal/store"
)

func testHandler() *api.Handler {
	return &api.Handler{
		Model: &model.Model{
			Version:  "test",
			Features: []string{"Income", "Age", "Total_Spending", "Recency"},
			Scaler: model.Scaler{
				Mean:  []float64{52247.25, 52.18, 605.8, 49.11},
				Scale: []float64{25173.07, 11.99, 602.25, 28.96},
			},
			Centroids: [][]float64{
				{-0.91, -0.48, -0.72, -0.38},
				{1.18, 0.27, 1.42, -0.21},
				{-0.34, -0.12, -0.58, 1.31},
				{0.19, 1.12, 0.31, -0.47},
			},
		},
		Store: store.NewMemStore(),
	}
}

func newTestRouter(cfg Config) *Router {
	gin.SetMode(gin.TestMode)
	return NewRouter(testHandler(), cfg)
}

func serve(r *Router, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, req)
	return w
}

func TestHistoryRequiresAPIKey(t *testing.T) {
	h := testHandler()
	gin.SetMode(gin.TestMode)
	r := NewRouter(h, Config{APIKey: "topsecret"})

	// No header.
	req, _ := http.NewRequest("GET", "/api/history", nil)
	w := serve(r, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
	var res map[string]string
	json.Unmarshal(w.Body.Bytes(), &res)
	if res["error"] != "Unauthorized" {
		t.Errorf("Expected Unauthorized, got %q", res["error"])
	}

	// Wrong key.
	req, _ = http.NewRequest("GET", "/api/history", nil)
	req.Header.Set("X-API-KEY", "wrong")
	if w := serve(r, req); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}

	// Correct key.
	req, _ = http.NewRequest("GET", "/api/history", nil)
	req.Header.Set("X-API-KEY", "topsecret")
	if w := serve(r, req); w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	// The rejected calls must not have touched the store.
	if n, _ := h.Store.Count(context.Background()); n != 0 {
		t.Errorf("Expected untouched store after 401s, got %d records", n)
	}
}

func TestEmptyAPIKeyRejectsEverything(t *testing.T) {
	r := newTestRouter(Config{APIKey: ""})

	req, _ := http.NewRequest("GET", "/api/history", nil)
	req.Header.Set("X-API-KEY", "")
	if w := serve(r, req); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for unset secret, got %d", w.Code)
	}
}

func TestStatsGated(t *testing.T) {
	r := newTestRouter(Config{APIKey: "k"})

	req, _ := http.NewRequest("GET", "/api/stats", nil)
	if w := serve(r, req); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestPredictNotGated(t *testing.T) {
	r := newTestRouter(Config{APIKey: "k"})

	body := []byte(`{"Income": 50000, "Age": 35, "Total_Spending": 800, "Recency": 20}`)
	req, _ := http.NewRequest("POST", "/api/predict", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	if w := serve(r, req); w.Code != http.StatusOK {
		t.Errorf("Expected status 200 without a key, got %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(Config{})

	req, _ := http.NewRequest("OPTIONS", "/api/predict", nil)
	w := serve(r, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Expected wildcard origin, got %q", got)
	}
}

func TestRateLimit(t *testing.T) {
	r := newTestRouter(Config{RatePerHour: 2})

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest("GET", "/healthz", nil)
		if w := serve(r, req); w.Code != http.StatusOK {
			t.Fatalf("Request %d: expected status 200, got %d", i, w.Code)
		}
	}

	req, _ := http.NewRequest("GET", "/healthz", nil)
	if w := serve(r, req); w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected status 429 after burst, got %d", w.Code)
	}
}

func TestUnknownAPIRouteIsJSON404(t *testing.T) {
	r := newTestRouter(Config{})

	req, _ := http.NewRequest("GET", "/api/nope", nil)
	w := serve(r, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	var res map[string]string
	json.Unmarshal(w.Body.Bytes(), &res)
	if res["error"] == "" {
		t.Error("Expected a JSON error body for API routes")
	}
}

func TestLandingPageServed(t *testing.T) {
	static := fstest.MapFS{
		"index.html": &fstest.MapFile{Data: []byte("<html>landing</html>")},
	}
	r := newTestRouter(Config{Static: static})

	req, _ := http.NewRequest("GET", "/", nil)
	w := serve(r, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("landing")) {
		t.Error("Expected landing page content")
	}
}
