package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-haiku-backend/internal/config"
	"github.com/tbourn/go-haiku-backend/internal/services"
)

func testConfig() config.Config {
	return config.Config{
		APIBasePath:    "/api/v1",
		DefaultLimit:   10,
		CacheTTL:       time.Minute,
		RateRPS:        1000,
		RateBurst:      1000,
		IdempotencyTTL: time.Hour,
	}
}

// newEngine mounts the full middleware stack over a degraded store; routing
// behavior does not need a live backend.
func newEngine(t *testing.T, cfg config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := services.NewStorageService("", "", HaikuRepoShim{})
	gen := &services.GeneratorService{}
	r := gin.New()
	RegisterRoutes(r, store, gen, cfg)
	return r
}

func get(r *gin.Engine, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_HealthReportsStorageState(t *testing.T) {
	r := newEngine(t, testConfig())
	w := get(r, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health: %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("status = %v", body["status"])
	}
	if avail, ok := body["storage"].(bool); !ok || avail {
		t.Fatalf("degraded store must report storage=false: %v", body["storage"])
	}
}

func TestRegisterRoutes_MetricsEndpoint(t *testing.T) {
	r := newEngine(t, testConfig())
	get(r, "/health", nil) // generate at least one sample
	w := get(r, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "haiku_http_requests_total") {
		t.Fatalf("exposition missing request counter")
	}
}

func TestRegisterRoutes_UnknownRouteIsJSON404(t *testing.T) {
	r := newEngine(t, testConfig())
	w := get(r, "/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"not_found"`) {
		t.Fatalf("fallback not JSON enveloped: %s", w.Body.String())
	}
}

func TestRegisterRoutes_MethodNotAllowed(t *testing.T) {
	r := newEngine(t, testConfig())
	req := httptest.NewRequest(http.MethodPut, "/api/v1/haikus", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"method_not_allowed"`) {
		t.Fatalf("body: %s", w.Body.String())
	}
}

func TestRegisterRoutes_DefaultCORSIsWideOpen(t *testing.T) {
	r := newEngine(t, testConfig())
	w := get(r, "/health", nil)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("ACAO = %q, want *", got)
	}
}

func TestRegisterRoutes_AllowlistedCORS(t *testing.T) {
	cfg := testConfig()
	cfg.CORS.AllowedOrigins = []string{"https://app.example.com"}
	r := newEngine(t, cfg)

	w := get(r, "/health", map[string]string{"Origin": "https://app.example.com"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("allowlisted origin not echoed: %q", got)
	}
	w = get(r, "/health", map[string]string{"Origin": "https://evil.example.com"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got == "https://evil.example.com" {
		t.Fatalf("unlisted origin must not be echoed")
	}
}

func TestRegisterRoutes_RequestIDOnEveryResponse(t *testing.T) {
	r := newEngine(t, testConfig())
	w := get(r, "/health", nil)
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing X-Request-ID")
	}
}

func TestRegisterRoutes_APIRoutesMounted(t *testing.T) {
	r := newEngine(t, testConfig())

	// Degraded store: list is an empty 200, stats reports unavailable.
	w := get(r, "/api/v1/haikus", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d", w.Code)
	}
	w = get(r, "/api/v1/haikus/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"storage_available":false`) {
		t.Fatalf("stats body: %s", w.Body.String())
	}
}

func TestRegisterRoutes_SwaggerDisabledByDefault(t *testing.T) {
	r := newEngine(t, testConfig())
	w := get(r, "/swagger/index.html", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("swagger should be off by default, got %d", w.Code)
	}
}

func TestGroupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, prefix := range []string{"", "/"} {
		r := gin.New()
		g := groupWithPrefix(r, prefix)
		g.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
		w := get(r, "/x", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("prefix %q: %d", prefix, w.Code)
		}
	}
}
