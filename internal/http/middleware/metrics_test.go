package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_CountsRequestsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/haikus/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/haikus/abc", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("probe request failed: %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	if !strings.Contains(body, "haiku_http_requests_total") {
		t.Fatalf("exposition missing request counter")
	}
	// Registered route template, not the raw URL, keeps cardinality bounded.
	if !strings.Contains(body, `path="/haikus/:id"`) {
		t.Fatalf("counter not labeled with route template:\n%s", body)
	}
}

func TestCountUnavailableResponse_Increments(t *testing.T) {
	before := testutil.ToFloat64(storeUnavailableReads)
	CountUnavailableResponse()
	CountUnavailableResponse()
	after := testutil.ToFloat64(storeUnavailableReads)
	if after-before != 2 {
		t.Fatalf("counter moved by %v, want 2", after-before)
	}
}
