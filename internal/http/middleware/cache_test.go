package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newCacheRouter(ttl time.Duration) (*gin.Engine, *ReadCache, *int) {
	gin.SetMode(gin.TestMode)
	calls := 0
	rc := NewReadCache(ttl)
	r := gin.New()
	r.GET("/haikus", rc.Handler(), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})
	r.GET("/missing", rc.Handler(), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found"})
	})
	r.POST("/haikus", rc.Handler(), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})
	return r, rc, &calls
}

func doGet(r *gin.Engine, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestReadCache_MissThenHit(t *testing.T) {
	r, _, calls := newCacheRouter(time.Minute)

	w1 := doGet(r, "/haikus")
	if w1.Header().Get("X-Cache") != "miss" {
		t.Fatalf("first request should miss, got %q", w1.Header().Get("X-Cache"))
	}
	w2 := doGet(r, "/haikus")
	if w2.Header().Get("X-Cache") != "hit" {
		t.Fatalf("second request should hit, got %q", w2.Header().Get("X-Cache"))
	}
	if *calls != 1 {
		t.Fatalf("handler ran %d times, want 1", *calls)
	}
	if w1.Body.String() != w2.Body.String() {
		t.Fatalf("cached body differs: %q vs %q", w1.Body.String(), w2.Body.String())
	}
}

func TestReadCache_QueryIsPartOfKey(t *testing.T) {
	r, _, calls := newCacheRouter(time.Minute)

	doGet(r, "/haikus?limit=5")
	doGet(r, "/haikus?limit=10")
	if *calls != 2 {
		t.Fatalf("different queries must not share entries, handler ran %d times", *calls)
	}
}

func TestReadCache_InvalidateClearsEverything(t *testing.T) {
	r, rc, calls := newCacheRouter(time.Minute)

	doGet(r, "/haikus")
	rc.Invalidate()
	w := doGet(r, "/haikus")
	if w.Header().Get("X-Cache") != "miss" {
		t.Fatalf("request after Invalidate should miss, got %q", w.Header().Get("X-Cache"))
	}
	if *calls != 2 {
		t.Fatalf("handler ran %d times, want 2", *calls)
	}
}

func TestReadCache_OnlySuccessfulGETsAreStored(t *testing.T) {
	r, _, calls := newCacheRouter(time.Minute)

	// Non-200 responses must not be cached.
	doGet(r, "/missing")
	doGet(r, "/missing")
	if *calls != 2 {
		t.Fatalf("404s must not be cached, handler ran %d times", *calls)
	}

	// Non-GET requests pass straight through.
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/haikus", nil)
		r.ServeHTTP(w, req)
		if h := w.Header().Get("X-Cache"); h != "" {
			t.Fatalf("POST should not carry X-Cache, got %q", h)
		}
	}
	if *calls != 4 {
		t.Fatalf("POSTs must not be cached, handler ran %d times", *calls)
	}
}

func TestReadCache_ZeroTTLDisables(t *testing.T) {
	r, _, calls := newCacheRouter(0)

	w1 := doGet(r, "/haikus")
	w2 := doGet(r, "/haikus")
	if *calls != 2 {
		t.Fatalf("disabled cache must pass everything through, handler ran %d times", *calls)
	}
	if w1.Header().Get("X-Cache") != "" || w2.Header().Get("X-Cache") != "" {
		t.Fatalf("disabled cache must not set X-Cache")
	}
}

func TestReadCache_EntriesExpire(t *testing.T) {
	r, _, calls := newCacheRouter(20 * time.Millisecond)

	doGet(r, "/haikus")
	time.Sleep(40 * time.Millisecond)
	w := doGet(r, "/haikus")
	if w.Header().Get("X-Cache") != "miss" {
		t.Fatalf("stale entry should be evicted, got %q", w.Header().Get("X-Cache"))
	}
	if *calls != 2 {
		t.Fatalf("handler ran %d times, want 2", *calls)
	}
}

func TestReadCache_HitReplaysResponseHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rc := NewReadCache(time.Minute)
	r := gin.New()
	calls := 0
	r.GET("/haikus", rc.Handler(), func(c *gin.Context) {
		calls++
		c.Header("ETag", `W/"haikus-3-42"`)
		c.JSON(http.StatusOK, gin.H{"count": 3})
	})

	w1 := doGet(r, "/haikus")
	if w1.Header().Get("ETag") != `W/"haikus-3-42"` {
		t.Fatalf("original response missing ETag")
	}

	w2 := doGet(r, "/haikus")
	if w2.Header().Get("X-Cache") != "hit" {
		t.Fatalf("second request should hit, got %q", w2.Header().Get("X-Cache"))
	}
	if w2.Header().Get("ETag") != `W/"haikus-3-42"` {
		t.Fatalf("replay dropped the ETag: %q", w2.Header().Get("ETag"))
	}
	if ct := w2.Header().Get("Content-Type"); ct != w1.Header().Get("Content-Type") {
		t.Fatalf("replay content type = %q, want %q", ct, w1.Header().Get("Content-Type"))
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
}

func TestReadCache_HitHonorsIfNoneMatch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rc := NewReadCache(time.Minute)
	r := gin.New()
	r.GET("/haikus", rc.Handler(), func(c *gin.Context) {
		c.Header("ETag", `W/"haikus-3-42"`)
		c.JSON(http.StatusOK, gin.H{"count": 3})
	})

	etag := doGet(r, "/haikus").Header().Get("ETag")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/haikus", nil)
	req.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("conditional request against a cached entry: %d, want 304", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Fatalf("304 must not carry a body: %q", w.Body.String())
	}

	// A stale validator still gets the full cached payload.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/haikus", nil)
	req.Header.Set("If-None-Match", `W/"haikus-old"`)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("stale validator should get the cached 200, got %d", w.Code)
	}
}

func TestReadCache_ConcurrentAccess(t *testing.T) {
	r, rc, _ := newCacheRouter(time.Minute)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 50; j++ {
				doGet(r, fmt.Sprintf("/haikus?n=%d", n%3))
				if j%10 == 0 {
					rc.Invalidate()
				}
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
