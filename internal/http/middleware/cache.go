// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements ReadCache, a small TTL cache for GET responses. The
// storage service is a pure function of its arguments for a fixed instance,
// which makes its read operations safe to memoize as long as the cache is
// explicitly cleared after every save and delete; the router owns that
// invalidation call. Entries are keyed on (method, path, raw query), so the
// cache must only ever sit in front of routes whose output depends on
// nothing else.
//
// Like the rate limiter, this cache is process-local and bounded by TTL
// eviction; a multi-instance deployment would need a shared cache with the
// same invalidation contract.
package middleware

import (
	"bytes"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// headerCache reports cache disposition ("hit" or "miss") on responses that
// passed through ReadCache.
const headerCache = "X-Cache"

// cacheEntry is one stored response, headers included so replays carry the
// original ETag and content type.
type cacheEntry struct {
	status   int
	header   http.Header
	body     []byte
	storedAt time.Time
}

// ReadCache memoizes successful GET responses for a fixed TTL with explicit
// whole-cache invalidation. Safe for concurrent use.
type ReadCache struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

// NewReadCache constructs a ReadCache. A ttl <= 0 disables caching entirely;
// Handler() then passes requests straight through.
func NewReadCache(ttl time.Duration) *ReadCache {
	return &ReadCache{
		ttl:     ttl,
		entries: make(map[string]*cacheEntry),
	}
}

// Invalidate drops every cached entry. The router calls this after each
// successful save or delete; callers wrapping the storage service with any
// other cache carry the same obligation.
func (rc *ReadCache) Invalidate() {
	rc.mu.Lock()
	rc.entries = make(map[string]*cacheEntry)
	rc.mu.Unlock()
}

// get returns a fresh entry for key, evicting it when stale.
func (rc *ReadCache) get(key string) *cacheEntry {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	e, ok := rc.entries[key]
	if !ok {
		return nil
	}
	if time.Since(e.storedAt) > rc.ttl {
		delete(rc.entries, key)
		return nil
	}
	return e
}

// put stores a response under key.
func (rc *ReadCache) put(key string, e *cacheEntry) {
	rc.mu.Lock()
	rc.entries[key] = e
	rc.mu.Unlock()
}

// captureWriter tees the response body so a 200 can be stored after the
// handler ran.
type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Handler returns the Gin middleware. Only GET requests participate; only
// 200 responses are stored.
func (rc *ReadCache) Handler() gin.HandlerFunc {
	if rc.ttl <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}
		key := c.Request.Method + " " + c.Request.URL.Path + "?" + c.Request.URL.RawQuery

		if e := rc.get(key); e != nil {
			h := c.Writer.Header()
			for k, vv := range e.header {
				h[k] = vv
			}
			c.Header(headerCache, "hit")

			// Honor conditional requests against the stored ETag; without
			// this a hit would downgrade revalidations to full 200s.
			if etag := e.header.Get("ETag"); etag != "" && c.GetHeader("If-None-Match") == etag {
				c.Status(http.StatusNotModified)
				c.Abort()
				return
			}
			c.Data(e.status, e.header.Get("Content-Type"), e.body)
			c.Abort()
			return
		}

		cw := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = cw
		c.Header(headerCache, "miss")

		c.Next()

		if cw.Status() == http.StatusOK {
			stored := cw.Header().Clone()
			stored.Del(headerCache) // disposition is per response, not part of the payload
			rc.put(key, &cacheEntry{
				status:   cw.Status(),
				header:   stored,
				body:     append([]byte(nil), cw.buf.Bytes()...),
				storedAt: time.Now(),
			})
		}
	}
}
