// Haiku HTTP handlers.
//
// This file exposes REST endpoints over the haiku storage and generation
// services:
//   - POST   /haikus          (generate if no text given, then persist)
//   - GET    /haikus          (recent haikus, newest first, with ETag)
//   - GET    /haikus/search   (case-insensitive substring match on subject)
//   - GET    /haikus/{id}
//   - DELETE /haikus/{id}
//   - GET    /haikus/stats
//
// Handlers are transport-thin: they validate and normalize inputs, delegate
// to the services, and map degraded storage results to 503 responses so
// clients can tell "nothing stored" apart from "storage not configured".
//
// Idempotency: when a client supplies an Idempotency-Key and a previous
// successful save exists for (user, key), POST /haikus returns the recorded
// haiku and sets `Idempotency-Replayed: true`.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-haiku-backend/internal/domain"
	"github.com/tbourn/go-haiku-backend/internal/http/middleware"
	"github.com/tbourn/go-haiku-backend/internal/services"
	"github.com/tbourn/go-haiku-backend/internal/utils"
)

// Handlers bundles the services the haiku endpoints depend on.
type Handlers struct {
	Store *services.StorageService
	Gen   *services.GeneratorService

	// IdempotencyTTL is how long a recorded save stays replayable.
	IdempotencyTTL time.Duration
	// Invalidate clears the read cache after a successful save or delete.
	// Wired by the router; nil when no cache is installed.
	Invalidate func()

	// DefaultLimit and MaxLimit bound the limit query parameter.
	DefaultLimit int
	MaxLimit     int
}

// New constructs Handlers with the default paging bounds.
func New(store *services.StorageService, gen *services.GeneratorService) *Handlers {
	return &Handlers{
		Store:          store,
		Gen:            gen,
		IdempotencyTTL: 24 * time.Hour,
		DefaultLimit:   10,
		MaxLimit:       100,
	}
}

//
// DTOs
//

// SaveHaikuRequest is the JSON payload for creating a haiku. When Text is
// empty the server generates the poem from Subject first.
type SaveHaikuRequest struct {
	// Subject is the topic of the poem. Required, at most 200 runes.
	Subject string `json:"subject" binding:"required,min=1" example:"ocean waves"`
	// Text is the poem body. Optional; leave empty to have it generated.
	Text string `json:"text,omitempty" example:"Ocean waves crash down\nAgainst the ancient shoreline\nNature's endless song"`
}

// HaikuResponse is the JSON envelope for a single haiku.
type HaikuResponse struct {
	Haiku *domain.Haiku `json:"haiku"`
	// DisplaySubject is the subject uppercased for card headers.
	DisplaySubject string `json:"display_subject"`
	// Generated reports whether the text came from the model on this request.
	Generated bool `json:"generated"`
}

// ListHaikusResponse contains a page of haikus, newest first.
type ListHaikusResponse struct {
	Haikus []domain.Haiku `json:"haikus"`
	Count  int            `json:"count"`
}

// StatsResponse reports storage totals and availability.
type StatsResponse struct {
	TotalCount       int64 `json:"total_count"`
	StorageAvailable bool  `json:"storage_available"`
}

//
// Helpers
//

// displayCaser uppercases subjects for display, Unicode-aware.
var displayCaser = cases.Upper(language.English)

// nlCollapseRE collapses runs of 3+ newlines to two, preserving stanzas.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeText normalizes a poem body: CRLF/CR to LF, runs of blank lines
// collapsed, surrounding whitespace trimmed. Internal line breaks survive.
func sanitizeText(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// userID returns the caller identity from the X-User-ID header, empty when
// anonymous. There is no authentication; the value is taken at face value.
func userID(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader("X-User-ID"))
}

// userIDPtr returns the owner reference for persistence, nil when anonymous.
func userIDPtr(c *gin.Context) *string {
	if uid := userID(c); uid != "" {
		return &uid
	}
	return nil
}

// clampLimit parses the limit query parameter with defaults and caps.
func (h *Handlers) clampLimit(c *gin.Context) int {
	return utils.ClampLimit(utils.AtoiDefault(c.Query("limit"), 0), h.DefaultLimit, h.MaxLimit)
}

// invalidate clears the read cache if one is wired.
func (h *Handlers) invalidate() {
	if h.Invalidate != nil {
		h.Invalidate()
	}
}

func haikuResponse(hk *domain.Haiku, generated bool) HaikuResponse {
	return HaikuResponse{
		Haiku:          hk,
		DisplaySubject: displayCaser.String(hk.Subject),
		Generated:      generated,
	}
}

//
// Handlers
//

// SaveHaiku godoc
// @ID          saveHaiku
// @Summary     Create a haiku
// @Description Persists a haiku about the given subject. When no text is supplied,
// @Description the poem is generated first. Supports idempotent retries via the
// @Description Idempotency-Key header (same key → same stored haiku).
// @Tags        Haikus
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "Optional owner id"  example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"
// @Param       body             body    handlers.SaveHaikuRequest  true  "Haiku payload"
//
// @Success     201  {object}  handlers.HaikuResponse  "Stored haiku"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     502  {object}  handlers.ErrorResponse  "Generation failed"
// @Failure     503  {object}  handlers.ErrorResponse  "Storage unavailable"
// @Router      /haikus [post]
func (h *Handlers) SaveHaiku(c *gin.Context) {
	ctx := c.Request.Context()

	var req SaveHaikuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "subject required")
		return
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "subject required")
		return
	}
	if max := h.Store.MaxSubjectRunes; max > 0 && utf8.RuneCountInString(subject) > max {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("subject too long: max %d runes", max))
		return
	}

	// Idempotency (replay path) – read validated key if present.
	if key, hasKey := middleware.GetIdempotencyKey(c); hasKey {
		if haikuID, hit := h.Store.LookupIdempotency(ctx, userID(c), key); hit {
			if prev := h.Store.GetHaikuByID(ctx, haikuID); prev != nil {
				c.Header("Idempotency-Replayed", "true")
				ok(c, http.StatusOK, haikuResponse(prev, false))
				return
			}
		}
	}

	text := sanitizeText(req.Text)
	generated := false
	if text == "" {
		out, err := h.Gen.Generate(ctx, subject)
		if err != nil {
			if errors.Is(err, services.ErrMissingAPIKey) {
				fail(c, http.StatusServiceUnavailable, ErrCodeGenerationFailed, "haiku generation is not configured")
				return
			}
			fail(c, http.StatusBadGateway, ErrCodeGenerationFailed, "haiku generation failed")
			return
		}
		text = out
		generated = true
	}

	saved, err := h.Store.SaveHaiku(ctx, subject, text, userIDPtr(c))
	if err != nil {
		// Only validation sentinels cross the service boundary.
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	if saved == nil {
		middleware.CountUnavailableResponse()
		fail(c, http.StatusServiceUnavailable, ErrCodeStorageUnavailable, "haiku store is unavailable")
		return
	}

	// Idempotency (store path) – best effort.
	if key, hasKey := middleware.GetIdempotencyKey(c); hasKey {
		h.Store.RecordIdempotency(ctx, userID(c), key, saved.ID, http.StatusCreated, h.IdempotencyTTL)
	}

	h.invalidate()
	ok(c, http.StatusCreated, haikuResponse(saved, generated))
}

// ListHaikus godoc
// @ID          listHaikus
// @Summary     List recent haikus
// @Description Returns the newest haikus, most recent first. Supports conditional
// @Description requests via ETag/If-None-Match.
// @Tags        Haikus
// @Produce     json
//
// @Param       limit  query  int  false  "Maximum number of haikus (default 10, max 100)"
//
// @Success     200  {object}  handlers.ListHaikusResponse
// @Success     304  "Not modified"
// @Router      /haikus [get]
func (h *Handlers) ListHaikus(c *gin.Context) {
	ctx := c.Request.Context()
	limit := h.clampLimit(c)

	if count, maxAt, statsOK := h.Store.Stats(ctx); statsOK {
		var ts int64
		if maxAt != nil {
			ts = maxAt.UnixNano()
		}
		etag := fmt.Sprintf(`W/"haikus-%d-%d"`, count, ts)
		c.Header("ETag", etag)
		if c.GetHeader("If-None-Match") == etag {
			c.Status(http.StatusNotModified)
			return
		}
	} else {
		middleware.CountUnavailableResponse()
	}

	items := h.Store.GetRecentHaikus(ctx, limit)
	ok(c, http.StatusOK, ListHaikusResponse{Haikus: items, Count: len(items)})
}

// SearchHaikus godoc
// @ID          searchHaikus
// @Summary     Search haikus by subject
// @Description Case-insensitive substring match against the subject, newest first.
// @Description A blank query returns an empty list without touching storage.
// @Tags        Haikus
// @Produce     json
//
// @Param       q      query  string  true   "Substring to match"
// @Param       limit  query  int     false  "Maximum number of haikus (default 10, max 100)"
//
// @Success     200  {object}  handlers.ListHaikusResponse
// @Router      /haikus/search [get]
func (h *Handlers) SearchHaikus(c *gin.Context) {
	ctx := c.Request.Context()
	items := h.Store.SearchHaikus(ctx, c.Query("q"), h.clampLimit(c))
	ok(c, http.StatusOK, ListHaikusResponse{Haikus: items, Count: len(items)})
}

// GetHaiku godoc
// @ID          getHaiku
// @Summary     Fetch one haiku
// @Tags        Haikus
// @Produce     json
//
// @Param       id  path  string  true  "Haiku ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.HaikuResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Failure     503  {object}  handlers.ErrorResponse  "Storage unavailable"
// @Router      /haikus/{id} [get]
func (h *Handlers) GetHaiku(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "haiku id must be a UUID")
		return
	}

	hk := h.Store.GetHaikuByID(ctx, id)
	if hk == nil {
		if !h.Store.IsAvailable() {
			middleware.CountUnavailableResponse()
			fail(c, http.StatusServiceUnavailable, ErrCodeStorageUnavailable, "haiku store is unavailable")
			return
		}
		fail(c, http.StatusNotFound, ErrCodeNotFound, "haiku not found")
		return
	}
	ok(c, http.StatusOK, haikuResponse(hk, false))
}

// DeleteHaiku godoc
// @ID          deleteHaiku
// @Summary     Delete a haiku
// @Description Hard-removes the haiku. Deleting an id twice yields 404 the second
// @Description time; a 404 is also returned for ids that never existed.
// @Tags        Haikus
// @Produce     json
//
// @Param       id  path  string  true  "Haiku ID (UUID)"  format(uuid)
//
// @Success     204  "Deleted"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Failure     503  {object}  handlers.ErrorResponse  "Storage unavailable"
// @Router      /haikus/{id} [delete]
func (h *Handlers) DeleteHaiku(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "haiku id must be a UUID")
		return
	}

	if h.Store.DeleteHaiku(ctx, id) {
		h.invalidate()
		noContent(c)
		return
	}
	if !h.Store.IsAvailable() {
		middleware.CountUnavailableResponse()
		fail(c, http.StatusServiceUnavailable, ErrCodeStorageUnavailable, "haiku store is unavailable")
		return
	}
	fail(c, http.StatusNotFound, ErrCodeNotFound, "haiku not found")
}

// GetStats godoc
// @ID          getStats
// @Summary     Storage statistics
// @Description Total stored haikus plus an availability flag UIs can use to decide
// @Description whether to show a configuration warning.
// @Tags        Haikus
// @Produce     json
//
// @Success     200  {object}  handlers.StatsResponse
// @Router      /haikus/stats [get]
func (h *Handlers) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	ok(c, http.StatusOK, StatsResponse{
		TotalCount:       h.Store.GetTotalCount(ctx),
		StorageAvailable: h.Store.IsAvailable(),
	})
}
