// Package services – StorageService
//
// This file implements StorageService, the availability-gating façade over
// the haiku repository. It lazily opens the remote table store from
// credentials on first use, remembers the outcome for the lifetime of the
// instance, and translates repository failures into logged, non-throwing
// degraded defaults (nil record, empty slice, zero count, false) so the
// transport layer never sees a backend error.
//
// State machine (per instance): UNINITIALIZED → AVAILABLE | UNAVAILABLE.
// There is no transition back; a new instance must be constructed to retry
// a failed connection. The one-time transition is guarded by sync.Once, so
// the service is safe for concurrent use; after initialization the handle
// is read-only.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// operation arguments where they are not sensitive.
package services

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-haiku-backend/internal/domain"
	"github.com/tbourn/go-haiku-backend/internal/repo"
)

// HaikuRepo defines the repository contract required by StorageService.
// Implementations map haiku records to and from the table store.
type HaikuRepo interface {
	// CreateHaiku inserts a new row; id and created_at are assigned by the
	// persistence layer.
	CreateHaiku(ctx context.Context, db *gorm.DB, subject, text string, userID *string) (*domain.Haiku, error)

	// GetHaiku fetches a haiku by id, (nil, nil) when absent.
	GetHaiku(ctx context.Context, db *gorm.DB, id string) (*domain.Haiku, error)

	// ListRecentHaikus returns at most limit rows, newest first.
	ListRecentHaikus(ctx context.Context, db *gorm.DB, limit int) ([]domain.Haiku, error)

	// SearchHaikusBySubject returns rows whose subject contains substring
	// (case-insensitive), newest first.
	SearchHaikusBySubject(ctx context.Context, db *gorm.DB, substring string, limit int) ([]domain.Haiku, error)

	// DeleteHaiku removes a row, reporting whether one existed.
	DeleteHaiku(ctx context.Context, db *gorm.DB, id string) (bool, error)

	// CountHaikus returns the total row count.
	CountHaikus(ctx context.Context, db *gorm.DB) (int64, error)
}

// OpenStoreFunc opens a connection to the table store from credentials and
// runs migrations. Swappable so tests can substitute a local database.
type OpenStoreFunc func(storeURL, storeKey string) (*gorm.DB, error)

// DefaultOpenStore connects to the hosted Postgres store and migrates the
// schema. It is the production OpenStoreFunc.
func DefaultOpenStore(storeURL, storeKey string) (*gorm.DB, error) {
	db, err := repo.OpenPostgres(storeURL, storeKey)
	if err != nil {
		return nil, err
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// StorageService gates all haiku persistence behind a credential and
// availability check. Constructing one never fails; absent or bad
// credentials only surface as IsAvailable() == false at first use.
type StorageService struct {
	// Repo is the haiku repository used by this service.
	Repo HaikuRepo
	// OpenStore opens the backing store on first use. Defaults to
	// DefaultOpenStore when nil.
	OpenStore OpenStoreFunc

	// DefaultLimit applies when a read is requested with limit <= 0.
	DefaultLimit int
	// MaxSubjectRunes caps stored subjects by rune length.
	MaxSubjectRunes int

	storeURL string
	storeKey string

	initOnce  sync.Once
	db        *gorm.DB
	available bool
}

// NewStorageService constructs a StorageService with sane defaults. The
// connection is not attempted here; it happens on the first operation.
func NewStorageService(storeURL, storeKey string, r HaikuRepo) *StorageService {
	return &StorageService{
		Repo:            r,
		OpenStore:       DefaultOpenStore,
		DefaultLimit:    10,
		MaxSubjectRunes: 200,
		storeURL:        storeURL,
		storeKey:        storeKey,
	}
}

// init performs the one-time connection attempt. Missing credentials are an
// expected configuration state and log at info; a failed connection is a
// real fault and logs at error. Either way the outcome is remembered and
// never retried within this instance.
func (s *StorageService) init() {
	s.initOnce.Do(func() {
		if strings.TrimSpace(s.storeURL) == "" || strings.TrimSpace(s.storeKey) == "" {
			log.Info().Msg("haiku store not configured; persistence disabled")
			return
		}
		open := s.OpenStore
		if open == nil {
			open = DefaultOpenStore
		}
		db, err := open(s.storeURL, s.storeKey)
		if err != nil {
			log.Error().Err(err).Msg("haiku store connection failed; persistence disabled")
			return
		}
		s.db = db
		s.available = true
		log.Info().Msg("haiku store connected")
	})
}

// IsAvailable reports whether the backing store is usable. The first call
// from any operation (this one included) performs the one-time connection
// attempt; afterwards it is a pure state read.
func (s *StorageService) IsAvailable() bool {
	s.init()
	return s.available
}

// SaveHaiku validates and persists a haiku. Validation failures return a
// sentinel error (ErrEmptySubject, ErrEmptyText, ErrSubjectTooLong) without
// touching the backend. When the store is unavailable or the write fails,
// the result is (nil, nil): degraded, logged, never propagated.
func (s *StorageService) SaveHaiku(ctx context.Context, subject, text string, userID *string) (*domain.Haiku, error) {
	tr := otel.Tracer("services/StorageService")
	ctx, span := tr.Start(ctx, "SaveHaiku")
	defer span.End()

	subject = strings.TrimSpace(subject)
	text = strings.TrimSpace(text)
	if subject == "" {
		return nil, ErrEmptySubject
	}
	if s.MaxSubjectRunes > 0 && utf8.RuneCountInString(subject) > s.MaxSubjectRunes {
		return nil, ErrSubjectTooLong
	}
	if text == "" {
		return nil, ErrEmptyText
	}

	if !s.IsAvailable() {
		return nil, nil
	}

	h, err := s.Repo.CreateHaiku(ctx, s.db, subject, text, userID)
	if err != nil {
		s.logPersistence("save haiku", err)
		return nil, nil
	}
	log.Info().Str("haiku_id", h.ID).Str("subject", subject).Msg("haiku saved")
	return h, nil
}

// GetRecentHaikus returns the newest haikus, at most limit (DefaultLimit when
// limit <= 0). Unavailable or failing backends yield an empty slice.
func (s *StorageService) GetRecentHaikus(ctx context.Context, limit int) []domain.Haiku {
	tr := otel.Tracer("services/StorageService")
	ctx, span := tr.Start(ctx, "GetRecentHaikus",
		trace.WithAttributes(attribute.Int("limit", limit)),
	)
	defer span.End()

	limit = s.clampLimit(limit)
	if !s.IsAvailable() {
		return []domain.Haiku{}
	}
	out, err := s.Repo.ListRecentHaikus(ctx, s.db, limit)
	if err != nil {
		s.logPersistence("list recent haikus", err)
		return []domain.Haiku{}
	}
	if out == nil {
		out = []domain.Haiku{}
	}
	return out
}

// SearchHaikus returns haikus whose subject contains query, newest first.
// A query that is empty after trimming short-circuits to an empty slice with
// no backend call; "no filter" must never be spelled as an empty search.
func (s *StorageService) SearchHaikus(ctx context.Context, query string, limit int) []domain.Haiku {
	tr := otel.Tracer("services/StorageService")
	ctx, span := tr.Start(ctx, "SearchHaikus",
		trace.WithAttributes(attribute.Int("limit", limit)),
	)
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Haiku{}
	}
	limit = s.clampLimit(limit)
	if !s.IsAvailable() {
		return []domain.Haiku{}
	}
	out, err := s.Repo.SearchHaikusBySubject(ctx, s.db, query, limit)
	if err != nil {
		s.logPersistence("search haikus", err)
		return []domain.Haiku{}
	}
	if out == nil {
		out = []domain.Haiku{}
	}
	return out
}

// GetHaikuByID returns the haiku with the given id, or nil when it does not
// exist, the store is unavailable, or the lookup fails.
func (s *StorageService) GetHaikuByID(ctx context.Context, id string) *domain.Haiku {
	tr := otel.Tracer("services/StorageService")
	ctx, span := tr.Start(ctx, "GetHaikuByID",
		trace.WithAttributes(attribute.String("haiku.id", id)),
	)
	defer span.End()

	if !s.IsAvailable() {
		return nil
	}
	h, err := s.Repo.GetHaiku(ctx, s.db, id)
	if err != nil {
		s.logPersistence("get haiku", err)
		return nil
	}
	return h
}

// DeleteHaiku removes a haiku and reports whether a row went away. Not-found,
// unavailable, and backend failure all collapse to false; callers that need
// to tell them apart must consult IsAvailable separately. This mirrors the
// deliberately narrow delete contract rather than inventing a richer one.
func (s *StorageService) DeleteHaiku(ctx context.Context, id string) bool {
	tr := otel.Tracer("services/StorageService")
	ctx, span := tr.Start(ctx, "DeleteHaiku",
		trace.WithAttributes(attribute.String("haiku.id", id)),
	)
	defer span.End()

	if !s.IsAvailable() {
		return false
	}
	deleted, err := s.Repo.DeleteHaiku(ctx, s.db, id)
	if err != nil {
		s.logPersistence("delete haiku", err)
		return false
	}
	if deleted {
		log.Info().Str("haiku_id", id).Msg("haiku deleted")
	}
	return deleted
}

// GetTotalCount returns the total number of stored haikus, 0 when the store
// is unavailable or the count fails.
func (s *StorageService) GetTotalCount(ctx context.Context) int64 {
	tr := otel.Tracer("services/StorageService")
	ctx, span := tr.Start(ctx, "GetTotalCount")
	defer span.End()

	if !s.IsAvailable() {
		return 0
	}
	total, err := s.Repo.CountHaikus(ctx, s.db)
	if err != nil {
		s.logPersistence("count haikus", err)
		return 0
	}
	return total
}

// Stats returns the total row count and the newest CreatedAt for ETag
// generation. ok is false when the store is unavailable or the query failed.
func (s *StorageService) Stats(ctx context.Context) (count int64, maxCreatedAt *time.Time, ok bool) {
	if !s.IsAvailable() {
		return 0, nil, false
	}
	count, maxCreatedAt, err := repo.HaikuStats(ctx, s.db)
	if err != nil {
		s.logPersistence("haiku stats", err)
		return 0, nil, false
	}
	return count, maxCreatedAt, true
}

// LookupIdempotency returns the haiku id recorded for (userID, key), if a
// non-expired record exists. Misses and degraded states both report ok=false.
func (s *StorageService) LookupIdempotency(ctx context.Context, userID, key string) (haikuID string, ok bool) {
	if key == "" || !s.IsAvailable() {
		return "", false
	}
	rec, err := repo.GetIdempotency(ctx, s.db, userID, key, time.Now().UTC())
	if err != nil || rec == nil {
		return "", false
	}
	return rec.HaikuID, true
}

// RecordIdempotency stores the outcome of a completed save for later replay.
// Best effort: failures are logged and otherwise ignored.
func (s *StorageService) RecordIdempotency(ctx context.Context, userID, key, haikuID string, status int, ttl time.Duration) {
	if key == "" || !s.IsAvailable() {
		return
	}
	if _, err := repo.CreateIdempotency(ctx, s.db, userID, key, haikuID, status, ttl); err != nil && err != repo.ErrDuplicate {
		log.Warn().Err(err).Msg("failed to record idempotency outcome")
	}
}

// clampLimit substitutes DefaultLimit for non-positive limits.
func (s *StorageService) clampLimit(limit int) int {
	if limit > 0 {
		return limit
	}
	if s.DefaultLimit > 0 {
		return s.DefaultLimit
	}
	return 10
}

// logPersistence records a repository failure at error level. This is the
// single point where PersistenceError leaves a trace; it never crosses the
// service boundary as a returned error.
func (s *StorageService) logPersistence(op string, err error) {
	log.Error().Err(err).Str("op", op).Msg("haiku store operation failed")
}
