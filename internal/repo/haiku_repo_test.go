package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-haiku-backend/internal/domain"
)

func newHaikuRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("haiku_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedHaiku(t *testing.T, db *gorm.DB, id, subject string, createdAt time.Time) {
	t.Helper()
	h := domain.Haiku{ID: id, Subject: subject, Text: "line1\nline2\nline3", CreatedAt: createdAt}
	if err := db.Create(&h).Error; err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func TestCreateHaiku_Error_NoTable(t *testing.T) {
	db := newHaikuRepoDB(t /* no migrations */)
	h, err := CreateHaiku(context.Background(), db, "rain", "text", nil)
	if err == nil || h != nil {
		t.Fatalf("expected error creating without table, got haiku=%v err=%v", h, err)
	}
	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PersistenceError, got %T: %v", err, err)
	}
	if pe.Op != "create haiku" {
		t.Fatalf("unexpected op: %q", pe.Op)
	}
}

func TestCreateHaiku_Success_AssignsIDAndTimestamp(t *testing.T) {
	db := newHaikuRepoDB(t, &domain.Haiku{})

	start := time.Now().UTC().Add(-time.Minute)
	uid := "u1"
	h, err := CreateHaiku(context.Background(), db, "ocean waves", "a\nb\nc", &uid)
	if err != nil {
		t.Fatalf("CreateHaiku: %v", err)
	}
	if h.ID == "" || h.Subject != "ocean waves" || h.Text != "a\nb\nc" {
		t.Fatalf("unexpected Haiku fields: %+v", h)
	}
	if h.UserID == nil || *h.UserID != "u1" {
		t.Fatalf("UserID not persisted: %+v", h.UserID)
	}
	if h.CreatedAt.Before(start) {
		t.Fatalf("CreatedAt seems unset/really old: %v", h.CreatedAt)
	}
	// round-trip
	var got domain.Haiku
	if err := db.First(&got, "id = ?", h.ID).Error; err != nil {
		t.Fatalf("load created haiku: %v", err)
	}
	if got.Subject != "ocean waves" || got.Text != "a\nb\nc" {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestCreateHaiku_NilUserID(t *testing.T) {
	db := newHaikuRepoDB(t, &domain.Haiku{})
	h, err := CreateHaiku(context.Background(), db, "moon", "x\ny\nz", nil)
	if err != nil {
		t.Fatalf("CreateHaiku: %v", err)
	}
	var got domain.Haiku
	if err := db.First(&got, "id = ?", h.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.UserID != nil {
		t.Fatalf("expected nil UserID, got %v", *got.UserID)
	}
}

func TestGetHaiku_AbsentIsNilNil(t *testing.T) {
	db := newHaikuRepoDB(t, &domain.Haiku{})
	h, err := GetHaiku(context.Background(), db, "nope")
	if err != nil {
		t.Fatalf("absence must not be an error, got %v", err)
	}
	if h != nil {
		t.Fatalf("expected nil haiku, got %+v", h)
	}
}

func TestGetHaiku_Error_NoTable(t *testing.T) {
	db := newHaikuRepoDB(t)
	h, err := GetHaiku(context.Background(), db, "any")
	if err == nil || h != nil {
		t.Fatalf("expected store failure, got haiku=%v err=%v", h, err)
	}
}

func TestListRecentHaikus_NewestFirstAndLimited(t *testing.T) {
	db := newHaikuRepoDB(t, &domain.Haiku{})

	// Seed with known CreatedAt so order is deterministic.
	t1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC) // oldest
	t2 := t1.Add(1 * time.Hour)
	t3 := t2.Add(1 * time.Hour) // newest
	seedHaiku(t, db, "h1", "rain", t1)
	seedHaiku(t, db, "h2", "snow", t2)
	seedHaiku(t, db, "h3", "wind", t3)

	got, err := ListRecentHaikus(context.Background(), db, 2)
	if err != nil {
		t.Fatalf("ListRecentHaikus: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].ID != "h3" || got[1].ID != "h2" {
		t.Fatalf("wrong order: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestListRecentHaikus_EmptyTable(t *testing.T) {
	db := newHaikuRepoDB(t, &domain.Haiku{})
	got, err := ListRecentHaikus(context.Background(), db, 10)
	if err != nil {
		t.Fatalf("ListRecentHaikus: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %d rows", len(got))
	}
}

func TestSearchHaikusBySubject_CaseInsensitiveSubstring(t *testing.T) {
	db := newHaikuRepoDB(t, &domain.Haiku{})

	t0 := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	seedHaiku(t, db, "h1", "Ocean Waves", t0)
	seedHaiku(t, db, "h2", "quiet mornings", t0.Add(time.Hour))
	seedHaiku(t, db, "h3", "the OCEAN at night", t0.Add(2*time.Hour))

	got, err := SearchHaikusBySubject(context.Background(), db, "oCeAn", 10)
	if err != nil {
		t.Fatalf("SearchHaikusBySubject: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
	// newest first
	if got[0].ID != "h3" || got[1].ID != "h1" {
		t.Fatalf("wrong order: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestSearchHaikusBySubject_NoMatches(t *testing.T) {
	db := newHaikuRepoDB(t, &domain.Haiku{})
	seedHaiku(t, db, "h1", "rain", time.Now().UTC())

	got, err := SearchHaikusBySubject(context.Background(), db, "volcano", 10)
	if err != nil {
		t.Fatalf("SearchHaikusBySubject: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no matches, got %d", len(got))
	}
}

func TestDeleteHaiku_ReportsExistence(t *testing.T) {
	db := newHaikuRepoDB(t, &domain.Haiku{})
	seedHaiku(t, db, "h1", "rain", time.Now().UTC())

	ok, err := DeleteHaiku(context.Background(), db, "h1")
	if err != nil || !ok {
		t.Fatalf("first delete: ok=%v err=%v", ok, err)
	}
	// Idempotent: second delete of the same id is false, not an error.
	ok, err = DeleteHaiku(context.Background(), db, "h1")
	if err != nil || ok {
		t.Fatalf("second delete: ok=%v err=%v", ok, err)
	}
	ok, err = DeleteHaiku(context.Background(), db, "never-existed")
	if err != nil || ok {
		t.Fatalf("delete missing: ok=%v err=%v", ok, err)
	}
}

func TestCountHaikus(t *testing.T) {
	db := newHaikuRepoDB(t, &domain.Haiku{})

	n, err := CountHaikus(context.Background(), db)
	if err != nil || n != 0 {
		t.Fatalf("empty count: n=%d err=%v", n, err)
	}
	seedHaiku(t, db, "h1", "rain", time.Now().UTC())
	seedHaiku(t, db, "h2", "snow", time.Now().UTC())
	n, err = CountHaikus(context.Background(), db)
	if err != nil || n != 2 {
		t.Fatalf("count after seed: n=%d err=%v", n, err)
	}
}

func TestPersistenceError_WrapsCause(t *testing.T) {
	cause := errors.New("boom")
	err := persistErr("list recent haikus", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected Unwrap to reach cause")
	}
	var pe *PersistenceError
	if !errors.As(err, &pe) || pe.Op != "list recent haikus" {
		t.Fatalf("unexpected error shape: %v", err)
	}
}
