// Package repo implements the data persistence layer for the haiku store,
// backed by GORM. This file contains database bootstrapping helpers for the
// hosted Postgres table store, the pure-Go SQLite driver used in development
// and tests, and schema migrations.
package repo

import (
	"net/url"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-haiku-backend/internal/domain"
)

// OpenPostgres connects to the hosted table store. storeURL is the store
// endpoint (a postgres:// URL, password omitted) and storeKey is the service
// key used as the password. Both come from configuration; the caller decides
// what to do when they are absent.
func OpenPostgres(storeURL, storeKey string) (*gorm.DB, error) {
	u, err := url.Parse(storeURL)
	if err != nil {
		return nil, err
	}
	user := "postgres"
	if u.User != nil && u.User.Username() != "" {
		user = u.User.Username()
	}
	u.User = url.UserPassword(user, storeKey)

	db, err := gorm.Open(postgres.Open(u.String()), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := enableTracing(db); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
// Used for local development and tests in place of the hosted store.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := enableTracing(db); err != nil {
		return nil, err
	}
	return db, nil
}

// enableTracing attaches the GORM OpenTelemetry plugin so every query shows
// up as a span under the request trace. Metrics are left to the HTTP layer.
func enableTracing(db *gorm.DB) error {
	return db.Use(tracing.NewPlugin(tracing.WithoutMetrics()))
}

// AutoMigrate creates or updates the haiku and idempotency tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Haiku{},
		&domain.Idempotency{},
	)
}
