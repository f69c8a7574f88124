// Package repo implements the data persistence layer for the haiku store,
// backed by GORM. This file provides the repository functions for the Haiku
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business rules, only row mapping
// and query composition.
//
// Error semantics:
//   - Store/transport failures are wrapped in *PersistenceError uniformly,
//     whatever the underlying driver reported.
//   - A point lookup that finds nothing returns (nil, nil); absence is an
//     ordinary outcome here, not an error.
//   - DeleteHaiku is idempotent: deleting a missing id reports false, not
//     an error.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-haiku-backend/internal/domain"
)

// CreateHaiku inserts a new haiku row. The id (UUID) and CreatedAt timestamp
// are assigned here, at insert time; callers never supply either. The fully
// populated record is returned on success.
func CreateHaiku(ctx context.Context, db *gorm.DB, subject, text string, userID *string) (*domain.Haiku, error) {
	h := &domain.Haiku{
		ID:        uuid.NewString(),
		Subject:   subject,
		Text:      text,
		CreatedAt: time.Now().UTC(),
		UserID:    userID,
	}
	if err := db.WithContext(ctx).Create(h).Error; err != nil {
		return nil, persistErr("create haiku", err)
	}
	return h, nil
}

// GetHaiku fetches a haiku by id. It returns (nil, nil) when no row matches
// and a *PersistenceError only on store failure.
func GetHaiku(ctx context.Context, db *gorm.DB, id string) (*domain.Haiku, error) {
	var h domain.Haiku
	err := db.WithContext(ctx).Where("id = ?", id).First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("get haiku", err)
	}
	return &h, nil
}

// ListRecentHaikus returns at most limit haikus ordered by CreatedAt
// descending. Rows created in the same instant come back in whatever order
// the store picks; callers must not assume a tiebreak. An empty slice is a
// valid result, distinct from a failure.
func ListRecentHaikus(ctx context.Context, db *gorm.DB, limit int) ([]domain.Haiku, error) {
	var out []domain.Haiku
	err := db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, persistErr("list recent haikus", err)
	}
	return out, nil
}

// SearchHaikusBySubject returns up to limit haikus whose subject contains
// substring (case-insensitive), most recent first. Rejecting blank substrings
// is the service layer's job; passed one, this would scan the whole table.
func SearchHaikusBySubject(ctx context.Context, db *gorm.DB, substring string, limit int) ([]domain.Haiku, error) {
	var out []domain.Haiku
	pattern := "%" + strings.ToLower(substring) + "%"
	err := db.WithContext(ctx).
		Where("LOWER(subject) LIKE ?", pattern).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, persistErr("search haikus", err)
	}
	return out, nil
}

// DeleteHaiku removes the row with the given id and reports whether a row was
// actually removed. Deleting a non-existent id returns (false, nil).
func DeleteHaiku(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Haiku{})
	if res.Error != nil {
		return false, persistErr("delete haiku", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// CountHaikus returns the total number of stored haikus. Used for diagnostics
// and the stats endpoint, not on correctness-critical paths.
func CountHaikus(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Haiku{}).Count(&total).Error
	if err != nil {
		return 0, persistErr("count haikus", err)
	}
	return total, nil
}
