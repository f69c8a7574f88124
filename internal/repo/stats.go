// Package repo implements the data persistence layer for the haiku store,
// backed by GORM. This file provides a small aggregate query used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-haiku-backend/internal/domain"
)

// HaikuStats returns aggregate metadata for the haikus table: the total row
// count and the greatest CreatedAt timestamp among those rows.
//
// When the table is empty, count is 0 and maxCreatedAt is nil. Store failures
// surface as *PersistenceError like every other repository function.
func HaikuStats(ctx context.Context, db *gorm.DB) (count int64, maxCreatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Haiku{})

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, persistErr("haiku stats", err)
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, persistErr("haiku stats", err)
	}
	return count, &row.CreatedAt, nil
}
