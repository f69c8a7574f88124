// Package domain defines the persistence model for stored haikus. The types
// here are mapped with GORM and shared by the repository and service layers;
// they carry no behavior beyond schema mapping.
package domain

import "time"

// Haiku represents one generated poem persisted to the table store.
//
// A row is either fully present or does not exist: deletion is a hard
// remove, and there is no update-in-place (poems are immutable once saved).
//
// Fields:
//   - ID: store-assigned UUID primary key (char(36)); never supplied by callers.
//   - Subject: the topic the poem was generated for; non-empty, trimmed,
//     capped by the caller (~200 runes), indexed for substring search.
//   - Text: the poem body; may contain internal line breaks, never empty.
//   - CreatedAt: store-assigned insert timestamp; the sole ordering key for
//     "recent" queries (descending). Ties between concurrent inserts are
//     broken by the store, not by this layer.
//   - UserID: optional owner reference; nil means unowned/anonymous.
type Haiku struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Subject   string    `json:"subject"    gorm:"type:varchar(200);not null;index:idx_haiku_subject"`
	Text      string    `json:"text"       gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_haiku_created,sort:desc"`
	UserID    *string   `json:"user_id,omitempty" gorm:"type:varchar(64);index"`
}

// TableName returns the database table name for Haiku.
func (Haiku) TableName() string { return "haikus" }
