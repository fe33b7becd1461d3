package models

import (
	"time"

	"github.com/dmitrijs2005/imagestudio/internal/feature"
)

// HistoryEntry is a persisted, user-scoped copy of a completed edit.
type HistoryEntry struct {
	ID          string          `json:"id"`
	SourceImage string          `json:"source_image,omitempty"`
	ResultImage string          `json:"result_image"`
	Prompt      string          `json:"prompt"`
	Feature     feature.Feature `json:"feature"`
	CreatedAt   time.Time       `json:"created_at"`
}

// History is a user's whole collection. Version is an optimistic
// concurrency token: 0 means no record exists yet.
type History struct {
	Entries []HistoryEntry
	Version int64
}
