package models

import "time"

// HistoryEntry is one completed edit as stored on the server. Image fields
// hold either a data URL or a blob reference (common.BlobRefPrefix + key).
type HistoryEntry struct {
	ID          string    `json:"id"`
	SourceImage string    `json:"source_image,omitempty"`
	ResultImage string    `json:"result_image"`
	Prompt      string    `json:"prompt"`
	Feature     string    `json:"feature"`
	CreatedAt   time.Time `json:"created_at"`
}

// History is a user's whole collection plus its optimistic version token.
// Version 0 means no record exists yet.
type History struct {
	UserID    string
	Entries   []HistoryEntry
	Version   int64
	UpdatedAt time.Time
}
