// Package models defines client-side data models used by the Image Studio CLI.
package models

import (
	"time"

	"github.com/dmitrijs2005/imagestudio/internal/feature"
)

// Status is the lifecycle state of an edit. The absence of a current edit
// is represented by a nil *Edit, not by a status value.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Edit is the single tracked unit of a transformation request.
type Edit struct {
	// ID is generated client-side at creation and never reused.
	ID string

	// SourceImage is a data URL; empty only for text-to-image generation.
	SourceImage string

	Prompt  string
	Feature feature.Feature

	// ResultImage is set only while Status is completed.
	ResultImage string

	CreatedAt time.Time
	Status    Status
}

// Terminal reports whether the edit has resolved.
func (e *Edit) Terminal() bool {
	return e.Status == StatusCompleted || e.Status == StatusError
}

// HistoryEntry captures the persisted projection of a completed edit.
func (e *Edit) HistoryEntry() HistoryEntry {
	return HistoryEntry{
		ID:          e.ID,
		SourceImage: e.SourceImage,
		ResultImage: e.ResultImage,
		Prompt:      e.Prompt,
		Feature:     e.Feature,
		CreatedAt:   e.CreatedAt,
	}
}
