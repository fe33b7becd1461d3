// Package history reconciles completed edits into a user's stored history.
//
// The store has no atomic append, so every mutation is a fetch-modify-upsert
// cycle. Stores that hand out version tokens reject stale writes with
// common.ErrVersionConflict and the cycle is retried; stores without tokens
// give last-write-wins on the whole collection.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/imagestudio/internal/client/models"
	"github.com/dmitrijs2005/imagestudio/internal/common"
	"github.com/dmitrijs2005/imagestudio/internal/logging"
)

// MaxConflictRetries bounds how many times a mutation is re-run after a
// version conflict.
const MaxConflictRetries = 3

var (
	ErrNoIdentity      = errors.New("no user bound")
	ErrIncompleteEntry = errors.New("history entry has no result image")
)

// Store is a per-user history collection.
type Store interface {
	// Fetch returns common.ErrorNotFound when the user has no record.
	Fetch(ctx context.Context, userID string) (*models.History, error)

	// Upsert creates or replaces the record. h.Version must be the token
	// returned by the last Fetch (0 when none); a stale token yields
	// common.ErrVersionConflict. Returns the new token.
	Upsert(ctx context.Context, userID string, h *models.History) (int64, error)
}

type Synchronizer struct {
	store Store
	log   logging.Logger
}

func NewSynchronizer(store Store, log logging.Logger) *Synchronizer {
	return &Synchronizer{store: store, log: log.With("module", "history")}
}

// Append adds entry to the user's history. An entry with the same ID is
// replaced rather than duplicated.
func (s *Synchronizer) Append(ctx context.Context, userID string, entry models.HistoryEntry) error {
	if userID == "" {
		return ErrNoIdentity
	}
	if entry.ResultImage == "" {
		return ErrIncompleteEntry
	}

	err := s.mutate(ctx, userID, func(entries []models.HistoryEntry) ([]models.HistoryEntry, error) {
		out := make([]models.HistoryEntry, 0, len(entries)+1)
		for _, e := range entries {
			if e.ID != entry.ID {
				out = append(out, e)
			}
		}
		return append(out, entry), nil
	})
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	s.log.Info(ctx, "history entry appended", "user_id", userID, "entry_id", entry.ID)
	return nil
}

// List returns the user's entries, newest first.
func (s *Synchronizer) List(ctx context.Context, userID string) ([]models.HistoryEntry, error) {
	if userID == "" {
		return nil, ErrNoIdentity
	}

	h, err := s.fetch(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	entries := append([]models.HistoryEntry(nil), h.Entries...)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

// Search filters List by a case-insensitive prompt substring. An empty
// term matches everything.
func (s *Synchronizer) Search(ctx context.Context, userID, term string) ([]models.HistoryEntry, error) {
	entries, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return entries, nil
	}

	out := entries[:0]
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Prompt), term) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Get returns one entry by id.
func (s *Synchronizer) Get(ctx context.Context, userID, id string) (*models.HistoryEntry, error) {
	if userID == "" {
		return nil, ErrNoIdentity
	}

	h, err := s.fetch(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get history entry: %w", err)
	}
	for _, e := range h.Entries {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, common.ErrorNotFound
}

// Delete removes one entry. Unknown ids yield common.ErrorNotFound and
// leave the store untouched.
func (s *Synchronizer) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrNoIdentity
	}

	err := s.mutate(ctx, userID, func(entries []models.HistoryEntry) ([]models.HistoryEntry, error) {
		out := make([]models.HistoryEntry, 0, len(entries))
		for _, e := range entries {
			if e.ID != id {
				out = append(out, e)
			}
		}
		if len(out) == len(entries) {
			return nil, common.ErrorNotFound
		}
		return out, nil
	})
	if err != nil {
		return fmt.Errorf("delete history entry: %w", err)
	}

	s.log.Info(ctx, "history entry deleted", "user_id", userID, "entry_id", id)
	return nil
}

// fetch treats a missing record as an empty history with version 0.
func (s *Synchronizer) fetch(ctx context.Context, userID string) (*models.History, error) {
	h, err := s.store.Fetch(ctx, userID)
	if errors.Is(err, common.ErrorNotFound) {
		return &models.History{}, nil
	}
	if err != nil {
		return nil, err
	}
	if h == nil {
		return &models.History{}, nil
	}
	return h, nil
}

func (s *Synchronizer) mutate(ctx context.Context, userID string, fn func([]models.HistoryEntry) ([]models.HistoryEntry, error)) error {
	var err error
	for attempt := 0; attempt <= MaxConflictRetries; attempt++ {
		var h *models.History
		h, err = s.fetch(ctx, userID)
		if err != nil {
			return err
		}

		var entries []models.HistoryEntry
		entries, err = fn(h.Entries)
		if err != nil {
			return err
		}

		_, err = s.store.Upsert(ctx, userID, &models.History{Entries: entries, Version: h.Version})
		if !errors.Is(err, common.ErrVersionConflict) {
			return err
		}
		s.log.Warn(ctx, "history version conflict, retrying", "user_id", userID, "attempt", attempt+1)
	}
	return err
}
