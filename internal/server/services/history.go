package services

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/imagestudio/internal/common"
	"github.com/dmitrijs2005/imagestudio/internal/feature"
	"github.com/dmitrijs2005/imagestudio/internal/imagedata"
	"github.com/dmitrijs2005/imagestudio/internal/logging"
	"github.com/dmitrijs2005/imagestudio/internal/server/blobs"
	"github.com/dmitrijs2005/imagestudio/internal/server/models"
	"github.com/dmitrijs2005/imagestudio/internal/server/repositories/repomanager"
)

const (
	slotSource = "source"
	slotResult = "result"
)

// HistoryService stores each user's history as a whole collection guarded
// by a version token. With a blob store, images are written as objects and
// the row keeps "blob:<key>" references; Fetch turns them back into data
// URLs, so callers never see references.
type HistoryService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       blobs.Store
	log         logging.Logger
}

// NewHistoryService keeps images inline when store is nil.
func NewHistoryService(db *sql.DB, m repomanager.RepositoryManager, store blobs.Store, log logging.Logger) *HistoryService {
	return &HistoryService{
		db:          db,
		repomanager: m,
		blobs:       store,
		log:         log.With("module", "history"),
	}
}

// Fetch returns common.ErrorNotFound when the user has no record.
func (s *HistoryService) Fetch(ctx context.Context, userID string) (*models.History, error) {
	h, err := s.repomanager.Histories(s.db).Fetch(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range h.Entries {
		e := &h.Entries[i]
		if e.SourceImage, err = s.rehydrate(ctx, e.SourceImage); err != nil {
			return nil, fmt.Errorf("entry %s source: %w", e.ID, err)
		}
		if e.ResultImage, err = s.rehydrate(ctx, e.ResultImage); err != nil {
			return nil, fmt.Errorf("entry %s result: %w", e.ID, err)
		}
	}
	return h, nil
}

// Upsert replaces the collection if expectedVersion still matches and
// returns the new version. Objects no longer referenced afterwards are
// deleted on a best-effort basis.
func (s *HistoryService) Upsert(ctx context.Context, userID string, entries []models.HistoryEntry, expectedVersion int64) (int64, error) {
	if err := validateEntries(entries); err != nil {
		return 0, err
	}

	repo := s.repomanager.Histories(s.db)

	var previous []models.HistoryEntry
	if s.blobs != nil && expectedVersion != 0 {
		h, err := repo.Fetch(ctx, userID)
		switch {
		case err == nil:
			previous = h.Entries
		case errors.Is(err, common.ErrorNotFound):
		default:
			return 0, err
		}
	}

	stored, err := s.offload(ctx, userID, entries, previous)
	if err != nil {
		return 0, err
	}

	version, err := repo.Upsert(ctx, userID, stored, expectedVersion)
	if err != nil {
		return 0, err
	}

	s.deleteOrphans(ctx, previous, stored)
	s.log.Info(ctx, "history stored", "user_id", userID, "entries", len(stored), "version", version)
	return version, nil
}

func validateEntries(entries []models.HistoryEntry) error {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.ID) == "" {
			return fmt.Errorf("%w: entry without id", common.ErrorValidation)
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("%w: duplicate entry id %s", common.ErrorValidation, e.ID)
		}
		seen[e.ID] = struct{}{}

		if err := feature.Feature(e.Feature).Validate(); err != nil {
			return fmt.Errorf("%w: entry %s: %v", common.ErrorValidation, e.ID, err)
		}
		if e.ResultImage == "" {
			return fmt.Errorf("%w: entry %s has no result image", common.ErrorValidation, e.ID)
		}
		if strings.HasPrefix(e.SourceImage, common.BlobRefPrefix) || strings.HasPrefix(e.ResultImage, common.BlobRefPrefix) {
			return fmt.Errorf("%w: entry %s carries a storage reference", common.ErrorValidation, e.ID)
		}
	}
	return nil
}

// offload returns entries with every image moved to the blob store. Images
// of entries already stored under the same ID keep their references.
func (s *HistoryService) offload(ctx context.Context, userID string, entries, previous []models.HistoryEntry) ([]models.HistoryEntry, error) {
	if s.blobs == nil {
		return entries, nil
	}

	known := make(map[string]models.HistoryEntry, len(previous))
	for _, p := range previous {
		known[p.ID] = p
	}

	out := make([]models.HistoryEntry, len(entries))
	for i, e := range entries {
		if p, ok := known[e.ID]; ok && isRef(p.ResultImage) {
			e.SourceImage, e.ResultImage = p.SourceImage, p.ResultImage
			out[i] = e
			continue
		}

		var err error
		if e.SourceImage, err = s.put(ctx, blobKey(userID, e.ID, slotSource), e.SourceImage); err != nil {
			return nil, err
		}
		if e.ResultImage, err = s.put(ctx, blobKey(userID, e.ID, slotResult), e.ResultImage); err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (s *HistoryService) put(ctx context.Context, key, image string) (string, error) {
	if image == "" {
		return "", nil
	}

	p, err := imagedata.Parse(image)
	if err != nil {
		return image, nil
	}
	data, err := p.Bytes()
	if err != nil {
		// not base64; kept inline as sent
		return image, nil
	}

	if err := s.blobs.Put(ctx, key, data, p.MIME); err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return common.BlobRefPrefix + key, nil
}

func (s *HistoryService) rehydrate(ctx context.Context, value string) (string, error) {
	if !isRef(value) {
		return value, nil
	}
	if s.blobs == nil {
		return "", fmt.Errorf("%w: blob reference without a blob store", common.ErrorInternal)
	}

	data, mt, err := s.blobs.Get(ctx, strings.TrimPrefix(value, common.BlobRefPrefix))
	if err != nil {
		return "", err
	}
	return imagedata.Payload{MIME: mt, Data: base64.StdEncoding.EncodeToString(data)}.DataURL(), nil
}

func (s *HistoryService) deleteOrphans(ctx context.Context, previous, current []models.HistoryEntry) {
	if s.blobs == nil || len(previous) == 0 {
		return
	}

	live := map[string]struct{}{}
	for _, e := range current {
		live[e.SourceImage] = struct{}{}
		live[e.ResultImage] = struct{}{}
	}

	for _, e := range previous {
		for _, ref := range []string{e.SourceImage, e.ResultImage} {
			if _, ok := live[ref]; ok || !isRef(ref) {
				continue
			}
			key := strings.TrimPrefix(ref, common.BlobRefPrefix)
			if err := s.blobs.Delete(ctx, key); err != nil {
				s.log.Warn(ctx, "orphaned image not deleted", "key", key, "error", err)
			}
		}
	}
}

func blobKey(userID, entryID, slot string) string {
	return fmt.Sprintf("history/%s/%s/%s", userID, entryID, slot)
}

func isRef(s string) bool {
	return strings.HasPrefix(s, common.BlobRefPrefix)
}
