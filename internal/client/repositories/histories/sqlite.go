// Package histories keeps user histories in the local SQLite file, one row
// per user with the entries stored as a JSON array.
package histories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/imagestudio/internal/client/models"
	"github.com/dmitrijs2005/imagestudio/internal/common"
	"github.com/dmitrijs2005/imagestudio/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Fetch(ctx context.Context, userID string) (*models.History, error) {
	query := `select entries, version from histories where user_id=?`

	var raw string
	h := &models.History{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&raw, &h.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select history: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), &h.Entries); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return h, nil
}

// Upsert inserts when h.Version is 0 and otherwise updates only the row
// still carrying h.Version. Losing either race is common.ErrVersionConflict.
func (r *SQLiteRepository) Upsert(ctx context.Context, userID string, h *models.History) (int64, error) {
	entries := h.Entries
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return 0, fmt.Errorf("failed to encode history: %w", err)
	}

	var res sql.Result
	if h.Version == 0 {
		query := `insert into histories (user_id, entries, version) values (?, ?, 1)
			on conflict(user_id) do nothing`
		res, err = r.db.ExecContext(ctx, query, userID, string(raw))
	} else {
		query := `update histories set entries=?, version=version+1, updated_at=CURRENT_TIMESTAMP
			where user_id=? and version=?`
		res, err = r.db.ExecContext(ctx, query, string(raw), userID, h.Version)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to upsert history: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n != 1 {
		return 0, common.ErrVersionConflict
	}
	return h.Version + 1, nil
}
