// Package histories keeps one row per user with the whole history as a
// JSONB array and an optimistic version counter.
package histories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/dmitrijs2005/imagestudio/internal/common"
	"github.com/dmitrijs2005/imagestudio/internal/dbx"
	"github.com/dmitrijs2005/imagestudio/internal/server/models"
)

const (
	historiesTable = "histories"

	userIDColumn    = "user_id"
	entriesColumn   = "entries"
	versionColumn   = "version"
	updatedAtColumn = "updated_at"
)

var now = time.Now

// Repository reads and conditionally replaces a user's history.
type Repository interface {
	// Fetch returns common.ErrorNotFound when the user has no record.
	Fetch(ctx context.Context, userID string) (*models.History, error)
	// Upsert stores entries if the record still has expectedVersion (0 for
	// "no record yet") and returns the new version. A stale expectedVersion
	// yields common.ErrVersionConflict.
	Upsert(ctx context.Context, userID string, entries []models.HistoryEntry, expectedVersion int64) (int64, error)
}

type PostgresRepository struct {
	db      dbx.DBTX
	builder squirrel.StatementBuilderType
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *PostgresRepository) Fetch(ctx context.Context, userID string) (*models.History, error) {
	query, args, err := r.builder.
		Select(entriesColumn, versionColumn, updatedAtColumn).
		From(historiesTable).
		Where(squirrel.Eq{userIDColumn: userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var raw []byte
	h := &models.History{UserID: userID}
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&raw, &h.Version, &h.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := json.Unmarshal(raw, &h.Entries); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return h, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, userID string, entries []models.HistoryEntry, expectedVersion int64) (int64, error) {
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return 0, fmt.Errorf("encode history: %w", err)
	}

	var builder squirrel.Sqlizer
	if expectedVersion == 0 {
		builder = r.builder.
			Insert(historiesTable).
			Columns(userIDColumn, entriesColumn, versionColumn, updatedAtColumn).
			Values(userID, string(raw), 1, now()).
			Suffix("ON CONFLICT (" + userIDColumn + ") DO NOTHING RETURNING " + versionColumn)
	} else {
		builder = r.builder.
			Update(historiesTable).
			Set(entriesColumn, string(raw)).
			Set(versionColumn, squirrel.Expr(versionColumn+" + 1")).
			Set(updatedAtColumn, now()).
			Where(squirrel.And{
				squirrel.Eq{userIDColumn: userID},
				squirrel.Eq{versionColumn: expectedVersion},
			}).
			Suffix("RETURNING " + versionColumn)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var version int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrVersionConflict
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return version, nil
}
