package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/imagestudio/internal/common"
	"github.com/dmitrijs2005/imagestudio/internal/dbx"
	"github.com/dmitrijs2005/imagestudio/internal/server/models"
	"github.com/dmitrijs2005/imagestudio/internal/server/repositories/histories"
	"github.com/dmitrijs2005/imagestudio/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/imagestudio/internal/server/repositories/users"
)

var errBoom = errors.New("boom")

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

type fakeUsersRepo struct {
	createOut *models.User
	createErr error
	created   *models.User

	getOut *models.User
	getErr error
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.created = u
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createOut, nil
}

func (f *fakeUsersRepo) GetUserByLogin(context.Context, string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

type fakeRefreshRepo struct {
	findOut *models.RefreshToken
	findErr error

	delErr     error
	deleted    []string
	createErr  error
	created    []string
	expiredErr error
}

func (f *fakeRefreshRepo) Create(_ context.Context, _ string, token string, _ time.Duration) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, token)
	return nil
}

func (f *fakeRefreshRepo) Find(context.Context, string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

func (f *fakeRefreshRepo) Delete(_ context.Context, token string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, token)
	return nil
}

func (f *fakeRefreshRepo) DeleteExpired(context.Context, string) (int64, error) {
	if f.expiredErr != nil {
		return 0, f.expiredErr
	}
	return 1, nil
}

// memHistories is an in-memory histories.Repository with the same version
// semantics as the Postgres one.
type memHistories struct {
	mu        sync.Mutex
	rows      map[string]*models.History
	fetchErr  error
	upsertErr error
}

func newMemHistories() *memHistories {
	return &memHistories{rows: map[string]*models.History{}}
}

func (m *memHistories) Fetch(_ context.Context, userID string) (*models.History, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	h, ok := m.rows[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *h
	cp.Entries = append([]models.HistoryEntry(nil), h.Entries...)
	return &cp, nil
}

func (m *memHistories) Upsert(_ context.Context, userID string, entries []models.HistoryEntry, expected int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return 0, m.upsertErr
	}
	var current int64
	if h, ok := m.rows[userID]; ok {
		current = h.Version
	}
	if current != expected {
		return 0, common.ErrVersionConflict
	}
	m.rows[userID] = &models.History{
		UserID:  userID,
		Entries: append([]models.HistoryEntry(nil), entries...),
		Version: current + 1,
	}
	return current + 1, nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	h *memHistories
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.r }
func (m *fakeRepoManager) Histories(dbx.DBTX) histories.Repository         { return m.h }

type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
	delErr  error
	deleted []string
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memBlobs) Put(_ context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memBlobs) Get(_ context.Context, key string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.objects[key]
	if !ok {
		return nil, "", common.ErrorNotFound
	}
	return d, m.types[key], nil
}

func (m *memBlobs) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delErr != nil {
		return m.delErr
	}
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}
