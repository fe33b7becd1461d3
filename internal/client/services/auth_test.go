package services

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/imagestudio/internal/client/client"
	"github.com/dmitrijs2005/imagestudio/internal/client/identity"
	"github.com/dmitrijs2005/imagestudio/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/imagestudio/internal/common"
	"github.com/dmitrijs2005/imagestudio/internal/cryptox"
	"github.com/dmitrijs2005/imagestudio/internal/server/auth"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// fakeClient implements client.Client; unused methods panic through the
// embedded nil interface.
type fakeClient struct {
	client.Client

	salt       []byte
	getSaltErr error
	token      string
	loginErr   error
	regErr     error
	pingErr    error
	closeErr   error

	registeredUser     string
	registeredSalt     []byte
	registeredVerifier []byte
	loginVerifier      []byte
	loggedOut          bool
}

func (f *fakeClient) GetSalt(ctx context.Context, username string) ([]byte, error) {
	return f.salt, f.getSaltErr
}

func (f *fakeClient) Login(ctx context.Context, username string, verifier []byte) (string, error) {
	f.loginVerifier = verifier
	return f.token, f.loginErr
}

func (f *fakeClient) Register(ctx context.Context, username string, salt, verifier []byte) error {
	f.registeredUser, f.registeredSalt, f.registeredVerifier = username, salt, verifier
	return f.regErr
}

func (f *fakeClient) Logout()                        { f.loggedOut = true }
func (f *fakeClient) Ping(ctx context.Context) error { return f.pingErr }
func (f *fakeClient) Close() error                   { return f.closeErr }

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	tok, err := auth.GenerateToken(userID, "alice", []byte("srv"), time.Hour)
	require.NoError(t, err)
	return tok
}

func TestOnlineLogin_PublishesIdentityAndCaches(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	ids := identity.NewBroadcaster()
	salt := []byte("0123456789abcdef")
	fc := &fakeClient{salt: salt, token: tokenFor(t, "u-1")}

	svc := NewAuthService(fc, db, ids)
	id, err := svc.OnlineLogin(ctx, "alice", []byte("pw"))
	require.NoError(t, err)

	assert.Equal(t, &identity.Identity{UserID: "u-1", Name: "alice"}, id)
	assert.Equal(t, id, ids.Current())
	assert.Equal(t, cryptox.VerifierFor([]byte("pw"), salt), fc.loginVerifier)

	m, err := metadata.NewSQLiteRepository(db).List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("alice"), m[metadata.KeyUsername])
	assert.Equal(t, []byte("u-1"), m[metadata.KeyUserID])
	assert.Equal(t, salt, m[metadata.KeySalt])
}

func TestOnlineLogin_Errors(t *testing.T) {
	tests := []struct {
		name string
		fc   *fakeClient
		want error
	}{
		{name: "salt", fc: &fakeClient{getSaltErr: client.ErrUnavailable}, want: client.ErrUnavailable},
		{name: "login", fc: &fakeClient{salt: []byte("s"), loginErr: client.ErrUnauthorized}, want: client.ErrUnauthorized},
		{name: "bad token", fc: &fakeClient{salt: []byte("s"), token: "garbage"}, want: common.ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := identity.NewBroadcaster()
			svc := NewAuthService(tt.fc, setupDB(t), ids)

			_, err := svc.OnlineLogin(context.Background(), "alice", []byte("pw"))
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, ids.Current())
		})
	}
}

func TestOfflineLogin(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	fc := &fakeClient{salt: []byte("salt-salt"), token: tokenFor(t, "u-9")}

	online := NewAuthService(fc, db, identity.NewBroadcaster())
	_, err := online.OnlineLogin(ctx, "alice", []byte("pw"))
	require.NoError(t, err)

	ids := identity.NewBroadcaster()
	svc := NewAuthService(fc, db, ids)

	_, err = svc.OfflineLogin(ctx, "bob", []byte("pw"))
	assert.ErrorIs(t, err, client.ErrUnauthorized)

	_, err = svc.OfflineLogin(ctx, "alice", []byte("wrong"))
	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Nil(t, ids.Current())

	id, err := svc.OfflineLogin(ctx, "alice", []byte("pw"))
	require.NoError(t, err)
	assert.Equal(t, "u-9", id.UserID)
	assert.Equal(t, id, ids.Current())
}

func TestOfflineLogin_NoLocalData(t *testing.T) {
	svc := NewAuthService(&fakeClient{}, setupDB(t), identity.NewBroadcaster())

	_, err := svc.OfflineLogin(context.Background(), "alice", []byte("pw"))
	assert.ErrorIs(t, err, client.ErrLocalDataNotAvailable)
}

func TestLogout_ClearsEverything(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	ids := identity.NewBroadcaster()
	fc := &fakeClient{salt: []byte("s"), token: tokenFor(t, "u-2")}
	svc := NewAuthService(fc, db, ids)

	_, err := svc.OnlineLogin(ctx, "alice", []byte("pw"))
	require.NoError(t, err)

	var seen []*identity.Identity
	cancel := ids.Subscribe(func(id *identity.Identity) { seen = append(seen, id) })
	defer cancel()

	require.NoError(t, svc.Logout(ctx))

	assert.True(t, fc.loggedOut)
	assert.Nil(t, ids.Current())
	require.Len(t, seen, 2)
	assert.Nil(t, seen[1])

	_, err = svc.OfflineLogin(ctx, "alice", []byte("pw"))
	assert.ErrorIs(t, err, client.ErrLocalDataNotAvailable)
}

func TestRegister_SendsSaltAndVerifier(t *testing.T) {
	fc := &fakeClient{}
	svc := NewAuthService(fc, setupDB(t), identity.NewBroadcaster())

	require.NoError(t, svc.Register(context.Background(), "alice", []byte("pw")))

	assert.Equal(t, "alice", fc.registeredUser)
	assert.Len(t, fc.registeredSalt, 32)
	assert.Equal(t, cryptox.VerifierFor([]byte("pw"), fc.registeredSalt), fc.registeredVerifier)
}

func TestDelegations(t *testing.T) {
	boom := errors.New("boom")
	fc := &fakeClient{regErr: client.ErrAlreadyExists, pingErr: boom, closeErr: boom}
	svc := NewAuthService(fc, setupDB(t), identity.NewBroadcaster())
	ctx := context.Background()

	assert.ErrorIs(t, svc.Register(ctx, "a", []byte("p")), client.ErrAlreadyExists)
	assert.ErrorIs(t, svc.Ping(ctx), boom)
	assert.ErrorIs(t, svc.Close(ctx), boom)
}
