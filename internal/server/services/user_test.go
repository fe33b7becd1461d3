package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/imagestudio/internal/common"
	"github.com/dmitrijs2005/imagestudio/internal/logging"
	"github.com/dmitrijs2005/imagestudio/internal/server/auth"
	"github.com/dmitrijs2005/imagestudio/internal/server/config"
	"github.com/dmitrijs2005/imagestudio/internal/server/models"
)

const testSecret = "k"

func newUserService(t *testing.T, rm *fakeRepoManager) (*UserService, func() error) {
	t.Helper()
	db, mock := newSQLMockDB(t)
	cfg := &config.Config{
		SecretKey:                    testSecret,
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}
	return NewUserService(db, rm, cfg, logging.Discard()), mock.ExpectationsWereMet
}

func TestRefreshToken_Success(t *testing.T) {
	rt := &fakeRefreshRepo{findOut: &models.RefreshToken{UserID: "u1", UserName: "alice", Expires: time.Now().Add(10 * time.Minute)}}
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	s := NewUserService(db, &fakeRepoManager{r: rt}, &config.Config{SecretKey: testSecret, AccessTokenValidityDuration: time.Hour}, logging.Discard())

	pair, err := s.RefreshToken(context.Background(), "refresh-xyz")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, []string{"refresh-xyz"}, rt.deleted)
	assert.Equal(t, []string{pair.RefreshToken}, rt.created)

	claims, err := auth.ParseUnverified(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshToken_Expired(t *testing.T) {
	rt := &fakeRefreshRepo{findOut: &models.RefreshToken{UserID: "u1", Expires: time.Now().Add(-time.Minute)}}
	s, _ := newUserService(t, &fakeRepoManager{r: rt})

	_, err := s.RefreshToken(context.Background(), "r")
	assert.ErrorIs(t, err, common.ErrRefreshTokenExpired)
	assert.Equal(t, []string{"r"}, rt.deleted, "expired token is removed")
}

func TestRefreshToken_Unknown(t *testing.T) {
	s, _ := newUserService(t, &fakeRepoManager{r: &fakeRefreshRepo{findErr: common.ErrorNotFound}})

	_, err := s.RefreshToken(context.Background(), "r")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestRefreshToken_FindErr(t *testing.T) {
	s, _ := newUserService(t, &fakeRepoManager{r: &fakeRefreshRepo{findErr: errBoom}})

	_, err := s.RefreshToken(context.Background(), "r")
	require.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "error searching refresh token")
}

func TestRefreshToken_DeleteErrRollsBack(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	rt := &fakeRefreshRepo{
		findOut: &models.RefreshToken{UserID: "u1", Expires: time.Now().Add(10 * time.Minute)},
		delErr:  errBoom,
	}
	s := NewUserService(db, &fakeRepoManager{r: rt}, &config.Config{SecretKey: testSecret}, logging.Discard())

	_, err := s.RefreshToken(context.Background(), "r")
	require.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "error deleting refresh token")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshToken_CreateErrRollsBack(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	rt := &fakeRefreshRepo{
		findOut:   &models.RefreshToken{UserID: "u1", Expires: time.Now().Add(10 * time.Minute)},
		createErr: errBoom,
	}
	s := NewUserService(db, &fakeRepoManager{r: rt}, &config.Config{SecretKey: testSecret}, logging.Discard())

	_, err := s.RefreshToken(context.Background(), "r")
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		u := &fakeUsersRepo{createOut: &models.User{ID: "42", UserName: "alice"}}
		s, _ := newUserService(t, &fakeRepoManager{u: u})

		got, err := s.Register(context.Background(), "  alice ", []byte("s"), []byte("v"))
		require.NoError(t, err)
		assert.Equal(t, "42", got.ID)
		assert.Equal(t, "alice", u.created.UserName)
	})

	t.Run("missing fields", func(t *testing.T) {
		s, _ := newUserService(t, &fakeRepoManager{u: &fakeUsersRepo{}})

		_, err := s.Register(context.Background(), " ", []byte("s"), []byte("v"))
		assert.ErrorIs(t, err, common.ErrorValidation)
		_, err = s.Register(context.Background(), "bob", nil, []byte("v"))
		assert.ErrorIs(t, err, common.ErrorValidation)
	})

	t.Run("taken", func(t *testing.T) {
		s, _ := newUserService(t, &fakeRepoManager{u: &fakeUsersRepo{createErr: common.ErrorAlreadyExists}})

		_, err := s.Register(context.Background(), "bob", []byte("s"), []byte("v"))
		assert.ErrorIs(t, err, common.ErrorAlreadyExists)
	})
}

func TestGetSalt(t *testing.T) {
	s, _ := newUserService(t, &fakeRepoManager{u: &fakeUsersRepo{getOut: &models.User{Salt: []byte("SALT")}}})
	salt, err := s.GetSalt(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []byte("SALT"), salt)

	s, _ = newUserService(t, &fakeRepoManager{u: &fakeUsersRepo{getErr: common.ErrorNotFound}})
	fake1, err := s.GetSalt(context.Background(), "ghost")
	require.NoError(t, err)
	fake2, _ := s.GetSalt(context.Background(), "ghost")
	other, _ := s.GetSalt(context.Background(), "phantom")
	assert.Len(t, fake1, saltSize)
	assert.Equal(t, fake1, fake2, "fake salt is stable per username")
	assert.NotEqual(t, fake1, other)

	s, _ = newUserService(t, &fakeRepoManager{u: &fakeUsersRepo{getErr: errBoom}})
	_, err = s.GetSalt(context.Background(), "xx")
	assert.ErrorIs(t, err, common.ErrorInternal)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	s, _ := newUserService(t, &fakeRepoManager{u: &fakeUsersRepo{getErr: common.ErrorNotFound}})
	_, err := s.Login(ctx, "ghost", []byte("x"))
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	s, _ = newUserService(t, &fakeRepoManager{u: &fakeUsersRepo{getErr: errBoom}})
	_, err = s.Login(ctx, "u", []byte("x"))
	assert.ErrorIs(t, err, common.ErrorInternal)

	s, _ = newUserService(t, &fakeRepoManager{u: &fakeUsersRepo{getOut: &models.User{ID: "u1", Verifier: []byte("right")}}})
	_, err = s.Login(ctx, "u", []byte("wrong"))
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestLogin_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	rt := &fakeRefreshRepo{}
	rm := &fakeRepoManager{
		u: &fakeUsersRepo{getOut: &models.User{ID: "u1", UserName: "alice", Verifier: []byte("right")}},
		r: rt,
	}
	s := NewUserService(db, rm, &config.Config{SecretKey: testSecret, AccessTokenValidityDuration: time.Hour}, logging.Discard())

	pair, err := s.Login(context.Background(), "alice", []byte("right"))
	require.NoError(t, err)
	assert.Equal(t, []string{pair.RefreshToken}, rt.created)

	userID, err := auth.GetUserIDFromToken(pair.AccessToken, []byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_CleanupErrRollsBack(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	rm := &fakeRepoManager{
		u: &fakeUsersRepo{getOut: &models.User{ID: "u1", Verifier: []byte("right")}},
		r: &fakeRefreshRepo{expiredErr: errBoom},
	}
	s := NewUserService(db, rm, &config.Config{SecretKey: testSecret}, logging.Discard())

	_, err := s.Login(context.Background(), "alice", []byte("right"))
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateTokenPair_Seams(t *testing.T) {
	origRefresh, origAccess := makeRefreshToken, generateAccessToken
	t.Cleanup(func() { makeRefreshToken, generateAccessToken = origRefresh, origAccess })

	s, _ := newUserService(t, &fakeRepoManager{r: &fakeRefreshRepo{}})

	makeRefreshToken = func() (string, error) { return "", errBoom }
	_, err := s.generateTokenPair(context.Background(), s.db, "u1", "alice")
	assert.ErrorIs(t, err, common.ErrorInternal)

	makeRefreshToken = origRefresh
	generateAccessToken = func(string, string, []byte, time.Duration) (string, error) { return "", errBoom }
	_, err = s.generateTokenPair(context.Background(), s.db, "u1", "alice")
	assert.ErrorIs(t, err, common.ErrorInternal)
}
