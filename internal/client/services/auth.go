// Package services contains application services for the Image Studio CLI.
// This file defines the authentication service. It logs in against the
// server (or against a cached login while offline) and publishes the
// resulting identity to the broadcaster the edit session listens on.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/imagestudio/internal/client/client"
	"github.com/dmitrijs2005/imagestudio/internal/client/identity"
	"github.com/dmitrijs2005/imagestudio/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/imagestudio/internal/common"
	"github.com/dmitrijs2005/imagestudio/internal/cryptox"
	"github.com/dmitrijs2005/imagestudio/internal/dbx"
	"github.com/dmitrijs2005/imagestudio/internal/server/auth"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - OnlineLogin: authenticate against the server, cache the login locally
//     and publish the identity.
//   - OfflineLogin: verify credentials against the cached login and publish
//     the cached identity.
//   - Register: create a new user on the server.
//   - Logout: forget tokens and the cached login, publish "no identity".
//   - Ping: check server liveness.
//   - Close: release underlying client resources.
type AuthService interface {
	OnlineLogin(ctx context.Context, username string, password []byte) (*identity.Identity, error)
	OfflineLogin(ctx context.Context, username string, password []byte) (*identity.Identity, error)
	Register(ctx context.Context, username string, password []byte) error
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	client client.Client
	db     *sql.DB
	ids    *identity.Broadcaster
}

// NewAuthService constructs an AuthService bound to the API client, the
// local database and the identity broadcaster.
func NewAuthService(c client.Client, db *sql.DB, ids *identity.Broadcaster) AuthService {
	return &authService{client: c, db: db, ids: ids}
}

func (a *authService) metadataRepo(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

// OnlineLogin fetches the user's salt, proves knowledge of the password
// with the derived verifier and reads the user id out of the issued token.
func (a *authService) OnlineLogin(ctx context.Context, username string, password []byte) (*identity.Identity, error) {
	salt, err := a.client.GetSalt(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get salt error: %w", err)
	}

	verifier := cryptox.VerifierFor(password, salt)

	token, err := a.client.Login(ctx, username, verifier)
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}

	claims, err := auth.ParseUnverified(token)
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}

	id := &identity.Identity{UserID: claims.UserID, Name: username}

	if err := a.saveOfflineData(ctx, id, salt, verifier); err != nil {
		return nil, fmt.Errorf("offline data saving error: %w", err)
	}

	a.ids.Publish(id)
	return id, nil
}

func (a *authService) saveOfflineData(ctx context.Context, id *identity.Identity, salt, verifier []byte) error {
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := a.metadataRepo(tx)
		for k, v := range map[string][]byte{
			metadata.KeyUsername: []byte(id.Name),
			metadata.KeyUserID:   []byte(id.UserID),
			metadata.KeySalt:     salt,
			metadata.KeyVerifier: verifier,
		} {
			if err := repo.Set(ctx, k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// OfflineLogin verifies the password against the cached verifier. It
// returns client.ErrLocalDataNotAvailable when nothing is cached and
// client.ErrUnauthorized on a mismatch.
func (a *authService) OfflineLogin(ctx context.Context, username string, password []byte) (*identity.Identity, error) {
	stored, err := a.metadataRepo(a.db).List(ctx)
	if err != nil {
		return nil, err
	}

	savedUsername, ok1 := stored[metadata.KeyUsername]
	userID, ok2 := stored[metadata.KeyUserID]
	salt, ok3 := stored[metadata.KeySalt]
	verifier, ok4 := stored[metadata.KeyVerifier]
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, client.ErrLocalDataNotAvailable
	}

	if string(savedUsername) != username {
		return nil, client.ErrUnauthorized
	}

	if !cryptox.EqualVerifiers(verifier, cryptox.VerifierFor(password, salt)) {
		return nil, client.ErrUnauthorized
	}

	id := &identity.Identity{UserID: string(userID), Name: username}
	a.ids.Publish(id)
	return id, nil
}

// Register creates a new account on the server. It generates a random salt,
// derives the verifier from the password and sends salt and verifier.
func (a *authService) Register(ctx context.Context, username string, password []byte) error {
	salt := common.GenerateRandByteArray(32)
	verifier := cryptox.VerifierFor(password, salt)

	return a.client.Register(ctx, username, salt, verifier)
}

// Logout drops the tokens and the cached login, then publishes "no identity"
// so history writes stop immediately.
func (a *authService) Logout(ctx context.Context) error {
	a.client.Logout()
	a.ids.Publish(nil)

	if err := a.metadataRepo(a.db).Clear(ctx); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("clear offline data: %w", err)
	}
	return nil
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
