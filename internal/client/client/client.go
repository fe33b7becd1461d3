package client

import (
	"context"

	"github.com/dmitrijs2005/imagestudio/internal/client/models"
)

// Client is the CLI's view of the Studio backend: authentication, liveness
// and the remote history store.
type Client interface {
	Close() error
	Register(ctx context.Context, username string, salt []byte, verifier []byte) error
	GetSalt(ctx context.Context, username string) ([]byte, error)
	// Login stores the issued token pair and returns the access token.
	Login(ctx context.Context, username string, verifier []byte) (string, error)
	// Logout forgets the stored tokens.
	Logout()
	Ping(ctx context.Context) error

	Fetch(ctx context.Context, userID string) (*models.History, error)
	Upsert(ctx context.Context, userID string, h *models.History) (int64, error)
}
