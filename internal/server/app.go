// Package server wires the Studio backend: Postgres storage, the optional
// S3 image store, the image provider, the gRPC account/history service and
// the HTTP generation API.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/imagestudio/internal/logging"
	"github.com/dmitrijs2005/imagestudio/internal/server/blobs"
	"github.com/dmitrijs2005/imagestudio/internal/server/config"
	"github.com/dmitrijs2005/imagestudio/internal/server/httpapi"
	"github.com/dmitrijs2005/imagestudio/internal/server/providers/gemini"
	"github.com/dmitrijs2005/imagestudio/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/imagestudio/internal/server/services"

	gs "github.com/dmitrijs2005/imagestudio/internal/server/grpc"
)

// test seams
var (
	openDB         = repomanager.OpenDB
	newRepoManager = func() repomanager.RepositoryManager { return repomanager.NewPostgresRepositoryManager() }
	newBlobStore   = func(ctx context.Context, o blobs.Options) (blobs.Store, error) { return blobs.NewS3Store(ctx, o) }
)

var logOutput io.Writer = os.Stdout

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB

	grpcServer *gs.GRPCServer
	httpAPI    *httpapi.API
}

// NewApp connects to the database, applies migrations and builds every
// service. The caller must Run or Close the app.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogFormat, c.LogLevel, logOutput)
	if err != nil {
		return nil, err
	}

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := newRepoManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	var store blobs.Store
	if c.BlobOffload {
		store, err = newBlobStore(ctx, blobs.Options{
			AccessKey: c.S3RootUser,
			SecretKey: c.S3RootPassword,
			Region:    c.S3Region,
			Endpoint:  c.S3BaseEndpoint,
			Bucket:    c.S3Bucket,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("blob store init error: %w", err)
		}
		logger.Info(ctx, "History images are offloaded", "bucket", c.S3Bucket)
	}

	provider := gemini.NewClient(gemini.Options{
		APIKey:  c.GeminiAPIKey,
		BaseURL: c.GeminiBaseURL,
		Model:   c.GeminiModel,
		Timeout: c.GeminiTimeout,
		Logger:  logger,
	})

	us := services.NewUserService(db, rm, c, logger)
	hs := services.NewHistoryService(db, rm, store, logger)
	gen := services.NewGenerateService(provider, logger)

	return &App{
		config:     c,
		logger:     logger,
		db:         db,
		grpcServer: gs.NewGRPCServer(c.EndpointAddrGRPC, logger, us, hs, c.SecretKey, c.MaxMessageBytes),
		httpAPI:    httpapi.NewAPI(gen, logger, int64(c.MaxMessageBytes)),
	}, nil
}

// Run serves gRPC and HTTP until ctx is done or either server fails, then
// closes the database.
func (app *App) Run(ctx context.Context) error {
	defer app.Close()

	app.logger.Info(ctx, "Starting app...")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.grpcServer.Run(ctx)
	})
	g.Go(func() error {
		return httpapi.Run(ctx, app.config.EndpointAddrHTTP, app.httpAPI.Router(), app.logger)
	})

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "server stopped", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
	return err
}

func (app *App) Close() {
	if err := app.db.Close(); err != nil {
		app.logger.Warn(context.Background(), "db close failed", "error", err)
	}
}
