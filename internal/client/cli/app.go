package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/imagestudio/internal/client/client"
	"github.com/dmitrijs2005/imagestudio/internal/client/config"
	"github.com/dmitrijs2005/imagestudio/internal/client/generation"
	"github.com/dmitrijs2005/imagestudio/internal/client/history"
	"github.com/dmitrijs2005/imagestudio/internal/client/identity"
	"github.com/dmitrijs2005/imagestudio/internal/client/models"
	"github.com/dmitrijs2005/imagestudio/internal/client/repositories/histories"
	"github.com/dmitrijs2005/imagestudio/internal/client/services"
	"github.com/dmitrijs2005/imagestudio/internal/client/session"
	"github.com/dmitrijs2005/imagestudio/internal/feature"
	"github.com/dmitrijs2005/imagestudio/internal/logging"
)

type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

const pingTimeout = 3 * time.Second

// editSession is what the CLI needs from session.Controller.
type editSession interface {
	Current() *models.Edit
	UploadImage(payload string) (models.Edit, error)
	Clear()
	Submit(ctx context.Context, prompt string, f feature.Feature) (models.Edit, error)
	Close()
}

// historyBrowser is what the CLI needs from history.Synchronizer.
type historyBrowser interface {
	List(ctx context.Context, userID string) ([]models.HistoryEntry, error)
	Search(ctx context.Context, userID, term string) ([]models.HistoryEntry, error)
	Get(ctx context.Context, userID, id string) (*models.HistoryEntry, error)
	Delete(ctx context.Context, userID, id string) error
}

type App struct {
	config      *config.Config
	log         logging.Logger
	out         io.Writer
	reader      *bufio.Reader
	authService services.AuthService
	session     editSession
	history     historyBrowser
	ids         identity.Source
	closers     []func() error

	// feature used by a bare "submit"
	feature feature.Feature

	modeMu sync.Mutex
	mode   Mode
}

// NewApp opens the local database, dials the server and wires the edit
// session to the generation API and the configured history backend.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	db, err := client.InitDatabase(ctx, c.LocalDBPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var store history.Store = apiClient
	if c.HistoryBackend == config.BackendLocal {
		store = histories.NewSQLiteRepository(db)
	}

	ids := identity.NewBroadcaster()
	syncer := history.NewSynchronizer(store, log)
	gen := generation.NewHTTPService(c.GenerateURL, c.GenerateTimeout, log)
	out := os.Stdout
	ctrl := session.NewController(gen, syncer, ids, newConsolePresenter(out), log)

	a := &App{
		config:      c,
		log:         log.With("module", "cli"),
		out:         out,
		reader:      bufio.NewReader(os.Stdin),
		authService: services.NewAuthService(apiClient, db, ids),
		session:     ctrl,
		history:     syncer,
		ids:         ids,
		feature:     feature.Edit,
	}
	a.closers = []func() error{db.Close}
	return a, nil
}

// Run starts the connectivity watcher and blocks in the REPL until the
// user exits or input ends.
func (a *App) Run(ctx context.Context) {
	defer a.Close(ctx)

	a.printf("Welcome to Image Studio CLI (type 'help' for commands)\n")

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartOnlineStatusWatcher(watchCtx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}

// Close waits for pending history writes, then releases the client and
// the local database.
func (a *App) Close(ctx context.Context) {
	a.session.Close()
	var errs []error
	if err := a.authService.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.log.Warn(ctx, "shutdown", "error", err)
	}
}

func (a *App) Mode() Mode {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.modeMu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.modeMu.Unlock()

	if changed {
		a.printf("Switched to %s mode\n", mode)
	}
}

func (a *App) isLoggedIn() bool {
	return a.ids.Current() != nil
}

func (a *App) getStatus() string {
	s := ""
	if id := a.ids.Current(); id != nil {
		s = id.Name + " "
	}
	if m := a.Mode(); m != "" {
		s += string(m)
	}
	if s != "" {
		s = fmt.Sprintf("(%s) ", s)
	}
	return s + string(a.feature)
}

// StartOnlineStatusWatcher pings the server every interval and flips
// between online and offline mode. It returns when ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := a.authService.Ping(pctx)
			cancel()

			if err != nil {
				if a.Mode() == ModeOnline {
					a.log.Debug(ctx, "server unreachable", "error", err)
					a.setMode(ModeOffline)
				}
			} else if a.Mode() != ModeOnline {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
