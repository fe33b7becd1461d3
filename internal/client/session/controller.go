// Package session owns the single current edit of a user session: its
// lifecycle, the dispatch of generation requests and the hand-off of
// completed edits to history.
//
// There is no cancellation of in-flight generation. Every command that
// replaces the visible edit bumps an attempt counter, and a response is
// applied only if its (record ID, attempt) tag still matches.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/imagestudio/internal/client/generation"
	"github.com/dmitrijs2005/imagestudio/internal/client/identity"
	"github.com/dmitrijs2005/imagestudio/internal/client/models"
	"github.com/dmitrijs2005/imagestudio/internal/feature"
	"github.com/dmitrijs2005/imagestudio/internal/logging"
)

// Presenter receives state changes. Calls are made without the controller
// lock held and may come from a background goroutine. EditChanged and
// BusyChanged are delivered one at a time in state order; an update that
// lost to a newer one is dropped, so the last call always matches Current.
type Presenter interface {
	// EditChanged gets a copy of the current edit, or nil for none.
	EditChanged(e *models.Edit)
	BusyChanged(busy bool)
	Notify(n models.Notification)
}

// Appender is the part of the history synchronizer the controller needs.
type Appender interface {
	Append(ctx context.Context, userID string, entry models.HistoryEntry) error
}

// test seams
var (
	newID = uuid.NewString
	now   = time.Now
)

type Controller struct {
	gen       generation.Service
	history   Appender
	ids       identity.Source
	presenter Presenter
	log       logging.Logger

	unsubscribe func()
	syncs       sync.WaitGroup

	mu       sync.Mutex
	current  *models.Edit
	identity *identity.Identity
	attempt  uint64
	// inflight is the attempt of the latest unresolved submission, 0 if none
	inflight uint64
	// view numbers every state change handed to the presenter
	view uint64

	presentMu sync.Mutex
	shown     uint64
	shownBusy bool
}

// NewController wires the controller and subscribes to ids. history may be
// nil to disable syncing, presenter may be nil to drop UI callbacks.
func NewController(gen generation.Service, history Appender, ids identity.Source, presenter Presenter, log logging.Logger) *Controller {
	if presenter == nil {
		presenter = nopPresenter{}
	}
	c := &Controller{
		gen:       gen,
		history:   history,
		ids:       ids,
		presenter: presenter,
		log:       log.With("module", "session"),
	}
	c.unsubscribe = ids.Subscribe(c.setIdentity)
	return c
}

func (c *Controller) setIdentity(id *identity.Identity) {
	c.mu.Lock()
	c.identity = id
	c.mu.Unlock()
}

// Current returns a copy of the current edit, or nil.
func (c *Controller) Current() *models.Edit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyEdit(c.current)
}

// Busy is true while the latest submission awaits its response.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight != 0
}

// UploadImage starts a fresh edit for payload (a data URL), discarding any
// previous one. The feature defaults to edit.
func (c *Controller) UploadImage(payload string) (models.Edit, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		c.presenter.Notify(models.Failure(validationMessage(ErrEmptyImage, feature.Edit)))
		return models.Edit{}, ErrEmptyImage
	}

	c.mu.Lock()
	c.attempt++
	c.inflight = 0
	c.current = &models.Edit{
		ID:          newID(),
		SourceImage: payload,
		Feature:     feature.Edit,
		CreatedAt:   now(),
		Status:      models.StatusPending,
	}
	snapshot := *c.current
	seq := c.nextView()
	c.mu.Unlock()

	c.show(seq, &snapshot, false)
	return snapshot, nil
}

// Clear discards the current edit without touching history.
func (c *Controller) Clear() {
	c.mu.Lock()
	c.attempt++
	c.inflight = 0
	c.current = nil
	seq := c.nextView()
	c.mu.Unlock()

	c.show(seq, nil, false)
}

// Submit validates the command, moves the edit to pending and issues exactly
// one generation request. It blocks until the response arrives and returns
// the resulting edit. Validation failures leave the state unchanged. A
// response that lost to a newer command yields ErrSuperseded.
func (c *Controller) Submit(ctx context.Context, prompt string, f feature.Feature) (models.Edit, error) {
	prompt = strings.TrimSpace(prompt)

	c.mu.Lock()
	if err := c.validate(prompt, f); err != nil {
		c.mu.Unlock()
		c.log.Debug(ctx, "submit rejected", "feature", f, "error", err)
		c.presenter.Notify(models.Failure(validationMessage(err, f)))
		return models.Edit{}, err
	}

	var source string
	if c.current != nil {
		source = c.current.SourceImage
	}
	req, err := generation.BuildRequest(f, prompt, source)
	if err != nil {
		c.mu.Unlock()
		c.presenter.Notify(models.Failure(validationMessage(err, f)))
		return models.Edit{}, err
	}

	rec := c.target()
	rec.Prompt = prompt
	rec.Feature = f
	rec.ResultImage = ""
	rec.Status = models.StatusPending
	c.current = rec

	c.attempt++
	c.inflight = c.attempt
	tag := requestTag{recordID: rec.ID, attempt: c.attempt}
	pending := *rec
	seq := c.nextView()
	c.mu.Unlock()

	c.show(seq, &pending, true)
	c.log.Info(ctx, "generation requested", "edit_id", tag.recordID, "attempt", tag.attempt, "feature", f)

	result, genErr := c.gen.Generate(ctx, req)
	if genErr == nil && strings.TrimSpace(result) == "" {
		genErr = generation.ErrMissingResult
	}

	return c.resolve(ctx, tag, result, genErr)
}

type requestTag struct {
	recordID string
	attempt  uint64
}

func (c *Controller) resolve(ctx context.Context, tag requestTag, result string, genErr error) (models.Edit, error) {
	c.mu.Lock()
	if c.current == nil || c.current.ID != tag.recordID || c.attempt != tag.attempt {
		c.mu.Unlock()
		c.log.Info(ctx, "stale generation response discarded", "edit_id", tag.recordID, "attempt", tag.attempt)
		return models.Edit{}, ErrSuperseded
	}

	c.inflight = 0
	rec := c.current
	f := rec.Feature

	if genErr != nil {
		rec.Status = models.StatusError
		rec.ResultImage = ""
		snapshot := *rec
		seq := c.nextView()
		c.mu.Unlock()

		c.log.Warn(ctx, "generation failed", "edit_id", tag.recordID, "feature", f, "error", genErr)
		c.show(seq, &snapshot, false)
		c.presenter.Notify(models.Failure(failureMessage(f, genErr)))
		return snapshot, genErr
	}

	rec.Status = models.StatusCompleted
	rec.ResultImage = result
	snapshot := *rec
	eligible := c.identity != nil && c.history != nil
	seq := c.nextView()
	c.mu.Unlock()

	c.log.Info(ctx, "generation completed", "edit_id", tag.recordID, "feature", f, "sync", eligible)
	c.show(seq, &snapshot, false)
	c.presenter.Notify(models.Success(f.SuccessMessage()))

	if eligible {
		c.syncs.Add(1)
		go c.sync(context.WithoutCancel(ctx), snapshot.HistoryEntry())
	}
	return snapshot, nil
}

// sync appends entry for whoever is logged in right now, read from the
// source at the moment of the write. Failures never touch the edit; they
// are logged and surfaced as a separate toast.
func (c *Controller) sync(ctx context.Context, entry models.HistoryEntry) {
	defer c.syncs.Done()

	id := c.ids.Current()

	if id == nil {
		c.log.Info(ctx, "history sync skipped, user logged out", "edit_id", entry.ID)
		return
	}

	if err := c.history.Append(ctx, id.UserID, entry); err != nil {
		c.log.Error(ctx, "history sync failed", "edit_id", entry.ID, "user_id", id.UserID, "error", err)
		c.presenter.Notify(models.Failure("Couldn't save to history: " + err.Error()))
		return
	}
	c.log.Debug(ctx, "history synced", "edit_id", entry.ID, "user_id", id.UserID)
}

// nextView must be called with mu held.
func (c *Controller) nextView() uint64 {
	c.view++
	return c.view
}

// show hands the state numbered seq to the presenter unless a newer state
// was already shown. busy is reported only when it changes.
func (c *Controller) show(seq uint64, e *models.Edit, busy bool) {
	c.presentMu.Lock()
	defer c.presentMu.Unlock()

	if seq < c.shown {
		return
	}
	c.shown = seq

	c.presenter.EditChanged(copyEdit(e))
	if busy != c.shownBusy {
		c.shownBusy = busy
		c.presenter.BusyChanged(busy)
	}
}

// Wait blocks until background history syncs have finished.
func (c *Controller) Wait() {
	c.syncs.Wait()
}

// Close stops following identity changes and waits for pending syncs.
func (c *Controller) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.Wait()
}

// validate must be called with mu held.
func (c *Controller) validate(prompt string, f feature.Feature) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if prompt == "" && !f.AllowsEmptyPrompt() {
		return ErrEmptyPrompt
	}
	if f.RequiresImage() && (c.current == nil || c.current.SourceImage == "") {
		return ErrMissingSourceImage
	}
	return nil
}

// target picks the record a submission applies to: a new one when there is
// none, a fork of a completed one so history IDs stay unique, otherwise the
// current record. Must be called with mu held.
func (c *Controller) target() *models.Edit {
	switch {
	case c.current == nil:
		return &models.Edit{ID: newID(), CreatedAt: now()}
	case c.current.Status == models.StatusCompleted:
		return &models.Edit{ID: newID(), SourceImage: c.current.SourceImage, CreatedAt: now()}
	default:
		return c.current
	}
}

func failureMessage(f feature.Feature, err error) string {
	if reason := generation.Reason(err); reason != "" {
		return f.ReasonMessage(reason)
	}
	if errors.Is(err, generation.ErrTransport) {
		return "Image service is unreachable. " + f.FailureMessage()
	}
	return f.FailureMessage()
}

func copyEdit(e *models.Edit) *models.Edit {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

type nopPresenter struct{}

func (nopPresenter) EditChanged(*models.Edit) {}
func (nopPresenter) BusyChanged(bool) {}
func (nopPresenter) Notify(models.Notification) {}
