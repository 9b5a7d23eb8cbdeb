package contact

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	AutosaveDelay       = 2 * time.Second
	DraftSavedDisplay   = 2 * time.Second
	SubmittedDisplay    = 5 * time.Second
	CopyFeedbackDisplay = 2 * time.Second

	// Drafts are only worth keeping once the message has some substance.
	minAutosaveLength = 10
)

// ErrClosed is returned by operations on a controller that has been closed.
var ErrClosed = errors.New("contact form closed")

// Options wires a Controller to its collaborators. Storage and Relay are
// required; the rest have defaults.
type Options struct {
	Storage   Storage
	Relay     Relay
	Scheduler Scheduler
	Clipboard Clipboard
	Logger    *zap.Logger
}

// Controller owns one visitor's contact form. All methods are safe for
// concurrent use; timer callbacks and relay results are applied under the
// same lock as edits, and nothing is applied once Close has returned.
type Controller struct {
	mu sync.Mutex

	storage   Storage
	relay     Relay
	scheduler Scheduler
	clipboard Clipboard
	logger    *zap.Logger

	draft      Draft
	status     Status
	draftSaved bool
	copied     map[string]bool

	// Every pending timer is registered here so Close can release it.
	timers     map[uint64]func()
	nextTimer  uint64
	autosave   uint64
	savedTimer uint64
	resetTimer uint64
	copyTimers map[string]uint64

	closed bool
}

// New builds a controller and rehydrates any draft left in storage.
func New(opts Options) *Controller {
	c := &Controller{
		storage:    opts.Storage,
		relay:      opts.Relay,
		scheduler:  opts.Scheduler,
		clipboard:  opts.Clipboard,
		logger:     opts.Logger,
		copied:     make(map[string]bool),
		timers:     make(map[uint64]func()),
		copyTimers: make(map[string]uint64),
	}
	if c.scheduler == nil {
		c.scheduler = RealTime
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.storage == nil {
		c.storage = NewMemoryStorage()
	}

	c.rehydrate()
	return c
}

func (c *Controller) rehydrate() {
	b, ok, err := c.storage.Get(DraftKey)
	if err != nil {
		c.logger.Warn("Error loading contact draft", zap.Error(err))
		return
	}
	if !ok {
		return
	}

	d, err := decodeDraft(b)
	if err != nil {
		c.logger.Warn("Discarding unreadable contact draft", zap.Error(err))
		return
	}
	c.draft = d
}

// UpdateField sets one field of the draft. A message longer than
// MaxMessageLength is dropped without error and the previous message kept.
func (c *Controller) UpdateField(f Field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	next, ok, err := c.draft.with(f, value)
	if err != nil || !ok {
		return err
	}
	c.draft = next

	c.cancel(c.autosave)
	c.autosave = c.schedule(AutosaveDelay, c.onAutosave)
	return nil
}

// Validate checks the current draft without changing it.
func (c *Controller) Validate() *ValidationError {
	return Validate(c.Draft())
}

// Submit validates the draft and, if it passes, sends it through the relay.
// While a submission is in flight, or its success is still being shown,
// further calls return the current status without doing anything.
func (c *Controller) Submit(ctx context.Context) Status {
	c.mu.Lock()
	if c.closed || c.status.State == Submitting || c.status.State == Submitted {
		st := c.status
		c.mu.Unlock()
		return st
	}

	c.cancel(c.resetTimer)
	c.resetTimer = 0

	if verr := Validate(c.draft); verr != nil {
		c.status = failed(FailureValidation, verr.Message)
		st := c.status
		c.mu.Unlock()
		c.logger.Debug("Contact form failed validation", zap.String("field", string(verr.Field)))
		return st
	}

	c.status = Status{State: Submitting}
	d := c.draft
	c.mu.Unlock()

	err := c.relay.Send(ctx, d)
	return c.onSubmitted(err)
}

// onSubmitted applies a relay result unless the controller was closed
// while the request was in flight.
func (c *Controller) onSubmitted(err error) Status {
	next := statusFor(err)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		c.logger.Debug("Dropping relay result after close", zap.Stringer("state", next.State))
		return next
	}
	c.status = next

	if err != nil {
		c.logger.Warn("Contact submission failed",
			zap.Stringer("kind", next.Kind),
			zap.Error(err))
		return next
	}

	c.draft = Draft{}
	c.cancel(c.autosave)
	c.autosave = 0
	if err := c.storage.Delete(DraftKey); err != nil {
		c.logger.Warn("Error removing contact draft", zap.Error(err))
	}
	c.resetTimer = c.schedule(SubmittedDisplay, c.onSubmittedExpired)

	c.logger.Info("Contact submission delivered")
	return next
}

// CopyToClipboard copies value and flags label as just copied. Failures are
// logged and returned; they never touch the submission status.
func (c *Controller) CopyToClipboard(value, label string) error {
	return c.CopyWith(c.clipboard, value, label)
}

// CopyWith is CopyToClipboard through clip instead of the controller's own
// clipboard, for copies performed elsewhere (e.g. by the visitor's browser).
func (c *Controller) CopyWith(clip Clipboard, value, label string) error {
	if clip == nil {
		c.logger.Warn("Failed to copy", zap.String("label", label), zap.Error(ErrClipboardUnavailable))
		return ErrClipboardUnavailable
	}
	if err := clip.Write(value); err != nil {
		c.logger.Warn("Failed to copy", zap.String("label", label), zap.Error(err))
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}

	c.copied[label] = true
	c.cancel(c.copyTimers[label])
	c.copyTimers[label] = c.schedule(CopyFeedbackDisplay, func() { c.onCopyExpired(label) })
	return nil
}

// Close cancels every pending timer. Later relay results and timer
// callbacks are ignored. The persisted draft is left alone.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	for id, cancel := range c.timers {
		cancel()
		delete(c.timers, id)
	}
}

func (c *Controller) onAutosave() {
	c.autosave = 0
	if length(c.draft.Message) <= minAutosaveLength {
		return
	}

	b, err := encodeDraft(c.draft)
	if err == nil {
		err = c.storage.Set(DraftKey, b)
	}
	if err != nil {
		c.logger.Warn("Error saving contact draft", zap.Error(err))
		return
	}

	c.draftSaved = true
	c.cancel(c.savedTimer)
	c.savedTimer = c.schedule(DraftSavedDisplay, c.onDraftSavedExpired)
}

func (c *Controller) onDraftSavedExpired() {
	c.savedTimer = 0
	c.draftSaved = false
}

func (c *Controller) onSubmittedExpired() {
	c.resetTimer = 0
	if c.status.State == Submitted {
		c.status = Status{}
	}
}

func (c *Controller) onCopyExpired(label string) {
	delete(c.copyTimers, label)
	delete(c.copied, label)
}

// schedule registers handler to run after d under c.mu. Callers hold c.mu.
func (c *Controller) schedule(d time.Duration, handler func()) uint64 {
	c.nextTimer++
	id := c.nextTimer
	c.timers[id] = c.scheduler.AfterFunc(d, func() { c.fire(id, handler) })
	return id
}

func (c *Controller) fire(id uint64, handler func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if _, pending := c.timers[id]; !pending {
		return
	}
	delete(c.timers, id)
	handler()
}

// cancel stops a pending timer. Callers hold c.mu.
func (c *Controller) cancel(id uint64) {
	if cancel, ok := c.timers[id]; ok {
		cancel()
		delete(c.timers, id)
	}
}

// Draft returns a copy of the current draft.
func (c *Controller) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Status returns the current submission status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// MessageCount is the length of the message, in characters.
func (c *Controller) MessageCount() int {
	return length(c.Draft().Message)
}

// DraftSaved reports whether an autosave happened within the last two seconds.
func (c *Controller) DraftSaved() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draftSaved
}

// Copied reports whether label was copied within the last two seconds.
func (c *Controller) Copied(label string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copied[label]
}

// PendingTimers is the number of timers that have not fired or been cancelled.
func (c *Controller) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// View is a consistent snapshot of everything the form renders.
type View struct {
	Draft        Draft
	Status       Status
	MessageCount int
	MaxMessage   int
	Counter      CounterLevel
	DraftSaved   bool
	Copied       map[string]bool
}

// View snapshots the controller for rendering.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := length(c.draft.Message)
	return View{
		Draft:        c.draft,
		Status:       c.status,
		MessageCount: n,
		MaxMessage:   MaxMessageLength,
		Counter:      counterLevel(n),
		DraftSaved:   c.draftSaved,
		Copied:       maps.Clone(c.copied),
	}
}
