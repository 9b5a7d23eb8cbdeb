package contact

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// fakeClock is a Scheduler driven by Advance.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending []*fakeTimer
}

type fakeTimer struct {
	at      time.Duration
	seq     int
	f       func()
	stopped bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &fakeTimer{at: c.now + d, seq: c.seq, f: f}
	c.pending = append(c.pending, t)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		t.stopped = true
	}
}

// Advance moves time forward, running due timers in order. Timers scheduled
// by a running callback fire in the same call if they fall due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		idx := -1
		for i, t := range c.pending {
			if t.stopped || t.at > target {
				continue
			}
			if idx < 0 || t.at < c.pending[idx].at || (t.at == c.pending[idx].at && t.seq < c.pending[idx].seq) {
				idx = i
			}
		}
		if idx < 0 {
			c.now = target
			c.mu.Unlock()
			return
		}
		next := c.pending[idx]
		c.pending = append(c.pending[:idx], c.pending[idx+1:]...)
		c.now = next.at
		c.mu.Unlock()

		next.f()
	}
}

func (c *fakeClock) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.pending {
		if !t.stopped {
			n++
		}
	}
	return n
}

type relayFunc func(ctx context.Context, d Draft) error

func (f relayFunc) Send(ctx context.Context, d Draft) error { return f(ctx, d) }

// countingRelay records how many times it was called.
type countingRelay struct {
	calls atomic.Int32
	err   error
}

func (r *countingRelay) Send(ctx context.Context, d Draft) error {
	r.calls.Add(1)
	return r.err
}

type harness struct {
	ctrl    *Controller
	clock   *fakeClock
	storage *MemoryStorage
}

func newHarness(t *testing.T, relay Relay) *harness {
	t.Helper()
	h := &harness{clock: &fakeClock{}, storage: NewMemoryStorage()}
	h.ctrl = New(Options{
		Storage:   h.storage,
		Relay:     relay,
		Scheduler: h.clock,
		Clipboard: ClipboardFunc(func(string) error { return nil }),
	})
	t.Cleanup(h.ctrl.Close)
	return h
}

func (h *harness) fill(t *testing.T, d Draft) {
	t.Helper()
	require.NoError(t, h.ctrl.UpdateField(FieldName, d.Name))
	require.NoError(t, h.ctrl.UpdateField(FieldEmail, d.Email))
	require.NoError(t, h.ctrl.UpdateField(FieldSubject, d.Subject))
	require.NoError(t, h.ctrl.UpdateField(FieldMessage, d.Message))
}

func (h *harness) persisted(t *testing.T) (Draft, bool) {
	t.Helper()
	b, ok, err := h.storage.Get(DraftKey)
	require.NoError(t, err)
	if !ok {
		return Draft{}, false
	}
	d, err := decodeDraft(b)
	require.NoError(t, err)
	return d, true
}

func TestNewStartsIdleAndEmpty(t *testing.T) {
	h := newHarness(t, &countingRelay{})

	assert.Equal(t, Draft{}, h.ctrl.Draft())
	assert.Equal(t, Idle, h.ctrl.Status().State)
	assert.Equal(t, 0, h.ctrl.MessageCount())
	assert.False(t, h.ctrl.DraftSaved())
}

func TestUpdateFieldUnknown(t *testing.T) {
	h := newHarness(t, &countingRelay{})

	err := h.ctrl.UpdateField(Field("phone"), "555")
	assert.ErrorIs(t, err, ErrUnknownField)
	assert.Equal(t, 0, h.clock.Active(), "rejected edits do not arm autosave")
}

func TestUpdateFieldMessageLimit(t *testing.T) {
	h := newHarness(t, &countingRelay{})

	full := strings.Repeat("a", MaxMessageLength)
	require.NoError(t, h.ctrl.UpdateField(FieldMessage, full))
	require.Equal(t, MaxMessageLength, h.ctrl.MessageCount())

	before := h.ctrl.View()
	for i := 0; i < 2; i++ {
		require.NoError(t, h.ctrl.UpdateField(FieldMessage, full+"b"))
		assert.Equal(t, before, h.ctrl.View())
	}
	assert.Equal(t, full, h.ctrl.Draft().Message)
	assert.Equal(t, CounterDanger, before.Counter)
}

func TestAutosaveDebounce(t *testing.T) {
	h := newHarness(t, &countingRelay{})

	require.NoError(t, h.ctrl.UpdateField(FieldMessage, "Hello there, friend"))
	h.clock.Advance(1500 * time.Millisecond)
	require.NoError(t, h.ctrl.UpdateField(FieldMessage, "Hello there, friends"))

	// Two seconds after the first edit but not after the second.
	h.clock.Advance(500 * time.Millisecond)
	_, ok := h.persisted(t)
	assert.False(t, ok)

	h.clock.Advance(1500 * time.Millisecond)
	saved, ok := h.persisted(t)
	require.True(t, ok)
	assert.Equal(t, "Hello there, friends", saved.Message)
	assert.True(t, h.ctrl.DraftSaved())

	h.clock.Advance(DraftSavedDisplay)
	assert.False(t, h.ctrl.DraftSaved())
}

func TestAutosaveSkipsShortMessages(t *testing.T) {
	h := newHarness(t, &countingRelay{})

	require.NoError(t, h.ctrl.UpdateField(FieldName, "Jo Smith"))
	require.NoError(t, h.ctrl.UpdateField(FieldMessage, "0123456789"))
	h.clock.Advance(AutosaveDelay)

	_, ok := h.persisted(t)
	assert.False(t, ok, "a ten character message is not worth saving")
	assert.False(t, h.ctrl.DraftSaved())
}

func TestDraftRoundTrip(t *testing.T) {
	h := newHarness(t, &countingRelay{})
	want := validDraft()
	h.fill(t, want)
	h.clock.Advance(AutosaveDelay)
	h.ctrl.Close()

	fresh := New(Options{Storage: h.storage, Relay: &countingRelay{}, Scheduler: &fakeClock{}})
	defer fresh.Close()

	assert.Equal(t, want, fresh.Draft())
}

func TestRehydrateIgnoresCorruptDraft(t *testing.T) {
	storage := NewMemoryStorage()
	require.NoError(t, storage.Set(DraftKey, []byte("{not json")))

	ctrl := New(Options{Storage: storage, Relay: &countingRelay{}, Scheduler: &fakeClock{}})
	defer ctrl.Close()

	assert.Equal(t, Draft{}, ctrl.Draft())
}

type failingStorage struct{}

func (failingStorage) Get(string) ([]byte, bool, error) { return nil, false, errors.New("disk gone") }
func (failingStorage) Set(string, []byte) error         { return errors.New("disk gone") }
func (failingStorage) Delete(string) error              { return errors.New("disk gone") }

func TestStorageErrorsAreNotFatal(t *testing.T) {
	clock := &fakeClock{}
	ctrl := New(Options{Storage: failingStorage{}, Relay: &countingRelay{}, Scheduler: clock})
	defer ctrl.Close()

	require.NoError(t, ctrl.UpdateField(FieldMessage, "a message long enough to save"))
	clock.Advance(AutosaveDelay)

	assert.False(t, ctrl.DraftSaved())
	assert.Equal(t, "a message long enough to save", ctrl.Draft().Message)
}

func TestSubmitValidationFailureSkipsRelay(t *testing.T) {
	relay := &countingRelay{}
	h := newHarness(t, relay)
	h.fill(t, Draft{Name: "Jo", Email: "jo@x.co", Subject: "Hi!", Message: "short"})

	verr := h.ctrl.Validate()
	require.NotNil(t, verr)
	assert.Equal(t, "Message must be at least 10 characters long", verr.Message)

	st := h.ctrl.Submit(context.Background())
	assert.Equal(t, Failed, st.State)
	assert.Equal(t, FailureValidation, st.Kind)
	assert.Equal(t, "Message must be at least 10 characters long", st.Reason)
	assert.Equal(t, int32(0), relay.calls.Load())
}

func formRelayServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestSubmitSuccess(t *testing.T) {
	var got url.Values
	var accept string
	endpoint := formRelayServer(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got, _ = url.ParseQuery(string(body))
		accept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	h := newHarness(t, NewHTTPRelay(endpoint, 5*time.Second))
	h.fill(t, validDraft())
	h.clock.Advance(AutosaveDelay)
	_, ok := h.persisted(t)
	require.True(t, ok)

	st := h.ctrl.Submit(context.Background())
	assert.Equal(t, Submitted, st.State)
	assert.Equal(t, Submitted, h.ctrl.Status().State)
	assert.Equal(t, Draft{}, h.ctrl.Draft())
	_, ok = h.persisted(t)
	assert.False(t, ok, "persisted draft is removed")

	assert.Equal(t, "application/json", accept)
	assert.Equal(t, "Jo Smith", got.Get("name"))
	assert.Equal(t, "jo@x.co", got.Get("email"))
	assert.Equal(t, "Project", got.Get("subject"))
	assert.Equal(t, "This is a long enough message.", got.Get("message"))
	assert.Equal(t, "false", got.Get("_captcha"))

	h.clock.Advance(SubmittedDisplay - time.Millisecond)
	assert.Equal(t, Submitted, h.ctrl.Status().State)
	h.clock.Advance(time.Millisecond)
	assert.Equal(t, Idle, h.ctrl.Status().State)
}

func TestSubmitNetworkFailureKeepsDraft(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	h := newHarness(t, NewHTTPRelay(endpoint, 5*time.Second))
	h.fill(t, validDraft())
	h.clock.Advance(AutosaveDelay)

	st := h.ctrl.Submit(context.Background())
	assert.Equal(t, Failed, st.State)
	assert.Equal(t, FailureNetwork, st.Kind)
	assert.Equal(t, "Network error. Please check your connection and try again.", st.Reason)

	assert.Equal(t, validDraft(), h.ctrl.Draft())
	saved, ok := h.persisted(t)
	require.True(t, ok)
	assert.Equal(t, validDraft(), saved)
}

func TestSubmitRelayRejection(t *testing.T) {
	endpoint := formRelayServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":[{"field":"email","message":"should be an email"},{"message":"form is disabled"}]}`))
	})

	h := newHarness(t, NewHTTPRelay(endpoint, 5*time.Second))
	h.fill(t, validDraft())

	st := h.ctrl.Submit(context.Background())
	assert.Equal(t, FailureRejected, st.Kind)
	assert.Equal(t, "should be an email, form is disabled", st.Reason)
	assert.Equal(t, validDraft(), h.ctrl.Draft())
}

func TestSubmitServerErrorWithoutDetails(t *testing.T) {
	endpoint := formRelayServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	h := newHarness(t, NewHTTPRelay(endpoint, 5*time.Second))
	h.fill(t, validDraft())

	st := h.ctrl.Submit(context.Background())
	assert.Equal(t, FailureServer, st.Kind)
	assert.Equal(t, "Failed to send message. Please try again.", st.Reason)
	assert.NotEqual(t, networkFailureReason, st.Reason)
}

func TestRetryAfterFailure(t *testing.T) {
	relay := &countingRelay{err: &NetworkError{Err: errors.New("offline")}}
	h := newHarness(t, relay)
	h.fill(t, validDraft())

	assert.Equal(t, Failed, h.ctrl.Submit(context.Background()).State)

	relay.err = nil
	assert.Equal(t, Submitted, h.ctrl.Submit(context.Background()).State)
	assert.Equal(t, int32(2), relay.calls.Load())
}

func TestSubmitWhileSubmittedIsNoop(t *testing.T) {
	relay := &countingRelay{}
	h := newHarness(t, relay)
	h.fill(t, validDraft())
	require.Equal(t, Submitted, h.ctrl.Submit(context.Background()).State)

	st := h.ctrl.Submit(context.Background())
	assert.Equal(t, Submitted, st.State)
	assert.Empty(t, st.Reason)
	assert.Equal(t, int32(1), relay.calls.Load())

	// The success banner still clears on schedule.
	h.clock.Advance(SubmittedDisplay)
	assert.Equal(t, Idle, h.ctrl.Status().State)
}

func TestSubmitWhileSubmittingIsNoop(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	var calls atomic.Int32
	relay := relayFunc(func(ctx context.Context, d Draft) error {
		calls.Add(1)
		close(entered)
		<-release
		return nil
	})

	h := newHarness(t, relay)
	h.fill(t, validDraft())

	done := make(chan Status)
	go func() { done <- h.ctrl.Submit(context.Background()) }()
	<-entered

	assert.Equal(t, Submitting, h.ctrl.Status().State)
	assert.Equal(t, Submitting, h.ctrl.Submit(context.Background()).State)

	close(release)
	assert.Equal(t, Submitted, (<-done).State)
	assert.Equal(t, int32(1), calls.Load())
}

func TestResultAfterCloseIsDropped(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	relay := relayFunc(func(ctx context.Context, d Draft) error {
		close(entered)
		<-release
		return nil
	})

	h := newHarness(t, relay)
	h.fill(t, validDraft())
	h.clock.Advance(AutosaveDelay)

	done := make(chan Status)
	go func() { done <- h.ctrl.Submit(context.Background()) }()
	<-entered
	h.ctrl.Close()
	close(release)
	<-done

	assert.Equal(t, Submitting, h.ctrl.Status().State)
	assert.Equal(t, validDraft(), h.ctrl.Draft())
	_, ok := h.persisted(t)
	assert.True(t, ok)
	assert.Equal(t, 0, h.ctrl.PendingTimers())
}

func TestCloseCancelsTimers(t *testing.T) {
	h := newHarness(t, &countingRelay{})
	h.fill(t, validDraft())
	require.NoError(t, h.ctrl.CopyToClipboard("x", "Email"))
	require.Equal(t, 2, h.ctrl.PendingTimers())

	h.ctrl.Close()
	assert.Equal(t, 0, h.ctrl.PendingTimers())
	assert.Equal(t, 0, h.clock.Active())

	h.clock.Advance(time.Minute)
	_, ok := h.persisted(t)
	assert.False(t, ok, "autosave never ran")
	assert.ErrorIs(t, h.ctrl.UpdateField(FieldName, "Someone"), ErrClosed)
}

func TestCopyToClipboard(t *testing.T) {
	var copied string
	clock := &fakeClock{}
	ctrl := New(Options{
		Relay:     &countingRelay{},
		Scheduler: clock,
		Clipboard: ClipboardFunc(func(text string) error {
			copied = text
			return nil
		}),
	})
	defer ctrl.Close()

	require.NoError(t, ctrl.CopyToClipboard("jo@x.co", "Email"))
	assert.Equal(t, "jo@x.co", copied)
	assert.True(t, ctrl.Copied("Email"))
	assert.False(t, ctrl.Copied("Phone"))

	clock.Advance(CopyFeedbackDisplay - time.Millisecond)
	assert.True(t, ctrl.Copied("Email"))
	clock.Advance(time.Millisecond)
	assert.False(t, ctrl.Copied("Email"))
}

func TestCopyWith(t *testing.T) {
	clock := &fakeClock{}
	ctrl := New(Options{Relay: &countingRelay{}, Scheduler: clock})
	defer ctrl.Close()

	assert.ErrorIs(t, ctrl.CopyToClipboard("x", "Email"), ErrClipboardUnavailable)

	err := ctrl.CopyWith(ClipboardFunc(func(string) error { return errors.New("denied") }), "x", "Email")
	assert.EqualError(t, err, "denied")
	assert.False(t, ctrl.Copied("Email"))
	assert.Equal(t, 0, ctrl.PendingTimers())

	require.NoError(t, ctrl.CopyWith(ClipboardFunc(func(string) error { return nil }), "x", "Email"))
	assert.True(t, ctrl.Copied("Email"))
	clock.Advance(CopyFeedbackDisplay)
	assert.False(t, ctrl.Copied("Email"))
}

func TestCopyToClipboardFailure(t *testing.T) {
	clock := &fakeClock{}
	ctrl := New(Options{
		Relay:     &countingRelay{},
		Scheduler: clock,
		Clipboard: ClipboardFunc(func(string) error { return errors.New("denied") }),
	})
	defer ctrl.Close()

	before := ctrl.Status()
	assert.Error(t, ctrl.CopyToClipboard("jo@x.co", "Email"))
	assert.False(t, ctrl.Copied("Email"))
	assert.Equal(t, before, ctrl.Status())
	assert.Equal(t, 0, clock.Active())

	noClip := New(Options{Relay: &countingRelay{}, Scheduler: clock})
	defer noClip.Close()
	assert.ErrorIs(t, noClip.CopyToClipboard("x", "Email"), ErrClipboardUnavailable)
}

func TestCloseWithRealTimersLeaksNothing(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctrl := New(Options{Relay: &countingRelay{}})
	require.NoError(t, ctrl.UpdateField(FieldMessage, "a message that would be autosaved"))
	require.Equal(t, 1, ctrl.PendingTimers())

	ctrl.Close()
	assert.Equal(t, 0, ctrl.PendingTimers())
}
