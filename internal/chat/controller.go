// Package chat coordinates a streaming turn: it owns the submission state
// machine and applies decoded stream events to the transcript and trace.
package chat

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/diogo/agentdeck/internal/api"
	apierrors "github.com/diogo/agentdeck/internal/errors"
	"github.com/diogo/agentdeck/internal/models"
	"github.com/diogo/agentdeck/internal/stream"
	"github.com/diogo/agentdeck/internal/transcript"
)

// DefaultIdleTimeout bounds the gap between stream frames. A backend that
// goes silent for longer ends the turn as failed.
const DefaultIdleTimeout = 90 * time.Second

// Phase is the submission lifecycle state. Exactly one submission may be in
// flight, so the controller carries a single phase rather than one per turn.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSending
	PhaseStreaming
	PhaseSuccess
	PhaseFailed
)

// String returns a short label for status lines.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSending:
		return "sending"
	case PhaseStreaming:
		return "streaming"
	case PhaseSuccess:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// NotificationKind says which piece of state a notification refers to.
type NotificationKind int

const (
	NoteTranscript NotificationKind = iota
	NoteTrace
	NotePhase
)

// Notification is pushed to the UI whenever controller-owned state changes.
// Err is set only on the phase notification of a failed turn.
type Notification struct {
	Kind NotificationKind
	Err  error
}

// Controller runs submissions against the backend and owns the live
// transcript and reasoning trace. All methods are safe for concurrent use.
type Controller struct {
	client *api.Client
	logger zerolog.Logger

	transcript *transcript.Transcript
	trace      *transcript.Trace

	mu        sync.Mutex
	phase     Phase
	lastErr   error
	sessionID string
	cancel    context.CancelFunc

	idleTimeout time.Duration
	notify      chan Notification
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithIdleTimeout overrides the per-frame idle timeout.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.idleTimeout = d
		}
	}
}

// NewController creates a controller bound to one backend session.
func NewController(client *api.Client, sessionID string, opts ...Option) *Controller {
	c := &Controller{
		client:      client,
		logger:      zerolog.Nop(),
		transcript:  transcript.New(),
		trace:       transcript.NewTrace(),
		sessionID:   sessionID,
		idleTimeout: DefaultIdleTimeout,
		notify:      make(chan Notification, 16),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transcript returns the live transcript store.
func (c *Controller) Transcript() *transcript.Transcript {
	return c.transcript
}

// Trace returns the live reasoning trace.
func (c *Controller) Trace() *transcript.Trace {
	return c.trace
}

// Notifications returns the channel state-change signals arrive on. The
// channel is never closed; it coalesces under a slow reader.
func (c *Controller) Notifications() <-chan Notification {
	return c.notify
}

// SessionID returns the session the controller submits into.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Busy reports whether a submission is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase == PhaseSending || c.phase == PhaseStreaming
}

// LastError returns the error that settled the most recent turn, if any.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// LoadSession replaces the transcript with a stored session's messages and
// retargets future submissions at that session. Rejected while a submission
// is in flight.
func (c *Controller) LoadSession(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	if c.phase == PhaseSending || c.phase == PhaseStreaming {
		c.mu.Unlock()
		return apierrors.ErrBusy
	}
	c.mu.Unlock()

	messages, err := c.client.Messages(ctx, sessionID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.sessionID = sessionID
	c.phase = PhaseIdle
	c.lastErr = nil
	c.mu.Unlock()

	c.transcript.ReplaceAll(messages)
	c.trace.Reset()
	c.post(Notification{Kind: NoteTranscript})
	c.post(Notification{Kind: NoteTrace})
	c.post(Notification{Kind: NotePhase})
	return nil
}

// NewSession clears the transcript and points the controller at a fresh
// session id allocated from the backend's current maximum.
func (c *Controller) NewSession(ctx context.Context) error {
	c.mu.Lock()
	if c.phase == PhaseSending || c.phase == PhaseStreaming {
		c.mu.Unlock()
		return apierrors.ErrBusy
	}
	c.mu.Unlock()

	id, err := c.client.NextSessionID(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.sessionID = id
	c.phase = PhaseIdle
	c.lastErr = nil
	c.mu.Unlock()

	c.transcript.ReplaceAll(nil)
	c.trace.Reset()
	c.post(Notification{Kind: NoteTranscript})
	c.post(Notification{Kind: NoteTrace})
	c.post(Notification{Kind: NotePhase})
	return nil
}

// Submit starts one turn. The user message and an empty assistant
// placeholder are appended before any network activity so the UI shows the
// turn immediately. At most one submission may be in flight; a second call
// returns ErrBusy without touching state.
func (c *Controller) Submit(ctx context.Context, input string, files []*api.Attachment) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return apierrors.ErrEmptyInput
	}

	c.mu.Lock()
	if c.phase == PhaseSending || c.phase == PhaseStreaming {
		c.mu.Unlock()
		return apierrors.ErrBusy
	}

	userID := c.transcript.NextID()
	assistantID := userID + 1

	runCtx, cancel := context.WithCancel(ctx)
	c.phase = PhaseSending
	c.lastErr = nil
	c.cancel = cancel
	sessionID := c.sessionID
	c.mu.Unlock()

	c.transcript.Append(models.Message{ID: userID, Role: models.RoleUser, Content: input})
	c.transcript.Append(models.Message{ID: assistantID, Role: models.RoleAssistant})

	// The trace is cleared before the request goes out so a prior turn's
	// steps never show during this turn's first frames.
	c.trace.Reset()

	c.post(Notification{Kind: NoteTranscript})
	c.post(Notification{Kind: NoteTrace})
	c.post(Notification{Kind: NotePhase})

	go c.run(runCtx, cancel, input, sessionID, files, assistantID)
	return nil
}

// Cancel aborts the in-flight submission, if any. Content already streamed
// stays in the transcript.
func (c *Controller) Cancel() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// run executes one turn to completion on its own goroutine.
func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, input, sessionID string, files []*api.Attachment, assistantID int) {
	defer cancel()

	body, err := c.client.Submit(ctx, input, sessionID, files)
	if err != nil {
		c.logger.Error().Err(err).Str("session_id", sessionID).Msg("submission failed")
		c.settle(err)
		return
	}
	defer body.Close()

	c.setPhase(PhaseStreaming)

	// A silent backend cancels the stream via the watchdog; every decoded
	// frame pushes the deadline out again.
	watchdog := time.AfterFunc(c.idleTimeout, cancel)
	defer watchdog.Stop()

	decoder := stream.NewDecoder(body, stream.WithLogger(c.logger))
	for {
		ev, err := decoder.Next()
		if err != nil {
			if err == io.EOF {
				c.settle(nil)
				return
			}
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			c.logger.Error().Err(err).Str("session_id", sessionID).Msg("stream ended abnormally")
			c.settle(err)
			return
		}

		watchdog.Reset(c.idleTimeout)
		c.apply(ev, assistantID)
	}
}

// apply routes one decoded event: content frames mutate the assistant
// message, everything else extends the reasoning trace.
func (c *Controller) apply(ev *stream.Event, assistantID int) {
	if ev.IsContent() {
		if ev.Content != "" {
			c.transcript.AppendContent(assistantID, ev.Content)
		}
		if len(ev.Option) > 0 {
			c.transcript.SetChartOption(assistantID, ev.Option)
		}
		if len(ev.Component) > 0 {
			c.transcript.MergeComponents(assistantID, ev.Component)
		}
		c.post(Notification{Kind: NoteTranscript})
		return
	}

	c.trace.Append(models.ReasoningStep{
		Text:        ev.Content,
		SearchQuery: ev.SearchQuery,
		Icon:        models.IconForKey(ev.Icon),
	})
	c.post(Notification{Kind: NoteTrace})
}

// settle moves the controller out of the in-flight phases.
func (c *Controller) settle(err error) {
	c.mu.Lock()
	if err != nil {
		c.phase = PhaseFailed
		c.lastErr = err
	} else {
		c.phase = PhaseSuccess
		c.lastErr = nil
	}
	c.cancel = nil
	c.mu.Unlock()

	c.post(Notification{Kind: NotePhase, Err: err})
}

// setPhase transitions between in-flight phases.
func (c *Controller) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
	c.post(Notification{Kind: NotePhase})
}

// post delivers a notification without blocking the stream loop. A full
// channel simply drops the signal; the reader re-reads full state anyway.
func (c *Controller) post(n Notification) {
	select {
	case c.notify <- n:
	default:
	}
}
