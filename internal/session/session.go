// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session implements the per-user conversion state machine. A
// Session holds the selected document, format, instructions and the last
// result, and enforces that at most one conversion is in flight.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/docmorph/internal/convert"
	"github.com/pdiddy/docmorph/internal/document"
	"github.com/pdiddy/docmorph/pkg/types"
)

var (
	// ErrBusy rejects events while a conversion is reading or processing.
	ErrBusy = errors.New("a conversion is already in progress")

	// ErrNoDocument rejects Convert when no document is selected.
	ErrNoDocument = errors.New("no document selected")

	// ErrInvalidFormat rejects SetFormat with an unknown format.
	ErrInvalidFormat = errors.New("unknown conversion format")
)

// Transition describes one status change.
type Transition struct {
	SessionID string
	From      types.Status
	To        types.Status
	At        time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithReadingDelay sets the pause between reading and processing. Zero is allowed.
func WithReadingDelay(d time.Duration) Option {
	return func(s *Session) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithLogger sets the logger used for transition and failure logging.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session is one user's conversion workflow. All methods are safe for
// concurrent use.
type Session struct {
	id        string
	converter convert.Converter
	delay     time.Duration
	logger    zerolog.Logger
	now       func() time.Time

	mu           sync.Mutex
	status       types.Status
	doc          *types.Document
	format       types.ConversionFormat
	instructions string
	result       *types.ConversionResult
	errMsg       string
	done         chan struct{}
	listeners    []func(Transition)
	lastActive   time.Time
}

// New creates an idle session with the default format.
func New(id string, c convert.Converter, opts ...Option) *Session {
	s := &Session{
		id:        id,
		converter: c,
		delay:     types.DefaultReadingDelay,
		logger:    zerolog.Nop(),
		now:       time.Now,
		status:    types.StatusIdle,
		format:    types.DefaultFormat,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("session", id).Logger()
	s.lastActive = s.now()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// OnTransition registers fn to be called after every status change. fn runs
// outside the session lock and may call Snapshot.
func (s *Session) OnTransition(fn func(Transition)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// SelectFile validates doc and makes it the current document, returning a
// success or error session to idle. A rejected file leaves the current
// document and status in place and records the rejection message as the
// session error.
func (s *Session) SelectFile(doc types.Document) error {
	s.mu.Lock()
	s.touch()

	if s.busy() {
		s.mu.Unlock()
		return ErrBusy
	}
	if err := document.ValidateDocument(doc); err != nil {
		s.errMsg = convert.UserMessage(err)
		s.mu.Unlock()
		return err
	}
	s.doc = &doc
	s.errMsg = ""
	t, changed := s.setStatus(types.StatusIdle)
	s.mu.Unlock()

	if changed {
		s.notify(t)
	}
	return nil
}

// RejectFile records a rejection that happened before a Document could be
// built, such as an upload over the size limit. It behaves like a failed
// SelectFile.
func (s *Session) RejectFile(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if s.busy() {
		return ErrBusy
	}
	s.errMsg = convert.UserMessage(err)
	return err
}

// ClearFile drops the current document and returns the session to idle. The
// last result stays available until the next conversion or a reset.
func (s *Session) ClearFile() error {
	s.mu.Lock()
	if s.busy() {
		s.mu.Unlock()
		return ErrBusy
	}
	s.touch()
	s.doc = nil
	s.errMsg = ""
	t, changed := s.setStatus(types.StatusIdle)
	s.mu.Unlock()

	if changed {
		s.notify(t)
	}
	return nil
}

// SetFormat selects the output format for the next conversion.
func (s *Session) SetFormat(f types.ConversionFormat) error {
	if !f.Valid() {
		return ErrInvalidFormat
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if s.busy() {
		return ErrBusy
	}
	s.format = f
	return nil
}

// SetInstructions sets the free-text instructions for the next conversion.
func (s *Session) SetInstructions(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if s.busy() {
		return ErrBusy
	}
	s.instructions = text
	return nil
}

// Convert starts a conversion of the current document with the current
// format and instructions. It returns once the session is reading; the
// conversion continues in the background, detached from ctx, and settles in
// success or error. Use Wait to block until it settles.
func (s *Session) Convert(ctx context.Context) error {
	s.mu.Lock()
	s.touch()
	if s.doc == nil {
		s.mu.Unlock()
		return ErrNoDocument
	}
	if s.busy() {
		s.mu.Unlock()
		return ErrBusy
	}

	req := types.ConversionRequest{
		Document:     *s.doc,
		Format:       s.format,
		Instructions: s.instructions,
	}
	s.result = nil
	s.errMsg = ""
	done := make(chan struct{})
	s.done = done
	t, _ := s.setStatus(types.StatusReading)
	s.mu.Unlock()

	s.notify(t)

	runCtx := convert.WithSessionID(context.WithoutCancel(ctx), s.id)
	go s.run(runCtx, req, done)
	return nil
}

func (s *Session) run(ctx context.Context, req types.ConversionRequest, done chan struct{}) {
	if s.delay > 0 {
		<-time.After(s.delay)
	}

	s.mu.Lock()
	t, _ := s.setStatus(types.StatusProcessing)
	s.mu.Unlock()
	s.notify(t)

	result, err := s.converter.Convert(ctx, req)

	s.mu.Lock()
	if err != nil {
		s.errMsg = convert.UserMessage(err)
		s.logger.Error().Err(err).Str("format", string(req.Format)).Msg("conversion failed")
		t, _ = s.setStatus(types.StatusError)
	} else {
		s.result = &result
		s.logger.Info().Str("format", string(req.Format)).Int("bytes", len(result.Content)).Msg("conversion succeeded")
		t, _ = s.setStatus(types.StatusSuccess)
	}
	s.mu.Unlock()

	s.notify(t)

	s.mu.Lock()
	if s.done == done {
		s.done = nil
	}
	s.mu.Unlock()
	close(done)
}

// Reset returns a settled session to its initial state: no document, no
// instructions, no result, no error and the default format.
func (s *Session) Reset() error {
	s.mu.Lock()
	if s.busy() {
		s.mu.Unlock()
		return ErrBusy
	}
	s.touch()
	s.doc = nil
	s.instructions = ""
	s.result = nil
	s.errMsg = ""
	s.format = types.DefaultFormat
	t, changed := s.setStatus(types.StatusIdle)
	s.mu.Unlock()

	if changed {
		s.notify(t)
	}
	return nil
}

// Wait blocks until no conversion is in flight or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() types.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := types.SessionState{
		ID:           s.id,
		Status:       s.status,
		Format:       s.format,
		Instructions: s.instructions,
		Error:        s.errMsg,
	}
	if s.doc != nil {
		d := *s.doc
		st.Document = &d
	}
	if s.result != nil {
		r := *s.result
		st.Result = &r
	}
	return st
}

// Status returns the current status.
func (s *Session) Status() types.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// LastActive returns when the session last received an event.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// busy reports whether a conversion is in flight. Caller holds s.mu.
func (s *Session) busy() bool {
	return !s.status.Settled()
}

// touch records activity. Caller holds s.mu.
func (s *Session) touch() {
	s.lastActive = s.now()
}

// setStatus moves to next and returns the transition. Caller holds s.mu.
func (s *Session) setStatus(next types.Status) (Transition, bool) {
	t := Transition{SessionID: s.id, From: s.status, To: next, At: s.now()}
	if s.status == next {
		return t, false
	}
	s.status = next
	s.logger.Debug().Str("from", string(t.From)).Str("to", string(t.To)).Msg("transition")
	return t, true
}

func (s *Session) notify(t Transition) {
	s.mu.Lock()
	listeners := make([]func(Transition), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(t)
	}
}
