// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/docmorph/internal/document"
	"github.com/pdiddy/docmorph/internal/journal"
	"github.com/pdiddy/docmorph/internal/prompt"
	"github.com/pdiddy/docmorph/pkg/types"
)

// Backend abstracts the remote model so tests can supply a fake. An
// implementation sends one request carrying the encoded document and the
// prompt and returns the raw response text.
type Backend interface {
	Generate(ctx context.Context, payload document.Payload, prompt string) (string, error)
}

// credentialChecker is implemented by backends that need an access credential.
type credentialChecker interface {
	CheckCredential() error
}

// Recorder receives one Attempt per conversion. *journal.Store implements it.
type Recorder interface {
	Record(ctx context.Context, a journal.Attempt) error
}

// Service runs the conversion pipeline: credential check, encode, prompt,
// remote call, fallback, normalize. It holds no per-request state and can
// be shared by every session.
type Service struct {
	backend  Backend
	recorder Recorder
	logger   zerolog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder journals every attempt to r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithLogger sets the logger used for failure diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the time source used to stamp results.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service around backend.
func NewService(backend Backend, opts ...Option) *Service {
	s := &Service{
		backend: backend,
		logger:  zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type sessionIDKey struct{}

// WithSessionID tags ctx so journal entries can be traced to a session.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

// SessionIDFromContext returns the session tag set by WithSessionID.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey{}).(string)
	return id
}

// Convert turns req into a ConversionResult. Failures are one of
// ErrCredentialMissing, *EncodingError or *RemoteError; no partial result is
// ever returned and nothing is retried.
func (s *Service) Convert(ctx context.Context, req types.ConversionRequest) (types.ConversionResult, error) {
	start := s.now()
	log := s.logger.With().
		Str("format", string(req.Format)).
		Str("media_type", req.Document.MediaType).
		Int64("size", req.Document.Size).
		Logger()

	result, outcome, err := s.run(ctx, req, log)

	attempt := journal.Attempt{
		SessionID: SessionIDFromContext(ctx),
		Format:    req.Format,
		MediaType: req.Document.MediaType,
		Size:      req.Document.Size,
		Outcome:   outcome,
		Duration:  s.now().Sub(start),
		CreatedAt: start,
	}
	if err != nil {
		attempt.Cause = causeOf(err)
	}
	s.record(ctx, attempt, log)

	return result, err
}

func (s *Service) run(ctx context.Context, req types.ConversionRequest, log zerolog.Logger) (types.ConversionResult, journal.Outcome, error) {
	if cc, ok := s.backend.(credentialChecker); ok {
		if err := cc.CheckCredential(); err != nil {
			log.Error().Msg("conversion refused: no API key configured")
			return types.ConversionResult{}, journal.OutcomeCredentialMissing, ErrCredentialMissing
		}
	}

	payload, err := document.Encode(req.Document)
	if err != nil {
		log.Error().Err(err).Msg("encoding document failed")
		return types.ConversionResult{}, journal.OutcomeEncodingError, &EncodingError{Cause: err}
	}

	text, err := s.backend.Generate(ctx, payload, prompt.Build(req.Format, req.Instructions))
	if err != nil {
		if errors.Is(err, ErrCredentialMissing) {
			return types.ConversionResult{}, journal.OutcomeCredentialMissing, ErrCredentialMissing
		}
		log.Error().Err(err).Msg("remote conversion failed")
		return types.ConversionResult{}, journal.OutcomeRemoteError, &RemoteError{Cause: err}
	}

	outcome := journal.OutcomeSuccess
	if strings.TrimSpace(text) == "" {
		log.Warn().Msg("model returned no text, using fallback")
		text = NoContentFallback
		outcome = journal.OutcomeEmpty
	}

	return types.ConversionResult{
		Content:   Normalize(text),
		Format:    req.Format,
		CreatedAt: s.now(),
	}, outcome, nil
}

func (s *Service) record(ctx context.Context, a journal.Attempt, log zerolog.Logger) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(context.WithoutCancel(ctx), a); err != nil {
		log.Warn().Err(err).Msg("journal write failed")
	}
}

// causeOf returns the diagnostic text behind a pipeline error, which for
// wrapped errors is the cause rather than the generic user message.
func causeOf(err error) string {
	if inner := errors.Unwrap(err); inner != nil {
		return inner.Error()
	}
	return err.Error()
}
