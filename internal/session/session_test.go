// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/docmorph/internal/convert"
	"github.com/pdiddy/docmorph/internal/document"
	"github.com/pdiddy/docmorph/pkg/types"
)

// scriptedConverter returns a fixed result or error. When release is set the
// call blocks until it is closed.
type scriptedConverter struct {
	mu      sync.Mutex
	content string
	err     error
	release chan struct{}
	calls   []types.ConversionRequest
}

func (c *scriptedConverter) Convert(_ context.Context, req types.ConversionRequest) (types.ConversionResult, error) {
	c.mu.Lock()
	c.calls = append(c.calls, req)
	release := c.release
	c.mu.Unlock()

	if release != nil {
		<-release
	}
	if c.err != nil {
		return types.ConversionResult{}, c.err
	}
	return types.ConversionResult{Content: c.content, Format: req.Format, CreatedAt: time.Now()}, nil
}

func (c *scriptedConverter) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

type transitionLog struct {
	mu    sync.Mutex
	steps []types.Status
}

func (l *transitionLog) record(t Transition) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.steps = append(l.steps, t.To)
}

func (l *transitionLog) get() []types.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]types.Status(nil), l.steps...)
}

func pdf(size int) types.Document {
	return types.NewDocumentFromBytes("report.pdf", document.MediaPDF, make([]byte, size))
}

func waitSettled(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
}

func TestNewSessionDefaults(t *testing.T) {
	s := New("id-1", &scriptedConverter{})
	st := s.Snapshot()
	assert.Equal(t, "id-1", st.ID)
	assert.Equal(t, types.StatusIdle, st.Status)
	assert.Equal(t, types.FormatMarkdown, st.Format)
	assert.Nil(t, st.Document)
	assert.Nil(t, st.Result)
	assert.Empty(t, st.Error)
}

func TestConvertSuccessTransitions(t *testing.T) {
	conv := &scriptedConverter{content: "{\"a\":1}"}
	s := New("s", conv, WithReadingDelay(0))
	log := &transitionLog{}
	s.OnTransition(log.record)

	require.NoError(t, s.SelectFile(pdf(2*1024*1024)))
	require.NoError(t, s.SetFormat(types.FormatJSON))
	require.NoError(t, s.Convert(context.Background()))
	waitSettled(t, s)

	assert.Equal(t, []types.Status{types.StatusReading, types.StatusProcessing, types.StatusSuccess}, log.get())
	st := s.Snapshot()
	assert.Equal(t, types.StatusSuccess, st.Status)
	require.NotNil(t, st.Result)
	assert.Equal(t, types.FormatJSON, st.Result.Format)
	assert.Equal(t, "{\"a\":1}", st.Result.Content)

	require.Equal(t, 1, conv.callCount())
	assert.Equal(t, types.FormatJSON, conv.calls[0].Format)
	assert.Empty(t, conv.calls[0].Instructions)
}

func TestConvertRemoteFailure(t *testing.T) {
	conv := &scriptedConverter{err: &convert.RemoteError{Cause: errors.New("network down")}}
	s := New("s", conv, WithReadingDelay(0))
	log := &transitionLog{}
	s.OnTransition(log.record)

	require.NoError(t, s.SelectFile(pdf(100)))
	require.NoError(t, s.Convert(context.Background()))
	waitSettled(t, s)

	st := s.Snapshot()
	assert.Equal(t, types.StatusError, st.Status)
	assert.Equal(t, "Failed to convert document. Please ensure the file is a valid PDF or Image.", st.Error)
	assert.Nil(t, st.Result)
	assert.Equal(t, []types.Status{types.StatusReading, types.StatusProcessing, types.StatusError}, log.get())
}

func TestConvertMissingCredential(t *testing.T) {
	s := New("s", &scriptedConverter{err: convert.ErrCredentialMissing}, WithReadingDelay(0))
	require.NoError(t, s.SelectFile(pdf(10)))
	require.NoError(t, s.Convert(context.Background()))
	waitSettled(t, s)

	st := s.Snapshot()
	assert.Equal(t, types.StatusError, st.Status)
	assert.Equal(t, convert.MsgCredentialMissing, st.Error)
}

func TestConvertWithoutDocumentIsNoop(t *testing.T) {
	conv := &scriptedConverter{}
	s := New("s", conv)
	log := &transitionLog{}
	s.OnTransition(log.record)

	err := s.Convert(context.Background())
	assert.ErrorIs(t, err, ErrNoDocument)
	assert.Equal(t, types.StatusIdle, s.Status())
	assert.Empty(t, log.get())
	assert.Zero(t, conv.callCount())
}

func TestBusyGuard(t *testing.T) {
	release := make(chan struct{})
	conv := &scriptedConverter{content: "ok", release: release}
	s := New("s", conv, WithReadingDelay(0))

	processing := make(chan struct{})
	var once sync.Once
	s.OnTransition(func(tr Transition) {
		if tr.To == types.StatusProcessing {
			once.Do(func() { close(processing) })
		}
	})

	require.NoError(t, s.SelectFile(pdf(10)))
	require.NoError(t, s.Convert(context.Background()))
	<-processing

	assert.ErrorIs(t, s.Convert(context.Background()), ErrBusy)
	assert.ErrorIs(t, s.SetFormat(types.FormatCSV), ErrBusy)
	assert.ErrorIs(t, s.SetInstructions("x"), ErrBusy)
	assert.ErrorIs(t, s.SelectFile(pdf(20)), ErrBusy)
	assert.ErrorIs(t, s.ClearFile(), ErrBusy)
	assert.ErrorIs(t, s.Reset(), ErrBusy)

	st := s.Snapshot()
	assert.Equal(t, types.StatusProcessing, st.Status)
	assert.Equal(t, types.FormatMarkdown, st.Format)

	close(release)
	waitSettled(t, s)
	assert.Equal(t, types.StatusSuccess, s.Status())
	assert.Equal(t, 1, conv.callCount())
}

func TestReadingDelay(t *testing.T) {
	release := make(chan struct{})
	conv := &scriptedConverter{content: "ok", release: release}
	s := New("s", conv, WithReadingDelay(time.Hour))

	require.NoError(t, s.SelectFile(pdf(10)))
	require.NoError(t, s.Convert(context.Background()))

	assert.Equal(t, types.StatusReading, s.Status())
	assert.ErrorIs(t, s.Convert(context.Background()), ErrBusy)
	assert.Zero(t, conv.callCount())
}

func TestConvertDetachedFromCallerContext(t *testing.T) {
	s := New("s", &scriptedConverter{content: "done"}, WithReadingDelay(10*time.Millisecond))
	require.NoError(t, s.SelectFile(pdf(10)))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Convert(ctx))
	cancel()

	waitSettled(t, s)
	assert.Equal(t, types.StatusSuccess, s.Status())
}

func TestResetFromSuccess(t *testing.T) {
	s := New("s", &scriptedConverter{content: "csv"}, WithReadingDelay(0))
	require.NoError(t, s.SelectFile(pdf(10)))
	require.NoError(t, s.SetFormat(types.FormatCSV))
	require.NoError(t, s.SetInstructions("first table only"))
	require.NoError(t, s.Convert(context.Background()))
	waitSettled(t, s)
	require.Equal(t, types.StatusSuccess, s.Status())

	require.NoError(t, s.Reset())
	st := s.Snapshot()
	assert.Equal(t, types.StatusIdle, st.Status)
	assert.Equal(t, types.FormatMarkdown, st.Format)
	assert.Nil(t, st.Result)
	assert.Nil(t, st.Document)
	assert.Empty(t, st.Instructions)
	assert.Empty(t, st.Error)
}

func TestResetFromError(t *testing.T) {
	s := New("s", &scriptedConverter{err: errors.New("boom")}, WithReadingDelay(0))
	require.NoError(t, s.SelectFile(pdf(10)))
	require.NoError(t, s.Convert(context.Background()))
	waitSettled(t, s)
	require.Equal(t, types.StatusError, s.Status())
	assert.Equal(t, convert.MsgUnexpected, s.Snapshot().Error)

	require.NoError(t, s.Reset())
	st := s.Snapshot()
	assert.Equal(t, types.StatusIdle, st.Status)
	assert.Empty(t, st.Error)
}

func TestSelectFileRejections(t *testing.T) {
	tests := []struct {
		name string
		doc  types.Document
		want string
	}{
		{
			name: "unsupported type",
			doc:  types.NewDocumentFromBytes("notes.txt", "text/plain", []byte("hi")),
			want: document.MsgUnsupportedFormat,
		},
		{
			name: "too large",
			doc:  types.NewDocument("big.pdf", document.MediaPDF, document.MaxFileSize+1, types.BytesSource(nil)),
			want: document.MsgTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New("s", &scriptedConverter{})
			err := s.SelectFile(tt.doc)

			var verr *document.ValidationError
			require.ErrorAs(t, err, &verr)
			st := s.Snapshot()
			assert.Equal(t, types.StatusIdle, st.Status)
			assert.Nil(t, st.Document)
			assert.Contains(t, st.Error, tt.want)
		})
	}
}

func TestSelectFileRejectionKeepsCurrentDocument(t *testing.T) {
	s := New("s", &scriptedConverter{})
	require.NoError(t, s.SelectFile(pdf(10)))
	require.Error(t, s.SelectFile(types.NewDocumentFromBytes("a.gif", "image/gif", []byte("GIF89a"))))

	st := s.Snapshot()
	require.NotNil(t, st.Document)
	assert.Equal(t, "report.pdf", st.Document.Name)

	require.NoError(t, s.SelectFile(pdf(20)))
	assert.Empty(t, s.Snapshot().Error)
}

func TestSelectFileAfterConversionReturnsToIdle(t *testing.T) {
	tests := []struct {
		name      string
		conv      *scriptedConverter
		settled   types.Status
		wantError string
	}{
		{
			name:      "after error",
			conv:      &scriptedConverter{err: &convert.RemoteError{Cause: errors.New("503")}},
			settled:   types.StatusError,
			wantError: convert.MsgConversionFailed,
		},
		{
			name:    "after success",
			conv:    &scriptedConverter{content: "# Done"},
			settled: types.StatusSuccess,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New("s", tt.conv, WithReadingDelay(0))
			require.NoError(t, s.SelectFile(pdf(10)))
			require.NoError(t, s.Convert(context.Background()))
			waitSettled(t, s)
			require.Equal(t, tt.settled, s.Status())
			assert.Equal(t, tt.wantError, s.Snapshot().Error)

			log := &transitionLog{}
			s.OnTransition(log.record)
			next := types.NewDocumentFromBytes("b.pdf", document.MediaPDF, make([]byte, 20))
			require.NoError(t, s.SelectFile(next))

			st := s.Snapshot()
			assert.Equal(t, types.StatusIdle, st.Status)
			assert.Empty(t, st.Error)
			require.NotNil(t, st.Document)
			assert.Equal(t, "b.pdf", st.Document.Name)
			assert.Equal(t, []types.Status{types.StatusIdle}, log.get())
		})
	}
}

func TestSelectFileWhileIdleEmitsNoTransition(t *testing.T) {
	s := New("s", &scriptedConverter{})
	log := &transitionLog{}
	s.OnTransition(log.record)

	require.NoError(t, s.SelectFile(pdf(10)))
	assert.Empty(t, log.get())
}

func TestClearFileKeepsResult(t *testing.T) {
	s := New("s", &scriptedConverter{content: "# Done"}, WithReadingDelay(0))
	log := &transitionLog{}
	s.OnTransition(log.record)

	require.NoError(t, s.SelectFile(pdf(10)))
	require.NoError(t, s.Convert(context.Background()))
	waitSettled(t, s)

	require.NoError(t, s.ClearFile())
	st := s.Snapshot()
	assert.Equal(t, types.StatusIdle, st.Status)
	assert.Nil(t, st.Document)
	require.NotNil(t, st.Result)
	assert.Equal(t, "# Done", st.Result.Content)
	assert.Equal(t, types.StatusIdle, log.get()[len(log.get())-1])

	assert.ErrorIs(t, s.Convert(context.Background()), ErrNoDocument)
}

func TestReconvertClearsPreviousResult(t *testing.T) {
	release := make(chan struct{})
	conv := &scriptedConverter{content: "first"}
	s := New("s", conv, WithReadingDelay(0))

	require.NoError(t, s.SelectFile(pdf(10)))
	require.NoError(t, s.Convert(context.Background()))
	waitSettled(t, s)
	require.NotNil(t, s.Snapshot().Result)

	conv.mu.Lock()
	conv.release = release
	conv.mu.Unlock()

	require.NoError(t, s.SetFormat(types.FormatHTML))
	require.NoError(t, s.Convert(context.Background()))
	assert.Nil(t, s.Snapshot().Result)

	close(release)
	waitSettled(t, s)
	st := s.Snapshot()
	require.NotNil(t, st.Result)
	assert.Equal(t, types.FormatHTML, st.Result.Format)
}

func TestSetFormatInvalid(t *testing.T) {
	s := New("s", &scriptedConverter{})
	assert.ErrorIs(t, s.SetFormat("YAML"), ErrInvalidFormat)
	assert.Equal(t, types.FormatMarkdown, s.Snapshot().Format)
}

func TestInstructionsPassedVerbatim(t *testing.T) {
	conv := &scriptedConverter{content: "x"}
	s := New("s", conv, WithReadingDelay(0))
	require.NoError(t, s.SelectFile(pdf(10)))
	require.NoError(t, s.SetInstructions("  keep   spacing\n"))
	require.NoError(t, s.Convert(context.Background()))
	waitSettled(t, s)

	require.Equal(t, 1, conv.callCount())
	assert.Equal(t, "  keep   spacing\n", conv.calls[0].Instructions)
}

func TestWaitWithoutConversion(t *testing.T) {
	s := New("s", &scriptedConverter{})
	assert.NoError(t, s.Wait(context.Background()))
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New("s", &scriptedConverter{content: "x"}, WithReadingDelay(0))
	require.NoError(t, s.SelectFile(pdf(10)))
	require.NoError(t, s.Convert(context.Background()))
	waitSettled(t, s)

	st := s.Snapshot()
	st.Result.Content = "mutated"
	st.Document.Name = "other"
	assert.Equal(t, "x", s.Snapshot().Result.Content)
	assert.Equal(t, "report.pdf", s.Snapshot().Document.Name)
}
