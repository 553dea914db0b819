// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/docmorph/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, Attempt{
		SessionID: "s1", Format: types.FormatJSON, MediaType: "application/pdf", Size: 2048,
		Outcome: OutcomeSuccess, Duration: 1500 * time.Millisecond, CreatedAt: base,
	}))
	require.NoError(t, s.Record(ctx, Attempt{
		SessionID: "s1", Format: types.FormatCSV, MediaType: "image/png", Size: 10,
		Outcome: OutcomeRemoteError, Cause: "Gemini API returned 429: quota", CreatedAt: base.Add(time.Minute),
	}))

	got, err := s.Recent(ctx, QueryOptions{})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, OutcomeRemoteError, got[0].Outcome, "newest first")
	assert.Equal(t, "Gemini API returned 429: quota", got[0].Cause)
	assert.Equal(t, types.FormatCSV, got[0].Format)
	assert.NotEmpty(t, got[0].ID)

	assert.Equal(t, OutcomeSuccess, got[1].Outcome)
	assert.Equal(t, int64(2048), got[1].Size)
	assert.Equal(t, 1500*time.Millisecond, got[1].Duration)
	assert.True(t, base.Equal(got[1].CreatedAt))
}

func TestRecentFilters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, o := range []Outcome{OutcomeSuccess, OutcomeEmpty, OutcomeSuccess, OutcomeCredentialMissing} {
		require.NoError(t, s.Record(ctx, Attempt{
			Format: types.FormatMarkdown, Outcome: o,
			CreatedAt: time.Unix(int64(1000+i), 0),
		}))
	}

	got, err := s.Recent(ctx, QueryOptions{Outcome: OutcomeSuccess})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.Recent(ctx, QueryOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, OutcomeCredentialMissing, got[0].Outcome)
}

func TestCounts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, o := range []Outcome{OutcomeSuccess, OutcomeSuccess, OutcomeEmpty} {
		require.NoError(t, s.Record(ctx, Attempt{Format: types.FormatHTML, Outcome: o}))
	}

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[Outcome]int{OutcomeSuccess: 2, OutcomeEmpty: 1}, counts)
}

func TestOpenReusesExistingSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(context.Background(), Attempt{Format: types.FormatJSON, Outcome: OutcomeSuccess}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Recent(context.Background(), QueryOptions{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
