package database_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/collectbot/internal/database"
	errs "github.com/edgard/collectbot/internal/errors"
)

func newStore(t *testing.T) database.Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "rounds.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })
	return database.NewStore(db, nil)
}

func TestSaveRoundAndTotals(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Ping(ctx))

	totals, err := store.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, database.RoundTotals{}, totals)

	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	rounds := []*database.RoundRecord{
		{ChatID: 111, StartedAt: base, FinishedAt: base.Add(time.Hour), ParticipantCount: 4, SubmissionCount: 4, Reason: database.ReasonDeadline},
		{ChatID: 111, StartedAt: base.Add(2 * time.Hour), FinishedAt: base.Add(150 * time.Minute), ParticipantCount: 20, SubmissionCount: 20, Reason: database.ReasonCapacity},
		{ChatID: 111, StartedAt: base.Add(4 * time.Hour), FinishedAt: base.Add(4*time.Hour + time.Minute), ParticipantCount: 0, SubmissionCount: 0, Reason: database.ReasonStopped},
	}
	for _, r := range rounds {
		require.NoError(t, store.SaveRound(ctx, r))
		assert.NotZero(t, r.ID)
	}

	totals, err = store.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, database.RoundTotals{Rounds: 3, Participants: 24, Submissions: 24, StoppedByOperator: 1}, totals)

	recent, err := store.RecentRounds(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, database.ReasonStopped, recent[0].Reason)
	assert.Equal(t, database.ReasonCapacity, recent[1].Reason)
	assert.True(t, recent[1].FinishedAt.Equal(base.Add(150*time.Minute)))
}

func TestSaveRoundValidation(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()
	now := time.Now()

	err := store.SaveRound(ctx, nil)
	assert.Equal(t, errs.CodeDatabase, errs.Code(err))

	err = store.SaveRound(ctx, &database.RoundRecord{StartedAt: now, FinishedAt: now})
	assert.Equal(t, errs.CodeDatabase, errs.Code(err))

	err = store.SaveRound(ctx, &database.RoundRecord{ChatID: 1, StartedAt: now, FinishedAt: now.Add(-time.Second)})
	assert.Equal(t, errs.CodeDatabase, errs.Code(err))
}

func TestRunSQLMaintenance(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	require.NoError(t, store.RunSQLMaintenance(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, store.RunSQLMaintenance(ctx), context.Canceled)
}

func TestExtractDBNameFromPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "storage.db", database.ExtractDBNameFromPath("storage.db"))
	assert.Equal(t, "/tmp/a b.db", database.ExtractDBNameFromPath("file:/tmp/a%20b.db?_pragma=busy_timeout(5000)"))
}
