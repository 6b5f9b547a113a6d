package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-legal/casebook-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// --- Runs ---

func TestSQLite_CreateRun_PersistsRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "compendium_2024.json")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "compendium_2024.json", run.Source)
	assert.Equal(t, model.RunStateRunning, run.State)
	assert.False(t, run.StartedAt.IsZero())

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Source, got.Source)
	assert.Equal(t, model.RunStateRunning, got.State)
	assert.Nil(t, got.CompletedAt)
}

func TestSQLite_CompleteRun_UpdatesCounters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "compendium_2024.json")
	require.NoError(t, err)

	err = st.CompleteRun(ctx, run.ID, &model.RunSummary{
		State:          model.RunStateCompleted,
		UnitsProcessed: 120,
		UnitsSkipped:   4,
		CaseCount:      310,
		DuplicateCount: 42,
		ErrorCount:     2,
	})
	require.NoError(t, err)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStateCompleted, got.State)
	assert.Equal(t, 120, got.UnitsProcessed)
	assert.Equal(t, 4, got.UnitsSkipped)
	assert.Equal(t, 310, got.CaseCount)
	assert.Equal(t, 42, got.DuplicateCount)
	assert.Equal(t, 2, got.ErrorCount)
	require.NotNil(t, got.CompletedAt)
	assert.False(t, got.CompletedAt.IsZero())
}

func TestSQLite_CompleteRun_RecordsFailure(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "compendium_2024.json")
	require.NoError(t, err)

	err = st.CompleteRun(ctx, run.ID, &model.RunSummary{State: model.RunStateFailed})
	require.NoError(t, err)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStateFailed, got.State)
}

func TestSQLite_CompleteRun_UnknownRun(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.CompleteRun(context.Background(), "no-such-run", &model.RunSummary{
		State: model.RunStateCompleted,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetRun(context.Background(), "no-such-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_ListRuns_NewestFirst(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	r1, err := st.CreateRun(ctx, "first.json")
	require.NoError(t, err)
	r2, err := st.CreateRun(ctx, "second.json")
	require.NoError(t, err)

	runs, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, r2.ID, runs[0].ID)
	assert.Equal(t, r1.ID, runs[1].ID)
}

func TestSQLite_ListRuns_FilterByState(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	r1, err := st.CreateRun(ctx, "a.json")
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, "b.json")
	require.NoError(t, err)
	r3, err := st.CreateRun(ctx, "c.json")
	require.NoError(t, err)

	require.NoError(t, st.CompleteRun(ctx, r1.ID, &model.RunSummary{State: model.RunStateCompleted}))
	require.NoError(t, st.CompleteRun(ctx, r3.ID, &model.RunSummary{State: model.RunStateFailed}))

	completed, err := st.ListRuns(ctx, RunFilter{State: model.RunStateCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, r1.ID, completed[0].ID)

	running, err := st.ListRuns(ctx, RunFilter{State: model.RunStateRunning})
	require.NoError(t, err)
	assert.Len(t, running, 1)

	failed, err := st.ListRuns(ctx, RunFilter{State: model.RunStateFailed})
	require.NoError(t, err)
	assert.Len(t, failed, 1)
}

func TestSQLite_ListRuns_LimitAndOffset(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, src := range []string{"a.json", "b.json", "c.json"} {
		_, err := st.CreateRun(ctx, src)
		require.NoError(t, err)
	}

	page, err := st.ListRuns(ctx, RunFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := st.ListRuns(ctx, RunFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestSQLite_ListRuns_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)

	runs, err := st.ListRuns(context.Background(), RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

// --- Unit errors ---

func TestSQLite_UnitErrors_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "compendium_2024.json")
	require.NoError(t, err)

	now := time.Now().UTC()
	errs := []model.UnitError{
		{Unit: 17, Stage: model.StageExtract, Reason: "rate limited after 3 attempts", Attempts: 3, At: now},
		{Unit: 5, Stage: model.StageParse, Reason: "malformed response payload", Attempts: 1, At: now},
	}
	require.NoError(t, st.RecordUnitErrors(ctx, run.ID, errs))

	got, err := st.ListUnitErrors(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ordered by unit, not insertion order.
	assert.Equal(t, 5, got[0].Unit)
	assert.Equal(t, model.StageParse, got[0].Stage)
	assert.Equal(t, "malformed response payload", got[0].Reason)
	assert.Equal(t, 1, got[0].Attempts)
	assert.WithinDuration(t, now, got[0].At, time.Second)

	assert.Equal(t, 17, got[1].Unit)
	assert.Equal(t, model.StageExtract, got[1].Stage)
	assert.Equal(t, 3, got[1].Attempts)
}

func TestSQLite_UnitErrors_EmptyRecordIsNoop(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "compendium_2024.json")
	require.NoError(t, err)

	require.NoError(t, st.RecordUnitErrors(ctx, run.ID, nil))

	got, err := st.ListUnitErrors(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLite_UnitErrors_ScopedToRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	r1, err := st.CreateRun(ctx, "a.json")
	require.NoError(t, err)
	r2, err := st.CreateRun(ctx, "b.json")
	require.NoError(t, err)

	require.NoError(t, st.RecordUnitErrors(ctx, r1.ID, []model.UnitError{
		{Unit: 1, Stage: model.StageExtract, Reason: "timeout", Attempts: 3, At: time.Now().UTC()},
	}))
	require.NoError(t, st.RecordUnitErrors(ctx, r2.ID, []model.UnitError{
		{Unit: 9, Stage: model.StageExtract, Reason: "timeout", Attempts: 3, At: time.Now().UTC()},
	}))

	got, err := st.ListUnitErrors(ctx, r1.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Unit)
}

// --- Setup ---

func TestSQLite_Migrate_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_NewSQLite_BadPath(t *testing.T) {
	_, err := NewSQLite(filepath.Join(t.TempDir(), "missing", "nested", "test.db"))
	require.Error(t, err)
}
