package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/supplymap/supplyq"
	"github.com/supplymap/supplyq/internal/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) supplyq.Store { return newTestStore(t) })
}

func TestStore_ReviewQueueView(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for _, id := range []string{"V1", "V2"} {
		require.NoError(t, s.Insert(ctx, &supplyq.Task{
			ID: id, AgentType: "pipeline_tariff", Priority: 8, Status: supplyq.StatusPending, AssignedAt: now, CreatedAt: now,
		}))
		ok, err := s.Claim(ctx, id, now)
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.NoError(t, s.Complete(ctx, "V1", supplyq.Outcome{CompletedAt: now, Summary: "Collected 3 tariffs", RequiresReview: true}))
	require.NoError(t, s.Complete(ctx, "V2", supplyq.Outcome{CompletedAt: now, Summary: "quiet"}))

	var rows []struct {
		TaskID        string
		ResultSummary string
	}
	require.NoError(t, s.DB().Raw("SELECT task_id, result_summary FROM v_review_queue").Scan(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, "V1", rows[0].TaskID)
	require.Equal(t, "Collected 3 tariffs", rows[0].ResultSummary)
}

func TestStore_Indexes(t *testing.T) {
	s := newTestStore(t)
	require.True(t, s.DB().Migrator().HasIndex(&taskRow{}, "idx_tasks_status"))
	require.True(t, s.DB().Migrator().HasIndex(&taskRow{}, "idx_tasks_priority"))
}

func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tasks.db")
	s, err := Open(path)
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, s.Insert(context.Background(), &supplyq.Task{
		ID: "KEEP", AgentType: "a", Priority: 5, Status: supplyq.StatusPending, AssignedAt: now, CreatedAt: now,
	}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(context.Background(), "KEEP")
	require.NoError(t, err)
	require.Equal(t, supplyq.StatusPending, got.Status)
}

func TestStore_ClosedIsUnavailable(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	_, err = s.Pending(context.Background(), 1, "")
	require.ErrorIs(t, err, supplyq.ErrStoreUnavailable)
}
