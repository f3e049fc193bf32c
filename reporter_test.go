package supplyq_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/supplymap/supplyq"
)

type staticCoverage map[string]int

func (c staticCoverage) Coverage(context.Context) (map[string]int, error) { return c, nil }

type brokenCoverage struct{}

func (brokenCoverage) Coverage(context.Context) (map[string]int, error) {
	return nil, errors.New("assets offline")
}

func TestReporter_EmptyStore(t *testing.T) {
	backends(t, func(t *testing.T, s supplyq.Store) {
		rep, err := supplyq.NewReporter(s, nil).Report(context.Background())
		require.NoError(t, err)
		require.Len(t, rep.Tasks, len(supplyq.AllStatuses))
		for _, st := range supplyq.AllStatuses {
			require.Zero(t, rep.Tasks[st], st)
		}
		require.Empty(t, rep.Coverage)
		require.NotNil(t, rep.Coverage)
		require.Zero(t, rep.ReviewQueue)
		require.False(t, rep.GeneratedAt.IsZero())
	})
}

func TestReporter_CountsEveryStatus(t *testing.T) {
	backends(t, func(t *testing.T, s supplyq.Store) {
		ctx := context.Background()
		c := supplyq.NewClient(s)
		ids := make([]string, 5)
		for i := range ids {
			ids[i] = enqueue(t, c, "rail_rate")
		}
		now := time.Now()
		claim := func(id string) {
			ok, err := s.Claim(ctx, id, now)
			require.NoError(t, err)
			require.True(t, ok)
		}

		claim(ids[0])
		claim(ids[1])
		require.NoError(t, s.Complete(ctx, ids[1], supplyq.Outcome{CompletedAt: now, RequiresReview: true}))
		claim(ids[2])
		require.NoError(t, s.Complete(ctx, ids[2], supplyq.Outcome{CompletedAt: now}))
		claim(ids[3])
		require.NoError(t, s.Fail(ctx, ids[3], "boom", now))

		cov := staticCoverage{supplyq.CoverageTerminals: 12, supplyq.CoveragePipelines: 0, supplyq.CoverageTariffs: 3}
		r := supplyq.NewReporter(s, cov)
		rep, err := r.Report(ctx)
		require.NoError(t, err)
		require.Equal(t, map[supplyq.Status]int{
			supplyq.StatusPending:    1,
			supplyq.StatusInProgress: 1,
			supplyq.StatusCompleted:  2,
			supplyq.StatusFailed:     1,
		}, rep.Tasks)
		require.Equal(t, map[string]int(cov), rep.Coverage)
		require.Equal(t, 1, rep.ReviewQueue)

		again, err := r.Report(ctx)
		require.NoError(t, err)
		require.Equal(t, rep.Tasks, again.Tasks)
		require.Equal(t, rep.Coverage, again.Coverage)
		require.Equal(t, rep.ReviewQueue, again.ReviewQueue)
	})
}

func TestReporter_CoverageError(t *testing.T) {
	st, _ := newMiniStore(t)
	_, err := supplyq.NewReporter(st, brokenCoverage{}).Report(context.Background())
	require.ErrorContains(t, err, "assets offline")
}

func TestReporter_StoreUnavailable(t *testing.T) {
	st, mr := newMiniStore(t)
	mr.Close()
	_, err := supplyq.NewReporter(st, nil).Report(context.Background())
	require.ErrorIs(t, err, supplyq.ErrStoreUnavailable)
}
