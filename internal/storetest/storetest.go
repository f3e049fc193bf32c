// Package storetest holds behaviour tests shared by every supplyq.Store backend.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/supplymap/supplyq"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) supplyq.Store

var base = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func newTask(id, agentType string, priority int, assigned time.Time) *supplyq.Task {
	return &supplyq.Task{
		ID:          id,
		AgentType:   agentType,
		Description: "desc " + id,
		Params:      map[string]any{"k": "v"},
		Priority:    priority,
		Status:      supplyq.StatusPending,
		AssignedAt:  assigned,
		CreatedAt:   assigned,
	}
}

func insert(t *testing.T, s supplyq.Store, tasks ...*supplyq.Task) {
	t.Helper()
	for _, tk := range tasks {
		require.NoError(t, s.Insert(context.Background(), tk))
	}
}

func ids(tasks []*supplyq.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func complete(t *testing.T, s supplyq.Store, id string, review bool, at time.Time) {
	t.Helper()
	ctx := context.Background()
	ok, err := s.Claim(ctx, id, at)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.Complete(ctx, id, supplyq.Outcome{
		CompletedAt:    at,
		Summary:        "sum " + id,
		ResultData:     []byte(`{"status":"completed"}`),
		RequiresReview: review,
	}))
}

// Run executes the shared suite against stores built by f.
func Run(t *testing.T, f Factory) {
	ctx := context.Background()

	t.Run("InsertGetRoundTrip", func(t *testing.T) {
		s := f(t)
		tk := newTask("A_1", "rail_rate", 7, base)
		tk.Params = map[string]any{"railroads": []any{"UP", "BNSF"}, "n": float64(3)}
		insert(t, s, tk)

		got, err := s.Get(ctx, "A_1")
		require.NoError(t, err)
		require.Equal(t, "rail_rate", got.AgentType)
		require.Equal(t, "desc A_1", got.Description)
		require.Equal(t, 7, got.Priority)
		require.Equal(t, supplyq.StatusPending, got.Status)
		require.True(t, base.Equal(got.AssignedAt))
		require.Nil(t, got.StartedAt)
		require.Nil(t, got.CompletedAt)
		require.Equal(t, tk.Params, got.Params)
		require.False(t, got.RequiresReview)
		require.Zero(t, got.RetryCount)
	})

	t.Run("DuplicateID", func(t *testing.T) {
		s := f(t)
		insert(t, s, newTask("DUP", "x", 5, base))
		err := s.Insert(ctx, newTask("DUP", "y", 6, base))
		require.ErrorIs(t, err, supplyq.ErrDuplicateTask)

		got, err := s.Get(ctx, "DUP")
		require.NoError(t, err)
		require.Equal(t, "x", got.AgentType, "original record must be untouched")
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := f(t)
		_, err := s.Get(ctx, "nope")
		require.ErrorIs(t, err, supplyq.ErrTaskNotFound)
	})

	t.Run("PendingOrder", func(t *testing.T) {
		s := f(t)
		insert(t, s,
			newTask("low", "a", 2, base),
			newTask("hi_late", "a", 9, base.Add(2*time.Second)),
			newTask("mid", "b", 5, base),
			newTask("hi_early", "b", 9, base.Add(time.Second)),
		)
		got, err := s.Pending(ctx, 0, "")
		require.NoError(t, err)
		require.Equal(t, []string{"hi_early", "hi_late", "mid", "low"}, ids(got))

		got, err = s.Pending(ctx, 2, "")
		require.NoError(t, err)
		require.Equal(t, []string{"hi_early", "hi_late"}, ids(got))

		got, err = s.Pending(ctx, 0, "a")
		require.NoError(t, err)
		require.Equal(t, []string{"hi_late", "low"}, ids(got))
	})

	t.Run("PendingSameTimestampKeepsInsertOrder", func(t *testing.T) {
		s := f(t)
		for i := 0; i < 5; i++ {
			insert(t, s, newTask(fmt.Sprintf("z%d", 4-i), "a", 5, base))
		}
		got, err := s.Pending(ctx, 0, "")
		require.NoError(t, err)
		require.Equal(t, []string{"z4", "z3", "z2", "z1", "z0"}, ids(got))
	})

	t.Run("PendingIsNonDestructive", func(t *testing.T) {
		s := f(t)
		insert(t, s, newTask("P1", "a", 5, base))
		for i := 0; i < 2; i++ {
			got, err := s.Pending(ctx, 10, "")
			require.NoError(t, err)
			require.Equal(t, []string{"P1"}, ids(got))
		}
	})

	t.Run("ClaimCAS", func(t *testing.T) {
		s := f(t)
		insert(t, s, newTask("C1", "a", 5, base))
		ok, err := s.Claim(ctx, "C1", base.Add(time.Minute))
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = s.Claim(ctx, "C1", base.Add(2*time.Minute))
		require.NoError(t, err)
		require.False(t, ok, "second claim must lose")

		got, err := s.Get(ctx, "C1")
		require.NoError(t, err)
		require.Equal(t, supplyq.StatusInProgress, got.Status)
		require.NotNil(t, got.StartedAt)
		require.True(t, base.Add(time.Minute).Equal(*got.StartedAt))

		pending, err := s.Pending(ctx, 0, "")
		require.NoError(t, err)
		require.Empty(t, pending)
	})

	t.Run("ConcurrentClaimSucceedsOnce", func(t *testing.T) {
		s := f(t)
		insert(t, s, newTask("RACE", "a", 5, base))
		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := s.Claim(ctx, "RACE", base)
				if err == nil && ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		require.Equal(t, int32(1), wins.Load())
	})

	t.Run("CompleteAndFail", func(t *testing.T) {
		s := f(t)
		insert(t, s, newTask("OK", "a", 5, base), newTask("BAD", "a", 5, base))

		// Complete before claim is illegal.
		err := s.Complete(ctx, "OK", supplyq.Outcome{CompletedAt: base})
		require.ErrorIs(t, err, supplyq.ErrIllegalTransition)

		complete(t, s, "OK", false, base.Add(time.Minute))
		got, err := s.Get(ctx, "OK")
		require.NoError(t, err)
		require.Equal(t, supplyq.StatusCompleted, got.Status)
		require.Equal(t, "sum OK", got.Summary)
		require.JSONEq(t, `{"status":"completed"}`, string(got.ResultData))
		require.NotNil(t, got.CompletedAt)

		ok, err := s.Claim(ctx, "BAD", base)
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, s.Fail(ctx, "BAD", "boom", base.Add(time.Minute)))
		got, err = s.Get(ctx, "BAD")
		require.NoError(t, err)
		require.Equal(t, supplyq.StatusFailed, got.Status)
		require.Equal(t, "boom", got.Error)
		require.False(t, got.RequiresReview)

		// Terminal states do not move again.
		require.ErrorIs(t, s.Fail(ctx, "OK", "late", base), supplyq.ErrIllegalTransition)
		require.ErrorIs(t, s.Complete(ctx, "BAD", supplyq.Outcome{CompletedAt: base}), supplyq.ErrIllegalTransition)
		require.ErrorIs(t, s.Fail(ctx, "missing", "x", base), supplyq.ErrTaskNotFound)
	})

	t.Run("ReviewQueue", func(t *testing.T) {
		s := f(t)
		insert(t, s,
			newTask("R_LOW", "a", 3, base),
			newTask("R_HI_LATE", "a", 8, base),
			newTask("R_HI_EARLY", "a", 8, base),
			newTask("NOREV", "a", 9, base),
			newTask("FAILED", "a", 9, base),
		)
		complete(t, s, "R_LOW", true, base.Add(1*time.Minute))
		complete(t, s, "R_HI_LATE", true, base.Add(3*time.Minute))
		complete(t, s, "R_HI_EARLY", true, base.Add(2*time.Minute))
		complete(t, s, "NOREV", false, base.Add(time.Minute))
		ok, err := s.Claim(ctx, "FAILED", base)
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, s.Fail(ctx, "FAILED", "x", base))

		q, err := s.ReviewQueue(ctx)
		require.NoError(t, err)
		got := make([]string, 0, len(q))
		for _, it := range q {
			got = append(got, it.TaskID)
		}
		require.Equal(t, []string{"R_HI_EARLY", "R_HI_LATE", "R_LOW"}, got)
		require.Equal(t, "sum R_HI_EARLY", q[0].Summary)
		require.Equal(t, 8, q[0].Priority)
		require.Equal(t, "desc R_HI_EARLY", q[0].Description)
		require.True(t, base.Add(2*time.Minute).Equal(q[0].CompletedAt))

		require.NoError(t, s.MarkReviewed(ctx, "R_HI_EARLY", "looks fine"))
		q, err = s.ReviewQueue(ctx)
		require.NoError(t, err)
		require.Len(t, q, 2)

		rv, err := s.Get(ctx, "R_HI_EARLY")
		require.NoError(t, err)
		require.True(t, rv.HumanReviewed)
		require.Equal(t, "looks fine", rv.ReviewNotes)

		require.ErrorIs(t, s.MarkReviewed(ctx, "R_HI_EARLY", "again"), supplyq.ErrNotReviewable)
		require.ErrorIs(t, s.MarkReviewed(ctx, "NOREV", ""), supplyq.ErrNotReviewable)
		require.ErrorIs(t, s.MarkReviewed(ctx, "missing", ""), supplyq.ErrTaskNotFound)
	})

	t.Run("CountByStatus", func(t *testing.T) {
		s := f(t)
		counts, err := s.CountByStatus(ctx)
		require.NoError(t, err)
		for _, st := range supplyq.AllStatuses {
			require.Zero(t, counts[st])
		}

		insert(t, s, newTask("1", "a", 5, base), newTask("2", "a", 5, base), newTask("3", "a", 5, base))
		complete(t, s, "1", false, base)
		ok, err := s.Claim(ctx, "2", base)
		require.NoError(t, err)
		require.True(t, ok)

		counts, err = s.CountByStatus(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, counts[supplyq.StatusPending])
		require.Equal(t, 1, counts[supplyq.StatusInProgress])
		require.Equal(t, 1, counts[supplyq.StatusCompleted])
		require.Equal(t, 0, counts[supplyq.StatusFailed])
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		s := f(t)
		insert(t, s,
			newTask("old", "a", 5, base),
			newTask("new", "a", 5, base.Add(time.Hour)),
			newTask("mid", "a", 5, base.Add(time.Minute)),
		)
		complete(t, s, "mid", false, base.Add(2*time.Hour))

		all, err := s.List(ctx, "", 0)
		require.NoError(t, err)
		require.Equal(t, []string{"new", "mid", "old"}, ids(all))

		pend, err := s.List(ctx, supplyq.StatusPending, 0)
		require.NoError(t, err)
		require.Equal(t, []string{"new", "old"}, ids(pend))

		one, err := s.List(ctx, "", 1)
		require.NoError(t, err)
		require.Equal(t, []string{"new"}, ids(one))
	})

	t.Run("Requeue", func(t *testing.T) {
		s := f(t)
		insert(t, s, newTask("RQ", "a", 6, base))
		require.ErrorIs(t, s.Requeue(ctx, "RQ"), supplyq.ErrIllegalTransition)

		ok, err := s.Claim(ctx, "RQ", base)
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, s.Fail(ctx, "RQ", "boom", base))
		require.NoError(t, s.Requeue(ctx, "RQ"))

		got, err := s.Get(ctx, "RQ")
		require.NoError(t, err)
		require.Equal(t, supplyq.StatusPending, got.Status)
		require.Equal(t, 1, got.RetryCount)
		require.Equal(t, 6, got.Priority)

		pend, err := s.Pending(ctx, 0, "")
		require.NoError(t, err)
		require.Equal(t, []string{"RQ"}, ids(pend))
		require.True(t, errors.Is(s.Requeue(ctx, "missing"), supplyq.ErrTaskNotFound))
	})
}
