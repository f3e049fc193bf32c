package supplyq_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	mrd "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/supplymap/supplyq"
	"github.com/supplymap/supplyq/internal/redisstore"
	"github.com/supplymap/supplyq/internal/sqlstore"
)

func newMiniStore(t testing.TB) (*redisstore.Store, *mrd.Miniredis) {
	t.Helper()
	s := mrd.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	st := redisstore.New(rdb, "")
	t.Cleanup(func() { _ = st.Close() })
	return st, s
}

func newSQLStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	st, err := sqlstore.Open(filepath.Join(t.TempDir(), "supply_chain.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// backends runs fn once per store implementation.
func backends(t *testing.T, fn func(t *testing.T, s supplyq.Store)) {
	t.Run("redis", func(t *testing.T) {
		st, _ := newMiniStore(t)
		fn(t, st)
	})
	t.Run("sqlite", func(t *testing.T) {
		fn(t, newSQLStore(t))
	})
}

// fixedClock returns a clock that advances one second per call.
func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := cur
		cur = cur.Add(time.Second)
		return now
	}
}

// recordingNotifier keeps every event it receives.
type recordingNotifier struct {
	mu       sync.Mutex
	finished []supplyq.TaskResult
	batches  [][]supplyq.TaskResult
}

func (n *recordingNotifier) TaskFinished(_ context.Context, r supplyq.TaskResult) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finished = append(n.finished, r)
	return nil
}

func (n *recordingNotifier) ReviewRequired(_ context.Context, flagged []supplyq.TaskResult) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.batches = append(n.batches, flagged)
	return nil
}

// faultyStore overrides selected Store methods.
type faultyStore struct {
	supplyq.Store
	insert   func(ctx context.Context, t *supplyq.Task) error
	claim    func(ctx context.Context, id string, at time.Time) (bool, error)
	complete func(ctx context.Context, id string, out supplyq.Outcome) error
	fail     func(ctx context.Context, id string, errMsg string, at time.Time) error
}

func (f *faultyStore) Insert(ctx context.Context, t *supplyq.Task) error {
	if f.insert != nil {
		return f.insert(ctx, t)
	}
	return f.Store.Insert(ctx, t)
}

func (f *faultyStore) Claim(ctx context.Context, id string, at time.Time) (bool, error) {
	if f.claim != nil {
		return f.claim(ctx, id, at)
	}
	return f.Store.Claim(ctx, id, at)
}

func (f *faultyStore) Complete(ctx context.Context, id string, out supplyq.Outcome) error {
	if f.complete != nil {
		return f.complete(ctx, id, out)
	}
	return f.Store.Complete(ctx, id, out)
}

func (f *faultyStore) Fail(ctx context.Context, id string, errMsg string, at time.Time) error {
	if f.fail != nil {
		return f.fail(ctx, id, errMsg, at)
	}
	return f.Store.Fail(ctx, id, errMsg, at)
}
