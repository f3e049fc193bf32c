package redisstore

import (
	"context"
	"testing"
	"time"

	mrd "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/supplymap/supplyq"
	ikeys "github.com/supplymap/supplyq/internal/keys"
	"github.com/supplymap/supplyq/internal/storetest"
)

func newMiniStore(t *testing.T) (*Store, *mrd.Miniredis) {
	t.Helper()
	s := mrd.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	st := New(rdb, "")
	t.Cleanup(func() { _ = st.Close() })
	return st, s
}

func TestStore_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) supplyq.Store {
		st, _ := newMiniStore(t)
		return st
	})
}

func TestStore_Indexes(t *testing.T) {
	st, mr := newMiniStore(t)
	ctx := context.Background()
	k := ikeys.For("")
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, st.Insert(ctx, &supplyq.Task{
		ID: "T1", AgentType: "a", Priority: 8, Status: supplyq.StatusPending, AssignedAt: now, CreatedAt: now,
	}))
	require.True(t, mr.Exists(k.Task("T1")))
	ok, err := mr.SIsMember(k.Status("Pending"), "T1")
	require.NoError(t, err)
	require.True(t, ok)
	score, err := mr.ZScore(k.Pending, "T1")
	require.NoError(t, err)
	require.Equal(t, pendingScore(8, now.UnixMilli()), score)

	claimed, err := st.Claim(ctx, "T1", now)
	require.NoError(t, err)
	require.True(t, claimed)
	n, err := st.rdb.ZCard(ctx, k.Pending).Result()
	require.NoError(t, err)
	require.Zero(t, n)
	ok, err = mr.SIsMember(k.Status("In Progress"), "T1")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, st.Complete(ctx, "T1", supplyq.Outcome{CompletedAt: now, RequiresReview: true}))
	rev, err := mr.ZMembers(k.Review)
	require.NoError(t, err)
	require.Equal(t, []string{"T1"}, rev)
}

func TestStore_Unavailable(t *testing.T) {
	st, mr := newMiniStore(t)
	mr.Close()
	_, err := st.Pending(context.Background(), 1, "")
	require.ErrorIs(t, err, supplyq.ErrStoreUnavailable)
	_, err = st.Claim(context.Background(), "x", time.Now())
	require.ErrorIs(t, err, supplyq.ErrStoreUnavailable)
}

func TestStore_ScoresOrderByPriorityFirst(t *testing.T) {
	late := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	early := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	require.Less(t, pendingScore(10, late), pendingScore(9, early))
	require.Less(t, pendingScore(1, early), pendingScore(1, late))
}

func TestStore_Namespace(t *testing.T) {
	st, _ := newMiniStore(t)
	require.Equal(t, ikeys.DefaultNamespace, st.Namespace())

	rdb := redis.NewClient(&redis.Options{Addr: mrd.RunT(t).Addr()})
	defer rdb.Close()
	require.Equal(t, "prod", New(rdb, "prod").Namespace())
}

func TestStore_PendingLimitReadsQueueHead(t *testing.T) {
	st, mr := newMiniStore(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	add := func(id string, prio int) {
		require.NoError(t, st.Insert(ctx, &supplyq.Task{
			ID: id, AgentType: "rail_rate", Priority: prio, Status: supplyq.StatusPending, AssignedAt: at, CreatedAt: at,
		}))
	}
	// Same score for c, b and a; insertion order must win over member order.
	add("c", 5)
	add("b", 5)
	add("a", 5)
	add("z", 9)
	add("tail", 1)

	got, err := st.Pending(ctx, 2, "")
	require.NoError(t, err)
	require.Equal(t, []string{"z", "c"}, taskIDs(got))

	got, err = st.Pending(ctx, 3, "")
	require.NoError(t, err)
	require.Equal(t, []string{"z", "c", "b"}, taskIDs(got))

	// A corrupt hash past the head is never read by a limited dequeue.
	mr.HSet(ikeys.For("").Task("tail"), "priority", "not-a-number")
	got, err = st.Pending(ctx, 4, "")
	require.NoError(t, err)
	require.Equal(t, []string{"z", "c", "b", "a"}, taskIDs(got))

	_, err = st.Pending(ctx, 0, "")
	require.Error(t, err)
}

func taskIDs(tasks []*supplyq.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}
