package supplyq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, st := range AllStatuses {
		got, err := ParseStatus(st.String())
		require.NoError(t, err)
		require.Equal(t, st, got)
	}
	for _, bad := range []string{"", "pending", "InProgress", "Done"} {
		_, err := ParseStatus(bad)
		require.ErrorIs(t, err, ErrUnknownStatus, bad)
	}
}

func TestCanTransition(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusPending, StatusInProgress}:   true,
		{StatusInProgress, StatusCompleted}: true,
		{StatusInProgress, StatusFailed}:    true,
	}
	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			require.Equal(t, allowed[[2]Status{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	require.True(t, StatusCompleted.Terminal())
	require.True(t, StatusFailed.Terminal())
	require.False(t, StatusPending.Terminal())
	require.False(t, StatusInProgress.Terminal())
}

func TestOptions(t *testing.T) {
	o := &options{priority: DefaultPriority}
	for _, opt := range []Option{TaskID("x"), Priority(9), Params(map[string]any{"a": 1}), AssignedAt(time.Time{})} {
		opt(o)
	}
	require.Equal(t, "x", o.id)
	require.Equal(t, 9, o.priority)
	require.Equal(t, map[string]any{"a": 1}, o.params)
	require.True(t, o.assignedAt.IsZero())

	c := NewClient(nil, WithMaxRetries(-1), WithClock(nil), WithClientLogger(nil))
	require.Equal(t, DefaultMaxRetries, c.maxRetries)
	require.NotNil(t, c.now)
	require.NotNil(t, c.log)

	c = NewClient(nil, WithMaxRetries(0))
	require.Zero(t, c.maxRetries)
}
