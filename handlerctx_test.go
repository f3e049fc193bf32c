package supplyq

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/supplymap/supplyq/internal/hctx"
)

func TestHandlerCtx_NoState(t *testing.T) {
	ctx := context.Background()
	require.Empty(t, TaskIDFrom(ctx))
	require.Empty(t, AgentTypeFrom(ctx))
	require.NotPanics(t, func() {
		SetSummary(ctx, "x")
		RequireReview(ctx, "y")
	})
}

func TestHandlerCtx_WithState(t *testing.T) {
	st := hctx.New("RAIL_RATE_1", "rail_rate")
	ctx := hctx.WithState(context.Background(), st)

	require.Equal(t, "RAIL_RATE_1", TaskIDFrom(ctx))
	require.Equal(t, "rail_rate", AgentTypeFrom(ctx))

	SetSummary(ctx, "one")
	SetSummary(ctx, "two")
	require.Equal(t, "two", st.Summary)

	RequireReview(ctx, "odd rate")
	RequireReview(ctx, "")
	require.True(t, st.NeedsReview)
	require.Equal(t, "odd rate", st.ReviewReason)
}
