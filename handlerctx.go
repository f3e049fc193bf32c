package supplyq

import (
	"context"

	"github.com/supplymap/supplyq/internal/hctx"
)

// TaskIDFrom returns the id of the task being executed, or "" outside an executor run.
func TaskIDFrom(ctx context.Context) string {
	st, ok := hctx.From(ctx)
	if !ok || st == nil {
		return ""
	}
	return st.TaskID
}

// AgentTypeFrom returns the agent type of the task being executed.
func AgentTypeFrom(ctx context.Context) string {
	st, ok := hctx.From(ctx)
	if !ok || st == nil {
		return ""
	}
	return st.AgentType
}

// SetSummary sets the human-readable result summary for the current task.
// It takes precedence over the summary derived from the result. Last call wins.
// It is a no-op if the context was not provided by the executor.
func SetSummary(ctx context.Context, s string) {
	st, ok := hctx.From(ctx)
	if !ok || st == nil {
		return
	}
	st.Summary = s
}

// RequireReview flags the current task for human review regardless of its
// review policy. It is a no-op if the context was not provided by the executor.
func RequireReview(ctx context.Context, reason string) {
	st, ok := hctx.From(ctx)
	if !ok || st == nil {
		return
	}
	st.NeedsReview = true
	if reason != "" {
		st.ReviewReason = reason
	}
}
