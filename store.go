package supplyq

import (
	"context"
	"time"
)

// Store persists tasks and enforces the status lifecycle. Every transition
// is a compare-and-swap on the current status.
//
// Implementations wrap driver and connection failures with ErrStoreUnavailable
// so callers can tell infrastructure problems from task-level ones.
type Store interface {
	// Insert adds a Pending task. It returns ErrDuplicateTask if the id exists.
	Insert(ctx context.Context, t *Task) error
	// Pending returns up to limit Pending tasks ordered by priority desc, then
	// assigned timestamp asc, then insertion order. An empty agentType matches all.
	// A limit <= 0 means no limit.
	Pending(ctx context.Context, limit int, agentType string) ([]*Task, error)
	// Claim moves a task from Pending to In Progress. It reports false if
	// the task was no longer Pending.
	Claim(ctx context.Context, id string, startedAt time.Time) (bool, error)
	// Complete moves an In Progress task to Completed and stores its outcome.
	Complete(ctx context.Context, id string, out Outcome) error
	// Fail moves an In Progress task to Failed with the given message.
	Fail(ctx context.Context, id string, errMsg string, at time.Time) error
	// Get returns a task by id or ErrTaskNotFound.
	Get(ctx context.Context, id string) (*Task, error)
	// List returns tasks with the given status (all if empty), newest first.
	List(ctx context.Context, status Status, limit int) ([]*Task, error)
	// ReviewQueue returns Completed, flagged, unreviewed tasks ordered by
	// priority desc, completed asc.
	ReviewQueue(ctx context.Context) ([]ReviewItem, error)
	// CountByStatus counts tasks per status.
	CountByStatus(ctx context.Context) (map[Status]int, error)
	// MarkReviewed sets human_reviewed on a task in the review queue, or
	// returns ErrNotReviewable.
	MarkReviewed(ctx context.Context, id string, notes string) error
	// Requeue moves a Failed task back to Pending and increments its retry count.
	Requeue(ctx context.Context, id string) error
	// Close releases the underlying connection.
	Close() error
}
