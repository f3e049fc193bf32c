package supplyq

import (
	"errors"
	"fmt"
)

// ErrValidation is returned when task creation input is malformed (bad priority, empty agent type).
var ErrValidation = errors.New("supplyq: invalid task")

// ErrDuplicateTask is returned when a task ID already exists in the store.
var ErrDuplicateTask = errors.New("supplyq: duplicate task id")

// ErrTaskNotFound is returned when a task with the specified ID is not found.
var ErrTaskNotFound = errors.New("supplyq: task not found")

// ErrUnknownStatus is returned when an invalid status is used.
var ErrUnknownStatus = errors.New("supplyq: unknown status")

// ErrIllegalTransition is returned when a task is not in the status a transition requires.
var ErrIllegalTransition = errors.New("supplyq: illegal status transition")

// ErrStoreUnavailable wraps persistence failures. It is never absorbed per task.
var ErrStoreUnavailable = errors.New("supplyq: store unavailable")

// ErrNoAgent indicates there is no agent registered for the task type and no wildcard fallback.
var ErrNoAgent = errors.New("supplyq: no agent registered")

// ErrRetryExhausted is returned by RetryFailed when a task already used its retries.
var ErrRetryExhausted = errors.New("supplyq: retries exhausted")

// ErrNotReviewable is returned when marking a task reviewed that is not in the review queue.
var ErrNotReviewable = errors.New("supplyq: task is not awaiting review")

// ErrUnknownSchedule is returned for a schedule name other than daily, weekly or monthly.
var ErrUnknownSchedule = errors.New("supplyq: unknown schedule")

// AgentError wraps any failure raised while an agent runs a task.
type AgentError struct {
	TaskID    string
	AgentType string
	Err       error
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("agent %s failed on %s: %v", e.AgentType, e.TaskID, e.Err)
}

func (e *AgentError) Unwrap() error { return e.Err }
