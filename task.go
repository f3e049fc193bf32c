package supplyq

import "time"

// Task represents one agent invocation tracked through the status lifecycle.
// Terminal records are never deleted; they form the audit trail.
type Task struct {
	// ID is the unique identifier for the task (AGENT_TYPE_YYYYMMDD_HHMMSS_xxxxxxxx).
	ID string `json:"task_id"`
	// AgentType routes the task to a registered agent in the Mux.
	AgentType string `json:"agent_type"`
	// Description is the free-text instruction handed to the agent.
	Description string `json:"task_description"`
	// Params is passed through to the agent unchanged.
	Params map[string]any `json:"task_parameters,omitempty"`
	// Priority is 1..10, higher runs first. Immutable after creation.
	Priority int `json:"priority"`
	// Status is the current lifecycle state.
	Status Status `json:"status"`
	// AssignedAt is when the task entered the queue; it breaks priority ties.
	AssignedAt time.Time `json:"assigned_timestamp"`
	// StartedAt is set by the claim transition.
	StartedAt *time.Time `json:"started_timestamp,omitempty"`
	// CompletedAt is set by the Completed or Failed transition.
	CompletedAt *time.Time `json:"completed_timestamp,omitempty"`
	// CreatedAt is when the record was inserted.
	CreatedAt time.Time `json:"created_at"`
	// Summary is a human-readable description of the result.
	Summary string `json:"result_summary,omitempty"`
	// ResultData is the agent result stored as JSON.
	ResultData []byte `json:"result_data,omitempty"`
	// RequiresReview is set only when the task completes.
	RequiresReview bool `json:"requires_human_review"`
	// HumanReviewed is set only by an administrative review action.
	HumanReviewed bool `json:"human_reviewed"`
	// ReviewNotes holds the reviewer's notes.
	ReviewNotes string `json:"human_review_notes,omitempty"`
	// Error is the failure message of a Failed task.
	Error string `json:"error_message,omitempty"`
	// RetryCount counts operator-driven retries (see Client.RetryFailed).
	RetryCount int `json:"retry_count"`
}

// Outcome carries the fields written by the Completed transition.
type Outcome struct {
	CompletedAt    time.Time
	Summary        string
	ResultData     []byte
	RequiresReview bool
}

// ReviewItem is one row of the review queue.
type ReviewItem struct {
	TaskID      string    `json:"task_id"`
	AgentType   string    `json:"agent_type"`
	Description string    `json:"description"`
	Priority    int       `json:"priority"`
	CompletedAt time.Time `json:"completed"`
	Summary     string    `json:"summary"`
}

// TaskResult is what ProcessQueue reports for every task it ran.
type TaskResult struct {
	TaskID         string        `json:"task_id"`
	AgentType      string        `json:"agent_type"`
	Description    string        `json:"description"`
	Status         Status        `json:"status"`
	Summary        string        `json:"summary,omitempty"`
	Result         Result        `json:"result,omitempty"`
	RequiresReview bool          `json:"requires_review"`
	ReviewReason   string        `json:"review_reason,omitempty"`
	Error          string        `json:"error,omitempty"`
	Duration       time.Duration `json:"duration"`
}
