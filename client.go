package supplyq

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
)

// idAttempts bounds how often a generated id is regenerated after a collision.
const idAttempts = 3

// DefaultMaxRetries is how many times RetryFailed may requeue one task by default.
const DefaultMaxRetries = 3

// Client provides APIs to enqueue and manage tasks in a Store.
type Client struct {
	store      Store
	encoder    Encoder
	log        Logger
	now        func() time.Time
	maxRetries int
}

// NewClient creates a new client over the given store.
func NewClient(s Store, opts ...ClientOption) *Client {
	c := &Client{
		store:      s,
		encoder:    &JSONEncoder{},
		log:        NopLogger(),
		now:        time.Now,
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the underlying store.
func (c *Client) Store() Store { return c.store }

// Enqueue validates and persists a new Pending task and returns its id.
// It returns an error wrapping ErrValidation for a blank agent type or a
// priority outside 1..10, and ErrDuplicateTask if an explicit TaskID is taken.
func (c *Client) Enqueue(ctx context.Context, agentType, description string, opts ...Option) (string, error) {
	cfg := &options{priority: DefaultPriority}
	for _, opt := range opts {
		opt(cfg)
	}

	if strings.TrimSpace(agentType) == "" {
		return "", fmt.Errorf("%w: agent type is empty", ErrValidation)
	}
	if cfg.priority < MinPriority || cfg.priority > MaxPriority {
		return "", fmt.Errorf("%w: priority %d not in %d..%d", ErrValidation, cfg.priority, MinPriority, MaxPriority)
	}
	if cfg.params != nil {
		if _, err := c.encoder.Encode(cfg.params); err != nil {
			return "", fmt.Errorf("%w: params: %v", ErrValidation, err)
		}
	}

	now := c.now().UTC()
	assigned := cfg.assignedAt
	if assigned.IsZero() {
		assigned = now
	}

	t := &Task{
		AgentType:   agentType,
		Description: description,
		Params:      maps.Clone(cfg.params),
		Priority:    cfg.priority,
		Status:      StatusPending,
		AssignedAt:  assigned,
		CreatedAt:   now,
	}

	if cfg.id != "" {
		t.ID = cfg.id
		if err := c.store.Insert(ctx, t); err != nil {
			return "", err
		}
		c.log.Debugf("enqueued: id=%s type=%s priority=%d", t.ID, agentType, t.Priority)
		return t.ID, nil
	}

	var err error
	for i := 0; i < idAttempts; i++ {
		t.ID = NewTaskID(agentType, now)
		err = c.store.Insert(ctx, t)
		if !errors.Is(err, ErrDuplicateTask) {
			break
		}
		c.log.Warnf("task id collision, regenerating: id=%s", t.ID)
	}
	if err != nil {
		return "", err
	}
	c.log.Debugf("enqueued: id=%s type=%s priority=%d", t.ID, agentType, t.Priority)
	return t.ID, nil
}

// NewTaskID builds an id of the form AGENT_TYPE_YYYYMMDD_HHMMSS_xxxxxxxx.
func NewTaskID(agentType string, at time.Time) string {
	return strings.ToUpper(agentType) + "_" + at.UTC().Format("20060102_150405") + "_" + uuid.NewString()[:8]
}

// Dequeue returns up to limit Pending tasks in execution order without claiming them.
func (c *Client) Dequeue(ctx context.Context, limit int, agentType string) ([]*Task, error) {
	return c.store.Pending(ctx, limit, agentType)
}

// Get returns a task by id.
func (c *Client) Get(ctx context.Context, id string) (*Task, error) {
	return c.store.Get(ctx, id)
}

// TaskFilter is a function used to filter tasks during ListTasks.
type TaskFilter func(*Task) bool

// ListTasks returns tasks in the given status (all statuses if empty), newest first.
func (c *Client) ListTasks(ctx context.Context, status Status, filter TaskFilter) ([]*Task, error) {
	if status != "" {
		if _, err := ParseStatus(string(status)); err != nil {
			return nil, err
		}
	}
	tasks, err := c.store.List(ctx, status, 0)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return tasks, nil
	}
	out := tasks[:0]
	for _, t := range tasks {
		if filter(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// MarkReviewed records a human review of a task in the review queue.
func (c *Client) MarkReviewed(ctx context.Context, id, notes string) error {
	if err := c.store.MarkReviewed(ctx, id, notes); err != nil {
		return err
	}
	c.log.Infof("reviewed: id=%s", id)
	return nil
}

// RetryFailed puts a Failed task back in the queue. It is an operator action
// and is never called by the executor. Each task may be retried at most
// the configured number of times (see WithMaxRetries).
func (c *Client) RetryFailed(ctx context.Context, id string) error {
	t, err := c.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if t.Status != StatusFailed {
		return fmt.Errorf("%w: %s is %q, only Failed tasks can be retried", ErrIllegalTransition, id, t.Status)
	}
	if t.RetryCount >= c.maxRetries {
		return fmt.Errorf("%w: %s retried %d times", ErrRetryExhausted, id, t.RetryCount)
	}
	if err := c.store.Requeue(ctx, id); err != nil {
		return err
	}
	c.log.Infof("requeued: id=%s retry=%d", id, t.RetryCount+1)
	return nil
}
