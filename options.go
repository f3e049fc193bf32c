package supplyq

import "time"

// DefaultPriority is used when Enqueue is called without the Priority option.
const DefaultPriority = 5

const (
	// MinPriority is the lowest accepted priority.
	MinPriority = 1
	// MaxPriority is the highest accepted priority.
	MaxPriority = 10
)

type options struct {
	id         string
	priority   int
	params     map[string]any
	assignedAt time.Time
}

// Option is a function that configures a task during Enqueue.
type Option func(*options)

// TaskID sets a custom ID for the task. If not provided, one is generated
// from the agent type, the current time and a random suffix.
func TaskID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

// Priority sets the task priority (1..10, higher = more urgent).
func Priority(p int) Option {
	return func(o *options) {
		o.priority = p
	}
}

// Params attaches parameters that are passed to the agent unchanged.
func Params(p map[string]any) Option {
	return func(o *options) {
		o.params = p
	}
}

// AssignedAt overrides the assignment timestamp used for tie-breaking.
func AssignedAt(t time.Time) Option {
	return func(o *options) {
		if !t.IsZero() {
			o.assignedAt = t.UTC()
		}
	}
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithMaxRetries bounds how many times RetryFailed may put one task back in the queue.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithClientLogger sets the logger used by the client.
func WithClientLogger(l Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}
