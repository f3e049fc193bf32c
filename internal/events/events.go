// Package events publishes task outcomes and review reports to NATS.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/supplymap/supplyq"
)

// Subjects used by the notifier.
const (
	SubjectTaskStatus   = "supplyq.task.status"
	SubjectReviewReport = "supplyq.review.report"
)

// Publisher is the subset of *nats.Conn the notifier needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// TaskStatus is published once per processed task.
type TaskStatus struct {
	TaskID         string         `json:"task_id"`
	AgentType      string         `json:"agent_type"`
	Status         supplyq.Status `json:"status"`
	Summary        string         `json:"summary,omitempty"`
	RequiresReview bool           `json:"requires_review"`
	ReviewReason   string         `json:"review_reason,omitempty"`
	Error          string         `json:"error,omitempty"`
	DurationMS     int64          `json:"duration_ms"`
	Timestamp      time.Time      `json:"timestamp"`
}

// ReviewReport is published once per batch that flagged tasks.
type ReviewReport struct {
	Count     int                  `json:"count"`
	Tasks     []supplyq.TaskResult `json:"tasks"`
	Text      string               `json:"text"`
	Timestamp time.Time            `json:"timestamp"`
}

// Notifier implements supplyq.Notifier on top of a Publisher.
type Notifier struct {
	pub  Publisher
	conn *nats.Conn
	enc  supplyq.Encoder
	now  func() time.Time
}

var _ supplyq.Notifier = (*Notifier)(nil)

// New wraps an existing publisher.
func New(pub Publisher) *Notifier {
	return &Notifier{pub: pub, enc: &supplyq.JSONEncoder{}, now: time.Now}
}

// Connect dials the NATS server at url.
func Connect(url string, log supplyq.Logger) (*Notifier, error) {
	if log == nil {
		log = supplyq.NopLogger()
	}
	nc, err := nats.Connect(url,
		nats.Name("supplyq"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnf("nats disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Infof("nats reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("events: connect %s: %w", url, err)
	}
	n := New(nc)
	n.conn = nc
	return n, nil
}

// TaskFinished publishes the task outcome on SubjectTaskStatus.
func (n *Notifier) TaskFinished(_ context.Context, r supplyq.TaskResult) error {
	return n.publish(SubjectTaskStatus, TaskStatus{
		TaskID:         r.TaskID,
		AgentType:      r.AgentType,
		Status:         r.Status,
		Summary:        r.Summary,
		RequiresReview: r.RequiresReview,
		ReviewReason:   r.ReviewReason,
		Error:          r.Error,
		DurationMS:     r.Duration.Milliseconds(),
		Timestamp:      n.now().UTC(),
	})
}

// ReviewRequired publishes the batch's flagged tasks on SubjectReviewReport.
func (n *Notifier) ReviewRequired(_ context.Context, flagged []supplyq.TaskResult) error {
	if len(flagged) == 0 {
		return nil
	}
	return n.publish(SubjectReviewReport, ReviewReport{
		Count:     len(flagged),
		Tasks:     flagged,
		Text:      supplyq.ReviewReport(flagged),
		Timestamp: n.now().UTC(),
	})
}

func (n *Notifier) publish(subject string, v any) error {
	data, err := n.enc.Encode(v)
	if err != nil {
		return fmt.Errorf("events: encode %s: %w", subject, err)
	}
	if err := n.pub.Publish(subject, data); err != nil {
		return fmt.Errorf("events: publish %s: %w", subject, err)
	}
	return nil
}

// Close drains the connection opened by Connect. It is a no-op for New.
func (n *Notifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}
