package supplyq

import (
	"context"
	"errors"
	"strings"
)

// Notifier receives executor events. Errors are logged by the executor and
// never fail a task.
type Notifier interface {
	// TaskFinished is called once per executed task.
	TaskFinished(ctx context.Context, r TaskResult) error
	// ReviewRequired is called once per batch with the tasks flagged for review.
	ReviewRequired(ctx context.Context, flagged []TaskResult) error
}

// LogNotifier writes the review report to a Logger.
type LogNotifier struct {
	log Logger
}

// NewLogNotifier creates a notifier that logs review reports.
func NewLogNotifier(l Logger) *LogNotifier {
	if l == nil {
		l = NopLogger()
	}
	return &LogNotifier{log: l}
}

func (n *LogNotifier) TaskFinished(_ context.Context, r TaskResult) error {
	n.log.Debugf("task finished: id=%s status=%s", r.TaskID, r.Status)
	return nil
}

func (n *LogNotifier) ReviewRequired(_ context.Context, flagged []TaskResult) error {
	n.log.Warnf("%s", ReviewReport(flagged))
	return nil
}

// ReviewReport renders the text sent to reviewers for a batch of flagged tasks.
func ReviewReport(flagged []TaskResult) string {
	var b strings.Builder
	b.WriteString("The following tasks require human review:\n")
	for _, r := range flagged {
		b.WriteString("\n- ")
		b.WriteString(r.TaskID)
		b.WriteString(": ")
		b.WriteString(r.Summary)
		if r.ReviewReason != "" {
			b.WriteString(" (")
			b.WriteString(r.ReviewReason)
			b.WriteString(")")
		}
	}
	return b.String()
}

type multiNotifier []Notifier

// Notifiers fans events out to every given notifier and joins their errors.
func Notifiers(ns ...Notifier) Notifier {
	out := make(multiNotifier, 0, len(ns))
	for _, n := range ns {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (m multiNotifier) TaskFinished(ctx context.Context, r TaskResult) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.TaskFinished(ctx, r))
	}
	return errors.Join(errs...)
}

func (m multiNotifier) ReviewRequired(ctx context.Context, flagged []TaskResult) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.ReviewRequired(ctx, flagged))
	}
	return errors.Join(errs...)
}

// ReviewGate exposes completed tasks that still wait for a human.
type ReviewGate struct {
	store Store
}

// NewReviewGate creates a review gate over a store.
func NewReviewGate(s Store) *ReviewGate { return &ReviewGate{store: s} }

// ListReviewQueue returns Completed, flagged, unreviewed tasks, highest
// priority first and oldest completion first within a priority.
func (g *ReviewGate) ListReviewQueue(ctx context.Context) ([]ReviewItem, error) {
	return g.store.ReviewQueue(ctx)
}
