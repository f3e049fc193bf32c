package supplyq

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/supplymap/supplyq/internal/hctx"
)

// summaryLimit caps the fallback summary built from the raw result.
const summaryLimit = 200

// Executor pulls Pending tasks from a Store and runs them through a Mux.
type Executor struct {
	store    Store
	mux      *Mux
	notifier Notifier
	encoder  Encoder
	log      Logger
	now      func() time.Time
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithNotifier sets where finished tasks and review requests are reported.
func WithNotifier(n Notifier) ExecutorOption {
	return func(e *Executor) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithExecutorLogger sets the executor logger.
func WithExecutorLogger(l Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.log = l
		}
	}
}

// WithExecutorClock replaces time.Now, mostly for tests.
func WithExecutorClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

// NewExecutor creates an executor. Without WithNotifier, review requests are logged.
func NewExecutor(s Store, mux *Mux, opts ...ExecutorOption) *Executor {
	e := &Executor{
		store:   s,
		mux:     mux,
		encoder: &JSONEncoder{},
		log:     NopLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.notifier == nil {
		e.notifier = NewLogNotifier(e.log)
	}
	return e
}

// errClaimLost marks a task another executor claimed first.
var errClaimLost = errors.New("claim lost")

// ProcessQueue runs up to maxTasks Pending tasks (all if maxTasks <= 0),
// optionally restricted to one agent type, strictly one after another in
// priority order. A failing agent marks its task Failed and the batch goes
// on; a store failure aborts the batch and is returned together with the
// results gathered so far.
func (e *Executor) ProcessQueue(ctx context.Context, maxTasks int, agentType string) ([]TaskResult, error) {
	tasks, err := e.store.Pending(ctx, maxTasks, agentType)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		e.log.Debugf("no pending tasks: type=%q", agentType)
		return nil, nil
	}
	e.log.Infof("processing %d tasks: type=%q", len(tasks), agentType)

	results := make([]TaskResult, 0, len(tasks))
	var flagged []TaskResult
	for _, t := range tasks {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := e.runOne(ctx, t)
		if errors.Is(err, errClaimLost) {
			continue
		}
		if err != nil {
			e.log.Errorf("batch aborted: id=%s err=%v", t.ID, err)
			return results, err
		}
		results = append(results, res)
		if nerr := e.notifier.TaskFinished(ctx, res); nerr != nil {
			e.log.Warnf("notify task finished failed: id=%s err=%v", res.TaskID, nerr)
		}
		if res.RequiresReview {
			flagged = append(flagged, res)
		}
	}

	if len(flagged) > 0 {
		if nerr := e.notifier.ReviewRequired(ctx, flagged); nerr != nil {
			e.log.Warnf("notify review failed: count=%d err=%v", len(flagged), nerr)
		}
	}
	return results, nil
}

func (e *Executor) runOne(ctx context.Context, t *Task) (TaskResult, error) {
	started := e.now().UTC()
	ok, err := e.store.Claim(ctx, t.ID, started)
	if err != nil {
		return TaskResult{}, err
	}
	if !ok {
		e.log.Infof("skipping task claimed elsewhere: id=%s", t.ID)
		return TaskResult{}, errClaimLost
	}
	t.Status = StatusInProgress
	t.StartedAt = &started

	tr := TaskResult{TaskID: t.ID, AgentType: t.AgentType, Description: t.Description}

	st := hctx.New(t.ID, t.AgentType)
	result, runErr := e.run(hctx.WithState(ctx, st), t)

	// The task is ours now; record its outcome even if the caller gave up.
	pctx := context.WithoutCancel(ctx)

	var (
		data            []byte
		review          bool
		reason, summary string
	)
	if runErr == nil {
		if result == nil {
			result = Result{}
		}
		data, err = e.encoder.Encode(result)
		if err != nil {
			runErr = fmt.Errorf("encode result: %w", err)
		}
	}
	if runErr == nil {
		review, reason, summary, runErr = e.assess(t.AgentType, result, data, st)
	}

	if runErr != nil {
		aerr := &AgentError{TaskID: t.ID, AgentType: t.AgentType, Err: runErr}
		e.log.Errorf("%v", aerr)
		tr.Duration = time.Since(started)
		return e.fail(pctx, tr, runErr.Error())
	}

	out := Outcome{
		CompletedAt:    e.now().UTC(),
		Summary:        summary,
		ResultData:     data,
		RequiresReview: review,
	}
	tr.Duration = time.Since(started)
	if err := e.store.Complete(pctx, t.ID, out); err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			return tr, err
		}
		e.log.Warnf("complete transition rejected: id=%s err=%v", t.ID, err)
		return e.fail(pctx, tr, fmt.Sprintf("complete: %v", err))
	}

	tr.Status = StatusCompleted
	tr.Summary = summary
	tr.Result = result
	tr.RequiresReview = review
	tr.ReviewReason = reason
	if review {
		e.log.Warnf("review required: id=%s reason=%s", t.ID, reason)
	}
	return tr, nil
}

// fail records tr as Failed. When the store no longer holds the task In
// Progress the result is dropped like a lost claim, so results only report
// what was persisted.
func (e *Executor) fail(ctx context.Context, tr TaskResult, msg string) (TaskResult, error) {
	if err := e.store.Fail(ctx, tr.TaskID, msg, e.now().UTC()); err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			return tr, err
		}
		e.log.Warnf("fail transition rejected: id=%s err=%v", tr.TaskID, err)
		return tr, errClaimLost
	}
	tr.Status = StatusFailed
	tr.Error = msg
	return tr, nil
}

// assess classifies and summarises a result. Review policies are caller code,
// so a panic in one fails the task instead of the batch.
func (e *Executor) assess(agentType string, r Result, data []byte, st *hctx.State) (review bool, reason, summary string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("review policy panic: %v", p)
		}
	}()
	review, reason = e.classify(agentType, r, st)
	summary = summarize(r, data, st)
	return review, reason, summary, nil
}

func (e *Executor) run(ctx context.Context, t *Task) (Result, error) {
	h, ok := e.mux.resolve(t.AgentType)
	if !ok {
		return nil, fmt.Errorf("%w for %q", ErrNoAgent, t.AgentType)
	}
	return Recover()(h)(ctx, t)
}

// classify decides whether a completed result needs human review.
// An explicit flag from the agent always wins; otherwise the policy
// registered for the agent type decides.
func (e *Executor) classify(agentType string, r Result, st *hctx.State) (bool, string) {
	if st.NeedsReview {
		if st.ReviewReason != "" {
			return true, st.ReviewReason
		}
		return true, "flagged by agent"
	}
	if truthy(r["requires_review"]) {
		return true, "agent set requires_review"
	}
	if p := e.mux.policy(agentType); p != nil {
		return p(r)
	}
	return false, ""
}

// truthy follows the usual JSON notion of truth: false, 0, "", null,
// empty arrays and empty objects are false.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		if b, err := strconv.ParseBool(x); err == nil {
			return b
		}
		return x != ""
	case float64:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}

func summarize(r Result, data []byte, st *hctx.State) string {
	if st.Summary != "" {
		return st.Summary
	}
	if s, ok := r["summary"]; ok && s != nil {
		if str, ok := s.(string); ok {
			return str
		}
		return fmt.Sprint(s)
	}
	if r["status"] == "completed" {
		if n, ok := r["new_terminals"]; ok {
			u, ok := r["updated_terminals"]
			if !ok {
				u = 0
			}
			return fmt.Sprintf("Found %v new, %v updated terminals", n, u)
		}
		if n, ok := r["tariffs_collected"]; ok {
			return fmt.Sprintf("Collected %v tariffs", n)
		}
	}
	return truncate(string(data), summaryLimit)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
