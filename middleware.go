package supplyq

import (
	"context"
	"fmt"
	"time"
)

// Recover turns a panicking agent into an ordinary error so the task is
// marked Failed and the batch keeps going.
func Recover() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, t *Task) (res Result, err error) {
			defer func() {
				if r := recover(); r != nil {
					res = nil
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return next(ctx, t)
		}
	}
}

// Logging logs the start and end of every agent run.
func Logging(l Logger) Middleware {
	if l == nil {
		l = NopLogger()
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, t *Task) (Result, error) {
			start := time.Now()
			l.Infof("agent start: id=%s type=%s priority=%d", t.ID, t.AgentType, t.Priority)
			res, err := next(ctx, t)
			if err != nil {
				l.Warnf("agent error: id=%s type=%s took=%s err=%v", t.ID, t.AgentType, time.Since(start), err)
				return res, err
			}
			l.Infof("agent done: id=%s type=%s took=%s", t.ID, t.AgentType, time.Since(start))
			return res, nil
		}
	}
}
