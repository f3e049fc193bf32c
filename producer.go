package supplyq

import (
	"context"
	"fmt"
)

// Producer enqueues the fixed recurring task sets. It is not idempotent:
// every call adds new Pending tasks.
type Producer struct {
	client *Client
	log    Logger
}

// NewProducer creates a producer that enqueues through c.
func NewProducer(c *Client, l Logger) *Producer {
	if l == nil {
		l = NopLogger()
	}
	return &Producer{client: c, log: l}
}

// ScheduleDaily enqueues the daily tasks and returns their ids.
func (p *Producer) ScheduleDaily(ctx context.Context) ([]string, error) {
	return p.Schedule(ctx, ScheduleDailyName)
}

// ScheduleWeekly enqueues the weekly tasks and returns their ids.
func (p *Producer) ScheduleWeekly(ctx context.Context) ([]string, error) {
	return p.Schedule(ctx, ScheduleWeeklyName)
}

// ScheduleMonthly enqueues the monthly tasks and returns their ids.
func (p *Producer) ScheduleMonthly(ctx context.Context) ([]string, error) {
	return p.Schedule(ctx, ScheduleMonthlyName)
}

// Schedule enqueues the named schedule ("daily", "weekly" or "monthly").
func (p *Producer) Schedule(ctx context.Context, name string) ([]string, error) {
	tpls, ok := ScheduleTemplates(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSchedule, name)
	}
	return p.enqueueAll(ctx, name, tpls)
}

// enqueueAll stops at the first failure and returns the ids created before it.
func (p *Producer) enqueueAll(ctx context.Context, name string, tpls []Template) ([]string, error) {
	ids := make([]string, 0, len(tpls))
	for _, tpl := range tpls {
		id, err := p.client.Enqueue(ctx, tpl.AgentType, tpl.Description,
			Priority(tpl.Priority), Params(tpl.Params))
		if err != nil {
			return ids, fmt.Errorf("schedule %s: enqueue %s: %w", name, tpl.AgentType, err)
		}
		ids = append(ids, id)
	}
	p.log.Infof("scheduled %s tasks: count=%d", name, len(ids))
	return ids, nil
}
