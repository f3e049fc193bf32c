package supplyq

import (
	"context"
	"time"
)

// Coverage keys reported by the asset repository.
const (
	CoverageTerminals = "terminals"
	CoveragePipelines = "pipelines"
	CoverageTariffs   = "tariffs"
)

// CoverageCounter counts active asset records by category.
type CoverageCounter interface {
	Coverage(ctx context.Context) (map[string]int, error)
}

// Report is a snapshot of queue and catalogue state.
type Report struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Tasks       map[Status]int `json:"tasks"`
	Coverage    map[string]int `json:"coverage"`
	ReviewQueue int            `json:"review_queue"`
}

// Reporter builds status reports. It never writes.
type Reporter struct {
	store    Store
	coverage CoverageCounter
	now      func() time.Time
}

// NewReporter creates a reporter. A nil CoverageCounter yields empty coverage.
func NewReporter(s Store, cov CoverageCounter) *Reporter {
	return &Reporter{store: s, coverage: cov, now: time.Now}
}

// Report counts tasks per status (every status present, zero if none),
// active assets and the review backlog.
func (r *Reporter) Report(ctx context.Context) (Report, error) {
	counts, err := r.store.CountByStatus(ctx)
	if err != nil {
		return Report{}, err
	}
	tasks := make(map[Status]int, len(AllStatuses))
	for _, st := range AllStatuses {
		tasks[st] = counts[st]
	}

	cov := map[string]int{}
	if r.coverage != nil {
		c, err := r.coverage.Coverage(ctx)
		if err != nil {
			return Report{}, err
		}
		for k, v := range c {
			cov[k] = v
		}
	}

	queue, err := r.store.ReviewQueue(ctx)
	if err != nil {
		return Report{}, err
	}

	return Report{
		GeneratedAt: r.now().UTC(),
		Tasks:       tasks,
		Coverage:    cov,
		ReviewQueue: len(queue),
	}, nil
}
