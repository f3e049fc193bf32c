package runtime

import (
	"context"
	"sync"
	"time"
)

// Logger is a minimal logging interface used internally by the runtime.
// It mirrors the public logger in the root package to avoid an import cycle.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Infof(string, ...any)  {}
func (noopLogger) Warnf(string, ...any)  {}
func (noopLogger) Errorf(string, ...any) {}

// Job is a periodic action run by the runtime.
type Job struct {
	Name  string
	Every time.Duration
	// Immediate runs the job once at start before the first tick.
	Immediate bool
	Run       func(ctx context.Context) error
}

type Config struct {
	Jobs   []Job
	Logger Logger
}

// Runtime drives a fixed set of jobs. All jobs share one goroutine, so two
// runs never overlap.
type Runtime struct {
	cfg     Config
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	log     Logger
}

// New creates a new background runtime.
func New(cfg Config) *Runtime {
	lg := cfg.Logger
	if lg == nil {
		lg = noopLogger{}
	}
	return &Runtime{cfg: cfg, log: lg}
}

// Start launches the job loop. It is idempotent and non-blocking.
func (rt *Runtime) Start() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.started {
		rt.log.Warnf("runtime already started; ignoring Start()")
		return
	}
	rt.started = true
	ctx, cancel := context.WithCancel(context.Background())
	rt.cancel = cancel
	rt.log.Infof("runtime starting: jobs=%d", len(rt.cfg.Jobs))

	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		rt.loop(ctx)
	}()
}

// Stop cancels the loop and waits for the running job to return.
func (rt *Runtime) Stop() {
	rt.mu.Lock()
	if !rt.started {
		rt.log.Warnf("runtime not started; ignoring Stop()")
		rt.mu.Unlock()
		return
	}
	rt.started = false
	cancel := rt.cancel
	rt.mu.Unlock()
	rt.log.Infof("runtime stopping")

	cancel()
	rt.wg.Wait()
}

// Running reports whether Start was called without a matching Stop.
func (rt *Runtime) Running() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.started
}

func (rt *Runtime) loop(ctx context.Context) {
	jobs := make([]Job, 0, len(rt.cfg.Jobs))
	for _, j := range rt.cfg.Jobs {
		if j.Every <= 0 || j.Run == nil {
			rt.log.Warnf("skipping job without interval or func: name=%s", j.Name)
			continue
		}
		jobs = append(jobs, j)
	}
	if len(jobs) == 0 {
		return
	}

	next := make([]time.Time, len(jobs))
	now := time.Now()
	for i, j := range jobs {
		if j.Immediate {
			rt.runJob(ctx, j)
		}
		next[i] = now.Add(j.Every)
	}

	// One ticker at the smallest interval keeps every job on a single goroutine.
	tick := jobs[0].Every
	for _, j := range jobs[1:] {
		if j.Every < tick {
			tick = j.Every
		}
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for i, j := range jobs {
				if ctx.Err() != nil {
					return
				}
				if now.Before(next[i]) {
					continue
				}
				rt.runJob(ctx, j)
				next[i] = now.Add(j.Every)
			}
		}
	}
}

func (rt *Runtime) runJob(ctx context.Context, j Job) {
	start := time.Now()
	if err := j.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		rt.log.Errorf("job failed: name=%s err=%v", j.Name, err)
		return
	}
	rt.log.Debugf("job done: name=%s took=%s", j.Name, time.Since(start))
}
