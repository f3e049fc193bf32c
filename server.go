package supplyq

import (
	"context"
	"sync"
	"time"

	rtm "github.com/supplymap/supplyq/internal/runtime"
)

// DefaultInterval is how often the server drains the queue when ServerConfig.Interval is zero.
const DefaultInterval = time.Minute

// ServerConfig defines the configuration for a Server.
type ServerConfig struct {
	// Interval between queue-processing batches.
	Interval time.Duration
	// MaxTasks caps each batch. Zero means no cap.
	MaxTasks int
	// AgentType restricts processing to one agent type when set.
	AgentType string
	// Producer and Schedules optionally enqueue named schedules on their own
	// cadence, e.g. {"daily": 24 * time.Hour}.
	Producer  *Producer
	Schedules map[string]time.Duration
	// Logger is the logger used for server events.
	Logger Logger
}

// Server periodically runs ProcessQueue (and optional schedules) on one goroutine.
type Server struct {
	rt      *rtm.Runtime
	mu      sync.Mutex
	started bool
	log     Logger
	cfg     ServerConfig
}

// NewServer creates a new server around an executor.
func NewServer(exec *Executor, cfg ServerConfig) *Server {
	l := cfg.Logger
	if l == nil {
		l = NewDefaultLogger()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}

	var jobs []rtm.Job
	if cfg.Producer != nil {
		for name, every := range cfg.Schedules {
			jobs = append(jobs, rtm.Job{
				Name:  "schedule:" + name,
				Every: every,
				Run: func(ctx context.Context) error {
					_, err := cfg.Producer.Schedule(ctx, name)
					return err
				},
			})
		}
	}
	jobs = append(jobs, rtm.Job{
		Name:      "process",
		Every:     cfg.Interval,
		Immediate: true,
		Run: func(ctx context.Context) error {
			res, err := exec.ProcessQueue(ctx, cfg.MaxTasks, cfg.AgentType)
			if len(res) > 0 {
				l.Infof("batch finished: tasks=%d", len(res))
			}
			return err
		},
	})

	rtc := rtm.Config{
		Jobs:   jobs,
		Logger: rtLogger{Logger: l},
	}
	return &Server{rt: rtm.New(rtc), log: l, cfg: cfg}
}

// Start launches the background loop. It is idempotent and non-blocking.
func (s *Server) Start() {
	s.mu.Lock()
	if s.started {
		s.log.Warnf("server already started; ignoring Start()")
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()
	s.log.Infof("starting server: interval=%s max_tasks=%d agent_type=%q schedules=%d",
		s.cfg.Interval, s.cfg.MaxTasks, s.cfg.AgentType, len(s.cfg.Schedules))
	s.rt.Start()
}

// Stop shuts the loop down, waiting for the current batch to finish.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.started {
		s.log.Warnf("server not started; ignoring Stop()")
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()
	s.log.Infof("stopping server")
	s.rt.Stop()
}

// rtLogger adapts the public Logger to the internal runtime logger interface.
type rtLogger struct{ Logger }

// Running reports whether the background loop is active.
func (s *Server) Running() bool { return s.rt.Running() }
