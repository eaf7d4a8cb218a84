// Package scheduler runs named background jobs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrUnknownJob is returned by RunNow for a name that was never registered.
var ErrUnknownJob = errors.New("unknown job")

// ErrJobRunning is returned by RunNow when the job is already executing.
var ErrJobRunning = errors.New("job already running")

// JobFunc performs one run of a job.
type JobFunc func(ctx context.Context) error

// JobStatus describes the last run of a job.
type JobStatus struct {
	Name      string    `json:"name"`
	Schedule  string    `json:"schedule"`
	Running   bool      `json:"running"`
	LastRun   time.Time `json:"last_run,omitzero"`
	LastError string    `json:"last_error,omitempty"`
	NextRun   time.Time `json:"next_run,omitzero"`
}

type job struct {
	name     string
	schedule string
	fn       JobFunc
	entryID  cron.EntryID

	running bool
	lastRun time.Time
	lastErr error
}

// Scheduler wraps a cron runner. A job never overlaps with itself: a tick
// that fires while the previous run is still going is skipped.
type Scheduler struct {
	mu     sync.Mutex
	cron   *cron.Cron
	parser cron.Parser
	jobs   map[string]*job
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler. Schedules accept an optional leading
// seconds field and descriptors such as "@every 1h".
func NewScheduler() *Scheduler {
	parser := cron.NewParser(
		cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)
	return &Scheduler{
		cron:   cron.New(cron.WithParser(parser)),
		parser: parser,
		jobs:   make(map[string]*job),
		logger: slog.Default(),
	}
}

// WithLogger sets a custom logger.
func (s *Scheduler) WithLogger(logger *slog.Logger) *Scheduler {
	s.logger = logger.With(slog.String("component", "scheduler"))
	return s
}

// Register adds a job. It must be called before Start.
func (s *Scheduler) Register(name, schedule string, fn JobFunc) error {
	if err := s.ValidateCron(schedule); err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	j := &job{name: name, schedule: schedule, fn: fn}
	id, err := s.cron.AddFunc(schedule, func() { s.run(j) })
	if err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}
	j.entryID = id
	s.jobs[name] = j

	s.logger.Debug("job registered", slog.String("job", name), slog.String("schedule", schedule))
	return nil
}

// Start begins firing scheduled jobs.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		return fmt.Errorf("scheduler already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()

	s.logger.Info("scheduler started", slog.Int("jobs", len(s.jobs)))
	return nil
}

// Stop halts the cron runner, cancels in-flight jobs and waits for them.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.wg.Wait()

	s.mu.Lock()
	s.ctx = nil
	s.cancel = nil
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
}

// RunNow runs a job immediately in the background.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	running := ok && j.running
	s.mu.Unlock()

	switch {
	case !ok:
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	case running:
		return fmt.Errorf("%w: %s", ErrJobRunning, name)
	}

	go s.run(j)
	return nil
}

func (s *Scheduler) run(j *job) {
	s.mu.Lock()
	if j.running {
		s.mu.Unlock()
		s.logger.Debug("skipping overlapping run", slog.String("job", j.name))
		return
	}
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	j.running = true
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()

	start := time.Now()
	err := j.fn(ctx)

	s.mu.Lock()
	j.running = false
	j.lastRun = start
	j.lastErr = err
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("job failed",
			slog.String("job", j.name),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return
	}
	s.logger.Info("job completed",
		slog.String("job", j.name),
		slog.Duration("duration", time.Since(start)))
}

// Status returns every job's state, sorted by name.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		st := JobStatus{
			Name:     j.name,
			Schedule: j.schedule,
			Running:  j.running,
			LastRun:  j.lastRun,
			NextRun:  s.cron.Entry(j.entryID).Next,
		}
		if j.lastErr != nil {
			st.LastError = j.lastErr.Error()
		}
		out = append(out, st)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

// ParseCron validates a cron expression and returns the next run time.
func (s *Scheduler) ParseCron(expr string) (time.Time, error) {
	schedule, err := s.parser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression: %w", err)
	}
	return schedule.Next(time.Now()), nil
}

// ValidateCron validates a cron expression.
func (s *Scheduler) ValidateCron(expr string) error {
	_, err := s.ParseCron(expr)
	return err
}
