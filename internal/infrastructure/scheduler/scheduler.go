// Package scheduler runs periodic background tasks such as the
// reservation expiry sweep.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// JobStatus represents the status of the last task run
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Task is a named unit of work run every Interval
type Task struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

// TaskStatus reports the outcome of a task's runs
type TaskStatus struct {
	Name        string     `json:"name"`
	Status      JobStatus  `json:"status"`
	Runs        int        `json:"runs"`
	Failures    int        `json:"failures"`
	LastError   string     `json:"last_error,omitempty"`
	LastStarted *time.Time `json:"last_started,omitempty"`
	LastEnded   *time.Time `json:"last_ended,omitempty"`
}

type taskState struct {
	task    Task
	mu      sync.Mutex
	status  TaskStatus
	running bool
}

// Scheduler runs registered tasks on their own tickers. A task never
// overlaps with itself; a tick that arrives mid-run is skipped.
type Scheduler struct {
	logger *zap.Logger

	mu        sync.Mutex
	tasks     map[string]*taskState
	order     []string
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
	ctx       context.Context
}

// NewScheduler creates a new scheduler instance
func NewScheduler(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		logger: logger,
		tasks:  make(map[string]*taskState),
	}
}

// Register adds a task. Tasks must be registered before Start.
func (s *Scheduler) Register(task Task) error {
	if task.Name == "" || task.Run == nil || task.Interval <= 0 {
		return fmt.Errorf("%w: task needs a name, a run func and a positive interval", ErrInvalidConfig)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.Name]; ok {
		return fmt.Errorf("%w: %s", ErrTaskExists, task.Name)
	}
	s.tasks[task.Name] = &taskState{
		task:   task,
		status: TaskStatus{Name: task.Name, Status: JobStatusPending},
	}
	s.order = append(s.order, task.Name)
	return nil
}

// Start launches one loop per registered task
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true
	s.ctx, s.cancel = context.WithCancel(ctx)

	for _, name := range s.order {
		st := s.tasks[name]
		s.wg.Add(1)
		go s.loop(s.ctx, st)
	}

	s.logger.Info("Scheduler started", zap.Int("tasks", len(s.order)))
	return nil
}

// Stop cancels every loop and waits for in-flight runs or ctx expiry
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TriggerNow runs a task immediately and synchronously
func (s *Scheduler) TriggerNow(ctx context.Context, name string) error {
	s.mu.Lock()
	running := s.isRunning
	st, ok := s.tasks[name]
	s.mu.Unlock()

	if !running {
		return ErrSchedulerNotRunning
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, name)
	}
	return s.runTask(ctx, st)
}

// Status returns a snapshot of every task in registration order
func (s *Scheduler) Status() []TaskStatus {
	s.mu.Lock()
	names := append([]string(nil), s.order...)
	s.mu.Unlock()

	out := make([]TaskStatus, 0, len(names))
	for _, name := range names {
		st := s.tasks[name]
		st.mu.Lock()
		out = append(out, st.status)
		st.mu.Unlock()
	}
	return out
}

// IsRunning reports whether Start has been called without Stop
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *Scheduler) loop(ctx context.Context, st *taskState) {
	defer s.wg.Done()

	ticker := time.NewTicker(st.task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.runTask(ctx, st); err != nil && ctx.Err() == nil {
				s.logger.Warn("Scheduled task failed",
					zap.String("task", st.task.Name),
					zap.Error(err),
				)
			}
		}
	}
}

func (s *Scheduler) runTask(ctx context.Context, st *taskState) error {
	st.mu.Lock()
	if st.running {
		st.mu.Unlock()
		s.logger.Debug("Skipping overlapping task run", zap.String("task", st.task.Name))
		return nil
	}
	st.running = true
	started := time.Now()
	st.status.Status = JobStatusRunning
	st.status.LastStarted = &started
	st.mu.Unlock()

	runCtx := ctx
	if st.task.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, st.task.Timeout)
		defer cancel()
	}

	err := s.safeRun(runCtx, st.task)

	ended := time.Now()
	st.mu.Lock()
	st.running = false
	st.status.Runs++
	st.status.LastEnded = &ended
	if err != nil {
		st.status.Status = JobStatusFailed
		st.status.Failures++
		st.status.LastError = err.Error()
	} else {
		st.status.Status = JobStatusSuccess
		st.status.LastError = ""
	}
	st.mu.Unlock()

	return err
}

func (s *Scheduler) safeRun(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.Name, r)
		}
	}()
	return task.Run(ctx)
}
