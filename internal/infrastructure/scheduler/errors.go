package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when triggering a task on a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrTaskNotFound is returned for an unregistered task name
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskExists is returned when a task name is registered twice
	ErrTaskExists = errors.New("task already registered")

	// ErrInvalidConfig is returned when a task definition is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)
