package manager

// invalidTaskError signals an unknown task id (404 mapping).
type invalidTaskError struct{ taskID string }

func (e invalidTaskError) Error() string { return "unknown task: " + e.taskID }

// ErrInvalidTask constructs an invalidTaskError.
func ErrInvalidTask(taskID string) error { return invalidTaskError{taskID: taskID} }

// IsInvalidTask reports whether err indicates an unknown task id.
func IsInvalidTask(err error) bool {
	_, ok := err.(invalidTaskError)
	return ok
}

// invalidOptionError signals an unknown option for a known task (400 mapping).
type invalidOptionError struct{ taskID, option string }

func (e invalidOptionError) Error() string {
	return "unknown option for task " + e.taskID + ": " + e.option
}

// ErrInvalidOption constructs an invalidOptionError.
func ErrInvalidOption(taskID, option string) error {
	return invalidOptionError{taskID: taskID, option: option}
}

// IsInvalidOption reports whether err indicates an unknown option.
func IsInvalidOption(err error) bool {
	_, ok := err.(invalidOptionError)
	return ok
}

// resourceExhaustedError signals that capacity could not be freed even after
// evicting every resident resource (507 mapping).
type resourceExhaustedError struct {
	required uint64
	capacity uint64
}

func (e resourceExhaustedError) Error() string {
	return "resource exhausted: " + formatBytes(e.required) + " required, " +
		formatBytes(e.capacity) + " total capacity"
}

// ErrResourceExhausted constructs a resourceExhaustedError.
func ErrResourceExhausted(required, capacity uint64) error {
	return resourceExhaustedError{required: required, capacity: capacity}
}

// IsResourceExhausted reports whether err indicates insufficient capacity
// with nothing left to evict.
func IsResourceExhausted(err error) bool {
	_, ok := err.(resourceExhaustedError)
	return ok
}

// loadFailureError wraps whatever the loader reported (502 mapping).
type loadFailureError struct {
	taskID string
	cause  error
}

func (e loadFailureError) Error() string { return "load " + e.taskID + ": " + e.cause.Error() }
func (e loadFailureError) Unwrap() error { return e.cause }

// IsLoadFailure reports whether err wraps a loader failure.
func IsLoadFailure(err error) bool {
	_, ok := err.(loadFailureError)
	return ok
}

// shuttingDownError signals that the manager is past Shutdown (503 mapping).
type shuttingDownError struct{}

func (shuttingDownError) Error() string { return "manager is shutting down" }

// IsShuttingDown reports whether err indicates the manager has shut down.
func IsShuttingDown(err error) bool {
	_, ok := err.(shuttingDownError)
	return ok
}
