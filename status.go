package isotask

// Status is a Task's lifecycle state. A task moves Created -> WaitingToRun ->
// Running -> RanToCompletion or Faulted, and both terminal states may loop
// back to WaitingToRun on a restart.
type Status int32

const (
	// StatusCreated is the initial state of a freshly constructed task.
	StatusCreated Status = iota

	// StatusWaitingToRun means a start was accepted and the worker channel
	// is being prepared.
	StatusWaitingToRun

	// StatusRunning means the message has been dispatched and the outcome is
	// pending.
	StatusRunning

	// StatusRanToCompletion means the most recent run produced a result.
	StatusRanToCompletion

	// StatusFaulted means the most recent run failed. The task remains
	// restartable.
	StatusFaulted
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusWaitingToRun:
		return "waiting-to-run"
	case StatusRunning:
		return "running"
	case StatusRanToCompletion:
		return "ran-to-completion"
	case StatusFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}
