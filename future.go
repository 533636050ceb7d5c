package isotask

import (
	"context"
	"sync"
)

// Result is the value side of a settled run.
type Result struct {
	// Data is the JSON-decoded return value of the computation, nil when the
	// computation produced no data.
	Data any

	// State echoes the input of the run that produced this result, after a
	// round trip through the serialization boundary.
	State any
}

// TaskError is the rejection payload of a run. State carries the input of the
// failed run so callers juggling several starts can tell outcomes apart.
type TaskError struct {
	State any
	Err   error
}

func (e *TaskError) Error() string { return e.Err.Error() }

func (e *TaskError) Unwrap() error { return e.Err }

// Future is the single-settlement handle returned by Start. It settles
// exactly once, either with a Result or with a *TaskError.
type Future struct {
	done chan struct{}
	once sync.Once
	res  Result
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(res Result) {
	f.once.Do(func() {
		f.res = res
		close(f.done)
	})
}

func (f *Future) reject(err *TaskError) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Wait blocks until the future settles or ctx is done. Abandoning a Wait
// does not stop the underlying run; the future can be waited on again.
func (f *Future) Wait(ctx context.Context) (Result, error) {
	select {
	case <-f.done:
		return f.res, f.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Done returns a channel that is closed once the future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether the future has already resolved or rejected.
func (f *Future) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
