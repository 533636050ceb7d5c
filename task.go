package isotask

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/dshills/isotask/decompose"
	"github.com/dshills/isotask/worker"
)

// Task runs one self-contained computation at a time in an isolated worker.
// A task is reusable: once a run settles it can be started again, but starts
// that overlap an in-flight run are rejected.
//
// All methods are safe for concurrent use.
type Task struct {
	id      uuid.UUID
	source  string
	factory worker.Factory
	logger  *slog.Logger

	mu     sync.RWMutex
	status Status
	err    error

	observers observerList
}

// Option configures a Task at construction.
type Option func(*Task)

// WithFactory replaces the worker channel factory. The default creates
// sandboxed Lua channels.
func WithFactory(factory worker.Factory) Option {
	return func(t *Task) { t.factory = factory }
}

// WithLogger attaches a logger. Tasks log at debug level only; the default
// discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Task) { t.logger = logger }
}

// New constructs a task holding the given function source. An empty source is
// legal and produces runs that settle with no data; a non-empty source that
// does not look like a function literal fails with ErrNotInvocable.
func New(source string, opts ...Option) (*Task, error) {
	t := &Task{
		id:      uuid.New(),
		source:  source,
		factory: worker.DefaultFactory,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		status:  StatusCreated,
	}
	if t.hasFunction() && !decompose.IsFunction(source) {
		return nil, ErrNotInvocable
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("task_id", t.id)
	return t, nil
}

// StartNew constructs a task and immediately starts it with the given state.
func StartNew(source string, state any, opts ...Option) (*Task, *Future, error) {
	t, err := New(source, opts...)
	if err != nil {
		return nil, nil, err
	}
	return t, t.Start(state), nil
}

// Start launches one run with the given input state and returns its future.
// Start never blocks on the computation: failures before dispatch settle the
// future immediately, and everything after dispatch settles it from the
// worker goroutine.
//
// A start that overlaps an in-flight run is rejected with ErrTaskBusy; the
// task's status and recorded error are untouched by the rejection.
func (t *Task) Start(state any) *Future {
	fut := newFuture()

	if !t.begin() {
		t.logger.Debug("start rejected", "status", t.Status())
		fut.reject(&TaskError{State: state, Err: ErrTaskBusy})
		return fut
	}

	ch, err := t.factory()
	if err != nil {
		err = fmt.Errorf("create worker channel: %w", err)
		t.fault(err)
		fut.reject(&TaskError{State: state, Err: err})
		return fut
	}

	msg, echo, err := t.buildMessage(state)
	if err != nil {
		ch.Terminate()
		t.fault(err)
		fut.reject(&TaskError{State: state, Err: err})
		return fut
	}

	ch.OnResult(func(payload []byte) {
		ch.Terminate()
		t.complete(fut, payload, echo)
	})
	ch.OnError(func(runErr error) {
		ch.Terminate()
		t.fault(runErr)
		fut.reject(&TaskError{State: echo, Err: runErr})
	})

	t.setStatus(StatusRunning)
	if err := ch.Send(msg); err != nil {
		err = fmt.Errorf("dispatch message: %w", err)
		ch.Terminate()
		t.fault(err)
		fut.reject(&TaskError{State: echo, Err: err})
		return fut
	}
	t.logger.Debug("run dispatched")
	return fut
}

// ID returns the task's unique identifier.
func (t *Task) ID() uuid.UUID {
	return t.id
}

// Source returns the function source the task was constructed with.
func (t *Task) Source() string {
	return t.source
}

// Status returns the current lifecycle state.
func (t *Task) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Err returns the error recorded by the most recent faulted run, or nil. A
// successful run clears it.
func (t *Task) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

// begin atomically applies the start guard: it refuses when a run is already
// in flight and otherwise enters WaitingToRun.
func (t *Task) begin() bool {
	t.mu.Lock()
	if t.status == StatusWaitingToRun || t.status == StatusRunning {
		t.mu.Unlock()
		return false
	}
	old := t.status
	t.status = StatusWaitingToRun
	t.mu.Unlock()
	t.notifyStatus(old, StatusWaitingToRun)
	return true
}

// buildMessage decomposes the held function and serializes the input state.
// The returned echo is the state after a round trip through JSON, which is
// exactly the copy the result will carry.
func (t *Task) buildMessage(state any) (worker.Message, any, error) {
	var msg worker.Message
	if t.hasFunction() {
		fn, err := decompose.Parse(t.source)
		if err != nil {
			return worker.Message{}, nil, err
		}
		msg.Func = fn
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return worker.Message{}, nil, fmt.Errorf("serialize state: %w", err)
	}
	msg.State = raw

	var echo any
	if err := json.Unmarshal(raw, &echo); err != nil {
		return worker.Message{}, nil, fmt.Errorf("round-trip state: %w", err)
	}
	return msg, echo, nil
}

// complete settles a successful run: the payload is decoded, the lifecycle
// moves to RanToCompletion and any recorded error is cleared.
func (t *Task) complete(fut *Future, payload []byte, echo any) {
	data, err := parsePayload(payload)
	if err != nil {
		t.fault(err)
		fut.reject(&TaskError{State: echo, Err: err})
		return
	}
	t.setStatus(StatusRanToCompletion)
	t.setErr(nil)
	t.logger.Debug("run completed")
	fut.resolve(Result{Data: data, State: echo})
}

// fault records a failed run.
func (t *Task) fault(err error) {
	t.setStatus(StatusFaulted)
	t.setErr(err)
	t.logger.Debug("run faulted", "error", err)
}

func (t *Task) setStatus(cur Status) {
	t.mu.Lock()
	old := t.status
	if old == cur {
		t.mu.Unlock()
		return
	}
	t.status = cur
	t.mu.Unlock()
	t.notifyStatus(old, cur)
}

func (t *Task) setErr(cur error) {
	t.mu.Lock()
	old := t.err
	if old == cur {
		t.mu.Unlock()
		return
	}
	t.err = cur
	t.mu.Unlock()
	t.notifyError(old, cur)
}

func (t *Task) hasFunction() bool {
	return strings.TrimSpace(t.source) != ""
}

// parsePayload decodes a worker success payload. An empty payload is the
// legal no-data outcome.
func parsePayload(payload []byte) (any, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(payload) {
		return nil, ErrMalformedPayload
	}
	return gjson.ParseBytes(payload).Value(), nil
}
