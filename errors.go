package isotask

import "errors"

var (
	// ErrNotInvocable is returned by New when a non-empty source does not
	// carry a function-literal header.
	ErrNotInvocable = errors.New("task function is not invocable")

	// ErrTaskBusy rejects a start while an execution is already in flight.
	ErrTaskBusy = errors.New("task already waiting to run or running")

	// ErrMalformedPayload marks a success report whose payload is not valid
	// JSON. It can only arise from a misbehaving custom channel.
	ErrMalformedPayload = errors.New("worker result payload is not valid JSON")
)
