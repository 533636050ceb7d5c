package worker

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/sjson"

	"github.com/dshills/isotask/decompose"
)

var (
	// ErrChannelSpent is returned by Send when the channel's single message
	// has already been dispatched.
	ErrChannelSpent = errors.New("worker channel already dispatched")

	// ErrChannelClosed is returned by Send after Terminate.
	ErrChannelClosed = errors.New("worker channel terminated")
)

// Message is the one request a Channel accepts. State is pre-serialized by
// the caller; the channel boundary is copy-only and nothing crosses it by
// reference.
type Message struct {
	// Func is the decomposed computation to reconstruct and invoke on the
	// worker side. A nil Func is legal and yields an empty success payload
	// without invoking anything.
	Func *decompose.Function

	// State is the caller-supplied input, already JSON-encoded.
	State json.RawMessage
}

// Channel runs one reconstructed computation in an isolated context and
// reports exactly one outcome through the registered callbacks.
//
// Usage is strictly ordered: register both callbacks, Send exactly once,
// Terminate after the outcome arrives (or earlier to abandon an undispatched
// channel). Exactly one callback fires per accepted Send, never both and
// never neither. Callbacks run on the worker goroutine.
type Channel interface {
	// OnResult registers the success callback. The payload is the serialized
	// return value of the computation; an empty payload means the computation
	// produced no data. Must be called before Send.
	OnResult(fn func(payload []byte))

	// OnError registers the failure callback. Must be called before Send.
	OnError(fn func(err error))

	// Send dispatches the single message. It never blocks.
	Send(msg Message) error

	// Terminate releases the isolated context. Idempotent.
	Terminate()
}

// Factory creates a fresh Channel for one execution. Tasks hold a Factory
// rather than a concrete channel so tests can substitute synchronous doubles.
type Factory func() (Channel, error)

// DefaultFactory creates Lua-backed channels with default interpreter
// settings.
func DefaultFactory() (Channel, error) {
	return NewLuaChannel(), nil
}

// NewFactory returns a Factory whose channels all carry the given options.
func NewFactory(opts ...Option) Factory {
	return func() (Channel, error) {
		return NewLuaChannel(opts...), nil
	}
}

// encodeMessage builds the wire form of a message:
//
//	{"func":{"body":"...","args":["p1",...]}|null,"state":<json>}
//
// The func field stays null when no computation is attached, and state stays
// null when the caller supplied no input bytes.
func encodeMessage(msg Message) ([]byte, error) {
	wire := []byte(`{"func":null,"state":null}`)
	var err error
	if msg.Func != nil {
		if wire, err = sjson.SetBytes(wire, "func.body", msg.Func.Body); err != nil {
			return nil, fmt.Errorf("encode func body: %w", err)
		}
		args := msg.Func.Params
		if args == nil {
			args = []string{}
		}
		if wire, err = sjson.SetBytes(wire, "func.args", args); err != nil {
			return nil, fmt.Errorf("encode func args: %w", err)
		}
	}
	if len(msg.State) > 0 {
		if wire, err = sjson.SetRawBytes(wire, "state", msg.State); err != nil {
			return nil, fmt.Errorf("encode state: %w", err)
		}
	}
	return wire, nil
}
