package worker

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/isotask/internal/luaconv"
)

// LuaError carries the error value raised inside the interpreter, bridged to
// Go. For error("boom", 0) the value is the string "boom".
type LuaError struct {
	Value any
}

func (e *LuaError) Error() string {
	if s, ok := e.Value.(string); ok {
		return s
	}
	return fmt.Sprintf("lua error: %v", e.Value)
}

// Option configures a LuaChannel.
type Option func(*LuaChannel)

// WithRegistrySize sets the interpreter registry size. Values below the
// interpreter minimum fall back to its default.
func WithRegistrySize(n int) Option {
	return func(c *LuaChannel) { c.registrySize = n }
}

// WithCallStackSize sets the interpreter call stack size. Values below the
// interpreter minimum fall back to its default.
func WithCallStackSize(n int) Option {
	return func(c *LuaChannel) { c.callStackSize = n }
}

// WithLogger attaches a logger. The channel logs at debug level only.
func WithLogger(logger *slog.Logger) Option {
	return func(c *LuaChannel) { c.logger = logger }
}

// LuaChannel is a Channel backed by a sandboxed Lua interpreter running on
// its own goroutine. The interpreter is created when the message arrives and
// torn down as soon as the outcome has been reported, so an abandoned channel
// never pins a VM.
type LuaChannel struct {
	id     uuid.UUID
	logger *slog.Logger

	inbox chan []byte
	quit  chan struct{}

	onResult func(payload []byte)
	onError  func(err error)

	sent       atomic.Bool
	terminated atomic.Bool
	termOnce   sync.Once

	registrySize  int
	callStackSize int
}

var _ Channel = (*LuaChannel)(nil)

// NewLuaChannel creates a channel and starts its worker goroutine. The
// goroutine idles until Send delivers the message or Terminate is called.
func NewLuaChannel(opts ...Option) *LuaChannel {
	c := &LuaChannel{
		id:     uuid.New(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		inbox:  make(chan []byte, 1),
		quit:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("channel_id", c.id)
	go c.serve()
	return c
}

// OnResult registers the success callback. Not synchronized; call before Send.
func (c *LuaChannel) OnResult(fn func(payload []byte)) { c.onResult = fn }

// OnError registers the failure callback. Not synchronized; call before Send.
func (c *LuaChannel) OnError(fn func(err error)) { c.onError = fn }

// Send serializes the message and hands it to the worker goroutine. The
// inbox is buffered and single-use, so Send never blocks. A second Send
// returns ErrChannelSpent; a Send after Terminate returns ErrChannelClosed.
func (c *LuaChannel) Send(msg Message) error {
	if c.terminated.Load() {
		return ErrChannelClosed
	}
	if !c.sent.CompareAndSwap(false, true) {
		return ErrChannelSpent
	}
	wire, err := encodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	c.logger.Debug("dispatching message", "bytes", len(wire))
	c.inbox <- wire
	return nil
}

// Terminate marks the channel closed and releases the worker goroutine if it
// is still waiting for a message. Safe to call any number of times, from any
// goroutine, including the callbacks themselves.
func (c *LuaChannel) Terminate() {
	c.termOnce.Do(func() {
		c.terminated.Store(true)
		close(c.quit)
		c.logger.Debug("channel terminated")
	})
}

func (c *LuaChannel) serve() {
	select {
	case <-c.quit:
		return
	case wire := <-c.inbox:
		payload, err := c.execute(wire)
		if err != nil {
			c.logger.Debug("worker faulted", "error", err)
			if c.onError != nil {
				c.onError(err)
			}
			return
		}
		c.logger.Debug("worker completed", "payload_bytes", len(payload))
		if c.onResult != nil {
			c.onResult(payload)
		}
	}
}

// execute runs one wire message through a fresh sandboxed interpreter and
// returns the serialized result. A panic anywhere inside the interpreter is
// converted into an ordinary error so the channel always reports an outcome.
func (c *LuaChannel) execute(wire []byte) (payload []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case error:
				err = v
			case string:
				err = errors.New(v)
			default:
				err = fmt.Errorf("lua panic: %v", r)
			}
		}
	}()

	L := c.newState()
	defer L.Close()

	doc := gjson.ParseBytes(wire)
	fn := doc.Get("func")
	if !fn.Exists() || fn.Type == gjson.Null {
		return nil, nil
	}

	lfn, err := L.LoadString(reconstruct(fn))
	if err != nil {
		return nil, fmt.Errorf("reconstruct function: %w", err)
	}
	L.Push(lfn)
	if err := L.PCall(0, 1, nil); err != nil {
		return nil, wrapLuaError(err)
	}
	callee := L.Get(-1)
	L.Pop(1)
	if callee.Type() != lua.LTFunction {
		return nil, errors.New("reconstructed chunk did not produce a function")
	}

	ctx := L.NewTable()
	ctx.RawSetString("state", luaconv.ToLua(L, doc.Get("state").Value()))

	L.Push(callee)
	L.Push(ctx)
	if err := L.PCall(1, 1, nil); err != nil {
		return nil, wrapLuaError(err)
	}
	ret := luaconv.ToGo(L.Get(-1))
	L.Pop(1)

	if ret == nil {
		return nil, nil
	}
	out, err := json.Marshal(ret)
	if err != nil {
		return nil, fmt.Errorf("serialize result: %w", err)
	}
	return out, nil
}

func (c *LuaChannel) newState() *lua.LState {
	L := lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		RegistrySize:  c.registrySize,
		CallStackSize: c.callStackSize,
	})
	openSafeLibraries(L)
	installSandbox(L)
	return L
}

// reconstruct rebuilds a callable chunk from a decomposed function node. The
// chunk returns the function so the body's local scope stays intact.
func reconstruct(fn gjson.Result) string {
	var params []string
	for _, arg := range fn.Get("args").Array() {
		params = append(params, arg.String())
	}
	var b strings.Builder
	b.WriteString("return function(")
	b.WriteString(strings.Join(params, ", "))
	b.WriteString(")\n")
	b.WriteString(fn.Get("body").String())
	b.WriteString("\nend")
	return b.String()
}

// wrapLuaError unwraps the interpreter's error carrier and bridges the raised
// value to Go so callers see the script's own error payload.
func wrapLuaError(err error) error {
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) {
		return &LuaError{Value: luaconv.ToGo(apiErr.Object)}
	}
	return err
}
