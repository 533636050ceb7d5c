// Package worker provides the isolated execution channels that run
// decomposed functions.
//
// A Channel is single-use: it accepts exactly one Message, evaluates the
// reconstructed function in a context that shares no memory with the caller,
// and reports exactly one outcome through callbacks. Everything that crosses
// the boundary is serialized JSON, so the worker sees copies and the caller
// can never observe mutation through aliasing.
//
// The wire format of a message is
//
//	{"func":{"body":"...","args":["p1","p2"]},"state":<value>}
//
// with func null when no computation is attached. On the worker side the
// function is rebuilt from its parts and called with a single table argument
// whose state field holds the deserialized input; declared parameters beyond
// the first are bound to nil.
//
// The default implementation, LuaChannel, runs a sandboxed gopher-lua
// interpreter on a dedicated goroutine. The interpreter has no io, os, debug
// or package libraries and no way to load further code, and it is torn down
// as soon as its single outcome has been delivered.
package worker
