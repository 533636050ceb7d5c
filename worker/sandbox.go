package worker

import (
	lua "github.com/yuin/gopher-lua"
)

// codeLoaders are base-library builtins that can pull code in from outside
// the message payload. require lives here too: gopher-lua installs it from
// the base library, not the package library.
var codeLoaders = []string{"dofile", "loadfile", "load", "loadstring", "require"}

// openSafeLibraries opens the side-effect-free parts of the Lua standard
// library. io, os, debug and package are intentionally never opened: the
// interpreter exists to evaluate one reconstructed function over its message
// payload, not to touch the host.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// installSandbox removes the escape hatches the base library still carries
// after the selective open.
func installSandbox(L *lua.LState) {
	for _, name := range codeLoaders {
		L.SetGlobal(name, lua.LNil)
	}
}
