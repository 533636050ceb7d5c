// Package luaconv converts values between Lua and the JSON-shaped Go types
// (nil, bool, numbers, string, []any, map[string]any) that cross the worker
// message boundary.
package luaconv

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// ToLua converts a JSON-shaped Go value into a Lua value allocated on L.
// Values outside the JSON shape collapse to nil.
func ToLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		tbl := L.NewTable()
		for i, elem := range val {
			tbl.RawSetInt(i+1, ToLua(L, elem))
		}
		return tbl
	case map[string]any:
		tbl := L.NewTable()
		for k, elem := range val {
			tbl.RawSetString(k, ToLua(L, elem))
		}
		return tbl
	default:
		return lua.LNil
	}
}

// ToGo converts a Lua value into its JSON-shaped Go equivalent. Integral
// numbers come back as int64 so they serialize without a fractional part.
// Tables with contiguous integer keys from 1 become []any, everything else
// becomes map[string]any. Functions, userdata and other non-data values
// collapse to nil, and cyclic tables are broken at the revisit.
func ToGo(lv lua.LValue) any {
	return toGo(lv, make(map[*lua.LTable]bool))
}

func toGo(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		return tableToGo(v, visited)
	default:
		return nil
	}
}

func tableToGo(tbl *lua.LTable, visited map[*lua.LTable]bool) any {
	maxIdx, count := 0, 0
	isArray := true
	tbl.ForEach(func(k, _ lua.LValue) {
		count++
		num, ok := k.(lua.LNumber)
		if !ok {
			isArray = false
			return
		}
		idx := int(num)
		if lua.LNumber(idx) != num || idx < 1 {
			isArray = false
			return
		}
		if idx > maxIdx {
			maxIdx = idx
		}
	})

	if isArray && maxIdx > 0 && count == maxIdx {
		arr := make([]any, maxIdx)
		for i := 1; i <= maxIdx; i++ {
			arr[i-1] = toGo(tbl.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]any, count)
	tbl.ForEach(func(k, v lua.LValue) {
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = fmt.Sprintf("%v", float64(kv))
		default:
			key = k.String()
		}
		m[key] = toGo(v, visited)
	})
	return m
}
