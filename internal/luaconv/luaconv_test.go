package luaconv

import (
	"reflect"
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func TestToLuaToGoRoundTrip(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	tests := []struct {
		name string
		in   any
		want any
	}{
		{name: "nil", in: nil, want: nil},
		{name: "true", in: true, want: true},
		{name: "false", in: false, want: false},
		{name: "int", in: 42, want: int64(42)},
		{name: "int64", in: int64(-7), want: int64(-7)},
		{name: "integral float", in: float64(5), want: int64(5)},
		{name: "fractional float", in: 2.5, want: 2.5},
		{name: "string", in: "hello", want: "hello"},
		{name: "empty string", in: "", want: ""},
		{
			name: "array",
			in:   []any{int64(1), "two", true},
			want: []any{int64(1), "two", true},
		},
		{
			name: "map",
			in:   map[string]any{"n": int64(3), "s": "x"},
			want: map[string]any{"n": int64(3), "s": "x"},
		},
		{
			name: "nested",
			in:   map[string]any{"list": []any{int64(1), int64(2)}, "meta": map[string]any{"ok": true}},
			want: map[string]any{"list": []any{int64(1), int64(2)}, "meta": map[string]any{"ok": true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToGo(ToLua(L, tt.in))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("round trip = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestToLuaUnsupported(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	if got := ToLua(L, struct{}{}); got != lua.LNil {
		t.Errorf("ToLua(struct{}{}) = %v, want nil", got)
	}
	if got := ToLua(L, make(chan int)); got != lua.LNil {
		t.Errorf("ToLua(chan) = %v, want nil", got)
	}
}

func TestToGoTables(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	t.Run("empty table is a map", func(t *testing.T) {
		got := ToGo(L.NewTable())
		if !reflect.DeepEqual(got, map[string]any{}) {
			t.Errorf("ToGo(empty table) = %#v, want empty map", got)
		}
	})

	t.Run("sparse table is a map", func(t *testing.T) {
		tbl := L.NewTable()
		tbl.RawSetInt(1, lua.LNumber(10))
		tbl.RawSetInt(3, lua.LNumber(30))
		got := ToGo(tbl)
		want := map[string]any{"1": int64(10), "3": int64(30)}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("ToGo(sparse table) = %#v, want %#v", got, want)
		}
	})

	t.Run("mixed keys is a map", func(t *testing.T) {
		tbl := L.NewTable()
		tbl.RawSetInt(1, lua.LString("a"))
		tbl.RawSetString("name", lua.LString("b"))
		got := ToGo(tbl)
		want := map[string]any{"1": "a", "name": "b"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("ToGo(mixed table) = %#v, want %#v", got, want)
		}
	})

	t.Run("function value collapses to nil", func(t *testing.T) {
		fn := L.NewFunction(func(*lua.LState) int { return 0 })
		if got := ToGo(fn); got != nil {
			t.Errorf("ToGo(function) = %#v, want nil", got)
		}
	})

	t.Run("cycle is broken at revisit", func(t *testing.T) {
		tbl := L.NewTable()
		tbl.RawSetString("self", tbl)
		got := ToGo(tbl)
		want := map[string]any{"self": nil}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("ToGo(cyclic table) = %#v, want %#v", got, want)
		}
	})
}
