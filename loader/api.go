package loader

import (
	"bytes"
	"fmt"
	"math"

	lua "github.com/yuin/gopher-lua"
)

// collector accumulates Lua level definitions during file execution.
type collector struct {
	levels []rawLevel
	source string
}

// readLua runs a Lua level file in a sandboxed VM and collects the
// levels it declares. The VM is discarded afterwards.
func readLua(data []byte, source string) ([]rawLevel, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	openSafeLibs(L)
	sandbox(L)

	coll := &collector{source: source}
	registerAPI(L, coll)

	fn, err := L.Load(bytes.NewReader(data), source)
	if err != nil {
		return nil, fmt.Errorf("loading: %w", err)
	}
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return nil, fmt.Errorf("executing: %w", err)
	}
	return coll.levels, nil
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes globals that reach outside the file being loaded.
func sandbox(L *lua.LState) {
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring", "require",
		"rawset", "rawget", "rawequal",
		"collectgarbage",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}
}

// registerAPI registers the level constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	// Level "id" { ... } (curried: Level("id") returns a function taking a table).
	L.SetGlobal("Level", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.levels = append(coll.levels, luaLevel(coll.source, len(coll.levels), id, tbl))
			return 0
		}))
		return 1
	}))

	// Regex("ls\\s+-l") marks an expected command as a pattern.
	L.SetGlobal("Regex", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(regexPrefix + L.CheckString(1)))
		return 1
	}))

	// Lines { "a", "b" } joins strings with newlines, for multi-line output.
	L.SetGlobal("Lines", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		var buf bytes.Buffer
		for i := 1; i <= tbl.MaxN(); i++ {
			if i > 1 {
				buf.WriteByte('\n')
			}
			buf.WriteString(lua.LVAsString(tbl.RawGetInt(i)))
		}
		L.Push(lua.LString(buf.String()))
		return 1
	}))
}

// luaLevel converts a Level table into a raw level. Type mismatches are
// recorded as issues rather than silently dropped.
func luaLevel(source string, index int, id string, tbl *lua.LTable) rawLevel {
	raw := rawLevel{
		source:          fmt.Sprintf("%s[%d]", source, index),
		ID:              id,
		Title:           getString(tbl, "title"),
		Description:     getString(tbl, "description"),
		Category:        getString(tbl, "category"),
		Difficulty:      getString(tbl, "difficulty"),
		Story:           getString(tbl, "story"),
		Challenge:       getString(tbl, "challenge"),
		ExpectedCommand: getString(tbl, "expected_command"),
		ExpectedOutput:  getString(tbl, "expected_output"),
		Hints:           getStringList(tbl, "hints"),
		Rewards:         getStringList(tbl, "rewards"),
		SetupCommands:   getStringList(tbl, "setup_commands"),
		CleanupCommands: getStringList(tbl, "cleanup_commands"),
	}

	switch v := tbl.RawGetString("points").(type) {
	case *lua.LNilType:
	case lua.LNumber:
		f := float64(v)
		if math.IsNaN(f) || f > math.MaxInt32 || f < math.MinInt32 {
			raw.typeIssues = append(raw.typeIssues, fieldIssue("points", "out of range"))
			break
		}
		n := int(v)
		if float64(n) != f {
			raw.typeIssues = append(raw.typeIssues, fieldIssue("points", "must be a whole number"))
		}
		raw.Points = &n
	default:
		raw.typeIssues = append(raw.typeIssues, fieldIssue("points", fmt.Sprintf("must be a number, got %s", v.Type())))
	}

	for _, key := range []string{"title", "description", "category", "difficulty", "story",
		"challenge", "expected_command", "expected_output"} {
		v := tbl.RawGetString(key)
		if v == lua.LNil {
			continue
		}
		if _, ok := v.(lua.LString); !ok {
			raw.typeIssues = append(raw.typeIssues, fieldIssue(key, fmt.Sprintf("must be a string, got %s", v.Type())))
		}
	}
	for _, key := range []string{"hints", "rewards", "setup_commands", "cleanup_commands"} {
		v := tbl.RawGetString(key)
		if v == lua.LNil {
			continue
		}
		if _, ok := v.(*lua.LTable); !ok {
			raw.typeIssues = append(raw.typeIssues, fieldIssue(key, fmt.Sprintf("must be a list, got %s", v.Type())))
		}
	}
	return raw
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}

// getStringList returns the array part of a table field as strings.
func getStringList(tbl *lua.LTable, key string) []string {
	t := getTable(tbl, key)
	if t == nil {
		return nil
	}
	out := make([]string, 0, t.MaxN())
	for i := 1; i <= t.MaxN(); i++ {
		out = append(out, lua.LVAsString(t.RawGetInt(i)))
	}
	return out
}
