package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// registerModules installs the engine.* helper tables into L:
//
//	engine.log.debug/info/warn(msg)  write to the manager's logger
//	engine.clamp(v, lo, hi)          bound v to [lo, hi]
//	engine.lerp(a, b, t)             linear interpolation
//
// Precondition: L must be from NewSandboxedState.
func (m *CurveManager) registerModules(L *lua.LState, curve string) {
	engine := L.NewTable()
	L.SetGlobal("engine", engine)

	logger := m.logger.With(zap.String("curve", curve))
	logTbl := L.NewTable()
	for level, write := range map[string]func(string, ...zap.Field){
		"debug": logger.Debug,
		"info":  logger.Info,
		"warn":  logger.Warn,
	} {
		L.SetField(logTbl, level, L.NewFunction(func(L *lua.LState) int {
			write(L.CheckString(1))
			return 0
		}))
	}
	L.SetField(engine, "log", logTbl)

	L.SetField(engine, "clamp", L.NewFunction(func(L *lua.LState) int {
		v, lo, hi := L.CheckNumber(1), L.CheckNumber(2), L.CheckNumber(3)
		if v < lo {
			v = lo
		}
		if v > hi {
			v = hi
		}
		L.Push(v)
		return 1
	}))
	L.SetField(engine, "lerp", L.NewFunction(func(L *lua.LState) int {
		a, b, t := L.CheckNumber(1), L.CheckNumber(2), L.CheckNumber(3)
		L.Push(a + (b-a)*t)
		return 1
	}))
}
