package scripting

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// CurveFunc is the Lua global every curve script must define. It receives
// the character level and returns the factor applied to a rule's modifier.
const CurveFunc = "curve"

// ErrNoCurveFunc is returned when a loaded script does not define CurveFunc.
var ErrNoCurveFunc = errors.New("scripting: script does not define function " + CurveFunc)

// CurveManager owns one sandboxed LState per named curve. The curve name is
// the script's file name without extension.
//
// CurveManager is safe for concurrent use; evaluations are serialized.
type CurveManager struct {
	mu        sync.Mutex
	states    map[string]*lua.LState
	instLimit int
	logger    *zap.Logger
}

// NewCurveManager creates an empty CurveManager.
//
// Precondition: logger must be non-nil; instLimit <= 0 uses DefaultInstructionLimit.
// Postcondition: Returns a non-nil CurveManager with no curves.
func NewCurveManager(instLimit int, logger *zap.Logger) *CurveManager {
	if logger == nil {
		panic("scripting.NewCurveManager: logger must not be nil")
	}
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}
	return &CurveManager{
		states:    make(map[string]*lua.LState),
		instLimit: instLimit,
		logger:    logger,
	}
}

// LoadDir loads every *.lua file in dir in lexicographic order, one curve
// per file.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns the number of curves loaded, or the first load error.
// Curves loaded before the failing file stay registered.
func (m *CurveManager) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("scripting: reading curve dir %q: %w", dir, err)
	}
	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for i, path := range luaFiles {
		src, err := os.ReadFile(path)
		if err != nil {
			return i, fmt.Errorf("scripting: reading %q: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), ".lua")
		if err := m.LoadString(name, string(src)); err != nil {
			return i, fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}
	return len(luaFiles), nil
}

// LoadString compiles src into a fresh sandbox registered as curve name,
// replacing any previous curve of that name.
//
// Precondition: name must be non-empty.
// Postcondition: Returns an error if src fails to run within the instruction
// limit or does not define CurveFunc; the previous curve is kept in that case.
func (m *CurveManager) LoadString(name, src string) error {
	if name == "" {
		return errors.New("scripting: curve name must not be empty")
	}
	L := NewSandboxedState()
	m.registerModules(L, name)
	if err := withBudget(L, m.instLimit, func() error { return L.DoString(src) }); err != nil {
		L.Close()
		return err
	}
	if L.GetGlobal(CurveFunc).Type() != lua.LTFunction {
		L.Close()
		return ErrNoCurveFunc
	}

	m.mu.Lock()
	if old, ok := m.states[name]; ok {
		old.Close()
	}
	m.states[name] = L
	m.mu.Unlock()
	m.logger.Debug("curve loaded", zap.String("curve", name))
	return nil
}

// Evaluate calls curve name with level. Lua runtime errors, budget
// exhaustion and non-numeric or non-finite results are logged at Warn level
// and reported as (0, false); the caller falls back to a factor of 1.
//
// Postcondition: Returns (factor, true) only for a finite numeric result.
func (m *CurveManager) Evaluate(name string, level int) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	L, ok := m.states[name]
	if !ok {
		m.logger.Debug("scripting: unknown curve", zap.String("curve", name))
		return 0, false
	}

	var ret lua.LValue
	err := withBudget(L, m.instLimit, func() error {
		if err := L.CallByParam(lua.P{
			Fn:      L.GetGlobal(CurveFunc),
			NRet:    1,
			Protect: true,
		}, lua.LNumber(level)); err != nil {
			return err
		}
		ret = L.Get(-1)
		L.Pop(1)
		return nil
	})
	if err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("curve", name),
			zap.Int("level", level),
			zap.Error(err),
		)
		return 0, false
	}

	n, isNum := ret.(lua.LNumber)
	if !isNum || math.IsNaN(float64(n)) || math.IsInf(float64(n), 0) {
		m.logger.Warn("scripting: curve returned a non-finite or non-numeric value",
			zap.String("curve", name),
			zap.Int("level", level),
			zap.String("value", ret.String()),
		)
		return 0, false
	}
	return float64(n), true
}

// Names returns the loaded curve names in sorted order.
func (m *CurveManager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.states))
	for n := range m.states {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Close releases every curve VM.
//
// Postcondition: Names() is empty.
func (m *CurveManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, L := range m.states {
		L.Close()
		delete(m.states, name)
	}
}
