package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gridtactics/internal/game/dice"
)

// GlobalProfile is the reserved key for shared scripts loaded via LoadGlobal.
// CallHook falls back to this VM when no profile VM is found.
const GlobalProfile = "__global__"

// vm is one loaded LState. An LState is single-threaded, so calls are
// serialised on mu.
type vm struct {
	mu        sync.Mutex
	L         *lua.LState
	instLimit int
}

func (v *vm) close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.L.Close()
}

// Manager owns one sandboxed LState per AI profile and exposes hook dispatch.
//
// Manager is safe for concurrent use. Calls into the same profile are
// serialised while different profiles run concurrently.
type Manager struct {
	mu     sync.RWMutex
	vms    map[string]*vm
	roller *dice.Roller
	logger *zap.Logger
}

// NewManager creates a Manager.
//
// Precondition: roller and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no profiles loaded.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	if roller == nil || logger == nil {
		panic("scripting.NewManager: roller and logger must be non-nil")
	}
	return &Manager{
		vms:    make(map[string]*vm),
		roller: roller,
		logger: logger,
	}
}

// LoadProfile creates a sandboxed VM for profile, registers all engine.*
// modules, then executes every *.lua file in scriptDir in lexicographic order.
// Loading a profile again replaces its VM.
//
// Precondition: profile must be non-empty; scriptDir must be a readable directory.
// Postcondition: Profile VM is registered; returns error on Lua load failure.
func (m *Manager) LoadProfile(profile, scriptDir string, instLimit int) error {
	if profile == "" {
		return fmt.Errorf("scripting: profile must not be empty")
	}
	return m.loadInto(profile, scriptDir, instLimit)
}

// LoadGlobal creates the GlobalProfile VM used as the CallHook fallback for
// every profile without scripts of its own.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: Global VM is registered; returns error on Lua load failure.
func (m *Manager) LoadGlobal(scriptDir string, instLimit int) error {
	return m.loadInto(GlobalProfile, scriptDir, instLimit)
}

func (m *Manager) loadInto(key, scriptDir string, instLimit int) error {
	L, cancel := NewSandboxedState(instLimit)
	m.RegisterModules(L)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		cancel()
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, key, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		if err := L.DoFile(path); err != nil {
			cancel()
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}
	L.RemoveContext()
	cancel()

	m.mu.Lock()
	old := m.vms[key]
	m.vms[key] = &vm{L: L, instLimit: instLimit}
	m.mu.Unlock()
	if old != nil {
		old.close()
	}

	m.logger.Debug("scripts loaded",
		zap.String("profile", key),
		zap.Int("files", len(luaFiles)),
	)
	return nil
}

// Profiles returns the loaded profile keys, sorted.
func (m *Manager) Profiles() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.vms))
	for k := range m.vms {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// CallHook calls the named Lua global function in profile's VM. If the
// profile has no VM, the GlobalProfile VM is tried as a fallback. Returns
// (LNil, nil) if the hook is not defined or no VM exists. Lua runtime errors,
// including an exhausted instruction budget, are logged at Warn level and
// never propagated.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(profile, hook string, args ...lua.LValue) (lua.LValue, error) {
	return m.CallHookWith(profile, hook, func(*lua.LState) []lua.LValue { return args })
}

// CallHookWith is CallHook with arguments built inside the target VM, for
// callers that pass tables.
//
// Precondition: build must be non-nil.
func (m *Manager) CallHookWith(profile, hook string, build func(L *lua.LState) []lua.LValue) (lua.LValue, error) {
	m.mu.RLock()
	v, ok := m.vms[profile]
	if !ok {
		v = m.vms[GlobalProfile]
	}
	m.mu.RUnlock()

	if v == nil {
		m.logger.Info("scripting: no VM for profile",
			zap.String("profile", profile),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	fn := v.L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	args := build(v.L)
	err := withBudget(v.L, v.instLimit, func() error {
		return v.L.CallByParam(lua.P{
			Fn:      fn,
			NRet:    1,
			Protect: true,
		}, args...)
	})
	if err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("profile", profile),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}

	ret := v.L.Get(-1)
	v.L.Pop(1)
	return ret, nil
}

// Close releases every VM. CallHook after Close finds no VM.
func (m *Manager) Close() {
	m.mu.Lock()
	vms := m.vms
	m.vms = make(map[string]*vm)
	m.mu.Unlock()
	for _, v := range vms {
		v.close()
	}
}
