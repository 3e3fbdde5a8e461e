package pluginhost

import (
	"runtime/cgo"
	"sync"

	"github.com/TheGreatRambler/yuzu/emu"
	"github.com/TheGreatRambler/yuzu/typedef"
)

// RunState is the plugin worker's cooperative rendezvous state. It replaces
// the dual-boolean pattern in original_source's Plugin struct
// (processedMainLoop, encounteredVsync) with the single enum SPEC_FULL.md
// §9 prescribes, stored as one field guarded by the record's mutex/cv. A
// worker's state is always exactly one value; there is no way to represent
// "both flags true" or "both flags false" because there is only one flag.
type RunState int

const (
	// StateParkedMainLoop is the worker's initial state, and the state it
	// returns to whenever on_main_loop returns.
	StateParkedMainLoop RunState = iota
	// StateRunning means the worker is currently executing plugin code
	// (either about to call on_main_loop, or resuming from inside
	// frame-advance).
	StateRunning
	// StateParkedVsync means the worker is blocked inside the
	// frame-advance host call, waiting for the next vsync pass.
	StateParkedVsync
	// StateStopped is terminal: the scheduler has asked the worker to
	// exit on its next wake. Only ever set while a record is parked at a
	// main-loop boundary (SPEC_FULL.md "boundary-only teardown").
	StateStopped
)

func (s RunState) String() string {
	switch s {
	case StateParkedMainLoop:
		return "ParkedMainLoop"
	case StateRunning:
		return "Running"
	case StateParkedVsync:
		return "ParkedVsync"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// PluginRecord is the per-plugin state owned exclusively by the Manager:
// library handle, cached entry points, the cooperative rendezvous
// primitives, and the lazily-bound HID facade. Created on load, destroyed
// on unload once the worker has exited. See SPEC_FULL.md §3.
type PluginRecord struct {
	Path string
	Name string

	handle     uintptr
	onMainLoop func()
	onClose    func()
	hasOnClose bool

	mu    sync.Mutex
	cv    *sync.Cond
	state RunState

	started    bool
	workerDone chan struct{}

	hidFacade emu.HID
	system    emu.System
	manager   *Manager

	// config is the roster-persisted metadata for this plugin (SPEC_FULL.md
	// §7.1), seeded from the manager's roster on load and read back by
	// Manager.Load when writing the roster entry for this path.
	config typedef.PluginConfig

	// ctxHandle is the opaque context passed to start/host-API calls
	// instead of a raw Go pointer, so the plugin cannot outlive or
	// corrupt Go-managed memory by holding onto it (see manager.go Load).
	ctxHandle cgo.Handle

	lastError string
}

func newPluginRecord(path, name string, handle uintptr, onMainLoop func(), onClose func(), hasOnClose bool, system emu.System, mgr *Manager) *PluginRecord {
	r := &PluginRecord{
		Path:       path,
		Name:       name,
		handle:     handle,
		onMainLoop: onMainLoop,
		onClose:    onClose,
		hasOnClose: hasOnClose,
		state:      StateParkedMainLoop,
		workerDone: make(chan struct{}),
		system:     system,
		manager:    mgr,
	}
	r.cv = sync.NewCond(&r.mu)
	return r
}

// ensureStarted spawns the dedicated worker goroutine exactly once, lazily,
// the way the scheduler driver's first pass does in SPEC_FULL.md §4.3.2
// step 1.
func (r *PluginRecord) ensureStarted() {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()
	go r.workerLoop()
}

// ensureHIDFacade lazily binds the HID facade once the guest process is
// runnable. It is safe to call repeatedly; it is a no-op once bound or
// while the guest is not yet emulating (spec.md's data-model requirement
// that hid_facade be "lazily obtained once the guest process is runnable").
func (r *PluginRecord) ensureHIDFacade(hid emu.HID) {
	if !r.system.Emulating() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hidFacade == nil {
		r.hidFacade = hid
	}
}

// HID returns the lazily-bound HID facade, or nil if the guest process has
// not started yet. Callers must nil-check before use (SPEC_FULL.md §9).
func (r *PluginRecord) HID() emu.HID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hidFacade
}

// workerLoop is the dedicated per-plugin worker described in SPEC_FULL.md
// §4.3.1. It alternates between waiting for the scheduler to hand it the
// baton and running exactly one main-loop pass.
func (r *PluginRecord) workerLoop() {
	defer close(r.workerDone)
	for {
		r.mu.Lock()
		for r.state != StateRunning && r.state != StateStopped {
			r.cv.Wait()
		}
		stopping := r.state == StateStopped
		r.mu.Unlock()

		if stopping {
			r.mu.Lock()
			r.state = StateParkedMainLoop
			r.cv.Broadcast()
			r.mu.Unlock()
			return
		}

		r.onMainLoop()

		r.mu.Lock()
		r.state = StateParkedMainLoop
		r.cv.Broadcast()
		r.mu.Unlock()
	}
}

// frameAdvance is invoked by the host API's emu_frameadvance binding, on the
// worker goroutine, from inside the plugin's on_main_loop call. It is the
// only suspension point inside plugin code (SPEC_FULL.md §4.3.1,
// running_main_loop → parked_vsync). It never observes StateStopped: a stop
// is only ever requested while a record is parked at a main-loop boundary,
// never while parked at vsync.
func (r *PluginRecord) frameAdvance() {
	r.mu.Lock()
	r.state = StateParkedVsync
	r.cv.Broadcast()
	for r.state != StateRunning {
		r.cv.Wait()
	}
	r.mu.Unlock()
}

// wakeForPass transitions a parked record to Running and signals the
// worker, handing it the baton (SPEC_FULL.md §4.3.2 step 2).
func (r *PluginRecord) wakeForPass() {
	r.mu.Lock()
	r.state = StateRunning
	r.cv.Broadcast()
	r.mu.Unlock()
}

// awaitParked blocks until the worker parks at either boundary and returns
// the resulting state (§4.3.2 step 3).
func (r *PluginRecord) awaitParked() RunState {
	r.mu.Lock()
	for r.state == StateRunning {
		r.cv.Wait()
	}
	s := r.state
	r.mu.Unlock()
	return s
}

// requestStop transitions a record parked at a main-loop boundary straight
// to Stopped, skipping the Running handoff. Callers must only invoke this
// when peekState() == StateParkedMainLoop (boundary-only teardown).
func (r *PluginRecord) requestStop() {
	r.mu.Lock()
	r.state = StateStopped
	r.cv.Broadcast()
	r.mu.Unlock()
}

// peekState reads the current state without waiting.
func (r *PluginRecord) peekState() RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// join blocks until the worker goroutine has returned. Call it only after
// requestStop; once the worker has exited, further calls return at once.
func (r *PluginRecord) join() {
	<-r.workerDone
}

// Config returns the plugin's roster-persisted configuration.
func (r *PluginRecord) Config() typedef.PluginConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.config
}

// SetConfig installs roster configuration carried over from a prior run, or
// set by the management UI before this load.
func (r *PluginRecord) SetConfig(cfg typedef.PluginConfig) {
	r.mu.Lock()
	r.config = cfg
	r.mu.Unlock()
}

func (r *PluginRecord) setLastError(msg string) {
	r.mu.Lock()
	r.lastError = msg
	r.mu.Unlock()
}

// LastError returns the most recent error message recorded against this
// plugin's worker, if any.
func (r *PluginRecord) LastError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastError
}
