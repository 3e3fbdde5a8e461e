package pluginhost

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime/cgo"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pierrec/lz4"

	"github.com/TheGreatRambler/yuzu/emu"
	"github.com/TheGreatRambler/yuzu/hostlog"
	"github.com/TheGreatRambler/yuzu/storage"
	"github.com/TheGreatRambler/yuzu/typedef"
)

var pluginSuffixes = map[string]bool{".so": true, ".dll": true, ".dylib": true}

// Manager is the lifecycle owner for the set of loaded plugins
// (SPEC_FULL.md §4.4): activation, load, remove, enumerate, plus the
// expansion concerns of directory discovery/watching and roster
// persistence. Grounded on pluginhost/host.go's Host (map/mutex shape,
// Load/Disable/Tick naming) generalized to the scheduler-driven model this
// specification requires.
type Manager struct {
	mu             sync.Mutex
	plugins        []*PluginRecord
	keySet         map[string]struct{}
	pendingRemoval []*PluginRecord
	lastError      string

	active       bool
	activateOnce sync.Once
	pacingStop   chan struct{}

	system emu.System
	hid    emu.HID

	overlay *Overlay
	logger  *hostlog.Logger
	hub     *notifyHub
	alloc   *hostAllocator

	// roster/rosterOrder mirror the on-disk plugin roster (SPEC_FULL.md
	// §7.1): loaded once at construction, kept current by Load/Remove, and
	// persisted on every change. rosterOrder preserves on-disk ordering,
	// since map iteration does not.
	roster      map[string]typedef.PluginState
	rosterOrder []string

	watcher *fsnotify.Watcher
}

// NewManager constructs a Manager bound to the given emulator and HID
// facades. The manager starts inactive; call SetActive(true) to start the
// pacing thread.
func NewManager(system emu.System, hid emu.HID) *Manager {
	m := &Manager{
		keySet:     make(map[string]struct{}),
		pacingStop: make(chan struct{}),
		system:     system,
		hid:        hid,
		overlay:    NewOverlay(),
		logger:     hostlog.New(),
		hub:        newNotifyHub(),
		alloc:      newHostAllocator(),
		roster:     make(map[string]typedef.PluginState),
	}
	m.logger.OnError(func(plugin, message string) {
		m.setLastError(plugin + ": " + message)
	})

	if saved, err := m.LoadRoster(); err == nil {
		for _, s := range saved {
			m.roster[s.Path] = s
			m.rosterOrder = append(m.rosterOrder, s.Path)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		m.logger.Log(hostlog.Error, "manager", "roster load failed: "+err.Error())
	}

	return m
}

// Overlay returns the manager's overlay surface.
func (m *Manager) Overlay() *Overlay { return m.overlay }

// Subscribe registers a listener for list-changed events.
func (m *Manager) Subscribe() (<-chan ListChangedEvent, func()) {
	return m.hub.Subscribe()
}

func (m *Manager) setLastError(msg string) {
	m.mu.Lock()
	m.lastError = msg
	m.mu.Unlock()
}

// LastError returns the most recently recorded manager-level error.
func (m *Manager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError
}

// Load opens a plugin's shared library, validates its ABI, binds the host
// API table, and calls start exactly once (SPEC_FULL.md §4.4).
func (m *Manager) Load(path string) (*PluginRecord, error) {
	handle, err := dl.open(path)
	if err != nil {
		loadErr := &LoadFailure{Path: path, Err: err}
		m.logger.Log(hostlog.Error, "manager", loadErr.Error())
		return nil, loadErr
	}

	getVersion, ok := resolveGetInterfaceVersion(handle)
	if !ok {
		_ = dl.close(handle)
		abiErr := &AbiMismatch{Path: path, Want: InterfaceVersion, Missing: true}
		m.logger.Log(hostlog.Error, "manager", abiErr.Error())
		return nil, abiErr
	}
	if version := getVersion(); version != InterfaceVersion {
		_ = dl.close(handle)
		abiErr := &AbiMismatch{Path: path, Want: InterfaceVersion, Got: version}
		m.logger.Log(hostlog.Error, "manager", abiErr.Error())
		return nil, abiErr
	}

	start, ok := resolveStart(handle)
	if !ok {
		_ = dl.close(handle)
		entryErr := &MissingEntrypoint{Path: path, Symbol: "start"}
		m.logger.Log(hostlog.Error, "manager", entryErr.Error())
		return nil, entryErr
	}
	onMainLoop, ok := resolveOnMainLoop(handle)
	if !ok {
		_ = dl.close(handle)
		entryErr := &MissingEntrypoint{Path: path, Symbol: "on_main_loop"}
		m.logger.Log(hostlog.Error, "manager", entryErr.Error())
		return nil, entryErr
	}
	onClose, hasOnClose := resolveOnClose(handle)

	name := filepath.Base(path)
	record := newPluginRecord(path, name, handle, onMainLoop, onClose, hasOnClose, m.system, m)

	m.bindHostAPI(record)

	ctxHandle := cgo.NewHandle(record)
	record.ctxHandle = ctxHandle
	start(uintptr(ctxHandle))

	m.mu.Lock()
	m.plugins = append(m.plugins, record)
	m.keySet[path] = struct{}{}
	m.mu.Unlock()

	m.logger.Log(hostlog.Info, "manager", "loaded "+name)
	m.hub.broadcast(ListChangedEvent{Path: path, Name: name, Loaded: true})
	m.syncRosterOnLoad(path, name, record)
	return record, nil
}

// syncRosterOnLoad applies any roster-persisted config the plugin had from
// a prior run to record, then upserts and persists its roster entry
// (SPEC_FULL.md §7.1, "saved on every load/remove"; §8 scenario 8).
func (m *Manager) syncRosterOnLoad(path, name string, record *PluginRecord) {
	existing, hadEntry := m.rosterEntry(path)
	if hadEntry {
		record.SetConfig(existing.Config)
	}

	state := typedef.PluginState{
		ID:      name,
		Name:    name,
		Path:    path,
		Enabled: true,
		Config:  record.Config(),
	}
	if hadEntry {
		state.StateBlob = existing.StateBlob
		state.Version = existing.Version
		state.Author = existing.Author
		state.Description = existing.Description
	}
	m.upsertRoster(state)
	m.persistRoster()
}

// Remove erases path from the intended-loaded key-set. The scheduler
// completes teardown the next time that plugin parks at a main-loop
// boundary (SPEC_FULL.md §4.4, "boundary-only teardown").
func (m *Manager) Remove(path string) error {
	m.mu.Lock()
	if _, ok := m.keySet[path]; !ok {
		m.mu.Unlock()
		return &ErrNotLoaded{Path: path}
	}
	delete(m.keySet, path)
	m.mu.Unlock()

	if state, ok := m.rosterEntry(path); ok {
		state.Enabled = false
		m.upsertRoster(state)
		m.persistRoster()
	}

	m.logger.Log(hostlog.Info, "manager", "removal requested for "+path)
	return nil
}

// Enumerate returns the intended-loaded key-set under the manager's lock.
func (m *Manager) Enumerate() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.keySet))
	for p := range m.keySet {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// SetActive flips the active flag. On the first false→true transition it
// starts the pacing goroutine exactly once, via sync.Once, which is this
// implementation's resolution of SPEC_FULL.md §9's SetActive open
// question: re-activating while already active is a no-op, and
// deactivating never implicitly unloads anything already running.
func (m *Manager) SetActive(active bool) {
	m.mu.Lock()
	m.active = active
	m.mu.Unlock()

	if active {
		m.activateOnce.Do(func() {
			go m.pacingLoop()
		})
	}
}

// Active reports the current activation flag.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Close stops the pacing goroutine. Outstanding plugin workers are expected
// to have been removed through the ordinary unload path first.
func (m *Manager) Close() {
	close(m.pacingStop)
	if m.watcher != nil {
		_ = m.watcher.Close()
	}
}

func (m *Manager) snapshotPlugins() []*PluginRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*PluginRecord, len(m.plugins))
	copy(out, m.plugins)
	return out
}

func (m *Manager) inKeySet(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.keySet[path]
	return ok
}

func (m *Manager) queueRemoval(r *PluginRecord) {
	m.mu.Lock()
	m.pendingRemoval = append(m.pendingRemoval, r)
	m.mu.Unlock()
}

// drainPendingRemovals performs §4.3.3's unload pipeline for every record
// queued this pass: close handle (if exported), join the worker, close the
// library, remove from the plugins list, notify list-changed exactly once
// per record.
func (m *Manager) drainPendingRemovals() {
	m.mu.Lock()
	pending := m.pendingRemoval
	m.pendingRemoval = nil
	m.mu.Unlock()

	for _, r := range pending {
		if r.hasOnClose && r.onClose != nil {
			r.onClose()
		}
		r.join()
		if r.ctxHandle != 0 {
			r.ctxHandle.Delete()
		}
		if r.handle != 0 {
			if err := dl.close(r.handle); err != nil {
				r.setLastError(err.Error())
				m.logger.Log(hostlog.Error, r.Name, err.Error())
			}
		}

		m.mu.Lock()
		for i, p := range m.plugins {
			if p == r {
				m.plugins = append(m.plugins[:i], m.plugins[i+1:]...)
				break
			}
		}
		m.mu.Unlock()

		m.hub.broadcast(ListChangedEvent{Path: r.Path, Name: r.Name, Loaded: false})
	}
}

func (m *Manager) rosterEntry(path string) (typedef.PluginState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.roster[path]
	return s, ok
}

func (m *Manager) upsertRoster(state typedef.PluginState) {
	m.mu.Lock()
	if _, exists := m.roster[state.Path]; !exists {
		m.rosterOrder = append(m.rosterOrder, state.Path)
	}
	m.roster[state.Path] = state
	m.mu.Unlock()
}

// persistRoster writes the in-memory roster to disk in its recorded order.
func (m *Manager) persistRoster() {
	m.mu.Lock()
	out := make([]typedef.PluginState, 0, len(m.rosterOrder))
	for _, p := range m.rosterOrder {
		out = append(out, m.roster[p])
	}
	m.mu.Unlock()

	if err := m.SaveRoster(out); err != nil {
		m.logger.Log(hostlog.Error, "manager", "roster save failed: "+err.Error())
	}
}

// Roster returns the persisted plugin roster in its on-disk order, as
// loaded at construction and kept current by Load/Remove. Callers use this
// to re-load previously enabled plugins on startup (SPEC_FULL.md §8
// scenario 8).
func (m *Manager) Roster() []typedef.PluginState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]typedef.PluginState, 0, len(m.rosterOrder))
	for _, p := range m.rosterOrder {
		out = append(out, m.roster[p])
	}
	return out
}

// ScanPluginDir recurses root, offering files whose basename starts with
// "plugin_" and whose extension is a platform-native shared-library suffix
// (SPEC_FULL.md §6 "Filesystem conventions").
func ScanPluginDir(root string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		base := d.Name()
		if !strings.HasPrefix(base, "plugin_") {
			return nil
		}
		if !pluginSuffixes[strings.ToLower(filepath.Ext(base))] {
			return nil
		}
		found = append(found, path)
		return nil
	})
	return found, err
}

// WatchPluginDir starts an fsnotify watch on dir, feeding discovery events
// into the same notify hub the UI already listens on, so newly dropped
// plugin files surface without requiring a manual rescan.
func (m *Manager) WatchPluginDir(dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return err
	}
	m.watcher = w
	go m.watchLoop()
	return nil
}

func (m *Manager) watchLoop() {
	for {
		select {
		case ev, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			base := filepath.Base(ev.Name)
			if !strings.HasPrefix(base, "plugin_") {
				continue
			}
			if !pluginSuffixes[strings.ToLower(filepath.Ext(base))] {
				continue
			}
			m.hub.broadcast(ListChangedEvent{Path: ev.Name, Name: base, Loaded: false})
		case _, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// SaveRoster persists roster to the host's data directory, lz4-compressed,
// reusing the teacher's own save-file codec.
func (m *Manager) SaveRoster(roster []typedef.PluginState) error {
	data, err := json.Marshal(roster)
	if err != nil {
		return err
	}
	compressed, err := compressLZ4(data)
	if err != nil {
		return err
	}
	return storage.WriteDataFile(storage.RosterFile, compressed, 0o644)
}

// LoadRoster reads back a roster previously written by SaveRoster.
func (m *Manager) LoadRoster() ([]typedef.PluginState, error) {
	compressed, err := storage.ReadDataFile(storage.RosterFile)
	if err != nil {
		return nil, err
	}
	data, err := decompressLZ4(compressed)
	if err != nil {
		return nil, err
	}
	var roster []typedef.PluginState
	if err := json.Unmarshal(data, &roster); err != nil {
		return nil, err
	}
	return roster, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressLZ4(data []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(data))
	return io.ReadAll(r)
}
