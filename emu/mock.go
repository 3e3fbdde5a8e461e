package emu

import (
	"sync"

	"github.com/shirou/gopsutil/v3/host"
)

// MockSystem is an in-memory System used by the scheduler and manager test
// suites in place of a real emulator core. It is not guarded against
// concurrent misuse beyond a single mutex; plugin workers only ever touch it
// through the host API bindings, which already serialize per-plugin access.
type MockSystem struct {
	mu sync.Mutex

	emulating  bool
	paused     bool
	frameCount uint64
	romName    string
	programID  uint64
	processID  uint64
	heapStart  uint64
	heapSize   uint64
	memory     map[uint64]byte
	clockTicks uint64
	cpuTicks   uint64

	logs []LogEntry
}

// LogEntry records one call to Log, for test assertions.
type LogEntry struct {
	Severity Severity
	Plugin   string
	Message  string
}

// NewMockSystem returns a MockSystem with the guest process not yet running.
// Its clock-tick counter is seeded from the host's own uptime so that
// CPUTicks/ClockTicks readings are monotonically increasing from a
// realistic baseline rather than always starting at zero.
func NewMockSystem() *MockSystem {
	m := &MockSystem{memory: make(map[uint64]byte)}
	if uptime, err := host.Uptime(); err == nil {
		m.clockTicks = uptime
		m.cpuTicks = uptime
	}
	return m
}

// Boot marks the guest process as running, the way a real ROM boot would.
func (m *MockSystem) Boot(romName string, programID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emulating = true
	m.romName = romName
	m.programID = programID
	m.processID = programID ^ 0xA5A5A5A5
	m.heapStart = 0x10000000
	m.heapSize = 0x4000000
}

func (m *MockSystem) Emulating() bool { m.mu.Lock(); defer m.mu.Unlock(); return m.emulating }
func (m *MockSystem) Paused() bool    { m.mu.Lock(); defer m.mu.Unlock(); return m.paused }
func (m *MockSystem) Pause()          { m.mu.Lock(); defer m.mu.Unlock(); m.paused = true }
func (m *MockSystem) Unpause()        { m.mu.Lock(); defer m.mu.Unlock(); m.paused = false }

func (m *MockSystem) AdvanceFrame() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frameCount++
}

func (m *MockSystem) FrameCount() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frameCount
}

func (m *MockSystem) FramesPerSecond() float64 { return 60.0 }

func (m *MockSystem) ROMName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.romName
}

func (m *MockSystem) ProgramID() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.programID
}

func (m *MockSystem) ProcessID() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processID
}

func (m *MockSystem) HeapRegion() (uint64, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.emulating {
		return 0, 0
	}
	return m.heapStart, m.heapSize
}

func (m *MockSystem) MainRegion() (uint64, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.emulating {
		return 0, 0
	}
	return 0x08000000, 0x1000000
}

func (m *MockSystem) StackRegion() (uint64, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.emulating {
		return 0, 0
	}
	return 0x7ff000000, 0x100000
}

func (m *MockSystem) ReadMemory(addr uint64, out []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.emulating {
		return false
	}
	for i := range out {
		b, ok := m.memory[addr+uint64(i)]
		if !ok {
			return false
		}
		out[i] = b
	}
	return true
}

func (m *MockSystem) WriteMemory(addr uint64, data []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.emulating {
		return false
	}
	for i, b := range data {
		m.memory[addr+uint64(i)] = b
	}
	return true
}

// SeedMemory makes a range readable for tests without going through WriteMemory's guest-running guard.
func (m *MockSystem) SeedMemory(addr uint64, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, b := range data {
		m.memory[addr+uint64(i)] = b
	}
}

func (m *MockSystem) ClockTicks() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clockTicks++
	return m.clockTicks
}

func (m *MockSystem) CPUTicks() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cpuTicks++
	return m.cpuTicks
}

func (m *MockSystem) Log(severity Severity, plugin, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, LogEntry{Severity: severity, Plugin: plugin, Message: message})
}

// Logs returns a copy of everything logged so far.
func (m *MockSystem) Logs() []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LogEntry(nil), m.logs...)
}

// MockHID is an in-memory HID used by tests.
type MockHID struct {
	mu sync.Mutex

	pads        map[int]uint64
	joysticks   map[int]map[JoystickAxis]int16
	sixAxis     map[int]map[SixAxisSubselector]map[SixAxisComponent]float32
	connected   map[int]ControllerType
	handheld    bool
	individual  map[int]bool
	keys        map[KeyboardKey]bool
	mods        map[KeyboardModifier]bool
	mouseBtns   map[MouseButton]bool
	mouseX      int32
	mouseY      int32
	touches     map[int]TouchPoint
	outsideMask EnableInputType
	updates     int
}

// NewMockHID returns an empty MockHID with no controllers connected.
func NewMockHID() *MockHID {
	return &MockHID{
		pads:       make(map[int]uint64),
		joysticks:  make(map[int]map[JoystickAxis]int16),
		sixAxis:    make(map[int]map[SixAxisSubselector]map[SixAxisComponent]float32),
		connected:  make(map[int]ControllerType),
		individual: make(map[int]bool),
		keys:       make(map[KeyboardKey]bool),
		mods:       make(map[KeyboardModifier]bool),
		mouseBtns:  make(map[MouseButton]bool),
		touches:    make(map[int]TouchPoint),
	}
}

func (h *MockHID) RawPad(player int) (uint64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.pads[player]
	return v, ok
}

func (h *MockHID) SetRawPad(player int, state uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pads[player] = state
	return true
}

func (h *MockHID) Joystick(player int, axis JoystickAxis) (int16, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	a, ok := h.joysticks[player]
	if !ok {
		return 0, false
	}
	v, ok := a[axis]
	return v, ok
}

func (h *MockHID) SetJoystick(player int, axis JoystickAxis, value int16) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.joysticks[player] == nil {
		h.joysticks[player] = make(map[JoystickAxis]int16)
	}
	h.joysticks[player][axis] = value
	return true
}

func (h *MockHID) SixAxis(player int, sub SixAxisSubselector, component SixAxisComponent) (float32, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sixAxis[player]
	if !ok {
		return 0, false
	}
	c, ok := s[sub]
	if !ok {
		return 0, false
	}
	v, ok := c[component]
	return v, ok
}

func (h *MockHID) SetSixAxis(player int, sub SixAxisSubselector, component SixAxisComponent, value float32) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sixAxis[player] == nil {
		h.sixAxis[player] = make(map[SixAxisSubselector]map[SixAxisComponent]float32)
	}
	if h.sixAxis[player][sub] == nil {
		h.sixAxis[player][sub] = make(map[SixAxisComponent]float32)
	}
	h.sixAxis[player][sub][component] = value
	return true
}

func (h *MockHID) Connect(player int, kind ControllerType) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connected[player] = kind
	return true
}

func (h *MockHID) Disconnect(player int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.connected, player)
	return true
}

func (h *MockHID) SetType(player int, kind ControllerType) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connected[player]; !ok {
		return false
	}
	h.connected[player] = kind
	return true
}

func (h *MockHID) Type(player int) (ControllerType, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.connected[player]
	return t, ok
}

func (h *MockHID) SetHandheldEnabled(enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handheld = enabled
}

func (h *MockHID) SetIndividualEnabled(player int, enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.individual[player] = enabled
}

func (h *MockHID) RequestUpdate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates++
}

func (h *MockHID) KeyPressed(key KeyboardKey) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.keys[key]
}

func (h *MockHID) SetKeyPressed(key KeyboardKey, pressed bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.keys[key] = pressed
}

func (h *MockHID) ModifierPressed(mod KeyboardModifier) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mods[mod]
}

func (h *MockHID) SetModifierPressed(mod KeyboardModifier, pressed bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mods[mod] = pressed
}

func (h *MockHID) RawKeyboard() [NumKeyboardKeys / 8]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out [NumKeyboardKeys / 8]byte
	for k, pressed := range h.keys {
		if pressed && int(k) < NumKeyboardKeys {
			out[int(k)/8] |= 1 << uint(int(k)%8)
		}
	}
	return out
}

func (h *MockHID) SetRawKeyboard(bits [NumKeyboardKeys / 8]byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for k := 0; k < NumKeyboardKeys; k++ {
		h.keys[KeyboardKey(k)] = bits[k/8]&(1<<uint(k%8)) != 0
	}
}

func (h *MockHID) MouseButtonPressed(btn MouseButton) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mouseBtns[btn]
}

func (h *MockHID) SetMouseButtonPressed(btn MouseButton, pressed bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mouseBtns[btn] = pressed
}

func (h *MockHID) MousePosition() (int32, int32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mouseX, h.mouseY
}

func (h *MockHID) SetMousePosition(x, y int32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mouseX, h.mouseY = x, y
}

func (h *MockHID) RawMouse() RawMouseState {
	h.mu.Lock()
	defer h.mu.Unlock()
	var buttons uint32
	for btn, pressed := range h.mouseBtns {
		if pressed {
			buttons |= 1 << uint(btn)
		}
	}
	return RawMouseState{Buttons: buttons, X: h.mouseX, Y: h.mouseY}
}

func (h *MockHID) SetRawMouse(state RawMouseState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mouseX, h.mouseY = state.X, state.Y
	for btn := range h.mouseBtns {
		h.mouseBtns[btn] = state.Buttons&(1<<uint(btn)) != 0
	}
}

func (h *MockHID) TouchCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.touches)
}

func (h *MockHID) SetTouchCount(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.touches {
		if i >= n {
			delete(h.touches, i)
		}
	}
}

func (h *MockHID) TouchSlot(i int) (TouchPoint, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.touches[i]
	return p, ok
}

func (h *MockHID) SetTouchSlot(i int, pt TouchPoint) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.touches[i] = pt
	return true
}

func (h *MockHID) EnableOutsideInput(mask EnableInputType) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.outsideMask = mask
}

// OutsideInputMask exposes the last EnableOutsideInput call for assertions.
func (h *MockHID) OutsideInputMask() EnableInputType {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.outsideMask
}
