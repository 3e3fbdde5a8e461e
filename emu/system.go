package emu

// System is the narrow facade the plugin host needs from the emulator
// core: run/pause control, ROM and process identity, guest memory access,
// and timing. It intentionally does not expose the process, page table, or
// scheduler objects themselves.
type System interface {
	Emulating() bool
	Paused() bool
	Pause()
	Unpause()
	FrameCount() uint64
	FramesPerSecond() float64
	ROMName() string
	ProgramID() uint64
	ProcessID() uint64

	// HeapRegion, MainRegion and StackRegion report the guest address space
	// layout. They return (0, 0) before a guest process exists.
	HeapRegion() (start, size uint64)
	MainRegion() (start, size uint64)
	StackRegion() (start, size uint64)

	// ReadMemory and WriteMemory report false (and do not partially write)
	// when the range falls outside the guest's mapped address space.
	ReadMemory(addr uint64, out []byte) bool
	WriteMemory(addr uint64, data []byte) bool

	ClockTicks() uint64
	CPUTicks() uint64

	Log(severity Severity, plugin, message string)
}

// HID is the narrow facade over the controller/keyboard/mouse/touchscreen
// shared-memory state. The host only ever calls through here; it never
// reaches into the HID applet's shared memory layout directly.
type HID interface {
	RawPad(player int) (state uint64, ok bool)
	SetRawPad(player int, state uint64) bool

	Joystick(player int, axis JoystickAxis) (value int16, ok bool)
	SetJoystick(player int, axis JoystickAxis, value int16) bool

	SixAxis(player int, sub SixAxisSubselector, component SixAxisComponent) (value float32, ok bool)
	SetSixAxis(player int, sub SixAxisSubselector, component SixAxisComponent, value float32) bool

	Connect(player int, kind ControllerType) bool
	Disconnect(player int) bool
	SetType(player int, kind ControllerType) bool
	Type(player int) (kind ControllerType, ok bool)

	SetHandheldEnabled(enabled bool)
	SetIndividualEnabled(player int, enabled bool)
	RequestUpdate()

	KeyPressed(key KeyboardKey) bool
	SetKeyPressed(key KeyboardKey, pressed bool)
	ModifierPressed(mod KeyboardModifier) bool
	SetModifierPressed(mod KeyboardModifier, pressed bool)
	RawKeyboard() [NumKeyboardKeys / 8]byte
	SetRawKeyboard(bits [NumKeyboardKeys / 8]byte)

	MouseButtonPressed(btn MouseButton) bool
	SetMouseButtonPressed(btn MouseButton, pressed bool)
	MousePosition() (x, y int32)
	SetMousePosition(x, y int32)
	RawMouse() RawMouseState
	SetRawMouse(state RawMouseState)

	TouchCount() int
	SetTouchCount(n int)
	TouchSlot(i int) (TouchPoint, bool)
	SetTouchSlot(i int, pt TouchPoint) bool

	EnableOutsideInput(mask EnableInputType)
}
