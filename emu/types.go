// Package emu defines the narrow facades the plugin host needs from the
// emulator core and its HID subsystem. The host never reaches into guest
// process internals, page tables, or the HID shared-memory objects directly
// — it only ever calls through these two interfaces, exactly the way the
// distilled specification scopes the core down to "a small abstract facade"
// and "raw-handle accessors".
package emu

// Severity mirrors the plugin log taxonomy the emulator core understands.
type Severity int

const (
	SeverityTrace Severity = iota
	SeverityDebug
	SeverityInfo
	SeverityWarning
	SeverityError
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityTrace:
		return "Trace"
	case SeverityDebug:
		return "Debug"
	case SeverityInfo:
		return "Info"
	case SeverityWarning:
		return "Warning"
	case SeverityError:
		return "Error"
	case SeverityCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// ControllerType mirrors the original plugin_definitions.h ControllerType enum.
type ControllerType int

const (
	ControllerProController ControllerType = iota
	ControllerDualJoycon
	ControllerRightJoycon
	ControllerLeftJoycon
)

// JoystickAxis mirrors YuzuJoystickType.
type JoystickAxis int

const (
	AxisLeftX JoystickAxis = iota
	AxisLeftY
	AxisRightX
	AxisRightY
)

// SixAxisSubselector distinguishes left/right Joy-Con IMUs on a dual
// controller; a ProController or handheld report uses SixAxisPrimary.
type SixAxisSubselector int

const (
	SixAxisPrimary SixAxisSubselector = iota
	SixAxisLeft
	SixAxisRight
)

// SixAxisComponent mirrors SixAxisMotionTypes.
type SixAxisComponent int

const (
	SixAxisAccelX SixAxisComponent = iota
	SixAxisAccelY
	SixAxisAccelZ
	SixAxisAngularVelocityX
	SixAxisAngularVelocityY
	SixAxisAngularVelocityZ
	SixAxisAngleX
	SixAxisAngleY
	SixAxisAngleZ
	SixAxisDirectionXX
	SixAxisDirectionXY
	SixAxisDirectionXZ
	SixAxisDirectionYX
	SixAxisDirectionYY
	SixAxisDirectionYZ
	SixAxisDirectionZX
	SixAxisDirectionZY
	SixAxisDirectionZZ
)

// KeyboardKey mirrors the scancode-style KeyboardValues enum. Only a
// representative subset is named; RawKeyboard/SetRawKeyboard cover the rest
// in bulk the way the ABI's raw bitset calls do.
type KeyboardKey int

const (
	KeyA KeyboardKey = iota
	KeyB
	KeyC
	KeyD
	KeyE
	KeyEscape
	KeyEnter
	KeySpace
)

// NumKeyboardKeys is the size of the raw keyboard bitset the ABI's bulk
// keyboard calls operate on.
const NumKeyboardKeys = 256

// KeyboardModifier mirrors KeyboardModifiers.
type KeyboardModifier int

const (
	ModLeftControl KeyboardModifier = iota
	ModLeftShift
	ModLeftAlt
	ModLeftMeta
	ModRightControl
	ModRightShift
	ModRightAlt
	ModRightMeta
	ModCapsLock
	ModScrollLock
	ModNumLock
	ModNumKeyboardMods
)

// MouseButton mirrors MouseButton.
type MouseButton int

const (
	MouseLeft MouseButton = iota
	MouseRight
	MouseMiddle
	MouseForward
	MouseBack
)

// EnableInputType mirrors the EnableInputType bitflags used to gate outside
// (plugin-driven) input per peripheral.
type EnableInputType uint32

const (
	EnableController1 EnableInputType = 1 << iota
	EnableController2
	EnableController3
	EnableController4
	EnableController5
	EnableController6
	EnableController7
	EnableController8
	EnableControllerHandheld
	EnableTouchpad
	EnableMouseKeyboard
	EnableAll = EnableInputType(0xFFFFFFFF)
)

// RawMouseState is the bulk read/write shape for mouse state.
type RawMouseState struct {
	Buttons uint32
	X, Y    int32
	WheelX  int32
	WheelY  int32
}

// TouchPoint is one touch-slot reading.
type TouchPoint struct {
	X, Y             uint32
	DiameterX        uint32
	DiameterY        uint32
	RotationAngle    float32
	Active           bool
}
