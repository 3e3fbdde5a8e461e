package emu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockSystem_BootEnablesGuestAddressSpace(t *testing.T) {
	m := NewMockSystem()
	assert.False(t, m.Emulating())

	start, size := m.HeapRegion()
	assert.Zero(t, start)
	assert.Zero(t, size)

	m.Boot("game.nsp", 0x0100000000010000)

	assert.True(t, m.Emulating())
	assert.Equal(t, "game.nsp", m.ROMName())
	assert.Equal(t, uint64(0x0100000000010000), m.ProgramID())

	start, size = m.HeapRegion()
	assert.NotZero(t, start)
	assert.NotZero(t, size)
}

func TestMockSystem_MemoryRequiresEmulating(t *testing.T) {
	m := NewMockSystem()
	buf := make([]byte, 4)

	assert.False(t, m.ReadMemory(0x1000, buf))
	assert.False(t, m.WriteMemory(0x1000, []byte{1, 2, 3, 4}))

	m.Boot("game.nsp", 1)
	assert.True(t, m.WriteMemory(0x1000, []byte{1, 2, 3, 4}))
	assert.True(t, m.ReadMemory(0x1000, buf))
	assert.Equal(t, []byte{1, 2, 3, 4}, buf)
}

func TestMockSystem_ReadMemoryFailsOnUnmappedRange(t *testing.T) {
	m := NewMockSystem()
	m.Boot("game.nsp", 1)
	m.SeedMemory(0x2000, []byte{9})

	buf := make([]byte, 2)
	assert.False(t, m.ReadMemory(0x2000, buf), "second byte at 0x2001 was never seeded")
}

func TestMockSystem_LogsAreRecorded(t *testing.T) {
	m := NewMockSystem()
	m.Log(SeverityWarning, "plugin_x", "careful")

	logs := m.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, SeverityWarning, logs[0].Severity)
	assert.Equal(t, "plugin_x", logs[0].Plugin)
}

func TestMockSystem_TicksAreMonotonic(t *testing.T) {
	m := NewMockSystem()
	a := m.ClockTicks()
	b := m.ClockTicks()
	assert.Greater(t, b, a)
}

func TestMockHID_ConnectAndSetTypeRequireConnection(t *testing.T) {
	h := NewMockHID()

	_, ok := h.Type(0)
	assert.False(t, ok)
	assert.False(t, h.SetType(0, ControllerDualJoycon))

	require.True(t, h.Connect(0, ControllerProController))
	assert.True(t, h.SetType(0, ControllerDualJoycon))

	kind, ok := h.Type(0)
	require.True(t, ok)
	assert.Equal(t, ControllerDualJoycon, kind)

	require.True(t, h.Disconnect(0))
	_, ok = h.Type(0)
	assert.False(t, ok)
}

func TestMockHID_RawKeyboardRoundTrips(t *testing.T) {
	h := NewMockHID()
	h.SetKeyPressed(KeyA, true)
	h.SetKeyPressed(KeyEnter, true)

	bits := h.RawKeyboard()

	h2 := NewMockHID()
	h2.SetRawKeyboard(bits)
	assert.True(t, h2.KeyPressed(KeyA))
	assert.True(t, h2.KeyPressed(KeyEnter))
	assert.False(t, h2.KeyPressed(KeyB))
}

func TestMockHID_RawMouseRoundTrips(t *testing.T) {
	h := NewMockHID()
	h.SetMouseButtonPressed(MouseLeft, true)
	h.SetMousePosition(12, 34)

	state := h.RawMouse()
	assert.Equal(t, int32(12), state.X)
	assert.Equal(t, int32(34), state.Y)
	assert.NotZero(t, state.Buttons)

	h2 := NewMockHID()
	h2.SetMouseButtonPressed(MouseLeft, false)
	h2.SetRawMouse(state)
	assert.True(t, h2.MouseButtonPressed(MouseLeft))
	x, y := h2.MousePosition()
	assert.Equal(t, int32(12), x)
	assert.Equal(t, int32(34), y)
}

func TestMockHID_TouchSlots(t *testing.T) {
	h := NewMockHID()
	assert.Equal(t, 0, h.TouchCount())

	require.True(t, h.SetTouchSlot(0, TouchPoint{X: 10, Y: 20, Active: true}))
	assert.Equal(t, 1, h.TouchCount())

	pt, ok := h.TouchSlot(0)
	require.True(t, ok)
	assert.Equal(t, uint32(10), pt.X)

	h.SetTouchCount(0)
	assert.Equal(t, 0, h.TouchCount())
}

func TestMockHID_EnableOutsideInput(t *testing.T) {
	h := NewMockHID()
	h.EnableOutsideInput(EnableController1 | EnableTouchpad)
	assert.Equal(t, EnableController1|EnableTouchpad, h.OutsideInputMask())
}
