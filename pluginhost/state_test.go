package pluginhost

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheGreatRambler/yuzu/emu"
)

// newTestRecord builds a PluginRecord backed by in-process Go closures
// standing in for a plugin's native on_main_loop/on_close exports, the way
// SPEC_FULL.md's test-tooling note prescribes in place of a real shared
// library.
func newTestRecord(onMainLoop func()) *PluginRecord {
	return newPluginRecord("fake.so", "fake", 0, onMainLoop, nil, false, emu.NewMockSystem(), nil)
}

func TestPluginRecord_StartsParkedAtMainLoop(t *testing.T) {
	r := newTestRecord(func() {})
	assert.Equal(t, StateParkedMainLoop, r.peekState())
}

func TestPluginRecord_HIDFacadeStaysNilUntilGuestRunning(t *testing.T) {
	r := newTestRecord(func() {})
	hid := emu.NewMockHID()

	r.ensureHIDFacade(hid)
	assert.Nil(t, r.HID(), "a HID call before Boot must not bind or return a facade")

	sys := r.system.(*emu.MockSystem)
	sys.Boot("demo.nsp", 0x0100000000010000)

	r.ensureHIDFacade(hid)
	assert.Equal(t, hid, r.HID())
}

func TestPluginRecord_RunPassReturnsToMainLoopBoundary(t *testing.T) {
	ran := false
	r := newTestRecord(func() { ran = true })

	r.ensureStarted()
	r.wakeForPass()
	parked := r.awaitParked()

	assert.Equal(t, StateParkedMainLoop, parked)
	assert.True(t, ran)
}

func TestPluginRecord_FrameAdvanceSuspendsUntilWoken(t *testing.T) {
	var rec *PluginRecord
	passed := make(chan struct{})
	rec = newTestRecord(func() {
		rec.frameAdvance()
		close(passed)
	})

	rec.ensureStarted()
	rec.wakeForPass()

	require.Eventually(t, func() bool {
		return rec.peekState() == StateParkedVsync
	}, time.Second, time.Millisecond)

	select {
	case <-passed:
		t.Fatal("on_main_loop returned before being woken a second time")
	default:
	}

	rec.wakeForPass()
	parked := rec.awaitParked()
	assert.Equal(t, StateParkedMainLoop, parked)

	select {
	case <-passed:
	case <-time.After(time.Second):
		t.Fatal("on_main_loop never resumed past frameAdvance")
	}
}

func TestPluginRecord_RequestStopAtMainLoopBoundaryEndsWorker(t *testing.T) {
	r := newTestRecord(func() {})
	r.ensureStarted()
	r.wakeForPass()
	require.Equal(t, StateParkedMainLoop, r.awaitParked())

	r.requestStop()
	r.join()

	assert.Equal(t, StateParkedMainLoop, r.peekState())
}

func TestPluginRecord_HIDFacadeBindsLazilyOnce(t *testing.T) {
	r := newTestRecord(func() {})
	assert.Nil(t, r.HID())
	r.system.(*emu.MockSystem).Boot("demo.nsp", 0x0100000000010000)

	first := emu.NewMockHID()
	r.ensureHIDFacade(first)
	assert.Same(t, first, r.HID())

	second := emu.NewMockHID()
	r.ensureHIDFacade(second)
	assert.Same(t, first, r.HID(), "ensureHIDFacade must not rebind once set")
}

func TestPluginRecord_LastError(t *testing.T) {
	r := newTestRecord(func() {})
	assert.Empty(t, r.LastError())
	r.setLastError("boom")
	assert.Equal(t, "boom", r.LastError())
}
