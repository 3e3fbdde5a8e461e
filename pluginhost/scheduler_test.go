package pluginhost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheGreatRambler/yuzu/emu"
)

func newTestManager() *Manager {
	return NewManager(emu.NewMockSystem(), emu.NewMockHID())
}

// attach inserts r directly into m's plugin list and key-set, bypassing
// Load's dynamic-library path entirely — the white-box equivalent of the
// list and key-set insertion at the end of Load, for tests that only care
// about scheduling behavior.
func (m *Manager) attach(r *PluginRecord) {
	r.manager = m
	m.mu.Lock()
	m.plugins = append(m.plugins, r)
	m.keySet[r.Path] = struct{}{}
	m.mu.Unlock()
}

func TestRunPass_MainLoopOnlyPluginStaysParkedAtMainLoop(t *testing.T) {
	calls := 0
	r := newTestRecord(func() { calls++ })

	parked, remove := r.runPass(true)

	assert.Equal(t, StateParkedMainLoop, parked)
	assert.False(t, remove)
	assert.Equal(t, 1, calls)
}

func TestRunPass_NotInKeySetAtMainLoopBoundaryIsRemoved(t *testing.T) {
	r := newTestRecord(func() {})

	parked, remove := r.runPass(false)

	assert.Equal(t, StateParkedMainLoop, parked)
	assert.True(t, remove)
}

func TestRunPass_VsyncParkedPluginIsNeverRemovedEvenIfNotInKeySet(t *testing.T) {
	var r *PluginRecord
	r = newTestRecord(func() {
		r.frameAdvance()
	})

	parked, remove := r.runPass(false)

	assert.Equal(t, StateParkedVsync, parked)
	assert.False(t, remove, "boundary-only teardown: a vsync-parked plugin must not be torn down")
}

func TestDriveVsync_AdvancesEveryVsyncParkedPluginExactlyOnePass(t *testing.T) {
	m := newTestManager()

	passes := 0
	var r *PluginRecord
	r = newTestRecord(func() {
		r.frameAdvance()
		passes++
	})
	m.attach(r)

	r.ensureStarted()
	r.wakeForPass()
	require.Equal(t, StateParkedVsync, r.awaitParked())

	m.DriveVsync()
	assert.Equal(t, StateParkedVsync, r.peekState())
	assert.Equal(t, 1, passes)

	m.DriveVsync()
	assert.Equal(t, 2, passes)
}

func TestDriveVsync_RemovesPluginParkedAtVsyncOnceItReachesMainLoopBoundary(t *testing.T) {
	m := newTestManager()

	frame := 0
	var r *PluginRecord
	r = newTestRecord(func() {
		frame++
		if frame < 2 {
			r.frameAdvance()
		}
		// once the vsync pass resumes frameAdvance, this first call returns,
		// parking the worker at the main-loop boundary; with its path out of
		// the key-set the worker is stopped there, so no second call happens.
	})
	m.attach(r)

	r.ensureStarted()
	r.wakeForPass()
	require.Equal(t, StateParkedVsync, r.awaitParked())

	require.NoError(t, m.Remove(r.Path))

	m.DriveVsync()
	r.join()

	_, stillInKeySet := m.keySet[r.Path]
	assert.False(t, stillInKeySet)
}

func TestRunPacingPass_AdvancesOnlyMainLoopParkedPlugins(t *testing.T) {
	m := newTestManager()

	mainLoopCalls := 0
	parkedAtMainLoop := newTestRecord(func() { mainLoopCalls++ })
	m.attach(parkedAtMainLoop)

	vsyncCalls := 0
	var parkedAtVsync *PluginRecord
	parkedAtVsync = newTestRecord(func() {
		vsyncCalls++
		if vsyncCalls == 1 {
			parkedAtVsync.frameAdvance()
		}
	})
	m.attach(parkedAtVsync)
	parkedAtVsync.ensureStarted()
	parkedAtVsync.wakeForPass()
	require.Equal(t, StateParkedVsync, parkedAtVsync.awaitParked())

	m.runPacingPass()

	assert.Equal(t, 1, mainLoopCalls)
	assert.Equal(t, 1, vsyncCalls, "a plugin parked at vsync must not be advanced by the pacing pass")
}
