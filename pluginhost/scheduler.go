package pluginhost

import "time"

// pacingInterval is "four frame times at the console's nominal refresh"
// (SPEC_FULL.md §4.3.4), assuming a 60Hz nominal refresh.
const pacingInterval = 4 * time.Second / 60

// runPass executes a single scheduler pass against one record
// (SPEC_FULL.md §4.3.2): hand it the baton, wait for it to park, and decide
// whether it should be torn down on this boundary.
func (r *PluginRecord) runPass(inKeySet bool) (parked RunState, shouldRemove bool) {
	r.ensureStarted()
	r.wakeForPass()
	parked = r.awaitParked()
	if parked == StateParkedMainLoop && !inKeySet {
		r.requestStop()
		return parked, true
	}
	return parked, false
}

// DriveVsync is the scheduler's vsync entry point (§4.3.3), called once per
// emulator frame. For every record currently parked at a vsync boundary it
// loops single-pass invocations until that record parks at vsync again or
// is stopped, then drains any records queued for removal.
func (m *Manager) DriveVsync() {
	for _, r := range m.snapshotPlugins() {
		if r.peekState() != StateParkedVsync {
			continue
		}
		for {
			parked, remove := r.runPass(m.inKeySet(r.Path))
			if remove {
				m.queueRemoval(r)
				break
			}
			if parked == StateParkedVsync {
				break
			}
		}
	}
	m.drainPendingRemovals()
}

// runPacingPass is the pacing entry point's per-tick body (§4.3.4): exactly
// one pass for every record currently parked at a main-loop boundary.
func (m *Manager) runPacingPass() {
	for _, r := range m.snapshotPlugins() {
		if r.peekState() != StateParkedMainLoop {
			continue
		}
		_, remove := r.runPass(m.inKeySet(r.Path))
		if remove {
			m.queueRemoval(r)
		}
	}
	m.drainPendingRemovals()
}

// pacingLoop is the body of the manager's pacing goroutine. It runs for the
// manager's lifetime once started and exits when pacingStop is closed.
func (m *Manager) pacingLoop() {
	ticker := time.NewTicker(pacingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.pacingStop:
			return
		case <-ticker.C:
			if m.Active() {
				m.runPacingPass()
			}
		}
	}
}
