// Package hostlog routes plugin and host diagnostics through the standard
// library's log.Logger, tagged per plugin and rate-limited so a single
// misbehaving plugin cannot flood the host's log output.
//
// The teacher never reaches for a third-party structured logger even though
// several other retrieved repositories do (rs/zerolog, sirupsen/logrus); it
// logs everything through plain "log"/"fmt" calls. This package keeps that
// choice rather than introducing a dependency the teacher itself never
// needed for the same concern.
package hostlog

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/TheGreatRambler/yuzu/emu"
)

// Severity re-exports emu.Severity so callers outside pluginhost don't need
// to import emu just to log.
type Severity = emu.Severity

const (
	Trace    = emu.SeverityTrace
	Debug    = emu.SeverityDebug
	Info     = emu.SeverityInfo
	Warning  = emu.SeverityWarning
	Error    = emu.SeverityError
	Critical = emu.SeverityCritical
)

// Logger tags every line with a plugin name and drops lines past a
// per-plugin, per-second budget.
type Logger struct {
	out *log.Logger

	mu        sync.Mutex
	budget    int
	window    time.Time
	remaining map[string]int

	onError func(plugin, message string)
}

// New returns a Logger writing to os.Stderr with a default per-plugin budget
// of 200 lines/second, matching the teacher's own unthrottled-but-modest
// logging volume in normal operation.
func New() *Logger {
	return &Logger{
		out:       log.New(os.Stderr, "", log.LstdFlags),
		budget:    200,
		remaining: make(map[string]int),
	}
}

// OnError registers a callback invoked for every Error/Critical line, used
// by the manager to mirror the most recent failure into its last-error slot.
func (l *Logger) OnError(fn func(plugin, message string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onError = fn
}

// Log writes one line if the plugin's per-second budget allows it.
func (l *Logger) Log(severity Severity, plugin, message string) {
	if !l.allow(plugin) {
		return
	}
	l.out.Printf("[%s] %s: %s", severity, plugin, message)

	if severity == Error || severity == Critical {
		l.mu.Lock()
		cb := l.onError
		l.mu.Unlock()
		if cb != nil {
			cb(plugin, message)
		}
	}
}

func (l *Logger) allow(plugin string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.window) >= time.Second {
		l.window = now
		l.remaining = make(map[string]int)
	}

	left, ok := l.remaining[plugin]
	if !ok {
		left = l.budget
	}
	if left <= 0 {
		return false
	}
	l.remaining[plugin] = left - 1
	return true
}
