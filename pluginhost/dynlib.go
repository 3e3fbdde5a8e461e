package pluginhost

import (
	"strings"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// library is the dynamic-library facade described in SPEC_FULL.md §4.1:
// open/resolve/close over the OS dynamic linker, plus a last-error slot.
// It owns no per-plugin state between calls. Built on purego rather than
// the teacher's hand-written cgo loader (pluginhost/loader_stub.go in the
// original), since purego's Dlopen/Dlsym/Dlclose already provide this
// exact contract uniformly across platforms without a build-tagged source
// file per OS.
type library struct {
	mu        sync.Mutex
	lastError string
}

var dl = &library{}

func (l *library) recordError(err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	l.lastError = strings.TrimSpace(err.Error())
	l.mu.Unlock()
}

// LastDllError returns the most recently recorded platform dynamic-linker
// error, trimmed of surrounding whitespace. It is reset by the next failing
// call, never by a succeeding one.
func (l *library) LastDllError() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastError
}

// open loads path and returns an opaque handle. Close must be called
// exactly once per successful open.
func (l *library) open(path string) (uintptr, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_LAZY|purego.RTLD_GLOBAL)
	if err != nil {
		l.recordError(err)
		return 0, err
	}
	return handle, nil
}

// resolve looks up a named symbol. A missing symbol is reported as
// (0, false), not as an error — callers decide whether absence is fatal.
func (l *library) resolve(handle uintptr, name string) (uintptr, bool) {
	addr, err := purego.Dlsym(handle, name)
	if err != nil || addr == 0 {
		l.recordError(err)
		return 0, false
	}
	return addr, true
}

func (l *library) close(handle uintptr) error {
	err := purego.Dlclose(handle)
	l.recordError(err)
	return err
}

// writeFunctionPointerSlot resolves a plugin-exported pointer-to-pointer
// slot by name and overwrites the pointer it holds with callback. This is
// how the host registers a host-API implementation with a plugin: the slot
// itself lives in the plugin's data segment (a `void *yuzu_<api>;` global),
// and Dlsym on a data symbol returns the address of that global rather than
// its contents, so the write has to go through unsafe.Pointer. A missing
// slot is a silent no-op, per §4.2 "Missing slots are ignored".
func writeFunctionPointerSlot(handle uintptr, name string, callback uintptr) bool {
	addr, ok := dl.resolve(handle, name)
	if !ok {
		return false
	}
	*(*uintptr)(unsafe.Pointer(addr)) = callback //nolint:govet
	return true
}

func resolveGetInterfaceVersion(handle uintptr) (func() uint64, bool) {
	addr, ok := dl.resolve(handle, symGetInterfaceVersion)
	if !ok {
		return nil, false
	}
	var fn func() uint64
	purego.RegisterFunc(&fn, addr)
	return fn, true
}

func resolveStart(handle uintptr) (func(uintptr), bool) {
	addr, ok := dl.resolve(handle, symStart)
	if !ok {
		return nil, false
	}
	var fn func(uintptr)
	purego.RegisterFunc(&fn, addr)
	return fn, true
}

func resolveOnMainLoop(handle uintptr) (func(), bool) {
	addr, ok := dl.resolve(handle, symOnMainLoop)
	if !ok {
		return nil, false
	}
	var fn func()
	purego.RegisterFunc(&fn, addr)
	return fn, true
}

func resolveOnClose(handle uintptr) (func(), bool) {
	addr, ok := dl.resolve(handle, symOnClose)
	if !ok {
		return nil, false
	}
	var fn func()
	purego.RegisterFunc(&fn, addr)
	return fn, true
}
