package pluginhost

import (
	"image/color"
	"runtime/cgo"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/TheGreatRambler/yuzu/emu"
	"github.com/TheGreatRambler/yuzu/storage"
)

// cString reads a NUL-terminated C string out of guest/plugin memory. It is
// the one place this host reaches past Go's type system into a raw pointer
// handed back across the ABI boundary.
func cString(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	var buf []byte
	for i := 0; ; i++ {
		b := *(*byte)(unsafe.Pointer(ptr + uintptr(i)))
		if b == 0 {
			break
		}
		buf = append(buf, b)
	}
	return string(buf)
}

func recordFromCtx(ctx uintptr) *PluginRecord {
	return cgo.Handle(ctx).Value().(*PluginRecord)
}

// bindHostAPI registers every host API function this specification defines
// against record's plugin-exported yuzu_<api> slots, generalizing
// plugin_manager.cpp's ADD_FUNCTION_TO_PLUGIN registration pass into one
// table walk over purego.NewCallback-produced trampolines. A plugin that
// does not export a given slot silently does not receive that callback
// (§4.2, "Missing slots are ignored").
func (m *Manager) bindHostAPI(r *PluginRecord) {
	for name, fn := range m.hostAPIFuncs() {
		writeFunctionPointerSlot(r.handle, hostAPISlotName(name), purego.NewCallback(fn))
	}
}

// hostAPIFuncs returns the named, plain Go closures backing every host API
// slot, keyed the same way the exported yuzu_<api> slots are named. Kept as
// a table of ordinary functions, rather than inlining purego.NewCallback
// calls directly, so tests can invoke the marshaling logic by calling these
// closures in-process without going through an actual C function pointer;
// bindHostAPI is the only caller that wraps them for export.
func (m *Manager) hostAPIFuncs() map[string]any {
	return map[string]any{
		// Meta
		"log": func(ctx uintptr, severity int32, messagePtr uintptr) {
			rec := recordFromCtx(ctx)
			rec.system.Log(emu.Severity(severity), rec.Name, cString(messagePtr))
		},
		"abiversion": func(ctx uintptr) uint64 {
			return InterfaceVersion
		},
		"free": func(ctx uintptr, ptr uintptr) {
			recordFromCtx(ctx).manager.alloc.free(ptr)
		},
		"datadir": func(ctx uintptr, outPtr uintptr, outLen int32) int32 {
			rec := recordFromCtx(ctx)
			if !rec.Config().AllowFileSystem {
				return writeCString(outPtr, outLen, "")
			}
			dir, err := storage.PluginDataDir(rec.Name)
			if err != nil {
				return writeCString(outPtr, outLen, "")
			}
			return writeCString(outPtr, outLen, dir)
		},

		// Emu control
		"emulating": func(ctx uintptr) int32 {
			return boolToInt32(recordFromCtx(ctx).system.Emulating())
		},
		"paused": func(ctx uintptr) int32 {
			return boolToInt32(recordFromCtx(ctx).system.Paused())
		},
		"pause": func(ctx uintptr) {
			recordFromCtx(ctx).system.Pause()
		},
		"unpause": func(ctx uintptr) {
			recordFromCtx(ctx).system.Unpause()
		},
		"framecount": func(ctx uintptr) uint64 {
			return recordFromCtx(ctx).system.FrameCount()
		},
		"framespersecond": func(ctx uintptr) float64 {
			return recordFromCtx(ctx).system.FramesPerSecond()
		},
		"romname": func(ctx uintptr, outPtr uintptr, outLen int32) int32 {
			return writeCString(outPtr, outLen, recordFromCtx(ctx).system.ROMName())
		},
		"programid": func(ctx uintptr) uint64 {
			return recordFromCtx(ctx).system.ProgramID()
		},
		"processid": func(ctx uintptr) uint64 {
			return recordFromCtx(ctx).system.ProcessID()
		},
		"frameadvance": func(ctx uintptr) {
			recordFromCtx(ctx).frameAdvance()
		},

		// Guest memory
		"heapregion": func(ctx uintptr, startOut, sizeOut uintptr) {
			start, size := recordFromCtx(ctx).system.HeapRegion()
			writeU64(startOut, start)
			writeU64(sizeOut, size)
		},
		"mainregion": func(ctx uintptr, startOut, sizeOut uintptr) {
			start, size := recordFromCtx(ctx).system.MainRegion()
			writeU64(startOut, start)
			writeU64(sizeOut, size)
		},
		"stackregion": func(ctx uintptr, startOut, sizeOut uintptr) {
			start, size := recordFromCtx(ctx).system.StackRegion()
			writeU64(startOut, start)
			writeU64(sizeOut, size)
		},
		"readmemory": func(ctx uintptr, addr uint64, outPtr uintptr, length int32) int32 {
			out := make([]byte, length)
			if !recordFromCtx(ctx).system.ReadMemory(addr, out) {
				return 0
			}
			for i, b := range out {
				*(*byte)(unsafe.Pointer(outPtr + uintptr(i))) = b
			}
			return 1
		},
		"writememory": func(ctx uintptr, addr uint64, inPtr uintptr, length int32) int32 {
			in := make([]byte, length)
			for i := range in {
				in[i] = *(*byte)(unsafe.Pointer(inPtr + uintptr(i)))
			}
			return boolToInt32(recordFromCtx(ctx).system.WriteMemory(addr, in))
		},

		// Timing
		"clockticks": func(ctx uintptr) uint64 {
			return recordFromCtx(ctx).system.ClockTicks()
		},
		"cputicks": func(ctx uintptr) uint64 {
			return recordFromCtx(ctx).system.CPUTicks()
		},

		// Joypad / HID
		"rawpad": func(ctx uintptr, player int32) uint64 {
			v, _ := hidOf(ctx).RawPad(int(player))
			return v
		},
		"setrawpad": func(ctx uintptr, player int32, state uint64) int32 {
			return boolToInt32(hidOf(ctx).SetRawPad(int(player), state))
		},
		"joystick": func(ctx uintptr, player, axis int32) int32 {
			v, _ := hidOf(ctx).Joystick(int(player), emu.JoystickAxis(axis))
			return int32(v)
		},
		"setjoystick": func(ctx uintptr, player, axis int32, value int32) int32 {
			return boolToInt32(hidOf(ctx).SetJoystick(int(player), emu.JoystickAxis(axis), int16(value)))
		},
		"sixaxis": func(ctx uintptr, player, sub, component int32) float64 {
			v, _ := hidOf(ctx).SixAxis(int(player), emu.SixAxisSubselector(sub), emu.SixAxisComponent(component))
			return float64(v)
		},
		"setsixaxis": func(ctx uintptr, player, sub, component int32, value float64) int32 {
			return boolToInt32(hidOf(ctx).SetSixAxis(int(player), emu.SixAxisSubselector(sub), emu.SixAxisComponent(component), float32(value)))
		},
		"connect": func(ctx uintptr, player, kind int32) int32 {
			return boolToInt32(hidOf(ctx).Connect(int(player), emu.ControllerType(kind)))
		},
		"disconnect": func(ctx uintptr, player int32) int32 {
			return boolToInt32(hidOf(ctx).Disconnect(int(player)))
		},
		"settype": func(ctx uintptr, player, kind int32) int32 {
			return boolToInt32(hidOf(ctx).SetType(int(player), emu.ControllerType(kind)))
		},
		"type": func(ctx uintptr, player int32) int32 {
			kind, _ := hidOf(ctx).Type(int(player))
			return int32(kind)
		},
		"sethandheldenabled": func(ctx uintptr, enabled int32) {
			hidOf(ctx).SetHandheldEnabled(enabled != 0)
		},
		"setindividualenabled": func(ctx uintptr, player, enabled int32) {
			hidOf(ctx).SetIndividualEnabled(int(player), enabled != 0)
		},
		"requestupdate": func(ctx uintptr) {
			hidOf(ctx).RequestUpdate()
		},
		"keypressed": func(ctx uintptr, key int32) int32 {
			return boolToInt32(hidOf(ctx).KeyPressed(emu.KeyboardKey(key)))
		},
		"setkeypressed": func(ctx uintptr, key, pressed int32) {
			hidOf(ctx).SetKeyPressed(emu.KeyboardKey(key), pressed != 0)
		},
		"modifierpressed": func(ctx uintptr, mod int32) int32 {
			return boolToInt32(hidOf(ctx).ModifierPressed(emu.KeyboardModifier(mod)))
		},
		"setmodifierpressed": func(ctx uintptr, mod, pressed int32) {
			hidOf(ctx).SetModifierPressed(emu.KeyboardModifier(mod), pressed != 0)
		},
		"rawkeyboard": func(ctx uintptr, outPtr uintptr) {
			bits := hidOf(ctx).RawKeyboard()
			for i, b := range bits {
				*(*byte)(unsafe.Pointer(outPtr + uintptr(i))) = b
			}
		},
		"setrawkeyboard": func(ctx uintptr, inPtr uintptr) {
			var bits [emu.NumKeyboardKeys / 8]byte
			for i := range bits {
				bits[i] = *(*byte)(unsafe.Pointer(inPtr + uintptr(i)))
			}
			hidOf(ctx).SetRawKeyboard(bits)
		},
		"mousebuttonpressed": func(ctx uintptr, btn int32) int32 {
			return boolToInt32(hidOf(ctx).MouseButtonPressed(emu.MouseButton(btn)))
		},
		"setmousebuttonpressed": func(ctx uintptr, btn, pressed int32) {
			hidOf(ctx).SetMouseButtonPressed(emu.MouseButton(btn), pressed != 0)
		},
		"mouseposition": func(ctx uintptr, xOut, yOut uintptr) {
			x, y := hidOf(ctx).MousePosition()
			writeI32(xOut, x)
			writeI32(yOut, y)
		},
		"setmouseposition": func(ctx uintptr, x, y int32) {
			hidOf(ctx).SetMousePosition(x, y)
		},
		"rawmouse": func(ctx uintptr, buttonsOut, xOut, yOut, wheelXOut, wheelYOut uintptr) {
			state := hidOf(ctx).RawMouse()
			writeU32(buttonsOut, state.Buttons)
			writeI32(xOut, state.X)
			writeI32(yOut, state.Y)
			writeI32(wheelXOut, state.WheelX)
			writeI32(wheelYOut, state.WheelY)
		},
		"setrawmouse": func(ctx uintptr, buttons uint32, x, y, wheelX, wheelY int32) {
			hidOf(ctx).SetRawMouse(emu.RawMouseState{Buttons: buttons, X: x, Y: y, WheelX: wheelX, WheelY: wheelY})
		},
		"touchcount": func(ctx uintptr) int32 {
			return int32(hidOf(ctx).TouchCount())
		},
		"settouchcount": func(ctx uintptr, n int32) {
			hidOf(ctx).SetTouchCount(int(n))
		},
		"touchslot": func(ctx uintptr, slot int32, xOut, yOut, diamXOut, diamYOut, rotOut, activeOut uintptr) int32 {
			pt, ok := hidOf(ctx).TouchSlot(int(slot))
			if !ok {
				return 0
			}
			writeU32(xOut, pt.X)
			writeU32(yOut, pt.Y)
			writeU32(diamXOut, pt.DiameterX)
			writeU32(diamYOut, pt.DiameterY)
			writeF32(rotOut, pt.RotationAngle)
			writeI32(activeOut, boolToInt32(pt.Active))
			return 1
		},
		"settouchslot": func(ctx uintptr, slot int32, x, y, diamX, diamY uint32, rot float32, active int32) int32 {
			return boolToInt32(hidOf(ctx).SetTouchSlot(int(slot), emu.TouchPoint{
				X: x, Y: y, DiameterX: diamX, DiameterY: diamY, RotationAngle: rot, Active: active != 0,
			}))
		},
		"enableoutsideinput": func(ctx uintptr, mask uint32) {
			hidOf(ctx).EnableOutsideInput(emu.EnableInputType(mask))
		},

		// Overlay
		"overlaysize": func(ctx uintptr, wOut, hOut uintptr) {
			w, h := recordFromCtx(ctx).manager.overlay.Size()
			writeI32(wOut, int32(w))
			writeI32(hOut, int32(h))
		},
		"overlayclear": func(ctx uintptr) int32 {
			rec := recordFromCtx(ctx)
			return boolToInt32(rec.manager.overlay.Clear(rec.system.Emulating()))
		},
		"overlaydrawpixel": func(ctx uintptr, x, y int32, r, g, b, a uint8) int32 {
			rec := recordFromCtx(ctx)
			return boolToInt32(rec.manager.overlay.DrawPixel(rec.system.Emulating(), int(x), int(y), color.RGBA{R: r, G: g, B: b, A: a}))
		},
		"overlayrender": func(ctx uintptr) int32 {
			rec := recordFromCtx(ctx)
			return boolToInt32(rec.manager.overlay.Render(rec.system.Emulating()))
		},
		"savescreenshot": func(ctx uintptr, pathPtr uintptr) int32 {
			rec := recordFromCtx(ctx)
			return boolToInt32(rec.manager.overlay.SaveScreenshot(rec.system.Emulating(), cString(pathPtr)))
		},
		"drawimage": func(ctx uintptr, pathPtr uintptr, x, y int32) int32 {
			rec := recordFromCtx(ctx)
			return boolToInt32(rec.manager.overlay.DrawImage(rec.system.Emulating(), cString(pathPtr), int(x), int(y)))
		},
		"popup": func(ctx uintptr, titlePtr, messagePtr uintptr, kind int32) {
			rec := recordFromCtx(ctx)
			rec.manager.overlay.Popup(PopupKind(kind), cString(titlePtr), cString(messagePtr))
		},
		"screenshotmemory": func(ctx uintptr, formatPtr uintptr, sizeOut uintptr) uintptr {
			rec := recordFromCtx(ctx)
			data, ok := rec.manager.overlay.Screenshot(rec.system.Emulating(), cString(formatPtr))
			if !ok {
				writeU64(sizeOut, 0)
				return 0
			}
			writeU64(sizeOut, uint64(len(data)))
			return rec.manager.alloc.allocBytes(data)
		},
	}
}

// hidOf returns the record's lazily-bound HID facade, binding it from the
// manager if this is the first HID call for the plugin and the guest is
// running.
func hidOf(ctx uintptr) emu.HID {
	rec := recordFromCtx(ctx)
	rec.ensureHIDFacade(rec.manager.hid)
	return rec.HID()
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func writeU64(ptr uintptr, v uint64) {
	if ptr == 0 {
		return
	}
	*(*uint64)(unsafe.Pointer(ptr)) = v
}

func writeI32(ptr uintptr, v int32) {
	if ptr == 0 {
		return
	}
	*(*int32)(unsafe.Pointer(ptr)) = v
}

func writeU32(ptr uintptr, v uint32) {
	if ptr == 0 {
		return
	}
	*(*uint32)(unsafe.Pointer(ptr)) = v
}

func writeF32(ptr uintptr, v float32) {
	if ptr == 0 {
		return
	}
	*(*float32)(unsafe.Pointer(ptr)) = v
}

// writeCString copies s, NUL-terminated, into the buffer at outPtr of
// capacity outLen, truncating if necessary. Returns the number of bytes
// written excluding the terminator.
func writeCString(outPtr uintptr, outLen int32, s string) int32 {
	if outPtr == 0 || outLen <= 0 {
		return 0
	}
	max := int(outLen) - 1
	if max < 0 {
		max = 0
	}
	n := len(s)
	if n > max {
		n = max
	}
	for i := 0; i < n; i++ {
		*(*byte)(unsafe.Pointer(outPtr + uintptr(i))) = s[i]
	}
	*(*byte)(unsafe.Pointer(outPtr + uintptr(n))) = 0
	return int32(n)
}
