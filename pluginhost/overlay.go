package pluginhost

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/bmp"
)

// DockState mirrors the console's docked/undocked display mode.
type DockState int

const (
	DockStateDocked DockState = iota
	DockStateUndocked
)

// Nominal docked/undocked resolutions.
const (
	dockedWidth, dockedHeight     = 1920, 1080
	undockedWidth, undockedHeight = 1280, 720
)

// PresentFunc is the host-supplied render callback the overlay's Render
// entry invokes with the current canvas.
type PresentFunc func(img *image.RGBA)

// ScreenshotProducerFunc is the host-supplied raw-screenshot producer.
type ScreenshotProducerFunc func() *image.RGBA

// PopupKind enumerates the dialog severities a plugin may request via the
// popup host API, mirroring plugin_definitions.h's message-box levels.
type PopupKind int32

const (
	PopupNone PopupKind = iota
	PopupInformational
	PopupWarning
	PopupCritical
)

// PopupFunc is the host-supplied dialog presenter.
type PopupFunc func(kind PopupKind, title, message string)

// Overlay is the offscreen RGBA canvas described in SPEC_FULL.md §4.5: sized
// to the console's docked or undocked resolution, recreated whenever the
// dock state changes, and gated on the guest process being powered on.
// Grounded on the teacher's overlayCache idiom (pluginhost/api.go's
// mutex-guarded named-color map), generalized from a color cache into a
// real pixel canvas.
type Overlay struct {
	mu     sync.Mutex
	dock   DockState
	canvas *image.RGBA

	present    PresentFunc
	screenshot ScreenshotProducerFunc
	popup      PopupFunc
}

// NewOverlay returns an Overlay sized for the docked resolution.
func NewOverlay() *Overlay {
	return &Overlay{
		dock:   DockStateDocked,
		canvas: image.NewRGBA(image.Rect(0, 0, dockedWidth, dockedHeight)),
	}
}

// SetDockState recreates the canvas (discarding prior contents) whenever the
// requested state differs from the recorded one.
func (o *Overlay) SetDockState(state DockState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.dock == state {
		return
	}
	o.dock = state
	w, h := dockedWidth, dockedHeight
	if state == DockStateUndocked {
		w, h = undockedWidth, undockedHeight
	}
	o.canvas = image.NewRGBA(image.Rect(0, 0, w, h))
}

// Size reports the current canvas dimensions.
func (o *Overlay) Size() (width, height int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	b := o.canvas.Bounds()
	return b.Dx(), b.Dy()
}

// Clear blanks the canvas. Refuses (returns false) while the guest is not
// running, per P5.
func (o *Overlay) Clear(guestRunning bool) bool {
	if !guestRunning {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	draw.Draw(o.canvas, o.canvas.Bounds(), image.Transparent, image.Point{}, draw.Src)
	return true
}

// DrawPixel sets one pixel. Refuses while the guest is not running or the
// coordinate falls outside the canvas.
func (o *Overlay) DrawPixel(guestRunning bool, x, y int, c color.RGBA) bool {
	if !guestRunning {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if !(image.Pt(x, y).In(o.canvas.Bounds())) {
		return false
	}
	o.canvas.SetRGBA(x, y, c)
	return true
}

// SetCallbacks installs the host-supplied present, raw-screenshot producer,
// and popup-dialog callbacks.
func (o *Overlay) SetCallbacks(present PresentFunc, screenshot ScreenshotProducerFunc, popup PopupFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.present = present
	o.screenshot = screenshot
	o.popup = popup
}

// Render invokes the present callback with the current canvas. Refuses
// while the guest is not running or no present callback is installed.
func (o *Overlay) Render(guestRunning bool) bool {
	if !guestRunning {
		return false
	}
	o.mu.Lock()
	present, canvas := o.present, o.canvas
	o.mu.Unlock()
	if present == nil {
		return false
	}
	present(canvas)
	return true
}

// Screenshot returns a freshly allocated, optionally re-encoded byte buffer
// from the host-supplied screenshot producer. format is "" (or "raw") for
// the raw RGBA pixel buffer, or an image.* codec name ("png", "bmp").
func (o *Overlay) Screenshot(guestRunning bool, format string) ([]byte, bool) {
	if !guestRunning {
		return nil, false
	}
	o.mu.Lock()
	producer := o.screenshot
	o.mu.Unlock()
	if producer == nil {
		return nil, false
	}
	img := producer()
	if img == nil {
		return nil, false
	}

	switch format {
	case "", "raw":
		return append([]byte(nil), img.Pix...), true
	case "png":
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, false
		}
		return buf.Bytes(), true
	case "bmp":
		var buf bytes.Buffer
		if err := bmp.Encode(&buf, img); err != nil {
			return nil, false
		}
		return buf.Bytes(), true
	default:
		return nil, false
	}
}

// SaveScreenshot writes the current screenshot to path, choosing the
// re-encode format from its extension (".bmp" for BMP, anything else PNG).
func (o *Overlay) SaveScreenshot(guestRunning bool, path string) bool {
	data, ok := o.Screenshot(guestRunning, screenshotFormatForPath(path))
	if !ok {
		return false
	}
	return os.WriteFile(path, data, 0o644) == nil
}

func screenshotFormatForPath(path string) string {
	if strings.ToLower(filepath.Ext(path)) == ".bmp" {
		return "bmp"
	}
	return "png"
}

// DrawImage decodes the image file at path (any format registered with the
// image package — png and bmp are registered by this package's own
// imports) and blits it onto the canvas at (x, y). Refuses while the guest
// is not running, per P5.
func (o *Overlay) DrawImage(guestRunning bool, path string, x, y int) bool {
	if !guestRunning {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return false
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	dst := img.Bounds().Sub(img.Bounds().Min).Add(image.Pt(x, y))
	draw.Draw(o.canvas, dst, img, img.Bounds().Min, draw.Over)
	return true
}

// Popup invokes the host-supplied dialog presenter, if one is installed.
// Unlike the drawing entries this is not gated on guest-running: a plugin's
// start() may legitimately want to report a problem before any game boots.
func (o *Overlay) Popup(kind PopupKind, title, message string) {
	o.mu.Lock()
	popup := o.popup
	o.mu.Unlock()
	if popup == nil {
		return
	}
	popup(kind, title, message)
}
