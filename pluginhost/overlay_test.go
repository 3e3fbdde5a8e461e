package pluginhost

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlay_ClearAndDrawPixelRequireGuestRunning(t *testing.T) {
	o := NewOverlay()

	assert.False(t, o.Clear(false))
	assert.False(t, o.DrawPixel(false, 0, 0, color.RGBA{}))

	assert.True(t, o.Clear(true))
	assert.True(t, o.DrawPixel(true, 5, 5, color.RGBA{R: 255, A: 255}))
}

func TestOverlay_DrawPixelRejectsOutOfBounds(t *testing.T) {
	o := NewOverlay()
	w, h := o.Size()

	assert.False(t, o.DrawPixel(true, w, h, color.RGBA{}))
	assert.False(t, o.DrawPixel(true, -1, -1, color.RGBA{}))
}

func TestOverlay_SetDockStateResizesAndClearsCanvas(t *testing.T) {
	o := NewOverlay()
	w, h := o.Size()
	assert.Equal(t, 1920, w)
	assert.Equal(t, 1080, h)

	o.DrawPixel(true, 1, 1, color.RGBA{R: 1, A: 255})
	o.SetDockState(DockStateUndocked)
	w, h = o.Size()
	assert.Equal(t, 1280, w)
	assert.Equal(t, 720, h)
	_, _, _, cleared := o.canvas.At(1, 1).RGBA()
	assert.Zero(t, cleared, "a dock change discards prior contents")

	// Setting the same state again must not reallocate.
	o.DrawPixel(true, 1, 1, color.RGBA{R: 1, A: 255})
	o.SetDockState(DockStateUndocked)
	r, _, _, a := o.canvas.At(1, 1).RGBA()
	assert.NotZero(t, r)
	assert.NotZero(t, a)
}

func TestOverlay_RenderRequiresCallbackAndGuestRunning(t *testing.T) {
	o := NewOverlay()
	assert.False(t, o.Render(true), "no present callback installed yet")

	var received *image.RGBA
	o.SetCallbacks(func(img *image.RGBA) { received = img }, nil, nil)

	assert.False(t, o.Render(false))
	assert.True(t, o.Render(true))
	assert.NotNil(t, received)
}

func TestOverlay_ScreenshotEncodesRequestedFormat(t *testing.T) {
	o := NewOverlay()
	o.SetCallbacks(nil, func() *image.RGBA {
		img := image.NewRGBA(image.Rect(0, 0, 2, 2))
		img.Set(0, 0, color.RGBA{R: 255, A: 255})
		return img
	}, nil)

	raw, ok := o.Screenshot(true, "raw")
	require.True(t, ok)
	assert.Len(t, raw, 2*2*4)

	png, ok := o.Screenshot(true, "png")
	require.True(t, ok)
	assert.NotEmpty(t, png)

	bmp, ok := o.Screenshot(true, "bmp")
	require.True(t, ok)
	assert.NotEmpty(t, bmp)

	_, ok = o.Screenshot(true, "unsupported")
	assert.False(t, ok)

	_, ok = o.Screenshot(false, "raw")
	assert.False(t, ok)
}

func TestOverlay_SaveScreenshotWritesFile(t *testing.T) {
	o := NewOverlay()
	o.SetCallbacks(nil, func() *image.RGBA {
		img := image.NewRGBA(image.Rect(0, 0, 2, 2))
		img.Set(0, 0, color.RGBA{G: 255, A: 255})
		return img
	}, nil)

	path := filepath.Join(t.TempDir(), "shot.png")
	require.True(t, o.SaveScreenshot(true, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	assert.False(t, o.SaveScreenshot(false, path), "must refuse while guest is not running")
}

func TestOverlay_DrawImageBlitsOntoCanvas(t *testing.T) {
	o := NewOverlay()

	path := filepath.Join(t.TempDir(), "sprite.png")
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	src.Set(0, 0, color.RGBA{R: 255, A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, src))
	require.NoError(t, f.Close())

	assert.False(t, o.DrawImage(false, path, 0, 0), "must refuse while guest is not running")
	require.True(t, o.DrawImage(true, path, 10, 10))

	r, _, _, a := o.canvas.At(10, 10).RGBA()
	assert.NotZero(t, r)
	assert.NotZero(t, a)
}

func TestOverlay_PopupInvokesCallbackRegardlessOfGuestState(t *testing.T) {
	o := NewOverlay()
	var gotKind PopupKind
	var gotTitle, gotMessage string
	o.SetCallbacks(nil, nil, func(kind PopupKind, title, message string) {
		gotKind = kind
		gotTitle = title
		gotMessage = message
	})

	o.Popup(PopupWarning, "uh oh", "something happened")

	assert.Equal(t, PopupWarning, gotKind)
	assert.Equal(t, "uh oh", gotTitle)
	assert.Equal(t, "something happened", gotMessage)
}
