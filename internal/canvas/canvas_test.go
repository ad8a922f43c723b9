package canvas

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// filled returns a canvas covered with an opaque color.
func filled(w, h int, c color.RGBA) (*Canvas, error) {
	cv, err := New(w, h)
	if err != nil {
		return nil, err
	}
	cv.Fill(cv.Bounds(), c)
	return cv, nil
}

func TestNew(t *testing.T) {
	c, err := New(320, 200)
	require.NoError(t, err)
	assert.Equal(t, 320, c.Width())
	assert.Equal(t, 200, c.Height())
	assert.Equal(t, color.RGBA{}, c.At(10, 10))

	_, err = New(0, 200)
	assert.Error(t, err)
	_, err = New(10, -1)
	assert.Error(t, err)
}

func TestDrawingScope(t *testing.T) {
	c, err := New(4, 4)
	require.NoError(t, err)

	assert.ErrorIs(t, c.EndDraw(), ErrNotDrawing)
	require.NoError(t, c.BeginDraw())
	assert.True(t, c.Drawing())
	assert.ErrorIs(t, c.BeginDraw(), ErrAlreadyDrawing)
	require.NoError(t, c.EndDraw())
	assert.False(t, c.Drawing())
	assert.Equal(t, 1, c.Scopes())
}

func TestImage_PlacesAndClips(t *testing.T) {
	c, err := New(10, 10)
	require.NoError(t, err)

	red := color.RGBA{255, 0, 0, 255}
	c.Image(solid(4, 4, red), -2, 8)

	assert.Equal(t, red, c.At(0, 8))
	assert.Equal(t, red, c.At(1, 9))
	assert.Equal(t, color.RGBA{}, c.At(2, 8))
	assert.Equal(t, color.RGBA{}, c.At(0, 7))
}

func TestImage_SubImageOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	src.Set(2, 2, color.RGBA{0, 0, 255, 255})
	sub := src.SubImage(image.Rect(2, 2, 4, 4))

	c, err := New(4, 4)
	require.NoError(t, err)
	c.Image(sub, 1, 1)
	assert.Equal(t, color.RGBA{0, 0, 255, 255}, c.At(1, 1))
}

func TestDrawTo(t *testing.T) {
	base, err := filled(2, 2, color.RGBA{1, 2, 3, 255})
	require.NoError(t, err)
	screen, err := New(4, 4)
	require.NoError(t, err)

	base.DrawTo(screen, 2, 2)
	assert.Equal(t, color.RGBA{1, 2, 3, 255}, screen.At(3, 3))
	assert.Equal(t, color.RGBA{}, screen.At(1, 1))
}

func TestBrightness(t *testing.T) {
	assert.Equal(t, uint8(255), Brightness(color.White))
	assert.Equal(t, uint8(0), Brightness(color.Black))
	assert.Equal(t, uint8(76), Brightness(color.RGBA{255, 0, 0, 255}))
	for v := 0; v < 256; v++ {
		g := uint8(v)
		assert.Equal(t, g, Brightness(color.RGBA{g, g, g, 255}))
	}
}

func TestPixels(t *testing.T) {
	c, err := filled(3, 2, color.RGBA{10, 20, 30, 255})
	require.NoError(t, err)

	var visited int
	c.Pixels(func(x, y int, px color.RGBA) color.RGBA {
		visited++
		return color.RGBA{uint8(x), uint8(y), px.B, px.A}
	})
	assert.Equal(t, 6, visited)
	assert.Equal(t, color.RGBA{2, 1, 30, 255}, c.At(2, 1))
}

func TestFill_BlendsHalfWhite(t *testing.T) {
	c, err := filled(4, 4, color.RGBA{0, 0, 0, 255})
	require.NoError(t, err)

	c.Fill(c.Bounds(), color.NRGBA{255, 255, 255, 128})
	px := c.At(1, 1)
	assert.InDelta(t, 128, int(px.R), 1)
	assert.Equal(t, px.R, px.G)
	assert.Equal(t, uint8(255), px.A)
}

func TestEllipse(t *testing.T) {
	c, err := filled(20, 20, color.RGBA{0, 0, 0, 255})
	require.NoError(t, err)

	c.Ellipse(10, 10, 7, 7, color.RGBA{0, 255, 0, 255}, color.RGBA{0, 255, 0, 255})
	assert.Equal(t, color.RGBA{0, 255, 0, 255}, c.At(10, 10))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, c.At(1, 1))
}

func TestText(t *testing.T) {
	c, err := New(60, 20)
	require.NoError(t, err)

	c.Text(2, 14, "Home", color.RGBA{255, 255, 255, 255})

	var painted int
	c.Pixels(func(x, y int, px color.RGBA) color.RGBA {
		if px.A > 0 {
			painted++
		}
		return px
	})
	assert.Greater(t, painted, 10)
}

func TestEncodePNG(t *testing.T) {
	c, err := filled(5, 3, color.RGBA{9, 9, 9, 255})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, c.EncodePNG(&buf))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 5, 3), img.Bounds())
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#ff3b30")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{0xff, 0x3b, 0x30, 0xff}, c)

	c, err = ParseHexColor("#80ffffff")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{0xff, 0xff, 0xff, 0x80}, c)

	for _, bad := range []string{"ff3b30", "#fff", "#zzzzzz", ""} {
		_, err := ParseHexColor(bad)
		assert.Error(t, err, bad)
	}
}
