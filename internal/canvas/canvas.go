// Package canvas provides the offscreen and screen pixel surfaces the map is drawn on.
package canvas

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/llgcode/draw2d/draw2dkit"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	ErrAlreadyDrawing = errors.New("canvas: BeginDraw called inside an open drawing scope")
	ErrNotDrawing     = errors.New("canvas: EndDraw called without BeginDraw")
)

// Canvas is a fixed size RGBA pixel buffer.
// A Canvas is not safe for concurrent use.
type Canvas struct {
	img     *image.RGBA
	drawing bool
	scopes  int
}

// New allocates a transparent canvas of width x height pixels.
func New(width, height int) (*Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvas size must be positive, got %dx%d", width, height)
	}
	return &Canvas{img: image.NewRGBA(image.Rect(0, 0, width, height))}, nil
}

func (c *Canvas) Width() int              { return c.img.Rect.Dx() }
func (c *Canvas) Height() int             { return c.img.Rect.Dy() }
func (c *Canvas) Bounds() image.Rectangle { return c.img.Rect }

// RGBA exposes the backing image.
func (c *Canvas) RGBA() *image.RGBA { return c.img }

// BeginDraw opens a drawing scope. Every successful BeginDraw must be paired with EndDraw.
func (c *Canvas) BeginDraw() error {
	if c.drawing {
		return ErrAlreadyDrawing
	}
	c.drawing = true
	return nil
}

// EndDraw closes the drawing scope opened by BeginDraw.
func (c *Canvas) EndDraw() error {
	if !c.drawing {
		return ErrNotDrawing
	}
	c.drawing = false
	c.scopes++
	return nil
}

// Drawing reports whether a drawing scope is open.
func (c *Canvas) Drawing() bool { return c.drawing }

// Scopes returns how many drawing scopes have been closed.
func (c *Canvas) Scopes() int { return c.scopes }

// Image composites src over the canvas with its top left corner at (x, y).
// Parts falling outside the canvas are clipped.
func (c *Canvas) Image(src image.Image, x, y int) {
	sb := src.Bounds()
	r := image.Rect(x, y, x+sb.Dx(), y+sb.Dy())
	draw.Draw(c.img, r, src, sb.Min, draw.Over)
}

// DrawTo composites the canvas onto dst at (x, y).
func (c *Canvas) DrawTo(dst *Canvas, x, y int) {
	dst.Image(c.img, x, y)
}

// At returns the pixel at (x, y). Out of range reads return transparent black.
func (c *Canvas) At(x, y int) color.RGBA {
	return c.img.RGBAAt(x, y)
}

// Pixels replaces every pixel with the result of fn, row by row.
func (c *Canvas) Pixels(fn func(x, y int, px color.RGBA) color.RGBA) {
	b := c.img.Rect
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := c.img.PixOffset(x, y)
			s := c.img.Pix[i : i+4 : i+4]
			out := fn(x, y, color.RGBA{s[0], s[1], s[2], s[3]})
			s[0], s[1], s[2], s[3] = out.R, out.G, out.B, out.A
		}
	}
}

// Brightness returns the luminance of col on a 0-255 scale.
func Brightness(col color.Color) uint8 {
	return color.GrayModel.Convert(col).(color.Gray).Y
}

// Fill blends col over the rectangle r.
func (c *Canvas) Fill(r image.Rectangle, col color.Color) {
	draw.Draw(c.img, r, image.NewUniform(col), image.Point{}, draw.Over)
}

// Ellipse draws a filled ellipse of w x h pixels centered on (cx, cy) with a one pixel outline.
func (c *Canvas) Ellipse(cx, cy, w, h float64, fill, stroke color.Color) {
	gc := draw2dimg.NewGraphicContext(c.img)
	gc.SetFillColor(fill)
	gc.SetStrokeColor(stroke)
	gc.SetLineWidth(1)
	draw2dkit.Ellipse(gc, cx, cy, w/2, h/2)
	gc.FillStroke()
}

// Text draws s with its baseline origin at (x, y).
func (c *Canvas) Text(x, y int, s string, col color.Color) {
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// EncodePNG writes the canvas as PNG.
func (c *Canvas) EncodePNG(w io.Writer) error {
	return png.Encode(w, c.img)
}
