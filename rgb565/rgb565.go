// Package rgb565 provides the 16-bit color format used by the RA8875 display.
//
// Pixels are stored as big-endian 16-bit words, the order in which the
// controller expects them on the bus.
package rgb565

import (
	"errors"
	"image"
	"image/color"
)

// Color is a 16-bit RGB565 color: 5 bits red, 6 bits green, 5 bits blue.
type Color uint16

// FromRGB downconverts a 24-bit color to RGB565.
func FromRGB(r, g, b uint8) Color {
	return Color((uint16(r)<<8)&0xF800 | (uint16(g)<<3)&0x07E0 | uint16(b)>>3)
}

// RGBA converts the color to standard RGBA.
// Each channel is widened by bit replication so that full intensity maps to 0xFFFF.
func (c Color) RGBA() (r, g, b, a uint32) {
	r5 := uint32(c>>11) & 0x1F
	g6 := uint32(c>>5) & 0x3F
	b5 := uint32(c) & 0x1F
	r = (r5<<3 | r5>>2) * 0x101
	g = (g6<<2 | g6>>4) * 0x101
	b = (b5<<3 | b5>>2) * 0x101
	return r, g, b, 0xFFFF
}

// toRGB565 converts any color.Color to Color.
func toRGB565(c color.Color) color.Color {
	if p, ok := c.(Color); ok {
		return p
	}
	r, g, b, _ := c.RGBA()
	return FromRGB(uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

// Model converts colors to Color.
var Model = color.ModelFunc(toRGB565)

var errWindow = errors.New("rgb565: window out of range")

// Image is an RGB565 framebuffer.
//
// Besides the image.Image and draw.Image interfaces it keeps an active
// window, like the controller does: WritePixelBlock streams pixels left to
// right, top to bottom, wrapping inside the window.
type Image struct {
	Pix    []byte          // Pixel data (2 bytes per pixel, high byte first)
	Stride int             // Bytes per row
	Rect   image.Rectangle // Image bounds

	window image.Rectangle
}

// NewImage creates a new Image with the specified bounds.
func NewImage(r image.Rectangle) *Image {
	w, h := r.Dx(), r.Dy()
	if w < 0 || h < 0 {
		return &Image{Rect: r, window: r}
	}
	stride := w * 2
	return &Image{
		Pix:    make([]byte, stride*h),
		Stride: stride,
		Rect:   r,
		window: r,
	}
}

// ColorModel returns the color model of the image.
func (p *Image) ColorModel() color.Model {
	return Model
}

// Bounds returns the image bounds.
func (p *Image) Bounds() image.Rectangle {
	return p.Rect
}

// At returns the color of the pixel at (x, y).
// It implements the image.Image interface.
func (p *Image) At(x, y int) color.Color {
	return p.RGB565At(x, y)
}

// RGB565At returns the Color of the pixel at (x, y).
func (p *Image) RGB565At(x, y int) Color {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return 0
	}
	i := p.pixOffset(x, y)
	return Color(p.Pix[i])<<8 | Color(p.Pix[i+1])
}

// Set sets the color of the pixel at (x, y).
func (p *Image) Set(x, y int, c color.Color) {
	p.SetRGB565(x, y, Model.Convert(c).(Color))
}

// SetRGB565 sets the Color of the pixel at (x, y).
// This is faster than Set() as it doesn't require color conversion.
func (p *Image) SetRGB565(x, y int, c Color) {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return
	}
	i := p.pixOffset(x, y)
	p.Pix[i] = byte(c >> 8)
	p.Pix[i+1] = byte(c)
}

// Window returns the active window.
func (p *Image) Window() image.Rectangle {
	return p.window
}

// SetWindow narrows subsequent pixel streams to r.
// r must be non-empty and lie within the image bounds.
func (p *Image) SetWindow(r image.Rectangle) error {
	if r.Empty() || !r.In(p.Rect) {
		return errWindow
	}
	p.window = r
	return nil
}

// WritePixelBlock writes pixels starting at (x, y), which must lie inside
// the active window. Writing continues on the next window row when the
// right edge is reached and wraps to the top of the window after the
// bottom row.
func (p *Image) WritePixelBlock(pixels []Color, x, y int) error {
	w := p.window
	if !(image.Point{X: x, Y: y}.In(w)) {
		return errWindow
	}
	for _, c := range pixels {
		p.SetRGB565(x, y, c)
		if x++; x == w.Max.X {
			x = w.Min.X
			if y++; y == w.Max.Y {
				y = w.Min.Y
			}
		}
	}
	return nil
}

// pixOffset returns the byte offset of the high byte of the pixel at (x, y).
func (p *Image) pixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*2
}
