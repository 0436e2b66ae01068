package gif

import (
	"errors"
	"fmt"
	"image"

	"periph.io/x/devices/v3/ra8875/rgb565"
)

// Sink is a display that accepts rectangular pixel blocks.
//
// SetWindow narrows where pixels land; WritePixelBlock streams pixels row
// by row inside the window starting at (x, y).
type Sink interface {
	Window() image.Rectangle
	SetWindow(r image.Rectangle) error
	WritePixelBlock(pixels []rgb565.Color, x, y int) error
}

// Composite resolves indices through table and writes the image described
// by m to sink, offset by origin. The sink's window is narrowed to the
// image for the write and restored afterwards, also when the write fails.
//
// Every index is checked against table before anything is written.
func Composite(sink Sink, origin image.Point, m ImageDescriptor, table ColorTable, indices []byte) (err error) {
	if len(table) == 0 {
		return formatError("compositing", ErrNoColorTable)
	}
	if len(indices) != m.Width*m.Height {
		return formatError("compositing", ErrNotEnoughData)
	}
	pixels := make([]rgb565.Color, len(indices))
	for i, ci := range indices {
		if int(ci) >= len(table) {
			return formatError("compositing", ErrColorIndex)
		}
		pixels[i] = table[ci]
	}

	r := image.Rect(0, 0, m.Width, m.Height).Add(origin).Add(image.Pt(m.Left, m.Top))
	restore := sink.Window()
	if err := sink.SetWindow(r); err != nil {
		return fmt.Errorf("gif: setting window %v: %w", r, err)
	}
	defer func() {
		if rerr := sink.SetWindow(restore); rerr != nil {
			err = errors.Join(err, fmt.Errorf("gif: restoring window %v: %w", restore, rerr))
		}
	}()
	if err := sink.WritePixelBlock(pixels, r.Min.X, r.Min.Y); err != nil {
		return fmt.Errorf("gif: writing pixels: %w", err)
	}
	return nil
}
