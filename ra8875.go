// Package ra8875 controls a RA8875 TFT display controller via SPI.
//
// The RA8875 drives TFT panels up to 800x480 in 16-bit RGB565 color.
// Common panel resolutions are 480x272 and 800x480.
//
// See the examples for how to use this package.
package ra8875

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"tinygo.org/x/drivers"

	"periph.io/x/devices/v3/ra8875/gif"
	"periph.io/x/devices/v3/ra8875/rgb565"
)

// SPI transaction prefixes.
const (
	cmdWrite  = 0x80
	dataWrite = 0x00
)

// Registers.
const (
	regPWRR  = 0x01 // power and display control
	regMRWC  = 0x02 // memory read/write command
	regPCSR  = 0x04 // pixel clock setting
	regSYSR  = 0x10 // system configuration
	regHDWR  = 0x14 // horizontal display width
	regVDHR0 = 0x19 // vertical display height
	regDPCR  = 0x20 // display configuration
	regHOFS0 = 0x24 // horizontal scroll offset
	regVOFS0 = 0x26 // vertical scroll offset
	regHSAW0 = 0x30 // active window, 8 registers
	regHSSW0 = 0x38 // scroll window, 8 registers
	regMWCR0 = 0x40 // memory write control
	regCURH0 = 0x46 // memory write cursor, 4 registers
	regPLLC1 = 0x88
	regPLLC2 = 0x89
	regP1CR  = 0x8A // PWM1 control
	regP1DCR = 0x8B // PWM1 duty cycle
	regGPIOX = 0xC7
)

const (
	pwrrDisplayOn = 0x80
	pwrrSoftReset = 0x01
	sysr16bpp     = 0x0C
	dpcrHDir      = 0x08
	dpcrVDir      = 0x04
	p1crEnable    = 0x80
	p1crDiv1024   = 0x0A
)

// sleep is replaced in tests.
var sleep = time.Sleep

// Opts is the configuration for the RA8875 display.
type Opts struct {
	// Display dimensions in pixels
	W int // Width (default: 480, must be a multiple of 8 and ≤800)
	H int // Height (default: 272, must be ≤480)

	// Scan direction. Only Rotation0 and Rotation180 are supported.
	Rotation drivers.Rotation

	// Optional hardware reset pin
	RST gpio.PinIO // Reset pin (optional, nil if not used)

	// SPI clock (default: 10MHz)
	Freq physic.Frequency
}

// Dev is the device handle for the RA8875 display.
//
// Dev is a display sink for package gif: it keeps the controller's active
// window and streams pixel blocks into it.
type Dev struct {
	// Communication
	c         conn.Conn  // SPI connection
	rst       gpio.PinIO // Reset pin (optional)
	maxTxSize int

	// Display geometry
	rect   image.Rectangle
	window image.Rectangle // active window

	// Pixel buffers
	shadow *rgb565.Image // mirror of display RAM
	next   *rgb565.Image // pending frame for Draw and SetPixel, lazily created

	// State
	halted bool
}

var (
	_ display.Drawer    = (*Dev)(nil)
	_ drivers.Displayer = (*Dev)(nil)
	_ gif.Sink          = (*Dev)(nil)
)

var errHalted = errors.New("ra8875: halted")

// NewSPI creates a new RA8875 device connected via SPI.
//
// The SPI port is configured for opts.Freq, Mode0, 8-bit transfers. Each
// transfer is one bus transaction starting with a command, data or status
// prefix byte, so no Data/Command pin is needed.
//
// opts can be nil to use defaults (480x272 display).
func NewSPI(p spi.Port, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &Opts{W: 480, H: 272}
	}

	if opts.W <= 0 || opts.W%8 != 0 || opts.W > 800 {
		return nil, errors.New("ra8875: width must be a multiple of 8 between 8 and 800")
	}
	if opts.H <= 0 || opts.H > 480 {
		return nil, errors.New("ra8875: height must be between 1 and 480")
	}
	if opts.Rotation != drivers.Rotation0 && opts.Rotation != drivers.Rotation180 {
		return nil, fmt.Errorf("ra8875: unsupported rotation %d", opts.Rotation)
	}
	f := opts.Freq
	if f == 0 {
		f = 10 * physic.MegaHertz
	}

	c, err := p.Connect(f, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("ra8875: %w", err)
	}

	rect := image.Rect(0, 0, opts.W, opts.H)
	d := &Dev{
		c:         c,
		rst:       opts.RST,
		maxTxSize: 4096,
		rect:      rect,
		window:    rect,
		shadow:    rgb565.NewImage(rect),
	}
	if l, ok := c.(conn.Limits); ok && l.MaxTxSize() > 2 {
		d.maxTxSize = l.MaxTxSize()
	}

	if err := d.init(opts); err != nil {
		return nil, err
	}
	return d, nil
}

// timing holds the panel sync parameters, in pixels and lines.
type timing struct {
	pixclk byte

	hsyncStart, hsyncPW, hsyncFinetune, hsyncNondisp int
	vsyncStart, vsyncPW, vsyncNondisp                int
}

var (
	timing480x272 = timing{pixclk: 0x82, hsyncStart: 8, hsyncPW: 48, hsyncNondisp: 10, vsyncStart: 8, vsyncPW: 10, vsyncNondisp: 3}
	timing800x480 = timing{pixclk: 0x81, hsyncStart: 32, hsyncPW: 96, hsyncNondisp: 26, vsyncStart: 23, vsyncPW: 2, vsyncNondisp: 32}
)

// init sends the initialization sequence to the display.
func (d *Dev) init(opts *Opts) error {
	// Hardware reset sequence (if RST pin is provided)
	if d.rst != nil {
		if err := d.rst.Out(gpio.Low); err != nil {
			return fmt.Errorf("ra8875: failed to pull RST low: %w", err)
		}
		sleep(100 * time.Millisecond)
		if err := d.rst.Out(gpio.High); err != nil {
			return fmt.Errorf("ra8875: failed to pull RST high: %w", err)
		}
		sleep(100 * time.Millisecond)
	}

	if err := d.writeRegs([]byte{regPWRR, pwrrSoftReset}); err != nil {
		return err
	}
	sleep(time.Millisecond)
	if err := d.writeRegs([]byte{regPWRR, 0x00}); err != nil {
		return err
	}
	sleep(time.Millisecond)

	if err := d.writeRegs([]byte{regPLLC1, 0x0A, regPLLC2, 0x02}); err != nil {
		return err
	}
	sleep(time.Millisecond)

	t := timing480x272
	if opts.W > 480 {
		t = timing800x480
	}
	w, h := opts.W, opts.H
	regs := []byte{
		regSYSR, sysr16bpp,
		regPCSR, t.pixclk,
		regHDWR, byte(w/8 - 1),
		regHDWR + 1, byte(t.hsyncFinetune),
		regHDWR + 2, byte((t.hsyncNondisp - t.hsyncFinetune - 2) / 8),
		regHDWR + 3, byte(t.hsyncStart/8 - 1),
		regHDWR + 4, byte(t.hsyncPW/8 - 1),
		regVDHR0, byte(h - 1),
		regVDHR0 + 1, byte((h - 1) >> 8),
		regVDHR0 + 2, byte(t.vsyncNondisp - 1),
		regVDHR0 + 3, byte((t.vsyncNondisp - 1) >> 8),
		regVDHR0 + 4, byte(t.vsyncStart - 1),
		regVDHR0 + 5, byte((t.vsyncStart - 1) >> 8),
		regVDHR0 + 6, byte(t.vsyncPW - 1),
	}

	dpcr := byte(0)
	if opts.Rotation == drivers.Rotation180 {
		dpcr = dpcrHDir | dpcrVDir
	}
	regs = append(regs,
		regDPCR, dpcr,
		regMWCR0, 0x00, // graphics mode, left to right then top to bottom
	)
	if err := d.writeRegs(regs); err != nil {
		return err
	}

	if err := d.clearRAM(); err != nil {
		return err
	}

	// Display on, then panel enable and backlight at full duty
	return d.writeRegs([]byte{
		regPWRR, pwrrDisplayOn,
		regGPIOX, 0x01,
		regP1CR, p1crEnable | p1crDiv1024,
		regP1DCR, 0xFF,
	})
}

// clearRAM clears all pixels in the display RAM.
func (d *Dev) clearRAM() error {
	if err := d.setWindow(d.rect); err != nil {
		return err
	}
	if err := d.startMemoryWrite(0, 0); err != nil {
		return err
	}
	return d.streamData(make([]byte, 2*d.rect.Dx()*d.rect.Dy()))
}

// writeRegs writes register/value pairs.
func (d *Dev) writeRegs(pairs []byte) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if err := d.c.Tx([]byte{cmdWrite, pairs[i]}, nil); err != nil {
			return fmt.Errorf("ra8875: writing register %#02x: %w", pairs[i], err)
		}
		if err := d.c.Tx([]byte{dataWrite, pairs[i+1]}, nil); err != nil {
			return fmt.Errorf("ra8875: writing register %#02x: %w", pairs[i], err)
		}
	}
	return nil
}

// reg16 returns the low/high register pairs for a 16-bit value.
func reg16(reg byte, v int) []byte {
	return []byte{reg, byte(v), reg + 1, byte(v >> 8)}
}

// startMemoryWrite places the write cursor and issues the memory write
// command. Data written afterwards lands in display RAM.
func (d *Dev) startMemoryWrite(x, y int) error {
	regs := append(reg16(regCURH0, x), reg16(regCURH0+2, y)...)
	if err := d.writeRegs(regs); err != nil {
		return err
	}
	if err := d.c.Tx([]byte{cmdWrite, regMRWC}, nil); err != nil {
		return fmt.Errorf("ra8875: memory write: %w", err)
	}
	return nil
}

// streamData sends data in as many transactions as the bus needs. Each
// transaction carries the data prefix and an even number of bytes.
func (d *Dev) streamData(data []byte) error {
	chunk := (d.maxTxSize - 1) &^ 1
	buf := make([]byte, 1+min(chunk, len(data)))
	for len(data) > 0 {
		n := min(chunk, len(data))
		buf[0] = dataWrite
		copy(buf[1:], data[:n])
		if err := d.c.Tx(buf[:1+n], nil); err != nil {
			return fmt.Errorf("ra8875: writing pixels: %w", err)
		}
		data = data[n:]
	}
	return nil
}

func (d *Dev) setWindow(r image.Rectangle) error {
	regs := append(reg16(regHSAW0, r.Min.X), reg16(regHSAW0+2, r.Min.Y)...)
	regs = append(regs, reg16(regHSAW0+4, r.Max.X-1)...)
	regs = append(regs, reg16(regHSAW0+6, r.Max.Y-1)...)
	if err := d.writeRegs(regs); err != nil {
		return err
	}
	d.window = r
	return nil
}

// Window returns the active window.
func (d *Dev) Window() image.Rectangle {
	return d.window
}

// SetWindow constrains where pixels are written. Pixel streams wrap from the
// right edge of the window to the next row and from the bottom to the top.
func (d *Dev) SetWindow(r image.Rectangle) error {
	if d.halted {
		return errHalted
	}
	if r.Empty() || !r.In(d.rect) {
		return fmt.Errorf("ra8875: window %v out of range", r)
	}
	if err := d.setWindow(r); err != nil {
		return err
	}
	if err := d.shadow.SetWindow(r); err != nil {
		return err
	}
	if d.next != nil {
		return d.next.SetWindow(r)
	}
	return nil
}

// WritePixelBlock streams pixels into the active window starting at (x, y),
// which must lie inside the window.
func (d *Dev) WritePixelBlock(pixels []rgb565.Color, x, y int) error {
	if d.halted {
		return errHalted
	}
	if !image.Pt(x, y).In(d.window) {
		return fmt.Errorf("ra8875: start (%d,%d) outside window %v", x, y, d.window)
	}
	data := make([]byte, 2*len(pixels))
	for i, c := range pixels {
		data[2*i] = byte(c >> 8)
		data[2*i+1] = byte(c)
	}
	if err := d.startMemoryWrite(x, y); err != nil {
		return err
	}
	if err := d.streamData(data); err != nil {
		return err
	}
	if err := d.shadow.WritePixelBlock(pixels, x, y); err != nil {
		return err
	}
	if d.next != nil {
		return d.next.WritePixelBlock(pixels, x, y)
	}
	return nil
}

// RenderGIF decodes the GIF89a stream r onto the display with its origin at
// (x, y). Errors can be classified with gif.KindOf.
func (d *Dev) RenderGIF(x, y int, r io.Reader) error {
	return gif.DecodeFile(d, x, y, r)
}

// ColorModel returns the color model of the display.
func (d *Dev) ColorModel() color.Model {
	return rgb565.Model
}

// Bounds returns the image bounds of the display.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Write writes raw pixel data to the display, two big-endian RGB565 bytes
// per pixel. The data must be exactly d.rect.Dx() * d.rect.Dy() * 2 bytes.
func (d *Dev) Write(pixels []byte) (int, error) {
	if d.halted {
		return 0, errHalted
	}
	if len(pixels) != len(d.shadow.Pix) {
		return 0, errors.New("ra8875: invalid buffer size")
	}
	if err := d.writeFullFrame(pixels); err != nil {
		return 0, err
	}
	return len(pixels), nil
}

// writeFullFrame writes the entire frame and leaves the window at full screen.
func (d *Dev) writeFullFrame(pixels []byte) error {
	if err := d.SetWindow(d.rect); err != nil {
		return err
	}
	if err := d.startMemoryWrite(0, 0); err != nil {
		return err
	}
	if err := d.streamData(pixels); err != nil {
		return err
	}
	copy(d.shadow.Pix, pixels)
	if d.next != nil {
		copy(d.next.Pix, pixels)
	}
	return nil
}

// Draw draws an image onto the display with differential update optimization.
// The dst rectangle specifies the destination region on the display.
// The src image is positioned at src point sp within the destination.
func (d *Dev) Draw(dst image.Rectangle, src image.Image, sp image.Point) error {
	if d.halted {
		return errHalted
	}

	// Clip to display bounds
	dst = dst.Intersect(d.rect)
	if dst.Empty() {
		return nil
	}

	// Fast path: if source is already RGB565 at full size
	if srcImg, ok := src.(*rgb565.Image); ok {
		if dst == d.rect && sp == (image.Point{}) && srcImg.Rect == d.rect {
			return d.writeFullFrame(srcImg.Pix)
		}
	}

	draw.Draw(d.pending(), dst, src, sp, draw.Src)
	return d.flush()
}

// pending returns the pending frame, seeded from display RAM.
func (d *Dev) pending() *rgb565.Image {
	if d.next == nil {
		d.next = rgb565.NewImage(d.rect)
		copy(d.next.Pix, d.shadow.Pix)
		_ = d.next.SetWindow(d.window)
	}
	return d.next
}

// flush writes the bounding box of pending changes to the display.
func (d *Dev) flush() error {
	minCol, maxCol, minRow, maxRow := d.calculateDiff()
	if minCol > maxCol {
		// No changes
		return nil
	}
	r := image.Rect(minCol, minRow, maxCol+1, maxRow+1)
	pixels := d.extractRegion(r)

	restore := d.window
	if err := d.SetWindow(r); err != nil {
		return err
	}
	err := d.WritePixelBlock(pixels, r.Min.X, r.Min.Y)
	if rerr := d.SetWindow(restore); rerr != nil {
		err = errors.Join(err, rerr)
	}
	return err
}

// calculateDiff compares display RAM with the pending frame to find the
// minimal changed region. Returns (minCol, maxCol, minRow, maxRow), inclusive,
// or minCol > maxCol if nothing changed.
func (d *Dev) calculateDiff() (minCol, maxCol, minRow, maxRow int) {
	width := d.rect.Dx()
	height := d.rect.Dy()
	stride := d.shadow.Stride

	minCol, maxCol = width, -1
	minRow, maxRow = height, -1
	if d.next == nil {
		return
	}

	for y := 0; y < height; y++ {
		row := y * stride
		cur := d.shadow.Pix[row : row+stride]
		nxt := d.next.Pix[row : row+stride]
		if bytes.Equal(cur, nxt) {
			continue
		}
		minRow = min(minRow, y)
		maxRow = max(maxRow, y)

		// Each pixel is 2 bytes
		for x := 0; x < width; x++ {
			if cur[2*x] != nxt[2*x] || cur[2*x+1] != nxt[2*x+1] {
				minCol = min(minCol, x)
				maxCol = max(maxCol, x)
			}
		}
	}
	return
}

// extractRegion returns the pending pixels of r in row-major order.
func (d *Dev) extractRegion(r image.Rectangle) []rgb565.Color {
	result := make([]rgb565.Color, 0, r.Dx()*r.Dy())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			result = append(result, d.next.RGB565At(x, y))
		}
	}
	return result
}

// Size returns the display size in pixels.
func (d *Dev) Size() (x, y int16) {
	return int16(d.rect.Dx()), int16(d.rect.Dy())
}

// SetPixel sets a pixel in the pending frame. Call Display to show it.
func (d *Dev) SetPixel(x, y int16, c color.RGBA) {
	if !image.Pt(int(x), int(y)).In(d.rect) {
		return
	}
	d.pending().SetRGB565(int(x), int(y), rgb565.FromRGB(c.R, c.G, c.B))
}

// Display writes the pixels changed by SetPixel to the display.
func (d *Dev) Display() error {
	if d.halted {
		return errHalted
	}
	return d.flush()
}

// SetBacklight sets the PWM1 backlight duty cycle (0-255).
func (d *Dev) SetBacklight(level byte) error {
	if d.halted {
		return errHalted
	}
	return d.writeRegs([]byte{regP1DCR, level})
}

// SetScrollWindow selects the region moved by Scroll.
func (d *Dev) SetScrollWindow(r image.Rectangle) error {
	if d.halted {
		return errHalted
	}
	if r.Empty() || !r.In(d.rect) {
		return fmt.Errorf("ra8875: scroll window %v out of range", r)
	}
	regs := append(reg16(regHSSW0, r.Min.X), reg16(regHSSW0+2, r.Min.Y)...)
	regs = append(regs, reg16(regHSSW0+4, r.Max.X-1)...)
	regs = append(regs, reg16(regHSSW0+6, r.Max.Y-1)...)
	return d.writeRegs(regs)
}

// Scroll offsets the content of the scroll window. Scroll(0, 0) stops
// scrolling.
func (d *Dev) Scroll(x, y int) error {
	if d.halted {
		return errHalted
	}
	if x < 0 || x >= d.rect.Dx() || y < 0 || y >= d.rect.Dy() {
		return errors.New("ra8875: scroll offset out of range")
	}
	return d.writeRegs(append(reg16(regHOFS0, x), reg16(regVOFS0, y)...))
}

// Halt turns the display off.
// After calling Halt, the display will not respond to further commands
// until the device is re-initialized.
func (d *Dev) Halt() error {
	d.halted = true
	return d.writeRegs([]byte{regPWRR, 0x00})
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	return fmt.Sprintf("ra8875.Dev{%dx%d}", d.rect.Dx(), d.rect.Dy())
}
