// Package ra8875 controls a RA8875 TFT display controller via SPI.
//
// The RA8875 is a 16-bit color TFT controller supporting up to 800×480 pixels.
// This driver implements the display.Drawer interface from periph.io and the
// drivers.Displayer interface from TinyGo, and renders GIF images with
// package gif.
//
// # Display Characteristics
//
// - 16-bit RGB565 color
// - Support for various resolutions (typically 480×272 or 800×480)
// - Active window with auto-wrapping pixel streams
// - Hardware scrolling of a window region
// - Adjustable PWM backlight (0-255)
// - 180° rotation by flipping the scan direction
//
// # Hardware Connection
//
// Connect the RA8875 board to your system via SPI:
//
//	Display Pin → System Pin
//	GND         → GND
//	VIN         → 3.3V or 5V
//	SCK         → SPI Clock (SCLK)
//	MOSI        → SPI Data (MOSI)
//	MISO        → SPI Data (MISO)
//	CS          → SPI Chip Select
//	RST         → Optional: GPIO for hardware reset
//
// The RA8875 frames every command and data byte with chip select, so there
// is no Data/Command pin.
//
// # Basic Usage
//
// Example of creating the display and rendering a GIF file:
//
//	package main
//
//	import (
//		"os"
//		"periph.io/x/conn/v3/spi/spireg"
//		"periph.io/x/devices/v3/ra8875"
//		"periph.io/x/host/v3"
//	)
//
//	func main() {
//		// Initialize periph.io
//		host.Init()
//
//		// Open SPI bus
//		spiBus, _ := spireg.Open("")
//
//		// Create device
//		dev, _ := ra8875.NewSPI(spiBus, &ra8875.Opts{
//			W: 480,
//			H: 272,
//		})
//		defer dev.Halt()
//
//		// Render a GIF with its top-left corner at (10, 20)
//		f, _ := os.Open("logo.gif")
//		defer f.Close()
//		dev.RenderGIF(10, 20, f)
//	}
//
// # Using Hardware Reset Pin (Optional)
//
// If the RST pin is connected to a GPIO, provide it in the Opts struct:
//
//	rstPin := gpioreg.ByName("GPIO25")
//
//	dev, _ := ra8875.NewSPI(spiBus, &ra8875.Opts{
//		W:   800,
//		H:   480,
//		RST: rstPin,
//	})
//
// The driver pulls RST low for 100ms, then high for 100ms before the software
// reset. If RST is nil the driver relies on the software reset only.
//
// # Drawing Modes
//
// ## Pixel Blocks
//
// SetWindow and WritePixelBlock expose the controller's active window. Pixels
// stream left to right and wrap to the next row of the window:
//
//	dev.SetWindow(image.Rect(100, 100, 110, 110))
//	dev.WritePixelBlock(pixels, 100, 100) // 100 pixels fill the 10×10 square
//	dev.SetWindow(dev.Bounds())
//
// This is the path package gif uses.
//
// ## Differential Updates
//
// Draw keeps a copy of display RAM and only writes the bounding rectangle of
// the pixels that changed:
//
//	dev.Draw(dev.Bounds(), myImage, image.Point{})
//
// SetPixel and Display follow the same path for TinyGo style callers.
//
// ## Full-Frame Update
//
// Write sends a whole frame of big-endian RGB565 pixels:
//
//	pixels := make([]byte, 480*272*2)
//	dev.Write(pixels)
//
// # Colors
//
// Standard Go colors are converted to rgb565.Color by dropping the low bits
// of each channel:
//
//	c := rgb565.FromRGB(0xFF, 0x80, 0x00) // orange
//
// # Datasheet
//
// For detailed register descriptions and timing information, see the RAiO
// RA8875 application note and datasheet.
package ra8875
