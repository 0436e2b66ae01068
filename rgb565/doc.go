// Package rgb565 provides the 16-bit color format used by the RA8875 display controller.
//
// The RA8875 is configured for 65K colors: each pixel is a 16-bit word with
// 5 bits of red, 6 bits of green and 5 bits of blue, sent high byte first.
//
// Memory layout example for a 2-pixel row:
//
//	Pixels: 0       1
//	Values: 0xF800  0x07E0
//	Bytes:  F8 00   07 E0
//	        (red)   (green)
//
// This package provides:
//
// - Color: A color type holding one RGB565 word
// - Model: A color model for converting standard Go colors to Color
// - Image: An image.Image and draw.Image implementation that also behaves like
// the controller's active window, so it can stand in for a display in tests
//
// Example usage:
//
//	// Create a 480x272 framebuffer
//	img := rgb565.NewImage(image.Rect(0, 0, 480, 272))
//
//	// Set a pixel to pure red
//	img.SetRGB565(10, 20, rgb565.FromRGB(0xFF, 0, 0))
//
//	// Stream pixels through a window, the way the controller does
//	img.SetWindow(image.Rect(0, 0, 2, 2))
//	img.WritePixelBlock([]rgb565.Color{1, 2, 3, 4}, 0, 0)
package rgb565
