// Package gif renders GIF89a images onto a pixel sink such as the RA8875.
//
// The decoder reads the stream strictly forward, so any io.Reader works,
// including an unbuffered file on an SD card:
//
//	f, err := os.Open("logo.gif")
//	if err != nil {
//		return err
//	}
//	defer f.Close()
//	if err := gif.DecodeFile(dev, 0, 0, f); err != nil {
//		fmt.Println(gif.KindOf(err))
//	}
//
// Each image block is decompressed into a width*height index buffer, mapped
// through its local color table (or the global one) to RGB565 and written
// with a single WritePixelBlock call inside a window narrowed to the image.
//
// GIF87a, interlaced images and animation timing are not supported.
// Extensions are parsed and skipped.
//
// Errors are *Error values; KindOf classifies them and ErrorKind.String
// gives a short message suitable for display.
package gif
