package gif

import (
	"encoding/binary"
	"io"

	"github.com/go-restruct/restruct"

	"periph.io/x/devices/v3/ra8875/rgb565"
)

const signature = "GIF89a"

// Block tags.
const (
	extensionIntroducer = 0x21
	imageSeparator      = 0x2C
	trailer             = 0x3B
)

// Extension labels and the size of their fixed bodies.
const (
	graphicControlLabel = 0xF9
	applicationLabel    = 0xFF
	commentLabel        = 0xFE
	plainTextLabel      = 0x01

	graphicControlSize = 4
	applicationSize    = 11
	plainTextSize      = 12
)

// Record sizes on the wire.
const (
	screenDescriptorSize = 7
	imageDescriptorSize  = 9
)

// Packed field masks shared by the screen and image descriptors.
const (
	fColorTable     = 0x80
	fColorTableSize = 0x07
)

// ScreenDescriptor is the logical screen descriptor that follows the signature.
type ScreenDescriptor struct {
	Width, Height   int `struct:"uint16"`
	Fields          byte
	BackgroundIndex byte
	AspectRatio     byte
}

// HasGlobalColorTable reports whether a global color table follows the descriptor.
func (s ScreenDescriptor) HasGlobalColorTable() bool { return s.Fields&fColorTable != 0 }

// ColorResolution returns the number of bits per primary color of the source image.
func (s ScreenDescriptor) ColorResolution() int { return int(s.Fields&0x70)>>4 + 1 }

// Sorted reports whether the global color table is sorted by importance.
func (s ScreenDescriptor) Sorted() bool { return s.Fields&0x08 != 0 }

// GlobalColorTableSize returns the number of global color table entries.
func (s ScreenDescriptor) GlobalColorTableSize() int { return 1 << (s.Fields&fColorTableSize + 1) }

// ImageDescriptor places one image on the logical screen.
type ImageDescriptor struct {
	Left, Top, Width, Height int `struct:"uint16"`
	Fields                   byte
}

// HasLocalColorTable reports whether a local color table follows the descriptor.
func (m ImageDescriptor) HasLocalColorTable() bool { return m.Fields&fColorTable != 0 }

// Interlaced reports whether the image rows are stored interlaced.
func (m ImageDescriptor) Interlaced() bool { return m.Fields&0x40 != 0 }

// Sorted reports whether the local color table is sorted by importance.
func (m ImageDescriptor) Sorted() bool { return m.Fields&0x20 != 0 }

// LocalColorTableSize returns the number of local color table entries.
func (m ImageDescriptor) LocalColorTableSize() int { return 1 << (m.Fields&fColorTableSize + 1) }

type extensionHeader struct {
	Label byte
	Size  byte
}

// GraphicControl is the graphic control extension preceding an image.
type GraphicControl struct {
	Fields           byte
	DelayTime        int `struct:"uint16"` // hundredths of a second
	TransparentIndex byte
}

// Transparent reports whether TransparentIndex is in use.
func (g GraphicControl) Transparent() bool { return g.Fields&0x01 != 0 }

// DisposalMethod returns the disposal method field.
func (g GraphicControl) DisposalMethod() int { return int(g.Fields>>2) & 0x07 }

// Application is the fixed part of an application extension.
type Application struct {
	Identifier string `struct:"[8]byte"`
	AuthCode   string `struct:"[3]byte"`
}

// PlainText is the fixed part of a plain text extension.
type PlainText struct {
	Left, Top, Width, Height int `struct:"uint16"`
	CellWidth, CellHeight    byte
	Foreground, Background   byte
}

// ColorTable maps color indices to display colors.
type ColorTable []rgb565.Color

// readRecord reads exactly size bytes and decodes them into v.
func readRecord(r io.Reader, size int, v any, op string) error {
	var buf [plainTextSize]byte
	if err := readFull(r, buf[:size], op); err != nil {
		return err
	}
	if err := restruct.Unpack(buf[:size], binary.LittleEndian, v); err != nil {
		return formatError(op, err)
	}
	return nil
}

// readColorTable reads n RGB triples and downconverts them to RGB565.
func readColorTable(r io.Reader, n int) (ColorTable, error) {
	var buf [256 * 3]byte
	if err := readFull(r, buf[:3*n], "reading color table"); err != nil {
		return nil, err
	}
	t := make(ColorTable, n)
	for i := range t {
		t[i] = rgb565.FromRGB(buf[3*i], buf[3*i+1], buf[3*i+2])
	}
	return t, nil
}

func readSignature(r io.Reader) error {
	var buf [len(signature)]byte
	if err := readFull(r, buf[:], "reading signature"); err != nil {
		return err
	}
	if string(buf[:]) != signature {
		return formatError("reading signature", ErrUnsupportedSignature)
	}
	return nil
}

// GetScreenMetrics reads the signature and logical screen descriptor from r.
// It consumes nothing past the descriptor.
func GetScreenMetrics(r io.Reader) (ScreenDescriptor, error) {
	var s ScreenDescriptor
	if err := readSignature(r); err != nil {
		return s, err
	}
	err := readRecord(r, screenDescriptorSize, &s, "reading screen descriptor")
	return s, err
}
