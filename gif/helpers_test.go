package gif

import (
	"bytes"
	"compress/lzw"
	"errors"
	"image"
	"testing"

	"periph.io/x/devices/v3/ra8875/rgb565"
)

// packCodes packs codes least-significant-bit first, each with its own width.
func packCodes(codes, widths []int) []byte {
	var (
		out   []byte
		acc   uint32
		nBits uint
	)
	for i, c := range codes {
		acc |= uint32(c) << nBits
		nBits += uint(widths[i])
		for nBits >= 8 {
			out = append(out, byte(acc))
			acc >>= 8
			nBits -= 8
		}
	}
	if nBits > 0 {
		out = append(out, byte(acc))
	}
	return out
}

// compress encodes indices with the standard library GIF-flavoured LZW writer.
func compress(t *testing.T, litWidth int, indices []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := lzw.NewWriter(&buf, lzw.LSB, litWidth)
	if _, err := w.Write(indices); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// subBlocks splits data into sub-blocks and appends the terminator.
func subBlocks(data []byte) []byte {
	var out []byte
	for len(data) > 0 {
		n := min(len(data), 255)
		out = append(out, byte(n))
		out = append(out, data[:n]...)
		data = data[n:]
	}
	return append(out, 0)
}

// gifBuilder assembles GIF89a streams for tests.
type gifBuilder struct {
	bytes.Buffer
}

func (b *gifBuilder) u16(v int) {
	b.WriteByte(byte(v))
	b.WriteByte(byte(v >> 8))
}

// header writes the signature, screen descriptor and, when rgb is not nil,
// a global color table. rgb must hold a power of two number of triples.
func (b *gifBuilder) header(w, h int, rgb []byte) {
	b.WriteString("GIF89a")
	b.u16(w)
	b.u16(h)
	var fields byte
	if rgb != nil {
		fields = fColorTable | tableExponent(len(rgb)/3)
	}
	b.WriteByte(fields)
	b.WriteByte(0) // background
	b.WriteByte(0) // aspect
	b.Write(rgb)
}

// image writes an image block with optional local color table. The indices
// are compressed with litWidth.
func (b *gifBuilder) image(t *testing.T, left, top, w, h int, local []byte, litWidth int, indices []byte) {
	t.Helper()
	b.WriteByte(imageSeparator)
	b.u16(left)
	b.u16(top)
	b.u16(w)
	b.u16(h)
	var fields byte
	if local != nil {
		fields = fColorTable | tableExponent(len(local)/3)
	}
	b.WriteByte(fields)
	b.Write(local)
	b.WriteByte(byte(litWidth))
	b.Write(subBlocks(compress(t, litWidth, indices)))
}

// extension writes an extension with a fixed body followed by data sub-blocks.
func (b *gifBuilder) extension(label byte, body, data []byte) {
	b.WriteByte(extensionIntroducer)
	b.WriteByte(label)
	b.WriteByte(byte(len(body)))
	b.Write(body)
	b.Write(subBlocks(data))
}

func (b *gifBuilder) trailer() {
	b.WriteByte(trailer)
}

func tableExponent(n int) byte {
	var e byte
	for 2<<e < n {
		e++
	}
	return e
}

// recordingSink wraps an rgb565.Image and records window changes.
type recordingSink struct {
	*rgb565.Image
	windows  []image.Rectangle
	writeErr error
}

func newRecordingSink(w, h int) *recordingSink {
	return &recordingSink{Image: rgb565.NewImage(image.Rect(0, 0, w, h))}
}

func (s *recordingSink) SetWindow(r image.Rectangle) error {
	s.windows = append(s.windows, r)
	return s.Image.SetWindow(r)
}

func (s *recordingSink) WritePixelBlock(pixels []rgb565.Color, x, y int) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	return s.Image.WritePixelBlock(pixels, x, y)
}

func wantKind(t *testing.T, err error, kind ErrorKind, cause error) {
	t.Helper()
	if err == nil {
		t.Fatalf("error = nil, want %v", cause)
	}
	if got := KindOf(err); got != kind {
		t.Errorf("KindOf(%v) = %v, want %v", err, got, kind)
	}
	if cause != nil && !errors.Is(err, cause) {
		t.Errorf("error = %v, want %v", err, cause)
	}
}
