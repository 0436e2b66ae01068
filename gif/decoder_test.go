package gif

import (
	"bytes"
	"errors"
	"image"
	"io/fs"
	"log"
	"strings"
	"testing"
	"testing/fstest"

	"periph.io/x/devices/v3/ra8875/rgb565"
)

// Four-entry global table: black, red, green, blue.
var globalRGB = []byte{
	0, 0, 0,
	0xFF, 0, 0,
	0, 0xFF, 0,
	0, 0, 0xFF,
}

var (
	black = rgb565.Color(0x0000)
	red   = rgb565.Color(0xF800)
	green = rgb565.Color(0x07E0)
	blue  = rgb565.Color(0x001F)
	white = rgb565.Color(0xFFFF)
)

func twoByTwoGIF(t *testing.T) []byte {
	var b gifBuilder
	b.header(2, 2, globalRGB)
	b.image(t, 0, 0, 2, 2, nil, 2, []byte{0, 1, 2, 3})
	b.trailer()
	return b.Bytes()
}

func checkPixels(t *testing.T, img *rgb565.Image, want map[image.Point]rgb565.Color) {
	t.Helper()
	for p, c := range want {
		if got := img.RGB565At(p.X, p.Y); got != c {
			t.Errorf("pixel %v = %#04x, want %#04x", p, got, c)
		}
	}
}

func TestDecodeFile(t *testing.T) {
	var b gifBuilder
	b.header(4, 4, globalRGB)
	b.image(t, 1, 0, 2, 2, nil, 2, []byte{0, 1, 2, 3})
	b.trailer()

	sink := newRecordingSink(8, 8)
	if err := DecodeFile(sink, 2, 3, bytes.NewReader(b.Bytes())); err != nil {
		t.Fatalf("DecodeFile() error = %v", err)
	}

	checkPixels(t, sink.Image, map[image.Point]rgb565.Color{
		{X: 3, Y: 3}: black,
		{X: 4, Y: 3}: red,
		{X: 3, Y: 4}: green,
		{X: 4, Y: 4}: blue,
	})
	wantWindows := []image.Rectangle{image.Rect(3, 3, 5, 5), image.Rect(0, 0, 8, 8)}
	if !equalRects(sink.windows, wantWindows) {
		t.Errorf("windows = %v, want %v", sink.windows, wantWindows)
	}
	if sink.Window() != sink.Bounds() {
		t.Errorf("Window() = %v after decode, want %v", sink.Window(), sink.Bounds())
	}
}

func TestDecodeRejectsGIF87a(t *testing.T) {
	in := twoByTwoGIF(t)
	copy(in, "GIF87a")
	r := bytes.NewReader(in)

	err := DecodeFile(newRecordingSink(4, 4), 0, 0, r)
	wantKind(t, err, KindFormat, ErrUnsupportedSignature)
	if r.Len() != len(in)-6 {
		t.Errorf("read %d bytes, want only the 6-byte signature", len(in)-r.Len())
	}
}

func TestDecodeLocalColorTable(t *testing.T) {
	local := []byte{0xFF, 0xFF, 0xFF, 0, 0, 0xFF} // white, blue

	var b gifBuilder
	b.header(4, 1, globalRGB)
	b.image(t, 0, 0, 2, 1, local, 2, []byte{0, 1})
	b.image(t, 2, 0, 2, 1, nil, 2, []byte{0, 1})
	b.trailer()

	var frames []Frame
	sink := newRecordingSink(4, 1)
	d := NewDecoder(sink, &Options{OnFrame: func(f Frame) { frames = append(frames, f) }})
	if err := d.Decode(0, 0, bytes.NewReader(b.Bytes())); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	checkPixels(t, sink.Image, map[image.Point]rgb565.Color{
		{X: 0, Y: 0}: white,
		{X: 1, Y: 0}: blue,
		{X: 2, Y: 0}: black,
		{X: 3, Y: 0}: red,
	})
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if !frames[0].Local || frames[1].Local {
		t.Errorf("Local = %v, %v, want true, false", frames[0].Local, frames[1].Local)
	}
}

func TestDecodeLocalColorTableIndexBound(t *testing.T) {
	// Index 2 is valid in the global table but not in the 2-entry local one.
	var b gifBuilder
	b.header(2, 1, globalRGB)
	b.image(t, 0, 0, 2, 1, []byte{0, 0, 0, 1, 1, 1}, 2, []byte{0, 2})
	b.trailer()

	sink := newRecordingSink(2, 1)
	err := DecodeFile(sink, 0, 0, bytes.NewReader(b.Bytes()))
	wantKind(t, err, KindFormat, ErrColorIndex)
	if len(sink.windows) != 0 {
		t.Errorf("windows = %v, want no window changes", sink.windows)
	}
}

func TestDecodeExtensions(t *testing.T) {
	var b gifBuilder
	b.header(2, 2, globalRGB)
	b.extension(applicationLabel, []byte("NETSCAPE2.0"), []byte{1, 0, 0})
	b.Write([]byte{extensionIntroducer, commentLabel, 0}) // empty comment
	b.WriteByte(extensionIntroducer)
	b.WriteByte(commentLabel)
	b.Write(subBlocks([]byte("made by hand")))
	b.extension(plainTextLabel, make([]byte, 12), []byte("hi"))
	b.extension(graphicControlLabel, []byte{0x05, 10, 0, 3}, nil)
	b.image(t, 0, 0, 2, 2, nil, 2, []byte{3, 2, 1, 0})
	b.trailer()

	var logs bytes.Buffer
	var frames []Frame
	sink := newRecordingSink(2, 2)
	d := NewDecoder(sink, &Options{
		Logger:  log.New(&logs, "", 0),
		OnFrame: func(f Frame) { frames = append(frames, f) },
	})
	if err := d.Decode(0, 0, bytes.NewReader(b.Bytes())); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	checkPixels(t, sink.Image, map[image.Point]rgb565.Color{
		{X: 0, Y: 0}: blue,
		{X: 1, Y: 1}: black,
	})
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	g := frames[0].Control
	if g == nil {
		t.Fatal("Control = nil, want the graphic control extension")
	}
	if g.DelayTime != 10 || g.TransparentIndex != 3 || !g.Transparent() || g.DisposalMethod() != 1 {
		t.Errorf("Control = %+v", *g)
	}
	for _, want := range []string{"screen 2x2", `application "NETSCAPE" "2.0"`, `comment "made by hand"`} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("log missing %q:\n%s", want, logs.String())
		}
	}
}

func TestDecodeUnknownExtension(t *testing.T) {
	var b gifBuilder
	b.header(2, 2, globalRGB)
	b.WriteByte(extensionIntroducer)
	b.Write([]byte{0x05, 3, 1, 2, 3, 0})
	r := bytes.NewReader(b.Bytes())

	err := DecodeFile(newRecordingSink(2, 2), 0, 0, r)
	wantKind(t, err, KindFormat, ErrUnknownExtension)
	if r.Len() != 4 {
		t.Errorf("%d bytes left, want 4: the sub-blocks must not be read", r.Len())
	}
}

func TestDecodeErrors(t *testing.T) {
	image2x2 := func(b *gifBuilder) { b.image(t, 0, 0, 2, 2, nil, 2, []byte{0, 1, 2, 3}) }

	tests := []struct {
		name  string
		build func(b *gifBuilder)
		opts  *Options
		kind  ErrorKind
		want  error
	}{
		{
			name:  "unknown block type",
			build: func(b *gifBuilder) { b.header(2, 2, globalRGB); b.WriteByte(0x42) },
			kind:  KindFormat,
			want:  ErrUnknownBlock,
		},
		{
			name:  "missing trailer",
			build: func(b *gifBuilder) { b.header(2, 2, globalRGB); image2x2(b) },
			kind:  KindFormat,
			want:  ErrShortRead,
		},
		{
			name:  "short screen descriptor",
			build: func(b *gifBuilder) { b.WriteString("GIF89a\x02\x00") },
			kind:  KindFormat,
			want:  ErrShortRead,
		},
		{
			name: "short global color table",
			build: func(b *gifBuilder) {
				b.header(2, 2, nil)
				b.Bytes()[10] = fColorTable | 1
				b.Write(globalRGB[:5])
			},
			kind: KindFormat,
			want: ErrShortRead,
		},
		{
			name: "graphic control size mismatch",
			build: func(b *gifBuilder) {
				b.header(2, 2, globalRGB)
				b.extension(graphicControlLabel, []byte{0, 0, 0}, nil)
			},
			kind: KindFormat,
			want: ErrExtensionSize,
		},
		{
			name:  "no color table",
			build: func(b *gifBuilder) { b.header(2, 2, nil); image2x2(b); b.trailer() },
			kind:  KindFormat,
			want:  ErrNoColorTable,
		},
		{
			name: "interlaced",
			build: func(b *gifBuilder) {
				b.header(2, 2, globalRGB)
				image2x2(b)
				b.Bytes()[len(globalRGB)+13+9] = 0x40
				b.trailer()
			},
			kind: KindFormat,
			want: ErrInterlaced,
		},
		{
			name: "empty image data",
			build: func(b *gifBuilder) {
				b.header(2, 2, globalRGB)
				b.WriteByte(imageSeparator)
				b.Write([]byte{0, 0, 0, 0, 2, 0, 2, 0, 0, 2, 0})
				b.trailer()
			},
			kind: KindFormat,
			want: ErrNotEnoughData,
		},
		{
			name:  "image larger than MaxPixels",
			build: func(b *gifBuilder) { b.header(2, 2, globalRGB); image2x2(b); b.trailer() },
			opts:  &Options{MaxPixels: 3},
			kind:  KindResource,
			want:  ErrBufferLimit,
		},
		{
			name:  "image data larger than MaxCompressed",
			build: func(b *gifBuilder) { b.header(2, 2, globalRGB); image2x2(b); b.trailer() },
			opts:  &Options{MaxCompressed: 1},
			kind:  KindResource,
			want:  ErrBufferLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b gifBuilder
			tt.build(&b)
			err := NewDecoder(newRecordingSink(4, 4), tt.opts).Decode(0, 0, bytes.NewReader(b.Bytes()))
			wantKind(t, err, tt.kind, tt.want)
		})
	}
}

func TestDecodeMaxFrames(t *testing.T) {
	var b gifBuilder
	b.header(2, 1, globalRGB)
	b.image(t, 0, 0, 1, 1, nil, 2, []byte{1})
	b.image(t, 1, 0, 1, 1, nil, 2, []byte{2})
	b.trailer()

	n := 0
	sink := newRecordingSink(2, 1)
	d := NewDecoder(sink, &Options{MaxFrames: 1, OnFrame: func(Frame) { n++ }})
	if err := d.Decode(0, 0, bytes.NewReader(b.Bytes())); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if n != 1 {
		t.Errorf("rendered %d frames, want 1", n)
	}
	checkPixels(t, sink.Image, map[image.Point]rgb565.Color{
		{X: 0, Y: 0}: red,
		{X: 1, Y: 0}: black,
	})
}

func TestDecodeRestoresWindowOnWriteFailure(t *testing.T) {
	sink := newRecordingSink(4, 4)
	sink.writeErr = errors.New("bus error")

	err := DecodeFile(sink, 1, 1, bytes.NewReader(twoByTwoGIF(t)))
	if !errors.Is(err, sink.writeErr) {
		t.Fatalf("error = %v, want %v", err, sink.writeErr)
	}
	if KindOf(err) != KindOther {
		t.Errorf("KindOf() = %v, want %v", KindOf(err), KindOther)
	}
	wantWindows := []image.Rectangle{image.Rect(1, 1, 3, 3), image.Rect(0, 0, 4, 4)}
	if !equalRects(sink.windows, wantWindows) {
		t.Errorf("windows = %v, want %v", sink.windows, wantWindows)
	}
}

func TestGetScreenMetrics(t *testing.T) {
	var b gifBuilder
	b.header(320, 240, globalRGB)
	b.Bytes()[10] |= 0x70 | 0x08
	r := bytes.NewReader(b.Bytes())

	s, err := GetScreenMetrics(r)
	if err != nil {
		t.Fatalf("GetScreenMetrics() error = %v", err)
	}
	if s.Width != 320 || s.Height != 240 {
		t.Errorf("size = %dx%d, want 320x240", s.Width, s.Height)
	}
	if !s.HasGlobalColorTable() || s.GlobalColorTableSize() != 4 {
		t.Errorf("global table = %v, %d entries, want true, 4", s.HasGlobalColorTable(), s.GlobalColorTableSize())
	}
	if s.ColorResolution() != 8 || !s.Sorted() {
		t.Errorf("resolution = %d, sorted = %v, want 8, true", s.ColorResolution(), s.Sorted())
	}
	if r.Len() != len(globalRGB) {
		t.Errorf("%d bytes left, want only the color table", r.Len())
	}
}

func TestRenderFS(t *testing.T) {
	fsys := fstest.MapFS{"logo.gif": {Data: twoByTwoGIF(t)}}

	sink := newRecordingSink(2, 2)
	d := NewDecoder(sink, nil)
	if err := d.RenderFS(fsys, "logo.gif", 0, 0); err != nil {
		t.Fatalf("RenderFS() error = %v", err)
	}
	checkPixels(t, sink.Image, map[image.Point]rgb565.Color{{X: 1, Y: 1}: blue})

	// The cached descriptor answers without opening the file again.
	s, err := d.Metrics(fstest.MapFS{}, "logo.gif")
	if err != nil {
		t.Fatalf("Metrics() error = %v", err)
	}
	if s.Width != 2 || s.Height != 2 {
		t.Errorf("Metrics() = %dx%d, want 2x2", s.Width, s.Height)
	}

	err = d.RenderFS(fsys, "missing.gif", 0, 0)
	wantKind(t, err, KindNotFound, ErrNotFound)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error = %v, want fs.ErrNotExist", err)
	}
	if _, ok := d.Screen(); ok {
		t.Error("Screen() still valid after a failed open")
	}
}

func TestMetricsOpensUncachedFile(t *testing.T) {
	fsys := fstest.MapFS{"a.gif": {Data: twoByTwoGIF(t)}}
	d := NewDecoder(newRecordingSink(1, 1), nil)

	s, err := d.Metrics(fsys, "a.gif")
	if err != nil {
		t.Fatalf("Metrics() error = %v", err)
	}
	if s.Width != 2 {
		t.Errorf("Width = %d, want 2", s.Width)
	}
	_, err = d.Metrics(fsys, "b.gif")
	wantKind(t, err, KindNotFound, fs.ErrNotExist)
}

func equalRects(a, b []image.Rectangle) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
