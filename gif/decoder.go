package gif

import (
	"image"
	"io"
	"io/fs"
	"log"
)

// Options configures a Decoder.
type Options struct {
	// MaxPixels bounds the decoded index buffer of one image (width*height).
	// Default: 800*480.
	MaxPixels int
	// MaxCompressed bounds the assembled LZW data of one image and the
	// payload of one extension. Default: 1 MiB.
	MaxCompressed int
	// MaxFrames limits how many image blocks are rendered; the rest are
	// parsed and skipped. 0 renders every image block.
	MaxFrames int
	// Logger receives a trace of the parsed structures. nil disables tracing.
	Logger *log.Logger
	// OnFrame, if set, is called after each rendered image.
	OnFrame func(Frame)
}

// Frame describes a rendered image block.
type Frame struct {
	Index      int
	Descriptor ImageDescriptor
	Control    *GraphicControl // nil when no graphic control extension preceded the image
	Local      bool            // the image's own color table was used
}

// Decoder renders GIF89a files onto a Sink.
//
// It caches the screen descriptor of the last file it read so Metrics does
// not have to reopen it. A Decoder is not safe for concurrent use.
type Decoder struct {
	sink Sink
	opts Options

	screen      ScreenDescriptor
	screenName  string
	screenValid bool
}

// NewDecoder returns a Decoder writing to sink. opts can be nil to use defaults.
func NewDecoder(sink Sink, opts *Options) *Decoder {
	d := &Decoder{sink: sink}
	if opts != nil {
		d.opts = *opts
	}
	if d.opts.MaxPixels <= 0 {
		d.opts.MaxPixels = 800 * 480
	}
	if d.opts.MaxCompressed <= 0 {
		d.opts.MaxCompressed = 1 << 20
	}
	return d
}

// DecodeFile renders the GIF89a stream r onto sink with the image origin at
// (screenX, screenY), using default options.
func DecodeFile(sink Sink, screenX, screenY int, r io.Reader) error {
	return NewDecoder(sink, nil).Decode(screenX, screenY, r)
}

// decodeState is owned by one Decode call.
type decodeState struct {
	r       io.Reader
	origin  image.Point
	global  ColorTable
	local   ColorTable
	control *GraphicControl
	frames  int
}

// Decode renders the GIF89a stream r with the image origin at (screenX, screenY).
// It reads up to and including the trailer and never seeks.
//
// Pixels written before a failure stay on the display.
func (d *Decoder) Decode(screenX, screenY int, r io.Reader) error {
	d.screenValid = false
	d.screenName = ""

	s, err := GetScreenMetrics(r)
	if err != nil {
		return err
	}
	d.screen = s
	d.screenValid = true
	d.logf("screen %dx%d fields=%#02x background=%d aspect=%d",
		s.Width, s.Height, s.Fields, s.BackgroundIndex, s.AspectRatio)

	st := &decodeState{r: r, origin: image.Pt(screenX, screenY)}
	if s.HasGlobalColorTable() {
		if st.global, err = readColorTable(r, s.GlobalColorTableSize()); err != nil {
			return err
		}
		d.logf("global color table: %d entries", len(st.global))
	}

	var tag [1]byte
	for {
		if err := readFull(r, tag[:], "reading block type"); err != nil {
			return err
		}
		d.logf("block type %#02x", tag[0])
		switch tag[0] {
		case imageSeparator:
			if err := d.image(st); err != nil {
				return err
			}
		case extensionIntroducer:
			if err := d.extension(st); err != nil {
				return err
			}
		case trailer:
			return nil
		default:
			return formatError("reading block type", ErrUnknownBlock)
		}
	}
}

// image handles one image block, from its descriptor through its LZW data.
func (d *Decoder) image(st *decodeState) error {
	var m ImageDescriptor
	if err := readRecord(st.r, imageDescriptorSize, &m, "reading image descriptor"); err != nil {
		return err
	}
	d.logf("image %dx%d at (%d,%d) fields=%#02x", m.Width, m.Height, m.Left, m.Top, m.Fields)

	// The local table and graphic control apply to this image only.
	defer func() {
		st.local = nil
		st.control = nil
	}()
	if m.HasLocalColorTable() {
		var err error
		if st.local, err = readColorTable(st.r, m.LocalColorTableSize()); err != nil {
			return err
		}
		d.logf("local color table: %d entries", len(st.local))
	}

	var lit [1]byte
	if err := readFull(st.r, lit[:], "reading LZW code size"); err != nil {
		return err
	}
	d.logf("LZW code size %d", lit[0])

	if m.Interlaced() {
		return formatError("reading image descriptor", ErrInterlaced)
	}
	n := m.Width * m.Height
	if n > d.opts.MaxPixels {
		return resourceError("allocating image", ErrBufferLimit)
	}
	compressed, err := ReadSubBlocks(st.r, d.opts.MaxCompressed)
	if err != nil {
		return err
	}
	if n == 0 || (d.opts.MaxFrames > 0 && st.frames >= d.opts.MaxFrames) {
		d.logf("image skipped")
		return nil
	}
	if len(compressed) == 0 {
		return formatError("reading image data", ErrNotEnoughData)
	}

	indices := make([]byte, n)
	if err := Decompress(int(lit[0]), compressed, indices); err != nil {
		return err
	}
	table := st.global
	if st.local != nil {
		table = st.local
	}
	d.logf("render at (%d,%d)", st.origin.X+m.Left, st.origin.Y+m.Top)
	if err := Composite(d.sink, st.origin, m, table, indices); err != nil {
		return err
	}

	if d.opts.OnFrame != nil {
		d.opts.OnFrame(Frame{
			Index:      st.frames,
			Descriptor: m,
			Control:    st.control,
			Local:      st.local != nil,
		})
	}
	st.frames++
	return nil
}

// extension handles one extension block. Unknown labels fail before any of
// the extension's data is read.
func (d *Decoder) extension(st *decodeState) error {
	var h extensionHeader
	if err := readRecord(st.r, 2, &h, "reading extension"); err != nil {
		return err
	}
	d.logf("extension %#02x size %d", h.Label, h.Size)

	switch h.Label {
	case graphicControlLabel:
		var g GraphicControl
		if err := d.fixedBody(st.r, h, graphicControlSize, &g); err != nil {
			return err
		}
		d.logf("graphic control fields=%#02x delay=%d transparent=%d", g.Fields, g.DelayTime, g.TransparentIndex)
		st.control = &g
	case applicationLabel:
		var a Application
		if err := d.fixedBody(st.r, h, applicationSize, &a); err != nil {
			return err
		}
		d.logf("application %q %q", a.Identifier, a.AuthCode)
	case plainTextLabel:
		var p PlainText
		if err := d.fixedBody(st.r, h, plainTextSize, &p); err != nil {
			return err
		}
		d.logf("plain text grid %dx%d at (%d,%d)", p.Width, p.Height, p.Left, p.Top)
	case commentLabel:
		// No fixed body: the size byte is the length of the first data sub-block.
		if h.Size == 0 {
			return nil
		}
		var buf [255]byte
		if err := readFull(st.r, buf[:h.Size], "reading comment"); err != nil {
			return err
		}
		d.logf("comment %q", buf[:h.Size])
	default:
		return formatError("reading extension", ErrUnknownExtension)
	}

	if _, err := ReadSubBlocks(st.r, d.opts.MaxCompressed); err != nil {
		return err
	}
	return nil
}

func (d *Decoder) fixedBody(r io.Reader, h extensionHeader, size int, v any) error {
	if int(h.Size) != size {
		return formatError("reading extension", ErrExtensionSize)
	}
	return readRecord(r, size, v, "reading extension")
}

// Screen returns the screen descriptor of the last file read, if any.
func (d *Decoder) Screen() (ScreenDescriptor, bool) {
	return d.screen, d.screenValid
}

// RenderFS opens name in fsys and renders it with the image origin at (x, y).
// A file that cannot be opened is reported with KindNotFound.
func (d *Decoder) RenderFS(fsys fs.FS, name string, x, y int) error {
	f, err := fsys.Open(name)
	if err != nil {
		d.screenValid = false
		return &Error{Kind: KindNotFound, Op: "opening " + name, Err: err}
	}
	defer f.Close()
	err = d.Decode(x, y, f)
	if d.screenValid {
		d.screenName = name
	}
	return err
}

// Metrics returns the screen descriptor of name. The descriptor cached by
// the last RenderFS or Metrics call for the same name is reused; otherwise
// the file is opened and only its header is read.
func (d *Decoder) Metrics(fsys fs.FS, name string) (ScreenDescriptor, error) {
	if d.screenValid && d.screenName == name {
		return d.screen, nil
	}
	f, err := fsys.Open(name)
	if err != nil {
		return ScreenDescriptor{}, &Error{Kind: KindNotFound, Op: "opening " + name, Err: err}
	}
	defer f.Close()
	s, err := GetScreenMetrics(f)
	if err != nil {
		return s, err
	}
	d.screen, d.screenName, d.screenValid = s, name, true
	return s, nil
}

func (d *Decoder) logf(format string, args ...any) {
	if d.opts.Logger != nil {
		d.opts.Logger.Printf(format, args...)
	}
}
