package gif

const (
	// maxCodeLength is the largest nominal code length. Codes are read with
	// one extra bit, so the widest code on the wire is 12 bits.
	maxCodeLength = 11

	// noPrefix marks a dictionary entry that starts a string.
	noPrefix = 0xFFFF
)

// dictEntry is one slot of the decoding dictionary. The string it stands for
// is the string of prev followed by b.
type dictEntry struct {
	b      byte
	prev   uint16
	length int
}

// lzwDecoder expands GIF LZW codes into a caller-owned buffer.
//
// The dictionary is an arena indexed by code; prev links always point at a
// lower index, so a link that does not is corrupt input.
type lzwDecoder struct {
	initial    int // code length after a clear code
	codeLength int
	clear      int
	stop       int

	dict []dictEntry // len is the capacity for the current code length
	next int         // next free dictionary slot
	prev int         // previous code, -1 when none

	out []byte
	pos int
}

func newLZWDecoder(litWidth int, out []byte) *lzwDecoder {
	d := &lzwDecoder{
		initial: litWidth,
		clear:   1 << litWidth,
		stop:    1<<litWidth + 1,
		out:     out,
	}
	d.reset()
	return d
}

// reset restores the state that follows a clear code.
func (d *lzwDecoder) reset() {
	d.codeLength = d.initial
	n := 1 << (d.codeLength + 1)
	if cap(d.dict) >= n {
		d.dict = d.dict[:n]
	} else {
		d.dict = make([]dictEntry, n)
	}
	for i := 0; i < d.clear; i++ {
		d.dict[i] = dictEntry{b: byte(i), prev: noPrefix, length: 1}
	}
	clear(d.dict[d.clear:])
	d.next = d.clear + 2
	d.prev = -1
}

// grow resizes the dictionary to match the current code length.
func (d *lzwDecoder) grow() {
	n := 1 << (d.codeLength + 1)
	if cap(d.dict) >= n {
		d.dict = d.dict[:n]
		return
	}
	dict := make([]dictEntry, n)
	copy(dict, d.dict)
	d.dict = dict
}

// step consumes one code other than the stop code.
func (d *lzwDecoder) step(c int) error {
	if c == d.clear {
		d.reset()
		return nil
	}
	if c == d.stop {
		return formatError("decompressing", ErrBadCode)
	}

	// A full 12-bit dictionary stops growing until the next clear code.
	if d.prev >= 0 && d.next < len(d.dict) {
		if c > d.next {
			return formatError("decompressing", ErrBadCode)
		}
		root := c
		if c == d.next {
			root = d.prev
		}
		first, err := d.firstByte(root)
		if err != nil {
			return err
		}
		d.dict[d.next] = dictEntry{
			b:      first,
			prev:   uint16(d.prev),
			length: d.dict[d.prev].length + 1,
		}
		d.next++
		if d.next == len(d.dict) && d.codeLength < maxCodeLength {
			d.codeLength++
			d.grow()
		}
	}

	if c >= d.next {
		return formatError("decompressing", ErrBadCode)
	}
	if err := d.emit(c); err != nil {
		return err
	}
	d.prev = c
	return nil
}

// firstByte returns the first byte of the string for code.
func (d *lzwDecoder) firstByte(code int) (byte, error) {
	for {
		e := d.dict[code]
		if e.prev == noPrefix {
			return e.b, nil
		}
		if int(e.prev) >= code {
			return 0, formatError("decompressing", ErrCycle)
		}
		code = int(e.prev)
	}
}

// emit writes the string for code at the output cursor. The chain is walked
// from the last byte back to the first; each entry's length is its position.
func (d *lzwDecoder) emit(code int) error {
	n := d.dict[code].length
	if n <= 0 {
		return formatError("decompressing", ErrBadCode)
	}
	if d.pos+n > len(d.out) {
		return formatError("decompressing", ErrTooMuchData)
	}
	for {
		e := d.dict[code]
		if e.length <= 0 || e.length > n {
			return formatError("decompressing", ErrBadCode)
		}
		d.out[d.pos+e.length-1] = e.b
		if e.prev == noPrefix {
			break
		}
		if int(e.prev) >= code {
			return formatError("decompressing", ErrCycle)
		}
		code = int(e.prev)
	}
	d.pos += n
	return nil
}

// bitReader extracts least-significant-bit-first codes from a byte slice.
type bitReader struct {
	src   []byte
	pos   int
	bits  uint32
	nBits uint
}

// read returns the next width-bit code, or false when src cannot supply it.
func (br *bitReader) read(width int) (int, bool) {
	for br.nBits < uint(width) {
		if br.pos >= len(br.src) {
			return 0, false
		}
		br.bits |= uint32(br.src[br.pos]) << br.nBits
		br.pos++
		br.nBits += 8
	}
	code := int(br.bits & (1<<uint(width) - 1))
	br.bits >>= uint(width)
	br.nBits -= uint(width)
	return code, true
}

// remaining returns the number of input bytes with at least one unread bit.
func (br *bitReader) remaining() int {
	return len(br.src) - br.pos + int(br.nBits+7)/8
}

// Decompress expands the GIF LZW stream src into dst, which must be sized to
// the image's width times height. litWidth is the LZW minimum code size
// stored before the image data.
//
// Decoding stops at the stop code or when src is exhausted. Anything but
// padding after the stop code, a code that is not yet defined, output that
// overflows dst, and output that falls short of filling it are format errors.
func Decompress(litWidth int, src, dst []byte) error {
	if litWidth < 2 || litWidth > 8 {
		return formatError("decompressing", ErrLiteralWidth)
	}
	d := newLZWDecoder(litWidth, dst)
	br := bitReader{src: src}
	for {
		c, ok := br.read(d.codeLength + 1)
		if !ok {
			break
		}
		if c == d.stop {
			if br.remaining() > 1 {
				return formatError("decompressing", ErrTrailingData)
			}
			break
		}
		if err := d.step(c); err != nil {
			return err
		}
	}
	if d.pos < len(dst) {
		return formatError("decompressing", ErrNotEnoughData)
	}
	return nil
}
