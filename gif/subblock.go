package gif

import (
	"errors"
	"io"
)

// ReadSubBlocks reads a sub-block sequence from r and returns the
// concatenated payloads. Each sub-block is a length byte followed by that
// many bytes; a zero length ends the sequence and is consumed.
//
// If max is positive, a sequence whose payload would exceed max bytes fails
// with a resource error. A source that ends before the terminator yields
// ErrTruncated and no data.
func ReadSubBlocks(r io.Reader, max int) ([]byte, error) {
	var (
		data []byte
		buf  [255]byte
	)
	for {
		if err := readFull(r, buf[:1], "reading sub-block"); err != nil {
			return nil, truncated(err)
		}
		n := int(buf[0])
		if n == 0 {
			return data, nil
		}
		if max > 0 && len(data)+n > max {
			return nil, resourceError("reading sub-block", ErrBufferLimit)
		}
		if err := readFull(r, buf[:n], "reading sub-block"); err != nil {
			return nil, truncated(err)
		}
		data = append(data, buf[:n]...)
	}
}

// truncated reports an exhausted source as ErrTruncated.
func truncated(err error) error {
	if errors.Is(err, ErrShortRead) {
		return formatError("reading sub-block", ErrTruncated)
	}
	return err
}
