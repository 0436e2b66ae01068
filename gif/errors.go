package gif

import (
	"errors"
	"io"
)

// ErrorKind classifies decode failures.
type ErrorKind int

const (
	KindNone     ErrorKind = iota // no error
	KindFormat                    // malformed or unsupported input
	KindResource                  // a buffer would exceed its configured limit
	KindNotFound                  // the byte source could not be opened
	KindOther                     // anything else, e.g. a display write failure
)

var kindMessages = [...]string{
	KindNone:     "no errors",
	KindFormat:   "file format is not supported",
	KindResource: "not enough memory",
	KindNotFound: "file not found",
	KindOther:    "unknown error",
}

// String returns a human-readable message for the kind.
func (k ErrorKind) String() string {
	if k < 0 || int(k) >= len(kindMessages) {
		return kindMessages[KindOther]
	}
	return kindMessages[k]
}

// Kind sentinels. Every *Error matches the sentinel of its kind with errors.Is.
var (
	ErrFormat   = errors.New("gif: unsupported format")
	ErrResource = errors.New("gif: not enough memory")
	ErrNotFound = errors.New("gif: file not found")
)

// Causes carried by *Error.
var (
	ErrShortRead            = errors.New("unexpected end of data")
	ErrUnsupportedSignature = errors.New("signature is not GIF89a")
	ErrTruncated            = errors.New("sub-block sequence is not terminated")
	ErrUnknownBlock         = errors.New("unknown block type")
	ErrUnknownExtension     = errors.New("unknown extension")
	ErrExtensionSize        = errors.New("extension size mismatch")
	ErrInterlaced           = errors.New("interlaced images are not supported")
	ErrLiteralWidth         = errors.New("LZW minimum code size out of range")
	ErrBadCode              = errors.New("invalid LZW code")
	ErrCycle                = errors.New("self-referential dictionary entry")
	ErrTrailingData         = errors.New("data after stop code")
	ErrTooMuchData          = errors.New("too much image data")
	ErrNotEnoughData        = errors.New("not enough image data")
	ErrNoColorTable         = errors.New("no color table")
	ErrColorIndex           = errors.New("color index out of range")
	ErrBufferLimit          = errors.New("buffer exceeds limit")
)

// Error records a failed decode step and its kind.
type Error struct {
	Kind ErrorKind
	Op   string // what was being decoded
	Err  error
}

func (e *Error) Error() string {
	return "gif: " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrFormat:
		return e.Kind == KindFormat
	case ErrResource:
		return e.Kind == KindResource
	case ErrNotFound:
		return e.Kind == KindNotFound
	}
	return false
}

// KindOf classifies err. It returns KindNone for nil.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}

func formatError(op string, err error) error {
	return &Error{Kind: KindFormat, Op: op, Err: err}
}

func resourceError(op string, err error) error {
	return &Error{Kind: KindResource, Op: op, Err: err}
}

// readFull reads exactly len(b) bytes. Any short read is a format error.
func readFull(r io.Reader, b []byte, op string) error {
	if _, err := io.ReadFull(r, b); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			err = ErrShortRead
		}
		return formatError(op, err)
	}
	return nil
}
