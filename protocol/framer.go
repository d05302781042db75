package protocol

import (
	"bytes"
	"errors"
	"fmt"
)

// DefaultMaxFrameSize bounds the bytes buffered while waiting for a sentinel.
// UPDATE_FILES carries whole archives inline, so this is generous.
const DefaultMaxFrameSize = 256 * 1024 * 1024

// ErrFrameTooLarge is returned when the buffered bytes exceed the framer's
// bound without a sentinel. The stream can not be resynchronized after that.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

var sentinel = []byte(Sentinel)

// FrameDecoder turns stream chunks into complete message bodies.
type FrameDecoder interface {
	// Feed appends a chunk and returns every body completed by it, in order.
	Feed(chunk []byte) ([][]byte, error)
	// Reset discards any buffered partial message.
	Reset()
	// Buffered returns the number of bytes held for an incomplete message.
	Buffered() int
}

// Framer reassembles sentinel-terminated messages from arbitrary reads.
// It is not safe for concurrent use.
type Framer struct {
	buf     []byte
	scanned int // Bytes of buf known to contain no complete sentinel start
	maxSize int
}

var _ FrameDecoder = (*Framer)(nil)

// NewFramer returns a Framer that fails once more than maxSize bytes are
// buffered without a sentinel. A non-positive maxSize selects DefaultMaxFrameSize.
func NewFramer(maxSize int) *Framer {
	if maxSize <= 0 {
		maxSize = DefaultMaxFrameSize
	}
	return &Framer{maxSize: maxSize}
}

// Feed implements FrameDecoder. Returned bodies do not alias the input chunk
// and have any leading BOM removed.
func (f *Framer) Feed(chunk []byte) ([][]byte, error) {
	f.buf = append(f.buf, chunk...)

	var bodies [][]byte
	start := 0
	for {
		idx := bytes.Index(f.buf[start+f.scanned:], sentinel)
		if idx < 0 {
			break
		}
		end := start + f.scanned + idx
		body := make([]byte, end-start)
		copy(body, f.buf[start:end])
		bodies = append(bodies, stripBOM(body))

		start = end + len(sentinel)
		f.scanned = 0
	}

	// Compact the consumed prefix away
	if start > 0 {
		n := copy(f.buf, f.buf[start:])
		f.buf = f.buf[:n]
	}

	// A sentinel may begin in the last len(sentinel)-1 bytes; rescan those next time
	if keep := len(sentinel) - 1; len(f.buf) > keep {
		f.scanned = len(f.buf) - keep
	} else {
		f.scanned = 0
	}

	if len(f.buf) > f.maxSize {
		size := len(f.buf)
		f.Reset()
		return bodies, fmt.Errorf("%w: %d bytes buffered, limit %d", ErrFrameTooLarge, size, f.maxSize)
	}

	return bodies, nil
}

// Reset implements FrameDecoder.
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
	f.scanned = 0
}

// Buffered implements FrameDecoder.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

func stripBOM(b []byte) []byte {
	return bytes.TrimPrefix(b, bom)
}
