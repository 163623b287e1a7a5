package base

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
)

// headerSize is the size of the length prefix of every frame
const headerSize = 4

var (
	// ErrInvalidFrameSize is returned for a length header that is zero, negative or larger
	// than the maximum message size
	ErrInvalidFrameSize = errors.New("invalid frame size")

	// ErrConnectionClosed is returned when writing to a connection that was closed
	ErrConnectionClosed = errors.New("connection closed")
)

// encodeFrames appends all messages to dst, each one with the format:
// - 4 bytes: data length (uint32, big endian)
// - N bytes: data payload
//
// All pending messages are packed into one buffer so they can be handed to the socket
// with a single write. There is no framing for the batch itself.
func encodeFrames(dst []byte, messages [][]byte) []byte {
	size := 0
	for _, msg := range messages {
		size += headerSize + len(msg)
	}
	dst = slices.Grow(dst, size)

	for _, msg := range messages {
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(msg)))
		dst = append(dst, msg...)
	}
	return dst
}

// readFrame reads exactly one frame from the reader and returns its payload.
// header must have room for at least headerSize bytes and is reused between calls.
//
// The length header is checked before anything is allocated. An attacker could send
// multiple fake '2GB' headers in a row, which would otherwise make us allocate 2GB each.
func readFrame(r io.Reader, header []byte, maxMessageSize int) ([]byte, error) {
	// Read header (io.ReadFull retries partial reads)
	if _, err := io.ReadFull(r, header[:headerSize]); err != nil {
		return nil, err
	}

	// Values above MaxInt32 are negative for peers using a signed length
	size := binary.BigEndian.Uint32(header[:headerSize])
	if size == 0 || size > math.MaxInt32 || int(size) > maxMessageSize {
		return nil, fmt.Errorf("%w: header of %d bytes (max %d), possible header attack",
			ErrInvalidFrameSize, int32(size), maxMessageSize)
	}

	// Read data
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}

// writeFull writes the whole buffer, retrying short writes until done or an error occurs
func writeFull(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		buf = buf[n:]
	}
	return nil
}
