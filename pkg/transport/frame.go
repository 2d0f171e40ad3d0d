package transport

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
)

// MaxFrame bounds a single frame; larger transfers belong to the bulk path,
// not the lane control channel.
const MaxFrame = 1 << 24

var errFrameSize = errors.New("invalid frame size")

// WriteFrame writes one u32-LE length-prefixed frame and flushes.
func WriteFrame(bw *bufio.Writer, b []byte) error {
	if len(b) > MaxFrame {
		return errFrameSize
	}
	var lenbuf [4]byte
	binary.LittleEndian.PutUint32(lenbuf[:], uint32(len(b)))
	if _, err := bw.Write(lenbuf[:]); err != nil {
		return err
	}
	if _, err := bw.Write(b); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadFrame reads one u32-LE length-prefixed frame.
func ReadFrame(br *bufio.Reader) ([]byte, error) {
	var lenbuf [4]byte
	if _, err := io.ReadFull(br, lenbuf[:]); err != nil {
		return nil, err
	}
	n := int(binary.LittleEndian.Uint32(lenbuf[:]))
	if n < 0 || n > MaxFrame {
		return nil, errFrameSize
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(br, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
