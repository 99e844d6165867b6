// Package wire encodes position updates exchanged over the sync socket.
//
// A frame is exactly four bytes: the slide index then the step index, each an
// unsigned 16-bit big-endian integer.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// FrameSize is the length of every position frame.
const FrameSize = 4

// MaxValue is the largest encodable index. Larger values saturate to it.
const MaxValue = math.MaxUint16

// ErrFrameSize is returned by Decode for frames that are not FrameSize bytes.
var ErrFrameSize = errors.New("position frame must be 4 bytes")

// Frame is an encoded position.
type Frame [FrameSize]byte

// Encode packs slide and step, saturating at MaxValue. Negative values encode
// as 0.
func Encode(slide, step int) Frame {
	var f Frame
	binary.BigEndian.PutUint16(f[0:2], saturate(slide))
	binary.BigEndian.PutUint16(f[2:4], saturate(step))
	return f
}

// Decode unpacks a frame received from the network.
func Decode(b []byte) (slide, step int, err error) {
	if len(b) != FrameSize {
		return 0, 0, fmt.Errorf("%w: got %d", ErrFrameSize, len(b))
	}
	return int(binary.BigEndian.Uint16(b[0:2])), int(binary.BigEndian.Uint16(b[2:4])), nil
}

// Positions returns the decoded slide and step.
func (f Frame) Positions() (slide, step int) {
	return int(binary.BigEndian.Uint16(f[0:2])), int(binary.BigEndian.Uint16(f[2:4]))
}

func saturate(v int) uint16 {
	switch {
	case v < 0:
		return 0
	case v > MaxValue:
		return MaxValue
	}
	return uint16(v)
}
