// Package frame decodes the controller datagrams sent by the console.
package frame

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Frame is one decoded controller sample.
// Wire layout (little-endian, 16 bytes):
//
//	 0-3:  Buttons (u32)
//	 4-5:  StickX  (i16) circle pad
//	 6-7:  StickY  (i16)
//	 8-11: touch position, ignored
//	12-13: CStickX (i16)
//	14-15: CStickY (i16)
type Frame struct {
	Buttons          uint32
	StickX, StickY   int16
	CStickX, CStickY int16
}

// FormatError reports a datagram that cannot hold a frame.
type FormatError struct {
	Len int
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("frame: data too short (%d bytes, need %d)", e.Len, Size)
}

// Decode parses b into a Frame. It never retains b.
func Decode(b []byte) (Frame, error) {
	if len(b) < Size {
		return Frame{}, &FormatError{Len: len(b)}
	}
	var f Frame
	if err := f.UnmarshalBinary(b); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// IsLivenessProbe reports whether b is exactly the ping payload.
func IsLivenessProbe(b []byte) bool {
	return len(b) == len(PingPayload) && bytes.Equal(b, PingPayload)
}

// Has reports whether btn is held in this frame.
func (f Frame) Has(btn Button) bool {
	return f.Buttons&uint32(btn) != 0
}

// MarshalBinary encodes the frame to its 16-byte wire form.
func (f *Frame) MarshalBinary() ([]byte, error) {
	b := make([]byte, Size)
	binary.LittleEndian.PutUint32(b[offButtons:], f.Buttons)
	binary.LittleEndian.PutUint16(b[offStickX:], uint16(f.StickX))
	binary.LittleEndian.PutUint16(b[offStickY:], uint16(f.StickY))
	binary.LittleEndian.PutUint16(b[offCStickX:], uint16(f.CStickX))
	binary.LittleEndian.PutUint16(b[offCStickY:], uint16(f.CStickY))
	return b, nil
}

// UnmarshalBinary decodes a wire frame. Short input yields a *FormatError.
func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) < Size {
		return &FormatError{Len: len(data)}
	}
	f.Buttons = binary.LittleEndian.Uint32(data[offButtons:])
	f.StickX = int16(binary.LittleEndian.Uint16(data[offStickX:]))
	f.StickY = int16(binary.LittleEndian.Uint16(data[offStickY:]))
	f.CStickX = int16(binary.LittleEndian.Uint16(data[offCStickX:]))
	f.CStickY = int16(binary.LittleEndian.Uint16(data[offCStickY:]))
	return nil
}
