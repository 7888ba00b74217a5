// Package uinput drives a virtual gamepad created through the Linux uinput
// kernel module.
package uinput

import (
	"encoding/binary"
	"strconv"
	"time"
)

// Event types
const (
	EvSyn = 0x00
	EvKey = 0x01
	EvAbs = 0x03
)

// SynReport terminates one batch of events.
const SynReport = 0x00

// Key codes
const (
	BtnA      = 0x130
	BtnB      = 0x131
	BtnX      = 0x133
	BtnY      = 0x134
	BtnTL     = 0x136
	BtnTR     = 0x137
	BtnSelect = 0x13a
	BtnStart  = 0x13b
	BtnThumbL = 0x13d
	BtnThumbR = 0x13e
)

// Absolute axes
const (
	AbsX     = 0x00
	AbsY     = 0x01
	AbsZ     = 0x02
	AbsRX    = 0x03
	AbsRY    = 0x04
	AbsRZ    = 0x05
	AbsHat0X = 0x10
	AbsHat0Y = 0x11
)

// timevalSize is sizeof(struct timeval): two longs.
const timevalSize = 2 * strconv.IntSize / 8

// EventSize is sizeof(struct input_event) on this platform.
const EventSize = timevalSize + 8

// Event is one input_event without its timestamp.
type Event struct {
	Type  uint16
	Code  uint16
	Value int32
}

// AppendEvent appends the kernel encoding of e stamped with ts.
func AppendEvent(b []byte, ts time.Time, e Event) []byte {
	var raw [EventSize]byte
	sec, usec := ts.Unix(), int64(ts.Nanosecond()/1000)
	if timevalSize == 16 {
		binary.NativeEndian.PutUint64(raw[0:8], uint64(sec))
		binary.NativeEndian.PutUint64(raw[8:16], uint64(usec))
	} else {
		binary.NativeEndian.PutUint32(raw[0:4], uint32(sec))
		binary.NativeEndian.PutUint32(raw[4:8], uint32(usec))
	}
	binary.NativeEndian.PutUint16(raw[timevalSize:], e.Type)
	binary.NativeEndian.PutUint16(raw[timevalSize+2:], e.Code)
	binary.NativeEndian.PutUint32(raw[timevalSize+4:], uint32(e.Value))
	return append(b, raw[:]...)
}

// DecodeEvents is the inverse of AppendEvent, dropping timestamps.
func DecodeEvents(b []byte) []Event {
	var out []Event
	for len(b) >= EventSize {
		out = append(out, Event{
			Type:  binary.NativeEndian.Uint16(b[timevalSize:]),
			Code:  binary.NativeEndian.Uint16(b[timevalSize+2:]),
			Value: int32(binary.NativeEndian.Uint32(b[timevalSize+4:])),
		})
		b = b[EventSize:]
	}
	return out
}
