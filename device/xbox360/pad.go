// Package xbox360 drives a virtual Xbox 360 controller exposed by a VIIPER
// server.
package xbox360

import (
	"io"
	"math"
	"sync"

	"github.com/padrelay/padrelay/device"
)

// BackendName is the registry name of this backend.
const BackendName = "xbox360"

// dpadBits passes the d-pad flags through as-is; opposite directions may be
// set together.
var dpadBits = map[device.DPad]uint32{
	device.DPadUp:    ButtonDPadUp,
	device.DPadDown:  ButtonDPadDown,
	device.DPadLeft:  ButtonDPadLeft,
	device.DPadRight: ButtonDPadRight,
}

var buttonBits = map[device.Button]uint32{
	device.ButtonA:      ButtonA,
	device.ButtonB:      ButtonB,
	device.ButtonX:      ButtonX,
	device.ButtonY:      ButtonY,
	device.ButtonL:      ButtonLShoulder,
	device.ButtonR:      ButtonRShoulder,
	device.ButtonStart:  ButtonStart,
	device.ButtonSelect: ButtonBack,
}

// Pad stages controller state and writes it as one InputState per Commit.
type Pad struct {
	w       io.Writer
	cleanup func() error

	mu        sync.Mutex
	pending   InputState
	committed InputState // last state the device accepted
	closed    bool
}

// NewPad returns a Pad writing records to w. cleanup runs once on Close,
// after the neutral state was sent; it may be nil.
func NewPad(w io.Writer, cleanup func() error) *Pad {
	return &Pad{w: w, cleanup: cleanup}
}

func (p *Pad) Name() string { return BackendName }

func (p *Pad) Press(b device.Button) error   { return p.setButton(b, true) }
func (p *Pad) Release(b device.Button) error { return p.setButton(b, false) }

func (p *Pad) setButton(b device.Button, down bool) error {
	bit, ok := buttonBits[b]
	if !ok {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return device.ErrClosed
	}
	if down {
		p.pending.Buttons |= bit
	} else {
		p.pending.Buttons &^= bit
	}
	return nil
}

func (p *Pad) SetTrigger(t device.Trigger, level uint8) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return device.ErrClosed
	}
	switch t {
	case device.TriggerLeft:
		p.pending.LT = level
	case device.TriggerRight:
		p.pending.RT = level
	}
	return nil
}

func (p *Pad) SetDPad(d device.DPad) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return device.ErrClosed
	}
	p.pending.Buttons &^= dpadMask
	for flag, bit := range dpadBits {
		if d&flag != 0 {
			p.pending.Buttons |= bit
		}
	}
	return nil
}

func (p *Pad) SetSticks(left, right device.Stick) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return device.ErrClosed
	}
	p.pending.LX = clamp16(left.X)
	p.pending.LY = clamp16(left.Y)
	p.pending.RX = clamp16(right.X)
	p.pending.RY = clamp16(right.Y)
	return nil
}

// Commit writes the staged state. If the write fails the staged changes are
// discarded and the pad reverts to the last accepted state.
func (p *Pad) Commit() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return device.ErrClosed
	}
	return p.writeLocked("commit")
}

// State returns a copy of the staged state.
func (p *Pad) State() InputState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

// Close sends a neutral state, then releases the device.
func (p *Pad) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.pending = InputState{}
	werr := p.writeLocked("reset")
	p.closed = true
	p.mu.Unlock()

	if p.cleanup != nil {
		if err := p.cleanup(); err != nil {
			return err
		}
	}
	return werr
}

func (p *Pad) writeLocked(op string) error {
	b, _ := p.pending.MarshalBinary()
	if _, err := p.w.Write(b); err != nil {
		p.pending = p.committed
		return &device.WriteError{Backend: BackendName, Op: op, Err: err}
	}
	p.committed = p.pending
	return nil
}

func clamp16(v int) int16 {
	return int16(max(math.MinInt16, min(math.MaxInt16, v)))
}
