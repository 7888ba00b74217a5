package uinput

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/padrelay/padrelay/axis"
	"github.com/padrelay/padrelay/device"
)

// BackendName is the registry name of this backend.
const BackendName = "uinput"

// DefaultName is the product name the virtual device reports.
const DefaultName = "3DS Controller"

// Keys lists every key the device advertises.
var Keys = []uint16{BtnA, BtnB, BtnX, BtnY, BtnTL, BtnTR, BtnStart, BtnSelect, BtnThumbL, BtnThumbR}

// AbsAxis describes one advertised absolute axis.
type AbsAxis struct {
	Code     uint16
	Min, Max int32
	// Neutral is the value sent on open and close.
	Neutral int32
}

// Axes lists every absolute axis the device advertises.
var Axes = []AbsAxis{
	{Code: AbsX, Max: 255, Neutral: 128},
	{Code: AbsY, Max: 255, Neutral: 128},
	{Code: AbsRX, Max: 255, Neutral: 128},
	{Code: AbsRY, Max: 255, Neutral: 128},
	{Code: AbsZ, Max: 255},
	{Code: AbsRZ, Max: 255},
	{Code: AbsHat0X, Min: -1, Max: 1},
	{Code: AbsHat0Y, Min: -1, Max: 1},
}

var buttonCodes = map[device.Button]uint16{
	device.ButtonA:      BtnA,
	device.ButtonB:      BtnB,
	device.ButtonX:      BtnX,
	device.ButtonY:      BtnY,
	device.ButtonL:      BtnTL,
	device.ButtonR:      BtnTR,
	device.ButtonStart:  BtnStart,
	device.ButtonSelect: BtnSelect,
}

// Pad queues input events and flushes them, followed by SYN_REPORT, in one
// write per Commit.
type Pad struct {
	w       io.Writer
	cleanup func() error
	now     func() time.Time

	mu      sync.Mutex
	pending []Event
	closed  bool
}

// NewPad returns a Pad writing to w, typically the uinput file. cleanup runs
// once on Close after the neutral state was flushed; it may be nil.
func NewPad(w io.Writer, cleanup func() error) *Pad {
	return &Pad{w: w, cleanup: cleanup, now: time.Now}
}

func (p *Pad) Name() string { return BackendName }

func (p *Pad) Press(b device.Button) error   { return p.key(b, 1) }
func (p *Pad) Release(b device.Button) error { return p.key(b, 0) }

func (p *Pad) key(b device.Button, v int32) error {
	code, ok := buttonCodes[b]
	if !ok {
		return nil
	}
	return p.queue(Event{Type: EvKey, Code: code, Value: v})
}

func (p *Pad) SetTrigger(t device.Trigger, level uint8) error {
	code := uint16(AbsZ)
	if t == device.TriggerRight {
		code = AbsRZ
	}
	return p.queue(Event{Type: EvAbs, Code: code, Value: int32(level)})
}

func (p *Pad) SetDPad(d device.DPad) error {
	return p.queue(
		Event{Type: EvAbs, Code: AbsHat0Y, Value: d.Vertical()},
		Event{Type: EvAbs, Code: AbsHat0X, Value: d.Horizontal()},
	)
}

// SetSticks converts the int16-range positions to the 0..255 axis range.
func (p *Pad) SetSticks(left, right device.Stick) error {
	return p.queue(
		Event{Type: EvAbs, Code: AbsX, Value: int32(axis.ToByte(left.X))},
		Event{Type: EvAbs, Code: AbsY, Value: int32(axis.ToByte(left.Y))},
		Event{Type: EvAbs, Code: AbsRX, Value: int32(axis.ToByte(right.X))},
		Event{Type: EvAbs, Code: AbsRY, Value: int32(axis.ToByte(right.Y))},
	)
}

func (p *Pad) queue(evs ...Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return device.ErrClosed
	}
	p.pending = append(p.pending, evs...)
	return nil
}

// Commit flushes queued events. Queued events are dropped even if the write fails.
func (p *Pad) Commit() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return device.ErrClosed
	}
	return p.flushLocked("commit")
}

// Neutral queues centered sticks, released triggers and hat.
func (p *Pad) Neutral() error {
	evs := make([]Event, 0, len(Axes))
	for _, a := range Axes {
		evs = append(evs, Event{Type: EvAbs, Code: a.Code, Value: a.Neutral})
	}
	return p.queue(evs...)
}

// Close releases held keys, flushes a neutral state and destroys the device.
func (p *Pad) Close() error {
	if err := p.Neutral(); errors.Is(err, device.ErrClosed) {
		return nil
	}
	for _, code := range Keys {
		_ = p.queue(Event{Type: EvKey, Code: code})
	}

	p.mu.Lock()
	werr := p.flushLocked("reset")
	p.closed = true
	p.mu.Unlock()

	if p.cleanup != nil {
		if err := p.cleanup(); err != nil {
			return err
		}
	}
	return werr
}

func (p *Pad) flushLocked(op string) error {
	if len(p.pending) == 0 {
		return nil
	}
	ts := p.now()
	buf := make([]byte, 0, (len(p.pending)+1)*EventSize)
	for _, e := range p.pending {
		buf = AppendEvent(buf, ts, e)
	}
	buf = AppendEvent(buf, ts, Event{Type: EvSyn, Code: SynReport})
	p.pending = p.pending[:0]

	if _, err := p.w.Write(buf); err != nil {
		return &device.WriteError{Backend: BackendName, Op: op, Err: err}
	}
	return nil
}
