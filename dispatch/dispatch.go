// Package dispatch turns received datagrams into virtual controller updates.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"github.com/padrelay/padrelay/axis"
	"github.com/padrelay/padrelay/device"
	"github.com/padrelay/padrelay/frame"
	"github.com/padrelay/padrelay/internal/log"
	"github.com/padrelay/padrelay/session"
)

// DefaultThrottle is the minimum spacing between processed datagrams.
const DefaultThrottle = 10 * time.Millisecond

// Outcome reports what Handle did with a datagram.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomePong
	OutcomeShort
	OutcomeThrottled
	OutcomeBackendError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomePong:
		return "pong"
	case OutcomeShort:
		return "short"
	case OutcomeThrottled:
		return "throttled"
	case OutcomeBackendError:
		return "backend-error"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Replier sends a datagram back to a console.
type Replier interface {
	Reply(payload []byte, to netip.AddrPort) error
}

// Observer receives session and frame events. Calls happen on the receive
// loop and must not block.
type Observer interface {
	Connected(s session.Session)
	Disconnected(s session.Session)
	Frame(s session.Session, f frame.Frame)
}

// Config tunes a Dispatcher.
type Config struct {
	// Throttle drops datagrams arriving sooner than this after the last processed one.
	Throttle time.Duration
	Mapper   axis.Mapper
}

// Dispatcher applies frames from every console to one shared controller.
// It is not safe for concurrent use; the receive loop owns it.
type Dispatcher struct {
	pad       device.Controller
	sessions  *session.Registry
	config    Config
	logger    *slog.Logger
	rawLogger log.RawLogger
	replier   Replier
	observer  Observer

	lastProcessed time.Time
}

// New returns a Dispatcher driving pad. A zero Config.Mapper selects axis.Default.
func New(pad device.Controller, sessions *session.Registry, config Config, logger *slog.Logger, rawLogger log.RawLogger) *Dispatcher {
	if config.Mapper == (axis.Mapper{}) {
		config.Mapper = axis.Default
	}
	if logger == nil {
		logger = slog.Default()
	}
	if rawLogger == nil {
		rawLogger = log.NewRaw(nil)
	}
	return &Dispatcher{
		pad:       pad,
		sessions:  sessions,
		config:    config,
		logger:    logger,
		rawLogger: rawLogger,
	}
}

// SetReplier sets where pongs are sent.
func (d *Dispatcher) SetReplier(r Replier) { d.replier = r }

// SetObserver registers o for session and frame events.
func (d *Dispatcher) SetObserver(o Observer) { d.observer = o }

// Handle processes one datagram from `from` received at now.
func (d *Dispatcher) Handle(payload []byte, from netip.AddrPort, now time.Time) Outcome {
	s, created := d.sessions.Touch(from.Addr(), now)
	if created {
		d.logger.Info(fmt.Sprintf("%s connected", s.Name), "addr", from)
		if d.observer != nil {
			d.observer.Connected(*s)
		}
	}

	if !d.lastProcessed.IsZero() && now.Sub(d.lastProcessed) < d.config.Throttle {
		return OutcomeThrottled
	}
	d.lastProcessed = now

	d.rawLogger.Log(true, from.String(), payload)

	if frame.IsLivenessProbe(payload) {
		d.pong(from)
		return OutcomePong
	}

	f, err := frame.Decode(payload)
	if err != nil {
		d.logger.Debug("Dropping datagram", "from", from, "error", err)
		return OutcomeShort
	}

	if err := d.apply(s.Prev, f); err != nil {
		var we *device.WriteError
		if errors.As(err, &we) {
			d.logger.Debug("Backend rejected frame", "from", from, "backend", we.Backend, "op", we.Op, "error", we.Err)
		} else {
			d.logger.Debug("Failed to apply frame", "from", from, "error", err)
		}
		return OutcomeBackendError
	}
	d.sessions.Applied(s, f.Buttons)
	d.logger.Log(context.Background(), log.LevelTrace, "Frame applied", "from", from, "buttons", fmt.Sprintf("%#04x", f.Buttons))
	if d.observer != nil {
		d.observer.Frame(*s, f)
	}
	return OutcomeApplied
}

func (d *Dispatcher) pong(to netip.AddrPort) {
	if d.replier == nil {
		return
	}
	d.rawLogger.Log(false, to.String(), frame.PongPayload)
	if err := d.replier.Reply(frame.PongPayload, to); err != nil {
		d.logger.Debug("Failed to answer ping", "to", to, "error", err)
	}
}

// apply stages every change between prev and f and commits once.
func (d *Dispatcher) apply(prev uint32, f frame.Frame) error {
	for _, e := range frame.Changes(prev, f.Buttons) {
		b, ok := buttonMap[e.Button]
		if !ok {
			continue
		}
		var err error
		if e.Pressed {
			err = d.pad.Press(b)
		} else {
			err = d.pad.Release(b)
		}
		if err != nil {
			return err
		}
	}

	if err := d.pad.SetTrigger(device.TriggerLeft, triggerLevel(f.Has(frame.ButtonZL))); err != nil {
		return err
	}
	if err := d.pad.SetTrigger(device.TriggerRight, triggerLevel(f.Has(frame.ButtonZR))); err != nil {
		return err
	}
	if err := d.pad.SetDPad(dpadOf(f)); err != nil {
		return err
	}

	m := d.config.Mapper
	left := device.Stick{X: m.Map(int(f.StickX)), Y: m.Map(-int(f.StickY))}
	right := device.Stick{X: m.Map(int(f.CStickX)), Y: m.Map(-int(f.CStickY))}
	if err := d.pad.SetSticks(left, right); err != nil {
		return err
	}
	return d.pad.Commit()
}

// Sweep evicts consoles that went silent and releases whatever they held.
func (d *Dispatcher) Sweep(now time.Time) {
	for _, s := range d.sessions.Sweep(now) {
		d.logger.Info(fmt.Sprintf("%s disconnected (timeout)", s.Name), "addr", s.Addr)
		if err := d.release(s.Prev); err != nil {
			d.logger.Debug("Failed to release controller", "console", s.Name, "error", err)
		}
		if d.observer != nil {
			d.observer.Disconnected(*s)
		}
	}
}

// release lifts the buttons in held and returns triggers, d-pad and sticks to
// neutral in one commit.
func (d *Dispatcher) release(held uint32) error {
	for _, e := range frame.Changes(held, 0) {
		b, ok := buttonMap[e.Button]
		if !ok {
			continue
		}
		if err := d.pad.Release(b); err != nil {
			return err
		}
	}
	if err := d.pad.SetTrigger(device.TriggerLeft, 0); err != nil {
		return err
	}
	if err := d.pad.SetTrigger(device.TriggerRight, 0); err != nil {
		return err
	}
	if err := d.pad.SetDPad(device.DPadNone); err != nil {
		return err
	}
	if err := d.pad.SetSticks(device.Stick{}, device.Stick{}); err != nil {
		return err
	}
	return d.pad.Commit()
}
