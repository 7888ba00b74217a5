package monitor

import (
	"time"

	"github.com/padrelay/padrelay/frame"
	"github.com/padrelay/padrelay/session"
)

// Event types sent to clients.
const (
	TypeConnected    = "connected"
	TypeDisconnected = "disconnected"
	TypeFrame        = "frame"
)

// Stick is a raw stick sample as sent by the console.
type Stick struct {
	X int16 `json:"x"`
	Y int16 `json:"y"`
}

// Event is one JSON message on the /ws feed.
type Event struct {
	Seq     int64     `json:"seq"`
	Type    string    `json:"type"`
	Console string    `json:"console"`
	Addr    string    `json:"addr"`
	Time    time.Time `json:"time"`

	Buttons []string `json:"buttons,omitempty"`
	Mask    uint32   `json:"mask,omitempty"`
	Stick   *Stick   `json:"stick,omitempty"`
	CStick  *Stick   `json:"cstick,omitempty"`
}

func sessionEvent(typ string, s session.Session) Event {
	return Event{Type: typ, Console: s.Name, Addr: s.Addr.String(), Time: s.LastSeen}
}

func frameEvent(s session.Session, f frame.Frame) Event {
	ev := sessionEvent(TypeFrame, s)
	ev.Mask = f.Buttons
	ev.Buttons = []string{}
	for _, b := range frame.Buttons {
		if f.Has(b) {
			ev.Buttons = append(ev.Buttons, b.String())
		}
	}
	ev.Stick = &Stick{X: f.StickX, Y: f.StickY}
	ev.CStick = &Stick{X: f.CStickX, Y: f.CStickY}
	return ev
}

// ConsoleInfo is one entry of the /sessions listing.
type ConsoleInfo struct {
	Console  string    `json:"console"`
	Addr     string    `json:"addr"`
	LastSeen time.Time `json:"lastSeen"`
	Frames   uint64    `json:"frames"`
	Mask     uint32    `json:"mask"`
}
