// Package device defines the virtual controller capabilities shared by all host
// backends and the registry used to pick one at startup.
package device

// Button is a discrete host controller button.
type Button uint8

const (
	ButtonA Button = iota
	ButtonB
	ButtonX
	ButtonY
	ButtonL // left shoulder
	ButtonR // right shoulder
	ButtonStart
	ButtonSelect
)

func (b Button) String() string {
	switch b {
	case ButtonA:
		return "A"
	case ButtonB:
		return "B"
	case ButtonX:
		return "X"
	case ButtonY:
		return "Y"
	case ButtonL:
		return "L"
	case ButtonR:
		return "R"
	case ButtonStart:
		return "Start"
	case ButtonSelect:
		return "Select"
	default:
		return "Unknown"
	}
}

// Trigger selects one analog trigger.
type Trigger uint8

const (
	TriggerLeft Trigger = iota
	TriggerRight
)

// DPad is a combination of directional flags; diagonals set two of them.
type DPad uint8

const (
	DPadUp DPad = 1 << iota
	DPadDown
	DPadLeft
	DPadRight

	DPadNone DPad = 0
)

// Vertical returns -1 for up, +1 for down and 0 otherwise. Up wins if both are set.
func (d DPad) Vertical() int32 {
	switch {
	case d&DPadUp != 0:
		return -1
	case d&DPadDown != 0:
		return 1
	default:
		return 0
	}
}

// Horizontal returns -1 for left, +1 for right and 0 otherwise. Left wins if both are set.
func (d DPad) Horizontal() int32 {
	switch {
	case d&DPadLeft != 0:
		return -1
	case d&DPadRight != 0:
		return 1
	default:
		return 0
	}
}

// Stick is an analog stick position in the symmetric int16 range
// (-32768..32767, 0 is centered).
type Stick struct {
	X, Y int
}

// Controller is a host virtual controller. Setters stage state; Commit applies
// everything staged since the previous Commit in one update.
type Controller interface {
	// Name identifies the backend, e.g. "xbox360" or "uinput".
	Name() string
	Press(b Button) error
	Release(b Button) error
	// SetTrigger sets a trigger level, 0 (released) to 255 (fully pressed).
	SetTrigger(t Trigger, level uint8) error
	SetDPad(d DPad) error
	SetSticks(left, right Stick) error
	Commit() error
	// Close resets the device to neutral and releases the OS handle.
	Close() error
}
