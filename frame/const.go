package frame

// Button is one bit of the console's held-keys mask.
type Button uint32

// Button bitmasks as reported by the console's HID service.
const (
	ButtonA      Button = 0x0001
	ButtonB      Button = 0x0002
	ButtonSelect Button = 0x0004
	ButtonStart  Button = 0x0008
	ButtonDRight Button = 0x0010
	ButtonDLeft  Button = 0x0020
	ButtonDUp    Button = 0x0040
	ButtonDDown  Button = 0x0080
	ButtonR      Button = 0x0100
	ButtonL      Button = 0x0200
	ButtonX      Button = 0x0400
	ButtonY      Button = 0x0800
	ButtonZL     Button = 0x1000
	ButtonZR     Button = 0x2000

	// ButtonMask covers every bit that carries meaning.
	ButtonMask uint32 = 0x3fff
)

// Buttons lists the named buttons in bit order.
var Buttons = [...]Button{
	ButtonA, ButtonB, ButtonSelect, ButtonStart,
	ButtonDRight, ButtonDLeft, ButtonDUp, ButtonDDown,
	ButtonR, ButtonL, ButtonX, ButtonY, ButtonZL, ButtonZR,
}

var buttonNames = map[Button]string{
	ButtonA:      "A",
	ButtonB:      "B",
	ButtonSelect: "Select",
	ButtonStart:  "Start",
	ButtonDRight: "DRight",
	ButtonDLeft:  "DLeft",
	ButtonDUp:    "DUp",
	ButtonDDown:  "DDown",
	ButtonR:      "R",
	ButtonL:      "L",
	ButtonX:      "X",
	ButtonY:      "Y",
	ButtonZL:     "ZL",
	ButtonZR:     "ZR",
}

func (b Button) String() string {
	if n, ok := buttonNames[b]; ok {
		return n
	}
	return "Unknown"
}

const (
	// Size is the minimum accepted datagram length.
	Size = 16

	offButtons = 0
	offStickX  = 4
	offStickY  = 6
	offCStickX = 12
	offCStickY = 14
)

// Liveness probe payloads.
var (
	PingPayload = []byte("ping\x00")
	PongPayload = []byte("pong")
)
