package xbox360

// DeviceType is the VIIPER device type name.
const DeviceType = "xbox360"

// Button bitmasks for Xbox 360 controller (XInput compatible)
const (
	ButtonDPadUp    = 0x0001
	ButtonDPadDown  = 0x0002
	ButtonDPadLeft  = 0x0004
	ButtonDPadRight = 0x0008
	ButtonStart     = 0x0010
	ButtonBack      = 0x0020
	ButtonLThumb    = 0x0040
	ButtonRThumb    = 0x0080
	ButtonLShoulder = 0x0100
	ButtonRShoulder = 0x0200
	ButtonGuide     = 0x0400
	ButtonA         = 0x1000
	ButtonB         = 0x2000
	ButtonX         = 0x4000
	ButtonY         = 0x8000

	dpadMask = ButtonDPadUp | ButtonDPadDown | ButtonDPadLeft | ButtonDPadRight
)
