package dispatch

import (
	"github.com/padrelay/padrelay/device"
	"github.com/padrelay/padrelay/frame"
)

// buttonMap lists the console buttons forwarded as discrete presses. ZL/ZR and
// the d-pad are applied as trigger and hat state instead.
var buttonMap = map[frame.Button]device.Button{
	frame.ButtonA:      device.ButtonA,
	frame.ButtonB:      device.ButtonB,
	frame.ButtonX:      device.ButtonX,
	frame.ButtonY:      device.ButtonY,
	frame.ButtonL:      device.ButtonL,
	frame.ButtonR:      device.ButtonR,
	frame.ButtonStart:  device.ButtonStart,
	frame.ButtonSelect: device.ButtonSelect,
}

func triggerLevel(held bool) uint8 {
	if held {
		return 255
	}
	return 0
}

func dpadOf(f frame.Frame) device.DPad {
	var d device.DPad
	if f.Has(frame.ButtonDUp) {
		d |= device.DPadUp
	}
	if f.Has(frame.ButtonDDown) {
		d |= device.DPadDown
	}
	if f.Has(frame.ButtonDLeft) {
		d |= device.DPadLeft
	}
	if f.Has(frame.ButtonDRight) {
		d |= device.DPadRight
	}
	return d
}
