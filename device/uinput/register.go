package uinput

import "github.com/padrelay/padrelay/device"

func init() {
	device.Register(BackendName, Open)
}
