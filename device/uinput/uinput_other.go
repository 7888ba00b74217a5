//go:build !linux

package uinput

import (
	"context"
	"errors"
	"runtime"

	"github.com/padrelay/padrelay/device"
)

// DefaultPath is the uinput character device.
const DefaultPath = "/dev/uinput"

// Open always fails outside Linux.
func Open(context.Context, *device.Options) (device.Controller, error) {
	return nil, &device.SetupError{
		Backend: BackendName,
		Err:     errors.New("uinput is not available on " + runtime.GOOS),
		Hint:    "use the xbox360 backend",
	}
}
