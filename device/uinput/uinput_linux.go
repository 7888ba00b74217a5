//go:build linux

package uinput

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/padrelay/padrelay/device"
)

const (
	uiSetEvBit   = 0x40045564
	uiSetKeyBit  = 0x40045565
	uiSetAbsBit  = 0x40045567
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502
	uiDevSetup   = 0x405c5503
	uiAbsSetup   = 0x401c5504

	busVirtual = 0x06

	setupSize    = 92 // struct uinput_setup
	absSetupSize = 28 // struct uinput_abs_setup
	nameSize     = 80
)

// DefaultPath is the uinput character device.
const DefaultPath = "/dev/uinput"

type fdWriter int

func (w fdWriter) Write(p []byte) (int, error) { return unix.Write(int(w), p) }

// Open creates the virtual gamepad and returns it in neutral state.
func Open(_ context.Context, o *device.Options) (device.Controller, error) {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	path := o.UInput.Path
	if path == "" {
		path = DefaultPath
	}
	name := o.Name
	if name == "" {
		name = DefaultName
	}

	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &device.SetupError{Backend: BackendName, Err: fmt.Errorf("open %s: %w", path, err), Hint: openHint(err)}
	}
	if err := create(fd, name); err != nil {
		_ = unix.Close(fd)
		return nil, &device.SetupError{Backend: BackendName, Err: err}
	}
	logger.Info("Linux uinput controller initialized", "path", path, "name", name)

	pad := NewPad(fdWriter(fd), func() error {
		derr := ioctl(fd, uiDevDestroy, 0)
		if err := unix.Close(fd); err != nil {
			return err
		}
		if derr != nil {
			return fmt.Errorf("UI_DEV_DESTROY: %w", derr)
		}
		return nil
	})
	if err := pad.Neutral(); err == nil {
		if err := pad.Commit(); err != nil {
			logger.Warn("failed to reset controller", "error", err)
		}
	}
	return pad, nil
}

func openHint(err error) string {
	switch {
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENODEV):
		return "load the kernel module: sudo modprobe uinput"
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return "grant write access to the uinput device or run as root"
	default:
		return ""
	}
}

func create(fd int, name string) error {
	for _, ev := range []uintptr{EvKey, EvAbs, EvSyn} {
		if err := ioctl(fd, uiSetEvBit, ev); err != nil {
			return fmt.Errorf("UI_SET_EVBIT: %w", err)
		}
	}
	for _, k := range Keys {
		if err := ioctl(fd, uiSetKeyBit, uintptr(k)); err != nil {
			return fmt.Errorf("UI_SET_KEYBIT %#x: %w", k, err)
		}
	}
	for _, a := range Axes {
		if err := ioctl(fd, uiSetAbsBit, uintptr(a.Code)); err != nil {
			return fmt.Errorf("UI_SET_ABSBIT %#x: %w", a.Code, err)
		}
	}

	setup := make([]byte, setupSize)
	binary.NativeEndian.PutUint16(setup[0:], busVirtual)
	binary.NativeEndian.PutUint16(setup[6:], 1) // version
	copy(setup[8:8+nameSize-1], name)
	if err := ioctlPtr(fd, uiDevSetup, setup); err != nil {
		return fmt.Errorf("UI_DEV_SETUP: %w", err)
	}

	for _, a := range Axes {
		abs := make([]byte, absSetupSize)
		binary.NativeEndian.PutUint16(abs[0:], a.Code)
		binary.NativeEndian.PutUint32(abs[4:], uint32(a.Neutral))
		binary.NativeEndian.PutUint32(abs[8:], uint32(a.Min))
		binary.NativeEndian.PutUint32(abs[12:], uint32(a.Max))
		if err := ioctlPtr(fd, uiAbsSetup, abs); err != nil {
			return fmt.Errorf("UI_ABS_SETUP %#x: %w", a.Code, err)
		}
	}

	if err := ioctl(fd, uiDevCreate, 0); err != nil {
		return fmt.Errorf("UI_DEV_CREATE: %w", err)
	}
	return nil
}

func ioctl(fd int, req, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, arg)
	if errno != 0 {
		return errno
	}
	return nil
}

func ioctlPtr(fd int, req uintptr, b []byte) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(unsafe.Pointer(&b[0])))
	if errno != 0 {
		return errno
	}
	return nil
}
