package device

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by a Controller used after Close.
var ErrClosed = errors.New("device closed")

// SetupError reports that no usable backend could be initialized.
type SetupError struct {
	Backend string
	Hint    string
	Err     error
}

func (e *SetupError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("setup %s backend: %v (%s)", e.Backend, e.Err, e.Hint)
	}
	return fmt.Sprintf("setup %s backend: %v", e.Backend, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// WriteError reports that the OS rejected an update, e.g. because the driver
// went away. The frame is lost; the controller stays usable if the driver returns.
type WriteError struct {
	Backend string
	Op      string
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
