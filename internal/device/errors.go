package device

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceClosed is returned when a device is used after Close.
	ErrDeviceClosed = errors.New("device: device closed")

	// ErrBufferReleased is returned when a buffer is used after Release.
	ErrBufferReleased = errors.New("device: buffer released")

	// ErrForeignBuffer is returned when a kernel receives a buffer that is
	// not resident on its device.
	ErrForeignBuffer = errors.New("device: buffer not resident on this device")
)

// BuildError reports a kernel compilation failure. Log carries the device's
// build diagnostics verbatim; it is part of the error text so the caller sees
// exactly what the device reported.
type BuildError struct {
	Device string
	Log    string
}

func (e *BuildError) Error() string {
	if e.Log == "" {
		return fmt.Sprintf("device: kernel build failed on %s", e.Device)
	}
	return fmt.Sprintf("device: kernel build failed on %s:\n%s", e.Device, e.Log)
}

// DispatchError reports a kernel launch or pass execution failure.
type DispatchError struct {
	Device string
	Op     string
	Err    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("device: %s failed on %s: %v", e.Op, e.Device, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }
