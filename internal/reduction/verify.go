package reduction

import (
	"errors"
	"fmt"
	"math"
)

// Tolerance bounds the absolute difference accepted between a device result
// and the host reference.
const Tolerance = 1e-4

// ErrMismatch reports a device result outside Tolerance of the host
// reference. Callers match it with errors.Is.
var ErrMismatch = errors.New("device result does not match host reference")

// MismatchError carries both values for diagnosis and unwraps to ErrMismatch.
type MismatchError struct {
	Device    float32
	Reference float32
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("device result %g does not match host reference %g (tolerance %g)",
		e.Device, e.Reference, Tolerance)
}

func (e *MismatchError) Unwrap() error {
	return ErrMismatch
}

// Reference computes the maximum by a sequential scan on the host, the
// trusted answer the device must reproduce. An empty slice yields -Inf.
func Reference(data []float32) float32 {
	best := float32(math.Inf(-1))
	for _, v := range data {
		if v > best {
			best = v
		}
	}
	return best
}

// Verify checks a device result against the host reference.
func Verify(deviceMax, reference float32) error {
	if math.Abs(float64(deviceMax)-float64(reference)) <= Tolerance {
		return nil
	}
	return &MismatchError{Device: deviceMax, Reference: reference}
}
