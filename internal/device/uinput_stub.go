//go:build !linux

package device

import "fmt"

// Uinput is only available on Linux; this stub keeps the symbol resolvable
// so callers can offer the device flag everywhere and fail at open time.
type Uinput struct{}

// NewUinput always fails off Linux.
func NewUinput(name string, axes []string, buttons int) (*Uinput, error) {
	return nil, fmt.Errorf("%w: uinput requires linux", ErrUnavailable)
}

// SetAxis is never reachable; NewUinput refuses to construct the device.
func (u *Uinput) SetAxis(axis string, value int) error {
	return ErrUnavailable
}

// SetButton is never reachable.
func (u *Uinput) SetButton(index int, pressed bool) error {
	return ErrUnavailable
}

// ReleaseAll is never reachable.
func (u *Uinput) ReleaseAll() error {
	return ErrUnavailable
}

// Close is never reachable.
func (u *Uinput) Close() error {
	return ErrUnavailable
}
