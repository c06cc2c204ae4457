//go:build linux

package device

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/replaykit/joyrec/internal/logger"
)

// uinput ioctl requests and event codes, from linux/uinput.h and
// linux/input-event-codes.h.
const (
	uiSetEvBit   = 0x40045564 // UI_SET_EVBIT
	uiSetKeyBit  = 0x40045565 // UI_SET_KEYBIT
	uiSetAbsBit  = 0x40045567 // UI_SET_ABSBIT
	uiDevCreate  = 0x5501     // UI_DEV_CREATE
	uiDevDestroy = 0x5502     // UI_DEV_DESTROY

	evSyn = 0x00
	evKey = 0x01
	evAbs = 0x03

	synReport   = 0x00
	btnJoystick = 0x120

	busVirtual = 0x06
)

// inputEvent mirrors struct input_event on 64-bit kernels.
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// uinputUserDev mirrors struct uinput_user_dev.
type uinputUserDev struct {
	Name         [80]byte
	BusType      uint16
	Vendor       uint16
	Product      uint16
	Version      uint16
	FFEffectsMax uint32
	AbsMax       [64]int32
	AbsMin       [64]int32
	AbsFuzz      [64]int32
	AbsFlat      [64]int32
}

// Uinput is a kernel virtual gamepad created through /dev/uinput. Axes are
// registered with the [AxisMin, AxisMax] range; buttons are numbered from 1
// and mapped onto the BTN_JOYSTICK code block.
type Uinput struct {
	f       *os.File
	axes    map[string]uint16
	buttons int
}

// NewUinput creates the virtual device with the given axes and button count.
// A missing or unwritable /dev/uinput is reported as ErrUnavailable.
func NewUinput(name string, axes []string, buttons int) (*Uinput, error) {
	f, err := os.OpenFile("/dev/uinput", os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	u := &Uinput{f: f, axes: make(map[string]uint16, len(axes)), buttons: buttons}
	fd := int(f.Fd())

	if err := unix.IoctlSetInt(fd, uiSetEvBit, evKey); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: enable key events: %v", ErrUnavailable, err)
	}
	if err := unix.IoctlSetInt(fd, uiSetEvBit, evAbs); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: enable axis events: %v", ErrUnavailable, err)
	}

	var dev uinputUserDev
	copy(dev.Name[:], name)
	dev.BusType = busVirtual
	dev.Vendor = 0x7270 // "rp"
	dev.Product = 0x6a72 // "jr"
	dev.Version = 1

	for _, axis := range axes {
		code, ok := axisCodes[axis]
		if !ok {
			_ = f.Close()
			return nil, fmt.Errorf("unknown axis %q", axis)
		}
		if err := unix.IoctlSetInt(fd, uiSetAbsBit, int(code)); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("%w: register axis %s: %v", ErrUnavailable, axis, err)
		}
		u.axes[axis] = code
		dev.AbsMin[code] = AxisMin
		dev.AbsMax[code] = AxisMax
	}

	for i := 1; i <= buttons; i++ {
		if err := unix.IoctlSetInt(fd, uiSetKeyBit, btnJoystick+i-1); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("%w: register button %d: %v", ErrUnavailable, i, err)
		}
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &dev); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to encode device description: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: write device description: %v", ErrUnavailable, err)
	}

	if err := unix.IoctlSetInt(fd, uiDevCreate, 0); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: create device: %v", ErrUnavailable, err)
	}

	logger.Info().
		Str("name", name).
		Int("axes", len(axes)).
		Int("buttons", buttons).
		Msg("Created virtual joystick")

	return u, nil
}

// SetAxis writes one axis position followed by a sync report.
func (u *Uinput) SetAxis(axis string, value int) error {
	code, ok := u.axes[axis]
	if !ok {
		return fmt.Errorf("axis %q not registered on device", axis)
	}
	if value < AxisMin {
		value = AxisMin
	}
	if value > AxisMax {
		value = AxisMax
	}
	return u.emit(evAbs, code, int32(value))
}

// SetButton writes one button state followed by a sync report.
func (u *Uinput) SetButton(index int, pressed bool) error {
	if index < 1 || index > u.buttons {
		return fmt.Errorf("button %d not registered on device", index)
	}
	var value int32
	if pressed {
		value = 1
	}
	return u.emit(evKey, uint16(btnJoystick+index-1), value)
}

// ReleaseAll centers every registered axis and clears every button.
func (u *Uinput) ReleaseAll() error {
	for axis := range u.axes {
		if err := u.SetAxis(axis, AxisCenter); err != nil {
			return err
		}
	}
	for i := 1; i <= u.buttons; i++ {
		if err := u.SetButton(i, false); err != nil {
			return err
		}
	}
	return nil
}

// Close destroys the virtual device.
func (u *Uinput) Close() error {
	fd := int(u.f.Fd())
	if err := unix.IoctlSetInt(fd, uiDevDestroy, 0); err != nil {
		_ = u.f.Close()
		return fmt.Errorf("failed to destroy device: %w", err)
	}
	return u.f.Close()
}

func (u *Uinput) emit(typ, code uint16, value int32) error {
	var buf bytes.Buffer
	events := []inputEvent{
		{Type: typ, Code: code, Value: value},
		{Type: evSyn, Code: synReport},
	}
	for _, ev := range events {
		if err := binary.Write(&buf, binary.LittleEndian, &ev); err != nil {
			return fmt.Errorf("failed to encode input event: %w", err)
		}
	}
	if _, err := u.f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
