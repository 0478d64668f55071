package serialmux

import (
	"go.bug.st/serial"
)

// RealSerialPortFactory opens serial ports backed by real hardware via
// go.bug.st/serial. It implements SerialPortFactory.
type RealSerialPortFactory struct{}

// NewRealSerialPortFactory creates a factory for real serial ports.
func NewRealSerialPortFactory() *RealSerialPortFactory {
	return &RealSerialPortFactory{}
}

// Open opens a serial port at the specified path with the given mode. A nil
// mode uses the IMU bridge defaults.
func (f *RealSerialPortFactory) Open(path string, mode *SerialPortMode) (SerialPorter, error) {
	if mode == nil {
		mode = DefaultSerialPortMode()
	}

	serialMode := &serial.Mode{
		BaudRate: mode.BaudRate,
		DataBits: mode.DataBits,
		Parity:   convertParity(mode.Parity),
		StopBits: convertStopBits(mode.StopBits),
	}

	return serial.Open(path, serialMode)
}

func convertParity(p Parity) serial.Parity {
	switch p {
	case EvenParity:
		return serial.EvenParity
	case OddParity:
		return serial.OddParity
	default:
		return serial.NoParity
	}
}

func convertStopBits(s StopBits) serial.StopBits {
	if s == TwoStopBits {
		return serial.TwoStopBits
	}
	return serial.OneStopBit
}

// NewRealSerialMux creates a SerialMux instance backed by a real serial port at the
// given path using the provided serial options.
func NewRealSerialMux(path string, opts PortOptions) (*SerialMux[SerialPorter], error) {
	mode, err := opts.Mode()
	if err != nil {
		return nil, err
	}

	port, err := NewRealSerialPortFactory().Open(path, mode)
	if err != nil {
		return nil, err
	}

	return NewSerialMux(port), nil
}
