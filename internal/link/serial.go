package link

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// SerialDriver enumerates and opens real serial devices.
type SerialDriver struct{}

// List returns the serial ports present on the system.
func (SerialDriver) List() ([]string, error) {
	return serial.GetPortsList()
}

// Open opens the named device at the given baud rate, 8N1.
func (SerialDriver) Open(name string, baud int) (io.WriteCloser, error) {
	p, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return p, nil
}

// Encode renders the servo command line for angle.
func Encode(angle int) []byte {
	return fmt.Appendf(nil, "servo,%d\n", angle)
}
