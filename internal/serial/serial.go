package serial

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.bug.st/serial"
)

// PortNotFoundError reports a port that does not exist or could not be
// opened at the device level.
type PortNotFoundError struct {
	Name string
}

func (e *PortNotFoundError) Error() string {
	return fmt.Sprintf("port '%s' not found or cannot be opened", e.Name)
}

// Port wraps a serial port configured for the STM32 UART bootloader
// (8 data bits, even parity, one stop bit, no flow control).
type Port struct {
	port     serial.Port
	raw      *RawPort // Used on Linux for better USB CDC handling
	portName string
	baudRate int
}

// Open opens a serial port at the given baud rate in 8E1 mode.
func Open(portName string, baudRate int) (*Port, error) {
	// On Linux, use raw syscalls for better USB CDC compatibility
	if runtime.GOOS == "linux" {
		raw, err := OpenRaw(portName, baudRate)
		if err != nil {
			return nil, err
		}
		return &Port{
			raw:      raw,
			portName: portName,
			baudRate: baudRate,
		}, nil
	}

	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.EvenParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, classifyOpenError(portName, err)
	}

	if err := port.SetReadTimeout(100 * time.Millisecond); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	p := &Port{
		port:     port,
		portName: portName,
		baudRate: baudRate,
	}

	// Some hosts assert the modem lines at open time, which yanks the
	// target through reset before we get a word in. Settle them first.
	if err := settleAfterOpen(p); err != nil {
		port.Close()
		return nil, err
	}

	return p, nil
}

// classifyOpenError maps "no such device" and low-level I/O failures to
// PortNotFoundError; everything else passes through as a serial error.
func classifyOpenError(portName string, err error) error {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PortNotFound, serial.InvalidSerialPort:
			return &PortNotFoundError{Name: portName}
		}
	}
	return fmt.Errorf("serial port error: %w", err)
}

// Close closes the serial port.
func (p *Port) Close() error {
	if p.raw != nil {
		return p.raw.Close()
	}
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}

// Write writes data to the serial port and drains the output buffer so the
// bytes are on the wire before the next read.
func (p *Port) Write(data []byte) (int, error) {
	if p.raw != nil {
		return p.raw.Write(data)
	}
	n, err := p.port.Write(data)
	if err != nil {
		return n, err
	}
	if err := p.port.Drain(); err != nil {
		return n, err
	}
	return n, nil
}

// ReadWithTimeout reads available data, waiting at most timeout. A zero
// byte count with a nil error means nothing arrived in time.
func (p *Port) ReadWithTimeout(buf []byte, timeout time.Duration) (int, error) {
	if p.raw != nil {
		return p.raw.ReadWithTimeout(buf, timeout)
	}
	if err := p.port.SetReadTimeout(timeout); err != nil {
		return 0, err
	}
	defer p.port.SetReadTimeout(100 * time.Millisecond)

	return p.port.Read(buf)
}

// ClearInput discards any pending received data.
func (p *Port) ClearInput() error {
	if p.raw != nil {
		return p.raw.ClearInput()
	}
	return p.port.ResetInputBuffer()
}

// ClearAll discards pending data in both directions.
func (p *Port) ClearAll() error {
	if p.raw != nil {
		return p.raw.ClearAll()
	}
	if err := p.port.ResetInputBuffer(); err != nil {
		return err
	}
	return p.port.ResetOutputBuffer()
}

// SetDTR sets the DTR control line.
func (p *Port) SetDTR(value bool) error {
	if p.raw != nil {
		return p.raw.SetDTR(value)
	}
	return p.port.SetDTR(value)
}

// SetRTS sets the RTS control line.
func (p *Port) SetRTS(value bool) error {
	if p.raw != nil {
		return p.raw.SetRTS(value)
	}
	return p.port.SetRTS(value)
}

// PortName returns the port name.
func (p *Port) PortName() string {
	return p.portName
}

// BaudRate returns the configured baud rate.
func (p *Port) BaudRate() int {
	return p.baudRate
}
