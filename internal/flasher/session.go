package flasher

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/KercyDing/probe-flasher/internal/protocol"
)

// Transport is the serial surface a bootloader session drives. Writes must
// put the bytes on the wire before returning; reads wait at most timeout
// and report nothing arrived as a zero count with a nil error.
type Transport interface {
	Write(data []byte) (int, error)
	ReadWithTimeout(buf []byte, timeout time.Duration) (int, error)
	ClearInput() error
	ClearAll() error
	SetDTR(value bool) error
	SetRTS(value bool) error
}

// eraseTimeout bounds the ACK wait after a mass erase. Erasing the whole
// flash takes far longer than any other command.
const eraseTimeout = 25 * time.Second

// autobaudAttempts bounds the 0x7F handshake.
const autobaudAttempts = 5

// session holds the per-call bootloader state: one session lives across a
// single identify or flash call.
type session struct {
	t       Transport
	timeout time.Duration
	log     Logger
}

func newSession(t Transport, timeout time.Duration, log Logger) *session {
	return &session{t: t, timeout: timeout, log: log}
}

// readByte reads exactly one byte, polling until one arrives or the
// deadline expires. Zero-byte reads are "not yet" and loop.
func (s *session) readByte(timeout time.Duration) (byte, error) {
	deadline := time.Now().Add(timeout)
	buf := make([]byte, 1)

	for time.Now().Before(deadline) {
		n, err := s.t.ReadWithTimeout(buf, 100*time.Millisecond)
		if err != nil {
			return 0, fmt.Errorf("io error: %w", err)
		}
		if n > 0 {
			return buf[0], nil
		}
	}

	return 0, protocol.ErrTimeout
}

// readBody reads a fixed-size response body. USB-serial bridges surface
// data in irregular chunks, so zero-length reads just loop; only hard I/O
// errors or the deadline abort.
func (s *session) readBody(n int) ([]byte, error) {
	body := make([]byte, n)
	deadline := time.Now().Add(s.timeout)

	read := 0
	for read < n {
		if !time.Now().Before(deadline) {
			return nil, protocol.ErrTimeout
		}
		k, err := s.t.ReadWithTimeout(body[read:], 100*time.Millisecond)
		if err != nil {
			return nil, fmt.Errorf("io error: %w", err)
		}
		read += k
	}

	return body, nil
}

// expectAck reads the single-byte reply to a framed request.
func (s *session) expectAck(timeout time.Duration) error {
	b, err := s.readByte(timeout)
	if err != nil {
		return err
	}
	switch b {
	case protocol.Ack:
		return nil
	case protocol.Nack:
		return protocol.ErrNack
	default:
		return &protocol.UnexpectedResponseError{Byte: b}
	}
}

// sendCommand writes the command/complement frame and waits for the ACK.
func (s *session) sendCommand(cmd byte) error {
	if _, err := s.t.Write(protocol.CommandFrame(cmd)); err != nil {
		return fmt.Errorf("io error: %w", err)
	}
	return s.expectAck(s.timeout)
}

// sendAddress writes the checksummed address frame and waits for the ACK.
func (s *session) sendAddress(addr uint32) error {
	if _, err := s.t.Write(protocol.AddressFrame(addr)); err != nil {
		return fmt.Errorf("io error: %w", err)
	}
	return s.expectAck(s.timeout)
}

// sync performs the autobaud handshake: 0x7F until the target locks onto
// the line rate and ACKs, at most autobaudAttempts times. USB-serial
// bridges need stabilisation after the boot-entry line changes, hence the
// buffer clears and settle sleeps.
func (s *session) sync() error {
	s.t.ClearInput()
	time.Sleep(50 * time.Millisecond)
	s.t.ClearInput()

	if preSyncStabilize {
		time.Sleep(100 * time.Millisecond)
		s.t.ClearAll()
		time.Sleep(50 * time.Millisecond)
	}

	lastErr := error(protocol.ErrTimeout)
	for attempt := 1; attempt <= autobaudAttempts; attempt++ {
		if _, err := s.t.Write([]byte{protocol.SyncByte}); err != nil {
			return fmt.Errorf("io error: %w", err)
		}

		time.Sleep(autobaudSettle)

		err := s.expectAck(s.timeout)
		if err == nil {
			return nil
		}

		lastErr = err
		if attempt == autobaudAttempts {
			break
		}

		if err == protocol.ErrTimeout {
			time.Sleep(50 * time.Millisecond)
			continue
		}

		// Residual noise or a NACK: drop the stale bytes before the
		// next attempt.
		s.t.ClearInput()
		time.Sleep(100 * time.Millisecond)
	}

	return lastErr
}

// getInfo issues GET: bootloader version plus the supported command set.
func (s *session) getInfo() (byte, []byte, error) {
	if err := s.sendCommand(protocol.CmdGet); err != nil {
		return 0, nil, err
	}

	n, err := s.readByte(s.timeout)
	if err != nil {
		return 0, nil, err
	}
	version, err := s.readByte(s.timeout)
	if err != nil {
		return 0, nil, err
	}

	cmds, err := s.readBody(int(n))
	if err != nil {
		return 0, nil, err
	}

	if err := s.expectAck(s.timeout); err != nil {
		return 0, nil, err
	}

	return version, cmds, nil
}

// getID issues GET ID and returns the 16-bit product id. The length byte
// means "N+1 bytes follow"; a one-byte body is a zero-extended id. That
// deviates from some documentation but matches observed hardware.
func (s *session) getID() (uint16, error) {
	if err := s.sendCommand(protocol.CmdGetID); err != nil {
		return 0, err
	}

	n, err := s.readByte(s.timeout)
	if err != nil {
		return 0, err
	}

	body, err := s.readBody(int(n) + 1)
	if err != nil {
		return 0, err
	}

	if err := s.expectAck(s.timeout); err != nil {
		return 0, err
	}

	switch len(body) {
	case 2:
		return binary.BigEndian.Uint16(body), nil
	case 1:
		return uint16(body[0]), nil
	default:
		return 0, &protocol.UnexpectedResponseError{Byte: 0x00}
	}
}

// writeMemory streams one WRITE_MEMORY command: command frame, address
// frame, then the checksummed payload.
func (s *session) writeMemory(addr uint32, data []byte) error {
	payload, err := protocol.WriteFrame(data)
	if err != nil {
		return err
	}

	if err := s.sendCommand(protocol.CmdWriteMemory); err != nil {
		return err
	}
	if err := s.sendAddress(addr); err != nil {
		return err
	}

	if _, err := s.t.Write(payload); err != nil {
		return fmt.Errorf("io error: %w", err)
	}

	return s.expectAck(s.timeout)
}

// eraseAll issues a mass erase, choosing the extended command when the
// target advertises it and falling back to the legacy one. The ACK for a
// mass erase uses the long erase window.
func (s *session) eraseAll(cmds []byte) error {
	switch {
	case contains(cmds, protocol.CmdExtendedErase):
		if err := s.sendCommand(protocol.CmdExtendedErase); err != nil {
			return err
		}
		if _, err := s.t.Write(protocol.ExtendedEraseAllFrame); err != nil {
			return fmt.Errorf("io error: %w", err)
		}
		return s.expectAck(eraseTimeout)

	case contains(cmds, protocol.CmdErase):
		if err := s.sendCommand(protocol.CmdErase); err != nil {
			return err
		}
		if _, err := s.t.Write(protocol.EraseAllFrame); err != nil {
			return fmt.Errorf("io error: %w", err)
		}
		return s.expectAck(eraseTimeout)

	default:
		return protocol.ErrNoEraseSupport
	}
}

// goCommand jumps to the application at addr. Command and address frames
// are each acknowledged as usual; once the address ACK arrives the
// bootloader jumps to user code and nothing further is read.
func (s *session) goCommand(addr uint32) error {
	if err := s.sendCommand(protocol.CmdGo); err != nil {
		return err
	}
	return s.sendAddress(addr)
}

func contains(cmds []byte, cmd byte) bool {
	for _, c := range cmds {
		if c == cmd {
			return true
		}
	}
	return false
}
