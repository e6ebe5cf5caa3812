package protocol

import (
	"errors"
	"fmt"
)

// Wire-level failures reported while talking to the bootloader.
var (
	// ErrTimeout means no byte arrived within the deadline.
	ErrTimeout = errors.New("bootloader: timeout waiting for response")

	// ErrNack means the target replied 0x1F to a framed request.
	ErrNack = errors.New("bootloader: device returned NACK")

	// ErrNoEraseSupport means the GET command set contains neither the
	// legacy nor the extended erase command.
	ErrNoEraseSupport = errors.New("bootloader: no supported erase command")
)

// UnexpectedResponseError reports a response byte that is neither ACK nor
// NACK, or a malformed length reply.
type UnexpectedResponseError struct {
	Byte byte
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("bootloader: unexpected response byte 0x%02X", e.Byte)
}
