package protocol

import (
	"encoding/binary"
	"fmt"
)

// XorChecksum computes the XOR of all bytes, the checksum used by every
// multi-byte AN3155 frame.
func XorChecksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum ^= b
	}
	return sum
}

// CommandFrame builds the two-byte command frame: the command followed by
// its complement.
func CommandFrame(cmd byte) []byte {
	return []byte{cmd, cmd ^ 0xFF}
}

// AddressFrame builds the five-byte address frame: the address big-endian
// followed by the XOR of its four bytes.
func AddressFrame(addr uint32) []byte {
	frame := make([]byte, 5)
	binary.BigEndian.PutUint32(frame[0:4], addr)
	frame[4] = XorChecksum(frame[0:4])
	return frame
}

// WriteFrame builds the WRITE_MEMORY payload frame: length-minus-one, the
// data, then the XOR over length byte and data. Data must be 1..256 bytes.
func WriteFrame(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data) > MaxWriteChunk {
		return nil, fmt.Errorf("write size must be 1..=256, got %d", len(data))
	}

	frame := make([]byte, 0, len(data)+2)
	frame = append(frame, byte(len(data)-1))
	frame = append(frame, data...)
	frame = append(frame, XorChecksum(frame))
	return frame, nil
}

// Mass-erase trailers. The bootloader reserves these special block counts
// for whole-flash erasure.
var (
	EraseAllFrame         = []byte{0xFF, 0x00}
	ExtendedEraseAllFrame = []byte{0xFF, 0xFF, 0x00}
)
