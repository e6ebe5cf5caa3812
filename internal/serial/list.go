package serial

import (
	"fmt"
	"strconv"
	"strings"

	"go.bug.st/serial/enumerator"
)

// PortInfo describes an enumerated serial port. VID, PID and Serial are
// only present for USB-attached ports.
type PortInfo struct {
	ID       string
	Label    string
	PortName string
	VID      *uint16
	PID      *uint16
	Serial   *string
}

// ListPorts enumerates the host's serial ports with USB details where
// available. On macOS only /dev/cu.* callout devices are reported, with
// Bluetooth and debug-console nodes dropped.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("serial port error: %w", err)
	}

	out := make([]PortInfo, 0, len(details))
	for _, d := range details {
		if !keepPort(d.Name) {
			continue
		}

		info := PortInfo{
			ID:       d.Name,
			Label:    d.Name,
			PortName: d.Name,
		}

		if d.IsUSB {
			if vid, ok := parseUSBID(d.VID); ok {
				info.VID = &vid
			}
			if pid, ok := parseUSBID(d.PID); ok {
				info.PID = &pid
			}
			if d.SerialNumber != "" {
				sn := d.SerialNumber
				info.Serial = &sn
			}
			if prod := d.Product; prod != "" {
				// Drop the parenthetical suffix some OSes append to
				// the product string.
				if i := strings.Index(prod, " ("); i >= 0 {
					prod = prod[:i]
				}
				info.Label = d.Name + " - " + prod
			}
		}

		out = append(out, info)
	}

	return out, nil
}

// parseUSBID parses the enumerator's hex VID/PID string.
func parseUSBID(s string) (uint16, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, false
	}
	return uint16(v), true
}
