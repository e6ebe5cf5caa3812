//go:build darwin

package serial

import (
	"strings"
	"time"
)

// settleAfterOpen drops both control lines and lets the USB-serial bridge
// stabilise. macOS asserts DTR/RTS when the TTY opens, which resets the
// target before the handshake; without this settle the first autobaud
// attempts read garbage.
func settleAfterOpen(p *Port) error {
	if err := p.SetDTR(false); err != nil {
		return err
	}
	if err := p.SetRTS(false); err != nil {
		return err
	}

	time.Sleep(200 * time.Millisecond)

	p.ClearAll()
	time.Sleep(50 * time.Millisecond)

	return nil
}

// keepPort filters the enumeration down to usable callout devices.
func keepPort(name string) bool {
	if !strings.HasPrefix(name, "/dev/cu.") {
		return false
	}
	if strings.Contains(name, "Bluetooth") || strings.Contains(name, "debug-console") {
		return false
	}
	return true
}
