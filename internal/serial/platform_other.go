//go:build !darwin

package serial

// settleAfterOpen is a no-op outside macOS; the TTY does not assert the
// modem lines at open time there.
func settleAfterOpen(p *Port) error {
	return nil
}

// keepPort keeps every enumerated port outside macOS.
func keepPort(name string) bool {
	return true
}
