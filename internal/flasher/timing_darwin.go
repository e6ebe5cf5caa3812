//go:build darwin

package flasher

import "time"

// macOS USB-serial bridges need extra stabilisation after the boot-entry
// line changes; without these settle times the first ACK is routinely lost.
const (
	preSyncStabilize = true
	autobaudSettle   = 150 * time.Millisecond
)
