//go:build !darwin

package flasher

import "time"

const (
	preSyncStabilize = false
	autobaudSettle   = 100 * time.Millisecond
)
