package serial

import (
	"fmt"
	"time"
)

// BootMode selects the DTR/RTS pulse pattern used to force the target into
// its UART bootloader. The patterns are named by which line asserts reset
// and which level holds BOOT0; they match the wirings of common STM32
// development boards.
type BootMode int

const (
	// BootModeNone leaves DTR/RTS untouched.
	BootModeNone BootMode = iota

	// DTR carries the reset pulse
	BootModeDtrLowRtsHigh
	BootModeDtrHighRtsHigh
	BootModeDtrHighRtsLow
	BootModeDtrHighOnly

	// RTS carries the reset pulse
	BootModeRtsLowDtrHigh
	BootModeRtsLowDtrLow
	BootModeRtsLowOnly
	BootModeRtsHighOnly
)

var bootModeNames = map[BootMode]string{
	BootModeNone:           "none",
	BootModeDtrLowRtsHigh:  "dtr-low-rts-high",
	BootModeDtrHighRtsHigh: "dtr-high-rts-high",
	BootModeDtrHighRtsLow:  "dtr-high-rts-low",
	BootModeDtrHighOnly:    "dtr-high-only",
	BootModeRtsLowDtrHigh:  "rts-low-dtr-high",
	BootModeRtsLowDtrLow:   "rts-low-dtr-low",
	BootModeRtsLowOnly:     "rts-low-only",
	BootModeRtsHighOnly:    "rts-high-only",
}

func (m BootMode) String() string {
	if name, ok := bootModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("boot-mode(%d)", int(m))
}

// ParseBootMode parses the CLI spelling of a boot mode.
func ParseBootMode(s string) (BootMode, error) {
	for mode, name := range bootModeNames {
		if name == s {
			return mode, nil
		}
	}
	return BootModeNone, fmt.Errorf("unknown boot mode: %s", s)
}

// Level is a logic level on a boot or reset pin.
type Level int

const (
	LevelLow Level = iota
	LevelHigh
)

// BootLineConfig records the default polarity of the BOOT0 and NRST wiring.
// It is informational: the fixed pulse patterns do not consult it, but it
// is carried on the options for API compatibility.
type BootLineConfig struct {
	BootLevel        Level
	ResetAssertLevel Level
}

// DefaultBootLineConfig matches the FlyMcu wiring: BOOT0 active high,
// reset asserted low.
func DefaultBootLineConfig() BootLineConfig {
	return BootLineConfig{
		BootLevel:        LevelHigh,
		ResetAssertLevel: LevelLow,
	}
}

// Which control line a sequencer step drives.
type controlLine int

const (
	lineDTR controlLine = iota
	lineRTS
)

// lineStep sets one control line and dwells. The dwell times are
// hardware-calibrated; the 50/100/200 ms values are load-bearing.
type lineStep struct {
	line  controlLine
	value bool
	dwell time.Duration
}

// bootSequence returns the pulse pattern for a mode. Each pattern ends
// with the target held out of reset and BOOT0 latched, ready for autobaud.
func bootSequence(mode BootMode) []lineStep {
	switch mode {
	case BootModeDtrLowRtsHigh:
		return []lineStep{
			{lineDTR, true, 0},
			{lineRTS, false, 100 * time.Millisecond},
			{lineRTS, true, 50 * time.Millisecond},
			{lineDTR, false, 100 * time.Millisecond},
			{lineDTR, true, 200 * time.Millisecond},
		}
	case BootModeDtrHighRtsHigh:
		return []lineStep{
			{lineDTR, false, 100 * time.Millisecond},
			{lineRTS, true, 50 * time.Millisecond},
			{lineDTR, true, 100 * time.Millisecond},
			{lineDTR, false, 200 * time.Millisecond},
		}
	case BootModeDtrHighRtsLow:
		return []lineStep{
			{lineDTR, false, 100 * time.Millisecond},
			{lineRTS, false, 50 * time.Millisecond},
			{lineDTR, true, 100 * time.Millisecond},
			{lineDTR, false, 200 * time.Millisecond},
		}
	case BootModeDtrHighOnly:
		return []lineStep{
			{lineDTR, false, 100 * time.Millisecond},
			{lineDTR, true, 100 * time.Millisecond},
			{lineDTR, false, 200 * time.Millisecond},
		}
	case BootModeRtsLowDtrHigh:
		return []lineStep{
			{lineRTS, true, 100 * time.Millisecond},
			{lineDTR, true, 50 * time.Millisecond},
			{lineRTS, false, 100 * time.Millisecond},
			{lineRTS, true, 200 * time.Millisecond},
		}
	case BootModeRtsLowDtrLow:
		return []lineStep{
			{lineRTS, true, 100 * time.Millisecond},
			{lineDTR, false, 50 * time.Millisecond},
			{lineRTS, false, 100 * time.Millisecond},
			{lineRTS, true, 200 * time.Millisecond},
		}
	case BootModeRtsLowOnly:
		return []lineStep{
			{lineRTS, true, 100 * time.Millisecond},
			{lineRTS, false, 100 * time.Millisecond},
			{lineRTS, true, 200 * time.Millisecond},
		}
	case BootModeRtsHighOnly:
		return []lineStep{
			{lineRTS, false, 100 * time.Millisecond},
			{lineRTS, true, 100 * time.Millisecond},
			{lineRTS, false, 200 * time.Millisecond},
		}
	default:
		return nil
	}
}

// LineDriver is the control-line surface the sequencer needs.
type LineDriver interface {
	SetDTR(value bool) error
	SetRTS(value bool) error
}

// ApplyBootMode drives the DTR/RTS pulse pattern for mode. BootModeNone
// returns immediately. The lines config is accepted but not consulted; the
// patterns are fixed.
func ApplyBootMode(p LineDriver, mode BootMode, lines BootLineConfig) error {
	if mode == BootModeNone {
		return nil
	}

	for _, step := range bootSequence(mode) {
		var err error
		switch step.line {
		case lineDTR:
			err = p.SetDTR(step.value)
		case lineRTS:
			err = p.SetRTS(step.value)
		}
		if err != nil {
			return err
		}
		if step.dwell > 0 {
			time.Sleep(step.dwell)
		}
	}

	return nil
}

// HardwareReset drops BOOT0 and pulses reset so the target boots the user
// application. Used when the GO command fails or is unsupported.
func HardwareReset(p LineDriver) error {
	if err := p.SetRTS(false); err != nil {
		return err
	}
	time.Sleep(50 * time.Millisecond)

	if err := p.SetDTR(true); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)

	if err := p.SetDTR(false); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)

	if err := p.SetDTR(true); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)

	return nil
}
