package serial

import (
	"testing"
	"time"
)

type lineRecorder struct {
	ops []string
}

func (r *lineRecorder) SetDTR(v bool) error {
	if v {
		r.ops = append(r.ops, "dtr:1")
	} else {
		r.ops = append(r.ops, "dtr:0")
	}
	return nil
}

func (r *lineRecorder) SetRTS(v bool) error {
	if v {
		r.ops = append(r.ops, "rts:1")
	} else {
		r.ops = append(r.ops, "rts:0")
	}
	return nil
}

func TestParseBootMode_RoundTrip(t *testing.T) {
	modes := []BootMode{
		BootModeNone,
		BootModeDtrLowRtsHigh,
		BootModeDtrHighRtsHigh,
		BootModeDtrHighRtsLow,
		BootModeDtrHighOnly,
		BootModeRtsLowDtrHigh,
		BootModeRtsLowDtrLow,
		BootModeRtsLowOnly,
		BootModeRtsHighOnly,
	}

	for _, mode := range modes {
		parsed, err := ParseBootMode(mode.String())
		if err != nil {
			t.Fatalf("ParseBootMode(%q) error = %v", mode.String(), err)
		}
		if parsed != mode {
			t.Errorf("ParseBootMode(%q) = %v, want %v", mode.String(), parsed, mode)
		}
	}
}

func TestParseBootMode_Unknown(t *testing.T) {
	if _, err := ParseBootMode("dtr-sideways"); err == nil {
		t.Error("ParseBootMode with unknown mode expected error, got nil")
	}
}

func TestApplyBootMode_None_TouchesNothing(t *testing.T) {
	rec := &lineRecorder{}
	if err := ApplyBootMode(rec, BootModeNone, DefaultBootLineConfig()); err != nil {
		t.Fatalf("ApplyBootMode(none) error = %v", err)
	}
	if len(rec.ops) != 0 {
		t.Errorf("ApplyBootMode(none) drove lines: %v", rec.ops)
	}
}

func TestApplyBootMode_DtrLowRtsHigh_Sequence(t *testing.T) {
	rec := &lineRecorder{}
	if err := ApplyBootMode(rec, BootModeDtrLowRtsHigh, DefaultBootLineConfig()); err != nil {
		t.Fatalf("ApplyBootMode error = %v", err)
	}

	want := []string{"dtr:1", "rts:0", "rts:1", "dtr:0", "dtr:1"}
	if len(rec.ops) != len(want) {
		t.Fatalf("ops = %v, want %v", rec.ops, want)
	}
	for i := range want {
		if rec.ops[i] != want[i] {
			t.Errorf("ops[%d] = %s, want %s", i, rec.ops[i], want[i])
		}
	}
}

func TestApplyBootMode_RtsOnlyModes_NeverTouchDTR(t *testing.T) {
	for _, mode := range []BootMode{BootModeRtsLowOnly, BootModeRtsHighOnly} {
		rec := &lineRecorder{}
		if err := ApplyBootMode(rec, mode, DefaultBootLineConfig()); err != nil {
			t.Fatalf("ApplyBootMode(%v) error = %v", mode, err)
		}
		for _, op := range rec.ops {
			if op == "dtr:0" || op == "dtr:1" {
				t.Errorf("%v drove DTR: %v", mode, rec.ops)
				break
			}
		}
	}
}

func TestBootSequence_DwellsPreserved(t *testing.T) {
	// The settle times are hardware-calibrated; every non-None pattern
	// must end on a 200ms dwell with the target out of reset.
	modes := []BootMode{
		BootModeDtrLowRtsHigh,
		BootModeDtrHighRtsHigh,
		BootModeDtrHighRtsLow,
		BootModeDtrHighOnly,
		BootModeRtsLowDtrHigh,
		BootModeRtsLowDtrLow,
		BootModeRtsLowOnly,
		BootModeRtsHighOnly,
	}

	for _, mode := range modes {
		steps := bootSequence(mode)
		if len(steps) == 0 {
			t.Fatalf("bootSequence(%v) is empty", mode)
		}
		if got := steps[len(steps)-1].dwell; got != 200*time.Millisecond {
			t.Errorf("bootSequence(%v) final dwell = %v, want 200ms", mode, got)
		}
		for _, s := range steps {
			switch s.dwell {
			case 0, 50 * time.Millisecond, 100 * time.Millisecond, 200 * time.Millisecond:
			default:
				t.Errorf("bootSequence(%v) has unexpected dwell %v", mode, s.dwell)
			}
		}
	}
}

func TestHardwareReset_PulsesDTRWithRTSLow(t *testing.T) {
	rec := &lineRecorder{}
	if err := HardwareReset(rec); err != nil {
		t.Fatalf("HardwareReset error = %v", err)
	}

	want := []string{"rts:0", "dtr:1", "dtr:0", "dtr:1"}
	if len(rec.ops) != len(want) {
		t.Fatalf("ops = %v, want %v", rec.ops, want)
	}
	for i := range want {
		if rec.ops[i] != want[i] {
			t.Errorf("ops[%d] = %s, want %s", i, rec.ops[i], want[i])
		}
	}
}

func TestDefaultBootLineConfig(t *testing.T) {
	cfg := DefaultBootLineConfig()
	if cfg.BootLevel != LevelHigh {
		t.Errorf("BootLevel = %v, want LevelHigh", cfg.BootLevel)
	}
	if cfg.ResetAssertLevel != LevelLow {
		t.Errorf("ResetAssertLevel = %v, want LevelLow", cfg.ResetAssertLevel)
	}
}
