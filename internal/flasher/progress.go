package flasher

import (
	"strconv"
	"strings"
)

// Progress is a structured progress report decoded from a PROGRESS log
// line.
type Progress struct {
	Phase   string
	Done    int
	Total   int
	Percent int
}

// ParseProgress decodes a "PROGRESS:<phase>:<done>:<total>" line. Host
// sinks call this to separate progress events from ordinary log text.
func ParseProgress(msg string) (Progress, bool) {
	if !strings.HasPrefix(msg, "PROGRESS:") {
		return Progress{}, false
	}

	parts := strings.Split(msg, ":")
	if len(parts) != 4 {
		return Progress{}, false
	}

	done, err := strconv.Atoi(parts[2])
	if err != nil || done < 0 {
		return Progress{}, false
	}
	total, err := strconv.Atoi(parts[3])
	if err != nil || total < 0 {
		return Progress{}, false
	}

	p := Progress{Phase: parts[1], Done: done, Total: total}
	if total > 0 {
		p.Percent = done * 100 / total
	}
	return p, true
}
