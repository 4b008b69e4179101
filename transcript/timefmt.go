package transcript

import (
	"fmt"
	"time"
)

// VTTTimestamp formats a millisecond offset as a WebVTT clock value
// (HH:MM:SS.mmm). Negative offsets clamp to zero.
func VTTTimestamp(ms int64) string {
	h, m, s, frac := splitClock(ms)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, frac)
}

// SRTTimestamp formats a millisecond offset as an SRT clock value
// (HH:MM:SS,mmm). Negative offsets clamp to zero.
func SRTTimestamp(ms int64) string {
	h, m, s, frac := splitClock(ms)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, frac)
}

func splitClock(ms int64) (h, m, s, frac int64) {
	if ms < 0 {
		ms = 0
	}
	h = ms / 3600000
	m = (ms % 3600000) / 60000
	s = (ms % 60000) / 1000
	frac = ms % 1000
	return
}

func isoTimestamp(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z")
}
