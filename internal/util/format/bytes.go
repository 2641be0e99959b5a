package format

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// HumanizeBytes converts a byte count into a human-readable string (e.g., "1.5 MiB").
func HumanizeBytes(b int64) string {
	if b < 0 {
		b = 0
	}
	return humanize.IBytes(uint64(b))
}

// Clock renders seconds as HH:MM:SS.ss, or "Unknown" when seconds is not positive.
func Clock(seconds float64) string {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "Unknown"
	}
	hours := int(seconds / 3600)
	minutes := int(math.Mod(seconds, 3600) / 60)
	secs := math.Mod(seconds, 60)
	return fmt.Sprintf("%02d:%02d:%05.2f", hours, minutes, secs)
}

// Kbps renders a bitrate, or "Unknown" for nil.
func Kbps(v *int) string {
	if v == nil {
		return "Unknown"
	}
	return fmt.Sprintf("%d kb/s", *v)
}
