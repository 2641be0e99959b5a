package bitrate

// TotalKbps returns the overall bitrate (kb/s) that fits targetSizeKB into
// durationSec: kilobytes * 8 = kilobits, divided by seconds. No rounding.
// Callers must reject non-positive durations first.
func TotalKbps(targetSizeKB int, durationSec float64) float64 {
	return float64(targetSizeKB*8) / durationSec
}

// Scale multiplies both dimensions by factor and truncates toward zero.
func Scale(width, height int, factor float64) (int, int) {
	return int(float64(width) * factor), int(float64(height) * factor)
}

// Clamp returns v constrained to [min, max].
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
