package encoder

import (
	"regexp"
	"strconv"

	"webmify/internal/util/bitrate"
)

var timeRe = regexp.MustCompile(`time=(\d{2}):(\d{2}):(\d{2}\.\d{2})`)

// ProgressParser turns ffmpeg stats lines into a completion percentage for
// one file. The reported value never goes backwards.
type ProgressParser struct {
	totalSec float64
	last     float64
}

// NewProgressParser returns a parser for an input of totalSec seconds.
func NewProgressParser(totalSec float64) *ProgressParser {
	return &ProgressParser{totalSec: totalSec}
}

// Feed parses one line. ok is false when the line carries no position or
// the total duration is unknown.
func (p *ProgressParser) Feed(line string) (percent float64, ok bool) {
	if !(p.totalSec > 0) {
		return 0, false
	}
	cur, ok := ParseTime(line)
	if !ok {
		return 0, false
	}
	percent = bitrate.Clamp(cur/p.totalSec*100, 0, 100)
	if percent < p.last {
		percent = p.last
	}
	p.last = percent
	return percent, true
}

// Percent returns the highest value reported so far.
func (p *ProgressParser) Percent() float64 {
	return p.last
}

// ParseTime extracts the encoder position in seconds from a stats line such
// as "frame=  48 fps=0.0 q=0.0 size=256kB time=00:00:02.00 bitrate=...".
func ParseTime(line string) (float64, bool) {
	m := timeRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	sec, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, false
	}
	return float64(h*3600+min*60) + sec, true
}
