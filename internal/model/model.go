package model

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Quality bounds for libvpx -crf (0 = best, 63 = worst).
const (
	QualityMin     = 0
	QualityMax     = 63
	QualityDefault = 10
)

// Resolution is a frame size in pixels.
type Resolution struct {
	Width  int
	Height int
}

// String renders the resolution as WxH, the form ffmpeg's scale filter takes.
func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

var resolutionPattern = regexp.MustCompile(`^(\d{3,4})x(\d{3,4})$`)

// ErrResolutionFormat is returned by ParseResolution for anything other than WxH
// with 3-4 digit dimensions.
var ErrResolutionFormat = errors.New("resolution must look like 640x360")

// ParseResolution parses a user supplied resolution such as "1280x720".
func ParseResolution(s string) (Resolution, error) {
	m := resolutionPattern.FindStringSubmatch(s)
	if m == nil {
		return Resolution{}, fmt.Errorf("%w: got %q", ErrResolutionFormat, s)
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	return Resolution{Width: w, Height: h}, nil
}

// MediaInfo is what the probe learned about one input file.
type MediaInfo struct {
	DurationSec float64     // 0 if unknown
	BitrateKbps *int        // nil if unknown
	Resolution  *Resolution // nil if unknown
}

// ConversionOptions holds the per-batch choices made by the caller.
// A value is shared read-only by every file in the batch.
type ConversionOptions struct {
	TargetSizeKB     int // Target output size per file in kB.
	IncludeAudio     bool
	AudioBitrateKbps int
	Resolution       string // Optional user resolution (WxH); validated per file.
	Quality          int    // libvpx -crf, 0..63.
	ExtraArgs        []string
	QualityOnly      bool // Ignore TargetSizeKB and encode in constant-quality mode.
}

// ExtraArgsFromString splits free-form engine arguments on whitespace.
func ExtraArgsFromString(s string) []string {
	return strings.Fields(s)
}

// EncodePlan is the per-file result of planning, consumed by the encoder.
type EncodePlan struct {
	InputPath  string
	OutputPath string

	TotalBitrateKbps float64
	AudioBitrateKbps int
	VideoBitrateKbps float64 // <= 0 means quality-only (no bitrate cap).

	Resolution        *Resolution // nil keeps the source resolution.
	ResolutionReduced bool        // Set when the budget forced a downscale.
	Quality           int
}

// QualityOnly reports whether the plan encodes without a bitrate cap.
func (p EncodePlan) QualityOnly() bool {
	return p.VideoBitrateKbps <= 0
}
