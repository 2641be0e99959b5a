package probe

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"webmify/internal/model"
	"webmify/internal/util"
)

// Error reports that ffprobe could not be run or exited non-zero.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("probe %q: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Prober runs ffprobe through a CmdRunner.
type Prober struct {
	FFprobePath string
	Runner      util.CmdRunner
	Verbose     bool
}

// NewProber returns a Prober; a nil runner uses os/exec.
func NewProber(ffprobePath string, runner util.CmdRunner) *Prober {
	if runner == nil {
		runner = util.NewDefaultRunner()
	}
	return &Prober{FFprobePath: ffprobePath, Runner: runner}
}

// Args returns the ffprobe arguments used to inspect path.
func Args(path string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration:stream=bit_rate,width,height",
		"-of", "default=noprint_wrappers=1",
		path,
	}
}

// Probe inspects path. Missing fields are reported as unknown in the returned
// MediaInfo rather than as errors; only a failed invocation is an *Error.
func (p *Prober) Probe(ctx context.Context, path string) (model.MediaInfo, error) {
	if p.FFprobePath == "" {
		return model.MediaInfo{}, &Error{Path: path, Err: errors.New("ffprobe path is required")}
	}
	res, err := p.Runner.Run(ctx, util.CmdSpec{
		Path:          p.FFprobePath,
		Args:          Args(path),
		Verbose:       p.Verbose,
		CaptureStdout: true,
	})
	if err != nil {
		return model.MediaInfo{}, &Error{Path: path, Err: err}
	}
	// ffprobe writes the entries to stdout; diagnostics on stderr are harmless
	// to the patterns below.
	out := string(res.Stdout) + string(res.Stderr)
	return Parse(out), nil
}

var (
	durationRe = regexp.MustCompile(`duration=([\d.]+)`)
	bitrateRe  = regexp.MustCompile(`bit_rate=(\d+)`)
	widthRe    = regexp.MustCompile(`width=(\d+)`)
	heightRe   = regexp.MustCompile(`height=(\d+)`)
)

// Parse extracts MediaInfo from ffprobe key=value output. The first match of
// each key wins.
func Parse(out string) model.MediaInfo {
	var info model.MediaInfo

	if m := durationRe.FindStringSubmatch(out); m != nil {
		if d, err := strconv.ParseFloat(m[1], 64); err == nil && d > 0 {
			info.DurationSec = d
		}
	}

	if m := bitrateRe.FindStringSubmatch(out); m != nil {
		if bps, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			kbps := int(bps / 1000)
			info.BitrateKbps = &kbps
		}
	}

	mw := widthRe.FindStringSubmatch(out)
	mh := heightRe.FindStringSubmatch(out)
	if mw != nil && mh != nil {
		w, errW := strconv.Atoi(mw[1])
		h, errH := strconv.Atoi(mh[1])
		if errW == nil && errH == nil {
			info.Resolution = &model.Resolution{Width: w, Height: h}
		}
	}

	return info
}
