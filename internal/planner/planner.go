package planner

import (
	"errors"
	"fmt"

	"webmify/internal/model"
	"webmify/internal/util/bitrate"
)

const (
	// MinVideoBitrateKbps is the floor below which the plan downscales instead
	// of starving the encoder.
	MinVideoBitrateKbps = 50

	// DownscaleFactor is the fixed step applied to each dimension on a
	// bitrate shortfall.
	DownscaleFactor = 0.8
)

// DefaultResolution stands in for the source size when the probe could not
// determine it.
var DefaultResolution = model.Resolution{Width: 640, Height: 360}

var (
	ErrInvalidDuration     = errors.New("invalid duration")
	ErrInvalidAudioBitrate = errors.New("invalid audio bitrate")
	ErrInvalidResolution   = errors.New("invalid resolution format")
)

// Plan computes the encode plan for one file. It is a pure function of its
// arguments.
//
// The size budget is spent on audio first; whatever is left is the video
// bitrate. If that falls under MinVideoBitrateKbps the source resolution is
// reduced by DownscaleFactor and the video bitrate is pinned to the floor.
// Otherwise the user's resolution, if any, is applied as is.
func Plan(info model.MediaInfo, opts model.ConversionOptions, inputPath, outputPath string) (model.EncodePlan, error) {
	plan := model.EncodePlan{
		InputPath:  inputPath,
		OutputPath: outputPath,
		Quality:    opts.Quality,
	}

	if opts.QualityOnly {
		return planQualityOnly(plan, opts)
	}

	if !(info.DurationSec > 0) {
		return model.EncodePlan{}, fmt.Errorf("%w: %v seconds", ErrInvalidDuration, info.DurationSec)
	}
	total := bitrate.TotalKbps(opts.TargetSizeKB, info.DurationSec)

	audio := 0
	if opts.IncludeAudio {
		if opts.AudioBitrateKbps < 0 {
			return model.EncodePlan{}, fmt.Errorf("%w: %d kb/s", ErrInvalidAudioBitrate, opts.AudioBitrateKbps)
		}
		audio = opts.AudioBitrateKbps
	}

	video := total - float64(audio)

	if video < MinVideoBitrateKbps {
		src := DefaultResolution
		if info.Resolution != nil {
			src = *info.Resolution
		}
		w, h := bitrate.Scale(src.Width, src.Height, DownscaleFactor)
		plan.Resolution = &model.Resolution{Width: w, Height: h}
		plan.ResolutionReduced = true
		video = MinVideoBitrateKbps
	} else if opts.Resolution != "" {
		res, err := model.ParseResolution(opts.Resolution)
		if err != nil {
			return model.EncodePlan{}, fmt.Errorf("%w: %q", ErrInvalidResolution, opts.Resolution)
		}
		plan.Resolution = &res
	}

	plan.TotalBitrateKbps = total
	plan.AudioBitrateKbps = audio
	plan.VideoBitrateKbps = video
	return plan, nil
}

func planQualityOnly(plan model.EncodePlan, opts model.ConversionOptions) (model.EncodePlan, error) {
	if opts.IncludeAudio {
		if opts.AudioBitrateKbps < 0 {
			return model.EncodePlan{}, fmt.Errorf("%w: %d kb/s", ErrInvalidAudioBitrate, opts.AudioBitrateKbps)
		}
		plan.AudioBitrateKbps = opts.AudioBitrateKbps
	}
	if opts.Resolution != "" {
		res, err := model.ParseResolution(opts.Resolution)
		if err != nil {
			return model.EncodePlan{}, fmt.Errorf("%w: %q", ErrInvalidResolution, opts.Resolution)
		}
		plan.Resolution = &res
	}
	return plan, nil
}
