package encoder

import (
	"strconv"

	"webmify/internal/model"
)

// BuildArgs constructs the ffmpeg arguments for a WebM (libvpx + libvorbis)
// encode of plan. Extra arguments are passed through verbatim, right before
// the output path.
func BuildArgs(plan model.EncodePlan, opts model.ConversionOptions) []string {
	args := []string{
		"-y",
		"-i", plan.InputPath,
		"-vcodec", "libvpx",
		"-cpu-used", "5",
		"-deadline", "realtime",
	}

	quality := strconv.Itoa(plan.Quality)
	if plan.VideoBitrateKbps > 0 {
		args = append(args, "-b:v", kbps(int(plan.VideoBitrateKbps)), "-crf", quality)
	} else {
		// constrained quality off: pure CRF mode
		args = append(args, "-crf", quality, "-b:v", "0")
	}

	if plan.Resolution != nil {
		args = append(args, "-vf", "scale="+plan.Resolution.String())
	}

	if opts.IncludeAudio {
		args = append(args, "-c:a", "libvorbis", "-b:a", kbps(plan.AudioBitrateKbps))
	} else {
		args = append(args, "-an")
	}

	args = append(args, opts.ExtraArgs...)
	args = append(args, plan.OutputPath)
	return args
}

func kbps(v int) string {
	return strconv.Itoa(v) + "k"
}
