package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"webmify/internal/encoder"
	"webmify/internal/model"
	"webmify/internal/planner"
	"webmify/internal/util/media"
)

// ErrInvalidBatch is returned before any work starts when the batch
// parameters cannot produce a conversion.
var ErrInvalidBatch = errors.New("invalid batch")

// ValidateBatch checks the parameters shared by every file in a batch.
func ValidateBatch(inputs []string, outDir string, opts model.ConversionOptions) error {
	var problems []string
	if len(inputs) == 0 {
		problems = append(problems, "no input files")
	}
	for _, in := range inputs {
		if strings.TrimSpace(in) == "" {
			problems = append(problems, "empty input path")
			break
		}
	}
	if strings.TrimSpace(outDir) == "" {
		problems = append(problems, "no output directory")
	}
	if !opts.QualityOnly && opts.TargetSizeKB <= 0 {
		problems = append(problems, fmt.Sprintf("target size must be a positive number of KB, got %d", opts.TargetSizeKB))
	}
	if opts.Quality < model.QualityMin || opts.Quality > model.QualityMax {
		problems = append(problems, fmt.Sprintf("quality must be within %d-%d, got %d", model.QualityMin, model.QualityMax, opts.Quality))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidBatch, strings.Join(problems, "; "))
	}
	return nil
}

// Probe inspects a single file with the configured ffprobe.
func (c *Converter) Probe(ctx context.Context, path string) (model.MediaInfo, error) {
	return c.prober().Probe(ctx, path)
}

// FilePlan is the dry-run view of one input.
type FilePlan struct {
	Info model.MediaInfo
	Plan model.EncodePlan
	Args []string // ffmpeg arguments, without the binary
}

// PlanFile probes and plans path without encoding, returning the ffmpeg
// arguments a real run would use.
func (c *Converter) PlanFile(ctx context.Context, path, outDir string, opts model.ConversionOptions) (FilePlan, error) {
	info, err := c.Probe(ctx, path)
	if err != nil {
		return FilePlan{}, err
	}
	plan, err := planner.Plan(info, opts, path, media.OutputPath(outDir, path))
	if err != nil {
		return FilePlan{Info: info}, err
	}
	return FilePlan{
		Info: info,
		Plan: plan,
		Args: encoder.BuildArgs(plan, opts),
	}, nil
}

// FFmpegPath returns the configured ffmpeg binary.
func (c *Converter) FFmpegPath() string {
	return c.ffmpegPath
}
