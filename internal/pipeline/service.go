// Package pipeline runs batches of files through probe, plan and encode.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"webmify/internal/encoder"
	"webmify/internal/model"
	"webmify/internal/planner"
	"webmify/internal/probe"
	"webmify/internal/progress"
	"webmify/internal/util"
	"webmify/internal/util/format"
	"webmify/internal/util/media"
)

// ErrUnexpected wraps a panic recovered while converting a file.
var ErrUnexpected = errors.New("unexpected error")

// Reasons attached to results that were not caused by the file itself.
const (
	ReasonCancelled     = "cancelled"
	ReasonOverwritesSrc = "output path is the input file"
)

// Converter drives the per-file state machine over a batch of inputs.
type Converter struct {
	ffmpegPath  string
	ffprobePath string
	runner      util.CmdRunner
	reporter    progress.Reporter
	logger      zerolog.Logger
	concurrency int
	verbose     bool
}

// Option configures a Converter.
type Option func(*Converter)

// WithFFmpegPath sets the ffmpeg binary path.
func WithFFmpegPath(p string) Option {
	return func(c *Converter) {
		c.ffmpegPath = p
	}
}

// WithFFprobePath sets the ffprobe binary path.
func WithFFprobePath(p string) Option {
	return func(c *Converter) {
		c.ffprobePath = p
	}
}

// WithRunner injects a custom command runner (useful for testing).
func WithRunner(r util.CmdRunner) Option {
	return func(c *Converter) {
		c.runner = r
	}
}

// WithReporter attaches a progress reporter.
func WithReporter(rp progress.Reporter) Option {
	return func(c *Converter) {
		c.reporter = rp
	}
}

// WithLogger sets the logger used for batch and file diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Converter) {
		c.logger = l
	}
}

// WithConcurrency sets how many files are converted at once. Values below 1
// mean 1.
func WithConcurrency(n int) Option {
	return func(c *Converter) {
		c.concurrency = n
	}
}

// WithVerbose forwards raw ffmpeg output to the reporter as Log events.
func WithVerbose(v bool) Option {
	return func(c *Converter) {
		c.verbose = v
	}
}

// NewConverter constructs a Converter with the provided options.
func NewConverter(opts ...Option) *Converter {
	c := &Converter{logger: zerolog.Nop()}
	for _, o := range opts {
		o(c)
	}
	if c.runner == nil {
		c.runner = util.NewDefaultRunner()
	}
	if c.reporter == nil {
		c.reporter = progress.Nop{}
	}
	if c.concurrency < 1 {
		c.concurrency = 1
	}
	return c
}

// Summary tallies the outcomes of a batch. Results are in input order.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Results   []progress.Result
}

// OK reports whether every file converted.
func (s Summary) OK() bool {
	return s.Succeeded == s.Total
}

func (s *Summary) add(r progress.Result) {
	s.Results = append(s.Results, r)
	switch r.Outcome {
	case progress.OutcomeSuccess:
		s.Succeeded++
	case progress.OutcomeSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
}

// Run converts every input into outDir. File-scoped problems become Failed
// or Skipped results; only an invalid batch returns an error, in which case
// nothing is reported.
//
// Exactly one Result is reported per input, in input order, each followed
// by a Batch event.
func (c *Converter) Run(ctx context.Context, inputs []string, outDir string, opts model.ConversionOptions) (Summary, error) {
	if err := ValidateBatch(inputs, outDir, opts); err != nil {
		return Summary{}, err
	}

	total := len(inputs)
	log := c.logger.With().Str("batch_id", uuid.NewString()).Logger()
	log.Info().
		Int("files", total).
		Str("out_dir", outDir).
		Int("jobs", c.concurrency).
		Msg("batch started")

	for _, in := range inputs {
		c.stage(in, progress.StagePending, "")
	}

	results := make([]chan progress.Result, total)
	for i := range results {
		results[i] = make(chan progress.Result, 1)
	}

	g := new(errgroup.Group)
	g.SetLimit(c.concurrency)
	submitted := make(chan struct{})
	go func() {
		defer close(submitted)
		for i, in := range inputs {
			i, in := i, in
			if ctx.Err() != nil {
				results[i] <- skipped(in, ReasonCancelled)
				continue
			}
			g.Go(func() error {
				results[i] <- c.convertOne(ctx, log, in, outDir, opts)
				return nil
			})
		}
	}()

	sum := Summary{Total: total}
	for i := range results {
		r := <-results[i]
		sum.add(r)
		c.stage(r.FilePath, r.Outcome.Stage(), r.Reason)
		c.reporter.Result(r)
		c.reporter.Batch(progress.Batch{Completed: i + 1, Total: total})
	}
	<-submitted
	_ = g.Wait()

	log.Info().
		Int("succeeded", sum.Succeeded).
		Int("failed", sum.Failed).
		Int("skipped", sum.Skipped).
		Msg("batch finished")
	return sum, nil
}

// convertOne never panics and always returns a terminal result.
func (c *Converter) convertOne(ctx context.Context, log zerolog.Logger, path, outDir string, opts model.ConversionOptions) (res progress.Result) {
	log = log.With().Str("file", path).Logger()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", ErrUnexpected, r)
			log.Error().Err(err).Bytes("stack", debug.Stack()).Msg("conversion panicked")
			res = progress.Result{FilePath: path, Outcome: progress.OutcomeFailed, Reason: ErrUnexpected.Error()}
		}
	}()

	if ctx.Err() != nil {
		return skipped(path, ReasonCancelled)
	}

	outPath := media.OutputPath(outDir, path)
	if media.SamePath(path, outPath) {
		log.Warn().Str("output", outPath).Msg("skipping, output would replace input")
		return skipped(path, ReasonOverwritesSrc)
	}

	c.stage(path, progress.StageProbing, "")
	info, err := c.prober().Probe(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return skipped(path, ReasonCancelled)
		}
		log.Warn().Err(err).Msg("probe failed")
		return skipped(path, err.Error())
	}
	log.Debug().
		Str("duration", format.Clock(info.DurationSec)).
		Str("bitrate", format.Kbps(info.BitrateKbps)).
		Msg("probed")

	c.stage(path, progress.StagePlanning, "")
	plan, err := planner.Plan(info, opts, path, outPath)
	if err != nil {
		log.Warn().Err(err).Msg("planning failed")
		return skipped(path, err.Error())
	}
	if plan.ResolutionReduced {
		msg := fmt.Sprintf("reducing resolution to %s to meet target size", plan.Resolution)
		log.Info().Msg(msg)
		c.stage(path, progress.StagePlanning, msg)
	}

	c.reporter.Update(progress.Update{FilePath: path, Stage: progress.StageEncoding, Percent: 0})
	out, err := encoder.Encode(ctx, plan, opts, c.encoderOptions(log, path, info.DurationSec))
	res = progress.Result{FilePath: path, Plan: &plan}
	if err != nil {
		res.Outcome = progress.OutcomeFailed
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			res.Reason = ReasonCancelled
		} else {
			res.Reason = err.Error()
		}
		log.Warn().Err(err).Msg("encode failed")
		return res
	}

	res.Outcome = progress.OutcomeSuccess
	res.OutputPath = out.OutputPath
	res.Bytes = out.Bytes
	log.Info().
		Str("output", out.OutputPath).
		Str("size", format.HumanizeBytes(out.Bytes)).
		Msg("converted")
	return res
}

func (c *Converter) encoderOptions(log zerolog.Logger, path string, durationSec float64) encoder.Options {
	eo := encoder.Options{
		FFmpegPath:  c.ffmpegPath,
		Runner:      c.runner,
		DurationSec: durationSec,
		Logger:      log,
		OnProgress: func(pct float64) {
			c.reporter.Update(progress.Update{FilePath: path, Stage: progress.StageEncoding, Percent: pct})
		},
	}
	if c.verbose {
		eo.OnLine = func(line string) {
			c.reporter.Log(progress.Log{FilePath: path, Stream: progress.StreamStderr, Line: line})
		}
	}
	return eo
}

func (c *Converter) prober() *probe.Prober {
	return probe.NewProber(c.ffprobePath, c.runner)
}

// stage reports a state transition. Percent is unknown for transitions.
func (c *Converter) stage(path string, st progress.Stage, msg string) {
	c.reporter.Update(progress.Update{FilePath: path, Stage: st, Percent: -1, Message: msg})
}

func skipped(path, reason string) progress.Result {
	return progress.Result{FilePath: path, Outcome: progress.OutcomeSkipped, Reason: reason}
}
