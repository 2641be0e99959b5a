package encoder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"webmify/internal/model"
	"webmify/internal/util"
)

// tailLines is how much ffmpeg stderr a ProcessError keeps.
const tailLines = 20

// Options control ffmpeg execution.
type Options struct {
	FFmpegPath  string
	Verbose     bool
	Runner      util.CmdRunner
	DurationSec float64 // source duration, drives OnProgress

	OnProgress func(percent float64) // called with monotonic percentages
	OnLine     func(line string)     // raw ffmpeg stderr lines
	Logger     zerolog.Logger
}

// Output describes a finished encode.
type Output struct {
	OutputPath string
	Bytes      int64
}

// ProcessError reports a non-zero ffmpeg exit.
type ProcessError struct {
	Code int
	Tail []string // last stderr lines
	Err  error
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("ffmpeg exited with code %d", e.Code)
	if n := len(e.Tail); n > 0 {
		msg += ": " + strings.TrimSpace(e.Tail[n-1])
	}
	return msg
}

func (e *ProcessError) Unwrap() error { return e.Err }

// Encode runs ffmpeg for plan and returns the size of the produced file.
// A partial output is removed when ffmpeg fails or is cancelled.
func Encode(ctx context.Context, plan model.EncodePlan, conv model.ConversionOptions, opts Options) (Output, error) {
	if opts.FFmpegPath == "" {
		return Output{}, errors.New("ffmpeg path is required")
	}
	if plan.InputPath == "" {
		return Output{}, errors.New("input path is required")
	}
	if plan.OutputPath == "" {
		return Output{}, errors.New("output path is required")
	}
	runner := opts.Runner
	if runner == nil {
		runner = util.NewDefaultRunner()
	}

	if err := util.EnsureDir(filepath.Dir(plan.OutputPath)); err != nil {
		return Output{}, fmt.Errorf("ensure output dir: %w", err)
	}

	args := BuildArgs(plan, conv)
	opts.Logger.Debug().
		Str("input", plan.InputPath).
		Str("cmd", util.ShellQuote(opts.FFmpegPath, args)).
		Msg("encode")

	parser := NewProgressParser(opts.DurationSec)
	tail := newRing(tailLines)

	res, runErr := runner.Run(ctx, util.CmdSpec{
		Path:    opts.FFmpegPath,
		Args:    args,
		Verbose: opts.Verbose,
		StderrLine: func(line string) {
			tail.add(line)
			if opts.OnLine != nil {
				opts.OnLine(line)
			}
			if pct, ok := parser.Feed(line); ok && opts.OnProgress != nil {
				opts.OnProgress(pct)
			}
		},
	})
	if runErr != nil {
		// Delete incomplete file
		_ = util.RemoveIfExists(plan.OutputPath)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Output{}, fmt.Errorf("ffmpeg interrupted: %w", ctxErr)
		}
		return Output{}, &ProcessError{Code: res.Code, Tail: tail.lines(), Err: runErr}
	}

	fi, err := os.Stat(plan.OutputPath)
	if err != nil {
		return Output{}, fmt.Errorf("stat output: %w", err)
	}
	return Output{OutputPath: plan.OutputPath, Bytes: fi.Size()}, nil
}

// ring keeps the last n lines written to it.
type ring struct {
	mu   sync.Mutex
	buf  []string
	next int
	full bool
}

func newRing(n int) *ring {
	return &ring{buf: make([]string, n)}
}

func (r *ring) add(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = line
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

func (r *ring) lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append([]string(nil), r.buf[:r.next]...)
	}
	out := make([]string, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}
