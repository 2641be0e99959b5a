package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"webmify/internal/model"
	"webmify/internal/progress"
	"webmify/internal/util"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	ffprobeBin = "/usr/bin/ffprobe"
	ffmpegBin  = "/usr/bin/ffmpeg"
)

type recordingReporter struct {
	mu      sync.Mutex
	updates []progress.Update
	results []progress.Result
	logs    []progress.Log
	batches []progress.Batch
}

func (r *recordingReporter) Update(u progress.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recordingReporter) Log(l progress.Log) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, l)
}

func (r *recordingReporter) Result(res progress.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *recordingReporter) Batch(b progress.Batch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, b)
}

func (r *recordingReporter) updatesFor(path string) []progress.Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []progress.Update
	for _, u := range r.updates {
		if u.FilePath == path {
			out = append(out, u)
		}
	}
	return out
}

// fakeFile scripts the tool behaviour for one input path.
type fakeFile struct {
	probeOut  string
	probeErr  error
	exitCode  int
	stderr    []string
	delay     time.Duration
	panics    bool
	onEncode  func() // runs inside the ffmpeg call
	ctxOnExit bool   // return ctx.Err() from ffmpeg
}

// fakeRunner simulates ffprobe and ffmpeg. Safe for concurrent use.
type fakeRunner struct {
	t     *testing.T
	files map[string]fakeFile

	mu         sync.Mutex
	ffmpegArgs map[string][]string
}

func newFakeRunner(t *testing.T, files map[string]fakeFile) *fakeRunner {
	return &fakeRunner{t: t, files: files, ffmpegArgs: map[string][]string{}}
}

// Run implements util.CmdRunner.Run.
func (f *fakeRunner) Run(ctx context.Context, spec util.CmdSpec) (util.CmdResult, error) {
	switch spec.Path {
	case ffprobeBin:
		in := spec.Args[len(spec.Args)-1]
		ff := f.files[in]
		if ff.probeErr != nil {
			return util.CmdResult{Code: 1, Err: ff.probeErr}, ff.probeErr
		}
		return util.CmdResult{Stdout: []byte(ff.probeOut)}, nil

	case ffmpegBin:
		in := spec.Args[2]
		out := spec.Args[len(spec.Args)-1]
		ff := f.files[in]

		f.mu.Lock()
		f.ffmpegArgs[in] = append([]string(nil), spec.Args...)
		f.mu.Unlock()

		if ff.panics {
			panic("encoder exploded")
		}
		if ff.delay > 0 {
			time.Sleep(ff.delay)
		}
		if err := os.WriteFile(out, []byte("partial-or-complete"), 0o644); err != nil {
			return util.CmdResult{Code: -1}, err
		}
		for _, l := range ff.stderr {
			spec.StderrLine(l)
		}
		if ff.onEncode != nil {
			ff.onEncode()
		}
		if ff.ctxOnExit && ctx.Err() != nil {
			return util.CmdResult{Code: -1, Err: ctx.Err()}, ctx.Err()
		}
		if ff.exitCode != 0 {
			err := fmt.Errorf("exit status %d", ff.exitCode)
			return util.CmdResult{Code: ff.exitCode, Err: err}, err
		}
		return util.CmdResult{}, nil
	}
	f.t.Errorf("unexpected tool path: %s", spec.Path)
	return util.CmdResult{}, errors.New("unexpected tool path: " + spec.Path)
}

func (f *fakeRunner) argsFor(in string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ffmpegArgs[in]
}

func probeOutput(durationSec float64, width, height int) string {
	var b strings.Builder
	if width > 0 {
		fmt.Fprintf(&b, "width=%d\nheight=%d\n", width, height)
	}
	b.WriteString("bit_rate=4500000\n")
	if durationSec > 0 {
		fmt.Fprintf(&b, "duration=%f\n", durationSec)
	}
	return b.String()
}

var encodeLines = []string{
	"Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'in.mp4':",
	"frame=  100 fps=50 q=10.0 size=   256kB time=00:00:15.00 bitrate= 100.0kbits/s",
	"frame=  200 fps=50 q=10.0 size=   512kB time=00:00:30.00 bitrate= 100.0kbits/s",
	"frame=  400 fps=50 q=10.0 Lsize=  1024kB time=00:01:00.00 bitrate= 100.0kbits/s",
}

func defaultOpts() model.ConversionOptions {
	return model.ConversionOptions{
		TargetSizeKB:     3750,
		IncludeAudio:     true,
		AudioBitrateKbps: 160,
		Quality:          model.QualityDefault,
	}
}

func newTestConverter(r util.CmdRunner, rep progress.Reporter, extra ...Option) *Converter {
	opts := []Option{
		WithFFmpegPath(ffmpegBin),
		WithFFprobePath(ffprobeBin),
		WithRunner(r),
		WithReporter(rep),
	}
	return NewConverter(append(opts, extra...)...)
}

func TestNewConverter_Defaults(t *testing.T) {
	c := NewConverter()
	assert.NotNil(t, c.runner)
	assert.Equal(t, progress.Nop{}, c.reporter)
	assert.Equal(t, 1, c.concurrency)

	c = NewConverter(WithConcurrency(-3), WithVerbose(true), WithFFmpegPath("ff"))
	assert.Equal(t, 1, c.concurrency)
	assert.True(t, c.verbose)
	assert.Equal(t, "ff", c.FFmpegPath())
}

func TestConverter_Run_ContinuesAfterFailure(t *testing.T) {
	outDir := t.TempDir()
	inputs := []string{"/videos/a.mp4", "/videos/b.mp4", "/videos/c.mp4"}
	runner := newFakeRunner(t, map[string]fakeFile{
		"/videos/a.mp4": {probeOut: probeOutput(60, 1920, 1080), stderr: encodeLines},
		"/videos/b.mp4": {probeOut: probeOutput(60, 1920, 1080), stderr: encodeLines[:2], exitCode: 1},
		"/videos/c.mp4": {probeOut: probeOutput(60, 1280, 720), stderr: encodeLines},
	})
	rep := &recordingReporter{}

	sum, err := newTestConverter(runner, rep).Run(context.Background(), inputs, outDir, defaultOpts())
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 2, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 0, sum.Skipped)
	assert.False(t, sum.OK())

	require.Len(t, rep.results, 3)
	for i, in := range inputs {
		assert.Equal(t, in, rep.results[i].FilePath)
	}
	assert.Equal(t, progress.OutcomeSuccess, rep.results[0].Outcome)
	assert.Equal(t, progress.OutcomeFailed, rep.results[1].Outcome)
	assert.Contains(t, rep.results[1].Reason, "exited with code 1")
	assert.Equal(t, progress.OutcomeSuccess, rep.results[2].Outcome)

	assert.Equal(t, []progress.Batch{{Completed: 1, Total: 3}, {Completed: 2, Total: 3}, {Completed: 3, Total: 3}}, rep.batches)

	assert.FileExists(t, filepath.Join(outDir, "a.webm"))
	assert.NoFileExists(t, filepath.Join(outDir, "b.webm"))
	assert.FileExists(t, filepath.Join(outDir, "c.webm"))
	assert.Equal(t, filepath.Join(outDir, "a.webm"), rep.results[0].OutputPath)
	assert.Positive(t, rep.results[0].Bytes)
}

func TestConverter_Run_Plans(t *testing.T) {
	tests := []struct {
		name         string
		probeOut     string
		opts         model.ConversionOptions
		wantArgs     []string
		wantNotArgs  []string
		wantReduced  bool
		wantVideoBit float64
	}{
		{
			name:         "budget covers video",
			probeOut:     probeOutput(60, 1920, 1080),
			opts:         defaultOpts(),
			wantArgs:     []string{"-b:v 340k -crf 10", "-c:a libvorbis -b:a 160k"},
			wantNotArgs:  []string{"-vf"},
			wantVideoBit: 340,
		},
		{
			name:     "shortfall downscales",
			probeOut: probeOutput(300, 1920, 1080),
			opts: model.ConversionOptions{
				TargetSizeKB: 1000, IncludeAudio: true, AudioBitrateKbps: 160, Quality: 10,
			},
			wantArgs:     []string{"-b:v 50k -crf 10", "-vf scale=1536x864"},
			wantReduced:  true,
			wantVideoBit: 50,
		},
		{
			name:     "quality only",
			probeOut: probeOutput(0, 0, 0),
			opts:     model.ConversionOptions{QualityOnly: true, Quality: 20, Resolution: "1280x720"},
			wantArgs: []string{"-crf 20 -b:v 0", "-vf scale=1280x720", "-an"},
		},
		{
			name:     "extra args forwarded",
			probeOut: probeOutput(60, 1920, 1080),
			opts: model.ConversionOptions{
				TargetSizeKB: 3750, Quality: 10, ExtraArgs: model.ExtraArgsFromString("-threads 4"),
			},
			wantArgs:     []string{"-b:v 500k -crf 10 -an -threads 4 "},
			wantVideoBit: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outDir := t.TempDir()
			in := "/videos/clip.mp4"
			runner := newFakeRunner(t, map[string]fakeFile{in: {probeOut: tt.probeOut, stderr: encodeLines}})
			rep := &recordingReporter{}

			sum, err := newTestConverter(runner, rep).Run(context.Background(), []string{in}, outDir, tt.opts)
			require.NoError(t, err)
			require.True(t, sum.OK(), "result: %+v", sum.Results)

			args := strings.Join(runner.argsFor(in), " ")
			for _, want := range tt.wantArgs {
				assert.Contains(t, args, want)
			}
			for _, notWant := range tt.wantNotArgs {
				assert.NotContains(t, args, notWant)
			}

			plan := sum.Results[0].Plan
			require.NotNil(t, plan)
			assert.Equal(t, tt.wantReduced, plan.ResolutionReduced)
			assert.Equal(t, tt.wantVideoBit, plan.VideoBitrateKbps)
		})
	}
}

func TestConverter_Run_Skips(t *testing.T) {
	tests := []struct {
		name       string
		file       fakeFile
		opts       model.ConversionOptions
		wantReason string
	}{
		{
			name:       "probe failure",
			file:       fakeFile{probeErr: errors.New("exit status 1")},
			opts:       defaultOpts(),
			wantReason: "probe",
		},
		{
			name:       "no duration",
			file:       fakeFile{probeOut: probeOutput(0, 1920, 1080)},
			opts:       defaultOpts(),
			wantReason: "invalid duration",
		},
		{
			name: "negative audio bitrate",
			file: fakeFile{probeOut: probeOutput(60, 1920, 1080)},
			opts: model.ConversionOptions{
				TargetSizeKB: 3750, IncludeAudio: true, AudioBitrateKbps: -1, Quality: 10,
			},
			wantReason: "invalid audio bitrate",
		},
		{
			name: "bad resolution",
			file: fakeFile{probeOut: probeOutput(60, 1920, 1080)},
			opts: model.ConversionOptions{
				TargetSizeKB: 3750, IncludeAudio: true, AudioBitrateKbps: 160, Quality: 10, Resolution: "720p",
			},
			wantReason: "invalid resolution",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := "/videos/clip.mp4"
			runner := newFakeRunner(t, map[string]fakeFile{in: tt.file})
			rep := &recordingReporter{}

			sum, err := newTestConverter(runner, rep).Run(context.Background(), []string{in}, t.TempDir(), tt.opts)
			require.NoError(t, err)

			assert.Equal(t, 1, sum.Skipped)
			require.Len(t, rep.results, 1)
			assert.Equal(t, progress.OutcomeSkipped, rep.results[0].Outcome)
			assert.Contains(t, rep.results[0].Reason, tt.wantReason)
			assert.Nil(t, runner.argsFor(in), "ffmpeg must not run")
		})
	}
}

func TestConverter_Run_OutputWouldReplaceInput(t *testing.T) {
	outDir := t.TempDir()
	in := filepath.Join(outDir, "clip.webm")
	runner := newFakeRunner(t, map[string]fakeFile{in: {probeOut: probeOutput(60, 640, 360)}})
	rep := &recordingReporter{}

	sum, err := newTestConverter(runner, rep).Run(context.Background(), []string{in}, outDir, defaultOpts())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, ReasonOverwritesSrc, rep.results[0].Reason)
}

func TestConverter_Run_StageOrderAndProgress(t *testing.T) {
	in := "/videos/clip.mp4"
	runner := newFakeRunner(t, map[string]fakeFile{in: {probeOut: probeOutput(60, 1920, 1080), stderr: encodeLines}})
	rep := &recordingReporter{}

	_, err := newTestConverter(runner, rep).Run(context.Background(), []string{in}, t.TempDir(), defaultOpts())
	require.NoError(t, err)

	var stages []progress.Stage
	var percents []float64
	for _, u := range rep.updatesFor(in) {
		if len(stages) == 0 || stages[len(stages)-1] != u.Stage {
			stages = append(stages, u.Stage)
		}
		if u.Stage == progress.StageEncoding && u.Percent >= 0 {
			percents = append(percents, u.Percent)
		}
	}
	assert.Equal(t, []progress.Stage{
		progress.StagePending,
		progress.StageProbing,
		progress.StagePlanning,
		progress.StageEncoding,
		progress.StageSucceeded,
	}, stages)
	assert.Equal(t, []float64{0, 25, 50, 100}, percents)
}

func TestConverter_Run_VerboseForwardsLogs(t *testing.T) {
	in := "/videos/clip.mp4"
	runner := newFakeRunner(t, map[string]fakeFile{in: {probeOut: probeOutput(60, 1920, 1080), stderr: encodeLines}})
	rep := &recordingReporter{}

	_, err := newTestConverter(runner, rep, WithVerbose(true)).Run(context.Background(), []string{in}, t.TempDir(), defaultOpts())
	require.NoError(t, err)

	require.Len(t, rep.logs, len(encodeLines))
	assert.Equal(t, progress.StreamStderr, rep.logs[0].Stream)
	assert.Equal(t, in, rep.logs[0].FilePath)
}

func TestConverter_Run_OrderedWithConcurrency(t *testing.T) {
	outDir := t.TempDir()
	inputs := []string{"/videos/slow.mp4", "/videos/fast1.mp4", "/videos/fast2.mp4", "/videos/fast3.mp4"}
	files := map[string]fakeFile{}
	for _, in := range inputs {
		files[in] = fakeFile{probeOut: probeOutput(60, 640, 360), stderr: encodeLines}
	}
	slow := files[inputs[0]]
	slow.delay = 50 * time.Millisecond
	files[inputs[0]] = slow

	rep := &recordingReporter{}
	sum, err := newTestConverter(newFakeRunner(t, files), rep, WithConcurrency(3)).
		Run(context.Background(), inputs, outDir, defaultOpts())
	require.NoError(t, err)

	assert.True(t, sum.OK())
	require.Len(t, rep.results, len(inputs))
	for i, in := range inputs {
		assert.Equal(t, in, rep.results[i].FilePath)
		assert.Equal(t, in, sum.Results[i].FilePath)
		assert.Equal(t, progress.Batch{Completed: i + 1, Total: len(inputs)}, rep.batches[i])
	}
}

func TestConverter_Run_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inputs := []string{"/videos/a.mp4", "/videos/b.mp4", "/videos/c.mp4"}
	files := map[string]fakeFile{
		"/videos/a.mp4": {probeOut: probeOutput(60, 640, 360), stderr: encodeLines[:2], onEncode: cancel, ctxOnExit: true},
		"/videos/b.mp4": {probeOut: probeOutput(60, 640, 360)},
		"/videos/c.mp4": {probeOut: probeOutput(60, 640, 360)},
	}
	outDir := t.TempDir()
	runner := newFakeRunner(t, files)
	rep := &recordingReporter{}

	sum, err := newTestConverter(runner, rep).Run(ctx, inputs, outDir, defaultOpts())
	require.NoError(t, err)

	require.Len(t, sum.Results, 3)
	assert.Equal(t, progress.OutcomeFailed, sum.Results[0].Outcome)
	assert.Equal(t, ReasonCancelled, sum.Results[0].Reason)
	for _, r := range sum.Results[1:] {
		assert.Equal(t, progress.OutcomeSkipped, r.Outcome)
		assert.Equal(t, ReasonCancelled, r.Reason)
	}
	assert.NoFileExists(t, filepath.Join(outDir, "a.webm"))
	assert.Nil(t, runner.argsFor("/videos/b.mp4"))
	assert.Len(t, rep.batches, 3)
}

func TestConverter_Run_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inputs := []string{"/videos/a.mp4", "/videos/b.mp4"}
	rep := &recordingReporter{}
	sum, err := newTestConverter(newFakeRunner(t, nil), rep, WithConcurrency(2)).
		Run(ctx, inputs, t.TempDir(), defaultOpts())
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Skipped)
	assert.Len(t, rep.results, 2)
}

func TestConverter_Run_RecoversPanic(t *testing.T) {
	inputs := []string{"/videos/a.mp4", "/videos/b.mp4"}
	runner := newFakeRunner(t, map[string]fakeFile{
		"/videos/a.mp4": {probeOut: probeOutput(60, 640, 360), panics: true},
		"/videos/b.mp4": {probeOut: probeOutput(60, 640, 360), stderr: encodeLines},
	})
	rep := &recordingReporter{}

	sum, err := newTestConverter(runner, rep).Run(context.Background(), inputs, t.TempDir(), defaultOpts())
	require.NoError(t, err)

	assert.Equal(t, progress.OutcomeFailed, sum.Results[0].Outcome)
	assert.Equal(t, ErrUnexpected.Error(), sum.Results[0].Reason)
	assert.Equal(t, progress.OutcomeSuccess, sum.Results[1].Outcome)
}

func TestConverter_Run_InvalidBatch(t *testing.T) {
	rep := &recordingReporter{}
	c := newTestConverter(newFakeRunner(t, nil), rep)

	_, err := c.Run(context.Background(), nil, t.TempDir(), defaultOpts())
	require.ErrorIs(t, err, ErrInvalidBatch)
	assert.Empty(t, rep.updates)
	assert.Empty(t, rep.results)
	assert.Empty(t, rep.batches)
}

func TestValidateBatch(t *testing.T) {
	tests := []struct {
		name    string
		inputs  []string
		outDir  string
		opts    model.ConversionOptions
		wantErr string
	}{
		{name: "valid", inputs: []string{"a.mp4"}, outDir: "out", opts: defaultOpts()},
		{name: "no inputs", outDir: "out", opts: defaultOpts(), wantErr: "no input files"},
		{name: "blank input", inputs: []string{" "}, outDir: "out", opts: defaultOpts(), wantErr: "empty input path"},
		{name: "no out dir", inputs: []string{"a.mp4"}, opts: defaultOpts(), wantErr: "no output directory"},
		{
			name: "zero target size", inputs: []string{"a.mp4"}, outDir: "out",
			opts: model.ConversionOptions{Quality: 10}, wantErr: "target size",
		},
		{
			name: "quality only needs no size", inputs: []string{"a.mp4"}, outDir: "out",
			opts: model.ConversionOptions{QualityOnly: true, Quality: 10},
		},
		{
			name: "quality too high", inputs: []string{"a.mp4"}, outDir: "out",
			opts: model.ConversionOptions{TargetSizeKB: 1, Quality: 64}, wantErr: "quality",
		},
		{
			name: "quality negative", inputs: []string{"a.mp4"}, outDir: "out",
			opts: model.ConversionOptions{TargetSizeKB: 1, Quality: -1}, wantErr: "quality",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBatch(tt.inputs, tt.outDir, tt.opts)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidBatch)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConverter_PlanFile(t *testing.T) {
	in := "/videos/clip.mp4"
	runner := newFakeRunner(t, map[string]fakeFile{in: {probeOut: probeOutput(300, 1920, 1080)}})
	c := newTestConverter(runner, nil)

	fp, err := c.PlanFile(context.Background(), in, "/out", model.ConversionOptions{
		TargetSizeKB: 1000, IncludeAudio: true, AudioBitrateKbps: 160, Quality: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, 300.0, fp.Info.DurationSec)
	assert.Equal(t, filepath.Join("/out", "clip.webm"), fp.Plan.OutputPath)
	assert.True(t, fp.Plan.ResolutionReduced)
	assert.Equal(t, fp.Plan.OutputPath, fp.Args[len(fp.Args)-1])
	assert.Contains(t, strings.Join(fp.Args, " "), "scale=1536x864")
	assert.Nil(t, runner.argsFor(in), "planning must not encode")
}
