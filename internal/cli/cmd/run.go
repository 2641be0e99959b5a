package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"webmify/internal/config"
	xlog "webmify/internal/log"
	"webmify/internal/model"
	"webmify/internal/pipeline"
	"webmify/internal/progress"
	"webmify/internal/ui"
	"webmify/internal/util"
	"webmify/internal/util/deps"
)

type runMode struct {
	ForceTUI bool
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "run [files...]",
		Short:         "Convert files to WebM",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecute(cmd, args, runMode{})
		},
	}
	bindRunFlags(cmd.Flags())
	return cmd
}

type runInputs struct {
	Files    []string
	OutDir   string
	Options  model.ConversionOptions
	Settings config.Settings
}

// assembleRunInputs resolves flags, environment and config file into the
// batch parameters, and validates them.
func assembleRunInputs(cmd *cobra.Command, args []string) (runInputs, error) {
	v, err := config.Load(cmd)
	if err != nil {
		return runInputs{}, err
	}
	s := config.Resolve(v)
	if s.Jobs <= 0 {
		s.Jobs = 1
	}
	outDir := s.OutDir
	if outDir == "" {
		outDir = "."
	}
	outDir = filepath.Clean(outDir)

	opts := model.ConversionOptions{
		TargetSizeKB:     s.TargetSize,
		IncludeAudio:     !s.NoAudio,
		AudioBitrateKbps: s.AudioKbps,
		Resolution:       s.Resolution,
		Quality:          s.Quality,
		ExtraArgs:        model.ExtraArgsFromString(s.ExtraArgs),
		QualityOnly:      s.QualityOnly,
	}
	if err := pipeline.ValidateBatch(args, outDir, opts); err != nil {
		return runInputs{}, err
	}
	return runInputs{Files: args, OutDir: outDir, Options: opts, Settings: s}, nil
}

func runExecute(cmd *cobra.Command, args []string, mode runMode) error {
	in, err := assembleRunInputs(cmd, args)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}

	// TUI path (forced or auto if TTY and not disabled)
	useTUI := mode.ForceTUI || (!in.Settings.NoUI && isTerminal())

	closeLog, err := setupLogging(in.Settings, useTUI)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	defer closeLog()

	ffmpegPath, ffprobePath, err := findTools(in.Settings)
	if err != nil {
		return &ExitError{Code: ExitMissingDep, Err: err}
	}

	if err := util.EnsureDir(in.OutDir); err != nil {
		return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("failed to create output dir: %v", err)}
	}

	batch := func(ctx context.Context, rep progress.Reporter) (pipeline.Summary, error) {
		conv := pipeline.NewConverter(
			pipeline.WithFFmpegPath(ffmpegPath),
			pipeline.WithFFprobePath(ffprobePath),
			pipeline.WithReporter(rep),
			pipeline.WithLogger(xlog.WithComponent("pipeline")),
			pipeline.WithConcurrency(in.Settings.Jobs),
			pipeline.WithVerbose(in.Settings.Verbose),
		)
		return conv.Run(ctx, in.Files, in.OutDir, in.Options)
	}

	var sum pipeline.Summary
	if useTUI {
		sum, err = ui.Run(cmd.Context(), in.Files, batch)
	} else {
		p := newPlainPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), in.Settings.Verbose, len(in.Files))
		sum, err = p.run(cmd.Context(), batch)
	}
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	return summaryError(sum)
}

// summaryError maps a finished batch onto the process exit status.
func summaryError(sum pipeline.Summary) error {
	if sum.OK() {
		return nil
	}
	return &ExitError{
		Code: ExitConversion,
		Err:  fmt.Errorf("%d of %d file(s) did not convert", sum.Total-sum.Succeeded, sum.Total),
	}
}

func findTools(s config.Settings) (ffmpegPath, ffprobePath string, err error) {
	ffmpegPath, err = deps.FindFFmpeg(s.FFmpeg)
	if err != nil {
		return "", "", err
	}
	ffprobePath, err = deps.FindFFprobe(s.FFprobe)
	if err != nil {
		return "", "", err
	}
	return ffmpegPath, ffprobePath, nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
