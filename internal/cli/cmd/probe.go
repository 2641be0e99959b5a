package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"webmify/internal/config"
	"webmify/internal/pipeline"
	"webmify/internal/util/deps"
	"webmify/internal/util/format"
)

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "probe [files...]",
		Short:         "Show duration, bitrate and resolution of media files",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		RunE:          runProbe,
	}
}

func runProbe(cmd *cobra.Command, args []string) error {
	v, err := config.Load(cmd)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	s := config.Resolve(v)
	closeLog, err := setupLogging(s, false)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	defer closeLog()

	ffprobePath, err := deps.FindFFprobe(s.FFprobe)
	if err != nil {
		return &ExitError{Code: ExitMissingDep, Err: err}
	}
	conv := pipeline.NewConverter(pipeline.WithFFprobePath(ffprobePath))

	var rows [][]string
	failed := 0
	for _, path := range args {
		info, err := conv.Probe(cmd.Context(), path)
		if err != nil {
			failed++
			rows = append(rows, []string{filepath.Base(path), "error", "", "", err.Error()})
			continue
		}
		res := "Unknown"
		if info.Resolution != nil {
			res = info.Resolution.String()
		}
		rows = append(rows, []string{
			filepath.Base(path),
			format.Clock(info.DurationSec),
			format.Kbps(info.BitrateKbps),
			res,
			"",
		})
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"File", "Duration", "Bitrate", "Resolution", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignLeft},
	))
	if failed > 0 {
		return &ExitError{Code: ExitConversion, Err: fmt.Errorf("%d of %d file(s) could not be probed", failed, len(args))}
	}
	return nil
}
