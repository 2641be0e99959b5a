package cmd

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"webmify/internal/config"
	"webmify/internal/util"
	"webmify/internal/util/deps"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "doctor",
		Short:         "Diagnose external dependencies (ffmpeg, ffprobe)",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.Load(cmd)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			s := config.Resolve(v)

			ff, ferr := deps.FindFFmpeg(s.FFmpeg)
			if ferr != nil {
				return &ExitError{Code: ExitMissingDep, Err: ferr}
			}
			fp, perr := deps.FindFFprobe(s.FFprobe)
			if perr != nil {
				return &ExitError{Code: ExitMissingDep, Err: perr}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "FFmpeg:  %s %s\n", ff, toolVersion(cmd, ff))
			fmt.Fprintf(out, "FFprobe: %s %s\n", fp, toolVersion(cmd, fp))
			cfg := s.ConfigUsed
			if cfg == "" {
				cfg = "(none)"
			}
			fmt.Fprintf(out, "Config:  %s\n", cfg)
			return nil
		},
	}
}

// toolVersion returns the first line of `<bin> -version`, parenthesized.
func toolVersion(cmd *cobra.Command, bin string) string {
	res, err := util.Run(cmd.Context(), util.CmdSpec{
		Path:          bin,
		Args:          []string{"-version"},
		CaptureStdout: true,
	})
	if err != nil {
		return "(version unknown)"
	}
	line, _, _ := bytes.Cut(res.Stdout, []byte("\n"))
	return "(" + string(bytes.TrimSpace(line)) + ")"
}
