package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"webmify/internal/model"
	"webmify/internal/pipeline"
	"webmify/internal/util"
	"webmify/internal/util/format"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "plan [files...]",
		Short:         "Probe and plan each file without encoding",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		RunE:          runPlan,
	}
	bindPlanFlags(cmd.Flags())
	return cmd
}

func runPlan(cmd *cobra.Command, args []string) error {
	in, err := assembleRunInputs(cmd, args)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	closeLog, err := setupLogging(in.Settings, false)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	defer closeLog()

	ffmpegPath, ffprobePath, err := findTools(in.Settings)
	if err != nil {
		return &ExitError{Code: ExitMissingDep, Err: err}
	}
	conv := pipeline.NewConverter(
		pipeline.WithFFmpegPath(ffmpegPath),
		pipeline.WithFFprobePath(ffprobePath),
	)

	var rows [][]string
	var commands []string
	failed := 0
	for _, path := range in.Files {
		fp, err := conv.PlanFile(cmd.Context(), path, in.OutDir, in.Options)
		if err != nil {
			failed++
			rows = append(rows, []string{filepath.Base(path), format.Clock(fp.Info.DurationSec), "", "", "", "", "skip: " + err.Error()})
			continue
		}
		rows = append(rows, planRow(path, fp))
		commands = append(commands, util.ShellQuote(ffmpegPath, fp.Args))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable(
		[]string{"File", "Duration", "Total", "Video", "Audio", "Resolution", "Output"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	))
	if len(commands) > 0 {
		fmt.Fprintln(out)
		for _, c := range commands {
			fmt.Fprintln(out, c)
		}
	}

	if failed > 0 {
		return &ExitError{Code: ExitConversion, Err: fmt.Errorf("%d of %d file(s) cannot be converted", failed, len(in.Files))}
	}
	return nil
}

func planRow(path string, fp pipeline.FilePlan) []string {
	p := fp.Plan
	total, video := "-", "quality "+strconv.Itoa(p.Quality)
	if !p.QualityOnly() {
		total = fmt.Sprintf("%.1f kb/s", p.TotalBitrateKbps)
		video = fmt.Sprintf("%d kb/s", int(p.VideoBitrateKbps))
	}
	audio := "none"
	if p.AudioBitrateKbps > 0 {
		audio = fmt.Sprintf("%d kb/s", p.AudioBitrateKbps)
	}
	return []string{
		filepath.Base(path),
		format.Clock(fp.Info.DurationSec),
		total,
		video,
		audio,
		resolutionCell(p),
		p.OutputPath,
	}
}

func resolutionCell(p model.EncodePlan) string {
	if p.Resolution == nil {
		return "source"
	}
	if p.ResolutionReduced {
		return p.Resolution.String() + " (reduced)"
	}
	return p.Resolution.String()
}
