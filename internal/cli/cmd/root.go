package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"webmify/internal/model"
)

const (
	ExitOK         = 0
	ExitCLIError   = 1
	ExitMissingDep = 2
	ExitConversion = 3
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "webmify [files...]",
		Short: "Batch-convert videos to size-targeted WebM",
		Long: "webmify converts video files to WebM (VP8 + Vorbis) sized to fit a target file size. " +
			"It probes each input, derives a bitrate from the size budget, drops the resolution when the " +
			"budget is too small, and runs ffmpeg with live progress.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecute(cmd, args, runMode{})
		},
	}

	// Persistent flags available to all subcommands
	pf := root.PersistentFlags()
	pf.StringP("out-dir", "o", ".", "Output directory")
	pf.BoolP("verbose", "v", false, "Show ffmpeg output and debug logs")
	pf.String("ffmpeg", "", "Path to ffmpeg (default: search PATH)")
	pf.String("ffprobe", "", "Path to ffprobe (default: search PATH)")
	pf.Int("jobs", 1, "Files converted at the same time")
	pf.String("config", "", "Config file (default: config.{yaml,toml,json} in the user config dir)")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-file", "", "Write logs to this file (default under the TUI: user state dir)")

	// Also bind run flags on root, so `webmify <file>` works.
	bindRunFlags(root.Flags())

	// Subcommands
	root.AddCommand(newRunCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newProbeCmd())
	root.AddCommand(newTuiCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newCompletionCmd())

	return root
}

func bindRunFlags(fs *pflag.FlagSet) {
	bindPlanFlags(fs)
	fs.Bool("no-ui", false, "Disable TUI; use plain textual output")
}

// bindPlanFlags registers the flags that shape the encode plan.
func bindPlanFlags(fs *pflag.FlagSet) {
	fs.Int("target-size", 0, "Target size per file in KB (required unless --quality-only)")
	fs.Int("quality", model.QualityDefault, "libvpx quality level, 0 (best) to 63")
	fs.String("resolution", "", "Output resolution WxH, e.g. 1280x720 (ignored when the bitrate budget forces a downscale)")
	fs.Int("audio-bitrate", 160, "Audio bitrate in kb/s")
	fs.Bool("no-audio", false, "Drop the audio track")
	fs.String("extra-args", "", "Additional ffmpeg arguments, split on whitespace")
	fs.Bool("quality-only", false, "Ignore the size target and encode at constant quality")
}

// Execute runs the CLI with the provided context.
func Execute(ctx context.Context) error {
	root := newRootCmd()
	return root.ExecuteContext(ctx)
}
