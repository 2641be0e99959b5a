// Package config resolves command settings from flags, environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"webmify/internal/dirs"
)

// EnvPrefix is prepended to every environment override (WEBMIFY_OUT_DIR, ...).
const EnvPrefix = "WEBMIFY"

// Load builds a Viper instance for cmd. Keys are the flag names.
// Precedence: explicit flag > environment > config file > flag default.
//
// The config file is --config when given, else config.{yaml,toml,json} in
// the user config directory. A missing default file is not an error.
func Load(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()

	// Environment variables: WEBMIFY_*
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.InheritedFlags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	explicit := v.GetString("config")
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		if cfgDir, err := dirs.ConfigDir(); err == nil {
			v.AddConfigPath(cfgDir)
		}
		v.SetConfigName("config") // supports config.{yaml|yml|json|toml}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
		case explicit == "" && errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Settings are the resolved values shared by the conversion commands.
type Settings struct {
	OutDir      string
	Verbose     bool
	FFmpeg      string
	FFprobe     string
	Jobs        int
	LogLevel    string
	LogFile     string
	TargetSize  int
	Quality     int
	Resolution  string
	AudioKbps   int
	NoAudio     bool
	ExtraArgs   string
	QualityOnly bool
	NoUI        bool
	ConfigUsed  string
}

// Resolve reads Settings out of v.
func Resolve(v *viper.Viper) Settings {
	return Settings{
		OutDir:      v.GetString("out-dir"),
		Verbose:     v.GetBool("verbose"),
		FFmpeg:      v.GetString("ffmpeg"),
		FFprobe:     v.GetString("ffprobe"),
		Jobs:        v.GetInt("jobs"),
		LogLevel:    v.GetString("log-level"),
		LogFile:     v.GetString("log-file"),
		TargetSize:  v.GetInt("target-size"),
		Quality:     v.GetInt("quality"),
		Resolution:  v.GetString("resolution"),
		AudioKbps:   v.GetInt("audio-bitrate"),
		NoAudio:     v.GetBool("no-audio"),
		ExtraArgs:   v.GetString("extra-args"),
		QualityOnly: v.GetBool("quality-only"),
		NoUI:        v.GetBool("no-ui"),
		ConfigUsed:  v.ConfigFileUsed(),
	}
}
