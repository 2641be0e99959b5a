// Package dirs locates per-user config and state directories.
package dirs

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName is the directory name used under every base dir.
const AppName = "webmify"

// location describes where one kind of directory lives on each platform.
type location struct {
	xdgEnv     string   // linux override, e.g. XDG_CONFIG_HOME
	linuxHome  []string // linux fallback under $HOME
	darwinTail []string // appended after ~/Library/Application Support/webmify
	winEnv     string   // windows base env var, empty means os.UserConfigDir
	winTail    []string
}

var (
	configLoc = location{
		xdgEnv:    "XDG_CONFIG_HOME",
		linuxHome: []string{".config"},
	}
	stateLoc = location{
		xdgEnv:     "XDG_STATE_HOME",
		linuxHome:  []string{".local", "state"},
		darwinTail: []string{"state"},
		winEnv:     "LOCALAPPDATA",
		winTail:    []string{"state"},
	}
)

func (l location) resolve() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if base := os.Getenv(l.xdgEnv); base != "" {
			return filepath.Join(base, AppName), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(append(append([]string{home}, l.linuxHome...), AppName)...), nil
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(append([]string{home, "Library", "Application Support", AppName}, l.darwinTail...)...), nil
	default:
		if l.winEnv != "" {
			if base := os.Getenv(l.winEnv); base != "" {
				return filepath.Join(append([]string{base, AppName}, l.winTail...)...), nil
			}
		}
		cfg, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(append([]string{cfg, AppName}, l.winTail...)...), nil
	}
}

// ConfigDir returns the directory searched for config.{yaml,toml,json}.
// Linux honours XDG_CONFIG_HOME, macOS uses Application Support.
func ConfigDir() (string, error) {
	return configLoc.resolve()
}

// StateDir returns where logs are kept. Linux honours XDG_STATE_HOME.
func StateDir() (string, error) {
	return stateLoc.resolve()
}

// LogFile returns the default log file used while the TUI owns the terminal.
func LogFile() (string, error) {
	d, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, AppName+".log"), nil
}
