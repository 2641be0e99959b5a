package cmd

import (
	"os"

	"golang.org/x/term"

	"webmify/internal/config"
	"webmify/internal/dirs"
	xlog "webmify/internal/log"
)

// setupLogging configures the process logger. Under the TUI, logs go to a
// file so they do not tear the display.
func setupLogging(s config.Settings, tui bool) (func(), error) {
	level := s.LogLevel
	if level == "" && s.Verbose {
		level = "debug"
	}

	path := s.LogFile
	if path == "" && tui {
		p, err := dirs.LogFile()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if path == "" {
		xlog.Configure(xlog.Config{
			Level:   level,
			Output:  os.Stderr,
			Console: term.IsTerminal(int(os.Stderr.Fd())),
		})
		return func() {}, nil
	}

	f, err := xlog.OpenFile(path)
	if err != nil {
		return nil, err
	}
	xlog.Configure(xlog.Config{Level: level, Output: f})
	return func() { _ = f.Close() }, nil
}
