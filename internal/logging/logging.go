package logging

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

// New creates a zerolog logger at info level with console and file output
func New() zerolog.Logger {
	return NewWithLevel("info", true)
}

// NewWithLevel creates a logger writing to the log file and, when console is
// set, to stderr. The terminal UI owns the screen and runs without console
// output. Unknown levels fall back to info.
func NewWithLevel(level string, console bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var writers []io.Writer
	if console {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	logPath := Path()
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err == nil {
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err == nil {
			writers = append(writers, logFile)
		}
	}
	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	multi := zerolog.MultiLevelWriter(writers...)
	return zerolog.New(multi).Level(lvl).With().Timestamp().Caller().Logger()
}

// Path returns platform-specific log file path
func Path() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Logs"
	case "windows":
		base = os.Getenv("LOCALAPPDATA")
	default:
		if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.local/state"
		}
	}

	return filepath.Join(base, "wavescope", "wavescope.log")
}
