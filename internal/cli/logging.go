package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/antidup/internal/textio"
)

// setupLogging installs the default slog logger. Records go to stderr and,
// when logPath is set, are appended to the persistent log file. The returned
// func closes the log file.
func setupLogging(logPath string, verbose bool, stderr io.Writer) (func() error, error) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	var (
		w       = stderr
		closeFn = func() error { return nil }
	)
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, textio.DefaultFilePermissions)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", logPath, err)
		}
		w = io.MultiWriter(stderr, f)
		closeFn = f.Close
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
	return closeFn, nil
}
