package logging

import (
	"io"
	"log/slog"
	"os"
)

// Init installs the default slog logger. verbose selects LevelDebug; otherwise
// only warnings and errors are written. A nil output means os.Stderr.
func Init(verbose bool, output io.Writer) {
	if output == nil {
		output = os.Stderr
	}

	handler := slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: Level(verbose),
	})
	slog.SetDefault(slog.New(handler))
}

func Level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}
