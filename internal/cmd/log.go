package cmd

import (
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

var logger *slog.Logger

// initLogging installs a timestamped charm handler behind slog, at debug
// level when --verbose is set.
func initLogging() {
	logger = newLogger(os.Stderr, viper.GetBool("verbose"))
	slog.SetDefault(logger)
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := charmlog.InfoLevel
	if verbose {
		level = charmlog.DebugLevel
	}
	handler := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
	return slog.New(handler)
}
