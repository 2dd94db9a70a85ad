package main

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger builds the process logger. Unknown levels fall back to info;
// config.Validate rejects them before we get here.
func newLogger(w io.Writer, level string) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "meshsplit",
	})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}
