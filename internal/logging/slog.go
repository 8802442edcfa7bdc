package logging

import (
	"io"
	"log/slog"
)

// NewLogger returns a text slog logger writing to w at level, tagged with
// component.
func NewLogger(w io.Writer, level slog.Leveler, component string) *slog.Logger {
	if w == nil {
		w = io.Discard
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)
	if component != "" {
		logger = logger.With(slog.String("component", component))
	}
	return logger
}
