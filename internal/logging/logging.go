// Package logging builds the process logger from configuration.
package logging

import (
	"io"
	"log/slog"

	"github.com/gh1989/nethub/internal/config"
)

// New returns a logger writing to w. Format "text" selects the text handler;
// anything else gets JSON.
func New(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// Setup builds the logger, installs it as the slog default and returns it.
func Setup(w io.Writer, cfg config.LogConfig) *slog.Logger {
	l := New(w, cfg)
	slog.SetDefault(l)
	return l
}
