package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON structured logger writing to stdout. Handlers attach
// request-scoped attributes (request_id, user_id) at call sites.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
