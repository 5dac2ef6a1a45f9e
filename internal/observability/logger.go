package observability

import (
	"log/slog"

	"github.com/couchcryptid/pm25-forecast-service/internal/config"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// NewLogger builds the service logger from LOG_LEVEL and LOG_FORMAT
// ("json" or "text") and installs it as the slog default.
func NewLogger(cfg *config.Config) *slog.Logger {
	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat).With("service", "pm25-forecast")
	slog.SetDefault(logger)
	return logger
}
