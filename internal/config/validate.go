package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUsage is returned when the command line does not name exactly one log file.
var ErrUsage = errors.New("usage: camera-timing-analyzer <log_file>")

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or every problem joined into one error.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogPath == "" {
		errs = append(errs, ValidationError{
			Field:   "log_file",
			Message: "log file path is required",
		})
	}

	if cfg.GrabCauseMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "grab_cause_ms",
			Message: fmt.Sprintf("must not be negative (got %d)", cfg.GrabCauseMs),
		})
	}

	if cfg.GrabCauseRatio < 0 || cfg.GrabCauseRatio > 1 {
		errs = append(errs, ValidationError{
			Field:   "grab_cause_ratio",
			Message: fmt.Sprintf("must be between 0 and 1 (got %g)", cfg.GrabCauseRatio),
		})
	}

	if cfg.DelayRateRatio < 0 || cfg.DelayRateRatio > 1 {
		errs = append(errs, ValidationError{
			Field:   "delay_rate_ratio",
			Message: fmt.Sprintf("must be between 0 and 1 (got %g)", cfg.DelayRateRatio),
		})
	}

	if cfg.WorstDelays < 1 {
		errs = append(errs, ValidationError{
			Field:   "worst_delays",
			Message: "must be at least 1",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(cfg.LogLevel)] {
		errs = append(errs, ValidationError{
			Field:   "log_level",
			Message: fmt.Sprintf("must be one of: debug, info, warn, error (got %q)", cfg.LogLevel),
		})
	}

	if cfg.MetricsTextfile != "" && !strings.HasSuffix(cfg.MetricsTextfile, ".prom") {
		errs = append(errs, ValidationError{
			Field:   "metrics_textfile",
			Message: fmt.Sprintf("must end in .prom for the textfile collector (got %q)", cfg.MetricsTextfile),
		})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}
