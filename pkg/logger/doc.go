// Package logger builds configured log/slog loggers (json or text) and
// provides the attribute helpers used across the realtime core.
package logger
