package logger

import (
	"github.com/rs/zerolog"
)

// LogRequest logs HTTP request information on l
func LogRequest(l Logger, method, url string, statusCode int, durationMs float64) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": durationMs,
	}

	switch {
	case statusCode >= 500:
		l.ErrorWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		l.WarnWithFields("HTTP request client error", fields)
	default:
		l.DebugWithFields("HTTP request completed", fields)
	}
}

// LogDownload logs the outcome of a single media download
func LogDownload(l Logger, shortcode string, index int, mediaType string, success bool, err error) {
	entry := l.WithFields(map[string]interface{}{
		"shortcode":  shortcode,
		"index":      index,
		"media_type": mediaType,
		"success":    success,
	})

	switch {
	case err != nil:
		entry.WithError(err).Error("Download failed")
	case success:
		entry.Info("Download completed")
	default:
		entry.Debug("Download skipped")
	}
}

// LogRetry logs a retry backoff decision
func LogRetry(l Logger, attempt, remaining int, delayMs int64, err error) {
	l.WithError(err).WarnWithFields("Request throttled, backing off", map[string]interface{}{
		"attempt":   attempt,
		"remaining": remaining,
		"delay_ms":  delayMs,
	})
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

// nopLogger is a logger that does nothing (useful for testing)
type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
