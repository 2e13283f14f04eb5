// Package logger provides the structured logging interface used across igpost.
//
// It wraps zerolog and supports:
// - Levels debug, info, warn and error (plus "disabled")
// - Structured fields attached per call or per child logger
// - Coloured console output on stderr, or JSON to a file
// - A global logger instance for commands
//
// Basic Usage:
//
//	err := logger.Initialize(&config.LoggingConfig{Level: "info"})
//
//	log := logger.GetLogger().WithField("component", "fetcher")
//	log.InfoWithFields("Post fetched", map[string]interface{}{
//	    "shortcode": "C8x1Y2zABCD",
//	    "attempts":  2,
//	})
//
// Tests use NewTestLogger to capture messages, or NewNopLogger to drop them.
package logger
