// Package logger provides structured logging for streamkit using zerolog.
//
// It supports JSON and console output, log level configuration, and
// component- and stream-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("stream").WithStream(id.String(), "upper")
//	log.Debug("backpressure changed", logger.Fields(logger.FieldBackpressure, true))
package logger
