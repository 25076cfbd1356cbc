// Package logger provides structured logging on top of zerolog.
//
// Components fetch a named logger with Get and log with field maps built by
// Fields, using the Field* keys so output stays greppable:
//
//	log := logger.Get("tapioca.client")
//	log.Debug("request sent", logger.Fields(logger.FieldMethod, "GET", logger.FieldURL, u))
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//	  output: "stderr"
package logger
