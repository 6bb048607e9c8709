// Package logger provides structured logging on top of zerolog.
//
// Components receive a *Logger, tag it with WithComponent and log with
// optional field maps:
//
//	log := base.WithComponent("router")
//	log.Info("backend chosen", logger.Fields("backend", "local", "reason", "probe failed"))
//
// Output goes to stdout, stderr, or a size-rotated file (lumberjack) when
// Output is "file".
package logger
