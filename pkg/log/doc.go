// Package log provides structured logging for Strand components.
//
// Loggers are constructed explicitly and passed by dependency injection;
// there is no package-level default. The Field-based API is preferred:
//
//	logger := log.NewLogger(log.WithLevel(log.InfoLevel))
//	logger.Info("partition elected",
//		log.Str("stream", "orders"),
//		log.Int("partition", 2),
//	)
//
// Records are routed through a slog.Handler bridge into pluggable
// Formatter/Output pairs (text or JSON, console by default). RedirectStdLog
// captures stdlib log output (Pebble, gRPC) into the same pipeline.
package log
