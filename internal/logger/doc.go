// Package logger provides a small, thread-safe leveled logger.
//
// Each entry carries a timestamp, level, optional source tag and message.
// The source tag names the component that produced the entry, for example
// "pool", "server" or "worker-2".
//
// # Basic Usage
//
//	logger.Info("", "Server starting")
//	logger.Info("worker-0", "Got a job; executing.")
//	logger.Error("server", "accept failed: %v", err)
//
// Creating a custom logger:
//
//	l := logger.New(os.Stderr, logger.LevelDebug)
//	l.Debug("pool", "queue length %d", n)
//
// # Log Levels
//
// Messages below the configured level are filtered:
//   - LevelDebug: all messages
//   - LevelInfo: Info, Warn, Error
//   - LevelWarn: Warn, Error
//   - LevelError: Error only
//
// ParseLevel converts the names used in configuration files.
package logger
