// Package logging provides structured logging for devmon.
//
// This package wraps a package-global zap logger with convenience functions
// used by the discovery service and the HTTP bridge.
//
// # Log Levels
//
//   - Debug: datagram hex dumps, rejected frames, HTTP requests
//   - Info: socket bound, bridge clients, devices found
//   - Warn: broadcast failures (the next scheduled attempt retries)
//   - Error: receive loop failures
//
// # Configuration
//
// Logging is silent unless a level is given, either explicitly or through
// the DEVMON_LOG_LEVEL environment variable:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use once initialized.
package logging
