// Package logging provides a small leveled logging interface for the
// mp4-creator service.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The level is read from the DEBUG or LOG_LEVEL environment variables and
// may be overridden from the config file with SetLevel. With returns a Logger
// that tags every line, used to carry request IDs through a merge.
package logging
