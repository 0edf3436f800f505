// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger writing console output to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level configuration and parsing utilities,
//   - an optional rotating file sink backed by lumberjack,
//   - convenience functions (DebugKV, InfoKV, WarnKV, ErrorKV).
//
// Every service accepts a context and extracts the logger from it, enabling
// scoped, structured logging throughout the loader.
package logger
