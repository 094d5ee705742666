// Package logger wraps zap to offer:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and configuration,
//   - leveled shortcuts (Infof, WarnKV, ErrorKV, etc.).
//
// Staging steps take a context and pull the logger from it, so every line
// carries the component being staged.
package logger
