// Package logx is jobalert's structured logging.
//
// Logger wraps zerolog with typed Field helpers. A Service owns the sinks
// (human readable console on stderr, JSON lines in a file) and can swap them
// at runtime; loggers derived from it follow every Apply.
package logx
