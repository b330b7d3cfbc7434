// Package logging provides structured logging helpers built on log/slog and
// the colored, verbosity-gated status lines clistcal prints to stdout.
package logging
