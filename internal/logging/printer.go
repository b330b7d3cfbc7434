package logging

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Verbosity levels for console status lines.
//
//	0 - no output, other than critical errors
//	1 - phases being run
//	2 - contests being processed
//	3 - report on events created/removed
//	4 - report on contests skipped
//	5 - report everything
const (
	VerbosityQuiet = iota
	VerbosityPhases
	VerbosityContests
	VerbosityChanges
	VerbositySkipped
	VerbosityEverything
)

// DefaultVerbosity is used when the config does not set verbosity_level.
const DefaultVerbosity = VerbosityChanges

// Printer writes human-readable status lines. It is not a machine-readable protocol.
type Printer struct {
	w         io.Writer
	verbosity int

	name    *color.Color
	link    *color.Color
	removal *color.Color
	done    *color.Color
	failure *color.Color
}

// NewPrinter creates a Printer writing lines at or below verbosity to w.
func NewPrinter(w io.Writer, verbosity int) *Printer {
	return &Printer{
		w:         w,
		verbosity: verbosity,
		name:      color.New(color.FgHiMagenta),
		link:      color.New(color.FgHiBlue),
		removal:   color.New(color.FgHiRed),
		done:      color.New(color.FgHiGreen),
		failure:   color.New(color.FgRed, color.Bold),
	}
}

// Printf prints when verbosity is within the configured level.
func (p *Printer) Printf(verbosity int, format string, a ...interface{}) {
	if p == nil || verbosity > p.verbosity {
		return
	}
	fmt.Fprintf(p.w, format, a...)
}

// Created reports a newly created event.
func (p *Printer) Created(summary, link string) {
	p.Printf(VerbosityChanges, "  ➕ %s - %s\n", p.name.Sprint(summary), p.link.Sprint(link))
}

// Removed reports a deleted tagged event.
func (p *Printer) Removed(summary string) {
	p.Printf(VerbosityChanges, "  %s\n", p.removal.Sprintf("🗑 Removing %s from calendar.", summary))
}

// Done prints a green completion line.
func (p *Printer) Done(msg string) {
	p.Printf(VerbosityPhases, "%s\n", p.done.Sprintf("✅ %s", msg))
}

// Failed prints a failure line. Failures are shown at every verbosity but quiet.
func (p *Printer) Failed(format string, a ...interface{}) {
	p.Printf(VerbosityPhases, "  %s\n", p.failure.Sprintf("❌ "+format, a...))
}
