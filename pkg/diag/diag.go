// Package diag collects and reports compiler diagnostics. Parsing and table
// mutation never abort on recoverable problems; they push messages into a
// Reporter and keep going so a single run surfaces as many issues as it can.
package diag

import "fmt"

// Severity classifies a diagnostic message.
type Severity int

const (
	// SeverityNote is an informational follow-up to a previous message.
	SeverityNote Severity = iota
	// SeverityWarn is a recoverable problem that does not fail the run.
	SeverityWarn
	// SeverityError is a recoverable problem that fails the run once all
	// inputs have been processed.
	SeverityError
)

// String returns the lowercase display name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityNote:
		return "note"
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Source identifies where a diagnostic originated. Line 0 means the whole
// file rather than a specific line.
type Source struct {
	Path string
	Line int
}

// WithLine returns a copy of the source pinned to the given line.
func (s Source) WithLine(line int) Source {
	return Source{Path: s.Path, Line: line}
}

// String renders the source as "path" or "path:line".
func (s Source) String() string {
	if s.Line > 0 {
		return fmt.Sprintf("%s:%d", s.Path, s.Line)
	}

	return s.Path
}

// Message is a single diagnostic.
type Message struct {
	Severity Severity
	Source   Source
	Text     string
}

// Reporter consumes diagnostics. Implementations must not assume messages
// arrive in severity order.
type Reporter interface {
	Report(msg Message)
}

// Errorf reports a formatted error diagnostic to r.
func Errorf(r Reporter, src Source, format string, args ...any) {
	r.Report(Message{Severity: SeverityError, Source: src, Text: fmt.Sprintf(format, args...)})
}

// Warnf reports a formatted warning diagnostic to r.
func Warnf(r Reporter, src Source, format string, args ...any) {
	r.Report(Message{Severity: SeverityWarn, Source: src, Text: fmt.Sprintf(format, args...)})
}

// Notef reports a formatted note diagnostic to r.
func Notef(r Reporter, src Source, format string, args ...any) {
	r.Report(Message{Severity: SeverityNote, Source: src, Text: fmt.Sprintf(format, args...)})
}
