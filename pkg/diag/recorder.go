package diag

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Recorder accumulates diagnostics in memory. It is the Reporter used by
// tests and by callers that post-process messages.
type Recorder struct {
	Messages []Message
}

// Report appends msg to the recorded list.
func (r *Recorder) Report(msg Message) {
	r.Messages = append(r.Messages, msg)
}

// ErrorCount returns the number of recorded error-severity messages.
func (r *Recorder) ErrorCount() int {
	count := 0

	for _, msg := range r.Messages {
		if msg.Severity == SeverityError {
			count++
		}
	}

	return count
}

// Writer prints diagnostics to an io.Writer as they arrive, coloring the
// severity tag when the destination supports it. It also counts errors so a
// driver can decide the process exit status.
type Writer struct {
	Out     io.Writer
	NoColor bool

	errors int
}

var (
	errorTag = color.New(color.FgRed, color.Bold)
	warnTag  = color.New(color.FgYellow, color.Bold)
	noteTag  = color.New(color.FgCyan)
)

// Report prints msg as "severity: source: text".
func (w *Writer) Report(msg Message) {
	if msg.Severity == SeverityError {
		w.errors++
	}

	tag := noteTag

	switch msg.Severity {
	case SeverityError:
		tag = errorTag
	case SeverityWarn:
		tag = warnTag
	case SeverityNote:
	}

	label := msg.Severity.String()
	if !w.NoColor {
		label = tag.Sprint(label)
	}

	if msg.Source.Path != "" {
		fmt.Fprintf(w.Out, "%s: %s: %s\n", label, msg.Source, msg.Text)
	} else {
		fmt.Fprintf(w.Out, "%s: %s\n", label, msg.Text)
	}
}

// ErrorCount returns the number of error-severity messages seen so far.
func (w *Writer) ErrorCount() int {
	return w.errors
}
