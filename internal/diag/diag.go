// Package diag formats the fatal diagnostics the SCFIA core raises.
//
// Per the core's error-handling policy, every error kind except the
// solver's "unknown" result is a non-returning abort: there is no
// recoverable error enum, because the core is an embedded library
// invoked by a driver that owns its own recovery strategy. Fatal
// aborts are still given a readable, positioned message, in the same
// source-line-and-caret style the teacher codebase used for compiler
// errors.
package diag

import (
	"fmt"
	"strings"
)

// Position locates a diagnostic inside a text artifact the core reads,
// such as a machine-state snapshot file or a hints file. Position is
// the zero value when a diagnostic has no textual origin (e.g. an
// in-memory invariant violation).
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) String() string {
	if p.File == "" {
		return ""
	}
	if p.Line == 0 {
		return p.File
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// FatalError is the value panic'd by Fatalf. Drivers that embed the
// core recover it at their outermost boundary (cmd/scfia's main does
// this) and print Format() before exiting non-zero.
type FatalError struct {
	Kind    Kind
	Message string
	Pos     Position
	Source  string
}

// Kind classifies a fatal error per spec.md §7's error taxonomy.
type Kind string

const (
	KindWidthMismatch    Kind = "width-mismatch"
	KindCrossContext     Kind = "cross-context"
	KindUnsatPath        Kind = "unsatisfiable-path"
	KindMissingForkSink  Kind = "missing-fork-sink"
	KindAllocation       Kind = "solver-allocation"
	KindInvariant        Kind = "invariant-violation"
	KindSnapshot         Kind = "snapshot-format"
	KindConfig           Kind = "config"
)

func (e *FatalError) Error() string { return e.Format(false) }

// Format renders the diagnostic, with a caret under the offending
// column when Source and a line number are available.
func (e *FatalError) Format(color bool) string {
	var sb strings.Builder

	if pos := e.Pos.String(); pos != "" {
		sb.WriteString(fmt.Sprintf("fatal[%s] at %s\n", e.Kind, pos))
	} else {
		sb.WriteString(fmt.Sprintf("fatal[%s]\n", e.Kind))
	}

	if e.Source != "" && e.Pos.Line > 0 {
		lines := strings.Split(e.Source, "\n")
		if e.Pos.Line <= len(lines) {
			line := lines[e.Pos.Line-1]
			prefix := fmt.Sprintf("%4d | ", e.Pos.Line)
			sb.WriteString(prefix)
			sb.WriteString(line)
			sb.WriteString("\n")
			col := e.Pos.Column
			if col < 1 {
				col = 1
			}
			sb.WriteString(strings.Repeat(" ", len(prefix)+col-1))
			sb.WriteString("^\n")
		}
	}

	sb.WriteString(e.Message)
	return sb.String()
}

// Fatalf builds a FatalError without a textual position and panics
// with it. This is the path used by invariant violations discovered
// deep inside the node DAG, where there is no source file to point at.
func Fatalf(kind Kind, format string, args ...any) {
	panic(&FatalError{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// FatalAt is Fatalf for diagnostics that do have a textual origin,
// such as a malformed snapshot or hints file.
func FatalAt(kind Kind, pos Position, source, format string, args ...any) {
	panic(&FatalError{Kind: kind, Message: fmt.Sprintf(format, args...), Pos: pos, Source: source})
}

// Guard runs fn and turns a panicked *FatalError into a returned
// error, for callers (cmd/scfia) that want to print it and exit rather
// than crash with a Go stack trace. Any other panic value is re-raised
// once Guard's own deferred recover has unwound.
func Guard(fn func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if fe, ok := r.(*FatalError); ok {
			err = fe
			return
		}
		panic(r)
	}()
	fn()
	return nil
}
