// Package snapshot reads and writes the machine-state snapshot format
// (spec.md §6): a directory holding two line-oriented text files,
// `registers` (`NAME=hex` per concrete register) and `registers_pstate`
// (`FIELD=value` per pstate flag), grounded on the text layout
// original_source's `system_states/*.rs` modules read at startup and
// write on `--dump-state`.
package snapshot

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/maruel/natural"

	"github.com/cwbudde/go-scfia/internal/diag"
)

const (
	registersFile = "registers"
	pstateFile    = "registers_pstate"
)

// Registers is the parsed `registers` file: register name to its
// concrete 64-bit value. Absent names mean the register is symbolic
// and the caller must leave it as a fresh symbol.
type Registers map[string]uint64

// Pstate is the parsed `registers_pstate` file: flag/field name to its
// decimal boolean (0/1) or small hex integer value.
type Pstate map[string]uint64

// Snapshot is one fully parsed snapshot directory.
type Snapshot struct {
	Registers Registers
	Pstate    Pstate
}

// Load reads both files from dir. A missing `registers_pstate` is not
// an error (not every ISA has pstate fields); a missing `registers` is
// fatal, since a snapshot with no concrete registers at all is almost
// certainly the wrong directory.
func Load(dir string) *Snapshot {
	regs := parseFile(filepath.Join(dir, registersFile), true)
	pstate := parseFile(filepath.Join(dir, pstateFile), false)
	return &Snapshot{Registers: regs, Pstate: pstate}
}

func parseFile(path string, required bool) map[string]uint64 {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return map[string]uint64{}
		}
		diag.Fatalf(diag.KindSnapshot, "cannot open %s: %v", path, err)
	}
	defer f.Close()

	out := map[string]uint64{}
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, raw, ok := strings.Cut(line, "=")
		if !ok {
			diag.FatalAt(diag.KindSnapshot, diag.Position{File: path, Line: lineNo}, scanner.Text(),
				"malformed snapshot line, expected NAME=VALUE")
		}
		name = strings.TrimSpace(name)
		raw = strings.TrimSpace(raw)
		val, err := strconv.ParseUint(strings.TrimPrefix(raw, "0x"), 16, 64)
		if err != nil {
			diag.FatalAt(diag.KindSnapshot, diag.Position{File: path, Line: lineNo}, scanner.Text(),
				"invalid hex value %q for %s: %v", raw, name, err)
		}
		out[name] = val
	}
	if err := scanner.Err(); err != nil {
		diag.Fatalf(diag.KindSnapshot, "error reading %s: %v", path, err)
	}
	return out
}

// Lookup returns a register's value, aborting per spec.md §6 ("unknown
// names are fatal") when valid names are known up front and name isn't
// among them.
func (r Registers) Lookup(name string, knownNames []string) (uint64, bool) {
	v, ok := r[name]
	if !ok {
		return 0, false
	}
	if knownNames != nil && !contains(knownNames, name) {
		diag.Fatalf(diag.KindSnapshot, "unknown register name %q in snapshot", name)
	}
	return v, true
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// Write serializes regs/pstate back into dir's `registers` and
// `registers_pstate` files, in natural sort order (r2 before r10) so
// repeated writes of the same state are byte-for-byte identical.
func Write(dir string, regs Registers, pstate Pstate) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeLines(filepath.Join(dir, registersFile), regs); err != nil {
		return err
	}
	if len(pstate) > 0 {
		if err := writeLines(filepath.Join(dir, pstateFile), pstate); err != nil {
			return err
		}
	}
	return nil
}

func writeLines(path string, values map[string]uint64) error {
	names := make([]string, 0, len(values))
	for n := range values {
		names = append(names, n)
	}
	natural.Sort(names)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, n := range names {
		if _, err := fmt.Fprintf(w, "%s=0x%x\n", n, values[n]); err != nil {
			return err
		}
	}
	return w.Flush()
}
