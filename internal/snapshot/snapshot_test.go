package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadParsesRegistersAndPstate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "registers", "x0=0x5\nx1 = 0x10\n# a comment\n\nx2=0xff\n")
	writeFile(t, dir, "registers_pstate", "z=1\nn=0\n")

	snap := Load(dir)
	if snap.Registers["x0"] != 5 || snap.Registers["x1"] != 0x10 || snap.Registers["x2"] != 0xff {
		t.Errorf("Registers = %+v, want x0=5 x1=0x10 x2=0xff", snap.Registers)
	}
	if snap.Pstate["z"] != 1 || snap.Pstate["n"] != 0 {
		t.Errorf("Pstate = %+v, want z=1 n=0", snap.Pstate)
	}
}

func TestLoadMissingPstateFileIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "registers", "pc=0x0\n")

	snap := Load(dir)
	if len(snap.Pstate) != 0 {
		t.Errorf("Pstate = %+v, want empty when registers_pstate is absent", snap.Pstate)
	}
}

func TestLoadMissingRegistersFileIsFatal(t *testing.T) {
	dir := t.TempDir()
	defer func() {
		if recover() == nil {
			t.Error("Load should abort fatally when the registers file is missing")
		}
	}()
	Load(dir)
}

func TestLoadMalformedLineIsFatal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "registers", "this line has no equals sign\n")

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("Load should abort fatally on a malformed line")
		}
	}()
	Load(dir)
}

func TestLoadInvalidHexValueIsFatal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "registers", "x0=not-hex\n")

	defer func() {
		if recover() == nil {
			t.Fatal("Load should abort fatally on an invalid hex value")
		}
	}()
	Load(dir)
}

func TestRegistersLookupRejectsUnknownName(t *testing.T) {
	regs := Registers{"x0": 1}
	if v, ok := regs.Lookup("x0", []string{"x0", "x1"}); !ok || v != 1 {
		t.Fatalf("Lookup(x0) = %d, %v, want 1, true", v, ok)
	}
	if _, ok := regs.Lookup("x9", []string{"x0", "x1"}); ok {
		t.Error("Lookup for an absent name should report ok=false before checking knownNames")
	}
}

func TestRegistersLookupAbortsOnNameOutsideKnownSet(t *testing.T) {
	regs := Registers{"bogus": 1}
	defer func() {
		if recover() == nil {
			t.Error("Lookup should abort fatally for a present-but-unknown register name")
		}
	}()
	regs.Lookup("bogus", []string{"x0", "x1"})
}

func TestWriteThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	regs := Registers{"x2": 2, "x10": 10, "x1": 1}
	pstate := Pstate{"z": 1}

	if err := Write(dir, regs, pstate); err != nil {
		t.Fatal(err)
	}
	got := Load(dir)
	for k, v := range regs {
		if got.Registers[k] != v {
			t.Errorf("round-tripped register %s = %d, want %d", k, got.Registers[k], v)
		}
	}
	if got.Pstate["z"] != 1 {
		t.Error("round-tripped pstate missing z=1")
	}
}

func TestWriteOmitsPstateFileWhenEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := Write(dir, Registers{"x0": 0}, Pstate{}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, pstateFile)); !os.IsNotExist(err) {
		t.Error("Write should not create registers_pstate when pstate is empty")
	}
}

func TestWriteOrdersRegistersNaturally(t *testing.T) {
	dir := t.TempDir()
	regs := Registers{"x2": 0, "x10": 0, "x1": 0}
	if err := Write(dir, regs, nil); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, registersFile))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	want := []string{"x1=0x0", "x2=0x0", "x10=0x0"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %v", len(lines), len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q (natural order: x1, x2, x10)", i, lines[i], want[i])
		}
	}
}
