package scfia

import (
	"strings"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"

	"github.com/cwbudde/go-scfia/internal/expr"
)

func TestDumpText_RendersConcreteLeaf(t *testing.T) {
	ctx := New()
	pc := ctx.ConcreteBV(0x1000, 32)
	out := DumpText(map[string]*expr.Node{"pc": pc})
	if !strings.Contains(out, "pc:") {
		t.Errorf("DumpText output missing root name label:\n%s", out)
	}
	if !strings.Contains(out, "0x1000") {
		t.Errorf("DumpText output missing concrete value:\n%s", out)
	}
}

func TestDumpText_SharedSubtreeIsNotRepeatedInFull(t *testing.T) {
	ctx := New()
	x := ctx.SymbolicBV(8, nil)
	a := ctx.NewAdd(x, ctx.ConcreteBV(1, 8), nil)
	b := ctx.NewAdd(x, ctx.ConcreteBV(2, 8), nil)

	out := DumpText(map[string]*expr.Node{"a": a, "b": b})
	// x (symbol-bv) should appear in full once per reference the first
	// time, and as a short "repeated" back-reference the second time,
	// not its full subtree twice.
	if strings.Count(out, "repeated") == 0 {
		t.Errorf("DumpText should mark the second visit to a shared node as repeated:\n%s", out)
	}
}

func TestDumpText_NilRootIsHandled(t *testing.T) {
	out := DumpText(map[string]*expr.Node{"x": nil})
	if !strings.Contains(out, "<nil>") {
		t.Errorf("DumpText should render a nil root without panicking:\n%s", out)
	}
}

func TestDumpDot_ProducesValidDigraphSkeleton(t *testing.T) {
	ctx := New()
	x := ctx.SymbolicBV(8, nil)
	sum := ctx.NewAdd(x, ctx.ConcreteBV(1, 8), nil)

	out := DumpDot(map[string]*expr.Node{"r0": sum})
	if !strings.HasPrefix(out, "digraph scfia {") {
		t.Errorf("DumpDot should open with a digraph header:\n%s", out)
	}
	if !strings.HasSuffix(strings.TrimSpace(out), "}") {
		t.Errorf("DumpDot should close the digraph block:\n%s", out)
	}
	if !strings.Contains(out, "\"r0\"") {
		t.Errorf("DumpDot should reference the root name:\n%s", out)
	}
}

// TestDumpText_MatchesGoldenSnapshot pins the exact rendering of a
// small branch-condition DAG (the shape a `scfia dump` invocation would
// produce for a forking branch) against a golden snapshot, so an
// accidental format change in dumpNode shows up as a diff instead of a
// silent rendering drift.
func TestDumpText_MatchesGoldenSnapshot(t *testing.T) {
	ctx := New()
	x := ctx.SymbolicBV(32, nil)
	cond := ctx.NewEq(x, ctx.ConcreteBV(0, 32), nil)
	target := ctx.NewAdd(x, ctx.ConcreteBV(4, 32), nil)

	out := DumpText(map[string]*expr.Node{"cond": cond, "target": target})
	snaps.MatchSnapshot(t, out)
}

// TestDumpDot_MatchesGoldenSnapshot does the same for the dot renderer,
// covering the `scfia dump --dot` output path.
func TestDumpDot_MatchesGoldenSnapshot(t *testing.T) {
	ctx := New()
	x := ctx.SymbolicBV(8, nil)
	sum := ctx.NewAdd(x, ctx.ConcreteBV(1, 8), nil)

	out := DumpDot(map[string]*expr.Node{"sum": sum})
	snaps.MatchSnapshot(t, out)
}

func TestDumpText_NamesAreSortedInOutput(t *testing.T) {
	ctx := New()
	roots := map[string]*expr.Node{
		"z": ctx.ConcreteBV(1, 8),
		"a": ctx.ConcreteBV(2, 8),
		"m": ctx.ConcreteBV(3, 8),
	}
	out := DumpText(roots)
	aIdx := strings.Index(out, "a:")
	mIdx := strings.Index(out, "m:")
	zIdx := strings.Index(out, "z:")
	if !(aIdx < mIdx && mIdx < zIdx) {
		t.Errorf("DumpText should list roots in sorted name order, got order a=%d m=%d z=%d", aIdx, mIdx, zIdx)
	}
}
