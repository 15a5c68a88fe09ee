package scfia

import (
	"sort"
	"testing"
)

func TestMonomorphize_ConcreteNodeReturnsSingleValue(t *testing.T) {
	ctx := New()
	v := ctx.ConcreteBV(7, 8)
	got := ctx.Monomorphize(v, nil)
	if len(got) != 1 || got[0] != 7 {
		t.Errorf("Monomorphize(concrete 7) = %v, want [7]", got)
	}
}

func TestMonomorphize_EnumeratesEveryReachableValue(t *testing.T) {
	ctx := New()
	x := ctx.SymbolicBV(2, nil) // 4 possible values: 0-3
	got := ctx.Monomorphize(x, nil)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	want := []uint64{0, 1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("Monomorphize(unconstrained 2-bit symbol) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Monomorphize result[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestMonomorphize_RespectsPathConstraint(t *testing.T) {
	ctx := New()
	x := ctx.SymbolicBV(2, nil)
	ctx.Assert(ctx.NewUlt(x, ctx.ConcreteBV(2, 2), nil)) // x < 2, so only 0 and 1 remain
	got := ctx.Monomorphize(x, nil)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	want := []uint64{0, 1}
	if len(got) != len(want) {
		t.Fatalf("Monomorphize(x<2) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Monomorphize result[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestMonomorphize_TriesHintsFirst(t *testing.T) {
	ctx := New()
	x := ctx.SymbolicBV(2, nil)
	got := ctx.Monomorphize(x, []uint64{3})
	if len(got) == 0 || got[0] != 3 {
		t.Errorf("Monomorphize with hint [3] should try 3 first, got %v", got)
	}
}

func TestMonomorphize_DoesNotRepeatAValue(t *testing.T) {
	ctx := New()
	x := ctx.SymbolicBV(2, nil)
	got := ctx.Monomorphize(x, []uint64{1, 1, 1})
	count := 0
	for _, v := range got {
		if v == 1 {
			count++
		}
	}
	if count != 1 {
		t.Errorf("value 1 appeared %d times in Monomorphize's result, want exactly once", count)
	}
}
