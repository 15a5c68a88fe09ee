package scfia

import "testing"

func TestNew_AssignsDistinctContextIDs(t *testing.T) {
	a := New()
	b := New()
	if a.ID() == b.ID() {
		t.Error("two New() contexts should have distinct ids")
	}
}

func TestContext_LookupMissingIDReturnsNil(t *testing.T) {
	ctx := New()
	if ctx.Lookup(9999) != nil {
		t.Error("Lookup on an unknown id should return nil")
	}
	if ctx.LookupRetired(9999) != nil {
		t.Error("LookupRetired on an unknown id should return nil")
	}
}

func TestContext_ActiveIDsAreSortedAscending(t *testing.T) {
	ctx := New()
	ctx.SymbolicBV(8, nil)
	ctx.SymbolicBV(8, nil)
	ctx.SymbolicBV(8, nil)
	ids := ctx.ActiveIDs()
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatalf("ActiveIDs() not sorted ascending: %v", ids)
		}
	}
}

func TestContext_ActiveAndRetiredCounts(t *testing.T) {
	ctx := New()
	x := ctx.SymbolicBV(8, nil)
	y := ctx.SymbolicBV(8, nil)
	if ctx.ActiveCount() != 2 {
		t.Fatalf("ActiveCount() = %d, want 2", ctx.ActiveCount())
	}
	ctx.Retire(x)
	if ctx.ActiveCount() != 1 || ctx.RetiredCount() != 1 {
		t.Errorf("after retiring x: ActiveCount()=%d RetiredCount()=%d, want 1, 1", ctx.ActiveCount(), ctx.RetiredCount())
	}
	_ = y
}

func TestContext_InsertActiveRejectsDuplicateID(t *testing.T) {
	ctx := New()
	x := ctx.SymbolicBV(8, nil)
	defer func() {
		if recover() == nil {
			t.Error("inserting a node with an id already active should panic")
		}
	}()
	ctx.insertActive(x)
}
