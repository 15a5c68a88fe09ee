package solver

import "testing"

func TestContext_ConstBVMasksValue(t *testing.T) {
	ctx := NewContext()
	a := ctx.ConstBV(0x1ff, 8)
	if a.NumeralUint64() != 0xff {
		t.Errorf("ConstBV(0x1ff, 8) = 0x%x, want 0xff", a.NumeralUint64())
	}
}

func TestContext_SymbolBVAllocatesDistinctIDs(t *testing.T) {
	ctx := NewContext()
	a := ctx.SymbolBV(32)
	b := ctx.SymbolBV(32)
	if a.symID == b.symID {
		t.Error("two SymbolBV calls on the same context produced the same symbol id")
	}
}

func TestAST_RefCounting(t *testing.T) {
	a := &AST{refCount: 1}
	a.IncRef()
	if a.RefCount() != 2 {
		t.Fatalf("RefCount() = %d, want 2", a.RefCount())
	}
	a.DecRef()
	a.DecRef()
	if a.RefCount() != 0 {
		t.Fatalf("RefCount() = %d, want 0", a.RefCount())
	}
}

func TestAST_DecRefPastZeroPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("DecRef below zero should panic as an invariant violation")
		}
	}()
	a := &AST{refCount: 0}
	a.DecRef()
}

func TestAST_NilRefCountingIsNoOp(t *testing.T) {
	var a *AST
	a.IncRef() // must not panic
	a.DecRef() // must not panic
}

func TestSolver_CheckSatNoSymbols(t *testing.T) {
	ctx := NewContext()
	s := ctx.NewSolver()
	five := ctx.ConstBV(5, 8)
	eq := ctx.Eq(five, ctx.ConstBV(5, 8))
	result, _ := s.CheckWithAssumptions([]*AST{eq})
	if result != Sat {
		t.Errorf("5 == 5 checked sat = %s, want sat", result)
	}

	neq := ctx.Eq(five, ctx.ConstBV(6, 8))
	result, _ = s.CheckWithAssumptions([]*AST{neq})
	if result != Unsat {
		t.Errorf("5 == 6 checked sat = %s, want unsat", result)
	}
}

func TestSolver_SymbolicEqualityIsSatisfiable(t *testing.T) {
	ctx := NewContext()
	s := ctx.NewSolver()
	x := ctx.SymbolBV(8)
	eq := ctx.Eq(x, ctx.ConstBV(42, 8))
	result, model := s.CheckWithAssumptions([]*AST{eq})
	if result != Sat {
		t.Fatalf("x == 42 checked sat = %s, want sat", result)
	}
	witness := model.Eval(x)
	if witness.NumeralUint64() != 42 {
		t.Errorf("model witness for x = %d, want 42", witness.NumeralUint64())
	}
}

func TestSolver_ContradictoryAssertionsAreUnsat(t *testing.T) {
	ctx := NewContext()
	s := ctx.NewSolver()
	x := ctx.SymbolBV(8)
	s.Assert(ctx.Eq(x, ctx.ConstBV(1, 8)))
	result, _ := s.CheckWithAssumptions([]*AST{ctx.Eq(x, ctx.ConstBV(2, 8))})
	if result != Unsat {
		t.Errorf("x==1 (asserted) with assumption x==2 = %s, want unsat", result)
	}
}

func TestSolver_AssertIsMonotonic(t *testing.T) {
	ctx := NewContext()
	s := ctx.NewSolver()
	a := ctx.ConstBool(true)
	b := ctx.ConstBool(false)
	s.Assert(a)
	s.Assert(b)
	if len(s.Asserted()) != 2 {
		t.Errorf("Asserted() has %d entries, want 2", len(s.Asserted()))
	}
}

func TestSolver_ExtractNarrowsBruteForceDomain(t *testing.T) {
	// A 32-bit symbol read only through a 2-bit extract should still be
	// solvable by exhaustive search rather than falling to Unknown,
	// since relevantDomains narrows its search space to the extract's
	// width.
	ctx := NewContext()
	s := ctx.NewSolver()
	x := ctx.SymbolBV(32)
	slice := ctx.Extract(x, 1, 0)
	eq := ctx.Eq(slice, ctx.ConstBV(3, 2))
	result, model := s.CheckWithAssumptions([]*AST{eq})
	if result != Sat {
		t.Fatalf("extract(x,1,0) == 3 checked sat = %s, want sat", result)
	}
	witness := model.Eval(slice)
	if witness.NumeralUint64() != 3 {
		t.Errorf("model witness for extract(x,1,0) = %d, want 3", witness.NumeralUint64())
	}
}

func TestSolver_InversionSolvesLinearChain(t *testing.T) {
	ctx := NewContext()
	s := ctx.NewSolver()
	x := ctx.SymbolBV(32)
	sum := ctx.Add(x, ctx.ConstBV(10, 32))
	eq := ctx.Eq(sum, ctx.ConstBV(15, 32))
	result, model := s.CheckWithAssumptions([]*AST{eq})
	if result != Sat {
		t.Fatalf("x+10 == 15 checked sat = %s, want sat", result)
	}
	if model.Eval(x).NumeralUint64() != 5 {
		t.Errorf("model witness for x = %d, want 5", model.Eval(x).NumeralUint64())
	}
}

func TestResult_String(t *testing.T) {
	tests := map[Result]string{Sat: "sat", Unsat: "unsat", Unknown: "unknown"}
	for r, want := range tests {
		if got := r.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", r, got, want)
		}
	}
}
