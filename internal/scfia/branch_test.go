package scfia

import "testing"

func TestCheckCondition_ConcreteShortCircuits(t *testing.T) {
	ctx := New()
	trueNode := ctx.ConcreteBool(true)
	if !ctx.CheckCondition(trueNode, nil) {
		t.Error("CheckCondition(concrete true) should return true without touching the solver")
	}
	falseNode := ctx.ConcreteBool(false)
	if ctx.CheckCondition(falseNode, nil) {
		t.Error("CheckCondition(concrete false) should return false without touching the solver")
	}
}

func TestCheckCondition_OneSidedAssertsAndNeverForks(t *testing.T) {
	ctx := New()
	x := ctx.SymbolicBV(8, nil)
	ctx.Assert(ctx.NewEq(x, ctx.ConcreteBV(5, 8), nil))

	cond := ctx.NewEq(x, ctx.ConcreteBV(5, 8), nil)
	sink := &recordingSink{}
	got := ctx.CheckCondition(cond, sink)
	if !got {
		t.Error("x==5 under path x==5 should check true")
	}
	if len(sink.forked) != 0 {
		t.Error("a one-sided branch must not fork")
	}
}

func TestCheckCondition_TwoSidedForksOnNegation(t *testing.T) {
	ctx := New()
	x := ctx.SymbolicBV(8, nil)
	cond := ctx.NewEq(x, ctx.ConcreteBV(5, 8), nil)

	sink := &recordingSink{}
	got := ctx.CheckCondition(cond, sink)
	if !got {
		t.Error("an unconstrained x==5 should check true in the continuing context")
	}
	if len(sink.forked) != 1 {
		t.Fatalf("a two-sided branch should fork exactly once, forked %d times", len(sink.forked))
	}
	// The forked predicate must be the negation of cond, not cond itself.
	if v, ok := sink.forked[0].ConcreteBool(); ok && v {
		t.Error("forked predicate should be cond's negation, not cond")
	}
}

func TestCheckCondition_TwoSidedWithoutSinkIsFatal(t *testing.T) {
	ctx := New()
	x := ctx.SymbolicBV(8, nil)
	cond := ctx.NewEq(x, ctx.ConcreteBV(5, 8), nil)

	defer func() {
		if recover() == nil {
			t.Error("a feasible-both-ways branch with no sink should abort fatally")
		}
	}()
	ctx.CheckCondition(cond, nil)
}

func TestCheckCondition_UnsatisfiablePathIsFatal(t *testing.T) {
	ctx := New()
	x := ctx.SymbolicBV(8, nil)
	ctx.Assert(ctx.NewEq(x, ctx.ConcreteBV(5, 8), nil))
	ctx.Assert(ctx.NewEq(x, ctx.ConcreteBV(6, 8), nil)) // contradictory path, never reachable in practice

	defer func() {
		if recover() == nil {
			t.Error("a condition unsatisfiable in both directions should abort fatally")
		}
	}()
	ctx.CheckCondition(ctx.NewEq(x, ctx.ConcreteBV(5, 8), nil), nil)
}

func TestCheckConditionHinted_SkipsInfeasibleCandidateBeforeConsistentOne(t *testing.T) {
	ctx := New()
	x := ctx.SymbolicBV(8, nil)
	ctx.Assert(ctx.NewEq(x, ctx.ConcreteBV(5, 8), nil)) // path already forces x==5

	cond := ctx.NewEq(x, ctx.ConcreteBV(5, 8), nil)
	sink := &recordingSink{}
	// Candidate 0 (the false side) is infeasible under the asserted
	// path; CheckConditionHinted must skip it and land on candidate 1.
	got := ctx.CheckConditionHinted(cond, []uint64{0, 1}, sink)
	if !got {
		t.Error("CheckConditionHinted should skip the infeasible candidate 0 and settle on candidate 1 (true)")
	}
	if len(sink.forked) != 0 {
		t.Error("asserting the only feasible side must not fork")
	}
}

func TestCheckConditionHinted_AcceptedCandidateSkipsTheSolverRoundTrip(t *testing.T) {
	ctx := New()
	x := ctx.SymbolicBV(8, nil)
	cond := ctx.NewEq(x, ctx.ConcreteBV(5, 8), nil)

	sink := &recordingSink{}
	got := ctx.CheckConditionHinted(cond, []uint64{1}, sink)
	if !got {
		t.Error("hint candidate 1 (true) should be accepted when consistent with the path")
	}
	// A hint match is consulted "before calling the solver" for the
	// full two-sided branch, so it resolves the condition without ever
	// asking the sink to fork off the other side.
	if len(sink.forked) != 0 {
		t.Errorf("an accepted hint candidate should not fork, forked %d times", len(sink.forked))
	}
}

func TestCheckConditionHinted_ConcreteConditionShortCircuits(t *testing.T) {
	ctx := New()
	trueNode := ctx.ConcreteBool(true)
	// A concrete node short-circuits regardless of the hint batch.
	if !ctx.CheckConditionHinted(trueNode, nil, nil) {
		t.Error("CheckConditionHinted(concrete true) should return true")
	}
}

func TestAssert_ConcreteTrueIsNoOp(t *testing.T) {
	ctx := New()
	before := len(ctx.solver.Asserted())
	ctx.Assert(ctx.ConcreteBool(true))
	if len(ctx.solver.Asserted()) != before {
		t.Error("asserting a concrete-true node should not touch the solver's assertion stack")
	}
}

func TestAssert_ConcreteFalseIsFatal(t *testing.T) {
	ctx := New()
	defer func() {
		if recover() == nil {
			t.Error("asserting a concrete-false node should abort fatally")
		}
	}()
	ctx.Assert(ctx.ConcreteBool(false))
}

func TestAssert_NonBooleanIsFatal(t *testing.T) {
	ctx := New()
	defer func() {
		if recover() == nil {
			t.Error("asserting a non-boolean node should abort fatally")
		}
	}()
	ctx.Assert(ctx.ConcreteBV(1, 8))
}
