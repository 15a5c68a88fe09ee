package scfia

import (
	"github.com/cwbudde/go-scfia/internal/diag"
	"github.com/cwbudde/go-scfia/internal/expr"
	"github.com/cwbudde/go-scfia/internal/solver"
)

// CheckCondition implements spec.md §4.3.2: decide which way(s) a
// branch on cond are reachable from the current path constraint.
//
//   - condition concrete: no solver call needed, the branch is decided.
//   - exactly one side satisfiable: assert it on this context and
//     return which side.
//   - both sides satisfiable: this context continues as the true
//     branch (asserting cond), and sink.Fork is called with the
//     negation so the caller can clone a false-branch successor. sink
//     must not be nil in this case.
//   - neither side satisfiable: the path constraint itself is already
//     contradictory, which can only mean a prior Assert was wrong —
//     this aborts fatally rather than returning a meaningless bool.
//
// spec.md §5 has the core treat an Unknown solver verdict as Sat
// (over-approximating reachability rather than pruning a branch that
// might be real).
func (c *Context) CheckCondition(cond *expr.Node, sink ForkSink) bool {
	if v, ok := cond.ConcreteBool(); ok {
		return v
	}

	notC := c.NewNotBool(cond, sink)
	trueResult, _ := c.solver.CheckWithAssumptions([]*solver.AST{cond.Ast})
	falseResult, _ := c.solver.CheckWithAssumptions([]*solver.AST{notC.Ast})

	trueSat := isSat(trueResult)
	falseSat := isSat(falseResult)

	switch {
	case trueSat && !falseSat:
		c.Assert(cond)
		return true
	case !trueSat && falseSat:
		c.Assert(notC)
		return false
	case trueSat && falseSat:
		if sink == nil {
			diag.Fatalf(diag.KindMissingForkSink, "branch on node %d is feasible both ways but no fork sink was supplied", cond.ID)
		}
		sink.Fork(notC)
		c.Assert(cond)
		return true
	default:
		diag.Fatalf(diag.KindUnsatPath, "neither branch of node %d is satisfiable against the current path", cond.ID)
		return false
	}
}

// isSat folds Unknown into Sat per spec.md §5's conservative widening.
func isSat(r solver.Result) bool {
	return r == solver.Sat || r == solver.Unknown
}

// CheckConditionHinted is CheckCondition consulted through the Hints
// API (spec.md §6): hint is the next candidate batch from an
// internal/hints.List, interpreted as 0/1 booleans for cond. If one of
// the candidates is consistent with the current path (a single
// check_with_assumptions call, cheaper than the two-sided query
// CheckCondition otherwise needs), it is asserted and returned
// directly; otherwise CheckConditionHinted falls back to the ordinary
// two-sided CheckCondition.
func (c *Context) CheckConditionHinted(cond *expr.Node, hint []uint64, sink ForkSink) bool {
	if v, ok := cond.ConcreteBool(); ok {
		return v
	}
	for _, candidate := range hint {
		want := candidate != 0
		probe := cond
		if !want {
			probe = c.NewNotBool(cond, sink)
		}
		result, _ := c.solver.CheckWithAssumptions([]*solver.AST{probe.Ast})
		if isSat(result) {
			c.Assert(probe)
			return want
		}
	}
	return c.CheckCondition(cond, sink)
}
