package scfia

import (
	"github.com/cwbudde/go-scfia/internal/diag"
	"github.com/cwbudde/go-scfia/internal/expr"
)

// Assert implements spec.md §4.3.5: a boolean node becomes a permanent
// path constraint. A concrete-true assertion is a no-op (it can never
// be violated); a concrete-false assertion means the caller reached a
// state that cannot exist, which is a programmer error in this core
// (the CPU harness must never call Assert on a condition it has not
// already confirmed via CheckCondition), so it aborts fatally rather
// than returning a silent unsat context.
func (c *Context) Assert(n *expr.Node) {
	if !n.IsBoolean {
		diag.Fatalf(diag.KindInvariant, "assert on non-boolean node %d", n.ID)
	}
	if v, ok := n.ConcreteBool(); ok {
		if !v {
			diag.Fatalf(diag.KindUnsatPath, "assert on concrete-false node %d", n.ID)
		}
		return
	}
	n.IsAssert = true
	c.solver.Assert(n.Ast)
}
