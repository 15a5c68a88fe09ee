package scfia

import (
	"github.com/cwbudde/go-scfia/internal/expr"
	"github.com/cwbudde/go-scfia/internal/solver"
)

// Monomorphize implements spec.md §4.3.6: enumerate every concrete
// value n can take under the current path constraint via repeated
// blocking-assumption satisfiability queries, trying the caller's
// ordered hints first so that e.g. a disassembler's predicted jump
// target is checked before the core searches blindly.
//
// The loop terminates either when the solver proves no further value
// is reachable (Unsat), or when it can no longer decide (Unknown) —
// at which point the candidates found so far are returned rather than
// looping forever, since Unknown already means the search has reached
// the limit of what this core's decision procedure can resolve.
func (c *Context) Monomorphize(n *expr.Node, hints []uint64) []uint64 {
	if v, ok := n.ConcreteValue(); ok {
		return []uint64{v}
	}

	var found []uint64
	seen := map[uint64]bool{}
	var blocked []*solver.AST

	tryValue := func(v uint64) bool {
		if seen[v] {
			return false
		}
		eq := c.solverCtx.Eq(n.Ast, c.solverCtx.ConstBV(v, n.Width))
		assumptions := append(append([]*solver.AST{}, blocked...), eq)
		result, _ := c.solver.CheckWithAssumptions(assumptions)
		if result != solver.Sat {
			return false
		}
		found = append(found, v)
		seen[v] = true
		blocked = append(blocked, c.solverCtx.NotBool(eq))
		return true
	}

	for _, h := range hints {
		tryValue(h)
	}

	for {
		result, model := c.solver.CheckWithAssumptions(blocked)
		if result != solver.Sat {
			break
		}
		numeral := model.Eval(n.Ast)
		v := numeral.NumeralUint64()
		if !tryValue(v) {
			// The model handed back a value already blocked; the
			// search space is exhausted under this decision
			// procedure's precision.
			break
		}
	}

	return found
}
