package scfia

import (
	"github.com/cwbudde/go-scfia/internal/diag"
	"github.com/cwbudde/go-scfia/internal/expr"
	"github.com/cwbudde/go-scfia/internal/solver"
)

// Clone implements spec.md §4.3.7: produce an independent context that
// starts from the same active and retired node set, with its own
// solver context and solver (spec.md §5: "cloning creates independent
// instances"). Node ids are preserved so that a harness holding ids
// captured before the fork can still look them up in either sibling.
//
// Active nodes are rebuilt in ascending id order (an operand's id is
// always smaller than its dependent's), skipping constant folding,
// since a node that survived as non-concrete in the parent must stay
// non-concrete here too. Retired nodes that carried an assertion are
// replayed onto the new solver; retired nodes that did not are kept
// as bare records with no live solver AST, except that a retired
// symbol read by a replayed assertion gets a fresh solver symbol.
func (c *Context) Clone() *Context {
	clone := New()

	rebuilt := make(map[uint64]*expr.Node, len(c.active)+len(c.retired))

	for _, id := range c.ActiveIDs() {
		rebuilt[id] = clone.rebuildActive(c.active[id], rebuilt)
	}
	for _, id := range c.RetiredIDs() {
		clone.rebuildRetired(c.retired[id], rebuilt)
	}
	// Only now does every active and retired node have a counterpart in
	// clone, so inherited_asts/discovered_asts entries (spec.md §4.3.7
	// step 5) can be re-resolved against the clone's own registries
	// rather than the parent's.
	for _, id := range c.ActiveIDs() {
		clone.rebuildAcquaintances(c.active[id], rebuilt)
	}

	return clone
}

// rebuildAcquaintances re-establishes n's Inherited and Discovered
// entries on its already-rebuilt clone cp, resolving each id against
// the clone's own retired/active registries.
func (c *Context) rebuildAcquaintances(n *expr.Node, rebuilt map[uint64]*expr.Node) {
	cp := rebuilt[n.ID]
	for id := range n.Inherited {
		record, ok := c.retired[id]
		if !ok {
			continue
		}
		if cp.Inherited == nil {
			cp.Inherited = make(map[uint64]*expr.RetiredNode)
		}
		cp.Inherited[id] = record
		record.RetainBy(cp)
	}
	for id := range n.Discovered {
		target, ok := rebuilt[id]
		if !ok {
			continue
		}
		if cp.Discovered == nil {
			cp.Discovered = make(map[uint64]*expr.Node)
		}
		cp.Discovered[id] = target
	}
}

func (c *Context) rebuildActive(n *expr.Node, rebuilt map[uint64]*expr.Node) *expr.Node {
	operands := make([]*expr.Node, len(n.Operands))
	for i, o := range n.Operands {
		operands[i] = rebuilt[o.ID]
	}

	var cp *expr.Node
	switch n.Op {
	case expr.OpSymbolicBV:
		cp = c.rebuildSymbol(n)
	case expr.OpConcreteBV, expr.OpConcreteBool:
		cp = c.rebuildConcrete(n)
	default:
		cp = c.rebuildOperator(n, operands)
	}

	if n.IsAssert {
		c.Assert(cp)
	}
	return cp
}

// rebuildSymbol and rebuildConcrete preserve the parent's id rather
// than allocating a fresh one, since Clone must reproduce the exact id
// space the parent had.
func (c *Context) rebuildSymbol(n *expr.Node) *expr.Node {
	cp := &expr.Node{
		ID:    n.ID,
		CtxID: c.id,
		Op:    expr.OpSymbolicBV,
		Width: n.Width,
		Ast:   c.solverCtx.SymbolBV(n.Width),
	}
	c.insertActive(cp)
	c.bumpNextID(n.ID)
	return cp
}

func (c *Context) rebuildConcrete(n *expr.Node) *expr.Node {
	cp := &expr.Node{
		ID:        n.ID,
		CtxID:     c.id,
		Op:        n.Op,
		Width:     n.Width,
		IsBoolean: n.IsBoolean,
		Value:     n.Value,
		BoolValue: n.BoolValue,
	}
	c.insertActive(cp)
	c.bumpNextID(n.ID)
	return cp
}

// rebuildOperator rebuilds a non-terminal node directly, bypassing
// folding and the public factories' id allocation, since the clone
// must reproduce the exact DAG shape and id space of the parent.
func (c *Context) rebuildOperator(n *expr.Node, operands []*expr.Node) *expr.Node {
	var ast *solver.AST
	if n.Ast != nil {
		ast = buildFor(c.solverCtx, n.Op, n.Width, n.High, n.Low, operands)
	}
	cp := &expr.Node{
		ID:        n.ID,
		CtxID:     c.id,
		Op:        n.Op,
		Width:     n.Width,
		IsBoolean: n.IsBoolean,
		Operands:  operands,
		High:      n.High,
		Low:       n.Low,
		Ast:       ast,
	}
	c.insertActive(cp)
	c.retainOperands(cp)
	c.bumpNextID(n.ID)
	return cp
}

func (c *Context) bumpNextID(id uint64) {
	if c.nextID < id {
		c.nextID = id
	}
}

func (c *Context) rebuildRetired(r *expr.RetiredNode, rebuilt map[uint64]*expr.Node) {
	c.bumpNextID(r.ID)
	record := &expr.RetiredNode{
		ID:         r.ID,
		CtxID:      c.id,
		Op:         r.Op,
		Width:      r.Width,
		IsBoolean:  r.IsBoolean,
		Value:      r.Value,
		BoolValue:  r.BoolValue,
		High:       r.High,
		Low:        r.Low,
		OperandIDs: r.OperandIDs,
		IsAssert:   r.IsAssert,
	}
	c.retired[r.ID] = record
	if r.IsAssert && r.Ast != nil {
		operands := make([]*expr.Node, len(r.OperandIDs))
		for i, id := range r.OperandIDs {
			operands[i] = rebuilt[id]
			if operands[i] != nil {
				continue
			}
			// The operand was retired as well. Its clone-side record is
			// already in place (ascending id order): a concrete or symbolic
			// record, or an asserted one with a replayed AST, stands in.
			rec, ok := c.retired[id]
			if ok && rec.Ast == nil && rec.Op == expr.OpSymbolicBV {
				rec.Ast = c.solverCtx.SymbolBV(rec.Width)
			}
			if ok && (rec.Ast != nil || rec.Op == expr.OpConcreteBV || rec.Op == expr.OpConcreteBool) {
				operands[i] = &expr.Node{ID: id, CtxID: c.id, Op: rec.Op, Width: rec.Width, IsBoolean: rec.IsBoolean, Value: rec.Value, BoolValue: rec.BoolValue, Ast: rec.Ast}
			}
		}
		ast := buildFor(c.solverCtx, r.Op, r.Width, r.High, r.Low, operands)
		record.Ast = ast
		c.solver.Assert(ast)
	}
}

// buildFor reconstructs a non-terminal operator's solver AST from
// already-rebuilt operand nodes, shared between Clone's active and
// retired reconstruction paths.
func buildFor(sc *solver.Context, op expr.Op, width, high, low uint32, operands []*expr.Node) *solver.AST {
	a := func(i int) *solver.AST { return leafAST(sc, operands[i]) }
	switch op {
	case expr.OpAdd:
		return sc.Add(a(0), a(1))
	case expr.OpSub:
		return sc.Sub(a(0), a(1))
	case expr.OpMul:
		return sc.Mul(a(0), a(1))
	case expr.OpAnd:
		return sc.And(a(0), a(1))
	case expr.OpOr:
		return sc.Or(a(0), a(1))
	case expr.OpXor:
		return sc.Xor(a(0), a(1))
	case expr.OpNot:
		if operands[0].IsBoolean {
			return sc.NotBool(a(0))
		}
		return sc.Not(a(0))
	case expr.OpNeg:
		return sc.Neg(a(0))
	case expr.OpShl:
		return sc.Shl(a(0), a(1))
	case expr.OpLshr:
		return sc.Lshr(a(0), a(1))
	case expr.OpAshr:
		return sc.Ashr(a(0), a(1))
	case expr.OpUrem:
		return sc.Urem(a(0), a(1))
	case expr.OpUdiv:
		return sc.Udiv(a(0), a(1))
	case expr.OpEq:
		return sc.Eq(a(0), a(1))
	case expr.OpUlt:
		return sc.Ult(a(0), a(1))
	case expr.OpSlt:
		return sc.Slt(a(0), a(1))
	case expr.OpUle:
		return sc.Ule(a(0), a(1))
	case expr.OpSle:
		return sc.Sle(a(0), a(1))
	case expr.OpConcat:
		return sc.Concat(a(0), a(1))
	case expr.OpExtract:
		return sc.Extract(a(0), high, low)
	case expr.OpSignExtend:
		return sc.SignExtend(a(0), width)
	case expr.OpZeroExtend:
		return sc.ZeroExtend(a(0), width)
	case expr.OpIte:
		return sc.Ite(a(0), a(1), a(2))
	case expr.OpSelect:
		return sc.Select(a(0), a(1))
	case expr.OpStore:
		return sc.Store(a(0), a(1), a(2))
	default:
		diag.Fatalf(diag.KindInvariant, "clone: no solver builder for operator %s", op)
		return nil
	}
}
