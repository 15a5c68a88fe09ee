package scfia

import (
	"github.com/cwbudde/go-scfia/internal/expr"
	"github.com/cwbudde/go-scfia/internal/solver"
)

// solverBuilder constructs the solver-side AST for a node once folding
// has failed; it receives the already-validated operand nodes.
type solverBuilder func(sc *solver.Context, operands []*expr.Node) *solver.AST

// newNode implements spec.md §4.3.1's "new_X" factory algorithm:
//  1. assert every operand belongs to this context,
//  2. try constant folding,
//  3. otherwise build the solver AST and register an active node,
//  4. if a fork sink is present, push the new node into its history.
func (c *Context) newNode(op expr.Op, operands []*expr.Node, explicitWidth, high, low uint32, build solverBuilder, sink ForkSink) *expr.Node {
	expr.SameContext(c.id, operands...)
	expr.CheckOperandWidths(op, operands, explicitWidth)

	width := expr.ResultWidth(op, operands, explicitWidth, high, low)
	// not is boolean exactly when its operand is (expr.OpNot).
	isBoolean := op.ResultIsBoolean() || (op == expr.OpNot && operands[0].IsBoolean)

	var node *expr.Node
	if fr, ok := expr.TryFold(op, operands, width, high, low); ok {
		node = c.newConcreteNode(fr, width, isBoolean)
	} else {
		ast := build(c.solverCtx, operands)
		node = &expr.Node{
			ID:        c.allocID(),
			CtxID:     c.id,
			Op:        op,
			Width:     width,
			IsBoolean: isBoolean,
			Operands:  operands,
			High:      high,
			Low:       low,
			Ast:       ast,
		}
		c.insertActive(node)
		c.retainOperands(node)
	}

	if sink != nil {
		sink.PushValue(node)
	}
	return node
}

// newConcreteNode allocates an id for a folded (or directly
// constructed) concrete terminal. Concrete nodes still occupy the id
// space and active registry (spec.md §3 invariant 1 and 5 apply to
// every node, not just symbolic ones) but never touch the solver.
func (c *Context) newConcreteNode(fr expr.FoldResult, width uint32, isBoolean bool) *expr.Node {
	op := expr.OpConcreteBV
	if isBoolean {
		op = expr.OpConcreteBool
	}
	node := &expr.Node{
		ID:        c.allocID(),
		CtxID:     c.id,
		Op:        op,
		Width:     width,
		IsBoolean: isBoolean,
		Value:     fr.Value,
		BoolValue: fr.Bool,
	}
	c.insertActive(node)
	return node
}

// retainOperands implements the dependent-owns-operand ownership this
// core uses (see DESIGN.md for why this inverts spec.md §3 invariant
// 2's literal wording): constructing a node that reads operand O gives
// O one more strong reference, since node.ID > O.ID means O already
// existed and O cannot yet know about node.
func (c *Context) retainOperands(node *expr.Node) {
	for _, o := range node.Operands {
		o.RefCount++
	}
}

// ConcreteBV builds a concrete bit-vector terminal directly (not via
// folding), for harness code seeding initial register/memory state.
func (c *Context) ConcreteBV(value uint64, width uint32) *expr.Node {
	node := c.newConcreteNode(expr.FoldResult{Value: value & widthMask(width)}, width, false)
	node.Op = expr.OpConcreteBV
	return node
}

// ConcreteBool builds a concrete boolean terminal directly.
func (c *Context) ConcreteBool(v bool) *expr.Node {
	node := c.newConcreteNode(expr.FoldResult{Bool: v, IsBool: true}, 0, true)
	node.Op = expr.OpConcreteBool
	return node
}

// SymbolicBV allocates a fresh symbolic bit-vector of the given width
// (spec.md §4.1's "fresh symbolic (width)").
func (c *Context) SymbolicBV(width uint32, sink ForkSink) *expr.Node {
	ast := c.solverCtx.SymbolBV(width)
	node := &expr.Node{
		ID:    c.allocID(),
		CtxID: c.id,
		Op:    expr.OpSymbolicBV,
		Width: width,
		Ast:   ast,
	}
	c.insertActive(node)
	if sink != nil {
		sink.PushValue(node)
	}
	return node
}

func widthMask(width uint32) uint64 {
	if width == 0 || width >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<width - 1
}

// leafAST returns the operand's existing solver AST, building a
// constant leaf on the fly for operands that were folded away.
func leafAST(sc *solver.Context, n *expr.Node) *solver.AST {
	if n.Ast != nil {
		return n.Ast
	}
	if n.IsBoolean {
		v, _ := n.ConcreteBool()
		return sc.ConstBool(v)
	}
	v, _ := n.ConcreteValue()
	return sc.ConstBV(v, n.Width)
}

func (c *Context) NewAdd(a, b *expr.Node, sink ForkSink) *expr.Node {
	return c.newNode(expr.OpAdd, []*expr.Node{a, b}, 0, 0, 0, func(sc *solver.Context, ops []*expr.Node) *solver.AST {
		return sc.Add(leafAST(sc, ops[0]), leafAST(sc, ops[1]))
	}, sink)
}

func (c *Context) NewSub(a, b *expr.Node, sink ForkSink) *expr.Node {
	return c.newNode(expr.OpSub, []*expr.Node{a, b}, 0, 0, 0, func(sc *solver.Context, ops []*expr.Node) *solver.AST {
		return sc.Sub(leafAST(sc, ops[0]), leafAST(sc, ops[1]))
	}, sink)
}

func (c *Context) NewMul(a, b *expr.Node, sink ForkSink) *expr.Node {
	return c.newNode(expr.OpMul, []*expr.Node{a, b}, 0, 0, 0, func(sc *solver.Context, ops []*expr.Node) *solver.AST {
		return sc.Mul(leafAST(sc, ops[0]), leafAST(sc, ops[1]))
	}, sink)
}

func (c *Context) NewAnd(a, b *expr.Node, sink ForkSink) *expr.Node {
	return c.newNode(expr.OpAnd, []*expr.Node{a, b}, 0, 0, 0, func(sc *solver.Context, ops []*expr.Node) *solver.AST {
		return sc.And(leafAST(sc, ops[0]), leafAST(sc, ops[1]))
	}, sink)
}

func (c *Context) NewOr(a, b *expr.Node, sink ForkSink) *expr.Node {
	return c.newNode(expr.OpOr, []*expr.Node{a, b}, 0, 0, 0, func(sc *solver.Context, ops []*expr.Node) *solver.AST {
		return sc.Or(leafAST(sc, ops[0]), leafAST(sc, ops[1]))
	}, sink)
}

func (c *Context) NewXor(a, b *expr.Node, sink ForkSink) *expr.Node {
	return c.newNode(expr.OpXor, []*expr.Node{a, b}, 0, 0, 0, func(sc *solver.Context, ops []*expr.Node) *solver.AST {
		return sc.Xor(leafAST(sc, ops[0]), leafAST(sc, ops[1]))
	}, sink)
}

func (c *Context) NewNotBV(a *expr.Node, sink ForkSink) *expr.Node {
	return c.newNode(expr.OpNot, []*expr.Node{a}, 0, 0, 0, func(sc *solver.Context, ops []*expr.Node) *solver.AST {
		return sc.Not(leafAST(sc, ops[0]))
	}, sink)
}

func (c *Context) NewNotBool(a *expr.Node, sink ForkSink) *expr.Node {
	return c.newNode(expr.OpNot, []*expr.Node{a}, 0, 0, 0, func(sc *solver.Context, ops []*expr.Node) *solver.AST {
		return sc.NotBool(leafAST(sc, ops[0]))
	}, sink)
}

func (c *Context) NewNeg(a *expr.Node, sink ForkSink) *expr.Node {
	return c.newNode(expr.OpNeg, []*expr.Node{a}, 0, 0, 0, func(sc *solver.Context, ops []*expr.Node) *solver.AST {
		return sc.Neg(leafAST(sc, ops[0]))
	}, sink)
}

func (c *Context) NewShl(a, n *expr.Node, sink ForkSink) *expr.Node {
	return c.newNode(expr.OpShl, []*expr.Node{a, n}, 0, 0, 0, func(sc *solver.Context, ops []*expr.Node) *solver.AST {
		return sc.Shl(leafAST(sc, ops[0]), leafAST(sc, ops[1]))
	}, sink)
}

func (c *Context) NewLshr(a, n *expr.Node, sink ForkSink) *expr.Node {
	return c.newNode(expr.OpLshr, []*expr.Node{a, n}, 0, 0, 0, func(sc *solver.Context, ops []*expr.Node) *solver.AST {
		return sc.Lshr(leafAST(sc, ops[0]), leafAST(sc, ops[1]))
	}, sink)
}

func (c *Context) NewAshr(a, n *expr.Node, sink ForkSink) *expr.Node {
	return c.newNode(expr.OpAshr, []*expr.Node{a, n}, 0, 0, 0, func(sc *solver.Context, ops []*expr.Node) *solver.AST {
		return sc.Ashr(leafAST(sc, ops[0]), leafAST(sc, ops[1]))
	}, sink)
}

func (c *Context) NewUrem(a, b *expr.Node, sink ForkSink) *expr.Node {
	return c.newNode(expr.OpUrem, []*expr.Node{a, b}, 0, 0, 0, func(sc *solver.Context, ops []*expr.Node) *solver.AST {
		return sc.Urem(leafAST(sc, ops[0]), leafAST(sc, ops[1]))
	}, sink)
}

func (c *Context) NewUdiv(a, b *expr.Node, sink ForkSink) *expr.Node {
	return c.newNode(expr.OpUdiv, []*expr.Node{a, b}, 0, 0, 0, func(sc *solver.Context, ops []*expr.Node) *solver.AST {
		return sc.Udiv(leafAST(sc, ops[0]), leafAST(sc, ops[1]))
	}, sink)
}

func (c *Context) NewEq(a, b *expr.Node, sink ForkSink) *expr.Node {
	return c.newNode(expr.OpEq, []*expr.Node{a, b}, 0, 0, 0, func(sc *solver.Context, ops []*expr.Node) *solver.AST {
		return sc.Eq(leafAST(sc, ops[0]), leafAST(sc, ops[1]))
	}, sink)
}

func (c *Context) NewUlt(a, b *expr.Node, sink ForkSink) *expr.Node {
	return c.newNode(expr.OpUlt, []*expr.Node{a, b}, 0, 0, 0, func(sc *solver.Context, ops []*expr.Node) *solver.AST {
		return sc.Ult(leafAST(sc, ops[0]), leafAST(sc, ops[1]))
	}, sink)
}

func (c *Context) NewSlt(a, b *expr.Node, sink ForkSink) *expr.Node {
	return c.newNode(expr.OpSlt, []*expr.Node{a, b}, 0, 0, 0, func(sc *solver.Context, ops []*expr.Node) *solver.AST {
		return sc.Slt(leafAST(sc, ops[0]), leafAST(sc, ops[1]))
	}, sink)
}

func (c *Context) NewUle(a, b *expr.Node, sink ForkSink) *expr.Node {
	return c.newNode(expr.OpUle, []*expr.Node{a, b}, 0, 0, 0, func(sc *solver.Context, ops []*expr.Node) *solver.AST {
		return sc.Ule(leafAST(sc, ops[0]), leafAST(sc, ops[1]))
	}, sink)
}

func (c *Context) NewSle(a, b *expr.Node, sink ForkSink) *expr.Node {
	return c.newNode(expr.OpSle, []*expr.Node{a, b}, 0, 0, 0, func(sc *solver.Context, ops []*expr.Node) *solver.AST {
		return sc.Sle(leafAST(sc, ops[0]), leafAST(sc, ops[1]))
	}, sink)
}

func (c *Context) NewConcat(hi, lo *expr.Node, sink ForkSink) *expr.Node {
	return c.newNode(expr.OpConcat, []*expr.Node{hi, lo}, 0, 0, 0, func(sc *solver.Context, ops []*expr.Node) *solver.AST {
		return sc.Concat(leafAST(sc, ops[0]), leafAST(sc, ops[1]))
	}, sink)
}

func (c *Context) NewExtract(x *expr.Node, high, low uint32, sink ForkSink) *expr.Node {
	return c.newNode(expr.OpExtract, []*expr.Node{x}, 0, high, low, func(sc *solver.Context, ops []*expr.Node) *solver.AST {
		return sc.Extract(leafAST(sc, ops[0]), high, low)
	}, sink)
}

func (c *Context) NewSignExtend(x *expr.Node, width uint32, sink ForkSink) *expr.Node {
	return c.newNode(expr.OpSignExtend, []*expr.Node{x}, width, 0, 0, func(sc *solver.Context, ops []*expr.Node) *solver.AST {
		return sc.SignExtend(leafAST(sc, ops[0]), width)
	}, sink)
}

func (c *Context) NewZeroExtend(x *expr.Node, width uint32, sink ForkSink) *expr.Node {
	return c.newNode(expr.OpZeroExtend, []*expr.Node{x}, width, 0, 0, func(sc *solver.Context, ops []*expr.Node) *solver.AST {
		return sc.ZeroExtend(leafAST(sc, ops[0]), width)
	}, sink)
}

func (c *Context) NewIte(cond, a, b *expr.Node, sink ForkSink) *expr.Node {
	return c.newNode(expr.OpIte, []*expr.Node{cond, a, b}, 0, 0, 0, func(sc *solver.Context, ops []*expr.Node) *solver.AST {
		return sc.Ite(leafAST(sc, ops[0]), leafAST(sc, ops[1]), leafAST(sc, ops[2]))
	}, sink)
}
