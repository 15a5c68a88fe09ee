// Package solver is the narrow, implementation-agnostic SMT boundary
// the SCFIA core sits on (spec.md §4.1, §6). It provides AST
// construction for the quantifier-free bit-vector/boolean theory the
// core needs, symmetric reference counting around every construction,
// and three-valued satisfiability checking.
//
// No third-party SMT binding (Z3, Boolector, …) exists anywhere in the
// retrieved reference pack, so this package ships its own decision
// procedure (bvsolver.go) rather than fabricating a binding. Its
// surface is kept solver-agnostic on purpose: swapping bvsolver.go's
// checkSat for a real binding later means touching only this package.
package solver

import "github.com/cwbudde/go-scfia/internal/diag"

// Kind tags one node of a solver AST.
type Kind uint8

const (
	KConst Kind = iota
	KSymbol
	KAdd
	KSub
	KMul
	KAnd
	KOr
	KXor
	KNotBV
	KNeg
	KShl
	KLshr
	KAshr
	KUrem
	KUdiv
	KEq
	KUlt
	KSlt
	KUle
	KSle
	KNotBool
	KConcat
	KExtract
	KSignExtend
	KZeroExtend
	KIte
	KSelect
	KStore
)

// AST is a reference-counted handle to one solver-side formula node.
// It plays the role of the "native AST handle" an Expression Node
// carries in spec.md §3.
type AST struct {
	kind      Kind
	isBoolean bool
	width     uint32 // 0 for booleans
	value     uint64 // KConst
	symID     uint64 // KSymbol
	ops       []*AST
	high, low uint32 // KExtract

	refCount int
}

// IsBoolean reports whether this AST node has boolean sort.
func (a *AST) IsBoolean() bool { return a.isBoolean }

// Width returns the bit-vector width, or 0 for a boolean AST.
func (a *AST) Width() uint32 { return a.width }

// RefCount exposes the live reference count, for invariant tests only.
func (a *AST) RefCount() int { return a.refCount }

// IncRef must be called symmetrically with DecRef around every
// retention of an AST handle (spec.md §4.1).
func (a *AST) IncRef() {
	if a == nil {
		return
	}
	a.refCount++
}

// DecRef must be called symmetrically with IncRef. Decrementing past
// zero is an invariant violation: it means some caller dropped a
// handle it never held.
func (a *AST) DecRef() {
	if a == nil {
		return
	}
	if a.refCount <= 0 {
		diag.Fatalf(diag.KindInvariant, "solver AST %p dec_ref with refcount already %d", a, a.refCount)
	}
	a.refCount--
}

// Context owns the symbol-id namespace for one SCFIA context's solver.
// Cloning a context creates an independent Context (spec.md §4.3.7,
// §5: "cloning creates independent instances").
type Context struct {
	nextSym uint64
}

// NewContext allocates a solver context with an empty symbol namespace.
func NewContext() *Context { return &Context{} }

// NewSolver attaches a fresh, empty-path-constraint solver instance to
// this context.
func (c *Context) NewSolver() *Solver { return &Solver{ctx: c} }

// Solver is the assertion stack plus satisfiability oracle for one
// SCFIA context.
type Solver struct {
	ctx      *Context
	asserted []*AST
}

// Asserted returns the current path constraint list. Callers must
// treat it as read-only.
func (s *Solver) Asserted() []*AST { return s.asserted }

func leaf(kind Kind, width uint32, boolean bool) *AST {
	return &AST{kind: kind, width: width, isBoolean: boolean, refCount: 1}
}

func bvOp(kind Kind, width uint32, ops ...*AST) *AST {
	return &AST{kind: kind, width: width, ops: ops, refCount: 1}
}

func boolOp(kind Kind, ops ...*AST) *AST {
	return &AST{kind: kind, isBoolean: true, ops: ops, refCount: 1}
}

// ConstBV builds a concrete bit-vector numeral AST.
func (c *Context) ConstBV(value uint64, width uint32) *AST {
	a := leaf(KConst, width, false)
	a.value = value & maskWidth(width)
	return a
}

// ConstBool builds a concrete boolean numeral AST.
func (c *Context) ConstBool(v bool) *AST {
	a := leaf(KConst, 0, true)
	if v {
		a.value = 1
	}
	return a
}

// SymbolBV allocates a fresh symbolic bit-vector of the given width.
func (c *Context) SymbolBV(width uint32) *AST {
	c.nextSym++
	a := leaf(KSymbol, width, false)
	a.symID = c.nextSym
	return a
}

func (c *Context) Add(a, b *AST) *AST  { return bvOp(KAdd, a.width, a, b) }
func (c *Context) Sub(a, b *AST) *AST  { return bvOp(KSub, a.width, a, b) }
func (c *Context) Mul(a, b *AST) *AST  { return bvOp(KMul, a.width, a, b) }
func (c *Context) And(a, b *AST) *AST  { return bvOp(KAnd, a.width, a, b) }
func (c *Context) Or(a, b *AST) *AST   { return bvOp(KOr, a.width, a, b) }
func (c *Context) Xor(a, b *AST) *AST  { return bvOp(KXor, a.width, a, b) }
func (c *Context) Not(a *AST) *AST     { return bvOp(KNotBV, a.width, a) }
func (c *Context) Neg(a *AST) *AST     { return bvOp(KNeg, a.width, a) }
func (c *Context) Shl(a, n *AST) *AST  { return bvOp(KShl, a.width, a, n) }
func (c *Context) Lshr(a, n *AST) *AST { return bvOp(KLshr, a.width, a, n) }
func (c *Context) Ashr(a, n *AST) *AST { return bvOp(KAshr, a.width, a, n) }
func (c *Context) Urem(a, b *AST) *AST { return bvOp(KUrem, a.width, a, b) }
func (c *Context) Udiv(a, b *AST) *AST { return bvOp(KUdiv, a.width, a, b) }

func (c *Context) Eq(a, b *AST) *AST  { return boolOp(KEq, a, b) }
func (c *Context) Ult(a, b *AST) *AST { return boolOp(KUlt, a, b) }
func (c *Context) Slt(a, b *AST) *AST { return boolOp(KSlt, a, b) }
func (c *Context) Ule(a, b *AST) *AST { return boolOp(KUle, a, b) }
func (c *Context) Sle(a, b *AST) *AST { return boolOp(KSle, a, b) }
func (c *Context) NotBool(a *AST) *AST {
	r := boolOp(KNotBool, a)
	return r
}

// Concat sums operand widths (spec.md §3).
func (c *Context) Concat(hi, lo *AST) *AST { return bvOp(KConcat, hi.width+lo.width, hi, lo) }

// Extract yields width high-low+1.
func (c *Context) Extract(x *AST, high, low uint32) *AST {
	a := bvOp(KExtract, high-low+1, x)
	a.high, a.low = high, low
	return a
}

func (c *Context) SignExtend(x *AST, width uint32) *AST { return bvOp(KSignExtend, width, x) }
func (c *Context) ZeroExtend(x *AST, width uint32) *AST { return bvOp(KZeroExtend, width, x) }

// Ite selects between two bit-vectors on a boolean condition; the
// result width is taken from the branches.
func (c *Context) Ite(cond, a, b *AST) *AST { return bvOp(KIte, a.width, cond, a, b) }

// Select/Store model a flat byte-addressed array theory. Their only
// caller is internal/scfia's Clone, when it rebuilds select/store
// nodes; checkSat's evaluator has no case for them.
func (c *Context) Select(arr, idx *AST) *AST { return bvOp(KSelect, 8, arr, idx) }
func (c *Context) Store(arr, idx, val *AST) *AST {
	return bvOp(KStore, arr.width, arr, idx, val)
}

// Assert adds a formula to the solver's path constraint (monotonic
// within a context, spec.md §4.1).
func (s *Solver) Assert(a *AST) {
	s.asserted = append(s.asserted, a)
}

// Result is the three-valued outcome of a satisfiability query.
type Result int

const (
	Sat Result = iota
	Unsat
	Unknown
)

func (r Result) String() string {
	switch r {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// CheckWithAssumptions checks satisfiability of the current path
// constraint conjoined with assumptions, without asserting them.
func (s *Solver) CheckWithAssumptions(assumptions []*AST) (Result, *Model) {
	formulas := make([]*AST, 0, len(s.asserted)+len(assumptions))
	formulas = append(formulas, s.asserted...)
	formulas = append(formulas, assumptions...)
	return checkSat(formulas)
}

func maskWidth(width uint32) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}
