// Package expr defines the Expression Node tagged variant (spec.md §3,
// §4.2): the DAG node type shared by every live or retired node in a
// SCFIA context. The node itself has no mutating API beyond what
// internal/scfia performs during construction and retirement — this
// package only supplies the data shape, width arithmetic, and
// constant folding (spec.md §4.3.1's per-operator table), which are
// pure and independently testable.
package expr

import "github.com/cwbudde/go-scfia/internal/solver"

// Op tags the variant of an Expression Node, unifying what the
// original Rust source kept as two parallel enums (ScfiaAssertExpression
// and ScfiaSymbolExpression) into one, per spec.md §9's Open Question.
type Op uint8

const (
	OpConcreteBV Op = iota
	OpConcreteBool
	OpSymbolicBV
	OpAdd
	OpSub
	OpMul
	OpAnd
	OpOr
	OpXor
	OpNot // boolean not or bit-vector not, disambiguated by IsBoolean
	OpNeg
	OpShl
	OpLshr
	OpAshr
	OpUrem
	OpUdiv
	OpEq
	OpUlt
	OpSlt
	OpUle
	OpSle
	OpConcat
	OpExtract
	OpSignExtend
	OpZeroExtend
	OpIte
	OpSelect // array theory; no internal/scfia factory yet, see DESIGN.md
	OpStore  // array theory; no internal/scfia factory yet, see DESIGN.md
)

func (op Op) String() string {
	names := [...]string{
		"concrete-bv", "concrete-bool", "symbol-bv",
		"add", "sub", "mul", "and", "or", "xor", "not", "neg",
		"shl", "lshr", "ashr", "urem", "udiv",
		"eq", "ult", "slt", "ule", "sle",
		"concat", "extract", "sign_extend", "zero_extend", "ite", "select", "store",
	}
	if int(op) < len(names) {
		return names[op]
	}
	return "unknown-op"
}

// IsTerminal reports whether op is a leaf (concrete or symbolic),
// i.e. carries no operands.
func (op Op) IsTerminal() bool {
	return op == OpConcreteBV || op == OpConcreteBool || op == OpSymbolicBV
}

// ResultIsBoolean reports whether op always produces a boolean result,
// independent of operand types (spec.md §3: "booleans have no width").
func (op Op) ResultIsBoolean() bool {
	switch op {
	case OpConcreteBool, OpEq, OpUlt, OpSlt, OpUle, OpSle:
		return true
	}
	return false
}

// RetiredNode mirrors an active Node's variant but keeps only weak
// (id-only) references to its former operands, per spec.md §3
// ("Expression Node (retired)"). Its solver AST handle and possible
// assertion stay alive exactly as long as something still holds a
// strong reference to this record.
type RetiredNode struct {
	ID         uint64
	CtxID      uint64
	Op         Op
	Width      uint32
	IsBoolean  bool
	Value      uint64
	BoolValue  bool
	High, Low  uint32
	OperandIDs []uint64
	Ast        *solver.AST
	IsAssert   bool

	// holders counts the live heirs (and any other explicit keeper)
	// that reference this retired record; it reaches zero exactly when
	// the last heir that inherited it is itself retired or dropped
	// (spec.md §4.3.4).
	holders int
}

// Holders reports the number of live references to this retired
// record, exposed for invariant testing.
func (r *RetiredNode) Holders() int { return r.holders }

// RetainBy registers heir as one more live holder of this retired
// record (spec.md §4.3.4). heir is currently unused beyond documenting
// intent at call sites; the count alone decides collection.
func (r *RetiredNode) RetainBy(heir *Node) { r.holders++ }

// Release drops one holder's reference, for symmetry with RetainBy.
func (r *RetiredNode) Release() { r.holders-- }

// Node is one active Expression Node (spec.md §3, §4.2). Only
// internal/scfia constructs, retires, and clones nodes; this package's
// exported fields exist so that sibling first-party package can manage
// the bookkeeping the spec assigns to "C3-mediated" drop behavior.
// External callers (the CPU harness, tests) use only the read-only
// accessor methods below.
type Node struct {
	ID        uint64
	CtxID     uint64
	Op        Op
	Width     uint32 // 0 for booleans
	IsBoolean bool

	// Terminal payload.
	Value     uint64 // OpConcreteBV
	BoolValue bool   // OpConcreteBool

	// Operator payload: operands are strong references this node holds
	// (the dependent owns its operands — see DESIGN.md's resolution of
	// spec.md §3 invariant 2's ownership direction).
	Operands []*Node
	High, Low uint32 // OpExtract

	// Ast is the native solver-side handle, refcounted externally by
	// internal/solver. Nil for nodes that were constant-folded away
	// before ever reaching the solver.
	Ast *solver.AST

	IsAssert bool

	// RefCount, Inherited and Discovered carry the retirement
	// bookkeeping of spec.md §3 and §4.3.3: strong-reference counts and
	// the retired records a node has inherited as an heir. Retirement
	// does not make a node's heirs acquainted with each other. Mutated
	// only by internal/scfia.
	RefCount   int
	Inherited  map[uint64]*RetiredNode
	Discovered map[uint64]*Node
}

// Variant returns the node's operator/terminal tag. ID and Width are
// read directly off the exported fields (spec.md §4.2: "read-only
// accessors for id, width, is_concrete, and the variant tag").
func (n *Node) Variant() Op { return n.Op }

// IsConcrete reports whether this node is a terminal concrete value
// (already folded, never touches the solver).
func (n *Node) IsConcrete() bool {
	return n.Op == OpConcreteBV || n.Op == OpConcreteBool
}

// ConcreteValue returns the node's concrete bit-vector value, if it is
// one.
func (n *Node) ConcreteValue() (uint64, bool) {
	if n.Op == OpConcreteBV {
		return n.Value, true
	}
	return 0, false
}

// ConcreteBool returns the node's concrete boolean value, if it is
// one.
func (n *Node) ConcreteBool() (bool, bool) {
	if n.Op == OpConcreteBool {
		return n.BoolValue, true
	}
	return false, false
}
