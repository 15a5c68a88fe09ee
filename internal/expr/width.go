package expr

import "github.com/cwbudde/go-scfia/internal/diag"

// ResultWidth computes an operator's result width from its operands,
// per spec.md §3's width table. It does not validate operand widths
// against each other; call CheckOperandWidths first.
func ResultWidth(op Op, operands []*Node, explicitWidth uint32, high, low uint32) uint32 {
	switch op {
	case OpConcreteBool, OpEq, OpUlt, OpSlt, OpUle, OpSle:
		return 0
	case OpConcat:
		return operands[0].Width + operands[1].Width
	case OpExtract:
		return high - low + 1
	case OpSignExtend, OpZeroExtend:
		return explicitWidth
	case OpSymbolicBV, OpConcreteBV:
		return explicitWidth
	case OpIte:
		// operands are [cond, a, b]; width follows the branches, not
		// the boolean condition.
		return operands[1].Width
	case OpSelect:
		return 8
	default:
		// add sub mul and or xor not neg shl lshr ashr urem udiv:
		// width-preserving on the first bit-vector operand.
		return operands[0].Width
	}
}

// CheckOperandWidths enforces spec.md §3's "binary bit-vector operator
// requires its two operands to have identical width" rule, and the
// sign_extend/zero_extend "explicit output width greater than the
// input" rule. A violation is a programmer error (spec.md §7) and
// aborts fatally rather than returning an error, matching the core's
// no-recoverable-error-enum policy.
func CheckOperandWidths(op Op, operands []*Node, explicitWidth uint32) {
	switch op {
	case OpAdd, OpSub, OpMul, OpAnd, OpOr, OpXor, OpUrem, OpUdiv, OpEq, OpUlt, OpSlt, OpUle, OpSle:
		if operands[0].Width != operands[1].Width {
			diag.Fatalf(diag.KindWidthMismatch, "%s: operand widths differ (%d vs %d)",
				op, operands[0].Width, operands[1].Width)
		}
	case OpSignExtend, OpZeroExtend:
		if explicitWidth <= operands[0].Width {
			diag.Fatalf(diag.KindWidthMismatch, "%s: target width %d must exceed operand width %d",
				op, explicitWidth, operands[0].Width)
		}
	case OpShl, OpLshr, OpAshr:
		// Shift amount width may be narrower; zero-extended internally
		// (spec.md §3).
	case OpIte:
		if operands[1].Width != operands[2].Width {
			diag.Fatalf(diag.KindWidthMismatch, "%s: branch widths differ (%d vs %d)",
				op, operands[1].Width, operands[2].Width)
		}
	}
}

// SameContext enforces spec.md §7's cross-context-use fatal error.
func SameContext(ctxID uint64, operands ...*Node) {
	for _, n := range operands {
		if n.CtxID != ctxID {
			diag.Fatalf(diag.KindCrossContext, "node %d belongs to context %d, not %d", n.ID, n.CtxID, ctxID)
		}
	}
}
