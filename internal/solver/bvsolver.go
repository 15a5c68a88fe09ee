package solver

// bruteForceCap bounds the exhaustive search over the Cartesian
// product of free symbols' domains. Below this size the solver is a
// complete decision procedure (it can prove Unsat); above it, it falls
// back to a best-effort witness search and reports Unknown when no
// witness is found, per spec.md §4.1's explicit "unknown is treated as
// sat" escape hatch.
const bruteForceCap = 1 << 20

// Model is a satisfying assignment of free symbols to concrete values,
// returned by a Sat CheckWithAssumptions.
type Model struct {
	values map[uint64]uint64
}

// Eval evaluates ast under the model, returning a concrete numeral AST
// (spec.md §4.1: "eval_in_model ... yields a numeral AST").
func (m *Model) Eval(a *AST) *AST {
	v, isBool, boolVal := evalConcrete(a, m.values)
	if isBool {
		return &AST{kind: KConst, isBoolean: true, value: b2u(boolVal), refCount: 1}
	}
	return &AST{kind: KConst, width: a.width, value: v, refCount: 1}
}

// NumeralWidth returns the bit width of a KConst AST produced by Eval.
func (a *AST) NumeralWidth() uint32 { return a.width }

// NumeralUint64 returns the concrete value of a KConst AST.
func (a *AST) NumeralUint64() uint64 { return a.value }

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// symbolWidths walks formulas and returns every distinct KSymbol id
// reachable, along with its width.
func symbolWidths(formulas []*AST, out map[uint64]uint32, seen map[*AST]bool) {
	for _, f := range formulas {
		if f == nil || seen[f] {
			continue
		}
		seen[f] = true
		if f.kind == KSymbol {
			out[f.symID] = f.width
		}
		symbolWidths(f.ops, out, seen)
	}
}

// evalConcrete evaluates an AST to a concrete value given an
// assignment of symbol ids to values. Returns (bvValue, isBoolean,
// boolValue).
func evalConcrete(a *AST, assign map[uint64]uint64) (uint64, bool, bool) {
	switch a.kind {
	case KConst:
		if a.isBoolean {
			return 0, true, a.value != 0
		}
		return a.value & maskWidth(a.width), false, false
	case KSymbol:
		return assign[a.symID] & maskWidth(a.width), false, false
	}

	evalBV := func(i int) uint64 {
		v, _, _ := evalConcrete(a.ops[i], assign)
		return v
	}
	evalBool := func(i int) bool {
		_, _, b := evalConcrete(a.ops[i], assign)
		return b
	}

	switch a.kind {
	case KAdd:
		return (evalBV(0) + evalBV(1)) & maskWidth(a.width), false, false
	case KSub:
		return (evalBV(0) - evalBV(1)) & maskWidth(a.width), false, false
	case KMul:
		return (evalBV(0) * evalBV(1)) & maskWidth(a.width), false, false
	case KAnd:
		return evalBV(0) & evalBV(1), false, false
	case KOr:
		return evalBV(0) | evalBV(1), false, false
	case KXor:
		return evalBV(0) ^ evalBV(1), false, false
	case KNotBV:
		return (^evalBV(0)) & maskWidth(a.width), false, false
	case KNeg:
		return (-evalBV(0)) & maskWidth(a.width), false, false
	case KShl:
		return (evalBV(0) << evalBV(1)) & maskWidth(a.width), false, false
	case KLshr:
		return (evalBV(0) >> evalBV(1)) & maskWidth(a.width), false, false
	case KAshr:
		w := a.ops[0].width
		return signExtendShiftRight(evalBV(0), evalBV(1), w), false, false
	case KUrem:
		d := evalBV(1)
		if d == 0 {
			return 0, false, false
		}
		return evalBV(0) % d, false, false
	case KUdiv:
		d := evalBV(1)
		if d == 0 {
			return maskWidth(a.ops[0].width), false, false
		}
		return evalBV(0) / d, false, false
	case KEq:
		if a.ops[0].isBoolean {
			return 0, true, evalBool(0) == evalBool(1)
		}
		return 0, true, evalBV(0) == evalBV(1)
	case KUlt:
		return 0, true, evalBV(0) < evalBV(1)
	case KUle:
		return 0, true, evalBV(0) <= evalBV(1)
	case KSlt:
		w := a.ops[0].width
		return 0, true, toSigned(evalBV(0), w) < toSigned(evalBV(1), w)
	case KSle:
		w := a.ops[0].width
		return 0, true, toSigned(evalBV(0), w) <= toSigned(evalBV(1), w)
	case KNotBool:
		return 0, true, !evalBool(0)
	case KConcat:
		hiW := a.ops[1].width
		return (evalBV(0) << hiW) | evalBV(1), false, false
	case KExtract:
		return (evalBV(0) >> a.low) & maskWidth(a.width), false, false
	case KSignExtend:
		return signExtend(evalBV(0), a.ops[0].width, a.width), false, false
	case KZeroExtend:
		return evalBV(0) & maskWidth(a.ops[0].width), false, false
	case KIte:
		if evalBool(0) {
			return evalBV(1), false, false
		}
		return evalBV(2), false, false
	default:
		return 0, false, false
	}
}

func toSigned(v uint64, width uint32) int64 {
	if width == 0 || width >= 64 {
		return int64(v)
	}
	sign := uint64(1) << (width - 1)
	if v&sign != 0 {
		return int64(v) - int64(uint64(1)<<width)
	}
	return int64(v)
}

func signExtend(v uint64, fromWidth, toWidth uint32) uint64 {
	if fromWidth == 0 {
		return 0
	}
	m := uint64(1) << (fromWidth - 1)
	extended := (v ^ m) - m
	return extended & maskWidth(toWidth)
}

func signExtendShiftRight(v, shift uint64, width uint32) uint64 {
	if width == 0 || width > 64 {
		width = 64
	}
	signed := int64(v)
	if width < 64 {
		signed = toSigned(v, width)
	}
	shifted := signed >> shift
	return uint64(shifted) & maskWidth(width)
}

// checkSat is the core's only decision procedure. When the combined
// domain of free symbols is small enough it searches it exhaustively,
// which decides Sat or Unsat outright. Otherwise it tries to invert
// top-level equality constraints algebraically (quick enough for the
// chains this core actually builds: arithmetic on one symbolic root),
// then a fixed set of edge-case probes. Anything left undecided is
// Unknown.
func checkSat(formulas []*AST) (Result, *Model) {
	if len(formulas) == 0 {
		return Sat, &Model{values: map[uint64]uint64{}}
	}

	widths := map[uint64]uint32{}
	symbolWidths(formulas, widths, map[*AST]bool{})
	if len(widths) == 0 {
		// Purely concrete: evaluate directly.
		for _, f := range formulas {
			_, isBool, bv := evalConcrete(f, nil)
			if isBool && !bv {
				return Unsat, nil
			}
		}
		return Sat, &Model{values: map[uint64]uint64{}}
	}

	// Narrow each symbol's search domain to the bits the formulas
	// actually observe: a symbol only ever read through extract(h,l,·)
	// has a search domain of 2^(h-l+1), not 2^width. This is what makes
	// monomorphizing a 2-bit slice of a 32-bit symbolic register
	// tractable by exhaustive search (spec.md §4.3.6, §8 S4) instead of
	// falling through to the inversion/probe fallback.
	domains := relevantDomains(formulas, widths)

	ids := make([]uint64, 0, len(domains))
	domainSize := 1.0
	for id, w := range domains {
		ids = append(ids, id)
		domainSize *= float64(uint64(1) << w)
	}

	satisfies := func(assign map[uint64]uint64) bool {
		for _, f := range formulas {
			_, isBool, bv := evalConcrete(f, assign)
			if isBool && !bv {
				return false
			}
		}
		return true
	}

	if domainSize <= bruteForceCap {
		model, ok := bruteForce(ids, domains, satisfies)
		if ok {
			return Sat, &Model{values: model}
		}
		return Unsat, nil
	}

	if model, ok := invert(formulas, widths); ok && satisfies(model) {
		return Sat, &Model{values: model}
	}

	for _, probe := range candidateProbes(widths) {
		if satisfies(probe) {
			return Sat, &Model{values: probe}
		}
	}

	return Unknown, nil
}

// relevantDomains narrows each symbol's brute-force domain to the
// widest extract() it is ever read through, when it is never read any
// other way; otherwise its full declared width is kept (conservative).
func relevantDomains(formulas []*AST, declared map[uint64]uint32) map[uint64]uint32 {
	extractWidth := map[uint64]uint32{}
	sawBare := map[uint64]bool{}

	var walk func(ast *AST)
	walk = func(ast *AST) {
		switch {
		case ast.kind == KSymbol:
			sawBare[ast.symID] = true
			return
		case ast.kind == KExtract && ast.ops[0].kind == KSymbol:
			sym := ast.ops[0].symID
			if ast.width > extractWidth[sym] {
				extractWidth[sym] = ast.width
			}
			return
		}
		for _, op := range ast.ops {
			walk(op)
		}
	}
	for _, f := range formulas {
		walk(f)
	}

	domains := make(map[uint64]uint32, len(declared))
	for id, full := range declared {
		if !sawBare[id] && extractWidth[id] > 0 && extractWidth[id] < full {
			domains[id] = extractWidth[id]
		} else {
			domains[id] = full
		}
	}
	return domains
}

// bruteForce exhaustively enumerates the Cartesian product of every
// free symbol's domain (the caller has already bounded its size).
func bruteForce(ids []uint64, widths map[uint64]uint32, satisfies func(map[uint64]uint64) bool) (map[uint64]uint64, bool) {
	assign := make(map[uint64]uint64, len(ids))
	var rec func(i int) bool
	rec = func(i int) bool {
		if i == len(ids) {
			return satisfies(assign)
		}
		id := ids[i]
		max := uint64(1) << widths[id]
		if widths[id] >= 64 {
			max = 0 // overflow guard, unreachable since brute force caps at 20 bits
		}
		for v := uint64(0); v < max; v++ {
			assign[id] = v
			if rec(i + 1) {
				return true
			}
		}
		return false
	}
	if rec(0) {
		out := make(map[uint64]uint64, len(assign))
		for k, v := range assign {
			out[k] = v
		}
		return out, true
	}
	return nil, false
}

// invert handles the common concolic-execution case: a conjunction
// where one top-level equality constrains a single free symbol through
// a chain of invertible unary/binary-with-one-concrete-operand
// operators (add/sub/xor with a concrete operand, not, neg, extract,
// sign_extend/zero_extend). It solves that equality for the symbol and
// leaves every other free symbol at zero.
func invert(formulas []*AST, widths map[uint64]uint32) (map[uint64]uint64, bool) {
	assign := make(map[uint64]uint64, len(widths))
	for id := range widths {
		assign[id] = 0
	}

	for _, f := range formulas {
		if f.kind != KEq || len(f.ops) != 2 {
			continue
		}
		lhs, rhs := f.ops[0], f.ops[1]
		lhsConcrete, rhsConcrete := isConcreteSubtree(lhs), isConcreteSubtree(rhs)
		switch {
		case rhsConcrete && !lhsConcrete:
			v, _, _ := evalConcrete(rhs, nil)
			if id, target, ok := solveFor(lhs, v); ok {
				assign[id] = target
			}
		case lhsConcrete && !rhsConcrete:
			v, _, _ := evalConcrete(lhs, nil)
			if id, target, ok := solveFor(rhs, v); ok {
				assign[id] = target
			}
		}
	}
	return assign, true
}

// isConcreteSubtree reports whether ast contains no symbolic leaf.
func isConcreteSubtree(ast *AST) bool {
	if ast.kind == KSymbol {
		return false
	}
	for _, op := range ast.ops {
		if !isConcreteSubtree(op) {
			return false
		}
	}
	return true
}

// solveFor attempts to invert ast == target for ast's single free
// symbol, returning (symbolID, value, ok).
func solveFor(ast *AST, target uint64) (uint64, uint64, bool) {
	switch ast.kind {
	case KSymbol:
		return ast.symID, target & maskWidth(ast.width), true
	case KConst:
		return 0, 0, false
	case KNotBV:
		return solveFor(ast.ops[0], (^target)&maskWidth(ast.width))
	case KNeg:
		return solveFor(ast.ops[0], (-target)&maskWidth(ast.width))
	case KAdd:
		if ast.ops[1].kind == KConst {
			return solveFor(ast.ops[0], (target-ast.ops[1].value)&maskWidth(ast.width))
		}
		if ast.ops[0].kind == KConst {
			return solveFor(ast.ops[1], (target-ast.ops[0].value)&maskWidth(ast.width))
		}
	case KSub:
		if ast.ops[1].kind == KConst {
			return solveFor(ast.ops[0], (target+ast.ops[1].value)&maskWidth(ast.width))
		}
		if ast.ops[0].kind == KConst {
			return solveFor(ast.ops[1], (ast.ops[0].value-target)&maskWidth(ast.width))
		}
	case KXor:
		if ast.ops[1].kind == KConst {
			return solveFor(ast.ops[0], target^ast.ops[1].value)
		}
		if ast.ops[0].kind == KConst {
			return solveFor(ast.ops[1], target^ast.ops[0].value)
		}
	case KSignExtend, KZeroExtend:
		return solveFor(ast.ops[0], target&maskWidth(ast.ops[0].width))
	case KExtract:
		// Only the extracted bits are determined; leave the rest at 0.
		id, val, ok := solveFor(ast.ops[0], 0)
		if !ok {
			return 0, 0, false
		}
		cleared := val &^ (maskWidth(ast.width) << ast.low)
		return id, cleared | ((target & maskWidth(ast.width)) << ast.low), true
	}
	return 0, 0, false
}

// candidateProbes offers a handful of classic edge-case assignments
// (0, all-ones, min-signed) before giving up with Unknown.
func candidateProbes(widths map[uint64]uint32) []map[uint64]uint64 {
	probes := make([]map[uint64]uint64, 0, 4)
	for _, variant := range []func(w uint32) uint64{
		func(uint32) uint64 { return 0 },
		func(w uint32) uint64 { return maskFor(w) },
		func(w uint32) uint64 { return uint64(1) << (w - 1) },
		func(w uint32) uint64 { return 1 },
	} {
		p := make(map[uint64]uint64, len(widths))
		for id, w := range widths {
			if w == 0 {
				continue
			}
			p[id] = variant(w)
		}
		probes = append(probes, p)
	}
	return probes
}

func maskFor(w uint32) uint64 {
	if w >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<w - 1
}
