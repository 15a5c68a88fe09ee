package aarch64

import (
	"github.com/cwbudde/go-scfia/internal/cpu"
	"github.com/cwbudde/go-scfia/internal/diag"
	"github.com/cwbudde/go-scfia/internal/expr"
	"github.com/cwbudde/go-scfia/internal/scfia"
)

// A64 instructions decoded here, a representative subset of what a
// full adapter grounded on original_source/src/isla/aarch64 would
// cover: MOVZ, ADD/SUBS/CMP (64-bit immediate), unconditional B, B.cond
// (EQ/NE), CBZ/CBNZ, and 64-bit LDR/STR with an unsigned immediate
// offset.

func (s *State) Step(hint []uint64) { s.execute(nil, hint) }

func (s *State) StepForking(hint []uint64) []cpu.State {
	sink := s.newSink()
	s.execute(sink, hint)
	sink.Release(s.Ctx)
	produced := sink.Produced()
	out := make([]cpu.State, 0, len(produced))
	for _, p := range produced {
		out = append(out, p.State)
	}
	return out
}

func (s *State) fetch() *expr.Node {
	return s.readMemory(mustConcrete64(s.pc), 32)
}

func (s *State) progressPC4() { s.pc = s.Ctx.NewAdd(s.pc, s.Ctx.ConcreteBV(4, 64), nil) }

func mustConcrete64(n *expr.Node) uint64 {
	v, ok := n.ConcreteValue()
	if !ok {
		diag.Fatalf(diag.KindInvariant, "node %d used as a decode-time field is symbolic", n.ID)
	}
	return v
}

func field(instr *expr.Node, high, low uint32, ctx *scfia.Context) uint64 {
	return mustConcrete64(ctx.NewExtract(instr, high, low, nil))
}

func signExtend64(v uint64, bits uint32) int64 {
	shift := 64 - bits
	return int64(v<<shift) >> shift
}

func (s *State) execute(sink scfia.ForkSink, hint []uint64) {
	instr := s.fetch()
	ctx := s.Ctx
	top9 := field(instr, 31, 23, ctx)
	switch {
	case field(instr, 31, 23, ctx) == 0b110100101: // MOVZ Xd, #imm16, LSL #(hw*16)
		hw := field(instr, 22, 21, ctx)
		imm16 := field(instr, 20, 5, ctx)
		rd := field(instr, 4, 0, ctx)
		s.writeReg(uint32(rd), ctx.ConcreteBV(imm16<<(16*hw), 64))
		s.progressPC4()
	case top9 == 0b100100010 || top9 == 0b101100010: // ADD/ADDS Xd, Xn, #imm12
		setsFlags := top9 == 0b101100010
		s.addSubImm(instr, false, setsFlags, sink)
	case top9 == 0b110100010 || top9 == 0b111100010: // SUB/SUBS (CMP) Xd, Xn, #imm12
		setsFlags := top9 == 0b111100010
		s.addSubImm(instr, true, setsFlags, sink)
	case field(instr, 31, 26, ctx) == 0b000101: // unconditional B
		imm26 := field(instr, 25, 0, ctx)
		offset := signExtend64(imm26<<2, 28)
		s.pc = ctx.NewAdd(s.pc, signed64Const(ctx, offset), nil)
	case field(instr, 31, 24, ctx) == 0b01010100 && field(instr, 4, 4, ctx) == 0: // B.cond
		cond := field(instr, 3, 0, ctx)
		imm19 := field(instr, 23, 5, ctx)
		offset := signExtend64(imm19<<2, 21)
		target := ctx.NewAdd(s.pc, signed64Const(ctx, offset), nil)
		var taken *expr.Node
		switch cond {
		case 0b0000: // EQ
			taken = s.Pstate.Z
		case 0b0001: // NE
			taken = ctx.NewNotBool(s.Pstate.Z, sink)
		default:
			diag.Fatalf(diag.KindInvariant, "branch condition %d not implemented", cond)
		}
		var branchTaken bool
		if len(hint) > 0 {
			branchTaken = ctx.CheckConditionHinted(taken, hint, sink)
		} else {
			branchTaken = ctx.CheckCondition(taken, sink)
		}
		if branchTaken {
			s.pc = target
		} else {
			s.progressPC4()
		}
	case field(instr, 31, 24, ctx) == 0b10110100 || field(instr, 31, 24, ctx) == 0b10110101: // CBZ/CBNZ
		wantZero := field(instr, 31, 24, ctx) == 0b10110100
		imm19 := field(instr, 23, 5, ctx)
		rt := field(instr, 4, 0, ctx)
		offset := signExtend64(imm19<<2, 21)
		target := ctx.NewAdd(s.pc, signed64Const(ctx, offset), nil)
		isZero := ctx.NewEq(s.readReg(uint32(rt)), ctx.ConcreteBV(0, 64), nil)
		cond := isZero
		if !wantZero {
			cond = ctx.NewNotBool(isZero, sink)
		}
		var branchTaken bool
		if len(hint) > 0 {
			branchTaken = ctx.CheckConditionHinted(cond, hint, sink)
		} else {
			branchTaken = ctx.CheckCondition(cond, sink)
		}
		if branchTaken {
			s.pc = target
		} else {
			s.progressPC4()
		}
	case field(instr, 31, 22, ctx) == 0b1111100101: // LDR Xt, [Xn, #imm12*8]
		imm12 := field(instr, 21, 10, ctx)
		rn := field(instr, 9, 5, ctx)
		rt := field(instr, 4, 0, ctx)
		addr := mustConcrete64(ctx.NewAdd(s.readReg(uint32(rn)), ctx.ConcreteBV(imm12*8, 64), nil))
		s.writeReg(uint32(rt), s.readMemory(addr, 64))
		s.progressPC4()
	case field(instr, 31, 22, ctx) == 0b1111100100: // STR Xt, [Xn, #imm12*8]
		imm12 := field(instr, 21, 10, ctx)
		rn := field(instr, 9, 5, ctx)
		rt := field(instr, 4, 0, ctx)
		addr := mustConcrete64(ctx.NewAdd(s.readReg(uint32(rn)), ctx.ConcreteBV(imm12*8, 64), nil))
		s.writeMemory(addr, s.readReg(uint32(rt)))
		s.progressPC4()
	default:
		diag.Fatalf(diag.KindInvariant, "unimplemented a64 instruction 0x%08x at pc 0x%016x", mustConcrete64(instr), mustConcrete64(s.pc))
	}
}

func (s *State) addSubImm(instr *expr.Node, isSub, setsFlags bool, sink scfia.ForkSink) {
	ctx := s.Ctx
	sh := field(instr, 22, 22, ctx)
	imm12 := field(instr, 21, 10, ctx)
	rn := field(instr, 9, 5, ctx)
	rd := field(instr, 4, 0, ctx)
	if sh == 1 {
		imm12 <<= 12
	}
	lhs := s.readReg(uint32(rn))
	rhs := ctx.ConcreteBV(imm12, 64)
	var res *expr.Node
	if isSub {
		res = ctx.NewSub(lhs, rhs, sink)
	} else {
		res = ctx.NewAdd(lhs, rhs, sink)
	}
	if setsFlags {
		s.Pstate.Z = ctx.NewEq(res, ctx.ConcreteBV(0, 64), nil)
		s.Pstate.N = ctx.NewEq(ctx.NewExtract(res, 63, 63, nil), ctx.ConcreteBV(1, 1), nil)
	}
	// CMP is SUBS with Rd=XZR (31); the ISA discards the result in
	// that case rather than writing SP.
	if !(isSub && setsFlags && rd == 31) {
		s.writeReg(uint32(rd), res)
	}
	s.progressPC4()
}

func signed64Const(ctx *scfia.Context, v int64) *expr.Node {
	return ctx.ConcreteBV(uint64(v), 64)
}
