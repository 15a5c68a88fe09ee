package armv7m

import (
	"github.com/cwbudde/go-scfia/internal/cpu"
	"github.com/cwbudde/go-scfia/internal/diag"
	"github.com/cwbudde/go-scfia/internal/expr"
	"github.com/cwbudde/go-scfia/internal/scfia"
)

// Thumb-16 instructions decoded here, a representative subset of
// original_source/src/models/armv7/armv7m.rs's much larger dispatch:
// MOVS/ADDS/SUBS with an 8-bit immediate (format 3), ADD/SUB with a
// register or 3-bit immediate operand (format 2), hi-register ADD/CMP/
// MOV (format 5), unconditional B, conditional branches on Z (BEQ/BNE),
// and word LDR/STR with a 5-bit immediate offset.

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
	return s.readMemory(mustConcrete32(s.pc), 16)
}

func (s *State) progressPC2() { s.pc = s.Ctx.NewAdd(s.pc, s.Ctx.ConcreteBV(2, 32), nil) }

func mustConcrete32(n *expr.Node) uint32 {
	v, ok := n.ConcreteValue()
	if !ok {
		diag.Fatalf(diag.KindInvariant, "node %d used as a decode-time field is symbolic", n.ID)
	}
	return uint32(v)
}

func field(instr *expr.Node, high, low uint32, ctx *scfia.Context) uint64 {
	return uint64(mustConcrete32(ctx.NewExtract(instr, high, low, nil)))
}

func signExtend(v uint64, bits uint32) int32 {
	shift := 32 - bits
	return int32(uint32(v)<<shift) >> shift
}

func (s *State) execute(sink scfia.ForkSink, hint []uint64) {
	instr := s.fetch()
	ctx := s.Ctx
	top5 := field(instr, 15, 11, ctx)
	switch {
	case top5 == 0b00100: // MOVS Rd, #imm8 (format 3)
		rd := field(instr, 10, 8, ctx)
		imm := field(instr, 7, 0, ctx)
		val := ctx.ConcreteBV(imm, 32)
		s.writeReg(uint32(rd), val)
		s.setNZ(val)
		s.progressPC2()
	case top5 == 0b00110: // ADDS Rd, Rd, #imm8
		rd := field(instr, 10, 8, ctx)
		imm := field(instr, 7, 0, ctx)
		res := ctx.NewAdd(s.readReg(uint32(rd)), ctx.ConcreteBV(imm, 32), sink)
		s.writeReg(uint32(rd), res)
		s.setNZ(res)
		s.progressPC2()
	case top5 == 0b00111: // SUBS Rd, Rd, #imm8
		rd := field(instr, 10, 8, ctx)
		imm := field(instr, 7, 0, ctx)
		res := ctx.NewSub(s.readReg(uint32(rd)), ctx.ConcreteBV(imm, 32), sink)
		s.writeReg(uint32(rd), res)
		s.setNZ(res)
		s.progressPC2()
	case field(instr, 15, 11, ctx) == 0b00011: // ADD/SUB Rd, Rn, Rm|#imm3 (format 2)
		isSub := field(instr, 9, 9, ctx) == 1
		isImm := field(instr, 10, 10, ctx) == 1
		rn := field(instr, 8, 6, ctx)
		rd := field(instr, 2, 0, ctx)
		rSrc := field(instr, 5, 3, ctx)
		var rhs *expr.Node
		if isImm {
			rhs = ctx.ConcreteBV(rn, 32)
		} else {
			rhs = s.readReg(uint32(rn))
		}
		lhs := s.readReg(uint32(rSrc))
		var res *expr.Node
		if isSub {
			res = ctx.NewSub(lhs, rhs, sink)
		} else {
			res = ctx.NewAdd(lhs, rhs, sink)
		}
		s.writeReg(uint32(rd), res)
		s.setNZ(res)
		s.progressPC2()
	case field(instr, 15, 10, ctx) == 0b010001: // format 5: hi-register ADD/CMP/MOV
		op := field(instr, 9, 8, ctx)
		rdH := field(instr, 7, 7, ctx)
		rmH := field(instr, 6, 6, ctx)
		rd := field(instr, 2, 0, ctx) | rdH<<3
		rm := field(instr, 5, 3, ctx) | rmH<<3
		switch op {
		case 0b00: // ADD
			res := ctx.NewAdd(s.readReg(uint32(rd)), s.readReg(uint32(rm)), sink)
			s.writeReg(uint32(rd), res)
		case 0b01: // CMP
			res := ctx.NewSub(s.readReg(uint32(rd)), s.readReg(uint32(rm)), sink)
			s.setNZ(res)
		case 0b10: // MOV
			s.writeReg(uint32(rd), s.readReg(uint32(rm)))
		default:
			diag.Fatalf(diag.KindInvariant, "bx/blx not implemented at pc 0x%08x", mustConcrete32(s.pc))
		}
		s.progressPC2()
	case field(instr, 15, 11, ctx) == 0b01100: // STR Rt, [Rn, #imm5]
		rn := field(instr, 5, 3, ctx)
		rt := field(instr, 2, 0, ctx)
		imm := field(instr, 10, 6, ctx) * 4
		addr := mustConcrete32(ctx.NewAdd(s.readReg(uint32(rn)), ctx.ConcreteBV(imm, 32), nil))
		s.writeMemory(addr, s.readReg(uint32(rt)))
		s.progressPC2()
	case field(instr, 15, 11, ctx) == 0b01101: // LDR Rt, [Rn, #imm5]
		rn := field(instr, 5, 3, ctx)
		rt := field(instr, 2, 0, ctx)
		imm := field(instr, 10, 6, ctx) * 4
		addr := mustConcrete32(ctx.NewAdd(s.readReg(uint32(rn)), ctx.ConcreteBV(imm, 32), nil))
		s.writeReg(uint32(rt), s.readMemory(addr, 32))
		s.progressPC2()
	case field(instr, 15, 11, ctx) == 0b11100: // unconditional B
		offset := signExtend(field(instr, 10, 0, ctx)<<1, 12)
		s.pc = ctx.NewAdd(ctx.NewAdd(s.pc, ctx.ConcreteBV(4, 32), nil), signedConst(ctx, offset), nil)
	case field(instr, 15, 12, ctx) == 0b1101: // conditional branch B<cond>
		cond := field(instr, 11, 8, ctx)
		offset := signExtend(field(instr, 7, 0, ctx)<<1, 9)
		target := ctx.NewAdd(ctx.NewAdd(s.pc, ctx.ConcreteBV(4, 32), nil), signedConst(ctx, offset), nil)
		var taken *expr.Node
		switch cond {
		case 0b0000: // EQ
			taken = s.APSR.Z
		case 0b0001: // NE
			taken = ctx.NewNotBool(s.APSR.Z, sink)
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
			s.progressPC2()
		}
	default:
		diag.Fatalf(diag.KindInvariant, "unimplemented thumb instruction 0x%04x at pc 0x%08x", mustConcrete32(instr), mustConcrete32(s.pc))
	}
}

func signedConst(ctx *scfia.Context, v int32) *expr.Node {
	return ctx.ConcreteBV(uint64(uint32(v)), 32)
}

func (s *State) setNZ(n *expr.Node) {
	bit := s.Ctx.NewExtract(n, 31, 31, nil)
	s.APSR.N = s.Ctx.NewEq(bit, s.Ctx.ConcreteBV(1, 1), nil)
	s.APSR.Z = isZero(s.Ctx, n)
}

func isZero(ctx *scfia.Context, n *expr.Node) *expr.Node {
	return ctx.NewEq(n, ctx.ConcreteBV(0, n.Width), nil)
}
