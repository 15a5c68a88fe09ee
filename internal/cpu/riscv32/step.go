package riscv32

import (
	"github.com/cwbudde/go-scfia/internal/cpu"
	"github.com/cwbudde/go-scfia/internal/diag"
	"github.com/cwbudde/go-scfia/internal/expr"
	"github.com/cwbudde/go-scfia/internal/scfia"
)

// Opcode groups implemented, per original_source/src/models/riscv/rv32i.rs.
const (
	opLoad   = 0b0000011
	opImm    = 0b0010011
	opStore  = 0b0100011
	opLui    = 0b0110111
	opAuipc  = 0b0010111
	opOp     = 0b0110011
	opBranch = 0b1100011
	opJal    = 0b1101111
	opJalr   = 0b1100111
)

// Step implements cpu.State.Step: decode and execute exactly one
// instruction, fatally aborting (via CheckCondition's
// KindMissingForkSink) if that instruction's control flow turns out
// to be ambiguous under the current path constraint.
func (s *State) Step(hint []uint64) {
	s.execute(nil, hint)
}

// StepForking implements cpu.State.StepForking.
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

// concreteAddress resolves a node to a host address. This minimal
// adapter does not monomorphize symbolic addresses before a memory
// access; a harness driving programs with data-dependent addressing
// would call Context.Monomorphize first and step once per candidate.
func concreteAddress(n *expr.Node) uint32 {
	v, ok := n.ConcreteValue()
	if !ok {
		diag.Fatalf(diag.KindInvariant, "memory access through non-concrete address node %d", n.ID)
	}
	return uint32(v)
}

func (s *State) fetch() *expr.Node {
	return s.readMemory(concreteAddress(s.Pc), 32)
}

func (s *State) progressPC4() {
	s.Pc = s.Ctx.NewAdd(s.Pc, s.Ctx.ConcreteBV(4, 32), nil)
}

func (s *State) execute(sink scfia.ForkSink, hint []uint64) {
	instr := s.fetch()
	opcode := s.Ctx.NewExtract(instr, 6, 0, sink)

	switch mustConcrete(opcode) {
	case opLui:
		s.execLui(instr)
	case opAuipc:
		s.execAuipc(instr)
	case opJal:
		s.execJal(instr)
	case opJalr:
		s.execJalr(instr)
	case opImm:
		s.execOpImm(instr, sink)
	case opOp:
		s.execOp(instr, sink)
	case opLoad:
		s.execLoad(instr, sink)
	case opStore:
		s.execStore(instr, sink)
	case opBranch:
		s.execBranch(instr, sink, hint)
	default:
		diag.Fatalf(diag.KindInvariant, "unimplemented opcode 0b%07b at pc 0x%08x", mustConcrete(opcode), concreteAddress(s.Pc))
	}
}

// mustConcrete reads a decode-time field (opcode, funct3, funct7,
// register numbers) that the ISA defines as literal instruction bits
// and therefore can never be symbolic in a well-formed fetch.
func mustConcrete(n *expr.Node) uint64 {
	v, ok := n.ConcreteValue()
	if !ok {
		diag.Fatalf(diag.KindInvariant, "instruction field node %d expected concrete, got symbolic", n.ID)
	}
	return v
}

func rd(instr *expr.Node, ctx *scfia.Context, sink scfia.ForkSink) uint32 {
	return uint32(mustConcrete(ctx.NewExtract(instr, 11, 7, sink)))
}
func rs1(instr *expr.Node, ctx *scfia.Context, sink scfia.ForkSink) uint32 {
	return uint32(mustConcrete(ctx.NewExtract(instr, 19, 15, sink)))
}
func rs2(instr *expr.Node, ctx *scfia.Context, sink scfia.ForkSink) uint32 {
	return uint32(mustConcrete(ctx.NewExtract(instr, 24, 20, sink)))
}
func funct3(instr *expr.Node, ctx *scfia.Context, sink scfia.ForkSink) uint64 {
	return mustConcrete(ctx.NewExtract(instr, 14, 12, sink))
}
func funct7(instr *expr.Node, ctx *scfia.Context, sink scfia.ForkSink) uint64 {
	return mustConcrete(ctx.NewExtract(instr, 31, 25, sink))
}

func (s *State) execLui(instr *expr.Node) {
	d := rd(instr, s.Ctx, nil)
	imm := s.Ctx.NewExtract(instr, 31, 12, nil)
	value := s.Ctx.NewConcat(imm, s.Ctx.ConcreteBV(0, 12), nil)
	s.writeReg(d, value)
	s.progressPC4()
}

func (s *State) execAuipc(instr *expr.Node) {
	d := rd(instr, s.Ctx, nil)
	imm := s.Ctx.NewExtract(instr, 31, 12, nil)
	imm32 := s.Ctx.NewConcat(imm, s.Ctx.ConcreteBV(0, 12), nil)
	s.writeReg(d, s.Ctx.NewAdd(imm32, s.Pc, nil))
	s.progressPC4()
}

func (s *State) execJal(instr *expr.Node) {
	d := rd(instr, s.Ctx, nil)
	bit20 := s.Ctx.NewExtract(instr, 31, 31, nil)
	bits10_1 := s.Ctx.NewExtract(instr, 30, 21, nil)
	bit11 := s.Ctx.NewExtract(instr, 20, 20, nil)
	bits19_12 := s.Ctx.NewExtract(instr, 19, 12, nil)
	imm := s.Ctx.NewConcat(bit20, s.Ctx.NewConcat(bits19_12, s.Ctx.NewConcat(bit11, s.Ctx.NewConcat(bits10_1, s.Ctx.ConcreteBV(0, 1), nil), nil), nil), nil)
	offset := s.Ctx.NewSignExtend(imm, 32, nil)
	link := s.Ctx.NewAdd(s.Pc, s.Ctx.ConcreteBV(4, 32), nil)
	target := s.Ctx.NewAdd(s.Pc, offset, nil)
	s.writeReg(d, link)
	s.Pc = target
}

func (s *State) execJalr(instr *expr.Node) {
	d := rd(instr, s.Ctx, nil)
	b := s.readReg(rs1(instr, s.Ctx, nil))
	imm := s.Ctx.NewSignExtend(s.Ctx.NewExtract(instr, 31, 20, nil), 32, nil)
	target := s.Ctx.NewAnd(s.Ctx.NewAdd(b, imm, nil), s.Ctx.ConcreteBV(^uint64(1)&0xffffffff, 32), nil)
	link := s.Ctx.NewAdd(s.Pc, s.Ctx.ConcreteBV(4, 32), nil)
	s.writeReg(d, link)
	s.Pc = target
}

func (s *State) execOpImm(instr *expr.Node, sink scfia.ForkSink) {
	d := rd(instr, s.Ctx, sink)
	r1 := rs1(instr, s.Ctx, sink)
	f3 := funct3(instr, s.Ctx, sink)
	src := s.readReg(r1)

	switch f3 {
	case 0b000: // ADDI
		imm := s.Ctx.NewSignExtend(s.Ctx.NewExtract(instr, 31, 20, sink), 32, sink)
		s.writeReg(d, s.Ctx.NewAdd(src, imm, sink))
	case 0b001: // SLLI
		shamt := s.Ctx.NewExtract(instr, 24, 20, sink)
		s.writeReg(d, s.Ctx.NewShl(src, s.Ctx.NewZeroExtend(shamt, 32, sink), sink))
	case 0b101: // SRLI (funct7 must be 0; SRAI unimplemented)
		if funct7(instr, s.Ctx, sink) != 0 {
			diag.Fatalf(diag.KindInvariant, "SRAI not implemented")
		}
		shamt := s.Ctx.NewExtract(instr, 24, 20, sink)
		s.writeReg(d, s.Ctx.NewLshr(src, s.Ctx.NewZeroExtend(shamt, 32, sink), sink))
	case 0b110: // ORI
		imm := s.Ctx.NewSignExtend(s.Ctx.NewExtract(instr, 31, 20, sink), 32, sink)
		s.writeReg(d, s.Ctx.NewOr(src, imm, sink))
	case 0b111: // ANDI
		imm := s.Ctx.NewSignExtend(s.Ctx.NewExtract(instr, 31, 20, sink), 32, sink)
		s.writeReg(d, s.Ctx.NewAnd(src, imm, sink))
	default:
		diag.Fatalf(diag.KindInvariant, "unimplemented OP-IMM funct3 0b%03b", f3)
	}
	s.progressPC4()
}

func (s *State) execOp(instr *expr.Node, sink scfia.ForkSink) {
	d := rd(instr, s.Ctx, sink)
	a := s.readReg(rs1(instr, s.Ctx, sink))
	b := s.readReg(rs2(instr, s.Ctx, sink))
	f3 := funct3(instr, s.Ctx, sink)
	f7 := funct7(instr, s.Ctx, sink)

	switch {
	case f3 == 0b000 && f7 == 0b0000000: // ADD
		s.writeReg(d, s.Ctx.NewAdd(a, b, sink))
	case f3 == 0b000 && f7 == 0b0100000: // SUB
		s.writeReg(d, s.Ctx.NewSub(a, b, sink))
	case f3 == 0b111 && f7 == 0b0000000: // AND
		s.writeReg(d, s.Ctx.NewAnd(a, b, sink))
	case f3 == 0b110 && f7 == 0b0000000: // OR
		s.writeReg(d, s.Ctx.NewOr(a, b, sink))
	case f3 == 0b100 && f7 == 0b0000000: // XOR
		s.writeReg(d, s.Ctx.NewXor(a, b, sink))
	default:
		diag.Fatalf(diag.KindInvariant, "unimplemented OP funct3/funct7 0b%03b/0b%07b", f3, f7)
	}
	s.progressPC4()
}

func (s *State) execLoad(instr *expr.Node, sink scfia.ForkSink) {
	d := rd(instr, s.Ctx, sink)
	base := s.readReg(rs1(instr, s.Ctx, sink))
	f3 := funct3(instr, s.Ctx, sink)
	imm := s.Ctx.NewSignExtend(s.Ctx.NewExtract(instr, 31, 20, sink), 32, sink)
	address := s.Ctx.NewAdd(base, imm, sink)

	switch f3 {
	case 0b010: // LW
		s.writeReg(d, s.readMemory(concreteAddress(address), 32))
	default:
		diag.Fatalf(diag.KindInvariant, "unimplemented LOAD funct3 0b%03b", f3)
	}
	s.progressPC4()
}

func (s *State) execStore(instr *expr.Node, sink scfia.ForkSink) {
	r1 := rs1(instr, s.Ctx, sink)
	r2 := rs2(instr, s.Ctx, sink)
	f3 := funct3(instr, s.Ctx, sink)
	offsetHi := s.Ctx.NewExtract(instr, 31, 25, sink)
	offsetLo := s.Ctx.NewExtract(instr, 11, 7, sink)
	offset := s.Ctx.NewSignExtend(s.Ctx.NewConcat(offsetHi, offsetLo, sink), 32, sink)
	base := s.readReg(r1)
	address := s.Ctx.NewAdd(base, offset, sink)
	value := s.readReg(r2)

	switch f3 {
	case 0b000: // SB
		s.writeMemory(concreteAddress(address), s.Ctx.NewExtract(value, 7, 0, sink))
	case 0b010: // SW
		s.writeMemory(concreteAddress(address), value)
	default:
		diag.Fatalf(diag.KindInvariant, "unimplemented STORE funct3 0b%03b", f3)
	}
	s.progressPC4()
}

func (s *State) execBranch(instr *expr.Node, sink scfia.ForkSink, hint []uint64) {
	r1 := rs1(instr, s.Ctx, sink)
	r2 := rs2(instr, s.Ctx, sink)
	f3 := funct3(instr, s.Ctx, sink)
	lhs := s.readReg(r1)
	rhs := s.readReg(r2)

	var cond *expr.Node
	switch f3 {
	case 0b000: // BEQ
		cond = s.Ctx.NewEq(lhs, rhs, sink)
	case 0b001: // BNE
		cond = s.Ctx.NewNotBool(s.Ctx.NewEq(lhs, rhs, sink), sink)
	default:
		diag.Fatalf(diag.KindInvariant, "unimplemented BRANCH funct3 0b%03b", f3)
		return
	}

	bit12 := s.Ctx.NewExtract(instr, 31, 31, sink)
	bits10_5 := s.Ctx.NewExtract(instr, 30, 25, sink)
	bit11 := s.Ctx.NewExtract(instr, 7, 7, sink)
	bits4_1 := s.Ctx.NewExtract(instr, 11, 8, sink)
	imm4_0 := s.Ctx.NewConcat(bits4_1, s.Ctx.ConcreteBV(0, 1), sink)
	imm10_0 := s.Ctx.NewConcat(bits10_5, imm4_0, sink)
	imm11_0 := s.Ctx.NewConcat(bit11, imm10_0, sink)
	imm12_0 := s.Ctx.NewConcat(bit12, imm11_0, sink)
	offset := s.Ctx.NewSignExtend(imm12_0, 32, sink)

	var taken bool
	if len(hint) > 0 {
		taken = s.Ctx.CheckConditionHinted(cond, hint, sink)
	} else {
		taken = s.Ctx.CheckCondition(cond, sink)
	}
	if taken {
		s.Pc = s.Ctx.NewAdd(s.Pc, offset, sink)
	} else {
		s.progressPC4()
	}
}
