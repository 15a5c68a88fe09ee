// Package armv7m implements a Thumb-16 subset of the CPU-State Harness
// (spec.md §4.5), grounded on
// original_source/src/models/armv7/armv7m.rs: the SystemState register
// layout (R0-R12, SP, LR, PC, plus the N/Z/C/V flags carried in APSR)
// and the flag-setting conventions of its data-processing instructions
// are carried over field-for-field, re-expressed against this module's
// Context/Node API.
package armv7m

import (
	"github.com/cwbudde/go-scfia/internal/cpu"
	"github.com/cwbudde/go-scfia/internal/diag"
	"github.com/cwbudde/go-scfia/internal/expr"
	"github.com/cwbudde/go-scfia/internal/forksink"
	"github.com/cwbudde/go-scfia/internal/scfia"
)

// APSR mirrors original_source's ApplicationProgramStatusRegister: one
// boolean node per condition flag.
type APSR struct {
	N, Z, C, V *expr.Node
}

// State is a Thumb-16 machine state: 13 general-purpose registers plus
// SP/LR/PC (R13-R15 under their architectural names), condition flags,
// and a flat memory region list.
type State struct {
	Ctx  *scfia.Context
	R    [13]*expr.Node // R0-R12
	SP   *expr.Node
	LR   *expr.Node
	pc   *expr.Node
	APSR APSR
	Mem  []cpu.MemoryRegion
}

// New builds a reset state: every GPR zeroed, SP at the given stack
// top, PC at resetVector, flags cleared.
func New(resetVector, stackTop uint32, mem []cpu.MemoryRegion) *State {
	ctx := scfia.New()
	s := &State{Ctx: ctx, Mem: mem}
	for i := range s.R {
		s.R[i] = ctx.ConcreteBV(0, 32)
		s.R[i].RefCount++
	}
	s.SP = ctx.ConcreteBV(uint64(stackTop), 32)
	s.SP.RefCount++
	s.LR = ctx.ConcreteBV(0, 32)
	s.LR.RefCount++
	s.pc = ctx.ConcreteBV(uint64(resetVector), 32)
	s.APSR = APSR{
		N: ctx.ConcreteBool(false),
		Z: ctx.ConcreteBool(false),
		C: ctx.ConcreteBool(false),
		V: ctx.ConcreteBool(false),
	}
	return s
}

func (s *State) PC() *expr.Node { return s.pc }

// readReg/writeReg address the unified R0-R15 space: 13 GPRs, then
// SP, LR, PC.
func (s *State) readReg(i uint32) *expr.Node {
	switch {
	case i < 13:
		return s.R[i]
	case i == 13:
		return s.SP
	case i == 14:
		return s.LR
	default:
		return s.pc
	}
}

// writeReg stores v into the unified register space. For R0-R12/SP/LR
// the overwritten value gives up its root-held reference, retiring it
// when nothing else still needs it (spec.md §4.3.4); PC is excluded
// since every branch and progressPC2 call already replaces it every
// step regardless of whether this instruction touches it through
// writeReg.
func (s *State) writeReg(i uint32, v *expr.Node) {
	switch {
	case i < 13:
		v.RefCount++
		s.Ctx.ReleaseRoot(s.R[i])
		s.R[i] = v
	case i == 13:
		v.RefCount++
		s.Ctx.ReleaseRoot(s.SP)
		s.SP = v
	case i == 14:
		v.RefCount++
		s.Ctx.ReleaseRoot(s.LR)
		s.LR = v
	default:
		s.pc = v
	}
}

func (s *State) readMemory(address, width uint32) *expr.Node {
	for _, m := range s.Mem {
		if m.Contains(address) {
			return m.Read(memCtx{s.Ctx}, address, width)
		}
	}
	diag.Fatalf(diag.KindInvariant, "read from unmapped address 0x%08x", address)
	return nil
}

func (s *State) writeMemory(address uint32, value *expr.Node) {
	for _, m := range s.Mem {
		if m.Contains(address) {
			m.Write(memCtx{s.Ctx}, address, value)
			return
		}
	}
	diag.Fatalf(diag.KindInvariant, "write to unmapped address 0x%08x", address)
}

type memCtx struct{ ctx *scfia.Context }

func (m memCtx) ConcreteBV(value uint64, width uint32) *expr.Node { return m.ctx.ConcreteBV(value, width) }
func (m memCtx) SymbolicBV(width uint32) *expr.Node               { return m.ctx.SymbolicBV(width, nil) }
func (m memCtx) NewConcat(hi, lo *expr.Node) *expr.Node           { return m.ctx.NewConcat(hi, lo, nil) }
func (m memCtx) NewExtract(x *expr.Node, high, low uint32) *expr.Node {
	return m.ctx.NewExtract(x, high, low, nil)
}
func (m memCtx) ReleaseRoot(n *expr.Node) { m.ctx.ReleaseRoot(n) }

// MemoryContext exposes this state's SCFIA context through the
// narrow cpu.MemoryContext surface, for callers (e.g. cmd/scfia's ELF
// loading path) that need to build memory region contents outside
// this package.
func (s *State) MemoryContext() cpu.MemoryContext { return memCtx{s.Ctx} }

// CloneModel implements the same two-layer clone riscv32.State.CloneModel
// does: clone the SCFIA context, then re-resolve every binding by id.
func (s *State) CloneModel() cpu.State {
	return s.resolveInto(s.Ctx.Clone())
}

func (s *State) resolveInto(ctx *scfia.Context) *State {
	out := &State{Ctx: ctx, Mem: s.Mem}
	for i, r := range s.R {
		out.R[i] = ctx.Lookup(r.ID)
	}
	out.SP = ctx.Lookup(s.SP.ID)
	out.LR = ctx.Lookup(s.LR.ID)
	out.pc = ctx.Lookup(s.pc.ID)
	out.APSR = APSR{
		N: ctx.Lookup(s.APSR.N.ID),
		Z: ctx.Lookup(s.APSR.Z.ID),
		C: ctx.Lookup(s.APSR.C.ID),
		V: ctx.Lookup(s.APSR.V.ID),
	}
	return out
}

func (s *State) newSink() *forksink.Sink[*State] {
	return forksink.New(s, func(base *State) *State {
		return base.resolveInto(base.Ctx.Clone())
	}, func(st *State) *scfia.Context { return st.Ctx })
}
