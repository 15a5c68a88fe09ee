// Package aarch64 implements an A64 subset of the CPU-State Harness
// (spec.md §4.5), grounded on
// original_source/src/system_states/aarch64.rs: the X0-X28/FP/LR/SP
// register file and the PSTATE N/Z/C/V flags are carried over, with
// the original's concrete-only pc replaced by a symbolic-capable node
// like every other register here (this module has no analogue of the
// original's separate concrete-pc fast path).
package aarch64

import (
	"github.com/cwbudde/go-scfia/internal/cpu"
	"github.com/cwbudde/go-scfia/internal/diag"
	"github.com/cwbudde/go-scfia/internal/expr"
	"github.com/cwbudde/go-scfia/internal/forksink"
	"github.com/cwbudde/go-scfia/internal/scfia"
)

// Pstate mirrors original_source's Pstate, keeping only the
// condition flags this adapter's instruction subset needs.
type Pstate struct {
	N, Z, C, V *expr.Node
}

// State is an A64 machine state: X0-X30 (X30 doubles as LR per the
// ISA), SP, PC, condition flags, and a flat memory region list.
type State struct {
	Ctx    *scfia.Context
	X      [31]*expr.Node // X0-X30
	SP     *expr.Node
	pc     *expr.Node
	Pstate Pstate
	Mem    []cpu.MemoryRegion
}

func New(resetVector, stackTop uint64, mem []cpu.MemoryRegion) *State {
	ctx := scfia.New()
	s := &State{Ctx: ctx, Mem: mem}
	for i := range s.X {
		s.X[i] = ctx.ConcreteBV(0, 64)
		s.X[i].RefCount++
	}
	s.SP = ctx.ConcreteBV(stackTop, 64)
	s.SP.RefCount++
	s.pc = ctx.ConcreteBV(resetVector, 64)
	s.Pstate = Pstate{
		N: ctx.ConcreteBool(false),
		Z: ctx.ConcreteBool(false),
		C: ctx.ConcreteBool(false),
		V: ctx.ConcreteBool(false),
	}
	return s
}

func (s *State) PC() *expr.Node { return s.pc }

// readReg/writeReg treat X31 as the stack pointer, matching the A64
// encoding convention where register field value 31 means SP (or the
// zero register, context-dependent). They always map 31 to SP; the one
// XZR use in this adapter's subset, SUBS/CMP with Rd=31, is handled in
// addSubImm by skipping the write.
func (s *State) readReg(i uint32) *expr.Node {
	if i == 31 {
		return s.SP
	}
	return s.X[i]
}

// writeReg stores v into Xi (or SP when i is 31). The overwritten
// value gives up its root-held reference, retiring it when nothing
// else still needs it (spec.md §4.3.4).
func (s *State) writeReg(i uint32, v *expr.Node) {
	v.RefCount++
	if i == 31 {
		s.Ctx.ReleaseRoot(s.SP)
		s.SP = v
		return
	}
	s.Ctx.ReleaseRoot(s.X[i])
	s.X[i] = v
}

func (s *State) readMemory(address, width uint64) *expr.Node {
	for _, m := range s.Mem {
		if m.Contains(uint32(address)) {
			return m.Read(memCtx{s.Ctx}, uint32(address), uint32(width))
		}
	}
	diag.Fatalf(diag.KindInvariant, "read from unmapped address 0x%016x", address)
	return nil
}

func (s *State) writeMemory(address uint64, value *expr.Node) {
	for _, m := range s.Mem {
		if m.Contains(uint32(address)) {
			m.Write(memCtx{s.Ctx}, uint32(address), value)
			return
		}
	}
	diag.Fatalf(diag.KindInvariant, "write to unmapped address 0x%016x", address)
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

func (s *State) CloneModel() cpu.State {
	return s.resolveInto(s.Ctx.Clone())
}

func (s *State) resolveInto(ctx *scfia.Context) *State {
	out := &State{Ctx: ctx, Mem: s.Mem}
	for i, r := range s.X {
		out.X[i] = ctx.Lookup(r.ID)
	}
	out.SP = ctx.Lookup(s.SP.ID)
	out.pc = ctx.Lookup(s.pc.ID)
	out.Pstate = Pstate{
		N: ctx.Lookup(s.Pstate.N.ID),
		Z: ctx.Lookup(s.Pstate.Z.ID),
		C: ctx.Lookup(s.Pstate.C.ID),
		V: ctx.Lookup(s.Pstate.V.ID),
	}
	return out
}

func (s *State) newSink() *forksink.Sink[*State] {
	return forksink.New(s, func(base *State) *State {
		return base.resolveInto(base.Ctx.Clone())
	}, func(st *State) *scfia.Context { return st.Ctx })
}
