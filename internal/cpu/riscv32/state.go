// Package riscv32 implements the RV32I subset of the CPU-State Harness
// (spec.md §4.5), grounded on original_source/src/models/riscv/rv32i.rs
// — the opcode groups, funct3/funct7 dispatch order, and immediate
// assembly (B-type's scattered imm[12|10:5|4:1|11] bit layout in
// particular) follow that file exactly, re-expressed against this
// module's Context/Node API instead of Scfia's Rc<RefCell<...>>
// graph.
package riscv32

import (
	"github.com/cwbudde/go-scfia/internal/cpu"
	"github.com/cwbudde/go-scfia/internal/diag"
	"github.com/cwbudde/go-scfia/internal/expr"
	"github.com/cwbudde/go-scfia/internal/forksink"
	"github.com/cwbudde/go-scfia/internal/scfia"
)

// State is one RV32I machine state: 32 general-purpose registers
// (x0 is wired to always read zero, matching the ISA, even though it
// is stored like any other register), the program counter, and a flat
// list of memory regions checked in order.
type State struct {
	Ctx  *scfia.Context
	Regs [32]*expr.Node
	Pc   *expr.Node
	Mem  []cpu.MemoryRegion
}

// New builds an RV32I state with every register zeroed and pc set to
// resetVector, inside a fresh SCFIA context.
func New(resetVector uint32, mem []cpu.MemoryRegion) *State {
	ctx := scfia.New()
	s := &State{Ctx: ctx, Mem: mem}
	for i := range s.Regs {
		s.Regs[i] = ctx.ConcreteBV(0, 32)
		s.Regs[i].RefCount++
	}
	s.Pc = ctx.ConcreteBV(uint64(resetVector), 32)
	return s
}

func (s *State) PC() *expr.Node { return s.Pc }

// readReg returns register i's value, hardwiring x0 to the constant
// zero regardless of what Regs[0] currently holds.
func (s *State) readReg(i uint32) *expr.Node {
	if i == 0 {
		return s.Ctx.ConcreteBV(0, 32)
	}
	return s.Regs[i]
}

// writeReg stores value into register i, silently discarding writes
// to x0 per the ISA. The overwritten value gives up its root-held
// reference, retiring it when nothing else still needs it (spec.md
// §4.3.4).
func (s *State) writeReg(i uint32, value *expr.Node) {
	if i == 0 {
		return
	}
	value.RefCount++
	s.Ctx.ReleaseRoot(s.Regs[i])
	s.Regs[i] = value
}

func (s *State) readMemory(address uint32, width uint32) *expr.Node {
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

// memCtx adapts *scfia.Context to cpu.MemoryContext, filling in the
// fork-sink-less SymbolicBV/factory calls a memory region needs. A
// region never participates in forking itself (only CheckCondition
// does), so nil is always the right sink here.
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

// CloneModel implements the two-layer clone DESIGN.md documents as
// supplemented feature 4: clone the SCFIA context, then re-resolve
// every register against the clone by id rather than copying the
// parent's *expr.Node pointers (which would point into the wrong
// context once the contexts diverge).
func (s *State) CloneModel() cpu.State {
	clonedCtx := s.Ctx.Clone()
	clone := &State{Ctx: clonedCtx, Mem: s.Mem}
	for i, r := range s.Regs {
		clone.Regs[i] = clonedCtx.Lookup(r.ID)
	}
	clone.Pc = clonedCtx.Lookup(s.Pc.ID)
	return clone
}

// resolveInto implements the same re-resolution CloneModel uses,
// shared with forksink.Sink's generic clone callback so a forked
// successor's registers point at its own context's nodes.
func (s *State) resolveInto(ctx *scfia.Context) *State {
	out := &State{Ctx: ctx, Mem: s.Mem}
	for i, r := range s.Regs {
		out.Regs[i] = ctx.Lookup(r.ID)
	}
	out.Pc = ctx.Lookup(s.Pc.ID)
	return out
}

// newSink builds a forksink.Sink bound to this state's clone/resolve
// pair, used by Step/StepForking before decoding an instruction that
// might branch.
func (s *State) newSink() *forksink.Sink[*State] {
	return forksink.New(s, func(base *State) *State {
		return base.resolveInto(base.Ctx.Clone())
	}, func(st *State) *scfia.Context { return st.Ctx })
}
