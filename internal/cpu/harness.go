// Package cpu is the CPU-State Harness boundary (spec.md §4.5): the
// narrow interface a driver loop needs from any ISA adapter, plus the
// stable/volatile memory region split original_source carries (see
// DESIGN.md's "supplemented features"). This package itself never
// decodes an instruction — that is the job of the ISA-specific
// sub-packages (internal/cpu/riscv32, .../armv7m, .../aarch64), each
// of which implements State for its own register file.
package cpu

import "github.com/cwbudde/go-scfia/internal/expr"

// State is one machine's symbolic execution state: its SCFIA context,
// register file, and memory regions, bundled behind a single stepping
// interface so a driver loop never needs to know which ISA it holds.
type State interface {
	// Step advances the state by exactly one instruction, when that
	// instruction's control flow is unambiguous (spec.md §4.5 "Step").
	// Callers must not call Step on a state whose next instruction
	// forks; use StepForking instead when that is unknown up front.
	// hint is the next Hints API candidate batch (spec.md §6), tried
	// against any branch this instruction resolves before falling back
	// to a full solver round-trip; a nil or empty hint skips straight
	// to the round-trip.
	Step(hint []uint64)

	// StepForking advances the state by one instruction, returning
	// every successor state a conditional branch produced in addition
	// to the (possibly mutated in place) receiver. The receiver itself
	// always continues as the first/true branch when a fork occurs
	// (spec.md §4.3.2); forks holds the rest. hint is consulted the
	// same way as in Step.
	//
	// A returned fork is captured at the decision point with the
	// negated condition already asserted into its own context, but its
	// program counter has not been advanced: the driver loop must call
	// Step or StepForking on it again so it re-decodes the same
	// instruction, this time resolving unambiguously now that the
	// negation is on its path constraint.
	StepForking(hint []uint64) (forks []State)

	// CloneModel implements original_source's two-layer clone
	// (DESIGN.md supplemented feature 4): clone the underlying SCFIA
	// context, then re-resolve every register and memory binding into
	// the clone rather than merely copying the pointers, which would
	// leave them pointing at the parent context's nodes.
	CloneModel() State

	// PC returns the current program counter node, used by a driver
	// loop to fetch the next instruction's bytes from memory.
	PC() *expr.Node
}

// MemoryRegion is one addressable span of a machine's memory, backing
// either concrete program/data bytes loaded from an ELF or volatile
// I/O ranges that must never be treated as deterministic (DESIGN.md
// supplemented feature 2).
type MemoryRegion interface {
	// Contains reports whether address (as a concrete value; symbolic
	// addresses must be resolved by the caller via Monomorphize before
	// reaching a MemoryRegion) falls inside this region.
	Contains(address uint32) bool

	// Read returns width/8 bytes starting at address as one
	// concatenated Expression Node.
	Read(ctx MemoryContext, address uint32, width uint32) *expr.Node

	// Write stores value (width/8 bytes) starting at address. A
	// VolatileMemoryRegion discards the write (DESIGN.md supplemented
	// feature 2); a StableMemoryRegion updates its backing bytes.
	Write(ctx MemoryContext, address uint32, value *expr.Node)
}

// MemoryContext is the narrow scfia.Context surface a MemoryRegion
// needs: building concrete/symbolic terminals and bit-vector
// operators to assemble or slice a multi-byte access. Declared here
// (not imported from internal/scfia) for the same reason
// scfia.ForkSink is declared in internal/scfia rather than forcing
// internal/cpu to import a driver-specific type.
type MemoryContext interface {
	ConcreteBV(value uint64, width uint32) *expr.Node
	SymbolicBV(width uint32) *expr.Node
	NewConcat(hi, lo *expr.Node) *expr.Node
	NewExtract(x *expr.Node, high, low uint32) *expr.Node

	// ReleaseRoot drops a memory region's own reference to a byte node
	// it is about to overwrite, retiring it once nothing else needs it
	// (spec.md §4.3.4).
	ReleaseRoot(n *expr.Node)
}
