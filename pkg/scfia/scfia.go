// Package scfia is the public façade over the SCFIA core, mirroring
// the shape of the teacher module's pkg/dwscript: a small surface a
// driver program embeds without reaching into internal/*.
package scfia

import (
	"github.com/cwbudde/go-scfia/internal/config"
	"github.com/cwbudde/go-scfia/internal/cpu"
	"github.com/cwbudde/go-scfia/internal/cpu/aarch64"
	"github.com/cwbudde/go-scfia/internal/cpu/armv7m"
	"github.com/cwbudde/go-scfia/internal/cpu/riscv32"
	"github.com/cwbudde/go-scfia/internal/elfloader"
	"github.com/cwbudde/go-scfia/internal/hints"
	"github.com/cwbudde/go-scfia/internal/snapshot"
)

// ISA names the supported instruction sets.
type ISA string

const (
	RV32I   ISA = "riscv32"
	ARMv7M  ISA = "armv7m"
	AArch64 ISA = "aarch64"
)

// State re-exports the CPU-State Harness interface (spec.md §4.5) so
// callers never need to import internal/cpu directly.
type State = cpu.State

// Config re-exports internal/config's document type.
type Config = config.Config

// LoadConfig reads scfia.yaml from path.
func LoadConfig(path string) *Config { return config.Load(path) }

// DefaultConfig returns the configuration used when no scfia.yaml is
// supplied.
func DefaultConfig() *Config { return config.Default() }

// LoadHints reads a JSON hints file (spec.md §6).
func LoadHints(path string) *hints.List { return hints.Load(path) }

// NewState builds a fresh reset-vector state for isa, with an empty
// memory map the caller populates (e.g. via LoadELF). stackTop is
// ignored for riscv32, which has no dedicated stack-pointer register.
func NewState(isa ISA, resetVector, stackTop uint64) State {
	switch isa {
	case RV32I:
		return riscv32.New(uint32(resetVector), nil)
	case ARMv7M:
		return armv7m.New(uint32(resetVector), uint32(stackTop), nil)
	case AArch64:
		return aarch64.New(resetVector, stackTop, nil)
	default:
		panic("scfia: unknown ISA " + string(isa))
	}
}

// LoadELF reads path's PT_LOAD segments and returns them as stable
// memory regions, ready to be attached to a State built for the same
// ISA's address width.
func LoadELF(ctx cpu.MemoryContext, path string) []cpu.MemoryRegion {
	return elfloader.NewRegions(ctx, elfloader.Load(path))
}

// LoadSnapshot reads a machine-state snapshot directory (spec.md §6).
func LoadSnapshot(dir string) *snapshot.Snapshot { return snapshot.Load(dir) }

// RunToCompletion drives state with Step (or StepForking when forking
// is true) over a worklist: each step takes one state off the front
// and puts it back at the end, followed by any states it forked off.
// Once maxSteps steps have been taken in total it returns every state
// still on the worklist. No state is ever treated as finished, so with
// maxSteps 0 (no limit) the loop ends only when a step aborts fatally.
// This is the worklist discipline spec.md §4.4 describes for a
// driver consuming a Fork Sink's produced states. hintList may be nil;
// when non-nil, one candidate batch is drained from it per step (spec.md
// §6's Hints API) and offered to that step's branch resolution.
func RunToCompletion(initial State, forking bool, maxSteps int, hintList *hints.List) []State {
	work := []State{initial}
	var done []State
	steps := 0
	for len(work) > 0 {
		if maxSteps > 0 && steps >= maxSteps {
			done = append(done, work...)
			break
		}
		st := work[0]
		work = work[1:]
		hint, _ := hintList.Next()
		if forking {
			work = append(work, st)
			work = append(work, st.StepForking(hint)...)
		} else {
			st.Step(hint)
			work = append(work, st)
		}
		steps++
	}
	return done
}
