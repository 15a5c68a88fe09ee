package aarch64

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cwbudde/go-scfia/internal/diag"
	"github.com/cwbudde/go-scfia/internal/expr"
)

// SetRegisterByName sets register/SP/PC name (xN, sp, pc) to a
// concrete value, the entry point internal/snapshot's loader uses to
// apply a `registers` file onto a freshly built State.
func (s *State) SetRegisterByName(name string, value uint64) {
	switch name {
	case "sp":
		s.SP = s.Ctx.ConcreteBV(value, 64)
		return
	case "pc":
		s.pc = s.Ctx.ConcreteBV(value, 64)
		return
	}
	if !strings.HasPrefix(name, "x") {
		diag.Fatalf(diag.KindSnapshot, "unknown register name %q for aarch64", name)
	}
	n, err := strconv.Atoi(name[1:])
	if err != nil || n < 0 || n > 30 {
		diag.Fatalf(diag.KindSnapshot, "unknown register name %q for aarch64", name)
	}
	s.writeReg(uint32(n), s.Ctx.ConcreteBV(value, 64))
}

// SetPstateByName sets one of the n/z/c/v condition flags to a
// concrete boolean (snapshot value 0 or 1).
func (s *State) SetPstateByName(name string, value uint64) {
	v := s.Ctx.ConcreteBool(value != 0)
	switch name {
	case "n":
		s.Pstate.N = v
	case "z":
		s.Pstate.Z = v
	case "c":
		s.Pstate.C = v
	case "v":
		s.Pstate.V = v
	default:
		diag.Fatalf(diag.KindSnapshot, "unknown pstate field %q for aarch64", name)
	}
}

// Registers returns every register, SP and PC by name, for debugging
// tools like `scfia dump` that need to print or graph the live
// expression DAG.
func (s *State) Registers() map[string]*expr.Node {
	out := make(map[string]*expr.Node, 32)
	for i := 0; i < 31; i++ {
		out[fmt.Sprintf("x%d", i)] = s.readReg(uint32(i))
	}
	out["sp"] = s.SP
	out["pc"] = s.pc
	return out
}
