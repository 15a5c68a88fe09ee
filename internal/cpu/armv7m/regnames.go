package armv7m

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cwbudde/go-scfia/internal/diag"
	"github.com/cwbudde/go-scfia/internal/expr"
)

// SetRegisterByName sets register/SP/LR/PC name (rN, sp, lr, pc) to a
// concrete value, the entry point internal/snapshot's loader uses to
// apply a `registers` file onto a freshly built State.
func (s *State) SetRegisterByName(name string, value uint64) {
	switch name {
	case "sp":
		s.SP = s.Ctx.ConcreteBV(value, 32)
		return
	case "lr":
		s.LR = s.Ctx.ConcreteBV(value, 32)
		return
	case "pc":
		s.pc = s.Ctx.ConcreteBV(value, 32)
		return
	}
	if !strings.HasPrefix(name, "r") {
		diag.Fatalf(diag.KindSnapshot, "unknown register name %q for armv7m", name)
	}
	n, err := strconv.Atoi(name[1:])
	if err != nil || n < 0 || n > 12 {
		diag.Fatalf(diag.KindSnapshot, "unknown register name %q for armv7m", name)
	}
	s.writeReg(uint32(n), s.Ctx.ConcreteBV(value, 32))
}

// SetPstateByName sets one of the n/z/c/v condition flags to a
// concrete boolean (snapshot value 0 or 1), the `registers_pstate`
// counterpart to SetRegisterByName.
func (s *State) SetPstateByName(name string, value uint64) {
	v := s.Ctx.ConcreteBool(value != 0)
	switch name {
	case "n":
		s.APSR.N = v
	case "z":
		s.APSR.Z = v
	case "c":
		s.APSR.C = v
	case "v":
		s.APSR.V = v
	default:
		diag.Fatalf(diag.KindSnapshot, "unknown pstate field %q for armv7m", name)
	}
}

// Registers returns every register, SP, LR and PC by name, for
// debugging tools like `scfia dump` that need to print or graph the
// live expression DAG.
func (s *State) Registers() map[string]*expr.Node {
	out := make(map[string]*expr.Node, 16)
	for i := 0; i < 13; i++ {
		out[fmt.Sprintf("r%d", i)] = s.readReg(uint32(i))
	}
	out["sp"] = s.SP
	out["lr"] = s.LR
	out["pc"] = s.pc
	return out
}
