package riscv32

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cwbudde/go-scfia/internal/diag"
	"github.com/cwbudde/go-scfia/internal/expr"
)

// SetRegisterByName sets register/PC name (xN or pc) to a concrete
// value, the entry point internal/snapshot's loader uses to apply a
// `registers` file onto a freshly built State.
func (s *State) SetRegisterByName(name string, value uint64) {
	if name == "pc" {
		s.Pc = s.Ctx.ConcreteBV(value, 32)
		return
	}
	idx, ok := parseXReg(name)
	if !ok {
		diag.Fatalf(diag.KindSnapshot, "unknown register name %q for riscv32", name)
	}
	s.writeReg(idx, s.Ctx.ConcreteBV(value, 32))
}

func parseXReg(name string) (uint32, bool) {
	if !strings.HasPrefix(name, "x") {
		return 0, false
	}
	n, err := strconv.Atoi(name[1:])
	if err != nil || n < 0 || n > 31 {
		return 0, false
	}
	return uint32(n), true
}

// Registers returns every register's current node by name, for
// debugging tools like `scfia dump` that need to print or graph the
// live expression DAG.
func (s *State) Registers() map[string]*expr.Node {
	out := make(map[string]*expr.Node, 33)
	for i := 0; i < 32; i++ {
		out[fmt.Sprintf("x%d", i)] = s.readReg(uint32(i))
	}
	out["pc"] = s.Pc
	return out
}
