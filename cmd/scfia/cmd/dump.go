package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/go-scfia/internal/cpu/aarch64"
	"github.com/cwbudde/go-scfia/internal/cpu/armv7m"
	"github.com/cwbudde/go-scfia/internal/cpu/riscv32"
	"github.com/cwbudde/go-scfia/internal/expr"
	"github.com/cwbudde/go-scfia/internal/scfia"
	pubscfia "github.com/cwbudde/go-scfia/pkg/scfia"
)

var (
	dumpISA string
	dumpELF string
	dumpDot bool
)

var dumpCmd = &cobra.Command{
	Use:   "dump <snapshot-dir>",
	Short: "Print the expression DAG of every register in a snapshot",
	Long: `dump loads a machine-state snapshot the same way run does, then
prints the live expression DAG rooted at each register (including
SP, LR and PC where the ISA has them) either as an indented text tree
or, with --dot, as Graphviz dot. Condition flags are not printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().StringVar(&dumpISA, "isa", "", "target ISA: riscv32, armv7m, or aarch64 (required)")
	dumpCmd.Flags().StringVar(&dumpELF, "elf", "", "ELF file to load as initial memory contents")
	dumpCmd.Flags().BoolVar(&dumpDot, "dot", false, "render as Graphviz dot instead of a text tree")
	dumpCmd.MarkFlagRequired("isa")
}

func runDump(_ *cobra.Command, args []string) error {
	snapshotDir := args[0]

	state := pubscfia.NewState(pubscfia.ISA(dumpISA), 0, 0)
	if dumpELF != "" {
		attachELF(dumpISA, state, dumpELF)
	}

	snap := pubscfia.LoadSnapshot(snapshotDir)
	applySnapshot(dumpISA, state, snap)

	roots := registersOf(state)
	if dumpDot {
		fmt.Print(scfia.DumpDot(roots))
	} else {
		fmt.Print(scfia.DumpText(roots))
	}
	return nil
}

func registersOf(state pubscfia.State) map[string]*expr.Node {
	switch s := state.(type) {
	case *riscv32.State:
		return s.Registers()
	case *armv7m.State:
		return s.Registers()
	case *aarch64.State:
		return s.Registers()
	default:
		return nil
	}
}
