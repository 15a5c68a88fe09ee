package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/go-scfia/internal/cpu/aarch64"
	"github.com/cwbudde/go-scfia/internal/cpu/armv7m"
	"github.com/cwbudde/go-scfia/internal/cpu/riscv32"
	"github.com/cwbudde/go-scfia/internal/elfloader"
	"github.com/cwbudde/go-scfia/internal/expr"
	"github.com/cwbudde/go-scfia/internal/hints"
	"github.com/cwbudde/go-scfia/internal/snapshot"
	pubscfia "github.com/cwbudde/go-scfia/pkg/scfia"
)

var (
	runISA       string
	runELF       string
	runHints     string
	runForking   bool
	runMaxSteps  int
	runResetAddr uint64
	runStackTop  uint64
)

var runCmd = &cobra.Command{
	Use:   "run <snapshot-dir>",
	Short: "Load a state and step it up to --max-steps times",
	Long: `run loads an ELF and/or a machine-state snapshot directory, builds
the initial CPU state for the chosen ISA, and drives the step/
step_forking worklist loop for --max-steps steps, printing one line per
state left on the worklist. With --max-steps=0 the loop has no step
limit and ends only when a step aborts.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runISA, "isa", "", "target ISA: riscv32, armv7m, or aarch64 (required)")
	runCmd.Flags().StringVar(&runELF, "elf", "", "ELF file to load as initial memory contents")
	runCmd.Flags().StringVar(&runHints, "hints", "", "JSON hints file consulted before solver round-trips")
	runCmd.Flags().BoolVar(&runForking, "forking", false, "use step_forking instead of step")
	runCmd.Flags().IntVar(&runMaxSteps, "max-steps", 1000, "stop after this many steps (0 = unbounded)")
	runCmd.Flags().Uint64Var(&runResetAddr, "reset-vector", 0, "initial program counter")
	runCmd.Flags().Uint64Var(&runStackTop, "stack-top", 0, "initial stack pointer (armv7m, aarch64)")
	runCmd.MarkFlagRequired("isa")
}

func runRun(_ *cobra.Command, args []string) error {
	snapshotDir := args[0]

	state := pubscfia.NewState(pubscfia.ISA(runISA), runResetAddr, runStackTop)

	if runELF != "" {
		attachELF(runISA, state, runELF)
	}

	snap := pubscfia.LoadSnapshot(snapshotDir)
	applySnapshot(runISA, state, snap)

	var hintList *hints.List
	if runHints != "" {
		hintList = pubscfia.LoadHints(runHints)
	}

	results := pubscfia.RunToCompletion(state, runForking, runMaxSteps, hintList)
	for i, st := range results {
		fmt.Printf("state %d: pc=%s\n", i, formatNode(st.PC()))
	}
	if verbose {
		fmt.Printf("%d state(s) after up to %d steps\n", len(results), runMaxSteps)
	}
	return nil
}

func attachELF(isa string, state pubscfia.State, path string) {
	switch s := state.(type) {
	case *riscv32.State:
		s.Mem = elfloader.NewRegions(s.MemoryContext(), elfloader.Load(path))
	case *armv7m.State:
		s.Mem = elfloader.NewRegions(s.MemoryContext(), elfloader.Load(path))
	case *aarch64.State:
		s.Mem = elfloader.NewRegions(s.MemoryContext(), elfloader.Load(path))
	}
}

func applySnapshot(isa string, state pubscfia.State, snap *snapshot.Snapshot) {
	for name, value := range snap.Registers {
		switch s := state.(type) {
		case *riscv32.State:
			s.SetRegisterByName(name, value)
		case *armv7m.State:
			s.SetRegisterByName(name, value)
		case *aarch64.State:
			s.SetRegisterByName(name, value)
		}
	}
	for name, value := range snap.Pstate {
		switch s := state.(type) {
		case *armv7m.State:
			s.SetPstateByName(name, value)
		case *aarch64.State:
			s.SetPstateByName(name, value)
		}
	}
}

func formatNode(n *expr.Node) string {
	if v, ok := n.ConcreteValue(); ok {
		return fmt.Sprintf("0x%x", v)
	}
	return fmt.Sprintf("<symbolic #%d>", n.ID)
}
