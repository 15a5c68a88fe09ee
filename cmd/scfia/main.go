package main

import (
	"fmt"
	"os"

	"github.com/cwbudde/go-scfia/cmd/scfia/cmd"
	"github.com/cwbudde/go-scfia/internal/diag"
)

func main() {
	err := diag.Guard(func() {
		if err := cmd.Execute(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	})
	if err != nil {
		if fe, ok := err.(*diag.FatalError); ok {
			fmt.Fprintln(os.Stderr, fe.Format(false))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
