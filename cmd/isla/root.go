package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "isla",
	Short: "Parse and evaluate ISLa specifications",
	Long: `isla works with the Input Specification Language:
- Parses ISLa formulas against a BNF reference grammar and checks their
  well-formedness.
- Evaluates formulas over derivation trees with a three-valued verdict.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return err
	}
	return nil
}
