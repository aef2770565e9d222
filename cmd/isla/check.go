package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/MaGaroo/isla/eval"
	"github.com/MaGaroo/isla/formula"
	fparser "github.com/MaGaroo/isla/formula/parser"
	"github.com/MaGaroo/isla/smt"
	"github.com/MaGaroo/isla/tree"
)

var checkFlags = struct {
	formula       *string
	functionalInt *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:   "check <grammar file path> <tree file path>",
		Short: "Evaluate an ISLa formula over a derivation tree",
		Long: `check parses a derivation tree written in the parenthesised description
format and reports whether it satisfies the formula: sat, unsat, or undef.
The built-in ground oracle decides the SMT atoms; regular-expression
constraints stay undef.`,
		Example: `  cat assgn.isla | isla check assgn.bnf tree.txt`,
		Args:    cobra.ExactArgs(2),
		RunE:    runCheck,
	}
	checkFlags.formula = cmd.Flags().StringP("formula", "f", "", "formula file path (default stdin)")
	checkFlags.functionalInt = cmd.Flags().Bool("assume-functional-int", false, "assert that universally quantified integer properties are functional in the bound variable")
	rootCmd.AddCommand(cmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	g, err := readGrammar(args[0])
	if err != nil {
		return err
	}

	treeData, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("Cannot read the tree file %s: %w", args[1], err)
	}
	t, err := tree.ParseDescription(string(treeData))
	if err != nil {
		return err
	}
	if !t.IsClosed() {
		return fmt.Errorf("the tree %s is not closed: every leaf must be a terminal", args[1])
	}

	src := io.Reader(os.Stdin)
	srcName := "stdin"
	if *checkFlags.formula != "" {
		f, err := os.Open(*checkFlags.formula)
		if err != nil {
			return fmt.Errorf("Cannot open the formula file %s: %w", *checkFlags.formula, err)
		}
		defer f.Close()
		src = f
		srcName = *checkFlags.formula
	}
	spec, err := fparser.Parse(src, g, nil)
	if err != nil {
		return withSourceName(err, srcName)
	}
	if err := formula.Check(spec, g); err != nil {
		return withSourceName(err, srcName)
	}

	var opts []eval.Option
	if *checkFlags.functionalInt {
		opts = append(opts, eval.AssumeFunctionalIntDomain())
	}
	v, err := eval.Check(t, spec, smt.NewGroundOracle(), opts...)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, v)
	return nil
}
