package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	verr "github.com/MaGaroo/isla/error"
	"github.com/MaGaroo/isla/formula"
	fparser "github.com/MaGaroo/isla/formula/parser"
	"github.com/MaGaroo/isla/grammar"
)

var parseFlags = struct {
	source *string
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "parse <grammar file path>",
		Short:   "Parse an ISLa formula and check its well-formedness",
		Example: `  cat assgn.isla | isla parse assgn.bnf`,
		Args:    cobra.ExactArgs(1),
		RunE:    runParse,
	}
	parseFlags.source = cmd.Flags().StringP("source", "s", "", "formula file path (default stdin)")
	rootCmd.AddCommand(cmd)
}

func runParse(cmd *cobra.Command, args []string) (retErr error) {
	defer func() {
		if retErr != nil {
			decorateErr(retErr, *parseFlags.source)
		}
	}()

	g, err := readGrammar(args[0])
	if err != nil {
		return err
	}

	src := io.Reader(os.Stdin)
	srcName := "stdin"
	if *parseFlags.source != "" {
		f, err := os.Open(*parseFlags.source)
		if err != nil {
			return fmt.Errorf("Cannot open the formula file %s: %w", *parseFlags.source, err)
		}
		defer f.Close()
		src = f
		srcName = *parseFlags.source
	}

	spec, err := fparser.Parse(src, g, nil)
	if err != nil {
		return withSourceName(err, srcName)
	}
	if err := formula.Check(spec, g); err != nil {
		return withSourceName(err, srcName)
	}

	fmt.Fprintln(os.Stdout, spec)
	return nil
}

func readGrammar(path string) (*grammar.Grammar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Cannot open the grammar file %s: %w", path, err)
	}
	defer f.Close()
	g, err := grammar.Parse(f)
	if err != nil {
		return nil, withSourceName(err, path)
	}
	return g, nil
}

func withSourceName(err error, name string) error {
	switch err := err.(type) {
	case *verr.SpecError:
		err.SourceName = name
	case verr.SpecErrors:
		for _, e := range err {
			e.SourceName = name
		}
	}
	return err
}

func decorateErr(err error, path string) {
	if path == "" {
		return
	}
	switch err := err.(type) {
	case *verr.SpecError:
		err.FilePath = path
	case verr.SpecErrors:
		for _, e := range err {
			e.FilePath = path
		}
	}
}
