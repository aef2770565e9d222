package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MaGaroo/isla/tester"
)

var testFlags = struct {
	verbose *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "test <test path>",
		Short:   "Run evaluation test suites",
		Example: `  isla test testdata/suites`,
		Args:    cobra.ExactArgs(1),
		RunE:    runTest,
	}
	testFlags.verbose = cmd.Flags().BoolP("verbose", "v", false, "log each case as it runs")
	rootCmd.AddCommand(cmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	t := &tester.Tester{
		Suites: tester.ListSuites(args[0]),
	}
	if *testFlags.verbose {
		t.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	rs := t.Run()
	testFailed := false
	for _, r := range rs {
		fmt.Fprintln(os.Stdout, r)
		if !r.Passed() {
			testFailed = true
		}
	}
	if testFailed {
		return fmt.Errorf("Test failed")
	}
	return nil
}
