// Package tester runs ISLa evaluation test suites: TOML documents holding
// a reference grammar and cases, each pairing a derivation tree and a
// formula with the verdict checking them must produce.
package tester

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/MaGaroo/isla/eval"
	"github.com/MaGaroo/isla/formula"
	fparser "github.com/MaGaroo/isla/formula/parser"
	"github.com/MaGaroo/isla/grammar"
	"github.com/MaGaroo/isla/smt"
	"github.com/MaGaroo/isla/tree"
)

// Suite is one test-suite file: a grammar shared by all cases and a list
// of cases, each checking one tree against one formula.
type Suite struct {
	Description string `toml:"description"`
	Grammar     string `toml:"grammar"`
	Cases       []Case `toml:"case"`
}

type Case struct {
	Description string `toml:"description"`
	Tree        string `toml:"tree"`
	Formula     string `toml:"formula"`
	Expect      string `toml:"expect"`
}

// SuiteWithMetadata carries a loaded suite together with its origin, or
// the error that prevented loading it.
type SuiteWithMetadata struct {
	Suite    *Suite
	FilePath string
	Error    error
}

// ListSuites loads a suite file or every .toml file under a directory.
func ListSuites(testPath string) []*SuiteWithMetadata {
	fi, err := os.Stat(testPath)
	if err != nil {
		return []*SuiteWithMetadata{
			{
				FilePath: testPath,
				Error:    err,
			},
		}
	}
	if !fi.IsDir() {
		s, err := loadSuite(testPath)
		return []*SuiteWithMetadata{
			{
				Suite:    s,
				FilePath: testPath,
				Error:    err,
			},
		}
	}

	es, err := os.ReadDir(testPath)
	if err != nil {
		return []*SuiteWithMetadata{
			{
				FilePath: testPath,
				Error:    err,
			},
		}
	}
	var suites []*SuiteWithMetadata
	for _, e := range es {
		p := filepath.Join(testPath, e.Name())
		if !e.IsDir() && !strings.HasSuffix(e.Name(), ".toml") {
			continue
		}
		suites = append(suites, ListSuites(p)...)
	}
	return suites
}

func loadSuite(path string) (*Suite, error) {
	var s Suite
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// TestResult is the outcome of one case.
type TestResult struct {
	SuitePath   string
	Description string
	Error       error
	Expected    smt.Verdict
	Actual      smt.Verdict
}

func (r *TestResult) Passed() bool {
	return r.Error == nil && r.Expected == r.Actual
}

func (r *TestResult) String() string {
	name := r.SuitePath
	if r.Description != "" {
		name = fmt.Sprintf("%v: %v", r.SuitePath, r.Description)
	}
	if r.Error != nil {
		const indent = "    "
		msgLines := strings.Split(r.Error.Error(), "\n")
		return fmt.Sprintf("Failed %v:\n%v%v", name, indent, strings.Join(msgLines, "\n"+indent))
	}
	if r.Expected != r.Actual {
		return fmt.Sprintf("Failed %v:\n    expected %v but got %v", name, r.Expected, r.Actual)
	}
	return fmt.Sprintf("Passed %v", name)
}

// Tester evaluates the cases of the loaded suites with the given oracle.
type Tester struct {
	Suites []*SuiteWithMetadata
	Oracle smt.Oracle
	Logger *slog.Logger
}

func (t *Tester) Run() []*TestResult {
	oracle := t.Oracle
	if oracle == nil {
		oracle = smt.NewGroundOracle()
	}
	var rs []*TestResult
	for _, s := range t.Suites {
		if s.Error != nil {
			rs = append(rs, &TestResult{
				SuitePath: s.FilePath,
				Error:     s.Error,
			})
			continue
		}
		rs = append(rs, t.runSuite(s, oracle)...)
	}
	return rs
}

func (t *Tester) runSuite(s *SuiteWithMetadata, oracle smt.Oracle) []*TestResult {
	g, err := grammar.ParseString(s.Suite.Grammar)
	if err != nil {
		return []*TestResult{
			{
				SuitePath: s.FilePath,
				Error:     err,
			},
		}
	}

	var rs []*TestResult
	for _, c := range s.Suite.Cases {
		rs = append(rs, t.runCase(s.FilePath, g, c, oracle))
	}
	return rs
}

func (t *Tester) runCase(path string, g *grammar.Grammar, c Case, oracle smt.Oracle) *TestResult {
	r := &TestResult{
		SuitePath:   path,
		Description: c.Description,
		Expected:    smt.Verdict(c.Expect),
	}
	switch r.Expected {
	case smt.SAT, smt.UNSAT, smt.UNDEF:
	default:
		r.Error = fmt.Errorf("invalid expectation %q: one of sat, unsat, undef", c.Expect)
		return r
	}

	dt, err := tree.ParseDescription(c.Tree)
	if err != nil {
		r.Error = err
		return r
	}
	spec, err := fparser.ParseString(c.Formula, g, nil)
	if err != nil {
		r.Error = err
		return r
	}
	if err := formula.Check(spec, g); err != nil {
		r.Error = err
		return r
	}

	if t.Logger != nil {
		t.Logger.Debug("checking case",
			slog.String("suite", path),
			slog.String("case", c.Description),
			slog.String("formula", spec.String()))
	}

	v, err := eval.Check(dt, spec, oracle)
	if err != nil {
		r.Error = err
		return r
	}
	r.Actual = v
	return r
}
