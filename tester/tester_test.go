package tester

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaGaroo/isla/smt"
)

const suiteSrc = `
description = "def-use over the assignment language"

grammar = '''
<start> ::= <stmt>;
<stmt> ::= <assgn> | <assgn> " ; " <stmt>;
<assgn> ::= <var> " := " <rhs>;
<rhs> ::= <var> | <digit>;
<var> ::= "a" | "b" | "c";
<digit> ::= "0" | "1" | "2";
'''

[[case]]
description = "every digit is non-negative"
tree = '''
(<start> (<stmt> (<assgn> (<var> "a") " := " (<rhs> (<digit> "1")))))
'''
formula = "forall <digit> d: (>= (str.to.int d) 0)"
expect = "sat"

[[case]]
description = "no digit reaches two"
tree = '''
(<start> (<stmt> (<assgn> (<var> "a") " := " (<rhs> (<digit> "1")))))
'''
formula = "forall <digit> d: (>= (str.to.int d) 2)"
expect = "unsat"
`

const failingSuiteSrc = `
grammar = '''
<start> ::= "a";
'''

[[case]]
description = "wrong expectation"
tree = '(<start> "a")'
formula = "true"
expect = "unsat"
`

func writeSuite(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0600))
	return path
}

func TestTester_Run(t *testing.T) {
	dir := t.TempDir()
	writeSuite(t, dir, "defuse.toml", suiteSrc)

	tester := &Tester{
		Suites: ListSuites(dir),
	}
	rs := tester.Run()
	require.Len(t, rs, 2)
	for _, r := range rs {
		assert.True(t, r.Passed(), "%v", r)
	}
}

func TestTester_FailureIsReported(t *testing.T) {
	dir := t.TempDir()
	path := writeSuite(t, dir, "failing.toml", failingSuiteSrc)

	tester := &Tester{
		Suites: ListSuites(path),
		Oracle: smt.NewGroundOracle(),
	}
	rs := tester.Run()
	require.Len(t, rs, 1)
	assert.False(t, rs[0].Passed())
	assert.Equal(t, smt.UNSAT, rs[0].Expected)
	assert.Equal(t, smt.SAT, rs[0].Actual)
	assert.Contains(t, rs[0].String(), "Failed")
}

func TestTester_BrokenInputsSurface(t *testing.T) {
	dir := t.TempDir()
	writeSuite(t, dir, "broken.toml", `grammar = "not bnf`)

	tester := &Tester{
		Suites: ListSuites(dir),
	}
	rs := tester.Run()
	require.Len(t, rs, 1)
	assert.Error(t, rs[0].Error)
	assert.False(t, rs[0].Passed())

	missing := ListSuites(filepath.Join(dir, "no-such-file.toml"))
	require.Len(t, missing, 1)
	assert.Error(t, missing[0].Error)
}
