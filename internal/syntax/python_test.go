package syntax

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for PythonParser:
// - Parse every top-level statement form into the right StatementKind
// - Decorated definitions keep the definition's kind with a span starting at the decorator
// - async def / async for map to FunctionDef / For
// - Assignment chains keep all targets in order; tuple/attribute targets are not identifiers
// - import keeps the module name (not the alias); import-from strips leading dots
// - Relative "from . import x" has an empty From
// - Invalid syntax returns *ParseError wrapping ErrParseFailure with the error row
// - Empty source parses to an empty module
// - Cancelled context is reported before parsing

func parseFixture(t *testing.T) (*Module, []byte) {
	t.Helper()

	src, err := os.ReadFile("../../testdata/python/module.py")
	require.NoError(t, err)

	mod, err := NewPythonParser().Parse(context.Background(), src)
	require.NoError(t, err)
	require.NotNil(t, mod)
	return mod, src
}

func TestPythonParser_StatementKinds(t *testing.T) {
	t.Parallel()

	mod, _ := parseFixture(t)

	kinds := make([]StatementKind, 0, len(mod.Statements))
	for _, s := range mod.Statements {
		kinds = append(kinds, s.Kind)
	}

	assert.Equal(t, []StatementKind{
		StmtOther,       // docstring
		StmtImport,      // import os
		StmtImport,      // import collections.abc as cabc, sys
		StmtImportFrom,  // from typing import Optional
		StmtImportFrom,  // from . import sibling
		StmtImportFrom,  // from .pkg.sub import thing
		StmtImportFrom,  // from __future__ import annotations
		StmtAssign,      // VERSION = "1.0"
		StmtAnnAssign,   // count: int = 0
		StmtAssign,      // first = second = 3
		StmtAssign,      // a, b = 1, 2
		StmtAssign,      // obj.attr = 4
		StmtOther,       // total += 1
		StmtFunctionDef, // @decorator def decorated
		StmtFunctionDef, // async def fetch
		StmtClassDef,    // class Repository
		StmtFor,         // for index in range(3)
		StmtFor,         // for k, v in ...
		StmtOther,       // if __name__ == "__main__"
	}, kinds)
}

func TestPythonParser_Names(t *testing.T) {
	t.Parallel()

	mod, src := parseFixture(t)
	s := mod.Statements

	assert.Equal(t, []string{"os"}, s[1].Modules)
	assert.Equal(t, []string{"collections.abc", "sys"}, s[2].Modules)
	assert.Equal(t, "typing", s[3].From)
	assert.Equal(t, "", s[4].From)
	assert.Equal(t, "pkg.sub", s[5].From)
	assert.Equal(t, "__future__", s[6].From)

	assert.Equal(t, []Target{{Identifier: true, Text: "VERSION"}}, s[7].Targets)
	assert.Equal(t, []Target{{Identifier: true, Text: "count"}}, s[8].Targets)
	assert.Equal(t, []Target{{Identifier: true, Text: "first"}, {Identifier: true, Text: "second"}}, s[9].Targets)
	require.Len(t, s[10].Targets, 1)
	assert.False(t, s[10].Targets[0].Identifier)
	assert.Equal(t, Target{Identifier: false, Text: "obj.attr"}, s[11].Targets[0])

	assert.Equal(t, "decorated", s[13].Name)
	assert.Equal(t, "@decorator", string(src[s[13].Span.Start:s[13].Span.Start+len("@decorator")]))
	assert.Equal(t, "fetch", s[14].Name)
	assert.Equal(t, "Repository", s[15].Name)

	assert.Equal(t, []Target{{Identifier: true, Text: "index"}}, s[16].Targets)
	assert.False(t, s[17].Targets[0].Identifier)
}

func TestPythonParser_Spans(t *testing.T) {
	t.Parallel()

	src := []byte("def foo():\n    pass\n")
	mod, err := NewPythonParser().Parse(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, mod.Statements, 1)

	stmt := mod.Statements[0]
	assert.Equal(t, StmtFunctionDef, stmt.Kind)
	assert.Equal(t, "foo", stmt.Name)
	assert.Equal(t, Span{Start: 0, End: 19}, stmt.Span)
}

func TestPythonParser_ParseFailure(t *testing.T) {
	t.Parallel()

	src := []byte("x = 1\ndef broken(:\n    pass\n")
	mod, err := NewPythonParser().Parse(context.Background(), src)

	require.Error(t, err)
	assert.Nil(t, mod)
	assert.ErrorIs(t, err, ErrParseFailure)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.Row)
}

func TestPythonParser_Empty(t *testing.T) {
	t.Parallel()

	mod, err := NewPythonParser().Parse(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, mod.Statements)
}

func TestPythonParser_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPythonParser().Parse(ctx, []byte("x = 1\n"))
	assert.ErrorIs(t, err, context.Canceled)
}
