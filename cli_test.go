package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCli(t *testing.T) (*Cli, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	session, _ := newTestSession(t)
	var out, errOut bytes.Buffer
	return NewCli(session, "/tmp/history", false, &out, &errOut), &out, &errOut
}

func TestPrintResultMessage(t *testing.T) {
	cli, out, _ := newTestCli(t)
	cli.PrintResult(&Result{Message: "Query OK, 3 rows affected."})
	assert.Equal(t, "Query OK, 3 rows affected.\n", out.String())
}

func TestPrintResultTable(t *testing.T) {
	cli, out, _ := newTestCli(t)
	cli.PrintResult(&Result{
		Header: []string{"id", "name"},
		Rows:   [][]string{{"1", "alice"}, {"2", "bob"}},
	})

	got := out.String()
	assert.Contains(t, got, "id")
	assert.Contains(t, got, "alice")
	assert.Contains(t, got, "bob")
	assert.True(t, strings.HasSuffix(got, "(2 rows)\n"), "row count footer expected, got %q", got)
}

func TestPrintResultExpanded(t *testing.T) {
	cli, out, _ := newTestCli(t)
	cli.session.expanded = true
	cli.PrintResult(&Result{
		Header: []string{"id", "name"},
		Rows:   [][]string{{"1", "alice"}},
	})

	want := "-[ RECORD 1 ]-\n" +
		"id   | 1\n" +
		"name | alice\n" +
		"(1 rows)\n"
	assert.Equal(t, want, out.String())
}

func TestPrintInteractiveError(t *testing.T) {
	cli, _, errOut := newTestCli(t)
	cli.PrintInteractiveError(assert.AnError)
	assert.Contains(t, errOut.String(), "ERROR: ")
}

func TestRunBatch(t *testing.T) {
	cli, out, _ := newTestCli(t)
	code := cli.RunBatch(context.Background(), "SELECT 1; SELECT 2;")
	require.Equal(t, exitCodeSuccess, code)
	assert.Contains(t, out.String(), "Query OK")
}

func TestRunBatchPropagatesQuitExitCode(t *testing.T) {
	cli, _, errOut := newTestCli(t)
	code := cli.RunBatch(context.Background(), `\q`)
	assert.Equal(t, exitCodeSuccess, code)
	assert.Empty(t, errOut.String(), "a clean quit is not an error")
}

func TestRunBatchStopsOnError(t *testing.T) {
	cli, _, errOut := newTestCli(t)
	code := cli.RunBatch(context.Background(), `\c`)
	assert.Equal(t, exitCodeError, code)
	assert.Contains(t, errOut.String(), "ERROR: ")
}
