package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

const (
	exitCodeSuccess = 0
	exitCodeError   = 1
)

// Cli drives one interactive or batch session against a connection.
type Cli struct {
	session         *Session
	historyFile     string
	enableHighlight bool
	outStream       io.Writer
	errStream       io.Writer
}

func NewCli(session *Session, historyFile string, enableHighlight bool, outStream, errStream io.Writer) *Cli {
	return &Cli{
		session:         session,
		historyFile:     historyFile,
		enableHighlight: enableHighlight,
		outStream:       outStream,
		errStream:       errStream,
	}
}

// RunInteractive runs the read-eval-print loop until \q, EOF, or a fatal
// setup error. It returns the process exit code.
func (c *Cli) RunInteractive(ctx context.Context) int {
	ed, history, err := initializeMultilineEditor(c)
	if err != nil {
		c.PrintInteractiveError(err)
		return exitCodeError
	}
	setLineEditor(ed, c.enableHighlight)

	// Warm the metadata cache so the first Tab press has data to offer.
	go c.session.completer.Warm(ctx)

	for {
		stmt, err := readInteractiveInput(ctx, ed)
		if err != nil {
			if isInterrupted(err) {
				fmt.Fprintln(c.outStream)
				continue
			}
			if errors.Is(err, io.EOF) {
				return exitCodeSuccess
			}
			c.PrintInteractiveError(err)
			continue
		}

		history.Add(stmt.statement)

		result, err := c.session.ExecuteStatement(ctx, stmt.statement)
		if err != nil {
			var exitCodeErr *ExitCodeError
			if errors.As(err, &exitCodeErr) {
				return GetExitCode(err)
			}
			c.PrintInteractiveError(err)
			continue
		}
		c.PrintResult(result)
	}
}

// RunBatch executes semicolon-separated input non-interactively, stopping at
// the first error.
func (c *Cli) RunBatch(ctx context.Context, input string) int {
	for _, stmt := range separateInput(input) {
		result, err := c.session.ExecuteStatement(ctx, stmt.statement)
		if err != nil {
			var exitCodeErr *ExitCodeError
			if !errors.As(err, &exitCodeErr) {
				c.PrintInteractiveError(err)
			}
			return GetExitCode(err)
		}
		c.PrintResult(result)
	}
	return exitCodeSuccess
}

func (c *Cli) PrintInteractiveError(err error) {
	color.New(color.FgRed).Fprintf(c.errStream, "ERROR: %s\n", err)
}

// PrintResult renders a statement outcome, honoring the expanded display
// toggle.
func (c *Cli) PrintResult(result *Result) {
	if result == nil {
		return
	}
	if result.Message != "" {
		fmt.Fprintln(c.outStream, result.Message)
		return
	}
	if c.session.expanded {
		c.printExpanded(result)
	} else {
		c.printTable(result)
	}
	fmt.Fprintf(c.outStream, "(%d rows)\n", len(result.Rows))
}

func (c *Cli) printTable(result *Result) {
	table := tablewriter.NewTable(c.outStream,
		tablewriter.WithRenderer(
			renderer.NewBlueprint(tw.Rendition{Symbols: tw.NewSymbols(tw.StyleASCII)})),
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithTrimSpace(tw.Off),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(result.Header)
	for _, row := range result.Rows {
		if err := table.Append(row); err != nil {
			slog.Error("tablewriter.Table.Append() failed", "err", err)
		}
	}
	if len(result.Rows) > 0 || len(result.Header) > 0 {
		if err := table.Render(); err != nil {
			slog.Error("tablewriter.Table.Render() failed", "err", err)
		}
	}
}

// printExpanded renders one block per row, \x style.
func (c *Cli) printExpanded(result *Result) {
	width := 0
	for _, h := range result.Header {
		width = max(width, runewidth.StringWidth(h))
	}
	for i, row := range result.Rows {
		fmt.Fprintf(c.outStream, "-[ RECORD %d ]-\n", i+1)
		for j, h := range result.Header {
			value := ""
			if j < len(row) {
				value = row[j]
			}
			fmt.Fprintf(c.outStream, "%s | %s\n", runewidth.FillRight(h, width), value)
		}
	}
}
