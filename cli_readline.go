package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/hymkor/go-multiline-ny"
	"github.com/mattn/go-runewidth"
	"github.com/nyaosorg/go-readline-ny"
	"github.com/nyaosorg/go-readline-ny/keys"
	"github.com/nyaosorg/go-readline-ny/simplehistory"
	"github.com/spf13/afero"
)

// This file contains readline related code

type History interface {
	readline.IHistory
	Add(string)
}

type persistentHistory struct {
	filename string
	history  *simplehistory.Container
	fs       afero.Fs
}

func (p *persistentHistory) Len() int {
	return p.history.Len()
}

func (p *persistentHistory) At(i int) string {
	return p.history.At(i)
}

func (p *persistentHistory) Add(s string) {
	p.history.Add(s)
	file, err := p.fs.OpenFile(p.filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		slog.Error("failed to open history file", "file", p.filename, "err", err)
		return
	}
	defer func(file afero.File) {
		if err := file.Close(); err != nil {
			slog.Error("failed to close history file", "file", p.filename, "err", err)
		}
	}(file)
	if _, err := fmt.Fprintf(file, "%q\n", s); err != nil {
		slog.Error("failed to write to history file", "file", p.filename, "err", err)
	}
}

func newPersistentHistory(filename string, h *simplehistory.Container) (History, error) {
	return newPersistentHistoryWithFS(filename, h, afero.NewOsFs())
}

func newPersistentHistoryWithFS(filename string, h *simplehistory.Container, fs afero.Fs) (History, error) {
	b, err := afero.ReadFile(fs, filename)
	if errors.Is(err, os.ErrNotExist) {
		return &persistentHistory{filename: filename, history: h, fs: fs}, nil
	}
	if err != nil {
		return nil, err
	}
	for _, s := range strings.Split(string(b), "\n") {
		if s == "" {
			continue
		}
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return nil, fmt.Errorf("history file format error, maybe you should remove %v, err: %w", filename, err)
		}
		h.Add(unquoted)
	}
	return &persistentHistory{filename: filename, history: h, fs: fs}, nil
}

// generatePS2Prompt pads the continuation prompt to the PS1 width so
// statement lines stay visually aligned.
func generatePS2Prompt(ps1, ps2 string) string {
	return runewidth.FillLeft(ps2, runewidth.StringWidth(ps1))
}

func initializeMultilineEditor(c *Cli) (*multiline.Editor, History, error) {
	ed := &multiline.Editor{}

	if err := ed.BindKey(keys.CtrlJ, readline.AnonymousCommand(ed.NewLine)); err != nil {
		return nil, nil, err
	}
	if err := ed.BindKey(keys.CtrlI, completionCommand(c)); err != nil {
		return nil, nil, err
	}

	history, err := setupHistory(ed, c.historyFile)
	if err != nil {
		return nil, nil, err
	}

	ed.SubmitOnEnterWhen(func(lines []string, _ int) bool {
		return statementTerminated(strings.Join(lines, "\n"))
	})

	ed.SetPrompt(PS1PS2FuncToPromptFunc(
		func() string { return c.session.Prompt() },
		func(ps1 string) string { return generatePS2Prompt(ps1, c.session.ContinuationPrompt()) },
	))

	return ed, history, nil
}

func PS1PS2FuncToPromptFunc(ps1F func() string, ps2F func(ps1 string) string) func(w io.Writer, lnum int) (int, error) {
	return func(w io.Writer, lnum int) (int, error) {
		if lnum == 0 {
			return io.WriteString(w, ps1F())
		}
		return io.WriteString(w, ps2F(ps1F()))
	}
}

// completionCommand wires the completion engine to the Tab key. One
// candidate is accepted in place; several extend the common prefix or are
// listed below the line.
func completionCommand(c *Cli) readline.AnonymousCommand {
	return func(ctx context.Context, b *readline.Buffer) readline.Result {
		line := b.String()
		cursor := len(b.SubString(0, b.Cursor))

		suggestions := c.session.completer.Complete(ctx, line, cursor)
		if len(suggestions) == 0 {
			return readline.CONTINUE
		}

		replaceAt := func(s Suggestion, value string) {
			pos := utf8.RuneCountInString(line[:s.ReplaceStart])
			if s.AppendSeparator {
				value += " "
			}
			b.ReplaceAndRepaint(pos, value)
		}

		if len(suggestions) == 1 {
			replaceAt(suggestions[0], suggestions[0].Value)
			return readline.CONTINUE
		}

		first := suggestions[0]
		partial := line[first.ReplaceStart:first.ReplaceEnd]
		if prefix := commonPrefix(suggestions); len(prefix) > len(partial) {
			s := first
			s.AppendSeparator = false
			replaceAt(s, prefix)
			return readline.CONTINUE
		}

		fmt.Fprintln(b.Out)
		for _, s := range suggestions {
			if s.Description != "" {
				fmt.Fprintf(b.Out, "%s  (%s)\n", runewidth.FillRight(s.Value, 24), s.Description)
			} else {
				fmt.Fprintln(b.Out, s.Value)
			}
		}
		b.RepaintAfterPrompt()
		return readline.CONTINUE
	}
}

func commonPrefix(suggestions []Suggestion) string {
	prefix := suggestions[0].Value
	for _, s := range suggestions[1:] {
		for !strings.HasPrefix(s.Value, prefix) {
			prefix = prefix[:len(prefix)-1]
			if prefix == "" {
				return ""
			}
		}
	}
	return prefix
}

func colorToSequence(attr ...color.Attribute) string {
	var sb strings.Builder
	color.New(attr...).SetWriter(&sb)
	return sb.String()
}

var (
	commentRe     = regexp.MustCompile(`--[^\n]*|/\*(?s:.*?)(?:\*/|$)`)
	stringRe      = regexp.MustCompile(`'(?:[^'\\]|\\.|'')*(?:'|$)`)
	numberRe      = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
	metaCommandRe = regexp.MustCompile(`^\\\S+`)
	keywordRe     = regexp.MustCompile(`(?i)\b(?:` + strings.Join(sqlKeywords, "|") + `)\b`)

	defaultHighlights = []readline.Highlight{
		{Pattern: commentRe, Sequence: colorToSequence(color.FgWhite, color.Faint)},
		{Pattern: stringRe, Sequence: colorToSequence(color.FgGreen, color.Bold)},
		{Pattern: numberRe, Sequence: colorToSequence(color.FgHiBlue, color.Bold)},
		{Pattern: metaCommandRe, Sequence: colorToSequence(color.FgCyan, color.Bold)},
		{Pattern: keywordRe, Sequence: colorToSequence(color.FgHiYellow, color.Bold)},
	}
)

func setLineEditor(ed *multiline.Editor, enableHighlight bool) {
	if color.NoColor || !enableHighlight {
		ed.Highlight = nil
		ed.DefaultColor = ""
		ed.ResetColor = ""
		return
	}

	ed.Highlight = defaultHighlights
	ed.ResetColor = colorToSequence(color.Reset)
	ed.DefaultColor = colorToSequence(color.Reset)
}

func setupHistory(ed *multiline.Editor, historyFileName string) (History, error) {
	history, err := newPersistentHistory(historyFileName, simplehistory.New())
	if err != nil {
		return nil, err
	}

	ed.SetHistory(history)
	ed.SetHistoryCycling(true)

	return history, nil
}

// validateInteractiveInput limits interactive submissions to one statement.
func validateInteractiveInput(statements []inputStatement) (*inputStatement, error) {
	switch len(statements) {
	case 0:
		return nil, errors.New("no input")
	case 1:
		return &statements[0], nil
	default:
		return nil, errors.New("sql queries are limited to single statements in interactive mode")
	}
}

func readInteractiveInput(ctx context.Context, ed *multiline.Editor) (*inputStatement, error) {
	lines, err := ed.Read(ctx)
	if err != nil {
		if len(lines) == 0 {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		str := strings.Join(lines, "\n")
		return &inputStatement{statement: str, delim: delimiterUndefined}, err
	}

	input := strings.Join(lines, "\n")

	trimmed := strings.TrimSpace(input)
	if IsMetaCommand(trimmed) {
		// Meta commands take the raw line, no statement splitting.
		return &inputStatement{statement: trimmed, delim: delimiterUndefined}, nil
	}

	return validateInteractiveInput(separateInput(input))
}

func isInterrupted(err error) bool {
	return errors.Is(err, readline.CtrlC)
}
