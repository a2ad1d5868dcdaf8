package main

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SuggestionKind categorizes a completion candidate. The kind drives ranking
// and the one-line description shown next to the candidate.
type SuggestionKind int

const (
	SuggestionCommand SuggestionKind = iota
	SuggestionCommandArgument
	SuggestionSchema
	SuggestionTable
	SuggestionColumn
	SuggestionFunction
	SuggestionKeyword
	SuggestionNamedQuery
	SuggestionSession
)

// priority orders merged candidate sets: object names the user is most
// likely typing come first, generic keywords last.
func (k SuggestionKind) priority() int {
	switch k {
	case SuggestionTable:
		return 1
	case SuggestionColumn:
		return 2
	case SuggestionSchema:
		return 3
	case SuggestionFunction:
		return 4
	case SuggestionKeyword:
		return 5
	default:
		return 6
	}
}

// Suggestion is one completion candidate. ReplaceStart/ReplaceEnd are byte
// offsets into the input line spanning exactly the partial token, so that
// accepting the suggestion replaces only that token.
type Suggestion struct {
	Value           string
	Kind            SuggestionKind
	ReplaceStart    int
	ReplaceEnd      int
	AppendSeparator bool
	Description     string
}

// ContextKind classifies what the cursor is positioned on.
type ContextKind int

const (
	ContextCommandName ContextKind = iota
	ContextCommandArgument
	ContextDottedIdentifier
	ContextBareIdentifier
)

// CompletionContext is the transient classification of one (line, cursor)
// pair; it is recomputed from scratch on every completion request.
type CompletionContext struct {
	Kind       ContextKind
	TokenStart int
	TokenEnd   int
	Partial    string

	// Command is the registry entry resolved from the first token; only set
	// for ContextCommandArgument, and only when the command is known.
	Command    commandDescriptor
	HasCommand bool

	// Prefix is the identifier run before the terminating dot; only set for
	// ContextDottedIdentifier.
	Prefix string

	// WordBoundary reports whether the token starts at the beginning of the
	// line or right after whitespace; keywords and functions are offered
	// only there.
	WordBoundary bool
}

func isTokenDelimiter(r rune) bool {
	return unicode.IsSpace(r) || r == '(' || r == ',' || r == '.'
}

func isIdentifierRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// tokenStart scans left from cursor to the start of the current token. A dot
// terminates the scan but stays out of the token, so "users.na" yields "na".
func tokenStart(line string, cursor int) int {
	i := cursor
	for i > 0 {
		r, size := utf8.DecodeLastRuneInString(line[:i])
		if isTokenDelimiter(r) {
			break
		}
		i -= size
	}
	return i
}

// classify decides what kind of completion the cursor position calls for.
func classify(line string, cursor int) CompletionContext {
	if cursor > len(line) {
		cursor = len(line)
	}

	if strings.HasPrefix(line, "\\") {
		firstTokenEnd := strings.IndexFunc(line, unicode.IsSpace)
		if firstTokenEnd < 0 {
			firstTokenEnd = len(line)
		}
		if cursor <= firstTokenEnd {
			return CompletionContext{
				Kind:       ContextCommandName,
				TokenStart: 0,
				TokenEnd:   cursor,
				Partial:    line[:cursor],
			}
		}

		start := tokenStart(line, cursor)
		cc := CompletionContext{
			Kind:       ContextCommandArgument,
			TokenStart: start,
			TokenEnd:   cursor,
			Partial:    line[start:cursor],
		}
		cc.Command, cc.HasCommand = lookupMetaCommand(strings.TrimPrefix(line[:firstTokenEnd], "\\"))
		return cc
	}

	start := tokenStart(line, cursor)
	cc := CompletionContext{
		TokenStart: start,
		TokenEnd:   cursor,
		Partial:    line[start:cursor],
	}

	if start > 0 && line[start-1] == '.' {
		end := start - 1
		begin := end
		for begin > 0 {
			r, size := utf8.DecodeLastRuneInString(line[:begin])
			if !isIdentifierRune(r) {
				break
			}
			begin -= size
		}
		cc.Kind = ContextDottedIdentifier
		cc.Prefix = line[begin:end]
		return cc
	}

	cc.Kind = ContextBareIdentifier
	if start == 0 {
		cc.WordBoundary = true
	} else {
		r, _ := utf8.DecodeLastRuneInString(line[:start])
		cc.WordBoundary = unicode.IsSpace(r)
	}
	return cc
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// Completer is the completion engine of one interactive session. It owns the
// metadata cache exclusively and borrows the database handle through it.
type Completer struct {
	cache  *metadataCache
	config *Config
}

func NewCompleter(handle DBHandle, config *Config) *Completer {
	return &Completer{cache: newMetadataCache(handle), config: config}
}

// Invalidate drops all cached metadata, forcing a refetch on the next
// completion request.
func (c *Completer) Invalidate() {
	c.cache.Invalidate()
}

// Rebind points the completer at a new connection and clears the cache.
func (c *Completer) Rebind(handle DBHandle) {
	c.cache.rebind(handle)
}

// Warm populates the metadata cache ahead of the first keystroke. Intended
// to be called in a goroutine right after connecting.
func (c *Completer) Warm(ctx context.Context) {
	c.cache.ensureFresh(ctx)
}

// Complete returns ranked suggestions for the cursor position. It never
// fails: fetch errors are logged and the result degrades to whatever
// metadata is already cached.
func (c *Completer) Complete(ctx context.Context, line string, cursor int) []Suggestion {
	cc := classify(line, cursor)

	var candidates []Suggestion
	add := func(kind SuggestionKind, description string, appendSep bool, values []string) {
		for _, v := range values {
			if !hasPrefixFold(v, cc.Partial) {
				continue
			}
			candidates = append(candidates, Suggestion{
				Value:           v,
				Kind:            kind,
				ReplaceStart:    cc.TokenStart,
				ReplaceEnd:      cc.TokenEnd,
				AppendSeparator: appendSep,
				Description:     description,
			})
		}
	}

	switch cc.Kind {
	case ContextCommandName:
		for _, d := range metaCommands {
			value := "\\" + d.Name
			if !strings.HasPrefix(value, cc.Partial) {
				continue
			}
			candidates = append(candidates, Suggestion{
				Value:           value,
				Kind:            SuggestionCommand,
				ReplaceStart:    cc.TokenStart,
				ReplaceEnd:      cc.TokenEnd,
				AppendSeparator: true,
				Description:     d.Help,
			})
		}

	case ContextCommandArgument:
		if !cc.HasCommand {
			break
		}
		switch cc.Command.Arg {
		case argDatabase:
			databases, err := c.cache.handleRef().ListDatabases(ctx)
			if err != nil {
				slog.Debug("database list fetch failed", "err", err)
			}
			add(SuggestionCommandArgument, cc.Command.ArgHelp, false, databases)
		case argTable:
			add(SuggestionTable, cc.Command.ArgHelp, false, c.cache.AllTables(ctx))
		case argNamedQuery:
			add(SuggestionNamedQuery, cc.Command.ArgHelp, false, c.config.NamedQueryNames())
		case argSession:
			add(SuggestionSession, cc.Command.ArgHelp, false, c.config.SessionNames())
		}

	case ContextDottedIdentifier:
		// A token before a dot is ambiguous between a table (complete its
		// columns) and a schema (complete its tables); both readings are
		// kept and ranking sorts them out.
		add(SuggestionColumn, "Column", false, c.cache.Columns(ctx, cc.Prefix))
		add(SuggestionTable, "Table", false, c.cache.TablesInSchema(ctx, cc.Prefix))

	case ContextBareIdentifier:
		add(SuggestionSchema, "Schema", false, c.cache.Schemas(ctx))
		add(SuggestionTable, "Table", false, c.cache.AllTables(ctx))
		if cc.WordBoundary {
			add(SuggestionFunction, "Function", false, c.cache.Functions(ctx))
			add(SuggestionFunction, "Function", false, sqlBuiltinFunctions)
			add(SuggestionKeyword, "Keyword", true, sqlKeywords)
		}
		add(SuggestionNamedQuery, "Named query", false, c.config.NamedQueryNames())
	}

	return rankSuggestions(candidates)
}

// rankSuggestions stable-sorts by (category priority, value) and collapses
// duplicate values, keeping a described entry over an undescribed one.
func rankSuggestions(candidates []Suggestion) []Suggestion {
	slices.SortStableFunc(candidates, func(a, b Suggestion) int {
		if pa, pb := a.Kind.priority(), b.Kind.priority(); pa != pb {
			return pa - pb
		}
		return strings.Compare(a.Value, b.Value)
	})

	out := candidates[:0]
	seen := map[string]int{}
	for _, s := range candidates {
		if i, ok := seen[s.Value]; ok {
			if out[i].Description == "" && s.Description != "" {
				out[i].Description = s.Description
			}
			continue
		}
		seen[s.Value] = len(out)
		out = append(out, s)
	}
	return out
}
