package query

import (
	"strings"
)

// Statement is one executable SQL unit taken from a source file.
type Statement struct {
	// Index is the 1-based position of the statement in the source.
	Index int
	// Text is the statement without comments or surrounding whitespace.
	Text string
}

// Splitter breaks SQL text into statements. It is lexical only: it knows
// about quoted literals and comments, not about SQL grammar.
type Splitter struct {
	// BackslashEscapes makes a backslash inside a quoted literal escape the
	// next character, as MySQL does by default.
	BackslashEscapes bool
}

// Split splits raw SQL text using MySQL lexical rules.
func Split(raw string) []Statement {
	return Splitter{BackslashEscapes: true}.Split(raw)
}

// Split turns raw into an ordered list of statements. Semicolons and comment
// markers inside quoted literals are kept as is. Fragments that are empty once
// comments and whitespace are removed are dropped.
func (s Splitter) Split(raw string) []Statement {
	var (
		statements []Statement
		current    strings.Builder
		quote      byte
	)

	flush := func() {
		text := strings.TrimSpace(current.String())
		current.Reset()
		if text == "" {
			return
		}

		statements = append(statements, Statement{Index: len(statements) + 1, Text: text})
	}

	for i := 0; i < len(raw); i++ {
		c := raw[i]

		if quote != 0 {
			current.WriteByte(c)

			switch {
			case c == '\\' && s.BackslashEscapes && quote != '`' && i+1 < len(raw):
				i++
				current.WriteByte(raw[i])
			case c == quote:
				// A doubled quote closes and immediately reopens the literal.
				quote = 0
			}

			continue
		}

		switch {
		case c == '\'' || c == '"' || c == '`':
			quote = c
			current.WriteByte(c)
		case c == '-' && i+1 < len(raw) && raw[i+1] == '-':
			end := strings.IndexByte(raw[i:], '\n')
			if end < 0 {
				i = len(raw)
				continue
			}

			i += end
			if currentLineBlank(current.String()) {
				// Drop comment-only lines entirely, newline included.
				truncateToLineStart(&current)
			} else {
				current.WriteByte('\n')
			}
		case c == '/' && i+1 < len(raw) && raw[i+1] == '*':
			end := strings.Index(raw[i+2:], "*/")
			if end < 0 {
				i = len(raw)
				continue
			}

			i += end + 3
			current.WriteByte(' ')
		case c == ';':
			flush()
		default:
			current.WriteByte(c)
		}
	}

	flush()

	return statements
}

func currentLineBlank(text string) bool {
	line := text[strings.LastIndexByte(text, '\n')+1:]
	return strings.TrimSpace(line) == ""
}

func truncateToLineStart(b *strings.Builder) {
	text := b.String()
	keep := text[:strings.LastIndexByte(text, '\n')+1]
	b.Reset()
	b.WriteString(keep)
}
