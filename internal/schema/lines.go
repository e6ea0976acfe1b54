package schema

import (
	"regexp"
	"strings"

	"github.com/woxQAQ/prisma-schema-lsp/pkg/protocol"
)

var (
	wordPattern        = regexp.MustCompile(`\w+`)
	trailingNonSpace   = regexp.MustCompile(`\S+$`)
	nonWordPattern     = regexp.MustCompile(`\W`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
	bracketValuesMatch = regexp.MustCompile(`\[([^\]]+)\]`)
)

// countPair counts the opening and closing symbols in line before pos.
func countPair(line string, pos protocol.Position, open, closing byte) (int, int) {
	prefix := Prefix(line, pos.Character)
	var opened, closed int
	for i := 0; i < len(prefix); i++ {
		switch prefix[i] {
		case open:
			opened++
		case closing:
			closed++
		}
	}
	return opened, closed
}

// IsInsideAttribute reports whether the cursor sits between an unbalanced
// pair of symbols, e.g. "()" or "[]". Passing the same symbol twice, as in
// `""`, counts it only as an opener.
func IsInsideAttribute(line string, pos protocol.Position, symbols string) bool {
	opened, closed := countPair(line, pos, symbols[0], symbols[1])
	return opened > closed
}

// IsInsideFieldArgument reports whether the cursor is inside the arguments
// of an attribute argument, e.g. `@@index([title(|)])`.
func IsInsideFieldArgument(line string, pos protocol.Position) bool {
	opened, closed := countPair(line, pos, '(', ')')
	return opened >= 2 && opened > closed
}

// IsInsideQuotationMark toggles on every `"` before the cursor.
// Escaped quotes are not recognized.
func IsInsideQuotationMark(line string, pos protocol.Position) bool {
	return strings.Count(Prefix(line, pos.Character), `"`)%2 == 1
}

// IsInsideBracket toggles on every `{` before the cursor.
func IsInsideBracket(line string, pos protocol.Position) bool {
	return strings.Count(Prefix(line, pos.Character), "{")%2 == 1
}

// IsFirstInsideBlock reports whether the cursor is on the first token of the
// line, i.e. where a new field or block attribute starts.
func IsFirstInsideBlock(pos protocol.Position, line string) bool {
	if strings.TrimSpace(line) == "" {
		return true
	}
	prefix := Prefix(line, pos.Character)
	loc := wordPattern.FindStringIndex(prefix)
	if loc == nil {
		return true
	}
	return loc[1] == len(prefix)
}

// WordAtPosition expands from the cursor to the left over non-space
// characters and to the right up to the first non-word character.
func WordAtPosition(line string, pos protocol.Position) string {
	cursor := ByteOffset(line, pos.Character)
	left := line[:min(cursor+1, len(line))]
	loc := trailingNonSpace.FindStringIndex(left)
	if loc == nil {
		return ""
	}
	beginning := loc[0]
	rest := line[cursor:]
	end := len(rest)
	if m := nonWordPattern.FindStringIndex(rest); m != nil {
		end = m[0]
	}
	if beginning > cursor+end {
		return ""
	}
	return line[beginning : cursor+end]
}

// SymbolBefore returns the character immediately before the cursor.
func SymbolBefore(line string, pos protocol.Position) string {
	prefix := Prefix(line, pos.Character)
	if prefix == "" {
		return ""
	}
	return prefix[len(prefix)-1:]
}

// WordsBefore splits the line up to the cursor on whitespace.
func WordsBefore(line string, pos protocol.Position) []string {
	return whitespacePattern.Split(strings.TrimSpace(Prefix(line, pos.Character)), -1)
}

// FirstWord returns everything up to the first space.
func FirstWord(line string) string {
	if i := strings.IndexByte(line, ' '); i >= 0 {
		return line[:i]
	}
	return line
}

// FieldType returns the second whitespace separated word of a field line.
func FieldType(line string) (string, bool) {
	words := whitespacePattern.Split(line, -1)
	if len(words) < 2 || words[1] == "" {
		return "", false
	}
	return words[1], true
}

// ValuesInsideSquareBrackets returns the comma separated values of the first
// `[...]` group, unquoted and with a trailing composite path dot removed.
func ValuesInsideSquareBrackets(line string) []string {
	m := bracketValuesMatch.FindStringSubmatch(line)
	if m == nil || m[1] == "" {
		return nil
	}
	parts := strings.Split(m[1], ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Replace(strings.TrimSpace(p), `"`, "", 2)
		values = append(values, strings.TrimSuffix(p, "."))
	}
	return values
}

// IsPositionAfterFieldAndType reports whether the cursor follows both the
// field name and its type on the current line.
func IsPositionAfterFieldAndType(line string, pos protocol.Position, wordsBefore []string) bool {
	symbol := SymbolBefore(line, pos)
	hasAt := len(wordsBefore) == 2 && symbol == "@"
	hasSpace := len(wordsBefore) == 2 && strings.TrimSpace(symbol) == "" && symbol != ""
	return len(wordsBefore) > 2 || hasAt || hasSpace
}
