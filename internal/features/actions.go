package features

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/woxQAQ/prisma-schema-lsp/internal/engine"
	"github.com/woxQAQ/prisma-schema-lsp/internal/schema"
	"github.com/woxQAQ/prisma-schema-lsp/pkg/protocol"
	"go.uber.org/zap"
)

const (
	unknownTypeMessage    = "is neither a built-in type, nor refers to another model, custom type, or enum."
	unknownKeywordMessage = "It does not start with any known Prisma schema keyword."
)

var (
	blockKeywords = []string{"model", "enum", "type", "datasource", "generator", "import", "extend"}
	whitespace    = regexp.MustCompile(`\s`)
)

// CodeActions offers quick fixes for the given diagnostics of doc: the
// engine's own fixes followed by spelling corrections, new declarations for
// unknown types and the rename of the legacy experimentalFeatures property.
func (s *Service) CodeActions(
	ctx context.Context,
	doc *schema.Document,
	rng protocol.Range,
	diagnostics []protocol.Diagnostic,
	onError engine.ErrorHandler,
) []protocol.CodeAction {
	if len(diagnostics) == 0 {
		return nil
	}
	actions, err := s.client.CodeActions(ctx, doc.Text(), rng, diagnostics, onError)
	if err != nil {
		s.logger.Debug("Continuing without engine code actions", zap.String("uri", doc.URI), zap.Error(err))
	}

	for _, d := range diagnostics {
		switch {
		case d.Severity == protocol.SeverityError &&
			strings.HasPrefix(d.Message, "Type") && strings.Contains(d.Message, unknownTypeMessage):
			actions = append(actions, unknownTypeActions(doc, d)...)
		case d.Severity == protocol.SeverityWarning && d.Message == ExperimentalFeaturesMessage:
			actions = append(actions, quickFix("Rename property to 'previewFeatures'", doc.URI, d,
				protocol.TextEdit{Range: d.Range, NewText: "previewFeatures"}))
		case d.Severity == protocol.SeverityError && strings.Contains(d.Message, unknownKeywordMessage):
			word := whitespace.Split(doc.GetText(d.Range), 2)[0]
			if suggestion, ok := spellingSuggestion(word, blockKeywords); ok {
				start := d.Range.Start
				end := protocol.Position{Line: start.Line, Character: start.Character + schema.Column(word, len(word))}
				actions = append(actions, quickFix(fmt.Sprintf("Change spelling to '%s'", suggestion), doc.URI, d,
					protocol.TextEdit{Range: protocol.Range{Start: start, End: end}, NewText: suggestion}))
			}
		}
	}
	return actions
}

// unknownTypeActions fixes a field type that names nothing: a close enough
// existing name, or a new model or enum appended to the document.
func unknownTypeActions(doc *schema.Document, d protocol.Diagnostic) []protocol.CodeAction {
	text := doc.GetText(d.Range)
	modifier := ""
	switch {
	case strings.HasSuffix(text, "[]"):
		modifier = "[]"
	case strings.HasSuffix(text, "?"):
		modifier = "?"
	}
	name := strings.TrimSuffix(text, modifier)

	var actions []protocol.CodeAction
	lines := doc.Lines()
	candidates := append(schema.RelationNames(lines), schema.TypeNames(lines)...)
	if suggestion, ok := spellingSuggestion(name, candidates); ok {
		actions = append(actions, quickFix(fmt.Sprintf("Change spelling to '%s'", suggestion), doc.URI, d,
			protocol.TextEdit{Range: d.Range, NewText: suggestion + modifier}))
	}

	end := protocol.Position{Line: doc.LineCount(), Character: 0}
	insert := protocol.Range{Start: end, End: end}
	for _, keyword := range []string{"model", "enum"} {
		actions = append(actions, quickFix(fmt.Sprintf("Create new %s '%s'", keyword, name), doc.URI, d,
			protocol.TextEdit{Range: insert, NewText: fmt.Sprintf("\n%s %s {\n\n}\n", keyword, name)}))
	}
	return actions
}

func quickFix(title, documentURI string, d protocol.Diagnostic, edit protocol.TextEdit) protocol.CodeAction {
	return protocol.CodeAction{
		Title:       title,
		Kind:        protocol.CodeActionKindQuickFix,
		Diagnostics: []protocol.Diagnostic{d},
		Edit:        &protocol.WorkspaceEdit{Changes: map[string][]protocol.TextEdit{documentURI: {edit}}},
	}
}

// spellingSuggestion picks the candidate closest to name. A candidate that
// differs only in case always wins. Otherwise the length difference is
// bounded by a third of the name and the edit distance by 0.4 of it, and the
// first candidate within two edits is kept. Candidates shorter than three
// characters only match ignoring case.
func spellingSuggestion(name string, candidates []string) (string, bool) {
	maxLengthDiff := min(2, len(name)*34/100)
	bestDistance := len(name)*4/10 + 1
	best := ""
	exactOnly := false
	lower := strings.ToLower(name)
	for _, candidate := range candidates {
		if diff := len(candidate) - len(lower); diff > maxLengthDiff || -diff > maxLengthDiff {
			continue
		}
		candidateLower := strings.ToLower(candidate)
		if candidateLower == lower {
			return candidate, true
		}
		if exactOnly || len(candidate) < 3 {
			continue
		}
		distance := levenshtein.ComputeDistance(lower, candidateLower)
		if distance > bestDistance {
			continue
		}
		if distance < 3 {
			exactOnly = true
		} else {
			bestDistance = distance
		}
		best = candidate
	}
	return best, best != ""
}
