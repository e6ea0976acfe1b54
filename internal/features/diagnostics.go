package features

import (
	"context"
	"regexp"
	"slices"
	"strings"

	"github.com/woxQAQ/prisma-schema-lsp/internal/engine"
	"github.com/woxQAQ/prisma-schema-lsp/internal/imports"
	"github.com/woxQAQ/prisma-schema-lsp/internal/registry"
	"github.com/woxQAQ/prisma-schema-lsp/internal/schema"
	"github.com/woxQAQ/prisma-schema-lsp/pkg/protocol"
	"go.uber.org/zap"
)

const (
	// ExperimentalFeaturesMessage flags the legacy generator property.
	ExperimentalFeaturesMessage = "This property has been renamed to 'previewFeatures' to better communicate what they are."

	prisma1Message = "You might currently be viewing a Prisma 1 datamodel which is based on the GraphQL syntax. " +
		"The current Prisma Language Server doesn't support this syntax. If you are handling a Prisma 1 datamodel, " +
		"please change the file extension to `.graphql` so the new Prisma Language Server does not get triggered anymore."

	blockIgnoreMessage = "@@ignore: When using Prisma Migrate, this model will be kept in sync with the database schema, " +
		"however, it will not be exposed in Prisma Client."
	fieldIgnoreMessage = "@ignore: When using Prisma Migrate, this field will be kept in sync with the database schema, " +
		"however, it will not be exposed in Prisma Client."
)

// Lint messages that only a Prisma 1 datamodel produces.
var prisma1Lints = []string{
	"Field declarations don't require a `:`.",
	"Model declarations have to be indicated with the `model` keyword.",
}

var duplicateEntity = regexp.MustCompile(`The .+ "([^"]*)" cannot be defined because`)

// Diagnostics lints doc together with the blocks it imports. Problems found
// in the imported blocks are reported in their own files, except for name
// clashes, which are pinned to the import statement that causes them.
func (s *Service) Diagnostics(ctx context.Context, doc *schema.Document, snap *registry.Snapshot, onError engine.ErrorHandler) []protocol.Diagnostic {
	res := imports.Resolve(doc, snap)

	lints, err := s.client.Lint(ctx, res.Text, onError)
	if err != nil {
		s.logger.Debug("Linting without engine diagnostics", zap.String("uri", doc.URI), zap.Error(err))
	}
	for _, l := range lints {
		if slices.Contains(prisma1Lints, l.Text) {
			if onError != nil {
				onError(prisma1Message)
			}
			break
		}
	}

	diagnostics := make([]protocol.Diagnostic, 0, len(lints)+len(res.Errors))
	for _, l := range lints {
		start, ok := res.ToOriginal(l.Start)
		if !ok {
			if d, ok := s.importClash(doc, l); ok {
				diagnostics = append(diagnostics, d)
			}
			continue
		}
		end := res.Ledger.ToOriginal(min(l.End, len(res.Masked)))
		diagnostics = append(diagnostics, lintDiagnostic(doc, start, end, l))
	}
	for _, l := range res.Errors {
		diagnostics = append(diagnostics, lintDiagnostic(doc, l.Start, l.End, l))
	}

	if rng, ok := schema.ExperimentalFeaturesRange(doc); ok {
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    rng,
			Severity: protocol.SeverityWarning,
			Message:  ExperimentalFeaturesMessage,
		})
	}
	return append(diagnostics, ignoreDiagnostics(doc.Lines())...)
}

// importClash re-points a clash reported inside the virtual schema to the
// import statement that brought the clashing block in.
func (s *Service) importClash(doc *schema.Document, l engine.LinterError) (protocol.Diagnostic, bool) {
	m := duplicateEntity.FindStringSubmatch(l.Text)
	if m == nil {
		s.logger.Debug("Dropping diagnostic of an imported block", zap.String("message", l.Text))
		return protocol.Diagnostic{}, false
	}
	for _, imp := range schema.ScanImports(doc.Lines()) {
		if imp.Imports(m[1]) {
			line := imp.Range.Start.Line
			return protocol.Diagnostic{
				Range:    protocol.NewRange(line, 0, line, protocol.EndOfLine),
				Severity: severity(l),
				Message:  l.Text,
			}, true
		}
	}
	return protocol.Diagnostic{}, false
}

func lintDiagnostic(doc *schema.Document, start, end int, l engine.LinterError) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range:    protocol.Range{Start: doc.PositionAt(start), End: doc.PositionAt(end)},
		Severity: severity(l),
		Message:  l.Text,
	}
}

func severity(l engine.LinterError) protocol.DiagnosticSeverity {
	if l.IsWarning {
		return protocol.SeverityWarning
	}
	return protocol.SeverityError
}

// ignoreDiagnostics marks ignored models and fields as unnecessary.
func ignoreDiagnostics(lines []string) []protocol.Diagnostic {
	var diagnostics []protocol.Diagnostic
	for i, line := range lines {
		switch {
		case strings.Contains(line, "@@ignore"):
			block, ok := schema.BlockAt(i, lines, false)
			if !ok {
				continue
			}
			diagnostics = append(diagnostics, protocol.Diagnostic{
				Range:    block.Range,
				Severity: protocol.SeverityHint,
				Code:     "@@ignore documentation",
				Href:     "https://pris.ly/d/schema-reference#ignore-1",
				Message:  blockIgnoreMessage,
				Tags:     []protocol.DiagnosticTag{protocol.DiagnosticTagUnnecessary},
			})
		case strings.Contains(line, "@ignore"):
			diagnostics = append(diagnostics, protocol.Diagnostic{
				Range:    protocol.NewRange(i, 0, i, protocol.EndOfLine),
				Severity: protocol.SeverityHint,
				Code:     "@ignore documentation",
				Href:     "https://pris.ly/d/schema-reference#ignore",
				Message:  fieldIgnoreMessage,
				Tags:     []protocol.DiagnosticTag{protocol.DiagnosticTagUnnecessary},
			})
		}
	}
	return diagnostics
}
