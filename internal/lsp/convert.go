package lsp

import (
	"encoding/json"

	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/woxQAQ/prisma-schema-lsp/internal/engine"
	prisma "github.com/woxQAQ/prisma-schema-lsp/pkg/protocol"
)

func ptr[T any](v T) *T {
	return &v
}

func fromPosition(p protocol.Position) prisma.Position {
	return prisma.Position{Line: int(p.Line), Character: int(p.Character)}
}

func toPosition(p prisma.Position) protocol.Position {
	return protocol.Position{Line: protocol.UInteger(p.Line), Character: protocol.UInteger(p.Character)}
}

func fromRange(r protocol.Range) prisma.Range {
	return prisma.Range{Start: fromPosition(r.Start), End: fromPosition(r.End)}
}

func toRange(r prisma.Range) protocol.Range {
	return protocol.Range{Start: toPosition(r.Start), End: toPosition(r.End)}
}

func toTextEdits(edits []prisma.TextEdit) []protocol.TextEdit {
	out := make([]protocol.TextEdit, 0, len(edits))
	for _, e := range edits {
		out = append(out, protocol.TextEdit{Range: toRange(e.Range), NewText: e.NewText})
	}
	return out
}

func toWorkspaceEdit(edit *prisma.WorkspaceEdit) *protocol.WorkspaceEdit {
	if edit == nil {
		return nil
	}
	changes := make(map[protocol.DocumentUri][]protocol.TextEdit, len(edit.Changes))
	for uri, edits := range edit.Changes {
		changes[uri] = toTextEdits(edits)
	}
	return &protocol.WorkspaceEdit{Changes: changes}
}

// toDiagnostic renders a diagnostic on the wire. The documentation link
// travels as the code description.
func toDiagnostic(d prisma.Diagnostic) protocol.Diagnostic {
	out := protocol.Diagnostic{
		Range:   toRange(d.Range),
		Message: d.Message,
	}
	if d.Severity != 0 {
		out.Severity = ptr(protocol.DiagnosticSeverity(d.Severity))
	}
	if d.Code != "" {
		out.Code = &protocol.IntegerOrString{Value: d.Code}
	}
	if d.Href != "" {
		out.CodeDescription = &protocol.CodeDescription{HRef: d.Href}
	}
	if d.Source != "" {
		out.Source = ptr(d.Source)
	}
	for _, tag := range d.Tags {
		out.Tags = append(out.Tags, protocol.DiagnosticTag(tag))
	}
	return out
}

func toDiagnostics(diagnostics []prisma.Diagnostic) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(diagnostics))
	for _, d := range diagnostics {
		out = append(out, toDiagnostic(d))
	}
	return out
}

func fromDiagnostic(d protocol.Diagnostic) prisma.Diagnostic {
	out := prisma.Diagnostic{
		Range:   fromRange(d.Range),
		Message: d.Message,
	}
	if d.Severity != nil {
		out.Severity = prisma.DiagnosticSeverity(*d.Severity)
	}
	if d.Code != nil {
		if code, ok := d.Code.Value.(string); ok {
			out.Code = code
		}
	}
	if d.CodeDescription != nil {
		out.Href = d.CodeDescription.HRef
	}
	if d.Source != nil {
		out.Source = *d.Source
	}
	for _, tag := range d.Tags {
		out.Tags = append(out.Tags, prisma.DiagnosticTag(tag))
	}
	return out
}

func toCodeActions(actions []prisma.CodeAction) []protocol.CodeAction {
	out := make([]protocol.CodeAction, 0, len(actions))
	for _, a := range actions {
		action := protocol.CodeAction{
			Title: a.Title,
			Edit:  toWorkspaceEdit(a.Edit),
		}
		if a.Kind != "" {
			action.Kind = ptr(protocol.CodeActionKind(a.Kind))
		}
		if len(a.Diagnostics) > 0 {
			action.Diagnostics = toDiagnostics(a.Diagnostics)
		}
		out = append(out, action)
	}
	return out
}

func toLocationLinks(links []prisma.LocationLink) []protocol.LocationLink {
	out := make([]protocol.LocationLink, 0, len(links))
	for _, l := range links {
		out = append(out, protocol.LocationLink{
			TargetURI:            l.TargetURI,
			TargetRange:          toRange(l.TargetRange),
			TargetSelectionRange: toRange(l.TargetSelectionRange),
		})
	}
	return out
}

func toDocumentSymbols(symbols []prisma.DocumentSymbol) []protocol.DocumentSymbol {
	out := make([]protocol.DocumentSymbol, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, protocol.DocumentSymbol{
			Name:           s.Name,
			Kind:           protocol.SymbolKind(s.Kind),
			Range:          toRange(s.Range),
			SelectionRange: toRange(s.SelectionRange),
		})
	}
	return out
}

func toHover(h *prisma.Hover) *protocol.Hover {
	if h == nil {
		return nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.MarkupKindMarkdown, Value: h.Contents},
	}
}

// formattingOptions keeps the options the engine understands.
func formattingOptions(opts protocol.FormattingOptions) engine.FormattingOptions {
	out := engine.FormattingOptions{TabSize: 2, InsertSpaces: true}
	data, err := json.Marshal(opts)
	if err != nil {
		return out
	}
	_ = json.Unmarshal(data, &out)
	return out
}
