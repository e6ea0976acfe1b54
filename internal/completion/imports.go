package completion

import (
	"regexp"
	"slices"
	"strings"

	"github.com/woxQAQ/prisma-schema-lsp/internal/schema"
	"github.com/woxQAQ/prisma-schema-lsp/internal/virtual"
	"github.com/woxQAQ/prisma-schema-lsp/pkg/protocol"
)

var quotedPath = regexp.MustCompile(`"([^"]*)"`)

// importPaths suggests the other known schemas inside `from "|"`. Picking
// one replaces everything between the quotes.
func (k *cursor) importPaths() *protocol.CompletionList {
	first := strings.IndexByte(k.line, '"')
	last := strings.LastIndexByte(k.line, '"')
	if first == -1 || first == last {
		return nil
	}
	rng := protocol.NewRange(
		k.pos.Line, schema.Column(k.line, first+1),
		k.pos.Line, schema.Column(k.line, last),
	)

	var items []protocol.CompletionItem
	for _, s := range k.req.Snapshot.Schemas() {
		if s.Path == k.doc.Path() {
			continue
		}
		rel := relativeImportPath(k.doc.Path(), s.Path)
		items = append(items, protocol.CompletionItem{
			Label:    rel,
			Kind:     protocol.CompletionItemKindFile,
			Detail:   rel + ".prisma",
			TextEdit: &protocol.TextEdit{Range: rng, NewText: rel},
		})
	}
	return list(items, false)
}

// importBlocks suggests the named blocks of the imported schema inside
// `import { | }`, leaving out the names the statement already lists.
func (k *cursor) importBlocks() *protocol.CompletionList {
	m := quotedPath.FindStringSubmatch(k.line)
	if m == nil || m[1] == "" {
		return nil
	}
	target, ok := k.req.Snapshot.Lookup(virtual.ImportTarget(k.doc.Path(), m[1]))
	if !ok {
		return nil
	}

	var listed []string
	if open, end := strings.IndexByte(k.line, '{'), strings.IndexByte(k.line, '}'); open >= 0 && end > open {
		for _, name := range strings.Split(k.line[open+1:end], ",") {
			listed = append(listed, strings.TrimSpace(name))
		}
	}

	var items []protocol.CompletionItem
	for _, b := range target.Blocks {
		if !b.Type.IsNamedType() || slices.Contains(listed, b.Name) {
			continue
		}
		items = append(items, protocol.CompletionItem{
			Label:         b.Name,
			Kind:          blockKind(b.Type),
			Detail:        b.Name + " " + b.Type.Keyword(),
			Documentation: fenced(target.Document.GetText(b.Range)),
		})
	}
	return list(items, false)
}
