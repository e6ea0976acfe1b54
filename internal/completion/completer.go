// Package completion implements schema completion.
//
// The native engine is asked first. When it has nothing to offer, the cursor
// context is classified with line based heuristics and answered from the
// static catalogue, the document's own blocks and the schema registry.
package completion

import (
	"context"
	"regexp"
	"strings"

	"github.com/woxQAQ/prisma-schema-lsp/internal/engine"
	"github.com/woxQAQ/prisma-schema-lsp/internal/registry"
	"github.com/woxQAQ/prisma-schema-lsp/internal/schema"
	"github.com/woxQAQ/prisma-schema-lsp/pkg/protocol"
	"go.uber.org/zap"
)

// Trigger characters announced to the client.
const (
	TriggerAt    = "@"
	TriggerQuote = `"`
	TriggerDot   = "."
)

// TriggerCharacters lists every completion trigger character.
var TriggerCharacters = []string{TriggerAt, TriggerQuote, TriggerDot}

var whitespace = regexp.MustCompile(`\s+`)

// Request describes one completion request.
type Request struct {
	Document *schema.Document
	Position protocol.Position
	// TriggerCharacter is empty when completion was invoked explicitly.
	TriggerCharacter string
	Snapshot         *registry.Snapshot
	OnError          engine.ErrorHandler
}

// Completer answers completion requests.
type Completer struct {
	client *engine.Client
	logger *zap.Logger
}

// New creates a completer backed by client.
func New(client *engine.Client, logger *zap.Logger) *Completer {
	return &Completer{
		client: client,
		logger: logger.With(zap.String("component", "completion")),
	}
}

// Complete returns the suggestions for req, or nil when there are none. An
// engine fault is returned after the request's error handler was notified.
func (c *Completer) Complete(ctx context.Context, req Request) (*protocol.CompletionList, error) {
	fromEngine, err := c.client.Complete(ctx, req.Document.Text(), req.Position, req.OnError)
	if err != nil {
		return nil, err
	}
	if len(fromEngine.Items) > 0 {
		return &fromEngine, nil
	}
	c.logger.Debug("Falling back to local completion",
		zap.String("uri", req.Document.Path()),
		zap.Int("line", req.Position.Line),
		zap.Int("character", req.Position.Character),
	)
	return c.local(ctx, req)
}

// cursor is the classified context of a completion request.
type cursor struct {
	ctx context.Context
	c   *Completer
	req Request

	doc   *schema.Document
	pos   protocol.Position
	lines []string

	// line is the current line as written.
	line string
	// current is the trimmed current line.
	current string
	// tillPosition is the trimmed text before the character preceding the
	// cursor.
	tillPosition string
	wordsBefore  []string

	symbolBefore  string
	symbolIsSpace bool
}

func newCursor(ctx context.Context, c *Completer, req Request) *cursor {
	k := &cursor{
		ctx:   ctx,
		c:     c,
		req:   req,
		doc:   req.Document,
		pos:   req.Position,
		lines: req.Document.Lines(),
		line:  req.Document.Line(req.Position.Line),
	}
	if k.pos.Line < len(k.lines) {
		k.current = k.lines[k.pos.Line]
	}
	k.tillPosition = strings.TrimSpace(schema.Prefix(k.line, k.pos.Character-1))
	k.wordsBefore = whitespace.Split(k.tillPosition, -1)
	k.symbolBefore = schema.SymbolBefore(k.line, k.pos)
	k.symbolIsSpace = k.symbolBefore != "" && strings.TrimSpace(k.symbolBefore) == ""
	return k
}

func list(items []protocol.CompletionItem, incomplete bool) *protocol.CompletionList {
	if items == nil {
		items = []protocol.CompletionItem{}
	}
	return &protocol.CompletionList{IsIncomplete: incomplete, Items: items}
}

func (c *Completer) local(ctx context.Context, req Request) (*protocol.CompletionList, error) {
	k := newCursor(ctx, c, req)

	block, ok := schema.BlockAt(k.pos.Line, k.lines, true)
	if !ok {
		if len(k.wordsBefore) > 1 || (len(k.wordsBefore) == 1 && k.symbolIsSpace) {
			return nil, nil
		}
		return k.blockTypes(), nil
	}

	if block.Type == schema.ImportBlock {
		switch {
		case schema.IsInsideQuotationMark(k.line, k.pos):
			return k.importPaths(), nil
		case schema.IsInsideBracket(k.line, k.pos):
			return k.importBlocks(), nil
		}
	} else if schema.IsFirstInsideBlock(k.pos, k.line) {
		return k.firstInsideBlock(block), nil
	}

	switch req.TriggerCharacter {
	case TriggerAt:
		if !schema.IsPositionAfterFieldAndType(k.line, k.pos, k.wordsBefore) {
			return nil, nil
		}
		return k.fieldAttribute(block)
	case TriggerQuote:
		return k.supportedFields(block.Type)
	case TriggerDot:
		if block.Type == schema.ModelBlock && schema.IsInsideAttribute(k.line, k.pos, "()") {
			return k.insideRoundBrackets(block), nil
		}
		return k.nativeTypes(block)
	}

	switch block.Type {
	case schema.ModelBlock, schema.TypeBlock:
		if schema.IsInsideAttribute(k.line, k.pos, "()") {
			return k.insideRoundBrackets(block), nil
		}
		if !schema.IsPositionAfterFieldAndType(k.line, k.pos, k.wordsBefore) {
			return k.fieldTypes(block), nil
		}
		return k.fieldAttribute(block)
	case schema.DatasourceBlock, schema.GeneratorBlock:
		if len(k.wordsBefore) == 1 && k.symbolIsSpace {
			return list([]protocol.CompletionItem{{Label: "="}}, false), nil
		}
		afterArray := len(k.wordsBefore) >= 3 && !strings.Contains(k.tillPosition, "[") && k.symbolIsSpace
		if strings.Contains(k.tillPosition, "=") &&
			!strings.Contains(k.tillPosition, "]") &&
			!afterArray &&
			k.symbolBefore != "," {
			return k.supportedFields(block.Type)
		}
		return nil, nil
	case schema.EnumBlock, schema.ImportBlock:
		return nil, nil
	default:
		return nil, nil
	}
}

// provider is the provider of the document's first datasource.
func (k *cursor) provider() string {
	return schema.FirstDatasourceProvider(k.lines)
}

func (k *cursor) previewFeatures() []string {
	return schema.PreviewFeatures(k.lines)
}
