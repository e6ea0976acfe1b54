package lsp

import (
	"cmp"
	"slices"
	"sync"

	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/woxQAQ/prisma-schema-lsp/internal/schema"
	prisma "github.com/woxQAQ/prisma-schema-lsp/pkg/protocol"
)

// Documents holds the editor's view of open schema files. It is safe for
// concurrent use.
type Documents struct {
	mu   sync.RWMutex
	docs map[string]*schema.Document
}

// NewDocuments returns an empty document store.
func NewDocuments() *Documents {
	return &Documents{docs: make(map[string]*schema.Document)}
}

// Document returns the open document for uri.
func (d *Documents) Document(uri string) (*schema.Document, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	doc, ok := d.docs[uri]
	return doc, ok
}

// Open stores the full text of a newly opened document.
func (d *Documents) Open(uri, text string) *schema.Document {
	doc := schema.NewDocument(uri, text)
	d.mu.Lock()
	d.docs[uri] = doc
	d.mu.Unlock()
	return doc
}

// Change applies content changes in order. Whole document changes replace
// the text; ranged ones are spliced in. Unknown documents are ignored.
func (d *Documents) Change(uri string, changes []any) (*schema.Document, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	doc, ok := d.docs[uri]
	if !ok {
		return nil, false
	}
	for _, raw := range changes {
		switch change := raw.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			doc = schema.NewDocument(uri, change.Text)
		case protocol.TextDocumentContentChangeEvent:
			if change.Range == nil {
				doc = schema.NewDocument(uri, change.Text)
				continue
			}
			doc = schema.NewDocument(uri, doc.Apply([]prisma.TextEdit{{
				Range:   fromRange(*change.Range),
				NewText: change.Text,
			}}))
		}
	}
	d.docs[uri] = doc
	return doc, true
}

// Close forgets a document.
func (d *Documents) Close(uri string) {
	d.mu.Lock()
	delete(d.docs, uri)
	d.mu.Unlock()
}

// All returns the open documents ordered by URI.
func (d *Documents) All() []*schema.Document {
	d.mu.RLock()
	docs := make([]*schema.Document, 0, len(d.docs))
	for _, doc := range d.docs {
		docs = append(docs, doc)
	}
	d.mu.RUnlock()

	slices.SortFunc(docs, func(a, b *schema.Document) int {
		return cmp.Compare(a.URI, b.URI)
	})
	return docs
}
