package registry

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/woxQAQ/prisma-schema-lsp/internal/schema"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SchemaWithBlocks is one known schema file and its scanned blocks.
type SchemaWithBlocks struct {
	Path     string
	Document *schema.Document
	Blocks   []schema.Block
}

// Build scans a document into a registry entry. Import blocks follow the
// regular blocks.
func Build(doc *schema.Document) *SchemaWithBlocks {
	lines := doc.Lines()
	blocks := schema.AllBlocks(lines)
	blocks = append(blocks, schema.ScanImports(lines)...)
	return &SchemaWithBlocks{
		Path:     doc.Path(),
		Document: doc,
		Blocks:   blocks,
	}
}

// Block returns the first non-import block called name.
func (s *SchemaWithBlocks) Block(name string) (schema.Block, bool) {
	for _, b := range s.Blocks {
		if b.Type != schema.ImportBlock && b.Name == name {
			return b, true
		}
	}
	return schema.Block{}, false
}

// Imports returns the import blocks of the schema.
func (s *SchemaWithBlocks) Imports() []schema.Block {
	var imports []schema.Block
	for _, b := range s.Blocks {
		if b.Type == schema.ImportBlock {
			imports = append(imports, b)
		}
	}
	return imports
}

// Snapshot is an immutable view of every known schema. It is never modified
// after construction; updates build a new snapshot.
type Snapshot struct {
	schemas    []*SchemaWithBlocks
	byPath     map[string]*SchemaWithBlocks
	blockNames map[string]struct{}
}

// NewSnapshot indexes the given entries. Later entries with the same path
// replace earlier ones.
func NewSnapshot(entries []*SchemaWithBlocks) *Snapshot {
	s := &Snapshot{
		byPath:     make(map[string]*SchemaWithBlocks, len(entries)),
		blockNames: make(map[string]struct{}),
	}
	for _, e := range entries {
		if _, dup := s.byPath[e.Path]; dup {
			for i, existing := range s.schemas {
				if existing.Path == e.Path {
					s.schemas[i] = e
				}
			}
		} else {
			s.schemas = append(s.schemas, e)
		}
		s.byPath[e.Path] = e
	}
	for _, e := range s.schemas {
		for _, b := range e.Blocks {
			if b.Type.IsNamedType() {
				s.blockNames[b.Name] = struct{}{}
			}
		}
	}
	return s
}

// Schemas returns the entries in registration order.
func (s *Snapshot) Schemas() []*SchemaWithBlocks {
	if s == nil {
		return nil
	}
	return s.schemas
}

// Lookup finds the entry for an absolute path.
func (s *Snapshot) Lookup(path string) (*SchemaWithBlocks, bool) {
	if s == nil {
		return nil, false
	}
	e, ok := s.byPath[path]
	return e, ok
}

// IsBlockName reports whether any schema declares a model, type or enum
// called name.
func (s *Snapshot) IsBlockName(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.blockNames[name]
	return ok
}

// WithDocument returns a copy of the snapshot in which the entry for doc is
// replaced by a fresh scan. Documents unknown to the snapshot are added.
func (s *Snapshot) WithDocument(doc *schema.Document) *Snapshot {
	entries := append([]*SchemaWithBlocks(nil), s.Schemas()...)
	return NewSnapshot(append(entries, Build(doc)))
}

// without returns a copy of the snapshot that no longer knows path.
func (s *Snapshot) without(path string) *Snapshot {
	entries := make([]*SchemaWithBlocks, 0, len(s.Schemas()))
	for _, e := range s.Schemas() {
		if e.Path != path {
			entries = append(entries, e)
		}
	}
	return NewSnapshot(entries)
}

// rebase re-applies onto s the entries that changed between base and
// current.
func (s *Snapshot) rebase(base, current *Snapshot) *Snapshot {
	entries := append([]*SchemaWithBlocks(nil), s.Schemas()...)
	for _, e := range current.Schemas() {
		if b, ok := base.Lookup(e.Path); !ok || b != e {
			entries = append(entries, e)
		}
	}
	next := NewSnapshot(entries)
	for _, b := range base.Schemas() {
		if _, ok := current.Lookup(b.Path); !ok {
			next = next.without(b.Path)
		}
	}
	return next
}

// DocumentSource provides the editor's view of open documents.
type DocumentSource interface {
	Document(uri string) (*schema.Document, bool)
}

// Store holds the current snapshot. Readers never observe a partially
// updated registry.
type Store struct {
	current atomic.Pointer[Snapshot]
	logger  *zap.Logger
}

// NewStore creates a store holding an empty snapshot.
func NewStore(logger *zap.Logger) *Store {
	s := &Store{logger: logger.With(zap.String("component", "schema-registry"))}
	s.current.Store(NewSnapshot(nil))
	return s
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// UpdateDocument rescans a single changed document.
func (s *Store) UpdateDocument(doc *schema.Document) *Snapshot {
	for {
		old := s.current.Load()
		next := old.WithDocument(doc)
		if s.current.CompareAndSwap(old, next) {
			return next
		}
	}
}

// ReloadDocument replaces the entry of uri with its saved contents, used
// once the editor drops its buffer. A file missing on disk leaves the
// registry.
func (s *Store) ReloadDocument(uri string) *Snapshot {
	doc, err := loadDocument(uri, nil)
	for {
		old := s.current.Load()
		var next *Snapshot
		if err != nil {
			next = old.without(schema.PathFromURI(uri))
		} else {
			next = old.WithDocument(doc)
		}
		if s.current.CompareAndSwap(old, next) {
			return next
		}
	}
}

// Rebuild replaces the registry with the given workspace file set. Open
// documents win over their on-disk contents. Documents updated while the
// files are read are carried over into the new snapshot.
func (s *Store) Rebuild(ctx context.Context, uris []string, open DocumentSource) (*Snapshot, error) {
	base := s.current.Load()
	entries := make([]*SchemaWithBlocks, len(uris))

	g, ctx := errgroup.WithContext(ctx)
	for i, uri := range uris {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := loadDocument(uri, open)
			if err != nil {
				s.logger.Warn("Skipping unreadable schema", zap.String("uri", uri), zap.Error(err))
				return nil
			}
			entries[i] = Build(doc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	loaded := entries[:0]
	for _, e := range entries {
		if e != nil {
			loaded = append(loaded, e)
		}
	}
	snap := NewSnapshot(loaded)
	for !s.current.CompareAndSwap(base, snap) {
		current := s.current.Load()
		snap = snap.rebase(base, current)
		base = current
	}

	s.logger.Debug("Schema registry rebuilt",
		zap.Int("schemas", len(snap.Schemas())),
		zap.Int("block_names", len(snap.blockNames)),
	)
	return snap, nil
}

func loadDocument(uri string, open DocumentSource) (*schema.Document, error) {
	if open != nil {
		if doc, ok := open.Document(uri); ok {
			return doc, nil
		}
	}
	path := schema.PathFromURI(uri)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema '%s': %w", path, err)
	}
	return schema.NewDocument(schema.URIFromPath(path), string(data)), nil
}
