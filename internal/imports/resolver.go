// Package imports resolves the import statements of a schema document.
//
// Import statements are not part of the schema language understood by the
// native engine, so they are commented out before the text is handed over.
// Every inserted comment marker is recorded in a Ledger; offsets reported
// against the rewritten text are translated back with it.
package imports

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/woxQAQ/prisma-schema-lsp/internal/engine"
	"github.com/woxQAQ/prisma-schema-lsp/internal/registry"
	"github.com/woxQAQ/prisma-schema-lsp/internal/schema"
	"github.com/woxQAQ/prisma-schema-lsp/internal/virtual"
)

// CommentMarker is inserted in front of every import statement.
const CommentMarker = "//"

const invalidImportMessage = `This import is invalid. Imports should look like 'import { Model, Enum, Whatever } from "./path/to/schema"'.`

var (
	importLine      = regexp.MustCompile(`(?m)^([ \t]*)(import[ \t]*\{[^\r\n]*)`)
	importStatement = regexp.MustCompile(`^import\s*\{(.*)\}\s*from\s*"(.*)"$`)
	whitespace      = regexp.MustCompile(`\s+`)
)

// ImportAst links an imported symbol to the block that declares it.
type ImportAst struct {
	// Path is the absolute path of the declaring schema.
	Path         string
	RelativePath string
	Block        schema.Block
}

// Result is the outcome of resolving the imports of one document.
type Result struct {
	// Text is Masked followed by the virtual schema, if any.
	Text string
	// Masked is the document with every import statement commented out.
	Masked string
	Ledger *Ledger

	Imports []ImportAst
	// Errors use byte offsets of the original document.
	Errors []engine.LinterError

	// VirtualStart is the offset in Text where the virtual schema starts,
	// or -1.
	VirtualStart int
}

// ToOriginal maps an offset of Text to the original document. The second
// result is false for offsets inside the virtual schema.
func (r *Result) ToOriginal(offset int) (int, bool) {
	if r.VirtualStart >= 0 && offset >= r.VirtualStart {
		return 0, false
	}
	return r.Ledger.ToOriginal(offset), true
}

// statement is one import statement found in the original text.
type statement struct {
	text  string
	start int
}

// Mask inserts marker in front of every import statement of text.
func Mask(text, marker string) (string, *Ledger) {
	masked, ledger, _ := mask(text, marker)
	return masked, ledger
}

func mask(text, marker string) (string, *Ledger, []statement) {
	ledger := NewLedger()
	var statements []statement
	var b strings.Builder
	last := 0
	for _, m := range importLine.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[4], m[5]
		b.WriteString(text[last:start])
		b.WriteString(marker)
		ledger.Record(start, len(marker))
		statements = append(statements, statement{
			text:  strings.TrimRight(text[start:end], " \t"),
			start: start,
		})
		last = start
	}
	b.WriteString(text[last:])
	return b.String(), ledger, statements
}

// Resolve validates the import statements of doc against snap and composes
// the text handed to the native engine.
func Resolve(doc *schema.Document, snap *registry.Snapshot) *Result {
	masked, ledger, statements := mask(doc.Text(), CommentMarker)
	r := &Result{
		Text:         masked,
		Masked:       masked,
		Ledger:       ledger,
		VirtualStart: -1,
	}

	for _, st := range statements {
		r.check(doc, snap, st)
	}

	if section, ok := virtual.Compose(doc, snap); ok {
		r.Text = masked + "\n" + section
		r.VirtualStart = len(masked) + 1
	}
	return r
}

func (r *Result) fail(start, end int, text string, warning bool) {
	r.Errors = append(r.Errors, engine.LinterError{
		Start:     start,
		End:       end,
		Text:      text,
		IsWarning: warning,
	})
}

func (r *Result) check(doc *schema.Document, snap *registry.Snapshot, st statement) {
	m := importStatement.FindStringSubmatchIndex(st.text)
	if m == nil || m[2] == m[3] || m[4] == m[5] {
		r.fail(st.start, st.start+len(st.text), invalidImportMessage, false)
		return
	}
	entities := st.text[m[2]:m[3]]
	dirty := st.text[m[4]:m[5]]
	pathStart, pathEnd := st.start+m[4], st.start+m[5]

	if strings.HasSuffix(dirty, ".prisma") {
		r.fail(pathStart, pathEnd, fmt.Sprintf(
			`This import path is invalid. Paths should not include the '.prisma' extension. Change it to "%s".`,
			strings.Replace(dirty, ".prisma", "", 1),
		), false)
		return
	}

	relative := dirty + ".prisma"
	target := virtual.ImportTarget(doc.Path(), dirty)
	found, ok := snap.Lookup(target)
	if !ok {
		r.fail(pathStart, pathEnd, fmt.Sprintf("Cannot find schema at '%s'", relative), false)
		return
	}

	var names []string
	for _, name := range strings.Split(whitespace.ReplaceAllString(entities, ""), ",") {
		if name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		open := strings.IndexByte(st.text, '{')
		closing := strings.IndexByte(st.text, '}')
		r.fail(st.start+open, st.start+closing+1,
			"Empty imports are useless, either import a block or remove this line.", true)
		return
	}

	for _, name := range names {
		block, ok := found.Block(name)
		if !ok {
			at := st.start + m[2] + nameIndex(entities, name)
			r.fail(at, at+len(name), fmt.Sprintf("'%s' has no block named \"%s\".", target, name), false)
			continue
		}
		r.Imports = append(r.Imports, ImportAst{
			Path:         target,
			RelativePath: relative,
			Block:        block,
		})
	}
}

// nameIndex finds name as a whole word in entities.
func nameIndex(entities, name string) int {
	loc := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`).FindStringIndex(entities)
	if loc == nil {
		return max(strings.Index(entities, name), 0)
	}
	return loc[0]
}
