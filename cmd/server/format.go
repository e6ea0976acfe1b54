package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
	"github.com/woxQAQ/prisma-schema-lsp/internal/engine"
	"github.com/woxQAQ/prisma-schema-lsp/internal/schema"
)

type formatFlags struct {
	diff  bool
	write bool
}

func newFormatCommand(a *app) *cobra.Command {
	var flags formatFlags
	cmd := &cobra.Command{
		Use:   "format <file>",
		Short: "Format a schema file",
		Long: "Format prints the formatted schema. Blocks imported from sibling schema files " +
			"are formatted too and written back with --write.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.format(cmd.Context(), cmd.OutOrStdout(), args[0], flags)
		},
	}
	cmd.Flags().BoolVar(&flags.diff, "diff", false, "Print a unified diff instead of the formatted file")
	cmd.Flags().BoolVarP(&flags.write, "write", "w", false, "Write the result back to the files")
	return cmd
}

func (a *app) format(ctx context.Context, out io.Writer, path string, flags formatFlags) error {
	siblings, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*"+a.cfg.LSP.FileExtension))
	if err != nil {
		return err
	}
	if !slices.Contains(siblings, path) {
		siblings = append(siblings, path)
	}
	w, err := a.openWorkspace(ctx, siblings)
	if err != nil {
		return err
	}
	defer w.close()

	doc, ok := w.document(path)
	if !ok {
		return fmt.Errorf("failed to load schema '%s'", path)
	}
	formatted, err := w.service.Format(ctx, doc, w.snap, engine.FormattingOptions{TabSize: 2, InsertSpaces: true}, a.reportFault)
	if err != nil {
		return err
	}

	results := map[string]string{path: doc.Apply(formatted.Edits)}
	originals := map[string]*schema.Document{path: doc}
	if formatted.Imported != nil {
		for uri, edits := range formatted.Imported.Changes {
			target, ok := w.snap.Lookup(schema.PathFromURI(uri))
			if !ok {
				continue
			}
			results[target.Path] = target.Document.Apply(edits)
			originals[target.Path] = target.Document
		}
	}

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		text := results[name]
		switch {
		case flags.write:
			if err := os.WriteFile(name, []byte(text), 0o644); err != nil {
				return err
			}
		case flags.diff:
			diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
				A:        difflib.SplitLines(originals[name].Text()),
				B:        difflib.SplitLines(text),
				FromFile: name,
				ToFile:   name,
				Context:  3,
			})
			if err != nil {
				return err
			}
			fmt.Fprint(out, diff)
		case name == path:
			fmt.Fprint(out, text)
		}
	}
	return nil
}
