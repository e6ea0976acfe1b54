package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/woxQAQ/prisma-schema-lsp/internal/engine"
	"github.com/woxQAQ/prisma-schema-lsp/internal/features"
	"github.com/woxQAQ/prisma-schema-lsp/internal/registry"
	"github.com/woxQAQ/prisma-schema-lsp/internal/schema"
	"github.com/woxQAQ/prisma-schema-lsp/pkg/protocol"
	"go.uber.org/zap"
)

var severityNames = map[protocol.DiagnosticSeverity]string{
	protocol.SeverityError:       "error",
	protocol.SeverityWarning:     "warning",
	protocol.SeverityInformation: "info",
	protocol.SeverityHint:        "hint",
}

func newCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>...",
		Short: "Print the diagnostics of schema files",
		Long: "Check lints the given schema files together, so that imports between them " +
			"resolve, and prints one line per diagnostic.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.check(cmd.Context(), cmd.OutOrStdout(), args)
		},
	}
}

// workspace is a registry snapshot of schema files read from disk.
type workspace struct {
	session *engine.Session
	service *features.Service
	snap    *registry.Snapshot
}

// openWorkspace opens the engine and loads paths into a registry.
func (a *app) openWorkspace(ctx context.Context, paths []string) (*workspace, error) {
	uris := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(abs); err != nil {
			return nil, err
		}
		uris = append(uris, schema.URIFromPath(abs))
	}

	snap, err := registry.NewStore(a.logger).Rebuild(ctx, uris, nil)
	if err != nil {
		return nil, err
	}
	session, err := engine.OpenSession(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	return &workspace{
		session: session,
		service: features.New(session.Client, a.logger),
		snap:    snap,
	}, nil
}

func (w *workspace) close() {
	_ = w.session.Close(context.Background())
}

func (w *workspace) document(path string) (*schema.Document, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false
	}
	entry, ok := w.snap.Lookup(abs)
	if !ok {
		return nil, false
	}
	return entry.Document, true
}

func (a *app) reportFault(message string) {
	a.logger.Warn("Engine fault", zap.String("message", message))
}

func (a *app) check(ctx context.Context, out io.Writer, paths []string) error {
	w, err := a.openWorkspace(ctx, paths)
	if err != nil {
		return err
	}
	defer w.close()

	errorCount := 0
	for _, path := range paths {
		doc, ok := w.document(path)
		if !ok {
			return fmt.Errorf("failed to load schema '%s'", path)
		}
		for _, d := range w.service.Diagnostics(ctx, doc, w.snap, a.reportFault) {
			if d.Severity == protocol.SeverityError {
				errorCount++
			}
			fmt.Fprintf(out, "%s:%d:%d: %s: %s\n",
				path, d.Range.Start.Line+1, d.Range.Start.Character+1, severityNames[d.Severity], d.Message)
		}
	}
	if errorCount > 0 {
		return fmt.Errorf("found %d error(s)", errorCount)
	}
	return nil
}
