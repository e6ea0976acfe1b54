package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/woxQAQ/prisma-schema-lsp/internal/lsp"
	"go.uber.org/zap"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the language server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().String("transport", "stdio", "Transport to serve on (stdio, tcp)")
	cmd.Flags().String("address", "127.0.0.1:7998", "Listen address of the tcp transport")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	a.logger.Info("Starting prisma-schema-lsp",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("date", date),
	)
	a.watchConfig()

	server, err := lsp.NewServer(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Close(shutdownCtx)
	}()

	if a.cfg.LSP.Transport == "tcp" {
		return server.ServeTCP(ctx, a.cfg.LSP.Address)
	}
	return server.ServeStdio(ctx)
}
