// Package lsp serves the schema engine over the Language Server Protocol.
package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
	"github.com/woxQAQ/prisma-schema-lsp/internal/completion"
	"github.com/woxQAQ/prisma-schema-lsp/internal/config"
	"github.com/woxQAQ/prisma-schema-lsp/internal/engine"
	"github.com/woxQAQ/prisma-schema-lsp/internal/features"
	"github.com/woxQAQ/prisma-schema-lsp/internal/registry"
	"github.com/woxQAQ/prisma-schema-lsp/internal/rename"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	// Must include a backend implementation for commonlog
	_ "github.com/tliron/commonlog/simple"
)

// Name is announced to the client.
const Name = "prisma-schema-lsp"

// Version is announced to the client. Set at build time.
var Version = "dev"

type Server struct {
	cfg     *config.ServerConfig
	logger  *zap.Logger
	session *engine.Session
	ctx     context.Context

	handler   protocol.Handler
	documents *Documents
	registry  *registry.Store
	completer *completion.Completer
	renamer   *rename.Renamer
	features  *features.Service

	rootMu sync.Mutex
	root   string
}

// NewServer opens the configured engine and prepares the handlers.
func NewServer(ctx context.Context, cfg *config.ServerConfig, logger *zap.Logger) (*Server, error) {
	session, err := engine.OpenSession(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	s := newServer(ctx, cfg, session.Client, logger)
	s.session = session

	logger.Info("LSP server initialized",
		zap.String("engine", session.Engine.Name()),
		zap.Uint32("wasm_memory_pages", cfg.Wasm.MemoryPages),
		zap.String("wasm_cache_dir", cfg.Wasm.CacheDir),
	)
	return s, nil
}

func newServer(ctx context.Context, cfg *config.ServerConfig, client *engine.Client, logger *zap.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		logger:    logger.With(zap.String("component", "lsp")),
		ctx:       ctx,
		documents: NewDocuments(),
		registry:  registry.NewStore(logger),
		completer: completion.New(client, logger),
		renamer:   rename.New(logger),
		features:  features.New(client, logger),
	}
	s.handler = protocol.Handler{
		Initialize:                 s.initialize,
		Initialized:                s.initialized,
		Shutdown:                   s.shutdown,
		SetTrace:                   s.setTrace,
		TextDocumentDidOpen:        s.didOpen,
		TextDocumentDidChange:      s.didChange,
		TextDocumentDidClose:       s.didClose,
		TextDocumentCompletion:     s.completion,
		TextDocumentHover:          s.hover,
		TextDocumentDefinition:     s.definition,
		TextDocumentPrepareRename:  s.prepareRename,
		TextDocumentRename:         s.rename,
		TextDocumentDocumentSymbol: s.documentSymbol,
		TextDocumentCodeAction:     s.codeAction,
		TextDocumentFormatting:     s.formatting,
	}
	return s
}

// Handle dispatches a message. The schema list notification is not part of
// the protocol and is handled before the standard handlers.
func (s *Server) Handle(ctx *glsp.Context) (r any, validMethod bool, validParams bool, err error) {
	if ctx.Method == MethodSchemas {
		var params SchemasParams
		if err := json.Unmarshal(ctx.Params, &params); err != nil {
			return nil, true, false, err
		}
		return nil, true, true, s.schemas(ctx, &params)
	}
	return s.handler.Handle(ctx)
}

// Close gracefully shuts down the server.
func (s *Server) Close(ctx context.Context) error {
	s.logger.Info("Shutting down LSP server")
	if s.session == nil {
		return nil
	}
	if err := s.session.Close(ctx); err != nil {
		s.logger.Error("Failed to shutdown engine", zap.Error(err))
		return err
	}
	s.logger.Info("LSP server shutdown complete")
	return nil
}

// ServeStdio serves a single client over stdin and stdout until the client
// disconnects or ctx is done.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.serve(ctx, func(srv *server.Server) error { return srv.RunStdio() })
}

// ServeTCP serves clients connecting to address.
func (s *Server) ServeTCP(ctx context.Context, address string) error {
	s.logger.Info("Listening", zap.String("address", address))
	return s.serve(ctx, func(srv *server.Server) error { return srv.RunTCP(address) })
}

func (s *Server) serve(ctx context.Context, run func(*server.Server) error) error {
	debug := s.logger.Core().Enabled(zapcore.DebugLevel)
	verbosity := 0
	if debug {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	errs := make(chan error, 1)
	go func() {
		errs <- run(server.NewServer(s, Name, debug))
	}()
	select {
	case err := <-errs:
		if err != nil {
			return fmt.Errorf("language server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
		return nil
	}
}

func (s *Server) setRoot(root string) {
	s.rootMu.Lock()
	s.root = root
	s.rootMu.Unlock()
}

func (s *Server) workspaceRoot() string {
	s.rootMu.Lock()
	defer s.rootMu.Unlock()
	return s.root
}

// onError shows engine faults to the user.
func (s *Server) onError(notify glsp.NotifyFunc) engine.ErrorHandler {
	return func(message string) {
		notify(protocol.ServerWindowShowMessage, protocol.ShowMessageParams{
			Type:    protocol.MessageTypeWarning,
			Message: message,
		})
	}
}
