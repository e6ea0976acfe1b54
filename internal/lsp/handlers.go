package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/woxQAQ/prisma-schema-lsp/internal/completion"
	"github.com/woxQAQ/prisma-schema-lsp/internal/features"
	"github.com/woxQAQ/prisma-schema-lsp/internal/rename"
	"github.com/woxQAQ/prisma-schema-lsp/internal/schema"
	prisma "github.com/woxQAQ/prisma-schema-lsp/pkg/protocol"
	"go.uber.org/zap"
)

func (s *Server) initialize(_ *glsp.Context, params *protocol.InitializeParams) (any, error) {
	switch {
	case params.RootURI != nil:
		s.setRoot(schema.PathFromURI(*params.RootURI))
	case params.RootPath != nil:
		s.setRoot(*params.RootPath)
	}

	capabilities := s.handler.CreateServerCapabilities()
	capabilities.TextDocumentSync = protocol.TextDocumentSyncKindFull
	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: completion.TriggerCharacters,
		ResolveProvider:   ptr(false),
	}
	capabilities.RenameProvider = protocol.RenameOptions{PrepareProvider: ptr(true)}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    Name,
			Version: ptr(Version),
		},
	}, nil
}

// initialized indexes the workspace so imports resolve before the client
// sends its own schema list.
func (s *Server) initialized(ctx *glsp.Context, _ *protocol.InitializedParams) error {
	root := s.workspaceRoot()
	if root == "" {
		return nil
	}
	uris, err := discover(root, s.cfg.LSP.FileExtension)
	if err != nil {
		s.logger.Warn("Failed to scan the workspace", zap.String("root", root), zap.Error(err))
		return nil
	}
	return s.schemas(ctx, &SchemasParams{URIs: uris})
}

func (s *Server) shutdown(_ *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

func (s *Server) setTrace(_ *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) didOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	doc := s.documents.Open(params.TextDocument.URI, params.TextDocument.Text)
	s.registry.UpdateDocument(doc)
	s.publishAll(ctx.Notify)
	return nil
}

func (s *Server) didChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	doc, ok := s.documents.Change(params.TextDocument.URI, params.ContentChanges)
	if !ok {
		s.logger.Debug("Change of an unknown document", zap.String("uri", params.TextDocument.URI))
		return nil
	}
	s.registry.UpdateDocument(doc)
	s.publishAll(ctx.Notify)
	return nil
}

// didClose drops the buffer. Other documents resolve their imports against
// the saved file from now on.
func (s *Server) didClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.documents.Close(params.TextDocument.URI)
	s.registry.ReloadDocument(params.TextDocument.URI)
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})
	s.publishAll(ctx.Notify)
	return nil
}

func (s *Server) completion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	doc, ok := s.documents.Document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	trigger := ""
	if params.Context != nil && params.Context.TriggerCharacter != nil {
		trigger = *params.Context.TriggerCharacter
	}
	list, err := s.completer.Complete(s.ctx, completion.Request{
		Document:         doc,
		Position:         fromPosition(params.Position),
		TriggerCharacter: trigger,
		Snapshot:         s.registry.Snapshot(),
		OnError:          s.onError(ctx.Notify),
	})
	if err != nil || list == nil {
		return nil, nil
	}
	return list, nil
}

func (s *Server) hover(_ *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc, ok := s.documents.Document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return toHover(features.Hover(doc, s.registry.Snapshot(), fromPosition(params.Position))), nil
}

func (s *Server) definition(_ *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	doc, ok := s.documents.Document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	links := features.Definition(doc, s.registry.Snapshot(), fromPosition(params.Position))
	if len(links) == 0 {
		return nil, nil
	}
	return toLocationLinks(links), nil
}

func (s *Server) prepareRename(_ *glsp.Context, params *protocol.PrepareRenameParams) (any, error) {
	doc, ok := s.documents.Document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	target, ok := rename.Classify(doc, fromPosition(params.Position))
	if !ok {
		return nil, nil
	}
	return toRange(target.Range), nil
}

func (s *Server) rename(_ *glsp.Context, params *protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
	doc, ok := s.documents.Document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	edit, err := s.renamer.Rename(doc, fromPosition(params.Position), params.NewName)
	if err != nil {
		return nil, err
	}
	return toWorkspaceEdit(edit), nil
}

func (s *Server) documentSymbol(_ *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	doc, ok := s.documents.Document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return toDocumentSymbols(features.Symbols(doc)), nil
}

func (s *Server) codeAction(ctx *glsp.Context, params *protocol.CodeActionParams) (any, error) {
	doc, ok := s.documents.Document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	diagnostics := make([]prisma.Diagnostic, 0, len(params.Context.Diagnostics))
	for _, d := range params.Context.Diagnostics {
		diagnostics = append(diagnostics, fromDiagnostic(d))
	}
	actions := s.features.CodeActions(s.ctx, doc, fromRange(params.Range), diagnostics, s.onError(ctx.Notify))
	return toCodeActions(actions), nil
}

// formatting formats the document. Imported blocks that the formatter
// changed are sent to the client as a separate workspace edit.
func (s *Server) formatting(ctx *glsp.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	doc, ok := s.documents.Document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	formatted, err := s.features.Format(s.ctx, doc, s.registry.Snapshot(), formattingOptions(params.Options), s.onError(ctx.Notify))
	if err != nil {
		s.logger.Debug("Leaving the document unformatted", zap.String("uri", doc.URI), zap.Error(err))
		return nil, nil
	}
	if edit := toWorkspaceEdit(formatted.Imported); edit != nil {
		go s.applyEdit(ctx.Call, *edit)
	}
	return toTextEdits(formatted.Edits), nil
}

func (s *Server) applyEdit(call glsp.CallFunc, edit protocol.WorkspaceEdit) {
	var response protocol.ApplyWorkspaceEditResponse
	call(protocol.ServerWorkspaceApplyEdit, protocol.ApplyWorkspaceEditParams{
		Label: ptr("Format imported blocks"),
		Edit:  edit,
	}, &response)
	if !response.Applied {
		s.logger.Warn("Client rejected the edit of imported blocks")
	}
}
