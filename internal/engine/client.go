package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/woxQAQ/prisma-schema-lsp/pkg/protocol"
	"go.uber.org/zap"
)

// ErrorHandler receives the user facing message of an engine fault.
type ErrorHandler func(message string)

// placeholderURI stands in for the document URI in engine requests; the
// engine only reads the schema text it is given.
const placeholderURI = "file:/dev/null"

const formatFaultMessage = "prisma-fmt error'd during formatting. To get a more detailed output please see " +
	"Prisma Language Server output. To see the output, go to View > Output from the toolbar, then select " +
	"'Prisma Language Server' in the Output panel."

// faultMessage renders the notification shown for a fault in op.
func faultMessage(op Op, err error) string {
	switch op {
	case OpLint:
		return fmt.Sprintf("prisma-fmt error'd during linting.\n%v", err)
	case OpFormat:
		return formatFaultMessage
	case OpPreviewFeatures:
		return fmt.Sprintf("prisma-fmt error'd during getting available preview features.\n %v", err)
	case OpNativeTypes:
		return fmt.Sprintf("prisma-fmt error'd during getting available native types. %v", err)
	default:
		return fmt.Sprintf("prisma-fmt error'd during %s.\n%v", op.export(), err)
	}
}

// FormattingOptions mirrors the editor's formatting options.
type FormattingOptions struct {
	TabSize      int  `json:"tabSize"`
	InsertSpaces bool `json:"insertSpaces"`
}

type textDocumentIdentifier struct {
	URI string `json:"uri"`
}

type formatRequest struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Options      FormattingOptions      `json:"options"`
}

type completionRequest struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Position     protocol.Position      `json:"position"`
}

type codeActionContext struct {
	Diagnostics []protocol.Diagnostic `json:"diagnostics"`
}

type codeActionRequest struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Range        protocol.Range         `json:"range"`
	Context      codeActionContext      `json:"context"`
}

// Client calls an Engine with typed requests and contains its faults. Every
// fault, whether a panic, a trap, an error or malformed output, is reported
// exactly once through the call's ErrorHandler and then returned as a
// *FaultError together with an empty result.
type Client struct {
	engine     Engine
	logger     *zap.Logger
	forcePanic bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithForcedPanic makes every call trigger an engine panic first.
func WithForcedPanic(force bool) ClientOption {
	return func(c *Client) { c.forcePanic = force }
}

// NewClient wraps an engine.
func NewClient(e Engine, logger *zap.Logger, opts ...ClientOption) *Client {
	c := &Client{
		engine: e,
		logger: logger.With(zap.String("component", "engine-client"), zap.String("engine", e.Name())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Engine returns the wrapped engine.
func (c *Client) Engine() Engine {
	return c.engine
}

// Lint returns the engine's diagnostics for schema.
func (c *Client) Lint(ctx context.Context, schema string, onError ErrorHandler) ([]LinterError, error) {
	var out []LinterError
	err := c.guard(ctx, OpLint, onError, func() error {
		raw, err := c.engine.Lint(ctx, schema)
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(raw), &out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Format returns the formatted schema. On a fault the schema is returned
// unchanged alongside the error.
func (c *Client) Format(ctx context.Context, schema string, opts FormattingOptions, onError ErrorHandler) (string, error) {
	params, err := json.Marshal(formatRequest{
		TextDocument: textDocumentIdentifier{URI: placeholderURI},
		Options:      opts,
	})
	if err != nil {
		return schema, err
	}
	var out string
	err = c.guard(ctx, OpFormat, onError, func() error {
		var ferr error
		out, ferr = c.engine.Format(ctx, schema, string(params))
		return ferr
	})
	if err != nil {
		return schema, err
	}
	return out, nil
}

// Complete asks the engine for completions at pos.
func (c *Client) Complete(ctx context.Context, schema string, pos protocol.Position, onError ErrorHandler) (protocol.CompletionList, error) {
	params, err := json.Marshal(completionRequest{
		TextDocument: textDocumentIdentifier{URI: placeholderURI},
		Position:     pos,
	})
	if err != nil {
		return protocol.CompletionList{}, err
	}
	var out protocol.CompletionList
	err = c.guard(ctx, OpComplete, onError, func() error {
		raw, err := c.engine.Complete(ctx, schema, string(params))
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(raw), &out)
	})
	if err != nil {
		return protocol.CompletionList{}, err
	}
	return out, nil
}

// PreviewFeatures lists every preview feature the engine knows.
func (c *Client) PreviewFeatures(ctx context.Context, onError ErrorHandler) ([]string, error) {
	var out []string
	err := c.guard(ctx, OpPreviewFeatures, onError, func() error {
		raw, err := c.engine.PreviewFeatures(ctx)
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(raw), &out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// NativeTypes lists the native type constructors of the schema's datasource.
func (c *Client) NativeTypes(ctx context.Context, schema string, onError ErrorHandler) ([]NativeTypeConstructor, error) {
	var out []NativeTypeConstructor
	err := c.guard(ctx, OpNativeTypes, onError, func() error {
		raw, err := c.engine.NativeTypes(ctx, schema)
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(raw), &out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CodeActions asks the engine for quick fixes of the given diagnostics.
func (c *Client) CodeActions(
	ctx context.Context,
	schema string,
	rng protocol.Range,
	diagnostics []protocol.Diagnostic,
	onError ErrorHandler,
) ([]protocol.CodeAction, error) {
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	params, err := json.Marshal(codeActionRequest{
		TextDocument: textDocumentIdentifier{URI: placeholderURI},
		Range:        rng,
		Context:      codeActionContext{Diagnostics: diagnostics},
	})
	if err != nil {
		return nil, err
	}
	var out []protocol.CodeAction
	err = c.guard(ctx, OpCodeActions, onError, func() error {
		raw, err := c.engine.CodeActions(ctx, schema, string(params))
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(raw), &out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// guard runs call and turns any panic or error into a reported FaultError.
func (c *Client) guard(ctx context.Context, op Op, onError ErrorHandler, call func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &FaultError{Op: op, Err: panicError(r)}
		}
		if err == nil {
			return
		}
		c.logger.Warn("Engine call failed", zap.String("op", string(op)), zap.Error(err))
		if onError != nil {
			onError(faultMessage(op, err))
		}
	}()

	if c.forcePanic {
		c.logger.Debug("Triggering an engine panic", zap.String("op", string(op)))
		if perr := c.engine.DebugPanic(ctx); perr != nil {
			return &FaultError{Op: op, Err: perr}
		}
	}
	if cerr := call(); cerr != nil {
		return &FaultError{Op: op, Err: cerr}
	}
	return nil
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}
