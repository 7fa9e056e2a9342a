// Package lsp serves document symbols to editors over JSON-RPC.
package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/x/powernap/pkg/lsp/protocol"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/uri"

	"github.com/xonecas/outline/internal/config"
	"github.com/xonecas/outline/internal/constants"
	"github.com/xonecas/outline/internal/symbols"
	"github.com/xonecas/outline/internal/treesitter"
)

// ErrExitWithoutShutdown is returned by Serve when the client sends exit
// before shutdown.
var ErrExitWithoutShutdown = errors.New("lsp: exit without shutdown")

// ErrDisconnected is returned by Serve when the connection drops before the
// client sent shutdown.
var ErrDisconnected = errors.New("lsp: client disconnected without shutdown")

type document struct {
	languageID string
	version    int32
	text       []byte
}

// Server answers textDocument/documentSymbol for Python documents.
type Server struct {
	mu       sync.Mutex
	cfg      *config.Config
	docs     map[uri.URI]*document
	shutdown bool

	exitOnce sync.Once
	exited   chan struct{}
}

// NewServer creates a server that starts from a copy of cfg. Client
// settings are layered on top of it.
func NewServer(cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Server{
		cfg:    cfg.Clone(),
		docs:   make(map[uri.URI]*document),
		exited: make(chan struct{}),
	}
}

// Serve handles one client connection until the client exits, the
// connection drops or ctx is canceled.
func (s *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(s.handle),
		jsonrpc2.SetLogger(stdlog.New(log.Logger, "jsonrpc2: ", 0)))
	defer conn.Close()

	unclean := ErrExitWithoutShutdown
	select {
	case <-s.exited:
	case <-conn.DisconnectNotify():
		log.Debug().Msg("lsp: client disconnected")
		unclean = ErrDisconnected
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	clean := s.shutdown
	s.mu.Unlock()
	if !clean {
		return unclean
	}
	return nil
}

func (s *Server) handle(ctx context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (result any, err error) {
	start := time.Now()
	defer func() {
		ev := log.Debug().Str("method", req.Method).Dur("took", time.Since(start))
		if err != nil {
			ev = ev.Err(err)
		}
		ev.Msg("lsp: handled")
	}()

	s.mu.Lock()
	down := s.shutdown
	s.mu.Unlock()
	if down && req.Method != "exit" {
		if req.Notif {
			return nil, nil
		}
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidRequest, Message: "server is shutting down"}
	}

	switch req.Method {
	case "initialize":
		return s.initialize(req)
	case "initialized":
		return nil, nil
	case "textDocument/didOpen":
		return nil, s.didOpen(req)
	case "textDocument/didChange":
		return nil, s.didChange(req)
	case "textDocument/didClose":
		return nil, s.didClose(req)
	case "textDocument/documentSymbol":
		return s.documentSymbol(ctx, req)
	case "workspace/didChangeConfiguration":
		return nil, s.didChangeConfiguration(req)
	case "shutdown":
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		return nil, nil
	case "exit":
		s.exitOnce.Do(func() { close(s.exited) })
		return nil, nil
	}

	if req.Notif {
		return nil, nil
	}
	return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: fmt.Sprintf("method not found: %s", req.Method)}
}

// decode unmarshals request params into v.
func decode(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	}
	return nil
}

type initializeParams struct {
	InitializationOptions json.RawMessage `json:"initializationOptions,omitempty"`
}

type serverCapabilities struct {
	TextDocumentSync       protocol.TextDocumentSyncKind `json:"textDocumentSync"`
	DocumentSymbolProvider bool                          `json:"documentSymbolProvider"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeResult struct {
	Capabilities serverCapabilities `json:"capabilities"`
	ServerInfo   serverInfo         `json:"serverInfo"`
}

func (s *Server) initialize(req *jsonrpc2.Request) (any, error) {
	var params initializeParams
	if req.Params != nil {
		if err := decode(req, &params); err != nil {
			return nil, err
		}
	}
	if err := s.applySettings(params.InitializationOptions); err != nil {
		return nil, err
	}

	return initializeResult{
		Capabilities: serverCapabilities{
			TextDocumentSync:       protocol.Full,
			DocumentSymbolProvider: true,
		},
		ServerInfo: serverInfo{Name: constants.AppName, Version: constants.Version},
	}, nil
}

// pluginSettings is the settings payload editors send for pylsp plugins,
// either wrapped in a "pylsp" object or bare.
type pluginSettings struct {
	Pylsp *struct {
		Plugins map[string]map[string]any `json:"plugins"`
	} `json:"pylsp"`
	Plugins map[string]map[string]any `json:"plugins"`
}

func (s *Server) applySettings(raw json.RawMessage) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var settings pluginSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: fmt.Sprintf("settings: %v", err)}
	}

	plugins := settings.Plugins
	if settings.Pylsp != nil {
		plugins = settings.Pylsp.Plugins
	}
	if len(plugins) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.cfg.Clone()
	next.MergePlugins(plugins)
	if err := next.Validate(); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	}
	s.cfg = next
	log.Debug().Interface("plugins", plugins).Msg("lsp: settings updated")
	return nil
}

type didChangeConfigurationParams struct {
	Settings json.RawMessage `json:"settings"`
}

func (s *Server) didChangeConfiguration(req *jsonrpc2.Request) error {
	var params didChangeConfigurationParams
	if err := decode(req, &params); err != nil {
		return err
	}
	return s.applySettings(params.Settings)
}

// Document params carry the URI as a uri.URI rather than a
// protocol.DocumentURI, which only accepts file URIs. Unsaved buffers use
// other schemes such as untitled:.
type textDocumentIdentifier struct {
	URI uri.URI `json:"uri"`
}

type didOpenParams struct {
	TextDocument struct {
		URI        uri.URI `json:"uri"`
		LanguageID string  `json:"languageId"`
		Version    int32   `json:"version"`
		Text       string  `json:"text"`
	} `json:"textDocument"`
}

type didCloseParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
}

type documentSymbolParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
}

func (s *Server) didOpen(req *jsonrpc2.Request) error {
	var params didOpenParams
	if err := decode(req, &params); err != nil {
		return err
	}
	item := params.TextDocument

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[item.URI] = &document{
		languageID: item.LanguageID,
		version:    item.Version,
		text:       []byte(item.Text),
	}
	return nil
}

// didChangeParams reads full-document changes only; the server advertises
// full sync.
type didChangeParams struct {
	TextDocument struct {
		URI     uri.URI `json:"uri"`
		Version int32   `json:"version"`
	} `json:"textDocument"`
	ContentChanges []struct {
		Range *protocol.Range `json:"range,omitempty"`
		Text  string          `json:"text"`
	} `json:"contentChanges"`
}

func (s *Server) didChange(req *jsonrpc2.Request) error {
	var params didChangeParams
	if err := decode(req, &params); err != nil {
		return err
	}
	if len(params.ContentChanges) == 0 {
		return nil
	}
	change := params.ContentChanges[len(params.ContentChanges)-1]
	if change.Range != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "incremental changes are not supported"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[params.TextDocument.URI]
	if !ok {
		doc = &document{}
		s.docs[params.TextDocument.URI] = doc
	}
	doc.version = params.TextDocument.Version
	doc.text = []byte(change.Text)
	log.Debug().Str("uri", string(params.TextDocument.URI)).Int32("version", doc.version).Msg("lsp: document changed")
	return nil
}

func (s *Server) didClose(req *jsonrpc2.Request) error {
	var params didCloseParams
	if err := decode(req, &params); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, params.TextDocument.URI)
	return nil
}

func (s *Server) documentSymbol(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	var params documentSymbolParams
	if err := decode(req, &params); err != nil {
		return nil, err
	}
	docURI := params.TextDocument.URI
	path := filename(docURI)

	s.mu.Lock()
	cfg := s.cfg.Clone()
	var (
		text       []byte
		languageID string
		open       bool
	)
	if doc, ok := s.docs[docURI]; ok {
		text, languageID, open = doc.text, doc.languageID, true
	}
	s.mu.Unlock()

	if !open && path == "" {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: fmt.Sprintf("document not open: %s", docURI)}
	}
	if languageID != "python" && !treesitter.Supported(path) {
		return []protocol.DocumentSymbol{}, nil
	}

	if !open {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: fmt.Sprintf("read %s: %v", path, err)}
		}
		text = data
	}

	mod, err := treesitter.ParsePython(ctx, path, text)
	if err != nil {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: err.Error()}
	}
	return symbols.DocumentSymbols(cfg, mod), nil
}

// filename returns the local path of a file:// URI, or "" for other schemes.
func filename(docURI uri.URI) string {
	if !strings.HasPrefix(string(docURI), uri.FileScheme+"://") {
		return ""
	}
	return docURI.Filename()
}
