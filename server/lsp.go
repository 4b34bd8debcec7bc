// Package server exposes tape programs to other processes: a language server
// that reports unbalanced brackets and navigates between matching brackets,
// and a websocket playground that runs a program once per connection.
package server

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/tape/pkg/bytecode"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "tape-lsp"

// LspServer serves editor features for tape sources over stdio.
type LspServer struct {
	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
	log     commonlog.Logger
}

// NewLSP creates a new LSP server.
func NewLSP(version string) *LspServer {
	s := &LspServer{
		docs:    make(map[string]string),
		version: version,
		log:     commonlog.GetLogger("tape.lsp"),
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.log.Info("tape LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.setDoc(uri, text)
	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.setDoc(uri, whole.Text)
			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// --- Language features ---

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.doc(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return hoverAt(text, params.Position), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI
	text, ok := s.doc(uri)
	if !ok {
		return nil, nil
	}

	loc := definitionAt(uri, text, params.Position)
	if loc == nil {
		return nil, nil
	}
	return *loc, nil
}

func (s *LspServer) setDoc(uri protocol.DocumentUri, text string) {
	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()
}

func (s *LspServer) doc(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics := diagnose(text)
	if len(diagnostics) > 0 {
		s.log.Debugf("%s: %d bracket diagnostics", uri, len(diagnostics))
	}

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// --- Analysis (pure, no server state) ---

// diagnose returns one error diagnostic per unmatched bracket, in source order.
func diagnose(text string) []protocol.Diagnostic {
	_, errs := bytecode.MatchAll([]byte(text))

	type problem struct {
		offset int
		kind   bytecode.StructuralErrorKind
	}
	var problems []problem
	for _, e := range errs {
		for _, p := range e.Positions {
			problems = append(problems, problem{p, e.Kind})
		}
	}
	sort.Slice(problems, func(i, j int) bool { return problems[i].offset < problems[j].offset })

	diagnostics := []protocol.Diagnostic{}
	for _, p := range problems {
		severity := protocol.DiagnosticSeverityError
		source := lspName
		message := "loop-open has no matching ]"
		if p.kind == bytecode.UnmatchedClose {
			message = "loop-close has no matching ["
		}
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    byteRange(text, p.offset),
			Severity: &severity,
			Source:   &source,
			Message:  message,
		})
	}
	return diagnostics
}

// hoverAt describes the instruction under the cursor.
func hoverAt(text string, pos protocol.Position) *protocol.Hover {
	offset, ok := positionToOffset(text, pos)
	if !ok {
		return nil
	}
	op := bytecode.Opcode(text[offset])
	if !op.IsInstruction() {
		return nil
	}

	info := bytecode.GetOpcodeInfo(op)
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** `%c`\n\n%s", info.Name, byte(op), info.Description)

	if op.IsBracket() {
		table, _ := bytecode.MatchAll([]byte(text))
		if target, ok := table.Target(offset); ok {
			tp := offsetToPosition(text, target)
			fmt.Fprintf(&b, "\n\nMatches `%c` at %d:%d (offset %d)", text[target], tp.Line+1, tp.Character+1, target)
		} else {
			b.WriteString("\n\n**Unmatched**")
		}
	}

	r := byteRange(text, offset)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
		Range: &r,
	}
}

// definitionAt returns the location of the bracket matching the one under
// the cursor, or nil.
func definitionAt(uri protocol.DocumentUri, text string, pos protocol.Position) *protocol.Location {
	offset, ok := positionToOffset(text, pos)
	if !ok || !bytecode.Opcode(text[offset]).IsBracket() {
		return nil
	}

	table, _ := bytecode.MatchAll([]byte(text))
	target, ok := table.Target(offset)
	if !ok {
		return nil
	}
	return &protocol.Location{
		URI:   uri,
		Range: byteRange(text, target),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
