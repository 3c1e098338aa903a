// Package server implements a language server for pinvm programs.
package server

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/pinvm/compiler"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "pinvm-lsp"

// keywords are the instruction words offered by completion.
var keywords = []string{
	"halt", "restart", "noop", "sysinfo", "dump", "yield",
	"print", "debug", "delay", "sleep",
	"inc", "dec", "not", "jump", "if",
	"io", "allout", "write", "read", "mode", "type",
	"mem", "get", "set", "copy",
	"byte", "pin", "address", "uint", "int", "string",
}

// LspServer compiles open documents on every change and answers hover,
// completion and definition requests from the result.
type LspServer struct {
	mu   sync.Mutex
	docs map[string]*document // URI → latest analysis

	handler protocol.Handler
	server  *glspserver.Server
	version string
	log     commonlog.Logger
}

// NewLSP creates a new language server.
func NewLSP() *LspServer {
	s := &LspServer{
		docs:    make(map[string]*document),
		version: "0.1.0",
		log:     commonlog.GetLogger("pinvm.lsp"),
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
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
	commonlog.NewInfoMessage(0, "pinvm LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"$"},
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
	s.mu.Lock()
	s.docs = make(map[string]*document)
	s.mu.Unlock()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.update(ctx, params.TextDocument.URI, params.TextDocument.Text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.update(ctx, params.TextDocument.URI, whole.Text)
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

func (s *LspServer) update(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	doc := analyze(text)

	s.mu.Lock()
	s.docs[string(uri)] = doc
	s.mu.Unlock()

	if doc.err != nil {
		s.log.Debugf("%s: %s", uri, doc.err)
	}
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: doc.diagnostics(),
	})
}

func (s *LspServer) document(uri protocol.DocumentUri) *document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[string(uri)]
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	doc := s.document(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	prefix := extractPrefix(doc.text, params.Position)
	if prefix == "" {
		return nil, nil
	}
	return doc.complete(prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc := s.document(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	word := extractWord(doc.text, params.Position)
	if word == "" {
		return nil, nil
	}
	return doc.hover(word), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	doc := s.document(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	word := extractWord(doc.text, params.Position)
	if word == "" {
		return nil, nil
	}
	span, ok := doc.definitions[word]
	if !ok {
		return nil, nil
	}
	return []protocol.Location{{URI: params.TextDocument.URI, Range: toRange(span)}}, nil
}

// --- Document analysis ---

// document is the compiled view of one open file. When the source does not
// compile, result is nil but declarations parsed before the error remain.
type document struct {
	text        string
	err         error
	result      *compiler.Result
	definitions map[string]compiler.Span
}

func analyze(text string) *document {
	doc := &document{text: text, definitions: make(map[string]compiler.Span)}

	nodes, err := compiler.Parse(text)
	if err != nil {
		doc.err = err
		return doc
	}
	for _, n := range nodes {
		switch n := n.(type) {
		case *compiler.Declare:
			if _, seen := doc.definitions[n.Target.Name]; !seen {
				doc.definitions[n.Target.Name] = n.Target.Span()
			}
		case *compiler.Label:
			doc.definitions[n.Name] = n.Span()
		}
	}

	doc.result, doc.err = compiler.Build(text)
	return doc
}

// diagnostics converts the compile error, if any, into one LSP diagnostic.
// Only syntax errors carry a position; other errors mark the first line.
func (d *document) diagnostics() []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}
	if d.err == nil {
		return diagnostics
	}

	severity := protocol.DiagnosticSeverityError
	source := lspName
	diag := protocol.Diagnostic{
		Severity: &severity,
		Source:   &source,
		Message:  d.err.Error(),
	}

	var syntaxErr *compiler.SyntaxError
	if errors.As(d.err, &syntaxErr) {
		line := protocol.UInteger(max(syntaxErr.Line-1, 0))
		col := protocol.UInteger(max(syntaxErr.Column-1, 0))
		diag.Message = syntaxErr.Message
		diag.Range = protocol.Range{
			Start: protocol.Position{Line: line, Character: col},
			End:   protocol.Position{Line: line, Character: protocol.UInteger(len(syntaxErr.SourceLine))},
		}
	}
	return append(diagnostics, diag)
}

func (d *document) hover(word string) *protocol.Hover {
	if d.result == nil {
		return nil
	}

	var b strings.Builder
	if strings.HasPrefix(word, "$") {
		t, ok := d.result.Types[word]
		if !ok {
			return nil
		}
		fmt.Fprintf(&b, "**%s** %s", word, t)
		for id, name := range d.result.Names {
			if name == word {
				fmt.Fprintf(&b, "\n\nslot #%d", id)
			}
		}
	} else {
		offset, ok := d.result.Labels[word]
		if !ok {
			return nil
		}
		fmt.Fprintf(&b, "**%s:** label at offset %d", word, offset)
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

func (d *document) complete(prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	add := func(label, detail string, kind protocol.CompletionItemKind) {
		if !strings.HasPrefix(label, prefix) {
			return
		}
		items = append(items, protocol.CompletionItem{
			Label:      label,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &label,
		})
	}

	for _, kw := range keywords {
		add(kw, "instruction", protocol.CompletionItemKindKeyword)
	}

	names := make([]string, 0, len(d.definitions))
	for name := range d.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.HasPrefix(name, "$") {
			detail := "variable"
			if d.result != nil {
				detail = d.result.Types[name].String()
			}
			add(name, detail, protocol.CompletionItemKindVariable)
		} else {
			add(name, "label", protocol.CompletionItemKindReference)
		}
	}
	return items
}

// --- Text extraction helpers ---

func isNameChar(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' || ch == '_'
}

// wordStart walks back from col over a name, including a leading '$'.
func wordStart(line string, col int) int {
	start := col
	for start > 0 && isNameChar(line[start-1]) {
		start--
	}
	if start > 0 && line[start-1] == '$' {
		start--
	}
	return start
}

func cursorLine(text string, pos protocol.Position) (string, int, bool) {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return "", 0, false
	}
	line := strings.TrimRight(lines[pos.Line], "\r")
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}
	return line, col, true
}

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	line, col, ok := cursorLine(text, pos)
	if !ok {
		return ""
	}
	return line[wordStart(line, col):col]
}

// extractWord returns the full name under the cursor.
func extractWord(text string, pos protocol.Position) string {
	line, col, ok := cursorLine(text, pos)
	if !ok {
		return ""
	}
	if col < len(line) && line[col] == '$' {
		col++
	}

	start := wordStart(line, col)
	end := col
	for end < len(line) && isNameChar(line[end]) {
		end++
	}
	if start == end || line[start:end] == "$" {
		return ""
	}
	return line[start:end]
}

func toRange(span compiler.Span) protocol.Range {
	pos := func(p compiler.Position) protocol.Position {
		return protocol.Position{
			Line:      protocol.UInteger(max(p.Line-1, 0)),
			Character: protocol.UInteger(max(p.Column-1, 0)),
		}
	}
	return protocol.Range{Start: pos(span.Start), End: pos(span.End)}
}

func boolPtr(b bool) *bool {
	return &b
}
