package server

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const program = `byte $count = 1
string $msg = 'hi'
loop:
  $count++
  print $msg
  jump loop`

// ---------------------------------------------------------------------------
// Text extraction helpers
// ---------------------------------------------------------------------------

func TestExtractPrefix(t *testing.T) {
	tests := []struct {
		text string
		line uint32
		char uint32
		want string
	}{
		{"jump lo", 0, 7, "lo"},
		{"print $co", 0, 9, "$co"},
		{"print $", 0, 7, "$"},
		{"noop\nha", 1, 2, "ha"},
		{"hello", 0, 0, ""},
		{"", 0, 0, ""},
		{"single line", 5, 0, ""},
	}
	for _, tt := range tests {
		pos := protocol.Position{Line: tt.line, Character: tt.char}
		if got := extractPrefix(tt.text, pos); got != tt.want {
			t.Errorf("extractPrefix(%q, %d:%d) = %q, want %q", tt.text, tt.line, tt.char, got, tt.want)
		}
	}
}

func TestExtractWord(t *testing.T) {
	tests := []struct {
		text string
		line uint32
		char uint32
		want string
	}{
		{"print $count", 0, 9, "$count"},
		{"print $count", 0, 6, "$count"}, // on the sigil
		{"print $count", 0, 12, "$count"},
		{"jump loop", 0, 6, "loop"},
		{"hello world", 0, 5, "hello"},
		{"my_var", 0, 3, "my_var"},
		{"x $ y", 0, 2, ""},
		{"", 0, 0, ""},
		{"first\r\nsecond", 1, 3, "second"},
		{"single line", 5, 0, ""},
	}
	for _, tt := range tests {
		pos := protocol.Position{Line: tt.line, Character: tt.char}
		if got := extractWord(tt.text, pos); got != tt.want {
			t.Errorf("extractWord(%q, %d:%d) = %q, want %q", tt.text, tt.line, tt.char, got, tt.want)
		}
	}
}

func TestBoolPtr(t *testing.T) {
	if p := boolPtr(true); p == nil || !*p {
		t.Errorf("boolPtr(true) = %v", p)
	}
	if p := boolPtr(false); p == nil || *p {
		t.Errorf("boolPtr(false) = %v", p)
	}
}

// ---------------------------------------------------------------------------
// Document analysis
// ---------------------------------------------------------------------------

func TestDiagnosticsClean(t *testing.T) {
	doc := analyze(program)
	if doc.err != nil {
		t.Fatalf("analyze error: %v", doc.err)
	}
	if diags := doc.diagnostics(); diags == nil || len(diags) != 0 {
		t.Errorf("diagnostics = %+v, want empty slice", diags)
	}
}

func TestDiagnosticsSyntaxError(t *testing.T) {
	diags := analyze("noop\nhalt $a").diagnostics()
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %+v, want one", diags)
	}
	d := diags[0]
	if d.Message != "expected end of instruction, got '$a'" {
		t.Errorf("message = %q", d.Message)
	}
	want := protocol.Range{
		Start: protocol.Position{Line: 1, Character: 5},
		End:   protocol.Position{Line: 1, Character: 7},
	}
	if d.Range != want {
		t.Errorf("range = %+v, want %+v", d.Range, want)
	}
	if d.Severity == nil || *d.Severity != protocol.DiagnosticSeverityError {
		t.Errorf("severity = %v", d.Severity)
	}
}

func TestDiagnosticsSemanticError(t *testing.T) {
	diags := analyze("noop\nprint $missing").diagnostics()
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %+v, want one", diags)
	}
	if diags[0].Message != "Identifier not found: $missing" {
		t.Errorf("message = %q", diags[0].Message)
	}
	if diags[0].Range != (protocol.Range{}) {
		t.Errorf("range = %+v, want first line", diags[0].Range)
	}
}

func TestHover(t *testing.T) {
	doc := analyze(program)

	tests := []struct {
		word string
		want string
	}{
		{"$count", "**$count** Byte\n\nslot #0"},
		{"$msg", "**$msg** String\n\nslot #1"},
		{"loop", "**loop:** label at offset"},
	}
	for _, tt := range tests {
		h := doc.hover(tt.word)
		if h == nil {
			t.Errorf("hover(%s) = nil", tt.word)
			continue
		}
		content, ok := h.Contents.(protocol.MarkupContent)
		if !ok || !strings.HasPrefix(content.Value, tt.want) {
			t.Errorf("hover(%s) = %+v, want prefix %q", tt.word, h.Contents, tt.want)
		}
	}

	if h := doc.hover("$other"); h != nil {
		t.Errorf("hover on undeclared name = %+v", h)
	}
	if h := analyze("halt $a").hover("$a"); h != nil {
		t.Errorf("hover on broken document = %+v", h)
	}
}

func TestCompletion(t *testing.T) {
	doc := analyze(program)

	labels := func(items []protocol.CompletionItem) []string {
		var out []string
		for _, it := range items {
			out = append(out, it.Label)
		}
		return out
	}

	if got := labels(doc.complete("$")); !reflect.DeepEqual(got, []string{"$count", "$msg"}) {
		t.Errorf("complete($) = %q", got)
	}
	if got := labels(doc.complete("lo")); !reflect.DeepEqual(got, []string{"loop"}) {
		t.Errorf("complete(lo) = %q", got)
	}
	if got := labels(doc.complete("de")); !reflect.DeepEqual(got, []string{"debug", "delay", "dec"}) {
		t.Errorf("complete(de) = %q", got)
	}

	items := doc.complete("$c")
	if len(items) != 1 || items[0].Detail == nil || *items[0].Detail != "Byte" {
		t.Errorf("complete($c) = %+v", items)
	}
}

func TestDefinitions(t *testing.T) {
	doc := analyze(program)

	count, ok := doc.definitions["$count"]
	if !ok {
		t.Fatal("no definition for $count")
	}
	if r := toRange(count); r.Start != (protocol.Position{Line: 0, Character: 5}) {
		t.Errorf("$count defined at %+v", r.Start)
	}

	loop, ok := doc.definitions["loop"]
	if !ok {
		t.Fatal("no definition for loop")
	}
	if r := toRange(loop); r.Start != (protocol.Position{Line: 2, Character: 0}) {
		t.Errorf("loop defined at %+v", r.Start)
	}
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func notifyContext() (*glsp.Context, chan protocol.PublishDiagnosticsParams) {
	published := make(chan protocol.PublishDiagnosticsParams, 4)
	ctx := &glsp.Context{
		Notify: func(method string, params any) {
			if method == protocol.ServerTextDocumentPublishDiagnostics {
				published <- params.(protocol.PublishDiagnosticsParams)
			}
		},
	}
	return ctx, published
}

func receive(t *testing.T, ch chan protocol.PublishDiagnosticsParams) protocol.PublishDiagnosticsParams {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("no diagnostics published")
	}
	return protocol.PublishDiagnosticsParams{}
}

func TestDocumentLifecycle(t *testing.T) {
	s := NewLSP()
	ctx, published := notifyContext()
	uri := protocol.DocumentUri("file:///blink.pin")

	err := s.textDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, Text: "halt $a"},
	})
	if err != nil {
		t.Fatalf("didOpen: %v", err)
	}
	if p := receive(t, published); p.URI != uri || len(p.Diagnostics) != 1 {
		t.Errorf("open diagnostics = %+v", p)
	}

	err = s.textDocumentDidChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: program}},
	})
	if err != nil {
		t.Fatalf("didChange: %v", err)
	}
	if p := receive(t, published); len(p.Diagnostics) != 0 {
		t.Errorf("change diagnostics = %+v", p)
	}

	hover, err := s.textDocumentHover(ctx, &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 4, Character: 10},
		},
	})
	if err != nil || hover == nil {
		t.Fatalf("hover = %v, %v", hover, err)
	}

	def, err := s.textDocumentDefinition(ctx, &protocol.DefinitionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 5, Character: 8},
		},
	})
	if err != nil {
		t.Fatalf("definition: %v", err)
	}
	locs, ok := def.([]protocol.Location)
	if !ok || len(locs) != 1 || locs[0].Range.Start.Line != 2 {
		t.Errorf("definition = %+v", def)
	}

	err = s.textDocumentDidClose(ctx, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
	if err != nil {
		t.Fatalf("didClose: %v", err)
	}
	if p := receive(t, published); len(p.Diagnostics) != 0 {
		t.Errorf("close diagnostics = %+v", p)
	}
	if s.document(uri) != nil {
		t.Error("document kept after close")
	}
}
