package server

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/microjava/compiler"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "mjc-lsp"

// document is an open editor buffer and its latest compilation.
type document struct {
	text   string
	result *compiler.Result
}

// LspServer compiles open MicroJava documents and reports their
// diagnostics to the editor.
type LspServer struct {
	opts compiler.Options
	log  commonlog.Logger

	mu   sync.Mutex
	docs map[string]*document // URI → document

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a language server that compiles documents with opts.
func NewLSP(opts compiler.Options) *LspServer {
	s := &LspServer{
		opts:    opts,
		log:     commonlog.GetLogger("mjc.lsp"),
		docs:    make(map[string]*document),
		version: "0.1.0",
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
	s.log.Info("MicroJava LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{}
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
	s.log.Info("MicroJava LSP shutting down")
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	doc := s.update(string(uri), params.TextDocument.Text)
	s.publishDiagnostics(ctx, uri, doc)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			doc := s.update(string(uri), whole.Text)
			s.publishDiagnostics(ctx, uri, doc)
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

// update compiles text and stores it as the current state of uri.
func (s *LspServer) update(uri, text string) *document {
	doc := &document{text: text}
	res, err := compiler.CompileString(text, s.opts)
	if err != nil {
		s.log.Errorf("compiling %s: %s", uri, err)
	}
	doc.result = res
	if res != nil {
		s.log.Debugf("compiled %s: %d errors", uri, res.ErrorCount())
	}

	s.mu.Lock()
	s.docs[uri] = doc
	s.mu.Unlock()
	return doc
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
	return complete(doc.scope(), prefix), nil
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
	return hover(doc.scope(), word), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI
	doc := s.document(uri)
	if doc == nil {
		return nil, nil
	}

	word := extractWord(doc.text, params.Position)
	if word == "" {
		return nil, nil
	}
	if loc := definition(doc.scope(), uri, word); loc != nil {
		return loc, nil
	}
	return nil, nil
}

// scope returns the program scope of the document, or the universe when
// the parse never reached the program header.
func (d *document) scope() *compiler.Scope {
	if d.result != nil && d.result.Scope != nil {
		return d.result.Scope
	}
	return compiler.NewSymbolTable().Current()
}

// --- Symbol-backed logic ---

// lookup searches scope and its enclosing scopes.
func lookup(scope *compiler.Scope, name string) *compiler.Symbol {
	for sc := scope; sc != nil; sc = sc.Outer() {
		if sym := sc.Lookup(name); sym != nil {
			return sym
		}
	}
	return nil
}

func complete(scope *compiler.Scope, prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	seen := make(map[string]bool)

	// Declared names first, innermost scope first
	for sc := scope; sc != nil; sc = sc.Outer() {
		for _, sym := range sc.Symbols() {
			if seen[sym.Name] || !strings.HasPrefix(sym.Name, prefix) {
				continue
			}
			seen[sym.Name] = true
			kind := completionKind(sym)
			detail := signature(sym)
			name := sym.Name
			items = append(items, protocol.CompletionItem{
				Label:      name,
				Kind:       &kind,
				Detail:     &detail,
				InsertText: &name,
			})
		}
	}

	for _, kw := range compiler.Keywords() {
		if !strings.HasPrefix(kw, prefix) {
			continue
		}
		kind := protocol.CompletionItemKindKeyword
		name := kw
		items = append(items, protocol.CompletionItem{
			Label:      name,
			Kind:       &kind,
			InsertText: &name,
		})
	}

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}

	return items
}

func completionKind(sym *compiler.Symbol) protocol.CompletionItemKind {
	switch sym.Kind {
	case compiler.SymConst:
		return protocol.CompletionItemKindConstant
	case compiler.SymType:
		return protocol.CompletionItemKindClass
	case compiler.SymMethod:
		return protocol.CompletionItemKindFunction
	}
	return protocol.CompletionItemKindVariable
}

func hover(scope *compiler.Scope, word string) *protocol.Hover {
	sym := lookup(scope, word)
	if sym == nil {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "```microjava\n%s\n```\n\n", signature(sym))
	switch {
	case sym.Pos.Line == 0:
		b.WriteString("builtin")
	case sym.Kind == compiler.SymVar:
		fmt.Fprintf(&b, "global variable, slot %d", sym.Address)
	case sym.Kind == compiler.SymMethod:
		fmt.Fprintf(&b, "method at %04X, %d locals", sym.Address, len(sym.Locals))
	default:
		fmt.Fprintf(&b, "%s declared at line %d", sym.Kind, sym.Pos.Line)
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

// signature renders a symbol the way it is declared.
func signature(sym *compiler.Symbol) string {
	switch sym.Kind {
	case compiler.SymConst:
		if sym.Type == compiler.NullType {
			return "null"
		}
		if sym.Type == compiler.CharType {
			return fmt.Sprintf("final char %s = %q", sym.Name, rune(sym.Value))
		}
		return fmt.Sprintf("final %s %s = %d", sym.Type, sym.Name, sym.Value)
	case compiler.SymType:
		if sym.Type.Kind != compiler.KindClass {
			return sym.Name
		}
		fields := make([]string, len(sym.Type.Fields))
		for i, f := range sym.Type.Fields {
			fields[i] = fmt.Sprintf("%s %s;", f.Type, f.Name)
		}
		if len(fields) == 0 {
			return fmt.Sprintf("class %s {}", sym.Name)
		}
		return fmt.Sprintf("class %s { %s }", sym.Name, strings.Join(fields, " "))
	case compiler.SymMethod:
		params := make([]string, 0, sym.ParamCount)
		for _, p := range sym.Params() {
			params = append(params, fmt.Sprintf("%s %s", p.Type, p.Name))
		}
		return fmt.Sprintf("%s %s(%s)", sym.Type, sym.Name, strings.Join(params, ", "))
	}
	return fmt.Sprintf("%s %s", sym.Type, sym.Name)
}

func definition(scope *compiler.Scope, uri protocol.DocumentUri, word string) []protocol.Location {
	sym := lookup(scope, word)
	if sym == nil || sym.Pos.Line == 0 {
		return nil
	}
	return []protocol.Location{{
		URI:   uri,
		Range: spanAt(sym.Pos, len(sym.Name)),
	}}
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, doc *document) {
	var diags []compiler.Diagnostic
	if doc.result != nil {
		diags = doc.result.Diagnostics
	}

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: toProtocolDiagnostics(doc.text, diags),
	})
}

// toProtocolDiagnostics converts compiler diagnostics to LSP form. Each
// range covers the identifier or number at the reported position, or a
// single character when there is none.
func toProtocolDiagnostics(text string, diags []compiler.Diagnostic) []protocol.Diagnostic {
	lines := strings.Split(text, "\n")
	out := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		severity := protocol.DiagnosticSeverityError
		source := lspName
		out = append(out, protocol.Diagnostic{
			Range:    spanAt(d.Pos, wordLenAt(lines, d.Pos)),
			Severity: &severity,
			Code:     &protocol.IntegerOrString{Value: d.Kind.String()},
			Source:   &source,
			Message:  d.Message,
		})
	}
	return out
}

// spanAt converts a 1-based compiler position to a 0-based LSP range of n characters.
func spanAt(pos compiler.Position, n int) protocol.Range {
	line := protocol.UInteger(0)
	if pos.Line > 0 {
		line = protocol.UInteger(pos.Line - 1)
	}
	col := protocol.UInteger(0)
	if pos.Column > 0 {
		col = protocol.UInteger(pos.Column - 1)
	}
	return protocol.Range{
		Start: protocol.Position{Line: line, Character: col},
		End:   protocol.Position{Line: line, Character: col + protocol.UInteger(n)},
	}
}

func wordLenAt(lines []string, pos compiler.Position) int {
	if pos.Line < 1 || pos.Line > len(lines) {
		return 1
	}
	line := lines[pos.Line-1]
	start := pos.Column - 1
	if start < 0 || start >= len(line) {
		return 1
	}
	end := start
	for end < len(line) && isIdentChar(rune(line[end])) {
		end++
	}
	if end == start {
		return 1
	}
	return end - start
}

// --- Text extraction helpers ---

// isIdentChar matches the characters the lexer accepts inside an identifier.
func isIdentChar(ch rune) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9'
}

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	// Walk backwards from cursor to find the start of the identifier
	start := col
	for start > 0 && isIdentChar(rune(line[start-1])) {
		start--
	}

	if start == col {
		return ""
	}

	return line[start:col]
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	// Find start
	start := col
	for start > 0 && isIdentChar(rune(line[start-1])) {
		start--
	}

	// Find end
	end := col
	for end < len(line) && isIdentChar(rune(line[end])) {
		end++
	}

	if start == end {
		return ""
	}

	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}
