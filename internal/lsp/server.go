// Package lsp serves icon previews to editors over the Language Server
// Protocol on stdio.
//
// Besides hover and completion, the server pushes a custom
// `iconlens/decorations` notification whenever the inline icons of an open
// document change. Clients draw those themselves.
package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/iconlens/internal/annotate"
	"github.com/zjrosen/iconlens/internal/app"
	"github.com/zjrosen/iconlens/internal/completion"
	"github.com/zjrosen/iconlens/internal/config"
	"github.com/zjrosen/iconlens/internal/log"
	"github.com/zjrosen/iconlens/internal/matcher"
)

// Commands accepted by workspace/executeCommand.
const (
	CommandClearCache        = "iconlens.clearCache"
	CommandToggleAnnotations = "iconlens.toggleAnnotations"
	CommandToggleInplace     = "iconlens.toggleInplace"
)

// MethodDecorations is the server-to-client decoration notification.
const MethodDecorations = "iconlens/decorations"

// requestTimeout bounds hover and resolve requests, which may wait on a
// collection download.
const requestTimeout = 5 * time.Second

// ExitError carries the process exit code requested by the exit
// notification: 0 after shutdown, 1 otherwise.
type ExitError struct{ Code int }

func (e ExitError) Error() string { return fmt.Sprintf("exit %d", e.Code) }

// Options configures a Server.
type Options struct {
	In      io.Reader
	Out     io.Writer
	Service *app.Service
	// ConfigPath receives toggled settings. Toggles only change the
	// running configuration when empty.
	ConfigPath string
	Tracer     trace.Tracer
}

// Server is one LSP session.
type Server struct {
	conn       *conn
	svc        *app.Service
	updater    *annotate.Updater
	completion *completion.Provider
	configPath string
	inflight   sync.WaitGroup

	// Touched only by the message loop.
	docs     map[string]*document
	shutdown bool
}

type document struct {
	uri        string
	path       string
	languageID string
	version    int
	text       string
	index      *matcher.LineIndex
}

func (d *document) setText(text string, version int) {
	d.text = text
	d.version = version
	d.index = matcher.NewLineIndex(text)
}

// New returns a server for opts.
func New(opts Options) *Server {
	return &Server{
		conn:       newConn(opts.In, opts.Out),
		svc:        opts.Service,
		updater:    annotate.NewUpdater(opts.Service, opts.Service.Config().Debounce(), opts.Tracer),
		completion: completion.NewProvider(opts.Service),
		configPath: opts.ConfigPath,
		docs:       make(map[string]*document),
	}
}

// Run serves until the input ends, ctx is done, or the client sends exit.
// A clean end returns nil; exit returns an ExitError.
func (s *Server) Run(ctx context.Context) error {
	defer s.inflight.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.updater.Close()

	go s.forwardDecorations(ctx)
	go s.followChanges(ctx)

	type result struct {
		data []byte
		err  error
	}
	msgs := make(chan result)
	go func() {
		for {
			data, err := s.conn.readMessage()
			select {
			case msgs <- result{data, err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		var r result
		select {
		case <-ctx.Done():
			return nil
		case r = <-msgs:
		}
		if errors.Is(r.err, io.EOF) {
			return nil
		}
		if r.err != nil {
			return r.err
		}
		var msg request
		if err := json.Unmarshal(r.data, &msg); err != nil {
			if err := s.conn.sendError(nil, codeParseError, err.Error()); err != nil {
				return err
			}
			continue
		}
		if err := s.dispatch(ctx, &msg); err != nil {
			return err
		}
	}
}

func (s *Server) forwardDecorations(ctx context.Context) {
	for ev := range s.updater.Subscribe(ctx) {
		b := ev.Payload
		params := decorationsParams{URI: b.URI, Version: b.Version, BatchID: b.ID, Decorations: make([]decoration, 0, len(b.Decorations))}
		for _, d := range b.Decorations {
			params.Decorations = append(params.Decorations, decoration{
				Range:    toLSPRange(d.Range),
				Key:      d.Key,
				DataURL:  d.DataURL,
				Width:    d.Width,
				Position: d.Position,
				Inplace:  d.Inplace,
				Hover:    d.Hover,
			})
		}
		if err := s.conn.notify(MethodDecorations, params); err != nil {
			log.ErrorErr(log.CatLSP, "Sending decorations failed", err, "uri", b.URI)
		}
	}
}

// followChanges rescans open documents when the configuration, the
// collections, the aliases or the caches change underneath them.
func (s *Server) followChanges(ctx context.Context) {
	for range s.svc.Subscribe(ctx) {
		s.updater.Refresh(ctx)
	}
}

func (s *Server) dispatch(ctx context.Context, msg *request) error {
	switch msg.Method {
	case "initialize":
		return s.handleInitialize(ctx, msg)
	case "initialized":
		return nil
	case "shutdown":
		s.shutdown = true
		return s.conn.reply(msg.ID, nil)
	case "exit":
		if s.shutdown {
			return ExitError{0}
		}
		return ExitError{1}
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case "textDocument/hover":
		return s.handleHover(ctx, msg)
	case "textDocument/completion":
		return s.handleCompletion(msg)
	case "completionItem/resolve":
		return s.handleResolve(ctx, msg)
	case "workspace/executeCommand":
		return s.handleExecuteCommand(ctx, msg)
	case "$/cancelRequest", "workspace/didChangeConfiguration":
		return nil
	default:
		if msg.ID != nil {
			return s.conn.sendError(msg.ID, codeMethodNotFound, fmt.Sprintf("unsupported method %q", msg.Method))
		}
		return nil
	}
}

// Handlers

func (s *Server) handleInitialize(ctx context.Context, msg *request) error {
	var p struct {
		RootURI          string `json:"rootUri"`
		WorkspaceFolders []struct {
			URI string `json:"uri"`
		} `json:"workspaceFolders"`
		InitializationOptions struct {
			Dark *bool `json:"dark"`
		} `json:"initializationOptions"`
	}
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return s.conn.sendError(msg.ID, codeInvalidParams, err.Error())
	}

	var folders []string
	for _, f := range p.WorkspaceFolders {
		if path, ok := uriToPath(f.URI); ok {
			folders = append(folders, path)
		}
	}
	if len(folders) == 0 {
		if path, ok := uriToPath(p.RootURI); ok {
			folders = append(folders, path)
		}
	}
	if len(folders) > 0 {
		s.svc.SetFolders(folders)
	}
	if d := p.InitializationOptions.Dark; d != nil {
		s.svc.SetDark(*d)
	}
	s.svc.Reload(ctx)
	log.Info(log.CatLSP, "Initialized", "folders", len(folders))

	// Relative custom sources resolve against the folders, so watching
	// starts once they are known.
	go func() {
		if err := s.svc.Watch(ctx); err != nil {
			log.ErrorErr(log.CatLSP, "File watcher stopped", err)
		}
	}()

	return s.conn.reply(msg.ID, map[string]any{
		"capabilities": map[string]any{
			"textDocumentSync": map[string]any{"openClose": true, "change": 1},
			"hoverProvider":    true,
			"completionProvider": map[string]any{
				"triggerCharacters": s.completion.TriggerCharacters(),
				"resolveProvider":   true,
			},
			"executeCommandProvider": map[string]any{
				"commands": []string{CommandClearCache, CommandToggleAnnotations, CommandToggleInplace},
			},
		},
		"serverInfo": map[string]any{"name": "iconlens"},
	})
}

func (s *Server) handleDidOpen(msg *request) error {
	var p struct {
		TextDocument struct {
			URI        string `json:"uri"`
			LanguageID string `json:"languageId"`
			Version    int    `json:"version"`
			Text       string `json:"text"`
		} `json:"textDocument"`
	}
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return nil
	}
	td := p.TextDocument
	doc := &document{uri: td.URI, languageID: td.LanguageID}
	doc.path, _ = uriToPath(td.URI)
	doc.setText(td.Text, td.Version)
	s.docs[td.URI] = doc
	s.schedule(doc)
	return nil
}

func (s *Server) handleDidChange(msg *request) error {
	var p struct {
		TextDocument struct {
			URI     string `json:"uri"`
			Version int    `json:"version"`
		} `json:"textDocument"`
		ContentChanges []struct {
			Text string `json:"text"`
		} `json:"contentChanges"`
	}
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return nil
	}
	doc := s.docs[p.TextDocument.URI]
	if doc == nil || len(p.ContentChanges) == 0 {
		return nil
	}
	doc.setText(p.ContentChanges[len(p.ContentChanges)-1].Text, p.TextDocument.Version)
	s.schedule(doc)
	return nil
}

func (s *Server) handleDidClose(msg *request) error {
	var p struct {
		TextDocument textDocumentIdentifier `json:"textDocument"`
	}
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return nil
	}
	delete(s.docs, p.TextDocument.URI)
	s.updater.Forget(p.TextDocument.URI)
	return nil
}

// scan reports whether doc gets decorations: documents in a configured
// language and alias files.
func (s *Server) scan(doc *document) bool {
	if slices.Contains(s.svc.Config().LanguageIDs, doc.languageID) {
		return true
	}
	return doc.path != "" && s.svc.IsAliasFile(doc.path)
}

func (s *Server) schedule(doc *document) {
	if !s.scan(doc) {
		return
	}
	s.updater.Update(annotate.Document{URI: doc.uri, Path: doc.path, Version: doc.version, Text: doc.text})
}

type textDocumentPositionParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Position     position               `json:"position"`
}

func (s *Server) handleHover(ctx context.Context, msg *request) error {
	if msg.ID == nil {
		return nil
	}
	var p textDocumentPositionParams
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return s.conn.sendError(msg.ID, codeInvalidParams, err.Error())
	}
	doc := s.docs[p.TextDocument.URI]
	if doc == nil {
		return s.conn.reply(msg.ID, nil)
	}

	mode := app.ModeFull
	if doc.path != "" && s.svc.IsAliasFile(doc.path) {
		mode = app.ModeCollectionIcon
	}
	// setText swaps in a new index, so text and index stay consistent
	// after later edits.
	text, index := doc.text, doc.index
	offset := index.Offset(p.Position.Line, p.Position.Character)
	s.respond(ctx, msg.ID, func(ctx context.Context) any {
		for _, m := range s.svc.MatchTokens(text, mode) {
			if offset < m.Start || offset > m.End {
				continue
			}
			md := s.svc.IconMarkdown(ctx, m.Key)
			if md == "" {
				break
			}
			return hover{
				Contents: markupContent{Kind: "markdown", Value: md},
				Range: toLSPRange(annotate.Range{
					Start: index.Position(m.Start),
					End:   index.Position(m.End),
				}),
			}
		}
		return nil
	})
	return nil
}

// respond replies to id with the result of fn, computed off the message
// loop and bounded by requestTimeout.
func (s *Server) respond(ctx context.Context, id json.RawMessage, fn func(context.Context) any) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		if err := s.conn.reply(id, fn(ctx)); err != nil {
			log.ErrorErr(log.CatLSP, "Sending reply failed", err)
		}
	}()
}

func (s *Server) handleCompletion(msg *request) error {
	if msg.ID == nil {
		return nil
	}
	var p textDocumentPositionParams
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return s.conn.sendError(msg.ID, codeInvalidParams, err.Error())
	}
	doc := s.docs[p.TextDocument.URI]
	if doc == nil || !slices.Contains(s.svc.Config().LanguageIDs, doc.languageID) {
		return s.conn.reply(msg.ID, nil)
	}

	lineStart := doc.index.Offset(p.Position.Line, 0)
	cursor := doc.index.Offset(p.Position.Line, p.Position.Character)
	prefix := string([]rune(doc.text)[lineStart:cursor])

	items := s.completion.Complete(prefix)
	if items == nil {
		return s.conn.reply(msg.ID, nil)
	}
	list := completionList{Items: make([]completionItem, 0, len(items))}
	for _, it := range items {
		data, err := json.Marshal(it)
		if err != nil {
			return s.conn.sendError(msg.ID, codeInternalError, err.Error())
		}
		kind := completionKindText
		if it.Kind == completion.KindCollection {
			kind = completionKindModule
		}
		start := p.Position
		// The replaced text is ASCII, so characters and code units agree.
		start.Character -= it.Replace
		list.Items = append(list.Items, completionItem{
			Label:    it.Label,
			Kind:     kind,
			Detail:   it.Detail,
			TextEdit: &textEdit{Range: lspRange{Start: start, End: p.Position}, NewText: it.Label},
			Data:     data,
		})
	}
	return s.conn.reply(msg.ID, list)
}

func (s *Server) handleResolve(ctx context.Context, msg *request) error {
	if msg.ID == nil {
		return nil
	}
	var item completionItem
	if err := json.Unmarshal(msg.Params, &item); err != nil {
		return s.conn.sendError(msg.ID, codeInvalidParams, err.Error())
	}
	var it completion.Item
	if len(item.Data) > 0 {
		if err := json.Unmarshal(item.Data, &it); err != nil {
			return s.conn.sendError(msg.ID, codeInvalidParams, err.Error())
		}
	}
	s.respond(ctx, msg.ID, func(ctx context.Context) any {
		it = s.completion.Resolve(ctx, it)
		if it.Documentation != "" {
			item.Documentation = &markupContent{Kind: "markdown", Value: it.Documentation}
		}
		return item
	})
	return nil
}

func (s *Server) handleExecuteCommand(ctx context.Context, msg *request) error {
	var p struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return s.conn.sendError(msg.ID, codeInvalidParams, err.Error())
	}

	var err error
	switch p.Command {
	case CommandClearCache:
		err = s.svc.ClearCache(ctx)
	case CommandToggleAnnotations:
		err = s.toggle("annotations", func(c *config.Config) *bool { return &c.Annotations })
	case CommandToggleInplace:
		err = s.toggle("inplace", func(c *config.Config) *bool { return &c.Inplace })
	default:
		return s.conn.sendError(msg.ID, codeInvalidParams, fmt.Sprintf("unknown command %q", p.Command))
	}
	if err != nil {
		log.ErrorErr(log.CatLSP, "Command failed", err, "command", p.Command)
		return s.conn.sendError(msg.ID, codeInternalError, err.Error())
	}
	// The service publishes the change; followChanges rescans.
	return s.conn.reply(msg.ID, nil)
}

// toggle flips a boolean setting, persisting it when a config file is in
// use.
func (s *Server) toggle(key string, field func(*config.Config) *bool) error {
	cfg := s.svc.Config()
	ptr := field(&cfg)
	next := !*ptr
	if s.configPath != "" {
		var err error
		if next, err = config.Toggle(s.configPath, key, *ptr); err != nil {
			return err
		}
	}
	*ptr = next
	s.svc.SetConfig(cfg)
	log.Info(log.CatLSP, "Toggled setting", "key", key, "value", next)
	return nil
}

func toLSPRange(r annotate.Range) lspRange {
	return lspRange{
		Start: position{Line: r.Start.Line, Character: r.Start.Character},
		End:   position{Line: r.End.Line, Character: r.End.Character},
	}
}

func uriToPath(uri string) (string, bool) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" || u.Path == "" {
		return "", false
	}
	return filepath.FromSlash(u.Path), true
}
