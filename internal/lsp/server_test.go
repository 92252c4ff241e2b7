package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/iconlens/internal/app"
	"github.com/zjrosen/iconlens/internal/collections"
	"github.com/zjrosen/iconlens/internal/config"
	"github.com/zjrosen/iconlens/internal/fetch"
	"github.com/zjrosen/iconlens/internal/testutil"
)

const cdn = "https://cdn.test/json"

type message struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type client struct {
	t      *testing.T
	conn   *conn
	msgs   chan message
	notes  []message
	nextID int
	done   chan error
	dir    string
	svc    *app.Service
	fetch  *testutil.Fetcher
}

func newClient(t *testing.T, configPath string) *client {
	t.Helper()
	cfg := config.Defaults()
	cfg.CDNEntry = cdn
	cfg.DebounceMS = 5
	var metas []collections.Meta
	for _, b := range []*testutil.SetBuilder{testutil.MDI(), testutil.Carbon()} {
		m := collections.MetaFromSet(b.Build())
		m.Custom = false
		metas = append(metas, m)
	}
	fetcher := testutil.NewFetcher().
		Serve(fetch.CollectionURL(cdn, "mdi"), testutil.MDI().JSON(t)).
		Serve(fetch.CollectionURL(cdn, "carbon"), testutil.Carbon().JSON(t))
	svc, err := app.New(app.Options{
		Config:  cfg,
		Store:   testutil.NewStore(),
		Fetcher: fetcher,
		Bundled: metas,
		Folders: []string{t.TempDir()},
		Dark:    true,
	})
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	clientR, serverW := io.Pipe()
	serverR, clientW := io.Pipe()
	srv := New(Options{In: serverR, Out: serverW, Service: svc, ConfigPath: configPath})

	c := &client{
		t:    t,
		conn: newConn(clientR, clientW),
		msgs: make(chan message, 64),
		done: make(chan error, 1),
		dir:   t.TempDir(),
		svc:   svc,
		fetch: fetcher,
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		c.done <- srv.Run(ctx)
		_ = serverW.Close()
	}()
	go func() {
		for {
			data, err := c.conn.readMessage()
			if err != nil {
				close(c.msgs)
				return
			}
			var m message
			if json.Unmarshal(data, &m) == nil {
				c.msgs <- m
			}
		}
	}()
	t.Cleanup(func() {
		cancel()
		_ = clientW.Close()
	})
	return c
}

func (c *client) next() message {
	c.t.Helper()
	select {
	case m, ok := <-c.msgs:
		require.True(c.t, ok, "server closed the stream")
		return m
	case <-time.After(5 * time.Second):
		c.t.Fatal("timed out waiting for the server")
		return message{}
	}
}

func (c *client) send(method string, id *int, params any) {
	c.t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(c.t, err)
	req := request{JSONRPC: "2.0", Method: method, Params: raw}
	if id != nil {
		req.ID = json.RawMessage(fmt.Sprint(*id))
	}
	data, err := json.Marshal(req)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.writeMessage(data))
}

func (c *client) call(method string, params any) message {
	c.t.Helper()
	c.nextID++
	id := c.nextID
	c.send(method, &id, params)
	for {
		m := c.next()
		if m.Method != "" {
			c.notes = append(c.notes, m)
			continue
		}
		if string(m.ID) == fmt.Sprint(id) {
			return m
		}
	}
}

func (c *client) notify(method string, params any) {
	c.t.Helper()
	c.send(method, nil, params)
}

func (c *client) decorations(uri string, version int) decorationsParams {
	c.t.Helper()
	for {
		var m message
		if len(c.notes) > 0 {
			m, c.notes = c.notes[0], c.notes[1:]
		} else {
			m = c.next()
		}
		if m.Method != MethodDecorations {
			continue
		}
		var p decorationsParams
		require.NoError(c.t, json.Unmarshal(m.Params, &p))
		if p.URI == uri && p.Version == version {
			return p
		}
	}
}

func (c *client) initialize() {
	c.t.Helper()
	res := c.call("initialize", map[string]any{
		"rootUri":               "file://" + filepath.ToSlash(c.dir),
		"initializationOptions": map[string]any{"dark": false},
	})
	require.Nil(c.t, res.Error)
	c.notify("initialized", map[string]any{})
}

func (c *client) open(uri, languageID, text string) {
	c.notify("textDocument/didOpen", map[string]any{
		"textDocument": map[string]any{"uri": uri, "languageId": languageID, "version": 1, "text": text},
	})
}

func TestInitialize_Capabilities(t *testing.T) {
	c := newClient(t, "")
	res := c.call("initialize", map[string]any{})
	require.Nil(t, res.Error)

	var got struct {
		Capabilities struct {
			HoverProvider      bool `json:"hoverProvider"`
			CompletionProvider struct {
				TriggerCharacters []string `json:"triggerCharacters"`
				ResolveProvider   bool     `json:"resolveProvider"`
			} `json:"completionProvider"`
			ExecuteCommandProvider struct {
				Commands []string `json:"commands"`
			} `json:"executeCommandProvider"`
		} `json:"capabilities"`
	}
	require.NoError(t, json.Unmarshal(res.Result, &got))
	require.True(t, got.Capabilities.HoverProvider)
	require.True(t, got.Capabilities.CompletionProvider.ResolveProvider)
	require.Contains(t, got.Capabilities.CompletionProvider.TriggerCharacters, ":")
	require.ElementsMatch(t, []string{CommandClearCache, CommandToggleAnnotations, CommandToggleInplace},
		got.Capabilities.ExecuteCommandProvider.Commands)
}

func TestDecorations_OpenAndChange(t *testing.T) {
	c := newClient(t, "")
	c.initialize()
	uri := "file:///project/App.vue"

	c.open(uri, "vue", `<i class="i-mdi-home" />`)
	d := c.decorations(uri, 1)
	require.NotEmpty(t, d.BatchID)
	require.Len(t, d.Decorations, 1)
	require.Equal(t, "mdi-home", d.Decorations[0].Key)
	require.Equal(t, lspRange{Start: position{0, 10}, End: position{0, 20}}, d.Decorations[0].Range)
	require.True(t, strings.HasPrefix(d.Decorations[0].DataURL, "data:image/svg+xml;base64,"))

	c.notify("textDocument/didChange", map[string]any{
		"textDocument":   map[string]any{"uri": uri, "version": 2},
		"contentChanges": []map[string]any{{"text": "carbon:add\nmdi:home"}},
	})
	d = c.decorations(uri, 2)
	require.Len(t, d.Decorations, 2)
	require.Equal(t, 1, d.Decorations[1].Range.Start.Line)
}

func TestDecorations_OtherLanguagesIgnored(t *testing.T) {
	c := newClient(t, "")
	c.initialize()

	c.open("file:///notes.rs", "rust", "mdi:home")
	c.open("file:///App.vue", "vue", "carbon:add")

	d := c.decorations("file:///App.vue", 1)
	require.Len(t, d.Decorations, 1)
	for _, n := range c.notes {
		require.NotContains(t, string(n.Params), "notes.rs")
	}
}

func TestHover(t *testing.T) {
	c := newClient(t, "")
	c.initialize()
	uri := "file:///App.vue"
	c.open(uri, "vue", "x mdi:home y")

	res := c.call("textDocument/hover", map[string]any{
		"textDocument": map[string]any{"uri": uri},
		"position":     map[string]any{"line": 0, "character": 4},
	})
	require.Nil(t, res.Error)
	var h hover
	require.NoError(t, json.Unmarshal(res.Result, &h))
	require.Equal(t, "markdown", h.Contents.Kind)
	require.Contains(t, h.Contents.Value, "[`mdi:home`](https://icones.netlify.app/collection/mdi)")
	require.Equal(t, lspRange{Start: position{0, 2}, End: position{0, 10}}, h.Range)

	res = c.call("textDocument/hover", map[string]any{
		"textDocument": map[string]any{"uri": uri},
		"position":     map[string]any{"line": 0, "character": 11},
	})
	require.Equal(t, "null", string(res.Result))
}

func TestHover_DoesNotBlockOtherRequests(t *testing.T) {
	c := newClient(t, "")
	c.initialize()
	uri := "file:///notes.rs"
	c.open(uri, "rust", "carbon:add")

	release := c.fetch.Block()
	t.Cleanup(release)
	hoverID := 100
	c.send("textDocument/hover", &hoverID, map[string]any{
		"textDocument": map[string]any{"uri": uri},
		"position":     map[string]any{"line": 0, "character": 3},
	})
	select {
	case got := <-c.fetch.Started():
		require.Equal(t, fetch.CollectionURL(cdn, "carbon"), got)
	case <-time.After(5 * time.Second):
		t.Fatal("hover never fetched the collection")
	}

	res := c.call("textDocument/completion", map[string]any{
		"textDocument": map[string]any{"uri": uri},
		"position":     map[string]any{"line": 0, "character": 3},
	})
	require.Nil(t, res.Error)

	release()
	for {
		m := c.next()
		if string(m.ID) != fmt.Sprint(hoverID) {
			continue
		}
		var h hover
		require.NoError(t, json.Unmarshal(m.Result, &h))
		require.Contains(t, h.Contents.Value, "carbon:add")
		return
	}
}

func TestCompletionAndResolve(t *testing.T) {
	c := newClient(t, "")
	c.initialize()
	uri := "file:///App.vue"
	c.open(uri, "vue", `<Icon icon="carbon:a`)

	res := c.call("textDocument/completion", map[string]any{
		"textDocument": map[string]any{"uri": uri},
		"position":     map[string]any{"line": 0, "character": 20},
	})
	require.Nil(t, res.Error)
	var list completionList
	require.NoError(t, json.Unmarshal(res.Result, &list))
	require.Len(t, list.Items, 2)
	add := list.Items[0]
	require.Equal(t, "add", add.Label)
	require.Equal(t, "carbon:add", add.Detail)
	require.Equal(t, completionKindText, add.Kind)
	require.Equal(t, lspRange{Start: position{0, 19}, End: position{0, 20}}, add.TextEdit.Range)

	res = c.call("completionItem/resolve", add)
	require.Nil(t, res.Error)
	var resolved completionItem
	require.NoError(t, json.Unmarshal(res.Result, &resolved))
	require.NotNil(t, resolved.Documentation)
	require.Contains(t, resolved.Documentation.Value, "carbon:add")
}

func TestExecuteCommand_Toggles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, config.WriteDefaultConfig(path))

	c := newClient(t, path)
	c.initialize()

	res := c.call("workspace/executeCommand", map[string]any{"command": CommandToggleAnnotations})
	require.Nil(t, res.Error)
	require.False(t, c.svc.Config().Annotations)

	res = c.call("workspace/executeCommand", map[string]any{"command": CommandToggleInplace})
	require.Nil(t, res.Error)
	require.False(t, c.svc.Config().Inplace)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "annotations: false")
	require.Contains(t, string(data), "inplace: false")

	res = c.call("workspace/executeCommand", map[string]any{"command": "iconlens.nope"})
	require.NotNil(t, res.Error)
	require.Equal(t, codeInvalidParams, res.Error.Code)
}

func TestExecuteCommand_ClearCacheRescans(t *testing.T) {
	c := newClient(t, "")
	c.initialize()
	uri := "file:///App.vue"
	c.open(uri, "vue", "mdi:home")
	first := c.decorations(uri, 1)

	res := c.call("workspace/executeCommand", map[string]any{"command": CommandClearCache})
	require.Nil(t, res.Error)

	again := c.decorations(uri, 1)
	require.NotEqual(t, first.BatchID, again.BatchID)
	require.Len(t, again.Decorations, 1)
}

func TestShutdownExit(t *testing.T) {
	c := newClient(t, "")
	res := c.call("shutdown", nil)
	require.Nil(t, res.Error)
	c.notify("exit", nil)

	select {
	case err := <-c.done:
		require.Equal(t, ExitError{0}, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not exit")
	}
}

func TestExitWithoutShutdown(t *testing.T) {
	c := newClient(t, "")
	c.notify("exit", nil)

	select {
	case err := <-c.done:
		require.Equal(t, ExitError{1}, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not exit")
	}
}

func TestUnknownMethod(t *testing.T) {
	c := newClient(t, "")
	res := c.call("textDocument/definition", map[string]any{})
	require.NotNil(t, res.Error)
	require.Equal(t, codeMethodNotFound, res.Error.Code)
}

func TestURIToPath(t *testing.T) {
	p, ok := uriToPath("file:///home/me/a%20b.json")
	require.True(t, ok)
	require.Equal(t, filepath.FromSlash("/home/me/a b.json"), p)

	_, ok = uriToPath("untitled:Untitled-1")
	require.False(t, ok)
}
