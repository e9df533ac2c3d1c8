package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/codecanvas/internal/domain/archive"
	"github.com/GriffinCanCode/codecanvas/internal/domain/buffer"
	"github.com/GriffinCanCode/codecanvas/internal/infrastructure/config"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "0"
	cfg.Logging.Level = "error"
	cfg.RateLimit.Enabled = false
	cfg.Sandbox.PoolSize = 1
	return cfg
}

func newServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	srv, err := NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServerRoutes(t *testing.T) {
	srv := newServer(t, testConfig())
	h := srv.Handler()

	health := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, health.Code)
	assert.NotEmpty(t, health.Header().Get("X-Trace-ID"))

	created := do(t, h, http.MethodPost, "/api/workspaces", `{}`)
	require.Equal(t, http.StatusCreated, created.Code)
	var body struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &body))
	assert.Equal(t, 1, srv.Manager().Count())

	doc := do(t, h, http.MethodGet, "/api/workspaces/"+body.ID+"/document", "")
	assert.Equal(t, http.StatusOK, doc.Code)
	assert.Contains(t, doc.Body.String(), "<html")

	metrics := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "codecanvas_")

	render := do(t, h, http.MethodPost, "/api/render", `{"document":"<p id=x></p><script>document.getElementById('x').textContent='hi'</script>"}`)
	assert.Equal(t, http.StatusOK, render.Code)
	assert.Contains(t, render.Body.String(), "hi")
}

func TestServerWithoutPool(t *testing.T) {
	cfg := testConfig()
	cfg.Sandbox.PoolSize = 0
	srv := newServer(t, cfg)

	w := do(t, srv.Handler(), http.MethodPost, "/api/render", `{"document":"<p></p>"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServerRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RequestsPerSecond = 1
	cfg.RateLimit.Burst = 1
	srv := newServer(t, cfg)

	assert.Equal(t, http.StatusOK, do(t, srv.Handler(), http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, srv.Handler(), http.MethodGet, "/health", "").Code)
}

func TestServerLoadsTemplatesDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.yaml"), []byte("name: hello\nmarkup: <h1>hello</h1>\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.toml"), []byte("name = "), 0o644))

	cfg := testConfig()
	cfg.Workspace.TemplatesDir = dir
	srv := newServer(t, cfg)

	w := do(t, srv.Handler(), http.MethodGet, "/api/templates", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"hello"`)
}

func TestServerHeadless(t *testing.T) {
	cfg := testConfig()
	cfg.Preview.HeadlessEnabled = true
	srv := newServer(t, cfg)

	ws, err := srv.Manager().Create("")
	require.NoError(t, err)
	assert.NotNil(t, ws.Headless())
}

func TestRunStopsOnCancel(t *testing.T) {
	srv := newServer(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// readUntil reads socket frames until one of type typ arrives and returns
// every type seen on the way
func readUntil(t *testing.T, conn *websocket.Conn, typ string) (map[string]interface{}, []string) {
	t.Helper()
	var seen []string
	for i := 0; i < 10; i++ {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v (saw %v)", err, seen)
		}
		kind, _ := msg["type"].(string)
		seen = append(seen, kind)
		if kind == typ {
			return msg, seen
		}
	}
	t.Fatalf("no %q frame in %v", typ, seen)
	return nil, seen
}

func TestHTTPChangesReachEditorSocket(t *testing.T) {
	srv := newServer(t, testConfig())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	created := do(t, srv.Handler(), http.MethodPost, "/api/workspaces", `{"template":"blank"}`)
	require.Equal(t, http.StatusCreated, created.Code)
	var body struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &body))

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/editor/"+body.ID, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	readUntil(t, conn, "welcome")

	edit := do(t, srv.Handler(), http.MethodPut, "/api/workspaces/"+body.ID+"/buffers/markup", `{"text":"<p>changed</p>"}`)
	require.Equal(t, http.StatusOK, edit.Code, edit.Body.String())

	msg, seen := readUntil(t, conn, "modified")
	assert.Equal(t, []string{"present", "modified"}, seen)
	assert.Equal(t, true, msg["modified"])

	edit = do(t, srv.Handler(), http.MethodPut, "/api/workspaces/"+body.ID+"/buffers/markup", `{"text":""}`)
	require.Equal(t, http.StatusOK, edit.Code)
	msg, _ = readUntil(t, conn, "modified")
	assert.Equal(t, false, msg["modified"], "back at baseline")

	project, err := archive.Export(buffer.Snapshot{
		buffer.Markup: "<h1>imported</h1>",
		buffer.Style:  "h1{}",
		buffer.Script: "",
	}, archive.Zip)
	require.NoError(t, err)

	imported := do(t, srv.Handler(), http.MethodPost, "/api/workspaces/"+body.ID+"/import", string(project))
	require.Equal(t, http.StatusOK, imported.Code, imported.Body.String())

	msg, _ = readUntil(t, conn, "modified")
	assert.Equal(t, true, msg["modified"])
	assert.ElementsMatch(t, []interface{}{"markup", "style"}, msg["buffers"])
}
