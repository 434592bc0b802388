package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/componentry/internal/config"
	"github.com/conneroisu/componentry/internal/persist"
	"github.com/conneroisu/componentry/internal/watcher"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Loader.Root = "."
	cfg.Loader.Timeout = 5 * time.Second
	cfg.Loader.Concurrency = 2
	cfg.Markers = config.DefaultMarkers()
	cfg.Runtime.MaxDepth = 8
	cfg.Server.Host = "localhost"
	cfg.Server.Port = 8080
	cfg.Server.AllowedOrigins = []string{"http://localhost:8080"}
	cfg.Development.HotReload = true
	return cfg
}

func site() fstest.MapFS {
	return fstest.MapFS{
		"index.html": {Data: []byte(`<html><head></head><body><div id="hello" data-component="components/hello.html" data-param-name="dev"></div></body></html>`)},
		"broken.html": {Data: []byte(`<html><body><div id="x" data-component="components/none.html"></div></body></html>`)},
		"components/hello.html": {Data: []byte(`<p>hi {{name}}</p>`)},
		"components/hello.css":  {Data: []byte(`p{color:red}`)},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	s, err := New(cfg, nil, append([]Option{WithFS(site())}, opts...)...)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestServePage(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	resp, body := get(t, ts.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, body, `<p>hi dev</p>`)
	assert.Contains(t, body, `href="components/hello.css"`)
	assert.Contains(t, body, RouteWebSocket)
	assert.Less(t, strings.Index(body, RouteWebSocket), strings.Index(body, "</body>"))
}

func TestServeStaticAndMissing(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	resp, body := get(t, ts.URL+"/components/hello.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "p{color:red}", body)

	resp, _ = get(t, ts.URL+"/nope.html")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestErrorOverlay(t *testing.T) {
	cfg := testConfig()
	cfg.Development.HotReload = false
	_, ts := newTestServer(t, cfg)

	_, body := get(t, ts.URL+"/broken.html")
	assert.Contains(t, body, `componentry-error-overlay`)
	assert.Contains(t, body, `components/none.html`)
	assert.NotContains(t, body, RouteWebSocket)
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	resp, body := get(t, ts.URL+RouteHealth)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Contains(t, health, "checks")
}

func TestCORS(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:8080")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:8080", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "http://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + RouteWebSocket
}

func TestWebSocketOriginRejected(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, resp, err := websocket.Dial(ctx, wsURL(ts), &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": {"http://evil.example"}},
	})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestReloadBroadcast(t *testing.T) {
	s, ts := newTestServer(t, testConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go s.Hub().Run(ctx)

	conn, _, err := websocket.Dial(ctx, wsURL(ts), &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": {"http://localhost:8080"}},
	})
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return s.Hub().Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.handleFileChange([]watcher.ChangeEvent{{Type: watcher.EventTypeModified, Path: "components/hello.html"}}))
	assert.Equal(t, uint64(1), s.Renderer().Generation())

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg UpdateMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "reload", msg.Type)
	assert.Equal(t, "components/hello.html", msg.Target)
}

func TestStatePreservation(t *testing.T) {
	cfg := testConfig()
	cfg.Development.StatePreservation = true
	cfg.Development.StateDB = filepath.Join(t.TempDir(), "state.db")

	s, ts := newTestServer(t, cfg)
	defer s.Shutdown(context.Background())

	ctx := context.Background()
	require.NoError(t, s.states.Save(ctx, "/index.html", map[string]map[string]any{"hello": {"clicks": 4}}))

	resp, _ := get(t, ts.URL+"/index.html")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	states, ok, err := s.states.Load(ctx, "/index.html")
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 4, states["hello"]["clicks"])
}

func TestExternalStateStore(t *testing.T) {
	st, err := persist.Open(filepath.Join(t.TempDir(), "s.db"))
	require.NoError(t, err)
	defer st.Close()

	s, ts := newTestServer(t, testConfig(), WithStateStore(st))
	_, _ = get(t, ts.URL+"/")
	require.NoError(t, s.Shutdown(context.Background()))

	pages, err := st.Pages()
	require.NoError(t, err, "store stays open after shutdown")
	assert.Equal(t, []string{"/index.html"}, pages)
}
