package server

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	cerrors "github.com/conneroisu/componentry/internal/errors"
	"github.com/conneroisu/componentry/internal/renderer"
	"github.com/conneroisu/componentry/internal/version"
)

// liveReloadScript reconnects to the hub and reloads the page on a reload
// message.
const liveReloadScript = `<script>
(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  function connect() {
    var ws = new WebSocket(proto + location.host + "` + RouteWebSocket + `");
    ws.onmessage = function (ev) {
      var msg = JSON.parse(ev.data);
      if (msg.type === "reload") { location.reload(); }
    };
    ws.onclose = function () { setTimeout(connect, 1000); };
  }
  connect();
})();
</script>`

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" {
		name = "."
	}
	if info, err := fs.Stat(s.files, name); err == nil && info.IsDir() {
		name = path.Join(name, "index.html")
	}
	if !isPage(name) {
		http.FileServerFS(s.files).ServeHTTP(w, r)
		return
	}

	src, err := fs.ReadFile(s.files, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		s.logger.Error(r.Context(), err, "failed to read page", "page", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	pagePath := "/" + name
	page, err := s.renderPage(r, pagePath, src)
	if err != nil {
		s.logger.Error(r.Context(), err, "failed to render page", "page", pagePath)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write([]byte(s.decorate(page))); err != nil {
		s.logger.Warn(r.Context(), err, "failed to write page", "page", pagePath)
	}
}

func isPage(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".html" || ext == ".htm"
}

// renderPage renders src, restoring and saving component state when state
// preservation is enabled.
func (s *Server) renderPage(r *http.Request, pagePath string, src []byte) (*renderer.Page, error) {
	ctx := r.Context()
	var restore map[string]map[string]any
	if s.states != nil {
		states, ok, err := s.states.Load(ctx, pagePath)
		if err != nil {
			s.logger.Warn(ctx, err, "failed to load page state", "page", pagePath)
		} else if ok {
			restore = states
		}
	}

	page, err := s.renderer.Render(ctx, pagePath, src, restore)
	if err != nil {
		return nil, err
	}

	if s.states != nil {
		if err := s.states.Save(ctx, pagePath, page.States); err != nil {
			s.logger.Warn(ctx, err, "failed to save page state", "page", pagePath)
		}
	}
	return page, nil
}

// decorate appends the error overlay and the live reload script.
func (s *Server) decorate(page *renderer.Page) string {
	var extra strings.Builder
	if page.Failed() {
		collector := cerrors.NewCollector()
		for _, e := range page.Errors {
			collector.Add(e)
		}
		extra.WriteString(collector.ErrorOverlay())
	}
	if s.config.Development.HotReload {
		extra.WriteString(liveReloadScript)
	}
	if extra.Len() == 0 {
		return page.HTML
	}
	out := page.HTML
	if i := strings.LastIndex(strings.ToLower(out), "</body>"); i >= 0 {
		return out[:i] + extra.String() + out[i:]
	}
	return out + extra.String()
}

// handleHealth returns the server health status for health checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := map[string]any{
		"status":     "healthy",
		"timestamp":  time.Now().UTC(),
		"version":    version.GetShortVersion(),
		"build_info": version.GetBuildInfo(),
		"checks": map[string]any{
			"renderer": map[string]any{"status": "healthy", "generation": s.renderer.Generation()},
			"live_reload": map[string]any{
				"enabled": s.config.Development.HotReload,
				"clients": s.hub.Clients(),
			},
			"state_preservation": map[string]any{"enabled": s.states != nil},
		},
	}
	if !s.started.IsZero() {
		health["uptime"] = time.Since(s.started).Round(time.Second).String()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Warn(r.Context(), err, "failed to encode health response")
	}
}

// addMiddleware adds CORS headers for the allowed origins and request
// logging.
func (s *Server) addMiddleware(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); s.isAllowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		start := time.Now()
		handler.ServeHTTP(w, r)
		s.logger.Debug(r.Context(), "request served",
			"method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
