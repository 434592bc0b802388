package renderer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/componentry/internal/config"
	"github.com/conneroisu/componentry/internal/dom"
	"github.com/conneroisu/componentry/internal/loader"
)

const page = `<!DOCTYPE html><html><head><title>t</title></head><body>
<div id="counter" data-component="components/counter.html" data-param-start="5"></div>
<div id="broken" data-component="components/missing.html"></div>
</body></html>`

func files() fstest.MapFS {
	return fstest.MapFS{
		"components/counter.html": {Data: []byte(`<span class="n">{{start}}</span>`)},
		"components/counter.css":  {Data: []byte(`.n{}`)},
	}
}

func TestRender(t *testing.T) {
	r := New(loader.NewFSFetcher(files()))

	p, err := r.Render(context.Background(), "/index.html", []byte(page), nil)
	require.NoError(t, err)

	doc, err := dom.ParseString(p.HTML)
	require.NoError(t, err)
	assert.Equal(t, "5", doc.QuerySelector("#counter .n").TextContent())
	assert.NotNil(t, doc.QuerySelector(`head link[href="components/counter.css"]`))
	assert.NotNil(t, doc.QuerySelector("#broken .component-error"))

	assert.Equal(t, []string{"counter", "broken"}, p.Components)
	require.Len(t, p.Markers, 2)
	assert.Equal(t, "components/counter.html", p.Markers[0].Path)
	require.Len(t, p.Errors, 1)
	assert.Equal(t, "broken", p.Errors[0].Component)
	assert.True(t, p.Failed())
}

func TestRenderRestoresState(t *testing.T) {
	r := New(loader.NewFSFetcher(files()))
	restore := map[string]map[string]any{"counter": {"count": 9}}

	p, err := r.Render(context.Background(), "/index.html", []byte(page), restore)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": 9}, p.States["counter"])
}

func TestInvalidateStartsNewGeneration(t *testing.T) {
	fsys := files()
	r := New(loader.NewFSFetcher(fsys))
	ctx := context.Background()

	_, err := r.Render(ctx, "/a.html", []byte(page), nil)
	require.NoError(t, err)

	fsys["components/counter.html"] = &fstest.MapFile{Data: []byte(`<b>{{start}}</b>`)}
	p, err := r.Render(ctx, "/a.html", []byte(page), nil)
	require.NoError(t, err)
	assert.Contains(t, p.HTML, `<span class="n">5</span>`)

	r.Invalidate()
	assert.Equal(t, uint64(1), r.Generation())

	p, err = r.Render(ctx, "/a.html", []byte(page), nil)
	require.NoError(t, err)
	assert.Contains(t, p.HTML, `<b>5</b>`)
}

func TestDiscover(t *testing.T) {
	r := New(loader.NewFSFetcher(fstest.MapFS{}), WithMarkers(config.MarkersConfig{
		Component:   "x-component",
		Nested:      "x-nested",
		ParamPrefix: "x-",
	}))

	markers, err := r.Discover(context.Background(), []byte(`<div id="a" x-component="a.html" x-size="2"></div>`))
	require.NoError(t, err)
	require.Len(t, markers, 1)
	assert.Equal(t, "a", markers[0].ID)
	assert.Equal(t, "2", markers[0].Params["size"])
}

func TestFromConfigUsesBaseURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/components/counter.html" {
			_, _ = w.Write([]byte(`<i>{{start}}</i>`))
			return
		}
		http.NotFound(w, req)
	}))
	defer srv.Close()

	cfg := &config.Config{}
	cfg.Loader.BaseURL = srv.URL + "/"
	cfg.Loader.Timeout = 5 * time.Second
	cfg.Loader.Concurrency = 2
	cfg.Markers = config.DefaultMarkers()
	cfg.Runtime.MaxDepth = 4

	r, err := FromConfig(cfg, loader.NewFSFetcher(fstest.MapFS{}))
	require.NoError(t, err)

	p, err := r.Render(context.Background(), "/index.html", []byte(page), nil)
	require.NoError(t, err)
	assert.Contains(t, p.HTML, `<i>5</i>`)
}
