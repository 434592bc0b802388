package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/componentry/internal/snapshot"
)

const testPage = `<html><head></head><body>
<div id="greeting" data-component="components/greeting.html" data-param-who="world"></div>
<div id="missing" data-component="components/missing.html"></div>
</body></html>`

// setupSite writes a small site and points the configuration at it.
func setupSite(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "components"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte(testPage), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "components", "greeting.html"),
		[]byte(`<h1>Hello {{who}}</h1>`), 0o644))

	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("loader.root", root)
	viper.Set("log.level", "error")
	return root
}

func newTestCommand() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{}
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	return cmd, &out, &errOut
}

func resetRenderFlags(t *testing.T) {
	t.Helper()
	renderOut, renderStateOut, renderStateFormat, renderFailOnError = "", "", "", false
	t.Cleanup(func() {
		renderOut, renderStateOut, renderStateFormat, renderFailOnError = "", "", "", false
	})
}

func TestRenderCommand(t *testing.T) {
	root := setupSite(t)
	resetRenderFlags(t)
	cmd, out, errOut := newTestCommand()

	require.NoError(t, runRender(cmd, []string{filepath.Join(root, "index.html")}))

	assert.Contains(t, out.String(), "<h1>Hello world</h1>")
	assert.Contains(t, out.String(), "component-error")
	assert.Contains(t, errOut.String(), "component missing (components/missing.html)")
}

func TestRenderCommandWritesFiles(t *testing.T) {
	root := setupSite(t)
	resetRenderFlags(t)
	renderOut = filepath.Join(root, "dist", "index.html")
	renderStateOut = filepath.Join(root, "dist", "state.yaml")
	cmd, out, _ := newTestCommand()

	require.NoError(t, runRender(cmd, []string{filepath.Join(root, "index.html")}))
	assert.Empty(t, out.String())

	html, err := os.ReadFile(renderOut)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Hello world")

	data, err := os.ReadFile(renderStateOut)
	require.NoError(t, err)
	snap, err := snapshot.Unmarshal(data, snapshot.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, snapshot.Version, snap.Version)
}

func TestRenderCommandFailOnError(t *testing.T) {
	root := setupSite(t)
	resetRenderFlags(t)
	renderFailOnError = true
	cmd, _, _ := newTestCommand()

	err := runRender(cmd, []string{filepath.Join(root, "index.html")})
	assert.ErrorContains(t, err, "1 component(s) failed to load")
}

func TestRenderCommandBadStateFormat(t *testing.T) {
	root := setupSite(t)
	resetRenderFlags(t)
	renderStateFormat = "xml"
	cmd, _, _ := newTestCommand()

	assert.Error(t, runRender(cmd, []string{filepath.Join(root, "index.html")}))
}

func TestListCommand(t *testing.T) {
	root := setupSite(t)
	t.Cleanup(func() { listFormat = "table" })

	listFormat = "table"
	cmd, out, _ := newTestCommand()
	require.NoError(t, runList(cmd, []string{filepath.Join(root, "index.html")}))
	assert.Contains(t, out.String(), "greeting")
	assert.Contains(t, out.String(), `who="world"`)

	listFormat = "json"
	cmd, out, _ = newTestCommand()
	require.NoError(t, runList(cmd, []string{filepath.Join(root, "index.html")}))
	var rows []markerRow
	require.NoError(t, json.Unmarshal(out.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "components/greeting.html", rows[0].Path)

	listFormat = "csv"
	cmd, _, _ = newTestCommand()
	assert.Error(t, runList(cmd, []string{filepath.Join(root, "index.html")}))
}

func TestVersionCommand(t *testing.T) {
	t.Cleanup(func() { versionFormat, versionShort, versionDetailed = "text", false, false })

	versionFormat = "json"
	cmd, out, _ := newTestCommand()
	require.NoError(t, runVersionCommand(cmd, nil))
	var info map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Contains(t, info, "version")

	versionFormat = "text"
	cmd, out, _ = newTestCommand()
	require.NoError(t, runVersionCommand(cmd, nil))
	assert.Contains(t, out.String(), "componentry")

	versionFormat = "xml"
	assert.Error(t, runVersionCommand(cmd, nil))
}
