package loader

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/conneroisu/componentry/internal/errors"
)

// Fetcher retrieves fragment, stylesheet and script bodies.
type Fetcher interface {
	// Fetch returns the body of ref.
	Fetch(ctx context.Context, ref string) ([]byte, error)
	// Exists is the lightweight existence probe. A false result with a nil
	// error means the resource is absent.
	Exists(ctx context.Context, ref string) (bool, error)
}

// StatusError reports a non-success HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// HTTPFetcher fetches over HTTP relative to a base URL.
type HTTPFetcher struct {
	client *http.Client
	base   *url.URL
}

// NewHTTPFetcher returns a fetcher resolving references against baseURL.
// timeout bounds each request; zero means no limit.
func NewHTTPFetcher(baseURL string, timeout time.Duration) (*HTTPFetcher, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, "invalid base URL "+baseURL)
	}
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
		base:   base,
	}, nil
}

// WithClient replaces the HTTP client.
func (f *HTTPFetcher) WithClient(c *http.Client) *HTTPFetcher {
	f.client = c
	return f
}

// Resolve turns ref into an absolute URL.
func (f *HTTPFetcher) Resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return f.base.ResolveReference(u).String(), nil
}

// Fetch issues a GET request.
func (f *HTTPFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	resp, err := f.do(ctx, http.MethodGet, ref)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: resp.Request.URL.String(), StatusCode: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

// Exists issues a HEAD request.
func (f *HTTPFetcher) Exists(ctx context.Context, ref string) (bool, error) {
	resp, err := f.do(ctx, http.MethodHead, ref)
	if err != nil {
		return false, err
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode <= 299, nil
}

func (f *HTTPFetcher) do(ctx context.Context, method, ref string) (*http.Response, error) {
	target, err := f.Resolve(ref)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, err
	}
	return f.client.Do(req)
}

// FSFetcher reads references from a file system. Leading slashes and query
// strings are ignored.
type FSFetcher struct {
	fsys fs.FS
}

// NewFSFetcher returns a fetcher over fsys.
func NewFSFetcher(fsys fs.FS) *FSFetcher {
	return &FSFetcher{fsys: fsys}
}

// Fetch reads the file named by ref.
func (f *FSFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, err := fsName(ref)
	if err != nil {
		return nil, err
	}
	return fs.ReadFile(f.fsys, name)
}

// Exists stats the file named by ref.
func (f *FSFetcher) Exists(ctx context.Context, ref string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	name, err := fsName(ref)
	if err != nil {
		return false, nil
	}
	info, err := fs.Stat(f.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

func fsName(ref string) (string, error) {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	name := path.Clean("/" + ref)[1:]
	if name == "" {
		name = "."
	}
	if !fs.ValidPath(name) {
		return "", &fs.PathError{Op: "open", Path: ref, Err: fs.ErrInvalid}
	}
	return name, nil
}
