// Package loader fetches component fragments and their sibling stylesheet
// and script resources. Fragment bodies are cached and concurrent requests
// for the same fragment are de-duplicated. Optional resources are probed
// first and silently skipped when absent.
package loader

import (
	"context"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"

	"github.com/conneroisu/componentry/internal/errors"
	"github.com/conneroisu/componentry/internal/logging"
)

// Loader loads fragments and resources for one page. Fetching is safe for
// concurrent use; injection and script execution always happen on the
// calling goroutine after concurrent fetches complete.
type Loader struct {
	fetcher   Fetcher
	fragments *FragmentCache
	injector  Injector
	scripts   ScriptRunner
	logger    logging.Logger
	workers   int
	timeout   time.Duration

	mu     sync.Mutex
	loaded map[string]bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithFragmentCache shares a fragment cache between loaders.
func WithFragmentCache(c *FragmentCache) Option {
	return func(l *Loader) { l.fragments = c }
}

// WithInjector sets where loaded resources are added.
func WithInjector(i Injector) Option {
	return func(l *Loader) { l.injector = i }
}

// WithScriptRunner sets the runner for loaded scripts.
func WithScriptRunner(r ScriptRunner) Option {
	return func(l *Loader) { l.scripts = r }
}

// WithLogger sets the logger.
func WithLogger(lg logging.Logger) Option {
	return func(l *Loader) { l.logger = lg }
}

// WithMaxConcurrency bounds parallel fetches during Preload.
func WithMaxConcurrency(n int) Option {
	return func(l *Loader) { l.workers = n }
}

// WithTimeout bounds each fragment fetch; zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) { l.timeout = d }
}

// New returns a loader fetching through f.
func New(f Fetcher, opts ...Option) *Loader {
	l := &Loader{
		fetcher: f,
		logger:  logging.NewNop(),
		workers: 8,
		loaded:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.fragments == nil {
		l.fragments = NewFragmentCache()
	}
	if l.scripts == nil {
		l.scripts = LogRunner{Logger: l.logger}
	}
	return l
}

// Fragments exposes the fragment cache.
func (l *Loader) Fragments() *FragmentCache { return l.fragments }

// Scripts returns the script runner.
func (l *Loader) Scripts() ScriptRunner { return l.scripts }

// Fragment returns the HTML of a fragment, fetching it on first use.
func (l *Loader) Fragment(ctx context.Context, ref string) (string, error) {
	html, err := l.fragments.Get(ctx, ref, l.fetchFragment)
	if err != nil {
		return "", errors.ErrFragmentFetch(ref, err)
	}
	return html, nil
}

func (l *Loader) fetchFragment(ctx context.Context, ref string) ([]byte, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	return l.fetcher.Fetch(ctx, ref)
}

// Loaded reports whether url was injected by this loader.
func (l *Loader) Loaded(url string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded[url]
}

// LoadCSS loads a stylesheet once.
func (l *Loader) LoadCSS(ctx context.Context, url string) error {
	return l.load(ctx, KindCSS, url)
}

// LoadJS loads and runs a script once.
func (l *Loader) LoadJS(ctx context.Context, url string) error {
	return l.load(ctx, KindJS, url)
}

func (l *Loader) load(ctx context.Context, kind Kind, url string) error {
	res, err := l.prepare(ctx, kind, url)
	if err != nil || res == nil {
		return err
	}
	return l.commit(ctx, res)
}

// resource is a fetched resource awaiting injection.
type resource struct {
	kind Kind
	url  string
	body []byte
}

// prepare probes and fetches url. A nil resource with a nil error means
// there is nothing to inject: already loaded, absent, or the probe failed.
func (l *Loader) prepare(ctx context.Context, kind Kind, url string) (*resource, error) {
	if l.Loaded(url) {
		return nil, nil
	}

	ok, err := l.fetcher.Exists(ctx, url)
	if err != nil {
		l.logger.Debug(ctx, "resource probe failed", "url", url, "error", err.Error())
		return nil, nil
	}
	if !ok {
		return nil, nil
	}

	body, err := l.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, errors.ErrResourceLoad(url, err)
	}
	return &resource{kind: kind, url: url, body: body}, nil
}

func (l *Loader) commit(ctx context.Context, res *resource) error {
	l.mu.Lock()
	if l.loaded[res.url] {
		l.mu.Unlock()
		return nil
	}
	l.loaded[res.url] = true
	l.mu.Unlock()

	if l.injector != nil {
		if err := l.injector.Inject(res.kind, res.url); err != nil {
			return errors.ErrResourceLoad(res.url, err)
		}
	}
	if res.kind == KindJS {
		if err := l.scripts.Run(ctx, Script{Source: res.url, Code: string(res.body)}); err != nil {
			l.logger.Warn(ctx, err, "script failed", "url", res.url)
		}
	}
	l.logger.Debug(ctx, "resource loaded", "kind", res.kind.String(), "url", res.url)
	return nil
}

// SiblingResources derives the stylesheet and script references of a
// fragment by replacing its extension.
func SiblingResources(fragment string) (css, js string) {
	base := fragment
	query := ""
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base, query = base[:i], base[i:]
	}
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base + ".css" + query, base + ".js" + query
}

// LoadComponentResources loads the sibling stylesheet and script of a
// fragment concurrently.
func (l *Loader) LoadComponentResources(ctx context.Context, fragment string) error {
	resources, err := l.prepareSiblings(ctx, fragment)
	for _, res := range resources {
		if cerr := l.commit(ctx, res); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	return err
}

func (l *Loader) prepareSiblings(ctx context.Context, fragment string) ([]*resource, error) {
	cssURL, jsURL := SiblingResources(fragment)
	var css, js *resource

	p := pool.New().WithErrors().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		var err error
		css, err = l.prepare(ctx, KindCSS, cssURL)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		js, err = l.prepare(ctx, KindJS, jsURL)
		return err
	})
	err := p.Wait()

	var out []*resource
	for _, res := range []*resource{css, js} {
		if res != nil {
			out = append(out, res)
		}
	}
	return out, err
}

// Preload fetches fragments and their resources in parallel. Failures are
// logged per fragment and never returned.
func (l *Loader) Preload(ctx context.Context, fragments []string) {
	prepared := make([][]*resource, len(fragments))

	var wg conc.WaitGroup
	sem := make(chan struct{}, max(l.workers, 1))
	for i, ref := range fragments {
		wg.Go(func() {
			sem <- struct{}{}
			defer func() { <-sem }()

			if _, err := l.Fragment(ctx, ref); err != nil {
				l.logger.Error(ctx, err, "preload failed", "fragment", ref)
				return
			}
			resources, err := l.prepareSiblings(ctx, ref)
			if err != nil {
				l.logger.Error(ctx, err, "preload resources failed", "fragment", ref)
			}
			prepared[i] = resources
		})
	}
	wg.Wait()

	for i, resources := range prepared {
		for _, res := range resources {
			if err := l.commit(ctx, res); err != nil {
				l.logger.Error(ctx, err, "preload resources failed", "fragment", fragments[i])
			}
		}
	}
}

// Fetch reads ref through the fetcher without caching.
func (l *Loader) Fetch(ctx context.Context, ref string) ([]byte, error) {
	return l.fetcher.Fetch(ctx, ref)
}
