package loader

import (
	"context"

	"github.com/conneroisu/componentry/internal/dom"
	"github.com/conneroisu/componentry/internal/logging"
)

// Kind distinguishes stylesheet and script resources.
type Kind int

const (
	KindCSS Kind = iota
	KindJS
)

func (k Kind) String() string {
	if k == KindJS {
		return "js"
	}
	return "css"
}

// Injector adds a loaded resource to the page.
type Injector interface {
	Inject(kind Kind, url string) error
}

// DocumentInjector appends <link rel="stylesheet"> and <script async>
// elements to the head of a document.
type DocumentInjector struct {
	Doc *dom.Document
}

// Inject implements Injector.
func (d DocumentInjector) Inject(kind Kind, url string) error {
	head := d.Doc.Head()
	if head == nil {
		head = d.Doc.Body()
	}
	if head == nil {
		return nil
	}
	var el *dom.Element
	switch kind {
	case KindCSS:
		el = d.Doc.CreateElement("link")
		el.SetAttribute("rel", "stylesheet")
		el.SetAttribute("href", url)
	case KindJS:
		el = d.Doc.CreateElement("script")
		el.SetAttribute("src", url)
		el.SetAttribute("async", "")
	}
	head.AppendChild(el)
	return nil
}

// Script is a unit of script code to execute.
type Script struct {
	// Source is the script URL, or the owning component id for inline code.
	Source string
	Code   string
	Inline bool
}

// ScriptRunner executes page scripts. Go does not run JavaScript itself;
// embedders plug in an engine or a recorder.
type ScriptRunner interface {
	Run(ctx context.Context, s Script) error
}

// ScriptRunnerFunc adapts a function to ScriptRunner.
type ScriptRunnerFunc func(ctx context.Context, s Script) error

// Run implements ScriptRunner.
func (f ScriptRunnerFunc) Run(ctx context.Context, s Script) error { return f(ctx, s) }

// LogRunner records scripts at debug level without executing them.
type LogRunner struct {
	Logger logging.Logger
}

// Run implements ScriptRunner.
func (r LogRunner) Run(ctx context.Context, s Script) error {
	if r.Logger != nil {
		r.Logger.Debug(ctx, "script skipped", "source", s.Source, "inline", s.Inline, "bytes", len(s.Code))
	}
	return nil
}
