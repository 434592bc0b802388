package component

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/conneroisu/componentry/internal/errors"
	"github.com/conneroisu/componentry/internal/lifecycle"
)

// DefinitionSpec is the serialisable form of a Definition. Functions are
// referenced by the names they were registered under in a HandlerRegistry.
type DefinitionSpec struct {
	Path     string                  `json:"path,omitempty" yaml:"path,omitempty"`
	Params   map[string]any          `json:"params,omitempty" yaml:"params,omitempty"`
	State    map[string]any          `json:"state,omitempty" yaml:"state,omitempty"`
	Computed map[string]ComputedSpec `json:"computed,omitempty" yaml:"computed,omitempty"`
	Watch    map[string]string       `json:"watch,omitempty" yaml:"watch,omitempty"`
	Methods  map[string]string       `json:"methods,omitempty" yaml:"methods,omitempty"`
	// Events maps a phase ("load", "onLoad") or "event" for the catch-all
	// hook to a handler name.
	Events map[string]string `json:"events,omitempty" yaml:"events,omitempty"`
}

// ComputedSpec references a registered compute function.
type ComputedSpec struct {
	Compute      string   `json:"compute" yaml:"compute"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// Format is a definition encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf picks the format from a file name or URL, defaulting to JSON.
func FormatOf(name string) Format {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".yml", ".yaml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ParseSpec decodes a definition document.
func ParseSpec(data []byte, format Format) (*DefinitionSpec, error) {
	var spec DefinitionSpec
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &spec)
	default:
		err = json.Unmarshal(data, &spec)
	}
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeImport, "invalid component definition: "+err.Error())
	}
	return &spec, nil
}

// HandlerRegistry holds the named functions definition documents refer to.
type HandlerRegistry struct {
	mu       sync.RWMutex
	computed map[string]ComputeFunc
	watchers map[string]WatchFunc
	methods  map[string]Method
	events   map[string]EventHandler
}

// NewHandlerRegistry returns an empty registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		computed: make(map[string]ComputeFunc),
		watchers: make(map[string]WatchFunc),
		methods:  make(map[string]Method),
		events:   make(map[string]EventHandler),
	}
}

// RegisterComputed names a compute function.
func (h *HandlerRegistry) RegisterComputed(name string, fn ComputeFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.computed[name] = fn
}

// RegisterWatcher names a watch function.
func (h *HandlerRegistry) RegisterWatcher(name string, fn WatchFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.watchers[name] = fn
}

// RegisterMethod names a method.
func (h *HandlerRegistry) RegisterMethod(name string, fn Method) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.methods[name] = fn
}

// RegisterEvent names a lifecycle hook.
func (h *HandlerRegistry) RegisterEvent(name string, fn EventHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events[name] = fn
}

// Resolve turns spec into a Definition. Every unknown handler name and
// phase is reported.
func (h *HandlerRegistry) Resolve(spec *DefinitionSpec) (Definition, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	def := Definition{
		Path:   spec.Path,
		Params: spec.Params,
		State:  spec.State,
	}
	var errs []error
	unknown := func(kind, name string) {
		errs = append(errs, errors.NewValidationError(errors.ErrCodeUnknownHandler,
			fmt.Sprintf("unknown %s handler %q", kind, name)))
	}

	if len(spec.Computed) > 0 {
		def.Computed = make(map[string]Computed, len(spec.Computed))
		for name, cs := range spec.Computed {
			fn, ok := h.computed[cs.Compute]
			if !ok {
				unknown("computed", cs.Compute)
				continue
			}
			def.Computed[name] = Computed{Fn: fn, Deps: cs.Dependencies}
		}
	}
	if len(spec.Watch) > 0 {
		def.Watch = make(map[string]WatchFunc, len(spec.Watch))
		for p, name := range spec.Watch {
			fn, ok := h.watchers[name]
			if !ok {
				unknown("watch", name)
				continue
			}
			def.Watch[p] = fn
		}
	}
	if len(spec.Methods) > 0 {
		def.Methods = make(map[string]Method, len(spec.Methods))
		for m, name := range spec.Methods {
			fn, ok := h.methods[name]
			if !ok {
				unknown("method", name)
				continue
			}
			def.Methods[m] = fn
		}
	}
	for key, name := range spec.Events {
		fn, ok := h.events[name]
		if !ok {
			unknown("event", name)
			continue
		}
		if isCatchAll(key) {
			def.OnEvent = fn
			continue
		}
		phase, err := lifecycle.ParsePhase(key)
		if err != nil {
			errs = append(errs, errors.NewValidationError(errors.ErrCodeUnknownHandler, err.Error()))
			continue
		}
		if def.Events == nil {
			def.Events = make(map[lifecycle.Phase]EventHandler)
		}
		def.Events[phase] = fn
	}

	return def, errors.Join(errs...)
}

func isCatchAll(key string) bool {
	return strings.EqualFold(key, "event") || strings.EqualFold(key, "onEvent")
}
