// Package lifecycle defines the component lifecycle phases, the per-component
// hook table and the dispatcher that fans a notification out to hooks and to
// DOM listeners.
package lifecycle

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Phase is a lifecycle notification kind.
type Phase int

const (
	PhaseBeforeLoad Phase = iota
	PhaseLoad
	PhaseBeforeRender
	PhaseRender
	PhaseError
	PhaseStateChange
	PhaseStateReset
	PhaseComputedChange
	PhaseBeforeRemove
	PhaseDestroyed
	PhaseMessage

	numPhases
)

var phaseNames = [numPhases]string{
	PhaseBeforeLoad:     "beforeLoad",
	PhaseLoad:           "load",
	PhaseBeforeRender:   "beforeRender",
	PhaseRender:         "render",
	PhaseError:          "error",
	PhaseStateChange:    "stateChange",
	PhaseStateReset:     "stateReset",
	PhaseComputedChange: "computedChange",
	PhaseBeforeRemove:   "beforeRemove",
	PhaseDestroyed:      "destroyed",
	PhaseMessage:        "message",
}

// EventPrefix prefixes DOM event names fired for lifecycle phases.
const EventPrefix = "component:"

// hookNames is filled once at init; a cases.Caser must not be shared
// between goroutines.
var hookNames = func() [numPhases]string {
	titler := cases.Title(language.English, cases.NoLower)
	var names [numPhases]string
	for p := range names {
		names[p] = "on" + titler.String(phaseNames[p])
	}
	return names
}()

// String returns the event name, e.g. "beforeLoad".
func (p Phase) String() string {
	if p < 0 || p >= numPhases {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// HookName returns the hook slot name, e.g. "onBeforeLoad".
func (p Phase) HookName() string {
	if !p.Valid() {
		return "on" + p.String()
	}
	return hookNames[p]
}

// EventName returns the DOM custom event name, e.g. "component:render".
func (p Phase) EventName() string {
	return EventPrefix + p.String()
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	return p >= 0 && p < numPhases
}

// Phases lists every phase in declaration order.
func Phases() []Phase {
	out := make([]Phase, numPhases)
	for i := range out {
		out[i] = Phase(i)
	}
	return out
}

// ParsePhase accepts an event name ("load"), a hook name ("onLoad") or a DOM
// event name ("component:load"). Matching ignores case.
func ParsePhase(s string) (Phase, error) {
	name := strings.TrimPrefix(strings.TrimSpace(s), EventPrefix)
	for _, p := range Phases() {
		if strings.EqualFold(name, p.String()) || strings.EqualFold(name, p.HookName()) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown lifecycle phase %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid lifecycle phase %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(b []byte) error {
	parsed, err := ParsePhase(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
