package component

import "fmt"

// Status is the position of a component in its load cycle.
type Status int

const (
	// StatusUnregistered is the state before the first load attempt.
	StatusUnregistered Status = iota
	StatusBeforeLoad
	StatusLoaded
	StatusBeforeRender
	StatusRendered
	// StatusErrored ends a load attempt. A retry re-enters StatusBeforeLoad.
	StatusErrored
	StatusDestroyed
)

var statusNames = [...]string{
	StatusUnregistered: "unregistered",
	StatusBeforeLoad:   "beforeLoad",
	StatusLoaded:       "loaded",
	StatusBeforeRender: "beforeRender",
	StatusRendered:     "rendered",
	StatusErrored:      "errored",
	StatusDestroyed:    "destroyed",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// transitions lists the statuses reachable from each status, besides
// StatusDestroyed which every live status can reach.
var transitions = map[Status][]Status{
	StatusUnregistered: {StatusBeforeLoad},
	StatusBeforeLoad:   {StatusBeforeLoad, StatusLoaded, StatusErrored},
	StatusLoaded:       {StatusBeforeLoad, StatusBeforeRender, StatusErrored},
	StatusBeforeRender: {StatusBeforeLoad, StatusRendered, StatusErrored},
	StatusRendered:     {StatusBeforeLoad},
	StatusErrored:      {StatusBeforeLoad},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	if from == StatusDestroyed {
		return false
	}
	if to == StatusDestroyed {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
