package runtime

import (
	"github.com/conneroisu/componentry/internal/dom"
)

// DOM event names fired by the runtime.
const (
	EventLoaded  = "component:loaded"
	EventMessage = "component:message"
)

// BeforeLoadData is the payload of the beforeLoad phase.
type BeforeLoadData struct {
	ComponentPath string         `json:"componentPath"`
	Params        map[string]any `json:"params"`
}

// LoadData is the payload of the load phase.
type LoadData struct {
	HTML string `json:"html"`
}

// BeforeRenderData is the payload of the beforeRender phase.
type BeforeRenderData struct {
	TemplateData map[string]any `json:"templateData"`
}

// RenderData is the payload of the render phase.
type RenderData struct {
	Element *dom.Element `json:"-"`
}

// ErrorData is the payload of the error phase.
type ErrorData struct {
	Error         error  `json:"-"`
	ComponentPath string `json:"componentPath"`
}

// MessageData is the payload of the message phase.
type MessageData struct {
	Sender string `json:"sender"`
	Action string `json:"action"`
	Data   any    `json:"data"`
}

// LoadedDetail is the detail of the component:loaded DOM event.
type LoadedDetail struct {
	ComponentID   string `json:"componentId"`
	ComponentPath string `json:"componentPath"`
}
