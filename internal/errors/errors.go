package errors

import (
	"fmt"
	"html"
	"sync"
	"time"
)

// ComponentError records one failed component load.
type ComponentError struct {
	Component string
	Path      string
	Message   string
	Severity  ErrorSeverity
	Timestamp time.Time
}

// ErrorSeverity represents the severity of an error
type ErrorSeverity int

const (
	ErrorSeverityInfo ErrorSeverity = iota
	ErrorSeverityWarning
	ErrorSeverityError
)

// String returns the string representation of the severity
func (s ErrorSeverity) String() string {
	switch s {
	case ErrorSeverityInfo:
		return "info"
	case ErrorSeverityWarning:
		return "warning"
	case ErrorSeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Error implements the error interface
func (ce *ComponentError) Error() string {
	return fmt.Sprintf("%s (%s): %s: %s", ce.Component, ce.Path, ce.Severity, ce.Message)
}

// Collector gathers component failures for a page render.
type Collector struct {
	errors []ComponentError
	mutex  sync.RWMutex
}

// NewCollector creates a new error collector
func NewCollector() *Collector {
	return &Collector{
		errors: make([]ComponentError, 0),
	}
}

// Add records a failure.
func (c *Collector) Add(err ComponentError) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	c.errors = append(c.errors, err)
}

// Errors returns a copy of the collected failures.
func (c *Collector) Errors() []ComponentError {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	result := make([]ComponentError, len(c.errors))
	copy(result, c.errors)
	return result
}

// HasErrors returns true if there are any errors
func (c *Collector) HasErrors() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.errors) > 0
}

// Clear clears all errors
func (c *Collector) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.errors = c.errors[:0]
}

// ErrorOverlay generates HTML for the development error overlay.
func (c *Collector) ErrorOverlay() string {
	if !c.HasErrors() {
		return ""
	}

	out := `
<div id="componentry-error-overlay" style="position: fixed; bottom: 0; left: 0; right: 0; max-height: 40%; overflow: auto; background: rgba(0, 0, 0, 0.85); color: white; font-family: 'Monaco', 'Menlo', monospace; font-size: 13px; z-index: 9999; padding: 12px;">
	<div style="display: flex; justify-content: space-between; align-items: center;">
		<strong style="color: #ff6b6b;">Component Errors</strong>
		<button onclick="document.getElementById('componentry-error-overlay').style.display='none'" style="background: none; border: 1px solid #ccc; color: white; cursor: pointer;">Close</button>
	</div>`

	for _, err := range c.Errors() {
		color := "#ff6b6b"
		switch err.Severity {
		case ErrorSeverityWarning:
			color = "#feca57"
		case ErrorSeverityInfo:
			color = "#48dbfb"
		}
		out += fmt.Sprintf(`
	<div style="border-left: 4px solid %s; padding: 6px 10px; margin-top: 8px;">
		<span style="color: %s;">%s</span> <strong>#%s</strong> %s
		<div style="color: #a0aec0;">%s</div>
	</div>`,
			color, color, err.Severity,
			html.EscapeString(err.Component),
			html.EscapeString(err.Path),
			html.EscapeString(err.Message))
	}

	out += `
</div>`

	return out
}
