// Package snapshot encodes the component states of a rendered page so they
// can be written next to the page output or kept across dev-server reloads.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/componentry/internal/errors"
	"github.com/conneroisu/componentry/internal/state"
)

// Version is the current snapshot layout.
const Version = 1

// Format names an encoding.
type Format string

// Supported formats.
const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatMsgpack Format = "msgpack"
)

// Formats lists the supported formats.
var Formats = []Format{FormatJSON, FormatYAML, FormatMsgpack}

// ParseFormat accepts a format name or a common alias.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "msgpack", "mp", "mpk":
		return FormatMsgpack, nil
	}
	return "", errors.NewConfigError(errors.ErrCodeConfigInvalid,
		fmt.Sprintf("unknown snapshot format %q", s))
}

// FormatOf picks a format from a file extension, defaulting to JSON.
func FormatOf(name string) Format {
	f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(name), "."))
	if err != nil {
		return FormatJSON
	}
	return f
}

// Snapshot is the persisted form of a store.
type Snapshot struct {
	Version int                       `json:"version" yaml:"version" msgpack:"version"`
	Page    string                    `json:"page,omitempty" yaml:"page,omitempty" msgpack:"page,omitempty"`
	Taken   time.Time                 `json:"taken" yaml:"taken" msgpack:"taken"`
	States  map[string]map[string]any `json:"states" yaml:"states" msgpack:"states"`
}

// New captures states for page.
func New(page string, states map[string]map[string]any) *Snapshot {
	if states == nil {
		states = map[string]map[string]any{}
	}
	return &Snapshot{Version: Version, Page: page, Taken: time.Now().UTC(), States: states}
}

// Marshal encodes s.
func (s *Snapshot) Marshal(f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.Write(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes s to w.
func (s *Snapshot) Write(w io.Writer, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	case FormatMsgpack:
		enc := msgpack.NewEncoder(w)
		enc.SetSortMapKeys(true)
		return enc.Encode(s)
	}
	return errors.NewConfigError(errors.ErrCodeConfigInvalid,
		fmt.Sprintf("unknown snapshot format %q", f))
}

// Unmarshal decodes a snapshot. State values are normalised to the shapes
// the store works with.
func Unmarshal(data []byte, f Format) (*Snapshot, error) {
	return Read(bytes.NewReader(data), f)
}

// Read decodes a snapshot from r.
func Read(r io.Reader, f Format) (*Snapshot, error) {
	var s Snapshot
	var err error
	switch f {
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&s)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&s)
	case FormatMsgpack:
		dec := msgpack.NewDecoder(r)
		dec.UseLooseInterfaceDecoding(true)
		err = dec.Decode(&s)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("unknown snapshot format %q", f))
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s snapshot: %w", f, err)
	}
	if s.Version != Version {
		return nil, fmt.Errorf("unsupported snapshot version %d", s.Version)
	}
	for id, st := range s.States {
		if clone, ok := state.DeepClone(st).(map[string]any); ok {
			s.States[id] = clone
		}
	}
	if s.States == nil {
		s.States = map[string]map[string]any{}
	}
	return &s, nil
}
