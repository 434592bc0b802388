package state

import (
	"math"
	"reflect"
	"sort"
	"strconv"

	"github.com/google/go-cmp/cmp"
)

// ChangeKind classifies a change record.
type ChangeKind int

const (
	ChangeAdd ChangeKind = iota
	ChangeUpdate
	ChangeDelete
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdd:
		return "add"
	case ChangeUpdate:
		return "update"
	case ChangeDelete:
		return "delete"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (k ChangeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Change describes one difference between two state snapshots.
type Change struct {
	Path     string     `json:"path"`
	OldValue any        `json:"oldValue,omitempty"`
	NewValue any        `json:"newValue,omitempty"`
	Kind     ChangeKind `json:"type"`

	// Nested is the originating leaf change when the record was delivered
	// to an ancestor path watcher.
	Nested *Change `json:"nestedChange,omitempty"`
}

// DeepClone copies JSON-like data. Maps with string keys become
// map[string]any and slices become []any; other values are returned as is.
func DeepClone(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = DeepClone(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = DeepClone(val)
		}
		return out
	case []byte:
		return append([]byte(nil), x...)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = DeepClone(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = DeepClone(rv.Index(i).Interface())
		}
		return out
	}
	return v
}

// CloneMap is DeepClone for a state tree.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return DeepClone(m).(map[string]any)
}

// DeepMerge merges source into target in place and returns target. Nested
// maps merge key by key; slices and scalars replace.
func DeepMerge(target, source map[string]any) map[string]any {
	if target == nil {
		target = map[string]any{}
	}
	for key, sv := range source {
		cloned := DeepClone(sv)
		src, srcIsMap := cloned.(map[string]any)
		dst, dstIsMap := target[key].(map[string]any)
		if srcIsMap && dstIsMap {
			DeepMerge(dst, src)
			continue
		}
		target[key] = cloned
	}
	return target
}

// Diff returns the changes turning before into after. Keys of both snapshots are
// visited depth first; maps or slices present on both sides are recursed into.
// Map keys are visited in sorted order and slice elements by index.
func Diff(before, after map[string]any) []Change {
	return diffContainers(before, after, "")
}

func diffContainers(before, after any, prefix string) []Change {
	var changes []Change
	oldEntries, _ := entries(before)
	newEntries, _ := entries(after)
	for _, key := range unionKeys(before, after, oldEntries, newEntries) {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		ov, inOld := oldEntries[key]
		nv, inNew := newEntries[key]
		switch {
		case inOld && inNew:
			if sameContainerKind(ov, nv) {
				changes = append(changes, diffContainers(ov, nv, path)...)
			} else if !Equal(ov, nv) {
				changes = append(changes, Change{Path: path, OldValue: ov, NewValue: nv, Kind: ChangeUpdate})
			}
		case inOld:
			changes = append(changes, Change{Path: path, OldValue: ov, Kind: ChangeDelete})
		default:
			changes = append(changes, Change{Path: path, NewValue: nv, Kind: ChangeAdd})
		}
	}
	return changes
}

// sameContainerKind reports whether a and b are both maps or both slices.
// A map replaced by a slice, or the reverse, is a single update.
func sameContainerKind(a, b any) bool {
	switch a.(type) {
	case map[string]any:
		_, ok := b.(map[string]any)
		return ok
	case []any:
		_, ok := b.([]any)
		return ok
	}
	return false
}

// entries views a map or slice as a keyed collection.
func entries(v any) (map[string]any, bool) {
	switch x := v.(type) {
	case map[string]any:
		return x, true
	case []any:
		out := make(map[string]any, len(x))
		for i, item := range x {
			out[strconv.Itoa(i)] = item
		}
		return out, true
	}
	return nil, false
}

func unionKeys(before, after any, oldEntries, newEntries map[string]any) []string {
	oldSlice, oldIsSlice := before.([]any)
	newSlice, newIsSlice := after.([]any)
	if oldIsSlice && newIsSlice {
		n := max(len(oldSlice), len(newSlice))
		keys := make([]string, n)
		for i := range keys {
			keys[i] = strconv.Itoa(i)
		}
		return keys
	}

	seen := make(map[string]struct{}, len(oldEntries)+len(newEntries))
	keys := make([]string, 0, len(oldEntries)+len(newEntries))
	for _, m := range []map[string]any{oldEntries, newEntries} {
		for k := range m {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

var equalOptions = cmp.Options{
	cmp.Exporter(func(reflect.Type) bool { return true }),
	cmp.FilterValues(bothNumbers, cmp.Comparer(numbersEqual)),
}

// Equal reports structural equality. Numbers compare by value regardless of
// their Go type, so 1 and 1.0 are equal, and NaN equals NaN. Inputs must be
// acyclic.
func Equal(a, b any) bool {
	return cmp.Equal(a, b, equalOptions)
}

func bothNumbers(x, y any) bool {
	_, okx := toFloat(x)
	_, oky := toFloat(y)
	return okx && oky
}

func numbersEqual(x, y any) bool {
	fx, _ := toFloat(x)
	fy, _ := toFloat(y)
	if math.IsNaN(fx) || math.IsNaN(fy) {
		return math.IsNaN(fx) && math.IsNaN(fy)
	}
	return fx == fy
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
