// Package document defines the dynamic document model shared by the
// projection engine, storage adapters, and transports.
//
// A document is a schema-flexible nested map: values are primitives,
// sub-documents, or sequences of either. Nothing in this package interprets
// field meaning; it only provides the path vocabulary the rest of the system
// speaks.
package document

import (
	"strconv"
	"strings"
)

// Document represents an unstructured document as map[string]any.
// Values may be primitives, nested Documents, or []any sequences.
type Document = map[string]any

// Sep separates segments in a dotted field path.
const Sep = "."

// Wildcard matches any single path segment.
const Wildcard = "*"

// IDField is the canonical identity field of a stored document.
const IDField = "id"

// SplitPath splits a dotted path into its segments.
// Leading and trailing separators are ignored.
func SplitPath(path string) []string {
	return strings.Split(strings.Trim(path, Sep), Sep)
}

// JoinPath joins segments into a dotted path.
func JoinPath(segments ...string) string {
	return strings.Join(segments, Sep)
}

// ID returns the id field of doc and whether it is present and usable as a
// registry key. Only primitive comparable values qualify.
func ID(doc Document) (any, bool) {
	v, ok := doc[IDField]
	if !ok {
		return nil, false
	}
	return v, ComparableID(v)
}

// ComparableID reports whether v is a primitive value that can key a map.
// Composite values (maps, sequences) and nil are rejected.
func ComparableID(v any) bool {
	switch v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

// Falsy reports whether an id value is empty in the sense of the reference
// collection pass: nil, empty string, or numeric zero.
func Falsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case int:
		return x == 0
	case int8:
		return x == 0
	case int16:
		return x == 0
	case int32:
		return x == 0
	case int64:
		return x == 0
	case uint:
		return x == 0
	case uint8:
		return x == 0
	case uint16:
		return x == 0
	case uint32:
		return x == 0
	case uint64:
		return x == 0
	case float32:
		return x == 0
	case float64:
		return x == 0
	default:
		return false
	}
}

// SegmentString renders a concrete path component for glob comparison.
// Sequence indices render as their decimal form so that a literal "0"
// segment in a requested path addresses the first element.
func SegmentString(component any) string {
	switch c := component.(type) {
	case string:
		return c
	case int:
		return strconv.Itoa(c)
	default:
		return ""
	}
}

// Merge copies every field of src into dst, overwriting existing keys.
// The copy is shallow: nested values are shared, which is what proxy
// resolution relies on.
func Merge(dst, src Document) {
	for k, v := range src {
		dst[k] = v
	}
}
