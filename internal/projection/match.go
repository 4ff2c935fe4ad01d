package projection

import (
	"reflect"
	"sort"

	"github.com/skaldby/projoin/internal/document"
	"github.com/skaldby/projoin/internal/schema"
)

// matcher enumerates the concrete paths present in documents and matches
// wildcard-capable dotted paths against them. The enumeration is cached per
// document identity because one batch matches the same documents against
// every joined reference field in turn. A matcher lives for one projection
// batch and must not outlive the documents it has seen.
type matcher struct {
	cache map[uintptr][][]any
}

func newMatcher() *matcher {
	return &matcher{cache: make(map[uintptr][][]any)}
}

// search returns the value at every location in obj matching path, after
// normalizing path through t. When replace is non-nil it is invoked once per
// match and its return value overwrites the slot; the pre-replacement value
// is still the one returned. Zero matches yield an empty result.
func (m *matcher) search(t schema.Type, obj document.Document, path string, replace func(any) any) []any {
	glob := document.SplitPath(t.NormalizePath(path))
	var out []any
	for _, p := range m.pathsOf(obj) {
		if !matchGlob(p, glob) {
			continue
		}
		parent, target := walkTo(obj, p)
		if out == nil {
			out = make([]any, 0, 1)
		}
		out = append(out, target)
		if replace != nil && parent != nil {
			setSlot(parent, p[len(p)-1], replace(target))
		}
	}
	return out
}

// pathsOf enumerates every path in obj, interior locations included, in a
// deterministic order.
func (m *matcher) pathsOf(obj document.Document) [][]any {
	key := reflect.ValueOf(obj).Pointer()
	if paths, ok := m.cache[key]; ok {
		return paths
	}
	var paths [][]any
	enumerate(obj, nil, &paths)
	m.cache[key] = paths
	return paths
}

func enumerate(value any, prefix []any, paths *[][]any) {
	switch v := value.(type) {
	case document.Document:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			p := appendStep(prefix, k)
			*paths = append(*paths, p)
			enumerate(v[k], p, paths)
		}
	case []any:
		for i, elem := range v {
			p := appendStep(prefix, i)
			*paths = append(*paths, p)
			enumerate(elem, p, paths)
		}
	}
}

func appendStep(prefix []any, step any) []any {
	p := make([]any, len(prefix)+1)
	copy(p, prefix)
	p[len(prefix)] = step
	return p
}

// matchGlob matches a concrete path against glob segments of equal length.
func matchGlob(p []any, glob []string) bool {
	if len(p) != len(glob) {
		return false
	}
	for i, g := range glob {
		if g == document.Wildcard {
			continue
		}
		if g != document.SegmentString(p[i]) {
			return false
		}
	}
	return true
}

// walkTo follows p from root and returns the direct parent container of the
// final step along with the value there.
func walkTo(root document.Document, p []any) (parent any, target any) {
	target = root
	for _, step := range p {
		parent = target
		switch s := step.(type) {
		case string:
			doc, ok := parent.(document.Document)
			if !ok {
				return nil, nil
			}
			target = doc[s]
		case int:
			seq, ok := parent.([]any)
			if !ok || s >= len(seq) {
				return nil, nil
			}
			target = seq[s]
		}
	}
	return parent, target
}

func setSlot(parent any, step any, value any) {
	switch s := step.(type) {
	case string:
		if doc, ok := parent.(document.Document); ok {
			doc[s] = value
		}
	case int:
		if seq, ok := parent.([]any); ok && s < len(seq) {
			seq[s] = value
		}
	}
}
