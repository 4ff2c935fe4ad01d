package projection

import (
	"sort"

	"github.com/skaldby/projoin/internal/document"
)

// ProjectDocument copies the requested dotted paths out of src into a new
// document, preserving sequence shape along the way.
//
// Paths are processed in sorted order so shape errors are reproducible.
// Missing fields are skipped silently; leaf values are copied by reference,
// never cloned. src is not mutated.
func ProjectDocument(src document.Document, paths []string) (document.Document, error) {
	result := document.Document{}
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	for _, path := range sorted {
		if err := copyPath(document.SplitPath(path), nil, src, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// copyPath walks src and dst in lockstep along parts. prefix holds the
// segments already consumed by enclosing sequence recursion, for error paths.
func copyPath(parts, prefix []string, src, dst document.Document) error {
	for depth, part := range parts[:len(parts)-1] {
		value, ok := src[part]
		if !ok {
			return nil
		}
		at := document.JoinPath(append(prefix, parts[:depth+1]...)...)
		switch sv := value.(type) {
		case document.Document:
			next, ok := dst[part]
			if !ok {
				next = document.Document{}
				dst[part] = next
			}
			nd, ok := next.(document.Document)
			if !ok {
				return &ShapeMismatchError{Path: at, Detail: "document expected in destination"}
			}
			src, dst = sv, nd
		case []any:
			existing, ok := dst[part]
			if !ok {
				created := make([]any, len(sv))
				for i := range created {
					created[i] = document.Document{}
				}
				dst[part] = created
				existing = created
			}
			seq, ok := existing.([]any)
			if !ok {
				return &ShapeMismatchError{Path: at, Detail: "sequence expected in destination"}
			}
			if len(seq) != len(sv) {
				return &ShapeMismatchError{Path: at, Detail: "destination sequence length differs from source"}
			}
			rest := parts[depth+1:]
			restPrefix := append(append([]string(nil), prefix...), parts[:depth+1]...)
			for i, elem := range sv {
				se, ok := elem.(document.Document)
				if !ok {
					return &UnsupportedStructureError{Path: at, Value: elem}
				}
				de, ok := seq[i].(document.Document)
				if !ok {
					return &ShapeMismatchError{Path: at, Detail: "document expected in destination sequence"}
				}
				if err := copyPath(rest, restPrefix, se, de); err != nil {
					return err
				}
			}
			return nil
		default:
			return &UnsupportedStructureError{Path: at, Value: value}
		}
	}
	last := parts[len(parts)-1]
	if value, ok := src[last]; ok {
		dst[last] = value
	}
	return nil
}
