package projection

import (
	"fmt"
	"strings"
)

// InvalidFieldsError reports requested paths that cannot resolve against the
// declared fields of a document type. Raised at planning time.
type InvalidFieldsError struct {
	Object string
	Fields []string
}

func (e *InvalidFieldsError) Error() string {
	return fmt.Sprintf("invalid projection fields (%s) for %s", strings.Join(e.Fields, ", "), e.Object)
}

// ShapeMismatchError reports a destination slot whose existing shape
// disagrees with the source during a projected copy: a non-sequence where a
// sequence is required, or a sequence of different length.
type ShapeMismatchError struct {
	Path   string
	Detail string
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("projection shape mismatch at %s: %s", e.Path, e.Detail)
}

// UnsupportedStructureError reports a copy path that traverses a source
// value that is neither a document nor a sequence.
type UnsupportedStructureError struct {
	Path  string
	Value any
}

func (e *UnsupportedStructureError) Error() string {
	return fmt.Sprintf("unsupported structure %T at %s", e.Value, e.Path)
}
