// Package selection translates GraphQL selection-set syntax into dotted
// projection paths, giving callers a structured alternative to flat path
// lists: "{ name project { name } }" becomes ["name", "project.name"].
package selection

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/skaldby/projoin/internal/document"
)

// Paths parses src as a GraphQL selection set and flattens it into dotted
// field paths. Only plain nested fields are supported: aliases, arguments,
// directives, and fragments have no projection meaning and are rejected.
func Paths(src string) ([]string, error) {
	query := strings.TrimSpace(src)
	if !strings.HasPrefix(query, "{") {
		query = "{" + query + "}"
	}
	doc, err := parser.ParseQuery(&ast.Source{Name: "projection", Input: query})
	if err != nil {
		return nil, fmt.Errorf("parse projection selection: %w", err)
	}
	if len(doc.Operations) != 1 {
		return nil, fmt.Errorf("projection selection must be a single anonymous selection set")
	}
	return flatten(doc.Operations[0].SelectionSet, "")
}

func flatten(set ast.SelectionSet, prefix string) ([]string, error) {
	var paths []string
	for _, sel := range set {
		field, ok := sel.(*ast.Field)
		if !ok {
			return nil, fmt.Errorf("projection selections support plain fields only")
		}
		if field.Alias != "" && field.Alias != field.Name {
			return nil, fmt.Errorf("field alias %q has no projection meaning", field.Alias)
		}
		if len(field.Arguments) > 0 || len(field.Directives) > 0 {
			return nil, fmt.Errorf("field %q: arguments and directives are not supported", field.Name)
		}
		path := field.Name
		if prefix != "" {
			path = prefix + document.Sep + field.Name
		}
		if len(field.SelectionSet) == 0 {
			paths = append(paths, path)
			continue
		}
		sub, err := flatten(field.SelectionSet, path)
		if err != nil {
			return nil, err
		}
		paths = append(paths, sub...)
	}
	return paths, nil
}
