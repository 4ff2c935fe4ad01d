// Package schema declares the document-type contract the projection engine
// plans against, plus a declarative registry implementation of it.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/skaldby/projoin/internal/document"
)

// Type describes one document type to the projection planner.
//
// Implementations must be immutable after construction: the planner captures
// a Type at helper-construction time and assumes its answers never change.
type Type interface {
	// Name is the document type name, used in error messages and by query
	// executors to address the backing collection.
	Name() string

	// Fields returns the declared top-level field names, id included.
	Fields() []string

	// HasField reports whether name is a declared top-level field.
	HasField(name string) bool

	// ReferenceFields maps each declared reference field path to the type of
	// the documents it references.
	ReferenceFields() map[string]Type

	// NormalizePath translates a logical field path into the storage engine's
	// native path for the same data. Identity for types without aliases.
	NormalizePath(path string) string
}

// Definition is the declarative form of a document type, as loaded from
// registry config or constructed in code.
type Definition struct {
	Name        string            `json:"name"`
	Fields      []string          `json:"fields"`
	References  map[string]string `json:"references,omitempty"`
	PathAliases map[string]string `json:"path_aliases,omitempty"`
}

// DocType is the registry-backed Type implementation.
type DocType struct {
	name     string
	fields   []string
	fieldSet map[string]struct{}
	refs     map[string]Type
	aliases  map[string]string
}

var _ Type = (*DocType)(nil)

func (t *DocType) Name() string { return t.name }

func (t *DocType) Fields() []string { return t.fields }

func (t *DocType) HasField(name string) bool {
	_, ok := t.fieldSet[name]
	return ok
}

func (t *DocType) ReferenceFields() map[string]Type { return t.refs }

// NormalizePath rewrites the longest alias prefix of path, segment-aligned.
func (t *DocType) NormalizePath(path string) string {
	best := ""
	for alias := range t.aliases {
		if len(alias) <= len(best) {
			continue
		}
		if path == alias || strings.HasPrefix(path, alias+document.Sep) {
			best = alias
		}
	}
	if best == "" {
		return path
	}
	return t.aliases[best] + path[len(best):]
}

// Registry resolves document type names to their definitions.
type Registry struct {
	types map[string]*DocType
}

// NewRegistry builds a registry from definitions, resolving reference targets
// across the whole set. Self-references and cycles are allowed.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{types: make(map[string]*DocType, len(defs))}
	for _, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("document type with empty name")
		}
		if _, dup := r.types[def.Name]; dup {
			return nil, fmt.Errorf("duplicate document type %q", def.Name)
		}
		fields := append([]string(nil), def.Fields...)
		fieldSet := make(map[string]struct{}, len(fields)+1)
		for _, f := range fields {
			fieldSet[f] = struct{}{}
		}
		if _, ok := fieldSet[document.IDField]; !ok {
			fields = append(fields, document.IDField)
			fieldSet[document.IDField] = struct{}{}
		}
		sort.Strings(fields)
		aliases := make(map[string]string, len(def.PathAliases))
		for k, v := range def.PathAliases {
			aliases[k] = v
		}
		r.types[def.Name] = &DocType{
			name:     def.Name,
			fields:   fields,
			fieldSet: fieldSet,
			refs:     make(map[string]Type, len(def.References)),
			aliases:  aliases,
		}
	}
	// Second pass so reference targets can point anywhere in the set,
	// including back at the declaring type.
	for _, def := range defs {
		t := r.types[def.Name]
		for path, target := range def.References {
			tt, ok := r.types[target]
			if !ok {
				return nil, fmt.Errorf("type %q: reference field %q targets unknown type %q", def.Name, path, target)
			}
			t.refs[path] = tt
		}
	}
	return r, nil
}

// Lookup returns the type registered under name.
func (r *Registry) Lookup(name string) (Type, bool) {
	t, ok := r.types[name]
	return t, ok
}

// Types returns the registered type names in sorted order.
func (r *Registry) Types() []string {
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
