package projection

import (
	"sort"
	"strings"

	"github.com/skaldby/projoin/internal/document"
	"github.com/skaldby/projoin/internal/schema"
)

// JoinSpec describes one reference join: the target document type and the
// sub-projection to request from it. Empty Fields means all fields.
type JoinSpec struct {
	Target schema.Type
	Fields []string
}

// plan is the immutable output of planning one projection request.
type plan struct {
	local      []string
	joins      map[string]JoinSpec
	joinFields []string // sorted keys of joins
}

type refTuple struct {
	field  string
	target schema.Type
	suffix string
}

// buildPlan parses a flat projection request against a document type.
func buildPlan(t schema.Type, projection []string) (*plan, error) {
	if len(projection) == 0 {
		return &plan{}, nil
	}

	localSet, refInfo, err := classifyFields(t, projection)
	if err != nil {
		return nil, err
	}

	joins := groupJoins(refInfo)

	// A reference field requested bare while also joined degrades to a raw
	// id retrieval; drop it here, step 6 below re-adds the field name.
	for field := range joins {
		delete(localSet, field)
	}
	localSet[document.IDField] = struct{}{}
	expandWildcard(localSet, t)
	collapsePrefixes(localSet)

	if invalid := invalidFields(localSet, t); len(invalid) > 0 {
		return nil, &InvalidFieldsError{Object: t.Name(), Fields: invalid}
	}

	// Joined reference fields must appear in the local projection so the
	// raw ids come back from the store, unless a retained shorter field
	// already covers them.
	for field := range joins {
		if _, ok := localSet[field]; ok {
			continue
		}
		if coveredBy(field, localSet) {
			continue
		}
		localSet[field] = struct{}{}
	}

	p := &plan{joins: joins}
	p.local = sortedKeys(localSet)
	p.joinFields = make([]string, 0, len(joins))
	for field := range joins {
		p.joinFields = append(p.joinFields, field)
	}
	sort.Strings(p.joinFields)
	return p, nil
}

// classifyFields splits a request into local fields and reference tuples.
// A path extending a declared reference field becomes a tuple for that
// field; an exact reference-field path stays local (no inner projection;
// use "<field>.*" for that). The most specific reference field wins when
// several are dotted prefixes of one another.
func classifyFields(t schema.Type, projection []string) (map[string]struct{}, []refTuple, error) {
	refFields := sortedRefFields(t)
	localSet := make(map[string]struct{})
	var refInfo []refTuple
	for _, field := range projection {
		matched := false
		for _, ref := range refFields {
			if field == ref || !strings.HasPrefix(field, ref+document.Sep) {
				continue
			}
			refInfo = append(refInfo, refTuple{
				field:  ref,
				target: t.ReferenceFields()[ref],
				suffix: field[len(ref)+len(document.Sep):],
			})
			matched = true
			break
		}
		if matched {
			continue
		}
		orig := field
		// A trailing ".*" means nothing for plain and embedded fields.
		if strings.HasSuffix(field, document.Sep+document.Wildcard) {
			field = field[:len(field)-2]
		}
		if field == "" {
			return nil, nil, &InvalidFieldsError{Object: t.Name(), Fields: []string{orig}}
		}
		localSet[field] = struct{}{}
	}
	return localSet, refInfo, nil
}

// groupJoins deduplicates reference tuples per field, unioning the non-empty
// suffixes into the sub-projection and expanding wildcards against the
// target's declared fields.
func groupJoins(refInfo []refTuple) map[string]JoinSpec {
	if len(refInfo) == 0 {
		return nil
	}
	type accum struct {
		target   schema.Type
		suffixes map[string]struct{}
	}
	groups := make(map[string]*accum)
	for _, tup := range refInfo {
		g, ok := groups[tup.field]
		if !ok {
			g = &accum{target: tup.target, suffixes: make(map[string]struct{})}
			groups[tup.field] = g
		}
		if tup.suffix != "" {
			g.suffixes[tup.suffix] = struct{}{}
		}
	}
	joins := make(map[string]JoinSpec, len(groups))
	for field, g := range groups {
		expandWildcard(g.suffixes, g.target)
		if len(g.suffixes) > 0 {
			// Sub-projections always retrieve the id; without it the
			// fetched documents cannot reach their proxies.
			g.suffixes[document.IDField] = struct{}{}
		}
		joins[field] = JoinSpec{Target: g.target, Fields: sortedKeys(g.suffixes)}
	}
	return joins
}

// expandWildcard replaces a bare "*" entry with every declared field.
func expandWildcard(set map[string]struct{}, t schema.Type) {
	if _, ok := set[document.Wildcard]; !ok {
		return
	}
	delete(set, document.Wildcard)
	for _, f := range t.Fields() {
		set[f] = struct{}{}
	}
}

// collapsePrefixes drops every field that is a strict dotted descendant of
// another retained field: the store would return only the most specific one
// and silently omit sibling data the broader field needs.
func collapsePrefixes(set map[string]struct{}) {
	for field := range set {
		for other := range set {
			if other != field && strings.HasPrefix(field, other+document.Sep) {
				delete(set, field)
				break
			}
		}
	}
}

func invalidFields(set map[string]struct{}, t schema.Type) []string {
	var invalid []string
	for field := range set {
		if !t.HasField(document.SplitPath(field)[0]) {
			invalid = append(invalid, field)
		}
	}
	sort.Strings(invalid)
	return invalid
}

func coveredBy(field string, set map[string]struct{}) bool {
	for other := range set {
		if field == other || strings.HasPrefix(field, other+document.Sep) {
			return true
		}
	}
	return false
}

// sortedRefFields returns declared reference field paths, most specific
// first so classification picks the deepest match.
func sortedRefFields(t schema.Type) []string {
	fields := make([]string, 0, len(t.ReferenceFields()))
	for f := range t.ReferenceFields() {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool {
		if len(fields[i]) != len(fields[j]) {
			return len(fields[i]) > len(fields[j])
		}
		return fields[i] < fields[j]
	})
	return fields
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
