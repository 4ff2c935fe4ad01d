package projection

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skaldby/projoin/internal/schema"
)

// testTypes builds the document types most tests run against: a Task with a
// scalar reference (project), a nested aliased reference (execution.model),
// and a list reference (tags is plain data; collaborators holds ids).
func testTypes(t *testing.T) *schema.Registry {
	t.Helper()
	r, err := schema.NewRegistry(
		schema.Definition{
			Name:   "Task",
			Fields: []string{"id", "name", "comment", "project", "execution", "collaborators", "tags"},
			References: map[string]string{
				"project":         "Project",
				"execution.model": "Model",
				"collaborators":   "User",
			},
			PathAliases: map[string]string{"execution.model": "execution.model_id"},
		},
		schema.Definition{Name: "Project", Fields: []string{"id", "name", "description"}},
		schema.Definition{Name: "Model", Fields: []string{"id", "uri", "labels"}},
		schema.Definition{Name: "User", Fields: []string{"id", "name", "email"}},
	)
	require.NoError(t, err)
	return r
}

func lookupType(t *testing.T, r *schema.Registry, name string) schema.Type {
	t.Helper()
	typ, ok := r.Lookup(name)
	require.True(t, ok, "type %s not registered", name)
	return typ
}
