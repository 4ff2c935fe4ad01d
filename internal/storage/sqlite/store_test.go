package sqlite

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/skaldby/projoin/internal/document"
	"github.com/skaldby/projoin/internal/schema"
)

func testStore(t *testing.T) (*Store, *schema.Registry) {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	r, err := schema.NewRegistry(
		schema.Definition{
			Name:        "Task",
			Fields:      []string{"id", "name", "project", "execution"},
			References:  map[string]string{"project": "Project", "execution.model": "Model"},
			PathAliases: map[string]string{"execution.model": "execution.model_id"},
		},
		schema.Definition{Name: "Project", Fields: []string{"id", "name", "description"}},
		schema.Definition{Name: "Model", Fields: []string{"id", "uri"}},
	)
	require.NoError(t, err)
	return s, r
}

func taskType(t *testing.T, r *schema.Registry) schema.Type {
	t.Helper()
	typ, ok := r.Lookup("Task")
	require.True(t, ok)
	return typ
}

func TestStorePutAndQuery(t *testing.T) {
	s, r := testStore(t)
	task := taskType(t, r)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "Task", document.Document{
		"id": "t1", "name": "train", "project": "p1",
		"execution": document.Document{"queue": "default", "model_id": "m1"},
	}))
	require.NoError(t, s.Put(ctx, "Task", document.Document{
		"id": "t2", "name": "eval", "project": "p2",
	}))

	t.Run("nil ids return every document of the type", func(t *testing.T) {
		docs, err := s.Query(ctx, task, nil, nil)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		require.Equal(t, "t1", docs[0]["id"])
		require.Equal(t, "t2", docs[1]["id"])
	})

	t.Run("empty ids return nothing", func(t *testing.T) {
		docs, err := s.Query(ctx, task, nil, []any{})
		require.NoError(t, err)
		require.Empty(t, docs)
	})

	t.Run("ids filter rows", func(t *testing.T) {
		docs, err := s.Query(ctx, task, nil, []any{"t2", "missing"})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		require.Equal(t, "eval", docs[0]["name"])
	})

	t.Run("projection keeps id and normalizes aliases", func(t *testing.T) {
		docs, err := s.Query(ctx, task, []string{"name", "execution.model"}, []any{"t1"})
		require.NoError(t, err)
		want := document.Document{
			"id":        "t1",
			"name":      "train",
			"execution": document.Document{"model_id": "m1"},
		}
		if diff := cmp.Diff(want, docs[0]); diff != "" {
			t.Fatalf("projected document mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("put replaces on id collision", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "Task", document.Document{"id": "t2", "name": "eval2"}))
		docs, err := s.Query(ctx, task, []string{"name"}, []any{"t2"})
		require.NoError(t, err)
		require.Equal(t, "eval2", docs[0]["name"])
	})
}

func TestStorePutRequiresID(t *testing.T) {
	s, _ := testStore(t)
	err := s.Put(context.Background(), "Task", document.Document{"name": "orphan"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no usable id")
}

func TestStoreTypesAreIsolated(t *testing.T) {
	s, r := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "Task", document.Document{"id": "x", "name": "task"}))
	require.NoError(t, s.Put(ctx, "Project", document.Document{"id": "x", "name": "project"}))

	project, ok := r.Lookup("Project")
	require.True(t, ok)
	docs, err := s.Query(ctx, project, nil, []any{"x"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "project", docs[0]["name"])
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}
