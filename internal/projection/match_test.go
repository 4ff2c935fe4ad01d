package projection

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/skaldby/projoin/internal/document"
)

func TestMatcherSearch(t *testing.T) {
	task := lookupType(t, testTypes(t), "Task")

	t.Run("exact path", func(t *testing.T) {
		m := newMatcher()
		obj := document.Document{"project": "p1", "name": "t"}
		got := m.search(task, obj, "project", nil)
		require.Equal(t, []any{"p1"}, got)
	})

	t.Run("zero matches", func(t *testing.T) {
		m := newMatcher()
		obj := document.Document{"name": "t"}
		require.Empty(t, m.search(task, obj, "project", nil))
	})

	t.Run("wildcard expands sequences and maps", func(t *testing.T) {
		m := newMatcher()
		obj := document.Document{
			"execution": document.Document{
				"steps": []any{
					document.Document{"status": "done"},
					document.Document{"status": "queued"},
				},
			},
		}
		got := m.search(task, obj, "execution.steps.*.status", nil)
		require.Equal(t, []any{"done", "queued"}, got)
	})

	t.Run("path normalization applies aliases", func(t *testing.T) {
		m := newMatcher()
		obj := document.Document{
			"execution": document.Document{"model_id": "m1"},
		}
		got := m.search(task, obj, "execution.model", nil)
		require.Equal(t, []any{"m1"}, got)
	})

	t.Run("replace overwrites the matched slot", func(t *testing.T) {
		m := newMatcher()
		obj := document.Document{"project": "p1"}
		got := m.search(task, obj, "project", func(v any) any {
			return document.Document{"id": v}
		})
		// The original value is returned; the slot holds the replacement.
		require.Equal(t, []any{"p1"}, got)
		want := document.Document{"project": document.Document{"id": "p1"}}
		if diff := cmp.Diff(want, obj); diff != "" {
			t.Fatalf("document after replace mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("replace inside a sequence", func(t *testing.T) {
		m := newMatcher()
		obj := document.Document{"runs": []any{
			document.Document{"model": "m1"},
			document.Document{"model": "m2"},
		}}
		m.search(task, obj, "runs.*.model", func(v any) any { return "seen:" + v.(string) })
		require.Equal(t, "seen:m1", obj["runs"].([]any)[0].(document.Document)["model"])
		require.Equal(t, "seen:m2", obj["runs"].([]any)[1].(document.Document)["model"])
	})

	t.Run("skeleton is cached per object identity", func(t *testing.T) {
		m := newMatcher()
		obj := document.Document{"project": "p1", "name": "t"}
		m.search(task, obj, "project", nil)
		require.Len(t, m.cache, 1)
		m.search(task, obj, "name", nil)
		require.Len(t, m.cache, 1)

		other := document.Document{"project": "p2"}
		m.search(task, other, "project", nil)
		require.Len(t, m.cache, 2)
	})

	t.Run("numeric segment addresses one element", func(t *testing.T) {
		m := newMatcher()
		obj := document.Document{"tags": []any{"a", "b"}}
		got := m.search(task, obj, "tags.1", nil)
		require.Equal(t, []any{"b"}, got)
	})
}
