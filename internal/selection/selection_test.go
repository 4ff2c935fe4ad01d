package selection

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPaths(t *testing.T) {
	t.Run("flat fields", func(t *testing.T) {
		got, err := Paths("{ id name }")
		require.NoError(t, err)
		require.Equal(t, []string{"id", "name"}, got)
	})

	t.Run("nested fields become dotted paths", func(t *testing.T) {
		got, err := Paths("{ name project { name description } }")
		require.NoError(t, err)
		require.Equal(t, []string{"name", "project.name", "project.description"}, got)
	})

	t.Run("deep nesting", func(t *testing.T) {
		got, err := Paths("{ execution { model { uri } } }")
		require.NoError(t, err)
		require.Equal(t, []string{"execution.model.uri"}, got)
	})

	t.Run("braces are optional", func(t *testing.T) {
		got, err := Paths("id name")
		require.NoError(t, err)
		require.Equal(t, []string{"id", "name"}, got)
	})

	t.Run("syntax error", func(t *testing.T) {
		_, err := Paths("{ name")
		require.Error(t, err)
	})

	t.Run("aliases are rejected", func(t *testing.T) {
		_, err := Paths("{ n: name }")
		require.Error(t, err)
		require.Contains(t, err.Error(), "alias")
	})

	t.Run("arguments are rejected", func(t *testing.T) {
		_, err := Paths(`{ name(first: 1) }`)
		require.Error(t, err)
	})

	t.Run("fragments are rejected", func(t *testing.T) {
		_, err := Paths("{ ...frag }")
		require.Error(t, err)
	})
}
