package document

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestSplitJoinPath(t *testing.T) {
	require.Equal(t, []string{"a", "b", "c"}, SplitPath("a.b.c"))
	require.Equal(t, []string{"a"}, SplitPath(".a."))
	require.Equal(t, "a.b", JoinPath("a", "b"))
}

func TestFalsy(t *testing.T) {
	for _, v := range []any{nil, "", 0, int64(0), float64(0), false} {
		require.True(t, Falsy(v), "%#v should be falsy", v)
	}
	for _, v := range []any{"p1", 1, int64(2), 0.5, true, []any{}} {
		require.False(t, Falsy(v), "%#v should not be falsy", v)
	}
}

func TestComparableID(t *testing.T) {
	require.True(t, ComparableID("x"))
	require.True(t, ComparableID(float64(3)))
	require.False(t, ComparableID(nil))
	require.False(t, ComparableID([]any{"x"}))
	require.False(t, ComparableID(Document{}))
}

func TestSegmentString(t *testing.T) {
	require.Equal(t, "name", SegmentString("name"))
	require.Equal(t, "3", SegmentString(3))
}

func TestMergeIsShallow(t *testing.T) {
	nested := Document{"deep": true}
	dst := Document{"a": 1}
	Merge(dst, Document{"a": 2, "b": nested})

	want := Document{"a": 2, "b": Document{"deep": true}}
	if diff := cmp.Diff(want, dst); diff != "" {
		t.Fatalf("merged document mismatch (-want +got):\n%s", diff)
	}
	// Nested values are shared, not cloned.
	nested["deep"] = false
	require.Equal(t, false, dst["b"].(Document)["deep"])
}

func TestID(t *testing.T) {
	id, ok := ID(Document{"id": "t1"})
	require.True(t, ok)
	require.Equal(t, "t1", id)

	_, ok = ID(Document{"name": "x"})
	require.False(t, ok)

	_, ok = ID(Document{"id": []any{"t1"}})
	require.False(t, ok)
}
