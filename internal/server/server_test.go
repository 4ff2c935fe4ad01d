package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/skaldby/projoin/internal/document"
	"github.com/skaldby/projoin/internal/schema"
	"github.com/skaldby/projoin/internal/storage/sqlite"
)

func testHandler(t *testing.T) *Handler {
	t.Helper()
	reg, err := schema.NewRegistry(
		schema.Definition{
			Name:       "Task",
			Fields:     []string{"id", "name", "project"},
			References: map[string]string{"project": "Project"},
		},
		schema.Definition{Name: "Project", Fields: []string{"id", "name", "description"}},
	)
	require.NoError(t, err)

	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "Task", document.Document{"id": "t1", "name": "train", "project": "p1"}))
	require.NoError(t, store.Put(ctx, "Task", document.Document{"id": "t2", "name": "eval", "project": "p1"}))
	require.NoError(t, store.Put(ctx, "Project", document.Document{"id": "p1", "name": "ProjA", "description": "d"}))

	return New(reg, store)
}

func post(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, ProjectResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/project", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var res ProjectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return rec, res
}

func TestHandlerProject(t *testing.T) {
	h := testHandler(t)

	t.Run("joins referenced documents", func(t *testing.T) {
		rec, res := post(t, h, `{"type": "Task", "projection": ["name", "project.name"]}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, res.Error)
		require.Len(t, res.Data, 2)

		want := document.Document{
			"id":      "t1",
			"name":    "train",
			"project": document.Document{"id": "p1", "name": "ProjA"},
		}
		if diff := cmp.Diff(want, res.Data[0]); diff != "" {
			t.Fatalf("joined document mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("selection query form", func(t *testing.T) {
		rec, res := post(t, h, `{"type": "Task", "query": "{ name project { name } }", "ids": ["t2"]}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, res.Data, 1)
		require.Equal(t, "eval", res.Data[0]["name"])
		require.Equal(t, "ProjA", res.Data[0]["project"].(map[string]any)["name"])
	})

	t.Run("expand reference ids", func(t *testing.T) {
		rec, res := post(t, h, `{"type": "Task", "projection": ["*"], "ids": ["t1"], "expand_reference_ids": true}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, map[string]any{"id": "p1"}, res.Data[0]["project"])
	})

	t.Run("empty result set", func(t *testing.T) {
		rec, res := post(t, h, `{"type": "Task", "projection": ["name"], "ids": ["nope"]}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, res.Data)
		require.Empty(t, res.Error)
	})
}

func TestHandlerErrors(t *testing.T) {
	h := testHandler(t)

	t.Run("unknown type", func(t *testing.T) {
		rec, res := post(t, h, `{"type": "Nope", "projection": ["name"]}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, res.Error, `unknown document type "Nope"`)
	})

	t.Run("invalid projection field", func(t *testing.T) {
		rec, res := post(t, h, `{"type": "Task", "projection": ["bogus.field"]}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, res.Error, "bogus.field")
	})

	t.Run("projection and query are exclusive", func(t *testing.T) {
		rec, _ := post(t, h, `{"type": "Task", "projection": ["name"], "query": "{ name }"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing type", func(t *testing.T) {
		rec, _ := post(t, h, `{"projection": ["name"]}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec, _ := post(t, h, `{`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/project", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("unknown path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/nope", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("body over the limit", func(t *testing.T) {
		limited := New(h.registry, h.exec, WithMaxBodyBytes(8))
		rec, _ := post(t, limited, `{"type": "Task", "projection": ["name"]}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
