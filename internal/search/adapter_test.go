package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFakeES serves canned Elasticsearch responses. The product header is
// required or the v8 client refuses to talk to the server.
func newFakeES(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestElastic_DisabledIsNoOp(t *testing.T) {
	t.Parallel()

	es, err := NewElastic("")
	require.NoError(t, err)
	assert.False(t, es.Enabled())

	ctx := context.Background()
	assert.NoError(t, es.Index(ctx, "posts", 1, map[string]interface{}{"body": "x"}))
	assert.NoError(t, es.Delete(ctx, "posts", 1))

	ids, total, err := es.Query(ctx, "posts", "anything", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Zero(t, total)
}

func TestElastic_QueryParsesRankedIDs(t *testing.T) {
	t.Parallel()

	server := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/posts/_search", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"hits": {
				"total": {"value": 42},
				"hits": [{"_id": "7"}, {"_id": "3"}, {"_id": "9"}]
			}
		}`))
	})

	es, err := NewElastic(server.URL)
	require.NoError(t, err)

	ids, total, err := es.Query(context.Background(), "posts", "hello", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{7, 3, 9}, ids)
	assert.Equal(t, int64(42), total)
}

func TestElastic_IndexSendsDocument(t *testing.T) {
	t.Parallel()

	var gotPath string
	server := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result": "created"}`))
	})

	es, err := NewElastic(server.URL)
	require.NoError(t, err)

	err = es.Index(context.Background(), "posts", 5, map[string]interface{}{"body": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "/posts/_doc/5", gotPath)
}

func TestElastic_DeleteToleratesMissing(t *testing.T) {
	t.Parallel()

	server := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"result": "not_found"}`))
	})

	es, err := NewElastic(server.URL)
	require.NoError(t, err)

	assert.NoError(t, es.Delete(context.Background(), "posts", 99))
}

func TestElastic_IndexSurfacesServerError(t *testing.T) {
	t.Parallel()

	server := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "shard failure"}`))
	})

	es, err := NewElastic(server.URL)
	require.NoError(t, err)

	err = es.Index(context.Background(), "posts", 5, map[string]interface{}{"body": "hello"})
	assert.Error(t, err)
}
