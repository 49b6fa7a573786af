package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Indexer is the port to the external full-text index. The relational
// store is authoritative; documents here are a derived projection.
type Indexer interface {
	// Index upserts a document under the collection, keyed by entity id.
	Index(ctx context.Context, index string, id uint, fields map[string]interface{}) error
	// Delete removes a document. Removing a missing document is not an error.
	Delete(ctx context.Context, index string, id uint) error
	// Query runs a relevance-ranked multi-field free-text query, offset
	// paginated. Returns matching ids in descending relevance order and
	// the total match count.
	Query(ctx context.Context, index, query string, page, perPage int) ([]uint, int64, error)
}

// Elastic implements Indexer against Elasticsearch. A nil client means no
// backend is configured: every operation degrades to a no-op (queries
// return no hits) so the application runs fully without search.
type Elastic struct {
	client *elasticsearch.Client
}

// NewElastic builds the adapter. An empty URL yields a disabled adapter,
// which is a normal operating mode, not an error.
func NewElastic(url string) (*Elastic, error) {
	if url == "" {
		return &Elastic{}, nil
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	return &Elastic{client: client}, nil
}

// Enabled reports whether a search backend is configured.
func (e *Elastic) Enabled() bool {
	return e.client != nil
}

func (e *Elastic) Index(ctx context.Context, index string, id uint, fields map[string]interface{}) error {
	if !e.Enabled() {
		return nil
	}

	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	res, err := e.client.Index(
		index,
		bytes.NewReader(payload),
		e.client.Index.WithDocumentID(docID(id)),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index %s/%d: %w", index, id, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("index", index, id, res)
	}
	return nil
}

func (e *Elastic) Delete(ctx context.Context, index string, id uint) error {
	if !e.Enabled() {
		return nil
	}

	res, err := e.client.Delete(
		index,
		docID(id),
		e.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete %s/%d: %w", index, id, err)
	}
	defer res.Body.Close()

	// The document may already be gone; that satisfies the contract.
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete", index, id, res)
	}
	return nil
}

func (e *Elastic) Query(ctx context.Context, index, query string, page, perPage int) ([]uint, int64, error) {
	if !e.Enabled() {
		return []uint{}, 0, nil
	}

	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"*"},
			},
		},
		"from": (page - 1) * perPage,
		"size": perPage,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(index),
		e.client.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("search %s: %w", index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, 0, fmt.Errorf("search %s: %s", index, res.String())
	}

	var result struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, 0, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]uint, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		id, err := strconv.ParseUint(hit.ID, 10, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("non-numeric document id %q in %s", hit.ID, index)
		}
		ids = append(ids, uint(id))
	}
	return ids, result.Hits.Total.Value, nil
}

func docID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func responseError(op, index string, id uint, res *esapi.Response) error {
	detail, _ := io.ReadAll(res.Body)
	return fmt.Errorf("%s %s/%d: status %d: %s", op, index, id, res.StatusCode, string(detail))
}
