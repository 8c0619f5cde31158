// Package qdrant provides a vector index adapter backed by a Qdrant
// server, talking to its REST API directly.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/finlight-labs/reportkb-cli/internal/core/domain"
	"github.com/finlight-labs/reportkb-cli/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Default configuration values.
const (
	DefaultURL        = "http://localhost:6333"
	DefaultCollection = "annual_reports"
	DefaultTimeout    = 60 * time.Second
)

// Reserved payload keys used for chunk fields. Metadata keys are
// namespaced with doc_/chunk_ prefixes, so they cannot collide.
const (
	payloadContent = "content"
	payloadSource  = "source"
	payloadStart   = "start"
	payloadEnd     = "end"
	payloadPage    = "page"
	payloadSection = "section"
	payloadOrdinal = "ordinal"
)

// Config holds configuration for the Qdrant index.
type Config struct {
	// URL is the Qdrant server address (default: http://localhost:6333).
	URL string

	// Collection is the collection name (default: annual_reports).
	Collection string

	// APIKey authenticates requests. Empty for unsecured servers.
	APIKey string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration
}

// Index is a Qdrant-backed driven.VectorIndex.
type Index struct {
	client     *http.Client
	embedder   driven.EmbeddingService
	baseURL    string
	collection string
	apiKey     string
}

type upsertRequest struct {
	Points []point `json:"points"`
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
	Filter      *filter   `json:"filter,omitempty"`
}

type filter struct {
	Must []condition `json:"must"`
}

type condition struct {
	Key   string `json:"key"`
	Match match  `json:"match"`
}

type match struct {
	Value any `json:"value"`
}

type searchResponse struct {
	Result []struct {
		ID      string         `json:"id"`
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

type collectionInfoResponse struct {
	Result struct {
		PointsCount int64 `json:"points_count"`
		Config      struct {
			Params struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

// NewIndex creates a Qdrant index and ensures the collection exists
// with cosine distance and the embedder's dimension.
func NewIndex(ctx context.Context, cfg Config, embedder driven.EmbeddingService) (*Index, error) {
	if embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	x := &Index{
		client:     &http.Client{Timeout: cfg.Timeout},
		embedder:   embedder,
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		collection: cfg.Collection,
		apiKey:     cfg.APIKey,
	}

	if err := x.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return x, nil
}

// ensureCollection creates the collection if it does not exist yet.
func (x *Index) ensureCollection(ctx context.Context) error {
	status, _, err := x.do(ctx, http.MethodGet, "/collections/"+x.collection, nil)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if status == http.StatusOK {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     x.embedder.Dimensions(),
			"distance": "Cosine",
		},
	}
	status, respBody, err := x.do(ctx, http.MethodPut, "/collections/"+x.collection, body)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("create collection: qdrant returned status %d: %s", status, respBody)
	}
	return nil
}

// Add embeds and upserts a batch of chunks. Qdrant applies the whole
// upsert atomically, which gives the all-or-nothing batch guarantee.
func (x *Index) Add(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := x.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: embed batch: %v", domain.ErrIndexWrite, err)
	}

	points := make([]point, len(chunks))
	for i, chunk := range chunks {
		payload := map[string]any{
			payloadContent: chunk.Content,
			payloadSource:  chunk.Source,
			payloadStart:   chunk.Start,
			payloadEnd:     chunk.End,
			payloadPage:    chunk.Page,
			payloadSection: chunk.Section,
			payloadOrdinal: chunk.Ordinal,
		}
		for key, value := range chunk.Metadata {
			payload[key] = value
		}
		points[i] = point{
			ID:      chunk.ID,
			Vector:  vectors[i],
			Payload: payload,
		}
	}

	status, respBody, err := x.do(ctx, http.MethodPut,
		"/collections/"+x.collection+"/points?wait=true",
		upsertRequest{Points: points})
	if err != nil {
		return fmt.Errorf("%w: upsert points: %v", domain.ErrIndexWrite, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: qdrant returned status %d: %s", domain.ErrIndexWrite, status, respBody)
	}
	return nil
}

// Search embeds the query and runs a filtered similarity search.
func (x *Index) Search(ctx context.Context, query string, k int, filterBy map[string]any) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	queryVec, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	req := searchRequest{
		Vector:      queryVec,
		Limit:       k,
		WithPayload: true,
	}
	if len(filterBy) > 0 {
		must := make([]condition, 0, len(filterBy))
		for key, value := range filterBy {
			must = append(must, condition{Key: key, Match: match{Value: value}})
		}
		req.Filter = &filter{Must: must}
	}

	status, respBody, err := x.do(ctx, http.MethodPost,
		"/collections/"+x.collection+"/points/search", req)
	if err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("search points: qdrant returned status %d: %s", status, respBody)
	}

	var searchResp searchResponse
	if err := json.Unmarshal(respBody, &searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]domain.ScoredChunk, 0, len(searchResp.Result))
	for _, hit := range searchResp.Result {
		results = append(results, domain.ScoredChunk{
			Chunk: chunkFromPayload(hit.ID, hit.Payload),
			Score: hit.Score,
		})
	}
	return results, nil
}

// Stats reports the collection's point count and vector dimension.
func (x *Index) Stats(ctx context.Context) (*domain.IndexStats, error) {
	status, respBody, err := x.do(ctx, http.MethodGet, "/collections/"+x.collection, nil)
	if err != nil {
		return nil, fmt.Errorf("collection info: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("collection info: qdrant returned status %d: %s", status, respBody)
	}

	var info collectionInfoResponse
	if err := json.Unmarshal(respBody, &info); err != nil {
		return nil, fmt.Errorf("decode collection info: %w", err)
	}

	dim := info.Result.Config.Params.Vectors.Size
	if dim == 0 {
		dim = x.embedder.Dimensions()
	}
	return &domain.IndexStats{
		RowCount:  info.Result.PointsCount,
		Dimension: dim,
	}, nil
}

// Close releases resources.
func (x *Index) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}

// do sends one JSON request and returns status and body.
func (x *Index) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, x.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if x.apiKey != "" {
		req.Header.Set("api-key", x.apiKey)
	}

	resp, err := x.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// chunkFromPayload rebuilds a chunk from a search hit. Reserved keys
// become struct fields; everything else goes back into Metadata.
func chunkFromPayload(id string, payload map[string]any) domain.Chunk {
	chunk := domain.Chunk{ID: id}
	metadata := make(map[string]any)

	for key, value := range payload {
		switch key {
		case payloadContent:
			chunk.Content, _ = value.(string)
		case payloadSource:
			chunk.Source, _ = value.(string)
		case payloadStart:
			chunk.Start = asInt(value)
		case payloadEnd:
			chunk.End = asInt(value)
		case payloadPage:
			chunk.Page = asInt(value)
		case payloadSection:
			chunk.Section, _ = value.(string)
		case payloadOrdinal:
			chunk.Ordinal = asInt(value)
		default:
			metadata[key] = value
		}
	}

	if len(metadata) > 0 {
		chunk.Metadata = metadata
	}
	return chunk
}

// asInt converts the float64 JSON numbers decode to.
func asInt(value any) int {
	switch v := value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}
