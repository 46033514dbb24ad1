package external

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niramay-pgx-server/internal/domain"
)

// fakeEmbedder returns a fixed vector, or the error configured for a key
type fakeEmbedder struct {
	mu     sync.Mutex
	errors map[string]error
	calls  []string
}

func (f *fakeEmbedder) Embed(ctx context.Context, apiKey, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, apiKey)
	if err, ok := f.errors[apiKey]; ok {
		return nil, err
	}
	return []float32{0.5, 0.25}, nil
}

// fakeIndex replays a scripted sequence of query outcomes
type fakeIndex struct {
	mu      sync.Mutex
	results []fakeIndexResult
	queries []VectorQuery
}

type fakeIndexResult struct {
	matches []VectorMatch
	err     error
}

func (f *fakeIndex) Name() string { return "niramay-cpic" }

func (f *fakeIndex) Query(ctx context.Context, query VectorQuery) ([]VectorMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if len(f.results) == 0 {
		return nil, nil
	}
	r := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return r.matches, r.err
}

func passage(text string) []VectorMatch {
	return []VectorMatch{{ID: "m1", Score: 0.9, Metadata: map[string]any{"text": text}}}
}

func fastRetrieval() domain.PineconeConfig {
	return domain.PineconeConfig{MaxRetries: 3, RetryDelay: time.Millisecond}
}

func TestContextRetriever_Success(t *testing.T) {
	embedder := &fakeEmbedder{}
	index := &fakeIndex{results: []fakeIndexResult{{matches: passage("SLCO1B1 transports simvastatin acid.")}}}
	pool := newTestPool(t, "key-a")

	retriever := NewContextRetriever(embedder, index, pool, nil, fastRetrieval(), testLogger())
	text := retriever.RetrieveContext(context.Background(), "simvastatin", "Poor Function")

	assert.Equal(t, "SLCO1B1 transports simvastatin acid.", text)
	require.Len(t, index.queries, 1)
	assert.Equal(t, 1, index.queries[0].TopK)
	assert.True(t, index.queries[0].IncludeMetadata)
	assert.Equal(t, DrugFilter("SIMVASTATIN"), index.queries[0].Filter)
}

func TestContextRetriever_NoMatch(t *testing.T) {
	index := &fakeIndex{results: []fakeIndexResult{{matches: nil}}}
	retriever := NewContextRetriever(&fakeEmbedder{}, index, newTestPool(t, "key-a"), nil, fastRetrieval(), testLogger())

	assert.Empty(t, retriever.RetrieveContext(context.Background(), "CODEINE", "Poor Metabolizer"))
	assert.Len(t, index.queries, 1)
}

func TestContextRetriever_RetriesAreBounded(t *testing.T) {
	failure := fakeIndexResult{err: errors.New("connection reset")}
	index := &fakeIndex{results: []fakeIndexResult{failure}}
	retriever := NewContextRetriever(&fakeEmbedder{}, index, newTestPool(t, "key-a"), nil, fastRetrieval(), testLogger())

	assert.Empty(t, retriever.RetrieveContext(context.Background(), "CODEINE", "Poor Metabolizer"))
	assert.Len(t, index.queries, 3)
}

func TestContextRetriever_RecoversAfterTransientFailure(t *testing.T) {
	index := &fakeIndex{results: []fakeIndexResult{
		{err: errors.New("timeout")},
		{matches: passage("TPMT inactivates thiopurines.")},
	}}
	retriever := NewContextRetriever(&fakeEmbedder{}, index, newTestPool(t, "key-a"), nil, fastRetrieval(), testLogger())

	assert.Equal(t, "TPMT inactivates thiopurines.", retriever.RetrieveContext(context.Background(), "AZATHIOPRINE", "Poor Metabolizer"))
	assert.Len(t, index.queries, 2)
}

func TestContextRetriever_EmbeddingCascade(t *testing.T) {
	embedder := &fakeEmbedder{errors: map[string]error{
		"dead-key": &APIError{Service: "gemini", StatusCode: http.StatusForbidden, Message: "permission denied"},
	}}
	index := &fakeIndex{results: []fakeIndexResult{{matches: passage("DPYD catabolizes fluorouracil.")}}}
	pool := newTestPool(t, "dead-key", "good-key")

	retriever := NewContextRetriever(embedder, index, pool, nil, fastRetrieval(), testLogger())
	text := retriever.RetrieveContext(context.Background(), "FLUOROURACIL", "Poor Metabolizer")

	assert.Equal(t, "DPYD catabolizes fluorouracil.", text)
	// The fatal credential is retired only if it was tried before the good one
	if embedder.calls[0] == "dead-key" {
		assert.Equal(t, 1, pool.LiveCount())
	} else {
		assert.Equal(t, 2, pool.LiveCount())
	}
}

func TestContextRetriever_EmbeddingFailsEverywhere(t *testing.T) {
	embedder := &fakeEmbedder{errors: map[string]error{
		"key-a": errors.New("connection refused"),
		"key-b": &APIError{Service: "gemini", StatusCode: http.StatusUnauthorized, Message: "API key not valid"},
	}}
	index := &fakeIndex{}
	pool := newTestPool(t, "key-a", "key-b")

	retriever := NewContextRetriever(embedder, index, pool, nil, fastRetrieval(), testLogger())

	assert.Empty(t, retriever.RetrieveContext(context.Background(), "WARFARIN", "Poor Metabolizer"))
	assert.Empty(t, index.queries)
	assert.Len(t, embedder.calls, 2)
	assert.Equal(t, 1, pool.LiveCount())
}

func TestContextRetriever_UsesCache(t *testing.T) {
	ctx := context.Background()
	cache := newMemoryCache(t)
	index := &fakeIndex{results: []fakeIndexResult{{matches: passage("CYP2C19 activates clopidogrel.")}}}
	embedder := &fakeEmbedder{}

	retriever := NewContextRetriever(embedder, index, newTestPool(t, "key-a"), cache, fastRetrieval(), testLogger())

	first := retriever.RetrieveContext(ctx, "CLOPIDOGREL", "Poor Metabolizer")
	second := retriever.RetrieveContext(ctx, "clopidogrel", "Poor Metabolizer")

	assert.Equal(t, "CYP2C19 activates clopidogrel.", first)
	assert.Equal(t, first, second)
	assert.Len(t, index.queries, 1)
	assert.Len(t, embedder.calls, 1)
}

func TestContextRetriever_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	embedder := &fakeEmbedder{}
	retriever := NewContextRetriever(embedder, &fakeIndex{}, newTestPool(t, "key-a"), nil, fastRetrieval(), testLogger())

	assert.Empty(t, retriever.RetrieveContext(ctx, "WARFARIN", "Poor Metabolizer"))
	assert.Empty(t, embedder.calls)
}

func TestQueryText(t *testing.T) {
	assert.Equal(t, "CODEINE Poor Metabolizer pharmacogenomic mechanism biological pathway", QueryText("CODEINE", "Poor Metabolizer"))
}
