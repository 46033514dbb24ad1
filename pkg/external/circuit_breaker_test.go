package external

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResilientVectorIndex_PassesThrough(t *testing.T) {
	index := &fakeIndex{results: []fakeIndexResult{{matches: passage("text")}}}
	resilient := NewResilientVectorIndex(index, DefaultCircuitBreakerConfig(), testLogger())

	matches, err := resilient.Query(context.Background(), VectorQuery{TopK: 1})
	require.NoError(t, err)
	assert.Equal(t, "text", matches[0].Text())
	assert.Equal(t, "niramay-cpic", resilient.Name())
	assert.Equal(t, gobreaker.StateClosed, resilient.State())
}

func TestResilientVectorIndex_OpensAfterFailures(t *testing.T) {
	index := &fakeIndex{results: []fakeIndexResult{{err: errors.New("unavailable")}}}
	config := CircuitBreakerConfig{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		MinRequests:  3,
		FailureRatio: 0.6,
	}
	resilient := NewResilientVectorIndex(index, config, testLogger())

	for i := 0; i < 3; i++ {
		_, err := resilient.Query(context.Background(), VectorQuery{TopK: 1})
		assert.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, resilient.State())

	_, err := resilient.Query(context.Background(), VectorQuery{TopK: 1})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Len(t, index.queries, 3)
}

func TestContextRetriever_DoesNotRetryOpenBreaker(t *testing.T) {
	index := &fakeIndex{results: []fakeIndexResult{{err: errors.New("unavailable")}}}
	config := CircuitBreakerConfig{MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, MinRequests: 1, FailureRatio: 0.5}
	resilient := NewResilientVectorIndex(index, config, testLogger())

	retriever := NewContextRetriever(&fakeEmbedder{}, resilient, newTestPool(t, "key-a"), nil, fastRetrieval(), testLogger())

	assert.Empty(t, retriever.RetrieveContext(context.Background(), "WARFARIN", "Poor Metabolizer"))
	// First attempt trips the breaker; the second is rejected without reaching the index and ends retries
	assert.Len(t, index.queries, 1)
}
