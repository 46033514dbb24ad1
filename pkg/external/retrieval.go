package external

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/niramay-pgx-server/internal/domain"
	"github.com/niramay-pgx-server/internal/logging"
)

const (
	defaultRetrievalAttempts = 3
	defaultRetryDelay        = 500 * time.Millisecond
)

// ContextRetriever finds the single most relevant guideline passage for a drug
// and phenotype. Every failure path yields "" rather than an error.
type ContextRetriever struct {
	embedder    Embedder
	index       VectorIndex
	credentials CredentialSource
	cache       *ContextCache
	maxAttempts int
	retryDelay  time.Duration
	logger      *logrus.Logger
}

// NewContextRetriever creates a retriever. cache may be nil.
func NewContextRetriever(
	embedder Embedder,
	index VectorIndex,
	credentials CredentialSource,
	cache *ContextCache,
	config domain.PineconeConfig,
	logger *logrus.Logger,
) *ContextRetriever {
	attempts := config.MaxRetries
	if attempts <= 0 {
		attempts = defaultRetrievalAttempts
	}
	delay := config.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}

	return &ContextRetriever{
		embedder:    embedder,
		index:       index,
		credentials: credentials,
		cache:       cache,
		maxAttempts: attempts,
		retryDelay:  delay,
		logger:      logger,
	}
}

// QueryText builds the semantic search text for a drug and phenotype
func QueryText(drug, phenotype string) string {
	return fmt.Sprintf("%s %s pharmacogenomic mechanism biological pathway", drug, phenotype)
}

// RetrieveContext returns the best matching passage or "" when none is available
func (r *ContextRetriever) RetrieveContext(ctx context.Context, drug, phenotype string) string {
	drug = domain.NormalizeDrugName(drug)
	logger := logging.FromContext(ctx, r.logger).WithFields(logrus.Fields{
		"drug":      drug,
		"phenotype": phenotype,
	})

	if r.cache != nil {
		if text, ok := r.cache.Get(ctx, drug, phenotype); ok {
			logger.Debug("Retrieval context served from cache")
			return text
		}
	}

	vector, ok := r.embed(ctx, QueryText(drug, phenotype), logger)
	if !ok {
		return ""
	}

	query := VectorQuery{
		Vector:          vector,
		TopK:            1,
		IncludeMetadata: true,
		Filter:          DrugFilter(drug),
	}

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		matches, err := r.index.Query(ctx, query)
		if err == nil {
			if len(matches) == 0 || matches[0].Text() == "" {
				logger.Info("No vector index match for drug")
				return ""
			}
			logger.WithField("score", matches[0].Score).Info("Vector index hit")
			if r.cache != nil {
				r.cache.Set(ctx, drug, phenotype, matches[0].Text())
			}
			return matches[0].Text()
		}

		logger.WithError(err).WithField("attempt", attempt).Warn("Vector index query failed")
		if !retryable(ctx, err) || attempt == r.maxAttempts {
			break
		}

		select {
		case <-time.After(r.retryDelay):
		case <-ctx.Done():
			return ""
		}
	}

	logger.Warn("Retrieval exhausted, continuing without context")
	return ""
}

// embed runs the credential cascade: the first credential that produces a
// vector wins and credential-fatal failures retire the credential.
func (r *ContextRetriever) embed(ctx context.Context, text string, logger *logrus.Entry) ([]float32, bool) {
	for _, cred := range r.credentials.LiveCredentials() {
		if ctx.Err() != nil {
			return nil, false
		}

		vector, err := r.embedder.Embed(ctx, cred.Key, text)
		if err == nil {
			return vector, true
		}

		if IsCredentialFatal(err) {
			r.credentials.MarkDead(cred.Index, err.Error())
		}
		logger.WithError(err).WithField("credential_index", cred.Index).Warn("Embedding failed")
	}

	logger.Warn("Embedding failed for every credential")
	return nil, false
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, gobreaker.ErrTooManyRequests)
}
