// Package app assembles the analysis pipeline from configuration. Both the
// HTTP server and the MCP server are built on the same Pipeline.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/niramay-pgx-server/internal/domain"
	"github.com/niramay-pgx-server/internal/knowledge"
	"github.com/niramay-pgx-server/internal/service"
	"github.com/niramay-pgx-server/pkg/external"
	"github.com/niramay-pgx-server/pkg/vcf"
)

// Pipeline owns every long-lived component of an analysis
type Pipeline struct {
	analyzer *service.AnalyzerService
	parser   *vcf.Parser
	pool     *external.CredentialPool
	index    *external.ResilientVectorIndex
	cache    *external.ContextCache
	logger   *logrus.Logger
}

// NewPipeline wires the knowledge base, credential pool, backend clients,
// context cache and explanation fan-out into an analyzer.
func NewPipeline(cfg *domain.Config, logger *logrus.Logger) (*Pipeline, error) {
	kb, err := knowledge.NewCPICKnowledgeBase()
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge base: %w", err)
	}

	pool, err := external.NewCredentialPool(cfg.Gemini.Credentials(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create credential pool: %w", err)
	}

	cache, err := external.NewContextCache(cfg.Cache, logger)
	if err != nil {
		logger.WithError(err).Warn("Context cache falling back to memory only")
		memoryOnly := cfg.Cache
		memoryOnly.RedisURL = ""
		if cache, err = external.NewContextCache(memoryOnly, logger); err != nil {
			return nil, fmt.Errorf("failed to create context cache: %w", err)
		}
	}

	gemini := external.NewGeminiClient(cfg.Gemini)
	index := external.NewResilientVectorIndex(
		external.NewPineconeClient(cfg.Pinecone),
		external.DefaultCircuitBreakerConfig(),
		logger,
	)

	retriever := external.NewContextRetriever(gemini, index, pool, cache, cfg.Pinecone, logger)
	cascade := external.NewExplanationCascade(gemini, retriever, pool, cfg.Gemini, index.Name(), logger)
	orchestrator := service.NewExplanationOrchestrator(cascade, cfg.Orchestrator.Workers, logger)

	logger.WithFields(logrus.Fields{
		"drugs":       kb.Len(),
		"credentials": pool.Size(),
		"models":      len(cfg.Gemini.Models),
		"index":       index.Name(),
		"workers":     cfg.Orchestrator.Workers,
	}).Info("Analysis pipeline ready")

	return &Pipeline{
		analyzer: service.NewAnalyzerService(service.NewRiskEngine(kb, logger), orchestrator, logger),
		parser:   vcf.NewParser(),
		pool:     pool,
		index:    index,
		cache:    cache,
		logger:   logger,
	}, nil
}

// Analyze runs one analysis
func (p *Pipeline) Analyze(ctx context.Context, req *domain.AnalysisRequest) (*domain.AnalysisResult, error) {
	return p.analyzer.Analyze(ctx, req)
}

// Parser returns the VCF parser used for inline file content
func (p *Pipeline) Parser() *vcf.Parser {
	return p.parser
}

// Status reports credential liveness, breaker state and cache statistics.
// It never calls a backend.
func (p *Pipeline) Status() map[string]interface{} {
	counts := p.index.Counts()
	return map[string]interface{}{
		"credentials": map[string]interface{}{
			"total": p.pool.Size(),
			"live":  p.pool.LiveCount(),
			"pool":  p.pool.Snapshot(),
		},
		"vector_index": map[string]interface{}{
			"name":                 p.index.Name(),
			"circuit_state":        p.index.State().String(),
			"requests":             counts.Requests,
			"consecutive_failures": counts.ConsecutiveFailures,
		},
		"cache": p.cache.Stats(),
	}
}

// Close releases the cache connections
func (p *Pipeline) Close() error {
	return p.cache.Close()
}
