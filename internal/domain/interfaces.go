package domain

import (
	"context"
)

// RiskEvaluator maps a patient's variants to one verdict per requested drug
type RiskEvaluator interface {
	EvaluateRisk(variants VariantSet, drugs []string) []RiskVerdict
}

// ExplanationGenerator produces a biological explanation for one drug verdict.
// Implementations never fail; exhaustion is reported through Explanation.Error.
type ExplanationGenerator interface {
	GenerateExplanation(ctx context.Context, drug, gene, phenotype, diplotype string) *Explanation
}

// ContextRetriever obtains grounding text for a drug and phenotype.
// An empty string means no context could be found.
type ContextRetriever interface {
	RetrieveContext(ctx context.Context, drug, phenotype string) string
}

// Analyzer runs a complete drug-response analysis
type Analyzer interface {
	Analyze(ctx context.Context, req *AnalysisRequest) (*AnalysisResult, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetGeminiConfig() *GeminiConfig
	GetPineconeConfig() *PineconeConfig
	GetCacheConfig() *CacheConfig
	Validate() error
	IsProduction() bool
	IsDevelopment() bool
}
