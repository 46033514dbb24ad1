package domain

import (
	"time"
)

// AnalysisRequest is the input to a single drug-response analysis
type AnalysisRequest struct {
	PatientID string          `json:"patient_id,omitempty"`
	Variants  []VariantRecord `json:"variants"`
	Drugs     []string        `json:"drugs"`
	Quality   *QualityMetrics `json:"quality_metrics,omitempty"`
}

// PerformanceMetrics captures timing for one analysis
type PerformanceMetrics struct {
	TotalSeconds       float64 `json:"total_seconds"`
	MatchingSeconds    float64 `json:"matching_seconds"`
	ExplanationSeconds float64 `json:"explanation_seconds"`
	DrugsAnalyzed      int     `json:"drugs_analyzed"`
	ParallelTasks      int     `json:"parallel_tasks"`
}

// AnalysisResult is the full response for one analysis, verdicts in request order
type AnalysisResult struct {
	PatientID   string             `json:"patient_id"`
	Timestamp   time.Time          `json:"timestamp"`
	Results     []RiskVerdict      `json:"results"`
	Quality     *QualityMetrics    `json:"quality_metrics,omitempty"`
	Performance PerformanceMetrics `json:"performance"`
}

// DrugRiskRequest is the request body accepted by the HTTP and MCP surfaces.
// Exactly one of Variants and VCF must be supplied.
type DrugRiskRequest struct {
	PatientID string          `json:"patient_id,omitempty"`
	Drugs     []string        `json:"drugs"`
	Variants  []VariantRecord `json:"variants,omitempty"`
	VCF       string          `json:"vcf,omitempty"`
}
