package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/niramay-pgx-server/internal/domain"
	"github.com/niramay-pgx-server/internal/logging"
)

// MaxDrugsPerRequest bounds the number of distinct drugs in one analysis
const MaxDrugsPerRequest = 50

// ExplanationAttacher attaches explanations to verdicts in place
type ExplanationAttacher interface {
	Attach(ctx context.Context, verdicts []domain.RiskVerdict) int
}

// AnalyzerService runs the full pipeline: deterministic matching first, then
// concurrent explanation generation for the verdicts that carry a profile.
type AnalyzerService struct {
	logger    *logrus.Logger
	evaluator domain.RiskEvaluator
	explainer ExplanationAttacher
}

// NewAnalyzerService creates a new analyzer service
func NewAnalyzerService(evaluator domain.RiskEvaluator, explainer ExplanationAttacher, logger *logrus.Logger) *AnalyzerService {
	return &AnalyzerService{
		logger:    logger,
		evaluator: evaluator,
		explainer: explainer,
	}
}

// Analyze evaluates every requested drug against the patient's variants.
// Only invalid input and matcher faults are returned as errors; explanation
// failures are reported on the affected verdicts.
func (s *AnalyzerService) Analyze(ctx context.Context, req *domain.AnalysisRequest) (*domain.AnalysisResult, error) {
	startTime := time.Now()

	if req == nil {
		return nil, domain.NewValidationError("request", "request is required", nil)
	}

	drugs, err := normalizeDrugs(req.Drugs)
	if err != nil {
		return nil, err
	}

	patientID := strings.TrimSpace(req.PatientID)
	if patientID == "" {
		patientID = uuid.NewString()
	}

	logger := logging.FromContext(ctx, s.logger).WithFields(logrus.Fields{
		"patient_id": patientID,
		"drugs":      len(drugs),
		"variants":   len(req.Variants),
	})
	logger.Info("Starting pharmacogenomic analysis")

	// Step 1: Deterministic matching
	matchStart := time.Now()
	verdicts, err := s.evaluate(domain.NewVariantSet(req.Variants), drugs)
	if err != nil {
		logger.WithError(err).Error("Variant matching failed")
		return nil, err
	}
	matchingSeconds := time.Since(matchStart).Seconds()

	// Step 2: Concurrent explanation generation
	explainStart := time.Now()
	tasks := s.explainer.Attach(ctx, verdicts)
	explanationSeconds := time.Since(explainStart).Seconds()

	result := &domain.AnalysisResult{
		PatientID: patientID,
		Timestamp: time.Now().UTC(),
		Results:   verdicts,
		Quality:   req.Quality,
		Performance: domain.PerformanceMetrics{
			TotalSeconds:       time.Since(startTime).Seconds(),
			MatchingSeconds:    matchingSeconds,
			ExplanationSeconds: explanationSeconds,
			DrugsAnalyzed:      len(verdicts),
			ParallelTasks:      tasks,
		},
	}

	logger.WithFields(logrus.Fields{
		"parallel_tasks":      tasks,
		"degraded":            countDegraded(verdicts),
		"matching_seconds":    matchingSeconds,
		"explanation_seconds": explanationSeconds,
		"total_seconds":       result.Performance.TotalSeconds,
	}).Info("Pharmacogenomic analysis completed")

	return result, nil
}

// evaluate runs the matcher, converting a panic into a matching error
func (s *AnalyzerService) evaluate(variants domain.VariantSet, drugs []string) (verdicts []domain.RiskVerdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			verdicts = nil
			err = domain.NewPGxError(domain.ErrMatching, "variant matching failed", fmt.Sprint(r), "")
		}
	}()

	verdicts = s.evaluator.EvaluateRisk(variants, drugs)
	if len(verdicts) != len(drugs) {
		return nil, domain.NewPGxError(domain.ErrMatching, "variant matching returned an inconsistent result",
			fmt.Sprintf("expected %d verdicts, got %d", len(drugs), len(verdicts)), "")
	}
	return verdicts, nil
}

// normalizeDrugs upper-cases drug names and drops blanks and repeats, keeping
// the first occurrence of each name
func normalizeDrugs(drugs []string) ([]string, error) {
	seen := make(map[string]struct{}, len(drugs))
	normalized := make([]string, 0, len(drugs))
	for _, d := range drugs {
		name := domain.NormalizeDrugName(d)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		normalized = append(normalized, name)
	}

	if len(normalized) == 0 {
		return nil, domain.NewValidationError("drugs", "at least one drug is required", drugs)
	}
	if len(normalized) > MaxDrugsPerRequest {
		return nil, domain.NewValidationError("drugs", fmt.Sprintf("at most %d drugs are allowed", MaxDrugsPerRequest), len(normalized))
	}
	return normalized, nil
}

func countDegraded(verdicts []domain.RiskVerdict) int {
	count := 0
	for i := range verdicts {
		if verdicts[i].Explanation.IsDegraded() {
			count++
		}
	}
	return count
}
