package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/niramay-pgx-server/internal/domain"
)

// MockExplanationGenerator is a mock implementation of the ExplanationGenerator interface
type MockExplanationGenerator struct {
	mock.Mock
}

func (m *MockExplanationGenerator) GenerateExplanation(ctx context.Context, drug, gene, phenotype, diplotype string) *domain.Explanation {
	args := m.Called(ctx, drug, gene, phenotype, diplotype)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*domain.Explanation)
}

type panickingEvaluator struct{}

func (panickingEvaluator) EvaluateRisk(domain.VariantSet, []string) []domain.RiskVerdict {
	panic("corrupted knowledge base")
}

type truncatingEvaluator struct{}

func (truncatingEvaluator) EvaluateRisk(domain.VariantSet, []string) []domain.RiskVerdict {
	return nil
}

func newTestAnalyzer(t *testing.T, gen domain.ExplanationGenerator) *AnalyzerService {
	t.Helper()
	logger := newTestLogger()
	return NewAnalyzerService(newCPICEngine(t), NewExplanationOrchestrator(gen, 4, logger), logger)
}

func TestAnalyzerService_Analyze(t *testing.T) {
	gen := new(MockExplanationGenerator)
	gen.On("GenerateExplanation", mock.Anything, "SIMVASTATIN", "SLCO1B1", "Poor Function", "*5/*5").
		Return(&domain.Explanation{Summary: "SLCO1B1 narrative", ModelUsed: "gemini-2.5-flash"})
	gen.On("GenerateExplanation", mock.Anything, "WARFARIN", "CYP2C9", "Normal Metabolizer", "*1/*1").
		Return(&domain.Explanation{Summary: "CYP2C9 narrative", ModelUsed: "gemini-2.5-flash"})

	analyzer := newTestAnalyzer(t, gen)
	quality := &domain.QualityMetrics{TotalRecords: 3, RecordsWithID: 2}

	result, err := analyzer.Analyze(context.Background(), &domain.AnalysisRequest{
		PatientID: "PATIENT_001",
		Variants:  []domain.VariantRecord{{ID: "rs4149056", Chromosome: "12", Position: 21331549}},
		Drugs:     []string{"simvastatin", "UnknownDrug", "warfarin"},
		Quality:   quality,
	})

	require.NoError(t, err)
	assert.Equal(t, "PATIENT_001", result.PatientID)
	assert.False(t, result.Timestamp.IsZero())
	assert.Same(t, quality, result.Quality)
	require.Len(t, result.Results, 3)

	assert.Equal(t, "SIMVASTATIN", result.Results[0].Drug)
	assert.Equal(t, "Toxic", result.Results[0].Risk.RiskLabel)
	assert.Equal(t, "SLCO1B1 narrative", result.Results[0].Explanation.Summary)

	assert.Equal(t, "UNKNOWNDRUG", result.Results[1].Drug)
	assert.Equal(t, domain.RiskLabelUnknown, result.Results[1].Risk.RiskLabel)
	assert.Nil(t, result.Results[1].Explanation)

	assert.Equal(t, "WARFARIN", result.Results[2].Drug)
	assert.Equal(t, "CYP2C9 narrative", result.Results[2].Explanation.Summary)

	assert.Equal(t, 3, result.Performance.DrugsAnalyzed)
	assert.Equal(t, 2, result.Performance.ParallelTasks)
	assert.GreaterOrEqual(t, result.Performance.TotalSeconds, result.Performance.MatchingSeconds)
	gen.AssertExpectations(t)
}

func TestAnalyzerService_DegradedExplanationDoesNotFailBatch(t *testing.T) {
	gen := new(MockExplanationGenerator)
	gen.On("GenerateExplanation", mock.Anything, "CODEINE", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.Explanation{Summary: "unavailable", ModelUsed: "FALLBACK_NONE", Error: "All generation models exhausted."})
	gen.On("GenerateExplanation", mock.Anything, "CLOPIDOGREL", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.Explanation{Summary: "CYP2C19 narrative", ModelUsed: "gemini-2.5-flash"})

	result, err := newTestAnalyzer(t, gen).Analyze(context.Background(), &domain.AnalysisRequest{
		Variants: []domain.VariantRecord{{ID: "rs3892097"}, {ID: "rs4244285"}},
		Drugs:    []string{"CODEINE", "CLOPIDOGREL"},
	})

	require.NoError(t, err)
	require.Len(t, result.Results, 2)
	assert.True(t, result.Results[0].Explanation.IsDegraded())
	assert.Equal(t, "Ineffective", result.Results[0].Risk.RiskLabel)
	assert.False(t, result.Results[1].Explanation.IsDegraded())
}

func TestAnalyzerService_DeduplicatesDrugs(t *testing.T) {
	gen := new(MockExplanationGenerator)
	gen.On("GenerateExplanation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.Explanation{Summary: "narrative"})

	result, err := newTestAnalyzer(t, gen).Analyze(context.Background(), &domain.AnalysisRequest{
		PatientID: "P1",
		Drugs:     []string{"warfarin", " WARFARIN ", "", "codeine", "Warfarin"},
	})

	require.NoError(t, err)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "WARFARIN", result.Results[0].Drug)
	assert.Equal(t, "CODEINE", result.Results[1].Drug)
}

func TestAnalyzerService_GeneratesPatientID(t *testing.T) {
	gen := new(MockExplanationGenerator)

	result, err := newTestAnalyzer(t, gen).Analyze(context.Background(), &domain.AnalysisRequest{
		PatientID: "   ",
		Drugs:     []string{"ASPIRIN"},
	})

	require.NoError(t, err)
	_, parseErr := uuid.Parse(result.PatientID)
	assert.NoError(t, parseErr)
	assert.Equal(t, 0, result.Performance.ParallelTasks)
	gen.AssertNotCalled(t, "GenerateExplanation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAnalyzerService_ValidationErrors(t *testing.T) {
	analyzer := newTestAnalyzer(t, new(MockExplanationGenerator))

	tests := []struct {
		name  string
		req   *domain.AnalysisRequest
		field string
	}{
		{"nil request", nil, "request"},
		{"no drugs", &domain.AnalysisRequest{PatientID: "P1"}, "drugs"},
		{"blank drugs", &domain.AnalysisRequest{Drugs: []string{" ", ""}}, "drugs"},
		{"too many drugs", &domain.AnalysisRequest{Drugs: manyDrugs(MaxDrugsPerRequest + 1)}, "drugs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := analyzer.Analyze(context.Background(), tt.req)
			assert.Nil(t, result)

			var validationErr *domain.ValidationError
			require.True(t, errors.As(err, &validationErr))
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}
}

func TestAnalyzerService_MatcherFaultIsFatal(t *testing.T) {
	logger := newTestLogger()
	gen := new(MockExplanationGenerator)

	for name, evaluator := range map[string]domain.RiskEvaluator{
		"panic":     panickingEvaluator{},
		"truncated": truncatingEvaluator{},
	} {
		t.Run(name, func(t *testing.T) {
			analyzer := NewAnalyzerService(evaluator, NewExplanationOrchestrator(gen, 2, logger), logger)

			result, err := analyzer.Analyze(context.Background(), &domain.AnalysisRequest{Drugs: []string{"WARFARIN"}})
			assert.Nil(t, result)

			var pgxErr *domain.PGxError
			require.True(t, errors.As(err, &pgxErr))
			assert.Equal(t, domain.ErrMatching, pgxErr.Code)
		})
	}
	gen.AssertNotCalled(t, "GenerateExplanation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func manyDrugs(n int) []string {
	drugs := make([]string, n)
	for i := range drugs {
		drugs[i] = "DRUG" + strings.Repeat("X", i+1)
	}
	return drugs
}
