package service

import (
	"errors"
	"strings"

	"github.com/niramay-pgx-server/internal/domain"
	"github.com/niramay-pgx-server/pkg/vcf"
)

// VariantParser turns raw variant file content into records
type VariantParser interface {
	ParseString(content string) (*vcf.Result, error)
}

// BuildAnalysisRequest converts a surface request into an analysis request,
// parsing inline VCF content when it is supplied instead of variant records.
func BuildAnalysisRequest(req *domain.DrugRiskRequest, parser VariantParser) (*domain.AnalysisRequest, error) {
	if req == nil {
		return nil, domain.NewValidationError("request", "request body is required", nil)
	}

	hasVCF := strings.TrimSpace(req.VCF) != ""
	hasVariants := len(req.Variants) > 0

	switch {
	case hasVCF && hasVariants:
		return nil, domain.NewValidationError("variants", "supply either variants or vcf, not both", nil)
	case !hasVCF && !hasVariants:
		return nil, domain.NewValidationError("variants", "one of variants or vcf is required", nil)
	}

	analysis := &domain.AnalysisRequest{
		PatientID: strings.TrimSpace(req.PatientID),
		Drugs:     req.Drugs,
		Variants:  req.Variants,
	}
	if !hasVCF {
		return analysis, nil
	}

	result, err := parser.ParseString(req.VCF)
	if err != nil {
		details := err.Error()
		if errors.Is(err, vcf.ErrNoRecords) {
			details = "the file contains no data lines"
		}
		return nil, domain.NewPGxError(domain.ErrVCFParsing, "failed to parse VCF content", details, "")
	}

	quality := result.Quality
	analysis.Variants = result.Variants
	analysis.Quality = &quality
	return analysis, nil
}
