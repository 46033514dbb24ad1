package service

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/niramay-pgx-server/internal/domain"
)

// RiskEngine implements deterministic CPIC rule matching.
// It performs no I/O and never suspends.
type RiskEngine struct {
	logger *logrus.Logger
	kb     *domain.KnowledgeBase
}

// NewRiskEngine creates a new risk engine over a read-only knowledge base
func NewRiskEngine(kb *domain.KnowledgeBase, logger *logrus.Logger) *RiskEngine {
	return &RiskEngine{
		logger: logger,
		kb:     kb,
	}
}

// EvaluateRisk returns one verdict per requested drug, in request order.
//
// For each drug the knowledge base variants are scanned in declaration order and
// the first variant present in the patient's set decides the verdict. Later
// variants are not consulted even when they carry a higher severity.
func (e *RiskEngine) EvaluateRisk(variants domain.VariantSet, drugs []string) []domain.RiskVerdict {
	verdicts := make([]domain.RiskVerdict, 0, len(drugs))

	for _, requested := range drugs {
		drug := domain.NormalizeDrugName(requested)

		entry, ok := e.kb.Lookup(drug)
		if !ok {
			verdicts = append(verdicts, unknownVerdict(drug))
			continue
		}

		verdict, matched := matchEntry(entry, variants)
		if !matched {
			verdict = wildTypeVerdict(entry)
		}
		verdicts = append(verdicts, verdict)
	}

	e.logger.WithFields(logrus.Fields{
		"drugs_requested": len(drugs),
		"variants":        len(variants),
		"matched":         countMatched(verdicts),
	}).Debug("Completed risk evaluation")

	return verdicts
}

func matchEntry(entry *domain.KnowledgeEntry, variants domain.VariantSet) (domain.RiskVerdict, bool) {
	for _, rule := range entry.Variants {
		record, present := variants.Lookup(rule.VariantID)
		if !present {
			continue
		}

		profile := rule.Profile
		return domain.RiskVerdict{
			Drug: entry.Drug,
			Risk: domain.RiskAssessment{
				RiskLabel:       profile.RiskLabel,
				Severity:        profile.Severity,
				ConfidenceScore: domain.ConfidenceMatched,
			},
			Profile: &domain.PharmacogenomicProfile{
				PrimaryGene: entry.Gene,
				Phenotype:   profile.Phenotype,
				Diplotype:   fmt.Sprintf("%s/%s", profile.Allele, profile.Allele),
				DetectedVariants: []domain.DetectedVariant{
					{
						VariantRecord:        copyRecord(record),
						Gene:                 entry.Gene,
						Zygosity:             domain.ZygosityHomozygous,
						ClinicalSignificance: profile.RiskLabel,
					},
				},
			},
			Recommendation: recommendation(profile),
		}, true
	}
	return domain.RiskVerdict{}, false
}

func wildTypeVerdict(entry *domain.KnowledgeEntry) domain.RiskVerdict {
	profile := entry.WildType
	return domain.RiskVerdict{
		Drug: entry.Drug,
		Risk: domain.RiskAssessment{
			RiskLabel:       profile.RiskLabel,
			Severity:        profile.Severity,
			ConfidenceScore: domain.ConfidenceWildType,
		},
		Profile: &domain.PharmacogenomicProfile{
			PrimaryGene:      entry.Gene,
			Phenotype:        profile.Phenotype,
			Diplotype:        profile.Allele,
			DetectedVariants: []domain.DetectedVariant{},
		},
		Recommendation: recommendation(profile),
	}
}

func unknownVerdict(drug string) domain.RiskVerdict {
	return domain.RiskVerdict{
		Drug: drug,
		Risk: domain.RiskAssessment{
			RiskLabel:       domain.RiskLabelUnknown,
			Severity:        domain.SeverityNone,
			ConfidenceScore: domain.ConfidenceUnknown,
		},
	}
}

func recommendation(profile domain.ClinicalProfile) *domain.ClinicalRecommendation {
	alternatives := make([]string, len(profile.Alternatives))
	copy(alternatives, profile.Alternatives)

	return &domain.ClinicalRecommendation{
		GuidelineSource:      domain.GuidelineSourceCPIC,
		Action:               profile.Action,
		DosingRecommendation: profile.Dosing,
		AlternativeDrugs:     alternatives,
	}
}

func copyRecord(r domain.VariantRecord) domain.VariantRecord {
	if r.Alternates != nil {
		alts := make([]string, len(r.Alternates))
		copy(alts, r.Alternates)
		r.Alternates = alts
	}
	return r
}

func countMatched(verdicts []domain.RiskVerdict) int {
	count := 0
	for _, v := range verdicts {
		if v.Profile != nil && len(v.Profile.DetectedVariants) > 0 {
			count++
		}
	}
	return count
}
