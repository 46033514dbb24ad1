// Package domain contains core business entities and types for pharmacogenomic
// drug-response risk assessment following CPIC (Clinical Pharmacogenetics
// Implementation Consortium) guideline tables.
//
// Reference: Relling MV, Klein TE. CPIC: Clinical Pharmacogenetics Implementation
// Consortium of the Pharmacogenomics Research Network. Clin Pharmacol Ther.
// 2011;89(3):464-467. doi: 10.1038/clpt.2010.279
package domain

import (
	"fmt"
	"strings"
)

// SeverityTier represents the clinical impact of a drug-gene interaction.
// Tiers are ordered: none < moderate < high < critical.
type SeverityTier string

const (
	SeverityNone     SeverityTier = "none"
	SeverityModerate SeverityTier = "moderate"
	SeverityHigh     SeverityTier = "high"
	SeverityCritical SeverityTier = "critical"
)

var severityRanks = map[SeverityTier]int{
	SeverityNone:     0,
	SeverityModerate: 1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// Rank returns the ordinal position of the tier, or -1 for an unknown tier
func (s SeverityTier) Rank() int {
	if r, ok := severityRanks[s]; ok {
		return r
	}
	return -1
}

// IsValid reports whether the tier is one of the defined severity levels
func (s SeverityTier) IsValid() bool {
	return s.Rank() >= 0
}

// String returns the string representation of SeverityTier
func (s SeverityTier) String() string {
	return string(s)
}

// ParseSeverityTier parses a tier name case-insensitively
func ParseSeverityTier(value string) (SeverityTier, error) {
	tier := SeverityTier(strings.ToLower(strings.TrimSpace(value)))
	if !tier.IsValid() {
		return "", fmt.Errorf("invalid severity tier: %s", value)
	}
	return tier, nil
}

// Risk labels emitted by the matcher outside of the knowledge base profiles
const (
	RiskLabelUnknown = "Unknown"
	RiskLabelSafe    = "Safe"
)

// Fixed confidence scores per matcher branch. These are constants, not estimates.
const (
	ConfidenceMatched  = 0.98
	ConfidenceWildType = 0.95
	ConfidenceUnknown  = 0.0
)

// GuidelineSourceCPIC is the guideline source reported on every recommendation
const GuidelineSourceCPIC = "CPIC"

// ZygosityHomozygous is reported for every matched variant; genotype calling is
// not performed, so the matched allele is assumed on both chromosomes.
const ZygosityHomozygous = "homozygous"

// ClinicalProfile is the curated clinical consequence of an allele for one drug
type ClinicalProfile struct {
	Allele       string       `json:"allele"`
	Phenotype    string       `json:"phenotype"`
	RiskLabel    string       `json:"risk_label"`
	Severity     SeverityTier `json:"severity"`
	Action       string       `json:"action"`
	Dosing       string       `json:"dosing"`
	Alternatives []string     `json:"alternatives"`
}

// RiskAssessment holds the risk label, severity and fixed confidence of a verdict
type RiskAssessment struct {
	RiskLabel       string       `json:"risk_label"`
	Severity        SeverityTier `json:"severity"`
	ConfidenceScore float64      `json:"confidence_score"`
}

// DetectedVariant is a patient variant that triggered a knowledge base entry
type DetectedVariant struct {
	VariantRecord
	Gene                 string `json:"gene"`
	Zygosity             string `json:"zygosity"`
	ClinicalSignificance string `json:"clinical_significance"`
}

// PharmacogenomicProfile describes the genotype-derived phenotype for a drug's target gene
type PharmacogenomicProfile struct {
	PrimaryGene      string            `json:"primary_gene"`
	Phenotype        string            `json:"phenotype"`
	Diplotype        string            `json:"diplotype"`
	DetectedVariants []DetectedVariant `json:"detected_variants"`
}

// ClinicalRecommendation is the guideline-derived prescribing advice
type ClinicalRecommendation struct {
	GuidelineSource      string   `json:"guideline_source"`
	Action               string   `json:"action"`
	DosingRecommendation string   `json:"dosing_recommendation"`
	AlternativeDrugs     []string `json:"alternative_drugs"`
}

// Explanation is the generated biological narrative attached to a verdict
type Explanation struct {
	Summary   string   `json:"summary"`
	Citations []string `json:"citations,omitempty"`
	RAGSource string   `json:"rag_source,omitempty"`
	ModelUsed string   `json:"model_used,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// IsDegraded reports whether the explanation is a fallback carrying an error note
func (e *Explanation) IsDegraded() bool {
	return e != nil && e.Error != ""
}

// RiskVerdict is the deterministic clinical verdict for one requested drug.
// Profile and Recommendation are nil for drugs absent from the knowledge base.
type RiskVerdict struct {
	Drug           string                  `json:"drug"`
	Risk           RiskAssessment          `json:"risk_assessment"`
	Profile        *PharmacogenomicProfile `json:"pharmacogenomic_profile,omitempty"`
	Recommendation *ClinicalRecommendation `json:"clinical_recommendation,omitempty"`
	Explanation    *Explanation            `json:"llm_generated_explanation,omitempty"`
}

// NeedsExplanation reports whether the verdict carries a profile worth explaining
func (v *RiskVerdict) NeedsExplanation() bool {
	return v.Profile != nil
}

// CredentialState is a point-in-time view of one backend credential
type CredentialState struct {
	Index      int    `json:"index"`
	Credential string `json:"credential"`
	Live       bool   `json:"live"`
}
