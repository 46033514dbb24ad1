// Package knowledge provides the curated CPIC guideline tables used by the
// risk engine. The tables are built once at startup and are read-only.
package knowledge

import (
	"github.com/niramay-pgx-server/internal/domain"
)

const standardDosing = "Standard dosing per clinical guidelines. No pharmacogenomic dose adjustment needed."

// CPICEntries returns the default CPIC drug-gene tables in declaration order.
// Variant order within each entry is significant for first-match evaluation.
func CPICEntries() []domain.KnowledgeEntry {
	return []domain.KnowledgeEntry{
		{
			Drug: "SIMVASTATIN",
			Gene: "SLCO1B1",
			Variants: []domain.VariantRule{
				{
					VariantID: "rs4149056",
					Profile: domain.ClinicalProfile{
						Allele:       "*5",
						Phenotype:    "Poor Function",
						RiskLabel:    "Toxic",
						Severity:     domain.SeverityCritical,
						Action:       "Prescribe alternative statin (e.g., Rosuvastatin). High risk of rhabdomyolysis.",
						Dosing:       "Contraindicated at standard doses. If statin required, use Rosuvastatin ≤20mg or Pravastatin.",
						Alternatives: []string{"Rosuvastatin", "Pravastatin", "Fluvastatin"},
					},
				},
			},
			WildType: domain.ClinicalProfile{
				Allele:       "*1/*1",
				Phenotype:    "Normal Function",
				RiskLabel:    domain.RiskLabelSafe,
				Severity:     domain.SeverityNone,
				Action:       "Standard simvastatin prescribing protocols. Normal myopathy risk.",
				Dosing:       standardDosing,
				Alternatives: []string{},
			},
		},
		{
			Drug: "WARFARIN",
			Gene: "CYP2C9",
			Variants: []domain.VariantRule{
				{
					VariantID: "rs1799853",
					Profile: domain.ClinicalProfile{
						Allele:       "*2",
						Phenotype:    "Intermediate Metabolizer",
						RiskLabel:    "Adjust Dosage",
						Severity:     domain.SeverityModerate,
						Action:       "Decrease calculated initial dose by 15-30%. Monitor INR closely.",
						Dosing:       "Reduce initial dose by 15-30% from calculated dose. Use FDA-approved warfarin dosing algorithm incorporating CYP2C9 genotype.",
						Alternatives: []string{"Direct Oral Anticoagulants (DOACs)", "Apixaban", "Rivaroxaban"},
					},
				},
				{
					VariantID: "rs1057910",
					Profile: domain.ClinicalProfile{
						Allele:       "*3",
						Phenotype:    "Poor Metabolizer",
						RiskLabel:    "Adjust Dosage",
						Severity:     domain.SeverityHigh,
						Action:       "Decrease calculated initial dose by 20-40%. Extreme caution regarding hemorrhage risk.",
						Dosing:       "Reduce initial dose by 20-40%. Increase INR monitoring frequency. Consider DOAC alternative.",
						Alternatives: []string{"Apixaban", "Rivaroxaban", "Edoxaban"},
					},
				},
			},
			WildType: domain.ClinicalProfile{
				Allele:       "*1/*1",
				Phenotype:    "Normal Metabolizer",
				RiskLabel:    domain.RiskLabelSafe,
				Severity:     domain.SeverityNone,
				Action:       "Initiate standard dosing protocols based on clinical factors.",
				Dosing:       standardDosing,
				Alternatives: []string{},
			},
		},
		{
			Drug: "CLOPIDOGREL",
			Gene: "CYP2C19",
			Variants: []domain.VariantRule{
				{
					VariantID: "rs4244285",
					Profile: domain.ClinicalProfile{
						Allele:       "*2",
						Phenotype:    "Poor Metabolizer",
						RiskLabel:    "Ineffective",
						Severity:     domain.SeverityCritical,
						Action:       "Avoid clopidogrel. Use alternative P2Y12 inhibitor (Prasugrel or Ticagrelor).",
						Dosing:       "Do not use clopidogrel. Switch to Prasugrel 10mg/day or Ticagrelor 90mg BID.",
						Alternatives: []string{"Prasugrel", "Ticagrelor"},
					},
				},
				{
					VariantID: "rs4986893",
					Profile: domain.ClinicalProfile{
						Allele:       "*3",
						Phenotype:    "Poor Metabolizer",
						RiskLabel:    "Ineffective",
						Severity:     domain.SeverityCritical,
						Action:       "Avoid clopidogrel. Use alternative P2Y12 inhibitor.",
						Dosing:       "Do not use clopidogrel. Switch to Prasugrel or Ticagrelor.",
						Alternatives: []string{"Prasugrel", "Ticagrelor"},
					},
				},
			},
			WildType: domain.ClinicalProfile{
				Allele:       "*1/*1",
				Phenotype:    "Normal Metabolizer",
				RiskLabel:    domain.RiskLabelSafe,
				Severity:     domain.SeverityNone,
				Action:       "Initiate standard dosing (75 mg/day).",
				Dosing:       "Standard 75 mg/day maintenance dose. No pharmacogenomic dose adjustment needed.",
				Alternatives: []string{},
			},
		},
		{
			Drug: "AZATHIOPRINE",
			Gene: "TPMT",
			Variants: []domain.VariantRule{
				{
					VariantID: "rs1142345",
					Profile: domain.ClinicalProfile{
						Allele:       "*3C",
						Phenotype:    "Poor Metabolizer",
						RiskLabel:    "Toxic",
						Severity:     domain.SeverityCritical,
						Action:       "Contraindication for thiopurines. Reduce dose to 10% of standard or avoid.",
						Dosing:       "Reduce dose to 10% of standard (3x/week) or consider alternative immunosuppressant. Mandatory NUDT15 evaluation for Asian/Hispanic descent.",
						Alternatives: []string{"Mycophenolate mofetil", "Methotrexate"},
					},
				},
				{
					VariantID: "rs1800460",
					Profile: domain.ClinicalProfile{
						Allele:       "*3A",
						Phenotype:    "Poor Metabolizer",
						RiskLabel:    "Toxic",
						Severity:     domain.SeverityCritical,
						Action:       "Contraindication for thiopurines. Reduce dose to 10% of standard.",
						Dosing:       "Reduce dose to 10% of standard. Monitor CBC weekly for first 8 weeks.",
						Alternatives: []string{"Mycophenolate mofetil", "Methotrexate"},
					},
				},
			},
			WildType: domain.ClinicalProfile{
				Allele:       "*1/*1",
				Phenotype:    "Normal Metabolizer",
				RiskLabel:    domain.RiskLabelSafe,
				Severity:     domain.SeverityNone,
				Action:       "Initiate standard dosing. Ensure NUDT15 is also wild-type.",
				Dosing:       standardDosing,
				Alternatives: []string{},
			},
		},
		{
			Drug: "FLUOROURACIL",
			Gene: "DPYD",
			Variants: []domain.VariantRule{
				{
					VariantID: "rs3918290",
					Profile: domain.ClinicalProfile{
						Allele:       "*2A",
						Phenotype:    "Poor Metabolizer",
						RiskLabel:    "Toxic",
						Severity:     domain.SeverityCritical,
						Action:       "Extreme risk of severe/fatal toxicity. Avoid 5-FU. Use alternative regimens.",
						Dosing:       "Do NOT administer 5-FU or capecitabine. Use alternative non-fluoropyrimidine chemotherapy.",
						Alternatives: []string{"Raltitrexed", "Tegafur (with close monitoring)"},
					},
				},
			},
			WildType: domain.ClinicalProfile{
				Allele:       "*1/*1",
				Phenotype:    "Normal Metabolizer",
				RiskLabel:    domain.RiskLabelSafe,
				Severity:     domain.SeverityNone,
				Action:       "Standard 5-FU dosing protocols. Normal risk for toxicity.",
				Dosing:       standardDosing,
				Alternatives: []string{},
			},
		},
		{
			Drug: "CODEINE",
			Gene: "CYP2D6",
			Variants: []domain.VariantRule{
				{
					VariantID: "rs3892097",
					Profile: domain.ClinicalProfile{
						Allele:       "*4",
						Phenotype:    "Poor Metabolizer",
						RiskLabel:    "Ineffective",
						Severity:     domain.SeverityHigh,
						Action:       "Avoid codeine due to lack of efficacy. Use alternative non-tramadol option.",
						Dosing:       "Do not use codeine or tramadol. Use morphine, oxycodone, or non-opioid analgesic.",
						Alternatives: []string{"Morphine", "Oxycodone", "Non-opioid analgesics (NSAIDs)"},
					},
				},
			},
			WildType: domain.ClinicalProfile{
				Allele:       "*1/*1",
				Phenotype:    "Normal Metabolizer",
				RiskLabel:    domain.RiskLabelSafe,
				Severity:     domain.SeverityNone,
				Action:       "Use codeine label-recommended age- or weight-specific dosing.",
				Dosing:       standardDosing,
				Alternatives: []string{},
			},
		},
	}
}

// NewCPICKnowledgeBase builds the default knowledge base
func NewCPICKnowledgeBase() (*domain.KnowledgeBase, error) {
	return domain.NewKnowledgeBase(CPICEntries()...)
}
