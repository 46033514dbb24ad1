package domain

import (
	"fmt"
	"strings"
)

// VariantRule maps one pathogenic variant identifier to its clinical profile
type VariantRule struct {
	VariantID string          `json:"variant_id"`
	Profile   ClinicalProfile `json:"profile"`
}

// KnowledgeEntry is the curated guideline table for one drug. Variants are kept
// in declaration order; the matcher scans them in that order.
type KnowledgeEntry struct {
	Drug     string          `json:"drug"`
	Gene     string          `json:"gene"`
	Variants []VariantRule   `json:"variants"`
	WildType ClinicalProfile `json:"wild_type"`
}

// KnowledgeBase is the read-only symbolic fact base consulted by the matcher.
// It is safe for concurrent use once constructed.
type KnowledgeBase struct {
	entries map[string]*KnowledgeEntry
	order   []string
}

// NewKnowledgeBase validates entries and builds an immutable knowledge base
func NewKnowledgeBase(entries ...KnowledgeEntry) (*KnowledgeBase, error) {
	kb := &KnowledgeBase{
		entries: make(map[string]*KnowledgeEntry, len(entries)),
		order:   make([]string, 0, len(entries)),
	}

	for i := range entries {
		entry := entries[i]
		entry.Drug = NormalizeDrugName(entry.Drug)

		if entry.Drug == "" {
			return nil, NewValidationError("drug", "drug name cannot be empty", i)
		}
		if entry.Gene == "" {
			return nil, NewValidationError("gene", fmt.Sprintf("target gene required for %s", entry.Drug), entry.Drug)
		}
		if _, exists := kb.entries[entry.Drug]; exists {
			return nil, NewValidationError("drug", "duplicate knowledge base entry", entry.Drug)
		}

		seen := make(map[string]struct{}, len(entry.Variants))
		rules := make([]VariantRule, len(entry.Variants))
		for j, rule := range entry.Variants {
			if rule.VariantID == "" {
				return nil, NewValidationError("variant_id", fmt.Sprintf("empty variant id for %s", entry.Drug), j)
			}
			if _, dup := seen[rule.VariantID]; dup {
				return nil, NewValidationError("variant_id", fmt.Sprintf("duplicate variant id for %s", entry.Drug), rule.VariantID)
			}
			if !rule.Profile.Severity.IsValid() {
				return nil, NewValidationError("severity", "invalid severity tier", rule.Profile.Severity)
			}
			seen[rule.VariantID] = struct{}{}
			rules[j] = rule
		}
		entry.Variants = rules

		if !entry.WildType.Severity.IsValid() {
			return nil, NewValidationError("severity", "invalid wild-type severity tier", entry.WildType.Severity)
		}

		kb.entries[entry.Drug] = &entry
		kb.order = append(kb.order, entry.Drug)
	}

	return kb, nil
}

// Lookup returns the entry for a drug; the name is normalized before lookup
func (kb *KnowledgeBase) Lookup(drug string) (*KnowledgeEntry, bool) {
	entry, ok := kb.entries[NormalizeDrugName(drug)]
	return entry, ok
}

// Drugs returns the known drug names in declaration order
func (kb *KnowledgeBase) Drugs() []string {
	out := make([]string, len(kb.order))
	copy(out, kb.order)
	return out
}

// Len returns the number of drugs in the knowledge base
func (kb *KnowledgeBase) Len() int {
	return len(kb.order)
}

// NormalizeDrugName upper-cases and trims a drug name
func NormalizeDrugName(drug string) string {
	return strings.ToUpper(strings.TrimSpace(drug))
}
