package domain

// VariantRecord represents a single called variant as supplied by the ingestion layer
type VariantRecord struct {
	ID         string   `json:"rsid"`
	Chromosome string   `json:"chrom,omitempty"`
	Position   int64    `json:"pos,omitempty"`
	Reference  string   `json:"ref,omitempty"`
	Alternates []string `json:"alt,omitempty"`
}

// VariantSet indexes a patient's variants by their external identifier
type VariantSet map[string]VariantRecord

// NewVariantSet builds a VariantSet from records. Records without an identifier
// cannot be matched against the knowledge base and are left out; a repeated
// identifier keeps the last record seen.
func NewVariantSet(records []VariantRecord) VariantSet {
	set := make(VariantSet, len(records))
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		set[r.ID] = r
	}
	return set
}

// Lookup returns the record for a variant identifier
func (s VariantSet) Lookup(id string) (VariantRecord, bool) {
	r, ok := s[id]
	return r, ok
}

// QualityMetrics summarizes the variant file a request was built from
type QualityMetrics struct {
	TotalRecords  int     `json:"total_records"`
	RecordsWithID int     `json:"records_with_id"`
	PassingFilter int     `json:"passing_filter"`
	SkippedLines  int     `json:"skipped_lines"`
	MeanDepth     float64 `json:"mean_depth,omitempty"`
}
