package external

import (
	"context"
)

// Embedder turns text into a dense vector using a specific credential
type Embedder interface {
	Embed(ctx context.Context, apiKey, text string) ([]float32, error)
}

// TextGenerator produces free text from a prompt with a specific credential and model
type TextGenerator interface {
	Generate(ctx context.Context, apiKey, model, prompt string) (string, error)
}

// VectorIndex answers nearest-neighbour queries restricted by a metadata filter
type VectorIndex interface {
	Query(ctx context.Context, query VectorQuery) ([]VectorMatch, error)
	Name() string
}

// VectorQuery is a similarity query against the vector index
type VectorQuery struct {
	Vector          []float32      `json:"vector"`
	TopK            int            `json:"topK"`
	IncludeMetadata bool           `json:"includeMetadata"`
	Filter          map[string]any `json:"filter,omitempty"`
}

// VectorMatch is a single nearest-neighbour result
type VectorMatch struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Text returns the match's stored passage, or "" when none is attached
func (m VectorMatch) Text() string {
	if m.Metadata == nil {
		return ""
	}
	text, _ := m.Metadata["text"].(string)
	return text
}

// DrugFilter restricts a vector query to passages tagged with the given drug
func DrugFilter(drug string) map[string]any {
	return map[string]any{
		"drug": map[string]any{"$eq": drug},
	}
}

// CredentialSource hands out live credentials and accepts reports of dead ones
type CredentialSource interface {
	LiveCredentials() []Credential
	MarkDead(index int, reason string)
}
