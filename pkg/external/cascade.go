package external

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/niramay-pgx-server/internal/domain"
	"github.com/niramay-pgx-server/internal/logging"
)

// Model identifiers reported on explanations that no backend produced
const (
	ModelFallbackNone = "FALLBACK_NONE"
)

const defaultMinResponseLength = 20

// DefaultModels is the generation cascade, cheapest and fastest first
var DefaultModels = []string{
	"gemini-2.5-flash",
	"gemini-2.5-flash-lite",
	"gemini-flash-latest",
	"gemini-flash-lite-latest",
	"gemini-3-flash-preview",
	"gemini-2.5-flash-lite-preview-09-2025",
}

const explanationPrompt = `You are a clinical pharmacogenomics expert. Explain the biological mechanism of risk for a patient taking %[1]s with a %[2]s %[3]s diplotype (%[4]s).

STRICT RULES:
1. ONLY use the provided clinical context: "%[5]s"
2. Explain WHY the genetic variant alters metabolism or transport.
3. Explicitly cite the patient's %[3]s diplotype.
4. DO NOT recommend a specific dosage.
5. Keep the explanation to exactly 3 sentences.`

// ExplanationCascade generates grounded explanations by walking every live
// credential and, under each credential, every configured model until one
// produces a usable response.
type ExplanationCascade struct {
	generator   TextGenerator
	retriever   domain.ContextRetriever
	credentials CredentialSource
	models      []string
	minLength   int
	ragSource   string
	logger      *logrus.Logger
}

// NewExplanationCascade creates a new generation cascade
func NewExplanationCascade(
	generator TextGenerator,
	retriever domain.ContextRetriever,
	credentials CredentialSource,
	config domain.GeminiConfig,
	indexName string,
	logger *logrus.Logger,
) *ExplanationCascade {
	models := config.Models
	if len(models) == 0 {
		models = DefaultModels
	}
	minLength := config.MinResponseLength
	if minLength <= 0 {
		minLength = defaultMinResponseLength
	}

	return &ExplanationCascade{
		generator:   generator,
		retriever:   retriever,
		credentials: credentials,
		models:      append([]string(nil), models...),
		minLength:   minLength,
		ragSource:   "pinecone/" + indexName,
		logger:      logger,
	}
}

// GenerateExplanation always returns an explanation. When no credential and
// model combination succeeds the result is degraded and carries an error note.
func (c *ExplanationCascade) GenerateExplanation(ctx context.Context, drug, gene, phenotype, diplotype string) *domain.Explanation {
	logger := logging.FromContext(ctx, c.logger).WithFields(logrus.Fields{
		"drug":      drug,
		"gene":      gene,
		"diplotype": diplotype,
	})

	clinicalContext := c.retriever.RetrieveContext(ctx, drug, phenotype)
	if clinicalContext == "" {
		clinicalContext = FallbackContext(drug, gene, phenotype, diplotype)
	}
	prompt := BuildPrompt(drug, gene, phenotype, diplotype, clinicalContext)

	attempts := 0
	for _, cred := range c.credentials.LiveCredentials() {
	models:
		for i, model := range c.models {
			if ctx.Err() != nil {
				logger.WithError(ctx.Err()).Warn("Explanation cascade cancelled")
				return c.degraded(drug, gene, phenotype, diplotype, fmt.Sprintf("Explanation generation cancelled: %v", ctx.Err()))
			}

			attempts++
			text, err := c.generator.Generate(ctx, cred.Key, model, prompt)
			attemptLog := logger.WithFields(logrus.Fields{
				"model":            model,
				"model_position":   fmt.Sprintf("%d/%d", i+1, len(c.models)),
				"credential_index": cred.Index,
			})

			switch {
			case err != nil && IsCredentialFatal(err):
				attemptLog.WithError(err).Warn("Credential rejected, moving to next credential")
				c.credentials.MarkDead(cred.Index, err.Error())
				break models
			case err != nil:
				attemptLog.WithError(err).Warn("Model failed, trying next model")
				continue
			}

			text = strings.TrimSpace(text)
			if len(text) <= c.minLength {
				attemptLog.WithField("length", len(text)).Warn("Model returned short response, trying next model")
				continue
			}

			attemptLog.WithField("length", len(text)).Info("Explanation generated")
			return &domain.Explanation{
				Summary:   text,
				Citations: []string{"CPIC Database", "PharmGKB"},
				RAGSource: c.ragSource,
				ModelUsed: model,
			}
		}
	}

	logger.WithField("attempts", attempts).Error("All generation backends exhausted")
	return c.degraded(drug, gene, phenotype, diplotype, "All generation models exhausted. Refresh API credentials or check quota.")
}

func (c *ExplanationCascade) degraded(drug, gene, phenotype, diplotype, reason string) *domain.Explanation {
	return &domain.Explanation{
		Summary: fmt.Sprintf(
			"Explanation generation temporarily unavailable. The %s %s diplotype (%s) affects %s metabolism. Consult CPIC guidelines for clinical guidance.",
			gene, diplotype, phenotype, drug,
		),
		Citations: []string{"CPIC Database"},
		RAGSource: c.ragSource,
		ModelUsed: ModelFallbackNone,
		Error:     reason,
	}
}

// FallbackContext is the grounding text used when retrieval finds nothing
func FallbackContext(drug, gene, phenotype, diplotype string) string {
	return fmt.Sprintf(
		"No specific CPIC context found for %s. The %s %s diplotype (%s) is the relevant genotype; consult official guidelines.",
		drug, gene, diplotype, phenotype,
	)
}

// BuildPrompt renders the constrained explanation prompt
func BuildPrompt(drug, gene, phenotype, diplotype, clinicalContext string) string {
	return fmt.Sprintf(explanationPrompt, drug, gene, diplotype, phenotype, clinicalContext)
}
