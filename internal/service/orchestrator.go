package service

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/niramay-pgx-server/internal/domain"
)

// DefaultWorkers bounds concurrent explanation tasks when no limit is configured
const DefaultWorkers = 32

// ExplanationOrchestrator fans explanation generation out over the verdicts
// that carry a profile and merges the results back by index.
//
// Tasks are isolated from each other: a failing or panicking task produces a
// degraded explanation for its own verdict only, and no task cancels another.
type ExplanationOrchestrator struct {
	generator domain.ExplanationGenerator
	workers   int
	logger    *logrus.Logger
}

// NewExplanationOrchestrator creates an orchestrator bounded to workers concurrent tasks
func NewExplanationOrchestrator(generator domain.ExplanationGenerator, workers int, logger *logrus.Logger) *ExplanationOrchestrator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &ExplanationOrchestrator{
		generator: generator,
		workers:   workers,
		logger:    logger,
	}
}

// Attach sets an explanation on every verdict that needs one and returns the
// number of tasks launched. Verdict order is never changed.
func (o *ExplanationOrchestrator) Attach(ctx context.Context, verdicts []domain.RiskVerdict) int {
	var indices []int
	for i := range verdicts {
		if verdicts[i].NeedsExplanation() {
			indices = append(indices, i)
		}
	}
	if len(indices) == 0 {
		return 0
	}

	explanations := make([]*domain.Explanation, len(indices))

	// Tasks never return errors so Wait cannot cancel siblings
	var g errgroup.Group
	g.SetLimit(o.workers)

	for slot, idx := range indices {
		verdict := verdicts[idx]
		g.Go(func() error {
			explanations[slot] = o.explain(ctx, verdict)
			return nil
		})
	}
	_ = g.Wait()

	for slot, idx := range indices {
		verdicts[idx].Explanation = explanations[slot]
	}

	o.logger.WithFields(logrus.Fields{
		"tasks":   len(indices),
		"workers": o.workers,
	}).Debug("Explanations attached")

	return len(indices)
}

func (o *ExplanationOrchestrator) explain(ctx context.Context, verdict domain.RiskVerdict) (explanation *domain.Explanation) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.WithFields(logrus.Fields{
				"drug":  verdict.Drug,
				"panic": r,
				"stack": string(debug.Stack()),
			}).Error("Explanation task panicked")
			explanation = failedExplanation(fmt.Sprintf("explanation task failed: %v", r))
		}
	}()

	profile := verdict.Profile
	explanation = o.generator.GenerateExplanation(ctx, verdict.Drug, profile.PrimaryGene, profile.Phenotype, profile.Diplotype)
	if explanation == nil {
		explanation = failedExplanation("explanation generator returned no result")
	}
	return explanation
}

func failedExplanation(reason string) *domain.Explanation {
	return &domain.Explanation{
		Summary: "Explanation generation failed.",
		Error:   reason,
	}
}
