package external

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	MaxRequests  uint32        `json:"max_requests"`
	Interval     time.Duration `json:"interval"`
	Timeout      time.Duration `json:"timeout"`
	MinRequests  uint32        `json:"min_requests"`
	FailureRatio float64       `json:"failure_ratio"`
}

// DefaultCircuitBreakerConfig returns the breaker settings used for the vector index
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxRequests:  5,
		Interval:     30 * time.Second,
		Timeout:      60 * time.Second,
		MinRequests:  3,
		FailureRatio: 0.6,
	}
}

// ResilientVectorIndex wraps a VectorIndex with a circuit breaker
type ResilientVectorIndex struct {
	index   VectorIndex
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

// NewResilientVectorIndex creates a breaker-guarded vector index
func NewResilientVectorIndex(index VectorIndex, config CircuitBreakerConfig, logger *logrus.Logger) *ResilientVectorIndex {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "VectorIndex:" + index.Name(),
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureRatio
		},
		// Caller cancellation says nothing about the index's health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &ResilientVectorIndex{
		index:   index,
		breaker: breaker,
		logger:  logger,
	}
}

// Name returns the wrapped index name
func (r *ResilientVectorIndex) Name() string {
	return r.index.Name()
}

// Query runs the query through the circuit breaker
func (r *ResilientVectorIndex) Query(ctx context.Context, query VectorQuery) ([]VectorMatch, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.index.Query(ctx, query)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s unavailable (circuit breaker %s): %w", r.index.Name(), r.breaker.State(), err)
		}
		return nil, err
	}

	matches, _ := result.([]VectorMatch)
	return matches, nil
}

// State returns the current breaker state
func (r *ResilientVectorIndex) State() gobreaker.State {
	return r.breaker.State()
}

// Counts returns the breaker's request counters for the current interval
func (r *ResilientVectorIndex) Counts() gobreaker.Counts {
	return r.breaker.Counts()
}
