// Package similarity provides vibe text similarity scoring.
// The primary provider is an external embedding service; a local fuzzy
// provider serves as fallback so vibe matching degrades instead of failing
// when the service is down.
package similarity

import (
	"context"
	"log/slog"

	"github.com/Grihladin/42Connect/internal/domain/matching"
)

// Provider scores how similar two vibe texts are.
// Higher means more similar; the scale is opaque to callers, only ordering
// matters.
type Provider interface {
	Compare(ctx context.Context, a, b string) (float64, error)
}

// Scorer combines a primary provider with a fallback.
type Scorer struct {
	primary  Provider
	fallback Provider
	logger   *slog.Logger
}

// NewScorer creates a Scorer. primary may be nil, in which case the fallback
// is used exclusively.
func NewScorer(primary, fallback Provider, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Func binds the scorer to a request context and returns a pure similarity
// function for the matching domain. Provider errors degrade to the fallback;
// a fallback error scores zero, so one bad pair never fails the whole
// ranking.
func (s *Scorer) Func(ctx context.Context) matching.SimilarityFunc {
	return func(a, b string) float64 {
		if s.primary != nil {
			score, err := s.primary.Compare(ctx, a, b)
			if err == nil {
				return score
			}
			s.logger.Debug("similarity service unavailable, using fallback", "error", err.Error())
		}

		score, err := s.fallback.Compare(ctx, a, b)
		if err != nil {
			s.logger.Warn("fallback similarity failed", "error", err.Error())
			return 0
		}
		return score
	}
}
