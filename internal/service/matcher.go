package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/vindexhq/vindex/internal/domain"
)

// maxPatternsConsulted bounds how many active patterns one lookup touches.
const maxPatternsConsulted = 5

// MatchStrategy selects which of the active patterns (ordered by confidence
// descending) applies to the value under evaluation. Returning nil means no
// match.
type MatchStrategy func(patterns []domain.LearnedPattern, value any) *domain.LearnedPattern

// PatternMatcher is the fast-path lookup consulted by validators and the
// generic research fallback.
type PatternMatcher interface {
	Match(ctx context.Context, t domain.PatternType, value any) (*domain.LearnedPattern, error)
}

// Matcher routes pattern lookups through per-type strategies. New pattern
// kinds register a strategy instead of editing a generic fallback.
type Matcher struct {
	patterns   domain.PatternStore
	logger     *zap.Logger
	strategies map[domain.PatternType]MatchStrategy
}

func NewMatcher(patterns domain.PatternStore, logger *zap.Logger) *Matcher {
	return &Matcher{
		patterns:   patterns,
		logger:     logger,
		strategies: make(map[domain.PatternType]MatchStrategy),
	}
}

// Register installs a strategy for one pattern type. Not safe to call after
// the matcher is in use.
func (m *Matcher) Register(t domain.PatternType, s MatchStrategy) {
	m.strategies[t] = s
}

// Match fetches active patterns of the given type and applies the
// registered strategy (highest-confidence-first default). Every pattern
// consulted gets its match_count incremented, whether or not it changes the
// outcome.
func (m *Matcher) Match(ctx context.Context, t domain.PatternType, value any) (*domain.LearnedPattern, error) {
	patterns, err := m.patterns.GetActiveByType(ctx, t, maxPatternsConsulted)
	if err != nil {
		return nil, err
	}
	if len(patterns) == 0 {
		return nil, nil
	}

	for _, p := range patterns {
		if err := m.patterns.RecordMatch(ctx, p.ID); err != nil {
			m.logger.Warn("failed to record pattern match",
				zap.String("pattern_id", p.ID.String()),
				zap.Error(err))
		}
	}

	strategy := m.strategies[t]
	if strategy == nil {
		strategy = firstAdoptable
	}
	return strategy(patterns, value), nil
}

// firstAdoptable takes the highest-confidence active pattern whose
// resolution can be applied directly.
func firstAdoptable(patterns []domain.LearnedPattern, _ any) *domain.LearnedPattern {
	for i := range patterns {
		if patterns[i].Adoptable() {
			return &patterns[i]
		}
	}
	return nil
}
