package lotpattern

import (
	"context"
	"regexp"
	"sort"

	"go.uber.org/zap"

	"github.com/safescan/recall-cli/internal/model"
	"github.com/safescan/recall-cli/internal/normalize"
)

// Store persists learned patterns. UpsertLotPattern must be atomic:
// two concurrent observations of the same (brand, template) must both
// be counted, so the increment-or-insert happens in a single statement,
// never a read followed by a write.
type Store interface {
	UpsertLotPattern(ctx context.Context, brand, template, regex, exampleLot string) (*model.LotPattern, error)
	ListLotPatterns(ctx context.Context, brand string) ([]model.LotPattern, error)
}

// Service records lot observations and validates new lots against a
// brand's learned shapes.
type Service struct {
	store Store
}

// NewService returns a Service over the given pattern store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Observe records one accepted lot for a brand, creating the
// (brand, template) row on first sight or bumping its count, last-seen
// and example otherwise. Degenerate input (empty brand or lot) is a
// no-op. Patterns are keyed by canonical brand so spelling variants of
// the same brand share statistics.
func (s *Service) Observe(ctx context.Context, brandName, lot string) (*model.LotPattern, error) {
	key := normalize.Brand(brandName)
	if key == "" || lot == "" {
		return nil, nil
	}
	p := Analyze(lot)
	return s.store.UpsertLotPattern(ctx, key, p.Template, p.Regex, lot)
}

// Validate scores lot against the brand's patterns in descending count
// order. The first pattern whose regex matches (case-insensitively)
// wins with confidence count/Σcounts. A brand with no patterns yet can
// never reject its first lot: it validates with confidence zero. An
// invalid result is advisory ("new shape"), never a rejection; callers
// observe the lot regardless so the corpus keeps learning.
func (s *Service) Validate(ctx context.Context, brandName, lot string) (model.PatternValidation, error) {
	patterns, err := s.store.ListLotPatterns(ctx, normalize.Brand(brandName))
	if err != nil {
		return model.PatternValidation{}, err
	}
	if len(patterns) == 0 {
		return model.PatternValidation{IsValid: true, Confidence: 0}, nil
	}

	// Validation order must not depend on store iteration order:
	// count desc, then template.
	sort.SliceStable(patterns, func(i, j int) bool {
		if patterns[i].Count != patterns[j].Count {
			return patterns[i].Count > patterns[j].Count
		}
		return patterns[i].Template < patterns[j].Template
	})

	var total int64
	for _, p := range patterns {
		total += p.Count
	}

	for i := range patterns {
		p := patterns[i]
		re, err := regexp.Compile("(?i)" + p.Regex)
		if err != nil {
			// Unreachable with the fixed character-class mapping, but a
			// corrupt stored row must only lose itself, not the call.
			zap.L().Warn("lotpattern: skipping malformed stored regex",
				zap.String("brand", p.Brand),
				zap.String("template", p.Template),
				zap.Error(err),
			)
			continue
		}
		if re.MatchString(lot) {
			return model.PatternValidation{
				IsValid:        true,
				MatchedPattern: &p,
				Confidence:     float64(p.Count) / float64(total),
			}, nil
		}
	}
	return model.PatternValidation{IsValid: false, Confidence: 0}, nil
}
