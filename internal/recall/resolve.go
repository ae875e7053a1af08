package recall

import (
	"go.uber.org/zap"

	"github.com/safescan/recall-cli/internal/model"
)

// Resolver is the authoritative, persisted determination path.
type Resolver struct {
	policy MatchingPolicy
}

// NewResolver returns a resolver on the authoritative policy.
func NewResolver() *Resolver {
	return &Resolver{policy: AuthoritativePolicy}
}

// GetRecallStatus decides the product's recall status against the full,
// unfiltered corpus. A recall is relevant when its lots match the
// product lot regardless of brand, or when it lists no lot numbers and
// the fuzzy brand predicate passes. The reference is the first relevant
// recall in corpus iteration order; there is deliberately no recency or
// severity sort.
func (r *Resolver) GetRecallStatus(p model.Product, corpus []model.Recall) model.RecallDetermination {
	var relevant []*model.Recall
	for i := range corpus {
		rec := &corpus[i]
		if !applies(r.policy, p.Brand, p.LotNumber, rec) {
			continue
		}
		if r.policy.ShortCircuit {
			return model.RecallDetermination{Status: model.RecallStatusRecalled, RecallReference: rec.ID}
		}
		relevant = append(relevant, rec)
	}
	if len(relevant) == 0 {
		return model.RecallDetermination{Status: model.RecallStatusSafe}
	}
	if len(relevant) > 1 {
		ids := make([]string, len(relevant))
		for i, rec := range relevant {
			ids[i] = rec.ID
		}
		zap.L().Debug("resolver: multiple relevant recalls, referencing first",
			zap.String("product", p.ID),
			zap.Strings("recalls", ids),
		)
	}
	return model.RecallDetermination{
		Status:          model.RecallStatusRecalled,
		RecallReference: relevant[0].ID,
	}
}
