package recall

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/safescan/recall-cli/internal/model"
)

// UpdateFunc persists one product's new determination.
type UpdateFunc func(ctx context.Context, productID string, det model.RecallDetermination) error

// SweepStats summarizes one corpus-refresh re-evaluation.
type SweepStats struct {
	Total           int `json:"total"`
	Changed         int `json:"changed"`
	NewlyRecalled   int `json:"newly_recalled"`
	Rescinds        int `json:"rescinds"`
	RescindsSkipped int `json:"rescinds_skipped"`
}

// Sweeper re-resolves every stored product after a recall-corpus
// refresh. Products are independent, so resolution fans out with
// bounded concurrency. A recalled product turning safe is an anomaly
// (a rescinded recall, or a feed glitch): it is always logged and only
// persisted when allowRescind is set.
type Sweeper struct {
	resolver     *Resolver
	update       UpdateFunc
	concurrency  int
	allowRescind bool
}

// NewSweeper builds a sweeper. Concurrency values below one fall back
// to serial execution.
func NewSweeper(update UpdateFunc, concurrency int, allowRescind bool) *Sweeper {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Sweeper{
		resolver:     NewResolver(),
		update:       update,
		concurrency:  concurrency,
		allowRescind: allowRescind,
	}
}

// Run resolves all products against the corpus and persists the
// determinations that changed.
func (s *Sweeper) Run(ctx context.Context, products []model.Product, corpus []model.Recall) (SweepStats, error) {
	var (
		mu    sync.Mutex
		stats SweepStats
	)
	stats.Total = len(products)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, p := range products {
		p := p
		g.Go(func() error {
			det := s.resolver.GetRecallStatus(p, corpus)
			if det.Status == p.RecallStatus && det.RecallReference == p.RecallReference {
				return nil
			}

			if model.IsRescind(p.RecallStatus, det.Status) {
				zap.L().Warn("sweep: recalled product resolved safe",
					zap.String("product", p.ID),
					zap.String("brand", p.Brand),
					zap.String("lot", p.LotNumber),
					zap.String("previous_reference", p.RecallReference),
					zap.Bool("applied", s.allowRescind),
				)
				mu.Lock()
				if s.allowRescind {
					stats.Rescinds++
				} else {
					stats.RescindsSkipped++
				}
				mu.Unlock()
				if !s.allowRescind {
					return nil
				}
			}

			if err := s.update(gctx, p.ID, det); err != nil {
				return err
			}

			mu.Lock()
			stats.Changed++
			if det.Status == model.RecallStatusRecalled && p.RecallStatus != model.RecallStatusRecalled {
				stats.NewlyRecalled++
			}
			mu.Unlock()

			if det.Status == model.RecallStatusRecalled {
				zap.L().Info("sweep: product recalled",
					zap.String("product", p.ID),
					zap.String("brand", p.Brand),
					zap.String("lot", p.LotNumber),
					zap.String("recall", det.RecallReference),
				)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stats, err
	}
	return stats, nil
}
