package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/safescan/recall-cli/internal/brand"
	"github.com/safescan/recall-cli/internal/config"
	"github.com/safescan/recall-cli/internal/feed"
	"github.com/safescan/recall-cli/internal/lotpattern"
	"github.com/safescan/recall-cli/internal/model"
	"github.com/safescan/recall-cli/internal/recall"
	"github.com/safescan/recall-cli/internal/store"
)

// appEnv bundles the store, the brand matcher, the pattern service and
// the in-memory recall corpus for one command invocation.
type appEnv struct {
	Store      store.Store
	Matcher    *brand.Matcher
	Patterns   *lotpattern.Service
	Correlator *recall.Correlator
	Resolver   *recall.Resolver
	Corpus     []model.Recall
}

func (e *appEnv) Close() {
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Warn("store close failed", zap.Error(err))
		}
	}
}

// openStore creates the configured store backend.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.Path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
}

// initEnv opens the store and loads the brand and recall corpora.
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}

	var static []string
	if _, err := os.Stat(cfg.Brands.StaticPath); err == nil {
		static, err = feed.LoadBrands(cfg.Brands.StaticPath)
		if err != nil {
			st.Close()
			return nil, err
		}
	} else {
		zap.L().Debug("no static brand corpus", zap.String("path", cfg.Brands.StaticPath))
	}

	userBrands, err := st.ListUserBrands(ctx)
	if err != nil {
		st.Close()
		return nil, err
	}

	corpus, err := st.ListRecalls(ctx, "")
	if err != nil {
		st.Close()
		return nil, err
	}

	matcher := brand.NewMatcher(static, userBrands)
	zap.L().Debug("environment ready",
		zap.Int("brands", matcher.Size()),
		zap.Int("recalls", len(corpus)),
	)

	return &appEnv{
		Store:      st,
		Matcher:    matcher,
		Patterns:   lotpattern.NewService(st),
		Correlator: recall.NewCorrelator(),
		Resolver:   recall.NewResolver(),
		Corpus:     corpus,
	}, nil
}
