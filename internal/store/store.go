// Package store persists scanned products, the recall corpus, learned
// lot patterns and user-contributed brands behind one interface with
// SQLite (embedded default) and PostgreSQL implementations.
package store

import (
	"context"
	"time"

	"github.com/safescan/recall-cli/internal/model"
)

// ProductFilter specifies criteria for listing products.
type ProductFilter struct {
	Status  model.RecallStatus `json:"status,omitempty"`
	Country string             `json:"country,omitempty"`
	Limit   int                `json:"limit,omitempty"`
	Offset  int                `json:"offset,omitempty"`
}

// Store defines the persistence interface for the recall pipeline.
//
// UpsertLotPattern is the one operation with a hard atomicity
// requirement: concurrent observations of the same (brand, template)
// must not lose increments, so implementations use a single
// INSERT ... ON CONFLICT DO UPDATE statement, never read-then-write.
type Store interface {
	// Products
	CreateProduct(ctx context.Context, p model.Product) (*model.Product, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]model.Product, error)
	UpdateProductStatus(ctx context.Context, id string, det model.RecallDetermination) error

	// Recall corpus
	ReplaceRecalls(ctx context.Context, country string, recalls []model.Recall) (int, error)
	UpsertRecalls(ctx context.Context, recalls []model.Recall) (int, error)
	ListRecalls(ctx context.Context, country string) ([]model.Recall, error)

	// Lot patterns
	UpsertLotPattern(ctx context.Context, brand, template, regex, exampleLot string) (*model.LotPattern, error)
	ListLotPatterns(ctx context.Context, brand string) ([]model.LotPattern, error)

	// User-contributed brands
	AddUserBrand(ctx context.Context, name string) error
	TouchUserBrand(ctx context.Context, name string) error
	ListUserBrands(ctx context.Context) ([]string, error)
	PruneUserBrands(ctx context.Context, unusedFor time.Duration) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
