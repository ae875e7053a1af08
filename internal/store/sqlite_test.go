package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safescan/recall-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(t.TempDir() + "/recall.db")
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteProductLifecycle(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := s.CreateProduct(ctx, model.Product{
		Brand:     "Danone",
		LotNumber: "L12345",
		Country:   "FR",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, model.RecallStatusUnknown, created.RecallStatus)

	got, err := s.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Danone", got.Brand)
	assert.Equal(t, "L12345", got.LotNumber)

	err = s.UpdateProductStatus(ctx, created.ID, model.RecallDetermination{
		Status:          model.RecallStatusRecalled,
		RecallReference: "recall-1",
	})
	require.NoError(t, err)

	got, err = s.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RecallStatusRecalled, got.RecallStatus)
	assert.Equal(t, "recall-1", got.RecallReference)
}

func TestSQLiteGetProductNotFound(t *testing.T) {
	s := newTestSQLiteStore(t)

	_, err := s.GetProduct(context.Background(), "nope")
	assert.Error(t, err)
}

func TestSQLiteUpdateProductStatusNotFound(t *testing.T) {
	s := newTestSQLiteStore(t)

	err := s.UpdateProductStatus(context.Background(), "nope", model.RecallDetermination{
		Status: model.RecallStatusSafe,
	})
	assert.Error(t, err)
}

func TestSQLiteListProductsFilters(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, p := range []model.Product{
		{Brand: "Danone", LotNumber: "L1", Country: "FR", RecallStatus: model.RecallStatusSafe},
		{Brand: "Nestlé", LotNumber: "L2", Country: "FR", RecallStatus: model.RecallStatusRecalled},
		{Brand: "Barilla", LotNumber: "L3", Country: "IT", RecallStatus: model.RecallStatusSafe},
	} {
		_, err := s.CreateProduct(ctx, p)
		require.NoError(t, err)
	}

	all, err := s.ListProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	fr, err := s.ListProducts(ctx, ProductFilter{Country: "FR"})
	require.NoError(t, err)
	assert.Len(t, fr, 2)

	recalled, err := s.ListProducts(ctx, ProductFilter{Status: model.RecallStatusRecalled})
	require.NoError(t, err)
	require.Len(t, recalled, 1)
	assert.Equal(t, "Nestlé", recalled[0].Brand)

	limited, err := s.ListProducts(ctx, ProductFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSQLiteReplaceRecalls(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	n, err := s.ReplaceRecalls(ctx, "FR", []model.Recall{
		{ID: "fr-1", Country: "FR", Brand: "Danone", LotNumbers: []string{"L12345"}},
		{ID: "fr-2", Country: "FR", Brand: "Nestlé", LotNumbers: []string{"A1", "A2"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.ReplaceRecalls(ctx, "IT", []model.Recall{
		{ID: "it-1", Country: "IT", Brand: "Barilla", LotNumbers: nil},
	})
	require.NoError(t, err)

	// Replacing one country leaves the others untouched.
	n, err = s.ReplaceRecalls(ctx, "FR", []model.Recall{
		{ID: "fr-3", Country: "FR", Brand: "Lactalis", LotNumbers: []string{"B9"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	fr, err := s.ListRecalls(ctx, "FR")
	require.NoError(t, err)
	require.Len(t, fr, 1)
	assert.Equal(t, "fr-3", fr[0].ID)
	assert.Equal(t, []string{"B9"}, fr[0].LotNumbers)

	all, err := s.ListRecalls(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSQLiteUpsertRecallsUpdatesExisting(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := s.UpsertRecalls(ctx, []model.Recall{
		{ID: "fr-1", Country: "FR", Brand: "Danone", LotNumbers: []string{"L1"}},
	})
	require.NoError(t, err)

	_, err = s.UpsertRecalls(ctx, []model.Recall{
		{ID: "fr-1", Country: "FR", Brand: "Danone", Title: "Listeria", LotNumbers: []string{"L1", "L2"}},
	})
	require.NoError(t, err)

	fr, err := s.ListRecalls(ctx, "FR")
	require.NoError(t, err)
	require.Len(t, fr, 1)
	assert.Equal(t, "Listeria", fr[0].Title)
	assert.Equal(t, []string{"L1", "L2"}, fr[0].LotNumbers)
}

func TestSQLiteListRecallsOrder(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.UpsertRecalls(ctx, []model.Recall{
		{ID: "b", Country: "FR", PublishedAt: newer, LotNumbers: nil},
		{ID: "c", Country: "FR", PublishedAt: older, LotNumbers: nil},
		{ID: "a", Country: "FR", PublishedAt: newer, LotNumbers: nil},
	})
	require.NoError(t, err)

	fr, err := s.ListRecalls(ctx, "FR")
	require.NoError(t, err)
	require.Len(t, fr, 3)
	assert.Equal(t, "c", fr[0].ID)
	assert.Equal(t, "a", fr[1].ID)
	assert.Equal(t, "b", fr[2].ID)
}

func TestSQLiteUpsertLotPatternIncrements(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	p, err := s.UpsertLotPattern(ctx, "DANONE", "X#####", `^[A-Z]\d\d\d\d\d$`, "L12345")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.Count)
	assert.Equal(t, "L12345", p.ExampleLot)

	p, err = s.UpsertLotPattern(ctx, "DANONE", "X#####", `^[A-Z]\d\d\d\d\d$`, "M99999")
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.Count)
	assert.Equal(t, "M99999", p.ExampleLot)

	// A different template for the same brand is a separate row.
	p, err = s.UpsertLotPattern(ctx, "DANONE", "##-###", `^\d\d\-\d\d\d$`, "12-345")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.Count)

	patterns, err := s.ListLotPatterns(ctx, "DANONE")
	require.NoError(t, err)
	require.Len(t, patterns, 2)
	assert.Equal(t, "X#####", patterns[0].Template)
	assert.Equal(t, int64(2), patterns[0].Count)
}

func TestSQLiteListLotPatternsUnknownBrand(t *testing.T) {
	s := newTestSQLiteStore(t)

	patterns, err := s.ListLotPatterns(context.Background(), "NOBODY")
	require.NoError(t, err)
	assert.Empty(t, patterns)
}

func TestSQLiteUserBrands(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddUserBrand(ctx, "Petit Navire"))
	require.NoError(t, s.AddUserBrand(ctx, "Bonduelle"))
	require.NoError(t, s.AddUserBrand(ctx, "Petit Navire"))

	names, err := s.ListUserBrands(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bonduelle", "Petit Navire"}, names)

	require.NoError(t, s.TouchUserBrand(ctx, "Bonduelle"))

	// Both brands were used just now, so a long retention prunes nothing.
	n, err := s.PruneUserBrands(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// Zero retention prunes everything.
	n, err = s.PruneUserBrands(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
