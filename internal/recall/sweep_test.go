package recall

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safescan/recall-cli/internal/model"
)

type updateRecorder struct {
	mu   sync.Mutex
	dets map[string]model.RecallDetermination
}

func newUpdateRecorder() *updateRecorder {
	return &updateRecorder{dets: make(map[string]model.RecallDetermination)}
}

func (u *updateRecorder) update(_ context.Context, id string, det model.RecallDetermination) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.dets[id] = det
	return nil
}

func TestSweep_ResolvesAndPersistsChanges(t *testing.T) {
	rec := newUpdateRecorder()
	s := NewSweeper(rec.update, 4, false)

	products := []model.Product{
		{ID: "a", Brand: "Test", LotNumber: "L12345", RecallStatus: model.RecallStatusUnknown},
		{ID: "b", Brand: "Test", LotNumber: "ZZZZ", RecallStatus: model.RecallStatusUnknown},
		{ID: "c", Brand: "Test", LotNumber: "ZZZZ", RecallStatus: model.RecallStatusSafe},
	}
	corpus := []model.Recall{
		{ID: "recall-1", LotNumbers: []string{"L12345"}},
	}

	stats, err := s.Run(context.Background(), products, corpus)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Changed)
	assert.Equal(t, 1, stats.NewlyRecalled)

	assert.Equal(t, model.RecallStatusRecalled, rec.dets["a"].Status)
	assert.Equal(t, "recall-1", rec.dets["a"].RecallReference)
	assert.Equal(t, model.RecallStatusSafe, rec.dets["b"].Status)
	_, updatedC := rec.dets["c"]
	assert.False(t, updatedC, "already-safe product should not be rewritten")
}

func TestSweep_RescindSkippedByDefault(t *testing.T) {
	rec := newUpdateRecorder()
	s := NewSweeper(rec.update, 1, false)

	products := []model.Product{
		{ID: "a", Brand: "Test", LotNumber: "L12345", RecallStatus: model.RecallStatusRecalled, RecallReference: "gone"},
	}

	stats, err := s.Run(context.Background(), products, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Changed)
	assert.Equal(t, 1, stats.RescindsSkipped)
	assert.Empty(t, rec.dets)
}

func TestSweep_RescindAppliedWhenAllowed(t *testing.T) {
	rec := newUpdateRecorder()
	s := NewSweeper(rec.update, 1, true)

	products := []model.Product{
		{ID: "a", Brand: "Test", LotNumber: "L12345", RecallStatus: model.RecallStatusRecalled, RecallReference: "gone"},
	}

	stats, err := s.Run(context.Background(), products, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Changed)
	assert.Equal(t, 1, stats.Rescinds)
	assert.Equal(t, model.RecallStatusSafe, rec.dets["a"].Status)
	assert.Empty(t, rec.dets["a"].RecallReference)
}

func TestSweep_ReferenceChangeIsPersisted(t *testing.T) {
	rec := newUpdateRecorder()
	s := NewSweeper(rec.update, 2, false)

	products := []model.Product{
		{ID: "a", Brand: "Test", LotNumber: "L12345", RecallStatus: model.RecallStatusRecalled, RecallReference: "old-ref"},
	}
	corpus := []model.Recall{
		{ID: "new-ref", LotNumbers: []string{"L12345"}},
	}

	stats, err := s.Run(context.Background(), products, corpus)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Changed)
	assert.Equal(t, 0, stats.NewlyRecalled)
	assert.Equal(t, "new-ref", rec.dets["a"].RecallReference)
}
