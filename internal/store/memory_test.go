package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hardbanrecords/backoffice/internal/model"
)

func TestMemoryJobStoreRoundTrip(t *testing.T) {
	s := NewMemoryJobStore()
	ctx := context.Background()

	job := &model.Job{
		ID:     "job-1",
		Kind:   model.JobKindDistribution,
		Status: model.JobStatusQueued,
	}
	require.NoError(t, s.Save(ctx, job))

	got, err := s.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobKindDistribution, got.Kind)

	_, err = s.Get(ctx, "missing")
	require.Error(t, err)
}

func TestMemoryChannelStoreKeepsLatestStatus(t *testing.T) {
	s := NewMemoryChannelStore()
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, model.ChannelUpdate{
		ReleaseID: "rel-1", Platform: "spotify",
		Status: model.ChannelStatusDelivered, UpdatedAt: time.Now(),
	}))
	require.NoError(t, s.Update(ctx, model.ChannelUpdate{
		ReleaseID: "rel-1", Platform: "spotify",
		Status: model.ChannelStatusRejected, ErrorDetails: "metadata rejected",
	}))

	got, err := s.Get(ctx, "rel-1", "spotify")
	require.NoError(t, err)
	assert.Equal(t, model.ChannelStatusRejected, got.Status)

	_, err = s.Get(ctx, "rel-1", "bandcamp")
	require.Error(t, err)
}

func TestMemoryEarningsStoreAccumulates(t *testing.T) {
	s := NewMemoryEarningsStore()
	ctx := context.Background()

	require.NoError(t, s.CreateEarnings(ctx, &model.Earnings{ID: "e-1", Amount: 1.10}))
	require.NoError(t, s.CreateEarnings(ctx, &model.Earnings{ID: "e-2", Amount: 2.20}))
	require.NoError(t, s.CreateStatement(ctx, &model.RoyaltyStatement{ID: "st-1", GrossRevenue: 3.30}))

	earnings := s.Earnings()
	require.Len(t, earnings, 2)
	assert.Equal(t, "e-1", earnings[0].ID)

	statements := s.Statements()
	require.Len(t, statements, 1)
	assert.InDelta(t, 3.30, statements[0].GrossRevenue, 1e-9)
}

func TestMemoryCatalogResolve(t *testing.T) {
	cat := NewMemoryCatalog(
		CatalogEntry{ISRC: "USRC17607839", Title: "Neon Tide", Artist: "Mavi Rains", TrackID: "trk-1", HolderID: "holder-a"},
		CatalogEntry{Title: "Glasshouse", Artist: "Mavi Rains", TrackID: "trk-2", HolderID: "holder-a"},
	)
	ctx := context.Background()

	ref, err := cat.Resolve(ctx, "USRC17607839", "", "")
	require.NoError(t, err)
	assert.Equal(t, "trk-1", ref.TrackID)

	// Title/artist fallback when the report carries no ISRC.
	ref, err = cat.Resolve(ctx, "", "Glasshouse", "Mavi Rains")
	require.NoError(t, err)
	assert.Equal(t, "trk-2", ref.TrackID)

	// Unknown ISRC still falls through to the title when it matches.
	ref, err = cat.Resolve(ctx, "ZZZZ00000000", "Neon Tide", "Mavi Rains")
	require.NoError(t, err)
	assert.Equal(t, "trk-1", ref.TrackID)

	_, err = cat.Resolve(ctx, "", "Unknown Song", "Nobody")
	require.Error(t, err)
}
