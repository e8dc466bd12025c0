package scheme_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luc118i/operacional-app/internal/scheme"
	"github.com/luc118i/operacional-app/internal/waypoint"
)

func TestRecords_RoundTripPreservesSequence(t *testing.T) {
	e := newTestEditor(t, &fixedResolver{km: 100}, nil)
	seq := buildRoute(t, e)

	records := scheme.EncodeRecords("sch_1", seq.Points)
	require.Len(t, records, 3)

	assert.True(t, records[0].IsInitial)
	assert.False(t, records[0].IsFinal)
	assert.True(t, records[2].IsFinal)
	assert.Equal(t, "loc-b", records[1].WaypointID)
	assert.Equal(t, []string{"REST"}, records[1].Functions)
	assert.True(t, records[1].RestStop)
	assert.Equal(t, 69.8, records[1].AvgSpeedKmh)

	points := scheme.DecodeRecords(records, map[string]waypoint.Waypoint{
		wpA.ID: wpA, wpB.ID: wpB, wpC.ID: wpC,
	})
	assert.Equal(t, seq.Points, scheme.Recompute(points, seq.AnchorClock))
}

func TestDecodeRecords_IgnoresStoredFlags(t *testing.T) {
	records := []scheme.PointRecord{
		{ID: "pt_2", Position: 2, WaypointID: "loc-b", Kind: "PP", LegKm: 90},
		{ID: "pt_1", Position: 1, WaypointID: "loc-a", Kind: "PE", Flags: scheme.Flags{RestStop: true}},
	}

	points := scheme.DecodeRecords(records, nil)
	require.Len(t, points, 2)

	assert.Equal(t, "pt_1", points[0].ID)
	assert.Equal(t, []scheme.Function{scheme.FunctionBoarding}, points[0].Functions)
	assert.False(t, points[0].Flags().RestStop)
	assert.Equal(t, "loc-a", points[0].Waypoint.ID)

	assert.Equal(t, []scheme.Function{scheme.FunctionRest}, points[1].Functions)
	assert.Equal(t, "loc-a", points[1].LegFrom)
}

func TestDecodeRecords_AcceptsLegacyFunctionNames(t *testing.T) {
	records := []scheme.PointRecord{
		{ID: "pt_1", Position: 1, WaypointID: "loc-a", Kind: "PA", Functions: []string{"APOIO", "DESCANSO", "???"}},
	}

	points := scheme.DecodeRecords(records, nil)

	assert.Equal(t, []scheme.Function{scheme.FunctionRest, scheme.FunctionSupport}, points[0].Functions)
}

func TestInMemoryRepository(t *testing.T) {
	repo := scheme.NewInMemoryRepository()
	ctx := context.Background()

	_, err := repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, scheme.ErrSchemeNotFound)

	e := newTestEditor(t, &fixedResolver{km: 100}, nil)
	seq := buildRoute(t, e)

	s := &scheme.Scheme{
		ID:        "sch_1",
		LineCode:  "1234",
		LineName:  "Alpha - Charlie",
		Direction: scheme.DirectionOutbound,
		TripTime:  seq.AnchorClock,
		Points:    seq.Points,
	}
	require.NoError(t, repo.Save(ctx, s))
	assert.False(t, s.CreatedAt.IsZero())

	got, err := repo.Get(ctx, "sch_1")
	require.NoError(t, err)
	assert.Equal(t, "1234", got.LineCode)
	assert.Equal(t, seq.Points, scheme.Recompute(got.Sequence().Points, got.TripTime))

	list, err := repo.List(ctx, scheme.ListOptions{LineCode: "1234"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Points)

	list, err = repo.List(ctx, scheme.ListOptions{LineCode: "9999"})
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, repo.Delete(ctx, "sch_1"))
	_, err = repo.Get(ctx, "sch_1")
	assert.ErrorIs(t, err, scheme.ErrSchemeNotFound)
}
