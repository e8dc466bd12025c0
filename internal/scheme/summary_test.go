package scheme_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/luc118i/operacional-app/internal/scheme"
)

func TestSummarize(t *testing.T) {
	e := newTestEditor(t, &fixedResolver{km: 100}, nil)
	seq := buildRoute(t, e)

	s := scheme.Summarize(seq)

	assert.Equal(t, 3, s.PointCount)
	assert.Equal(t, 200.0, s.TotalKm)
	assert.Equal(t, 172, s.TotalDriveMin)
	assert.Equal(t, 15, s.TotalDwellMin)
	assert.Equal(t, 187, s.TotalMin)
	assert.Equal(t, "3:07", s.TotalDuration())
	assert.Equal(t, 69.8, s.AverageSpeedKmh)
	assert.Equal(t, 1, s.RestStops)
	assert.Zero(t, s.LongLegCount)
	assert.Equal(t, map[scheme.Kind]int{
		scheme.KindBoarding: 1,
		scheme.KindRestStop: 1,
		scheme.KindDropoff:  1,
	}, s.CountsByKind)
	assert.Equal(t, "08:00", s.Departure)
	assert.Equal(t, "10:57", s.Arrival)
	assert.Zero(t, s.ArrivalDays)
}

func TestSummarize_LongLegs(t *testing.T) {
	points := scheme.Recompute([]scheme.RoutePoint{
		{ID: "p1", Waypoint: wpA, Kind: scheme.KindBoarding},
		{ID: "p2", Waypoint: wpB, Kind: scheme.KindSupportPoint, LegKm: 240, LegFrom: wpA.ID},
		{ID: "p3", Waypoint: wpC, Kind: scheme.KindDriverChange, LegKm: 200, LegFrom: wpB.ID},
	}, "22:00")

	s := scheme.Summarize(scheme.Sequence{Points: points, AnchorClock: "22:00"})

	assert.Equal(t, 1, s.LongLegCount)
	assert.Equal(t, 2, s.RestStops)
	assert.Equal(t, 1, s.SupportPoints)
	assert.Equal(t, 1, s.DriverChanges)
	assert.Equal(t, 1, s.ArrivalDays)
}

func TestSummarize_Empty(t *testing.T) {
	s := scheme.Summarize(scheme.Sequence{})

	assert.Zero(t, s.PointCount)
	assert.Zero(t, s.AverageSpeedKmh)
	assert.Equal(t, "0:00", s.TotalDuration())
}

func TestBadges(t *testing.T) {
	tests := []struct {
		name  string
		point scheme.RoutePoint
		want  []string
	}{
		{
			name: "boarding kind hides EMB",
			point: scheme.RoutePoint{
				Kind:      scheme.KindBoarding,
				Functions: []scheme.Function{scheme.FunctionBoarding, scheme.FunctionDriverChange, scheme.FunctionSupport},
			},
			want: []string{"TM", "AP"},
		},
		{
			name: "rest stop with passenger functions",
			point: scheme.RoutePoint{
				Kind:      scheme.KindRestStop,
				Functions: []scheme.Function{scheme.FunctionRest, scheme.FunctionDropoff, scheme.FunctionBoarding, scheme.FunctionFreeStop},
			},
			want: []string{"LV", "EMB", "DES"},
		},
		{
			name: "drop-off kind hides DES",
			point: scheme.RoutePoint{
				Kind:      scheme.KindDropoff,
				Functions: []scheme.Function{scheme.FunctionDropoff},
			},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := make([]string, 0)
			for _, b := range scheme.Badges(tt.point) {
				got = append(got, b.Key)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
