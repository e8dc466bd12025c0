package planning_test

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luc118i/operacional-app/internal/planning"
	"github.com/luc118i/operacional-app/internal/routing"
	"github.com/luc118i/operacional-app/internal/rules"
	"github.com/luc118i/operacional-app/internal/scheme"
	"github.com/luc118i/operacional-app/internal/waypoint"
)

var (
	origin = waypoint.Waypoint{ID: "loc-bsb", City: "Brasilia", State: "DF", Lat: -15.79, Lng: -47.88}
	middle = waypoint.Waypoint{ID: "loc-anp", City: "Anapolis", State: "GO", Lat: -16.33, Lng: -48.95}
	dest   = waypoint.Waypoint{ID: "loc-gyn", City: "Goiania", State: "GO", Lat: -16.68, Lng: -49.26}
)

type fixedResolver struct {
	km float64
}

func (r *fixedResolver) ResolveKm(_ context.Context, _, _ routing.Endpoint) float64 {
	return r.km
}

func newService(resolver *fixedResolver) (*planning.Service, *scheme.InMemoryRepository) {
	repo := scheme.NewInMemoryRepository()
	svc := planning.NewService(planning.Config{
		Repository: repo,
		Resolver:   resolver,
		Engine: rules.NewEngine(rules.EngineConfig{
			Thresholds: rules.DefaultThresholds(),
			Logger:     zerolog.Nop(),
		}),
		Logger: zerolog.Nop(),
	})
	return svc, repo
}

var header = planning.Header{LineCode: "4120", LineName: "Brasilia - Goiania", Direction: scheme.DirectionOutbound}

func buildDraft(t *testing.T, svc *planning.Service) *planning.Draft {
	t.Helper()
	ctx := context.Background()

	d := svc.NewDraft(header)
	for _, in := range []scheme.PointInput{
		{Waypoint: origin, Kind: scheme.KindBoarding},
		{Waypoint: middle, Kind: scheme.KindRestStop},
		{Waypoint: dest, Kind: scheme.KindDropoff},
	} {
		_, err := d.Editor.Append(ctx, in)
		require.NoError(t, err)
	}

	first := d.Editor.Snapshot().Points[0]
	_, err := d.Editor.SetAnchor(ctx, first.ID, "07:30")
	require.NoError(t, err)
	return d
}

func TestService_NewDraft(t *testing.T) {
	svc, _ := newService(&fixedResolver{km: 60})

	d := svc.NewDraft(header)

	assert.True(t, strings.HasPrefix(d.ID, "drf_"))
	assert.Empty(t, d.SchemeID())
	assert.Equal(t, header, d.Header())
	assert.Equal(t, 1, svc.Len())

	got, err := svc.Draft(d.ID)
	require.NoError(t, err)
	assert.Same(t, d, got)

	_, err = svc.Draft("drf_missing")
	assert.ErrorIs(t, err, planning.ErrDraftNotFound)

	svc.Close(d.ID)
	assert.Zero(t, svc.Len())
}

func TestService_SaveAndOpen(t *testing.T) {
	svc, repo := newService(&fixedResolver{km: 60})
	ctx := context.Background()
	d := buildDraft(t, svc)

	saved, err := svc.Save(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(saved.ID, "sch_"))
	assert.Equal(t, saved.ID, d.SchemeID())
	assert.Equal(t, "07:30", saved.TripTime)

	// Saving again updates the same scheme.
	again, err := svc.Save(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, again.ID)

	stored, err := repo.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Points, 3)

	opened, err := svc.Open(ctx, saved.ID)
	require.NoError(t, err)
	assert.NotEqual(t, d.ID, opened.ID)
	assert.Equal(t, saved.ID, opened.SchemeID())
	assert.Equal(t, header, opened.Header())

	want := d.Editor.Snapshot()
	got := opened.Editor.Snapshot()
	assert.Equal(t, want.Points, got.Points)
	assert.Equal(t, want.AnchorClock, got.AnchorClock)
}

func TestService_SaveRejectsIncompleteDrafts(t *testing.T) {
	svc, _ := newService(&fixedResolver{km: 60})
	ctx := context.Background()

	empty := svc.NewDraft(header)
	_, err := svc.Save(ctx, empty.ID)
	assert.ErrorIs(t, err, planning.ErrIncompleteDraft)

	noClock := svc.NewDraft(header)
	_, err = noClock.Editor.Append(ctx, scheme.PointInput{Waypoint: origin, Kind: scheme.KindBoarding})
	require.NoError(t, err)
	_, err = svc.Save(ctx, noClock.ID)
	assert.ErrorIs(t, err, planning.ErrIncompleteDraft)

	badHeader := buildDraft(t, svc)
	badHeader.SetHeader(planning.Header{LineName: "no code", Direction: "sideways"})
	_, err = svc.Save(ctx, badHeader.ID)

	var verr *scheme.ValidationError
	require.ErrorAs(t, err, &verr)
	fields := make([]string, 0, len(verr.Errors))
	for _, fe := range verr.Errors {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"line_code", "direction"}, fields)
}

func TestService_OpenUnknownScheme(t *testing.T) {
	svc, _ := newService(&fixedResolver{km: 60})

	_, err := svc.Open(context.Background(), "sch_missing")
	assert.ErrorIs(t, err, scheme.ErrSchemeNotFound)
}

func TestService_EvaluateAndSummary(t *testing.T) {
	svc, _ := newService(&fixedResolver{km: 60})
	d := buildDraft(t, svc)

	report, err := svc.Evaluate(context.Background(), d.ID, rules.StrategyPreferRemote)
	require.NoError(t, err)
	assert.Equal(t, rules.SourceLocal, report.Overview.Source)
	// 60 km rest stop is anticipated and its 5 minute dwell is short.
	assert.Equal(t, rules.StatusWarning, report.Overview.Status)
	assert.Len(t, report.PointAlerts[d.Editor.Snapshot().Points[1].ID], 2)

	summary, err := svc.Summary(d.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.PointCount)
	assert.Equal(t, 120.0, summary.TotalKm)

	_, err = svc.Summary("drf_missing")
	assert.ErrorIs(t, err, planning.ErrDraftNotFound)
}

func TestService_Reevaluate(t *testing.T) {
	resolver := &fixedResolver{km: 60}
	svc, repo := newService(resolver)
	ctx := context.Background()

	d := buildDraft(t, svc)
	saved, err := svc.Save(ctx, d.ID)
	require.NoError(t, err)

	resolver.km = 180
	report, err := svc.Reevaluate(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, rules.SourceLocal, report.Overview.Source)

	stored, err := repo.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 180.0, stored.Points[1].LegKm)
	assert.Equal(t, 360.0, stored.Sequence().TotalKm())

	// Re-evaluation does not leave a draft open.
	assert.Equal(t, 1, svc.Len())
}

func TestService_ReevaluateUnknownScheme(t *testing.T) {
	svc, _ := newService(&fixedResolver{km: 60})

	_, err := svc.Reevaluate(context.Background(), "sch_missing")
	assert.ErrorIs(t, err, scheme.ErrSchemeNotFound)
}
