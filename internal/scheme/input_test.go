package scheme_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luc118i/operacional-app/internal/scheme"
)

func decodePayload(t *testing.T, body string) scheme.PointPayload {
	t.Helper()
	var p scheme.PointPayload
	require.NoError(t, json.Unmarshal([]byte(body), &p))
	return p
}

func TestPointPayload_Input(t *testing.T) {
	p := decodePayload(t, `{
		"waypoint": {"id": "loc-b", "name": "Posto B", "city": "Bravo", "state": "GO", "lat": -15.8, "lng": -47.9},
		"kind": "PA",
		"functions": ["APOIO", "DESCANSO", "apoio"],
		"dwell_min": 30,
		"justification": "  parada obrigatoria  "
	}`)

	in, err := p.Input()
	require.NoError(t, err)

	assert.Equal(t, "loc-b", in.Waypoint.ID)
	assert.Equal(t, scheme.KindSupportPoint, in.Kind)
	assert.Equal(t, []scheme.Function{scheme.FunctionRest, scheme.FunctionSupport}, in.Functions)
	require.NotNil(t, in.DwellMin)
	assert.Equal(t, 30, *in.DwellMin)
	assert.Equal(t, "parada obrigatoria", in.Justification)
	assert.Zero(t, in.LegKm)
}

func TestPointPayload_InputErrors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{
			name:      "missing waypoint",
			body:      `{"kind": "PE"}`,
			wantField: "waypoint",
		},
		{
			name:      "unknown kind",
			body:      `{"waypoint": {"id": "loc-a", "lat": 0, "lng": 0}, "kind": "XX"}`,
			wantField: "kind",
		},
		{
			name:      "unknown function",
			body:      `{"waypoint": {"id": "loc-a", "lat": 0, "lng": 0}, "kind": "PE", "functions": ["LUNCH"]}`,
			wantField: "functions[0]",
		},
		{
			name:      "negative dwell",
			body:      `{"waypoint": {"id": "loc-a", "lat": 0, "lng": 0}, "kind": "PE", "dwell_min": -5}`,
			wantField: "dwell_min",
		},
		{
			name:      "latitude out of range",
			body:      `{"waypoint": {"id": "loc-a", "lat": 95, "lng": 0}, "kind": "PE"}`,
			wantField: "waypoint.lat",
		},
		{
			name:      "waypoint without id",
			body:      `{"waypoint": {"lat": 0, "lng": 0}, "kind": "PE"}`,
			wantField: "waypoint.id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodePayload(t, tt.body).Input()

			var verr *scheme.ValidationError
			require.ErrorAs(t, err, &verr)

			fields := make([]string, 0, len(verr.Errors))
			for _, fe := range verr.Errors {
				fields = append(fields, fe.Field)
			}
			assert.Contains(t, fields, tt.wantField)
		})
	}
}

func TestPatchPayload_Patch(t *testing.T) {
	var p scheme.PatchPayload
	require.NoError(t, json.Unmarshal([]byte(`{"kind": "TMJ", "functions": [], "leg_km": 88.5}`), &p))

	patch, err := p.Patch()
	require.NoError(t, err)

	require.NotNil(t, patch.Kind)
	assert.Equal(t, scheme.KindDriverChange, *patch.Kind)
	require.NotNil(t, patch.Functions)
	assert.Empty(t, *patch.Functions)
	require.NotNil(t, patch.LegKm)
	assert.Equal(t, 88.5, *patch.LegKm)
	assert.Nil(t, patch.DwellMin)
	assert.Nil(t, patch.Waypoint)
}

func TestPatchPayload_PatchErrors(t *testing.T) {
	var p scheme.PatchPayload
	require.NoError(t, json.Unmarshal([]byte(`{"kind": "ZZ", "custom_speed_kmh": 0}`), &p))

	_, err := p.Patch()

	var verr *scheme.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "kind")
}
