package metar_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aeroweather/aeroweather/internal/metar"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name        string
		obs         metar.CanonicalObservation
		wantStatus  metar.Status
		wantReasons []string
	}{
		{
			name:        "nothing known",
			obs:         metar.CanonicalObservation{},
			wantStatus:  metar.StatusOK,
			wantReasons: []string{},
		},
		{
			name:        "good visibility",
			obs:         metar.CanonicalObservation{Visibility: metar.Some(10.0)},
			wantStatus:  metar.StatusOK,
			wantReasons: []string{},
		},
		{
			name:        "visibility exactly five is OK",
			obs:         metar.CanonicalObservation{Visibility: metar.Some(5.0)},
			wantStatus:  metar.StatusOK,
			wantReasons: []string{},
		},
		{
			name:        "marginal visibility",
			obs:         metar.CanonicalObservation{Visibility: metar.Some(4.0)},
			wantStatus:  metar.StatusCaution,
			wantReasons: []string{"Visibility below recommended VFR minima"},
		},
		{
			name:        "visibility exactly two is caution",
			obs:         metar.CanonicalObservation{Visibility: metar.Some(2.0)},
			wantStatus:  metar.StatusCaution,
			wantReasons: []string{"Visibility below recommended VFR minima"},
		},
		{
			name:        "low visibility",
			obs:         metar.CanonicalObservation{Visibility: metar.Some(1.0)},
			wantStatus:  metar.StatusDelay,
			wantReasons: []string{"Low visibility (1.0)"},
		},
		{
			name:        "numeric string visibility",
			obs:         metar.CanonicalObservation{Visibility: metar.Some("0.5")},
			wantStatus:  metar.StatusDelay,
			wantReasons: []string{"Low visibility (0.5)"},
		},
		{
			name:        "json number visibility",
			obs:         metar.CanonicalObservation{Visibility: metar.Some(json.Number("3"))},
			wantStatus:  metar.StatusCaution,
			wantReasons: []string{"Visibility below recommended VFR minima"},
		},
		{
			name:        "unparseable visibility is unknown",
			obs:         metar.CanonicalObservation{Visibility: metar.Some("10+")},
			wantStatus:  metar.StatusOK,
			wantReasons: []string{},
		},
		{
			name: "high wind only",
			obs: metar.CanonicalObservation{
				Visibility: metar.Some(10.0),
				Wind:       &metar.Wind{SpeedKt: metar.Some(json.Number("45"))},
			},
			wantStatus:  metar.StatusDelay,
			wantReasons: []string{"High wind speed (45 kt)"},
		},
		{
			name: "wind exactly forty is OK",
			obs: metar.CanonicalObservation{
				Wind: &metar.Wind{SpeedKt: metar.Some(40.0)},
			},
			wantStatus:  metar.StatusOK,
			wantReasons: []string{},
		},
		{
			name: "high wind in kph is not checked",
			obs: metar.CanonicalObservation{
				Wind: &metar.Wind{SpeedKph: metar.Some(120.0)},
			},
			wantStatus:  metar.StatusOK,
			wantReasons: []string{},
		},
		{
			name: "high wind suppresses caution",
			obs: metar.CanonicalObservation{
				Visibility: metar.Some(3.0),
				Wind:       &metar.Wind{SpeedKt: metar.Some(55.0)},
			},
			wantStatus:  metar.StatusDelay,
			wantReasons: []string{"High wind speed (55.0 kt)"},
		},
		{
			name: "low visibility and high wind",
			obs: metar.CanonicalObservation{
				Visibility: metar.Some(1.5),
				Wind:       &metar.Wind{SpeedKt: metar.Some(50)},
			},
			wantStatus:  metar.StatusDelay,
			wantReasons: []string{"Low visibility (1.5)", "High wind speed (50 kt)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := metar.Evaluate(tt.obs)
			assert.Equal(t, tt.wantStatus, verdict.Status)
			assert.Equal(t, tt.wantReasons, verdict.Reasons)
		})
	}
}

func TestEvaluate_VisibilityMonotonic(t *testing.T) {
	wind := &metar.Wind{SpeedKt: metar.Some(10.0)}
	want := []metar.Status{metar.StatusOK, metar.StatusCaution, metar.StatusDelay}

	for i, visibility := range []float64{10, 4, 1} {
		verdict := metar.Evaluate(metar.CanonicalObservation{
			Visibility: metar.Some(visibility),
			Wind:       wind,
		})
		assert.Equal(t, want[i], verdict.Status, "visibility %v", visibility)
	}
}

func TestEvaluate_FromNormalizedPayload(t *testing.T) {
	obs := metar.Normalize(metar.StructuredPayload(map[string]any{
		"raw":           "EGLL 121650Z 24052KT 1 1/2SM",
		"visibility":    1.5,
		"wind_speed_kt": 52.0,
	}), metar.NormalizeOptions{})

	verdict := metar.Evaluate(obs)

	assert.Equal(t, metar.StatusDelay, verdict.Status)
	assert.Equal(t, []string{"Low visibility (1.5)", "High wind speed (52.0 kt)"}, verdict.Reasons)
}
