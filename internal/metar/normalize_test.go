package metar_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeroweather/aeroweather/internal/metar"
)

var legacy = metar.NormalizeOptions{}

func TestNormalize_TextPayload(t *testing.T) {
	texts := []string{
		"KJFK 121651Z 31012KT 10SM FEW050 12/M03 A3012",
		"",
		"not a metar at all",
	}

	for _, text := range texts {
		obs := metar.Normalize(metar.TextPayload(text), legacy)
		assert.Equal(t, metar.CanonicalObservation{RawText: text}, obs)
		assert.False(t, obs.Visibility.IsPresent())
		assert.Nil(t, obs.Wind)
		assert.False(t, obs.TemperatureC.IsPresent())
		assert.False(t, obs.Clouds.IsPresent())
		assert.False(t, obs.ObservationTime.IsPresent())
	}
}

func TestNormalize_AviationWeatherRecord(t *testing.T) {
	raw := metar.StructuredPayload(map[string]any{
		"raw_text":              "KJFK 121651Z 31012KT 10SM FEW050 12/M03 A3012",
		"visibility_statute_mi": 10.0,
		"wind_dir_degrees":      310.0,
		"wind_speed_kt":         12.0,
		"temp_c":                12.2,
		"sky_condition":         []any{map[string]any{"sky_cover": "FEW", "cloud_base_ft_agl": 5000.0}},
		"observation_time":      "2024-03-12T16:51:00Z",
	})

	obs := metar.Normalize(raw, legacy)

	assert.Equal(t, "KJFK 121651Z 31012KT 10SM FEW050 12/M03 A3012", obs.RawText)
	assert.Equal(t, metar.Some(10.0), obs.Visibility)
	require.NotNil(t, obs.Wind)
	assert.Equal(t, metar.Some(310.0), obs.Wind.DirectionDegrees)
	assert.Equal(t, metar.Some(12.0), obs.Wind.SpeedKt)
	assert.False(t, obs.Wind.SpeedKph.IsPresent())
	assert.Equal(t, metar.Some(12.2), obs.TemperatureC)
	assert.True(t, obs.Clouds.IsPresent())
	assert.Equal(t, metar.Some("2024-03-12T16:51:00Z"), obs.ObservationTime)
}

func TestNormalize_AliasPriority(t *testing.T) {
	raw := metar.StructuredPayload(map[string]any{
		"raw":                   "from raw",
		"raw_text":              "from raw_text",
		"visibility":            3.0,
		"visibility_statute_mi": 9.0,
		"sky_condition":         "BKN",
		"clouds":                "OVC",
		"observation_time":      "t1",
		"time":                  "t2",
		"time_observed":         "t3",
	})

	obs := metar.Normalize(raw, legacy)

	assert.Equal(t, "from raw", obs.RawText)
	assert.Equal(t, metar.Some(3.0), obs.Visibility)
	assert.Equal(t, metar.Some("BKN"), obs.Clouds)
	assert.Equal(t, metar.Some("t1"), obs.ObservationTime)
}

func TestNormalize_LaterAliasesUsedWhenEarlierMissing(t *testing.T) {
	raw := metar.StructuredPayload(map[string]any{
		"raw":           "",
		"raw_text":      "fallback text",
		"visibility":    "",
		"clouds":        "SCT",
		"time_observed": "t3",
	})

	obs := metar.Normalize(raw, legacy)

	assert.Equal(t, "fallback text", obs.RawText)
	assert.False(t, obs.Visibility.IsPresent())
	assert.Equal(t, metar.Some("SCT"), obs.Clouds)
	assert.Equal(t, metar.Some("t3"), obs.ObservationTime)
}

func TestNormalize_RawTextFallsBackToRendering(t *testing.T) {
	raw := metar.StructuredPayload(map[string]any{"visibility": 6.0})

	obs := metar.Normalize(raw, legacy)

	assert.JSONEq(t, `{"visibility":6}`, obs.RawText)
}

func TestNormalize_KnotsWinOverKph(t *testing.T) {
	raw := metar.StructuredPayload(map[string]any{
		"wind_speed_kt":  15.0,
		"wind_speed_kph": 28.0,
	})

	obs := metar.Normalize(raw, legacy)

	require.NotNil(t, obs.Wind)
	assert.Equal(t, metar.Some(15.0), obs.Wind.SpeedKt)
	assert.False(t, obs.Wind.SpeedKph.IsPresent())
	assert.False(t, obs.Wind.DirectionDegrees.IsPresent())
}

func TestNormalize_KphUsedWithoutKnots(t *testing.T) {
	raw := metar.StructuredPayload(map[string]any{"wind_speed_kph": 28.0})

	obs := metar.Normalize(raw, legacy)

	require.NotNil(t, obs.Wind)
	assert.False(t, obs.Wind.SpeedKt.IsPresent())
	assert.Equal(t, metar.Some(28.0), obs.Wind.SpeedKph)
}

func TestNormalize_NoWindFields(t *testing.T) {
	raw := metar.StructuredPayload(map[string]any{"raw": "KJFK", "temp_c": 5.0})

	obs := metar.Normalize(raw, legacy)

	assert.Nil(t, obs.Wind)
}

func TestNormalize_ZeroValues(t *testing.T) {
	raw := metar.StructuredPayload(map[string]any{
		"raw":              "EHAM 010000Z 00000KT CAVOK 00/M02",
		"wind_dir_degrees": 0.0,
		"wind_speed_kt":    json.Number("0"),
		"wind_speed_kph":   0.0,
		"temp_c":           0.0,
		"visibility":       nil,
		"clouds":           []any{},
	})

	t.Run("falsy values are absent by default", func(t *testing.T) {
		obs := metar.Normalize(raw, legacy)

		assert.Nil(t, obs.Wind)
		assert.False(t, obs.TemperatureC.IsPresent())
		assert.False(t, obs.Visibility.IsPresent())
		assert.False(t, obs.Clouds.IsPresent())
	})

	t.Run("zero values survive when preserved", func(t *testing.T) {
		obs := metar.Normalize(raw, metar.NormalizeOptions{PreserveZeroValues: true})

		require.NotNil(t, obs.Wind)
		assert.Equal(t, metar.Some(0.0), obs.Wind.DirectionDegrees)
		assert.Equal(t, metar.Some(json.Number("0")), obs.Wind.SpeedKt)
		assert.False(t, obs.Wind.SpeedKph.IsPresent())
		assert.Equal(t, metar.Some(0.0), obs.TemperatureC)
		assert.False(t, obs.Visibility.IsPresent(), "null is always absent")
		assert.Equal(t, metar.Some([]any{}), obs.Clouds)
	})
}

func TestNormalize_Idempotent(t *testing.T) {
	raws := []metar.RawObservation{
		metar.TextPayload("KJFK 121651Z"),
		metar.StructuredPayload(map[string]any{
			"raw":           "KJFK",
			"visibility":    "10",
			"wind_speed_kt": 12.0,
			"sky_condition": []any{"FEW"},
		}),
		metar.StructuredPayload(map[string]any{}),
	}

	for _, opts := range []metar.NormalizeOptions{legacy, {PreserveZeroValues: true}} {
		for _, raw := range raws {
			assert.Equal(t, metar.Normalize(raw, opts), metar.Normalize(raw, opts))
		}
	}
}

func TestNormalize_UnknownKind(t *testing.T) {
	obs := metar.Normalize(metar.RawObservation{}, legacy)
	assert.Equal(t, metar.CanonicalObservation{}, obs)
}

func TestNormalize_OddShapesDoNotPanic(t *testing.T) {
	raw := metar.StructuredPayload(map[string]any{
		"raw":              42.0,
		"visibility":       map[string]any{"repr": "P6SM"},
		"wind_dir_degrees": "VRB",
		"wind_speed_kt":    []any{1, 2},
		"temp_c":           true,
	})

	assert.NotPanics(t, func() {
		obs := metar.Normalize(raw, legacy)
		assert.Equal(t, "42", obs.RawText)
		require.NotNil(t, obs.Wind)
		assert.Equal(t, metar.Some("VRB"), obs.Wind.DirectionDegrees)
	})
}
