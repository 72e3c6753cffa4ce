package metar

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Provider field aliases, in lookup priority order.
var (
	rawTextKeys         = []string{"raw", "raw_text"}
	visibilityKeys      = []string{"visibility", "visibility_statute_mi"}
	windDirectionKeys   = []string{"wind_dir_degrees"}
	windSpeedKtKeys     = []string{"wind_speed_kt"}
	windSpeedKphKeys    = []string{"wind_speed_kph"}
	temperatureKeys     = []string{"temp_c"}
	cloudsKeys          = []string{"sky_condition", "clouds"}
	observationTimeKeys = []string{"observation_time", "time", "time_observed"}
)

// NormalizeOptions controls how field presence is decided.
type NormalizeOptions struct {
	// PreserveZeroValues keeps zero readings such as 0 kt or 0 °C. When false,
	// any falsy value (0, "", false, empty list or map) counts as missing.
	PreserveZeroValues bool
}

// Normalize maps a provider payload onto a CanonicalObservation. It never
// fails: unknown or oddly shaped fields are left absent.
func Normalize(raw RawObservation, opts NormalizeOptions) CanonicalObservation {
	switch raw.Kind {
	case PayloadText:
		return CanonicalObservation{RawText: raw.Text}
	case PayloadStructured:
	default:
		return CanonicalObservation{}
	}

	f := raw.Fields
	obs := CanonicalObservation{
		Visibility:      pick(f, visibilityKeys, opts),
		TemperatureC:    pick(f, temperatureKeys, opts),
		Clouds:          pick(f, cloudsKeys, opts),
		ObservationTime: pick(f, observationTimeKeys, opts),
	}

	if v := pick(f, rawTextKeys, NormalizeOptions{}); v.present {
		obs.RawText = renderText(v.v)
	} else {
		obs.RawText = renderText(f)
	}

	wind := Wind{DirectionDegrees: pick(f, windDirectionKeys, opts)}
	if kt := pick(f, windSpeedKtKeys, opts); kt.present {
		wind.SpeedKt = kt
	} else {
		wind.SpeedKph = pick(f, windSpeedKphKeys, opts)
	}
	if wind.DirectionDegrees.present || wind.SpeedKt.present || wind.SpeedKph.present {
		obs.Wind = &wind
	}

	return obs
}

// pick returns the first alias whose value counts as present.
func pick(fields map[string]any, keys []string, opts NormalizeOptions) Value {
	for _, key := range keys {
		v, ok := fields[key]
		if !ok || v == nil {
			continue
		}
		if !opts.PreserveZeroValues && !Truthy(v) {
			continue
		}
		return Some(v)
	}
	return Value{}
}

// Truthy reports whether a decoded JSON value is non-zero in the loose sense:
// null, false, zero numbers, empty strings and empty collections are not.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return x != ""
		}
		return f != 0
	case float64:
		return x != 0
	case float32:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case int32:
		return x != 0
	case uint:
		return x != 0
	case uint64:
		return x != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}

// toFloat converts numeric values and numeric strings. Booleans are not
// numbers here.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// renderText returns strings unchanged and anything else as compact JSON.
func renderText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
