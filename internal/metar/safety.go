package metar

import (
	"fmt"
	"math"
	"strconv"
)

// Safety thresholds. Visibility is compared in whatever unit the provider
// reported it, statute miles assumed.
const (
	DelayVisibility   = 2.0
	CautionVisibility = 5.0
	DelayWindSpeedKt  = 40.0
)

// Evaluate derives a safety verdict from an observation. Rules are applied in
// order and reasons accumulate; CAUTION applies only when nothing has already
// forced a DELAY.
func Evaluate(obs CanonicalObservation) SafetyVerdict {
	verdict := SafetyVerdict{Status: StatusOK, Reasons: []string{}}

	visibility, visibilityKnown := obs.Visibility.Float()

	if visibilityKnown && visibility < DelayVisibility {
		verdict.Status = StatusDelay
		verdict.Reasons = append(verdict.Reasons, fmt.Sprintf("Low visibility (%s)", formatFloat(visibility)))
	}

	if obs.Wind != nil {
		if speed, ok := obs.Wind.SpeedKt.Float(); ok && speed > DelayWindSpeedKt {
			raw, _ := obs.Wind.SpeedKt.Get()
			verdict.Status = StatusDelay
			verdict.Reasons = append(verdict.Reasons, fmt.Sprintf("High wind speed (%s kt)", formatRaw(raw)))
		}
	}

	if verdict.Status == StatusOK && visibilityKnown && visibility < CautionVisibility {
		verdict.Status = StatusCaution
		verdict.Reasons = append(verdict.Reasons, "Visibility below recommended VFR minima")
	}

	return verdict
}

// formatFloat prints integral values with one decimal ("1.0") and everything
// else in shortest form ("1.5").
func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e16 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// formatRaw prints a reading as the provider sent it.
func formatRaw(v any) string {
	switch x := v.(type) {
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
