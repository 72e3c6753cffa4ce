// Package featureflags serves runtime switches. Stored overrides win over
// the defaults compiled into the binary, and reads go through a short-lived
// in-process cache.
package featureflags

import (
	"encoding/json"
	"fmt"
	"time"
)

// FlagMetarPreserveZeroValues keeps zero readings (0 kt, 0 °C) when
// normalizing observations instead of dropping them as missing.
const FlagMetarPreserveZeroValues = "metar_preserve_zero_values"

// defaults lists every flag the service reads, with its built-in value.
// The type of the default fixes the type an override must have.
var defaults = map[string]any{
	FlagMetarPreserveZeroValues: false,
}

// Flag is a resolved flag value.
type Flag struct {
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`

	// UpdatedBy is the admin who stored the override; empty for defaults.
	UpdatedBy string `json:"updatedBy,omitempty"`
}

type FlagList struct {
	Items []Flag `json:"items"`
}

type FlagUpdate struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// FlagUpdateRequest is the body of PUT /v1/admin/feature-flags. Reason is
// only written to the audit log.
type FlagUpdateRequest struct {
	Updates []FlagUpdate `json:"updates"`
	Reason  string       `json:"reason"`
}

// BoolValue interprets the flag as a switch. Numbers count as on when
// non-zero; any other type yields fallback.
func (f *Flag) BoolValue(fallback bool) bool {
	if f == nil {
		return fallback
	}
	switch v := f.Value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	}
	return fallback
}

// StringValue returns the flag's string value, or fallback.
func (f *Flag) StringValue(fallback string) string {
	if f == nil {
		return fallback
	}
	if v, ok := f.Value.(string); ok {
		return v
	}
	return fallback
}

// JSONValue decodes a structured flag value into target. A nil flag leaves
// target untouched.
func (f *Flag) JSONValue(target any) error {
	if f == nil {
		return nil
	}
	raw, err := json.Marshal(f.Value)
	if err != nil {
		return fmt.Errorf("flag %s: %w", f.Key, err)
	}
	return json.Unmarshal(raw, target)
}

// DefaultFlags returns a fresh copy of the built-in flags stamped with now.
func DefaultFlags(now time.Time) map[string]*Flag {
	out := make(map[string]*Flag, len(defaults))
	for key, value := range defaults {
		out[key] = &Flag{Key: key, Value: value, UpdatedAt: now}
	}
	return out
}

// IsKnown reports whether the service reads key.
func IsKnown(key string) bool {
	_, ok := defaults[key]
	return ok
}

// sameKind reports whether an override value can replace def. JSON decoding
// yields bool, string, float64, []any or map[string]any.
func sameKind(def, value any) bool {
	switch def.(type) {
	case bool:
		_, ok := value.(bool)
		return ok
	case string:
		_, ok := value.(string)
		return ok
	case float64, int:
		_, ok := value.(float64)
		return ok
	default:
		return value != nil
	}
}
