package settings

import (
	"math"
	"strconv"
	"strings"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/spf13/cast"
)

// bounds is the documented inclusive range of a numeric setting.
type bounds struct {
	min, max float64
}

var ranges = map[string]bounds{
	models.KeyRefreshSeconds:     {5, 120},
	models.KeyDriverPayPercent:   {0, 100},
	models.KeyBaseFee:            {0, 2000},
	models.KeyDistanceFee:        {0, 200},
	models.KeyHighValueThreshold: {0, 10000},
	models.KeyHighValueFee:       {0, 2000},
}

// Normalize coerces every field of input to its type and clamps it to its
// range. Absent or unusable values fall back to base. Out-of-range values are
// clamped silently. Normalize(Normalize(x).AsMap(), base) == Normalize(x, base).
func Normalize(input map[string]any, base models.ManagerSettings) models.ManagerSettings {
	base = clampAll(base)

	return models.ManagerSettings{
		RefreshSeconds:     int(math.Round(number(input, models.KeyRefreshSeconds, float64(base.RefreshSeconds)))),
		AutoAssign:         boolean(input, models.KeyAutoAssign, base.AutoAssign),
		DriverPayPercent:   number(input, models.KeyDriverPayPercent, base.DriverPayPercent),
		BaseFee:            number(input, models.KeyBaseFee, base.BaseFee),
		DistanceFee:        number(input, models.KeyDistanceFee, base.DistanceFee),
		HighValueThreshold: number(input, models.KeyHighValueThreshold, base.HighValueThreshold),
		HighValueFee:       number(input, models.KeyHighValueFee, base.HighValueFee),
	}
}

// IsKnownKey reports whether key is an operator-configurable setting.
func IsKnownKey(key string) bool {
	if key == models.KeyAutoAssign {
		return true
	}
	_, ok := ranges[key]
	return ok
}

// ToStored renders settings for the key/value store.
func ToStored(s models.ManagerSettings) map[string]string {
	return map[string]string{
		models.KeyRefreshSeconds:     strconv.Itoa(s.RefreshSeconds),
		models.KeyAutoAssign:         strconv.FormatBool(s.AutoAssign),
		models.KeyDriverPayPercent:   formatFloat(s.DriverPayPercent),
		models.KeyBaseFee:            formatFloat(s.BaseFee),
		models.KeyDistanceFee:        formatFloat(s.DistanceFee),
		models.KeyHighValueThreshold: formatFloat(s.HighValueThreshold),
		models.KeyHighValueFee:       formatFloat(s.HighValueFee),
	}
}

// FromStored lifts raw stored strings into a normalization input.
func FromStored(values map[string]string) map[string]any {
	in := make(map[string]any, len(values))
	for k, v := range values {
		in[k] = v
	}
	return in
}

func clampAll(s models.ManagerSettings) models.ManagerSettings {
	s.RefreshSeconds = int(math.Round(clamp(models.KeyRefreshSeconds, float64(s.RefreshSeconds))))
	s.DriverPayPercent = clamp(models.KeyDriverPayPercent, s.DriverPayPercent)
	s.BaseFee = clamp(models.KeyBaseFee, s.BaseFee)
	s.DistanceFee = clamp(models.KeyDistanceFee, s.DistanceFee)
	s.HighValueThreshold = clamp(models.KeyHighValueThreshold, s.HighValueThreshold)
	s.HighValueFee = clamp(models.KeyHighValueFee, s.HighValueFee)
	return s
}

func number(input map[string]any, key string, fallback float64) float64 {
	raw, ok := input[key]
	if !ok || raw == nil {
		return fallback
	}

	var (
		v   float64
		err error
	)
	switch x := raw.(type) {
	case bool:
		return fallback
	case string:
		v, err = cast.ToFloat64E(strings.TrimSpace(x))
	default:
		v, err = cast.ToFloat64E(x)
	}
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return clamp(key, v)
}

func boolean(input map[string]any, key string, fallback bool) bool {
	raw, ok := input[key]
	if !ok || raw == nil {
		return fallback
	}

	switch x := raw.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case float32:
		return x != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "yes", "on":
			return true
		case "no", "off":
			return false
		}
		v, err := cast.ToBoolE(strings.TrimSpace(x))
		if err != nil {
			return fallback
		}
		return v
	default:
		v, err := cast.ToBoolE(x)
		if err != nil {
			return fallback
		}
		return v
	}
}

func clamp(key string, v float64) float64 {
	b, ok := ranges[key]
	if !ok {
		return v
	}
	return math.Min(math.Max(v, b.min), b.max)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
