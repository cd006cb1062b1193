package settings

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"reflect"
	"testing"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
)

func TestNormalize_Clamps(t *testing.T) {
	got := Normalize(map[string]any{
		models.KeyRefreshSeconds:     1,
		models.KeyDriverPayPercent:   150,
		models.KeyBaseFee:            -10,
		models.KeyDistanceFee:        201,
		models.KeyHighValueThreshold: 1e9,
		models.KeyHighValueFee:       2000,
	}, models.DefaultSettings())

	want := models.ManagerSettings{
		RefreshSeconds:     5,
		AutoAssign:         false,
		DriverPayPercent:   100,
		BaseFee:            0,
		DistanceFee:        200,
		HighValueThreshold: 10000,
		HighValueFee:       2000,
	}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestNormalize_Coercion(t *testing.T) {
	defaults := models.DefaultSettings()

	tests := []struct {
		name  string
		input map[string]any
		check func(models.ManagerSettings) bool
	}{
		{"numeric string", map[string]any{models.KeyBaseFee: " 75.5 "}, func(s models.ManagerSettings) bool { return s.BaseFee == 75.5 }},
		{"json number", map[string]any{models.KeyDistanceFee: json.Number("12")}, func(s models.ManagerSettings) bool { return s.DistanceFee == 12 }},
		{"non numeric falls back", map[string]any{models.KeyBaseFee: "cheap"}, func(s models.ManagerSettings) bool { return s.BaseFee == defaults.BaseFee }},
		{"bool is not a number", map[string]any{models.KeyBaseFee: true}, func(s models.ManagerSettings) bool { return s.BaseFee == defaults.BaseFee }},
		{"NaN falls back", map[string]any{models.KeyHighValueFee: math.NaN()}, func(s models.ManagerSettings) bool { return s.HighValueFee == defaults.HighValueFee }},
		{"null falls back", map[string]any{models.KeyDriverPayPercent: nil}, func(s models.ManagerSettings) bool { return s.DriverPayPercent == defaults.DriverPayPercent }},
		{"refresh rounds", map[string]any{models.KeyRefreshSeconds: "12.6"}, func(s models.ManagerSettings) bool { return s.RefreshSeconds == 13 }},
		{"bool string", map[string]any{models.KeyAutoAssign: "true"}, func(s models.ManagerSettings) bool { return s.AutoAssign }},
		{"bool on", map[string]any{models.KeyAutoAssign: "on"}, func(s models.ManagerSettings) bool { return s.AutoAssign }},
		{"bool number", map[string]any{models.KeyAutoAssign: float64(1)}, func(s models.ManagerSettings) bool { return s.AutoAssign }},
		{"bool garbage falls back", map[string]any{models.KeyAutoAssign: "maybe"}, func(s models.ManagerSettings) bool { return s.AutoAssign == defaults.AutoAssign }},
		{"absent keeps base", map[string]any{}, func(s models.ManagerSettings) bool { return s == defaults }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input, defaults)
			if !tt.check(got) {
				t.Fatalf("unexpected result %+v", got)
			}
		})
	}
}

func TestNormalize_PartialKeepsBase(t *testing.T) {
	base := models.DefaultSettings()
	base.BaseFee = 99
	base.AutoAssign = true

	got := Normalize(map[string]any{models.KeyDistanceFee: 20}, base)
	if got.BaseFee != 99 || !got.AutoAssign || got.DistanceFee != 20 {
		t.Fatalf("partial update lost base values: %+v", got)
	}
}

func TestNormalize_RangesAndIdempotence(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	pick := func() any {
		switch r.IntN(5) {
		case 0:
			return r.Float64()*30000 - 10000
		case 1:
			return r.IntN(500) - 100
		case 2:
			return "x"
		case 3:
			return nil
		default:
			return r.IntN(2) == 0
		}
	}

	for i := range 500 {
		in := map[string]any{}
		for _, key := range models.SettingsKeys() {
			if r.IntN(4) != 0 {
				in[key] = pick()
			}
		}

		once := Normalize(in, models.DefaultSettings())
		assertInRange(t, i, once)

		twice := Normalize(once.AsMap(), models.DefaultSettings())
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("case %d: normalize is not idempotent: %+v vs %+v", i, once, twice)
		}

		stored := Normalize(FromStored(ToStored(once)), models.DefaultSettings())
		if stored != once {
			t.Fatalf("case %d: stored round trip changed values: %+v vs %+v", i, once, stored)
		}
	}
}

func assertInRange(t *testing.T, i int, s models.ManagerSettings) {
	t.Helper()
	check := func(key string, v float64) {
		b := ranges[key]
		if v < b.min || v > b.max {
			t.Fatalf("case %d: %s=%v outside [%v,%v]", i, key, v, b.min, b.max)
		}
	}
	check(models.KeyRefreshSeconds, float64(s.RefreshSeconds))
	check(models.KeyDriverPayPercent, s.DriverPayPercent)
	check(models.KeyBaseFee, s.BaseFee)
	check(models.KeyDistanceFee, s.DistanceFee)
	check(models.KeyHighValueThreshold, s.HighValueThreshold)
	check(models.KeyHighValueFee, s.HighValueFee)
}

func TestIsKnownKey(t *testing.T) {
	for _, key := range models.SettingsKeys() {
		if !IsKnownKey(key) {
			t.Fatalf("%s must be known", key)
		}
	}
	if IsKnownKey("taxRate") {
		t.Fatalf("taxRate must be unknown")
	}
}
