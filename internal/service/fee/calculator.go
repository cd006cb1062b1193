// Package fee derives the delivery fee, the driver's share and the platform
// profit of an order. All arithmetic is done in integer minor units.
package fee

import (
	"fmt"
	"math"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
)

const minorUnits = 100

// MaxAmount is the largest money or distance value accepted. It fits the
// NUMERIC(12, 2) columns and keeps minor units times basis points in int64.
const MaxAmount = 1e9

// Calculate is a pure function of its inputs and may be re-run for audits.
func Calculate(in models.FeeInput, s models.ManagerSettings) (models.Fee, error) {
	if invalid(in.OrderValue) {
		return models.Fee{}, fmt.Errorf("%w: order value must be a number between 0 and %g", types.ErrInvalidInput, MaxAmount)
	}
	if invalid(in.DistanceUnits) {
		return models.Fee{}, fmt.Errorf("%w: distance must be a number between 0 and %g", types.ErrInvalidInput, MaxAmount)
	}

	distanceFee := s.DistanceFee * in.DistanceUnits
	surcharge := 0.0
	if in.OrderValue >= s.HighValueThreshold {
		surcharge = s.HighValueFee
	}
	if invalid(s.BaseFee + distanceFee + surcharge) {
		return models.Fee{}, fmt.Errorf("%w: delivery fee exceeds %g", types.ErrInvalidInput, MaxAmount)
	}

	feeCents := toMinor(s.BaseFee) + toMinor(distanceFee) + toMinor(surcharge)

	payCents := DriverShare(feeCents, s.DriverPayPercent)

	return models.Fee{
		DeliveryFee: fromMinor(feeCents),
		DriverPay:   fromMinor(payCents),
		Profit:      fromMinor(feeCents - payCents),
	}, nil
}

// DriverShare returns percent of feeCents rounded half-up to a whole minor unit.
// The percent is resolved to basis points first so the rounding is exact.
func DriverShare(feeCents int64, percent float64) int64 {
	bp := int64(math.Round(percent * 100))
	return (feeCents*bp + 5_000) / 10_000
}

// Valid reports whether v is a finite amount in [0, MaxAmount].
func Valid(v float64) bool {
	return !invalid(v)
}

// Round rounds an amount to minor-unit precision. amount must be Valid.
func Round(amount float64) float64 {
	return fromMinor(toMinor(amount))
}

func invalid(v float64) bool {
	return v < 0 || v > MaxAmount || math.IsNaN(v)
}

func toMinor(amount float64) int64 {
	return int64(math.Round(amount * minorUnits))
}

func fromMinor(cents int64) float64 {
	return float64(cents) / minorUnits
}

// Split divides an already known delivery fee between the driver and the
// platform using the active pay percentage.
func Split(deliveryFee float64, s models.ManagerSettings) (models.Fee, error) {
	if invalid(deliveryFee) {
		return models.Fee{}, fmt.Errorf("%w: delivery fee must be a number between 0 and %g", types.ErrInvalidInput, MaxAmount)
	}
	feeCents := toMinor(deliveryFee)
	payCents := DriverShare(feeCents, s.DriverPayPercent)
	return models.Fee{
		DeliveryFee: fromMinor(feeCents),
		DriverPay:   fromMinor(payCents),
		Profit:      fromMinor(feeCents - payCents),
	}, nil
}
