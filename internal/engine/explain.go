package engine

import (
	"fmt"

	"fraudscope/internal/models"
)

// explain produces the single primary reason for a flagged record. Hard
// signals win in penalty order; otherwise the dominant feature deviation
// is named. Non-flagged records carry no reason.
func (e *Engine) explain(fv *models.FeatureVector, hard HardSignals) string {
	switch {
	case hard.ImpossibleTravel:
		return fmt.Sprintf("physically impossible travel speed (%.0f km/h over %.0f km)",
			fv.ImpliedSpeedKMH, fv.GeoDistanceKM)
	case hard.ExcessFailedLogins:
		return fmt.Sprintf("repeated failed login attempts (%d)", int(fv.FailedLogins))
	case hard.FirstTimeLargeAmount:
		return "unusually large amount for a first-time payment"
	}

	type candidate struct {
		weight float64
		reason string
	}
	candidates := []candidate{
		{abs(fv.AmountZScore), fmt.Sprintf("unusually high amount for this user (%.1f standard deviations)", abs(fv.AmountZScore))},
		{fv.TxnCount1Min - 1, fmt.Sprintf("rapid succession of transactions (%d within one minute)", int(fv.TxnCount1Min))},
		{fv.GeoDistanceKM / 500, fmt.Sprintf("large location change (%.0f km from previous transaction)", fv.GeoDistanceKM)},
		{fv.NewDevice, "transaction from a new device for this user"},
		{fv.NewIP, "transaction from a new IP address for this user"},
		{fv.NewCountry, "first transaction in this country for this user"},
		{fv.IsNight * 0.5, "transaction during unusual hours"},
	}

	best := candidate{}
	for _, c := range candidates {
		if c.weight > best.weight {
			best = c
		}
	}
	if best.weight > 0 {
		return best.reason
	}
	return "statistical outlier across behavioral features"
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
