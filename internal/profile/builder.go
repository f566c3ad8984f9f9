// Package profile builds per-user baseline statistics for one run.
package profile

import (
	"gonum.org/v1/gonum/stat"

	"fraudscope/internal/models"
)

// Builder computes per-user aggregates from the batch. Users with fewer
// than MinHistory records fall back to global aggregates so downstream
// z-scores stay finite. That is a degraded-accuracy mode, not a failure.
type Builder struct {
	MinHistory int
}

func NewBuilder(minHistory int) *Builder {
	if minHistory < 1 {
		minHistory = 3
	}
	return &Builder{MinHistory: minHistory}
}

// Build returns one profile per distinct user id in the batch.
func (b *Builder) Build(records []models.TransactionRecord) map[string]*models.UserProfile {
	byUser := make(map[string][]models.TransactionRecord)
	var globalAmounts []float64
	globalCountries := make(map[string]int)
	globalHours := make(map[int]int)

	for _, rec := range records {
		byUser[rec.UserID] = append(byUser[rec.UserID], rec)
		if rec.HasAmount {
			globalAmounts = append(globalAmounts, rec.Amount)
		}
		if rec.Country != "" {
			globalCountries[rec.Country]++
		}
		if rec.HasTimestamp {
			globalHours[rec.Timestamp.Hour()]++
		}
	}

	globalMean, globalStd := meanStd(globalAmounts)
	globalCountry := modalString(globalCountries)
	globalHour := modalInt(globalHours)

	profiles := make(map[string]*models.UserProfile, len(byUser))
	for userID, recs := range byUser {
		p := &models.UserProfile{UserID: userID, Count: len(recs)}

		if len(recs) < b.MinHistory {
			p.MeanAmount = globalMean
			p.StdAmount = globalStd
			p.ModalCountry = globalCountry
			p.ModalHour = globalHour
			p.Degraded = true
			profiles[userID] = p
			continue
		}

		var amounts []float64
		countries := make(map[string]int)
		hours := make(map[int]int)
		for _, rec := range recs {
			if rec.HasAmount {
				amounts = append(amounts, rec.Amount)
			}
			if rec.Country != "" {
				countries[rec.Country]++
			}
			if rec.HasTimestamp {
				hours[rec.Timestamp.Hour()]++
			}
		}

		p.MeanAmount, p.StdAmount = meanStd(amounts)
		p.ModalCountry = modalString(countries)
		p.ModalHour = modalInt(hours)
		if p.ModalCountry == "" {
			p.ModalCountry = globalCountry
		}
		profiles[userID] = p
	}

	return profiles
}

func meanStd(values []float64) (float64, float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	mean, std := stat.MeanStdDev(values, nil)
	return mean, std
}

func modalString(counts map[string]int) string {
	best, bestCount := "", 0
	for k, c := range counts {
		if c > bestCount || (c == bestCount && k < best) {
			best, bestCount = k, c
		}
	}
	return best
}

func modalInt(counts map[int]int) int {
	best, bestCount := 0, 0
	for k, c := range counts {
		if c > bestCount || (c == bestCount && k < best) {
			best, bestCount = k, c
		}
	}
	return best
}
