// Package features derives the per-record numeric feature vectors the
// anomaly ensemble consumes.
package features

import (
	"context"
	"math"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"fraudscope/internal/models"
)

const (
	// stdEpsilon floors the user amount std so z-scores stay finite.
	stdEpsilon = 1e-6
	// earthRadiusKM for haversine distance.
	earthRadiusKM = 6371.0
	// defaultInterArrival stands in for "no previous transaction".
	defaultInterArrival = 86400.0
)

// Engineer computes FeatureVectors. Users are independent, so the batch
// is partitioned by user id and processed concurrently.
type Engineer struct {
	ImpossibleTravelKMH float64
}

func NewEngineer(impossibleTravelKMH float64) *Engineer {
	if impossibleTravelKMH <= 0 {
		impossibleTravelKMH = 900
	}
	return &Engineer{ImpossibleTravelKMH: impossibleTravelKMH}
}

// Compute returns exactly one FeatureVector per record, indexed by the
// record's original position.
func (e *Engineer) Compute(ctx context.Context, ds *models.Dataset, profiles map[string]*models.UserProfile) ([]models.FeatureVector, error) {
	vectors := make([]models.FeatureVector, len(ds.Records))

	byUser := make(map[string][]int)
	for i, rec := range ds.Records {
		byUser[rec.UserID] = append(byUser[rec.UserID], i)
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for userID, indices := range byUser {
		userID, indices := userID, indices
		g.Go(func() error {
			e.computeUser(ds, profiles[userID], indices, vectors)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// computeUser fills vectors for one user's records, walking them in
// chronological order. Writes target disjoint indices per user, so no
// locking is needed.
func (e *Engineer) computeUser(ds *models.Dataset, prof *models.UserProfile, indices []int, vectors []models.FeatureVector) {
	caps := ds.Capabilities

	ordered := make([]int, len(indices))
	copy(ordered, indices)
	sort.SliceStable(ordered, func(a, b int) bool {
		ra, rb := ds.Records[ordered[a]], ds.Records[ordered[b]]
		if ra.HasTimestamp != rb.HasTimestamp {
			return ra.HasTimestamp // timestamp-less rows sort last
		}
		if !ra.Timestamp.Equal(rb.Timestamp) {
			return ra.Timestamp.Before(rb.Timestamp)
		}
		return ra.Index < rb.Index
	})

	seenDevices := make(map[string]bool)
	seenIPs := make(map[string]bool)
	seenCountries := make(map[string]bool)

	var prevTime time.Time
	var hasPrevTime bool
	var prevLat, prevLon float64
	var hasPrevLoc bool
	var times []time.Time

	for _, idx := range ordered {
		rec := ds.Records[idx]
		fv := models.FeatureVector{}

		if rec.HasAmount {
			fv.Amount = rec.Amount
			fv.LogAmount = math.Log1p(math.Max(rec.Amount, 0))
			if prof != nil {
				fv.AmountZScore = (rec.Amount - prof.MeanAmount) / math.Max(prof.StdAmount, stdEpsilon)
			}
		}

		if rec.HasTimestamp {
			fv.HourOfDay = float64(rec.Timestamp.Hour())
			fv.DayOfWeek = float64(rec.Timestamp.Weekday())
			if rec.Timestamp.Hour() >= 23 || rec.Timestamp.Hour() <= 5 {
				fv.IsNight = 1
			}

			if hasPrevTime {
				fv.SecondsSinceLast = rec.Timestamp.Sub(prevTime).Seconds()
			} else {
				fv.SecondsSinceLast = defaultInterArrival
			}

			fv.TxnCount1Min = countWithin(times, rec.Timestamp, time.Minute) + 1
			fv.TxnCount1Hour = countWithin(times, rec.Timestamp, time.Hour) + 1
			fv.TxnCount1Day = countWithin(times, rec.Timestamp, 24*time.Hour) + 1

			if caps.Geo && rec.HasLocation {
				if hasPrevLoc {
					fv.GeoDistanceKM = Haversine(prevLat, prevLon, rec.Latitude, rec.Longitude)
					elapsedHours := 0.0
					if hasPrevTime {
						elapsedHours = rec.Timestamp.Sub(prevTime).Hours()
					}
					fv.ImpliedSpeedKMH = fv.GeoDistanceKM / math.Max(elapsedHours, 1e-6)
					if fv.ImpliedSpeedKMH > e.ImpossibleTravelKMH {
						fv.ImpossibleTravel = 1
					}
				}
				prevLat, prevLon = rec.Latitude, rec.Longitude
				hasPrevLoc = true
			}

			times = append(times, rec.Timestamp)
			prevTime = rec.Timestamp
			hasPrevTime = true
		} else {
			fv.SecondsSinceLast = defaultInterArrival
			fv.TxnCount1Min, fv.TxnCount1Hour, fv.TxnCount1Day = 1, 1, 1
		}

		if caps.Device && rec.DeviceID != "" {
			if !seenDevices[rec.DeviceID] {
				fv.NewDevice = 1
				seenDevices[rec.DeviceID] = true
			}
		}
		if caps.IP && rec.IPAddress != "" {
			if !seenIPs[rec.IPAddress] {
				fv.NewIP = 1
				seenIPs[rec.IPAddress] = true
			}
		}
		if caps.Country && rec.Country != "" {
			if !seenCountries[rec.Country] {
				fv.NewCountry = 1
				seenCountries[rec.Country] = true
			}
		}
		if caps.FailedLogins {
			fv.FailedLogins = float64(rec.FailedLogins)
		}
		if caps.NewPayee && rec.IsNewPayee {
			fv.NewPayee = 1
		}

		vectors[idx] = fv
	}
}

// countWithin counts prior timestamps inside the trailing window ending
// at t. times is appended in chronological order, so scan from the tail.
func countWithin(times []time.Time, t time.Time, window time.Duration) float64 {
	cutoff := t.Add(-window)
	count := 0
	for i := len(times) - 1; i >= 0; i-- {
		if times[i].Before(cutoff) {
			break
		}
		count++
	}
	return float64(count)
}

// Haversine returns the great-circle distance in kilometers.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(a))
}

// Matrix flattens the vectors into a dense row-major matrix for the
// detectors.
func Matrix(vectors []models.FeatureVector) [][]float64 {
	m := make([][]float64, len(vectors))
	for i := range vectors {
		m[i] = vectors[i].Values()
	}
	return m
}
