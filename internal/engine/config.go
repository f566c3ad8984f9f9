package engine

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// DetectorWeights blends the three normalized detector scores. Weights
// must be non-negative and not all zero; they are normalized by their sum
// when scoring.
type DetectorWeights struct {
	Isolation  float64 `mapstructure:"isolation" json:"isolation" validate:"gte=0"`
	Clustering float64 `mapstructure:"clustering" json:"clustering" validate:"gte=0"`
	Covariance float64 `mapstructure:"covariance" json:"covariance" validate:"gte=0"`
}

// Config holds every tunable of a run. An Engine is constructed from a
// validated Config and carries no other state between runs.
type Config struct {
	// ContaminationRate is the expected fraction of outliers; it sets
	// each detector's decision threshold. Zero is rejected: it would
	// silently produce no detections.
	ContaminationRate float64 `mapstructure:"contamination_rate" json:"contamination_rate" validate:"gt=0,lte=0.5"`

	// ImpossibleTravelKMH is the implied-speed ceiling for the hard
	// travel rule. Default 900, roughly a commercial flight.
	ImpossibleTravelKMH float64 `mapstructure:"impossible_travel_kmh" json:"impossible_travel_kmh" validate:"gt=0"`

	// FailedLoginThreshold is the count at which failed logins become a
	// hard signal.
	FailedLoginThreshold int `mapstructure:"failed_login_threshold" json:"failed_login_threshold" validate:"gte=1"`

	// MinUserHistory is the record count under which a user's profile
	// falls back to global aggregates.
	MinUserHistory int `mapstructure:"min_user_history" json:"min_user_history" validate:"gte=1"`

	// LargeAmountZScore is the user z-score at which a first-time or
	// new-payee transaction trips the first-time-large-amount rule.
	LargeAmountZScore float64 `mapstructure:"large_amount_zscore" json:"large_amount_zscore" validate:"gt=0"`

	// MaxUnparsableRatio is the tolerated fraction of rows with
	// unparsable required values before the run fails.
	MaxUnparsableRatio float64 `mapstructure:"max_unparsable_ratio" json:"max_unparsable_ratio" validate:"gt=0,lte=1"`

	DetectorWeights DetectorWeights `mapstructure:"detector_weights" json:"detector_weights"`

	// RandomSeed makes randomized detector internals reproducible.
	RandomSeed int64 `mapstructure:"random_seed" json:"random_seed"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		ContaminationRate:    0.1,
		ImpossibleTravelKMH:  900,
		FailedLoginThreshold: 3,
		MinUserHistory:       3,
		LargeAmountZScore:    3,
		MaxUnparsableRatio:   0.5,
		DetectorWeights:      DetectorWeights{Isolation: 1.0 / 3, Clustering: 1.0 / 3, Covariance: 1.0 / 3},
		RandomSeed:           42,
	}
}

var validate = validator.New()

// Validate rejects out-of-range settings before any processing starts.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}
	w := c.DetectorWeights
	if w.Isolation+w.Clustering+w.Covariance <= 0 {
		return fmt.Errorf("engine config: detector weights must not all be zero")
	}
	return nil
}
