package models

import "time"

type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// RiskLevelForScore maps a 0-100 risk score to its level band.
func RiskLevelForScore(score int) RiskLevel {
	switch {
	case score >= 90:
		return RiskLevelCritical
	case score >= 70:
		return RiskLevelHigh
	case score >= 40:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// TransactionRecord is one normalized input row. UserID, Amount and
// Timestamp are required at the dataset level; per-row unparsable values
// are kept with the Has* flag cleared so the batch stays the same length
// end to end.
type TransactionRecord struct {
	Index         int       `json:"-"`
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	Amount        float64   `json:"amount"`
	HasAmount     bool      `json:"-"`
	Timestamp     time.Time `json:"timestamp"`
	HasTimestamp  bool      `json:"-"`

	Merchant     string  `json:"merchant,omitempty"`
	Category     string  `json:"category,omitempty"`
	Country      string  `json:"country,omitempty"`
	Latitude     float64 `json:"latitude,omitempty"`
	Longitude    float64 `json:"longitude,omitempty"`
	HasLocation  bool    `json:"-"`
	DeviceID     string  `json:"device_id,omitempty"`
	IPAddress    string  `json:"ip_address,omitempty"`
	FailedLogins int     `json:"failed_login_attempts,omitempty"`
	IsNewPayee   bool    `json:"is_new_payee,omitempty"`
}

// Capabilities records which optional column groups were present in the
// uploaded dataset. The feature engineer branches on these once instead of
// probing each row.
type Capabilities struct {
	Geo          bool
	Country      bool
	Device       bool
	IP           bool
	Merchant     bool
	FailedLogins bool
	NewPayee     bool
}

// Dataset is the normalized batch handed to the engine.
type Dataset struct {
	Records      []TransactionRecord
	Capabilities Capabilities
}

// UserProfile holds per-user baseline statistics computed once per run
// from that user's records in the batch. Profiles never survive a run.
type UserProfile struct {
	UserID       string
	Count        int
	MeanAmount   float64
	StdAmount    float64
	ModalCountry string
	ModalHour    int
	// Degraded is set when the user had fewer records than the configured
	// minimum history and the statistics fell back to global aggregates.
	Degraded bool
}

// FeatureVector is the fixed-order numeric feature set for one record.
// Missing optional inputs are neutral zeros; detectors require dense input.
type FeatureVector struct {
	Amount           float64
	LogAmount        float64
	AmountZScore     float64
	HourOfDay        float64
	DayOfWeek        float64
	IsNight          float64
	SecondsSinceLast float64
	TxnCount1Min     float64
	TxnCount1Hour    float64
	TxnCount1Day     float64
	GeoDistanceKM    float64
	ImpliedSpeedKMH  float64
	ImpossibleTravel float64
	NewDevice        float64
	NewIP            float64
	NewCountry       float64
	FailedLogins     float64
	NewPayee         float64
}

// FeatureNames lists feature columns in the order Values emits them.
var FeatureNames = []string{
	"amount",
	"log_amount",
	"amount_zscore",
	"hour_of_day",
	"day_of_week",
	"is_night",
	"seconds_since_last",
	"txn_count_1min",
	"txn_count_1hour",
	"txn_count_1day",
	"geo_distance_km",
	"implied_speed_kmh",
	"impossible_travel",
	"new_device",
	"new_ip",
	"new_country",
	"failed_logins",
	"new_payee",
}

// Values returns the vector as a dense row in FeatureNames order.
func (f *FeatureVector) Values() []float64 {
	return []float64{
		f.Amount,
		f.LogAmount,
		f.AmountZScore,
		f.HourOfDay,
		f.DayOfWeek,
		f.IsNight,
		f.SecondsSinceLast,
		f.TxnCount1Min,
		f.TxnCount1Hour,
		f.TxnCount1Day,
		f.GeoDistanceKM,
		f.ImpliedSpeedKMH,
		f.ImpossibleTravel,
		f.NewDevice,
		f.NewIP,
		f.NewCountry,
		f.FailedLogins,
		f.NewPayee,
	}
}

// Verdict is one detector's classification of a record.
type Verdict int

const (
	VerdictInlier Verdict = iota
	VerdictOutlier
	// VerdictAbstain marks a detector that failed numerically for the
	// batch; abstaining detectors are excluded from the vote denominator.
	VerdictAbstain
)

// ModelVote is one detector's output for one record. Score is normalized
// to [0,1] before aggregation regardless of the detector's native scale.
type ModelVote struct {
	Detector string  `json:"detector"`
	Verdict  Verdict `json:"verdict"`
	Score    float64 `json:"score"`
}

// AnomalyResult is the per-record output of a run.
type AnomalyResult struct {
	TransactionID string      `json:"transaction_id"`
	UserID        string      `json:"user_id"`
	Amount        float64     `json:"amount"`
	IsAnomaly     bool        `json:"is_anomaly"`
	RiskScore     int         `json:"risk_score"`
	RiskLevel     RiskLevel   `json:"risk_level"`
	Reason        string      `json:"reason,omitempty"`
	Votes         []ModelVote `json:"votes,omitempty"`
}

// Summary aggregates a finished run.
type Summary struct {
	TotalTransactions int     `json:"total_transactions"`
	AnomalyCount      int     `json:"anomaly_count"`
	HighRiskPercent   float64 `json:"high_risk_percent"`
	// DegradedMode is set when every detector failed and flagging fell
	// back to hard rules only.
	DegradedMode bool   `json:"degraded_mode,omitempty"`
	Note         string `json:"note,omitempty"`
}
