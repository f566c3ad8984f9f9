package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fraudscope/internal/models"
)

func newTestEngine(t *testing.T, mutate func(*Config)) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	eng, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	return eng
}

func rec(i int, user string, amount float64, ts time.Time) models.TransactionRecord {
	return models.TransactionRecord{
		Index:         i,
		TransactionID: fmt.Sprintf("tx-%d", i),
		UserID:        user,
		Amount:        amount,
		HasAmount:     true,
		Timestamp:     ts,
		HasTimestamp:  true,
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero contamination", func(c *Config) { c.ContaminationRate = 0 }},
		{"contamination above half", func(c *Config) { c.ContaminationRate = 0.6 }},
		{"negative travel ceiling", func(c *Config) { c.ImpossibleTravelKMH = -1 }},
		{"zero min history", func(c *Config) { c.MinUserHistory = 0 }},
		{"all-zero weights", func(c *Config) { c.DetectorWeights = DetectorWeights{} }},
		{"negative weight", func(c *Config) { c.DetectorWeights.Isolation = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := New(cfg, nil)
			assert.Error(t, err)
		})
	}
}

func TestRunPreservesLengthAndOrder(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	ds := &models.Dataset{}
	for i := 0; i < 40; i++ {
		user := fmt.Sprintf("user-%d", i%5)
		ds.Records = append(ds.Records, rec(i, user, float64(20+i%7), base.Add(time.Duration(i)*time.Minute)))
	}

	report, err := newTestEngine(t, nil).Run(context.Background(), ds)
	require.NoError(t, err)
	require.Len(t, report.Results, 40)

	for i, res := range report.Results {
		assert.Equal(t, fmt.Sprintf("tx-%d", i), res.TransactionID)
	}
	assert.Equal(t, 40, report.Summary.TotalTransactions)
}

func TestRunScoresAreBounded(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	ds := &models.Dataset{}
	for i := 0; i < 60; i++ {
		amount := 25.0
		if i%13 == 0 {
			amount = 9000
		}
		ds.Records = append(ds.Records, rec(i, fmt.Sprintf("u%d", i%4), amount, base.Add(time.Duration(i)*time.Minute)))
	}

	report, err := newTestEngine(t, nil).Run(context.Background(), ds)
	require.NoError(t, err)

	for _, res := range report.Results {
		assert.GreaterOrEqual(t, res.RiskScore, 0)
		assert.LessOrEqual(t, res.RiskScore, 100)
	}
}

func TestRunIdempotentForFixedSeed(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	build := func() *models.Dataset {
		ds := &models.Dataset{}
		for i := 0; i < 50; i++ {
			amount := float64(30 + (i*17)%40)
			if i == 33 {
				amount = 5000
			}
			ds.Records = append(ds.Records, rec(i, fmt.Sprintf("u%d", i%6), amount, base.Add(time.Duration(i)*time.Minute)))
		}
		return ds
	}

	first, err := newTestEngine(t, nil).Run(context.Background(), build())
	require.NoError(t, err)
	second, err := newTestEngine(t, nil).Run(context.Background(), build())
	require.NoError(t, err)

	require.Len(t, second.Results, len(first.Results))
	for i := range first.Results {
		assert.Equal(t, first.Results[i].IsAnomaly, second.Results[i].IsAnomaly, "record %d", i)
		assert.Equal(t, first.Results[i].RiskScore, second.Results[i].RiskScore, "record %d", i)
		assert.Equal(t, first.Results[i].Reason, second.Results[i].Reason, "record %d", i)
	}
}

// A lone $50,000 transaction at 3am from a new device, against a history
// of ~$50 purchases, must come back high-risk with a relevant reason.
func TestRunFlagsLargeAmountNewDevice(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	ds := &models.Dataset{Capabilities: models.Capabilities{Device: true}}
	for i := 0; i < 9; i++ {
		r := rec(i, "carol", 48+float64(i)/2, base.Add(time.Duration(i)*3*time.Hour))
		r.DeviceID = "phone-1"
		ds.Records = append(ds.Records, r)
	}
	suspicious := rec(9, "carol", 50_000, time.Date(2024, 3, 3, 3, 0, 0, 0, time.UTC))
	suspicious.DeviceID = "burner-7"
	ds.Records = append(ds.Records, suspicious)

	report, err := newTestEngine(t, nil).Run(context.Background(), ds)
	require.NoError(t, err)

	res := report.Results[9]
	assert.True(t, res.IsAnomaly, "the $50k outlier must be flagged")
	assert.GreaterOrEqual(t, res.RiskScore, 70)
	reason := strings.ToLower(res.Reason)
	assert.True(t,
		strings.Contains(reason, "amount") || strings.Contains(reason, "device"),
		"reason %q should mention the amount deviation or the new device", res.Reason)
}

// Two transactions 2,000+ km apart within five minutes must be flagged
// through the hard travel rule regardless of detector votes.
func TestRunImpossibleTravelOverride(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	first := rec(0, "dave", 30, base)
	first.Latitude, first.Longitude, first.HasLocation = 40.7128, -74.0060, true
	second := rec(1, "dave", 35, base.Add(5*time.Minute))
	second.Latitude, second.Longitude, second.HasLocation = 34.0522, -118.2437, true

	ds := &models.Dataset{
		Records:      []models.TransactionRecord{first, second},
		Capabilities: models.Capabilities{Geo: true},
	}

	report, err := newTestEngine(t, nil).Run(context.Background(), ds)
	require.NoError(t, err)

	res := report.Results[1]
	assert.True(t, res.IsAnomaly)
	assert.Contains(t, strings.ToLower(res.Reason), "travel")
}

func TestRunSmallHistoryStaysFinite(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	ds := &models.Dataset{}
	for i := 0; i < 12; i++ {
		ds.Records = append(ds.Records, rec(i, "regular", 40, base.Add(time.Duration(i)*time.Hour)))
	}
	// One-record user: profile falls back to global aggregates.
	ds.Records = append(ds.Records, rec(12, "newcomer", 45, base))

	report, err := newTestEngine(t, nil).Run(context.Background(), ds)
	require.NoError(t, err)
	require.Len(t, report.Results, 13)

	for _, res := range report.Results {
		assert.GreaterOrEqual(t, res.RiskScore, 0)
		assert.LessOrEqual(t, res.RiskScore, 100)
	}
}

func TestRunEmptyDataset(t *testing.T) {
	report, err := newTestEngine(t, nil).Run(context.Background(), &models.Dataset{})
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Equal(t, 0, report.Summary.TotalTransactions)
	assert.False(t, report.Summary.DegradedMode)
}

func TestRunDegradedModeWhenDetectorsFail(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	// Two identical-amount records: every feature column is constant, so
	// all three detectors degrade, leaving rule-based flagging only.
	ds := &models.Dataset{
		Records: []models.TransactionRecord{
			rec(0, "u", 10, base),
			rec(1, "v", 10, base),
		},
	}

	report, err := newTestEngine(t, nil).Run(context.Background(), ds)
	require.NoError(t, err)
	assert.True(t, report.Summary.DegradedMode)
	assert.NotEmpty(t, report.Summary.Note)
	for _, res := range report.Results {
		assert.False(t, res.IsAnomaly)
	}
}

func TestRunSummaryPercent(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	ds := &models.Dataset{}
	for i := 0; i < 30; i++ {
		amount := 20.0
		if i == 29 {
			amount = 50_000
		}
		ds.Records = append(ds.Records, rec(i, "u", amount, base.Add(time.Duration(i)*time.Hour)))
	}

	report, err := newTestEngine(t, nil).Run(context.Background(), ds)
	require.NoError(t, err)

	want := float64(report.Summary.AnomalyCount) / 30 * 100
	assert.InDelta(t, want, report.Summary.HighRiskPercent, 0.05)
	assert.Greater(t, report.Summary.AnomalyCount, 0)
}
