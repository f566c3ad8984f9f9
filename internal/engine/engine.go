// Package engine runs the anomaly-scoring pipeline for one uploaded
// batch: profiles, feature vectors, the three-detector ensemble, vote
// aggregation, risk scoring, and explanations.
package engine

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fraudscope/internal/detector"
	"fraudscope/internal/features"
	"fraudscope/internal/models"
	"fraudscope/internal/profile"
)

// Report is the engine's output: one result per input record, in input
// order, plus run-level summary counts.
type Report struct {
	Results []models.AnomalyResult `json:"results"`
	Summary models.Summary         `json:"summary"`
}

// Engine is a per-run scoring instance. Construct a fresh one per batch;
// nothing survives between runs.
type Engine struct {
	cfg      Config
	logger   *zap.Logger
	profiles *profile.Builder
	engineer *features.Engineer
}

// New validates cfg and builds an engine instance.
func New(cfg Config, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:      cfg,
		logger:   logger,
		profiles: profile.NewBuilder(cfg.MinUserHistory),
		engineer: features.NewEngineer(cfg.ImpossibleTravelKMH),
	}, nil
}

// Run scores a normalized dataset. It either completes for the whole
// batch or fails for the whole batch; detector-level numerical failures
// degrade to abstentions instead of failing the run.
func (e *Engine) Run(ctx context.Context, ds *models.Dataset) (*Report, error) {
	started := time.Now()
	n := len(ds.Records)
	if n == 0 {
		return &Report{Results: []models.AnomalyResult{}, Summary: models.Summary{}}, nil
	}

	profiles := e.profiles.Build(ds.Records)
	vectors, err := e.engineer.Compute(ctx, ds, profiles)
	if err != nil {
		return nil, err
	}
	matrix := features.Matrix(vectors)

	robust := (&detector.RobustScaler{}).FitTransform(matrix)
	standard := (&detector.StandardScaler{}).FitTransform(matrix)

	detectors := []struct {
		impl  detector.Detector
		input [][]float64
	}{
		{detector.NewIsolationForest(e.cfg.ContaminationRate, e.cfg.RandomSeed), robust},
		{detector.NewDBSCAN(0, dbscanMinPts(n)), standard},
		{detector.NewRobustCovariance(e.cfg.ContaminationRate), robust},
	}

	results := make([]*detector.Result, len(detectors))
	g, _ := errgroup.WithContext(ctx)
	for i := range detectors {
		i := i
		g.Go(func() error {
			res, err := detectors[i].impl.FitPredict(detectors[i].input)
			if err != nil {
				if errors.Is(err, detector.ErrDegenerate) {
					e.logger.Warn("detector degraded to no-vote",
						zap.String("detector", detectors[i].impl.Name()),
						zap.Error(err))
					return nil
				}
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	activeDetectors := 0
	for _, r := range results {
		if r != nil {
			activeDetectors++
		}
	}

	report := &Report{Results: make([]models.AnomalyResult, n)}
	anomalies := 0

	for i := range ds.Records {
		rec := &ds.Records[i]
		fv := &vectors[i]
		prof := profiles[rec.UserID]

		votes := make([]models.ModelVote, len(detectors))
		for d := range detectors {
			votes[d] = models.ModelVote{Detector: detectors[d].impl.Name(), Verdict: models.VerdictAbstain}
			if results[d] != nil {
				votes[d].Score = results[d].Scores[i]
				if results[d].Outlier[i] {
					votes[d].Verdict = models.VerdictOutlier
				} else {
					votes[d].Verdict = models.VerdictInlier
				}
			}
		}

		hard := e.hardSignalsFor(fv, rec, prof)
		isAnomaly := aggregateVotes(votes, hard)
		score := e.riskScore(votes, fv, hard)

		result := models.AnomalyResult{
			TransactionID: rec.TransactionID,
			UserID:        rec.UserID,
			Amount:        rec.Amount,
			IsAnomaly:     isAnomaly,
			RiskScore:     score,
			RiskLevel:     models.RiskLevelForScore(score),
			Votes:         votes,
		}
		if isAnomaly {
			result.Reason = e.explain(fv, hard)
			anomalies++
		}
		report.Results[i] = result
	}

	report.Summary = models.Summary{
		TotalTransactions: n,
		AnomalyCount:      anomalies,
		HighRiskPercent:   math.Round(float64(anomalies)/float64(n)*1000) / 10,
	}
	if activeDetectors == 0 {
		report.Summary.DegradedMode = true
		report.Summary.Note = "all detectors failed numerically; flags are rule-based only"
	}

	e.logger.Info("batch scored",
		zap.Int("records", n),
		zap.Int("anomalies", anomalies),
		zap.Int("active_detectors", activeDetectors),
		zap.Duration("elapsed", time.Since(started)))

	return report, nil
}

// dbscanMinPts scales the density requirement with batch size, floored
// at 4 so tiny test batches still cluster.
func dbscanMinPts(n int) int {
	minPts := n / 20
	if minPts < 4 {
		minPts = 4
	}
	if minPts > 10 {
		minPts = 10
	}
	return minPts
}
