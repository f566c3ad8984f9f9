package engine

import (
	"math"

	"fraudscope/internal/models"
)

// Penalty points for rule and behavioral signals. Each signal's
// contribution is capped so no single source saturates the score.
const (
	detectorBaseScale = 60.0

	impossibleTravelPenalty = 25.0
	firstTimeLargePenalty   = 20.0
	failedLoginPenaltyStep  = 15.0
	failedLoginPenaltyCap   = 30.0
	amountDeviationStep     = 5.0
	amountDeviationCap      = 20.0
	velocityStep            = 2.0
	velocityCap             = 10.0
	newEntityStep           = 5.0
	newEntityCap            = 10.0
)

// riskScore maps one record's signals to a bounded 0-100 integer. It is
// monotonic in every input: raising any detector's normalized score or
// firing one more rule can only raise the result.
func (e *Engine) riskScore(votes []models.ModelVote, fv *models.FeatureVector, hard HardSignals) int {
	w := e.cfg.DetectorWeights
	weightFor := map[string]float64{
		"isolation":  w.Isolation,
		"clustering": w.Clustering,
		"covariance": w.Covariance,
	}

	var weighted, totalWeight float64
	for _, v := range votes {
		if v.Verdict == models.VerdictAbstain {
			continue
		}
		wt := weightFor[v.Detector]
		weighted += wt * v.Score
		totalWeight += wt
	}

	score := 0.0
	if totalWeight > 0 {
		score = detectorBaseScale * (weighted / totalWeight)
	}

	score += math.Min(math.Abs(fv.AmountZScore)*amountDeviationStep, amountDeviationCap)
	score += math.Min(math.Max(fv.TxnCount1Min-1, 0)*velocityStep, velocityCap)

	newEntity := fv.NewDevice + fv.NewIP + fv.NewCountry + fv.NewPayee
	score += math.Min(newEntity*newEntityStep, newEntityCap)

	if hard.ImpossibleTravel {
		score += impossibleTravelPenalty
	}
	if hard.ExcessFailedLogins {
		over := fv.FailedLogins - float64(e.cfg.FailedLoginThreshold) + 1
		score += math.Min(over*failedLoginPenaltyStep, failedLoginPenaltyCap)
	}
	if hard.FirstTimeLargeAmount {
		score += firstTimeLargePenalty
	}

	return int(math.Round(math.Min(math.Max(score, 0), 100)))
}
