package engine

import "fraudscope/internal/models"

// HardSignals are deterministic rule triggers that can force a flag on
// their own. They OR with the detector majority and never suppress it.
type HardSignals struct {
	ImpossibleTravel     bool
	ExcessFailedLogins   bool
	FirstTimeLargeAmount bool
}

func (h HardSignals) Any() bool {
	return h.ImpossibleTravel || h.ExcessFailedLogins || h.FirstTimeLargeAmount
}

// hardSignalsFor evaluates the rule triggers for one record.
func (e *Engine) hardSignalsFor(fv *models.FeatureVector, rec *models.TransactionRecord, prof *models.UserProfile) HardSignals {
	var h HardSignals

	if fv.ImpossibleTravel > 0 {
		h.ImpossibleTravel = true
	}
	if int(fv.FailedLogins) >= e.cfg.FailedLoginThreshold {
		h.ExcessFailedLogins = true
	}
	if fv.AmountZScore >= e.cfg.LargeAmountZScore {
		firstForUser := prof != nil && prof.Count == 1
		if firstForUser || rec.IsNewPayee {
			h.FirstTimeLargeAmount = true
		}
	}
	return h
}

// aggregateVotes combines detector verdicts with hard signals. Abstaining
// detectors drop out of the denominator; the ML side needs a strict
// majority of the detectors that actually voted.
func aggregateVotes(votes []models.ModelVote, hard HardSignals) bool {
	voted, outliers := 0, 0
	for _, v := range votes {
		if v.Verdict == models.VerdictAbstain {
			continue
		}
		voted++
		if v.Verdict == models.VerdictOutlier {
			outliers++
		}
	}

	mlMajority := voted > 0 && outliers*2 > voted
	return mlMajority || hard.Any()
}
