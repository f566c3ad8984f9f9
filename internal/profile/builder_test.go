package profile

import (
	"fmt"
	"math"
	"testing"
	"time"

	"fraudscope/internal/models"
)

func record(user string, amount float64, ts time.Time, country string) models.TransactionRecord {
	return models.TransactionRecord{
		UserID:       user,
		Amount:       amount,
		HasAmount:    true,
		Timestamp:    ts,
		HasTimestamp: true,
		Country:      country,
	}
}

func TestBuildPerUserStats(t *testing.T) {
	base := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	var records []models.TransactionRecord
	for i := 0; i < 5; i++ {
		records = append(records, record("alice", 100, base.Add(time.Duration(i)*time.Hour), "US"))
	}

	profiles := NewBuilder(3).Build(records)
	p := profiles["alice"]
	if p == nil {
		t.Fatal("no profile for alice")
	}
	if p.Count != 5 {
		t.Errorf("count = %d, want 5", p.Count)
	}
	if p.MeanAmount != 100 || p.StdAmount != 0 {
		t.Errorf("mean/std = %v/%v, want 100/0", p.MeanAmount, p.StdAmount)
	}
	if p.ModalCountry != "US" {
		t.Errorf("modal country = %q, want US", p.ModalCountry)
	}
	if p.ModalHour < 14 || p.ModalHour > 18 {
		t.Errorf("modal hour = %d, want within transaction hours", p.ModalHour)
	}
	if p.Degraded {
		t.Error("five records should not be degraded")
	}
}

func TestBuildSmallHistoryFallsBackToGlobal(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	var records []models.TransactionRecord
	for i := 0; i < 10; i++ {
		records = append(records, record("alice", 50, base.Add(time.Duration(i)*time.Minute), "US"))
	}
	records = append(records, record("bob", 500, base, "FR"))

	profiles := NewBuilder(3).Build(records)
	bob := profiles["bob"]
	if bob == nil {
		t.Fatal("no profile for bob")
	}
	if !bob.Degraded {
		t.Error("single-record user should be degraded")
	}
	// Global mean over 11 amounts: (10*50 + 500) / 11.
	wantMean := (10*50.0 + 500) / 11
	if math.Abs(bob.MeanAmount-wantMean) > 1e-9 {
		t.Errorf("mean = %v, want global mean %v", bob.MeanAmount, wantMean)
	}
	if bob.StdAmount <= 0 {
		t.Errorf("std = %v, want positive global std", bob.StdAmount)
	}
}

func TestBuildDeterministicModalTieBreak(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	records := []models.TransactionRecord{
		record("u", 10, base, "US"),
		record("u", 10, base, "FR"),
		record("u", 10, base, "US"),
		record("u", 10, base, "FR"),
	}

	var last string
	for i := 0; i < 20; i++ {
		p := NewBuilder(3).Build(records)["u"]
		if i > 0 && p.ModalCountry != last {
			t.Fatalf("modal country not deterministic: %q vs %q", p.ModalCountry, last)
		}
		last = p.ModalCountry
	}
	if last != "FR" {
		t.Errorf("tie should break lexicographically, got %q", last)
	}
}

func TestBuildManyUsers(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	var records []models.TransactionRecord
	for u := 0; u < 20; u++ {
		for i := 0; i < 4; i++ {
			records = append(records, record(fmt.Sprintf("user-%d", u), float64(10+u), base.Add(time.Duration(i)*time.Hour), ""))
		}
	}

	profiles := NewBuilder(3).Build(records)
	if len(profiles) != 20 {
		t.Fatalf("got %d profiles, want 20", len(profiles))
	}
	for id, p := range profiles {
		if p.Count != 4 {
			t.Errorf("%s count = %d, want 4", id, p.Count)
		}
	}
}
