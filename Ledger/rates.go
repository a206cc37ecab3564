package Ledger

import (
	"fmt"
	"time"
)

// WorkerRate is the amount paid to a worker per hectare, optionally limited
// to a validity window. Nil bounds are open.
type WorkerRate struct {
	ID          string     `json:"id"`
	WorkerID    string     `json:"worker_id"`
	RatePerUnit float64    `json:"rate_per_unit"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Worker is an employee whose work is aggregated. Ledger entries and task
// assignees refer to workers by Name.
type Worker struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Covers reports whether the rate's window contains at.
func (r WorkerRate) Covers(at time.Time) bool {
	if r.StartDate != nil && at.Before(*r.StartDate) {
		return false
	}
	if r.EndDate != nil && at.After(*r.EndDate) {
		return false
	}
	return true
}

func validateRate(r WorkerRate) error {
	if r.WorkerID == "" {
		return fmt.Errorf("rate without worker: %w", ErrInvalidAmount)
	}
	if !nonNegative(r.RatePerUnit) {
		return fmt.Errorf("rate %v: %w", r.RatePerUnit, ErrInvalidAmount)
	}
	if r.StartDate != nil && r.EndDate != nil && r.EndDate.Before(*r.StartDate) {
		return fmt.Errorf("rate window ends before it starts: %w", ErrInvalidAmount)
	}
	return nil
}

// EffectiveRates picks at most one rate per worker for the instant at. Among
// the rates covering at, the latest start date wins (an open start is the
// earliest); equal starts fall back to the most recent update, then to the
// later position in rates.
func EffectiveRates(rates []WorkerRate, at time.Time) map[string]float64 {
	best := make(map[string]WorkerRate)
	for _, r := range rates {
		if !r.Covers(at) {
			continue
		}
		cur, ok := best[r.WorkerID]
		if !ok || supersedes(r, cur) {
			best[r.WorkerID] = r
		}
	}

	out := make(map[string]float64, len(best))
	for id, r := range best {
		out[id] = r.RatePerUnit
	}
	return out
}

func supersedes(a, b WorkerRate) bool {
	switch {
	case a.StartDate == nil && b.StartDate != nil:
		return false
	case a.StartDate != nil && b.StartDate == nil:
		return true
	case a.StartDate != nil && b.StartDate != nil && !a.StartDate.Equal(*b.StartDate):
		return a.StartDate.After(*b.StartDate)
	}
	return !a.UpdatedAt.Before(b.UpdatedAt)
}
