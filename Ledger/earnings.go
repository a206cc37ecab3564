package Ledger

import "time"

// TaskDetail is one contribution to a worker's total.
type TaskDetail struct {
	TaskID    string    `json:"task_id"`
	TaskTitle string    `json:"task_title"`
	Client    string    `json:"client"`
	Quantity  float64   `json:"quantity"`
	Date      time.Time `json:"date"`
}

// WorkerEarnings is the aggregated result for one worker.
type WorkerEarnings struct {
	WorkerID          string       `json:"worker_id"`
	WorkerName        string       `json:"worker_name"`
	TotalQuantity     float64      `json:"total_quantity"`
	RatePerUnit       float64      `json:"rate_per_unit"`
	Earnings          float64      `json:"earnings"`
	PendingQuantity   float64      `json:"pending_quantity"`
	PotentialEarnings float64      `json:"potential_earnings"`
	Details           []TaskDetail `json:"details"`
}

// Window bounds contributions by date. Zero bounds are open.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) Contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && t.After(w.To) {
		return false
	}
	return true
}

// ComputeEarnings aggregates the work of each worker across tasks.
//
// A tracked task contributes each entry to the entry's worker, whatever the
// task status. An untracked task contributes its full target to its assignee
// only when completed. No task contributes
// through both paths. Workers without a rate earn zero.
func ComputeEarnings(workers []Worker, tasks []Task, rates map[string]float64, window Window) []WorkerEarnings {
	out := make([]WorkerEarnings, 0, len(workers))
	for _, w := range workers {
		we := WorkerEarnings{
			WorkerID:    w.ID,
			WorkerName:  w.Name,
			RatePerUnit: rates[w.ID],
			Details:     []TaskDetail{},
		}

		for _, t := range tasks {
			if t.UsesLedger() {
				for _, e := range t.Ledger {
					if e.Worker != w.Name || !window.Contains(e.Date) {
						continue
					}
					we.TotalQuantity += e.Quantity
					we.Details = append(we.Details, TaskDetail{
						TaskID:    t.ID,
						TaskTitle: t.Title,
						Client:    t.Client,
						Quantity:  e.Quantity,
						Date:      e.Date,
					})
				}
			} else if t.Status == StatusCompleted && t.Assignee == w.Name {
				date := fallbackDate(t)
				if !window.Contains(date) {
					continue
				}
				we.TotalQuantity += t.TargetQuantity
				we.Details = append(we.Details, TaskDetail{
					TaskID:    t.ID,
					TaskTitle: t.Title,
					Client:    t.Client,
					Quantity:  t.TargetQuantity,
					Date:      date,
				})
			}

			if t.Status != StatusCompleted && t.Assignee == w.Name {
				we.PendingQuantity += t.Remaining()
			}
		}

		we.Earnings = we.TotalQuantity * we.RatePerUnit
		we.PotentialEarnings = we.PendingQuantity * we.RatePerUnit
		out = append(out, we)
	}
	return out
}

func fallbackDate(t Task) time.Time {
	if !t.DueDate.IsZero() {
		return t.DueDate
	}
	if t.CompletedAt != nil {
		return *t.CompletedAt
	}
	return t.CreatedAt
}

// CohortTotals sums quantity and earnings across workers.
func CohortTotals(all []WorkerEarnings) (quantity, earnings float64) {
	for _, we := range all {
		quantity += we.TotalQuantity
		earnings += we.Earnings
	}
	return quantity, earnings
}
