package Ledger

import "context"

// Stats is the dashboard overview of work and receivables.
type Stats struct {
	TotalTasks        int     `json:"total_tasks"`
	PendingTasks      int     `json:"pending_tasks"`
	InProgressTasks   int     `json:"in_progress_tasks"`
	CompletedTasks    int     `json:"completed_tasks"`
	TotalClients      int     `json:"total_clients"`
	ActiveWorkers     int     `json:"active_workers"`
	TargetQuantity    float64 `json:"target_quantity"`
	WorkedQuantity    float64 `json:"worked_quantity"`
	OpenDebts         int     `json:"open_debts"`
	OutstandingAmount float64 `json:"outstanding_amount"`
}

// SummarizeStats counts tasks by status and totals the unpaid debts.
// Clients are counted by distinct name across tasks.
func SummarizeStats(tasks []Task, debts []Debt, workers int) Stats {
	st := Stats{TotalTasks: len(tasks), ActiveWorkers: workers}
	clients := make(map[string]struct{})
	for _, t := range tasks {
		switch t.Status {
		case StatusPending:
			st.PendingTasks++
		case StatusInProgress:
			st.InProgressTasks++
		case StatusCompleted:
			st.CompletedTasks++
		}
		if t.Client != "" {
			clients[t.Client] = struct{}{}
		}
		st.TargetQuantity += t.TargetQuantity
		st.WorkedQuantity += t.WorkedQuantity()
	}
	st.TotalClients = len(clients)

	for _, d := range debts {
		if d.Settled() {
			continue
		}
		st.OpenDebts++
		st.OutstandingAmount += d.RemainingAmount
	}
	return st
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return Stats{}, err
	}
	debts, err := s.store.ListDebts(ctx)
	if err != nil {
		return Stats{}, err
	}
	workers, err := s.store.ListWorkers(ctx)
	if err != nil {
		return Stats{}, err
	}
	return SummarizeStats(tasks, debts, len(workers)), nil
}
