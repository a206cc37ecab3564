package Ledger

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// ClientRevenueCategory is the cash ledger category for client payments.
const ClientRevenueCategory = "Client Revenue"

// Debt is what a client owes for one completed billable task.
type Debt struct {
	ID              string    `json:"id"`
	ClientName      string    `json:"client_name"`
	TaskID          string    `json:"task_id"`
	Description     string    `json:"description"`
	TotalAmount     float64   `json:"total_amount"`
	PaidAmount      float64   `json:"paid_amount"`
	RemainingAmount float64   `json:"remaining_amount"`
	CreatedAt       time.Time `json:"created_at"`
}

func (d Debt) Settled() bool { return d.RemainingAmount == 0 }

// Payment is money received against a debt.
type Payment struct {
	ID         string    `json:"id"`
	DebtID     string    `json:"debt_id"`
	ClientName string    `json:"client_name"`
	Amount     float64   `json:"amount"`
	Date       time.Time `json:"date"`
}

// DebtForTask builds the debt for a completed billable task.
func DebtForTask(t Task, id string, now time.Time) (Debt, error) {
	if t.Status != StatusCompleted || !t.Billable() {
		return Debt{}, fmt.Errorf("task %s: %w", t.ID, ErrNotBillable)
	}
	total := *t.ServiceValue
	return Debt{
		ID:              id,
		ClientName:      t.Client,
		TaskID:          t.ID,
		Description:     t.Title,
		TotalAmount:     total,
		PaidAmount:      0,
		RemainingAmount: total,
		CreatedAt:       now,
	}, nil
}

// ScanForDebts returns a new debt for every completed billable task that
// has none in existing. Running it again over its own output yields nothing.
func ScanForDebts(tasks []Task, existing []Debt, newID func() string, now time.Time) []Debt {
	seen := make(map[string]bool, len(existing))
	for _, d := range existing {
		seen[d.TaskID] = true
	}

	var created []Debt
	for _, t := range tasks {
		if seen[t.ID] {
			continue
		}
		d, err := DebtForTask(t, newID(), now)
		if err != nil {
			continue
		}
		seen[t.ID] = true
		created = append(created, d)
	}
	return created
}

// ApplyPayment credits amount to the debt and returns the updated debt, the
// payment record and the matching cash income entry. The remaining balance
// is clamped at zero; overpayment is not carried as credit.
func ApplyPayment(d Debt, amount float64, paymentID, entryID string, now time.Time) (Debt, Payment, CashEntry, error) {
	if !positive(amount) {
		return d, Payment{}, CashEntry{}, fmt.Errorf("payment %v: %w", amount, ErrInvalidAmount)
	}

	next := d
	next.PaidAmount += amount
	next.RemainingAmount = math.Max(0, next.TotalAmount-next.PaidAmount)

	p := Payment{
		ID:         paymentID,
		DebtID:     d.ID,
		ClientName: d.ClientName,
		Amount:     amount,
		Date:       now,
	}
	income := CashEntry{
		ID:          entryID,
		Type:        EntryIncome,
		Amount:      amount,
		Category:    ClientRevenueCategory,
		Date:        now,
		Description: fmt.Sprintf("Payment from %s", d.ClientName),
	}
	return next, p, income, nil
}

// ClientSummary totals the debts of one client.
type ClientSummary struct {
	ClientName  string  `json:"client_name"`
	Services    int     `json:"services"`
	Billed      float64 `json:"billed"`
	Paid        float64 `json:"paid"`
	Outstanding float64 `json:"outstanding"`
}

// SummarizeClients groups debts by client, highest billed first.
func SummarizeClients(debts []Debt) []ClientSummary {
	idx := make(map[string]int)
	var out []ClientSummary
	for _, d := range debts {
		i, ok := idx[d.ClientName]
		if !ok {
			i = len(out)
			idx[d.ClientName] = i
			out = append(out, ClientSummary{ClientName: d.ClientName})
		}
		out[i].Services++
		out[i].Billed += d.TotalAmount
		out[i].Paid += d.PaidAmount
		out[i].Outstanding += d.RemainingAmount
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Billed > out[b].Billed })
	return out
}
