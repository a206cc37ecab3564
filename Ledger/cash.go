package Ledger

import (
	"fmt"
	"time"
)

type EntryType string

const (
	EntryIncome  EntryType = "income"
	EntryExpense EntryType = "expense"
)

// CashEntry is an append-only cash ledger record.
type CashEntry struct {
	ID          string    `json:"id"`
	Type        EntryType `json:"type"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
}

// NewCashEntry validates a manually recorded entry.
func NewCashEntry(id string, typ EntryType, amount float64, category, description string, date time.Time) (CashEntry, error) {
	if typ != EntryIncome && typ != EntryExpense {
		return CashEntry{}, fmt.Errorf("type %q: %w", typ, ErrInvalidEntryType)
	}
	if !positive(amount) {
		return CashEntry{}, fmt.Errorf("cash entry %v: %w", amount, ErrInvalidAmount)
	}
	return CashEntry{
		ID:          id,
		Type:        typ,
		Amount:      amount,
		Category:    category,
		Date:        date,
		Description: description,
	}, nil
}

// CashSummary totals cash entries.
type CashSummary struct {
	Income     float64            `json:"income"`
	Expense    float64            `json:"expense"`
	Balance    float64            `json:"balance"`
	Entries    int                `json:"entries"`
	ByCategory map[string]float64 `json:"by_category"`
}

// SummarizeCash totals the entries dated inside window. Category totals are
// signed: expenses count negative.
func SummarizeCash(entries []CashEntry, window Window) CashSummary {
	s := CashSummary{ByCategory: make(map[string]float64)}
	for _, e := range entries {
		if !window.Contains(e.Date) {
			continue
		}
		s.Entries++
		switch e.Type {
		case EntryIncome:
			s.Income += e.Amount
			s.ByCategory[e.Category] += e.Amount
		case EntryExpense:
			s.Expense += e.Amount
			s.ByCategory[e.Category] -= e.Amount
		}
	}
	s.Balance = s.Income - s.Expense
	return s
}
