package Ledger

import "context"

// Store persists ledger records. Implementations must give Atomic
// all-or-nothing semantics and serialize concurrent Atomic calls that touch
// the same task or debt.
type Store interface {
	// Atomic runs fn against a transactional view of the store. Any error
	// returned by fn discards every write made through that view.
	Atomic(ctx context.Context, fn func(Store) error) error

	// GetTask returns ErrTaskNotFound if the id is unknown.
	GetTask(ctx context.Context, id string) (Task, error)
	SaveTask(ctx context.Context, t Task) error
	// ListTasks returns tasks in insertion order with their ledgers.
	ListTasks(ctx context.Context) ([]Task, error)

	ListWorkers(ctx context.Context) ([]Worker, error)

	SaveRate(ctx context.Context, r WorkerRate) error
	ListRates(ctx context.Context) ([]WorkerRate, error)

	// GetDebt returns ErrDebtNotFound if the id is unknown.
	GetDebt(ctx context.Context, id string) (Debt, error)
	FindDebtByTask(ctx context.Context, taskID string) (Debt, bool, error)
	SaveDebt(ctx context.Context, d Debt) error
	ListDebts(ctx context.Context) ([]Debt, error)

	SavePayment(ctx context.Context, p Payment) error
	ListPayments(ctx context.Context) ([]Payment, error)

	AppendCashEntry(ctx context.Context, e CashEntry) error
	// DeleteCashEntry returns ErrCashEntryNotFound if the id is unknown.
	DeleteCashEntry(ctx context.Context, id string) error
	ListCashEntries(ctx context.Context) ([]CashEntry, error)
}
