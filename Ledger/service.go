package Ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Service runs ledger operations against a Store. Every mutation is one
// Store.Atomic call, so a rejected operation leaves no trace.
type Service struct {
	store Store
	now   func() time.Time
	newID func() string
}

type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDs overrides id generation.
func WithIDs(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProgressInput is a worker's report of completed work.
type ProgressInput struct {
	Quantity  float64
	Worker    string
	Equipment []string
	Notes     string
	Date      time.Time
}

func (s *Service) CreateTask(ctx context.Context, actor Actor, in TaskInput) (Task, error) {
	if !actor.IsAdmin() {
		return Task{}, ErrNotAuthorized
	}
	t, err := NewTask(s.newID(), in, s.now())
	if err != nil {
		return Task{}, err
	}
	err = s.store.Atomic(ctx, func(st Store) error {
		return st.SaveTask(ctx, t)
	})
	if err != nil {
		return Task{}, fmt.Errorf("create task: %w", err)
	}
	log.WithFields(log.Fields{"task": t.ID, "target": t.TargetQuantity, "assignee": t.Assignee}).Info("task created")
	return t, nil
}

func (s *Service) GetTask(ctx context.Context, id string) (Task, error) {
	return s.store.GetTask(ctx, id)
}

func (s *Service) ListTasks(ctx context.Context) ([]Task, error) {
	return s.store.ListTasks(ctx)
}

// mutateTask loads a task, applies fn and saves the result. When the task
// becomes completed and is billable its debt is created in the same
// transaction.
func (s *Service) mutateTask(ctx context.Context, op, taskID string, fn func(Task) (Task, error)) (Task, error) {
	var out Task
	err := s.store.Atomic(ctx, func(st Store) error {
		t, err := st.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		next, err := fn(t)
		if err != nil {
			return err
		}
		if err := st.SaveTask(ctx, next); err != nil {
			return err
		}
		if next.Status == StatusCompleted && next.Billable() {
			if _, err := s.ensureDebt(ctx, st, next); err != nil {
				return err
			}
		}
		out = next
		return nil
	})
	if err != nil {
		log.WithFields(log.Fields{"task": taskID, "op": op}).WithError(err).Warn("task operation rejected")
		return Task{}, fmt.Errorf("%s %s: %w", op, taskID, err)
	}
	return out, nil
}

func (s *Service) StartTask(ctx context.Context, actor Actor, taskID string) (Task, error) {
	t, err := s.mutateTask(ctx, "start", taskID, func(t Task) (Task, error) {
		return StartTask(t, actor)
	})
	if err == nil {
		log.WithFields(log.Fields{"task": taskID, "actor": actor.Name}).Info("task started")
	}
	return t, err
}

func (s *Service) AppendProgress(ctx context.Context, actor Actor, taskID string, in ProgressInput) (Task, error) {
	entry := ProgressEntry{
		ID:        s.newID(),
		Date:      in.Date,
		Quantity:  in.Quantity,
		Worker:    in.Worker,
		Equipment: in.Equipment,
		Notes:     in.Notes,
	}
	if entry.Date.IsZero() {
		entry.Date = s.now()
	}
	t, err := s.mutateTask(ctx, "append progress to", taskID, func(t Task) (Task, error) {
		return AppendProgress(t, actor, entry)
	})
	if err == nil {
		log.WithFields(log.Fields{
			"task":      taskID,
			"worker":    t.Ledger[len(t.Ledger)-1].Worker,
			"quantity":  in.Quantity,
			"completed": t.CompletedQuantity,
			"status":    t.Status,
		}).Info("progress recorded")
	}
	return t, err
}

func (s *Service) CompleteTask(ctx context.Context, actor Actor, taskID string) (Task, error) {
	t, err := s.mutateTask(ctx, "complete", taskID, func(t Task) (Task, error) {
		return CompleteTask(t, actor, s.now())
	})
	if err == nil {
		log.WithFields(log.Fields{"task": taskID, "forced": t.ForcedCompletion}).Info("task completed")
	}
	return t, err
}

func (s *Service) RemoveProgress(ctx context.Context, actor Actor, taskID, entryID string) (Task, error) {
	t, err := s.mutateTask(ctx, "remove progress from", taskID, func(t Task) (Task, error) {
		return RemoveProgress(t, actor, entryID)
	})
	if err == nil {
		log.WithFields(log.Fields{"task": taskID, "entry": entryID, "completed": t.CompletedQuantity}).Info("progress removed")
	}
	return t, err
}

func (s *Service) ChangeTarget(ctx context.Context, actor Actor, taskID string, target float64) (Task, error) {
	return s.mutateTask(ctx, "change target of", taskID, func(t Task) (Task, error) {
		return ChangeTarget(t, actor, target)
	})
}

func (s *Service) AttachPhoto(ctx context.Context, actor Actor, taskID, entryID, path string) (Task, error) {
	return s.mutateTask(ctx, "attach photo to", taskID, func(t Task) (Task, error) {
		return AttachPhoto(t, actor, entryID, path)
	})
}

// SetRate stores a worker rate. Only administrators may change rates.
func (s *Service) SetRate(ctx context.Context, actor Actor, r WorkerRate) (WorkerRate, error) {
	if !actor.IsAdmin() {
		return WorkerRate{}, ErrNotAuthorized
	}
	if err := validateRate(r); err != nil {
		return WorkerRate{}, err
	}
	if r.ID == "" {
		r.ID = s.newID()
	}
	r.UpdatedAt = s.now()
	if err := s.store.Atomic(ctx, func(st Store) error { return st.SaveRate(ctx, r) }); err != nil {
		return WorkerRate{}, fmt.Errorf("save rate: %w", err)
	}
	log.WithFields(log.Fields{"worker": r.WorkerID, "rate": r.RatePerUnit}).Info("rate saved")
	return r, nil
}

func (s *Service) ListRates(ctx context.Context) ([]WorkerRate, error) {
	return s.store.ListRates(ctx)
}

// ComputeEarnings aggregates every worker's contributions inside window
// using the rates effective now.
func (s *Service) ComputeEarnings(ctx context.Context, window Window) ([]WorkerEarnings, error) {
	workers, err := s.store.ListWorkers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	rates, err := s.store.ListRates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}
	return ComputeEarnings(workers, tasks, EffectiveRates(rates, s.now()), window), nil
}

// ensureDebt returns the task's debt, creating it when missing.
func (s *Service) ensureDebt(ctx context.Context, st Store, t Task) (Debt, error) {
	if d, ok, err := st.FindDebtByTask(ctx, t.ID); err != nil || ok {
		return d, err
	}
	d, err := DebtForTask(t, s.newID(), s.now())
	if err != nil {
		return Debt{}, err
	}
	if err := st.SaveDebt(ctx, d); err != nil {
		return Debt{}, err
	}
	log.WithFields(log.Fields{"task": t.ID, "debt": d.ID, "client": d.ClientName, "amount": d.TotalAmount}).Info("debt created")
	return d, nil
}

// CreateDebtForTask returns the debt of a completed billable task, creating
// it on first call.
func (s *Service) CreateDebtForTask(ctx context.Context, taskID string) (Debt, error) {
	var out Debt
	err := s.store.Atomic(ctx, func(st Store) error {
		t, err := st.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		out, err = s.ensureDebt(ctx, st, t)
		return err
	})
	if err != nil {
		return Debt{}, fmt.Errorf("debt for task %s: %w", taskID, err)
	}
	return out, nil
}

// ReconcileDebts creates the missing debts of all completed billable tasks
// and returns the ones it created.
func (s *Service) ReconcileDebts(ctx context.Context) ([]Debt, error) {
	var created []Debt
	err := s.store.Atomic(ctx, func(st Store) error {
		tasks, err := st.ListTasks(ctx)
		if err != nil {
			return err
		}
		existing, err := st.ListDebts(ctx)
		if err != nil {
			return err
		}
		created = ScanForDebts(tasks, existing, s.newID, s.now())
		for _, d := range created {
			if err := st.SaveDebt(ctx, d); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile debts: %w", err)
	}
	log.WithField("created", len(created)).Info("debts reconciled")
	return created, nil
}

// Receipt is the outcome of a payment.
type Receipt struct {
	Debt      Debt      `json:"debt"`
	Payment   Payment   `json:"payment"`
	CashEntry CashEntry `json:"cash_entry"`
}

// ApplyPayment credits a payment to a debt and records the cash income in
// the same transaction.
func (s *Service) ApplyPayment(ctx context.Context, debtID string, amount float64) (Receipt, error) {
	if !positive(amount) {
		log.WithFields(log.Fields{"debt": debtID, "amount": amount}).Warn("payment rejected")
		return Receipt{}, fmt.Errorf("payment %v: %w", amount, ErrInvalidAmount)
	}

	var r Receipt
	err := s.store.Atomic(ctx, func(st Store) error {
		d, err := st.GetDebt(ctx, debtID)
		if err != nil {
			return err
		}
		r.Debt, r.Payment, r.CashEntry, err = ApplyPayment(d, amount, s.newID(), s.newID(), s.now())
		if err != nil {
			return err
		}
		if err := st.SaveDebt(ctx, r.Debt); err != nil {
			return err
		}
		if err := st.SavePayment(ctx, r.Payment); err != nil {
			return err
		}
		return st.AppendCashEntry(ctx, r.CashEntry)
	})
	if err != nil {
		if errors.Is(err, ErrDebtNotFound) {
			log.WithField("debt", debtID).Warn("payment for unknown debt")
		}
		return Receipt{}, fmt.Errorf("apply payment to %s: %w", debtID, err)
	}
	log.WithFields(log.Fields{
		"debt":      debtID,
		"amount":    amount,
		"remaining": r.Debt.RemainingAmount,
	}).Info("payment applied")
	return r, nil
}

func (s *Service) ListDebts(ctx context.Context) ([]Debt, error) {
	return s.store.ListDebts(ctx)
}

func (s *Service) ListPayments(ctx context.Context) ([]Payment, error) {
	return s.store.ListPayments(ctx)
}

func (s *Service) ClientSummaries(ctx context.Context) ([]ClientSummary, error) {
	debts, err := s.store.ListDebts(ctx)
	if err != nil {
		return nil, err
	}
	return SummarizeClients(debts), nil
}

// CashInput is a manually recorded cash ledger entry.
type CashInput struct {
	Type        EntryType
	Amount      float64
	Category    string
	Description string
	Date        time.Time
}

func (s *Service) RecordCashEntry(ctx context.Context, actor Actor, in CashInput) (CashEntry, error) {
	if !actor.IsAdmin() {
		return CashEntry{}, ErrNotAuthorized
	}
	date := in.Date
	if date.IsZero() {
		date = s.now()
	}
	e, err := NewCashEntry(s.newID(), in.Type, in.Amount, in.Category, in.Description, date)
	if err != nil {
		return CashEntry{}, err
	}
	if err := s.store.Atomic(ctx, func(st Store) error { return st.AppendCashEntry(ctx, e) }); err != nil {
		return CashEntry{}, fmt.Errorf("record cash entry: %w", err)
	}
	return e, nil
}

func (s *Service) DeleteCashEntry(ctx context.Context, actor Actor, id string) error {
	if !actor.IsAdmin() {
		return ErrNotAuthorized
	}
	err := s.store.Atomic(ctx, func(st Store) error { return st.DeleteCashEntry(ctx, id) })
	if err != nil {
		return fmt.Errorf("delete cash entry %s: %w", id, err)
	}
	log.WithField("entry", id).Info("cash entry deleted")
	return nil
}

func (s *Service) ListCashEntries(ctx context.Context) ([]CashEntry, error) {
	return s.store.ListCashEntries(ctx)
}

func (s *Service) CashSummary(ctx context.Context, window Window) (CashSummary, error) {
	entries, err := s.store.ListCashEntries(ctx)
	if err != nil {
		return CashSummary{}, err
	}
	return SummarizeCash(entries, window), nil
}
