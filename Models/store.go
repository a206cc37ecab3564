package Models

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Aerofield/Ledger"
)

// GormStore persists the ledger through gorm. Inside Atomic the task and debt
// reads lock their rows on databases that support SELECT ... FOR UPDATE, so
// concurrent mutations of one task or debt are serialized.
type GormStore struct {
	db   *gorm.DB
	inTx bool
}

var _ Ledger.Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Atomic(ctx context.Context, fn func(Ledger.Store) error) error {
	return s.within(ctx, func(tx *GormStore) error { return fn(tx) })
}

// within runs fn in the current transaction, or in a new one.
func (s *GormStore) within(ctx context.Context, fn func(*GormStore) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx, inTx: true})
	})
}

func (s *GormStore) forUpdate(ctx context.Context) *gorm.DB {
	q := s.db.WithContext(ctx)
	if s.inTx && q.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func withProgress(db *gorm.DB) *gorm.DB {
	return db.Preload("Progress", func(db *gorm.DB) *gorm.DB {
		return db.Order("position")
	})
}

func (s *GormStore) GetTask(ctx context.Context, id string) (Ledger.Task, error) {
	var rec TaskRecord
	err := withProgress(s.forUpdate(ctx)).Where("id = ?", id).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Ledger.Task{}, Ledger.ErrTaskNotFound
	}
	if err != nil {
		return Ledger.Task{}, fmt.Errorf("load task %s: %w", id, err)
	}
	return rec.toTask(), nil
}

// SaveTask writes the task row and replaces its progress rows.
func (s *GormStore) SaveTask(ctx context.Context, t Ledger.Task) error {
	return s.within(ctx, func(tx *GormStore) error {
		return saveTask(tx.db.WithContext(ctx), taskRecord(t))
	})
}

func saveTask(db *gorm.DB, rec TaskRecord) error {
	var existing TaskRecord
	err := db.Select("seq").Where("id = ?", rec.ID).Take(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := db.Omit(clause.Associations).Create(&rec).Error; err != nil {
			return fmt.Errorf("insert task %s: %w", rec.ID, err)
		}
	case err != nil:
		return fmt.Errorf("load task %s: %w", rec.ID, err)
	default:
		rec.Seq = existing.Seq
		if err := db.Omit(clause.Associations).Save(&rec).Error; err != nil {
			return fmt.Errorf("update task %s: %w", rec.ID, err)
		}
	}

	if err := db.Where("task_id = ?", rec.ID).Delete(&ProgressRecord{}).Error; err != nil {
		return fmt.Errorf("clear progress of %s: %w", rec.ID, err)
	}
	if len(rec.Progress) == 0 {
		return nil
	}
	if err := db.Create(&rec.Progress).Error; err != nil {
		return fmt.Errorf("insert progress of %s: %w", rec.ID, err)
	}
	return nil
}

func (s *GormStore) ListTasks(ctx context.Context) ([]Ledger.Task, error) {
	var recs []TaskRecord
	if err := withProgress(s.db.WithContext(ctx)).Order("seq").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	out := make([]Ledger.Task, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toTask())
	}
	return out, nil
}

// ListWorkers returns the active employee accounts.
func (s *GormStore) ListWorkers(ctx context.Context) ([]Ledger.Worker, error) {
	var users []User
	err := s.db.WithContext(ctx).
		Where("role = ? AND active = ?", string(Ledger.RoleEmployee), true).
		Order("created_at, name").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	out := make([]Ledger.Worker, 0, len(users))
	for _, u := range users {
		out = append(out, Ledger.Worker{ID: u.ID, Name: u.Name})
	}
	return out, nil
}

func (s *GormStore) SaveRate(ctx context.Context, r Ledger.WorkerRate) error {
	rec := rateRecord(r)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"worker_id", "rate_per_unit", "start_date", "end_date", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save rate %s: %w", r.ID, err)
	}
	return nil
}

func (s *GormStore) ListRates(ctx context.Context) ([]Ledger.WorkerRate, error) {
	var recs []RateRecord
	if err := s.db.WithContext(ctx).Order("seq").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}
	out := make([]Ledger.WorkerRate, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toRate())
	}
	return out, nil
}

func (s *GormStore) GetDebt(ctx context.Context, id string) (Ledger.Debt, error) {
	var rec DebtRecord
	err := s.forUpdate(ctx).Where("id = ?", id).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Ledger.Debt{}, Ledger.ErrDebtNotFound
	}
	if err != nil {
		return Ledger.Debt{}, fmt.Errorf("load debt %s: %w", id, err)
	}
	return rec.toDebt(), nil
}

func (s *GormStore) FindDebtByTask(ctx context.Context, taskID string) (Ledger.Debt, bool, error) {
	var rec DebtRecord
	err := s.db.WithContext(ctx).Where("task_id = ?", taskID).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Ledger.Debt{}, false, nil
	}
	if err != nil {
		return Ledger.Debt{}, false, fmt.Errorf("find debt of task %s: %w", taskID, err)
	}
	return rec.toDebt(), true, nil
}

// SaveDebt inserts a new debt or updates the amounts of an existing one. A
// second debt for the same task is rejected with Ledger.ErrDuplicateDebt.
func (s *GormStore) SaveDebt(ctx context.Context, d Ledger.Debt) error {
	return s.within(ctx, func(tx *GormStore) error {
		return tx.saveDebt(ctx, d)
	})
}

func (s *GormStore) saveDebt(ctx context.Context, d Ledger.Debt) error {
	db := s.db.WithContext(ctx)
	rec := debtRecord(d)

	var existing DebtRecord
	err := db.Select("seq", "task_id").Where("id = ?", d.ID).Take(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		other, found, err := s.FindDebtByTask(ctx, d.TaskID)
		if err != nil {
			return err
		}
		if found && other.ID != d.ID {
			return Ledger.ErrDuplicateDebt
		}
		if err := db.Create(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return Ledger.ErrDuplicateDebt
			}
			return fmt.Errorf("insert debt %s: %w", d.ID, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("load debt %s: %w", d.ID, err)
	}

	err = db.Model(&DebtRecord{}).Where("seq = ?", existing.Seq).Updates(map[string]interface{}{
		"paid_amount":      rec.PaidAmount,
		"remaining_amount": rec.RemainingAmount,
		"total_amount":     rec.TotalAmount,
		"description":      rec.Description,
	}).Error
	if err != nil {
		return fmt.Errorf("update debt %s: %w", d.ID, err)
	}
	return nil
}

func (s *GormStore) ListDebts(ctx context.Context) ([]Ledger.Debt, error) {
	var recs []DebtRecord
	if err := s.db.WithContext(ctx).Order("seq").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	out := make([]Ledger.Debt, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toDebt())
	}
	return out, nil
}

func (s *GormStore) SavePayment(ctx context.Context, p Ledger.Payment) error {
	rec := PaymentRecord{ID: p.ID, DebtID: p.DebtID, ClientName: p.ClientName, Amount: p.Amount, Date: p.Date}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("save payment %s: %w", p.ID, err)
	}
	return nil
}

func (s *GormStore) ListPayments(ctx context.Context) ([]Ledger.Payment, error) {
	var recs []PaymentRecord
	if err := s.db.WithContext(ctx).Order("seq").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	out := make([]Ledger.Payment, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toPayment())
	}
	return out, nil
}

func (s *GormStore) AppendCashEntry(ctx context.Context, e Ledger.CashEntry) error {
	rec := CashEntryRecord{
		ID:          e.ID,
		Type:        string(e.Type),
		Amount:      e.Amount,
		Category:    e.Category,
		Date:        e.Date,
		Description: e.Description,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("save cash entry %s: %w", e.ID, err)
	}
	return nil
}

func (s *GormStore) DeleteCashEntry(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&CashEntryRecord{})
	if res.Error != nil {
		return fmt.Errorf("delete cash entry %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return Ledger.ErrCashEntryNotFound
	}
	return nil
}

func (s *GormStore) ListCashEntries(ctx context.Context) ([]Ledger.CashEntry, error) {
	var recs []CashEntryRecord
	if err := s.db.WithContext(ctx).Order("seq").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list cash entries: %w", err)
	}
	out := make([]Ledger.CashEntry, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toCashEntry())
	}
	return out, nil
}
