package Ledger

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store. Atomic works on a copy of the state
// and publishes it only when the callback succeeds.
type MemoryStore struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	st   *memState
}

var _ Store = (*MemoryStore)(nil)

type memState struct {
	tasks     map[string]Task
	taskOrder []string
	workers   []Worker
	rates     map[string]WorkerRate
	rateOrder []string
	debts     map[string]Debt
	debtOrder []string
	payments  []Payment
	cash      []CashEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: &memState{
		tasks: make(map[string]Task),
		rates: make(map[string]WorkerRate),
		debts: make(map[string]Debt),
	}}
}

func (s *memState) clone() *memState {
	c := &memState{
		tasks:     make(map[string]Task, len(s.tasks)),
		taskOrder: append([]string(nil), s.taskOrder...),
		workers:   append([]Worker(nil), s.workers...),
		rates:     make(map[string]WorkerRate, len(s.rates)),
		rateOrder: append([]string(nil), s.rateOrder...),
		debts:     make(map[string]Debt, len(s.debts)),
		debtOrder: append([]string(nil), s.debtOrder...),
		payments:  append([]Payment(nil), s.payments...),
		cash:      append([]CashEntry(nil), s.cash...),
	}
	for k, v := range s.tasks {
		c.tasks[k] = v.clone()
	}
	for k, v := range s.rates {
		c.rates[k] = v
	}
	for k, v := range s.debts {
		c.debts[k] = v
	}
	return c
}

// AddWorker registers a worker for earnings aggregation.
func (m *MemoryStore) AddWorker(w Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.workers = append(m.st.workers, w)
}

func (m *MemoryStore) Atomic(ctx context.Context, fn func(Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.RLock()
	work := &MemoryStore{st: m.st.clone()}
	m.mu.RUnlock()

	if err := fn(work); err != nil {
		return err
	}

	m.mu.Lock()
	m.st = work.st
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) GetTask(ctx context.Context, id string) (Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.st.tasks[id]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	return t.clone(), nil
}

func (m *MemoryStore) SaveTask(ctx context.Context, t Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.st.tasks[t.ID]; !ok {
		m.st.taskOrder = append(m.st.taskOrder, t.ID)
	}
	m.st.tasks[t.ID] = t.clone()
	return nil
}

func (m *MemoryStore) ListTasks(ctx context.Context) ([]Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Task, 0, len(m.st.taskOrder))
	for _, id := range m.st.taskOrder {
		out = append(out, m.st.tasks[id].clone())
	}
	return out, nil
}

func (m *MemoryStore) ListWorkers(ctx context.Context) ([]Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Worker(nil), m.st.workers...), nil
}

func (m *MemoryStore) SaveRate(ctx context.Context, r WorkerRate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.st.rates[r.ID]; !ok {
		m.st.rateOrder = append(m.st.rateOrder, r.ID)
	}
	m.st.rates[r.ID] = r
	return nil
}

func (m *MemoryStore) ListRates(ctx context.Context) ([]WorkerRate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]WorkerRate, 0, len(m.st.rateOrder))
	for _, id := range m.st.rateOrder {
		out = append(out, m.st.rates[id])
	}
	return out, nil
}

func (m *MemoryStore) GetDebt(ctx context.Context, id string) (Debt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.st.debts[id]
	if !ok {
		return Debt{}, ErrDebtNotFound
	}
	return d, nil
}

func (m *MemoryStore) FindDebtByTask(ctx context.Context, taskID string) (Debt, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.st.debtOrder {
		if d := m.st.debts[id]; d.TaskID == taskID {
			return d, true, nil
		}
	}
	return Debt{}, false, nil
}

func (m *MemoryStore) SaveDebt(ctx context.Context, d Debt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.st.debts[d.ID]; !ok {
		for _, id := range m.st.debtOrder {
			if m.st.debts[id].TaskID == d.TaskID {
				return ErrDuplicateDebt
			}
		}
		m.st.debtOrder = append(m.st.debtOrder, d.ID)
	}
	m.st.debts[d.ID] = d
	return nil
}

func (m *MemoryStore) ListDebts(ctx context.Context) ([]Debt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Debt, 0, len(m.st.debtOrder))
	for _, id := range m.st.debtOrder {
		out = append(out, m.st.debts[id])
	}
	return out, nil
}

func (m *MemoryStore) SavePayment(ctx context.Context, p Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.payments = append(m.st.payments, p)
	return nil
}

func (m *MemoryStore) ListPayments(ctx context.Context) ([]Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Payment(nil), m.st.payments...), nil
}

func (m *MemoryStore) AppendCashEntry(ctx context.Context, e CashEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.cash = append(m.st.cash, e)
	return nil
}

func (m *MemoryStore) DeleteCashEntry(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.st.cash {
		if e.ID == id {
			m.st.cash = append(m.st.cash[:i:i], m.st.cash[i+1:]...)
			return nil
		}
	}
	return ErrCashEntryNotFound
}

func (m *MemoryStore) ListCashEntries(ctx context.Context) ([]CashEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]CashEntry(nil), m.st.cash...), nil
}
