package Ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	workerA = Worker{ID: "u-a", Name: "A"}
	workerB = Worker{ID: "u-b", Name: "B"}
)

func completedByLedger(t *testing.T) Task {
	t.Helper()
	task := newTestTask(t, 100)
	task, err := AppendProgress(task, alice, entry("e1", "A", 60))
	require.NoError(t, err)
	task, err = AppendProgress(task, alice, entry("e2", "A", 40))
	require.NoError(t, err)
	return task
}

func TestComputeEarnings_LedgerPath(t *testing.T) {
	task := completedByLedger(t)

	got := ComputeEarnings([]Worker{workerA}, []Task{task}, map[string]float64{"u-a": 15}, Window{})
	require.Len(t, got, 1)
	assert.Equal(t, 100.0, got[0].TotalQuantity)
	assert.Equal(t, 1500.0, got[0].Earnings)
	require.Len(t, got[0].Details, 2)
	assert.Equal(t, 60.0, got[0].Details[0].Quantity)
	assert.Equal(t, 40.0, got[0].Details[1].Quantity)
	assert.Equal(t, "Soy spraying", got[0].Details[0].TaskTitle)
}

func TestComputeEarnings_FallbackPath(t *testing.T) {
	legacy := Task{
		ID: "legacy", Title: "Corn", Client: "Farm Co", Assignee: "B",
		TargetQuantity: 30, Status: StatusCompleted, DueDate: day, Ledger: nil,
	}

	got := ComputeEarnings([]Worker{workerA, workerB}, []Task{legacy}, map[string]float64{"u-b": 10}, Window{})
	assert.Equal(t, 0.0, got[0].TotalQuantity)
	assert.Equal(t, 30.0, got[1].TotalQuantity)
	assert.Equal(t, 300.0, got[1].Earnings)
	assert.Equal(t, day, got[1].Details[0].Date)
}

func TestComputeEarnings_NoDoubleCount(t *testing.T) {
	// assignee is A, but the ledger attributes everything to B
	task := newTestTask(t, 20)
	task, err := AppendProgress(task, admin, entry("e1", "B", 20))
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, task.Status)

	got := ComputeEarnings([]Worker{workerA, workerB}, []Task{task}, nil, Window{})
	assert.Equal(t, 0.0, got[0].TotalQuantity, "target fallback must not apply to a task with a ledger")
	assert.Equal(t, 20.0, got[1].TotalQuantity)
}

func TestComputeEarnings_RemovalReversesEarnings(t *testing.T) {
	// assignee is A; B logs the whole target
	task := newTestTask(t, 100)
	task, err := AppendProgress(task, admin, entry("e1", "B", 100))
	require.NoError(t, err)
	rates := map[string]float64{"u-a": 15, "u-b": 15}

	got := ComputeEarnings([]Worker{workerA, workerB}, []Task{task}, rates, Window{})
	assert.Equal(t, 0.0, got[0].TotalQuantity)
	assert.Equal(t, 100.0, got[1].TotalQuantity)

	task, err = RemoveProgress(task, admin, "e1")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, task.Status)

	got = ComputeEarnings([]Worker{workerA, workerB}, []Task{task}, rates, Window{})
	assert.Equal(t, 0.0, got[0].TotalQuantity, "an emptied ledger must not fall back to the target")
	assert.Equal(t, 0.0, got[0].Earnings)
	assert.Empty(t, got[0].Details)
	assert.Equal(t, 0.0, got[1].TotalQuantity)
	assert.Equal(t, 0.0, got[1].Earnings)
}

func TestComputeEarnings_LedgerCountsRegardlessOfStatus(t *testing.T) {
	task := newTestTask(t, 100)
	task, _ = AppendProgress(task, alice, entry("e1", "A", 25))

	got := ComputeEarnings([]Worker{workerA}, []Task{task}, map[string]float64{"u-a": 2}, Window{})
	assert.Equal(t, 25.0, got[0].TotalQuantity)
	assert.Equal(t, 50.0, got[0].Earnings)
	assert.Equal(t, 75.0, got[0].PendingQuantity)
	assert.Equal(t, 150.0, got[0].PotentialEarnings)
}

func TestComputeEarnings_WorkerWithoutWorkOrRate(t *testing.T) {
	got := ComputeEarnings([]Worker{workerB}, []Task{completedByLedger(t)}, map[string]float64{}, Window{})
	require.Len(t, got, 1)
	assert.Equal(t, 0.0, got[0].TotalQuantity)
	assert.Equal(t, 0.0, got[0].Earnings)
	assert.NotNil(t, got[0].Details)
	assert.Empty(t, got[0].Details)
}

func TestComputeEarnings_Window(t *testing.T) {
	task := newTestTask(t, 100)
	task, _ = AppendProgress(task, alice, ProgressEntry{ID: "e1", Worker: "A", Quantity: 10, Date: day})
	task, _ = AppendProgress(task, alice, ProgressEntry{ID: "e2", Worker: "A", Quantity: 5, Date: day.AddDate(0, 1, 0)})

	w := Window{From: day.AddDate(0, 0, 1)}
	got := ComputeEarnings([]Worker{workerA}, []Task{task}, nil, w)
	assert.Equal(t, 5.0, got[0].TotalQuantity)
}

func TestCohortTotals(t *testing.T) {
	legacy := Task{ID: "l", Assignee: "B", TargetQuantity: 30, Status: StatusCompleted, DueDate: day}
	rates := map[string]float64{"u-a": 15, "u-b": 10}

	got := ComputeEarnings([]Worker{workerA, workerB}, []Task{completedByLedger(t), legacy}, rates, Window{})
	q, e := CohortTotals(got)
	assert.Equal(t, 130.0, q)
	assert.Equal(t, 1800.0, e)
}

func TestEffectiveRates(t *testing.T) {
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	jun := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	rates := []WorkerRate{
		{ID: "1", WorkerID: "u-a", RatePerUnit: 10},
		{ID: "2", WorkerID: "u-a", RatePerUnit: 12, StartDate: &jan},
		{ID: "3", WorkerID: "u-a", RatePerUnit: 15, StartDate: &mar, EndDate: &jun},
		{ID: "4", WorkerID: "u-b", RatePerUnit: 8, UpdatedAt: jan},
		{ID: "5", WorkerID: "u-b", RatePerUnit: 9, UpdatedAt: mar},
	}

	assert.Equal(t, 10.0, EffectiveRates(rates, jan.AddDate(-1, 0, 0))["u-a"])
	assert.Equal(t, 12.0, EffectiveRates(rates, jan.AddDate(0, 1, 0))["u-a"])
	assert.Equal(t, 15.0, EffectiveRates(rates, mar.AddDate(0, 1, 0))["u-a"])
	assert.Equal(t, 12.0, EffectiveRates(rates, jun.AddDate(0, 1, 0))["u-a"])
	assert.Equal(t, 9.0, EffectiveRates(rates, mar)["u-b"])

	_, ok := EffectiveRates(rates, mar)["u-c"]
	assert.False(t, ok)
}

func TestValidateRate(t *testing.T) {
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	dec := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, validateRate(WorkerRate{WorkerID: "u", RatePerUnit: 0}))
	assert.ErrorIs(t, validateRate(WorkerRate{WorkerID: "u", RatePerUnit: -1}), ErrInvalidAmount)
	assert.ErrorIs(t, validateRate(WorkerRate{WorkerID: "u", StartDate: &jan, EndDate: &dec}), ErrInvalidAmount)
}
