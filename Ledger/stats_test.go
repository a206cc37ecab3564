package Ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeStats(t *testing.T) {
	pending := newTestTask(t, 10)
	started, err := AppendProgress(newTestTask(t, 10), alice, entry("e1", "A", 4))
	require.NoError(t, err)
	done := completedByLedger(t)
	done.Client = "Vale"

	debts := []Debt{
		{ID: "d1", TotalAmount: 500, PaidAmount: 200, RemainingAmount: 300},
		{ID: "d2", TotalAmount: 100, PaidAmount: 100, RemainingAmount: 0},
		{ID: "d3", TotalAmount: 50, RemainingAmount: 50},
	}

	st := SummarizeStats([]Task{pending, started, done}, debts, 2)
	assert.Equal(t, 3, st.TotalTasks)
	assert.Equal(t, 1, st.PendingTasks)
	assert.Equal(t, 1, st.InProgressTasks)
	assert.Equal(t, 1, st.CompletedTasks)
	assert.Equal(t, 2, st.TotalClients)
	assert.Equal(t, 2, st.ActiveWorkers)
	assert.Equal(t, 120.0, st.TargetQuantity)
	assert.Equal(t, 104.0, st.WorkedQuantity)
	assert.Equal(t, 2, st.OpenDebts)
	assert.Equal(t, 350.0, st.OutstandingAmount)
}

func TestService_Stats(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	value := 800.0
	task, err := svc.CreateTask(ctx, admin, TaskInput{Title: "Soy", Client: "Farm Co", Assignee: "A", TargetQuantity: 5, ServiceValue: &value})
	require.NoError(t, err)
	_, err = svc.AppendProgress(ctx, alice, task.ID, ProgressInput{Quantity: 5})
	require.NoError(t, err)
	_, err = svc.CreateDebtForTask(ctx, task.ID)
	require.NoError(t, err)

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.CompletedTasks)
	assert.Equal(t, 2, st.ActiveWorkers)
	assert.Equal(t, 1, st.OpenDebts)
	assert.Equal(t, 800.0, st.OutstandingAmount)
}
