package Ledger

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin = Actor{ID: "u-admin", Name: "Admin", Role: RoleAdmin}
	alice = Actor{ID: "u-a", Name: "A", Role: RoleEmployee}
	bruno = Actor{ID: "u-b", Name: "B", Role: RoleEmployee}
	day   = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
)

func newTestTask(t *testing.T, target float64) Task {
	t.Helper()
	task, err := NewTask("t1", TaskInput{Title: "Soy spraying", Client: "Farm Co", Assignee: "A", TargetQuantity: target}, day)
	require.NoError(t, err)
	return task
}

func entry(id, worker string, q float64) ProgressEntry {
	return ProgressEntry{ID: id, Worker: worker, Quantity: q, Date: day}
}

func TestNewTask_Validation(t *testing.T) {
	_, err := NewTask("x", TaskInput{TargetQuantity: 0}, day)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	neg := -1.0
	_, err = NewTask("x", TaskInput{TargetQuantity: 5, ServiceValue: &neg}, day)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	task := newTestTask(t, 10)
	assert.Equal(t, StatusPending, task.Status)
	assert.Empty(t, task.Ledger)
}

func TestStartTask(t *testing.T) {
	task := newTestTask(t, 10)

	_, err := StartTask(task, bruno)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	started, err := StartTask(task, alice)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, started.Status)
	assert.Equal(t, StatusPending, task.Status, "input must not be modified")

	again, err := StartTask(started, admin)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, again.Status)

	done, err := CompleteTask(started, admin, day)
	require.NoError(t, err)
	_, err = StartTask(done, admin)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAppendProgress_AutoCompletes(t *testing.T) {
	task := newTestTask(t, 100)

	task, err := AppendProgress(task, alice, entry("e1", "A", 60))
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, task.Status)
	assert.Equal(t, 60.0, task.CompletedQuantity)

	task, err = AppendProgress(task, alice, entry("e2", "A", 40))
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, task.Status)
	assert.Equal(t, 100.0, task.CompletedQuantity)
	assert.False(t, task.ForcedCompletion)
	require.NotNil(t, task.CompletedAt)
}

func TestAppendProgress_LedgerSumInvariant(t *testing.T) {
	task := newTestTask(t, 50)
	quantities := []float64{1.5, 2.25, 10, 0.1, 7}

	var err error
	for i, q := range quantities {
		task, err = AppendProgress(task, admin, entry(string(rune('a'+i)), "A", q))
		require.NoError(t, err)
		assert.Equal(t, LedgerSum(task.Ledger), task.CompletedQuantity)
	}
	assert.Len(t, task.Ledger, len(quantities))
	assert.Equal(t, StatusInProgress, task.Status)
}

func TestAppendProgress_Rejections(t *testing.T) {
	task := newTestTask(t, 10)

	for _, q := range []float64{0, -3} {
		_, err := AppendProgress(task, alice, entry("e", "A", q))
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	}

	_, err := AppendProgress(task, bruno, entry("e", "B", 1))
	assert.ErrorIs(t, err, ErrNotAuthorized)

	done, err := CompleteTask(task, admin, day)
	require.NoError(t, err)
	_, err = AppendProgress(done, admin, entry("e", "A", 1))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAppendProgress_DefaultsWorkerToActor(t *testing.T) {
	task := newTestTask(t, 10)
	task, err := AppendProgress(task, alice, ProgressEntry{ID: "e1", Quantity: 2, Date: day})
	require.NoError(t, err)
	assert.Equal(t, "A", task.Ledger[0].Worker)
}

func TestCompleteTask_Forced(t *testing.T) {
	task := newTestTask(t, 10)
	task, err := AppendProgress(task, alice, entry("e1", "A", 3))
	require.NoError(t, err)

	done, err := CompleteTask(task, alice, day)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.True(t, done.ForcedCompletion)
	assert.Equal(t, 3.0, done.CompletedQuantity)

	_, err = CompleteTask(task, bruno, day)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestRemoveProgress(t *testing.T) {
	task := newTestTask(t, 10)
	task, _ = AppendProgress(task, alice, entry("e1", "A", 4))
	task, _ = AppendProgress(task, alice, entry("e2", "A", 6))
	require.Equal(t, StatusCompleted, task.Status)

	_, err := RemoveProgress(task, alice, "e1")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = RemoveProgress(task, admin, "nope")
	assert.ErrorIs(t, err, ErrEntryNotFound)

	after, err := RemoveProgress(task, admin, "e1")
	require.NoError(t, err)
	assert.Equal(t, 6.0, after.CompletedQuantity)
	assert.Equal(t, StatusCompleted, after.Status)
	assert.True(t, after.ForcedCompletion)
	assert.Len(t, task.Ledger, 2, "input ledger must be untouched")
}

func TestRemoveProgress_LastEntry(t *testing.T) {
	task := newTestTask(t, 10)
	task, _ = AppendProgress(task, alice, entry("e1", "A", 10))
	require.True(t, task.Tracked)

	after, err := RemoveProgress(task, admin, "e1")
	require.NoError(t, err)
	assert.Empty(t, after.Ledger)
	assert.True(t, after.Tracked)
	assert.True(t, after.UsesLedger())
	assert.Equal(t, 0.0, after.WorkedQuantity())
	assert.Equal(t, StatusCompleted, after.Status)
	assert.True(t, after.ForcedCompletion)
}

func TestChangeTarget(t *testing.T) {
	task := newTestTask(t, 10)

	_, err := ChangeTarget(task, alice, 20)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = ChangeTarget(task, admin, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	changed, err := ChangeTarget(task, admin, 20)
	require.NoError(t, err)
	assert.Equal(t, 20.0, changed.TargetQuantity)

	worked, _ := AppendProgress(task, alice, entry("e1", "A", 1))
	_, err = ChangeTarget(worked, admin, 30)
	assert.ErrorIs(t, err, ErrTargetLocked)

	// a correction back to an empty ledger keeps the target locked
	worked.Status = StatusPending
	emptied, err := RemoveProgress(worked, admin, "e1")
	require.NoError(t, err)
	_, err = ChangeTarget(emptied, admin, 30)
	assert.ErrorIs(t, err, ErrTargetLocked)
}

func TestAttachPhoto(t *testing.T) {
	task := newTestTask(t, 10)
	task, _ = AppendProgress(task, alice, entry("e1", "A", 1))

	task, err := AttachPhoto(task, alice, "e1", "photos/t1/e1.jpg")
	require.NoError(t, err)
	assert.Equal(t, []string{"photos/t1/e1.jpg"}, task.Ledger[0].Photos)

	_, err = AttachPhoto(task, alice, "missing", "x.jpg")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestTask_Remaining(t *testing.T) {
	task := newTestTask(t, 10)
	task, _ = AppendProgress(task, alice, entry("e1", "A", 4))
	assert.Equal(t, 6.0, task.Remaining())
	assert.InDelta(t, 40.0, task.Percent(), 1e-9)

	raw, err := json.Marshal(task)
	require.NoError(t, err)
	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.InDelta(t, 40.0, fields["percent"], 1e-9)
	assert.Equal(t, true, fields["tracked"])
	assert.Equal(t, "in-progress", fields["status"])
}
