package Ledger

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// Actor is the identity performing an operation, as supplied by the auth layer.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// ProgressEntry is one recorded increment of work against a task.
type ProgressEntry struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"`
	Quantity  float64   `json:"quantity"`
	Worker    string    `json:"worker"`
	Equipment []string  `json:"equipment,omitempty"` // drone / vehicle identifiers, descriptive only
	Notes     string    `json:"notes"`
	Photos    []string  `json:"photos,omitempty"`
}

// Task is a unit of billable field work measured in hectares.
type Task struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Client            string          `json:"client"`
	Assignee          string          `json:"assignee"`
	Location          string          `json:"location"`
	TargetQuantity    float64         `json:"target_quantity"`
	CompletedQuantity float64         `json:"completed_quantity"`
	Status            Status          `json:"status"`
	ServiceValue      *float64        `json:"service_value,omitempty"`
	DueDate           time.Time       `json:"due_date"`
	CreatedAt         time.Time       `json:"created_at"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	ForcedCompletion  bool            `json:"forced_completion"`
	Tracked           bool            `json:"tracked"`
	Ledger            []ProgressEntry `json:"ledger"`
}

// Billable reports whether the task carries a service value.
func (t Task) Billable() bool { return t.ServiceValue != nil }

// Remaining is the quantity still to be worked, never negative.
func (t Task) Remaining() float64 {
	return math.Max(0, t.TargetQuantity-t.CompletedQuantity)
}

// Percent is the completion percentage, capped at 100.
func (t Task) Percent() float64 {
	if t.TargetQuantity <= 0 {
		return 0
	}
	return math.Min(100, t.CompletedQuantity/t.TargetQuantity*100)
}

// UsesLedger reports whether the task's work is measured by its entries
// rather than by its stored completed quantity. Once progress has been
// recorded the task stays tracked, even if corrections empty the ledger.
func (t Task) UsesLedger() bool { return t.Tracked || len(t.Ledger) > 0 }

// MarshalJSON adds the completion percentage to the task fields.
func (t Task) MarshalJSON() ([]byte, error) {
	type task Task
	return json.Marshal(struct {
		task
		Percent float64 `json:"percent"`
	}{task(t), t.Percent()})
}

// WorkedQuantity returns the ledger sum for tracked tasks and the stored
// completed quantity otherwise.
func (t Task) WorkedQuantity() float64 {
	if t.UsesLedger() {
		return LedgerSum(t.Ledger)
	}
	return t.CompletedQuantity
}

// CanBeMutatedBy reports whether the actor may change the task.
func (t Task) CanBeMutatedBy(a Actor) bool {
	if a.IsAdmin() {
		return true
	}
	if t.Assignee == "" {
		return false
	}
	return t.Assignee == a.ID || t.Assignee == a.Name
}

// LedgerSum adds up the quantities of the given entries.
func LedgerSum(entries []ProgressEntry) float64 {
	var sum float64
	for _, e := range entries {
		sum += e.Quantity
	}
	return sum
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}

func (t Task) clone() Task {
	c := t
	if t.ServiceValue != nil {
		v := *t.ServiceValue
		c.ServiceValue = &v
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	c.Ledger = make([]ProgressEntry, len(t.Ledger))
	for i, e := range t.Ledger {
		c.Ledger[i] = e.clone()
	}
	return c
}

func (e ProgressEntry) clone() ProgressEntry {
	c := e
	if e.Equipment != nil {
		c.Equipment = append([]string(nil), e.Equipment...)
	}
	if e.Photos != nil {
		c.Photos = append([]string(nil), e.Photos...)
	}
	return c
}

// NewTask validates the input and returns a pending task.
func NewTask(id string, in TaskInput, now time.Time) (Task, error) {
	if !positive(in.TargetQuantity) {
		return Task{}, fmt.Errorf("target %v: %w", in.TargetQuantity, ErrInvalidQuantity)
	}
	if in.ServiceValue != nil && !nonNegative(*in.ServiceValue) {
		return Task{}, fmt.Errorf("service value %v: %w", *in.ServiceValue, ErrInvalidAmount)
	}
	t := Task{
		ID:             id,
		Title:          in.Title,
		Client:         in.Client,
		Assignee:       in.Assignee,
		Location:       in.Location,
		TargetQuantity: in.TargetQuantity,
		Status:         StatusPending,
		DueDate:        in.DueDate,
		CreatedAt:      now,
		Ledger:         []ProgressEntry{},
	}
	if in.ServiceValue != nil {
		v := *in.ServiceValue
		t.ServiceValue = &v
	}
	return t, nil
}

// TaskInput carries the fields needed to create a task.
type TaskInput struct {
	Title          string
	Client         string
	Assignee       string
	Location       string
	TargetQuantity float64
	ServiceValue   *float64
	DueDate        time.Time
}

// StartTask moves a pending task to in-progress. Starting a task that is
// already in progress changes nothing.
func StartTask(t Task, actor Actor) (Task, error) {
	if !t.CanBeMutatedBy(actor) {
		return t, ErrNotAuthorized
	}
	switch t.Status {
	case StatusPending:
		next := t.clone()
		next.Status = StatusInProgress
		return next, nil
	case StatusInProgress:
		return t, nil
	default:
		return t, fmt.Errorf("start %s task: %w", t.Status, ErrInvalidTransition)
	}
}

// AppendProgress records an entry and re-derives the completed quantity from
// the ledger. Reaching the target completes the task in the same step.
func AppendProgress(t Task, actor Actor, entry ProgressEntry) (Task, error) {
	if !t.CanBeMutatedBy(actor) {
		return t, ErrNotAuthorized
	}
	if !positive(entry.Quantity) {
		return t, fmt.Errorf("progress %v: %w", entry.Quantity, ErrInvalidQuantity)
	}
	if t.Status == StatusCompleted {
		return t, fmt.Errorf("append to completed task: %w", ErrInvalidTransition)
	}
	if entry.Worker == "" {
		entry.Worker = actor.Name
	}

	next := t.clone()
	next.Ledger = append(next.Ledger, entry.clone())
	next.Tracked = true
	next.CompletedQuantity = LedgerSum(next.Ledger)
	next.Status = StatusInProgress
	if next.CompletedQuantity >= next.TargetQuantity {
		at := entry.Date
		next.Status = StatusCompleted
		next.CompletedAt = &at
	}
	return next, nil
}

// CompleteTask marks the task completed at any completion level. Completing
// below target is recorded as a forced completion.
func CompleteTask(t Task, actor Actor, at time.Time) (Task, error) {
	if !t.CanBeMutatedBy(actor) {
		return t, ErrNotAuthorized
	}
	if t.Status == StatusCompleted {
		return t, nil
	}
	next := t.clone()
	next.Status = StatusCompleted
	next.CompletedAt = &at
	next.ForcedCompletion = next.WorkedQuantity() < next.TargetQuantity
	return next, nil
}

// RemoveProgress deletes an entry as an administrative correction and
// reverses its effect on the completed quantity.
func RemoveProgress(t Task, actor Actor, entryID string) (Task, error) {
	if !actor.IsAdmin() {
		return t, ErrNotAuthorized
	}
	idx := -1
	for i, e := range t.Ledger {
		if e.ID == entryID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return t, fmt.Errorf("entry %s: %w", entryID, ErrEntryNotFound)
	}

	next := t.clone()
	next.Ledger = append(next.Ledger[:idx], next.Ledger[idx+1:]...)
	next.Tracked = true
	next.CompletedQuantity = LedgerSum(next.Ledger)
	if next.Status == StatusCompleted && next.CompletedQuantity < next.TargetQuantity {
		next.ForcedCompletion = true
	}
	return next, nil
}

// ChangeTarget edits the target quantity of a task no one has worked on yet.
func ChangeTarget(t Task, actor Actor, target float64) (Task, error) {
	if !actor.IsAdmin() {
		return t, ErrNotAuthorized
	}
	if !positive(target) {
		return t, fmt.Errorf("target %v: %w", target, ErrInvalidQuantity)
	}
	if t.Status != StatusPending || t.UsesLedger() || t.CompletedQuantity > 0 {
		return t, ErrTargetLocked
	}
	next := t.clone()
	next.TargetQuantity = target
	return next, nil
}

// AttachPhoto appends a stored photo reference to an entry.
func AttachPhoto(t Task, actor Actor, entryID, path string) (Task, error) {
	if !t.CanBeMutatedBy(actor) {
		return t, ErrNotAuthorized
	}
	next := t.clone()
	for i := range next.Ledger {
		if next.Ledger[i].ID == entryID {
			next.Ledger[i].Photos = append(next.Ledger[i].Photos, path)
			return next, nil
		}
	}
	return t, fmt.Errorf("entry %s: %w", entryID, ErrEntryNotFound)
}
