package Ledger

import "errors"

// Error kinds returned by the ledger. Callers match them with errors.Is.
var (
	ErrNotAuthorized     = errors.New("actor is neither the task assignee nor an administrator")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrTaskNotFound      = errors.New("task not found")
	ErrDebtNotFound      = errors.New("debt not found")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrDuplicateDebt     = errors.New("a debt already exists for this task")
	ErrInvalidTransition = errors.New("invalid task status transition")
	ErrTargetLocked      = errors.New("target quantity cannot change once work has begun")
	ErrEntryNotFound     = errors.New("progress entry not found")
	ErrNotBillable       = errors.New("task is not a completed billable task")
	ErrInvalidEntryType  = errors.New("cash entry type must be income or expense")
	ErrCashEntryNotFound = errors.New("cash entry not found")
)
