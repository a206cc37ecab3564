// Package Notifications delivers best-effort notices about ledger events to
// chat channels and workers' devices. A failed delivery is logged and never
// affects the operation that triggered it.
package Notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"Aerofield/Ledger"
	"Aerofield/Reports"
)

type Kind string

const (
	TaskAssigned   Kind = "task_assigned"
	TaskCompleted  Kind = "task_completed"
	DebtCreated    Kind = "debt_created"
	PaymentApplied Kind = "payment_applied"
)

// Notice is one event to deliver. Recipient names the worker (id or name) for
// personal notices and is empty for team-wide ones.
type Notice struct {
	Kind      Kind
	Title     string
	Body      string
	Recipient string
	Data      map[string]string
}

type Sender interface {
	Send(ctx context.Context, n Notice) error
}

// Dispatcher fans notices out to every sender in the background.
type Dispatcher struct {
	senders []Sender
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(senders ...Sender) *Dispatcher {
	return &Dispatcher{senders: senders, timeout: 10 * time.Second}
}

// Notify queues n for delivery and returns immediately.
func (d *Dispatcher) Notify(n Notice) {
	if d == nil {
		return
	}
	for _, s := range d.senders {
		d.wg.Add(1)
		go func(s Sender) {
			defer d.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()
			if err := s.Send(ctx, n); err != nil {
				log.WithFields(log.Fields{"kind": n.Kind, "sender": fmt.Sprintf("%T", s)}).WithError(err).Warn("notice not delivered")
			}
		}(s)
	}
}

// Wait blocks until queued notices are delivered or dropped.
func (d *Dispatcher) Wait() {
	if d != nil {
		d.wg.Wait()
	}
}

func TaskAssignedNotice(t Ledger.Task) Notice {
	return Notice{
		Kind:      TaskAssigned,
		Title:     "New task assigned",
		Body:      fmt.Sprintf("%s for %s: %s", t.Title, t.Client, Reports.FormatQuantity(t.TargetQuantity)),
		Recipient: t.Assignee,
		Data:      map[string]string{"task_id": t.ID},
	}
}

func TaskCompletedNotice(t Ledger.Task) Notice {
	body := fmt.Sprintf("%s for %s: %s of %s", t.Title, t.Client,
		Reports.FormatQuantity(t.CompletedQuantity), Reports.FormatQuantity(t.TargetQuantity))
	if t.ForcedCompletion {
		body += " (closed below target)"
	}
	return Notice{
		Kind:      TaskCompleted,
		Title:     "Task completed",
		Body:      body,
		Recipient: t.Assignee,
		Data:      map[string]string{"task_id": t.ID},
	}
}

func DebtCreatedNotice(d Ledger.Debt) Notice {
	return Notice{
		Kind:  DebtCreated,
		Title: "New client debt",
		Body:  fmt.Sprintf("%s owes %s for %s", d.ClientName, Reports.FormatMoney(d.TotalAmount), d.Description),
		Data:  map[string]string{"debt_id": d.ID, "task_id": d.TaskID},
	}
}

func PaymentNotice(r Ledger.Receipt) Notice {
	body := fmt.Sprintf("%s paid %s, remaining %s", r.Debt.ClientName,
		Reports.FormatMoney(r.Payment.Amount), Reports.FormatMoney(r.Debt.RemainingAmount))
	if r.Debt.Settled() {
		body = fmt.Sprintf("%s paid %s, debt settled", r.Debt.ClientName, Reports.FormatMoney(r.Payment.Amount))
	}
	return Notice{
		Kind:  PaymentApplied,
		Title: "Payment received",
		Body:  body,
		Data:  map[string]string{"debt_id": r.Debt.ID, "payment_id": r.Payment.ID},
	}
}
