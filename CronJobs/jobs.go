package CronJobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"Aerofield/Ledger"
)

// Reconciler is the part of the ledger service the job drives.
type Reconciler interface {
	ReconcileDebts(ctx context.Context) ([]Ledger.Debt, error)
}

// DebtReconciler periodically creates the debts that completed billable
// tasks are missing.
type DebtReconciler struct {
	cronScheduler  *cron.Cron
	service        Reconciler
	onCreated      func(Ledger.Debt)
	runImmediately bool
	jobID          cron.EntryID
}

// NewDebtReconciler creates a reconciler. onCreated, when set, is called for
// each debt a run creates.
func NewDebtReconciler(service Reconciler, runImmediately bool, onCreated func(Ledger.Debt)) *DebtReconciler {
	return &DebtReconciler{
		cronScheduler:  cron.New(cron.WithSeconds()),
		service:        service,
		onCreated:      onCreated,
		runImmediately: runImmediately,
	}
}

// Start schedules the job. Format: "0 0 1 * * *" = At 01:00:00 AM every day
func (r *DebtReconciler) Start(schedule string) error {
	var err error
	r.jobID, err = r.cronScheduler.AddFunc(schedule, func() {
		r.RunOnce(context.Background())
	})
	if err != nil {
		return fmt.Errorf("error scheduling cron job: %w", err)
	}

	r.cronScheduler.Start()
	log.WithField("schedule", schedule).Info("debt reconciliation scheduled")

	if r.runImmediately {
		r.RunOnce(context.Background())
	}
	return nil
}

// Stop terminates the scheduler and waits for a running job to finish.
func (r *DebtReconciler) Stop() {
	if r.cronScheduler != nil {
		<-r.cronScheduler.Stop().Done()
		log.Info("debt reconciliation stopped")
	}
}

// UpdateSchedule changes the schedule of a started reconciler.
func (r *DebtReconciler) UpdateSchedule(schedule string) error {
	id, err := r.cronScheduler.AddFunc(schedule, func() {
		r.RunOnce(context.Background())
	})
	if err != nil {
		return fmt.Errorf("error updating schedule: %w", err)
	}
	r.cronScheduler.Remove(r.jobID)
	r.jobID = id

	log.WithField("schedule", schedule).Info("debt reconciliation rescheduled")
	return nil
}

// RunOnce reconciles immediately. Errors are logged, never returned, so a
// failing database does not stop the schedule.
func (r *DebtReconciler) RunOnce(ctx context.Context) int {
	created, err := r.service.ReconcileDebts(ctx)
	if err != nil {
		log.WithError(err).Error("scheduled debt reconciliation failed")
		return 0
	}
	for _, d := range created {
		if r.onCreated != nil {
			r.onCreated(d)
		}
	}
	if len(created) > 0 {
		log.WithField("created", len(created)).Info("scheduled reconciliation created debts")
	}
	return len(created)
}
