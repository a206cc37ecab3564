package Controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"Aerofield/Ledger"
	"Aerofield/Notifications"
	"Aerofield/Reports"
)

// BillingController handles client debts, payments and the cash ledger.
type BillingController struct {
	Service  *Ledger.Service
	Notifier *Notifications.Dispatcher
}

func NewBillingController(service *Ledger.Service, notifier *Notifications.Dispatcher) *BillingController {
	return &BillingController{Service: service, Notifier: notifier}
}

type paymentRequest struct {
	Amount float64 `json:"amount" validate:"gt=0"`
}

type cashRequest struct {
	Type        string    `json:"type" validate:"required,oneof=income expense"`
	Amount      float64   `json:"amount" validate:"gt=0"`
	Category    string    `json:"category" validate:"required,max=120"`
	Description string    `json:"description" validate:"max=500"`
	Date        time.Time `json:"date"`
}

func (c *BillingController) ListDebts(ctx *fiber.Ctx) error {
	debts, err := c.Service.ListDebts(ctx.UserContext())
	if err != nil {
		return fail(ctx, err)
	}
	if ctx.Query("open") == "true" {
		open := debts[:0:0]
		for _, d := range debts {
			if !d.Settled() {
				open = append(open, d)
			}
		}
		debts = open
	}
	return ctx.JSON(debts)
}

// CreateDebt creates the debt of one completed billable task. Repeating the
// call returns the existing debt.
func (c *BillingController) CreateDebt(ctx *fiber.Ctx) error {
	d, err := c.Service.CreateDebtForTask(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(d)
}

func (c *BillingController) Reconcile(ctx *fiber.Ctx) error {
	created, err := c.Service.ReconcileDebts(ctx.UserContext())
	if err != nil {
		return fail(ctx, err)
	}
	for _, d := range created {
		c.Notifier.Notify(Notifications.DebtCreatedNotice(d))
	}
	if created == nil {
		created = []Ledger.Debt{}
	}
	return ctx.JSON(fiber.Map{"created": created})
}

func (c *BillingController) ApplyPayment(ctx *fiber.Ctx) error {
	var req paymentRequest
	if err := bind(ctx, &req); err != nil {
		return fail(ctx, err)
	}
	receipt, err := c.Service.ApplyPayment(ctx.UserContext(), ctx.Params("id"), req.Amount)
	if err != nil {
		return fail(ctx, err)
	}
	c.Notifier.Notify(Notifications.PaymentNotice(receipt))
	return ctx.Status(fiber.StatusCreated).JSON(receipt)
}

func (c *BillingController) ListPayments(ctx *fiber.Ctx) error {
	payments, err := c.Service.ListPayments(ctx.UserContext())
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(payments)
}

func (c *BillingController) ListClients(ctx *fiber.Ctx) error {
	clients, err := c.Service.ClientSummaries(ctx.UserContext())
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(clients)
}

// Stats is the dashboard overview: task counts by status and unpaid debts.
func (c *BillingController) Stats(ctx *fiber.Ctx) error {
	stats, err := c.Service.Stats(ctx.UserContext())
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(stats)
}

func (c *BillingController) ExportDebts(ctx *fiber.Ctx) error {
	debts, err := c.Service.ListDebts(ctx.UserContext())
	if err != nil {
		return fail(ctx, err)
	}
	buf, err := Reports.DebtsWorkbook(debts, Ledger.SummarizeClients(debts))
	if err != nil {
		return fail(ctx, err)
	}
	return sendWorkbook(ctx, "debts", buf.Bytes())
}

func (c *BillingController) ListCash(ctx *fiber.Ctx) error {
	window, err := parseWindow(ctx)
	if err != nil {
		return fail(ctx, err)
	}
	entries, err := c.Service.ListCashEntries(ctx.UserContext())
	if err != nil {
		return fail(ctx, err)
	}
	out := make([]Ledger.CashEntry, 0, len(entries))
	for _, e := range entries {
		if window.Contains(e.Date) {
			out = append(out, e)
		}
	}
	return ctx.JSON(out)
}

func (c *BillingController) RecordCash(ctx *fiber.Ctx) error {
	var req cashRequest
	if err := bind(ctx, &req); err != nil {
		return fail(ctx, err)
	}
	e, err := c.Service.RecordCashEntry(ctx.UserContext(), currentActor(ctx), Ledger.CashInput{
		Type:        Ledger.EntryType(req.Type),
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		Date:        req.Date,
	})
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(e)
}

func (c *BillingController) DeleteCash(ctx *fiber.Ctx) error {
	if err := c.Service.DeleteCashEntry(ctx.UserContext(), currentActor(ctx), ctx.Params("id")); err != nil {
		return fail(ctx, err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *BillingController) CashSummary(ctx *fiber.Ctx) error {
	window, err := parseWindow(ctx)
	if err != nil {
		return fail(ctx, err)
	}
	summary, err := c.Service.CashSummary(ctx.UserContext(), window)
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(summary)
}

func (c *BillingController) ExportCash(ctx *fiber.Ctx) error {
	window, err := parseWindow(ctx)
	if err != nil {
		return fail(ctx, err)
	}
	entries, err := c.Service.ListCashEntries(ctx.UserContext())
	if err != nil {
		return fail(ctx, err)
	}
	inWindow := make([]Ledger.CashEntry, 0, len(entries))
	for _, e := range entries {
		if window.Contains(e.Date) {
			inWindow = append(inWindow, e)
		}
	}
	buf, err := Reports.CashWorkbook(inWindow, Ledger.SummarizeCash(inWindow, window))
	if err != nil {
		return fail(ctx, err)
	}
	return sendWorkbook(ctx, "cash", buf.Bytes())
}
