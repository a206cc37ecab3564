package Controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"Aerofield/Ledger"
	"Aerofield/Reports"
)

// EarningsController serves worker rates and the earnings aggregation.
type EarningsController struct {
	Service *Ledger.Service
}

func NewEarningsController(service *Ledger.Service) *EarningsController {
	return &EarningsController{Service: service}
}

type rateRequest struct {
	ID          string     `json:"id"`
	WorkerID    string     `json:"worker_id" validate:"required"`
	RatePerUnit float64    `json:"rate_per_unit" validate:"gte=0"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

// earnings computes the window's earnings, trimmed to the caller's own row
// unless the caller is an admin.
func (c *EarningsController) earnings(ctx *fiber.Ctx) ([]Ledger.WorkerEarnings, Ledger.Window, error) {
	window, err := parseWindow(ctx)
	if err != nil {
		return nil, window, err
	}
	all, err := c.Service.ComputeEarnings(ctx.UserContext(), window)
	if err != nil {
		return nil, window, err
	}
	actor := currentActor(ctx)
	if actor.IsAdmin() {
		return all, window, nil
	}
	own := make([]Ledger.WorkerEarnings, 0, 1)
	for _, we := range all {
		if we.WorkerID == actor.ID {
			own = append(own, we)
		}
	}
	return own, window, nil
}

func (c *EarningsController) GetEarnings(ctx *fiber.Ctx) error {
	rows, _, err := c.earnings(ctx)
	if err != nil {
		return fail(ctx, err)
	}
	quantity, total := Ledger.CohortTotals(rows)
	return ctx.JSON(fiber.Map{
		"workers":        rows,
		"total_quantity": quantity,
		"total_earnings": total,
	})
}

func (c *EarningsController) ExportEarnings(ctx *fiber.Ctx) error {
	rows, _, err := c.earnings(ctx)
	if err != nil {
		return fail(ctx, err)
	}
	buf, err := Reports.EarningsWorkbook(rows)
	if err != nil {
		return fail(ctx, err)
	}
	return sendWorkbook(ctx, "earnings", buf.Bytes())
}

// Statement renders the printable earnings view.
func (c *EarningsController) Statement(ctx *fiber.Ctx) error {
	rows, window, err := c.earnings(ctx)
	if err != nil {
		return fail(ctx, err)
	}
	quantity, total := Ledger.CohortTotals(rows)
	return ctx.Render("statement", fiber.Map{
		"Workers":       rows,
		"From":          window.From,
		"To":            window.To,
		"TotalQuantity": quantity,
		"TotalEarnings": total,
		"Generated":     time.Now(),
	})
}

func (c *EarningsController) ListRates(ctx *fiber.Ctx) error {
	rates, err := c.Service.ListRates(ctx.UserContext())
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(rates)
}

func (c *EarningsController) SetRate(ctx *fiber.Ctx) error {
	var req rateRequest
	if err := bind(ctx, &req); err != nil {
		return fail(ctx, err)
	}
	r, err := c.Service.SetRate(ctx.UserContext(), currentActor(ctx), Ledger.WorkerRate{
		ID:          req.ID,
		WorkerID:    req.WorkerID,
		RatePerUnit: req.RatePerUnit,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	})
	if err != nil {
		return fail(ctx, err)
	}
	return ctx.JSON(r)
}
