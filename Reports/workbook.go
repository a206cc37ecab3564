// Package Reports renders ledger data as xlsx workbooks.
package Reports

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"Aerofield/Ledger"
)

const dateLayout = "2006-01-02"

type sheet struct {
	name    string
	headers []string
	rows    [][]interface{}
	widths  []float64
}

func cell(col, row int) string {
	return fmt.Sprintf("%c%d", 'A'+col, row)
}

func build(sheets ...sheet) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	for _, s := range sheets {
		if _, err := f.NewSheet(s.name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", s.name, err)
		}

		for col, h := range s.headers {
			if err := f.SetCellValue(s.name, cell(col, 1), h); err != nil {
				return nil, err
			}
		}
		if err := f.SetRowStyle(s.name, 1, 1, headerStyle); err != nil {
			return nil, err
		}

		for r, values := range s.rows {
			for col, v := range values {
				if err := f.SetCellValue(s.name, cell(col, r+2), v); err != nil {
					return nil, err
				}
			}
		}

		for col := range s.headers {
			width := 15.0
			if col < len(s.widths) {
				width = s.widths[col]
			}
			name := string(rune('A' + col))
			if err := f.SetColWidth(s.name, name, name, width); err != nil {
				return nil, err
			}
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	f.SetActiveSheet(0)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return &buf, nil
}

// EarningsWorkbook has a per-worker summary sheet and one detail row per
// contribution.
func EarningsWorkbook(earnings []Ledger.WorkerEarnings) (*bytes.Buffer, error) {
	summary := sheet{
		name:    "Summary",
		headers: []string{"Worker", "Hectares", "Rate", "Earnings", "Pending Hectares", "Potential Earnings"},
		widths:  []float64{24, 12, 10, 14, 16, 18},
	}
	details := sheet{
		name:    "Details",
		headers: []string{"Worker", "Date", "Task", "Client", "Hectares", "Amount"},
		widths:  []float64{24, 12, 32, 24, 12, 14},
	}

	for _, we := range earnings {
		summary.rows = append(summary.rows, []interface{}{
			we.WorkerName, we.TotalQuantity, we.RatePerUnit, we.Earnings, we.PendingQuantity, we.PotentialEarnings,
		})
		for _, d := range we.Details {
			details.rows = append(details.rows, []interface{}{
				we.WorkerName, d.Date.Format(dateLayout), d.TaskTitle, d.Client, d.Quantity, d.Quantity * we.RatePerUnit,
			})
		}
	}

	quantity, total := Ledger.CohortTotals(earnings)
	summary.rows = append(summary.rows, []interface{}{"Total", quantity, "", total})

	return build(summary, details)
}

// DebtsWorkbook lists every debt and the per-client totals.
func DebtsWorkbook(debts []Ledger.Debt, clients []Ledger.ClientSummary) (*bytes.Buffer, error) {
	list := sheet{
		name:    "Debts",
		headers: []string{"Client", "Service", "Created", "Total", "Paid", "Remaining", "Status"},
		widths:  []float64{24, 32, 12, 14, 14, 14, 10},
	}
	for _, d := range debts {
		status := "open"
		if d.Settled() {
			status = "settled"
		}
		list.rows = append(list.rows, []interface{}{
			d.ClientName, d.Description, d.CreatedAt.Format(dateLayout), d.TotalAmount, d.PaidAmount, d.RemainingAmount, status,
		})
	}

	byClient := sheet{
		name:    "Clients",
		headers: []string{"Client", "Services", "Billed", "Paid", "Outstanding"},
		widths:  []float64{24, 10, 14, 14, 14},
	}
	for _, c := range clients {
		byClient.rows = append(byClient.rows, []interface{}{c.ClientName, c.Services, c.Billed, c.Paid, c.Outstanding})
	}

	return build(list, byClient)
}

// CashWorkbook lists cash entries with expenses as negative amounts.
func CashWorkbook(entries []Ledger.CashEntry, summary Ledger.CashSummary) (*bytes.Buffer, error) {
	list := sheet{
		name:    "Cash",
		headers: []string{"Date", "Type", "Category", "Description", "Amount"},
		widths:  []float64{12, 10, 20, 36, 14},
	}
	for _, e := range entries {
		amount := e.Amount
		if e.Type == Ledger.EntryExpense {
			amount = -amount
		}
		list.rows = append(list.rows, []interface{}{e.Date.Format(dateLayout), string(e.Type), e.Category, e.Description, amount})
	}
	list.rows = append(list.rows,
		[]interface{}{"", "", "", "Income", summary.Income},
		[]interface{}{"", "", "", "Expense", -summary.Expense},
		[]interface{}{"", "", "", "Balance", summary.Balance},
	)
	return build(list)
}
