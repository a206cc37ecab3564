package Reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"Aerofield/Ledger"
)

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func TestEarningsWorkbook(t *testing.T) {
	earnings := []Ledger.WorkerEarnings{
		{
			WorkerName: "A", TotalQuantity: 100, RatePerUnit: 15, Earnings: 1500,
			Details: []Ledger.TaskDetail{
				{TaskTitle: "Soy", Client: "Farm Co", Quantity: 60, Date: day},
				{TaskTitle: "Soy", Client: "Farm Co", Quantity: 40, Date: day},
			},
		},
		{WorkerName: "B", Details: []Ledger.TaskDetail{}},
	}

	buf, err := EarningsWorkbook(earnings)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Details"}, f.GetSheetList())

	rows, err := f.GetRows("Summary")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Worker", rows[0][0])
	assert.Equal(t, []string{"A", "100", "15", "1500", "0", "0"}, rows[1])
	assert.Equal(t, "Total", rows[3][0])
	assert.Equal(t, "1500", rows[3][3])

	details, err := f.GetRows("Details")
	require.NoError(t, err)
	require.Len(t, details, 3)
	assert.Equal(t, []string{"A", "2025-03-10", "Soy", "Farm Co", "60", "900"}, details[1])
}

func TestDebtsWorkbook(t *testing.T) {
	debts := []Ledger.Debt{
		{ClientName: "Farm Co", Description: "Soy", CreatedAt: day, TotalAmount: 2500, PaidAmount: 3000, RemainingAmount: 0},
		{ClientName: "Ranch", Description: "Corn", CreatedAt: day, TotalAmount: 800, RemainingAmount: 800},
	}

	buf, err := DebtsWorkbook(debts, Ledger.SummarizeClients(debts))
	require.NoError(t, err)
	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Debts")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "settled", rows[1][6])
	assert.Equal(t, "open", rows[2][6])

	clients, err := f.GetRows("Clients")
	require.NoError(t, err)
	assert.Equal(t, "Farm Co", clients[1][0])
}

func TestCashWorkbook(t *testing.T) {
	entries := []Ledger.CashEntry{
		{Type: Ledger.EntryIncome, Amount: 3000, Category: Ledger.ClientRevenueCategory, Date: day},
		{Type: Ledger.EntryExpense, Amount: 200, Category: "fuel", Date: day},
	}
	buf, err := CashWorkbook(entries, Ledger.SummarizeCash(entries, Ledger.Window{}))
	require.NoError(t, err)
	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Cash")
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, "-200", rows[2][4])
	assert.Equal(t, "2800", rows[5][4])
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "1,500.00", FormatMoney(1500))
	assert.Equal(t, "0.50", FormatMoney(0.5))
	assert.Equal(t, "1,234.57 ha", FormatQuantity(1234.567))
}
