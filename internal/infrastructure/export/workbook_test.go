package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"charity-admin/internal/domain/aggregate"
)

func TestWriteStatsWorkbook(t *testing.T) {
	result := &aggregate.StatsResult{
		From:     "2024-03-01",
		To:       "2024-03-31",
		Overview: aggregate.StatsOverview{TotalOrders: 10, TotalRevenue: 500000, AverageOrderValue: 50000},
		RevenueByDay: []aggregate.RevenuePoint{
			{Date: "2024-03-01", Revenue: 300000},
			{Date: "2024-03-02", Revenue: 200000, Orders: 4},
		},
		TeamBreakdown:    []aggregate.TeamBreakdownPoint{{Team: "T1", Orders: 6, Revenue: 300000}},
		PaymentBreakdown: []aggregate.PaymentBreakdownPoint{},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteStatsWorkbook(&buf, result))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetOverview, SheetDaily, SheetTeams, SheetPayments}, f.GetSheetList())

	rows, err := f.GetRows(SheetDaily)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2024-03-01", rows[1][0])
	assert.Equal(t, "4", rows[2][2])

	teams, err := f.GetRows(SheetTeams)
	require.NoError(t, err)
	assert.Equal(t, "T1", teams[1][0])

	orders, err := f.GetCellValue(SheetOverview, "B4")
	require.NoError(t, err)
	assert.Equal(t, "10", orders)

	payments, err := f.GetRows(SheetPayments)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "thong-ke_2024-03-01_2024-03-31.xlsx", FileName(&aggregate.StatsResult{From: "2024-03-01", To: "2024-03-31"}))
}
