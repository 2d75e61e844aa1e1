package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"charity-admin/internal/domain/aggregate"
)

// Sheet names of the exported workbook.
const (
	SheetOverview = "Tổng quan"
	SheetDaily    = "Doanh thu theo ngày"
	SheetTeams    = "Đội"
	SheetPayments = "Thanh toán"
)

const moneyFormat = "#,##0"

// WriteStatsWorkbook renders the report as an .xlsx workbook.
func WriteStatsWorkbook(w io.Writer, result *aggregate.StatsResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetOverview); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetDaily, SheetTeams, SheetPayments} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E2EFDA"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(moneyFormat)})
	if err != nil {
		return fmt.Errorf("failed to create money style: %w", err)
	}

	sheets := []struct {
		name      string
		header    []any
		rows      [][]any
		moneyCols []string
	}{
		{
			name:   SheetOverview,
			header: []any{"Chỉ số", "Giá trị"},
			rows: [][]any{
				{"Từ ngày", result.From},
				{"Đến ngày", result.To},
				{"Tổng đơn hàng", result.Overview.TotalOrders},
				{"Tổng doanh thu (VND)", result.Overview.TotalRevenue},
				{"Giá trị đơn trung bình (VND)", result.Overview.AverageOrderValue},
				{"Tỷ lệ thành công (%)", result.Overview.SuccessRate},
			},
		},
		{
			name:      SheetDaily,
			header:    []any{"Ngày", "Doanh thu (VND)", "Số đơn"},
			rows:      dailyRows(result.RevenueByDay),
			moneyCols: []string{"B"},
		},
		{
			name:      SheetTeams,
			header:    []any{"Đội", "Số đơn", "Doanh thu (VND)"},
			rows:      teamRows(result.TeamBreakdown),
			moneyCols: []string{"C"},
		},
		{
			name:      SheetPayments,
			header:    []any{"Phương thức", "Số đơn", "Doanh thu (VND)"},
			rows:      paymentRows(result.PaymentBreakdown),
			moneyCols: []string{"C"},
		},
	}

	for _, sh := range sheets {
		if err := writeTable(f, sh.name, sh.header, sh.rows); err != nil {
			return err
		}
		lastCol, _ := excelize.ColumnNumberToName(len(sh.header))
		if err := f.SetCellStyle(sh.name, "A1", lastCol+"1", header); err != nil {
			return fmt.Errorf("failed to style %s: %w", sh.name, err)
		}
		if err := f.SetColWidth(sh.name, "A", lastCol, 22); err != nil {
			return fmt.Errorf("failed to size %s: %w", sh.name, err)
		}
		for _, col := range sh.moneyCols {
			if len(sh.rows) == 0 {
				break
			}
			if err := f.SetCellStyle(sh.name, col+"2", fmt.Sprintf("%s%d", col, len(sh.rows)+1), money); err != nil {
				return fmt.Errorf("failed to style %s: %w", sh.name, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// FileName is the attachment name for a report range.
func FileName(result *aggregate.StatsResult) string {
	return fmt.Sprintf("thong-ke_%s_%s.xlsx", result.From, result.To)
}

func writeTable(f *excelize.File, sheet string, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func dailyRows(points []aggregate.RevenuePoint) [][]any {
	rows := make([][]any, 0, len(points))
	for _, p := range points {
		rows = append(rows, []any{p.Date, p.Revenue, p.Orders})
	}
	return rows
}

func teamRows(points []aggregate.TeamBreakdownPoint) [][]any {
	rows := make([][]any, 0, len(points))
	for _, p := range points {
		rows = append(rows, []any{p.Team, p.Orders, p.Revenue})
	}
	return rows
}

func paymentRows(points []aggregate.PaymentBreakdownPoint) [][]any {
	rows := make([][]any, 0, len(points))
	for _, p := range points {
		rows = append(rows, []any{p.Method, p.Orders, p.Revenue})
	}
	return rows
}

func strPtr(s string) *string { return &s }
