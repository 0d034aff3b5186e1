package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"spendwise/internal/analytics"
	"spendwise/internal/core"
)

const (
	SheetExpenses = "Expenses"
	SheetSummary  = "Summary"

	// numFmtTwoDecimals is the built-in "0.00" format.
	numFmtTwoDecimals = 2
)

// WriteXLSX writes a workbook with the expense rows and a summary of their
// statistics.
func WriteXLSX(w io.Writer, expenses []core.Expense) error {
	if len(expenses) == 0 {
		return ErrNoExpenses
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetExpenses); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4F6D7A"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: numFmtTwoDecimals})
	if err != nil {
		return fmt.Errorf("amount style: %w", err)
	}

	if err := writeExpenseSheet(f, Rows(expenses), headerStyle, amountStyle); err != nil {
		return err
	}
	if err := writeSummarySheet(f, analytics.ComputeStatistics(expenses), headerStyle, amountStyle); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeExpenseSheet(f *excelize.File, rows []Row, headerStyle, amountStyle int) error {
	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetExpenses, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetCellStyle(SheetExpenses, "A1", "D1", headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{r.Date, r.Category, r.Amount.InexactFloat64(), r.Description}
		if err := f.SetSheetRow(SheetExpenses, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	last := len(rows) + 1
	if err := f.SetCellStyle(SheetExpenses, "C2", fmt.Sprintf("C%d", last), amountStyle); err != nil {
		return fmt.Errorf("style amounts: %w", err)
	}

	widths := map[string]float64{"A": 12, "B": 16, "C": 12, "D": 40}
	for col, width := range widths {
		if err := f.SetColWidth(SheetExpenses, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

func writeSummarySheet(f *excelize.File, st analytics.Statistics, headerStyle, amountStyle int) error {
	set := func(cell string, v any) error {
		if err := f.SetCellValue(SheetSummary, cell, v); err != nil {
			return fmt.Errorf("summary %s: %w", cell, err)
		}
		return nil
	}

	summary := []struct {
		label string
		value any
	}{
		{"Total", st.Total.InexactFloat64()},
		{"Average Daily", st.AverageDaily.InexactFloat64()},
		{"Top Category", st.TopCategory},
		{"Largest Expense", st.LargestExpense.InexactFloat64()},
	}
	for i, s := range summary {
		row := i + 1
		if err := set(fmt.Sprintf("A%d", row), s.label); err != nil {
			return err
		}
		if err := set(fmt.Sprintf("B%d", row), s.value); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(SheetSummary, "A1", "A4", headerStyle); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetSummary, "B1", "B2", amountStyle); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetSummary, "B4", "B4", amountStyle); err != nil {
		return err
	}

	start := len(summary) + 2
	if err := set(fmt.Sprintf("A%d", start), "Category"); err != nil {
		return err
	}
	if err := set(fmt.Sprintf("B%d", start), "Amount"); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetSummary, fmt.Sprintf("A%d", start), fmt.Sprintf("B%d", start), headerStyle); err != nil {
		return err
	}
	for i, c := range st.Categories {
		row := start + 1 + i
		if err := set(fmt.Sprintf("A%d", row), c.Name); err != nil {
			return err
		}
		if err := set(fmt.Sprintf("B%d", row), c.Amount.InexactFloat64()); err != nil {
			return err
		}
	}
	if len(st.Categories) > 0 {
		end := start + len(st.Categories)
		if err := f.SetCellStyle(SheetSummary, fmt.Sprintf("B%d", start+1), fmt.Sprintf("B%d", end), amountStyle); err != nil {
			return err
		}
	}
	return f.SetColWidth(SheetSummary, "A", "B", 18)
}
