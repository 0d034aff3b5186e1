// Package export renders a user's expenses as downloadable files.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

// ErrNoExpenses is returned when there is nothing to export.
var ErrNoExpenses = errors.New("no expenses to export")

// Header is the column order of every export format.
var Header = []string{"Date", "Category", "Amount", "Description"}

// Row is one exported expense.
type Row struct {
	Date        string
	Category    string
	Amount      decimal.Decimal
	Description string
}

// Rows converts expenses to export rows, keeping their order. Dates that do
// not normalize are written as stored.
func Rows(expenses []core.Expense) []Row {
	out := make([]Row, len(expenses))
	for i, e := range expenses {
		out[i] = Row{
			Date:        e.Date.String(),
			Category:    e.Category,
			Amount:      e.Amount,
			Description: e.Description,
		}
	}
	return out
}

func (r Row) record() []string {
	return []string{r.Date, r.Category, csvAmount(r.Amount), r.Description}
}

// csvAmount writes at least two decimals and never drops a digit, so the file
// reads back to the stored value.
func csvAmount(d decimal.Decimal) string {
	if d.Equal(d.Round(2)) {
		return core.FormatAmount(d)
	}
	return d.String()
}

// WriteCSV writes the header and one line per expense.
func WriteCSV(w io.Writer, expenses []core.Expense) error {
	if len(expenses) == 0 {
		return ErrNoExpenses
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range Rows(expenses) {
		if err := cw.Write(r.record()); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a file produced by WriteCSV.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	head, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoExpenses
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if strings.Join(head, ",") != strings.Join(Header, ",") {
		return nil, fmt.Errorf("unexpected header %q", head)
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		amount, err := decimal.NewFromString(rec[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: parse amount %q: %w", len(rows)+1, rec[2], err)
		}
		rows = append(rows, Row{Date: rec[0], Category: rec[1], Amount: amount, Description: rec[3]})
	}
	return rows, nil
}
