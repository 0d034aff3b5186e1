// Package analytics turns a user's expenses into summary statistics, chart
// payloads and spending tips.
//
// Every function here is pure: it works on the slice it is given, allocates
// only local state and never returns an error. Empty input maps to a defined
// zero value (zero Statistics, nil chart, the start-tracking tip).
//
// Tie-breaks follow the order of the input slice. Callers that need a stable
// result across requests must pass expenses in a stable order (storage lists
// them by date descending, then by id).
package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

// NoCategory is reported as the top category when there is nothing to rank.
const NoCategory = "None"

// CategoryAmount is an amount aggregated by category name.
type CategoryAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Statistics summarizes an expense set for the dashboard and reports widgets.
type Statistics struct {
	Total          decimal.Decimal  `json:"total"`
	AverageDaily   decimal.Decimal  `json:"average_daily"`
	TopCategory    string           `json:"top_category"`
	LargestExpense decimal.Decimal  `json:"largest_expense"`
	Categories     []CategoryAmount `json:"categories"`
}

// EmptyStatistics is the zero-state returned for an empty expense set.
func EmptyStatistics() Statistics {
	return Statistics{
		Total:          decimal.Zero,
		AverageDaily:   decimal.Zero,
		TopCategory:    NoCategory,
		LargestExpense: decimal.Zero,
		Categories:     []CategoryAmount{},
	}
}

// Totals holds per-category sums keyed in first-appearance order.
type Totals struct {
	Order []string
	Sums  map[string]decimal.Decimal
	Total decimal.Decimal
}

// CategoryTotals sums amounts per category. Records with unparseable dates are
// included; only date-bucketed aggregates drop them.
func CategoryTotals(expenses []core.Expense) Totals {
	t := Totals{Sums: make(map[string]decimal.Decimal), Total: decimal.Zero}
	for _, e := range expenses {
		sum, seen := t.Sums[e.Category]
		if !seen {
			t.Order = append(t.Order, e.Category)
			sum = decimal.Zero
		}
		t.Sums[e.Category] = sum.Add(e.Amount)
		t.Total = t.Total.Add(e.Amount)
	}
	return t
}

// Len returns the number of distinct categories.
func (t Totals) Len() int {
	return len(t.Order)
}

// Share returns the category's percentage of the grand total (0-100).
// It is zero when the total is not positive.
func (t Totals) Share(category string) decimal.Decimal {
	sum, ok := t.Sums[category]
	if !ok || !t.Total.IsPositive() {
		return decimal.Zero
	}
	return sum.Div(t.Total).Mul(hundred)
}

// Sorted returns every category with its total, descending by amount.
// Ties keep first-appearance order.
func (t Totals) Sorted() []CategoryAmount {
	out := make([]CategoryAmount, 0, len(t.Order))
	for _, name := range t.Order {
		out = append(out, CategoryAmount{Name: name, Amount: t.Sums[name]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	return out
}

var hundred = decimal.NewFromInt(100)

// ComputeStatistics reduces expenses to totals, the daily average, the top
// category and the largest single expense.
func ComputeStatistics(expenses []core.Expense) Statistics {
	if len(expenses) == 0 {
		return EmptyStatistics()
	}

	totals := CategoryTotals(expenses)

	days := make(map[string]struct{})
	largest := expenses[0].Amount
	for _, e := range expenses {
		if d, ok := e.Date.Normalize(); ok {
			days[d.String()] = struct{}{}
		}
		if e.Amount.GreaterThan(largest) {
			largest = e.Amount
		}
	}
	numDays := int64(len(days))
	if numDays == 0 {
		numDays = 1
	}

	categories := totals.Sorted()

	return Statistics{
		Total:          totals.Total,
		AverageDaily:   totals.Total.Div(decimal.NewFromInt(numDays)),
		TopCategory:    categories[0].Name,
		LargestExpense: largest,
		Categories:     categories,
	}
}
