package analytics

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

// Period selects the time window a report is built for. It only changes the
// trend bucket granularity.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"

	DefaultPeriod = PeriodMonth
)

const (
	DailyTrendTitle   = "Daily Expenses"
	MonthlyTrendTitle = "Monthly Expenses"
)

// ParsePeriod maps a query value to a Period. Unknown values yield DefaultPeriod.
func ParsePeriod(s string) Period {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodWeek, PeriodMonth, PeriodYear:
		return p
	default:
		return DefaultPeriod
	}
}

// monthly reports whether the period buckets by month. Anything but year
// buckets by day.
func (p Period) monthly() bool {
	return p == PeriodYear
}

// TrendTitle returns the chart title for the period's bucket granularity.
func (p Period) TrendTitle() string {
	if p.monthly() {
		return MonthlyTrendTitle
	}
	return DailyTrendTitle
}

// BucketKey returns the trend bucket label of d for the period.
func (p Period) BucketKey(d core.Date) string {
	if p.monthly() {
		return d.MonthKey()
	}
	return d.String()
}

// TrendPoint is the summed amount of one category in one time bucket.
type TrendPoint struct {
	Bucket   string
	Category string
	Amount   decimal.Decimal
}

// TrendPoints groups amounts by (bucket, category). Expenses whose date does not
// normalize are skipped. Points are ordered by bucket ascending; within a bucket
// categories keep first-appearance order.
func TrendPoints(expenses []core.Expense, period Period) []TrendPoint {
	type key struct{ bucket, category string }
	index := make(map[key]int)
	var points []TrendPoint

	for _, e := range expenses {
		d, ok := e.Date.Normalize()
		if !ok {
			continue
		}
		k := key{bucket: period.BucketKey(d), category: e.Category}
		if i, seen := index[k]; seen {
			points[i].Amount = points[i].Amount.Add(e.Amount)
			continue
		}
		index[k] = len(points)
		points = append(points, TrendPoint{Bucket: k.bucket, Category: k.category, Amount: e.Amount})
	}

	// Bucket labels are zero-padded ISO strings, so lexical order is chronological.
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Bucket < points[j].Bucket
	})
	return points
}

// TrendChart builds the stacked bar chart of amounts per bucket and category.
// It returns nil when no expense has a usable date.
func TrendChart(expenses []core.Expense, period Period) *Chart {
	points := TrendPoints(expenses, period)
	if len(points) == 0 {
		return nil
	}

	var order []string
	traces := make(map[string]*Trace)
	for _, p := range points {
		tr, ok := traces[p.Category]
		if !ok {
			tr = &Trace{Type: "bar", Name: p.Category}
			traces[p.Category] = tr
			order = append(order, p.Category)
		}
		tr.X = append(tr.X, p.Bucket)
		tr.Y = append(tr.Y, p.Amount.InexactFloat64())
	}

	data := make([]Trace, 0, len(order))
	for _, c := range order {
		data = append(data, *traces[c])
	}

	title := period.TrendTitle()
	return &Chart{
		Kind:  ChartBar,
		Title: title,
		Data:  data,
		Layout: Layout{
			Title:       title,
			BarMode:     "stack",
			XAxisTitle:  "Date",
			YAxisTitle:  "Amount",
			LegendTitle: "Category",
		},
	}
}
