package analytics

import (
	"encoding/json"

	"spendwise/internal/core"
)

// ChartKind identifies how a chart payload should be drawn.
type ChartKind string

const (
	ChartPie ChartKind = "pie"
	ChartBar ChartKind = "bar"
)

const CategoryChartTitle = "Expenses by Category"

// Chart is a self-contained, plotly-compatible figure description. Presentation
// treats the serialized form as an opaque blob.
type Chart struct {
	Kind   ChartKind `json:"kind"`
	Title  string    `json:"title"`
	Data   []Trace   `json:"data"`
	Layout Layout    `json:"layout"`
}

// Trace is one drawable series.
type Trace struct {
	Type     string    `json:"type"`
	Name     string    `json:"name,omitempty"`
	Labels   []string  `json:"labels,omitempty"`
	Values   []float64 `json:"values,omitempty"`
	X        []string  `json:"x,omitempty"`
	Y        []float64 `json:"y,omitempty"`
	Hole     float64   `json:"hole,omitempty"`
	TextInfo string    `json:"textinfo,omitempty"`
}

type Layout struct {
	Title       string `json:"title"`
	BarMode     string `json:"barmode,omitempty"`
	XAxisTitle  string `json:"xaxis_title,omitempty"`
	YAxisTitle  string `json:"yaxis_title,omitempty"`
	LegendTitle string `json:"legend_title,omitempty"`
}

// JSON serializes the chart. A nil chart serializes to nil so callers can
// hand the result straight to templates.
func (c *Chart) JSON() ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(c)
}

// CategoryChart builds the pie chart of amounts per category. It returns nil
// when there are no expenses.
func CategoryChart(expenses []core.Expense) *Chart {
	if len(expenses) == 0 {
		return nil
	}
	totals := CategoryTotals(expenses)

	pie := Trace{
		Type:     "pie",
		Labels:   make([]string, 0, totals.Len()),
		Values:   make([]float64, 0, totals.Len()),
		Hole:     0.4,
		TextInfo: "percent+label",
	}
	for _, name := range totals.Order {
		pie.Labels = append(pie.Labels, name)
		pie.Values = append(pie.Values, totals.Sums[name].InexactFloat64())
	}

	return &Chart{
		Kind:   ChartPie,
		Title:  CategoryChartTitle,
		Data:   []Trace{pie},
		Layout: Layout{Title: CategoryChartTitle},
	}
}
