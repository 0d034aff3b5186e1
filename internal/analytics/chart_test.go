package analytics

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/core"
)

func TestCategoryChart(t *testing.T) {
	assert.Nil(t, CategoryChart(nil))
	assert.Nil(t, CategoryChart([]core.Expense{}))

	c := CategoryChart([]core.Expense{
		exp("Food", "100", "2024-01-01"),
		exp("Transport", "50", "bad"),
		exp("Food", "50", "2024-01-01"),
	})
	require.NotNil(t, c)
	assert.Equal(t, ChartPie, c.Kind)
	assert.Equal(t, CategoryChartTitle, c.Title)
	require.Len(t, c.Data, 1)
	assert.Equal(t, []string{"Food", "Transport"}, c.Data[0].Labels)
	assert.Equal(t, []float64{150, 50}, c.Data[0].Values)
}

func TestChartJSON(t *testing.T) {
	var nilChart *Chart
	b, err := nilChart.JSON()
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = CategoryChart([]core.Expense{exp("Food", "1.5", "2024-01-01")}).JSON()
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, "pie", decoded["kind"])
	assert.Contains(t, decoded, "data")
	assert.Contains(t, decoded, "layout")
}

func TestParsePeriod(t *testing.T) {
	assert.Equal(t, PeriodWeek, ParsePeriod("week"))
	assert.Equal(t, PeriodYear, ParsePeriod(" YEAR "))
	assert.Equal(t, PeriodMonth, ParsePeriod("month"))
	assert.Equal(t, DefaultPeriod, ParsePeriod(""))
	assert.Equal(t, DefaultPeriod, ParsePeriod("decade"))
}

func TestTrendPoints_DailyBuckets(t *testing.T) {
	in := []core.Expense{
		exp("Food", "10", "2024-01-03"),
		exp("Transport", "5", "2024-01-01"),
		exp("Food", "2.5", "2024-01-03"),
		exp("Food", "1", "2024-01-01"),
		exp("Misc", "99", "01/02/2024"),
		{UserID: "u1", Category: "Bills", Amount: dec("7"), Date: core.DateOf(time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC))},
	}
	for _, p := range []Period{PeriodMonth, PeriodWeek, Period("fortnight")} {
		points := TrendPoints(in, p)
		require.Len(t, points, 4, "period %s", p)
		assert.Equal(t, TrendPoint{Bucket: "2024-01-01", Category: "Transport", Amount: points[0].Amount}, points[0])
		assert.True(t, points[0].Amount.Equal(dec("5")))
		assert.Equal(t, "2024-01-01", points[1].Bucket)
		assert.Equal(t, "Food", points[1].Category)
		assert.Equal(t, "2024-01-02", points[2].Bucket)
		assert.Equal(t, "Bills", points[2].Category)
		assert.Equal(t, "2024-01-03", points[3].Bucket)
		assert.True(t, points[3].Amount.Equal(dec("12.5")))
	}
}

func TestTrendPoints_MonthlyBuckets(t *testing.T) {
	points := TrendPoints([]core.Expense{
		exp("Food", "10", "2024-02-28"),
		exp("Food", "5", "2024-01-15"),
		exp("Food", "1", "2024-02-01"),
		exp("Health", "3", "2023-12-31"),
	}, PeriodYear)

	require.Len(t, points, 3)
	assert.Equal(t, "2023-12", points[0].Bucket)
	assert.Equal(t, "2024-01", points[1].Bucket)
	assert.Equal(t, "2024-02", points[2].Bucket)
	assert.True(t, points[2].Amount.Equal(dec("11")))
}

func TestTrendChart(t *testing.T) {
	assert.Nil(t, TrendChart(nil, PeriodMonth))
	assert.Nil(t, TrendChart([]core.Expense{exp("Food", "1", "garbage")}, PeriodMonth), "all rows dropped means no chart")

	c := TrendChart([]core.Expense{
		exp("Food", "10", "2024-01-02"),
		exp("Transport", "4", "2024-01-01"),
		exp("Food", "6", "2024-01-01"),
	}, PeriodMonth)
	require.NotNil(t, c)
	assert.Equal(t, ChartBar, c.Kind)
	assert.Equal(t, DailyTrendTitle, c.Title)
	assert.Equal(t, "stack", c.Layout.BarMode)
	require.Len(t, c.Data, 2)
	assert.Equal(t, "Transport", c.Data[0].Name)
	assert.Equal(t, []string{"2024-01-01"}, c.Data[0].X)
	assert.Equal(t, "Food", c.Data[1].Name)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, c.Data[1].X)
	assert.Equal(t, []float64{6, 10}, c.Data[1].Y)

	yearly := TrendChart([]core.Expense{exp("Food", "1", "2024-05-05")}, PeriodYear)
	require.NotNil(t, yearly)
	assert.Equal(t, MonthlyTrendTitle, yearly.Title)
	assert.Equal(t, []string{"2024-05"}, yearly.Data[0].X)
}
