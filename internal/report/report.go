// Package report assembles the dashboard and reports pages from a user's
// expenses. Reports are recomputed on every call.
package report

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"spendwise/internal/analytics"
	"spendwise/internal/core"
	"spendwise/internal/log"
)

// RecentLimit is how many expenses the dashboard lists.
const RecentLimit = 5

type ExpenseLister interface {
	ListExpenses(ctx context.Context, userID string) ([]core.Expense, error)
}

// Report is everything the presentation layer needs for one page. Nil chart
// payloads mean there is nothing to chart.
type Report struct {
	Period        analytics.Period
	Statistics    analytics.Statistics
	CategoryChart []byte
	TrendChart    []byte
	Tips          []string
	Recent        []core.Expense
	Count         int
}

type Service struct {
	expenses ExpenseLister
	advisor  *analytics.Advisor
	logger   *log.Logger
}

func NewService(expenses ExpenseLister, advisor *analytics.Advisor, logger *log.Logger) *Service {
	if advisor == nil {
		advisor = analytics.NewAdvisor(nil)
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Service{expenses: expenses, advisor: advisor, logger: logger.WithComponent(log.ComponentReport)}
}

// Build computes statistics, both charts and tips for the reports page.
func (s *Service) Build(ctx context.Context, userID string, period analytics.Period) (Report, error) {
	items := s.load(ctx, userID)
	return s.compute(ctx, items, period, true)
}

// Dashboard computes the dashboard: no trend chart, plus the newest expenses.
func (s *Service) Dashboard(ctx context.Context, userID string) (Report, error) {
	items := s.load(ctx, userID)
	r, err := s.compute(ctx, items, analytics.DefaultPeriod, false)
	if err != nil {
		return Report{}, err
	}
	r.Recent = items
	if len(r.Recent) > RecentLimit {
		r.Recent = r.Recent[:RecentLimit]
	}
	return r, nil
}

// load returns the user's expenses. A storage failure is logged and treated
// as no expenses.
func (s *Service) load(ctx context.Context, userID string) []core.Expense {
	items, err := s.expenses.ListExpenses(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load expenses for report",
			log.FieldUserID, userID, log.FieldError, err.Error(), log.FieldOperation, log.OpReport)
		return nil
	}
	return items
}

func (s *Service) compute(ctx context.Context, items []core.Expense, period analytics.Period, withTrend bool) (Report, error) {
	r := Report{Period: period, Count: len(items)}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.Statistics = analytics.ComputeStatistics(items)
		return nil
	})
	g.Go(func() error {
		b, err := analytics.CategoryChart(items).JSON()
		if err != nil {
			return fmt.Errorf("category chart: %w", err)
		}
		r.CategoryChart = b
		return nil
	})
	if withTrend {
		g.Go(func() error {
			b, err := analytics.TrendChart(items, period).JSON()
			if err != nil {
				return fmt.Errorf("trend chart: %w", err)
			}
			r.TrendChart = b
			return nil
		})
	}
	g.Go(func() error {
		r.Tips = s.advisor.Tips(items)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	s.logger.DebugContext(ctx, "Report built",
		log.FieldPeriod, string(period), log.FieldCount, len(items))
	return r, nil
}
