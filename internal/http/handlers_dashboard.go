package http

import (
	"bytes"
	"errors"
	"net/http"

	"spendwise/internal/analytics"
	"spendwise/internal/auth"
	"spendwise/internal/core"
	"spendwise/internal/export"
	"spendwise/internal/log"
	"spendwise/internal/report"
)

// reportPage is the content of the dashboard and reports pages.
type reportPage struct {
	report.Report
	Periods []analytics.Period
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rep, err := s.reports.Dashboard(ctx, currentSession(r).UserID)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Dashboard failed", log.FieldError, err.Error(), log.FieldOperation, log.OpReport)
		s.sessions.AddFlash(w, r, auth.FlashDanger, "Error loading dashboard")
		s.render(w, r, http.StatusInternalServerError, "dashboard.html", "Dashboard", reportPage{})
		return
	}
	s.render(w, r, http.StatusOK, "dashboard.html", "Dashboard", reportPage{Report: rep})
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	period := analytics.ParsePeriod(r.URL.Query().Get("period"))
	page := reportPage{Periods: []analytics.Period{analytics.PeriodWeek, analytics.PeriodMonth, analytics.PeriodYear}}

	rep, err := s.reports.Build(ctx, currentSession(r).UserID, period)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Report failed",
			log.FieldPeriod, string(period), log.FieldError, err.Error(), log.FieldOperation, log.OpReport)
		s.sessions.AddFlash(w, r, auth.FlashDanger, "Error generating reports")
		page.Period = period
		s.render(w, r, http.StatusInternalServerError, "reports.html", "Reports", page)
		return
	}
	page.Report = rep
	s.render(w, r, http.StatusOK, "reports.html", "Reports", page)
}

type exportFormat struct {
	contentType string
	filename    string
	write       func(*bytes.Buffer, []core.Expense) error
}

var exportFormats = map[string]exportFormat{
	"csv": {
		contentType: "text/csv; charset=utf-8",
		filename:    "expenses.csv",
		write:       func(b *bytes.Buffer, e []core.Expense) error { return export.WriteCSV(b, e) },
	},
	"xlsx": {
		contentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		filename:    "expenses.xlsx",
		write:       func(b *bytes.Buffer, e []core.Expense) error { return export.WriteXLSX(b, e) },
	},
}

// handleExport downloads all of the user's expenses. An empty list sends the
// user back to the reports page with a warning.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentExport)

	name := r.URL.Query().Get("format")
	if name == "" {
		name = "csv"
	}
	format, ok := exportFormats[name]
	if !ok {
		s.sessions.AddFlash(w, r, auth.FlashWarning, "Unsupported export format")
		http.Redirect(w, r, "/reports", http.StatusFound)
		return
	}

	items, err := s.expenses.List(ctx, currentSession(r).UserID)
	var buf bytes.Buffer
	if err == nil {
		err = format.write(&buf, items)
	}
	switch {
	case errors.Is(err, export.ErrNoExpenses):
		s.sessions.AddFlash(w, r, auth.FlashWarning, "No expenses to export")
		http.Redirect(w, r, "/reports", http.StatusFound)
		return
	case err != nil:
		logger.ErrorContext(ctx, "Export failed", log.FieldFormat, name, log.FieldError, err.Error(), log.FieldOperation, log.OpExport)
		s.sessions.AddFlash(w, r, auth.FlashDanger, "Error exporting expenses")
		http.Redirect(w, r, "/reports", http.StatusFound)
		return
	}

	logger.InfoContext(ctx, "Expenses exported", log.FieldFormat, name, log.FieldCount, len(items))
	w.Header().Set("Content-Type", format.contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+format.filename)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
