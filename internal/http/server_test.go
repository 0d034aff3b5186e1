package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"spendwise/internal/analytics"
	"spendwise/internal/auth"
	"spendwise/internal/core"
	"spendwise/internal/export"
	"spendwise/internal/log"
	"spendwise/internal/report"
	"spendwise/internal/services"
	"spendwise/internal/storage/memory"
)

type testApp struct {
	srv      *httptest.Server
	client   *http.Client
	store    *memory.Store
	expenses *services.ExpenseService
}

func newTestApp(t *testing.T, configure ...func(*Deps)) *testApp {
	t.Helper()
	logger := log.New(log.Config{Output: io.Discard})
	store := memory.New()
	expenses := services.NewExpenseService(store, nil, logger)

	deps := Deps{
		Expenses:       expenses,
		Reports:        report.NewService(store, analytics.NewSeededAdvisor(1), logger),
		Auth:           auth.NewService(store, expenses, logger),
		Sessions:       auth.NewSessionStore(time.Hour, false),
		Logger:         logger,
		LoginRateLimit: 100,
		DemoMode:       true,
	}
	for _, fn := range configure {
		fn(&deps)
	}

	server, err := NewServer(":0", deps)
	require.NoError(t, err)
	srv := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		srv.Close()
		_ = server.Shutdown(context.Background())
	})

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testApp{srv: srv, client: client, store: store, expenses: expenses}
}

func (a *testApp) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := a.client.Get(a.srv.URL + path)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (a *testApp) postForm(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := a.client.PostForm(a.srv.URL+path, form)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (a *testApp) postJSON(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := a.client.Post(a.srv.URL+path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &out))
	return resp, out
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

// signUp registers ada@example.com and leaves the client signed in.
func (a *testApp) signUp(t *testing.T) string {
	t.Helper()
	resp, body := a.postJSON(t, "/login", map[string]any{
		"email": "ada@example.com", "password": "secret1", "isRegistration": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	return core.EmailUserID("ada@example.com")
}

func (a *testApp) addExpense(t *testing.T, userID, category, amount, date string) core.Expense {
	t.Helper()
	d, err := core.ParseAmount(amount)
	require.NoError(t, err)
	e, err := a.expenses.Create(context.Background(), core.Expense{
		UserID: userID, Amount: d, Category: category, Date: core.DateString(date), Description: category + " thing",
	})
	require.NoError(t, err)
	return e
}

func TestHealthAndReadiness(t *testing.T) {
	healthy := newTestApp(t)
	resp, body := healthy.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)

	resp, _ = healthy.get(t, "/readyz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	down := newTestApp(t, func(d *Deps) {
		d.Ready = func(context.Context) error { return errors.New("database locked") }
	})
	resp, _ = down.get(t, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSecurityHeadersAndStaticAssets(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "https://cdn.plot.ly")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Contains(t, body, `id="auth-form"`)
	assert.Contains(t, body, `href="/demo-login"`)
	assert.NotContains(t, body, `href="/google-login"`)

	resp, body = app.get(t, "/static/js/app.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Cache-Control"), "max-age=86400")
	assert.Contains(t, body, "data-chart")
}

func TestProtectedPagesRedirectToLanding(t *testing.T) {
	app := newTestApp(t)
	for _, path := range []string{"/dashboard", "/add-expense", "/reports", "/export-expenses", "/logout", "/edit-expense/x"} {
		resp, _ := app.get(t, path)
		assert.Equal(t, http.StatusFound, resp.StatusCode, path)
		assert.Equal(t, "/", resp.Header.Get("Location"), path)
	}

	_, body := app.get(t, "/")
	assert.Contains(t, body, "Please log in to access this page.")
}

func TestLogin(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
		wantError  string
	}{
		{name: "missing password", body: map[string]any{"email": "ada@example.com"}, wantStatus: http.StatusBadRequest, wantError: "Missing authentication data"},
		{name: "invalid email", body: map[string]any{"email": "not-an-email", "password": "x"}, wantStatus: http.StatusBadRequest, wantError: "Please enter a valid email address"},
		{name: "short registration password", body: map[string]any{"email": "ada@example.com", "password": "12345", "isRegistration": true}, wantStatus: http.StatusBadRequest, wantError: "Password must be at least 6 characters"},
		{name: "multi-byte password over bcrypt limit", body: map[string]any{"email": "ada@example.com", "password": strings.Repeat("€", 30), "isRegistration": true}, wantStatus: http.StatusBadRequest, wantError: "Password must be at most 72 bytes"},
		{name: "unknown user", body: map[string]any{"email": "nobody@example.com", "password": "secret1"}, wantStatus: http.StatusUnauthorized, wantError: "Invalid email or password"},
		{name: "register", body: map[string]any{"email": "Ada@Example.com", "password": "secret1", "isRegistration": true}, wantStatus: http.StatusOK},
		{name: "register twice", body: map[string]any{"email": "ada@example.com", "password": "secret1", "isRegistration": true}, wantStatus: http.StatusBadRequest, wantError: "User already exists"},
		{name: "wrong password", body: map[string]any{"email": "ada@example.com", "password": "wrong-pw"}, wantStatus: http.StatusUnauthorized, wantError: "Invalid email or password"},
		{name: "login", body: map[string]any{"email": "ada@example.com", "password": "secret1"}, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := app.postJSON(t, "/login", tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantError != "" {
				assert.Equal(t, false, body["success"])
				assert.Equal(t, tt.wantError, body["error"])
				return
			}
			assert.Equal(t, true, body["success"])
			assert.Equal(t, "/dashboard", body["redirect"])
		})
	}

	resp, body := app.get(t, "/")
	assert.Equal(t, http.StatusFound, resp.StatusCode, body)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	resp, body = app.get(t, "/dashboard")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	assert.Contains(t, body, "ada")
}

func TestLoginRateLimit(t *testing.T) {
	app := newTestApp(t, func(d *Deps) { d.LoginRateLimit = 2 })

	for i := 0; i < 2; i++ {
		resp, _ := app.postJSON(t, "/login", map[string]any{"email": "x@example.com", "password": "secret1"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	resp, body := app.postJSON(t, "/login", map[string]any{"email": "x@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestResetPassword(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.postJSON(t, "/reset-password", map[string]any{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	resp, body = app.postJSON(t, "/reset-password", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Email is required", body["error"])
}

func TestDemoLoginAndLogout(t *testing.T) {
	app := newTestApp(t)

	resp, _ := app.get(t, "/demo-login")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	resp, body := app.get(t, "/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Logged in as demo user for development purposes.")
	assert.Contains(t, body, "Grocery shopping")
	assert.Contains(t, body, "$80.98")
	assert.Contains(t, body, "Demo User (demo)")
	assert.Contains(t, body, `data-chart="{`)

	resp, _ = app.get(t, "/logout")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	_, body = app.get(t, "/")
	assert.Contains(t, body, "You have been logged out.")

	resp, _ = app.get(t, "/dashboard")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestDemoLoginDisabled(t *testing.T) {
	app := newTestApp(t, func(d *Deps) { d.DemoMode = false })
	resp, _ := app.get(t, "/demo-login")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, body := app.get(t, "/")
	assert.NotContains(t, body, `href="/demo-login"`)
}

func TestAddExpense(t *testing.T) {
	app := newTestApp(t)
	userID := app.signUp(t)

	resp, body := app.get(t, "/add-expense")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `value="`+time.Now().Format(core.DateLayout)+`"`)
	assert.Contains(t, body, `<option value="Entertainment">`)

	resp, body = app.postForm(t, "/add-expense", url.Values{
		"amount": {"abc"}, "category": {""}, "date": {"2024-02-30"}, "description": {"x"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Enter a valid amount")
	assert.Contains(t, body, "Choose a category.")
	assert.Contains(t, body, "Enter a date as YYYY-MM-DD.")

	resp, _ = app.postForm(t, "/add-expense", url.Values{
		"amount": {"12,50"}, "category": {"Food"}, "date": {"2024-03-01"}, "description": {"Lunch"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	items, err := app.store.ListExpenses(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "12.5", items[0].Amount.String())
	assert.Equal(t, "2024-03-01", items[0].Date.String())

	_, body = app.get(t, "/dashboard")
	assert.Contains(t, body, "Expense added successfully!")
	assert.Contains(t, body, "Lunch")
	assert.Contains(t, body, "$12.50")
}

func TestEditExpense(t *testing.T) {
	app := newTestApp(t)
	userID := app.signUp(t)
	e := app.addExpense(t, userID, "Food", "10", "2024-03-01")
	foreign := app.addExpense(t, "someone-else", "Bills", "99", "2024-03-01")

	resp, body := app.get(t, "/edit-expense/"+e.ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `value="10.00"`)
	assert.Contains(t, body, `<option value="Food" selected>`)

	resp, _ = app.postForm(t, "/edit-expense/"+e.ID, url.Values{
		"amount": {"1234.5"}, "category": {"Bills"}, "date": {"2024-03-02"}, "description": {"Rent"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	got, err := app.store.GetExpense(context.Background(), userID, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bills", got.Category)
	assert.Equal(t, "2024-03-02", got.Date.String())

	_, body = app.get(t, "/dashboard")
	assert.Contains(t, body, "Expense updated successfully!")
	assert.Contains(t, body, "$1,234.50")

	resp, _ = app.get(t, "/edit-expense/"+foreign.ID)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	_, body = app.get(t, "/dashboard")
	assert.Contains(t, body, "You do not have permission to edit this expense")

	resp, _ = app.postForm(t, "/edit-expense/missing", url.Values{"amount": {"1"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	_, body = app.get(t, "/dashboard")
	assert.Contains(t, body, "Expense not found")
}

func TestDeleteExpense(t *testing.T) {
	app := newTestApp(t)
	userID := app.signUp(t)
	e := app.addExpense(t, userID, "Food", "10", "2024-03-01")
	foreign := app.addExpense(t, "someone-else", "Bills", "99", "2024-03-01")

	resp, body := app.postJSON(t, "/delete-expense/"+foreign.ID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Permission denied", body["error"])

	resp, body = app.postJSON(t, "/delete-expense/"+e.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	resp, body = app.postJSON(t, "/delete-expense/"+e.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Expense not found", body["error"])
}

func TestReports(t *testing.T) {
	app := newTestApp(t)
	userID := app.signUp(t)

	resp, body := app.get(t, "/reports")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "No expenses to chart yet.")
	assert.Contains(t, body, analytics.StartTrackingTip)

	app.addExpense(t, userID, "Food", "10", "2024-01-05")
	app.addExpense(t, userID, "Transport", "30", "2024-02-05")

	resp, body = app.get(t, "/reports?period=year")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `<option value="year" selected>`)
	assert.Contains(t, body, "$40.00")
	assert.Contains(t, body, "Monthly Expenses")
	assert.Contains(t, body, "2024-02")

	_, body = app.get(t, "/reports?period=bogus")
	assert.Contains(t, body, `<option value="month" selected>`)
	assert.Contains(t, body, "Daily Expenses")
}

func TestExport(t *testing.T) {
	app := newTestApp(t)
	userID := app.signUp(t)

	resp, _ := app.get(t, "/export-expenses")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/reports", resp.Header.Get("Location"))
	_, body := app.get(t, "/reports")
	assert.Contains(t, body, "No expenses to export")

	app.addExpense(t, userID, "Food", "25.5", "2024-03-02")

	resp, body = app.get(t, "/export-expenses?format=csv")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "attachment; filename=expenses.csv", resp.Header.Get("Content-Disposition"))
	rows, err := export.ReadCSV(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Food", rows[0].Category)

	resp, body = app.get(t, "/export-expenses?format=xlsx")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "attachment; filename=expenses.xlsx", resp.Header.Get("Content-Disposition"))
	f, err := excelize.OpenReader(strings.NewReader(body))
	require.NoError(t, err)
	defer f.Close()
	cell, err := f.GetCellValue(export.SheetExpenses, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Food", cell)

	resp, _ = app.get(t, "/export-expenses?format=pdf")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	_, body = app.get(t, "/reports")
	assert.Contains(t, body, "Unsupported export format")
}

type fakeGoogle struct {
	user auth.GoogleUser
	err  error
}

func (f fakeGoogle) AuthURL(state string) string {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
}

func (f fakeGoogle) Exchange(context.Context, string) (auth.GoogleUser, error) {
	return f.user, f.err
}

func TestGoogleLogin(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		app := newTestApp(t)
		resp, _ := app.get(t, "/google-login")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp, _ = app.get(t, "/google-login/callback?state=x&code=y")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("round trip", func(t *testing.T) {
		app := newTestApp(t, func(d *Deps) {
			d.Google = fakeGoogle{user: auth.GoogleUser{Sub: "g-1", Email: "grace@example.com", EmailVerified: true, GivenName: "Grace"}}
		})
		_, body := app.get(t, "/")
		assert.Contains(t, body, `href="/google-login"`)

		resp, _ := app.get(t, "/google-login")
		require.Equal(t, http.StatusFound, resp.StatusCode)
		loc, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)
		state := loc.Query().Get("state")
		require.NotEmpty(t, state)

		resp, _ = app.get(t, "/google-login/callback?state="+state+"&code=abc")
		require.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

		_, body = app.get(t, "/dashboard")
		assert.Contains(t, body, "Grace")

		// state tokens are single use
		resp, _ = app.get(t, "/google-login/callback?state="+state+"&code=abc")
		assert.Equal(t, "/", resp.Header.Get("Location"))
	})

	t.Run("unverified email", func(t *testing.T) {
		app := newTestApp(t, func(d *Deps) {
			d.Google = fakeGoogle{user: auth.GoogleUser{Sub: "g-2", Email: "x@example.com"}}
		})
		resp, _ := app.get(t, "/google-login")
		loc, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)

		resp, _ = app.get(t, "/google-login/callback?state="+loc.Query().Get("state")+"&code=abc")
		assert.Equal(t, "/", resp.Header.Get("Location"))
		_, body := app.get(t, "/")
		assert.Contains(t, body, "not verified by Google")
	})
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"0", "$0.00"},
		{"9.99", "$9.99"},
		{"1234.5", "$1,234.50"},
		{"1000000", "$1,000,000.00"},
	}
	for _, tt := range tests {
		d, err := core.ParseAmount(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, formatMoney(d), tt.in)
	}
}
