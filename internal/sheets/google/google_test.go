package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spendwise/internal/core"
)

type call struct {
	method string
	path   string
	body   string
}

// fakeSheets answers the handful of Sheets REST calls the client makes.
type fakeSheets struct {
	mu     sync.Mutex
	column [][]any
	calls  []call
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, call{method: r.Method, path: r.URL.Path, body: string(body)})
	column := f.column
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/values/"):
		json.NewEncoder(w).Encode(map[string]any{"range": "Expenses!A1:A10", "majorDimension": "ROWS", "values": column})
	case r.Method == http.MethodGet:
		w.Write([]byte(`{"sheets":[{"properties":{"sheetId":0,"title":"Expenses"}},{"properties":{"sheetId":9,"title":"Other"}}]}`))
	default:
		w.Write([]byte(`{}`))
	}
}

func (f *fakeSheets) writes() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.method != http.MethodGet {
			out = append(out, c)
		}
	}
	return out
}

func newTestClient(t *testing.T, column [][]any) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{column: column}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	c := NewWithService(svc, "sid", "Expenses")
	c.now = func() time.Time { return time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC) }
	return c, fake
}

func expense(id string) core.Expense {
	return core.Expense{
		ID:          id,
		UserID:      "u1",
		Amount:      decimal.RequireFromString("12.5"),
		Category:    "Food",
		Date:        core.DateString("2024-01-02"),
		Description: "=lunch",
	}
}

func TestUpsert_EmptySheetWritesHeaderThenAppends(t *testing.T) {
	c, fake := newTestClient(t, nil)

	require.NoError(t, c.Upsert(context.Background(), expense("e1")))

	writes := fake.writes()
	require.Len(t, writes, 2)
	assert.Equal(t, http.MethodPut, writes[0].method)
	assert.Contains(t, writes[0].path, "Expenses!A1:G1")
	assert.Contains(t, writes[0].body, `"Mirrored At"`)

	assert.True(t, strings.HasSuffix(writes[1].path, ":append"), writes[1].path)
	var vr gsheet.ValueRange
	require.NoError(t, json.Unmarshal([]byte(writes[1].body), &vr))
	assert.Equal(t, [][]any{{"e1", "u1", "2024-01-02", "Food", 12.5, "=lunch", "2024-01-03T10:00:00Z"}}, vr.Values)
}

func TestUpsert_ExistingRowIsUpdatedInPlace(t *testing.T) {
	c, fake := newTestClient(t, [][]any{{"ID"}, {"other"}, {"e1"}})

	require.NoError(t, c.Upsert(context.Background(), expense("e1")))

	writes := fake.writes()
	require.Len(t, writes, 1)
	assert.Equal(t, http.MethodPut, writes[0].method)
	assert.Contains(t, writes[0].path, "Expenses!A3:G3")
}

func TestUpsert_RequiresID(t *testing.T) {
	c, fake := newTestClient(t, nil)
	assert.Error(t, c.Upsert(context.Background(), expense("")))
	assert.Empty(t, fake.writes())
}

func TestRemove(t *testing.T) {
	c, fake := newTestClient(t, [][]any{{"ID"}, {"e1"}, {"e2"}})

	require.NoError(t, c.Remove(context.Background(), "e2"))
	writes := fake.writes()
	require.Len(t, writes, 1)
	assert.True(t, strings.HasSuffix(writes[0].path, ":batchUpdate"), writes[0].path)
	assert.Contains(t, writes[0].body, `"sheetId":0`)
	assert.Contains(t, writes[0].body, `"startIndex":2`)
	assert.Contains(t, writes[0].body, `"endIndex":3`)
	assert.Contains(t, writes[0].body, `"dimension":"ROWS"`)
}

func TestRemove_MissingRowIsNoop(t *testing.T) {
	c, fake := newTestClient(t, [][]any{{"ID"}, {"e1"}})

	require.NoError(t, c.Remove(context.Background(), "ID"))
	require.NoError(t, c.Remove(context.Background(), "nope"))
	assert.Empty(t, fake.writes())
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(context.Background(), Config{SheetName: "Expenses", CredentialsJSON: "{}"})
	assert.ErrorContains(t, err, "missing spreadsheet ID")

	_, err = New(context.Background(), Config{SpreadsheetID: "sid"})
	assert.ErrorContains(t, err, "missing service account credentials")
}

func TestRowOf(t *testing.T) {
	ids := []string{"ID", "a", "", "b"}
	assert.Equal(t, 0, rowOf(ids, "ID"))
	assert.Equal(t, 2, rowOf(ids, "a"))
	assert.Equal(t, 4, rowOf(ids, "b"))
	assert.Equal(t, 0, rowOf(ids, "c"))
}
