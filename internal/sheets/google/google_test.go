package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "expensetracker/internal/sheets"
)

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "sheet-id")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewFromEnv(context.Background())
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected missing credentials error, got: %v", err)
	}
}

func TestNewFromEnv_InvalidCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "sheet-id")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "not-json")

	_, err := NewFromEnv(context.Background())
	if err == nil || !strings.Contains(err.Error(), "parse service account credentials") {
		t.Fatalf("expected credentials parse error, got: %v", err)
	}
}

func TestClient_RecordAppendsRow(t *testing.T) {
	var (
		gotPath  string
		gotQuery string
		gotBody  gsheet.ValueRange
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"updates":{"updatedRange":"Journal!A2:I2","updatedRows":1}}`))
	}))
	defer srv.Close()

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	c := New(svc, "sheet-id", "")
	err = c.Record(context.Background(), ports.JournalEntry{
		Timestamp: time.Date(2024, 4, 2, 8, 0, 0, 0, time.UTC),
		Event:     "created",
		ExpenseID: "e-1",
		Date:      "2024-04-01",
		Title:     "Groceries",
		Category:  "Food",
		Amount:    "54.3",
		Tags:      []string{"home", "weekly"},
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	if !strings.Contains(gotPath, "/spreadsheets/sheet-id/values/Journal!A:I:append") {
		t.Errorf("unexpected path %q", gotPath)
	}
	if !strings.Contains(gotQuery, "valueInputOption=RAW") {
		t.Errorf("unexpected query %q", gotQuery)
	}
	if len(gotBody.Values) != 1 || len(gotBody.Values[0]) != 9 {
		t.Fatalf("unexpected values %v", gotBody.Values)
	}
	if gotBody.Values[0][4] != "Groceries" || gotBody.Values[0][8] != "home, weekly" {
		t.Errorf("unexpected row %v", gotBody.Values[0])
	}
}

func TestClient_RecordWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "x", sheetName: "Journal"}
	if err := c.Record(context.Background(), ports.JournalEntry{}); err == nil {
		t.Fatal("expected error without service")
	}
}
