package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"expensetracker/internal/core"
)

func newParser(t *testing.T, contentType, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return NewRequestBodyParser(httptest.NewRecorder(), req)
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name      string
		query     url.Values
		wantCat   string
		wantStart string
		wantEnd   string
		wantErr   bool
	}{
		{
			name:  "empty query",
			query: url.Values{},
		},
		{
			name:      "all values provided",
			query:     url.Values{"category": {" Food "}, "startDate": {"2024-01-01"}, "endDate": {"2024-01-31"}},
			wantCat:   "Food",
			wantStart: "2024-01-01",
			wantEnd:   "2024-01-31",
		},
		{
			name:      "rfc3339 start date",
			query:     url.Values{"startDate": {"2024-03-05T10:00:00Z"}},
			wantStart: "2024-03-05",
		},
		{
			name:    "invalid start date",
			query:   url.Values{"startDate": {"yesterday"}},
			wantErr: true,
		},
		{
			name:    "invalid end date",
			query:   url.Values{"endDate": {"2024-13-01"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFilter(tt.query)
			if tt.wantErr {
				if !core.IsValidation(err) {
					t.Fatalf("ParseFilter() error = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFilter() error = %v", err)
			}

			if f.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", f.Category, tt.wantCat)
			}
			checkDate(t, "StartDate", f.StartDate, tt.wantStart)
			checkDate(t, "EndDate", f.EndDate, tt.wantEnd)
		})
	}
}

func checkDate(t *testing.T, name string, got *time.Time, want string) {
	t.Helper()
	if want == "" {
		if got != nil {
			t.Errorf("%s = %v, want unset", name, got)
		}
		return
	}
	if got == nil {
		t.Fatalf("%s unset, want %s", name, want)
	}
	if s := got.Format(core.DateLayout); s != want {
		t.Errorf("%s = %s, want %s", name, s, want)
	}
}

func TestParsePage(t *testing.T) {
	tests := []struct {
		name      string
		query     url.Values
		wantPage  int
		wantLimit int
		wantErr   bool
	}{
		{"defaults", url.Values{}, 1, core.DefaultPageLimit, false},
		{"explicit", url.Values{"page": {"3"}, "limit": {"20"}}, 3, 20, false},
		{"limit clamped", url.Values{"limit": {"100000"}}, 1, core.MaxPageLimit, false},
		{"non numeric page", url.Values{"page": {"abc"}}, 0, 0, true},
		{"zero limit", url.Values{"limit": {"0"}}, 0, 0, true},
		{"negative page", url.Values{"page": {"-1"}}, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePage(tt.query)
			if tt.wantErr {
				if !core.IsValidation(err) {
					t.Fatalf("ParsePage() error = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePage() error = %v", err)
			}
			if p.Page != tt.wantPage || p.Limit != tt.wantLimit {
				t.Errorf("ParsePage() = %+v, want page=%d limit=%d", p, tt.wantPage, tt.wantLimit)
			}
		})
	}
}

func TestRequestBodyParser_JSON(t *testing.T) {
	parser := newParser(t, "application/json", `{"title": " Lunch ", "amount": 42.50, "tags": ["a", " b "], "description": null}`)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}
	if title := parser.Get("title"); title != "Lunch" {
		t.Errorf("Get('title') = %q, want 'Lunch'", title)
	}
	// numbers keep their literal text
	if amount := parser.Get("amount"); amount != "42.50" {
		t.Errorf("Get('amount') = %q, want '42.50'", amount)
	}
	if tags := parser.Strings("tags"); len(tags) != 2 || tags[1] != " b " {
		t.Errorf("Strings('tags') = %q", tags)
	}
	if !parser.Has("description") || !parser.IsNull("description") {
		t.Error("description should be present and null")
	}
	if parser.Has("category") {
		t.Error("category should be absent")
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	parser := newParser(t, "application/x-www-form-urlencoded", "title=form+test&amount=12%2C50&tags=a,b&tags=c")
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}
	if title := parser.Get("title"); title != "form test" {
		t.Errorf("Get('title') = %q, want 'form test'", title)
	}
	if amount := parser.Get("amount"); amount != "12,50" {
		t.Errorf("Get('amount') = %q, want '12,50'", amount)
	}
	if tags := parser.Strings("tags"); strings.Join(tags, "|") != "a|b|c" {
		t.Errorf("Strings('tags') = %q", tags)
	}
	if parser.IsNull("title") {
		t.Error("form values are never null")
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	parser := newParser(t, "", "")
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if val := parser.Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
	if parser.Has("title") {
		t.Error("empty body has no keys")
	}
}

func TestRequestBodyParser_Malformed(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"broken json", "application/json", `{"title": `},
		{"json array", "application/json", `[1, 2]`},
		{"json null", "application/json", `null`},
		{"bad form escape", "application/x-www-form-urlencoded", "title=%zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newParser(t, tt.contentType, tt.body).Parse()
			if !errors.Is(err, ErrMalformedBody) {
				t.Errorf("Parse() error = %v, want ErrMalformedBody", err)
			}
		})
	}
}

func TestRequestBodyParser_TooLarge(t *testing.T) {
	body := `{"title": "` + strings.Repeat("x", MaxBodyBytes) + `"}`
	err := newParser(t, "application/json", body).Parse()
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Errorf("Parse() error = %v, want ErrBodyTooLarge", err)
	}
}

func TestRequestBodyParser_ExpensePatch(t *testing.T) {
	parser := newParser(t, "application/json", `{"amount": "30", "description": null, "tags": null, "title": null}`)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	patch := parser.ExpensePatch()
	if !patch.Amount.Set || patch.Amount.Value != "30" {
		t.Errorf("Amount = %+v", patch.Amount)
	}
	if patch.Title.Set || patch.Category.Set || patch.Date.Set {
		t.Errorf("absent or null scalar fields must stay unset: %+v", patch)
	}
	if !patch.Description.Set || patch.Description.Value != "" {
		t.Errorf("null description should clear it: %+v", patch.Description)
	}
	if !patch.Tags.Set || patch.Tags.Value != nil {
		t.Errorf("null tags should be supplied without a value: %+v", patch.Tags)
	}
}

func TestRequestBodyParser_ExpenseInput(t *testing.T) {
	parser := newParser(t, "application/json", `{"title":"Taxi","amount":15,"category":"Transport","date":"2024-05-01","tags":"work, travel"}`)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	in := parser.ExpenseInput()
	if in.Title != "Taxi" || in.Amount != "15" || in.Category != "Transport" || in.Date != "2024-05-01" {
		t.Errorf("ExpenseInput() = %+v", in)
	}
	if len(in.Tags) != 2 {
		t.Errorf("Tags = %q", in.Tags)
	}
}
