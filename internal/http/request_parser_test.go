package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"autofint/internal/core"
)

func TestParseFilter(t *testing.T) {
	yes := true
	tests := []struct {
		name      string
		query     url.Values
		want      core.Filter
		wantField string
	}{
		{
			name:  "empty query is open",
			query: url.Values{},
			want:  core.Filter{},
		},
		{
			name: "all predicates",
			query: url.Values{
				"type":     {"expense"},
				"category": {" Makan "},
				"savings":  {"true"},
				"year":     {"2024"},
				"month":    {"6"},
				"q":        {"nasi"},
				"limit":    {"10"},
			},
			want: core.Filter{Type: core.Expense, Category: "Makan", Savings: &yes, Year: 2024, Month: 6, Search: "nasi", Limit: 10},
		},
		{
			name:  "legacy type label",
			query: url.Values{"type": {"Pemasukan"}},
			want:  core.Filter{Type: core.Income},
		},
		{name: "unknown type", query: url.Values{"type": {"transfer"}}, wantField: "type"},
		{name: "savings not a bool", query: url.Values{"savings": {"maybe"}}, wantField: "savings"},
		{name: "year not a number", query: url.Values{"year": {"twenty"}}, wantField: "year"},
		{name: "month out of range", query: url.Values{"month": {"13"}}, wantField: "month"},
		{name: "negative limit", query: url.Values{"limit": {"-1"}}, wantField: "limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFilter(tt.query)
			if tt.wantField != "" {
				var ve *core.ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				if ve.Field != tt.wantField {
					t.Errorf("Field = %q, want %q", ve.Field, tt.wantField)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if filterKey(got) != filterKey(tt.want) || got.Limit != tt.want.Limit {
				t.Errorf("ParseFilter() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFilterKey(t *testing.T) {
	a := core.Filter{Type: core.Expense, Year: 2024, Limit: 5}
	b := core.Filter{Type: core.Expense, Year: 2024}
	if filterKey(a) != filterKey(b) {
		t.Errorf("keys differ: %q vs %q", filterKey(a), filterKey(b))
	}

	no := false
	c := core.Filter{Type: core.Expense, Year: 2024, Savings: &no}
	if filterKey(b) == filterKey(c) {
		t.Error("savings=false must not share a key with savings=any")
	}

	d := core.Filter{Category: "A|any|0|0|b"}
	e := core.Filter{Category: "A", Search: "b|any|0|0|"}
	if filterKey(d) == filterKey(e) {
		t.Errorf("distinct filters share key %q", filterKey(d))
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid object", `{"pin":"1234"}`, false},
		{"unknown field", `{"pin":"1234","admin":true}`, true},
		{"trailing data", `{"pin":"1234"} {}`, true},
		{"not json", `pin=1234`, true},
		{"empty body", ``, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader(tt.body))
			var req loginRequest
			err := decodeJSON(httptest.NewRecorder(), r, &req)
			if tt.wantErr {
				if !errors.Is(err, errBadRequest) {
					t.Errorf("expected errBadRequest, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if req.PIN != "1234" {
				t.Errorf("PIN = %q", req.PIN)
			}
		})
	}
}

func TestTransactionRequestInput(t *testing.T) {
	today := core.NewDate(2024, 6, 15)

	tests := []struct {
		name       string
		body       string
		wantDate   string
		wantAmount string
		wantField  string
	}{
		{
			name:       "string amount with explicit date",
			body:       `{"date":"2024-05-01","type":"Expense","category":"Makan","amount":"15.50"}`,
			wantDate:   "2024-05-01",
			wantAmount: "15.50",
		},
		{
			name:       "numeric amount defaults to today",
			body:       `{"type":"Income","category":"Gaji","amount":5000000}`,
			wantDate:   "2024-06-15",
			wantAmount: "5000000",
		},
		{
			name:       "comma amount passes through",
			body:       `{"type":"Expense","category":"Makan","amount":"12,34"}`,
			wantDate:   "2024-06-15",
			wantAmount: "12,34",
		},
		{
			name:      "bad date",
			body:      `{"date":"15/06/2024","type":"Expense","category":"Makan","amount":"1"}`,
			wantField: "date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req transactionRequest
			if err := json.Unmarshal([]byte(tt.body), &req); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			in, err := req.input(today)
			if tt.wantField != "" {
				var ve *core.ValidationError
				if !errors.As(err, &ve) || ve.Field != tt.wantField {
					t.Fatalf("expected ValidationError on %q, got %v", tt.wantField, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if in.Date.String() != tt.wantDate {
				t.Errorf("Date = %s, want %s", in.Date, tt.wantDate)
			}
			if in.Amount != tt.wantAmount {
				t.Errorf("Amount = %q, want %q", in.Amount, tt.wantAmount)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/transactions/"+tt.raw, nil)
			r.SetPathValue("id", tt.raw)
			got, err := parseID(r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseID(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseID(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"normal text", "Hello World", "Hello World"},
		{"trims whitespace", "  hello  ", "hello"},
		{"removes null bytes", "hello\x00world", "helloworld"},
		{"removes bell", "hello\x07world", "helloworld"},
		{"keeps tabs", "hello\tworld", "hello\tworld"},
		{"keeps newlines", "hello\nworld", "hello\nworld"},
		{"unicode", "Nasi goreng ☕", "Nasi goreng ☕"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeInput(tt.input); got != tt.expected {
				t.Errorf("sanitizeInput(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
