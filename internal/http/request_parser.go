// Package http serves the ledger as a JSON API.
//
// This file turns query strings and request bodies into service inputs.
// Every malformed value becomes a core.ValidationError naming its field.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"autofint/internal/core"
	"autofint/internal/services"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks bodies that are not the JSON object we expect.
var errBadRequest = errors.New("malformed request body")

// ParseFilter reads type, category, savings, year, month, q and limit.
// Absent parameters leave the corresponding predicate open.
func ParseFilter(query url.Values) (core.Filter, error) {
	var f core.Filter

	if v := strings.TrimSpace(query.Get("type")); v != "" {
		typ, err := core.ParseTxType(v)
		if err != nil {
			return core.Filter{}, &core.ValidationError{Field: "type", Err: err}
		}
		f.Type = typ
	}
	f.Category = sanitizeInput(query.Get("category"))
	f.Search = sanitizeInput(query.Get("q"))

	if v := strings.TrimSpace(query.Get("savings")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return core.Filter{}, &core.ValidationError{Field: "savings", Err: fmt.Errorf("%w: savings %q", core.ErrInvalidFilter, v)}
		}
		f.Savings = &b
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"year", &f.Year},
		{"month", &f.Month},
		{"limit", &f.Limit},
	}
	for _, p := range ints {
		v := strings.TrimSpace(query.Get(p.name))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return core.Filter{}, &core.ValidationError{Field: p.name, Err: fmt.Errorf("%w: %s %q", core.ErrInvalidFilter, p.name, v)}
		}
		*p.dst = n
	}

	if err := f.Validate(); err != nil {
		return core.Filter{}, err
	}
	return f, nil
}

// filterKey is a stable cache key for f.
func filterKey(f core.Filter) string {
	savings := "any"
	if f.Savings != nil {
		savings = strconv.FormatBool(*f.Savings)
	}
	// Category and search are free text, so they are quoted to keep keys unambiguous.
	return fmt.Sprintf("%s|%q|%s|%d|%d|%q", f.Type, f.Category, savings, f.Year, f.Month, strings.ToLower(f.Search))
}

// parseID reads the {id} path segment.
func parseID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &core.ValidationError{Field: "id", Err: fmt.Errorf("invalid id %q", raw)}
	}
	return id, nil
}

// parseDateParam reads an optional YYYY-MM-DD value.
func parseDateParam(field, raw string) (core.Date, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return core.Date{}, false, nil
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		return core.Date{}, false, &core.ValidationError{Field: field, Err: err}
	}
	return d, true, nil
}

// decodeJSON reads one JSON object from the body into v, rejecting unknown
// fields and bodies over maxBodyBytes.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("%w: trailing data", errBadRequest)
	}
	return nil
}

// transactionRequest is the body of POST and PUT /api/transactions.
type transactionRequest struct {
	Date        string          `json:"date"`
	Type        string          `json:"type"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      json.RawMessage `json:"amount"`
}

// input converts the request for the ledger. A missing date means today.
func (req transactionRequest) input(today core.Date) (services.TransactionInput, error) {
	date, ok, err := parseDateParam("date", req.Date)
	if err != nil {
		return services.TransactionInput{}, err
	}
	if !ok {
		date = today
	}
	return services.TransactionInput{
		Date:        date,
		Type:        sanitizeInput(req.Type),
		Category:    sanitizeInput(req.Category),
		Description: sanitizeInput(req.Description),
		Amount:      amountText(req.Amount),
	}, nil
}

// amountText accepts the amount as a JSON string ("15.50") or number (15.5)
// and returns its text for core.ParseMoney.
func amountText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

type categoryRequest struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	IsSavings bool   `json:"is_savings"`
}

type loginRequest struct {
	PIN string `json:"pin"`
}

type sessionUpdateRequest struct {
	SelectedType *string `json:"selected_type"`
	EditingID    *int64  `json:"editing_id"`
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
