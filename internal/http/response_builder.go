// This file builds JSON responses and maps service errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"autofint/internal/core"
	applog "autofint/internal/log"
	"autofint/internal/session"
)

// JSONResponseBuilder provides a fluent API for JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a builder with a 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value to encode. A nil body sends no content.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Cache-Control", "no-store")
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Body(v).Write(w)
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// writeError maps err to a status: validation 422, missing 404, bad body
// 400, wrong PIN 401, anything else 500 with the detail only in the log.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: ve.Err.Error(), Field: ve.Field})
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, errBadRequest):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, session.ErrWrongPIN):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	default:
		requestLog(r).LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, op,
			applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, ""))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// requestLog is the structured logger of the request, carrying its id.
func requestLog(r *http.Request) *applog.StructuredLogger {
	return applog.NewStructuredLogger(applog.FromContext(r.Context()))
}

type moneyJSON struct {
	Cents   int64  `json:"cents"`
	Amount  string `json:"amount"`
	Display string `json:"display"`
}

func toMoneyJSON(m core.Money) moneyJSON {
	return moneyJSON{Cents: m.Cents, Amount: m.String(), Display: m.Display()}
}

type transactionJSON struct {
	ID          int64     `json:"id"`
	Date        string    `json:"date"`
	Type        string    `json:"type"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Amount      moneyJSON `json:"amount"`
	IsSavings   bool      `json:"is_savings"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		Date:        t.Date.String(),
		Type:        t.Type.String(),
		Category:    t.Category,
		Description: t.Description,
		Amount:      toMoneyJSON(t.Amount),
		IsSavings:   t.IsSavings,
	}
}

type transactionResponse struct {
	Transaction transactionJSON `json:"transaction"`
	// Suggestion names a registered category close to an unknown one.
	Suggestion string `json:"suggestion,omitempty"`
}

type transactionListResponse struct {
	Transactions []transactionJSON `json:"transactions"`
	Count        int               `json:"count"`
}

type categoryJSON struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	IsSavings bool   `json:"is_savings"`
}

type summaryResponse struct {
	Income  moneyJSON `json:"income"`
	Expense moneyJSON `json:"expense"`
	Savings moneyJSON `json:"savings"`
	NetCash moneyJSON `json:"net_cash"`
}

func toSummaryResponse(s core.Summary) summaryResponse {
	return summaryResponse{
		Income:  toMoneyJSON(s.Income),
		Expense: toMoneyJSON(s.Expense),
		Savings: toMoneyJSON(s.Savings),
		NetCash: toMoneyJSON(s.NetCash()),
	}
}

type breakdownRow struct {
	Category string    `json:"category"`
	Amount   moneyJSON `json:"amount"`
	Percent  int64     `json:"percent"`
}

type breakdownResponse struct {
	Total  moneyJSON      `json:"total"`
	NoData bool           `json:"no_data"`
	Rows   []breakdownRow `json:"rows"`
}

func toBreakdownResponse(b core.Breakdown) breakdownResponse {
	resp := breakdownResponse{Total: toMoneyJSON(b.Total), NoData: b.NoData, Rows: []breakdownRow{}}
	for _, r := range b.Rows {
		resp.Rows = append(resp.Rows, breakdownRow{Category: r.Name, Amount: toMoneyJSON(r.Amount), Percent: r.Percent})
	}
	return resp
}

// Runway statuses.
const (
	runwayOK                = "ok"
	runwayInvalidTarget     = "invalid_target"
	runwayInsufficientFunds = "insufficient_funds"
)

type runwayResponse struct {
	Status         string     `json:"status"`
	Message        string     `json:"message,omitempty"`
	Today          string     `json:"today"`
	Target         string     `json:"target"`
	Days           int        `json:"days"`
	NetCash        moneyJSON  `json:"net_cash"`
	DailyAllowance *moneyJSON `json:"daily_allowance,omitempty"`
}

type sessionStateResponse struct {
	Gate         bool       `json:"gate"`
	Unlocked     bool       `json:"unlocked"`
	EditingID    int64      `json:"editing_id"`
	SelectedType string     `json:"selected_type"`
	Filter       filterJSON `json:"filter"`
}

type filterJSON struct {
	Type     string `json:"type,omitempty"`
	Category string `json:"category,omitempty"`
	Savings  *bool  `json:"savings,omitempty"`
	Year     int    `json:"year,omitempty"`
	Month    int    `json:"month,omitempty"`
	Search   string `json:"q,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

func toFilterJSON(f core.Filter) filterJSON {
	return filterJSON{
		Type:     f.Type.String(),
		Category: f.Category,
		Savings:  f.Savings,
		Year:     f.Year,
		Month:    f.Month,
		Search:   f.Search,
		Limit:    f.Limit,
	}
}
