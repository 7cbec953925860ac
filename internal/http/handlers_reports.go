package http

import (
	"errors"
	"net/http"

	"autofint/internal/core"
	"autofint/internal/export"
	applog "autofint/internal/log"
)

// summary reads the totals for f through the cache.
func (s *Server) summary(r *http.Request, f core.Filter) (core.Summary, error) {
	return s.summaries.Get(filterKey(f), func() (core.Summary, error) {
		return s.reports.Summarize(r.Context(), f)
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpSummary, err)
		return
	}
	sum, err := s.summary(r, f)
	if err != nil {
		writeError(w, r, applog.OpSummary, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryResponse(sum))
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpSummary, err)
		return
	}
	b, err := s.breakdowns.Get(filterKey(f), func() (core.Breakdown, error) {
		return s.reports.CategoryBreakdown(r.Context(), f)
	})
	if err != nil {
		writeError(w, r, applog.OpSummary, err)
		return
	}
	writeJSON(w, http.StatusOK, toBreakdownResponse(b))
}

// handleRunway spreads the net cash of the filter until ?target. A target
// that is not after today, or a balance that is not positive, is answered
// with 200 and an explanatory status rather than an error.
func (s *Server) handleRunway(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	target, ok, err := parseDateParam("target", query.Get("target"))
	if err != nil {
		writeError(w, r, applog.OpSummary, err)
		return
	}
	if !ok {
		writeError(w, r, applog.OpSummary, &core.ValidationError{Field: "target", Err: core.ErrInvalidDate})
		return
	}
	f, err := ParseFilter(query)
	if err != nil {
		writeError(w, r, applog.OpSummary, err)
		return
	}
	sum, err := s.summary(r, f)
	if err != nil {
		writeError(w, r, applog.OpSummary, err)
		return
	}

	rw, err := core.Simulate(sum.NetCash(), target, s.today())
	resp := runwayResponse{
		Status:  runwayOK,
		Today:   rw.Today.String(),
		Target:  rw.Target.String(),
		Days:    rw.Days,
		NetCash: toMoneyJSON(rw.NetCash),
	}
	switch {
	case errors.Is(err, core.ErrInvalidTarget):
		resp.Status, resp.Message = runwayInvalidTarget, err.Error()
	case errors.Is(err, core.ErrInsufficientFunds):
		resp.Status, resp.Message = runwayInsufficientFunds, err.Error()
	case err != nil:
		writeError(w, r, applog.OpSummary, err)
		return
	default:
		daily := toMoneyJSON(rw.DailyAllowance)
		resp.DailyAllowance = &daily
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleExportCSV streams the whole ledger, newest first.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	txs, err := s.ledger.Query(r.Context(), core.Filter{})
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	name := "autofint-" + s.now().Format("20060102") + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Cache-Control", "no-store")
	if err := export.WriteCSV(w, txs); err != nil {
		// Headers are gone; all that is left is the log.
		requestLog(r).LogError(r.Context(), "CSV export interrupted", err, applog.ComponentExport, applog.OpExport,
			applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, "", ""))
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Ledger exported", "rows", len(txs))
}
