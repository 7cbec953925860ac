package http

import (
	"net/http"
	"strconv"

	"autofint/internal/core"
	applog "autofint/internal/log"
	"autofint/internal/session"
)

func (s *Server) handleQueryTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	txs, err := s.ledger.Query(r.Context(), f)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}

	// The last query is the session's active filter.
	s.sessions.Update(sessionToken(r), func(st *session.AppState) { st.Filter = f })

	resp := transactionListResponse{Transactions: make([]transactionJSON, 0, len(txs)), Count: len(txs)}
	for _, t := range txs {
		resp.Transactions = append(resp.Transactions, toTransactionJSON(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	t, err := s.ledger.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionResponse{Transaction: toTransactionJSON(t)})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	in, err := req.input(s.today())
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}

	t, err := s.ledger.Add(r.Context(), in)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	s.invalidateReports()
	requestLog(r).LogTransactionRecorded(r.Context(), applog.OpCreate, t.ID, t.Type.String(), t.Category, t.Amount.Cents, t.IsSavings)

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+strconv.FormatInt(t.ID, 10)).
		Body(transactionResponse{Transaction: toTransactionJSON(t), Suggestion: s.suggestFor(r, t.Category)}).
		Write(w)
}

// handleUpdateTransaction edits type, category, description and amount.
// The stored date never changes; a date in the body is ignored.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	req.Date = ""
	in, err := req.input(s.today())
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}

	t, err := s.ledger.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	s.invalidateReports()
	s.sessions.Update(sessionToken(r), func(st *session.AppState) {
		if st.EditingID == id {
			st.EditingID = 0
		}
	})
	requestLog(r).LogTransactionRecorded(r.Context(), applog.OpUpdate, t.ID, t.Type.String(), t.Category, t.Amount.Cents, t.IsSavings)

	writeJSON(w, http.StatusOK, transactionResponse{Transaction: toTransactionJSON(t), Suggestion: s.suggestFor(r, t.Category)})
}

// handleDeleteTransaction answers 204 whether or not the id existed.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	if err := s.ledger.Delete(r.Context(), id); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	s.invalidateReports()
	s.sessions.Update(sessionToken(r), func(st *session.AppState) {
		if st.EditingID == id {
			st.EditingID = 0
		}
	})
	w.WriteHeader(http.StatusNoContent)
}

// suggestFor returns a close registered category when name is not one.
func (s *Server) suggestFor(r *http.Request, name string) string {
	cats, err := s.categories.Categories(r.Context())
	if err != nil {
		return ""
	}
	for _, c := range cats {
		if c.Name == name {
			return ""
		}
	}
	hint, ok, err := s.categories.Suggest(r.Context(), name)
	if err != nil || !ok {
		return ""
	}
	return hint
}

func toCategoryJSON(c core.Category) categoryJSON {
	return categoryJSON{Name: c.Name, Type: c.Type.String(), IsSavings: c.IsSavings}
}
