package http

import (
	"net/http"
	"strings"
	"time"

	"autofint/internal/core"
	applog "autofint/internal/log"
	"autofint/internal/session"
)

const sessionCookie = "autofint_session"

// sessionToken reads a bearer token, falling back to the session cookie.
func sessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// requireSession rejects /api requests without an unlocked session, except
// the session endpoints themselves.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/api/session" {
			next.ServeHTTP(w, r)
			return
		}
		if !s.sessions.Authorized(sessionToken(r)) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "locked: log in with the PIN first"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpLogin, err)
		return
	}
	token, err := s.sessions.Login(req.PIN)
	if err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Login rejected", "client_ip", s.detector.ExtractClientIP(r))
		writeError(w, r, applog.OpLogin, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "gate": s.sessions.Enabled()})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Logout(sessionToken(r))
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	st, ok := s.sessions.State(token)
	if !ok {
		st = session.AppState{Unlocked: s.sessions.Authorized(token), SelectedType: core.Expense}
	}
	writeJSON(w, http.StatusOK, sessionStateResponse{
		Gate:         s.sessions.Enabled(),
		Unlocked:     st.Unlocked,
		EditingID:    st.EditingID,
		SelectedType: st.SelectedType.String(),
		Filter:       toFilterJSON(st.Filter),
	})
}

// handleSessionUpdate changes the selected type or the transaction being
// edited. Both fields are optional.
func (s *Server) handleSessionUpdate(w http.ResponseWriter, r *http.Request) {
	var req sessionUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}

	var typ core.TxType
	if req.SelectedType != nil {
		t, err := core.ParseTxType(*req.SelectedType)
		if err != nil {
			writeError(w, r, applog.OpUpdate, &core.ValidationError{Field: "selected_type", Err: err})
			return
		}
		typ = t
	}
	if req.EditingID != nil && *req.EditingID < 0 {
		writeError(w, r, applog.OpUpdate, &core.ValidationError{Field: "editing_id", Err: core.ErrInvalidFilter})
		return
	}

	ok := s.sessions.Update(sessionToken(r), func(st *session.AppState) {
		if typ != "" {
			st.SelectedType = typ
		}
		if req.EditingID != nil {
			st.EditingID = *req.EditingID
		}
	})
	if !ok {
		writeError(w, r, applog.OpUpdate, core.ErrNotFound)
		return
	}
	s.handleSessionState(w, r)
}
