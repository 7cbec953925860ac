package http

import (
	"net/http"
	"strings"

	"autofint/internal/core"
	applog "autofint/internal/log"
)

type categoryListResponse struct {
	Type       string   `json:"type"`
	Categories []string `json:"categories"`
	Default    string   `json:"default"`
}

type allCategoriesResponse struct {
	Categories []categoryJSON `json:"categories"`
}

// handleListCategories lists the names for ?type, in insertion order, with
// the first one as the default. Without a type it returns the full registry.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("type"))
	if raw == "" {
		cats, err := s.categories.Categories(r.Context())
		if err != nil {
			writeError(w, r, applog.OpList, err)
			return
		}
		resp := allCategoriesResponse{Categories: make([]categoryJSON, 0, len(cats))}
		for _, c := range cats {
			resp.Categories = append(resp.Categories, toCategoryJSON(c))
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	typ, err := core.ParseTxType(raw)
	if err != nil {
		writeError(w, r, applog.OpList, &core.ValidationError{Field: "type", Err: err})
		return
	}
	names, err := s.categoryList.Get(typ.String(), func() ([]string, error) {
		return s.categories.CategoriesFor(r.Context(), typ)
	})
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}

	resp := categoryListResponse{Type: typ.String(), Categories: names}
	if resp.Categories == nil {
		resp.Categories = []string{}
	}
	if len(names) > 0 {
		resp.Default = names[0]
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAddCategory answers 201 when the name is new and 200 with
// added=false when it already exists.
func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	typ, err := core.ParseTxType(req.Type)
	if err != nil {
		writeError(w, r, applog.OpCreate, &core.ValidationError{Field: "type", Err: err})
		return
	}

	added, err := s.categories.AddCategory(r.Context(), sanitizeInput(req.Name), typ, req.IsSavings)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
		s.categoryList.Invalidate()
	}
	writeJSON(w, status, map[string]bool{"added": added})
}
