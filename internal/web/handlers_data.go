package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/gamedata/internal/core"
	"github.com/JonMunkholm/gamedata/internal/web/templates"
)

// DefaultPreviewRows is how many rows a table page shows unless ?limit=
// says otherwise.
const DefaultPreviewRows = 100

// handleDashboard lists the tables grouped as registered.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	tables, err := s.service.Tables(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	var groups []templates.TableGroup
	for _, t := range tables {
		if n := len(groups); n == 0 || groups[n-1].Name != t.Group {
			groups = append(groups, templates.TableGroup{Name: t.Group})
		}
		g := &groups[len(groups)-1]
		g.Tables = append(g.Tables, templates.TableCard{Key: t.Key, Rows: t.Rows})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	templates.Dashboard(groups).Render(r.Context(), w)
}

// handleTableView renders a table as the flattened rows an export would
// produce.
func (s *Server) handleTableView(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", DefaultPreviewRows)
	preview, err := s.service.Preview(r.Context(), chi.URLParam(r, "table"), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	templates.TableView(preview).Render(r.Context(), w)
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.service.Tables(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := s.service.Schema(chi.URLParam(r, "table"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

// handleHeader returns the columns the record type can ever produce, before
// trailing empty collection slots are trimmed.
func (s *Server) handleHeader(w http.ResponseWriter, r *http.Request) {
	header, err := s.service.Header(chi.URLParam(r, "table"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, header)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", DefaultPreviewRows)
	preview, err := s.service.Preview(r.Context(), chi.URLParam(r, "table"), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// handleFields returns the editable field tree of one row.
func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	id, err := rowID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	fields, err := s.service.Fields(r.Context(), chi.URLParam(r, "table"), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fields)
}

// handleHistory lists recent transfers, newest first. ?table= filters and
// ?limit= caps the list.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	table := r.URL.Query().Get("table")
	if table != "" {
		if _, ok := core.Get(table); !ok {
			respondError(w, r, fmt.Errorf("%w: %s", core.ErrUnknownTable, table))
			return
		}
	}
	writeJSON(w, http.StatusOK, s.service.History(table, parseIntParam(r, "limit", 0)))
}

func (s *Server) handleHistoryEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, ok := s.service.Transfer(id)
	if !ok {
		respondError(w, r, fmt.Errorf("%w: %s", errTransferNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// handleTransferStatus reports the transfer slots, for monitoring.
func (s *Server) handleTransferStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Limiter().Status())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"tables": core.TableCount(),
	})
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// rowID parses a row ID URL parameter.
func rowID(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidID, raw)
	}
	return id, nil
}
