package web

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/gamedata/internal/core"
)

// handleExport downloads a table as CSV.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "table")
	text, err := s.service.ExportTable(r.Context(), key)
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", core.CSVFileName(key)))
	if _, err := io.WriteString(w, text); err != nil {
		slog.Warn("export write failed", "table", key, "error", err)
	}
}

// handleImport loads CSV into a table. The file comes from the "file" field
// of a multipart form or, for any other content type, the raw body.
// ?mode=update (default) or ?mode=replace selects the import mode.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "table")
	mode, err := core.ParseImportMode(r.URL.Query().Get("mode"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	// The service enforces the exact limit; this only stops a runaway body
	// before it is buffered.
	r.Body = http.MaxBytesReader(w, r.Body, s.service.MaxImportSize()+1<<20)

	var body io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			if strings.Contains(err.Error(), "too large") {
				err = fmt.Errorf("%w: %v", core.ErrFileTooLarge, err)
			}
			respondError(w, r, err)
			return
		}
		defer file.Close()
		body = file
	}

	result, err := s.service.ImportReader(r.Context(), key, body, mode)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleReload drops the service's cached tables so changes made to the
// store by another process become visible.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	s.service.Reload()
	slog.Info("tables reloaded", "actor", core.ActorFromContext(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}
