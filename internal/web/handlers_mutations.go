package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/gamedata/internal/codec"
)

// handleAddRow appends a blank row with the next free ID.
func (s *Server) handleAddRow(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.AddRow(r.Context(), chi.URLParam(r, "table"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleCopyRow(w http.ResponseWriter, r *http.Request) {
	id, err := rowID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	rec, err := s.service.CopyRow(r.Context(), chi.URLParam(r, "table"), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	id, err := rowID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.service.DeleteRow(r.Context(), chi.URLParam(r, "table"), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// updateRowRequest sets flattened cells of one row, keyed by column name.
type updateRowRequest struct {
	Cells map[string]string `json:"cells"`
}

// updateRowResponse echoes the cells that could not be applied.
type updateRowResponse struct {
	Failed  []cellError `json:"failed"`
	Unknown []string    `json:"unknown"`
}

type cellError struct {
	Column string `json:"column"`
	Value  string `json:"value"`
	Error  string `json:"error"`
}

func newUpdateRowResponse(rep codec.Report) updateRowResponse {
	resp := updateRowResponse{Failed: []cellError{}, Unknown: rep.Unknown}
	if resp.Unknown == nil {
		resp.Unknown = []string{}
	}
	for _, ce := range rep.Failed {
		resp.Failed = append(resp.Failed, cellError{Column: ce.Column, Value: ce.Value, Error: ce.Err.Error()})
	}
	return resp
}

// handleUpdateRow applies {"cells": {...}} to a row. Cells that do not
// parse are reported and leave their field unchanged.
func (s *Server) handleUpdateRow(w http.ResponseWriter, r *http.Request) {
	id, err := rowID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req updateRowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", errBadBody, err))
		return
	}

	rep, err := s.service.UpdateRow(r.Context(), chi.URLParam(r, "table"), id, req.Cells)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUpdateRowResponse(rep))
}

type changeIDRequest struct {
	ID int `json:"id"`
}

type changeIDResponse struct {
	ID                int `json:"id"`
	ReferencesUpdated int `json:"references_updated"`
}

// handleChangeRowID renumbers a row and every reference to it.
func (s *Server) handleChangeRowID(w http.ResponseWriter, r *http.Request) {
	oldID, err := rowID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req changeIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", errBadBody, err))
		return
	}

	n, err := s.service.ChangeRowID(r.Context(), chi.URLParam(r, "table"), oldID, req.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, changeIDResponse{ID: req.ID, ReferencesUpdated: n})
}
