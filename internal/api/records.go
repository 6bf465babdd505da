package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/tabular/shotsmarts/internal/storage"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 1000
)

// recordRequest is the body of create and update calls. The result is
// always computed server-side.
type recordRequest struct {
	Name  string `json:"name"`
	Notes string `json:"notes"`
	calculateRequest
}

func (s *Service) HandleListRecords(w http.ResponseWriter, r *http.Request) {
	records := s.history.Search(r.URL.Query().Get("q"))

	// Parse pagination parameters
	offset := 0
	limit := defaultPageLimit

	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= maxPageLimit {
			limit = parsed
		}
	}

	total := len(records)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	page := records[offset:end]
	if page == nil {
		page = []storage.Record{}
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	writeJSON(w, http.StatusOK, page)
}

func (s *Service) HandleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Debug("Failed to decode record", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	rec, err := s.history.Save(r.Context(), storage.Draft{Name: req.Name, Notes: req.Notes, Input: in})
	if err != nil {
		s.writeMutationError(w, err, rec)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Service) HandleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := s.recordID(w, r)
	if !ok {
		return
	}
	rec, err := s.history.Get(id)
	if err != nil {
		writeError(w, statusFor(err), "Record not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleUpdateRecord replaces name, notes and input of a record and
// recomputes its result. The saved date is kept.
func (s *Service) HandleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := s.recordID(w, r)
	if !ok {
		return
	}
	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	rec, err := s.history.Get(id)
	if err != nil {
		writeError(w, statusFor(err), "Record not found")
		return
	}
	rec.Name = req.Name
	rec.Notes = req.Notes
	rec.Input = in
	rec.Result = in.Calculate()

	updated, err := s.history.Replace(r.Context(), rec)
	if err != nil {
		s.writeMutationError(w, err, updated)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Service) HandleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := s.recordID(w, r)
	if !ok {
		return
	}
	if err := s.history.Delete(r.Context(), id); err != nil {
		s.writeMutationError(w, err, storage.Record{})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) HandleRenameRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := s.recordID(w, r)
	if !ok {
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := s.history.Rename(r.Context(), id, body.Name)
	if err != nil {
		s.writeMutationError(w, err, rec)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Service) HandleRecordSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := s.recordID(w, r)
	if !ok {
		return
	}
	rec, err := s.history.Get(id)
	if err != nil {
		writeError(w, statusFor(err), "Record not found")
		return
	}

	catalog := s.catalogFor(r)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":       rec.ID,
		"language": catalog.Tag().String(),
		"summary":  catalog.Summary(rec),
	})
}

func (s *Service) recordID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := mux.Vars(r)["record_id"]
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid record id %q", raw))
		return uuid.UUID{}, false
	}
	return id, true
}

// writeMutationError reports a failed mutation. A persistence failure still
// returns the record, since the change is kept in memory.
func (s *Service) writeMutationError(w http.ResponseWriter, err error, rec storage.Record) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}
	if errors.Is(err, storage.ErrPersist) {
		s.logger.Error("History change not persisted", "error", err)
		resp.Error = "Change kept in memory but could not be saved"
		if rec.ID != uuid.Nil {
			resp.Record = &rec
		}
	}
	writeJSON(w, status, resp)
}
