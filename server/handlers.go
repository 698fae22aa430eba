package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// messageHandler accepts a chat message and returns the assistant response
func (s *Server) messageHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RenderError(w, r, fmt.Errorf("invalid request: %w", err), http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		RenderError(w, r, fmt.Errorf("text is required"), http.StatusBadRequest)
		return
	}

	resp, err := s.assistant.Handle(r.Context(), req.Text)
	if err != nil {
		RenderError(w, r, err, http.StatusInternalServerError)
		return
	}
	RenderJSON(w, r, http.StatusOK, resp)
}

// listSchedulesHandler returns all active schedules
func (s *Server) listSchedulesHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := s.scheduler.List()
	if err != nil {
		RenderError(w, r, err, http.StatusInternalServerError)
		return
	}
	RenderJSON(w, r, http.StatusOK, entries)
}

// addScheduleHandler registers a new recurring keyword scrape
func (s *Server) addScheduleHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keyword    string   `json:"keyword"`
		Hour       int      `json:"hour"`
		Minute     int      `json:"minute"`
		DaysOfWeek []string `json:"days_of_week"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RenderError(w, r, fmt.Errorf("invalid request: %w", err), http.StatusBadRequest)
		return
	}

	entry, err := s.scheduler.Add(req.Keyword, req.Hour, req.Minute, req.DaysOfWeek)
	if err != nil {
		RenderError(w, r, err, http.StatusBadRequest)
		return
	}
	RenderJSON(w, r, http.StatusCreated, entry)
}

// removeScheduleHandler deletes a schedule by id
func (s *Server) removeScheduleHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.scheduler.Remove(id) {
		RenderError(w, r, fmt.Errorf("schedule %s not found", id), http.StatusNotFound)
		return
	}
	RenderJSON(w, r, http.StatusOK, map[string]string{"removed": id})
}

// logsHandler returns recent scheduled run history, newest first
func (s *Server) logsHandler(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			RenderError(w, r, fmt.Errorf("invalid limit %q", v), http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	entries, err := s.execLog.Recent(limit)
	if err != nil {
		RenderError(w, r, err, http.StatusInternalServerError)
		return
	}
	RenderJSON(w, r, http.StatusOK, entries)
}

// diagnosticsHandler returns the in-session publish diagnostic trail
func (s *Server) diagnosticsHandler(w http.ResponseWriter, r *http.Request) {
	RenderJSON(w, r, http.StatusOK, s.publisher.Logs())
}
