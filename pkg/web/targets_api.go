package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"targetview/pkg/model"
	"targetview/tools/util/logutil"
)

// apiResponse is the envelope of every API payload.
type apiResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// getTargetsHandler returns the full derived view. A "search" query
// parameter, when present, is routed through the controller first, so
// the query is persisted write-through and the returned view reflects
// it. Passing an empty search value resets the filter.
func (s *Server) getTargetsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Has("search") {
		s.controller.SetQuery(r.URL.Query().Get("search"))
	}

	view, status, ok := s.currentView(w)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{Status: "success", Data: struct {
		Query     string                               `json:"query"`
		Summary   map[string]model.PoolSummary         `json:"summary"`
		Pools     map[string][]model.TargetLabelRecord `json:"pools"`
		PoolOrder []string                             `json:"poolOrder"`
		LastFetch string                               `json:"lastFetch"`
	}{
		Query:     s.controller.Query(),
		Summary:   view.Summary,
		Pools:     view.Pools,
		PoolOrder: view.PoolOrder,
		LastFetch: status.LastFetch.UTC().Format(time.RFC3339),
	}})
}

// getSummaryHandler returns per-pool active/total counts only.
func (s *Server) getSummaryHandler(w http.ResponseWriter, r *http.Request) {
	view, _, ok := s.currentView(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Status: "success", Data: view.Summary})
}

// getPoolTargetsHandler returns the ordered label records of one pool.
func (s *Server) getPoolTargetsHandler(w http.ResponseWriter, r *http.Request) {
	pool := mux.Vars(r)["pool"]

	view, _, ok := s.currentView(w)
	if !ok {
		return
	}

	records, found := view.Pools[pool]
	if !found {
		writeJSON(w, http.StatusNotFound, apiResponse{
			Status: "error",
			Error:  "unknown pool: " + pool,
		})
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Status: "success", Data: records})
}

// currentView fetches the controller state and handles the loading and
// error tri-states. Returns ok=false when a response was already
// written.
func (s *Server) currentView(w http.ResponseWriter) (model.TargetView, model.FetchStatus, bool) {
	view, status := s.controller.View()

	switch status.State {
	case model.FetchLoading:
		writeJSON(w, http.StatusServiceUnavailable, apiResponse{Status: "loading"})
		return view, status, false
	case model.FetchError:
		writeJSON(w, http.StatusBadGateway, apiResponse{Status: "error", Error: status.LastError})
		return view, status, false
	}
	return view, status, true
}

func writeJSON(w http.ResponseWriter, code int, payload apiResponse) {
	body, err := json.Marshal(payload)
	if err != nil {
		logutil.Errorf("WEB", "Failed to marshal response: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}
