package admin

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/vialabs/tronbridge/api"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleExchanges(w http.ResponseWriter, r *http.Request) {
	filter := api.QueryFilter{Limit: 100}
	if m := r.URL.Query().Get("method"); m != "" {
		filter.Method = m
	}
	if o := r.URL.Query().Get("outcome"); o != "" {
		filter.Outcome = api.Outcome(o)
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = n
	}

	records, err := s.store.Query(r.Context(), filter)
	if err != nil {
		http.Error(w, "failed to query exchange log", http.StatusInternalServerError)
		return
	}

	// Newest first
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	if records == nil {
		records = []*api.ExchangeRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		http.Error(w, "failed to get stats", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
