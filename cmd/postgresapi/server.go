package main

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/ethereum/go-ethereum/log"

	"github.com/austinhellerrepo/postgresapi/dbqueue"
	"github.com/austinhellerrepo/postgresapi/entrypoint"
)

const maxRequestBytes = 1 << 20

// newHandler routes entry-point JSON into the command queue. Accepted
// commands are answered immediately with 202; their results arrive through
// the configured callback sink.
func newHandler(q *dbqueue.CommandQueue) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/commands", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		request, err := entrypoint.ParseRequest(string(body))
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := q.AppendToEnd(request.Command); err != nil {
			respondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		log.Debug("command accepted", "request", request.ID, "entry_point", request.Type)
		respondJSON(w, http.StatusAccepted, map[string]any{
			"request_id":  request.ID.String(),
			"entry_point": request.Type.String(),
		})
	})
	return mux
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn("response encoding failed", "err", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"error": message})
}
