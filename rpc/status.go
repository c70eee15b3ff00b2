package rpc

import (
	"net/http"
)

// ResultStatus answers /status: the current round's identity and role,
// generalizing rpc/consensus.go's ResultBlockTree from a full history dump
// to a single live snapshot.
type ResultStatus struct {
	Round string `json:"round"`
}

func handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ResultStatus{Round: env.Service.Metric()})
}

// handleRound answers /round with the structured RoundSummary rather than
// the raw metric blob /status returns, for callers that want typed fields
// instead of parsing JSON-in-JSON.
func handleRound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, env.Service.RoundSummary())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	bz, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(bz)
}
