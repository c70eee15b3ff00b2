package rpc

import (
	"github.com/gorilla/mux"
)

// NewRouter builds the HTTP router, replacing rpc/routes.go's
// tendermint-rpc-style map[string]*rpc.RPCFunc registry with a gorilla/mux
// mux.Router of plain handler funcs, favoring gorilla/mux over
// tendermint's own jsonrpc/server.
func NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/status", handleStatus).Methods("GET")
	r.HandleFunc("/round", handleRound).Methods("GET")
	r.HandleFunc("/metrics", handleMetrics).Methods("GET")
	r.HandleFunc("/ws", handleWebsocket)
	return r
}
