// Package rpc exposes the running validator's round state over HTTP and a
// websocket event stream, adapted from rpc/env.go's package-level
// Environment/SetEnvironment wiring: tendermint's rpc/jsonrpc/server
// RPCFunc registry is replaced by a plain gorilla/mux router, and
// BlockTree's SmallBank tx-latency breakdown is dropped since this
// codebase's types.Tx carries no send timestamp to measure against.
package rpc

import (
	jsoniter "github.com/json-iterator/go"

	"dualbft/consensus"
	"dualbft/libs/metric"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var env *Environment

// Environment bundles the collaborators the HTTP/websocket handlers read
// from. SetEnvironment is called once, after the node has constructed its
// consensus.Service, before the router starts serving.
type Environment struct {
	Service   *consensus.Service
	MetricSet *metric.MetricSet
}

func SetEnvironment(e *Environment) {
	env = e
}
