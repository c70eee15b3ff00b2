package rpc

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/tendermint/tendermint/libs/events"

	"dualbft/consensus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

var wsConnSeq uint64

// RoundEvent is the envelope pushed to websocket subscribers, wrapping
// whatever payload one of the service's events.EventSwitch events fired
// with (*consensus.Context for a new round, types.View for a view change,
// *types.Block for a commit).
type RoundEvent struct {
	Kind string      `json:"kind"`
	Data interface{} `json:"data"`
}

// handleWebsocket upgrades the request and streams every
// consensus.EventNewRound/EventViewChanged/EventBlockCommitted fired by the
// wired Service for the life of the connection.
func handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	listenerID := fmt.Sprintf("ws-%d", atomic.AddUint64(&wsConnSeq, 1))
	out := make(chan RoundEvent, 16)

	subscribe := func(kind, event string) {
		env.Service.EventSwitch().AddListenerForEvent(listenerID, event, func(data events.EventData) {
			select {
			case out <- RoundEvent{Kind: kind, Data: data}:
			default:
			}
		})
	}
	subscribe("new_round", consensus.EventNewRound)
	subscribe("view_changed", consensus.EventViewChanged)
	subscribe("block_committed", consensus.EventBlockCommitted)
	defer env.Service.EventSwitch().RemoveListener(listenerID)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev := <-out:
			bz, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, bz); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
