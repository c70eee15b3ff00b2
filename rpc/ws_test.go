package rpc

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebsocketUpgradeAndCloseRoundTrips(t *testing.T) {
	newTestEnvironment(t)

	srv := httptest.NewServer(NewRouter())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing websocket: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != 101 {
		t.Fatalf("upgrade response status = %d, want 101", resp.StatusCode)
	}

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if err := conn.Close(); err != nil {
		t.Fatalf("closing client connection: %v", err)
	}
}
