package vts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// authenticatingHandler accepts the plugin, approves authentication and then
// either drops the socket after dropAfter or keeps draining injected frames.
func authenticatingHandler(dropAfter time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req request
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		resp := map[string]any{
			"messageType": "AuthenticationResponse",
			"requestID":   req.RequestID,
			"data":        map[string]any{"authenticated": true},
		}
		if err := conn.WriteJSON(resp); err != nil {
			return
		}

		if dropAfter > 0 {
			time.Sleep(dropAfter)
			return
		}
		for {
			var frame request
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
		}
	}
}

func TestDroppedLinkClosesDoneAndStopsController(t *testing.T) {
	server := httptest.NewServer(authenticatingHandler(20 * time.Millisecond))
	defer server.Close()

	controller := NewController(WithURL(wsURL(server)), WithAuthToken("token"))
	if err := controller.Connect(context.Background()); err != nil {
		t.Fatalf("unexpected connect error: %v", err)
	}

	select {
	case <-controller.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the drop signal")
	}

	if err := controller.SetTalking(context.Background(), true); err == nil {
		t.Fatalf("expected SetTalking rejected after the link dropped")
	}
	if err := controller.Disconnect(); err != nil {
		t.Fatalf("expected disconnect after a drop to be a no-op, got %v", err)
	}
}

func TestDisconnectDoesNotSignalDrop(t *testing.T) {
	server := httptest.NewServer(authenticatingHandler(0))
	defer server.Close()

	controller := NewController(WithURL(wsURL(server)), WithAuthToken("token"))
	if err := controller.Connect(context.Background()); err != nil {
		t.Fatalf("unexpected connect error: %v", err)
	}
	done := controller.Done()

	if err := controller.Disconnect(); err != nil {
		t.Fatalf("unexpected disconnect error: %v", err)
	}

	select {
	case <-done:
		t.Fatalf("expected no drop signal on deliberate disconnect")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestReconnectAfterDropStartsAFreshLink(t *testing.T) {
	server := httptest.NewServer(authenticatingHandler(0))
	defer server.Close()

	dropping := httptest.NewServer(authenticatingHandler(10 * time.Millisecond))
	defer dropping.Close()

	controller := NewController(WithURL(wsURL(dropping)), WithAuthToken("token"))
	if err := controller.Connect(context.Background()); err != nil {
		t.Fatalf("unexpected connect error: %v", err)
	}

	select {
	case <-controller.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the drop signal")
	}

	controller.url = wsURL(server)
	if err := controller.Connect(context.Background()); err != nil {
		t.Fatalf("unexpected reconnect error: %v", err)
	}
	defer controller.Disconnect()

	select {
	case <-controller.Done():
		t.Fatalf("expected the fresh link to stay up")
	case <-time.After(50 * time.Millisecond):
	}

	if err := controller.SetTalking(context.Background(), true); err != nil {
		t.Fatalf("expected SetTalking accepted on the fresh link: %v", err)
	}
}
