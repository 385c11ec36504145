package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/RohitSadavarti/vanita.lunch.home/internal/auth"
	"github.com/RohitSadavarti/vanita.lunch.home/internal/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/gorilla/websocket"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, room string) *Client {
	return &Client{
		hub:  hub,
		room: room,
		send: make(chan []byte, 256),
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestHubRegistration(t *testing.T) {
	hub := startHub(t)
	client := mockClient(hub, RoomAdmin)

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms[RoomAdmin] == nil {
		t.Fatal("admin room not created")
	}
	if !hub.rooms[RoomAdmin][client] {
		t.Fatal("client not registered in admin room")
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := startHub(t)
	client := mockClient(hub, RoomAdmin)

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	if n := hub.ClientCount(RoomAdmin); n != 0 {
		t.Fatalf("expected empty room, got %d clients", n)
	}
	if _, ok := <-client.send; ok {
		t.Fatal("send channel should be closed after unregister")
	}
}

func TestBroadcastToRoom(t *testing.T) {
	hub := startHub(t)

	admin := mockClient(hub, RoomAdmin)
	other := mockClient(hub, "kitchen")

	hub.register <- admin
	hub.register <- other
	time.Sleep(10 * time.Millisecond)

	testPayload := json.RawMessage(`{"order_id":"12345678"}`)
	if !hub.Broadcast(RoomAdmin, Event{Type: "order.created", Payload: testPayload}) {
		t.Fatal("broadcast should be queued")
	}

	select {
	case msg := <-admin.send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		if received.Type != "order.created" {
			t.Errorf("expected type 'order.created', got '%s'", received.Type)
		}
		if string(received.Payload) != string(testPayload) {
			t.Errorf("expected payload '%s', got '%s'", testPayload, received.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("admin client did not receive message")
	}

	select {
	case <-other.send:
		t.Fatal("client in another room should not receive message")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastToMultipleClients(t *testing.T) {
	hub := startHub(t)

	clients := []*Client{mockClient(hub, RoomAdmin), mockClient(hub, RoomAdmin), mockClient(hub, RoomAdmin)}
	for _, c := range clients {
		hub.register <- c
	}
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast(RoomAdmin, Event{Type: "order.status_changed", Payload: json.RawMessage(`{"order_status":"ready"}`)})

	for i, client := range clients {
		select {
		case msg := <-client.send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("client%d: failed to unmarshal: %v", i+1, err)
			}
			if received.Type != "order.status_changed" {
				t.Errorf("client%d: got type %q", i+1, received.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("client%d did not receive message", i+1)
		}
	}
}

func TestBroadcastDropsSlowClient(t *testing.T) {
	hub := startHub(t)

	slow := &Client{hub: hub, room: RoomAdmin, send: make(chan []byte)}
	hub.register <- slow
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast(RoomAdmin, Event{Type: "order.created", Payload: json.RawMessage(`{}`)})
	time.Sleep(20 * time.Millisecond)

	if n := hub.ClientCount(RoomAdmin); n != 0 {
		t.Fatalf("slow client should have been dropped, room has %d", n)
	}
}

func TestBroadcastQueueFull(t *testing.T) {
	hub := NewHub() // not running, nothing drains the queue
	for i := 0; i < cap(hub.broadcast); i++ {
		if !hub.Broadcast(RoomAdmin, Event{Type: "x"}) {
			t.Fatalf("broadcast %d should be queued", i)
		}
	}
	if hub.Broadcast(RoomAdmin, Event{Type: "x"}) {
		t.Fatal("broadcast should report a full queue")
	}
}

func TestRunClosesClientsOnShutdown(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	client := mockClient(hub, RoomAdmin)
	hub.register <- client
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	if _, ok := <-client.send; ok {
		t.Fatal("send channel should be closed on shutdown")
	}
}

func TestServeWS_RejectsMissingToken(t *testing.T) {
	hub := startHub(t)
	rr := httptest.NewRecorder()
	ServeWS(hub, Auth{JWTSecret: "secret"}, rr, httptest.NewRequest("GET", "/ws/orders", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rr.Code)
	}
}

func TestServeWS_RejectsInvalidToken(t *testing.T) {
	hub := startHub(t)
	rr := httptest.NewRecorder()
	ServeWS(hub, Auth{JWTSecret: "secret"}, rr, httptest.NewRequest("GET", "/ws/orders?token=garbage", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rr.Code)
	}
}

func TestServeWS_DeliversBroadcast(t *testing.T) {
	hub := startHub(t)
	token, _, err := auth.GenerateToken("secret", uuid.New(), "9876543210", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(hub, Auth{JWTSecret: "secret"}, w, r)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/orders?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for hub.ClientCount(RoomAdmin) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	hub.Broadcast(RoomAdmin, Event{Type: "order.created", Payload: json.RawMessage(`{"order_id":"10000001"}`)})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Event
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "order.created" {
		t.Errorf("type: got %q", got.Type)
	}
}

// sessionCookie returns a cookie header for an admin session holding token.
func sessionCookie(t *testing.T, store sessions.Store, token string) string {
	t.Helper()
	rr := httptest.NewRecorder()
	if err := middleware.SaveSessionToken(rr, httptest.NewRequest("GET", "/login", nil), store, token); err != nil {
		t.Fatalf("save session: %v", err)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("no session cookie")
	}
	return cookies[0].Name + "=" + cookies[0].Value
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, _, err := auth.GenerateToken("secret", uuid.New(), "9876543210", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestServeWS_SessionCookieChecksOrigin(t *testing.T) {
	hub := startHub(t)
	store := middleware.NewSessionStore("ws-session-key", false)
	a := Auth{JWTSecret: "secret", Sessions: store, AllowedOrigins: []string{"https://admin.example.com"}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(hub, a, w, r)
	}))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/orders"
	cookie := sessionCookie(t, store, adminToken(t))

	tests := []struct {
		name   string
		origin string
		ok     bool
	}{
		{"same origin", srv.URL, true},
		{"configured origin", "https://admin.example.com", true},
		{"foreign origin", "https://evil.example.net", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			header.Set("Cookie", cookie)
			header.Set("Origin", tt.origin)
			conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
			if tt.ok {
				if err != nil {
					t.Fatalf("dial: %v", err)
				}
				conn.Close()
				return
			}
			if err == nil {
				conn.Close()
				t.Fatal("expected the handshake to be refused")
			}
			if resp == nil || resp.StatusCode != http.StatusForbidden {
				t.Fatalf("expected 403, got %v", resp)
			}
		})
	}
}

func TestServeWS_QueryTokenIgnoresOrigin(t *testing.T) {
	hub := startHub(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(hub, Auth{JWTSecret: "secret"}, w, r)
	}))
	defer srv.Close()

	header := http.Header{}
	header.Set("Origin", "https://app.example.org")
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/orders?token=" + adminToken(t)
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()
}

func TestReadPumpReturnsAfterHubStops(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	cancel()
	select {
	case <-hub.done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	returned := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := &Client{hub: hub, conn: conn, room: RoomAdmin, send: make(chan []byte, 1)}
		c.ReadPump()
		close(returned)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("ReadPump blocked on a stopped hub")
	}
}

func TestServeWS_StoppedHubClosesConnection(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	cancel()
	<-hub.done

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(hub, Auth{JWTSecret: "secret"}, w, r)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/orders?token=" + adminToken(t)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = conn.ReadMessage()
	if err == nil {
		t.Fatal("expected the server to close the connection")
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		t.Fatal("connection left open after the hub stopped")
	}
}
