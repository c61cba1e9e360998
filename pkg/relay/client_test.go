package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"castrelay/internal/infrastructure/logging"
	"castrelay/internal/infrastructure/registry"
	transport "castrelay/internal/infrastructure/relay"
)

const testAPIKey = "dev-secret-key-123"

// startServer brings up a full relay stack on an ephemeral port and returns
// its ws:// URL.
func startServer(t *testing.T) string {
	t.Helper()

	reg := registry.New(registry.Options{Capacity: 100, IdleRoomExpiry: time.Hour})
	hub := transport.NewHub()
	logger := logging.NewNopLogger()
	dispatcher := transport.NewDispatcher(reg, hub, logger, nil)
	validator := transport.NewStaticKeyValidator(testAPIKey)

	handler := transport.NewHandler(hub, dispatcher, validator, logger, transport.HandlerOptions{
		HandshakeTimeout: 2 * time.Second,
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialClient(t *testing.T, url, userID string) *Client {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, url, testAPIKey, userID, Options{})
	if err != nil {
		t.Fatalf("Dial(%s) error = %v", userID, err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_DialAssignsConnectionID(t *testing.T) {
	url := startServer(t)

	c := dialClient(t, url, "userA")
	if c.ConnectionID() == "" {
		t.Error("ConnectionID() = empty after dial")
	}
}

func TestClient_DialRejectsBadKey(t *testing.T) {
	url := startServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := Dial(ctx, url, "wrong-key", "userA", Options{})
	if err == nil {
		t.Fatal("Dial() with bad key succeeded")
	}
}

func TestClient_CreateJoinEmit(t *testing.T) {
	url := startServer(t)

	userA := dialClient(t, url, "userA")
	userB := dialClient(t, url, "userB")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := userA.CreateRoom(ctx, "chat-room"); err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}

	// Duplicate create fails with an error naming the conflict.
	err := userA.CreateRoom(ctx, "chat-room")
	var serverErr *ServerError
	if !errors.As(err, &serverErr) || !strings.Contains(serverErr.Message, "already exists") {
		t.Fatalf("duplicate CreateRoom() error = %v, want server error containing %q", err, "already exists")
	}

	role, err := userB.JoinRoom(ctx, "chat-room")
	if err != nil {
		t.Fatalf("JoinRoom() error = %v", err)
	}
	if role != "member" {
		t.Errorf("role = %q, want member", role)
	}

	got := make(chan Message, 1)
	unsubscribe := userB.On("chat-event", func(msg Message) {
		select {
		case got <- msg:
		default:
		}
	})
	defer unsubscribe()

	if err := userA.Emit(ctx, "chat-room", "chat-event", map[string]string{"text": "Hello B!"}); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	select {
	case msg := <-got:
		if msg.RoomID != "chat-room" {
			t.Errorf("msg.RoomID = %q, want chat-room", msg.RoomID)
		}
		if msg.From != "userA" {
			t.Errorf("msg.From = %q, want userA", msg.From)
		}
		var payload struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			t.Fatalf("payload decode error = %v", err)
		}
		if payload.Text != "Hello B!" {
			t.Errorf("payload.text = %q, want Hello B!", payload.Text)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pushed event")
	}
}

func TestClient_SenderDoesNotReceiveOwnEmit(t *testing.T) {
	url := startServer(t)

	userA := dialClient(t, url, "userA")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := userA.CreateRoom(ctx, "solo-room"); err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}

	echoed := make(chan Message, 1)
	userA.On("ping", func(msg Message) { echoed <- msg })

	if err := userA.Emit(ctx, "solo-room", "ping", map[string]int{"n": 1}); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	select {
	case <-echoed:
		t.Fatal("sender received its own emit")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestClient_EmitWithoutMembership(t *testing.T) {
	url := startServer(t)

	userA := dialClient(t, url, "userA")
	outsider := dialClient(t, url, "userX")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := userA.CreateRoom(ctx, "chat-room"); err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}

	err := outsider.Emit(ctx, "chat-room", "chat-event", map[string]string{"text": "hi"})
	var serverErr *ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("non-member Emit() error = %v, want *ServerError", err)
	}
}

func TestClient_JoinUnknownRoom(t *testing.T) {
	url := startServer(t)

	userA := dialClient(t, url, "userA")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := userA.JoinRoom(ctx, "ghost"); err == nil {
		t.Fatal("JoinRoom(ghost) succeeded")
	}
}

func TestClient_JoinSwitchesRooms(t *testing.T) {
	url := startServer(t)

	userA := dialClient(t, url, "userA")
	userB := dialClient(t, url, "userB")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := userA.CreateRoom(ctx, "room-one"); err != nil {
		t.Fatalf("CreateRoom(room-one) error = %v", err)
	}
	if err := userB.CreateRoom(ctx, "room-two"); err != nil {
		t.Fatalf("CreateRoom(room-two) error = %v", err)
	}

	// userB switches into room-one; its membership in room-two lapses, so
	// an emit into room-one now reaches userA only, and userB can no longer
	// emit into room-two.
	if _, err := userB.JoinRoom(ctx, "room-one"); err != nil {
		t.Fatalf("JoinRoom(room-one) error = %v", err)
	}

	if err := userB.Emit(ctx, "room-two", "chat-event", map[string]string{}); err == nil {
		t.Error("Emit() into the departed room succeeded")
	}
	if err := userB.Emit(ctx, "room-one", "chat-event", map[string]string{}); err != nil {
		t.Errorf("Emit() into the joined room error = %v", err)
	}
}

func TestClient_CloseFailsFurtherRequests(t *testing.T) {
	url := startServer(t)

	userA := dialClient(t, url, "userA")
	if err := userA.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := userA.CreateRoom(ctx, "after-close"); !errors.Is(err, ErrClosed) {
		t.Errorf("CreateRoom() after close error = %v, want %v", err, ErrClosed)
	}

	select {
	case <-userA.Done():
	default:
		t.Error("Done() not closed after Close()")
	}
}

func TestClient_UnsubscribeStopsDelivery(t *testing.T) {
	url := startServer(t)

	userA := dialClient(t, url, "userA")
	userB := dialClient(t, url, "userB")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := userA.CreateRoom(ctx, "chat-room"); err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	if _, err := userB.JoinRoom(ctx, "chat-room"); err != nil {
		t.Fatalf("JoinRoom() error = %v", err)
	}

	got := make(chan Message, 4)
	unsubscribe := userB.On("chat-event", func(msg Message) { got <- msg })
	unsubscribe()

	if err := userA.Emit(ctx, "chat-room", "chat-event", map[string]string{"text": "x"}); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	select {
	case <-got:
		t.Fatal("handler fired after unsubscribe")
	case <-time.After(300 * time.Millisecond):
	}
}
