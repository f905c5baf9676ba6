package transport

import (
	"context"
	"encoding/json"
	"huddle/auth"
	"huddle/mocks"
	"huddle/observability"
	"huddle/runtime"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type handlerFixture struct {
	server  *httptest.Server
	handler *Handler
	engine  *runtime.Engine
	tokens  *auth.TokenIssuer
}

func newHandlerFixture(t *testing.T) handlerFixture {
	return newHandlerFixtureWith(t, ClientConfig{})
}

func newHandlerFixtureWith(t *testing.T, cfg ClientConfig) handlerFixture {
	ctrl := gomock.NewController(t)
	presence := mocks.NewMockPresenceStore(ctrl)
	presence.EXPECT().SetUserOnline(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	engine := runtime.NewEngine(slog.Default(), runtime.EngineStores{
		Messages: mocks.NewMockMessageStore(ctrl),
		Presence: presence,
		Users:    mocks.NewMockUserDirectory(ctrl),
	}, observability.NewMonitoringManager(), runtime.EngineOptions{TypingTTL: time.Minute})

	origins, _ := NewOriginPolicy([]string{"http://localhost:3000"})
	handler := NewHandler(slog.Default(), engine, origins, cfg)
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)

	mux := http.NewServeMux()
	mux.Handle("/ws", auth.Middleware(tokens)(handler))
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return handlerFixture{server: server, handler: handler, engine: engine, tokens: tokens}
}

func (f handlerFixture) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	token, err := f.tokens.GenerateToken(userID)
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, name string, data any) {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Envelope{Event: name, Data: payload}))
}

func next(t *testing.T, conn *websocket.Conn) (string, map[string]any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var envelope Envelope
	require.NoError(t, conn.ReadJSON(&envelope))
	var data map[string]any
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	return envelope.Event, data
}

func TestHandler_Group_Conversation(t *testing.T) {
	req := require.New(t)
	f := newHandlerFixture(t)

	// Given alice in g1
	alice := f.dial(t, "alice")
	send(t, alice, JoinGroup, map[string]any{"groupId": "g1", "userId": "alice", "username": "alice"})
	req.Eventually(func() bool { return len(f.engine.Router().Members("g1")) == 1 }, 2*time.Second, 10*time.Millisecond)

	// When bob joins and starts typing
	bob := f.dial(t, "bob")
	send(t, bob, JoinGroup, map[string]any{"groupId": "g1", "userId": "bob", "username": "bob"})
	send(t, bob, Typing, map[string]any{"groupId": "g1", "userId": "bob", "username": "bob", "isTyping": true})

	// Then alice sees both
	name, data := next(t, alice)
	req.Equal("user-joined", name)
	req.Equal("bob", data["userId"])
	name, data = next(t, alice)
	req.Equal("user-typing", name)
	req.Equal(true, data["isTyping"])

	// When bob's connection goes away
	req.Equal(2, f.handler.Open())
	req.NoError(bob.Close())

	// Then alice gets the typing stop before the departure events
	expected := []string{"user-typing", "user-left", "user-status"}
	for _, want := range expected {
		name, data = next(t, alice)
		req.Equal(want, name)
		req.Equal("bob", data["userId"])
	}
	req.Eventually(func() bool { return f.handler.Open() == 1 }, 2*time.Second, 10*time.Millisecond)
	req.Equal(1, f.engine.Registry().Count())
}

func TestHandler_Rejects_Bad_Frames_And_Impersonation(t *testing.T) {
	req := require.New(t)
	f := newHandlerFixture(t)
	alice := f.dial(t, "alice")

	// Not an envelope
	req.NoError(alice.WriteMessage(websocket.TextMessage, []byte("hello")))
	name, data := next(t, alice)
	req.Equal("error", name)
	req.Equal("Invalid request", data["message"])

	// Joining as somebody else
	send(t, alice, JoinGroup, map[string]any{"groupId": "g1", "userId": "bob", "username": "bob"})
	name, _ = next(t, alice)
	req.Equal("error", name)
	req.Empty(f.engine.Router().Members("g1"))
}

func TestHandler_Long_Message_Keeps_Connection(t *testing.T) {
	tests := []struct {
		name   string
		cfg    ClientConfig
		length int
	}{
		{name: "Within frame size", cfg: ClientConfig{}, length: 9000},
		{name: "Above frame size", cfg: ClientConfig{MaxMessageSize: 512}, length: 2000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			f := newHandlerFixtureWith(t, tt.cfg)
			alice := f.dial(t, "alice")

			// When alice sends a message far over the content limit
			send(t, alice, SendMessage, map[string]any{
				"content":  strings.Repeat("a", tt.length),
				"senderId": "alice",
				"groupId":  "g1",
			})

			// Then only alice is told why
			name, data := next(t, alice)
			req.Equal("error", name)
			req.Equal("Message content cannot exceed 1000 characters", data["message"])

			// Then the connection is still usable
			req.NoError(alice.WriteMessage(websocket.TextMessage, []byte("hello")))
			name, data = next(t, alice)
			req.Equal("error", name)
			req.Equal("Invalid request", data["message"])
			req.Equal(1, f.handler.Open())
		})
	}
}

func TestHandler_Requires_Token(t *testing.T) {
	f := newHandlerFixture(t)
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandler_Blocks_Foreign_Origin(t *testing.T) {
	f := newHandlerFixture(t)
	token, err := f.tokens.GenerateToken("alice")
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?token=" + token

	header := http.Header{}
	header.Set("Origin", "https://evil.example.org")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHandler_CloseAll(t *testing.T) {
	req := require.New(t)
	f := newHandlerFixture(t)
	alice := f.dial(t, "alice")
	req.Eventually(func() bool { return f.handler.Open() == 1 }, 2*time.Second, 10*time.Millisecond)

	f.handler.CloseAll()

	// The client receives a normal close
	req.NoError(alice.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err := alice.ReadMessage()
	req.True(websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
	req.Eventually(func() bool { return f.handler.Open() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_Drain_Waits_For_Cleanup(t *testing.T) {
	req := require.New(t)
	f := newHandlerFixture(t)
	alice := f.dial(t, "alice")
	send(t, alice, JoinGroup, map[string]any{"groupId": "g1", "userId": "alice", "username": "alice"})
	req.Eventually(func() bool { return len(f.engine.Router().Members("g1")) == 1 }, 2*time.Second, 10*time.Millisecond)

	// When every connection is closed and drained
	f.handler.CloseAll()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req.NoError(f.handler.Drain(ctx))

	// Then the sessions are already cleaned up before the engine stops
	req.Zero(f.handler.Open())
	req.Zero(f.engine.Registry().Count())
	req.Zero(f.engine.Router().Groups())
}

func TestHandler_Drain_Gives_Up_With_Context(t *testing.T) {
	req := require.New(t)
	f := newHandlerFixture(t)
	f.dial(t, "alice")
	req.Eventually(func() bool { return f.handler.Open() == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req.ErrorIs(f.handler.Drain(ctx), context.DeadlineExceeded)
	req.Equal(1, f.handler.Open())
}
