package realtime

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	fws "github.com/fasthttp/websocket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taakra/engine/internal/models"
	"github.com/taakra/engine/internal/repository"
	"github.com/taakra/engine/internal/services"
	appErr "github.com/taakra/engine/pkg/errors"
)

type authFunc func(ctx context.Context, token string) (*models.User, error)

func (f authFunc) Authenticate(ctx context.Context, token string) (*models.User, error) {
	return f(ctx, token)
}

type stubChat struct {
	mu       sync.Mutex
	online   []bool
	sent     []services.SendMessageInput
	readRoom string
	sendErr  error
}

func (s *stubChat) History(context.Context, string, int, int) (*services.ChatHistory, error) {
	return &services.ChatHistory{}, nil
}

func (s *stubChat) Rooms(context.Context) ([]repository.RoomSummary, error) { return nil, nil }

func (s *stubChat) SendMessage(_ context.Context, in services.SendMessageInput) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	s.sent = append(s.sent, in)
	return &models.Message{ID: uuid.New(), SenderID: in.SenderID, ChatRoom: in.RoomID, Content: in.Content}, nil
}

func (s *stubChat) MarkRoomRead(_ context.Context, room string, _ uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readRoom = room
	return 1, nil
}

func (s *stubChat) SetOnline(_ context.Context, _ uuid.UUID, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.online = append(s.online, online)
	return nil
}

func (s *stubChat) onlineCalls() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.online...)
}

var testUser = &models.User{ID: uuid.New(), Name: "Ada", Role: models.RoleUser}

func testAuth() authFunc {
	return func(_ context.Context, token string) (*models.User, error) {
		switch token {
		case "good":
			return testUser, nil
		case "expired":
			return nil, appErr.New(appErr.CodeTokenExpired, "Token expired, please refresh")
		}
		return nil, appErr.New(appErr.CodeUnauthorized, "Not authorized, invalid token")
	}
}

func TestHandshakeRejectsMissingToken(t *testing.T) {
	g := NewGateway(NewHub(NewMemoryBroker()), &stubChat{}, testAuth(), nil)

	resp, err := g.App().Test(httptest.NewRequest(http.MethodGet, "/ws", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "unauthorized", body.Error.Code)
	assert.Equal(t, "Authentication error, no token", body.Error.Message)
}

func TestHandshakeTokenSources(t *testing.T) {
	g := NewGateway(NewHub(NewMemoryBroker()), &stubChat{}, testAuth(), []string{"http://localhost:3000"})

	cases := []struct {
		name   string
		mutate func(r *http.Request)
		status int
	}{
		{"query expired", func(r *http.Request) { r.URL.RawQuery = "token=expired"; r.RequestURI = r.URL.RequestURI() }, http.StatusUnauthorized},
		{"bearer invalid", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"cookie valid but no upgrade", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "accessToken", Value: "good"})
		}, http.StatusUpgradeRequired},
		{"query valid but no upgrade", func(r *http.Request) { r.URL.RawQuery = "token=good"; r.RequestURI = r.URL.RequestURI() }, http.StatusUpgradeRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			tc.mutate(req)
			resp, err := g.App().Test(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestGatewayHealth(t *testing.T) {
	g := NewGateway(NewHub(NewMemoryBroker()), &stubChat{}, testAuth(), nil)
	resp, err := g.App().Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func startGateway(t *testing.T, chat *stubChat) string {
	t.Helper()
	hub, _ := runHub(t)
	g := NewGateway(hub, chat, testAuth(), nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = g.App().Listener(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = g.Shutdown(ctx)
	})
	return "ws://" + ln.Addr().String() + "/ws"
}

func dial(t *testing.T, url string) *fws.Conn {
	t.Helper()
	conn, resp, err := fws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readEvent skips frames until one named event arrives.
func readEvent(t *testing.T, conn *fws.Conn, event string) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		var f Frame
		require.NoError(t, json.Unmarshal(raw, &f))
		if f.Event == event {
			return f
		}
	}
}

func send(t *testing.T, conn *fws.Conn, event string, data any) {
	t.Helper()
	frame, err := encodeFrame(event, data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(fws.TextMessage, frame))
}

func TestGatewayChatFlow(t *testing.T) {
	chat := &stubChat{}
	url := startGateway(t, chat)

	conn := dial(t, url+"?token=good")

	online := readEvent(t, conn, EventUserOnline)
	assert.JSONEq(t, `{"userId":"`+testUser.ID.String()+`","name":"Ada"}`, string(online.Data))

	send(t, conn, EventJoinRoom, "support_1")
	send(t, conn, EventSendMessage, sendMessagePayload{RoomID: "support_1", Content: "hello"})

	got := readEvent(t, conn, EventReceiveMessage)
	var msg struct {
		ChatRoom string `json:"chatRoom"`
		Content  string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(got.Data, &msg))
	assert.Equal(t, "support_1", msg.ChatRoom)
	assert.Equal(t, "hello", msg.Content)

	send(t, conn, EventMarkRead, map[string]string{"roomId": "support_1"})
	read := readEvent(t, conn, EventMessagesRead)
	assert.JSONEq(t, `{"roomId":"support_1","readBy":"`+testUser.ID.String()+`"}`, string(read.Data))

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		calls := chat.onlineCalls()
		return len(calls) == 2 && calls[0] && !calls[1]
	}, 3*time.Second, 10*time.Millisecond)
}

func TestGatewaySendMessageFailure(t *testing.T) {
	chat := &stubChat{sendErr: appErr.New(appErr.CodeInternal, "db down")}
	url := startGateway(t, chat)
	conn := dial(t, url+"?token=good")
	readEvent(t, conn, EventUserOnline)

	send(t, conn, EventSendMessage, sendMessagePayload{RoomID: "support_1", Content: "hello"})

	f := readEvent(t, conn, EventError)
	assert.JSONEq(t, `{"message":"Failed to send message"}`, string(f.Data))
}

func TestGatewayTypingSkipsSender(t *testing.T) {
	url := startGateway(t, &stubChat{})
	a := dial(t, url+"?token=good")
	readEvent(t, a, EventUserOnline)
	b := dial(t, url+"?token=good")
	readEvent(t, b, EventUserOnline)

	send(t, a, EventJoinRoom, map[string]string{"roomId": "r"})
	send(t, a, EventSendMessage, sendMessagePayload{RoomID: "r", Content: "sync"})
	readEvent(t, a, EventReceiveMessage)

	// frames on one connection are handled in order
	send(t, b, EventJoinRoom, "r")
	send(t, b, EventTyping, typingPayload{RoomID: "r", IsTyping: true})

	f := readEvent(t, a, EventUserTyping)
	assert.JSONEq(t, `{"userId":"`+testUser.ID.String()+`","name":"Ada","isTyping":true}`, string(f.Data))

	// b only sees its own marker message, never its typing event
	send(t, a, EventSendMessage, sendMessagePayload{RoomID: "r", Content: "marker"})
	require.NoError(t, b.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, raw, err := b.ReadMessage()
		require.NoError(t, err)
		var fr Frame
		require.NoError(t, json.Unmarshal(raw, &fr))
		require.NotEqual(t, EventUserTyping, fr.Event)
		if fr.Event == EventReceiveMessage {
			break
		}
	}
}

func TestNotifierPublishesToPrivateRoom(t *testing.T) {
	hub, broker := runHub(t)
	c := newTestClient("a")
	c.User.ID = uuid.New()
	hub.Register(c)
	hub.Join(c, models.PrivateRoom(c.User.ID))

	n := NewNotifier(broker)
	require.NoError(t, n.RegistrationStatus(context.Background(), c.User.ID, RegistrationStatusPayload{
		CompetitionID: "c1",
		Status:        "confirmed",
	}))

	f := recv(t, c)
	assert.Equal(t, EventRegistrationStatus, f.Event)
	assert.JSONEq(t, `{"competitionId":"c1","status":"confirmed"}`, string(f.Data))
}

func TestNotifierImplementsServiceNotifier(t *testing.T) {
	hub, broker := runHub(t)
	c := newTestClient("a")
	c.User.ID = uuid.New()
	hub.Register(c)
	hub.Join(c, models.PrivateRoom(c.User.ID))

	var n services.Notifier = NewNotifier(broker)
	compID := uuid.New()
	require.NoError(t, n.RegistrationStatusChanged(context.Background(), c.User.ID, compID, "Hackathon", models.StatusRejected))

	f := recv(t, c)
	assert.JSONEq(t, `{"competitionId":"`+compID.String()+`","title":"Hackathon","status":"rejected"}`, string(f.Data))
}

func TestGatewayRefusesOtherUsersPrivateRoom(t *testing.T) {
	url := startGateway(t, &stubChat{})
	conn := dial(t, url+"?token=good")
	readEvent(t, conn, EventUserOnline)

	send(t, conn, EventJoinRoom, models.PrivateRoom(uuid.New()))

	f := readEvent(t, conn, EventError)
	assert.JSONEq(t, `{"message":"Not authorized to join this room"}`, string(f.Data))
}
