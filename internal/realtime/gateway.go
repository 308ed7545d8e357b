package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/taakra/engine/internal/api/middleware"
	"github.com/taakra/engine/internal/api/types"
	"github.com/taakra/engine/internal/auth"
	"github.com/taakra/engine/internal/metrics"
	"github.com/taakra/engine/internal/models"
	"github.com/taakra/engine/internal/services"
	appErr "github.com/taakra/engine/pkg/errors"
	"github.com/taakra/engine/pkg/logger"
	"go.uber.org/zap"
)

const (
	localUser = "user"

	privateRoomPrefix = "user_"

	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
	maxFrameSize = 16 << 10

	presenceTimeout = 5 * time.Second
)

// Gateway serves the realtime websocket endpoint.
type Gateway struct {
	app   *fiber.App
	hub   *Hub
	chat  services.ChatService
	authn middleware.Authenticator
}

func NewGateway(hub *Hub, chat services.ChatService, authn middleware.Authenticator, origins []string) *Gateway {
	g := &Gateway{hub: hub, chat: chat, authn: authn}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          g.handleError,
	})
	app.Use(fiberrecover.New())
	if len(origins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Join(origins, ","),
			AllowCredentials: true,
		}))
	}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Use("/ws", g.authorize)
	app.Get("/ws", websocket.New(g.serve, websocket.Config{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}))

	g.app = app
	return g
}

// App exposes the fiber app, mainly for app.Test in tests.
func (g *Gateway) App() *fiber.App { return g.app }

func (g *Gateway) Listen(addr string) error {
	logger.L().Info("realtime gateway listening", zap.String("addr", addr))
	return g.app.Listen(addr)
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	return g.app.ShutdownWithContext(ctx)
}

// handshakeToken checks the token query parameter, then the bearer header, then the access cookie.
func handshakeToken(c *fiber.Ctx) string {
	if t := strings.TrimSpace(c.Query("token")); t != "" {
		return t
	}
	if t := middleware.BearerToken(c.Get(fiber.HeaderAuthorization)); t != "" {
		return t
	}
	return c.Cookies(auth.AccessCookie)
}

// authorize resolves the user before the upgrade so a rejected handshake never opens a socket.
func (g *Gateway) authorize(c *fiber.Ctx) error {
	token := handshakeToken(c)
	if token == "" {
		return appErr.New(appErr.CodeUnauthorized, "Authentication error, no token")
	}
	u, err := g.authn.Authenticate(c.UserContext(), token)
	if err != nil {
		return err
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals(localUser, u)
	return c.Next()
}

func (g *Gateway) handleError(c *fiber.Ctx, err error) error {
	if fe, ok := err.(*fiber.Error); ok {
		return c.Status(fe.Code).JSON(types.APIResponse{
			Success: false,
			Error:   &types.APIError{Code: "http_error", Message: fe.Message},
		})
	}
	status, apiErr := types.FromAppError(err, false)
	if status >= fiber.StatusInternalServerError {
		logger.L().Error("realtime handshake failed", zap.Error(err))
	}
	return c.Status(status).JSON(types.APIResponse{Success: false, Error: apiErr})
}

func (g *Gateway) serve(conn *websocket.Conn) {
	u, ok := conn.Locals(localUser).(*models.User)
	if !ok || u == nil {
		_ = conn.Close()
		return
	}

	client := NewClient(u)
	g.hub.Register(client)
	metrics.SocketConnections.Inc()
	defer metrics.SocketConnections.Dec()

	log := logger.L().With(zap.String("client_id", client.ID), zap.String("user_id", u.ID.String()))
	log.Info("realtime client connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go g.writePump(conn, client, done)

	g.connected(ctx, client)

	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("realtime read ended", zap.Error(err))
			}
			break
		}
		g.handle(ctx, client, raw)
	}

	g.hub.Unregister(client)
	<-done
	g.disconnected(client)
	log.Info("realtime client disconnected")
}

// writePump owns every write on conn.
func (g *Gateway) writePump(conn *websocket.Conn, c *Client, done chan<- struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(done)
	}()

	for {
		select {
		case frame, ok := <-c.Send():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				_ = conn.Close()
				g.drain(c)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				g.drain(c)
				return
			}
		}
	}
}

// drain discards queued frames until the hub closes the queue.
func (g *Gateway) drain(c *Client) {
	for range c.Send() {
	}
}

func (g *Gateway) connected(ctx context.Context, c *Client) {
	if err := g.chat.SetOnline(ctx, c.User.ID, true); err != nil {
		logger.L().Warn("mark user online failed", zap.String("user_id", c.User.ID.String()), zap.Error(err))
	}
	g.hub.Join(c, models.PrivateRoom(c.User.ID))
	g.emit(g.hub.Broadcast(ctx, EventUserOnline, presencePayload{UserID: c.User.ID.String(), Name: c.User.Name}))
}

func (g *Gateway) disconnected(c *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()
	if err := g.chat.SetOnline(ctx, c.User.ID, false); err != nil {
		logger.L().Warn("mark user offline failed", zap.String("user_id", c.User.ID.String()), zap.Error(err))
	}
	g.emit(g.hub.Broadcast(ctx, EventUserOffline, presencePayload{UserID: c.User.ID.String()}))
}

func (g *Gateway) handle(ctx context.Context, c *Client, raw []byte) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil || f.Event == "" {
		g.hub.Direct(c, EventError, errorPayload{Message: "Malformed event"})
		return
	}

	switch f.Event {
	case EventJoinRoom:
		room := roomID(f.Data)
		if room == "" {
			return
		}
		if !canJoin(c.User, room) {
			g.hub.Direct(c, EventError, errorPayload{Message: "Not authorized to join this room"})
			return
		}
		g.hub.Join(c, room)
	case EventLeaveRoom:
		if room := roomID(f.Data); room != "" {
			g.hub.Leave(c, room)
		}
	case EventSendMessage:
		g.sendMessage(ctx, c, f.Data)
	case EventTyping:
		var p typingPayload
		if err := json.Unmarshal(f.Data, &p); err != nil || p.RoomID == "" {
			return
		}
		g.emit(g.hub.EmitToOthers(ctx, c, p.RoomID, EventUserTyping, userTypingPayload{
			UserID:   c.User.ID.String(),
			Name:     c.User.Name,
			IsTyping: p.IsTyping,
		}))
	case EventMarkRead:
		room := roomID(f.Data)
		if room == "" {
			return
		}
		if _, err := g.chat.MarkRoomRead(ctx, room, c.User.ID); err != nil {
			logger.L().Warn("mark read failed", zap.String("room", room), zap.Error(err))
			return
		}
		g.emit(g.hub.EmitTo(ctx, room, EventMessagesRead, messagesReadPayload{RoomID: room, ReadBy: c.User.ID.String()}))
	default:
		metrics.SocketEvents.WithLabelValues("unknown").Inc()
		return
	}
	metrics.SocketEvents.WithLabelValues(f.Event).Inc()
}

// canJoin keeps private user rooms to their owner; every other room id is open.
func canJoin(u *models.User, room string) bool {
	if !strings.HasPrefix(room, privateRoomPrefix) {
		return true
	}
	return room == models.PrivateRoom(u.ID)
}

func (g *Gateway) sendMessage(ctx context.Context, c *Client, data json.RawMessage) {
	var p sendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		g.hub.Direct(c, EventError, errorPayload{Message: "Failed to send message"})
		return
	}

	in := services.SendMessageInput{SenderID: c.User.ID, RoomID: p.RoomID, Content: p.Content}
	if p.ReceiverID != "" {
		id, err := uuid.Parse(p.ReceiverID)
		if err != nil {
			g.hub.Direct(c, EventError, errorPayload{Message: "Failed to send message"})
			return
		}
		in.ReceiverID = &id
	}

	msg, err := g.chat.SendMessage(ctx, in)
	if err != nil {
		message := "Failed to send message"
		if ae, ok := appErr.As(err); ok && ae.Code == appErr.CodeInvalid {
			message = ae.Message
		} else {
			logger.L().Error("send message failed", zap.String("room", p.RoomID), zap.Error(err))
		}
		g.hub.Direct(c, EventError, errorPayload{Message: message})
		return
	}
	g.emit(g.hub.EmitTo(ctx, msg.ChatRoom, EventReceiveMessage, msg))
}

func (g *Gateway) emit(err error) {
	if err != nil {
		logger.L().Warn("realtime publish failed", zap.Error(err))
	}
}

// Notifier pushes server-side events into users' private rooms.
type Notifier struct {
	broker Broker
}

func NewNotifier(broker Broker) *Notifier {
	return &Notifier{broker: broker}
}

func (n *Notifier) RegistrationStatus(ctx context.Context, userID uuid.UUID, p RegistrationStatusPayload) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "encode registration status failed")
	}
	return n.broker.Publish(ctx, Envelope{Room: models.PrivateRoom(userID), Event: EventRegistrationStatus, Data: raw})
}

// RegistrationStatusChanged pushes the update directly when no task queue is configured.
func (n *Notifier) RegistrationStatusChanged(ctx context.Context, userID, competitionID uuid.UUID, title string, status models.RegistrationStatus) error {
	return n.RegistrationStatus(ctx, userID, RegistrationStatusPayload{
		CompetitionID: competitionID.String(),
		Title:         title,
		Status:        string(status),
	})
}
