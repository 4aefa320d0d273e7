package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/KitaosakaSystem/webSyuhai/kafka"
	"github.com/KitaosakaSystem/webSyuhai/limiter"
	"github.com/KitaosakaSystem/webSyuhai/models"
	"github.com/KitaosakaSystem/webSyuhai/redis"
	"github.com/KitaosakaSystem/webSyuhai/services"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type BroadcastMessage struct {
	Data      map[string]interface{}
	ExceptIDs map[string]bool // clients the message is not delivered to
}

// ChatClient is one WebSocket connection with its user identity and
// outbound queue.
type ChatClient struct {
	ID       string // connection id (UUID)
	UserID   string
	UserName string
	UserType string
	Conn     *websocket.Conn
	Room     *ChatRoom
	Send     chan map[string]interface{}
	ctx      context.Context
	cancel   context.CancelFunc
}

// ChatRoom fans slot changes out to every connection of one room. The
// room owns the RoomFeed, so the synthesized staff reply is produced
// once per read transition for the whole room, no matter how many
// connections are open or how often the backend redelivers the state.
// trySend queues a message for the client's writePump. It never blocks
// and never panics: a disconnected client drops the message, and so
// does a full buffer (the room loop cuts such clients loose anyway).
func (c *ChatClient) trySend(msg map[string]interface{}) {
	select {
	case <-c.ctx.Done():
		return
	default:
	}
	select {
	case c.Send <- msg:
	default:
	}
}

type ChatRoom struct {
	ID         string
	Clients    map[string]*ChatClient
	mu         sync.RWMutex
	Broadcast  chan *BroadcastMessage
	Register   chan *ChatClient
	Unregister chan *ChatClient
	ctx        context.Context
	cancel     context.CancelFunc
	presence   *redis.RedisClient

	feedMu sync.Mutex
	feed   *services.RoomFeed
	seeded bool
}

type ChatRoomManager struct {
	rooms    map[string]*ChatRoom
	mu       sync.RWMutex
	presence *redis.RedisClient
}

func NewChatRoomManager(presence *redis.RedisClient) *ChatRoomManager {
	return &ChatRoomManager{
		rooms:    make(map[string]*ChatRoom),
		presence: presence,
	}
}

func (m *ChatRoomManager) GetOrCreateRoom(roomID string) *ChatRoom {
	m.mu.Lock()
	defer m.mu.Unlock()

	if room, exists := m.rooms[roomID]; exists {
		return room
	}

	ctx, cancel := context.WithCancel(context.Background())
	room := &ChatRoom{
		ID:         roomID,
		Clients:    make(map[string]*ChatClient),
		Broadcast:  make(chan *BroadcastMessage, 256),
		Register:   make(chan *ChatClient, 16),
		Unregister: make(chan *ChatClient, 16),
		ctx:        ctx,
		cancel:     cancel,
		presence:   m.presence,
		feed:       services.NewRoomFeed(roomID),
	}
	m.rooms[roomID] = room

	go room.run()

	return room
}

// run is the room's dispatch loop.
func (room *ChatRoom) run() {
	for {
		select {
		case <-room.ctx.Done():
			return

		case client := <-room.Register:
			room.mu.Lock()
			room.Clients[client.ID] = client
			room.mu.Unlock()

			room.addUserToPresence(client)

		case client := <-room.Unregister:
			room.mu.Lock()
			delete(room.Clients, client.ID)
			room.mu.Unlock()

			room.removeUserFromPresence(client)

		case message := <-room.Broadcast:
			room.mu.RLock()
			clients := make([]*ChatClient, 0, len(room.Clients))
			for _, client := range room.Clients {
				clients = append(clients, client)
			}
			room.mu.RUnlock()

			for _, client := range clients {
				if message.ExceptIDs != nil && message.ExceptIDs[client.ID] {
					continue
				}

				select {
				case client.Send <- message.Data:
				default:
					// a stalled client is cut loose, not blocked on;
					// its pumps tear down and unregister it
					log.Printf("Client %s send buffer full, disconnecting", client.ID)
					client.cancel()
				}
			}
		}
	}
}

// ApplyChange folds a slot change into the room feed and broadcasts
// every entry the change produced. Entries the feed has already emitted
// for this state are not produced again.
func (room *ChatRoom) ApplyChange(change services.SlotChange) {
	room.feedMu.Lock()
	fresh := room.feed.Apply(change)
	room.seeded = true
	room.feedMu.Unlock()

	for _, entry := range fresh {
		room.Broadcast <- &BroadcastMessage{
			Data: map[string]interface{}{
				"type": "message",
				"payload": map[string]interface{}{
					"room_id":     room.ID,
					"text":        entry.Text,
					"time":        entry.Time,
					"isCustomer":  entry.IsCustomer,
					"synthesized": entry.Synthesized,
				},
			},
		}
	}
}

// seedFeed loads the room's current slot into the feed once, without
// broadcasting, so joiners get history and later changes still dedupe
// against it.
func (room *ChatRoom) seedFeed(slot *models.RoomMessage) {
	room.feedMu.Lock()
	defer room.feedMu.Unlock()
	if room.seeded {
		return
	}
	if slot != nil {
		room.feed.Apply(services.SlotChange{Type: services.ChangeAdded, Message: *slot})
	}
	room.seeded = true
}

func (room *ChatRoom) feedEntries() []services.FeedEntry {
	room.feedMu.Lock()
	defer room.feedMu.Unlock()
	return room.feed.Entries()
}

func (room *ChatRoom) addUserToPresence(client *ChatClient) {
	ctx := context.Background()
	user := redis.UserInfo{
		UserID:   client.UserID,
		UserName: client.UserName,
		UserType: client.UserType,
	}
	if err := room.presence.AddOnlineUser(ctx, room.ID, user); err != nil {
		log.Printf("Failed to add user to presence: %v", err)
	}
}

func (room *ChatRoom) removeUserFromPresence(client *ChatClient) {
	// keep the presence entry while another connection of the same user
	// is still open
	room.mu.RLock()
	hasOtherConnection := false
	for _, c := range room.Clients {
		if c.UserID == client.UserID && c.ID != client.ID {
			hasOtherConnection = true
			break
		}
	}
	room.mu.RUnlock()

	if !hasOtherConnection {
		if err := room.presence.RemoveOnlineUser(context.Background(), room.ID, client.UserID); err != nil {
			log.Printf("Failed to remove user from presence: %v", err)
		}
	}
}

type ChatWebSocketHandler struct {
	chat        *services.ChatService
	quota       *limiter.RoomQuota
	presence    *redis.RedisClient
	producer    *kafka.Producer // nil when the event stream is disabled
	roomManager *ChatRoomManager
}

func NewChatWebSocketHandler(chat *services.ChatService, quota *limiter.RoomQuota, presence *redis.RedisClient, producer *kafka.Producer) *ChatWebSocketHandler {
	return &ChatWebSocketHandler{
		chat:        chat,
		quota:       quota,
		presence:    presence,
		producer:    producer,
		roomManager: NewChatRoomManager(presence),
	}
}

func (h *ChatWebSocketHandler) HandleWebSocket(c echo.Context) error {
	roomID := c.Param("roomId")
	user := c.Get("user").(*models.User)
	claims := c.Get("claims").(*services.Claims)

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &ChatClient{
		ID:       uuid.New().String(),
		UserID:   user.UserID,
		UserName: claims.UserName,
		UserType: user.UserType,
		Conn:     ws,
		Send:     make(chan map[string]interface{}, 256),
		ctx:      ctx,
		cancel:   cancel,
	}

	room := h.roomManager.GetOrCreateRoom(roomID)
	client.Room = room

	slot, err := h.chat.Slot(ctx, roomID)
	if err != nil {
		log.Printf("Failed to load message slot: %v", err)
	}
	room.seedFeed(slot)

	room.Register <- client

	h.sendInitData(ctx, client, room)

	go h.writePump(client)

	h.readPump(client)

	return nil
}

func (h *ChatWebSocketHandler) readPump(client *ChatClient) {
	defer func() {
		client.cancel()
		client.Room.Unregister <- client
		client.Conn.Close()
	}()

	client.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var msg map[string]interface{}
		err := client.Conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		h.handleMessage(client, msg)
	}
}

func (h *ChatWebSocketHandler) writePump(client *ChatClient) {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case <-client.ctx.Done():
			return

		case message := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.Conn.WriteJSON(message); err != nil {
				log.Printf("WriteJSON error: %v", err)
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendInitData hands the joiner the reconstructed feed, the online list
// and the remaining send quota.
func (h *ChatWebSocketHandler) sendInitData(ctx context.Context, client *ChatClient, room *ChatRoom) {
	users, err := room.presence.GetOnlineUsers(ctx, room.ID)
	if err != nil {
		log.Printf("Failed to get online users: %v", err)
		users = []redis.UserInfo{}
	}

	remaining := h.remainingQuota(ctx, room.ID)

	initMsg := map[string]interface{}{
		"type": "init",
		"payload": map[string]interface{}{
			"users":     users,
			"messages":  room.feedEntries(),
			"remaining": remaining,
			"limit":     h.quota.Limit(),
		},
	}

	client.trySend(initMsg)
}

func (h *ChatWebSocketHandler) handleMessage(client *ChatClient, msg map[string]interface{}) {
	msgType, ok := msg["type"].(string)
	if !ok {
		return
	}

	payload, _ := msg["payload"].(map[string]interface{})

	switch msgType {
	case "action":
		h.handleCustomerAction(client, payload)
	case "staff-read":
		h.handleStaffRead(client)
	}
}

// handleCustomerAction writes the room slot with the customer's choice.
// The hourly quota is checked first; a blocked send only notifies the
// sender, nothing reaches the slot.
func (h *ChatWebSocketHandler) handleCustomerAction(client *ChatClient, payload map[string]interface{}) {
	action, ok := payload["selectedAction"].(string)
	if !ok || action == "" {
		return
	}

	ctx := client.ctx
	roomID := client.Room.ID

	allowed, err := h.quota.CanSend(ctx, roomID)
	if err != nil {
		log.Printf("Quota check failed: %v", err)
		h.sendError(client, "operation failed")
		return
	}
	if !allowed {
		client.trySend(map[string]interface{}{
			"type": "limit-exceeded",
			"payload": map[string]interface{}{
				"remaining": 0,
				"limit":     h.quota.Limit(),
			},
		})
		return
	}

	msg, err := h.chat.SendCustomerAction(ctx, roomID, client.UserID, action)
	if err != nil {
		if errors.Is(err, services.ErrUnknownAction) {
			h.sendError(client, "unknown action")
			return
		}
		log.Printf("Failed to write message slot: %v", err)
		h.sendError(client, "operation failed")
		return
	}

	remaining, err := h.quota.RecordSend(ctx, roomID)
	if err != nil {
		log.Printf("Failed to record send: %v", err)
	}

	h.publishStatus(ctx, roomID, action, true)

	client.Room.ApplyChange(services.SlotChange{Type: services.ChangeModified, Message: *msg})

	client.trySend(map[string]interface{}{
		"type": "limit",
		"payload": map[string]interface{}{
			"remaining": remaining,
			"limit":     h.quota.Limit(),
		},
	})
}

// handleStaffRead acknowledges the current slot. From the data model's
// view this is the staff reply: the same row is rewritten with the read
// flag and timestamp, and the feed synthesizes the canned reply from
// that transition.
func (h *ChatWebSocketHandler) handleStaffRead(client *ChatClient) {
	if client.UserType != services.UserTypeStaff {
		return
	}

	ctx := client.ctx
	roomID := client.Room.ID

	msg, err := h.chat.AcknowledgeAsStaff(ctx, roomID)
	if err != nil {
		if errors.Is(err, services.ErrNoMessage) {
			h.sendError(client, "no message to acknowledge")
			return
		}
		log.Printf("Failed to acknowledge message: %v", err)
		h.sendError(client, "operation failed")
		return
	}

	// staff replies count against the same room quota
	remaining, err := h.quota.RecordSend(ctx, roomID)
	if err != nil {
		log.Printf("Failed to record send: %v", err)
	}

	h.publishStatus(ctx, roomID, models.ActionStaffReply, false)

	client.Room.ApplyChange(services.SlotChange{Type: services.ChangeModified, Message: *msg})

	client.trySend(map[string]interface{}{
		"type": "limit",
		"payload": map[string]interface{}{
			"remaining": remaining,
			"limit":     h.quota.Limit(),
		},
	})
}

func (h *ChatWebSocketHandler) publishStatus(ctx context.Context, roomID, action string, isCustomer bool) {
	if h.producer == nil {
		return
	}
	room, err := h.chat.Room(ctx, roomID)
	if err != nil {
		log.Printf("Failed to load room for status event: %v", err)
		return
	}
	event := kafka.StatusEvent{
		RoomID:     roomID,
		RouteID:    room.RouteID,
		KyotenID:   room.KyotenID,
		StaffID:    room.StaffID,
		Action:     action,
		IsCustomer: isCustomer,
		OccurredAt: time.Now().Unix(),
	}
	if err := h.producer.PublishStatus(event); err != nil {
		log.Printf("Failed to publish status event: %v", err)
	}
}

func (h *ChatWebSocketHandler) sendError(client *ChatClient, message string) {
	client.trySend(map[string]interface{}{
		"type": "error",
		"payload": map[string]interface{}{
			"message": message,
		},
	})
}

func (h *ChatWebSocketHandler) remainingQuota(ctx context.Context, roomID string) int {
	remaining, err := h.quota.Remaining(ctx, roomID)
	if err != nil {
		log.Printf("Failed to read remaining quota: %v", err)
		return 0
	}
	return remaining
}

// GetMessages reconstructs the room's message history over HTTP for
// clients without an open socket.
func (h *ChatWebSocketHandler) GetMessages(c echo.Context) error {
	roomID := c.Param("roomId")

	slot, err := h.chat.Slot(c.Request().Context(), roomID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to fetch messages",
		})
	}

	feed := services.NewRoomFeed(roomID)
	if slot != nil {
		feed.Apply(services.SlotChange{Type: services.ChangeAdded, Message: *slot})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"room_id":  roomID,
		"messages": feed.Entries(),
	})
}

// GetOnlineUsers returns the room's presence list over HTTP.
func (h *ChatWebSocketHandler) GetOnlineUsers(c echo.Context) error {
	roomID := c.Param("roomId")

	users, err := h.presence.GetOnlineUsers(c.Request().Context(), roomID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to fetch online users",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"room_id": roomID,
		"count":   len(users),
		"users":   users,
	})
}
