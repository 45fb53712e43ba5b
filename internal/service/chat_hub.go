package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/forumly-api/internal/dto"
	"github.com/noah-isme/forumly-api/internal/observability"
)

const (
	chatSendBufferSize = 32
	chatPingInterval   = 30 * time.Second
)

// ChatPublisher delivers freshly stored messages to live subscribers.
type ChatPublisher interface {
	Publish(ctx context.Context, message dto.ChatMessageResponse)
}

// ChatStreamConn is the part of a websocket connection the hub drives.
type ChatStreamConn interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// ChatHub fans chat messages out to websocket streams on this node and, when
// configured, to other nodes through redis pub/sub or NATS.
type ChatHub struct {
	mu           sync.RWMutex
	rooms        map[uint]map[*chatClient]struct{}
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	nodeID       string
	pingInterval time.Duration
	logger       zerolog.Logger
}

type chatClient struct {
	roomID uint
	userID uint
	send   chan dto.ChatMessageResponse
}

type chatEvent struct {
	Source  string                  `json:"source"`
	Message dto.ChatMessageResponse `json:"message"`
	SentAt  time.Time               `json:"sent_at"`
}

// NewChatHub creates a hub. redisClient and natsConn are optional; when both are
// given NATS carries the fan-out so remote messages are not delivered twice.
func NewChatHub(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) *ChatHub {
	redisChannel := ""
	natsSubject := ""
	if channelBase != "" {
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".chat"
		if natsConn == nil {
			redisChannel = channelBase + ":chat"
		}
	}

	return &ChatHub{
		rooms:        make(map[uint]map[*chatClient]struct{}),
		redis:        redisClient,
		redisChannel: redisChannel,
		nats:         natsConn,
		natsSubject:  natsSubject,
		nodeID:       uuid.NewString(),
		pingInterval: chatPingInterval,
		logger:       logger.With().Str("component", "chat_hub").Logger(),
	}
}

// Start subscribes to the cross-node channels. Consumers stop when ctx is cancelled.
func (h *ChatHub) Start(ctx context.Context) {
	if h.redis != nil && h.redisChannel != "" {
		pubsub := h.redis.Subscribe(ctx, h.redisChannel)
		if _, err := pubsub.Receive(ctx); err != nil {
			h.logger.Error().Err(err).Msg("failed to subscribe to chat redis channel")
			_ = pubsub.Close()
		} else {
			go h.consumeRedis(ctx, pubsub)
		}
	}
	if h.nats != nil && h.natsSubject != "" {
		h.consumeNATS(ctx)
	}
}

// Publish broadcasts locally and forwards the message to other nodes.
func (h *ChatHub) Publish(ctx context.Context, message dto.ChatMessageResponse) {
	h.broadcast(message)
	observability.ChatMessagesSent().WithLabelValues(message.MessageType, "local").Inc()

	event := chatEvent{Source: h.nodeID, Message: message, SentAt: time.Now().UTC()}
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to marshal chat event")
		return
	}

	if h.redis != nil && h.redisChannel != "" {
		if err := h.redis.Publish(ctx, h.redisChannel, payload).Err(); err != nil {
			h.logger.Warn().Err(err).Msg("failed to publish chat event to redis")
		}
	}
	if h.nats != nil && h.natsSubject != "" {
		if err := h.nats.Publish(h.natsSubject, payload); err != nil {
			h.logger.Warn().Err(err).Msg("failed to publish chat event to nats")
		}
	}
}

// Serve streams messages for roomID to conn until the client disconnects or ctx ends.
// Inbound frames are drained and ignored; sending goes through the REST endpoint.
func (h *ChatHub) Serve(ctx context.Context, conn ChatStreamConn, roomID, userID uint) {
	client := h.register(roomID, userID)
	observability.ChatStreamsActive().Inc()
	defer func() {
		h.unregister(client)
		observability.ChatStreamsActive().Dec()
		_ = conn.Close()
	}()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.logger.Debug().Err(err).Uint("room_id", roomID).Msg("chat read loop ended")
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case message := <-client.send:
			if err := conn.WriteJSON(message); err != nil {
				h.logger.Debug().Err(err).Uint("room_id", roomID).Msg("chat write loop terminated")
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				h.logger.Debug().Err(err).Uint("room_id", roomID).Msg("chat ping failed")
				return
			}
		}
	}
}

// Subscribers reports how many streams are open for the room on this node.
func (h *ChatHub) Subscribers(roomID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *ChatHub) register(roomID, userID uint) *chatClient {
	client := &chatClient{
		roomID: roomID,
		userID: userID,
		send:   make(chan dto.ChatMessageResponse, chatSendBufferSize),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.rooms[roomID]; !exists {
		h.rooms[roomID] = make(map[*chatClient]struct{})
	}
	h.rooms[roomID][client] = struct{}{}
	h.logger.Debug().Uint("room_id", roomID).Uint("user_id", userID).Msg("chat client connected")
	return client
}

func (h *ChatHub) unregister(client *chatClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.rooms[client.roomID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, client.roomID)
		}
	}
	h.logger.Debug().Uint("room_id", client.roomID).Uint("user_id", client.userID).Msg("chat client disconnected")
}

func (h *ChatHub) broadcast(message dto.ChatMessageResponse) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[message.RoomID] {
		select {
		case client.send <- message:
		default:
			h.logger.Warn().Uint("room_id", message.RoomID).Uint("user_id", client.userID).Msg("dropping chat message for slow client")
		}
	}
}

func (h *ChatHub) consumeRedis(ctx context.Context, pubsub *redis.PubSub) {
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) {
				return
			}
			h.logger.Error().Err(err).Msg("chat redis subscription closed")
			return
		}
		h.handleEvent([]byte(msg.Payload))
	}
}

func (h *ChatHub) consumeNATS(ctx context.Context) {
	sub, err := h.nats.Subscribe(h.natsSubject, func(msg *nats.Msg) {
		h.handleEvent(msg.Data)
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to subscribe to nats chat subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			h.logger.Warn().Err(err).Msg("failed to drain chat nats subscription")
		}
	}()
}

func (h *ChatHub) handleEvent(data []byte) {
	var event chatEvent
	if err := json.Unmarshal(data, &event); err != nil {
		h.logger.Warn().Err(err).Msg("invalid chat event")
		return
	}

	if event.Source == h.nodeID {
		return
	}

	observability.ChatMessagesSent().WithLabelValues(event.Message.MessageType, "remote").Inc()
	h.broadcast(event.Message)
}
