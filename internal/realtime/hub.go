// Package realtime delivers live notifications to connected clients over
// Redis pub/sub. Payloads only announce that something changed; clients
// re-fetch the resource through the API. Delivery is best effort.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"handcrafted-haven/internal/redisclient"
	"handcrafted-haven/internal/util"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notification types
const (
	TypeMessageNew        = "message.new"
	TypeMessagesRead      = "messages.read"
	TypeOrderItemStatus   = "order_item.status"
	TypeOrderPlaced       = "order.placed"
	TypeOrderCancelled    = "order.cancelled"
	TypeUnreadCountChange = "messages.unread"
)

// Notification is what subscribers receive
type Notification struct {
	Type           string     `json:"type"`
	ConversationID *uuid.UUID `json:"conversation_id,omitempty"`
	MessageID      *uuid.UUID `json:"message_id,omitempty"`
	OrderID        *uuid.UUID `json:"order_id,omitempty"`
	OrderItemID    *uuid.UUID `json:"order_item_id,omitempty"`
	Status         string     `json:"status,omitempty"`
	ActorID        *uuid.UUID `json:"actor_id,omitempty"`
	At             time.Time  `json:"at"`
}

// ConversationChannel carries events for everyone watching one conversation
func ConversationChannel(id uuid.UUID) string {
	return "conversation:" + id.String()
}

// UserChannel carries events addressed to one user
func UserChannel(id uuid.UUID) string {
	return "user:" + id.String()
}

// Hub publishes and subscribes notifications
type Hub struct {
	redis  *redisclient.Client
	logger *zap.Logger
}

func NewHub(redis *redisclient.Client) *Hub {
	return &Hub{redis: redis, logger: util.GetLogger()}
}

// Publish sends n on channel
func (h *Hub) Publish(ctx context.Context, channel string, n Notification) error {
	if n.At.IsZero() {
		n.At = time.Now().UTC()
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := h.redis.Publish(ctx, channel, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	util.RealtimeNotificationsTotal.WithLabelValues(n.Type).Inc()
	return nil
}

// Subscription is an open feed of notifications
type Subscription struct {
	pubsub *redis.PubSub
	out    chan Notification
	done   chan struct{}
	once   sync.Once
}

// Subscribe opens a feed on channels. The subscription is confirmed before
// returning so no notification published afterwards is missed.
func (h *Hub) Subscribe(ctx context.Context, channels ...string) (*Subscription, error) {
	pubsub := h.redis.Subscribe(ctx, channels...)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	s := &Subscription{
		pubsub: pubsub,
		out:    make(chan Notification, 16),
		done:   make(chan struct{}),
	}
	go s.pump(h.logger)
	return s, nil
}

func (s *Subscription) pump(logger *zap.Logger) {
	defer close(s.out)
	for msg := range s.pubsub.Channel() {
		var n Notification
		if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
			logger.Warn("Dropping malformed notification", zap.String("channel", msg.Channel), zap.Error(err))
			continue
		}
		select {
		case s.out <- n:
		case <-s.done:
			return
		}
	}
}

// C returns the notification stream. It is closed after Close.
func (s *Subscription) C() <-chan Notification {
	return s.out
}

// Close ends the subscription
func (s *Subscription) Close() error {
	s.once.Do(func() { close(s.done) })
	return s.pubsub.Close()
}
