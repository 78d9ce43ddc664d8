package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderPlaced            = "ORDER_PLACED"
	EventTypeOrderCancelled         = "ORDER_CANCELLED"
	EventTypeOrderItemStatusChanged = "ORDER_ITEM_STATUS_CHANGED"
	EventTypeReviewSubmitted        = "REVIEW_SUBMITTED"
	EventTypeMessageSent            = "MESSAGE_SENT"
	EventTypeMessagesRead           = "MESSAGES_READ"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBaseEvent stamps a fresh event id and time.
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

// OrderPlacedEvent published after checkout commits
type OrderPlacedEvent struct {
	BaseEvent
	OrderID     uuid.UUID       `json:"order_id"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []OrderItemData `json:"items"`
}

// OrderCancelledEvent published when a customer cancels a pending order
type OrderCancelledEvent struct {
	BaseEvent
	OrderID    uuid.UUID   `json:"order_id"`
	CustomerID uuid.UUID   `json:"customer_id"`
	SellerIDs  []uuid.UUID `json:"seller_ids"`
}

// OrderItemStatusChangedEvent published after a seller moves an item
type OrderItemStatusChangedEvent struct {
	BaseEvent
	OrderID     uuid.UUID   `json:"order_id"`
	OrderItemID uuid.UUID   `json:"order_item_id"`
	ProductID   uuid.UUID   `json:"product_id"`
	SellerID    uuid.UUID   `json:"seller_id"`
	CustomerID  uuid.UUID   `json:"customer_id"`
	From        OrderStatus `json:"from"`
	To          OrderStatus `json:"to"`
	StockDelta  int         `json:"stock_delta"`
	OrderStatus OrderStatus `json:"order_status"`
}

// ReviewSubmittedEvent published when a review is stored
type ReviewSubmittedEvent struct {
	BaseEvent
	ReviewID    uuid.UUID `json:"review_id"`
	ProductID   uuid.UUID `json:"product_id"`
	OrderItemID uuid.UUID `json:"order_item_id"`
	Rating      int       `json:"rating"`
}

// MessageSentEvent published after a message is persisted
type MessageSentEvent struct {
	BaseEvent
	MessageID      uuid.UUID `json:"message_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	RecipientID    uuid.UUID `json:"recipient_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// MessagesReadEvent published when a participant reads a conversation
type MessagesReadEvent struct {
	BaseEvent
	ConversationID uuid.UUID `json:"conversation_id"`
	ReaderID       uuid.UUID `json:"reader_id"`
	Count          int64     `json:"count"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	OrderItemID uuid.UUID       `json:"order_item_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	SellerID    uuid.UUID       `json:"seller_id"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}
