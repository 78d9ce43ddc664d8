package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"handcrafted-haven/internal/models"
	"handcrafted-haven/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderPlaced publishes OrderPlaced event
func (ep *EventPublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	return ep.producer.PublishEvent(ctx, "order-"+event.OrderID.String(), event)
}

// PublishOrderCancelled publishes OrderCancelled event
func (ep *EventPublisher) PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error {
	return ep.producer.PublishEvent(ctx, "order-"+event.OrderID.String(), event)
}

// PublishOrderItemStatusChanged publishes OrderItemStatusChanged event
func (ep *EventPublisher) PublishOrderItemStatusChanged(ctx context.Context, event *models.OrderItemStatusChangedEvent) error {
	return ep.producer.PublishEvent(ctx, "order-"+event.OrderID.String(), event)
}

// PublishReviewSubmitted publishes ReviewSubmitted event
func (ep *EventPublisher) PublishReviewSubmitted(ctx context.Context, event *models.ReviewSubmittedEvent) error {
	return ep.producer.PublishEvent(ctx, "product-"+event.ProductID.String(), event)
}

// PublishMessageSent publishes MessageSent event
func (ep *EventPublisher) PublishMessageSent(ctx context.Context, event *models.MessageSentEvent) error {
	return ep.producer.PublishEvent(ctx, "conversation-"+event.ConversationID.String(), event)
}

// PublishMessagesRead publishes MessagesRead event
func (ep *EventPublisher) PublishMessagesRead(ctx context.Context, event *models.MessagesReadEvent) error {
	return ep.producer.PublishEvent(ctx, "conversation-"+event.ConversationID.String(), event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onOrderPlaced            func(context.Context, *models.OrderPlacedEvent) error
	onOrderCancelled         func(context.Context, *models.OrderCancelledEvent) error
	onOrderItemStatusChanged func(context.Context, *models.OrderItemStatusChangedEvent) error
	onMessageSent            func(context.Context, *models.MessageSentEvent) error
	onMessagesRead           func(context.Context, *models.MessagesReadEvent) error
	logger                   *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnOrderPlaced registers a handler for OrderPlaced events
func (eh *EventHandler) OnOrderPlaced(handler func(context.Context, *models.OrderPlacedEvent) error) {
	eh.onOrderPlaced = handler
}

// OnOrderCancelled registers a handler for OrderCancelled events
func (eh *EventHandler) OnOrderCancelled(handler func(context.Context, *models.OrderCancelledEvent) error) {
	eh.onOrderCancelled = handler
}

// OnOrderItemStatusChanged registers a handler for OrderItemStatusChanged events
func (eh *EventHandler) OnOrderItemStatusChanged(handler func(context.Context, *models.OrderItemStatusChangedEvent) error) {
	eh.onOrderItemStatusChanged = handler
}

// OnMessageSent registers a handler for MessageSent events
func (eh *EventHandler) OnMessageSent(handler func(context.Context, *models.MessageSentEvent) error) {
	eh.onMessageSent = handler
}

// OnMessagesRead registers a handler for MessagesRead events
func (eh *EventHandler) OnMessagesRead(handler func(context.Context, *models.MessagesReadEvent) error) {
	eh.onMessagesRead = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("event_type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID),
	)

	switch baseEvent.EventType {
	case models.EventTypeOrderPlaced:
		if eh.onOrderPlaced != nil {
			var event models.OrderPlacedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderPlaced event: %w", err)
			}
			return eh.onOrderPlaced(ctx, &event)
		}

	case models.EventTypeOrderCancelled:
		if eh.onOrderCancelled != nil {
			var event models.OrderCancelledEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderCancelled event: %w", err)
			}
			return eh.onOrderCancelled(ctx, &event)
		}

	case models.EventTypeOrderItemStatusChanged:
		if eh.onOrderItemStatusChanged != nil {
			var event models.OrderItemStatusChangedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderItemStatusChanged event: %w", err)
			}
			return eh.onOrderItemStatusChanged(ctx, &event)
		}

	case models.EventTypeMessageSent:
		if eh.onMessageSent != nil {
			var event models.MessageSentEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal MessageSent event: %w", err)
			}
			return eh.onMessageSent(ctx, &event)
		}

	case models.EventTypeMessagesRead:
		if eh.onMessagesRead != nil {
			var event models.MessagesReadEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal MessagesRead event: %w", err)
			}
			return eh.onMessagesRead(ctx, &event)
		}

	default:
		eh.logger.Debug("Unhandled event type", zap.String("event_type", baseEvent.EventType))
	}

	return nil
}
