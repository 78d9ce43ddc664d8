package service

import (
	"context"
	"fmt"

	"handcrafted-haven/internal/models"
	"handcrafted-haven/internal/realtime"
	"handcrafted-haven/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationDispatcher turns broker events into realtime notifications for
// the users they concern. Each event is applied once; redelivered events
// already recorded in processed_events are skipped.
type NotificationDispatcher struct {
	events   EventStore
	notifier Notifier
	logger   *zap.Logger
}

// NewNotificationDispatcher creates a new notification dispatcher
func NewNotificationDispatcher(events EventStore, notifier Notifier) *NotificationDispatcher {
	return &NotificationDispatcher{
		events:   events,
		notifier: notifier,
		logger:   util.GetLogger(),
	}
}

type delivery struct {
	channel string
	n       realtime.Notification
}

// dispatch publishes deliveries unless base was handled before. The event is
// only marked processed when every publish succeeded.
func (d *NotificationDispatcher) dispatch(ctx context.Context, base models.BaseEvent, deliveries []delivery) error {
	processed, err := d.events.IsEventProcessed(ctx, base.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		d.logger.Info("Event already processed", zap.String("event_id", base.EventID))
		return nil
	}

	for _, dl := range deliveries {
		if err := d.notifier.Publish(ctx, dl.channel, dl.n); err != nil {
			return fmt.Errorf("failed to notify %s: %w", dl.channel, err)
		}
	}

	if err := d.events.MarkEventProcessed(ctx, base.EventID, base.EventType); err != nil {
		d.logger.Error("Failed to mark event processed", zap.Error(err))
	}
	return nil
}

func ref(id uuid.UUID) *uuid.UUID {
	return &id
}

// HandleOrderPlaced tells every seller in the order about the new sale
func (d *NotificationDispatcher) HandleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	ctx, span := util.StartSpan(ctx, "NotificationDispatcher.HandleOrderPlaced")
	defer span.End()

	n := realtime.Notification{
		Type:    realtime.TypeOrderPlaced,
		OrderID: ref(event.OrderID),
		Status:  string(models.OrderStatusPending),
		ActorID: ref(event.CustomerID),
		At:      event.Timestamp,
	}

	seen := make(map[uuid.UUID]bool)
	var deliveries []delivery
	for _, item := range event.Items {
		if seen[item.SellerID] {
			continue
		}
		seen[item.SellerID] = true
		deliveries = append(deliveries, delivery{realtime.UserChannel(item.SellerID), n})
	}
	return d.dispatch(ctx, event.BaseEvent, deliveries)
}

// HandleOrderCancelled tells the sellers an order was withdrawn
func (d *NotificationDispatcher) HandleOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error {
	ctx, span := util.StartSpan(ctx, "NotificationDispatcher.HandleOrderCancelled")
	defer span.End()

	n := realtime.Notification{
		Type:    realtime.TypeOrderCancelled,
		OrderID: ref(event.OrderID),
		Status:  string(models.OrderStatusCancelled),
		ActorID: ref(event.CustomerID),
		At:      event.Timestamp,
	}
	deliveries := make([]delivery, 0, len(event.SellerIDs))
	for _, sellerID := range event.SellerIDs {
		deliveries = append(deliveries, delivery{realtime.UserChannel(sellerID), n})
	}
	return d.dispatch(ctx, event.BaseEvent, deliveries)
}

// HandleOrderItemStatusChanged tells the customer their item moved
func (d *NotificationDispatcher) HandleOrderItemStatusChanged(ctx context.Context, event *models.OrderItemStatusChangedEvent) error {
	ctx, span := util.StartSpan(ctx, "NotificationDispatcher.HandleOrderItemStatusChanged")
	defer span.End()

	return d.dispatch(ctx, event.BaseEvent, []delivery{{
		channel: realtime.UserChannel(event.CustomerID),
		n: realtime.Notification{
			Type:        realtime.TypeOrderItemStatus,
			OrderID:     ref(event.OrderID),
			OrderItemID: ref(event.OrderItemID),
			Status:      string(event.To),
			ActorID:     ref(event.SellerID),
			At:          event.Timestamp,
		},
	}})
}

// HandleMessageSent notifies the open conversation and the recipient
func (d *NotificationDispatcher) HandleMessageSent(ctx context.Context, event *models.MessageSentEvent) error {
	ctx, span := util.StartSpan(ctx, "NotificationDispatcher.HandleMessageSent")
	defer span.End()

	n := realtime.Notification{
		Type:           realtime.TypeMessageNew,
		ConversationID: ref(event.ConversationID),
		MessageID:      ref(event.MessageID),
		ActorID:        ref(event.SenderID),
		At:             event.CreatedAt,
	}
	return d.dispatch(ctx, event.BaseEvent, []delivery{
		{realtime.ConversationChannel(event.ConversationID), n},
		{realtime.UserChannel(event.RecipientID), n},
	})
}

// HandleMessagesRead shows read receipts in the conversation and refreshes
// the reader's unread badge
func (d *NotificationDispatcher) HandleMessagesRead(ctx context.Context, event *models.MessagesReadEvent) error {
	ctx, span := util.StartSpan(ctx, "NotificationDispatcher.HandleMessagesRead")
	defer span.End()

	conversation := ref(event.ConversationID)
	return d.dispatch(ctx, event.BaseEvent, []delivery{
		{realtime.ConversationChannel(event.ConversationID), realtime.Notification{
			Type:           realtime.TypeMessagesRead,
			ConversationID: conversation,
			ActorID:        ref(event.ReaderID),
			At:             event.Timestamp,
		}},
		{realtime.UserChannel(event.ReaderID), realtime.Notification{
			Type:           realtime.TypeUnreadCountChange,
			ConversationID: conversation,
			At:             event.Timestamp,
		}},
	})
}
