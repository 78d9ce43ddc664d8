package worker

import (
	"context"

	"handcrafted-haven/internal/broker"
	"handcrafted-haven/internal/service"
	"handcrafted-haven/internal/util"

	"go.uber.org/zap"
)

// RealtimeWorker consumes marketplace events and fans them out as live
// notifications
type RealtimeWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewRealtimeWorker creates a new realtime worker
func NewRealtimeWorker(
	consumer *broker.Consumer,
	dispatcher *service.NotificationDispatcher,
) *RealtimeWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnOrderPlaced(dispatcher.HandleOrderPlaced)
	eventHandler.OnOrderCancelled(dispatcher.HandleOrderCancelled)
	eventHandler.OnOrderItemStatusChanged(dispatcher.HandleOrderItemStatusChanged)
	eventHandler.OnMessageSent(dispatcher.HandleMessageSent)
	eventHandler.OnMessagesRead(dispatcher.HandleMessagesRead)

	return &RealtimeWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

// Start blocks consuming events until ctx is cancelled
func (w *RealtimeWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting realtime worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *RealtimeWorker) Stop() error {
	w.logger.Info("Stopping realtime worker")
	return w.consumer.Close()
}
