package service

import (
	"context"
	"fmt"
	"time"

	"handcrafted-haven/internal/apperr"
	"handcrafted-haven/internal/domain"
	"handcrafted-haven/internal/models"
	"handcrafted-haven/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const idempotencyTTL = 24 * time.Hour

// OrderService handles checkout and order fulfilment
type OrderService struct {
	store          OrderStore
	guard          CheckoutGuard
	eventPublisher EventPublisher
	lockTTL        time.Duration
	logger         *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	store OrderStore,
	guard CheckoutGuard,
	eventPublisher EventPublisher,
	lockTTL time.Duration,
) *OrderService {
	if lockTTL <= 0 {
		lockTTL = 15 * time.Second
	}
	return &OrderService{
		store:          store,
		guard:          guard,
		eventPublisher: eventPublisher,
		lockTTL:        lockTTL,
		logger:         util.GetLogger(),
	}
}

// Checkout turns the customer's cart into a pending order. Retrying with the
// same idempotency key returns the order created by the first attempt, with
// replayed set.
func (s *OrderService) Checkout(ctx context.Context, customerID uuid.UUID, req models.NewOrder) (detail *models.OrderDetail, replayed bool, err error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Checkout")
	defer func() { util.EndSpan(span, err) }()

	start := time.Now()

	if err := domain.ValidateNewOrder(req); err != nil {
		util.CheckoutsFailedTotal.WithLabelValues("invalid_request").Inc()
		return nil, false, err
	}

	if req.IdempotencyKey != "" {
		existing, err := s.findByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return s.replay(ctx, customerID, existing)
		}
	}

	lockKey := "checkout:" + customerID.String()
	token, ok, err := s.guard.AcquireLock(ctx, lockKey, s.lockTTL)
	if err != nil {
		return nil, false, fmt.Errorf("failed to lock checkout: %w", err)
	}
	if !ok {
		util.CheckoutsFailedTotal.WithLabelValues("in_progress").Inc()
		return nil, false, apperr.Conflict("a checkout is already in progress")
	}
	defer func() {
		if err := s.guard.ReleaseLock(context.Background(), lockKey, token); err != nil {
			s.logger.Warn("Failed to release checkout lock", zap.Error(err))
		}
	}()

	order, items, err := s.store.CreateOrderFromCart(ctx, customerID, req)
	if apperr.KindOf(err) == apperr.KindConflict && req.IdempotencyKey != "" {
		// another node committed the same key between our lookup and insert
		existing, lookupErr := s.store.GetOrderByIdempotencyKey(ctx, req.IdempotencyKey)
		if lookupErr != nil {
			return nil, false, lookupErr
		}
		if existing != nil {
			return s.replay(ctx, customerID, existing)
		}
	}
	if err != nil {
		reason := string(apperr.KindOf(err))
		if reason == "" {
			reason = "db_error"
		}
		util.CheckoutsFailedTotal.WithLabelValues(reason).Inc()
		return nil, false, fmt.Errorf("failed to check out: %w", err)
	}

	util.CheckoutsTotal.Inc()
	util.CheckoutLatency.Observe(time.Since(start).Seconds())
	s.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("customer_id", customerID.String()),
		zap.String("total", order.TotalAmount.StringFixed(2)),
		zap.Int("items", len(items)))

	if req.IdempotencyKey != "" {
		if err := s.guard.SetIdempotencyKey(ctx, req.IdempotencyKey, order.ID.String(), idempotencyTTL); err != nil {
			s.logger.Warn("Failed to cache idempotency key", zap.Error(err))
		}
	}

	s.publishOrderPlaced(ctx, order, items)
	return &models.OrderDetail{Order: *order, Items: items}, false, nil
}

// findByIdempotencyKey checks the Redis cache first and falls back to the
// unique key stored on the order row.
func (s *OrderService) findByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	if cached, found, err := s.guard.GetIdempotencyKey(ctx, key); err != nil {
		s.logger.Warn("Idempotency cache unavailable", zap.Error(err))
	} else if found {
		if orderID, err := uuid.Parse(cached); err == nil {
			order, err := s.store.GetOrderByID(ctx, orderID)
			if err == nil {
				return order, nil
			}
			if apperr.KindOf(err) != apperr.KindNotFound {
				return nil, err
			}
		}
	}

	order, err := s.store.GetOrderByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	return order, nil
}

func (s *OrderService) replay(ctx context.Context, customerID uuid.UUID, order *models.Order) (*models.OrderDetail, bool, error) {
	if order.CustomerID != customerID {
		util.CheckoutsFailedTotal.WithLabelValues(string(apperr.KindConflict)).Inc()
		return nil, false, apperr.Conflict("idempotency key already used")
	}

	items, err := s.store.GetOrderItemsByOrderID(ctx, order.ID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load order items: %w", err)
	}

	util.CheckoutsReplayedTotal.Inc()
	s.logger.Info("Duplicate checkout request detected", zap.String("order_id", order.ID.String()))
	return &models.OrderDetail{Order: *order, Items: items}, true, nil
}

func (s *OrderService) publishOrderPlaced(ctx context.Context, order *models.Order, items []models.OrderItem) {
	data := make([]models.OrderItemData, 0, len(items))
	for _, item := range items {
		data = append(data, models.OrderItemData{
			OrderItemID: item.ID,
			ProductID:   item.ProductID,
			SellerID:    item.SellerID,
			Quantity:    item.Quantity,
			UnitPrice:   item.ProductPrice,
		})
	}

	event := &models.OrderPlacedEvent{
		BaseEvent:   models.NewBaseEvent(models.EventTypeOrderPlaced),
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		TotalAmount: order.TotalAmount,
		Items:       data,
	}
	if err := s.eventPublisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}
}

// GetOrder returns an order as the viewer may see it. Customers see their own
// orders in full; sellers see only the items they sell.
func (s *OrderService) GetOrder(ctx context.Context, viewerID uuid.UUID, role models.Role, orderID uuid.UUID) (*models.OrderDetail, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if role == models.RoleCustomer && order.CustomerID != viewerID {
		return nil, apperr.NotFound("order not found: %s", orderID)
	}

	items, err := s.store.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}

	if role == models.RoleSeller {
		own := items[:0:0]
		for _, item := range items {
			if item.SellerID == viewerID {
				own = append(own, item)
			}
		}
		if len(own) == 0 {
			return nil, apperr.NotFound("order not found: %s", orderID)
		}
		items = own
	}

	return &models.OrderDetail{Order: *order, Items: items}, nil
}

// ListCustomerOrders returns a customer's orders, newest first
func (s *OrderService) ListCustomerOrders(ctx context.Context, customerID uuid.UUID) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListCustomerOrders")
	defer span.End()

	return s.store.ListOrdersByCustomer(ctx, customerID)
}

// ListSellerOrderItems returns the order items a seller has to fulfil. An
// empty status lists all of them.
func (s *OrderService) ListSellerOrderItems(ctx context.Context, sellerID uuid.UUID, status models.OrderStatus) ([]models.OrderItem, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListSellerOrderItems")
	defer span.End()

	var filter *models.OrderStatus
	if status != "" {
		if !status.Valid() {
			return nil, apperr.Validation("unknown status %q", status)
		}
		filter = &status
	}
	return s.store.ListOrderItemsBySeller(ctx, sellerID, filter)
}

// TransitionOrderItemStatus moves one of the seller's order items forward or
// cancels it, adjusting stock when the item crosses the accept or release
// boundary.
func (s *OrderService) TransitionOrderItemStatus(ctx context.Context, sellerID, itemID uuid.UUID, to models.OrderStatus) (res *models.StatusTransition, err error) {
	ctx, span := util.StartSpan(ctx, "OrderService.TransitionOrderItemStatus")
	defer func() { util.EndSpan(span, err) }()

	if !to.Valid() {
		return nil, apperr.Validation("unknown status %q", to)
	}

	res, err = s.store.TransitionOrderItemStatus(ctx, sellerID, itemID, to)
	if err != nil {
		if kind := apperr.KindOf(err); kind == apperr.KindInsufficientStock {
			util.StockAdjustmentsFailed.WithLabelValues(string(kind)).Inc()
		}
		return nil, err
	}

	util.OrderItemTransitionsTotal.WithLabelValues(string(res.From), string(to)).Inc()
	switch {
	case res.StockDelta < 0:
		util.StockAdjustmentsTotal.WithLabelValues(domain.StockDecrement.String()).Add(float64(-res.StockDelta))
	case res.StockDelta > 0:
		util.StockAdjustmentsTotal.WithLabelValues(domain.StockRestore.String()).Add(float64(res.StockDelta))
	}

	s.logger.Info("Order item status changed",
		zap.String("order_item_id", itemID.String()),
		zap.String("from", string(res.From)),
		zap.String("to", string(to)),
		zap.Int("stock_delta", res.StockDelta),
		zap.Int("stock_quantity", res.StockQuantity))

	event := &models.OrderItemStatusChangedEvent{
		BaseEvent:   models.NewBaseEvent(models.EventTypeOrderItemStatusChanged),
		OrderID:     res.Item.OrderID,
		OrderItemID: res.Item.ID,
		ProductID:   res.Item.ProductID,
		SellerID:    res.Item.SellerID,
		CustomerID:  res.Item.CustomerID,
		From:        res.From,
		To:          to,
		StockDelta:  res.StockDelta,
		OrderStatus: res.OrderStatus,
	}
	if err := s.eventPublisher.PublishOrderItemStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderItemStatusChanged event", zap.Error(err))
	}

	return res, nil
}

// CancelOrder lets a customer withdraw an order no seller has accepted yet
func (s *OrderService) CancelOrder(ctx context.Context, customerID, orderID uuid.UUID) (*models.OrderDetail, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CancelOrder")
	defer span.End()

	order, items, err := s.store.CancelOrder(ctx, customerID, orderID)
	if err != nil {
		return nil, err
	}

	util.OrdersCancelledTotal.Inc()
	s.logger.Info("Order cancelled", zap.String("order_id", orderID.String()))

	seen := make(map[uuid.UUID]bool)
	var sellers []uuid.UUID
	for _, item := range items {
		if !seen[item.SellerID] {
			seen[item.SellerID] = true
			sellers = append(sellers, item.SellerID)
		}
	}

	event := &models.OrderCancelledEvent{
		BaseEvent:  models.NewBaseEvent(models.EventTypeOrderCancelled),
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		SellerIDs:  sellers,
	}
	if err := s.eventPublisher.PublishOrderCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
	}

	return &models.OrderDetail{Order: *order, Items: items}, nil
}
