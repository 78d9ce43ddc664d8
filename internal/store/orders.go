package store

import (
	"context"
	"fmt"

	"handcrafted-haven/internal/apperr"
	"handcrafted-haven/internal/domain"
	"handcrafted-haven/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const orderColumns = `id, customer_id, total_amount, status, shipping_address, payment_method,
	payment_status, notes, idempotency_key, created_at, updated_at`

const orderItemColumns = `id, order_id, product_id, seller_id, customer_id, product_name,
	product_price, quantity, subtotal, status, created_at, updated_at`

// CreateOrderFromCart turns the customer's cart into one pending order in a
// single transaction: the cart rows are locked, snapshotted into order items
// at the current discounted price, and deleted.
func (s *Store) CreateOrderFromCart(ctx context.Context, customerID uuid.UUID, req models.NewOrder) (*models.Order, []models.OrderItem, error) {
	var (
		order models.Order
		items []models.OrderItem
	)

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var lines []models.CartLine
		err := tx.SelectContext(ctx, &lines, `
			SELECT c.id, c.customer_id, c.product_id, c.quantity, c.created_at, c.updated_at,
				p.seller_id, p.name AS product_name, p.price, p.discount_percentage,
				p.stock_quantity, p.is_active, p.image_url
			FROM cart_items c
			JOIN products p ON p.id = c.product_id
			WHERE c.customer_id = $1
			ORDER BY c.created_at, c.id
			FOR UPDATE OF c`, customerID)
		if err != nil {
			return fmt.Errorf("failed to lock cart: %w", err)
		}

		built, total, err := domain.BuildOrderItems(customerID, lines)
		if err != nil {
			return err
		}
		items = built

		var key *string
		if req.IdempotencyKey != "" {
			key = &req.IdempotencyKey
		}
		err = tx.GetContext(ctx, &order, `
			INSERT INTO orders (customer_id, total_amount, status, shipping_address,
				payment_method, payment_status, notes, idempotency_key)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING `+orderColumns,
			customerID, total, models.OrderStatusPending, req.ShippingAddress,
			req.PaymentMethod, models.PaymentStatusPending, req.Notes, key)
		if isUniqueViolation(err) {
			return apperr.Conflict("order with idempotency key %q already exists", req.IdempotencyKey)
		}
		if err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for i := range items {
			items[i].OrderID = order.ID
			err := tx.GetContext(ctx, &items[i], `
				INSERT INTO order_items (order_id, product_id, seller_id, customer_id, product_name,
					product_price, quantity, subtotal, status)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				RETURNING `+orderItemColumns,
				items[i].OrderID, items[i].ProductID, items[i].SellerID, items[i].CustomerID,
				items[i].ProductName, items[i].ProductPrice, items[i].Quantity, items[i].Subtotal,
				items[i].Status)
			if err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}
		}

		cartIDs := make([]string, len(lines))
		for i, line := range lines {
			cartIDs[i] = line.ID.String()
		}
		_, err = tx.ExecContext(ctx,
			"DELETE FROM cart_items WHERE customer_id = $1 AND id = ANY($2::uuid[])",
			customerID, pq.StringArray(cartIDs))
		if err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &order, items, nil
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	if isNoRows(err) {
		return nil, apperr.NotFound("order not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByIdempotencyKey retrieves an order by idempotency key
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT "+orderColumns+" FROM orders WHERE idempotency_key = $1", key)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrdersByCustomer retrieves orders for a customer, newest first
func (s *Store) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders,
		"SELECT "+orderColumns+" FROM orders WHERE customer_id = $1 ORDER BY created_at DESC, id", customerID)
	return orders, err
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	err := s.db.SelectContext(ctx, &items,
		"SELECT "+orderItemColumns+" FROM order_items WHERE order_id = $1 ORDER BY seller_id, product_name", orderID)
	return items, err
}

// GetOrderItemByID retrieves one order item
func (s *Store) GetOrderItemByID(ctx context.Context, id uuid.UUID) (*models.OrderItem, error) {
	var item models.OrderItem
	err := s.db.GetContext(ctx, &item, "SELECT "+orderItemColumns+" FROM order_items WHERE id = $1", id)
	if isNoRows(err) {
		return nil, apperr.NotFound("order item not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListOrderItemsBySeller returns the items a seller has to fulfil. A nil
// status lists every item.
func (s *Store) ListOrderItemsBySeller(ctx context.Context, sellerID uuid.UUID, status *models.OrderStatus) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	query := "SELECT " + orderItemColumns + " FROM order_items WHERE seller_id = $1"
	args := []interface{}{sellerID}
	if status != nil {
		query += " AND status = $2"
		args = append(args, *status)
	}
	query += " ORDER BY created_at DESC, id"

	err := s.db.SelectContext(ctx, &items, query, args...)
	return items, err
}

func lockOrderTx(ctx context.Context, tx *sqlx.Tx, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := tx.GetContext(ctx, &order,
		"SELECT "+orderColumns+" FROM orders WHERE id = $1 FOR UPDATE", orderID)
	if isNoRows(err) {
		return nil, apperr.NotFound("order not found: %s", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	return &order, nil
}

// syncOrderStatusTx recomputes an order's status from its items.
func syncOrderStatusTx(ctx context.Context, tx *sqlx.Tx, orderID uuid.UUID) (models.OrderStatus, error) {
	var statuses []models.OrderStatus
	err := tx.SelectContext(ctx, &statuses, "SELECT status FROM order_items WHERE order_id = $1", orderID)
	if err != nil {
		return "", fmt.Errorf("failed to read item statuses: %w", err)
	}

	// payment settles on delivery and is refunded if a paid order ends cancelled
	status := domain.DeriveOrderStatus(statuses)
	_, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
			payment_status = CASE
				WHEN $1 = 'delivered' THEN 'paid'
				WHEN $1 = 'cancelled' AND payment_status = 'paid' THEN 'refunded'
				ELSE payment_status
			END,
			updated_at = NOW()
		WHERE id = $2`, status, orderID)
	if err != nil {
		return "", fmt.Errorf("failed to update order status: %w", err)
	}
	return status, nil
}

// TransitionOrderItemStatus moves one of the seller's order items to a new
// status. The status write, the stock change it implies and the parent order
// status all commit together or not at all. Locks are taken order first, then
// item, the same order CancelOrder uses.
func (s *Store) TransitionOrderItemStatus(ctx context.Context, sellerID, itemID uuid.UUID, to models.OrderStatus) (*models.StatusTransition, error) {
	var orderID uuid.UUID
	err := s.db.GetContext(ctx, &orderID, "SELECT order_id FROM order_items WHERE id = $1", itemID)
	if isNoRows(err) {
		return nil, apperr.NotFound("order item not found: %s", itemID)
	}
	if err != nil {
		return nil, err
	}

	var result models.StatusTransition
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := lockOrderTx(ctx, tx, orderID); err != nil {
			return err
		}

		var item models.OrderItem
		err := tx.GetContext(ctx, &item,
			"SELECT "+orderItemColumns+" FROM order_items WHERE id = $1 FOR UPDATE", itemID)
		if isNoRows(err) {
			return apperr.NotFound("order item not found: %s", itemID)
		}
		if err != nil {
			return fmt.Errorf("failed to lock order item: %w", err)
		}
		if item.SellerID != sellerID {
			return apperr.Unauthorized("order item %s belongs to another seller", itemID)
		}

		effect, err := domain.PlanTransition(item.Status, to)
		if err != nil {
			return err
		}

		delta := effect.Delta(item.Quantity)
		var stock int
		if delta != 0 {
			stock, err = adjustStockTx(ctx, tx, item.ProductID, delta)
		} else {
			err = tx.GetContext(ctx, &stock,
				"SELECT stock_quantity FROM products WHERE id = $1", item.ProductID)
		}
		if err != nil {
			return err
		}

		from := item.Status
		err = tx.GetContext(ctx, &item, `
			UPDATE order_items SET status = $1, updated_at = NOW()
			WHERE id = $2
			RETURNING `+orderItemColumns, to, itemID)
		if err != nil {
			return fmt.Errorf("failed to update order item: %w", err)
		}

		orderStatus, err := syncOrderStatusTx(ctx, tx, orderID)
		if err != nil {
			return err
		}

		result = models.StatusTransition{
			Item:          item,
			From:          from,
			StockDelta:    delta,
			StockQuantity: stock,
			OrderStatus:   orderStatus,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CancelOrder cancels a customer's order while nothing in it has been
// accepted yet. No stock was taken for pending items so none is restored.
func (s *Store) CancelOrder(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, []models.OrderItem, error) {
	var (
		order *models.Order
		items []models.OrderItem
	)

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		order, err = lockOrderTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.CustomerID != customerID {
			return apperr.Unauthorized("order %s belongs to another customer", orderID)
		}

		err = tx.SelectContext(ctx, &items,
			"SELECT "+orderItemColumns+" FROM order_items WHERE order_id = $1 ORDER BY seller_id, product_name FOR UPDATE",
			orderID)
		if err != nil {
			return fmt.Errorf("failed to lock order items: %w", err)
		}
		for _, item := range items {
			if item.Status != models.OrderStatusPending {
				return apperr.Validation("order can no longer be cancelled: %s is %s", item.ProductName, item.Status)
			}
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE order_items SET status = $1, updated_at = NOW() WHERE order_id = $2",
			models.OrderStatusCancelled, orderID)
		if err != nil {
			return fmt.Errorf("failed to cancel order items: %w", err)
		}
		for i := range items {
			items[i].Status = models.OrderStatusCancelled
		}

		err = tx.GetContext(ctx, order, `
			UPDATE orders SET status = $1, updated_at = NOW()
			WHERE id = $2
			RETURNING `+orderColumns, models.OrderStatusCancelled, orderID)
		if err != nil {
			return fmt.Errorf("failed to cancel order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return order, items, nil
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
