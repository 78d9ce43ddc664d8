package store

import (
	"context"
	"fmt"

	"handcrafted-haven/internal/apperr"
	"handcrafted-haven/internal/domain"
	"handcrafted-haven/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const cartLineQuery = `
	SELECT c.id, c.customer_id, c.product_id, c.quantity, c.created_at, c.updated_at,
		p.seller_id, p.name AS product_name, p.price, p.discount_percentage,
		p.stock_quantity, p.is_active, p.image_url
	FROM cart_items c
	JOIN products p ON p.id = c.product_id
	WHERE c.customer_id = $1
	ORDER BY c.created_at, c.id`

// AddToCart adds qty units of a product to the customer's cart. An existing
// row is incremented, never duplicated, and the total is clamped to stock.
func (s *Store) AddToCart(ctx context.Context, customerID, productID uuid.UUID, qty int) (*models.CartResult, error) {
	var result *models.CartResult
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		stock, err := lockCartProductTx(ctx, tx, productID)
		if err != nil {
			return err
		}
		existing, err := cartQuantityTx(ctx, tx, customerID, productID)
		if err != nil {
			return err
		}
		result, err = writeCartQuantityTx(ctx, tx, customerID, productID, existing+qty, stock)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetCartItemQuantity overwrites the quantity of an existing cart row,
// clamped to stock. A quantity of zero removes the row. A product that is not
// in the cart is NotFound.
func (s *Store) SetCartItemQuantity(ctx context.Context, customerID, productID uuid.UUID, qty int) (*models.CartResult, error) {
	var result *models.CartResult
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		stock, err := lockCartProductTx(ctx, tx, productID)
		if err != nil {
			return err
		}
		existing, err := cartQuantityTx(ctx, tx, customerID, productID)
		if err != nil {
			return err
		}
		if existing == 0 {
			return apperr.NotFound("product %s is not in the cart", productID)
		}
		result, err = writeCartQuantityTx(ctx, tx, customerID, productID, qty, stock)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// lockCartProductTx locks the product row so concurrent cart writes for the
// same product run one after another, and returns the stock a cart may hold.
// Inactive products have none.
func lockCartProductTx(ctx context.Context, tx *sqlx.Tx, productID uuid.UUID) (int, error) {
	var product struct {
		StockQuantity int  `db:"stock_quantity"`
		IsActive      bool `db:"is_active"`
	}
	err := tx.GetContext(ctx, &product,
		"SELECT stock_quantity, is_active FROM products WHERE id = $1 FOR UPDATE", productID)
	if isNoRows(err) {
		return 0, apperr.NotFound("product not found: %s", productID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock product: %w", err)
	}
	if !product.IsActive {
		return 0, nil
	}
	return product.StockQuantity, nil
}

// cartQuantityTx returns the quantity in the cart, or zero when there is no row
func cartQuantityTx(ctx context.Context, tx *sqlx.Tx, customerID, productID uuid.UUID) (int, error) {
	var qty int
	err := tx.GetContext(ctx, &qty,
		"SELECT quantity FROM cart_items WHERE customer_id = $1 AND product_id = $2",
		customerID, productID)
	if isNoRows(err) {
		return 0, nil
	}
	return qty, err
}

// writeCartQuantityTx stores min(wanted, stock), deleting the row at zero.
func writeCartQuantityTx(ctx context.Context, tx *sqlx.Tx, customerID, productID uuid.UUID, wanted, stock int) (*models.CartResult, error) {
	qty, clamped := domain.ClampCartQuantity(wanted, stock)
	result := &models.CartResult{Requested: wanted, Clamped: clamped}

	if qty == 0 {
		_, err := tx.ExecContext(ctx,
			"DELETE FROM cart_items WHERE customer_id = $1 AND product_id = $2", customerID, productID)
		return result, err
	}

	var item models.CartItem
	err := tx.GetContext(ctx, &item, `
		INSERT INTO cart_items (customer_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (customer_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = NOW()
		RETURNING id, customer_id, product_id, quantity, created_at, updated_at`,
		customerID, productID, qty)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert cart item: %w", err)
	}
	result.Item = &item
	return result, nil
}

// RemoveCartItem deletes one product from the cart
func (s *Store) RemoveCartItem(ctx context.Context, customerID, productID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE customer_id = $1 AND product_id = $2", customerID, productID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("product %s is not in the cart", productID)
	}
	return nil
}

// ClearCart empties the customer's cart
func (s *Store) ClearCart(ctx context.Context, customerID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cart_items WHERE customer_id = $1", customerID)
	return err
}

// GetCartLines returns the cart joined with live product data
func (s *Store) GetCartLines(ctx context.Context, customerID uuid.UUID) ([]models.CartLine, error) {
	lines := []models.CartLine{}
	if err := s.db.SelectContext(ctx, &lines, cartLineQuery, customerID); err != nil {
		return nil, err
	}
	return lines, nil
}
