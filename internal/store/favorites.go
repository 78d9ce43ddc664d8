package store

import (
	"context"

	"handcrafted-haven/internal/apperr"
	"handcrafted-haven/internal/models"

	"github.com/google/uuid"
)

// AddFavorite saves a product for a customer. Saving twice is a no-op.
func (s *Store) AddFavorite(ctx context.Context, customerID, productID uuid.UUID) error {
	var exists bool
	err := s.db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)", productID)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound("product not found: %s", productID)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO favorites (customer_id, product_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		customerID, productID)
	return err
}

// RemoveFavorite unsaves a product
func (s *Store) RemoveFavorite(ctx context.Context, customerID, productID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM favorites WHERE customer_id = $1 AND product_id = $2", customerID, productID)
	return err
}

// IsFavorite reports whether the customer saved the product
func (s *Store) IsFavorite(ctx context.Context, customerID, productID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM favorites WHERE customer_id = $1 AND product_id = $2)",
		customerID, productID)
	return exists, err
}

// ListFavoriteProducts returns the products a customer saved, most recent first
func (s *Store) ListFavoriteProducts(ctx context.Context, customerID uuid.UUID) ([]models.ProductView, error) {
	products := []models.ProductView{}
	err := s.db.SelectContext(ctx, &products, `
		SELECT `+productColumns+`, COALESCE(s.business_name, '') AS seller_name
		FROM favorites f
		JOIN products p ON p.id = f.product_id
		LEFT JOIN sellers s ON s.id = p.seller_id
		WHERE f.customer_id = $1
		ORDER BY f.created_at DESC, p.id`, customerID)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].DiscountedPrice = products[i].Product.DiscountedPrice()
	}
	return products, nil
}
