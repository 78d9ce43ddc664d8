package store

import (
	"context"
	"fmt"
	"strings"

	"handcrafted-haven/internal/apperr"
	"handcrafted-haven/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const productColumns = `p.id, p.seller_id, p.name, p.description, p.category, p.price,
	p.discount_percentage, p.stock_quantity, p.is_active, p.image_url, p.created_at, p.updated_at`

// CreateProduct inserts a new listing
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (seller_id, name, description, category, price,
			discount_percentage, stock_quantity, is_active, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	row := s.db.QueryRowxContext(ctx, query,
		product.SellerID, product.Name, product.Description, product.Category, product.Price,
		product.DiscountPercentage, product.StockQuantity, product.IsActive, product.ImageURL)
	return row.Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product,
		"SELECT "+productColumns+" FROM products p WHERE p.id = $1", id)
	if isNoRows(err) {
		return nil, apperr.NotFound("product not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts returns catalog entries matching filter, newest first
func (s *Store) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.ProductView, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !filter.IncludeInactive {
		where = append(where, "p.is_active")
	}
	if filter.Category != "" {
		where = append(where, "p.category = "+arg(filter.Category))
	}
	if filter.SellerID != nil {
		where = append(where, "p.seller_id = "+arg(*filter.SellerID))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := arg("%" + search + "%")
		where = append(where, "(p.name ILIKE "+pattern+" OR p.description ILIKE "+pattern+")")
	}

	query := "SELECT " + productColumns + ", COALESCE(s.business_name, '') AS seller_name " +
		"FROM products p LEFT JOIN sellers s ON s.id = p.seller_id"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY p.created_at DESC, p.id"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	var products []models.ProductView
	if err := s.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, err
	}
	for i := range products {
		products[i].DiscountedPrice = products[i].Product.DiscountedPrice()
	}
	return products, nil
}

// lockOwnedProduct locks a product row and checks it belongs to sellerID
func lockOwnedProduct(ctx context.Context, tx *sqlx.Tx, productID, sellerID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := tx.GetContext(ctx, &product,
		"SELECT "+productColumns+" FROM products p WHERE p.id = $1 FOR UPDATE", productID)
	if isNoRows(err) {
		return nil, apperr.NotFound("product not found: %s", productID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock product: %w", err)
	}
	if product.SellerID != sellerID {
		return nil, apperr.Unauthorized("product %s belongs to another seller", productID)
	}
	return &product, nil
}

// UpdateProduct overwrites the editable fields of a seller's own product
func (s *Store) UpdateProduct(ctx context.Context, sellerID uuid.UUID, product *models.Product) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := lockOwnedProduct(ctx, tx, product.ID, sellerID); err != nil {
			return err
		}

		query := `
			UPDATE products
			SET name = $1, description = $2, category = $3, price = $4,
				discount_percentage = $5, stock_quantity = $6, is_active = $7, updated_at = NOW()
			WHERE id = $8
			RETURNING seller_id, image_url, created_at, updated_at`

		row := tx.QueryRowxContext(ctx, query,
			product.Name, product.Description, product.Category, product.Price,
			product.DiscountPercentage, product.StockQuantity, product.IsActive, product.ID)
		return row.Scan(&product.SellerID, &product.ImageURL, &product.CreatedAt, &product.UpdatedAt)
	})
}

// SetProductActive soft-activates or deactivates a listing. Products are never
// deleted because order items keep pointing at them.
func (s *Store) SetProductActive(ctx context.Context, sellerID, productID uuid.UUID, active bool) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := lockOwnedProduct(ctx, tx, productID, sellerID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"UPDATE products SET is_active = $1, updated_at = NOW() WHERE id = $2", active, productID)
		return err
	})
}

// SetProductImage stores the public URL of a product image
func (s *Store) SetProductImage(ctx context.Context, sellerID, productID uuid.UUID, imageURL string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := lockOwnedProduct(ctx, tx, productID, sellerID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"UPDATE products SET image_url = $1, updated_at = NOW() WHERE id = $2", imageURL, productID)
		return err
	})
}

// adjustStockTx applies delta to a product's stock inside tx. Decrements use
// a conditional update so stock never goes below zero; a miss means there is
// not enough left.
func adjustStockTx(ctx context.Context, tx *sqlx.Tx, productID uuid.UUID, delta int) (int, error) {
	var stock int
	var err error
	if delta < 0 {
		err = tx.GetContext(ctx, &stock, `
			UPDATE products SET stock_quantity = stock_quantity - $1, updated_at = NOW()
			WHERE id = $2 AND stock_quantity >= $1
			RETURNING stock_quantity`, -delta, productID)
		if isNoRows(err) {
			return 0, apperr.InsufficientStock("not enough stock for product %s", productID)
		}
	} else {
		err = tx.GetContext(ctx, &stock, `
			UPDATE products SET stock_quantity = stock_quantity + $1, updated_at = NOW()
			WHERE id = $2
			RETURNING stock_quantity`, delta, productID)
		if isNoRows(err) {
			return 0, apperr.NotFound("product not found: %s", productID)
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to adjust stock: %w", err)
	}
	return stock, nil
}
