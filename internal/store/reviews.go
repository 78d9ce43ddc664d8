package store

import (
	"context"
	"fmt"

	"handcrafted-haven/internal/apperr"
	"handcrafted-haven/internal/domain"
	"handcrafted-haven/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type reviewTargetRow struct {
	OrderItemID     uuid.UUID          `db:"order_item_id"`
	ProductID       uuid.UUID          `db:"product_id"`
	OrderCustomerID uuid.UUID          `db:"order_customer_id"`
	OrderStatus     models.OrderStatus `db:"order_status"`
	AlreadyReviewed bool               `db:"already_reviewed"`
}

func (r reviewTargetRow) target() domain.ReviewTarget {
	return domain.ReviewTarget{
		OrderItemID:     r.OrderItemID,
		ProductID:       r.ProductID,
		OrderCustomerID: r.OrderCustomerID,
		OrderStatus:     r.OrderStatus,
		AlreadyReviewed: r.AlreadyReviewed,
	}
}

const reviewTargetQuery = `
	SELECT oi.id AS order_item_id, oi.product_id, o.customer_id AS order_customer_id,
		o.status AS order_status,
		EXISTS (SELECT 1 FROM product_reviews r WHERE r.order_item_id = oi.id) AS already_reviewed
	FROM order_items oi
	JOIN orders o ON o.id = oi.order_id
	WHERE oi.id = $1`

// GetReviewTarget loads what the review gate needs about an order item
func (s *Store) GetReviewTarget(ctx context.Context, orderItemID uuid.UUID) (*domain.ReviewTarget, error) {
	var row reviewTargetRow
	err := s.db.GetContext(ctx, &row, reviewTargetQuery, orderItemID)
	if isNoRows(err) {
		return nil, apperr.NotFound("order item not found: %s", orderItemID)
	}
	if err != nil {
		return nil, err
	}
	t := row.target()
	return &t, nil
}

// CreateReview stores a review after re-checking eligibility under a lock on
// the order item. The unique order_item_id column backs the once-per-item rule
// if two submissions still race.
func (s *Store) CreateReview(ctx context.Context, review *models.ProductReview) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var row reviewTargetRow
		err := tx.GetContext(ctx, &row, reviewTargetQuery+" FOR UPDATE OF oi", review.OrderItemID)
		if isNoRows(err) {
			return apperr.NotFound("order item not found: %s", review.OrderItemID)
		}
		if err != nil {
			return fmt.Errorf("failed to lock order item: %w", err)
		}
		if err := domain.CheckReviewEligibility(review.CustomerID, row.target()); err != nil {
			return err
		}

		review.ProductID = row.ProductID
		err = tx.GetContext(ctx, review, `
			INSERT INTO product_reviews (product_id, order_item_id, customer_id, rating, comment, is_anonymous)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, product_id, order_item_id, customer_id, rating, comment, is_anonymous, created_at`,
			review.ProductID, review.OrderItemID, review.CustomerID, review.Rating, review.Comment, review.IsAnonymous)
		if isUniqueViolation(err) {
			return apperr.DuplicateReview("order item already reviewed")
		}
		return err
	})
}

// ListProductReviews returns a product's reviews, newest first, with the
// reviewer's full name. Masking anonymous names is left to the caller.
func (s *Store) ListProductReviews(ctx context.Context, productID uuid.UUID) ([]models.ReviewView, error) {
	reviews := []models.ReviewView{}
	err := s.db.SelectContext(ctx, &reviews, `
		SELECT r.id, r.product_id, r.order_item_id, r.customer_id, r.rating, r.comment,
			r.is_anonymous, r.created_at, COALESCE(c.full_name, '') AS reviewer_name
		FROM product_reviews r
		LEFT JOIN customers c ON c.id = r.customer_id
		WHERE r.product_id = $1
		ORDER BY r.created_at DESC, r.id`, productID)
	return reviews, err
}

// ReviewStats returns the average rating, rounded to two places, and the count
func (s *Store) ReviewStats(ctx context.Context, productID uuid.UUID) (decimal.Decimal, int, error) {
	var stats struct {
		Average decimal.Decimal `db:"average"`
		Count   int             `db:"count"`
	}
	err := s.db.GetContext(ctx, &stats, `
		SELECT COALESCE(ROUND(AVG(rating)::numeric, 2), 0) AS average, COUNT(*) AS count
		FROM product_reviews WHERE product_id = $1`, productID)
	if err != nil {
		return decimal.Zero, 0, err
	}
	return stats.Average, stats.Count, nil
}
