package service

import (
	"context"
	"fmt"

	"handcrafted-haven/internal/apperr"
	"handcrafted-haven/internal/models"
	"handcrafted-haven/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartService handles the customer's cart
type CartService struct {
	store  CartStore
	logger *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(store CartStore) *CartService {
	return &CartService{store: store, logger: util.GetLogger()}
}

// AddToCart adds qty units of a product. The resulting quantity is the
// existing one plus qty, capped at the product's stock. A cap that leaves
// nothing removes the row and returns StockUnavailable. A partial cap keeps
// the row and reports it through Clamped and a stock_unavailable Warning.
func (s *CartService) AddToCart(ctx context.Context, customerID, productID uuid.UUID, qty int) (*models.CartResult, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddToCart")
	defer span.End()

	if qty < 1 {
		return nil, apperr.Validation("quantity must be at least 1")
	}

	result, err := s.store.AddToCart(ctx, customerID, productID, qty)
	if err != nil {
		return nil, fmt.Errorf("failed to add to cart: %w", err)
	}
	return s.settle(productID, result)
}

// UpdateQuantity sets the quantity of a cart row already in the cart. Zero
// removes it.
func (s *CartService) UpdateQuantity(ctx context.Context, customerID, productID uuid.UUID, qty int) (*models.CartResult, error) {
	ctx, span := util.StartSpan(ctx, "CartService.UpdateQuantity")
	defer span.End()

	if qty < 0 {
		return nil, apperr.Validation("quantity cannot be negative")
	}
	if qty == 0 {
		if err := s.store.RemoveCartItem(ctx, customerID, productID); err != nil {
			return nil, err
		}
		return &models.CartResult{Requested: 0}, nil
	}

	result, err := s.store.SetCartItemQuantity(ctx, customerID, productID, qty)
	if err != nil {
		return nil, fmt.Errorf("failed to update cart: %w", err)
	}
	return s.settle(productID, result)
}

func (s *CartService) settle(productID uuid.UUID, result *models.CartResult) (*models.CartResult, error) {
	if !result.Clamped {
		return result, nil
	}

	result.Warning = models.CartWarningStockUnavailable
	util.CartClampedTotal.Inc()
	s.logger.Debug("Cart quantity capped at stock",
		zap.String("product_id", productID.String()),
		zap.Int("requested", result.Requested))

	if result.Item == nil {
		return result, apperr.StockUnavailable("product %s is out of stock", productID)
	}
	return result, nil
}

// RemoveFromCart deletes one product from the cart
func (s *CartService) RemoveFromCart(ctx context.Context, customerID, productID uuid.UUID) error {
	ctx, span := util.StartSpan(ctx, "CartService.RemoveFromCart")
	defer span.End()

	return s.store.RemoveCartItem(ctx, customerID, productID)
}

// ClearCart empties the cart
func (s *CartService) ClearCart(ctx context.Context, customerID uuid.UUID) error {
	ctx, span := util.StartSpan(ctx, "CartService.ClearCart")
	defer span.End()

	return s.store.ClearCart(ctx, customerID)
}

// GetCart returns the cart priced at the current discounted prices
func (s *CartService) GetCart(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.GetCart")
	defer span.End()

	lines, err := s.store.GetCartLines(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.UnitPrice().Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	if lines == nil {
		lines = []models.CartLine{}
	}
	return &models.Cart{Lines: lines, Total: total}, nil
}
