package domain

import (
	"sort"
	"strings"

	"handcrafted-haven/internal/apperr"
	"handcrafted-haven/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValidateNewOrder checks the checkout form.
func ValidateNewOrder(req models.NewOrder) error {
	if strings.TrimSpace(req.ShippingAddress) == "" {
		return apperr.Validation("shipping address is required")
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return apperr.Validation("payment method is required")
	}
	return nil
}

// BuildOrderItems snapshots cart lines into pending order items, grouped by
// seller, and returns the order total. Lines are rejected when the product is
// inactive or the cart asks for more than is in stock.
func BuildOrderItems(customerID uuid.UUID, lines []models.CartLine) ([]models.OrderItem, decimal.Decimal, error) {
	if len(lines) == 0 {
		return nil, decimal.Zero, apperr.ErrEmptyCart
	}

	sorted := make([]models.CartLine, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].SellerID.String(), sorted[j].SellerID.String()
		if a != b {
			return a < b
		}
		return sorted[i].ProductName < sorted[j].ProductName
	})

	items := make([]models.OrderItem, 0, len(sorted))
	total := decimal.Zero
	for _, line := range sorted {
		if !line.IsActive {
			return nil, decimal.Zero, apperr.Validation("%s is no longer available", line.ProductName)
		}
		if line.Quantity <= 0 {
			return nil, decimal.Zero, apperr.Validation("invalid quantity for %s", line.ProductName)
		}
		if line.Quantity > line.StockQuantity {
			return nil, decimal.Zero, apperr.InsufficientStock("only %d of %s left", line.StockQuantity, line.ProductName)
		}

		price := line.UnitPrice()
		subtotal := price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		items = append(items, models.OrderItem{
			ProductID:    line.ProductID,
			SellerID:     line.SellerID,
			CustomerID:   customerID,
			ProductName:  line.ProductName,
			ProductPrice: price,
			Quantity:     line.Quantity,
			Subtotal:     subtotal,
			Status:       models.OrderStatusPending,
		})
		total = total.Add(subtotal)
	}

	return items, total, nil
}
