package domain

import (
	"strings"

	"handcrafted-haven/internal/apperr"
	"handcrafted-haven/internal/models"

	"github.com/shopspring/decimal"
)

var maxDiscount = decimal.NewFromInt(100)

// ValidateProduct checks the seller-editable fields of a listing.
func ValidateProduct(p models.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperr.Validation("product name is required")
	}
	if !p.Category.Valid() {
		return apperr.Validation("unknown category %q", p.Category)
	}
	if p.Price.IsNegative() {
		return apperr.Validation("price cannot be negative")
	}
	if p.DiscountPercentage.IsNegative() || p.DiscountPercentage.GreaterThan(maxDiscount) {
		return apperr.Validation("discount must be between 0 and 100")
	}
	if p.StockQuantity < 0 {
		return apperr.Validation("stock quantity cannot be negative")
	}
	return nil
}
