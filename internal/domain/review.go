package domain

import (
	"strings"
	"unicode/utf8"

	"handcrafted-haven/internal/apperr"
	"handcrafted-haven/internal/models"

	"github.com/google/uuid"
)

// MaxReviewCommentLength caps review comments, counted in characters.
const MaxReviewCommentLength = 1000

// AnonymousReviewer replaces the reviewer name on anonymous reviews.
const AnonymousReviewer = "Anonymous"

// ReviewTarget is what the eligibility gate needs to know about an order item.
type ReviewTarget struct {
	OrderItemID     uuid.UUID
	ProductID       uuid.UUID
	OrderCustomerID uuid.UUID
	OrderStatus     models.OrderStatus
	AlreadyReviewed bool
}

// CheckReviewEligibility enforces that only the buyer of a delivered order
// may review an item, and only once.
func CheckReviewEligibility(customerID uuid.UUID, t ReviewTarget) error {
	if t.OrderCustomerID != customerID {
		return apperr.NotEligible("order item was not purchased by this customer")
	}
	if t.OrderStatus != models.OrderStatusDelivered {
		return apperr.NotEligible("order is %s, reviews open after delivery", t.OrderStatus)
	}
	if t.AlreadyReviewed {
		return apperr.DuplicateReview("order item already reviewed")
	}
	return nil
}

// ValidateReview checks rating and comment.
func ValidateReview(rating int, comment string, maxChars int) error {
	if maxChars <= 0 {
		maxChars = MaxReviewCommentLength
	}
	if rating < 1 || rating > 5 {
		return apperr.Validation("rating must be between 1 and 5")
	}
	if strings.TrimSpace(comment) == "" {
		return apperr.Validation("comment is required")
	}
	if utf8.RuneCountInString(comment) > maxChars {
		return apperr.Validation("comment must be at most %d characters", maxChars)
	}
	return nil
}

// ReviewerDisplayName masks the name of anonymous reviewers.
func ReviewerDisplayName(name string, anonymous bool) string {
	if anonymous || strings.TrimSpace(name) == "" {
		return AnonymousReviewer
	}
	return name
}
