package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"handcrafted-haven/internal/apperr"
	"handcrafted-haven/internal/domain"
	"handcrafted-haven/internal/models"
	"handcrafted-haven/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReviewService handles product reviews
type ReviewService struct {
	store          ReviewStore
	eventPublisher EventPublisher
	maxChars       int
	logger         *zap.Logger
}

// NewReviewService creates a new review service
func NewReviewService(store ReviewStore, eventPublisher EventPublisher, maxChars int) *ReviewService {
	return &ReviewService{
		store:          store,
		eventPublisher: eventPublisher,
		maxChars:       maxChars,
		logger:         util.GetLogger(),
	}
}

// ReviewInput is a review as submitted by a customer
type ReviewInput struct {
	OrderItemID uuid.UUID `json:"order_item_id" binding:"required"`
	Rating      int       `json:"rating" binding:"required"`
	Comment     string    `json:"comment" binding:"required"`
	IsAnonymous bool      `json:"is_anonymous"`
}

// CanReview reports whether customerID may review the order item: the item's
// order is theirs, it was delivered and it has no review yet.
func (s *ReviewService) CanReview(ctx context.Context, customerID, orderItemID uuid.UUID) (bool, error) {
	ctx, span := util.StartSpan(ctx, "ReviewService.CanReview")
	defer span.End()

	target, err := s.store.GetReviewTarget(ctx, orderItemID)
	if apperr.KindOf(err) == apperr.KindNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load review target: %w", err)
	}

	switch err := domain.CheckReviewEligibility(customerID, *target); apperr.KindOf(err) {
	case "":
		return true, nil
	case apperr.KindNotEligible, apperr.KindDuplicateReview:
		return false, nil
	default:
		return false, err
	}
}

// SubmitReview stores a review. Eligibility is checked again inside the
// store transaction, so a second submit for the same item fails with
// DuplicateReview.
func (s *ReviewService) SubmitReview(ctx context.Context, customerID uuid.UUID, in ReviewInput) (review *models.ProductReview, err error) {
	ctx, span := util.StartSpan(ctx, "ReviewService.SubmitReview")
	defer func() { util.EndSpan(span, err) }()

	comment := strings.TrimSpace(in.Comment)
	if err := domain.ValidateReview(in.Rating, comment, s.maxChars); err != nil {
		return nil, err
	}

	review = &models.ProductReview{
		OrderItemID: in.OrderItemID,
		CustomerID:  customerID,
		Rating:      in.Rating,
		Comment:     comment,
		IsAnonymous: in.IsAnonymous,
	}
	if err := s.store.CreateReview(ctx, review); err != nil {
		return nil, err
	}

	util.ReviewsSubmittedTotal.WithLabelValues(strconv.Itoa(review.Rating)).Inc()
	s.logger.Info("Review submitted",
		zap.String("review_id", review.ID.String()),
		zap.String("product_id", review.ProductID.String()),
		zap.Int("rating", review.Rating))

	event := &models.ReviewSubmittedEvent{
		BaseEvent:   models.NewBaseEvent(models.EventTypeReviewSubmitted),
		ReviewID:    review.ID,
		ProductID:   review.ProductID,
		OrderItemID: review.OrderItemID,
		Rating:      review.Rating,
	}
	if err := s.eventPublisher.PublishReviewSubmitted(ctx, event); err != nil {
		s.logger.Error("Failed to publish ReviewSubmitted event", zap.Error(err))
	}

	return review, nil
}

// ListProductReviews returns a product's reviews with anonymous reviewers
// masked, plus the average rating.
func (s *ReviewService) ListProductReviews(ctx context.Context, productID uuid.UUID) (*models.ReviewSummary, error) {
	ctx, span := util.StartSpan(ctx, "ReviewService.ListProductReviews")
	defer span.End()

	reviews, err := s.store.ListProductReviews(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	for i := range reviews {
		reviews[i].ReviewerName = domain.ReviewerDisplayName(reviews[i].ReviewerName, reviews[i].IsAnonymous)
	}
	if reviews == nil {
		reviews = []models.ReviewView{}
	}

	avg, count, err := s.store.ReviewStats(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute review stats: %w", err)
	}

	return &models.ReviewSummary{Reviews: reviews, AverageRating: avg, Count: count}, nil
}
