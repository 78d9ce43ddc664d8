package service

import (
	"context"

	"handcrafted-haven/internal/models"
	"handcrafted-haven/internal/util"

	"github.com/google/uuid"
)

// FavoriteService handles a customer's saved products
type FavoriteService struct {
	store FavoriteStore
}

func NewFavoriteService(store FavoriteStore) *FavoriteService {
	return &FavoriteService{store: store}
}

// AddFavorite saves a product. Saving it twice is a no-op.
func (s *FavoriteService) AddFavorite(ctx context.Context, customerID, productID uuid.UUID) error {
	ctx, span := util.StartSpan(ctx, "FavoriteService.AddFavorite")
	defer span.End()

	return s.store.AddFavorite(ctx, customerID, productID)
}

func (s *FavoriteService) RemoveFavorite(ctx context.Context, customerID, productID uuid.UUID) error {
	ctx, span := util.StartSpan(ctx, "FavoriteService.RemoveFavorite")
	defer span.End()

	return s.store.RemoveFavorite(ctx, customerID, productID)
}

func (s *FavoriteService) IsFavorite(ctx context.Context, customerID, productID uuid.UUID) (bool, error) {
	ctx, span := util.StartSpan(ctx, "FavoriteService.IsFavorite")
	defer span.End()

	return s.store.IsFavorite(ctx, customerID, productID)
}

func (s *FavoriteService) ListFavorites(ctx context.Context, customerID uuid.UUID) ([]models.ProductView, error) {
	ctx, span := util.StartSpan(ctx, "FavoriteService.ListFavorites")
	defer span.End()

	products, err := s.store.ListFavoriteProducts(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.ProductView{}
	}
	return products, nil
}
