package service

import (
	"context"
	"fmt"

	"handcrafted-haven/internal/apperr"
	"handcrafted-haven/internal/domain"
	"handcrafted-haven/internal/models"
	"handcrafted-haven/internal/storage"
	"handcrafted-haven/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxPageSize = 100

// CatalogService handles product listings
type CatalogService struct {
	store           CatalogStore
	uploader        Uploader
	defaultPageSize int
	logger          *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store CatalogStore, uploader Uploader, defaultPageSize int) *CatalogService {
	if defaultPageSize <= 0 {
		defaultPageSize = 24
	}
	return &CatalogService{
		store:           store,
		uploader:        uploader,
		defaultPageSize: defaultPageSize,
		logger:          util.GetLogger(),
	}
}

// ProductInput is the editable part of a product
type ProductInput struct {
	Name               string          `json:"name" binding:"required"`
	Description        string          `json:"description"`
	Category           models.Category `json:"category" binding:"required"`
	Price              decimal.Decimal `json:"price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	StockQuantity      int             `json:"stock_quantity"`
	IsActive           *bool           `json:"is_active"`
}

func (in ProductInput) apply(p *models.Product) {
	p.Name = in.Name
	p.Description = in.Description
	p.Category = in.Category
	p.Price = in.Price
	p.DiscountPercentage = in.DiscountPercentage
	p.StockQuantity = in.StockQuantity
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
}

// ListProducts browses the catalog. Only active products are listed unless a
// seller looks at their own shop.
func (s *CatalogService) ListProducts(ctx context.Context, viewerID *uuid.UUID, filter models.ProductFilter) ([]models.ProductView, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListProducts")
	defer span.End()

	if filter.Category != "" && !filter.Category.Valid() {
		return nil, apperr.Validation("unknown category %q", filter.Category)
	}
	if filter.Limit <= 0 {
		filter.Limit = s.defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	ownShop := viewerID != nil && filter.SellerID != nil && *viewerID == *filter.SellerID
	filter.IncludeInactive = filter.IncludeInactive && ownShop

	products, err := s.store.ListProducts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// GetProduct returns one product. Inactive products are only visible to the
// seller who owns them.
func (s *CatalogService) GetProduct(ctx context.Context, viewerID *uuid.UUID, productID uuid.UUID) (*models.ProductView, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetProduct")
	defer span.End()

	product, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive && (viewerID == nil || *viewerID != product.SellerID) {
		return nil, apperr.NotFound("product not found: %s", productID)
	}

	view := models.NewProductView(*product)
	return &view, nil
}

// CreateProduct lists a new product for a seller whose shop profile is complete
func (s *CatalogService) CreateProduct(ctx context.Context, sellerID uuid.UUID, in ProductInput) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	profile, err := s.store.GetSellerProfile(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if !profile.Complete() {
		return nil, apperr.Validation("complete your shop profile before listing products")
	}

	product := &models.Product{SellerID: sellerID, IsActive: true}
	in.apply(product)
	if err := domain.ValidateProduct(*product); err != nil {
		return nil, err
	}

	if err := s.store.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("Product listed",
		zap.String("product_id", product.ID.String()),
		zap.String("seller_id", sellerID.String()))
	return product, nil
}

// UpdateProduct edits a seller's own product
func (s *CatalogService) UpdateProduct(ctx context.Context, sellerID, productID uuid.UUID, in ProductInput) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateProduct")
	defer span.End()

	product, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.SellerID != sellerID {
		return nil, apperr.Unauthorized("product %s belongs to another seller", productID)
	}

	in.apply(product)
	if err := domain.ValidateProduct(*product); err != nil {
		return nil, err
	}
	if err := s.store.UpdateProduct(ctx, sellerID, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

// SetProductActive hides or re-lists a product. Products are never deleted
// because order items and reviews point at them.
func (s *CatalogService) SetProductActive(ctx context.Context, sellerID, productID uuid.UUID, active bool) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.SetProductActive")
	defer span.End()

	if err := s.store.SetProductActive(ctx, sellerID, productID, active); err != nil {
		return err
	}
	s.logger.Info("Product visibility changed",
		zap.String("product_id", productID.String()),
		zap.Bool("active", active))
	return nil
}

// UploadProductImage stores an image and points the product at it
func (s *CatalogService) UploadProductImage(ctx context.Context, sellerID, productID uuid.UUID, file Upload) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UploadProductImage")
	defer span.End()

	product, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.SellerID != sellerID {
		return nil, apperr.Unauthorized("product %s belongs to another seller", productID)
	}

	obj, err := s.uploader.Upload(ctx, sellerID, storage.KindProductImage, file.Filename, file.Size, file.Reader)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetProductImage(ctx, sellerID, productID, obj.URL); err != nil {
		return nil, err
	}

	product.ImageURL = obj.URL
	return product, nil
}
