package api

import (
	"net/http"
	"strconv"

	"handcrafted-haven/internal/models"
	"handcrafted-haven/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// productFilter reads category, q, seller_id, limit and offset
func productFilter(c *gin.Context) (models.ProductFilter, bool) {
	filter := models.ProductFilter{
		Category: models.Category(c.Query("category")),
		Search:   c.Query("q"),
	}
	if raw := c.Query("seller_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "invalid seller_id", nil)
			return filter, false
		}
		filter.SellerID = &id
	}
	if raw := c.Query("include_inactive"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "invalid include_inactive", nil)
			return filter, false
		}
		filter.IncludeInactive = include
	}

	var ok bool
	if filter.Limit, ok = queryInt(c, "limit"); !ok {
		return filter, false
	}
	if filter.Offset, ok = queryInt(c, "offset"); !ok {
		return filter, false
	}
	return filter, true
}

func (h *Handler) listProducts(c *gin.Context) {
	filter, ok := productFilter(c)
	if !ok {
		return
	}

	products, err := h.catalog.ListProducts(c.Request.Context(), h.optionalViewer(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) getProduct(c *gin.Context) {
	productID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	product, err := h.catalog.GetProduct(c.Request.Context(), h.optionalViewer(c), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// listSellerProducts lists the caller's own shop including inactive items
func (h *Handler) listSellerProducts(c *gin.Context) {
	filter, ok := productFilter(c)
	if !ok {
		return
	}
	sellerID := currentUserID(c)
	filter.SellerID = &sellerID
	filter.IncludeInactive = true

	products, err := h.catalog.ListProducts(c.Request.Context(), &sellerID, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) createProduct(c *gin.Context) {
	var in service.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	product, err := h.catalog.CreateProduct(c.Request.Context(), currentUserID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) updateProduct(c *gin.Context) {
	productID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var in service.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	product, err := h.catalog.UpdateProduct(c.Request.Context(), currentUserID(c), productID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// deactivateProduct hides a product. Rows are kept so past orders and
// reviews still resolve.
func (h *Handler) deactivateProduct(c *gin.Context) {
	productID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.catalog.SetProductActive(c.Request.Context(), currentUserID(c), productID, false); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// uploadProductImage expects a multipart form with an "image" file
func (h *Handler) uploadProductImage(c *gin.Context) {
	productID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	upload, closeUpload, ok := formUpload(c, "image")
	if !ok {
		return
	}
	defer closeUpload()

	product, err := h.catalog.UploadProductImage(c.Request.Context(), currentUserID(c), productID, *upload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) listProductReviews(c *gin.Context) {
	productID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	summary, err := h.reviews.ListProductReviews(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) reviewEligibility(c *gin.Context) {
	itemID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	eligible, err := h.reviews.CanReview(c.Request.Context(), currentUserID(c), itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"eligible": eligible})
}

func (h *Handler) submitReview(c *gin.Context) {
	var in service.ReviewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	review, err := h.reviews.SubmitReview(c.Request.Context(), currentUserID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (h *Handler) listFavorites(c *gin.Context) {
	products, err := h.favorites.ListFavorites(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *Handler) isFavorite(c *gin.Context) {
	productID, ok := pathUUID(c, "productId")
	if !ok {
		return
	}

	favorite, err := h.favorites.IsFavorite(c.Request.Context(), currentUserID(c), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorite": favorite})
}

func (h *Handler) addFavorite(c *gin.Context) {
	productID, ok := pathUUID(c, "productId")
	if !ok {
		return
	}

	if err := h.favorites.AddFavorite(c.Request.Context(), currentUserID(c), productID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) removeFavorite(c *gin.Context) {
	productID, ok := pathUUID(c, "productId")
	if !ok {
		return
	}

	if err := h.favorites.RemoveFavorite(c.Request.Context(), currentUserID(c), productID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
