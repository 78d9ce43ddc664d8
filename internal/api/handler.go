package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"handcrafted-haven/internal/auth"
	"handcrafted-haven/internal/models"
	"handcrafted-haven/internal/realtime"
	"handcrafted-haven/internal/service"
	"handcrafted-haven/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultHeartbeat = 25 * time.Second

// Pinger is a dependency the readiness probe checks
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles what the HTTP layer calls into
type Services struct {
	Auth      *auth.Service
	Catalog   *service.CatalogService
	Cart      *service.CartService
	Orders    *service.OrderService
	Reviews   *service.ReviewService
	Favorites *service.FavoriteService
	Messages  *service.MessageService
	Profiles  *service.ProfileService
	Hub       *realtime.Hub
	Media     *storage.Service
}

// Handler contains HTTP handlers
type Handler struct {
	auth       *auth.Service
	catalog    *service.CatalogService
	cart       *service.CartService
	orders     *service.OrderService
	reviews    *service.ReviewService
	favorites  *service.FavoriteService
	messages   *service.MessageService
	profiles   *service.ProfileService
	hub        *realtime.Hub
	media      *storage.Service
	checks     map[string]Pinger
	corsOrigin string
	heartbeat  time.Duration
}

// NewHandler creates a new HTTP handler. checks are pinged by /ready.
func NewHandler(s Services, corsOrigin string, checks map[string]Pinger) *Handler {
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	return &Handler{
		auth:       s.Auth,
		catalog:    s.Catalog,
		cart:       s.Cart,
		orders:     s.Orders,
		reviews:    s.Reviews,
		favorites:  s.Favorites,
		messages:   s.Messages,
		profiles:   s.Profiles,
		hub:        s.Hub,
		media:      s.Media,
		checks:     checks,
		corsOrigin: corsOrigin,
		heartbeat:  defaultHeartbeat,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())
	router.Use(corsMiddleware(h.corsOrigin))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/media/*path", h.serveMedia)

	v1 := router.Group("/api/v1")
	authed := authMiddleware(h.auth)

	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/customer/signup", h.signUp(models.RoleCustomer))
		authRoutes.POST("/customer/signin", h.signIn(models.RoleCustomer))
		authRoutes.POST("/seller/signup", h.signUp(models.RoleSeller))
		authRoutes.POST("/seller/signin", h.signIn(models.RoleSeller))
		authRoutes.POST("/signout", authed, h.signOut)
	}

	v1.GET("/products", h.listProducts)
	v1.GET("/products/:id", h.getProduct)
	v1.GET("/products/:id/reviews", h.listProductReviews)

	account := v1.Group("", authed)
	{
		account.GET("/me/profile", h.getProfile)
		account.PUT("/me/profile", h.updateProfile)
		account.POST("/me/photo", h.uploadPhoto)

		account.GET("/orders/:id", h.getOrder)

		account.GET("/conversations", h.listConversations)
		account.POST("/conversations", h.startConversation)
		account.GET("/conversations/:id", h.getConversation)
		account.GET("/conversations/:id/messages", h.listMessages)
		account.POST("/conversations/:id/messages", h.sendMessage)
		account.POST("/conversations/:id/read", h.markRead)
		account.PATCH("/conversations/:id/status", h.updateConversationStatus)
		account.GET("/conversations/:id/stream", h.streamConversation)
		account.GET("/messages/unread-count", h.unreadCount)
		account.GET("/notifications/stream", h.streamNotifications)
	}

	customer := v1.Group("", authed, requireRole(models.RoleCustomer))
	{
		customer.GET("/cart", h.getCart)
		customer.DELETE("/cart", h.clearCart)
		customer.POST("/cart/items", h.addToCart)
		customer.PUT("/cart/items/:productId", h.updateCartItem)
		customer.DELETE("/cart/items/:productId", h.removeCartItem)

		customer.POST("/checkout", h.checkout)
		customer.GET("/orders", h.listOrders)
		customer.POST("/orders/:id/cancel", h.cancelOrder)

		customer.GET("/favorites", h.listFavorites)
		customer.GET("/favorites/:productId", h.isFavorite)
		customer.POST("/favorites/:productId", h.addFavorite)
		customer.DELETE("/favorites/:productId", h.removeFavorite)

		customer.GET("/order-items/:id/review-eligibility", h.reviewEligibility)
		customer.POST("/reviews", h.submitReview)
	}

	seller := v1.Group("/seller", authed, requireRole(models.RoleSeller))
	{
		seller.GET("/products", h.listSellerProducts)
		seller.POST("/products", h.createProduct)
		seller.PUT("/products/:id", h.updateProduct)
		seller.DELETE("/products/:id", h.deactivateProduct)
		seller.POST("/products/:id/image", h.uploadProductImage)

		seller.GET("/order-items", h.listSellerOrderItems)
		seller.PATCH("/order-items/:id/status", h.transitionOrderItem)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every backing dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// serveMedia streams a stored upload
func (h *Handler) serveMedia(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("path"), "/")
	rc, contentType, err := h.media.Open(c.Request.Context(), key)
	if err != nil {
		respondError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Cache-Control", "public, max-age=86400")
	c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
}

// queryInt reads an optional integer query parameter
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badRequest(c, "invalid "+name, nil)
		return 0, false
	}
	return n, true
}

// formUpload opens the multipart file in field. The returned closer must be
// called once the upload has been consumed.
func formUpload(c *gin.Context, field string) (*service.Upload, func(), bool) {
	header, err := c.FormFile(field)
	if err != nil {
		badRequest(c, "missing file field "+field, err)
		return nil, nil, false
	}
	f, err := header.Open()
	if err != nil {
		badRequest(c, "unreadable upload", err)
		return nil, nil, false
	}
	upload := &service.Upload{
		Filename: header.Filename,
		Size:     header.Size,
		Reader:   f,
	}
	return upload, func() { f.Close() }, true
}
