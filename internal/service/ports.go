package service

import (
	"context"
	"io"
	"time"

	"handcrafted-haven/internal/domain"
	"handcrafted-haven/internal/models"
	"handcrafted-haven/internal/realtime"
	"handcrafted-haven/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// The interfaces below are satisfied by *store.Store, *redisclient.Client,
// *broker.EventPublisher, *realtime.Hub and *storage.Service.

type CatalogStore interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.ProductView, error)
	UpdateProduct(ctx context.Context, sellerID uuid.UUID, product *models.Product) error
	SetProductActive(ctx context.Context, sellerID, productID uuid.UUID, active bool) error
	SetProductImage(ctx context.Context, sellerID, productID uuid.UUID, imageURL string) error
	GetSellerProfile(ctx context.Context, id uuid.UUID) (*models.SellerProfile, error)
}

type CartStore interface {
	AddToCart(ctx context.Context, customerID, productID uuid.UUID, qty int) (*models.CartResult, error)
	SetCartItemQuantity(ctx context.Context, customerID, productID uuid.UUID, qty int) (*models.CartResult, error)
	RemoveCartItem(ctx context.Context, customerID, productID uuid.UUID) error
	ClearCart(ctx context.Context, customerID uuid.UUID) error
	GetCartLines(ctx context.Context, customerID uuid.UUID) ([]models.CartLine, error)
}

type OrderStore interface {
	CreateOrderFromCart(ctx context.Context, customerID uuid.UUID, req models.NewOrder) (*models.Order, []models.OrderItem, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Order, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	ListOrderItemsBySeller(ctx context.Context, sellerID uuid.UUID, status *models.OrderStatus) ([]models.OrderItem, error)
	TransitionOrderItemStatus(ctx context.Context, sellerID, itemID uuid.UUID, to models.OrderStatus) (*models.StatusTransition, error)
	CancelOrder(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, []models.OrderItem, error)
}

type ReviewStore interface {
	GetReviewTarget(ctx context.Context, orderItemID uuid.UUID) (*domain.ReviewTarget, error)
	CreateReview(ctx context.Context, review *models.ProductReview) error
	ListProductReviews(ctx context.Context, productID uuid.UUID) ([]models.ReviewView, error)
	ReviewStats(ctx context.Context, productID uuid.UUID) (decimal.Decimal, int, error)
}

type FavoriteStore interface {
	AddFavorite(ctx context.Context, customerID, productID uuid.UUID) error
	RemoveFavorite(ctx context.Context, customerID, productID uuid.UUID) error
	IsFavorite(ctx context.Context, customerID, productID uuid.UUID) (bool, error)
	ListFavoriteProducts(ctx context.Context, customerID uuid.UUID) ([]models.ProductView, error)
}

type MessageStore interface {
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetOrCreateConversation(ctx context.Context, customerID, sellerID uuid.UUID, productID uuid.NullUUID, subject string) (*models.Conversation, bool, error)
	GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	ListConversationsForUser(ctx context.Context, userID uuid.UUID) ([]models.ConversationSummary, error)
	CreateMessage(ctx context.Context, msg *models.Message) (*models.Conversation, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error)
	MarkMessagesRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	UpdateConversationStatus(ctx context.Context, id uuid.UUID, status models.ConversationStatus) (*models.Conversation, error)
}

type ProfileStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetCustomerProfile(ctx context.Context, id uuid.UUID) (*models.CustomerProfile, error)
	UpdateCustomerProfile(ctx context.Context, p *models.CustomerProfile) error
	GetSellerProfile(ctx context.Context, id uuid.UUID) (*models.SellerProfile, error)
	UpdateSellerProfile(ctx context.Context, p *models.SellerProfile) error
	SetProfilePhoto(ctx context.Context, userID uuid.UUID, role models.Role, url string) error
}

// EventStore records which broker events a consumer already applied
type EventStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error
	PublishOrderItemStatusChanged(ctx context.Context, event *models.OrderItemStatusChangedEvent) error
	PublishReviewSubmitted(ctx context.Context, event *models.ReviewSubmittedEvent) error
	PublishMessageSent(ctx context.Context, event *models.MessageSentEvent) error
	PublishMessagesRead(ctx context.Context, event *models.MessagesReadEvent) error
}

// CheckoutGuard serializes a customer's concurrent checkouts and remembers
// idempotency keys between retries.
type CheckoutGuard interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, lockKey, token string) error
	SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	GetIdempotencyKey(ctx context.Context, key string) (string, bool, error)
}

type Notifier interface {
	Publish(ctx context.Context, channel string, n realtime.Notification) error
}

type Uploader interface {
	Upload(ctx context.Context, ownerID uuid.UUID, kind storage.Kind, filename string, size int64, r io.Reader) (*storage.Object, error)
}

// Upload is a file received from a client
type Upload struct {
	Filename string
	Size     int64
	Reader   io.Reader
}
