package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Role identifies which kind of account a user holds. A user has exactly one.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleSeller
}

// Category is the craft category a product is listed under.
type Category string

const (
	CategoryJewelry     Category = "jewelry"
	CategoryPottery     Category = "pottery"
	CategoryTextiles    Category = "textiles"
	CategoryWoodwork    Category = "woodwork"
	CategoryHomeDecor   Category = "home_decor"
	CategoryArt         Category = "art"
	CategoryAccessories Category = "accessories"
	CategoryOther       Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryJewelry,
	CategoryPottery,
	CategoryTextiles,
	CategoryWoodwork,
	CategoryHomeDecor,
	CategoryArt,
	CategoryAccessories,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Product represents a listing in the catalog
type Product struct {
	ID                 uuid.UUID       `db:"id" json:"id"`
	SellerID           uuid.UUID       `db:"seller_id" json:"seller_id"`
	Name               string          `db:"name" json:"name"`
	Description        string          `db:"description" json:"description"`
	Category           Category        `db:"category" json:"category"`
	Price              decimal.Decimal `db:"price" json:"price"`
	DiscountPercentage decimal.Decimal `db:"discount_percentage" json:"discount_percentage"`
	StockQuantity      int             `db:"stock_quantity" json:"stock_quantity"`
	IsActive           bool            `db:"is_active" json:"is_active"`
	ImageURL           string          `db:"image_url" json:"image_url"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

var hundred = decimal.NewFromInt(100)

// DiscountedPrice returns price × (1 − discount/100) rounded to cents.
// Discounts outside [0, 100] are clamped so the result stays within [0, price].
func (p Product) DiscountedPrice() decimal.Decimal {
	return DiscountedPrice(p.Price, p.DiscountPercentage)
}

// DiscountedPrice applies a percentage discount to price.
func DiscountedPrice(price, discount decimal.Decimal) decimal.Decimal {
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(hundred) {
		discount = hundred
	}
	factor := hundred.Sub(discount).Div(hundred)
	return price.Mul(factor).Round(2)
}

// ProductView is a product as presented to shoppers.
type ProductView struct {
	Product
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
	SellerName      string          `db:"seller_name" json:"seller_name,omitempty"`
}

// NewProductView derives the presentation fields of p.
func NewProductView(p Product) ProductView {
	return ProductView{Product: p, DiscountedPrice: p.DiscountedPrice()}
}

// ProductFilter narrows catalog listings
type ProductFilter struct {
	Category        Category
	Search          string
	SellerID        *uuid.UUID
	IncludeInactive bool
	Limit           int
	Offset          int
}

// OrderStatus is shared by orders and order items.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Payment statuses
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
)

// Order aggregates the items bought in one checkout
type Order struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	CustomerID      uuid.UUID       `db:"customer_id" json:"customer_id"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	Status          OrderStatus     `db:"status" json:"status"`
	ShippingAddress string          `db:"shipping_address" json:"shipping_address"`
	PaymentMethod   string          `db:"payment_method" json:"payment_method"`
	PaymentStatus   string          `db:"payment_status" json:"payment_status"`
	Notes           string          `db:"notes" json:"notes,omitempty"`
	IdempotencyKey  *string         `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// OrderItem is one product line of an order. Name and price are snapshots
// taken at checkout.
type OrderItem struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	OrderID      uuid.UUID       `db:"order_id" json:"order_id"`
	ProductID    uuid.UUID       `db:"product_id" json:"product_id"`
	SellerID     uuid.UUID       `db:"seller_id" json:"seller_id"`
	CustomerID   uuid.UUID       `db:"customer_id" json:"customer_id"`
	ProductName  string          `db:"product_name" json:"product_name"`
	ProductPrice decimal.Decimal `db:"product_price" json:"product_price"`
	Quantity     int             `db:"quantity" json:"quantity"`
	Subtotal     decimal.Decimal `db:"subtotal" json:"subtotal"`
	Status       OrderStatus     `db:"status" json:"status"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// OrderDetail is an order with the items the viewer may see
type OrderDetail struct {
	Order
	Items []OrderItem `json:"items"`
}

// NewOrder carries the checkout form fields.
type NewOrder struct {
	ShippingAddress string
	PaymentMethod   string
	Notes           string
	IdempotencyKey  string
}

// StatusTransition is the outcome of moving one order item to a new status.
type StatusTransition struct {
	Item          OrderItem   `json:"item"`
	From          OrderStatus `json:"from"`
	StockDelta    int         `json:"stock_delta"`
	StockQuantity int         `json:"stock_quantity"`
	OrderStatus   OrderStatus `json:"order_status"`
}

// CartItem is one (customer, product) row of a cart
type CartItem struct {
	ID         uuid.UUID `db:"id" json:"id"`
	CustomerID uuid.UUID `db:"customer_id" json:"customer_id"`
	ProductID  uuid.UUID `db:"product_id" json:"product_id"`
	Quantity   int       `db:"quantity" json:"quantity"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// CartLine joins a cart row with the live product it points at.
type CartLine struct {
	CartItem
	SellerID           uuid.UUID       `db:"seller_id" json:"seller_id"`
	ProductName        string          `db:"product_name" json:"product_name"`
	Price              decimal.Decimal `db:"price" json:"price"`
	DiscountPercentage decimal.Decimal `db:"discount_percentage" json:"discount_percentage"`
	StockQuantity      int             `db:"stock_quantity" json:"stock_quantity"`
	IsActive           bool            `db:"is_active" json:"is_active"`
	ImageURL           string          `db:"image_url" json:"image_url"`
}

// UnitPrice is the discounted price the customer pays per unit.
func (l CartLine) UnitPrice() decimal.Decimal {
	return DiscountedPrice(l.Price, l.DiscountPercentage)
}

// CartResult reports how an add or update landed. Item is nil when the row
// ended up removed because no stock was left. Warning is set whenever the
// quantity was capped at stock.
type CartResult struct {
	Item      *CartItem `json:"item"`
	Requested int       `json:"requested"`
	Clamped   bool      `json:"clamped"`
	Warning   string    `json:"warning,omitempty"`
}

// CartWarningStockUnavailable marks a cart write capped at available stock
const CartWarningStockUnavailable = "stock_unavailable"

// Cart is a customer's cart priced at current product prices
type Cart struct {
	Lines []CartLine      `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// Favorite marks a product a customer saved
type Favorite struct {
	CustomerID uuid.UUID `db:"customer_id" json:"customer_id"`
	ProductID  uuid.UUID `db:"product_id" json:"product_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ProductReview is a customer's review of one delivered order item
type ProductReview struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ProductID   uuid.UUID `db:"product_id" json:"product_id"`
	OrderItemID uuid.UUID `db:"order_item_id" json:"order_item_id"`
	CustomerID  uuid.UUID `db:"customer_id" json:"customer_id"`
	Rating      int       `db:"rating" json:"rating"`
	Comment     string    `db:"comment" json:"comment"`
	IsAnonymous bool      `db:"is_anonymous" json:"is_anonymous"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ReviewView is a review with the reviewer's display name resolved.
type ReviewView struct {
	ProductReview
	ReviewerName string `db:"reviewer_name" json:"reviewer_name"`
}

// ReviewSummary aggregates the reviews of a product
type ReviewSummary struct {
	Reviews       []ReviewView    `json:"reviews"`
	AverageRating decimal.Decimal `json:"average_rating"`
	Count         int             `json:"count"`
}

// ConversationStatus values
type ConversationStatus string

const (
	ConversationActive   ConversationStatus = "active"
	ConversationClosed   ConversationStatus = "closed"
	ConversationArchived ConversationStatus = "archived"
)

func (s ConversationStatus) Valid() bool {
	return s == ConversationActive || s == ConversationClosed || s == ConversationArchived
}

// Conversation threads the messages between one customer and one seller,
// optionally about one product.
type Conversation struct {
	ID            uuid.UUID          `db:"id" json:"id"`
	CustomerID    uuid.UUID          `db:"customer_id" json:"customer_id"`
	SellerID      uuid.UUID          `db:"seller_id" json:"seller_id"`
	ProductID     uuid.NullUUID      `db:"product_id" json:"product_id"`
	Subject       string             `db:"subject" json:"subject"`
	Status        ConversationStatus `db:"status" json:"status"`
	LastMessageAt *time.Time         `db:"last_message_at" json:"last_message_at"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `db:"updated_at" json:"updated_at"`
}

// HasParticipant reports whether userID is the customer or seller of c.
func (c Conversation) HasParticipant(userID uuid.UUID) bool {
	return c.CustomerID == userID || c.SellerID == userID
}

// ConversationSummary is a conversation with the caller's unread count.
type ConversationSummary struct {
	Conversation
	UnreadCount int `db:"unread_count" json:"unread_count"`
}

// Message is one append-only entry of a conversation
type Message struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ConversationID uuid.UUID  `db:"conversation_id" json:"conversation_id"`
	SenderID       uuid.UUID  `db:"sender_id" json:"sender_id"`
	SenderType     Role       `db:"sender_type" json:"sender_type"`
	MessageText    string     `db:"message_text" json:"message_text"`
	AttachmentURL  *string    `db:"attachment_url" json:"attachment_url,omitempty"`
	AttachmentType *string    `db:"attachment_type" json:"attachment_type,omitempty"`
	IsRead         bool       `db:"is_read" json:"is_read"`
	ReadAt         *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// User holds credentials. Profile data lives in the role-specific tables.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	UserType     Role      `db:"user_type" json:"user_type"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// CustomerProfile is the profile of a customer account
type CustomerProfile struct {
	ID              uuid.UUID `db:"id" json:"id"`
	FullName        string    `db:"full_name" json:"full_name"`
	Phone           string    `db:"phone" json:"phone"`
	ShippingAddress string    `db:"shipping_address" json:"shipping_address"`
	ProfilePhotoURL string    `db:"profile_photo_url" json:"profile_photo_url"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Complete reports whether the fields needed to check out are filled in.
func (p CustomerProfile) Complete() bool {
	return p.FullName != "" && p.ShippingAddress != ""
}

// SellerProfile is the shop profile of a seller account
type SellerProfile struct {
	ID              uuid.UUID `db:"id" json:"id"`
	BusinessName    string    `db:"business_name" json:"business_name"`
	Bio             string    `db:"bio" json:"bio"`
	Location        string    `db:"location" json:"location"`
	Phone           string    `db:"phone" json:"phone"`
	ProfilePhotoURL string    `db:"profile_photo_url" json:"profile_photo_url"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Complete reports whether the shop can list products.
func (p SellerProfile) Complete() bool {
	return p.BusinessName != "" && p.Location != ""
}

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
