package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"handcrafted-haven/internal/apperr"
	"handcrafted-haven/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *memStore
	guard    *memGuard
	events   *recordingPublisher
	uploader *fakeUploader
	catalog  *CatalogService
	carts    *CartService
	orders   *OrderService
	reviews  *ReviewService
	messages *MessageService
}

func newFixture() *fixture {
	f := &fixture{
		store:    newMemStore(),
		guard:    newMemGuard(),
		events:   &recordingPublisher{},
		uploader: &fakeUploader{},
	}
	f.catalog = NewCatalogService(f.store, f.uploader, 0)
	f.carts = NewCartService(f.store)
	f.orders = NewOrderService(f.store, f.guard, f.events, time.Second)
	f.reviews = NewReviewService(f.store, f.events, 0)
	f.messages = NewMessageService(f.store, f.uploader, f.events)
	return f
}

func checkoutRequest(key string) models.NewOrder {
	return models.NewOrder{
		ShippingAddress: "12 Loom Lane, Portland",
		PaymentMethod:   "card",
		IdempotencyKey:  key,
	}
}

func TestCheckoutRoundTrip(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	customer := uuid.New()
	sellerA, sellerB := f.store.addSeller(true), f.store.addSeller(true)
	mug := f.store.addProduct(sellerA, "Speckled Mug", "24.00", 10)
	scarf := f.store.addProduct(sellerB, "Wool Scarf", "55.50", 2)

	_, err := f.carts.AddToCart(ctx, customer, mug, 3)
	require.NoError(t, err)
	_, err = f.carts.AddToCart(ctx, customer, scarf, 1)
	require.NoError(t, err)

	detail, replayed, err := f.orders.Checkout(ctx, customer, checkoutRequest(""))
	require.NoError(t, err)
	assert.False(t, replayed)
	require.Len(t, detail.Items, 2)

	sum := decimal.Zero
	for _, item := range detail.Items {
		assert.Equal(t, detail.ID, item.OrderID)
		assert.Equal(t, models.OrderStatusPending, item.Status)
		sum = sum.Add(item.Subtotal)
	}
	assert.True(t, sum.Equal(detail.TotalAmount))
	assert.True(t, decimal.RequireFromString("127.50").Equal(detail.TotalAmount))
	assert.Equal(t, models.OrderStatusPending, detail.Status)
	assert.Equal(t, models.PaymentStatusPending, detail.PaymentStatus)

	assert.Equal(t, 0, f.store.cartRows(customer))
	// checkout reserves nothing; stock moves when a seller accepts
	assert.Equal(t, 10, f.store.stock(mug))

	require.Equal(t, 1, f.events.count())
	placed, ok := f.events.events[0].(*models.OrderPlacedEvent)
	require.True(t, ok)
	assert.Equal(t, detail.ID, placed.OrderID)
	assert.Len(t, placed.Items, 2)
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture()

	_, _, err := f.orders.Checkout(context.Background(), uuid.New(), checkoutRequest(""))
	assert.True(t, errors.Is(err, apperr.ErrEmptyCart))
	assert.Equal(t, 0, f.events.count())
}

func TestCheckoutRequiresShippingAddress(t *testing.T) {
	f := newFixture()

	req := checkoutRequest("")
	req.ShippingAddress = "  "
	_, _, err := f.orders.Checkout(context.Background(), uuid.New(), req)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCheckoutIdempotentReplay(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	customer := uuid.New()
	seller := f.store.addSeller(true)
	vase := f.store.addProduct(seller, "Raku Vase", "80.00", 4)

	_, err := f.carts.AddToCart(ctx, customer, vase, 1)
	require.NoError(t, err)

	first, replayed, err := f.orders.Checkout(ctx, customer, checkoutRequest("key-1"))
	require.NoError(t, err)
	require.False(t, replayed)

	second, replayed, err := f.orders.Checkout(ctx, customer, checkoutRequest("key-1"))
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, second.Items, 1)
	assert.Len(t, f.store.orders, 1)
	assert.Equal(t, 1, f.events.count())

	// the cache may be lost; the key on the order row still answers
	delete(f.guard.keys, "key-1")
	third, replayed, err := f.orders.Checkout(ctx, customer, checkoutRequest("key-1"))
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, third.ID)

	_, _, err = f.orders.Checkout(ctx, uuid.New(), checkoutRequest("key-1"))
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestCheckoutRejectsConcurrentAttempt(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	customer := uuid.New()
	seller := f.store.addSeller(true)
	bowl := f.store.addProduct(seller, "Walnut Bowl", "45.00", 1)
	_, err := f.carts.AddToCart(ctx, customer, bowl, 1)
	require.NoError(t, err)

	_, ok, err := f.guard.AcquireLock(ctx, "checkout:"+customer.String(), time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, _, err = f.orders.Checkout(ctx, customer, checkoutRequest(""))
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, 1, f.store.cartRows(customer))
}

func TestStockScenarioClampCheckoutAcceptCancel(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	customer := uuid.New()
	seller := f.store.addSeller(true)
	quilt := f.store.addProduct(seller, "Patchwork Quilt", "120.00", 3)

	res, err := f.carts.AddToCart(ctx, customer, quilt, 5)
	require.NoError(t, err)
	require.NotNil(t, res.Item)
	assert.Equal(t, 3, res.Item.Quantity)
	assert.True(t, res.Clamped)
	assert.Equal(t, models.CartWarningStockUnavailable, res.Warning)

	detail, _, err := f.orders.Checkout(ctx, customer, checkoutRequest(""))
	require.NoError(t, err)
	require.Len(t, detail.Items, 1)
	item := detail.Items[0]
	assert.Equal(t, 3, item.Quantity)
	assert.Equal(t, 3, f.store.stock(quilt))

	tr, err := f.orders.TransitionOrderItemStatus(ctx, seller, item.ID, models.OrderStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, -3, tr.StockDelta)
	assert.Equal(t, 0, tr.StockQuantity)
	assert.Equal(t, models.OrderStatusProcessing, tr.OrderStatus)
	assert.Equal(t, 0, f.store.stock(quilt))

	tr, err = f.orders.TransitionOrderItemStatus(ctx, seller, item.ID, models.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, 3, tr.StockDelta)
	assert.Equal(t, models.OrderStatusCancelled, tr.OrderStatus)
	assert.Equal(t, 3, f.store.stock(quilt))

	// cancelled is terminal
	_, err = f.orders.TransitionOrderItemStatus(ctx, seller, item.ID, models.OrderStatusProcessing)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, 3, f.store.stock(quilt))
}

func TestTransitionInsufficientStock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	seller := f.store.addSeller(true)
	jar := f.store.addProduct(seller, "Honey Jar", "18.00", 2)

	first, second := uuid.New(), uuid.New()
	for _, customer := range []uuid.UUID{first, second} {
		_, err := f.carts.AddToCart(ctx, customer, jar, 2)
		require.NoError(t, err)
	}
	a, _, err := f.orders.Checkout(ctx, first, checkoutRequest(""))
	require.NoError(t, err)
	b, _, err := f.orders.Checkout(ctx, second, checkoutRequest(""))
	require.NoError(t, err)

	_, err = f.orders.TransitionOrderItemStatus(ctx, seller, a.Items[0].ID, models.OrderStatusShipped)
	require.NoError(t, err)

	_, err = f.orders.TransitionOrderItemStatus(ctx, seller, b.Items[0].ID, models.OrderStatusProcessing)
	assert.True(t, errors.Is(err, apperr.ErrInsufficientStock))
	assert.Equal(t, 0, f.store.stock(jar))

	detail, err := f.orders.GetOrder(ctx, second, models.RoleCustomer, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, detail.Items[0].Status)
}

func TestTransitionChecksSellerAndStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	customer := uuid.New()
	seller := f.store.addSeller(true)
	ring := f.store.addProduct(seller, "Silver Ring", "35.00", 5)
	_, err := f.carts.AddToCart(ctx, customer, ring, 1)
	require.NoError(t, err)
	detail, _, err := f.orders.Checkout(ctx, customer, checkoutRequest(""))
	require.NoError(t, err)
	itemID := detail.Items[0].ID

	_, err = f.orders.TransitionOrderItemStatus(ctx, uuid.New(), itemID, models.OrderStatusProcessing)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	_, err = f.orders.TransitionOrderItemStatus(ctx, seller, itemID, "returned")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.orders.TransitionOrderItemStatus(ctx, seller, uuid.New(), models.OrderStatusShipped)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	for _, to := range []models.OrderStatus{models.OrderStatusProcessing, models.OrderStatusShipped, models.OrderStatusDelivered} {
		_, err = f.orders.TransitionOrderItemStatus(ctx, seller, itemID, to)
		require.NoError(t, err, "%s", to)
	}
	assert.Equal(t, 4, f.store.stock(ring))

	order, err := f.orders.GetOrder(ctx, customer, models.RoleCustomer, detail.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, order.Status)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)

	// checkout event plus three status changes
	assert.Equal(t, 4, f.events.count())
}

func TestGetOrderVisibility(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	customer := uuid.New()
	sellerA, sellerB := f.store.addSeller(true), f.store.addSeller(true)
	_, err := f.carts.AddToCart(ctx, customer, f.store.addProduct(sellerA, "Bead Necklace", "30.00", 3), 1)
	require.NoError(t, err)
	_, err = f.carts.AddToCart(ctx, customer, f.store.addProduct(sellerB, "Oak Spoon", "12.00", 3), 1)
	require.NoError(t, err)
	detail, _, err := f.orders.Checkout(ctx, customer, checkoutRequest(""))
	require.NoError(t, err)

	own, err := f.orders.GetOrder(ctx, customer, models.RoleCustomer, detail.ID)
	require.NoError(t, err)
	assert.Len(t, own.Items, 2)

	_, err = f.orders.GetOrder(ctx, uuid.New(), models.RoleCustomer, detail.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	sellerView, err := f.orders.GetOrder(ctx, sellerA, models.RoleSeller, detail.ID)
	require.NoError(t, err)
	require.Len(t, sellerView.Items, 1)
	assert.Equal(t, sellerA, sellerView.Items[0].SellerID)

	_, err = f.orders.GetOrder(ctx, uuid.New(), models.RoleSeller, detail.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	pending, err := f.orders.ListSellerOrderItems(ctx, sellerB, models.OrderStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	_, err = f.orders.ListSellerOrderItems(ctx, sellerB, "lost")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCancelOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	customer := uuid.New()
	sellerA, sellerB := f.store.addSeller(true), f.store.addSeller(true)
	_, err := f.carts.AddToCart(ctx, customer, f.store.addProduct(sellerA, "Candle", "15.00", 3), 1)
	require.NoError(t, err)
	_, err = f.carts.AddToCart(ctx, customer, f.store.addProduct(sellerB, "Basket", "40.00", 3), 1)
	require.NoError(t, err)
	detail, _, err := f.orders.Checkout(ctx, customer, checkoutRequest(""))
	require.NoError(t, err)

	_, err = f.orders.CancelOrder(ctx, uuid.New(), detail.ID)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	cancelled, err := f.orders.CancelOrder(ctx, customer, detail.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	for _, item := range cancelled.Items {
		assert.Equal(t, models.OrderStatusCancelled, item.Status)
	}

	last := f.events.events[len(f.events.events)-1].(*models.OrderCancelledEvent)
	assert.ElementsMatch(t, []uuid.UUID{sellerA, sellerB}, last.SellerIDs)
}

func TestCancelOrderAfterAcceptIsRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	customer := uuid.New()
	seller := f.store.addSeller(true)
	_, err := f.carts.AddToCart(ctx, customer, f.store.addProduct(seller, "Tapestry", "200.00", 1), 1)
	require.NoError(t, err)
	detail, _, err := f.orders.Checkout(ctx, customer, checkoutRequest(""))
	require.NoError(t, err)

	_, err = f.orders.TransitionOrderItemStatus(ctx, seller, detail.Items[0].ID, models.OrderStatusProcessing)
	require.NoError(t, err)

	_, err = f.orders.CancelOrder(ctx, customer, detail.ID)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
