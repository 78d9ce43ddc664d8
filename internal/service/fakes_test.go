package service

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"handcrafted-haven/internal/apperr"
	"handcrafted-haven/internal/domain"
	"handcrafted-haven/internal/models"
	"handcrafted-haven/internal/realtime"
	"handcrafted-haven/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memStore keeps everything in maps behind one mutex. It follows the same
// rules the Postgres store enforces so the services can be tested without a
// database.
type memStore struct {
	mu            sync.Mutex
	clock         time.Time
	products      map[uuid.UUID]*models.Product
	sellers       map[uuid.UUID]*models.SellerProfile
	cart          map[[2]uuid.UUID]*models.CartItem
	orders        map[uuid.UUID]*models.Order
	items         []*models.OrderItem
	reviews       map[uuid.UUID]*models.ProductReview
	conversations map[uuid.UUID]*models.Conversation
	messages      []*models.Message
	processed     map[string]string
}

func newMemStore() *memStore {
	return &memStore{
		clock:         time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		products:      make(map[uuid.UUID]*models.Product),
		sellers:       make(map[uuid.UUID]*models.SellerProfile),
		cart:          make(map[[2]uuid.UUID]*models.CartItem),
		orders:        make(map[uuid.UUID]*models.Order),
		reviews:       make(map[uuid.UUID]*models.ProductReview),
		conversations: make(map[uuid.UUID]*models.Conversation),
		processed:     make(map[string]string),
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Millisecond)
	return m.clock
}

func (m *memStore) addSeller(complete bool) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	p := &models.SellerProfile{ID: id}
	if complete {
		p.BusinessName = "Clay & Kiln"
		p.Location = "Asheville"
	}
	m.sellers[id] = p
	return id
}

func (m *memStore) addProduct(sellerID uuid.UUID, name, price string, stock int) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.products[id] = &models.Product{
		ID:                 id,
		SellerID:           sellerID,
		Name:               name,
		Category:           models.CategoryPottery,
		Price:              decimal.RequireFromString(price),
		DiscountPercentage: decimal.Zero,
		StockQuantity:      stock,
		IsActive:           true,
		CreatedAt:          m.tick(),
	}
	return id
}

func (m *memStore) stock(productID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[productID].StockQuantity
}

func (m *memStore) cartRows(customerID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for key := range m.cart {
		if key[0] == customerID {
			n++
		}
	}
	return n
}

// catalog

func (m *memStore) CreateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.New()
	p.CreatedAt = m.tick()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *memStore) GetProductByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, apperr.NotFound("product not found: %s", id)
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) ListProducts(_ context.Context, f models.ProductFilter) ([]models.ProductView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ProductView
	for _, p := range m.products {
		if !p.IsActive && !f.IncludeInactive {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.SellerID != nil && p.SellerID != *f.SellerID {
			continue
		}
		out = append(out, models.NewProductView(*p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Offset < len(out) {
		out = out[f.Offset:]
	} else {
		out = nil
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memStore) ownedProduct(sellerID, productID uuid.UUID) (*models.Product, error) {
	p, ok := m.products[productID]
	if !ok {
		return nil, apperr.NotFound("product not found: %s", productID)
	}
	if p.SellerID != sellerID {
		return nil, apperr.Unauthorized("product %s belongs to another seller", productID)
	}
	return p, nil
}

func (m *memStore) UpdateProduct(_ context.Context, sellerID uuid.UUID, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.ownedProduct(sellerID, p.ID); err != nil {
		return err
	}
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *memStore) SetProductActive(_ context.Context, sellerID, productID uuid.UUID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.ownedProduct(sellerID, productID)
	if err != nil {
		return err
	}
	p.IsActive = active
	return nil
}

func (m *memStore) SetProductImage(_ context.Context, sellerID, productID uuid.UUID, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.ownedProduct(sellerID, productID)
	if err != nil {
		return err
	}
	p.ImageURL = url
	return nil
}

func (m *memStore) GetSellerProfile(_ context.Context, id uuid.UUID) (*models.SellerProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.sellers[id]
	if !ok {
		return nil, apperr.NotFound("seller profile not found: %s", id)
	}
	cp := *p
	return &cp, nil
}

// cart

func (m *memStore) cartStock(productID uuid.UUID) (int, error) {
	p, ok := m.products[productID]
	if !ok {
		return 0, apperr.NotFound("product not found: %s", productID)
	}
	if !p.IsActive {
		return 0, nil
	}
	return p.StockQuantity, nil
}

func (m *memStore) writeCart(customerID, productID uuid.UUID, wanted, stock int) *models.CartResult {
	qty, clamped := domain.ClampCartQuantity(wanted, stock)
	result := &models.CartResult{Requested: wanted, Clamped: clamped}
	key := [2]uuid.UUID{customerID, productID}
	if qty == 0 {
		delete(m.cart, key)
		return result
	}
	item, ok := m.cart[key]
	if !ok {
		item = &models.CartItem{ID: uuid.New(), CustomerID: customerID, ProductID: productID, CreatedAt: m.tick()}
		m.cart[key] = item
	}
	item.Quantity = qty
	item.UpdatedAt = m.tick()
	cp := *item
	result.Item = &cp
	return result
}

func (m *memStore) AddToCart(_ context.Context, customerID, productID uuid.UUID, qty int) (*models.CartResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stock, err := m.cartStock(productID)
	if err != nil {
		return nil, err
	}
	existing := 0
	if item, ok := m.cart[[2]uuid.UUID{customerID, productID}]; ok {
		existing = item.Quantity
	}
	return m.writeCart(customerID, productID, existing+qty, stock), nil
}

func (m *memStore) SetCartItemQuantity(_ context.Context, customerID, productID uuid.UUID, qty int) (*models.CartResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stock, err := m.cartStock(productID)
	if err != nil {
		return nil, err
	}
	if _, ok := m.cart[[2]uuid.UUID{customerID, productID}]; !ok {
		return nil, apperr.NotFound("product %s is not in the cart", productID)
	}
	return m.writeCart(customerID, productID, qty, stock), nil
}

func (m *memStore) RemoveCartItem(_ context.Context, customerID, productID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]uuid.UUID{customerID, productID}
	if _, ok := m.cart[key]; !ok {
		return apperr.NotFound("product %s is not in the cart", productID)
	}
	delete(m.cart, key)
	return nil
}

func (m *memStore) ClearCart(_ context.Context, customerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.cart {
		if key[0] == customerID {
			delete(m.cart, key)
		}
	}
	return nil
}

func (m *memStore) cartLines(customerID uuid.UUID) []models.CartLine {
	var lines []models.CartLine
	for key, item := range m.cart {
		if key[0] != customerID {
			continue
		}
		p := m.products[item.ProductID]
		lines = append(lines, models.CartLine{
			CartItem:           *item,
			SellerID:           p.SellerID,
			ProductName:        p.Name,
			Price:              p.Price,
			DiscountPercentage: p.DiscountPercentage,
			StockQuantity:      p.StockQuantity,
			IsActive:           p.IsActive,
			ImageURL:           p.ImageURL,
		})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].CreatedAt.Before(lines[j].CreatedAt) })
	return lines
}

func (m *memStore) GetCartLines(_ context.Context, customerID uuid.UUID) ([]models.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cartLines(customerID), nil
}

// orders

func (m *memStore) CreateOrderFromCart(_ context.Context, customerID uuid.UUID, req models.NewOrder) (*models.Order, []models.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines := m.cartLines(customerID)
	built, total, err := domain.BuildOrderItems(customerID, lines)
	if err != nil {
		return nil, nil, err
	}
	if req.IdempotencyKey != "" {
		for _, o := range m.orders {
			if o.IdempotencyKey != nil && *o.IdempotencyKey == req.IdempotencyKey {
				return nil, nil, apperr.Conflict("idempotency key already used")
			}
		}
	}

	now := m.tick()
	order := &models.Order{
		ID:              uuid.New(),
		CustomerID:      customerID,
		TotalAmount:     total,
		Status:          models.OrderStatusPending,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   models.PaymentStatusPending,
		Notes:           req.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		order.IdempotencyKey = &key
	}
	m.orders[order.ID] = order

	items := make([]models.OrderItem, 0, len(built))
	for _, it := range built {
		it.ID = uuid.New()
		it.OrderID = order.ID
		it.CreatedAt = now
		it.UpdatedAt = now
		cp := it
		m.items = append(m.items, &cp)
		items = append(items, it)
	}
	for _, line := range lines {
		delete(m.cart, [2]uuid.UUID{customerID, line.ProductID})
	}

	cp := *order
	return &cp, items, nil
}

func (m *memStore) GetOrderByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, apperr.NotFound("order not found: %s", id)
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) GetOrderByIdempotencyKey(_ context.Context, key string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.IdempotencyKey != nil && *o.IdempotencyKey == key {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListOrdersByCustomer(_ context.Context, customerID uuid.UUID) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Order{}
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) orderItems(orderID uuid.UUID) []models.OrderItem {
	var out []models.OrderItem
	for _, it := range m.items {
		if it.OrderID == orderID {
			out = append(out, *it)
		}
	}
	return out
}

func (m *memStore) GetOrderItemsByOrderID(_ context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orderItems(orderID), nil
}

func (m *memStore) ListOrderItemsBySeller(_ context.Context, sellerID uuid.UUID, status *models.OrderStatus) ([]models.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.OrderItem{}
	for _, it := range m.items {
		if it.SellerID == sellerID && (status == nil || it.Status == *status) {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (m *memStore) syncOrder(orderID uuid.UUID) models.OrderStatus {
	var statuses []models.OrderStatus
	for _, it := range m.items {
		if it.OrderID == orderID {
			statuses = append(statuses, it.Status)
		}
	}
	o := m.orders[orderID]
	o.Status = domain.DeriveOrderStatus(statuses)
	switch {
	case o.Status == models.OrderStatusDelivered:
		o.PaymentStatus = models.PaymentStatusPaid
	case o.Status == models.OrderStatusCancelled && o.PaymentStatus == models.PaymentStatusPaid:
		o.PaymentStatus = models.PaymentStatusRefunded
	}
	return o.Status
}

func (m *memStore) TransitionOrderItemStatus(_ context.Context, sellerID, itemID uuid.UUID, to models.OrderStatus) (*models.StatusTransition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var item *models.OrderItem
	for _, it := range m.items {
		if it.ID == itemID {
			item = it
		}
	}
	if item == nil {
		return nil, apperr.NotFound("order item not found: %s", itemID)
	}
	if item.SellerID != sellerID {
		return nil, apperr.Unauthorized("order item %s belongs to another seller", itemID)
	}
	effect, err := domain.PlanTransition(item.Status, to)
	if err != nil {
		return nil, err
	}

	product := m.products[item.ProductID]
	delta := effect.Delta(item.Quantity)
	if product.StockQuantity+delta < 0 {
		return nil, apperr.InsufficientStock("not enough stock for %s", product.Name)
	}
	product.StockQuantity += delta

	from := item.Status
	item.Status = to
	item.UpdatedAt = m.tick()
	return &models.StatusTransition{
		Item:          *item,
		From:          from,
		StockDelta:    delta,
		StockQuantity: product.StockQuantity,
		OrderStatus:   m.syncOrder(item.OrderID),
	}, nil
}

func (m *memStore) CancelOrder(_ context.Context, customerID, orderID uuid.UUID) (*models.Order, []models.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, nil, apperr.NotFound("order not found: %s", orderID)
	}
	if o.CustomerID != customerID {
		return nil, nil, apperr.Unauthorized("order %s belongs to another customer", orderID)
	}
	for _, it := range m.items {
		if it.OrderID == orderID && it.Status != models.OrderStatusPending {
			return nil, nil, apperr.Validation("order can no longer be cancelled")
		}
	}
	for _, it := range m.items {
		if it.OrderID == orderID {
			it.Status = models.OrderStatusCancelled
		}
	}
	m.syncOrder(orderID)
	cp := *o
	return &cp, m.orderItems(orderID), nil
}

// reviews

func (m *memStore) reviewTarget(orderItemID uuid.UUID) (*domain.ReviewTarget, error) {
	for _, it := range m.items {
		if it.ID == orderItemID {
			_, reviewed := m.reviews[orderItemID]
			return &domain.ReviewTarget{
				OrderItemID:     it.ID,
				ProductID:       it.ProductID,
				OrderCustomerID: m.orders[it.OrderID].CustomerID,
				OrderStatus:     m.orders[it.OrderID].Status,
				AlreadyReviewed: reviewed,
			}, nil
		}
	}
	return nil, apperr.NotFound("order item not found: %s", orderItemID)
}

func (m *memStore) GetReviewTarget(_ context.Context, orderItemID uuid.UUID) (*domain.ReviewTarget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reviewTarget(orderItemID)
}

func (m *memStore) CreateReview(_ context.Context, r *models.ProductReview) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	target, err := m.reviewTarget(r.OrderItemID)
	if err != nil {
		return err
	}
	if err := domain.CheckReviewEligibility(r.CustomerID, *target); err != nil {
		return err
	}
	r.ID = uuid.New()
	r.ProductID = target.ProductID
	r.CreatedAt = m.tick()
	cp := *r
	m.reviews[r.OrderItemID] = &cp
	return nil
}

func (m *memStore) ListProductReviews(_ context.Context, productID uuid.UUID) ([]models.ReviewView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.ReviewView{}
	for _, r := range m.reviews {
		if r.ProductID == productID {
			out = append(out, models.ReviewView{ProductReview: *r, ReviewerName: "Mara Quill"})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) ReviewStats(_ context.Context, productID uuid.UUID) (decimal.Decimal, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum, count := 0, 0
	for _, r := range m.reviews {
		if r.ProductID == productID {
			sum += r.Rating
			count++
		}
	}
	if count == 0 {
		return decimal.Zero, 0, nil
	}
	return decimal.NewFromInt(int64(sum)).DivRound(decimal.NewFromInt(int64(count)), 2), count, nil
}

// conversations

func (m *memStore) GetOrCreateConversation(_ context.Context, customerID, sellerID uuid.UUID, productID uuid.NullUUID, subject string) (*models.Conversation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conversations {
		if c.CustomerID == customerID && c.SellerID == sellerID && c.ProductID == productID {
			cp := *c
			return &cp, false, nil
		}
	}
	if _, ok := m.sellers[sellerID]; !ok {
		return nil, false, apperr.NotFound("seller or product does not exist")
	}
	if productID.Valid {
		if p, ok := m.products[productID.UUID]; !ok || p.SellerID != sellerID {
			return nil, false, apperr.NotFound("product %s is not sold by seller %s", productID.UUID, sellerID)
		}
	}
	now := m.tick()
	c := &models.Conversation{
		ID:         uuid.New(),
		CustomerID: customerID,
		SellerID:   sellerID,
		ProductID:  productID,
		Subject:    subject,
		Status:     models.ConversationActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.conversations[c.ID] = c
	cp := *c
	return &cp, true, nil
}

func (m *memStore) GetConversation(_ context.Context, id uuid.UUID) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return nil, apperr.NotFound("conversation not found: %s", id)
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) ListConversationsForUser(_ context.Context, userID uuid.UUID) ([]models.ConversationSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ConversationSummary
	for _, c := range m.conversations {
		if !c.HasParticipant(userID) {
			continue
		}
		unread := 0
		for _, msg := range m.messages {
			if msg.ConversationID == c.ID && msg.SenderID != userID && !msg.IsRead {
				unread++
			}
		}
		out = append(out, models.ConversationSummary{Conversation: *c, UnreadCount: unread})
	}
	return out, nil
}

func (m *memStore) CreateMessage(_ context.Context, msg *models.Message) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[msg.ConversationID]
	if !ok {
		return nil, apperr.NotFound("conversation not found: %s", msg.ConversationID)
	}
	switch msg.SenderID {
	case c.CustomerID:
		msg.SenderType = models.RoleCustomer
	case c.SellerID:
		msg.SenderType = models.RoleSeller
	default:
		return nil, apperr.Unauthorized("not a participant of conversation %s", c.ID)
	}
	if c.Status == models.ConversationClosed {
		return nil, apperr.Validation("conversation is closed")
	}
	msg.ID = uuid.New()
	msg.CreatedAt = m.tick()
	cp := *msg
	m.messages = append(m.messages, &cp)
	c.LastMessageAt = &cp.CreatedAt
	c.Status = models.ConversationActive
	conv := *c
	return &conv, nil
}

func (m *memStore) ListMessages(_ context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Message{}
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			out = append(out, *msg)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memStore) MarkMessagesRead(_ context.Context, conversationID, readerID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID && msg.SenderID != readerID && !msg.IsRead {
			now := m.tick()
			msg.IsRead = true
			msg.ReadAt = &now
			n++
		}
	}
	return n, nil
}

func (m *memStore) UnreadCount(_ context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msg := range m.messages {
		c := m.conversations[msg.ConversationID]
		if c.HasParticipant(userID) && msg.SenderID != userID && !msg.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *memStore) UpdateConversationStatus(_ context.Context, id uuid.UUID, status models.ConversationStatus) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return nil, apperr.NotFound("conversation not found: %s", id)
	}
	c.Status = status
	cp := *c
	return &cp, nil
}

// processed events

func (m *memStore) IsEventProcessed(_ context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.processed[eventID]
	return ok, nil
}

func (m *memStore) MarkEventProcessed(_ context.Context, eventID, eventType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed[eventID] = eventType
	return nil
}

// memGuard stands in for Redis locks and the idempotency cache
type memGuard struct {
	mu    sync.Mutex
	locks map[string]string
	keys  map[string]string
}

func newMemGuard() *memGuard {
	return &memGuard{locks: make(map[string]string), keys: make(map[string]string)}
}

func (g *memGuard) AcquireLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, held := g.locks[key]; held {
		return "", false, nil
	}
	token := uuid.NewString()
	g.locks[key] = token
	return token, true, nil
}

func (g *memGuard) ReleaseLock(_ context.Context, key, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.locks[key] == token {
		delete(g.locks, key)
	}
	return nil
}

func (g *memGuard) SetIdempotencyKey(_ context.Context, key string, value interface{}, _ time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.keys[key] = value.(string)
	return nil
}

func (g *memGuard) GetIdempotencyKey(_ context.Context, key string) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.keys[key]
	return v, ok, nil
}

// recordingPublisher keeps every event it is asked to publish
type recordingPublisher struct {
	mu     sync.Mutex
	events []interface{}
}

func (p *recordingPublisher) record(e interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) PublishOrderPlaced(_ context.Context, e *models.OrderPlacedEvent) error {
	return p.record(e)
}

func (p *recordingPublisher) PublishOrderCancelled(_ context.Context, e *models.OrderCancelledEvent) error {
	return p.record(e)
}

func (p *recordingPublisher) PublishOrderItemStatusChanged(_ context.Context, e *models.OrderItemStatusChangedEvent) error {
	return p.record(e)
}

func (p *recordingPublisher) PublishReviewSubmitted(_ context.Context, e *models.ReviewSubmittedEvent) error {
	return p.record(e)
}

func (p *recordingPublisher) PublishMessageSent(_ context.Context, e *models.MessageSentEvent) error {
	return p.record(e)
}

func (p *recordingPublisher) PublishMessagesRead(_ context.Context, e *models.MessagesReadEvent) error {
	return p.record(e)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type sentNotification struct {
	channel string
	n       realtime.Notification
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (r *recordingNotifier) Publish(_ context.Context, channel string, n realtime.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, sentNotification{channel, n})
	return nil
}

type fakeUploader struct {
	uploads []string
}

func (f *fakeUploader) Upload(_ context.Context, ownerID uuid.UUID, kind storage.Kind, filename string, _ int64, r io.Reader) (*storage.Object, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return nil, err
	}
	key := storage.BuildKey(ownerID, kind, ".png")
	f.uploads = append(f.uploads, filename)
	return &storage.Object{Key: key, URL: "http://media.test/" + key, ContentType: "image/png"}, nil
}
