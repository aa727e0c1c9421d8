package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agrobazaar/marketplace/internal/core/domain"
	"github.com/agrobazaar/marketplace/internal/port"
)

// memStore is an in-memory Store. RunInTransaction runs fn against a deep
// copy of the state and swaps it in only on success, mirroring the
// commit/rollback semantics of the real coordinator. The store mutex
// serializes units of work the way MySQL row locks serialize contending
// reservations.
type memStore struct {
	mu    sync.Mutex
	state *memState

	// test hooks
	createOrderErr  error
	reserveStockErr error
}

type memState struct {
	products map[int64]*domain.Product
	carts    map[string]*domain.Cart
	orders   map[int64]*domain.Order
	ratings  map[string]*domain.ProductRating
	events   []domain.OrderEvent

	nextCartID  int64
	nextItemID  int64
	nextOrderID int64
}

func newMemStore(products ...*domain.Product) *memStore {
	state := &memState{
		products: make(map[int64]*domain.Product),
		carts:    make(map[string]*domain.Cart),
		orders:   make(map[int64]*domain.Order),
		ratings:  make(map[string]*domain.ProductRating),
	}
	for _, p := range products {
		cp := *p
		state.products[p.ID] = &cp
	}
	return &memStore{state: state}
}

func (s *memStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context, repo port.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.state.clone()
	if err := fn(ctx, &memRepo{state: draft, store: s}); err != nil {
		return err
	}
	s.state = draft
	return nil
}

// Direct (auto-commit) repository access used outside transactions.

func (s *memStore) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memRepo{state: s.state, store: s}).GetProduct(ctx, productID)
}

func (s *memStore) ReserveStock(ctx context.Context, lines []domain.StockLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memRepo{state: s.state, store: s}).ReserveStock(ctx, lines)
}

func (s *memStore) ReleaseStock(ctx context.Context, lines []domain.StockLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memRepo{state: s.state, store: s}).ReleaseStock(ctx, lines)
}

func (s *memStore) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memRepo{state: s.state, store: s}).GetCart(ctx, userID)
}

func (s *memStore) EnsureCart(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memRepo{state: s.state, store: s}).EnsureCart(ctx, userID)
}

func (s *memStore) AddCartItem(ctx context.Context, cartID int64, item domain.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memRepo{state: s.state, store: s}).AddCartItem(ctx, cartID, item)
}

func (s *memStore) SetCartItemQuantity(ctx context.Context, cartID, productID int64, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memRepo{state: s.state, store: s}).SetCartItemQuantity(ctx, cartID, productID, quantity)
}

func (s *memStore) RemoveCartItem(ctx context.Context, cartID, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memRepo{state: s.state, store: s}).RemoveCartItem(ctx, cartID, productID)
}

func (s *memStore) ClearCartItems(ctx context.Context, cartID int64, productIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memRepo{state: s.state, store: s}).ClearCartItems(ctx, cartID, productIDs)
}

func (s *memStore) CreateOrder(ctx context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memRepo{state: s.state, store: s}).CreateOrder(ctx, order)
}

func (s *memStore) GetOrderForUpdate(ctx context.Context, orderID int64) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memRepo{state: s.state, store: s}).GetOrderForUpdate(ctx, orderID)
}

func (s *memStore) SaveOrderStatus(ctx context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memRepo{state: s.state, store: s}).SaveOrderStatus(ctx, order)
}

func (s *memStore) HasPurchased(ctx context.Context, userID string, productID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memRepo{state: s.state, store: s}).HasPurchased(ctx, userID, productID)
}

func (s *memStore) RecordOrderEvent(ctx context.Context, event domain.OrderEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memRepo{state: s.state, store: s}).RecordOrderEvent(ctx, event)
}

func (s *memStore) UpsertRating(ctx context.Context, rating domain.ProductRating) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memRepo{state: s.state, store: s}).UpsertRating(ctx, rating)
}

func (s *memStore) RatingSummary(ctx context.Context, productID int64) (domain.RatingSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memRepo{state: s.state, store: s}).RatingSummary(ctx, productID)
}

// productQuantity reads stock outside any transaction, for assertions.
func (s *memStore) productQuantity(productID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.products[productID].QuantityAvailable
}

func (s *memStore) storedOrder(orderID int64) *domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.orders[orderID]
}

func (st *memState) clone() *memState {
	cp := &memState{
		products:    make(map[int64]*domain.Product, len(st.products)),
		carts:       make(map[string]*domain.Cart, len(st.carts)),
		orders:      make(map[int64]*domain.Order, len(st.orders)),
		ratings:     make(map[string]*domain.ProductRating, len(st.ratings)),
		events:      append([]domain.OrderEvent(nil), st.events...),
		nextCartID:  st.nextCartID,
		nextItemID:  st.nextItemID,
		nextOrderID: st.nextOrderID,
	}
	for id, p := range st.products {
		pc := *p
		cp.products[id] = &pc
	}
	for userID, c := range st.carts {
		cc := *c
		cc.Items = append([]domain.CartItem(nil), c.Items...)
		cp.carts[userID] = &cc
	}
	for id, o := range st.orders {
		oc := *o
		oc.Items = append([]domain.OrderItem(nil), o.Items...)
		if o.DeliveryDate != nil {
			t := *o.DeliveryDate
			oc.DeliveryDate = &t
		}
		cp.orders[id] = &oc
	}
	for key, r := range st.ratings {
		rc := *r
		cp.ratings[key] = &rc
	}
	return cp
}

// memRepo implements port.Repository against one state snapshot.
type memRepo struct {
	state *memState
	store *memStore
}

func (r *memRepo) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	p, ok := r.state.products[productID]
	if !ok {
		return nil, &domain.ProductNotFoundError{ProductID: productID}
	}
	cp := *p
	return &cp, nil
}

func (r *memRepo) ReserveStock(ctx context.Context, lines []domain.StockLine) error {
	if r.store.reserveStockErr != nil {
		return r.store.reserveStockErr
	}
	for _, line := range lines {
		p, ok := r.state.products[line.ProductID]
		if !ok {
			return &domain.ProductNotFoundError{ProductID: line.ProductID}
		}
		if !p.IsActive {
			return &domain.ProductInactiveError{ProductID: line.ProductID}
		}
		if p.QuantityAvailable < line.Quantity {
			return &domain.InsufficientStockError{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: p.QuantityAvailable,
			}
		}
		p.QuantityAvailable -= line.Quantity
	}
	return nil
}

func (r *memRepo) ReleaseStock(ctx context.Context, lines []domain.StockLine) error {
	for _, line := range lines {
		p, ok := r.state.products[line.ProductID]
		if !ok {
			return &domain.ProductNotFoundError{ProductID: line.ProductID}
		}
		p.QuantityAvailable += line.Quantity
	}
	return nil
}

func (r *memRepo) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	c, ok := r.state.carts[userID]
	if !ok {
		return nil, domain.ErrCartNotFound
	}
	cp := *c
	cp.Items = append([]domain.CartItem(nil), c.Items...)
	return &cp, nil
}

func (r *memRepo) EnsureCart(ctx context.Context, userID string) (int64, error) {
	if c, ok := r.state.carts[userID]; ok {
		return c.ID, nil
	}
	r.state.nextCartID++
	now := time.Now().UTC()
	r.state.carts[userID] = &domain.Cart{
		ID:        r.state.nextCartID,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return r.state.nextCartID, nil
}

func (r *memRepo) cartByID(cartID int64) *domain.Cart {
	for _, c := range r.state.carts {
		if c.ID == cartID {
			return c
		}
	}
	return nil
}

func (r *memRepo) AddCartItem(ctx context.Context, cartID int64, item domain.CartItem) error {
	c := r.cartByID(cartID)
	if c == nil {
		return domain.ErrCartNotFound
	}
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			c.Items[i].Quantity += item.Quantity
			c.Items[i].UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	r.state.nextItemID++
	item.ID = r.state.nextItemID
	item.CartID = cartID
	item.AddedAt = time.Now().UTC()
	if p, ok := r.state.products[item.ProductID]; ok {
		item.ProductName = p.Name
	}
	c.Items = append(c.Items, item)
	return nil
}

func (r *memRepo) SetCartItemQuantity(ctx context.Context, cartID, productID int64, quantity int) error {
	c := r.cartByID(cartID)
	if c == nil {
		return domain.ErrCartNotFound
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			c.Items[i].UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return domain.ErrCartItemNotFound
}

func (r *memRepo) RemoveCartItem(ctx context.Context, cartID, productID int64) error {
	c := r.cartByID(cartID)
	if c == nil {
		return domain.ErrCartNotFound
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *memRepo) ClearCartItems(ctx context.Context, cartID int64, productIDs []int64) error {
	c := r.cartByID(cartID)
	if c == nil {
		return domain.ErrCartNotFound
	}
	drop := make(map[int64]bool, len(productIDs))
	for _, id := range productIDs {
		drop[id] = true
	}
	kept := c.Items[:0]
	for _, item := range c.Items {
		if !drop[item.ProductID] {
			kept = append(kept, item)
		}
	}
	c.Items = kept
	return nil
}

func (r *memRepo) CreateOrder(ctx context.Context, order *domain.Order) error {
	if r.store.createOrderErr != nil {
		return r.store.createOrderErr
	}
	r.state.nextOrderID++
	order.ID = r.state.nextOrderID
	for i := range order.Items {
		r.state.nextItemID++
		order.Items[i].ID = r.state.nextItemID
		order.Items[i].OrderID = order.ID
	}
	oc := *order
	oc.Items = append([]domain.OrderItem(nil), order.Items...)
	r.state.orders[order.ID] = &oc
	return nil
}

func (r *memRepo) GetOrderForUpdate(ctx context.Context, orderID int64) (*domain.Order, error) {
	o, ok := r.state.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	// The real query joins products for the owning farmer.
	for i := range cp.Items {
		if p, ok := r.state.products[cp.Items[i].ProductID]; ok {
			cp.Items[i].FarmerID = p.FarmerID
		}
	}
	if o.DeliveryDate != nil {
		t := *o.DeliveryDate
		cp.DeliveryDate = &t
	}
	return &cp, nil
}

func (r *memRepo) SaveOrderStatus(ctx context.Context, order *domain.Order) error {
	o, ok := r.state.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Status = order.Status
	o.PaymentStatus = order.PaymentStatus
	o.CancellationReason = order.CancellationReason
	o.UpdatedAt = order.UpdatedAt
	if order.DeliveryDate != nil {
		t := *order.DeliveryDate
		o.DeliveryDate = &t
	}
	return nil
}

func (r *memRepo) HasPurchased(ctx context.Context, userID string, productID int64) (bool, error) {
	for _, o := range r.state.orders {
		if o.CustomerID != userID {
			continue
		}
		for _, item := range o.Items {
			if item.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *memRepo) RecordOrderEvent(ctx context.Context, event domain.OrderEvent) error {
	r.state.events = append(r.state.events, event)
	return nil
}

func ratingKey(userID string, productID int64) string {
	return fmt.Sprintf("%s|%d", userID, productID)
}

func (r *memRepo) UpsertRating(ctx context.Context, rating domain.ProductRating) error {
	key := ratingKey(rating.UserID, rating.ProductID)
	if existing, ok := r.state.ratings[key]; ok {
		existing.Rating = rating.Rating
		existing.Comment = rating.Comment
		existing.CreatedAt = rating.CreatedAt
		return nil
	}
	cp := rating
	r.state.ratings[key] = &cp
	return nil
}

func (r *memRepo) RatingSummary(ctx context.Context, productID int64) (domain.RatingSummary, error) {
	sum, count := 0, 0
	for _, rating := range r.state.ratings {
		if rating.ProductID == productID {
			sum += rating.Rating
			count++
		}
	}
	summary := domain.RatingSummary{ProductID: productID, Count: count}
	if count > 0 {
		summary.Average = float64(sum) / float64(count)
	}
	return summary, nil
}

// mockCache is a mutex-guarded in-memory port.CacheRepository.
type mockCache struct {
	mu          sync.Mutex
	idempotency map[string]bool
	summaries   map[int64]domain.RatingSummary
	invalidated []int64
}

func newMockCache() *mockCache {
	return &mockCache{
		idempotency: make(map[string]bool),
		summaries:   make(map[int64]domain.RatingSummary),
	}
}

func (m *mockCache) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.idempotency[key] {
		return false, nil
	}
	m.idempotency[key] = true
	return true, nil
}

func (m *mockCache) ReleaseIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.idempotency, key)
	return nil
}

func (m *mockCache) GetRatingSummary(ctx context.Context, productID int64) (domain.RatingSummary, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	summary, ok := m.summaries[productID]
	return summary, ok, nil
}

func (m *mockCache) SetRatingSummary(ctx context.Context, summary domain.RatingSummary, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries[summary.ProductID] = summary
	return nil
}

func (m *mockCache) InvalidateRatingSummary(ctx context.Context, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.summaries, productID)
	m.invalidated = append(m.invalidated, productID)
	return nil
}

func (m *mockCache) hasIdempotency(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.idempotency[key]
}
