// Package memory is an in-memory implementation of the storage interfaces.
// It is safe for concurrent use and is primarily intended for tests and local
// development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexcart/commerce-core/internal/domain/address"
	"github.com/nexcart/commerce-core/internal/domain/cart"
	"github.com/nexcart/commerce-core/internal/domain/catalog"
	"github.com/nexcart/commerce-core/internal/domain/order"
	"github.com/nexcart/commerce-core/internal/domain/user"
	"github.com/nexcart/commerce-core/internal/storage"
)

// Store holds every aggregate in process memory.
type Store struct {
	mu     sync.RWMutex
	nextID int64

	users      map[int64]user.User
	products   map[int64]catalog.Product
	categories map[int64]catalog.Category
	carts      map[int64]cart.Cart // keyed by cart id
	cartByUser map[int64]int64
	cartItems  map[int64]cart.Item // keyed by item id
	orders     map[int64]order.Order
	orderItems map[int64][]order.Item
	addresses  map[int64]address.Address
}

var _ storage.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:     1,
		users:      make(map[int64]user.User),
		products:   make(map[int64]catalog.Product),
		categories: make(map[int64]catalog.Category),
		carts:      make(map[int64]cart.Cart),
		cartByUser: make(map[int64]int64),
		cartItems:  make(map[int64]cart.Item),
		orders:     make(map[int64]order.Order),
		orderItems: make(map[int64][]order.Item),
		addresses:  make(map[int64]address.Address),
	}
}

func (s *Store) nextIDLocked() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// UserStore implementation ----------------------------------------------------

func (s *Store) Create(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == u.Email {
			return user.User{}, storage.ErrConflict
		}
	}

	u.ID = s.nextIDLocked()
	u.CreatedAt = time.Now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UpsertFederated(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.GoogleID == u.GoogleID {
			return existing, nil
		}
	}

	u.ID = s.nextIDLocked()
	u.CreatedAt = time.Now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetByID(_ context.Context, id int64) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, storage.ErrNotFound
}

func (s *Store) GetByGoogleID(_ context.Context, googleID string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.GoogleID != "" && u.GoogleID == googleID {
			return u, nil
		}
	}
	return user.User{}, storage.ErrNotFound
}

func (s *Store) TouchLastLogin(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	now := time.Now().UTC()
	u.LastLogin = &now
	s.users[id] = u
	return nil
}

// CatalogStore implementation --------------------------------------------------

func (s *Store) CreateProduct(_ context.Context, p catalog.Product) (catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.CategoryID != nil {
		if _, ok := s.categories[*p.CategoryID]; !ok {
			return catalog.Product{}, storage.ErrConflict
		}
	}

	now := time.Now().UTC()
	p.ID = s.nextIDLocked()
	p.Active = true
	p.CreatedAt = now
	p.UpdatedAt = now
	s.products[p.ID] = p
	return p, nil
}

func (s *Store) GetProduct(_ context.Context, id int64) (catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return catalog.Product{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListProducts(_ context.Context, includeInactive bool) ([]catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []catalog.Product
	for id := int64(1); id < s.nextID; id++ {
		p, ok := s.products[id]
		if !ok {
			continue
		}
		if !p.Active && !includeInactive {
			continue
		}
		result = append(result, p)
	}
	return result, nil
}

func (s *Store) UpdateProduct(_ context.Context, id int64, patch catalog.ProductPatch) (catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return catalog.Product{}, storage.ErrNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.CategoryID != nil {
		if _, ok := s.categories[*patch.CategoryID]; !ok {
			return catalog.Product{}, storage.ErrConflict
		}
		id := *patch.CategoryID
		p.CategoryID = &id
	}
	p.UpdatedAt = time.Now().UTC()
	s.products[id] = p
	return p, nil
}

func (s *Store) DeactivateProduct(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return storage.ErrNotFound
	}
	p.Active = false
	p.UpdatedAt = time.Now().UTC()
	s.products[id] = p
	return nil
}

func (s *Store) CreateCategory(_ context.Context, c catalog.Category) (catalog.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ParentID != nil {
		if _, ok := s.categories[*c.ParentID]; !ok {
			return catalog.Category{}, storage.ErrConflict
		}
	}

	c.ID = s.nextIDLocked()
	c.CreatedAt = time.Now().UTC()
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (catalog.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return catalog.Category{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCategories(_ context.Context) ([]catalog.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []catalog.Category
	for id := int64(1); id < s.nextID; id++ {
		if c, ok := s.categories[id]; ok {
			result = append(result, c)
		}
	}
	return result, nil
}

func (s *Store) UpdateCategory(_ context.Context, c catalog.Category) (catalog.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.categories[c.ID]
	if !ok {
		return catalog.Category{}, storage.ErrNotFound
	}
	c.CreatedAt = existing.CreatedAt
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return storage.ErrNotFound
	}
	for _, p := range s.products {
		if p.CategoryID != nil && *p.CategoryID == id {
			return storage.ErrConflict
		}
	}
	for _, c := range s.categories {
		if c.ParentID != nil && *c.ParentID == id {
			return storage.ErrConflict
		}
	}
	delete(s.categories, id)
	return nil
}

// CartStore implementation -----------------------------------------------------

func (s *Store) GetOrCreate(_ context.Context, userID int64) (cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.ensureCartLocked(userID)
	c.Items = s.cartItemsLocked(c.ID)
	return c, nil
}

func (s *Store) ensureCartLocked(userID int64) cart.Cart {
	if cartID, ok := s.cartByUser[userID]; ok {
		return s.carts[cartID]
	}

	now := time.Now().UTC()
	c := cart.Cart{ID: s.nextIDLocked(), UserID: userID, CreatedAt: now, UpdatedAt: now}
	s.carts[c.ID] = c
	s.cartByUser[userID] = c.ID
	return c
}

func (s *Store) cartItemsLocked(cartID int64) []cart.Item {
	items := []cart.Item{}
	for id := int64(1); id < s.nextID; id++ {
		item, ok := s.cartItems[id]
		if !ok || item.CartID != cartID {
			continue
		}
		items = append(items, s.decorateItemLocked(item))
	}
	return items
}

func (s *Store) decorateItemLocked(item cart.Item) cart.Item {
	if p, ok := s.products[item.ProductID]; ok {
		item.ProductName = p.Name
		item.UnitPrice = p.Price
	}
	return item
}

func (s *Store) AddItem(_ context.Context, userID, productID int64, quantity int) (cart.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok || !p.Active {
		return cart.Item{}, storage.ErrNotFound
	}

	c := s.ensureCartLocked(userID)

	for id, item := range s.cartItems {
		if item.CartID == c.ID && item.ProductID == productID {
			item.Quantity += quantity
			s.cartItems[id] = item
			return s.decorateItemLocked(item), nil
		}
	}

	item := cart.Item{ID: s.nextIDLocked(), CartID: c.ID, ProductID: productID, Quantity: quantity}
	s.cartItems[item.ID] = item
	return s.decorateItemLocked(item), nil
}

func (s *Store) UpdateItemQuantity(_ context.Context, userID, itemID int64, quantity int) (cart.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.cartItems[itemID]
	if !ok || !s.cartOwnedByLocked(item.CartID, userID) {
		return cart.Item{}, storage.ErrNotFound
	}
	item.Quantity = quantity
	s.cartItems[itemID] = item
	return s.decorateItemLocked(item), nil
}

func (s *Store) RemoveItem(_ context.Context, userID, itemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.cartItems[itemID]
	if !ok || !s.cartOwnedByLocked(item.CartID, userID) {
		return storage.ErrNotFound
	}
	delete(s.cartItems, itemID)
	return nil
}

func (s *Store) cartOwnedByLocked(cartID, userID int64) bool {
	c, ok := s.carts[cartID]
	return ok && c.UserID == userID
}

// OrderStore implementation ----------------------------------------------------

func (s *Store) CreateOrder(_ context.Context, userID int64, lines []order.Line) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Resolve every line before mutating anything so a bad line leaves no
	// partial order behind.
	type resolved struct {
		line  order.Line
		price decimal.Decimal
	}
	var snapshot []resolved
	total := decimal.Zero
	for _, line := range lines {
		p, ok := s.products[line.ProductID]
		if !ok || !p.Active {
			return order.Order{}, storage.ErrNotFound
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		snapshot = append(snapshot, resolved{line: line, price: p.Price})
	}

	o := order.Order{
		ID:          s.nextIDLocked(),
		UserID:      userID,
		TotalAmount: total,
		Status:      order.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	for _, r := range snapshot {
		item := order.Item{
			ID:        s.nextIDLocked(),
			OrderID:   o.ID,
			ProductID: r.line.ProductID,
			Quantity:  r.line.Quantity,
			UnitPrice: r.price,
		}
		s.orderItems[o.ID] = append(s.orderItems[o.ID], item)
	}
	s.orders[o.ID] = o

	o.Items = append([]order.Item(nil), s.orderItems[o.ID]...)
	return o, nil
}

func (s *Store) GetOrder(_ context.Context, userID, orderID int64) (order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[orderID]
	if !ok || o.UserID != userID {
		return order.Order{}, storage.ErrNotFound
	}
	o.Items = append([]order.Item(nil), s.orderItems[orderID]...)
	return o, nil
}

func (s *Store) ListOrders(_ context.Context, userID int64) ([]order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []order.Order
	for id := s.nextID - 1; id >= 1; id-- {
		o, ok := s.orders[id]
		if !ok || o.UserID != userID {
			continue
		}
		result = append(result, o)
	}
	return result, nil
}

func (s *Store) Transition(_ context.Context, userID, orderID int64, next order.Status, allowedFrom ...order.Status) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok || o.UserID != userID {
		return order.Order{}, storage.ErrNotFound
	}

	allowed := false
	for _, from := range allowedFrom {
		if o.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return order.Order{}, storage.ErrConflict
	}

	o.Status = next
	s.orders[orderID] = o
	o.Items = append([]order.Item(nil), s.orderItems[orderID]...)
	return o, nil
}

func (s *Store) SetRefunded(_ context.Context, userID, orderID int64, refundID string) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok || o.UserID != userID {
		return order.Order{}, storage.ErrNotFound
	}
	if o.Status != order.StatusCompleted {
		return order.Order{}, storage.ErrConflict
	}

	o.Status = order.StatusRefunded
	o.RefundID = refundID
	s.orders[orderID] = o
	o.Items = append([]order.Item(nil), s.orderItems[orderID]...)
	return o, nil
}

// SetPaymentRef attaches an external payment reference to an order. Test
// seams and the payment-confirmation webhook use it; it is not part of the
// storage contracts.
func (s *Store) SetPaymentRef(orderID int64, ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o, ok := s.orders[orderID]; ok {
		o.PaymentRef = ref
		s.orders[orderID] = o
	}
}

// AddressStore implementation --------------------------------------------------

func (s *Store) CreateAddress(_ context.Context, a address.Address) (address.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.IsDefault {
		s.clearDefaultLocked(a.UserID)
	}

	a.ID = s.nextIDLocked()
	a.CreatedAt = time.Now().UTC()
	s.addresses[a.ID] = a
	return a, nil
}

func (s *Store) clearDefaultLocked(userID int64) {
	for id, existing := range s.addresses {
		if existing.UserID == userID && existing.IsDefault {
			existing.IsDefault = false
			s.addresses[id] = existing
		}
	}
}

func (s *Store) GetAddress(_ context.Context, userID, id int64) (address.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.addresses[id]
	if !ok || a.UserID != userID {
		return address.Address{}, storage.ErrNotFound
	}
	return a, nil
}

func (s *Store) ListAddresses(_ context.Context, userID int64) ([]address.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []address.Address
	for id := int64(1); id < s.nextID; id++ {
		a, ok := s.addresses[id]
		if !ok || a.UserID != userID {
			continue
		}
		result = append(result, a)
	}
	return result, nil
}

func (s *Store) UpdateAddress(_ context.Context, a address.Address) (address.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.addresses[a.ID]
	if !ok || existing.UserID != a.UserID {
		return address.Address{}, storage.ErrNotFound
	}
	if a.IsDefault {
		s.clearDefaultLocked(a.UserID)
	}
	a.CreatedAt = existing.CreatedAt
	s.addresses[a.ID] = a
	return a, nil
}

func (s *Store) DeleteAddress(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.addresses[id]
	if !ok || a.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.addresses, id)
	return nil
}
