// Package storefront owns the client state of the shop (catalog, cart, user
// and order) and exposes the actions the UI dispatches.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/dto"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/user"
)

var (
	ErrNotSignedIn = errors.New("not signed in")
	ErrNoOrder     = errors.New("no order")
	ErrEmptyCart   = errors.New("cart is empty")
)

type ProductLister interface {
	ListProducts(ctx context.Context) ([]dto.Product, error)
}

type OrderService interface {
	CreateOrder(ctx context.Context, creds user.Credentials, cartID string, req dto.CreateOrderRequest) (dto.Order, error)
	PlaceOrder(ctx context.Context, creds user.Credentials, orderID string) (dto.Order, error)
}

type Pusher interface {
	Push(ctx context.Context) error
}

type Sessions interface {
	Login(ctx context.Context, creds session.Credentials) (user.User, error)
	Logout()
}

type Deps struct {
	Products ProductLister
	Orders   OrderService
	Sync     Pusher
	Sessions Sessions
	Cart     *cart.State
	User     *user.State
}

// Store holds the catalog and order slices next to the cart and user state.
type Store struct {
	products ProductLister
	orders   OrderService
	sync     Pusher
	sessions Sessions
	cart     *cart.State
	user     *user.State

	mu      sync.RWMutex
	catalog []cart.Product
	order   *Order
}

func New(d Deps) *Store {
	return &Store{
		products: d.Products,
		orders:   d.Orders,
		sync:     d.Sync,
		sessions: d.Sessions,
		cart:     d.Cart,
		user:     d.User,
	}
}

func (s *Store) Cart() cart.Cart { return s.cart.Cart() }
func (s *Store) User() user.User { return s.user.User() }

// Products returns the loaded catalog.
func (s *Store) Products() []cart.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]cart.Product, len(s.catalog))
	copy(out, s.catalog)
	return out
}

// Order returns the current order, if any.
func (s *Store) Order() (Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.order == nil {
		return Order{}, false
	}
	return s.order.clone(), true
}

// LoadAllProducts replaces the catalog with the products of the store.
func (s *Store) LoadAllProducts(ctx context.Context) ([]cart.Product, error) {
	list, err := s.products.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	catalog := make([]cart.Product, 0, len(list))
	for _, p := range list {
		catalog = append(catalog, cart.Product{ID: p.ID, Name: p.Name, Price: p.Price})
	}

	s.mu.Lock()
	s.catalog = catalog
	s.mu.Unlock()
	return s.Products(), nil
}

// AddToCart adds one piece of the product and pushes the cart. The local
// change stays even if the push fails.
func (s *Store) AddToCart(ctx context.Context, productID string) error {
	s.cart.Add(productID)
	return s.sync.Push(ctx)
}

// UpdateCartPositions merges the positions into the cart and pushes it.
func (s *Store) UpdateCartPositions(ctx context.Context, positions []cart.Position) error {
	s.cart.UpdatePositions(positions)
	return s.sync.Push(ctx)
}

// SetQuantity sets the quantity of the product and pushes the cart.
func (s *Store) SetQuantity(ctx context.Context, productID string, quantity int) error {
	s.cart.SetQuantity(productID, quantity)
	return s.sync.Push(ctx)
}

func (s *Store) RemoveFromCart(ctx context.Context, productID string) error {
	return s.SetQuantity(ctx, productID, 0)
}

// CreateOrder creates an order for the current cart. A cart that was never
// stored is pushed first. The coupon codes are applied by the store.
func (s *Store) CreateOrder(ctx context.Context, buyer, recipient Address, coupons ...string) (Order, error) {
	u := s.user.User()
	if !u.SignedIn() {
		return Order{}, ErrNotSignedIn
	}
	if len(s.cart.Cart().Positions) == 0 {
		return Order{}, ErrEmptyCart
	}
	if !s.cart.Cart().Persisted() {
		if err := s.sync.Push(ctx); err != nil {
			return Order{}, fmt.Errorf("store cart before ordering: %w", err)
		}
	}

	c := s.cart.Cart()
	if !c.Persisted() {
		return Order{}, errors.New("create order: cart has no identity")
	}

	resp, err := s.orders.CreateOrder(ctx, u.Credentials(), c.ID, dto.CreateOrderRequest{
		Buyer:     buyer.toDTO(),
		Recipient: recipient.toDTO(),
		Coupons:   coupons,
	})
	if err != nil {
		return Order{}, fmt.Errorf("create order for cart %s: %w", c.ID, err)
	}

	o := orderFromDTO(resp)
	s.mu.Lock()
	s.order = &o
	s.mu.Unlock()
	return o.clone(), nil
}

// PlaceOrder places the current order. The store locks the ordered cart, so
// the local cart starts over.
func (s *Store) PlaceOrder(ctx context.Context) (Order, error) {
	u := s.user.User()
	if !u.SignedIn() {
		return Order{}, ErrNotSignedIn
	}
	current, ok := s.Order()
	if !ok {
		return Order{}, ErrNoOrder
	}

	resp, err := s.orders.PlaceOrder(ctx, u.Credentials(), current.ID)
	if err != nil {
		return Order{}, fmt.Errorf("place order %s: %w", current.ID, err)
	}

	o := orderFromDTO(resp)
	s.mu.Lock()
	s.order = &o
	s.mu.Unlock()
	s.cart.Reset()
	return o.clone(), nil
}

func (s *Store) Login(ctx context.Context, creds session.Credentials) (user.User, error) {
	return s.sessions.Login(ctx, creds)
}

// Logout signs the user out and drops cart and order.
func (s *Store) Logout() {
	s.sessions.Logout()
	s.mu.Lock()
	s.order = nil
	s.mu.Unlock()
}
