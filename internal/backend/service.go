package backend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DefaultCouponLifetime applies to coupons stored without an expiry.
const DefaultCouponLifetime = time.Hour

// EventPublisher is notified after carts are stored and orders are placed.
type EventPublisher interface {
	PublishCartStored(ctx context.Context, c Cart) error
	PublishOrderPlaced(ctx context.Context, o Order) error
}

type noopPublisher struct{}

func (noopPublisher) PublishCartStored(context.Context, Cart) error   { return nil }
func (noopPublisher) PublishOrderPlaced(context.Context, Order) error { return nil }

// Service prices carts, enforces input rules and emits events on top of a
// Repository.
type Service struct {
	repo           Repository
	publisher      EventPublisher
	logger         *log.Logger
	newID          func() string
	now            func() time.Time
	couponLifetime time.Duration
}

func NewService(repo Repository, publisher EventPublisher, logger *log.Logger) *Service {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		repo:           repo,
		publisher:      publisher,
		logger:         logger,
		newID:          uuid.NewString,
		now:            time.Now,
		couponLifetime: DefaultCouponLifetime,
	}
}

// WithCouponLifetime returns a copy of the service that gives coupons stored
// without an expiry the given lifetime.
func (s *Service) WithCouponLifetime(d time.Duration) *Service {
	cp := *s
	if d > 0 {
		cp.couponLifetime = d
	}
	return &cp
}

// Register creates a user. Names are 1 to 64 runes, passwords 8 to 64.
func (s *Service) Register(ctx context.Context, name, password string) (User, error) {
	if n := utf8.RuneCountInString(name); n < 1 || n > 64 {
		return User{}, fmt.Errorf("%w: name must be 1 to 64 characters", ErrInvalid)
	}
	if n := utf8.RuneCountInString(password); n < 8 || n > 64 {
		return User{}, fmt.Errorf("%w: password must be 8 to 64 characters", ErrInvalid)
	}

	u := User{ID: s.newID(), Name: name}
	if err := s.repo.CreateUser(ctx, u.ID, name, password); err != nil {
		return User{}, fmt.Errorf("create user %s: %w", name, err)
	}
	return u, nil
}

// Login returns the user with the given name and password.
func (s *Service) Login(ctx context.Context, name, password string) (User, error) {
	u, err := s.repo.FindUserByNameAndPassword(ctx, name, password)
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrUnauthenticated
	}
	return u, err
}

// Authenticate checks basic auth credentials.
func (s *Service) Authenticate(ctx context.Context, id, password string) (User, error) {
	u, err := s.repo.FindUserByIDAndPassword(ctx, id, password)
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrUnauthenticated
	}
	return u, err
}

func (s *Service) Products(ctx context.Context) ([]Product, error) {
	return s.repo.FindAllProducts(ctx)
}

// SeedProducts creates the products that are missing.
func (s *Service) SeedProducts(ctx context.Context, products []Product) error {
	for _, p := range products {
		if err := s.repo.CreateProduct(ctx, p); err != nil && !errors.Is(err, ErrConflict) {
			return fmt.Errorf("seed product %s: %w", p.ID, err)
		}
	}
	return nil
}

// SaveCoupon stores the coupon for an existing product. A zero ExpiresAt means
// the coupon lifetime from now.
func (s *Service) SaveCoupon(ctx context.Context, c Coupon) (Coupon, error) {
	if c.Code == "" {
		return Coupon{}, fmt.Errorf("%w: coupon code is required", ErrInvalid)
	}
	if c.Discount < 1 || c.Discount > 100 {
		return Coupon{}, fmt.Errorf("%w: discount must be 1 to 100 percent", ErrInvalid)
	}
	if _, err := s.repo.FindProduct(ctx, c.ProductID); err != nil {
		return Coupon{}, fmt.Errorf("coupon %s for product %s: %w", c.Code, c.ProductID, err)
	}
	if c.ExpiresAt.IsZero() {
		c.ExpiresAt = s.now().Add(s.couponLifetime)
	}
	c.ExpiresAt = c.ExpiresAt.UTC()

	if err := s.repo.StoreCoupon(ctx, c); err != nil {
		return Coupon{}, fmt.Errorf("store coupon %s: %w", c.Code, err)
	}
	return c, nil
}

// Coupon returns the coupon with the given code unless it expired.
func (s *Service) Coupon(ctx context.Context, code string) (Coupon, error) {
	return s.repo.FindValidCoupon(ctx, code, s.now())
}

// StoreCart creates or replaces the cart with the given id and returns it
// priced. created reports whether the cart was new.
func (s *Service) StoreCart(ctx context.Context, userID, id string, lines []Line) (c Cart, created bool, err error) {
	if id == "" {
		return Cart{}, false, fmt.Errorf("%w: cart id is required", ErrInvalid)
	}
	for _, l := range lines {
		if l.ProductID == "" {
			return Cart{}, false, fmt.Errorf("%w: position without product", ErrInvalid)
		}
		if l.Quantity < 0 {
			return Cart{}, false, fmt.Errorf("%w: negative quantity for %s", ErrInvalid, l.ProductID)
		}
	}
	lines = normalizeLines(lines)

	err = s.repo.UpdateCartOfUser(ctx, userID, id, lines)
	if errors.Is(err, ErrNotFound) {
		err = s.repo.CreateCart(ctx, userID, id, lines)
		created = err == nil
	}
	if err != nil {
		return Cart{}, false, fmt.Errorf("store cart %s: %w", id, err)
	}

	c, err = s.repo.FindCartOfUser(ctx, userID, id)
	if err != nil {
		return Cart{}, false, fmt.Errorf("load cart %s: %w", id, err)
	}
	if err := s.price(ctx, &c); err != nil {
		return Cart{}, false, err
	}

	if err := s.publisher.PublishCartStored(ctx, c); err != nil {
		s.logger.Printf("publish cart stored %s: %v", id, err)
	}
	return c, created, nil
}

// Carts returns the priced carts of the user in creation order.
func (s *Service) Carts(ctx context.Context, userID string, includeLocked bool) ([]Cart, error) {
	carts, err := s.repo.FindCartsOfUser(ctx, userID, includeLocked)
	if err != nil {
		return nil, err
	}
	for i := range carts {
		if err := s.price(ctx, &carts[i]); err != nil {
			return nil, err
		}
	}
	return carts, nil
}

func (s *Service) Cart(ctx context.Context, userID, id string) (Cart, error) {
	c, err := s.repo.FindCartOfUser(ctx, userID, id)
	if err != nil {
		return Cart{}, err
	}
	if err := s.price(ctx, &c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

func (s *Service) DeleteCart(ctx context.Context, userID, id string) error {
	return s.repo.DeleteCartOfUser(ctx, userID, id)
}

// CreateOrder creates an order from the cart. The cart must be unlocked and
// all of its products must still exist. Each coupon must be valid; the best
// one per product is applied.
func (s *Service) CreateOrder(ctx context.Context, userID, cartID string, buyer, recipient Address, coupons ...string) (Order, error) {
	c, err := s.Cart(ctx, userID, cartID)
	if err != nil {
		return Order{}, err
	}
	if c.Locked {
		return Order{}, ErrLocked
	}
	if len(c.Positions) == 0 {
		return Order{}, fmt.Errorf("%w: cart %s is empty", ErrInvalid, cartID)
	}

	positions, codes, err := s.orderPositions(ctx, c, coupons)
	if err != nil {
		return Order{}, err
	}
	o := Order{
		ID:           s.newID(),
		UserID:       userID,
		CartID:       cartID,
		CartRevision: c.Revision,
		Hash:         hashPositions(positions),
		Coupons:      codes,
		Status:       OrderCreated,
		Buyer:        buyer,
		Recipient:    recipient,
		Positions:    positions,
	}
	for _, p := range positions {
		o.Price += p.Price
	}

	if err := s.repo.CreateOrder(ctx, o); err != nil {
		return Order{}, fmt.Errorf("create order: %w", err)
	}
	return s.repo.FindOrderOfUser(ctx, userID, o.ID)
}

func (s *Service) Order(ctx context.Context, userID, id string) (Order, error) {
	return s.repo.FindOrderOfUser(ctx, userID, id)
}

// PlaceOrder places the order and locks its cart. An order whose cart,
// products or coupons changed since it was created is deleted and ErrDeleted
// is returned.
func (s *Service) PlaceOrder(ctx context.Context, userID, id string) (Order, error) {
	o, err := s.repo.FindOrderOfUser(ctx, userID, id)
	if err != nil {
		return Order{}, err
	}
	if o.Status == OrderPlaced {
		return Order{}, ErrLocked
	}

	c, err := s.Cart(ctx, userID, o.CartID)
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrDeleted), errors.Is(err, ErrNotOwnedByUser):
		return Order{}, s.dropOrder(ctx, userID, id)
	case err != nil:
		return Order{}, err
	}
	if c.Locked {
		return Order{}, ErrLocked
	}

	positions, _, err := s.orderPositions(ctx, c, o.Coupons)
	switch {
	case errors.Is(err, ErrInvalid):
		return Order{}, s.dropOrder(ctx, userID, id)
	case err != nil:
		return Order{}, err
	case c.Revision != o.CartRevision, hashPositions(positions) != o.Hash:
		return Order{}, s.dropOrder(ctx, userID, id)
	}

	// The repository checks the cart revision again while locking.
	o, err = s.repo.PlaceOrderOfUser(ctx, userID, id)
	if err != nil {
		return Order{}, err
	}
	if err := s.publisher.PublishOrderPlaced(ctx, o); err != nil {
		s.logger.Printf("publish order placed %s: %v", id, err)
	}
	return o, nil
}

func (s *Service) dropOrder(ctx context.Context, userID, id string) error {
	if err := s.repo.DeleteOrderOfUser(ctx, userID, id); err != nil && !errors.Is(err, ErrDeleted) {
		return fmt.Errorf("delete outdated order %s: %w", id, err)
	}
	return fmt.Errorf("%w: order %s is outdated", ErrDeleted, id)
}

// orderPositions returns the positions of the priced cart followed, per
// product, by a position for the best of the given coupons. Unknown and
// expired coupons and unavailable products are ErrInvalid. The returned
// codes are the given ones without duplicates.
func (s *Service) orderPositions(ctx context.Context, c Cart, codes []string) ([]Position, []string, error) {
	best := make(map[string]Coupon, len(codes))
	seen := make(map[string]bool, len(codes))
	var unique []string
	for _, code := range codes {
		if seen[code] {
			continue
		}
		seen[code] = true
		unique = append(unique, code)

		coupon, err := s.repo.FindValidCoupon(ctx, code, s.now())
		if errors.Is(err, ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: coupon %s is unknown or expired", ErrInvalid, code)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("load coupon %s: %w", code, err)
		}
		if b, ok := best[coupon.ProductID]; !ok || coupon.Discount > b.Discount {
			best[coupon.ProductID] = coupon
		}
	}

	out := make([]Position, 0, len(c.Positions)+len(best))
	for _, p := range c.Positions {
		if p.ProductID == "" {
			return nil, nil, fmt.Errorf("%w: cart %s contains unavailable products", ErrInvalid, c.ID)
		}
		out = append(out, p)

		coupon, ok := best[p.ProductID]
		if !ok {
			continue
		}
		discount := coupon.Discount * p.Price / 100
		out = append(out, Position{
			CouponCode: coupon.Code,
			Quantity:   1,
			Price:      -discount,
			SavedPrice: discount,
			Product:    Product{Name: coupon.Name},
		})
	}
	return out, unique, nil
}

// hashPositions identifies a list of order positions independent of their
// order.
func hashPositions(positions []Position) string {
	entries := make([]string, 0, len(positions))
	for _, p := range positions {
		if p.CouponCode != "" {
			entries = append(entries, fmt.Sprintf("%d,%d,coupon:%q", p.Quantity, p.Price, p.CouponCode))
			continue
		}
		entries = append(entries, fmt.Sprintf("%d,%d,product:%s", p.Quantity, p.Price, p.ProductID))
	}
	sort.Strings(entries)
	sum := sha256.Sum256([]byte(strings.Join(entries, "\n")))
	return hex.EncodeToString(sum[:])
}

// price resolves the products of the cart lines and computes position prices.
func (s *Service) price(ctx context.Context, c *Cart) error {
	c.Positions = make([]Position, 0, len(c.Lines))
	for _, l := range c.Lines {
		pos := Position{ProductID: l.ProductID, Quantity: l.Quantity}
		p, err := s.repo.FindProduct(ctx, l.ProductID)
		switch {
		case errors.Is(err, ErrNotFound):
			pos.ProductID = ""
			pos.Product = Product{Name: UnavailableProductName}
		case err != nil:
			return fmt.Errorf("load product %s: %w", l.ProductID, err)
		default:
			pos.Product = p
			pos.Price = l.Quantity * p.Price
		}
		c.Positions = append(c.Positions, pos)
	}
	return nil
}

// DefaultProducts is the catalog seeded into empty stores.
var DefaultProducts = []Product{
	{ID: "8b5e9f2a-1c1d-4e55-9f0a-6f1b4f3c2a01", Name: "Apple", Price: 30},
	{ID: "c2a4d8e1-7b3f-4a9c-8d2e-1f0b3a5c7e02", Name: "Banana", Price: 25},
	{ID: "e7f1a3b5-9c2d-4e6f-8a1b-3c5d7e9f1a03", Name: "Coffee", Price: 799},
	{ID: "1a3c5e7f-2b4d-4f6a-9c8e-0b2d4f6a8c04", Name: "Notebook", Price: 349},
	{ID: "3b5d7f9a-4c6e-4a8b-8d0f-2c4e6a8b0d05", Name: "Pen", Price: 150},
}
