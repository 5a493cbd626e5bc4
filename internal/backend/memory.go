package backend

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type memUser struct {
	id           string
	name         string
	passwordHash []byte
}

type memCart struct {
	userID    string
	lines     []Line
	revision  int
	locked    bool
	createdAt time.Time
}

// MemoryRepository keeps everything in process memory. It is safe for
// concurrent use.
type MemoryRepository struct {
	mu sync.Mutex

	usersByID   map[string]*memUser
	usersByName map[string]*memUser
	products    map[string]Product
	coupons     map[string]Coupon
	carts       map[string]*memCart // nil marks a deleted cart
	cartOrder   []string
	orders      map[string]*Order // nil marks a deleted order

	bcryptCost int
	now        func() time.Time
}

type MemoryOption func(*MemoryRepository)

// WithBcryptCost sets the password hashing cost. bcrypt.MinCost keeps tests
// fast.
func WithBcryptCost(cost int) MemoryOption {
	return func(r *MemoryRepository) { r.bcryptCost = cost }
}

func NewMemoryRepository(opts ...MemoryOption) *MemoryRepository {
	r := &MemoryRepository{
		usersByID:   make(map[string]*memUser),
		usersByName: make(map[string]*memUser),
		products:    make(map[string]Product),
		coupons:     make(map[string]Coupon),
		carts:       make(map[string]*memCart),
		orders:      make(map[string]*Order),
		bcryptCost:  bcrypt.DefaultCost,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ Repository = (*MemoryRepository)(nil)

func (r *MemoryRepository) CreateUser(_ context.Context, id, name, password string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.usersByID[id]; ok {
		return ErrConflict
	}
	if _, ok := r.usersByName[name]; ok {
		return ErrConflict
	}

	hash, err := hashPassword(password, r.bcryptCost)
	if err != nil {
		return err
	}
	u := &memUser{id: id, name: name, passwordHash: hash}
	r.usersByID[id] = u
	r.usersByName[name] = u
	return nil
}

func (r *MemoryRepository) FindUserByNameAndPassword(_ context.Context, name, password string) (User, error) {
	r.mu.Lock()
	u, ok := r.usersByName[name]
	r.mu.Unlock()
	if !ok || !passwordMatches(u.passwordHash, password) {
		return User{}, ErrNotFound
	}
	return User{ID: u.id, Name: u.name}, nil
}

func (r *MemoryRepository) FindUserByIDAndPassword(_ context.Context, id, password string) (User, error) {
	r.mu.Lock()
	u, ok := r.usersByID[id]
	r.mu.Unlock()
	if !ok || !passwordMatches(u.passwordHash, password) {
		return User{}, ErrNotFound
	}
	return User{ID: u.id, Name: u.name}, nil
}

func (r *MemoryRepository) CreateProduct(_ context.Context, p Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[p.ID]; ok {
		return ErrConflict
	}
	r.products[p.ID] = p
	return nil
}

func (r *MemoryRepository) FindAllProducts(_ context.Context) ([]Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepository) FindProduct(_ context.Context, id string) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepository) StoreCoupon(_ context.Context, c Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.coupons[c.Code] = c
	return nil
}

func (r *MemoryRepository) FindValidCoupon(_ context.Context, code string, now time.Time) (Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.coupons[code]
	if !ok || !c.ExpiresAt.After(now) {
		return Coupon{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepository) CreateCart(_ context.Context, userID, id string, lines []Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.carts[id]; ok {
		return ErrConflict
	}
	r.carts[id] = &memCart{userID: userID, lines: copyLines(lines), createdAt: r.now().UTC()}
	r.cartOrder = append(r.cartOrder, id)
	return nil
}

func (r *MemoryRepository) UpdateCartOfUser(_ context.Context, userID, id string, lines []Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.cartOfUser(userID, id)
	if err != nil {
		return err
	}
	if c.locked {
		return ErrLocked
	}
	if !linesEqual(c.lines, lines) {
		c.lines = copyLines(lines)
		c.revision++
	}
	return nil
}

func (r *MemoryRepository) FindCartsOfUser(_ context.Context, userID string, includeLocked bool) ([]Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Cart, 0)
	for _, id := range r.cartOrder {
		c := r.carts[id]
		if c == nil || c.userID != userID {
			continue
		}
		if c.locked && !includeLocked {
			continue
		}
		out = append(out, c.toCart(id))
	}
	return out, nil
}

func (r *MemoryRepository) FindCartOfUser(_ context.Context, userID, id string) (Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.cartOfUser(userID, id)
	if err != nil {
		return Cart{}, err
	}
	return c.toCart(id), nil
}

func (r *MemoryRepository) DeleteCartOfUser(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.cartOfUser(userID, id)
	if err != nil {
		return err
	}
	if c.locked {
		return ErrLocked
	}
	r.carts[id] = nil
	return nil
}

func (r *MemoryRepository) CreateOrder(_ context.Context, o Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[o.ID]; ok {
		return ErrConflict
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = r.now().UTC()
	}
	stored := copyOrder(o)
	r.orders[o.ID] = &stored
	return nil
}

func (r *MemoryRepository) FindOrderOfUser(_ context.Context, userID, id string) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, err := r.orderOfUser(userID, id)
	if err != nil {
		return Order{}, err
	}
	return copyOrder(*o), nil
}

func (r *MemoryRepository) DeleteOrderOfUser(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, err := r.orderOfUser(userID, id)
	if err != nil {
		return err
	}
	if o.Status == OrderPlaced {
		return ErrLocked
	}
	r.orders[id] = nil
	return nil
}

func (r *MemoryRepository) PlaceOrderOfUser(_ context.Context, userID, id string) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, err := r.orderOfUser(userID, id)
	if err != nil {
		return Order{}, err
	}
	if o.Status == OrderPlaced {
		return Order{}, ErrLocked
	}

	c, err := r.cartOfUser(userID, o.CartID)
	if err != nil || c.revision != o.CartRevision {
		r.orders[id] = nil
		return Order{}, ErrDeleted
	}
	if c.locked {
		return Order{}, ErrLocked
	}

	c.locked = true
	o.Status = OrderPlaced
	return copyOrder(*o), nil
}

// orderOfUser must be called with mu held.
func (r *MemoryRepository) orderOfUser(userID, id string) (*Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	if o == nil {
		return nil, ErrDeleted
	}
	if o.UserID != userID {
		return nil, ErrNotOwnedByUser
	}
	return o, nil
}

// cartOfUser must be called with mu held.
func (r *MemoryRepository) cartOfUser(userID, id string) (*memCart, error) {
	c, ok := r.carts[id]
	if !ok {
		return nil, ErrNotFound
	}
	if c == nil {
		return nil, ErrDeleted
	}
	if c.userID != userID {
		return nil, ErrNotOwnedByUser
	}
	return c, nil
}

func (c *memCart) toCart(id string) Cart {
	return Cart{ID: id, UserID: c.userID, Lines: copyLines(c.lines), Revision: c.revision, Locked: c.locked, CreatedAt: c.createdAt}
}

func copyLines(lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}

func copyOrder(o Order) Order {
	positions := make([]Position, len(o.Positions))
	copy(positions, o.Positions)
	o.Positions = positions
	o.Coupons = append([]string(nil), o.Coupons...)
	return o
}
