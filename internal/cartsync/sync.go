package cartsync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/dto"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/user"
)

// ErrRetriesExhausted is returned when every push attempt ran into a
// conflict.
var ErrRetriesExhausted = errors.New("cart push retries exhausted")

// DefaultMaxPushAttempts allows the first try plus one identity rotation.
const DefaultMaxPushAttempts = 2

// CartStore is the remote store carts are synchronized with.
type CartStore interface {
	StoreCart(ctx context.Context, creds user.Credentials, id string, req dto.StoreCartRequest) (dto.Cart, error)
	ListCarts(ctx context.Context, creds user.Credentials, excludeLocked bool) ([]dto.Cart, error)
}

// Options tune a Syncer. The zero value is usable.
type Options struct {
	// MaxPushAttempts bounds how often Push calls the store. Values < 1 use
	// DefaultMaxPushAttempts.
	MaxPushAttempts int
	// PullExcludeLocked leaves carts that already belong to an order out of
	// Pull.
	PullExcludeLocked bool
	// NewID generates cart identities. Defaults to uuid.NewString.
	NewID func() string
	// IsConflict classifies store errors. Defaults to clients.IsConflict.
	IsConflict func(error) bool
}

// Syncer pushes the local cart to the store and pulls it back on login.
// Calls are serialized, so at most one store round trip per cart is in
// flight.
type Syncer struct {
	store  CartStore
	cart   *cart.State
	users  *user.State
	logger *log.Logger
	opts   Options

	mu sync.Mutex
}

func NewSyncer(store CartStore, carts *cart.State, users *user.State, logger *log.Logger, opts Options) *Syncer {
	if opts.MaxPushAttempts < 1 {
		opts.MaxPushAttempts = DefaultMaxPushAttempts
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.IsConflict == nil {
		opts.IsConflict = clients.IsConflict
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Syncer{store: store, cart: carts, users: users, logger: logger, opts: opts}
}

// Push stores the local cart. It is a no-op for guests.
//
// A cart without identity gets a fresh one. When the store answers that the
// identity is locked or gone, the identity is dropped and the push is retried
// with a new one. Other failures are returned unchanged and leave the local
// cart untouched.
func (s *Syncer) Push(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.push(ctx)
}

// Pull loads the first non-empty cart of the user from the store. It is a
// no-op for guests and leaves the local cart alone when no stored cart has
// positions.
func (s *Syncer) Pull(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pull(ctx)
}

// Sync pushes when the local cart has positions and pulls otherwise.
func (s *Syncer) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cart.Cart().Positions) > 0 {
		return s.push(ctx)
	}
	return s.pull(ctx)
}

func (s *Syncer) push(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxPushAttempts; attempt++ {
		u := s.users.User()
		if !u.SignedIn() {
			return nil
		}

		// epoch first: a reset after this point is caught by fold
		epoch := s.cart.Epoch()
		rev := s.cart.Revision()
		local := s.cart.Cart()

		id := local.ID
		if id == "" {
			id = s.opts.NewID()
		}

		resp, err := s.store.StoreCart(ctx, u.Credentials(), id, outbound(local.Positions))
		if err == nil {
			s.fold(u.ID, epoch, rev, local.ID, inbound(resp))
			return nil
		}

		if !s.opts.IsConflict(err) || local.ID == "" {
			return fmt.Errorf("push cart %s: %w", id, err)
		}

		s.logger.Printf("cartsync: cart %s refused (attempt %d/%d), rotating identity: %v", id, attempt, s.opts.MaxPushAttempts, err)
		s.cart.ClearID(local.ID)
		lastErr = err
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, s.opts.MaxPushAttempts, lastErr)
}

// fold commits a store response for the cart pushed by userID. If the cart
// was edited while the request was in flight only the identity is taken over,
// the newer positions stay and go out with the next push. A response for a
// cart that was reset in the meantime, or for a user that signed out, is
// dropped.
func (s *Syncer) fold(userID string, epoch, rev uint64, pushedID string, stored cart.Cart) {
	if s.users.User().ID != userID {
		s.logger.Printf("cartsync: user changed during push of cart %s, dropping response", stored.ID)
		return
	}
	if s.cart.ReplaceIfUnchanged(rev, stored) {
		return
	}
	if s.cart.AdoptID(epoch, pushedID, stored.ID) {
		s.logger.Printf("cartsync: cart %s changed during push, keeping local positions", stored.ID)
		return
	}
	s.logger.Printf("cartsync: cart was replaced during push of %s, dropping response", stored.ID)
}

func (s *Syncer) pull(ctx context.Context) error {
	u := s.users.User()
	if !u.SignedIn() {
		return nil
	}

	carts, err := s.store.ListCarts(ctx, u.Credentials(), s.opts.PullExcludeLocked)
	if err != nil {
		return fmt.Errorf("pull carts: %w", err)
	}

	for _, c := range carts {
		if len(c.Positions) == 0 {
			continue
		}
		s.cart.Replace(inbound(c))
		return nil
	}
	return nil
}

// outbound maps local positions to the store representation. Anonymous
// positions cannot be stored and are left out.
func outbound(positions []cart.Position) dto.StoreCartRequest {
	req := dto.StoreCartRequest{Positions: make([]dto.Position, 0, len(positions))}
	for _, p := range positions {
		productID, ok := p.ProductID()
		if !ok {
			continue
		}
		zero := 0
		req.Positions = append(req.Positions, dto.Position{
			Product:    &dto.Product{ID: productID},
			Quantity:   p.Quantity,
			Price:      0,
			SavedPrice: &zero,
		})
	}
	return req
}

// inbound maps a stored cart back to local positions.
func inbound(c dto.Cart) cart.Cart {
	out := cart.Cart{ID: c.ID, Positions: make([]cart.Position, 0, len(c.Positions))}
	for _, p := range c.Positions {
		pos := cart.Position{
			Ref:      cart.LocalRef{},
			Quantity: p.Quantity,
			Price:    p.Price,
		}
		if p.SavedPrice != nil {
			v := *p.SavedPrice
			pos.SavedPrice = &v
		}
		if p.Product != nil {
			if p.Product.ID != "" {
				pos.Ref = cart.ProductRef{ProductID: p.Product.ID}
			}
			pos.Product = &cart.Product{ID: p.Product.ID, Name: p.Product.Name, Price: p.Product.Price}
		}
		out.Positions = append(out.Positions, pos)
	}
	return out
}
