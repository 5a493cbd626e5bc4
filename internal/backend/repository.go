package backend

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// UserRepository stores users. Passwords are kept as bcrypt hashes only.
type UserRepository interface {
	// CreateUser returns ErrConflict if the id or the name is taken.
	CreateUser(ctx context.Context, id, name, password string) error
	// FindUserByNameAndPassword returns ErrNotFound unless name and password
	// match.
	FindUserByNameAndPassword(ctx context.Context, name, password string) (User, error)
	// FindUserByIDAndPassword returns ErrNotFound unless id and password match.
	FindUserByIDAndPassword(ctx context.Context, id, password string) (User, error)
}

type ProductRepository interface {
	// CreateProduct returns ErrConflict if the id is taken.
	CreateProduct(ctx context.Context, p Product) error
	FindAllProducts(ctx context.Context) ([]Product, error)
	// FindProduct returns ErrNotFound for unknown ids.
	FindProduct(ctx context.Context, id string) (Product, error)
}

// CouponRepository stores coupons by code.
type CouponRepository interface {
	// StoreCoupon creates the coupon or replaces the one with the same code.
	StoreCoupon(ctx context.Context, c Coupon) error
	// FindValidCoupon returns ErrNotFound if there is no coupon with the code
	// or it expired before now.
	FindValidCoupon(ctx context.Context, code string, now time.Time) (Coupon, error)
}

// CartRepository stores unpriced carts. Lookups of a single cart return
// ErrNotFound for unknown ids, ErrDeleted for deleted carts and
// ErrNotOwnedByUser for carts of other users. Mutations of a locked cart
// return ErrLocked.
type CartRepository interface {
	// CreateCart returns ErrConflict if the id is or was in use.
	CreateCart(ctx context.Context, userID, id string, lines []Line) error
	// UpdateCartOfUser replaces the lines of the cart. The revision is bumped
	// only if the lines differ.
	UpdateCartOfUser(ctx context.Context, userID, id string, lines []Line) error
	// FindCartsOfUser returns the carts of the user in creation order.
	FindCartsOfUser(ctx context.Context, userID string, includeLocked bool) ([]Cart, error)
	FindCartOfUser(ctx context.Context, userID, id string) (Cart, error)
	DeleteCartOfUser(ctx context.Context, userID, id string) error
}

// OrderRepository stores orders. Lookups follow the CartRepository rules.
type OrderRepository interface {
	// CreateOrder returns ErrConflict if the id is taken.
	CreateOrder(ctx context.Context, o Order) error
	FindOrderOfUser(ctx context.Context, userID, id string) (Order, error)
	// DeleteOrderOfUser returns ErrLocked for placed orders.
	DeleteOrderOfUser(ctx context.Context, userID, id string) error
	// PlaceOrderOfUser marks the order placed and locks its cart in one step.
	// ErrLocked is returned if the order is placed already or its cart is
	// locked by another order. If the cart is gone or its revision moved past
	// the one the order was created from, the order is deleted and ErrDeleted
	// is returned.
	PlaceOrderOfUser(ctx context.Context, userID, id string) (Order, error)
}

// Repository is implemented by MemoryRepository and PostgresRepository.
type Repository interface {
	UserRepository
	ProductRepository
	CouponRepository
	CartRepository
	OrderRepository
}

func hashPassword(password string, cost int) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), cost)
}

func passwordMatches(hash []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

// normalizeLines sums lines of the same product and drops non-positive
// quantities. The order of first occurrence is kept.
func normalizeLines(lines []Line) []Line {
	idx := make(map[string]int, len(lines))
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if i, ok := idx[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		idx[l.ProductID] = len(out)
		out = append(out, l)
	}
	kept := out[:0]
	for _, l := range out {
		if l.Quantity > 0 {
			kept = append(kept, l)
		}
	}
	return kept
}

func linesEqual(a, b []Line) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
