// Package backend is the reference cart store: users, products, carts and
// orders with the locking rules the storefront sync protocol relies on.
package backend

import "time"

type User struct {
	ID   string
	Name string
}

type Product struct {
	ID    string
	Name  string
	Price int // in cents
}

// Line is a stored cart position before pricing.
type Line struct {
	ProductID string
	Quantity  int
}

// Position is a priced cart or order position. ProductID is empty if the
// product vanished from the catalog and for coupon positions, which carry
// the CouponCode and a negative Price instead.
type Position struct {
	ProductID  string
	CouponCode string
	Quantity   int
	Price      int // in cents
	SavedPrice int // in cents
	Product    Product
}

type Cart struct {
	ID     string
	UserID string
	Lines  []Line
	// Revision counts the updates of the cart lines.
	Revision  int
	Positions []Position
	Locked    bool
	CreatedAt time.Time
}

type Address struct {
	Name       string
	Country    string
	PostalCode string
	City       string
	Street     string
}

type OrderStatus string

const (
	OrderCreated OrderStatus = "created"
	OrderPlaced  OrderStatus = "placed"
)

// Order is created from a cart revision. Hash identifies the positions it
// was priced with, so placing it can tell whether anything changed since.
type Order struct {
	ID           string
	UserID       string
	CartID       string
	CartRevision int
	Hash         string
	Coupons      []string
	Price        int // in cents
	Status       OrderStatus
	Buyer        Address
	Recipient    Address
	Positions    []Position
	CreatedAt    time.Time
}

// Coupon gives a discount in percent on one product until it expires.
type Coupon struct {
	Code      string
	ProductID string
	Name      string
	Discount  int // in percent
	ExpiresAt time.Time
}

// UnavailableProductName replaces the product of a position whose product is
// no longer in the catalog.
const UnavailableProductName = "Product not available anymore."
