// Package dto holds the JSON shapes exchanged between the storefront and the
// cart store.
package dto

import "time"

type Product struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Price int    `json:"price,omitempty"` // in cents
}

type Position struct {
	Product    *Product `json:"product,omitempty"`
	CouponCode string   `json:"couponCode,omitempty"`
	Quantity   int      `json:"quantity"`
	Price      int      `json:"price"`                // in cents
	SavedPrice *int     `json:"savedPrice,omitempty"` // in cents
}

type Cart struct {
	ID        string     `json:"id"`
	Positions []Position `json:"positions"`
	Locked    bool       `json:"locked,omitempty"`
}

type StoreCartRequest struct {
	Positions []Position `json:"positions"`
}

type LoginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Address struct {
	Name       string `json:"name"`
	Country    string `json:"country"`
	PostalCode string `json:"postalCode"`
	City       string `json:"city"`
	Street     string `json:"street"`
}

type CreateOrderRequest struct {
	Buyer     Address  `json:"buyer"`
	Recipient Address  `json:"recipient"`
	Coupons   []string `json:"coupons,omitempty"`
}

// StoreCouponRequest omits the expiry to get the default coupon lifetime.
type StoreCouponRequest struct {
	Name      string     `json:"name"`
	Discount  int        `json:"discount"` // in percent
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type Coupon struct {
	Code      string    `json:"code"`
	ProductID string    `json:"productId"`
	Name      string    `json:"name"`
	Discount  int       `json:"discount"` // in percent
	ExpiresAt time.Time `json:"expiresAt"`
}

type Order struct {
	ID        string     `json:"id"`
	CartID    string     `json:"cartId,omitempty"`
	Price     int        `json:"price"` // in cents
	Status    string     `json:"status"`
	Buyer     Address    `json:"buyer"`
	Recipient Address    `json:"recipient"`
	Positions []Position `json:"positions"`
}

type ErrorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlationId,omitempty"`
}
