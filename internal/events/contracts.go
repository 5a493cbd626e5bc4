package events

import (
	"time"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/backend"
)

const (
	EventTypeCartStored  = "CartStored"
	EventTypeOrderPlaced = "OrderPlaced"

	cartStoredSchema  = "contracts/events/cart/CartStored.v1.payload.schema.json"
	orderPlacedSchema = "contracts/events/order/OrderPlaced.v1.payload.schema.json"
)

// Item is a cart or order position. Coupon items have no product and a
// negative price.
type Item struct {
	ProductID  string `json:"productId"`
	CouponCode string `json:"couponCode,omitempty"`
	Quantity   int    `json:"quantity"`
	Price      int    `json:"price"` // in cents
}

type CartStoredPayload struct {
	CartID     string    `json:"cartId"`
	UserID     string    `json:"userId"`
	Items      []Item    `json:"items"`
	TotalPrice int       `json:"totalPrice"`
	Timestamp  time.Time `json:"timestamp"`
}

type OrderPlacedPayload struct {
	OrderID   string    `json:"orderId"`
	CartID    string    `json:"cartId"`
	UserID    string    `json:"userId"`
	Items     []Item    `json:"items"`
	Price     int       `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

type (
	CartStoredEvent  = EventEnvelope[CartStoredPayload]
	OrderPlacedEvent = EventEnvelope[OrderPlacedPayload]
)

func cartStoredPayload(c backend.Cart, at time.Time) CartStoredPayload {
	p := CartStoredPayload{CartID: c.ID, UserID: c.UserID, Items: make([]Item, 0, len(c.Positions)), Timestamp: at}
	for _, pos := range c.Positions {
		p.Items = append(p.Items, Item{ProductID: pos.ProductID, Quantity: pos.Quantity, Price: pos.Price})
		p.TotalPrice += pos.Price
	}
	return p
}

func orderPlacedPayload(o backend.Order, at time.Time) OrderPlacedPayload {
	p := OrderPlacedPayload{OrderID: o.ID, CartID: o.CartID, UserID: o.UserID, Price: o.Price, Items: make([]Item, 0, len(o.Positions)), Timestamp: at}
	for _, pos := range o.Positions {
		p.Items = append(p.Items, Item{ProductID: pos.ProductID, CouponCode: pos.CouponCode, Quantity: pos.Quantity, Price: pos.Price})
	}
	return p
}
