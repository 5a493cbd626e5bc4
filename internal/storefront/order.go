package storefront

import (
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/dto"
)

const (
	StatusCreated = "created"
	StatusPlaced  = "placed"
)

type Address struct {
	Name       string
	Country    string
	PostalCode string
	City       string
	Street     string
}

// Order is the read-only projection of an order held by the store.
type Order struct {
	ID        string
	CartID    string
	Price     int // in cents
	Status    string
	Buyer     Address
	Recipient Address
	Positions []cart.Position
}

func (o Order) Placed() bool { return o.Status == StatusPlaced }

func (o Order) clone() Order {
	c := cart.Cart{Positions: o.Positions}.Clone()
	o.Positions = c.Positions
	return o
}

func (a Address) toDTO() dto.Address {
	return dto.Address{Name: a.Name, Country: a.Country, PostalCode: a.PostalCode, City: a.City, Street: a.Street}
}

func addressFromDTO(a dto.Address) Address {
	return Address{Name: a.Name, Country: a.Country, PostalCode: a.PostalCode, City: a.City, Street: a.Street}
}

func orderFromDTO(o dto.Order) Order {
	out := Order{
		ID:        o.ID,
		CartID:    o.CartID,
		Price:     o.Price,
		Status:    o.Status,
		Buyer:     addressFromDTO(o.Buyer),
		Recipient: addressFromDTO(o.Recipient),
		Positions: make([]cart.Position, 0, len(o.Positions)),
	}
	for _, p := range o.Positions {
		pos := cart.Position{Ref: cart.LocalRef{}, Quantity: p.Quantity, Price: p.Price}
		if p.SavedPrice != nil {
			saved := *p.SavedPrice
			pos.SavedPrice = &saved
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
