package httpapi

import (
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/backend"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/dto"
)

func productToDTO(p backend.Product) dto.Product {
	return dto.Product{ID: p.ID, Name: p.Name, Price: p.Price}
}

func positionsToDTO(positions []backend.Position) []dto.Position {
	out := make([]dto.Position, 0, len(positions))
	for _, p := range positions {
		product := productToDTO(p.Product)
		product.ID = p.ProductID
		pos := dto.Position{Product: &product, CouponCode: p.CouponCode, Quantity: p.Quantity, Price: p.Price}
		if p.SavedPrice != 0 {
			saved := p.SavedPrice
			pos.SavedPrice = &saved
		}
		out = append(out, pos)
	}
	return out
}

func cartToDTO(c backend.Cart) dto.Cart {
	return dto.Cart{ID: c.ID, Positions: positionsToDTO(c.Positions), Locked: c.Locked}
}

func orderToDTO(o backend.Order) dto.Order {
	return dto.Order{
		ID:        o.ID,
		CartID:    o.CartID,
		Price:     o.Price,
		Status:    string(o.Status),
		Buyer:     addressToDTO(o.Buyer),
		Recipient: addressToDTO(o.Recipient),
		Positions: positionsToDTO(o.Positions),
	}
}

func couponToDTO(c backend.Coupon) dto.Coupon {
	return dto.Coupon(c)
}

func addressToDTO(a backend.Address) dto.Address {
	return dto.Address(a)
}

func addressFromDTO(a dto.Address) backend.Address {
	return backend.Address(a)
}
