package clients

import (
	"context"
	"net/http"
	"net/url"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/dto"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/user"
)

type OrderClient struct{ c *Client }

func NewOrderClient(c *Client) *OrderClient { return &OrderClient{c: c} }

// CreateOrder creates an order from the stored cart with the given id.
func (oc *OrderClient) CreateOrder(ctx context.Context, creds user.Credentials, cartID string, req dto.CreateOrderRequest) (dto.Order, error) {
	var out dto.Order
	err := oc.c.doJSON(ctx, http.MethodPost, "/beta/carts/"+url.PathEscape(cartID)+"/orders", "", &creds, req, &out)
	return out, err
}

// PlaceOrder places the order. The server locks the ordered cart.
func (oc *OrderClient) PlaceOrder(ctx context.Context, creds user.Credentials, orderID string) (dto.Order, error) {
	var out dto.Order
	err := oc.c.doJSON(ctx, http.MethodPost, "/beta/orders/"+url.PathEscape(orderID)+"/place", "", &creds, nil, &out)
	return out, err
}
