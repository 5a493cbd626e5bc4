package clients

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/dto"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/user"
)

type CartClient struct{ c *Client }

func NewCartClient(c *Client) *CartClient { return &CartClient{c: c} }

// StoreCart creates or replaces the cart with the given id.
func (cc *CartClient) StoreCart(ctx context.Context, creds user.Credentials, id string, req dto.StoreCartRequest) (dto.Cart, error) {
	var out dto.Cart
	err := cc.c.doJSON(ctx, http.MethodPut, "/beta/carts/"+url.PathEscape(id), "", &creds, req, &out)
	return out, err
}

// ListCarts returns the carts of the user in server order. Locked carts, which
// already belong to an order, are left out when excludeLocked is set.
func (cc *CartClient) ListCarts(ctx context.Context, creds user.Credentials, excludeLocked bool) ([]dto.Cart, error) {
	q := url.Values{}
	q.Set("locked", strconv.FormatBool(!excludeLocked))

	var out []dto.Cart
	err := cc.c.doJSON(ctx, http.MethodGet, "/beta/carts", q.Encode(), &creds, nil, &out)
	return out, err
}
