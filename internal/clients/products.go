package clients

import (
	"context"
	"net/http"
	"net/url"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/dto"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/user"
)

type ProductClient struct{ c *Client }

func NewProductClient(c *Client) *ProductClient { return &ProductClient{c: c} }

func (pc *ProductClient) ListProducts(ctx context.Context) ([]dto.Product, error) {
	var out []dto.Product
	err := pc.c.doJSON(ctx, http.MethodGet, "/beta/products", "", nil, nil, &out)
	return out, err
}

// StoreCoupon creates or replaces the coupon with the given code.
func (pc *ProductClient) StoreCoupon(ctx context.Context, creds user.Credentials, productID, code string, req dto.StoreCouponRequest) (dto.Coupon, error) {
	var out dto.Coupon
	path := "/beta/products/" + url.PathEscape(productID) + "/coupon/" + url.PathEscape(code)
	err := pc.c.doJSON(ctx, http.MethodPut, path, "", &creds, req, &out)
	return out, err
}

func (pc *ProductClient) Coupon(ctx context.Context, creds user.Credentials, code string) (dto.Coupon, error) {
	var out dto.Coupon
	err := pc.c.doJSON(ctx, http.MethodGet, "/beta/coupons/"+url.PathEscape(code), "", &creds, nil, &out)
	return out, err
}
