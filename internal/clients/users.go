package clients

import (
	"context"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/dto"
)

type UserClient struct{ c *Client }

func NewUserClient(c *Client) *UserClient { return &UserClient{c: c} }

// Login checks the credentials and returns the user they belong to.
func (uc *UserClient) Login(ctx context.Context, name, password string) (dto.User, error) {
	var out dto.User
	err := uc.c.doJSON(ctx, http.MethodPost, "/beta/users/login", "", nil, dto.LoginRequest{Name: name, Password: password}, &out)
	return out, err
}

func (uc *UserClient) Register(ctx context.Context, name, password string) (dto.User, error) {
	var out dto.User
	err := uc.c.doJSON(ctx, http.MethodPost, "/beta/users", "", nil, dto.LoginRequest{Name: name, Password: password}, &out)
	return out, err
}
