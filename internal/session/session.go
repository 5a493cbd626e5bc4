// Package session signs users in and out and brings the cart in line with the
// store on login.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/dto"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/user"
)

// ErrAuthentication is returned when the store rejects the credentials.
var ErrAuthentication = errors.New("authentication failed")

// Authenticator checks credentials against the store.
type Authenticator interface {
	Login(ctx context.Context, name, password string) (dto.User, error)
}

// CartSyncer is the part of the cart sync protocol a login triggers.
type CartSyncer interface {
	Push(ctx context.Context) error
	Sync(ctx context.Context) error
}

// Credentials are the name and password typed in by the user.
type Credentials struct {
	Name     string
	Password string
}

// LoginPolicy decides what happens with the cart after a login.
type LoginPolicy string

const (
	// PolicySync pushes a non-empty local cart and pulls the stored one
	// otherwise.
	PolicySync LoginPolicy = "sync"
	// PolicyPush always pushes the local cart.
	PolicyPush LoginPolicy = "push"
)

// ParseLoginPolicy returns the policy named by v, PolicySync for anything
// unknown.
func ParseLoginPolicy(v string) LoginPolicy {
	switch LoginPolicy(strings.ToLower(strings.TrimSpace(v))) {
	case PolicyPush:
		return PolicyPush
	default:
		return PolicySync
	}
}

// Controller signs users in and out and keeps the cart in step with it.
type Controller struct {
	auth   Authenticator
	sync   CartSyncer
	users  *user.State
	carts  *cart.State
	policy LoginPolicy
	logger *log.Logger
}

func NewController(auth Authenticator, sync CartSyncer, users *user.State, carts *cart.State, policy LoginPolicy, logger *log.Logger) *Controller {
	if policy == "" {
		policy = PolicySync
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{auth: auth, sync: sync, users: users, carts: carts, policy: policy, logger: logger}
}

// Login authenticates the user and reconciles the cart according to the
// policy. A failed authentication leaves the current user in place. A failed
// reconciliation keeps the user signed in and is returned to the caller.
func (c *Controller) Login(ctx context.Context, creds Credentials) (user.User, error) {
	authed, err := c.auth.Login(ctx, creds.Name, creds.Password)
	if err != nil {
		if clients.IsUnauthorized(err) {
			return c.users.User(), fmt.Errorf("%w: %w", ErrAuthentication, err)
		}
		return c.users.User(), fmt.Errorf("login %s: %w", creds.Name, err)
	}

	u := user.User{ID: authed.ID, Name: authed.Name, Password: creds.Password}
	if u.Name == "" {
		u.Name = creds.Name
	}
	c.users.Set(u)
	c.logger.Printf("session: user %s signed in", u.ID)

	switch c.policy {
	case PolicyPush:
		err = c.sync.Push(ctx)
	default:
		err = c.sync.Sync(ctx)
	}
	if err != nil {
		return u, fmt.Errorf("reconcile cart after login: %w", err)
	}
	return u, nil
}

// Logout forgets the user and the cart. The store is not contacted.
func (c *Controller) Logout() {
	c.users.Reset()
	c.carts.Reset()
}

func (c *Controller) Policy() LoginPolicy { return c.policy }
