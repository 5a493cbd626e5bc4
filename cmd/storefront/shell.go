package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/dto"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/storefront"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/user"
)

const help = `commands:
  health                          check the cart store
  products                        load and list the catalog
  register <name> <password>      create an account
  login <name> <password>         sign in and reconcile the cart
  logout                          sign out and drop the cart
  add <product>                   add one piece (id or name)
  set <product> <quantity>        set the quantity, 0 removes
  remove <product>                remove the product
  cart                            show the cart
  coupon <product> <code> <percent>
                                  create a coupon for the product
  order <name>|<country>|<postal code>|<city>|<street>[|<code>,...]
                                  create an order for the cart
  place                           place the current order
  quit`

type registrar interface {
	Register(ctx context.Context, name, password string) (dto.User, error)
}

type couponStore interface {
	StoreCoupon(ctx context.Context, creds user.Credentials, productID, code string, req dto.StoreCouponRequest) (dto.Coupon, error)
}

type shell struct {
	store   *storefront.Store
	users   registrar
	coupons couponStore
	base    *clients.Client
	out     io.Writer
	prompt  string

	// showCart prints the cart after every change.
	showCart bool

	mu sync.Mutex
}

func (sh *shell) run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	sh.printf("%s", sh.prompt)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(sc.Text())
		if line == "quit" || line == "exit" {
			return nil
		}
		if line != "" {
			if err := sh.exec(ctx, line); err != nil {
				sh.printf("error: %v\n", err)
			}
		}
		sh.printf("%s", sh.prompt)
	}
	return sc.Err()
}

func (sh *shell) exec(ctx context.Context, line string) error {
	cmd, rest, _ := strings.Cut(line, " ")
	args := strings.Fields(rest)

	switch cmd {
	case "help":
		sh.printf("%s\n", help)
		return nil

	case "health":
		res := clients.CheckHealth(ctx, sh.base, "/health")
		if !res.OK {
			return fmt.Errorf("%s unhealthy: status %d %s", res.Name, res.StatusCode, res.Error)
		}
		sh.printf("%s ok\n", res.Name)
		return nil

	case "products":
		products, err := sh.store.LoadAllProducts(ctx)
		if err != nil {
			return err
		}
		for _, p := range products {
			sh.printf("%s  %-12s %s\n", p.ID, p.Name, formatCents(p.Price))
		}
		return nil

	case "register":
		if len(args) != 2 {
			return errors.New("usage: register <name> <password>")
		}
		u, err := sh.users.Register(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		sh.printf("registered %s (%s)\n", u.Name, u.ID)
		return nil

	case "login":
		if len(args) != 2 {
			return errors.New("usage: login <name> <password>")
		}
		u, err := sh.store.Login(ctx, session.Credentials{Name: args[0], Password: args[1]})
		if err != nil {
			return err
		}
		sh.printf("signed in as %s\n", u.Name)
		return nil

	case "logout":
		sh.store.Logout()
		sh.printf("signed out\n")
		return nil

	case "add":
		if len(args) != 1 {
			return errors.New("usage: add <product>")
		}
		return sh.store.AddToCart(ctx, sh.resolve(args[0]))

	case "set":
		if len(args) != 2 {
			return errors.New("usage: set <product> <quantity>")
		}
		q, err := strconv.Atoi(args[1])
		if err != nil || q < 0 {
			return fmt.Errorf("invalid quantity %q", args[1])
		}
		return sh.store.SetQuantity(ctx, sh.resolve(args[0]), q)

	case "remove":
		if len(args) != 1 {
			return errors.New("usage: remove <product>")
		}
		return sh.store.RemoveFromCart(ctx, sh.resolve(args[0]))

	case "cart":
		sh.printCart(sh.store.Cart())
		return nil

	case "coupon":
		if len(args) != 3 {
			return errors.New("usage: coupon <product> <code> <percent>")
		}
		discount, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid percent %q", args[2])
		}
		u := sh.store.User()
		if !u.SignedIn() {
			return storefront.ErrNotSignedIn
		}
		c, err := sh.coupons.StoreCoupon(ctx, u.Credentials(), sh.resolve(args[0]), args[1], dto.StoreCouponRequest{
			Name:     fmt.Sprintf("%d%% off %s", discount, args[0]),
			Discount: discount,
		})
		if err != nil {
			return err
		}
		sh.printf("coupon %s: %d%% off until %s\n", c.Code, c.Discount, c.ExpiresAt.Local().Format("15:04:05"))
		return nil

	case "order":
		fields := strings.Split(rest, "|")
		if len(fields) != 5 && len(fields) != 6 {
			return errors.New("usage: order <name>|<country>|<postal code>|<city>|<street>[|<code>,...]")
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		var codes []string
		if len(fields) == 6 {
			for _, code := range strings.Split(fields[5], ",") {
				if code = strings.TrimSpace(code); code != "" {
					codes = append(codes, code)
				}
			}
		}
		addr := storefront.Address{Name: fields[0], Country: fields[1], PostalCode: fields[2], City: fields[3], Street: fields[4]}
		o, err := sh.store.CreateOrder(ctx, addr, addr, codes...)
		if err != nil {
			return err
		}
		sh.printf("order %s created, total %s\n", o.ID, formatCents(o.Price))
		return nil

	case "place":
		o, err := sh.store.PlaceOrder(ctx)
		if err != nil {
			return err
		}
		sh.printf("order %s %s\n", o.ID, o.Status)
		return nil
	}

	return fmt.Errorf("unknown command %q, try help", cmd)
}

// resolve maps a product name of the loaded catalog to its id. Anything else
// is taken as an id.
func (sh *shell) resolve(product string) string {
	for _, p := range sh.store.Products() {
		if strings.EqualFold(p.Name, product) {
			return p.ID
		}
	}
	return product
}

func (sh *shell) cartChanged(c cart.Cart) {
	if sh.showCart {
		sh.printCart(c)
	}
}

func (sh *shell) printCart(c cart.Cart) {
	var b strings.Builder
	id := c.ID
	if id == "" {
		id = "not stored"
	}
	fmt.Fprintf(&b, "cart (%s)\n", id)

	total := 0
	for _, p := range c.Positions {
		name, _ := p.ProductID()
		if p.Product != nil && p.Product.Name != "" {
			name = p.Product.Name
		}
		if name == "" {
			name = "?"
		}
		fmt.Fprintf(&b, "  %3d x %-28s %s\n", p.Quantity, name, formatCents(p.Price))
		total += p.Price
	}
	fmt.Fprintf(&b, "  total %s\n", formatCents(total))
	sh.printf("%s", b.String())
}

func (sh *shell) printf(format string, args ...any) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	fmt.Fprintf(sh.out, format, args...)
}

func formatCents(c int) string {
	return fmt.Sprintf("%d.%02d", c/100, c%100)
}
