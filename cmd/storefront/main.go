// Command storefront is an interactive storefront client. It keeps the cart
// and user state in memory and synchronizes the cart with the cart store.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cartsync"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/storefront"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/user"
)

func main() {
	cfg := config.LoadClient()

	storeURL := flag.String("store", cfg.StoreURL, "cart store base url")
	policy := flag.String("login-policy", cfg.LoginPolicy, "cart handling after login: sync or push")
	verbose := flag.Bool("v", false, "log cart sync activity")
	flag.Parse()

	logger := log.New(os.Stderr, "[storefront] ", log.LstdFlags|log.Lmicroseconds)
	if !*verbose {
		logger.SetOutput(io.Discard)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	base := clients.NewClient("cartstore", *storeURL, &http.Client{Timeout: cfg.UpstreamTimeout})
	carts := cart.NewState()
	users := user.NewState()

	syncer := cartsync.NewSyncer(clients.NewCartClient(base), carts, users, logger, cartsync.Options{
		MaxPushAttempts:   cfg.MaxPushAttempts,
		PullExcludeLocked: cfg.PullExcludeLocked,
	})
	sessions := session.NewController(clients.NewUserClient(base), syncer, users, carts, session.ParseLoginPolicy(*policy), logger)
	store := storefront.New(storefront.Deps{
		Products: clients.NewProductClient(base),
		Orders:   clients.NewOrderClient(base),
		Sync:     syncer,
		Sessions: sessions,
		Cart:     carts,
		User:     users,
	})

	sh := &shell{
		store:    store,
		users:    clients.NewUserClient(base),
		coupons:  clients.NewProductClient(base),
		base:     base,
		out:      os.Stdout,
		prompt:   "> ",
		showCart: true,
	}
	cancel := carts.Subscribe(sh.cartChanged)
	defer cancel()

	if err := sh.run(ctx, os.Stdin); err != nil {
		log.Fatalf("storefront: %v", err)
	}
}
