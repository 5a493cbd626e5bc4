package httpapi

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
)

type Deps struct {
	Logger           *log.Logger
	Service          Service
	CORSAllowOrigins []string
}

func NewRouter(d Deps) http.Handler {
	h := NewHandler(d.Service, d.Logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.CorrelationID)
	r.Use(chimw.Logger)
	r.Use(middleware.Recover(h.logger))
	r.Use(middleware.CORS(d.CORSAllowOrigins))

	r.Get("/health", h.Health)

	r.Route("/beta", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Post("/users", h.Register)
		r.Post("/users/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.BasicAuth)

			r.Put("/products/{productId}/coupon/{couponCode}", h.StoreCoupon)
			r.Get("/coupons/{couponCode}", h.GetCoupon)

			r.Get("/carts", h.ListCarts)
			r.Route("/carts/{cartId}", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Put("/", h.StoreCart)
				r.Delete("/", h.DeleteCart)
				r.Post("/orders", h.CreateOrder)
			})
			r.Get("/orders/{orderId}", h.GetOrder)
			r.Post("/orders/{orderId}/place", h.PlaceOrder)
		})
	})

	return r
}
