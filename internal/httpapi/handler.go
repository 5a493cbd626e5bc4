package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/backend"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/dto"
)

// requestTimeout bounds the work done for a single request.
const requestTimeout = 5 * time.Second

// Service is the cart store as seen by the HTTP layer.
type Service interface {
	Register(ctx context.Context, name, password string) (backend.User, error)
	Login(ctx context.Context, name, password string) (backend.User, error)
	Authenticate(ctx context.Context, id, password string) (backend.User, error)
	Products(ctx context.Context) ([]backend.Product, error)
	StoreCart(ctx context.Context, userID, id string, lines []backend.Line) (backend.Cart, bool, error)
	Carts(ctx context.Context, userID string, includeLocked bool) ([]backend.Cart, error)
	Cart(ctx context.Context, userID, id string) (backend.Cart, error)
	DeleteCart(ctx context.Context, userID, id string) error
	SaveCoupon(ctx context.Context, c backend.Coupon) (backend.Coupon, error)
	Coupon(ctx context.Context, code string) (backend.Coupon, error)
	CreateOrder(ctx context.Context, userID, cartID string, buyer, recipient backend.Address, coupons ...string) (backend.Order, error)
	Order(ctx context.Context, userID, id string) (backend.Order, error)
	PlaceOrder(ctx context.Context, userID, id string) (backend.Order, error)
}

type Handler struct {
	svc    Service
	logger *log.Logger
}

func NewHandler(svc Service, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "cartstore"})
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	products, err := h.svc.Products(ctx)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	out := make([]dto.Product, 0, len(products))
	for _, p := range products {
		out = append(out, productToDTO(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	u, err := h.svc.Register(ctx, req.Name, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.User{ID: u.ID, Name: u.Name})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	u, err := h.svc.Login(ctx, req.Name, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.User{ID: u.ID, Name: u.Name})
}

// StoreCoupon creates or replaces the coupon named in the path for the
// product named in the path.
func (h *Handler) StoreCoupon(w http.ResponseWriter, r *http.Request) {
	var req dto.StoreCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	c := backend.Coupon{
		Code:      chi.URLParam(r, "couponCode"),
		ProductID: chi.URLParam(r, "productId"),
		Name:      req.Name,
		Discount:  req.Discount,
	}
	if req.ExpiresAt != nil {
		c.ExpiresAt = *req.ExpiresAt
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	c, err := h.svc.SaveCoupon(ctx, c)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, couponToDTO(c))
}

func (h *Handler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	c, err := h.svc.Coupon(ctx, chi.URLParam(r, "couponCode"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, couponToDTO(c))
}

// StoreCart creates or replaces the cart named in the path. Positions without
// a product are rejected.
func (h *Handler) StoreCart(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromContext(r.Context())
	cartID := chi.URLParam(r, "cartId")

	var req dto.StoreCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	lines := make([]backend.Line, 0, len(req.Positions))
	for _, p := range req.Positions {
		if p.Product == nil || p.Product.ID == "" {
			h.writeError(w, r, http.StatusBadRequest, "position without product")
			return
		}
		lines = append(lines, backend.Line{ProductID: p.Product.ID, Quantity: p.Quantity})
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	c, created, err := h.svc.StoreCart(ctx, u.ID, cartID, lines)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, cartToDTO(c))
}

// ListCarts returns the carts of the user. locked=false leaves out carts
// that already belong to a placed order.
func (h *Handler) ListCarts(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromContext(r.Context())

	includeLocked := true
	if v := r.URL.Query().Get("locked"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, r, http.StatusBadRequest, "invalid locked parameter")
			return
		}
		includeLocked = b
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	carts, err := h.svc.Carts(ctx, u.ID, includeLocked)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	out := make([]dto.Cart, 0, len(carts))
	for _, c := range carts {
		out = append(out, cartToDTO(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	c, err := h.svc.Cart(ctx, u.ID, chi.URLParam(r, "cartId"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartToDTO(c))
}

func (h *Handler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.svc.DeleteCart(ctx, u.ID, chi.URLParam(r, "cartId")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromContext(r.Context())

	var req dto.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	o, err := h.svc.CreateOrder(ctx, u.ID, chi.URLParam(r, "cartId"),
		addressFromDTO(req.Buyer), addressFromDTO(req.Recipient), req.Coupons...)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderToDTO(o))
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	o, err := h.svc.Order(ctx, u.ID, chi.URLParam(r, "orderId"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderToDTO(o))
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	u, _ := userFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	o, err := h.svc.PlaceOrder(ctx, u.ID, chi.URLParam(r, "orderId"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderToDTO(o))
}
