package clients

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/dto"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/user"
)

type recordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     string
	User     string
	Password string
}

func newStubServer(t *testing.T, status int, response string) (*httptest.Server, <-chan recordedRequest) {
	t.Helper()
	ch := make(chan recordedRequest, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		u, p, _ := r.BasicAuth()
		ch <- recordedRequest{
			Method:   r.Method,
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
			Body:     string(body),
			User:     u,
			Password: p,
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, ch
}

func newTestClient(baseURL string) *Client {
	return NewClient("cart-store", baseURL, &http.Client{Timeout: 5 * time.Second})
}

var creds = user.Credentials{UserID: "u1", Password: "secret"}

func TestCartClientStoreCart(t *testing.T) {
	srv, reqs := newStubServer(t, http.StatusOK, `{"id":"c1","positions":[{"product":{"id":"p1","name":"Pen","price":150},"quantity":2,"price":300}]}`)
	cc := NewCartClient(newTestClient(srv.URL))

	ctx := middleware.WithCorrelationID(context.Background(), "cid-1")
	got, err := cc.StoreCart(ctx, creds, "c1", dto.StoreCartRequest{Positions: []dto.Position{
		{Product: &dto.Product{ID: "p1"}, Quantity: 2},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := <-reqs
	if req.Method != http.MethodPut || req.Path != "/beta/carts/c1" {
		t.Fatalf("unexpected request %s %s", req.Method, req.Path)
	}
	if req.User != "u1" || req.Password != "secret" {
		t.Fatalf("expected basic auth to be sent, got %q/%q", req.User, req.Password)
	}
	if cid := req.Header.Get(middleware.HeaderCorrelationID); cid != "cid-1" {
		t.Fatalf("expected correlation id to be propagated, got %q", cid)
	}

	var sent dto.StoreCartRequest
	if err := json.Unmarshal([]byte(req.Body), &sent); err != nil {
		t.Fatalf("decode sent body: %v", err)
	}
	if len(sent.Positions) != 1 || sent.Positions[0].Product.ID != "p1" || sent.Positions[0].Quantity != 2 {
		t.Fatalf("unexpected body %s", req.Body)
	}

	if got.ID != "c1" || len(got.Positions) != 1 || got.Positions[0].Price != 300 {
		t.Fatalf("unexpected cart %+v", got)
	}
}

func TestCartClientStoreCartConflict(t *testing.T) {
	for _, status := range []int{http.StatusLocked, http.StatusGone} {
		srv, _ := newStubServer(t, status, `{"error":"cart is locked"}`)
		cc := NewCartClient(newTestClient(srv.URL))

		_, err := cc.StoreCart(context.Background(), creds, "c1", dto.StoreCartRequest{})
		if !IsConflict(err) {
			t.Fatalf("status %d: expected conflict, got %v", status, err)
		}

		var se *StatusError
		if !errors.As(err, &se) {
			t.Fatalf("expected *StatusError, got %T", err)
		}
		if se.StatusCode != status || se.Message != "cart is locked" {
			t.Fatalf("unexpected status error %+v", se)
		}
	}
}

func TestCartClientStoreCartGenericFailure(t *testing.T) {
	srv, _ := newStubServer(t, http.StatusForbidden, `forbidden`)
	cc := NewCartClient(newTestClient(srv.URL))

	_, err := cc.StoreCart(context.Background(), creds, "c1", dto.StoreCartRequest{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if IsConflict(err) {
		t.Fatalf("403 must not be a conflict")
	}
	if !HasStatus(err, http.StatusForbidden) {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestCartClientListCarts(t *testing.T) {
	srv, reqs := newStubServer(t, http.StatusOK, `[{"id":"c1","positions":[]},{"id":"c2","positions":[{"product":{"id":"p1"},"quantity":1,"price":0}]}]`)
	cc := NewCartClient(newTestClient(srv.URL))

	carts, err := cc.ListCarts(context.Background(), creds, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := <-reqs
	if req.Method != http.MethodGet || req.Path != "/beta/carts" || req.RawQuery != "locked=false" {
		t.Fatalf("unexpected request %s %s?%s", req.Method, req.Path, req.RawQuery)
	}
	if len(carts) != 2 || carts[1].ID != "c2" {
		t.Fatalf("unexpected carts %+v", carts)
	}

	if _, err := cc.ListCarts(context.Background(), creds, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req := <-reqs; req.RawQuery != "locked=true" {
		t.Fatalf("expected locked carts to be requested, got %q", req.RawQuery)
	}
}

func TestUserClientLogin(t *testing.T) {
	srv, reqs := newStubServer(t, http.StatusOK, `{"id":"u1","name":"alice"}`)
	uc := NewUserClient(newTestClient(srv.URL))

	u, err := uc.Login(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != "u1" {
		t.Fatalf("unexpected user %+v", u)
	}
	req := <-reqs
	if req.Method != http.MethodPost || req.Path != "/beta/users/login" || req.User != "" {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestUserClientLoginUnauthorized(t *testing.T) {
	srv, _ := newStubServer(t, http.StatusUnauthorized, `{"error":"invalid credentials"}`)
	uc := NewUserClient(newTestClient(srv.URL))

	if _, err := uc.Login(context.Background(), "alice", "wrong"); !IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestProductClientListProducts(t *testing.T) {
	srv, reqs := newStubServer(t, http.StatusOK, `[{"id":"p1","name":"Pen","price":150}]`)
	pc := NewProductClient(newTestClient(srv.URL))

	products, err := pc.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 1 || products[0].Price != 150 {
		t.Fatalf("unexpected products %+v", products)
	}
	if req := <-reqs; req.Path != "/beta/products" {
		t.Fatalf("unexpected path %s", req.Path)
	}
}

func TestProductClientCoupons(t *testing.T) {
	srv, reqs := newStubServer(t, http.StatusOK, `{"code":"PEN10","productId":"p1","name":"10% off pens","discount":10}`)
	pc := NewProductClient(newTestClient(srv.URL))

	c, err := pc.StoreCoupon(context.Background(), creds, "p1", "PEN10", dto.StoreCouponRequest{Name: "10% off pens", Discount: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Code != "PEN10" || c.Discount != 10 {
		t.Fatalf("unexpected coupon %+v", c)
	}
	if req := <-reqs; req.Method != http.MethodPut || req.Path != "/beta/products/p1/coupon/PEN10" {
		t.Fatalf("unexpected request %s %s", req.Method, req.Path)
	}

	if _, err := pc.Coupon(context.Background(), creds, "PEN10"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req := <-reqs; req.Method != http.MethodGet || req.Path != "/beta/coupons/PEN10" {
		t.Fatalf("unexpected request %s %s", req.Method, req.Path)
	}
}

func TestOrderClient(t *testing.T) {
	srv, reqs := newStubServer(t, http.StatusCreated, `{"id":"o1","cartId":"c1","price":300,"status":"created"}`)
	oc := NewOrderClient(newTestClient(srv.URL))

	o, err := oc.CreateOrder(context.Background(), creds, "c1", dto.CreateOrderRequest{Buyer: dto.Address{Name: "Alice"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.ID != "o1" || o.Status != "created" {
		t.Fatalf("unexpected order %+v", o)
	}
	if req := <-reqs; req.Method != http.MethodPost || req.Path != "/beta/carts/c1/orders" {
		t.Fatalf("unexpected request %s %s", req.Method, req.Path)
	}

	if _, err := oc.PlaceOrder(context.Background(), creds, "o1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req := <-reqs; req.Path != "/beta/orders/o1/place" {
		t.Fatalf("unexpected path %s", req.Path)
	}
}

func TestClientTransportError(t *testing.T) {
	srv, _ := newStubServer(t, http.StatusOK, `{}`)
	srv.Close()

	cc := NewCartClient(newTestClient(srv.URL))
	_, err := cc.StoreCart(context.Background(), creds, "c1", dto.StoreCartRequest{})
	if err == nil {
		t.Fatalf("expected transport error")
	}
	var se *StatusError
	if errors.As(err, &se) {
		t.Fatalf("transport error must not be a status error")
	}
}

func TestCheckHealth(t *testing.T) {
	srv, _ := newStubServer(t, http.StatusOK, `{"status":"ok"}`)

	res := CheckHealth(context.Background(), newTestClient(srv.URL), "/health")
	if !res.OK || res.StatusCode != http.StatusOK || res.Name != "cart-store" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestNewClientPanicsOnInvalidURL(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	NewClient("cart-store", "://bad", nil)
}
