package backend

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

// RepositorySuite checks the behavior every Repository implementation shares.
type RepositorySuite struct {
	suite.Suite
	NewRepository func() Repository
}

func TestMemoryRepository(t *testing.T) {
	suite.Run(t, &RepositorySuite{NewRepository: func() Repository {
		return NewMemoryRepository(WithBcryptCost(bcrypt.MinCost))
	}})
}

var ctx = context.Background()

func (s *RepositorySuite) TestUsers() {
	s.Run("create and find", func() {
		r := s.NewRepository()
		s.Require().NoError(r.CreateUser(ctx, "u1", "alice", "password1"))

		u, err := r.FindUserByNameAndPassword(ctx, "alice", "password1")
		s.Require().NoError(err)
		s.Equal(User{ID: "u1", Name: "alice"}, u)

		u, err = r.FindUserByIDAndPassword(ctx, "u1", "password1")
		s.Require().NoError(err)
		s.Equal("alice", u.Name)
	})
	s.Run("wrong password", func() {
		r := s.NewRepository()
		s.Require().NoError(r.CreateUser(ctx, "u1", "alice", "password1"))

		_, err := r.FindUserByNameAndPassword(ctx, "alice", "password2")
		s.ErrorIs(err, ErrNotFound)
		_, err = r.FindUserByIDAndPassword(ctx, "u1", "")
		s.ErrorIs(err, ErrNotFound)
	})
	s.Run("unknown user", func() {
		r := s.NewRepository()
		_, err := r.FindUserByNameAndPassword(ctx, "nobody", "password1")
		s.ErrorIs(err, ErrNotFound)
	})
	s.Run("conflicts", func() {
		r := s.NewRepository()
		s.Require().NoError(r.CreateUser(ctx, "u1", "alice", "password1"))
		s.ErrorIs(r.CreateUser(ctx, "u1", "bob", "password1"), ErrConflict)
		s.ErrorIs(r.CreateUser(ctx, "u2", "alice", "password1"), ErrConflict)
	})
}

func (s *RepositorySuite) TestProducts() {
	r := s.NewRepository()
	s.Require().NoError(r.CreateProduct(ctx, Product{ID: "p2", Name: "Pen", Price: 150}))
	s.Require().NoError(r.CreateProduct(ctx, Product{ID: "p1", Name: "Ink", Price: 90}))
	s.ErrorIs(r.CreateProduct(ctx, Product{ID: "p1", Name: "Other"}), ErrConflict)

	all, err := r.FindAllProducts(ctx)
	s.Require().NoError(err)
	s.Equal([]Product{{ID: "p1", Name: "Ink", Price: 90}, {ID: "p2", Name: "Pen", Price: 150}}, all)

	p, err := r.FindProduct(ctx, "p2")
	s.Require().NoError(err)
	s.Equal(150, p.Price)

	_, err = r.FindProduct(ctx, "missing")
	s.ErrorIs(err, ErrNotFound)
}

func (s *RepositorySuite) TestCoupons() {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	s.Run("store and find", func() {
		r := s.NewRepository()
		c := Coupon{Code: "PEN10", ProductID: "p1", Name: "10% off pens", Discount: 10, ExpiresAt: now.Add(time.Hour)}
		s.Require().NoError(r.StoreCoupon(ctx, c))

		got, err := r.FindValidCoupon(ctx, "PEN10", now)
		s.Require().NoError(err)
		s.Equal(c.Name, got.Name)
		s.Equal(c.ProductID, got.ProductID)
		s.Equal(c.Discount, got.Discount)
		s.True(c.ExpiresAt.Equal(got.ExpiresAt))

		_, err = r.FindValidCoupon(ctx, "pen10", now)
		s.ErrorIs(err, ErrNotFound)
	})
	s.Run("expired", func() {
		r := s.NewRepository()
		s.Require().NoError(r.StoreCoupon(ctx, Coupon{Code: "OLD", ProductID: "p1", Discount: 5, ExpiresAt: now}))

		_, err := r.FindValidCoupon(ctx, "OLD", now)
		s.ErrorIs(err, ErrNotFound)
		_, err = r.FindValidCoupon(ctx, "OLD", now.Add(-time.Second))
		s.NoError(err)
	})
	s.Run("same code replaces", func() {
		r := s.NewRepository()
		s.Require().NoError(r.StoreCoupon(ctx, Coupon{Code: "PEN", ProductID: "p1", Discount: 10, ExpiresAt: now.Add(time.Hour)}))
		s.Require().NoError(r.StoreCoupon(ctx, Coupon{Code: "PEN", ProductID: "p2", Discount: 20, ExpiresAt: now.Add(time.Hour)}))

		got, err := r.FindValidCoupon(ctx, "PEN", now)
		s.Require().NoError(err)
		s.Equal("p2", got.ProductID)
		s.Equal(20, got.Discount)
	})
}

func (s *RepositorySuite) TestCarts() {
	s.Run("create, update, find", func() {
		r := s.NewRepository()
		s.Require().NoError(r.CreateCart(ctx, "u1", "c1", []Line{{"p1", 1}}))
		s.Require().NoError(r.UpdateCartOfUser(ctx, "u1", "c1", []Line{{"p2", 3}, {"p3", 1}}))

		c, err := r.FindCartOfUser(ctx, "u1", "c1")
		s.Require().NoError(err)
		s.Equal("c1", c.ID)
		s.Equal([]Line{{"p2", 3}, {"p3", 1}}, c.Lines)
		s.Equal(1, c.Revision)
		s.False(c.Locked)
	})
	s.Run("revision moves only when lines change", func() {
		r := s.NewRepository()
		s.Require().NoError(r.CreateCart(ctx, "u1", "c1", []Line{{"p1", 1}}))
		s.Require().NoError(r.UpdateCartOfUser(ctx, "u1", "c1", []Line{{"p1", 1}}))

		c, err := r.FindCartOfUser(ctx, "u1", "c1")
		s.Require().NoError(err)
		s.Equal(0, c.Revision)

		s.Require().NoError(r.UpdateCartOfUser(ctx, "u1", "c1", []Line{{"p1", 2}}))
		s.Require().NoError(r.UpdateCartOfUser(ctx, "u1", "c1", nil))
		carts, err := r.FindCartsOfUser(ctx, "u1", true)
		s.Require().NoError(err)
		s.Require().Len(carts, 1)
		s.Equal(2, carts[0].Revision)
	})
	s.Run("conflict on same id", func() {
		r := s.NewRepository()
		s.Require().NoError(r.CreateCart(ctx, "u1", "c1", nil))
		s.ErrorIs(r.CreateCart(ctx, "u2", "c1", nil), ErrConflict)
	})
	s.Run("ownership and existence", func() {
		r := s.NewRepository()
		s.Require().NoError(r.CreateCart(ctx, "u1", "c1", nil))

		s.ErrorIs(r.UpdateCartOfUser(ctx, "u2", "c1", nil), ErrNotOwnedByUser)
		s.ErrorIs(r.UpdateCartOfUser(ctx, "u1", "C1", nil), ErrNotFound)
		_, err := r.FindCartOfUser(ctx, "u2", "c1")
		s.ErrorIs(err, ErrNotOwnedByUser)
		s.ErrorIs(r.DeleteCartOfUser(ctx, "u2", "c1"), ErrNotOwnedByUser)
	})
	s.Run("deleted carts are gone for good", func() {
		r := s.NewRepository()
		s.Require().NoError(r.CreateCart(ctx, "u1", "c1", []Line{{"p1", 1}}))
		s.Require().NoError(r.DeleteCartOfUser(ctx, "u1", "c1"))

		s.ErrorIs(r.UpdateCartOfUser(ctx, "u1", "c1", nil), ErrDeleted)
		_, err := r.FindCartOfUser(ctx, "u1", "c1")
		s.ErrorIs(err, ErrDeleted)
		s.ErrorIs(r.DeleteCartOfUser(ctx, "u1", "c1"), ErrDeleted)
		s.ErrorIs(r.CreateCart(ctx, "u1", "c1", nil), ErrConflict)

		carts, err := r.FindCartsOfUser(ctx, "u1", true)
		s.Require().NoError(err)
		s.Empty(carts)
	})
	s.Run("list in creation order", func() {
		r := s.NewRepository()
		for i := 1; i <= 4; i++ {
			s.Require().NoError(r.CreateCart(ctx, "u1", fmt.Sprintf("c%d", i), []Line{{"p1", i}}))
		}
		s.Require().NoError(r.CreateCart(ctx, "u2", "other", nil))

		carts, err := r.FindCartsOfUser(ctx, "u1", false)
		s.Require().NoError(err)
		s.Require().Len(carts, 4)
		for i, c := range carts {
			s.Equal(fmt.Sprintf("c%d", i+1), c.ID)
			s.Equal([]Line{{"p1", i + 1}}, c.Lines)
		}
	})
	s.Run("works concurrently", func() {
		r := s.NewRepository()
		var wg sync.WaitGroup
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < 10; i++ {
					id := fmt.Sprintf("c-%d-%d", w, i)
					s.NoError(r.CreateCart(ctx, "u1", id, nil))
					s.NoError(r.UpdateCartOfUser(ctx, "u1", id, []Line{{"p1", i + 1}}))
				}
			}(w)
		}
		wg.Wait()

		carts, err := r.FindCartsOfUser(ctx, "u1", true)
		s.Require().NoError(err)
		s.Len(carts, 40)
	})
}

func (s *RepositorySuite) TestOrders() {
	newOrder := func(r Repository) Order {
		s.Require().NoError(r.CreateCart(ctx, "u1", "c1", []Line{{"p1", 2}}))
		o := Order{
			ID:        "o1",
			UserID:    "u1",
			CartID:    "c1",
			Price:     300,
			Status:    OrderCreated,
			Buyer:     Address{Name: "Alice", City: "Berlin"},
			Recipient: Address{Name: "Bob", City: "Hamburg"},
			Positions: []Position{{ProductID: "p1", Quantity: 2, Price: 300, Product: Product{ID: "p1", Name: "Pen", Price: 150}}},
			Hash:      "hash",
		}
		s.Require().NoError(r.CreateOrder(ctx, o))
		return o
	}

	s.Run("create and find", func() {
		r := s.NewRepository()
		want := newOrder(r)

		got, err := r.FindOrderOfUser(ctx, "u1", "o1")
		s.Require().NoError(err)
		s.Equal(want.Price, got.Price)
		s.Equal(want.Buyer, got.Buyer)
		s.Equal(want.Recipient, got.Recipient)
		s.Equal(want.Positions, got.Positions)
		s.Equal(want.Hash, got.Hash)
		s.Equal(OrderCreated, got.Status)

		s.ErrorIs(r.CreateOrder(ctx, want), ErrConflict)
		_, err = r.FindOrderOfUser(ctx, "u2", "o1")
		s.ErrorIs(err, ErrNotOwnedByUser)
		_, err = r.FindOrderOfUser(ctx, "u1", "missing")
		s.ErrorIs(err, ErrNotFound)
	})
	s.Run("placing locks the cart", func() {
		r := s.NewRepository()
		newOrder(r)

		placed, err := r.PlaceOrderOfUser(ctx, "u1", "o1")
		s.Require().NoError(err)
		s.Equal(OrderPlaced, placed.Status)

		_, err = r.PlaceOrderOfUser(ctx, "u1", "o1")
		s.ErrorIs(err, ErrLocked)
		s.ErrorIs(r.UpdateCartOfUser(ctx, "u1", "c1", nil), ErrLocked)
		s.ErrorIs(r.DeleteCartOfUser(ctx, "u1", "c1"), ErrLocked)

		unlocked, err := r.FindCartsOfUser(ctx, "u1", false)
		s.Require().NoError(err)
		s.Empty(unlocked)
		all, err := r.FindCartsOfUser(ctx, "u1", true)
		s.Require().NoError(err)
		s.Require().Len(all, 1)
		s.True(all[0].Locked)
	})
	s.Run("placing for another user", func() {
		r := s.NewRepository()
		newOrder(r)

		_, err := r.PlaceOrderOfUser(ctx, "u2", "o1")
		s.ErrorIs(err, ErrNotOwnedByUser)
	})
	s.Run("coupon positions", func() {
		r := s.NewRepository()
		s.Require().NoError(r.CreateCart(ctx, "u1", "c1", []Line{{"p1", 2}}))
		o := Order{
			ID:      "o1",
			UserID:  "u1",
			CartID:  "c1",
			Price:   270,
			Status:  OrderCreated,
			Coupons: []string{"PEN10"},
			Positions: []Position{
				{ProductID: "p1", Quantity: 2, Price: 300, Product: Product{ID: "p1", Name: "Pen", Price: 150}},
				{CouponCode: "PEN10", Quantity: 1, Price: -30, SavedPrice: 30, Product: Product{Name: "10% off pens"}},
			},
		}
		s.Require().NoError(r.CreateOrder(ctx, o))

		got, err := r.FindOrderOfUser(ctx, "u1", "o1")
		s.Require().NoError(err)
		s.Equal(o.Positions, got.Positions)
		s.Equal([]string{"PEN10"}, got.Coupons)
	})
	s.Run("deleting", func() {
		r := s.NewRepository()
		newOrder(r)

		s.ErrorIs(r.DeleteOrderOfUser(ctx, "u2", "o1"), ErrNotOwnedByUser)
		s.Require().NoError(r.DeleteOrderOfUser(ctx, "u1", "o1"))
		_, err := r.FindOrderOfUser(ctx, "u1", "o1")
		s.ErrorIs(err, ErrDeleted)
		_, err = r.PlaceOrderOfUser(ctx, "u1", "o1")
		s.ErrorIs(err, ErrDeleted)
		s.ErrorIs(r.DeleteOrderOfUser(ctx, "u1", "o1"), ErrDeleted)
		s.ErrorIs(r.DeleteOrderOfUser(ctx, "u1", "missing"), ErrNotFound)
	})
	s.Run("placed orders cannot be deleted", func() {
		r := s.NewRepository()
		newOrder(r)
		_, err := r.PlaceOrderOfUser(ctx, "u1", "o1")
		s.Require().NoError(err)

		s.ErrorIs(r.DeleteOrderOfUser(ctx, "u1", "o1"), ErrLocked)
	})
	s.Run("cart edited after the order was created", func() {
		r := s.NewRepository()
		newOrder(r)
		s.Require().NoError(r.UpdateCartOfUser(ctx, "u1", "c1", []Line{{"p1", 2}, {"p2", 10}}))

		_, err := r.PlaceOrderOfUser(ctx, "u1", "o1")
		s.ErrorIs(err, ErrDeleted)
		_, err = r.FindOrderOfUser(ctx, "u1", "o1")
		s.ErrorIs(err, ErrDeleted)

		c, err := r.FindCartOfUser(ctx, "u1", "c1")
		s.Require().NoError(err)
		s.False(c.Locked)
	})
	s.Run("cart deleted after the order was created", func() {
		r := s.NewRepository()
		newOrder(r)
		s.Require().NoError(r.DeleteCartOfUser(ctx, "u1", "c1"))

		_, err := r.PlaceOrderOfUser(ctx, "u1", "o1")
		s.ErrorIs(err, ErrDeleted)
		_, err = r.FindOrderOfUser(ctx, "u1", "o1")
		s.ErrorIs(err, ErrDeleted)
	})
}
