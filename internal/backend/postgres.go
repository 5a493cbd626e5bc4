package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type rowsQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const uniqueViolation = "23505"

type PostgresRepository struct {
	pool       DBPool
	bcryptCost int
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool, bcryptCost: bcrypt.DefaultCost}
}

// WithBcryptCost returns a copy of the repository hashing with the given cost.
func (r *PostgresRepository) WithBcryptCost(cost int) *PostgresRepository {
	cp := *r
	cp.bcryptCost = cost
	return &cp
}

var _ Repository = (*PostgresRepository)(nil)

func (r *PostgresRepository) CreateUser(ctx context.Context, id, name, password string) error {
	hash, err := hashPassword(password, r.bcryptCost)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO users(id, name, password_hash) VALUES($1, $2, $3)`, id, name, hash)
	return mapUnique(err)
}

func (r *PostgresRepository) FindUserByNameAndPassword(ctx context.Context, name, password string) (User, error) {
	return r.findUser(ctx, `SELECT id, name, password_hash FROM users WHERE name=$1`, name, password)
}

func (r *PostgresRepository) FindUserByIDAndPassword(ctx context.Context, id, password string) (User, error) {
	return r.findUser(ctx, `SELECT id, name, password_hash FROM users WHERE id=$1`, id, password)
}

func (r *PostgresRepository) findUser(ctx context.Context, query, key, password string) (User, error) {
	var (
		u    User
		hash []byte
	)
	if err := r.pool.QueryRow(ctx, query, key).Scan(&u.ID, &u.Name, &hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	if !passwordMatches(hash, password) {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *PostgresRepository) CreateProduct(ctx context.Context, p Product) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO products(id, name, price) VALUES($1, $2, $3)`, p.ID, p.Name, p.Price)
	return mapUnique(err)
}

func (r *PostgresRepository) FindAllProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, price FROM products ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Product, 0)
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) FindProduct(ctx context.Context, id string) (Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx, `SELECT id, name, price FROM products WHERE id=$1`, id).Scan(&p.ID, &p.Name, &p.Price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (r *PostgresRepository) StoreCoupon(ctx context.Context, c Coupon) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO coupons(code, product_id, name, discount, expires_at)
		VALUES($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO UPDATE SET
			product_id = EXCLUDED.product_id,
			name = EXCLUDED.name,
			discount = EXCLUDED.discount,
			expires_at = EXCLUDED.expires_at
	`, c.Code, c.ProductID, c.Name, c.Discount, c.ExpiresAt)
	return err
}

func (r *PostgresRepository) FindValidCoupon(ctx context.Context, code string, now time.Time) (Coupon, error) {
	var c Coupon
	err := r.pool.QueryRow(ctx, `
		SELECT code, product_id, name, discount, expires_at FROM coupons WHERE code=$1 AND expires_at > $2
	`, code, now).Scan(&c.Code, &c.ProductID, &c.Name, &c.Discount, &c.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Coupon{}, ErrNotFound
		}
		return Coupon{}, err
	}
	return c, nil
}

func (r *PostgresRepository) CreateCart(ctx context.Context, userID, id string, lines []Line) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO carts(id, user_id) VALUES($1, $2)`, id, userID); err != nil {
			return mapUnique(err)
		}
		return insertLines(ctx, tx, id, lines)
	})
}

func (r *PostgresRepository) UpdateCartOfUser(ctx context.Context, userID, id string, lines []Line) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		locked, _, err := cartOfUser(ctx, tx, userID, id, true)
		if err != nil {
			return err
		}
		if locked {
			return ErrLocked
		}
		current, err := findLines(ctx, tx, id)
		if err != nil {
			return err
		}
		if linesEqual(current, lines) {
			return nil
		}
		if _, err := tx.Exec(ctx, `UPDATE carts SET revision = revision + 1 WHERE id=$1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id=$1`, id); err != nil {
			return err
		}
		return insertLines(ctx, tx, id, lines)
	})
}

func (r *PostgresRepository) FindCartsOfUser(ctx context.Context, userID string, includeLocked bool) ([]Cart, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.revision, c.locked, c.created_at, COALESCE(l.product_id, ''), COALESCE(l.quantity, 0)
		FROM carts c
		LEFT JOIN cart_lines l ON l.cart_id = c.id
		WHERE c.user_id=$1 AND NOT c.deleted AND ($2 OR NOT c.locked)
		ORDER BY c.seq, l.position
	`, userID, includeLocked)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Cart, 0)
	for rows.Next() {
		var (
			id        string
			revision  int
			locked    bool
			createdAt time.Time
			line      Line
		)
		if err := rows.Scan(&id, &revision, &locked, &createdAt, &line.ProductID, &line.Quantity); err != nil {
			return nil, err
		}
		if n := len(out); n == 0 || out[n-1].ID != id {
			out = append(out, Cart{ID: id, UserID: userID, Lines: []Line{}, Revision: revision, Locked: locked, CreatedAt: createdAt})
		}
		if line.ProductID != "" {
			last := &out[len(out)-1]
			last.Lines = append(last.Lines, line)
		}
	}
	return out, rows.Err()
}

func (r *PostgresRepository) FindCartOfUser(ctx context.Context, userID, id string) (Cart, error) {
	var (
		owner     string
		revision  int
		locked    bool
		deleted   bool
		createdAt time.Time
	)
	err := r.pool.QueryRow(ctx, `SELECT user_id, revision, locked, deleted, created_at FROM carts WHERE id=$1`, id).
		Scan(&owner, &revision, &locked, &deleted, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Cart{}, ErrNotFound
		}
		return Cart{}, err
	}
	if deleted {
		return Cart{}, ErrDeleted
	}
	if owner != userID {
		return Cart{}, ErrNotOwnedByUser
	}

	lines, err := findLines(ctx, r.pool, id)
	if err != nil {
		return Cart{}, err
	}
	return Cart{ID: id, UserID: owner, Lines: lines, Revision: revision, Locked: locked, CreatedAt: createdAt}, nil
}

func (r *PostgresRepository) DeleteCartOfUser(ctx context.Context, userID, id string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		locked, _, err := cartOfUser(ctx, tx, userID, id, true)
		if err != nil {
			return err
		}
		if locked {
			return ErrLocked
		}
		_, err = tx.Exec(ctx, `UPDATE carts SET deleted=true WHERE id=$1`, id)
		return err
	})
}

// storedAddress and storedPosition are the JSON shapes of the order columns.
type storedAddress struct {
	Name       string `json:"name"`
	Country    string `json:"country"`
	PostalCode string `json:"postalCode"`
	City       string `json:"city"`
	Street     string `json:"street"`
}

type storedPosition struct {
	ProductID    string `json:"productId"`
	CouponCode   string `json:"couponCode,omitempty"`
	Quantity     int    `json:"quantity"`
	Price        int    `json:"price"`
	SavedPrice   int    `json:"savedPrice,omitempty"`
	ProductName  string `json:"productName"`
	ProductPrice int    `json:"productPrice"`
}

func (r *PostgresRepository) CreateOrder(ctx context.Context, o Order) error {
	buyer, err := json.Marshal(storedAddress(o.Buyer))
	if err != nil {
		return fmt.Errorf("marshal buyer: %w", err)
	}
	recipient, err := json.Marshal(storedAddress(o.Recipient))
	if err != nil {
		return fmt.Errorf("marshal recipient: %w", err)
	}
	positions := make([]storedPosition, 0, len(o.Positions))
	for _, p := range o.Positions {
		positions = append(positions, storedPosition{
			ProductID:    p.ProductID,
			CouponCode:   p.CouponCode,
			Quantity:     p.Quantity,
			Price:        p.Price,
			SavedPrice:   p.SavedPrice,
			ProductName:  p.Product.Name,
			ProductPrice: p.Product.Price,
		})
	}
	posJSON, err := json.Marshal(positions)
	if err != nil {
		return fmt.Errorf("marshal positions: %w", err)
	}

	coupons := o.Coupons
	if coupons == nil {
		coupons = []string{}
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO orders(id, user_id, cart_id, cart_revision, hash, coupons, price, status, buyer, recipient, positions)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, o.ID, o.UserID, o.CartID, o.CartRevision, o.Hash, coupons, o.Price, string(o.Status), buyer, recipient, posJSON)
	return mapUnique(err)
}

func (r *PostgresRepository) FindOrderOfUser(ctx context.Context, userID, id string) (Order, error) {
	o, err := scanOrder(ctx, r.pool, id, false)
	if err != nil {
		return Order{}, err
	}
	if o.UserID != userID {
		return Order{}, ErrNotOwnedByUser
	}
	return o, nil
}

func (r *PostgresRepository) DeleteOrderOfUser(ctx context.Context, userID, id string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		o, err := scanOrder(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return ErrNotOwnedByUser
		}
		if o.Status == OrderPlaced {
			return ErrLocked
		}
		_, err = tx.Exec(ctx, `UPDATE orders SET deleted=true WHERE id=$1`, id)
		return err
	})
}

func (r *PostgresRepository) PlaceOrderOfUser(ctx context.Context, userID, id string) (Order, error) {
	var (
		placed Order
		stale  bool
	)
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		o, err := scanOrder(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return ErrNotOwnedByUser
		}
		if o.Status == OrderPlaced {
			return ErrLocked
		}

		locked, revision, err := cartOfUser(ctx, tx, userID, o.CartID, true)
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrDeleted), errors.Is(err, ErrNotOwnedByUser),
			err == nil && revision != o.CartRevision:
			// the order is committed as deleted
			stale = true
			_, err = tx.Exec(ctx, `UPDATE orders SET deleted=true WHERE id=$1`, id)
			return err
		case err != nil:
			return err
		}
		if locked {
			return ErrLocked
		}

		if _, err := tx.Exec(ctx, `UPDATE carts SET locked=true WHERE id=$1`, o.CartID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2 WHERE id=$1`, id, string(OrderPlaced)); err != nil {
			return err
		}
		o.Status = OrderPlaced
		placed = o
		return nil
	})
	if err == nil && stale {
		return Order{}, ErrDeleted
	}
	return placed, err
}

func (r *PostgresRepository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func insertLines(ctx context.Context, tx pgx.Tx, cartID string, lines []Line) error {
	for i, l := range lines {
		if _, err := tx.Exec(ctx, `INSERT INTO cart_lines(cart_id, position, product_id, quantity) VALUES($1, $2, $3, $4)`,
			cartID, i, l.ProductID, l.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func findLines(ctx context.Context, q rowsQuerier, cartID string) ([]Line, error) {
	rows, err := q.Query(ctx, `SELECT product_id, quantity FROM cart_lines WHERE cart_id=$1 ORDER BY position`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []Line{}
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ProductID, &l.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// cartOfUser checks ownership and reports whether the cart is locked and
// its revision.
func cartOfUser(ctx context.Context, q rowQuerier, userID, id string, forUpdate bool) (bool, int, error) {
	query := `SELECT user_id, locked, deleted, revision FROM carts WHERE id=$1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var (
		owner    string
		locked   bool
		deleted  bool
		revision int
	)
	if err := q.QueryRow(ctx, query, id).Scan(&owner, &locked, &deleted, &revision); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, 0, ErrNotFound
		}
		return false, 0, err
	}
	if deleted {
		return false, 0, ErrDeleted
	}
	if owner != userID {
		return false, 0, ErrNotOwnedByUser
	}
	return locked, revision, nil
}

func scanOrder(ctx context.Context, q rowQuerier, id string, forUpdate bool) (Order, error) {
	query := `
		SELECT user_id, cart_id, cart_revision, hash, coupons, deleted, price, status, buyer, recipient, positions, created_at
		FROM orders WHERE id=$1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var (
		o                           Order
		deleted                     bool
		status                      string
		buyer, recipient, positions []byte
	)
	err := q.QueryRow(ctx, query, id).Scan(&o.UserID, &o.CartID, &o.CartRevision, &o.Hash, &o.Coupons, &deleted,
		&o.Price, &status, &buyer, &recipient, &positions, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	if deleted {
		return Order{}, ErrDeleted
	}
	if len(o.Coupons) == 0 {
		o.Coupons = nil
	}
	o.ID = id
	o.Status = OrderStatus(status)

	var b, rcp storedAddress
	if err := json.Unmarshal(buyer, &b); err != nil {
		return Order{}, fmt.Errorf("decode buyer: %w", err)
	}
	if err := json.Unmarshal(recipient, &rcp); err != nil {
		return Order{}, fmt.Errorf("decode recipient: %w", err)
	}
	o.Buyer, o.Recipient = Address(b), Address(rcp)

	var stored []storedPosition
	if err := json.Unmarshal(positions, &stored); err != nil {
		return Order{}, fmt.Errorf("decode positions: %w", err)
	}
	o.Positions = make([]Position, 0, len(stored))
	for _, p := range stored {
		o.Positions = append(o.Positions, Position{
			ProductID:  p.ProductID,
			CouponCode: p.CouponCode,
			Quantity:   p.Quantity,
			Price:      p.Price,
			SavedPrice: p.SavedPrice,
			Product:    Product{ID: p.ProductID, Name: p.ProductName, Price: p.ProductPrice},
		})
	}
	return o, nil
}

func mapUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrConflict
	}
	return err
}
