package cart

// Product is the denormalized product data carried by a position.
type Product struct {
	ID    string
	Name  string
	Price int // in cents
}

// Ref identifies a position. It is either a ProductRef or a LocalRef.
type Ref interface {
	isRef()
}

// ProductRef identifies a position by the product it refers to.
type ProductRef struct {
	ProductID string
}

// LocalRef marks a position that is not yet resolved to a product. The slot is
// only meaningful inside a single Merge call and is always zero outside of it.
type LocalRef struct {
	slot int
}

func (ProductRef) isRef() {}
func (LocalRef) isRef()   {}

// Position is a line item of a cart.
type Position struct {
	Ref        Ref
	Quantity   int
	Price      int  // in cents
	SavedPrice *int // in cents
	Product    *Product
}

// Item returns an identified position for the given product.
func Item(productID string, quantity int) Position {
	return Position{Ref: ProductRef{ProductID: productID}, Quantity: quantity}
}

// LocalItem returns an anonymous position.
func LocalItem(quantity int) Position {
	return Position{Ref: LocalRef{}, Quantity: quantity}
}

// ProductID returns the product id of the position and whether it is
// identified at all.
func (p Position) ProductID() (string, bool) {
	if ref, ok := p.Ref.(ProductRef); ok {
		return ref.ProductID, true
	}
	return "", false
}

// Anonymous reports whether the position has no product identity.
func (p Position) Anonymous() bool {
	_, ok := p.ProductID()
	return !ok
}

func (p Position) clone() Position {
	if p.Ref == nil {
		p.Ref = LocalRef{}
	}
	if p.SavedPrice != nil {
		v := *p.SavedPrice
		p.SavedPrice = &v
	}
	if p.Product != nil {
		prod := *p.Product
		p.Product = &prod
	}
	return p
}

// Cart is the current cart. An empty ID means the cart was never persisted.
type Cart struct {
	ID        string
	Positions []Position
}

// Empty returns the canonical empty cart.
func Empty() Cart {
	return Cart{Positions: []Position{}}
}

// Persisted reports whether the cart has a server assigned identity.
func (c Cart) Persisted() bool {
	return c.ID != ""
}

// Quantity returns the quantity stored for the given product, zero if absent.
func (c Cart) Quantity(productID string) int {
	for _, p := range c.Positions {
		if id, ok := p.ProductID(); ok && id == productID {
			return p.Quantity
		}
	}
	return 0
}

// Clone returns a deep copy of the cart.
func (c Cart) Clone() Cart {
	out := Cart{ID: c.ID, Positions: make([]Position, len(c.Positions))}
	for i, p := range c.Positions {
		out.Positions[i] = p.clone()
	}
	return out
}
