package cart

import "sync"

// Listener is notified with a snapshot of the cart after every commit.
type Listener func(Cart)

// State owns the current cart. All mutations go through the Position Merger
// or replace the cart as a whole, and are visible to readers as soon as the
// method returns. It is safe for concurrent use.
type State struct {
	mu        sync.RWMutex
	cart      Cart
	revision  uint64
	epoch     uint64
	listeners map[int]Listener
	nextID    int
}

// NewState returns a state holding the empty cart.
func NewState() *State {
	return &State{
		cart:      Empty(),
		listeners: make(map[int]Listener),
	}
}

// Cart returns a copy of the current cart.
func (s *State) Cart() Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone()
}

// Revision is incremented on every commit. It lets callers detect whether the
// cart changed between two points in time.
func (s *State) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Epoch is incremented on every Reset. Two carts without identity read in
// different epochs are different carts.
func (s *State) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// Replace replaces the whole cart.
func (s *State) Replace(c Cart) {
	s.commit(func(*Cart) Cart { return normalize(c) })
}

// ReplaceIfUnchanged replaces the cart only if no commit happened since rev.
func (s *State) ReplaceIfUnchanged(rev uint64, c Cart) bool {
	s.mu.Lock()
	if s.revision != rev {
		s.mu.Unlock()
		return false
	}
	snap := s.apply(normalize(c))
	s.mu.Unlock()

	s.notify(snap)
	return true
}

// UpdatePositions merges positions into the current ones and commits the
// result.
func (s *State) UpdatePositions(positions []Position) {
	s.commit(func(cur *Cart) Cart {
		return Cart{ID: cur.ID, Positions: Merge(cur.Positions, positions)}
	})
}

// Add adds one piece of the given product.
func (s *State) Add(productID string) {
	s.UpdatePositions([]Position{Item(productID, 1)})
}

// SetQuantity sets the quantity of the given product. A quantity <= 0 removes
// it.
func (s *State) SetQuantity(productID string, quantity int) {
	s.commit(func(cur *Cart) Cart {
		if quantity < 0 {
			quantity = 0
		}
		delta := quantity - cur.Quantity(productID)
		return Cart{ID: cur.ID, Positions: Merge(cur.Positions, []Position{Item(productID, delta)})}
	})
}

// Remove removes the given product.
func (s *State) Remove(productID string) {
	s.SetQuantity(productID, 0)
}

// Reset replaces the cart with the empty cart and starts a new epoch.
func (s *State) Reset() {
	s.commit(func(*Cart) Cart {
		s.epoch++
		return Empty()
	})
}

// ClearID forgets the cart identity if it still equals expected. It reports
// whether the id was cleared.
func (s *State) ClearID(expected string) bool {
	s.mu.Lock()
	if expected == "" || s.cart.ID != expected {
		s.mu.Unlock()
		return false
	}
	next := s.cart.Clone()
	next.ID = ""
	snap := s.apply(next)
	s.mu.Unlock()

	s.notify(snap)
	return true
}

// AdoptID sets the cart identity without touching the positions if the cart
// was not reset since epoch and its identity still equals expected. It
// reports whether the id was set.
func (s *State) AdoptID(epoch uint64, expected, id string) bool {
	s.mu.Lock()
	if s.epoch != epoch || s.cart.ID != expected {
		s.mu.Unlock()
		return false
	}
	next := s.cart.Clone()
	next.ID = id
	snap := s.apply(next)
	s.mu.Unlock()

	s.notify(snap)
	return true
}

// Subscribe registers l to be called after every commit. The returned func
// removes the listener.
func (s *State) Subscribe(l Listener) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *State) commit(next func(cur *Cart) Cart) {
	s.mu.Lock()
	snap := s.apply(next(&s.cart))
	s.mu.Unlock()

	s.notify(snap)
}

// apply must be called with mu held.
func (s *State) apply(c Cart) Cart {
	s.cart = c
	s.revision++
	return c.Clone()
}

func (s *State) notify(snap Cart) {
	s.mu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.RUnlock()

	for _, l := range listeners {
		l(snap.Clone())
	}
}

func normalize(c Cart) Cart {
	out := c.Clone()
	if out.Positions == nil {
		out.Positions = []Position{}
	}
	return out
}
