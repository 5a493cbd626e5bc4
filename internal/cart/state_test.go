package cart

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStateIsEmpty(t *testing.T) {
	s := NewState()

	c := s.Cart()
	assert.Empty(t, c.ID)
	assert.NotNil(t, c.Positions)
	assert.Empty(t, c.Positions)
	assert.False(t, c.Persisted())
}

func TestStateAdd(t *testing.T) {
	s := NewState()
	s.Replace(Cart{ID: "c1", Positions: []Position{Item("p1", 1)}})

	s.Add("p1")
	s.Add("p2")

	c := s.Cart()
	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, []Position{Item("p1", 2), Item("p2", 1)}, c.Positions)
}

func TestStateUpdatePositionsMergesAgainstCurrent(t *testing.T) {
	s := NewState()
	s.UpdatePositions([]Position{Item("p1", 3), LocalItem(1)})
	s.UpdatePositions([]Position{Item("p1", -1), LocalItem(1)})

	c := s.Cart()
	assert.Equal(t, []Position{Item("p1", 2), LocalItem(1), LocalItem(1)}, c.Positions)
}

func TestStateSetQuantity(t *testing.T) {
	s := NewState()
	s.UpdatePositions([]Position{Item("p1", 3), Item("p2", 1)})

	s.SetQuantity("p1", 5)
	assert.Equal(t, 5, s.Cart().Quantity("p1"))

	s.SetQuantity("p3", 2)
	assert.Equal(t, 2, s.Cart().Quantity("p3"))

	s.SetQuantity("p1", -4)
	assert.Equal(t, 0, s.Cart().Quantity("p1"))

	s.Remove("p2")
	assert.Equal(t, []Position{Item("p3", 2)}, s.Cart().Positions)
}

func TestStateReset(t *testing.T) {
	s := NewState()
	s.Replace(Cart{ID: "c1", Positions: []Position{Item("p1", 1)}})

	s.Reset()

	assert.Equal(t, Empty(), s.Cart())
}

func TestStateClearID(t *testing.T) {
	s := NewState()
	s.Replace(Cart{ID: "old", Positions: []Position{Item("p1", 1)}})

	assert.False(t, s.ClearID("other"))
	assert.Equal(t, "old", s.Cart().ID)

	assert.True(t, s.ClearID("old"))
	c := s.Cart()
	assert.Empty(t, c.ID)
	assert.Equal(t, []Position{Item("p1", 1)}, c.Positions)

	assert.False(t, s.ClearID(""))
}

func TestStateReplaceIfUnchanged(t *testing.T) {
	s := NewState()
	s.Add("p1")
	rev := s.Revision()

	require.True(t, s.ReplaceIfUnchanged(rev, Cart{ID: "c1", Positions: []Position{Item("p1", 1)}}))
	assert.Equal(t, "c1", s.Cart().ID)

	stale := s.Revision()
	s.Add("p2")
	assert.False(t, s.ReplaceIfUnchanged(stale, Cart{ID: "c2"}))
	assert.Equal(t, "c1", s.Cart().ID)
	assert.Equal(t, 1, s.Cart().Quantity("p2"))
}

func TestStateAdoptID(t *testing.T) {
	s := NewState()
	s.Add("p1")

	assert.True(t, s.AdoptID(s.Epoch(), "", "c9"))

	c := s.Cart()
	assert.Equal(t, "c9", c.ID)
	assert.Equal(t, 1, c.Quantity("p1"))

	assert.False(t, s.AdoptID(s.Epoch(), "", "c10"))
	assert.Equal(t, "c9", s.Cart().ID)
}

func TestStateAdoptIDAfterReset(t *testing.T) {
	s := NewState()
	epoch := s.Epoch()
	s.Add("p1")
	s.Reset()

	assert.False(t, s.AdoptID(epoch, "", "c9"))
	assert.Empty(t, s.Cart().ID)
	assert.Equal(t, epoch+1, s.Epoch())
}

func TestStateCartIsACopy(t *testing.T) {
	s := NewState()
	s.Replace(Cart{ID: "c1", Positions: []Position{{Ref: ProductRef{ProductID: "p1"}, Quantity: 1, Product: &Product{ID: "p1", Name: "Pen"}}}})

	c := s.Cart()
	c.Positions[0].Quantity = 100
	c.Positions[0].Product.Name = "changed"

	again := s.Cart()
	assert.Equal(t, 1, again.Positions[0].Quantity)
	assert.Equal(t, "Pen", again.Positions[0].Product.Name)
}

func TestStateSubscribe(t *testing.T) {
	s := NewState()

	var seen []Cart
	cancel := s.Subscribe(func(c Cart) { seen = append(seen, c) })

	s.Add("p1")
	s.Replace(Cart{ID: "c1", Positions: []Position{Item("p1", 1)}})

	cancel()
	s.Reset()

	require.Len(t, seen, 2)
	assert.Equal(t, 1, seen[0].Quantity("p1"))
	assert.Equal(t, "c1", seen[1].ID)
}

func TestStateConcurrentMutations(t *testing.T) {
	s := NewState()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add("p1")
			_ = s.Cart()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, s.Cart().Quantity("p1"))
	assert.Equal(t, uint64(50), s.Revision())
}
