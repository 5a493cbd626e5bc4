package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestMerge(t *testing.T) {
	tests := map[string]struct {
		existing []Position
		incoming []Position
		want     []Position
	}{
		"empty input": {
			want: []Position{},
		},
		"quantities of the same product are summed": {
			incoming: []Position{Item("a", 2), Item("a", 3)},
			want:     []Position{Item("a", 5)},
		},
		"decrement to zero removes the product": {
			existing: []Position{Item("a", 1)},
			incoming: []Position{Item("a", -1)},
			want:     []Position{},
		},
		"all negative quantities": {
			incoming: []Position{Item("a", -1), Item("b", -2), LocalItem(-1)},
			want:     []Position{},
		},
		"anonymous positions never collapse": {
			incoming: []Position{LocalItem(1), LocalItem(1)},
			want:     []Position{LocalItem(1), LocalItem(1)},
		},
		"anonymous positions from an earlier merge stay separate": {
			existing: []Position{LocalItem(2)},
			incoming: []Position{LocalItem(3)},
			want:     []Position{LocalItem(2), LocalItem(3)},
		},
		"a position without ref counts as anonymous": {
			incoming: []Position{{Quantity: 1}, {Quantity: 1}},
			want:     []Position{LocalItem(1), LocalItem(1)},
		},
		"first seen order is kept": {
			existing: []Position{Item("b", 1), Item("a", 1)},
			incoming: []Position{Item("c", 1), Item("a", 1)},
			want:     []Position{Item("b", 1), Item("a", 2), Item("c", 1)},
		},
		"saved price comes from the first defining member": {
			incoming: []Position{
				Item("a", 1),
				{Ref: ProductRef{ProductID: "a"}, Quantity: 1, SavedPrice: intPtr(250)},
				{Ref: ProductRef{ProductID: "a"}, Quantity: 1, SavedPrice: intPtr(999)},
			},
			want: []Position{{Ref: ProductRef{ProductID: "a"}, Quantity: 3, SavedPrice: intPtr(250)}},
		},
		"product comes from the first defining member": {
			existing: []Position{Item("a", 1)},
			incoming: []Position{
				{Ref: ProductRef{ProductID: "a"}, Quantity: 1, Product: &Product{ID: "a", Name: "Apple", Price: 30}},
				{Ref: ProductRef{ProductID: "a"}, Quantity: 1, Product: &Product{ID: "a", Name: "Other", Price: 1}},
			},
			want: []Position{{Ref: ProductRef{ProductID: "a"}, Quantity: 3, Product: &Product{ID: "a", Name: "Apple", Price: 30}}},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := Merge(tc.existing, tc.incoming)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestMergeResetsPrice(t *testing.T) {
	got := Merge(
		[]Position{{Ref: ProductRef{ProductID: "a"}, Quantity: 1, Price: 500}},
		[]Position{
			{Ref: ProductRef{ProductID: "b"}, Quantity: 2, Price: 120},
			{Ref: LocalRef{}, Quantity: 1, Price: 42},
		},
	)

	require.Len(t, got, 3)
	for _, p := range got {
		assert.Zero(t, p.Price, "position %+v", p)
	}
}

func TestMergeIsIdempotentOnCanonicalPositions(t *testing.T) {
	canonical := Merge(nil, []Position{
		Item("a", 2),
		Item("b", 1),
		{Ref: ProductRef{ProductID: "c"}, Quantity: 4, SavedPrice: intPtr(99)},
		LocalItem(1),
	})

	once := Merge(canonical, nil)
	twice := Merge(once, nil)

	require.Equal(t, once, twice)
	require.Equal(t, canonical, once)
}

func TestMergeDoesNotAliasInputs(t *testing.T) {
	saved := intPtr(100)
	in := []Position{{Ref: ProductRef{ProductID: "a"}, Quantity: 1, SavedPrice: saved, Product: &Product{ID: "a"}}}

	got := Merge(nil, in)
	*got[0].SavedPrice = 1
	got[0].Product.Name = "changed"

	assert.Equal(t, 100, *saved)
	assert.Empty(t, in[0].Product.Name)
}

func TestPositionProductID(t *testing.T) {
	id, ok := Item("p1", 1).ProductID()
	assert.True(t, ok)
	assert.Equal(t, "p1", id)

	_, ok = LocalItem(1).ProductID()
	assert.False(t, ok)
	assert.True(t, LocalItem(1).Anonymous())
	assert.True(t, Position{}.Anonymous())
}
