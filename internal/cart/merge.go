package cart

// Merge folds incoming positions into existing ones.
//
// Positions with the same product are collapsed into one and their quantities
// summed, so negative quantities act as decrements. Anonymous positions are
// never collapsed, neither with each other nor with anonymous positions from an
// earlier merge. The price of every result is reset to zero since prices are
// computed by the server. SavedPrice and Product are taken from the first
// position of a group that defines them. Groups whose quantity ends up <= 0 are
// dropped.
//
// The result keeps the order in which groups were first seen.
func Merge(existing, incoming []Position) []Position {
	n := len(existing) + len(incoming)
	order := make([]Ref, 0, n)
	groups := make(map[Ref]*Position, n)

	for i := 0; i < n; i++ {
		var p Position
		if i < len(existing) {
			p = existing[i]
		} else {
			p = incoming[i-len(existing)]
		}

		key := mergeKey(p, i)
		g, ok := groups[key]
		if !ok {
			g = &Position{Ref: key}
			groups[key] = g
			order = append(order, key)
		}

		g.Quantity += p.Quantity
		if g.SavedPrice == nil && p.SavedPrice != nil {
			v := *p.SavedPrice
			g.SavedPrice = &v
		}
		if g.Product == nil && p.Product != nil {
			prod := *p.Product
			g.Product = &prod
		}
	}

	out := make([]Position, 0, len(order))
	for _, key := range order {
		p := *groups[key]
		if p.Quantity <= 0 {
			continue
		}
		if _, ok := p.Ref.(LocalRef); ok {
			p.Ref = LocalRef{}
		}
		p.Price = 0
		out = append(out, p)
	}
	return out
}

func mergeKey(p Position, index int) Ref {
	if ref, ok := p.Ref.(ProductRef); ok {
		return ref
	}
	return LocalRef{slot: index}
}
