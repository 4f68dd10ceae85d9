package rendering

// Diff lists how the set of rows changes between two renders.
type Diff struct {
	// Removed rows, in the order of the previous render.
	Removed []uint64

	// Added rows, in the order of the new render.
	Added []uint64

	// Retained rows, in the order of the new render.
	Retained []uint64
}

// Reconcile compares the row keys of two renders.
func Reconcile(prev, next []uint64) Diff {
	d := Diff{}

	inNext := make(map[uint64]bool, len(next))
	for _, id := range next {
		inNext[id] = true
	}

	inPrev := make(map[uint64]bool, len(prev))
	for _, id := range prev {
		inPrev[id] = true

		if !inNext[id] {
			d.Removed = append(d.Removed, id)
		}
	}

	for _, id := range next {
		if inPrev[id] {
			d.Retained = append(d.Retained, id)
		} else {
			d.Added = append(d.Added, id)
		}
	}

	return d
}
