package allocator

import (
	"math/rand/v2"
	"slices"
)

// Area ordering modes accepted by OrderAreas.
const (
	OrderHeadcount = "headcount"
	OrderGiven     = "given"
	OrderShuffle   = "shuffle"
)

// OrderAreas returns a reordered copy of areas. "headcount" sorts by ascending
// current assignment count (stable), "shuffle" permutes with rng, anything
// else keeps the given order.
func OrderAreas(areas []Area, mode string, rng *rand.Rand) []Area {
	out := slices.Clone(areas)
	switch mode {
	case OrderHeadcount:
		slices.SortStableFunc(out, func(a, b Area) int {
			return a.Assigned - b.Assigned
		})
	case OrderShuffle:
		if rng == nil {
			rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		} else {
			rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		}
	}
	return out
}
