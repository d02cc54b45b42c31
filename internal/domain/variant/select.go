package variant

import (
	"sort"
)

// BestInStock picks the variant a cart add falls back to when none is named:
// highest stock, then lowest price, then lexical size. Out-of-stock variants are ignored.
func BestInStock(vs []*Variant) *Variant {
	candidates := make([]*Variant, 0, len(vs))
	for _, v := range vs {
		if v != nil && v.Stock > 0 {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Stock != b.Stock {
			return a.Stock > b.Stock
		}
		if c := a.Price.Cmp(b.Price); c != 0 {
			return c < 0
		}
		return a.Size < b.Size
	})
	return candidates[0]
}
