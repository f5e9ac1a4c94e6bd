package engine

// Option is one entry in a weighted table. Value is whatever the table is
// selecting (a multiplier tier, a bonus size, an index into a kind list).
type Option struct {
	Value  float64
	Weight float64
}

// PickOption performs a single cumulative-probability roll against options.
// Ties resolve to the first option whose cumulative weight meets or exceeds
// the roll. When exclude is non-nil, excluded options are dropped first; if
// that empties the table the unfiltered table is used instead, so the pick
// never fails.
func PickOption(rng *Rng, options []Option, exclude func(Option) bool) Option {
	pool := options
	if exclude != nil {
		filtered := make([]Option, 0, len(options))
		for _, o := range options {
			if !exclude(o) {
				filtered = append(filtered, o)
			}
		}
		if len(filtered) > 0 {
			pool = filtered
		}
	}

	total := 0.0
	for _, o := range pool {
		total += o.Weight
	}

	roll := rng.Next() * total
	cum := 0.0
	for _, o := range pool {
		cum += o.Weight
		if cum >= roll {
			return o
		}
	}
	return pool[len(pool)-1]
}

// pickIndex rolls against plain weights and returns the selected index.
func pickIndex(rng *Rng, weights []float64) int {
	options := make([]Option, len(weights))
	for i, w := range weights {
		options[i] = Option{Value: float64(i), Weight: w}
	}
	return int(PickOption(rng, options, nil).Value)
}
