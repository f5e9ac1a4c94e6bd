package engine

import "math"

const (
	BoardSize    = 101 // positions 0..100
	LastPosition = 100

	hazardCandidateMin = 5
	hazardCandidateMax = 95
)

type CellKind string

const (
	CellSafe       CellKind = "safe"
	CellHazard     CellKind = "hazard"
	CellResetTrap  CellKind = "reset_trap"
	CellMultiplier CellKind = "multiplier"
	CellPowerup    CellKind = "powerup"
	CellBonusChest CellKind = "bonus_chest"
	CellFinish     CellKind = "finish"
)

type PowerupKind string

const (
	PowerupShield PowerupKind = "shield"
	PowerupDouble PowerupKind = "double"
	PowerupSkip   PowerupKind = "skip"
)

// powerupByIndex maps the powerup sub-roll onto a kind. Order is part of the
// deterministic contract, do not reorder.
var powerupByIndex = []PowerupKind{PowerupShield, PowerupDouble, PowerupSkip}

// Cell is one board position. A board is a pure function of the seed; cells
// are never mutated after generation.
type Cell struct {
	Position   int         `json:"position"`
	Kind       CellKind    `json:"kind"`
	Multiplier float64     `json:"multiplier,omitempty"`
	Powerup    PowerupKind `json:"powerup,omitempty"`
	Bonus      float64     `json:"bonus,omitempty"`
}

// RegionTable holds the weighted tables for one coarse position band.
// KindWeights order: reset trap, multiplier, powerup, bonus chest, plain.
type RegionTable struct {
	KindWeights [5]float64
	Rewards     []Option
}

// Config carries every generation knob. Production values come from
// DefaultConfig; tests pin their own tables to get predictable boards.
type Config struct {
	HazardTarget   int
	MinPathGap     int
	MinVisualGap   int
	RelaxedPathGap int
	GridWidth      int

	FinishMultiplier float64
	MaxMultiplier    float64

	RegionSize int
	Regions    []RegionTable

	PowerupWeights []float64
	BonusOptions   []Option
}

// DefaultConfig returns the production board tuning. Later regions skew
// toward higher risk and higher reward.
func DefaultConfig() Config {
	return Config{
		HazardTarget:   17,
		MinPathGap:     3,
		MinVisualGap:   2,
		RelaxedPathGap: 2,
		GridWidth:      10,

		FinishMultiplier: 10.0,
		MaxMultiplier:    15.0,

		RegionSize: 25,
		Regions: []RegionTable{
			{
				KindWeights: [5]float64{0.06, 0.22, 0.08, 0.06, 0.58},
				Rewards: []Option{
					{Value: 1.2, Weight: 5},
					{Value: 1.5, Weight: 3},
					{Value: 2.0, Weight: 2},
				},
			},
			{
				KindWeights: [5]float64{0.09, 0.26, 0.07, 0.07, 0.51},
				Rewards: []Option{
					{Value: 1.5, Weight: 4},
					{Value: 2.0, Weight: 3},
					{Value: 3.0, Weight: 2},
					{Value: 4.0, Weight: 1},
				},
			},
			{
				KindWeights: [5]float64{0.12, 0.30, 0.06, 0.08, 0.44},
				Rewards: []Option{
					{Value: 2.0, Weight: 4},
					{Value: 3.0, Weight: 3},
					{Value: 4.0, Weight: 2},
					{Value: 5.0, Weight: 1},
				},
			},
			{
				KindWeights: [5]float64{0.15, 0.34, 0.05, 0.09, 0.37},
				Rewards: []Option{
					{Value: 2.0, Weight: 3},
					{Value: 3.0, Weight: 3},
					{Value: 5.0, Weight: 2},
					{Value: 8.0, Weight: 1},
				},
			},
		},

		PowerupWeights: []float64{0.45, 0.30, 0.25},
		BonusOptions: []Option{
			{Value: 5, Weight: 5},
			{Value: 10, Weight: 3},
			{Value: 25, Weight: 2},
		},
	}
}

func (c Config) regionFor(position int) RegionTable {
	idx := (position - 1) / c.RegionSize
	if idx >= len(c.Regions) {
		idx = len(c.Regions) - 1
	}
	return c.Regions[idx]
}

// Generate materializes the 101-cell board for a seed. It is pure: the same
// seed and config always yield the same cells, so callers regenerate on
// demand instead of caching.
//
// RNG draw order is load-bearing (the seed hash is a commitment to the whole
// sequence): first the hazard shuffle, then one kind roll per non-hazard
// position in ascending order, with sub-rolls for reward tier, powerup choice
// and bonus size immediately after the kind roll that needs them.
func Generate(seed string, cfg Config) []Cell {
	rng := NewRng(seed)

	hazards := placeHazards(rng, cfg)

	cells := make([]Cell, BoardSize)
	cells[0] = Cell{Position: 0, Kind: CellSafe}
	cells[LastPosition] = Cell{
		Position:   LastPosition,
		Kind:       CellFinish,
		Multiplier: cfg.FinishMultiplier,
	}

	lastReward := 0.0
	for pos := 1; pos < LastPosition; pos++ {
		if hazards[pos] {
			cells[pos] = Cell{Position: pos, Kind: CellHazard}
			continue
		}

		region := cfg.regionFor(pos)
		cell := Cell{Position: pos}

		switch pickIndex(rng, region.KindWeights[:]) {
		case 0:
			cell.Kind = CellResetTrap
		case 1:
			cell.Kind = CellMultiplier
			picked := PickOption(rng, region.Rewards, func(o Option) bool {
				return o.Value == lastReward
			})
			cell.Multiplier = picked.Value
			lastReward = picked.Value
		case 2:
			cell.Kind = CellPowerup
			cell.Powerup = powerupByIndex[pickIndex(rng, cfg.PowerupWeights)]
		case 3:
			cell.Kind = CellBonusChest
			cell.Bonus = PickOption(rng, cfg.BonusOptions, nil).Value
		default:
			cell.Kind = CellSafe
		}

		cells[pos] = cell
	}

	return cells
}

// placeHazards shuffles the candidate range with a seeded Fisher-Yates and
// greedily accepts positions that keep both the path gap and the serpentine
// grid gap. If the strict rule cannot reach the target a second pass over the
// same shuffled order applies the relaxed path-only gap; no extra RNG draws
// happen, so the draw count stays fixed regardless of which pass fills the
// set.
func placeHazards(rng *Rng, cfg Config) map[int]bool {
	pool := make([]int, 0, hazardCandidateMax-hazardCandidateMin+1)
	for p := hazardCandidateMin; p <= hazardCandidateMax; p++ {
		pool = append(pool, p)
	}

	order := make([]int, 0, len(pool))
	for len(pool) > 0 {
		idx := int(math.Floor(rng.Next() * float64(len(pool))))
		if idx >= len(pool) {
			idx = len(pool) - 1
		}
		order = append(order, pool[idx])
		pool = append(pool[:idx], pool[idx+1:]...)
	}

	accepted := make([]int, 0, cfg.HazardTarget)
	taken := make(map[int]bool, cfg.HazardTarget)

	for _, cand := range order {
		if len(accepted) >= cfg.HazardTarget {
			break
		}
		ok := true
		for _, a := range accepted {
			if pathDistance(cand, a) < cfg.MinPathGap ||
				visualDistance(cand, a, cfg.GridWidth) < cfg.MinVisualGap {
				ok = false
				break
			}
		}
		if ok {
			accepted = append(accepted, cand)
			taken[cand] = true
		}
	}

	if len(accepted) < cfg.HazardTarget {
		for _, cand := range order {
			if len(accepted) >= cfg.HazardTarget {
				break
			}
			if taken[cand] {
				continue
			}
			ok := true
			for _, a := range accepted {
				if pathDistance(cand, a) < cfg.RelaxedPathGap {
					ok = false
					break
				}
			}
			if ok {
				accepted = append(accepted, cand)
				taken[cand] = true
			}
		}
	}

	return taken
}

func pathDistance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// visualDistance is the Manhattan distance between two positions laid out on
// a boustrophedon grid: columns run left-to-right on even rows and
// right-to-left on odd rows, so path-adjacent cells at a row wrap sit
// vertically stacked.
func visualDistance(a, b, width int) int {
	ra, ca := gridCoords(a, width)
	rb, cb := gridCoords(b, width)
	return pathDistance(ra, rb) + pathDistance(ca, cb)
}

func gridCoords(position, width int) (row, col int) {
	row = position / width
	col = position % width
	if row%2 == 1 {
		col = width - 1 - col
	}
	return row, col
}
