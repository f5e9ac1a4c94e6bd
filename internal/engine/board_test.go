package engine_test

import (
	"fmt"
	"reflect"
	"testing"

	"oddclimb-backend/internal/engine"
)

// uniformConfig builds a hazard-free board where every non-fixed cell rolls
// the given kind weights. Tests use it to pin cell outcomes without caring
// which seed is in play.
func uniformConfig(kindWeights [5]float64, rewards []engine.Option) engine.Config {
	cfg := engine.DefaultConfig()
	cfg.HazardTarget = 0
	region := engine.RegionTable{KindWeights: kindWeights, Rewards: rewards}
	cfg.Regions = []engine.RegionTable{region, region, region, region}
	return cfg
}

func TestGenerateDeterministic(t *testing.T) {
	cfg := engine.DefaultConfig()

	for _, seed := range []string{"abc123", "oddseed", "x"} {
		a := engine.Generate(seed, cfg)
		b := engine.Generate(seed, cfg)
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("seed %q: two generations differ", seed)
		}
	}
}

func TestGenerateFixedEndpoints(t *testing.T) {
	cfg := engine.DefaultConfig()

	for i := 0; i < 20; i++ {
		seed := fmt.Sprintf("endpoint-seed-%d", i)
		cells := engine.Generate(seed, cfg)

		if len(cells) != engine.BoardSize {
			t.Fatalf("seed %q: got %d cells", seed, len(cells))
		}
		if cells[0].Kind != engine.CellSafe {
			t.Errorf("seed %q: cell 0 is %s, want safe", seed, cells[0].Kind)
		}
		last := cells[engine.LastPosition]
		if last.Kind != engine.CellFinish {
			t.Errorf("seed %q: cell 100 is %s, want finish", seed, last.Kind)
		}
		if last.Multiplier != cfg.FinishMultiplier {
			t.Errorf("seed %q: finish multiplier %v, want %v", seed, last.Multiplier, cfg.FinishMultiplier)
		}
		for pos, c := range cells {
			if c.Position != pos {
				t.Fatalf("seed %q: cell at index %d claims position %d", seed, pos, c.Position)
			}
		}
	}
}

func TestGenerateHazardPlacement(t *testing.T) {
	cfg := engine.DefaultConfig()

	for i := 0; i < 50; i++ {
		seed := fmt.Sprintf("hazard-seed-%d", i)
		cells := engine.Generate(seed, cfg)

		var hazards []int
		for _, c := range cells {
			if c.Kind == engine.CellHazard {
				hazards = append(hazards, c.Position)
			}
		}

		if len(hazards) != cfg.HazardTarget {
			t.Errorf("seed %q: %d hazards, want %d", seed, len(hazards), cfg.HazardTarget)
		}

		for _, h := range hazards {
			if h < 5 || h > 95 {
				t.Errorf("seed %q: hazard at %d outside candidate range", seed, h)
			}
		}

		// Every pair honors at least the relaxed pass minimum.
		for i := range hazards {
			for j := i + 1; j < len(hazards); j++ {
				d := hazards[i] - hazards[j]
				if d < 0 {
					d = -d
				}
				if d < cfg.RelaxedPathGap {
					t.Errorf("seed %q: hazards %d and %d closer than relaxed gap", seed, hazards[i], hazards[j])
				}
			}
		}
	}
}

func TestGenerateRewardTiers(t *testing.T) {
	cfg := engine.DefaultConfig()
	allowed := map[float64]bool{}
	for _, r := range cfg.Regions {
		for _, o := range r.Rewards {
			allowed[o.Value] = true
		}
	}

	cells := engine.Generate("tier-seed", cfg)
	for _, c := range cells {
		if c.Kind != engine.CellMultiplier {
			continue
		}
		if !allowed[c.Multiplier] {
			t.Errorf("position %d: multiplier %v not in any tier table", c.Position, c.Multiplier)
		}
	}
}

func TestGenerateAllPlainConfig(t *testing.T) {
	cfg := uniformConfig([5]float64{0, 0, 0, 0, 1}, nil)
	cells := engine.Generate("any-seed", cfg)

	for pos := 1; pos < engine.LastPosition; pos++ {
		if cells[pos].Kind != engine.CellSafe {
			t.Fatalf("position %d: got %s, want safe", pos, cells[pos].Kind)
		}
	}
}

func TestGenerateRewardAntiRepeat(t *testing.T) {
	cfg := uniformConfig([5]float64{0, 1, 0, 0, 0}, []engine.Option{
		{Value: 2.0, Weight: 1},
		{Value: 3.0, Weight: 1},
	})
	cells := engine.Generate("anti-repeat-seed", cfg)

	prev := 0.0
	for pos := 1; pos < engine.LastPosition; pos++ {
		c := cells[pos]
		if c.Kind != engine.CellMultiplier {
			t.Fatalf("position %d: got %s, want multiplier", pos, c.Kind)
		}
		if c.Multiplier == prev {
			t.Fatalf("position %d repeats multiplier %v", pos, prev)
		}
		prev = c.Multiplier
	}
}

func TestGenerateSingleTierFallback(t *testing.T) {
	// With one tier the anti-repeat filter empties the table every time; the
	// pick must fall back to the unfiltered table instead of erroring.
	cfg := uniformConfig([5]float64{0, 1, 0, 0, 0}, []engine.Option{
		{Value: 2.0, Weight: 1},
	})
	cells := engine.Generate("fallback-seed", cfg)

	for pos := 1; pos < engine.LastPosition; pos++ {
		if cells[pos].Multiplier != 2.0 {
			t.Fatalf("position %d: multiplier %v, want 2.0", pos, cells[pos].Multiplier)
		}
	}
}

func TestPickOptionExclusionFallback(t *testing.T) {
	rng := engine.NewRng("pick-seed")
	options := []engine.Option{{Value: 1, Weight: 1}, {Value: 2, Weight: 1}}

	got := engine.PickOption(rng, options, func(engine.Option) bool { return true })
	if got.Value != 1 && got.Value != 2 {
		t.Fatalf("fallback pick returned %v", got.Value)
	}

	got = engine.PickOption(rng, options, func(o engine.Option) bool { return o.Value == 1 })
	if got.Value != 2 {
		t.Fatalf("exclusion ignored: got %v", got.Value)
	}
}
