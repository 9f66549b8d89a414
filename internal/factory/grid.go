package factory

import (
	"github.com/ironsheep/image-sweep/internal/perturb"
	"github.com/ironsheep/image-sweep/internal/perturbers"
	"github.com/mitchellh/copystructure"
	"github.com/pkg/errors"
)

// MaxCombinations bounds the number of steps a factory may yield.
const MaxCombinations = 10000

// Factory is a perturber sequence that can also describe itself.
type Factory interface {
	perturb.Factory
	Config() map[string]any
}

// base holds what every factory shares: the perturber kind, its fixed
// parameters and the swept keys with their candidate values.
type base struct {
	kind   string
	params map[string]any
	keys   []string
	thetas [][]any
}

func newBase(kind string, params map[string]any, keys []string, thetas [][]any) (base, error) {
	if len(keys) == 0 {
		return base{}, configErrorf("theta_keys is empty")
	}
	if len(keys) != len(thetas) {
		return base{}, configErrorf("theta_keys has %d entries but thetas has %d", len(keys), len(thetas))
	}
	seen := make(map[string]bool, len(keys))
	for i, k := range keys {
		if k == "" {
			return base{}, configErrorf("theta key %d is empty", i)
		}
		if seen[k] {
			return base{}, configErrorf("theta key %q repeated", k)
		}
		seen[k] = true
		if len(thetas[i]) == 0 {
			return base{}, configErrorf("theta key %q has no values", k)
		}
	}

	b := base{
		kind:   kind,
		params: cloneParams(params),
		keys:   append([]string(nil), keys...),
		thetas: make([][]any, len(thetas)),
	}
	for i, vals := range thetas {
		b.thetas[i] = append([]any(nil), vals...)
	}
	return b, nil
}

func (b base) ThetaKeys() []string { return append([]string(nil), b.keys...) }

// build creates the perturber for the theta value indices idx.
func (b base) build(idx []int) (perturb.Perturber, perturb.Combination, error) {
	params := cloneParams(b.params)
	combo := make(perturb.Combination, len(b.keys))
	for k, key := range b.keys {
		v := b.thetas[k][idx[k]]
		params[key] = v
		combo[key] = v
	}
	p, err := perturbers.New(b.kind, params)
	if err != nil {
		return nil, nil, err
	}
	return p, combo, nil
}

func (b base) section() map[string]any {
	thetas := make([]any, len(b.thetas))
	for i, vals := range b.thetas {
		thetas[i] = append([]any(nil), vals...)
	}
	keys := make([]any, len(b.keys))
	for i, k := range b.keys {
		keys[i] = k
	}
	return map[string]any{
		"perturber":  b.kind,
		"params":     cloneParams(b.params),
		"theta_keys": keys,
		"thetas":     thetas,
	}
}

// Grid yields the cartesian product of its thetas.
type Grid struct {
	base
	n int
}

// NewGrid builds a grid over kind. The first perturber is built eagerly so
// bad parameters surface here rather than mid-sweep.
func NewGrid(kind string, params map[string]any, keys []string, thetas [][]any) (*Grid, error) {
	b, err := newBase(kind, params, keys, thetas)
	if err != nil {
		return nil, err
	}
	n := 1
	for _, vals := range b.thetas {
		n *= len(vals)
		if n > MaxCombinations {
			return nil, configErrorf("parameter combinations would exceed safe limit of %d", MaxCombinations)
		}
	}
	g := &Grid{base: b, n: n}
	if _, _, err := g.At(0); err != nil {
		return nil, configWrap(err, "invalid perturber configuration")
	}
	return g, nil
}

// Len returns the number of combinations.
func (g *Grid) Len() int { return g.n }

// At builds combination i. The last key varies fastest.
func (g *Grid) At(i int) (perturb.Perturber, perturb.Combination, error) {
	if i < 0 || i >= g.n {
		return nil, nil, errors.Errorf("combination %d out of range [0, %d)", i, g.n)
	}
	idx := make([]int, len(g.thetas))
	for k := len(g.thetas) - 1; k >= 0; k-- {
		size := len(g.thetas[k])
		idx[k] = i % size
		i /= size
	}
	return g.build(idx)
}

// Config describes the grid.
func (g *Grid) Config() map[string]any {
	return map[string]any{"type": "grid", "grid": g.section()}
}

// Sets yields explicitly listed combinations. Each set holds one index into
// the values of every theta key.
type Sets struct {
	base
	sets [][]int
}

// NewSets builds a set factory over kind.
func NewSets(kind string, params map[string]any, keys []string, thetas [][]any, sets [][]int) (*Sets, error) {
	b, err := newBase(kind, params, keys, thetas)
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return nil, configErrorf("sets is empty")
	}
	if len(sets) > MaxCombinations {
		return nil, configErrorf("parameter combinations would exceed safe limit of %d", MaxCombinations)
	}
	s := &Sets{base: b, sets: make([][]int, len(sets))}
	for i, set := range sets {
		if len(set) != len(keys) {
			return nil, configErrorf("set %d has %d indices, want %d", i, len(set), len(keys))
		}
		for k, idx := range set {
			if idx < 0 || idx >= len(b.thetas[k]) {
				return nil, configErrorf("set %d index %d out of range for %q", i, idx, keys[k])
			}
		}
		s.sets[i] = append([]int(nil), set...)
	}
	if _, _, err := s.At(0); err != nil {
		return nil, configWrap(err, "invalid perturber configuration")
	}
	return s, nil
}

// Len returns the number of sets.
func (s *Sets) Len() int { return len(s.sets) }

// At builds set i.
func (s *Sets) At(i int) (perturb.Perturber, perturb.Combination, error) {
	if i < 0 || i >= len(s.sets) {
		return nil, nil, errors.Errorf("combination %d out of range [0, %d)", i, len(s.sets))
	}
	return s.build(s.sets[i])
}

// Config describes the set factory.
func (s *Sets) Config() map[string]any {
	sec := s.section()
	sets := make([]any, len(s.sets))
	for i, set := range s.sets {
		row := make([]any, len(set))
		for k, idx := range set {
			row[k] = idx
		}
		sets[i] = row
	}
	sec["sets"] = sets
	return map[string]any{"type": "sets", "sets": sec}
}

func cloneParams(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	c, err := copystructure.Copy(m)
	if err != nil {
		// configuration values are plain maps, slices and scalars
		panic(errors.Wrap(err, "factory: copy params"))
	}
	return c.(map[string]any)
}
