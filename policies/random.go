package policies

import (
	"time"

	"github.com/zeu5/evo-rl-tuning/types"
	"golang.org/x/exp/rand"
)

func orNewRand(rng *rand.Rand) *rand.Rand {
	if rng != nil {
		return rng
	}
	return rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
}

// RandomPolicy picks actions uniformly and learns nothing
type RandomPolicy struct {
	rand *rand.Rand
}

var _ types.Policy = &RandomPolicy{}

func NewRandomPolicy(rng *rand.Rand) *RandomPolicy {
	return &RandomPolicy{
		rand: orNewRand(rng),
	}
}

func (r *RandomPolicy) Reset() {}

func (r *RandomPolicy) Record(_ string) error { return nil }

func (r *RandomPolicy) UpdateIteration(_ int, _ *types.Trace) {}

func (r *RandomPolicy) NextAction(_ int, _ int, actions int) (int, bool) {
	if actions <= 0 {
		return 0, false
	}
	return r.rand.Intn(actions), true
}

func (r *RandomPolicy) Update(_ int, _ types.Step) {}
