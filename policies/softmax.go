package policies

import (
	"math"

	"github.com/zeu5/evo-rl-tuning/types"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// SoftmaxPolicy samples actions with probability proportional to
// exp(Q(s,a)/temperature) and learns with the Q-learning update
type SoftmaxPolicy struct {
	qTable      *QTable
	alpha       float64
	gamma       float64
	temperature float64
	rand        *rand.Rand
	actions     int
}

var _ types.Policy = &SoftmaxPolicy{}

func NewSoftmaxPolicy(alpha, gamma, temperature float64, rng *rand.Rand) *SoftmaxPolicy {
	if temperature <= 0 {
		temperature = 1
	}
	return &SoftmaxPolicy{
		qTable:      NewQTable(),
		alpha:       alpha,
		gamma:       gamma,
		temperature: temperature,
		rand:        orNewRand(rng),
	}
}

func (s *SoftmaxPolicy) Record(path string) error {
	return s.qTable.Record(path)
}

func (s *SoftmaxPolicy) Reset() {
	s.qTable = NewQTable()
}

func (s *SoftmaxPolicy) UpdateIteration(_ int, _ *types.Trace) {}

func (s *SoftmaxPolicy) NextAction(_ int, state int, actions int) (int, bool) {
	if actions <= 0 {
		return 0, false
	}
	s.actions = actions
	weights := s.qTable.Values(state, actions, 0)
	// shift by the max to keep exp bounded
	maxVal := floats.Max(weights)
	for i, v := range weights {
		weights[i] = math.Exp((v - maxVal) / s.temperature)
	}
	return sampleuv.NewWeighted(weights, s.rand).Take()
}

func (s *SoftmaxPolicy) Update(_ int, t types.Step) {
	nextVal := 0.0
	if !t.Terminated {
		_, nextVal = s.qTable.Max(t.NextState, s.actions, 0)
	}
	curVal := s.qTable.Get(t.State, t.Action, 0)
	s.qTable.Set(t.State, t.Action, (1-s.alpha)*curVal+s.alpha*(t.Reward+s.gamma*nextVal))
}
