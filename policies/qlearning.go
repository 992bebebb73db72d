package policies

import (
	"github.com/zeu5/evo-rl-tuning/types"
	"golang.org/x/exp/rand"
)

// QLearningGreedy is an epsilon-greedy tabular Q-learning policy
type QLearningGreedy struct {
	qTable  *QTable
	alpha   float64
	gamma   float64
	epsilon float64
	rand    *rand.Rand
	// size of the action space, learned from NextAction
	actions int
}

var _ types.Policy = &QLearningGreedy{}

func NewQLearningGreedy(alpha, gamma, epsilon float64, rng *rand.Rand) *QLearningGreedy {
	return &QLearningGreedy{
		qTable:  NewQTable(),
		alpha:   alpha,
		gamma:   gamma,
		epsilon: epsilon,
		rand:    orNewRand(rng),
	}
}

func (q *QLearningGreedy) QTable() *QTable {
	return q.qTable
}

func (q *QLearningGreedy) Record(path string) error {
	return q.qTable.Record(path)
}

func (q *QLearningGreedy) Reset() {
	q.qTable = NewQTable()
}

func (q *QLearningGreedy) NextAction(_ int, state int, actions int) (int, bool) {
	if actions <= 0 {
		return 0, false
	}
	q.actions = actions
	if q.rand.Float64() < q.epsilon {
		return q.rand.Intn(actions), true
	}
	action, _ := q.qTable.Max(state, actions, 0)
	return action, action >= 0
}

// Update applies Q(s,a) <- (1-alpha)Q(s,a) + alpha(r + gamma max Q(s',.)),
// without bootstrapping from terminal transitions
func (q *QLearningGreedy) Update(_ int, t types.Step) {
	nextVal := 0.0
	if !t.Terminated {
		_, nextVal = q.qTable.Max(t.NextState, q.actions, 0)
	}
	curVal := q.qTable.Get(t.State, t.Action, 0)
	q.qTable.Set(t.State, t.Action, (1-q.alpha)*curVal+q.alpha*(t.Reward+q.gamma*nextVal))
}

func (q *QLearningGreedy) UpdateIteration(_ int, _ *types.Trace) {}
