package policies

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/evo-rl-tuning/types"
	"golang.org/x/exp/rand"
)

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func TestQTable(t *testing.T) {
	q := NewQTable()
	assert.Equal(t, 3.0, q.Get(1, 2, 3))
	assert.False(t, q.HasState(1))

	q.Set(1, 2, 5)
	q.Set(1, 2, 6)
	assert.Equal(t, 6.0, q.Get(1, 2, 0))
	assert.True(t, q.HasState(1))

	action, val := q.Max(1, 4, 0)
	assert.Equal(t, 2, action)
	assert.Equal(t, 6.0, val)

	q.Set(2, 0, -1)
	action, val = q.Max(2, 3, 0)
	assert.Equal(t, 1, action, "unset actions count as the default")
	assert.Equal(t, 0.0, val)

	action, val = q.Max(7, 0, 4)
	assert.Equal(t, -1, action)
	assert.Equal(t, 4.0, val)

	assert.Equal(t, []float64{0, 0, 6}, q.Values(1, 3, 0))
	assert.Equal(t, 2, q.Len())
}

func TestQTableRecord(t *testing.T) {
	q := NewQTable()
	q.Set(3, 1, 2.5)
	p := filepath.Join(t.TempDir(), "policies", "q.json")
	require.NoError(t, q.Record(p))

	bs, err := os.ReadFile(p)
	require.NoError(t, err)
	out := make(map[string]map[string]float64)
	require.NoError(t, json.Unmarshal(bs, &out))
	assert.Equal(t, 2.5, out["3"]["1"])
}

func TestQLearningUpdate(t *testing.T) {
	p := NewQLearningGreedy(0.5, 0.9, 0, newRand(1))
	_, ok := p.NextAction(0, 0, 3)
	require.True(t, ok)

	p.QTable().Set(1, 2, 10)
	p.Update(0, types.Step{State: 0, Action: 1, Reward: 9, NextState: 1})
	// 0.5*0 + 0.5*(9 + 0.9*10)
	assert.InDelta(t, 9.0, p.QTable().Get(0, 1, 0), 1e-12)

	p.Update(1, types.Step{State: 0, Action: 1, Reward: -1, NextState: 1, Terminated: true})
	// 0.5*9 + 0.5*(-1)
	assert.InDelta(t, 4.0, p.QTable().Get(0, 1, 0), 1e-12)

	p.Reset()
	assert.Equal(t, 0, p.QTable().Len())
}

func TestQLearningGreedyChoice(t *testing.T) {
	p := NewQLearningGreedy(0.5, 0.9, 0, newRand(1))
	p.QTable().Set(4, 3, 1)
	for i := 0; i < 10; i++ {
		action, ok := p.NextAction(i, 4, 5)
		require.True(t, ok)
		assert.Equal(t, 3, action)
	}
	_, ok := p.NextAction(0, 4, 0)
	assert.False(t, ok)
}

func TestQLearningExplores(t *testing.T) {
	p := NewQLearningGreedy(0.5, 0.9, 1, newRand(2))
	seen := make(map[int]bool)
	for i := 0; i < 200; i++ {
		action, ok := p.NextAction(i, 0, 5)
		require.True(t, ok)
		require.True(t, action >= 0 && action < 5)
		seen[action] = true
	}
	assert.Len(t, seen, 5)
}

func TestRandomPolicy(t *testing.T) {
	p := NewRandomPolicy(newRand(3))
	for i := 0; i < 50; i++ {
		action, ok := p.NextAction(i, 0, 15)
		require.True(t, ok)
		assert.True(t, action >= 0 && action < 15)
	}
	_, ok := p.NextAction(0, 0, 0)
	assert.False(t, ok)
	assert.NoError(t, p.Record("unused"))
}

func TestSoftmaxPrefersHighValues(t *testing.T) {
	p := NewSoftmaxPolicy(0.5, 0.9, 0.1, newRand(4))
	p.qTable.Set(0, 2, 5)
	counts := make(map[int]int)
	for i := 0; i < 100; i++ {
		action, ok := p.NextAction(i, 0, 3)
		require.True(t, ok)
		counts[action] += 1
	}
	assert.Greater(t, counts[2], 90)

	p.Update(0, types.Step{State: 0, Action: 2, Reward: -1, NextState: 0, Terminated: true})
	assert.InDelta(t, 2.0, p.qTable.Get(0, 2, 0), 1e-12)
}
