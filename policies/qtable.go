package policies

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/zeu5/evo-rl-tuning/util"
)

// QTable stores action values indexed by state and action
type QTable struct {
	table map[int]map[int]float64
}

func NewQTable() *QTable {
	return &QTable{
		table: make(map[int]map[int]float64),
	}
}

// Get the value, def when it was never set
func (q *QTable) Get(state, action int, def float64) float64 {
	if _, ok := q.table[state]; !ok {
		return def
	}
	val, ok := q.table[state][action]
	if !ok {
		return def
	}
	return val
}

func (q *QTable) Set(state, action int, val float64) {
	if _, ok := q.table[state]; !ok {
		q.table[state] = make(map[int]float64)
	}
	q.table[state][action] = val
}

func (q *QTable) HasState(state int) bool {
	_, ok := q.table[state]
	return ok
}

// Max over the actions {0, ..., actions-1}, unset values count as def.
// Ties are broken towards the lowest action.
func (q *QTable) Max(state int, actions int, def float64) (int, float64) {
	maxAction := -1
	maxVal := math.Inf(-1)
	for a := 0; a < actions; a++ {
		val := q.Get(state, a, def)
		if val > maxVal {
			maxAction = a
			maxVal = val
		}
	}
	if maxAction == -1 {
		return -1, def
	}
	return maxAction, maxVal
}

// Values returns the values of the actions {0, ..., actions-1}
func (q *QTable) Values(state int, actions int, def float64) []float64 {
	vals := make([]float64, actions)
	for a := range vals {
		vals[a] = q.Get(state, a, def)
	}
	return vals
}

func (q *QTable) Len() int {
	return len(q.table)
}

// Record writes the table as JSON
func (q *QTable) Record(path string) error {
	out := make(map[string]map[string]float64, len(q.table))
	for s, actions := range q.table {
		row := make(map[string]float64, len(actions))
		for a, v := range actions {
			row[strconv.Itoa(a)] = v
		}
		out[strconv.Itoa(s)] = row
	}
	bs, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return util.WriteToFile(path, string(bs))
}
