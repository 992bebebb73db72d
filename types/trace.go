package types

// Step is one transition of an episode
type Step struct {
	State      int     `json:"state"`
	Action     int     `json:"action"`
	Reward     float64 `json:"reward"`
	NextState  int     `json:"next_state"`
	Terminated bool    `json:"terminated"`
}

// Trace of an episode as a sequence of transitions
type Trace struct {
	Steps []Step `json:"steps"`
}

func NewTrace() *Trace {
	return &Trace{
		Steps: make([]Step, 0),
	}
}

func (t *Trace) Append(state, action int, reward float64, nextState int, terminated bool) {
	t.Steps = append(t.Steps, Step{
		State:      state,
		Action:     action,
		Reward:     reward,
		NextState:  nextState,
		Terminated: terminated,
	})
}

func (t *Trace) Len() int {
	return len(t.Steps)
}

func (t *Trace) Get(i int) (Step, bool) {
	if i < 0 || i >= len(t.Steps) {
		return Step{}, false
	}
	return t.Steps[i], true
}

func (t *Trace) Last() (Step, bool) {
	return t.Get(len(t.Steps) - 1)
}

// TotalReward is the undiscounted return of the episode
func (t *Trace) TotalReward() float64 {
	total := 0.0
	for _, s := range t.Steps {
		total += s.Reward
	}
	return total
}

func (t *Trace) Slice(from, to int) *Trace {
	slicedTrace := NewTrace()
	for i := from; i < to && i < len(t.Steps); i++ {
		slicedTrace.Steps = append(slicedTrace.Steps, t.Steps[i])
	}
	return slicedTrace
}
