package types

// Policy chooses actions and learns from the observed transitions
type Policy interface {
	// NextAction for the state at the given step of the episode
	NextAction(step int, state int, actions int) (int, bool)
	// Update with a single transition
	Update(step int, transition Step)
	// UpdateIteration is called at the end of each episode with its trace
	UpdateIteration(episode int, trace *Trace)
	// Reset clears everything learned
	Reset()
	// Record persists the learned values to the path
	Record(path string) error
}
