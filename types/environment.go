package types

import "github.com/zeu5/evo-rl-tuning/space"

// Info carries auxiliary data returned by Reset and Step
type Info map[string]interface{}

// StepResult is the outcome of a single environment step
type StepResult struct {
	State      int     `json:"state"`
	Reward     float64 `json:"reward"`
	Terminated bool    `json:"terminated"`
	Truncated  bool    `json:"truncated"`
	Info       Info    `json:"info"`
}

// Environment with discrete observation and action spaces
type Environment interface {
	// Reset starts a new episode, a non-nil seed makes it reproducible
	Reset(seed *uint64, options Info) (int, Info, error)
	// Step applies the action to the current episode
	Step(action int) (*StepResult, error)
	ActionSpace() space.Discrete
	ObservationSpace() space.Discrete
}
