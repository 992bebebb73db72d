package types

import (
	"github.com/pkg/errors"
)

type AgentConfig struct {
	Episodes    int
	Horizon     int
	Policy      Policy
	Environment Environment
}

// RL Agent configured with the corresponding
// policy and environment
type Agent struct {
	config      *AgentConfig
	policy      Policy
	environment Environment
}

// Instantiates a new Agent
func NewAgent(config *AgentConfig) *Agent {
	return &Agent{
		config:      config,
		policy:      config.Policy,
		environment: config.Environment,
	}
}

// RunEpisode resets the environment and steps it until the episode
// terminates, the horizon is reached or the policy gives up. The trace
// collected so far is returned along with any environment error.
func (a *Agent) RunEpisode(episode int, seed *uint64) (*Trace, error) {
	trace := NewTrace()
	state, _, err := a.environment.Reset(seed, nil)
	if err != nil {
		return trace, errors.Wrap(err, "reset failed")
	}
	actions := a.environment.ActionSpace().N

	for i := 0; i < a.config.Horizon; i++ {
		action, ok := a.policy.NextAction(i, state, actions)
		if !ok {
			break
		}
		result, err := a.environment.Step(action)
		if err != nil {
			return trace, errors.Wrapf(err, "step %d failed", i)
		}
		transition := Step{
			State:      state,
			Action:     action,
			Reward:     result.Reward,
			NextState:  result.State,
			Terminated: result.Terminated,
		}
		a.policy.Update(i, transition)
		trace.Steps = append(trace.Steps, transition)

		state = result.State
		if result.Terminated || result.Truncated {
			break
		}
	}
	a.policy.UpdateIteration(episode, trace)
	return trace, nil
}

// Run the agent for the configured number of episodes, stopping at the
// first error
func (a *Agent) Run() ([]*Trace, error) {
	traces := make([]*Trace, 0, a.config.Episodes)
	for i := 0; i < a.config.Episodes; i++ {
		trace, err := a.RunEpisode(i, nil)
		traces = append(traces, trace)
		if err != nil {
			return traces, err
		}
	}
	return traces, nil
}
