package types

import (
	"context"
	"time"
)

// EpisodeContext stores the information used and returned by an episode
type EpisodeContext struct {
	Context        context.Context
	Run            int
	Episode        int
	ExperimentName string
	// seed passed to the environment reset, nil for an unseeded episode
	Seed *uint64

	Trace       *Trace
	Err         error
	Timesteps   int
	RunDuration time.Duration

	// episode ended because the environment reported a terminal state
	Terminated bool
	// episode ended because the horizon was reached
	HorizonEnd bool
}

func NewEpisodeContext(ctx context.Context, run, episode int, experimentName string, seed *uint64) *EpisodeContext {
	return &EpisodeContext{
		Context:        ctx,
		Run:            run,
		Episode:        episode,
		ExperimentName: experimentName,
		Seed:           seed,
		Trace:          NewTrace(),
	}
}

// EpisodeRecord is the summary of an episode handed to a Recorder
type EpisodeRecord struct {
	Experiment  string    `json:"experiment"`
	Run         int       `json:"run"`
	Episode     int       `json:"episode"`
	Steps       int       `json:"steps"`
	TotalReward float64   `json:"total_reward"`
	FinalState  int       `json:"final_state"`
	Terminated  bool      `json:"terminated"`
	Error       string    `json:"error,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
	Timestamp   time.Time `json:"timestamp"`
	Trace       *Trace    `json:"trace,omitempty"`
}

// Record summarizes the episode, the trace is included if withTrace is set
func (e *EpisodeContext) Record(withTrace bool) *EpisodeRecord {
	r := &EpisodeRecord{
		Experiment:  e.ExperimentName,
		Run:         e.Run,
		Episode:     e.Episode,
		Steps:       e.Timesteps,
		TotalReward: e.Trace.TotalReward(),
		FinalState:  -1,
		Terminated:  e.Terminated,
		DurationMs:  e.RunDuration.Milliseconds(),
		Timestamp:   time.Now().UTC(),
	}
	if last, ok := e.Trace.Last(); ok {
		r.FinalState = last.NextState
	}
	if e.Err != nil {
		r.Error = e.Err.Error()
	}
	if withTrace {
		r.Trace = e.Trace
	}
	return r
}

// Recorder persists episode summaries
type Recorder interface {
	Record(context.Context, *EpisodeRecord) error
	Close() error
}
