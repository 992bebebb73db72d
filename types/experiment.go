package types

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/zeu5/evo-rl-tuning/util"
)

type experimentRunConfig struct {
	// execution configuration
	CurrentRun int
	Episodes   int
	Horizon    int
	Analyzers  []Analyzer
	Context    context.Context
	// base seed of the run, nil for unseeded episodes
	Seed *uint64

	// threshold to abort the experiment
	ConsecutiveErrorsAbort int

	// record flags
	RecordTraces bool
	RecordPolicy bool
	Recorders    []Recorder

	ReportSavePath string
	Logger         log.Logger

	//misc
	LongestExpNameLen int
}

// Experiment encapsulates the different parameters to configure an agent and analyze the traces
type Experiment struct {
	Name        string
	policy      Policy
	environment Environment
}

// NewExperiment creates a new experiment instance
func NewExperiment(name string, policy Policy, environment Environment) *Experiment {
	return &Experiment{
		Name:        name,
		policy:      policy,
		environment: environment,
	}
}

// episodeSeed derives a distinct seed for every (run, episode) pair
func episodeSeed(rConfig *experimentRunConfig, episode int) *uint64 {
	if rConfig.Seed == nil {
		return nil
	}
	s := *rConfig.Seed + uint64(rConfig.CurrentRun*rConfig.Episodes+episode)
	return &s
}

// Run the experiment for the specified number of episodes and feed every
// trace to the analyzers
func (e *Experiment) Run(rConfig *experimentRunConfig) error {
	select {
	case <-rConfig.Context.Done():
		return rConfig.Context.Err()
	default:
	}

	totalWithError := 0 // episodes ended with an error
	consecutiveErrors := 0
	totalTerminated := 0 // episodes ended in a terminal state
	totalHorizon := 0    // episodes ended with the horizon reached
	totalReward := 0.0

	agent := NewAgent(&AgentConfig{
		Episodes:    rConfig.Episodes,
		Horizon:     rConfig.Horizon,
		Policy:      e.policy,
		Environment: e.environment,
	})

	EPPadding := len(strconv.Itoa(rConfig.Episodes))
	NamePadding := rConfig.LongestExpNameLen

	for episode := 0; episode < rConfig.Episodes; episode++ {
		select {
		case <-rConfig.Context.Done():
			fmt.Println("")
			return rConfig.Context.Err()
		default:
		}

		eCtx := NewEpisodeContext(rConfig.Context, rConfig.CurrentRun, episode, e.Name, episodeSeed(rConfig, episode))
		e.runEpisode(eCtx, agent, rConfig.Horizon)

		if eCtx.Err != nil {
			totalWithError += 1
			consecutiveErrors += 1
			level.Warn(rConfig.Logger).Log("msg", "episode failed", "experiment", e.Name, "run", rConfig.CurrentRun, "episode", episode, "err", eCtx.Err)
		} else {
			consecutiveErrors = 0
			if eCtx.Terminated {
				totalTerminated += 1
			} else if eCtx.HorizonEnd {
				totalHorizon += 1
			}
		}
		totalReward += eCtx.Trace.TotalReward()

		record := eCtx.Record(rConfig.RecordTraces)
		for _, r := range rConfig.Recorders {
			if err := r.Record(rConfig.Context, record); err != nil {
				level.Error(rConfig.Logger).Log("msg", "could not record episode", "experiment", e.Name, "episode", episode, "err", err)
			}
		}

		// analyze the trace, even if the episode ended with an error
		for _, a := range rConfig.Analyzers {
			a.Analyze(rConfig.CurrentRun, episode, e.Name, eCtx.Trace)
		}

		// terminal execution display
		fmt.Printf("\rExp:%*s, Eps:%*d/%d, Err:%*d || Terminal:%*d, Horizon:%*d || AvgReward:%8.2f",
			NamePadding, e.Name, EPPadding, episode+1, rConfig.Episodes, EPPadding, totalWithError,
			EPPadding, totalTerminated, EPPadding, totalHorizon, totalReward/float64(episode+1))

		if rConfig.ConsecutiveErrorsAbort > 0 && consecutiveErrors >= rConfig.ConsecutiveErrorsAbort {
			fmt.Println("")
			return errors.Errorf("aborting experiment %s: %d consecutive errors, last: %v", e.Name, consecutiveErrors, eCtx.Err)
		}
	}
	fmt.Println("")

	if rConfig.RecordPolicy {
		policyPath := path.Join(rConfig.ReportSavePath, "policies", e.Name+"_"+strconv.Itoa(rConfig.CurrentRun)+".json")
		if err := e.policy.Record(policyPath); err != nil {
			return errors.Wrapf(err, "recording policy of %s", e.Name)
		}
	}
	return nil
}

func (e *Experiment) runEpisode(eCtx *EpisodeContext, agent *Agent, horizon int) {
	start := time.Now()
	trace, err := agent.RunEpisode(eCtx.Episode, eCtx.Seed)
	eCtx.RunDuration = time.Since(start)
	eCtx.Trace = trace
	eCtx.Timesteps = trace.Len()
	if err != nil {
		eCtx.Err = err
		return
	}
	if last, ok := trace.Last(); ok && last.Terminated {
		eCtx.Terminated = true
	} else if trace.Len() >= horizon {
		eCtx.HorizonEnd = true
	}
}

// Reset cleans what the policy learned
func (e *Experiment) Reset() {
	e.policy.Reset()
}

// Generic Dataset that contains information after processing the traces
type DataSet interface{}

// Analyzer compresses the information in the traces to a DataSet
type Analyzer interface {
	// Run, episode, experiment, trace
	Analyze(int, int, string, *Trace)
	// Resulting dataset
	DataSet() DataSet
	// Reset the analyzer
	Reset()
}

// Comparator differentiates between different datasets with associated names
// run, total episodes, experiment names, datasets
type Comparator func(int, int, []string, []DataSet) error

func NoopComparator() Comparator {
	return func(_, _ int, _ []string, _ []DataSet) error { return nil }
}

// ChainComparators runs every comparator on the same datasets and returns
// the first error
func ChainComparators(comparators ...Comparator) Comparator {
	return func(run, episodes int, names []string, ds []DataSet) error {
		var first error
		for _, c := range comparators {
			if err := c(run, episodes, names, ds); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
}

// ComparisonConfig contains the configuration for the comparison
type ComparisonConfig struct {
	Runs     int // number of runs
	Episodes int // number of episodes
	Horizon  int // number of steps

	RecordPath string  // path to store the results
	Seed       *uint64 // base seed, nil for unseeded runs

	// threshold to abort an experiment
	ConsecutiveErrorsAbort int

	// record flags
	RecordTraces bool
	RecordPolicy bool
	Recorders    []Recorder

	Logger log.Logger
}

// Comparison contains the different experiments to compare
// The traces obtained from the experiments are analyzed
// The analyzed datasets are then compared
type Comparison struct {
	Experiments []*Experiment
	analyzers   map[string]Analyzer
	comparators map[string]Comparator
	cConfig     *ComparisonConfig
}

// NewComparison creates a comparison instance and the output folders
func NewComparison(config *ComparisonConfig) (*Comparison, error) {
	if config.Logger == nil {
		config.Logger = log.NewNopLogger()
	}
	if config.ConsecutiveErrorsAbort == 0 {
		config.ConsecutiveErrorsAbort = 10
	}

	folders := []string{config.RecordPath}
	if config.RecordPolicy {
		folders = append(folders, path.Join(config.RecordPath, "policies"))
	}
	for _, f := range folders {
		if err := util.EnsureDir(f); err != nil {
			return nil, errors.Wrapf(err, "creating %s", f)
		}
	}

	return &Comparison{
		Experiments: make([]*Experiment, 0),
		analyzers:   make(map[string]Analyzer),
		comparators: make(map[string]Comparator),
		cConfig:     config,
	}, nil
}

// AddAnalysis adds an analyzer and comparator to the comparison
func (c *Comparison) AddAnalysis(name string, analyzer Analyzer, comparator Comparator) {
	c.analyzers[name] = analyzer
	c.comparators[name] = comparator
}

// Add experiments to compare
func (c *Comparison) AddExperiment(e *Experiment) {
	c.Experiments = append(c.Experiments, e)
}

// record the configuration of the comparison
func (c *Comparison) recordConfig() error {
	cfg := c.cConfig
	out := make(map[string]interface{})
	out["runs"] = cfg.Runs
	out["episodes"] = cfg.Episodes
	out["horizon"] = cfg.Horizon
	out["record_traces"] = cfg.RecordTraces
	out["record_policy"] = cfg.RecordPolicy
	if cfg.Seed != nil {
		out["seed"] = *cfg.Seed
	}

	experiments := make([]string, 0)
	for _, e := range c.Experiments {
		experiments = append(experiments, e.Name)
	}
	out["experiments"] = experiments

	analyzers := make([]string, 0)
	for name := range c.analyzers {
		analyzers = append(analyzers, name)
	}
	out["analyzers"] = analyzers

	bs, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return os.WriteFile(path.Join(cfg.RecordPath, "comparison_config.json"), bs, 0644)
}

// Run the comparison
func (c *Comparison) Run(ctx context.Context) error {
	if err := c.recordConfig(); err != nil {
		return errors.Wrap(err, "recording comparison config")
	}

	longestNameLen := 0
	for _, e := range c.Experiments {
		if len(e.Name) > longestNameLen {
			longestNameLen = len(e.Name)
		}
	}

	for run := 0; run < c.cConfig.Runs; run++ {
		fmt.Printf("Run %d\n", run+1)
		datasets := make(map[string][]DataSet)
		for name := range c.analyzers {
			datasets[name] = make([]DataSet, len(c.Experiments))
		}

		names := make([]string, len(c.Experiments))
		for i, e := range c.Experiments {
			if err := e.Run(c.prepareRunConfig(ctx, run, longestNameLen)); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				level.Error(c.cConfig.Logger).Log("msg", "experiment aborted", "experiment", e.Name, "run", run, "err", err)
			}
			for name, a := range c.analyzers {
				datasets[name][i] = a.DataSet()
				a.Reset()
			}
			names[i] = e.Name
			e.Reset()
		}
		for name, comp := range c.comparators {
			if err := comp(run, c.cConfig.Episodes, names, datasets[name]); err != nil {
				level.Error(c.cConfig.Logger).Log("msg", "comparator failed", "analysis", name, "run", run, "err", err)
			}
		}
	}
	return nil
}

// prepare the run configuration for the experiment
func (c *Comparison) prepareRunConfig(ctx context.Context, run, longestExpNameLen int) *experimentRunConfig {
	rCfg := &experimentRunConfig{
		CurrentRun:             run,
		Episodes:               c.cConfig.Episodes,
		Horizon:                c.cConfig.Horizon,
		Analyzers:              make([]Analyzer, 0),
		Context:                ctx,
		Seed:                   c.cConfig.Seed,
		ConsecutiveErrorsAbort: c.cConfig.ConsecutiveErrorsAbort,
		RecordTraces:           c.cConfig.RecordTraces,
		RecordPolicy:           c.cConfig.RecordPolicy,
		Recorders:              c.cConfig.Recorders,
		ReportSavePath:         c.cConfig.RecordPath,
		Logger:                 c.cConfig.Logger,

		LongestExpNameLen: longestExpNameLen,
	}
	for _, a := range c.analyzers {
		rCfg.Analyzers = append(rCfg.Analyzers, a)
	}
	return rCfg
}
