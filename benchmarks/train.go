package benchmarks

import (
	"context"
	"os"
	"path"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/zeu5/evo-rl-tuning/config"
	"github.com/zeu5/evo-rl-tuning/evoenv"
	"github.com/zeu5/evo-rl-tuning/logging"
	"github.com/zeu5/evo-rl-tuning/policies"
	"github.com/zeu5/evo-rl-tuning/recorder"
	"github.com/zeu5/evo-rl-tuning/types"
	"github.com/zeu5/evo-rl-tuning/util"
	"golang.org/x/exp/rand"
)

// Train compares the Q-learning agent against a softmax learner and a random
// baseline, each on its own environment
func Train(ctx context.Context, cfg *config.TrainConfig, logger log.Logger) error {
	if err := util.EnsureDir(cfg.RecordPath); err != nil {
		return err
	}
	if err := cfg.Write(path.Join(cfg.RecordPath, "train_config.yaml")); err != nil {
		return errors.Wrap(err, "recording train config")
	}

	recorders, err := getRecorders(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		for _, r := range recorders {
			r.Close()
		}
	}()

	c, err := types.NewComparison(&types.ComparisonConfig{
		Runs:       cfg.Runs,
		Episodes:   cfg.Episodes,
		Horizon:    cfg.Horizon,
		RecordPath: cfg.RecordPath,
		Seed:       cfg.Seed,
		// record flags
		RecordTraces: cfg.RecordTraces,
		RecordPolicy: cfg.RecordPolicy,
		Recorders:    recorders,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	plotPath := path.Join(cfg.RecordPath, "plots")
	c.AddAnalysis("Rewards", types.NewRewardAnalyzer(), types.ChainComparators(types.RewardPrinter(), types.RewardPlotter(plotPath)))
	c.AddAnalysis("Coverage", types.NewCoverageAnalyzer(), types.CoveragePlotter(plotPath))

	experiments := []struct {
		name   string
		policy func(*rand.Rand) types.Policy
	}{
		{"QLearning", func(r *rand.Rand) types.Policy {
			return policies.NewQLearningGreedy(cfg.Alpha, cfg.Gamma, cfg.Epsilon, r)
		}},
		{"Softmax", func(r *rand.Rand) types.Policy {
			return policies.NewSoftmaxPolicy(cfg.Alpha, cfg.Gamma, cfg.Temperature, r)
		}},
		{"Random", func(r *rand.Rand) types.Policy {
			return policies.NewRandomPolicy(r)
		}},
	}
	for i, e := range experiments {
		env, err := getEvoEnv(cfg, uint64(i), log.With(logger, "experiment", e.name))
		if err != nil {
			return err
		}
		c.AddExperiment(types.NewExperiment(e.name, e.policy(policyRand(cfg, uint64(i))), env))
	}

	return c.Run(ctx)
}

func getEvoEnv(cfg *config.TrainConfig, offset uint64, logger log.Logger) (*evoenv.Environment, error) {
	opts, err := cfg.Options(offset)
	if err != nil {
		return nil, err
	}
	opts = append(opts, evoenv.WithLogger(logger))
	return evoenv.New(cfg.MaxSteps, opts...)
}

// policyRand is seeded from the configuration so that seeded runs are
// reproducible end to end
func policyRand(cfg *config.TrainConfig, offset uint64) *rand.Rand {
	if cfg.Seed == nil {
		return nil
	}
	return rand.New(rand.NewSource(*cfg.Seed ^ (0x9e3779b97f4a7c15 + offset)))
}

func getRecorders(ctx context.Context, cfg *config.TrainConfig, logger log.Logger) ([]types.Recorder, error) {
	recorders := make([]types.Recorder, 0)
	if cfg.RecordTraces {
		p := path.Join(cfg.RecordPath, "episodes.jsonl")
		level.Info(logger).Log("msg", "recording episodes", "path", p)
		recorders = append(recorders, recorder.NewFileRecorder(p))
	}
	if cfg.RedisAddr != "" {
		r, err := recorder.NewRedisRecorder(ctx, cfg.RedisAddr, cfg.RedisKey)
		if err != nil {
			return nil, err
		}
		level.Info(logger).Log("msg", "recording episodes", "redis", cfg.RedisAddr, "key", r.Key())
		recorders = append(recorders, r)
	}
	return recorders, nil
}

func TrainCommand() *cobra.Command {
	defaults := config.Default()
	var (
		maxSteps     int
		alpha        float64
		gamma        float64
		epsilon      float64
		temperature  float64
		objective    string
		seed         uint64
		recordPolicy bool
		recordTraces bool
		redisAddr    string
		redisKey     string
		cpuprofile   string
		memprofile   string
	)
	cmd := &cobra.Command{
		Use:  "train",
		Long: "Train the Q-learning agent against the evolutionary algorithm environment, with softmax and random baselines",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			cfg, err := loadConfig(cmd, func(c *config.TrainConfig) {
				if flags.Changed("max-steps") {
					c.MaxSteps = maxSteps
				}
				if flags.Changed("alpha") {
					c.Alpha = alpha
				}
				if flags.Changed("gamma") {
					c.Gamma = gamma
				}
				if flags.Changed("epsilon") {
					c.Epsilon = epsilon
				}
				if flags.Changed("temperature") {
					c.Temperature = temperature
				}
				if flags.Changed("objective") {
					c.Objective = objective
				}
				if flags.Changed("seed") {
					c.Seed = &seed
				}
				if flags.Changed("record-policy") {
					c.RecordPolicy = recordPolicy
				}
				if flags.Changed("record-traces") {
					c.RecordTraces = recordTraces
				}
				if flags.Changed("redis-addr") {
					c.RedisAddr = redisAddr
				}
				if flags.Changed("redis-key") {
					c.RedisKey = redisKey
				}
			})
			if err != nil {
				return err
			}
			logger := logging.New(cfg.LogLevel, os.Stderr)

			ctx, done := interruptContext()
			defer done()

			if err := util.EnsureDir(cfg.RecordPath); err != nil {
				return err
			}
			stopProfiling, err := startProfiling(cfg.RecordPath, cpuprofile, memprofile)
			if err != nil {
				return err
			}
			trainErr := Train(ctx, cfg, logger)
			if err := stopProfiling(); err != nil {
				level.Error(logger).Log("msg", "profiling failed", "err", err)
			}
			return trainErr
		},
	}
	cmd.Flags().IntVar(&maxSteps, "max-steps", defaults.MaxSteps, "Steps of the environment before the episode terminates")
	cmd.Flags().Float64Var(&alpha, "alpha", defaults.Alpha, "Learning rate")
	cmd.Flags().Float64Var(&gamma, "gamma", defaults.Gamma, "Discount factor")
	cmd.Flags().Float64Var(&epsilon, "epsilon", defaults.Epsilon, "Exploration rate of the greedy policy")
	cmd.Flags().Float64Var(&temperature, "temperature", defaults.Temperature, "Temperature of the softmax policy")
	cmd.Flags().StringVar(&objective, "objective", defaults.Objective, "Objective minimized by the evolutionary algorithm")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for reproducible runs")
	cmd.Flags().BoolVar(&recordPolicy, "record-policy", defaults.RecordPolicy, "Record the learned q-tables")
	cmd.Flags().BoolVar(&recordTraces, "record-traces", defaults.RecordTraces, "Record every episode as a JSON line")
	cmd.Flags().StringVar(&redisAddr, "redis-addr", defaults.RedisAddr, "Push episode summaries to the redis server")
	cmd.Flags().StringVar(&redisKey, "redis-key", defaults.RedisKey, "Redis list the episode summaries are pushed to")
	cmd.Flags().StringVar(&cpuprofile, "cpuprofile", "", "Write a CPU profile to the file in the save folder")
	cmd.Flags().StringVar(&memprofile, "memprofile", "", "Write a memory profile to the file in the save folder")
	return cmd
}
