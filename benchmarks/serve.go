package benchmarks

import (
	"os"

	"github.com/go-kit/log"
	"github.com/spf13/cobra"
	"github.com/zeu5/evo-rl-tuning/config"
	"github.com/zeu5/evo-rl-tuning/logging"
	"github.com/zeu5/evo-rl-tuning/server"
)

func ServeCommand() *cobra.Command {
	defaults := config.Default()
	var (
		addr      string
		maxSteps  int
		objective string
		seed      uint64
	)
	cmd := &cobra.Command{
		Use:  "serve",
		Long: "Serve one evolutionary algorithm environment over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			cfg, err := loadConfig(cmd, func(c *config.TrainConfig) {
				if flags.Changed("addr") {
					c.ListenAddr = addr
				}
				if flags.Changed("max-steps") {
					c.MaxSteps = maxSteps
				}
				if flags.Changed("objective") {
					c.Objective = objective
				}
				if flags.Changed("seed") {
					c.Seed = &seed
				}
			})
			if err != nil {
				return err
			}
			logger := logging.New(cfg.LogLevel, os.Stderr)

			env, err := getEvoEnv(cfg, 0, log.With(logger, "component", "environment"))
			if err != nil {
				return err
			}

			ctx, done := interruptContext()
			defer done()
			return server.New(cfg.ListenAddr, env, logger).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", defaults.ListenAddr, "Address to listen on")
	cmd.Flags().IntVar(&maxSteps, "max-steps", defaults.MaxSteps, "Steps of the environment before the episode terminates")
	cmd.Flags().StringVar(&objective, "objective", defaults.Objective, "Objective minimized by the evolutionary algorithm")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for reproducible episodes")
	return cmd
}
