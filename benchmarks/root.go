package benchmarks

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/zeu5/evo-rl-tuning/config"
)

var (
	episodes   int
	horizon    int
	saveFile   string
	runs       int
	configFile string
	logLevel   string
)

func GetRootCommand() *cobra.Command {
	defaults := config.Default()
	rootCommand := &cobra.Command{
		Use:           "evo-rl",
		Short:         "Learn to control an evolutionary algorithm with tabular reinforcement learning",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCommand.PersistentFlags().IntVarP(&episodes, "episodes", "e", defaults.Episodes, "Number of episodes to run")
	rootCommand.PersistentFlags().IntVar(&horizon, "horizon", defaults.Horizon, "Horizon of each episode")
	rootCommand.PersistentFlags().StringVarP(&saveFile, "save", "s", defaults.RecordPath, "Save the result data in the specified folder")
	rootCommand.PersistentFlags().IntVar(&runs, "runs", defaults.Runs, "Number of experiment runs")
	rootCommand.PersistentFlags().StringVar(&configFile, "config", "", "YAML configuration file, flags override its values")
	rootCommand.PersistentFlags().StringVar(&logLevel, "log-level", defaults.LogLevel, "Log level (debug, info, warn, error, none)")
	// adding the subcommands here
	rootCommand.AddCommand(TrainCommand())
	rootCommand.AddCommand(ServeCommand())
	return rootCommand
}

// loadConfig reads the configuration file, if any, and applies the flags
// that were explicitly set on the command line
func loadConfig(cmd *cobra.Command, override func(*config.TrainConfig)) (*config.TrainConfig, error) {
	cfg := config.Default()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	flags := cmd.Flags()
	if flags.Changed("episodes") {
		cfg.Episodes = episodes
	}
	if flags.Changed("horizon") {
		cfg.Horizon = horizon
	}
	if flags.Changed("save") {
		cfg.RecordPath = saveFile
	}
	if flags.Changed("runs") {
		cfg.Runs = runs
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// interruptContext is cancelled on SIGINT or when the returned cancel
// function is called
func interruptContext() (context.Context, context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt) // channel for interrupts from os

	doneCh := make(chan struct{}) // channel for done signal from application

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-sigCh:
		case <-doneCh:
		}
		signal.Stop(sigCh)
		cancel()
	}()
	return ctx, func() { close(doneCh) }
}
