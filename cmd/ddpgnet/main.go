package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/samuelfneumann/ddpgnet/internal/config"
	"github.com/samuelfneumann/ddpgnet/internal/logging"
)

var (
	cfg        *config.Config
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "ddpgnet",
	Short: "Actor and critic networks for deterministic policy gradients",
	Long: `ddpgnet builds the actor and critic networks of a DDPG agent.

The networks can be inspected, evaluated on a zero input and saved as
checkpoints. Settings are read from flags, DDPGNET_ environment
variables or a config file.`,
	SilenceUsage: true,
}

func init() {
	cfg = config.Default()
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&configFile, "config", "", "Config file (yaml or json)")

	// Dimensions
	flags.Int("state-size", cfg.StateSize, "Number of state features")
	flags.Int("action-size", cfg.ActionSize, "Number of action dimensions")
	flags.Int64("seed", cfg.Seed, "Seed used to initialize the networks")

	// Layer widths
	flags.Int("actor-fc1-units", cfg.ActorFC1Units, "Units in the first actor hidden layer")
	flags.Int("actor-fc2-units", cfg.ActorFC2Units, "Units in the second actor hidden layer")
	flags.Int("critic-fcs1-units", cfg.CriticFCS1Units, "Units in the first critic hidden layer")
	flags.Int("critic-fc2-units", cfg.CriticFC2Units, "Units in the second critic hidden layer")

	// Logging
	flags.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	for _, name := range []string{
		"state-size", "action-size", "seed", "actor-fc1-units",
		"actor-fc2-units", "critic-fcs1-units", "critic-fc2-units",
		"log-level",
	} {
		viper.BindPFlag(key(name), flags.Lookup(name))
	}
	viper.SetEnvPrefix("DDPGNET")
	viper.AutomaticEnv()

	rootCmd.AddCommand(inspectCmd, saveCmd)
}

// key converts a flag name to its config key
func key(flag string) string {
	out := []byte(flag)
	for i, c := range out {
		if c == '-' {
			out[i] = '_'
		}
	}
	return string(out)
}

// load resolves the configuration from the config file, environment
// and flags, and returns a logger at the configured level.
func load() (*slog.Logger, error) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config: %w", err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("could not decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
