// Package config holds the configuration of the ddpgnet command
package config

import (
	"fmt"

	"github.com/samuelfneumann/ddpgnet/internal/logging"
	"github.com/samuelfneumann/ddpgnet/model"
)

// Config holds the dimensions, seed and layer widths used to build an
// actor and critic.
type Config struct {
	StateSize  int   `mapstructure:"state_size" yaml:"state_size"`
	ActionSize int   `mapstructure:"action_size" yaml:"action_size"`
	Seed       int64 `mapstructure:"seed" yaml:"seed"`

	ActorFC1Units   int `mapstructure:"actor_fc1_units" yaml:"actor_fc1_units"`
	ActorFC2Units   int `mapstructure:"actor_fc2_units" yaml:"actor_fc2_units"`
	CriticFCS1Units int `mapstructure:"critic_fcs1_units" yaml:"critic_fcs1_units"`
	CriticFC2Units  int `mapstructure:"critic_fc2_units" yaml:"critic_fc2_units"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// Default returns a config with the default layer widths
func Default() *Config {
	return &Config{
		StateSize:       4,
		ActionSize:      2,
		Seed:            0,
		ActorFC1Units:   model.DefaultFC1Units,
		ActorFC2Units:   model.DefaultFC2Units,
		CriticFCS1Units: model.DefaultFC1Units,
		CriticFC2Units:  model.DefaultFC2Units,
		LogLevel:        "info",
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.StateSize <= 0 {
		return fmt.Errorf("state_size must be positive")
	}
	if c.ActionSize <= 0 {
		return fmt.Errorf("action_size must be positive")
	}
	if err := c.Actor().Validate(); err != nil {
		return err
	}
	if err := c.Critic().Validate(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Actor returns the configuration of the actor
func (c *Config) Actor() model.ActorConfig {
	return model.ActorConfig{
		FC1Units: c.ActorFC1Units,
		FC2Units: c.ActorFC2Units,
	}
}

// Critic returns the configuration of the critic
func (c *Config) Critic() model.CriticConfig {
	return model.CriticConfig{
		FCS1Units: c.CriticFCS1Units,
		FC2Units:  c.CriticFC2Units,
	}
}
