// Package model implements the actor (policy) and critic (value)
// networks of a deterministic actor-critic algorithm for continuous
// control, such as DDPG.
//
// The Actor maps states to actions in [-1, 1]. The Critic maps
// (state, action) pairs to a scalar value estimate. Both are three
// layer MLPs whose hidden layers are initialized uniformly in
// [-1/√fanIn, 1/√fanIn] and whose output layers are initialized
// uniformly in [-3e-3, 3e-3] so that initial outputs start near zero.
package model

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/samuelfneumann/ddpgnet/initwfn"
	"github.com/samuelfneumann/ddpgnet/network"
)

const (
	// DefaultFC1Units is the default width of the first hidden layer
	DefaultFC1Units int = 400

	// DefaultFC2Units is the default width of the second hidden layer
	DefaultFC2Units int = 300

	// OutputInitLimit bounds the initial weights of the output layer
	OutputInitLimit float64 = 3e-3
)

// ActorConfig describes the hidden layers and weight initialization
// of an Actor.
type ActorConfig struct {
	FC1Units int `json:"fc1_units" yaml:"fc1_units" mapstructure:"fc1_units"`
	FC2Units int `json:"fc2_units" yaml:"fc2_units" mapstructure:"fc2_units"`

	// Initializers of the hidden and output layer weights. If nil, the
	// fan-in scaled uniform and [-3e-3, 3e-3] uniform initializers are
	// used.
	HiddenInit *initwfn.InitWFn `json:",omitempty" yaml:"-" mapstructure:"-"`
	OutputInit *initwfn.InitWFn `json:",omitempty" yaml:"-" mapstructure:"-"`
}

// DefaultActorConfig returns the configuration of an Actor with 400
// and 300 units in its hidden layers.
func DefaultActorConfig() ActorConfig {
	return ActorConfig{
		FC1Units: DefaultFC1Units,
		FC2Units: DefaultFC2Units,
	}
}

// Validate checks an ActorConfig to ensure it is a valid configuration
// of an Actor.
func (c ActorConfig) Validate() error {
	if err := validateUnits("actorconfig", "fc1_units", c.FC1Units); err != nil {
		return err
	}
	return validateUnits("actorconfig", "fc2_units", c.FC2Units)
}

// CriticConfig describes the hidden layers and weight initialization
// of a Critic.
type CriticConfig struct {
	FCS1Units int `json:"fcs1_units" yaml:"fcs1_units" mapstructure:"fcs1_units"`
	FC2Units  int `json:"fc2_units" yaml:"fc2_units" mapstructure:"fc2_units"`

	HiddenInit *initwfn.InitWFn `json:",omitempty" yaml:"-" mapstructure:"-"`
	OutputInit *initwfn.InitWFn `json:",omitempty" yaml:"-" mapstructure:"-"`
}

// DefaultCriticConfig returns the configuration of a Critic with 400
// and 300 units in its hidden layers.
func DefaultCriticConfig() CriticConfig {
	return CriticConfig{
		FCS1Units: DefaultFC1Units,
		FC2Units:  DefaultFC2Units,
	}
}

// Validate checks a CriticConfig to ensure it is a valid configuration
// of a Critic.
func (c CriticConfig) Validate() error {
	if err := validateUnits("criticconfig", "fcs1_units", c.FCS1Units); err != nil {
		return err
	}
	return validateUnits("criticconfig", "fc2_units", c.FC2Units)
}

func validateUnits(op, name string, n int) error {
	if n <= 0 {
		return fmt.Errorf("%v: %v must be positive\n\twant(>0)"+
			"\n\thave(%v)", op, name, n)
	}
	return nil
}

// validateSizes ensures state and action dimensions are positive
func validateSizes(op string, stateSize, actionSize int) error {
	if stateSize <= 0 {
		return fmt.Errorf("%v: state size must be positive\n\twant(>0)"+
			"\n\thave(%v)", op, stateSize)
	}
	if actionSize <= 0 {
		return fmt.Errorf("%v: action size must be positive\n\twant(>0)"+
			"\n\thave(%v)", op, actionSize)
	}
	return nil
}

// initializers returns the hidden and output weight initializers,
// falling back to the defaults when unset.
func initializers(hidden, output *initwfn.InitWFn) (initwfn.Config,
	initwfn.Config) {
	var hiddenConfig initwfn.Config = initwfn.FanInUniformConfig{}
	if hidden != nil && hidden.Config != nil {
		hiddenConfig = hidden.Config
	}

	var outputConfig initwfn.Config = initwfn.UniformConfig{
		Low:  -OutputInitLimit,
		High: OutputInitLimit,
	}
	if output != nil && output.Config != nil {
		outputConfig = output.Config
	}

	return hiddenConfig, outputConfig
}

// newLayers returns the configurations of the three fully connected layers
// of an actor or critic with inputs features and the given layer
// widths. All random draws are taken from src, layer by layer, weights
// before biases.
//
// Biases are drawn uniformly from [-1/√fanIn, 1/√fanIn] for every
// layer, including the output layer.
func newLayers(src rand.Source, inputs int, units [3]int, hidden,
	output *initwfn.InitWFn, outputAct *network.Activation) []network.LayerConfig {
	hiddenInit, outputInit := initializers(hidden, output)

	configs := make([]network.LayerConfig, len(units))
	fanIn := inputs
	for i, u := range units {
		weightInit := hiddenInit
		act := network.ReLU()
		if i == len(units)-1 {
			weightInit = outputInit
			act = outputAct
		}

		lim := initwfn.FanInLimit(fanIn)
		configs[i] = network.LayerConfig{
			Units:      u,
			Bias:       true,
			Activation: act,
			WeightInit: weightInit.Create(src),
			BiasInit:   initwfn.UniformConfig{Low: -lim, High: lim}.Create(src),
		}
		fanIn = u
	}

	return configs
}
