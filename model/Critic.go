package model

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"sync"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"

	"github.com/samuelfneumann/ddpgnet/network"
)

// Critic implements an action-value network that maps (state, action)
// pairs to a scalar value estimate. States and actions are
// concatenated along the feature dimension before the first layer:
//
//	[state, action] ─→ fcs1 ─→ ReLU ─→ fc2 ─→ ReLU ─→ fc3 ─→ value
//
// The output of the Critic is unbounded.
//
// As with the Actor, Forward evaluates a copy of the Critic's
// parameters and may be called from multiple goroutines.
type Critic struct {
	mu  sync.Mutex
	net network.NeuralNet

	stateSize  int
	actionSize int
	seed       int64
	config     CriticConfig
}

// NewCritic returns a new Critic for states with stateSize features and
// actions with actionSize dimensions. The hidden layers have fcs1Units
// and fc2Units units. The seed determines the initial parameters.
func NewCritic(stateSize, actionSize int, seed int64, fcs1Units,
	fc2Units int) (*Critic, error) {
	config := CriticConfig{FCS1Units: fcs1Units, FC2Units: fc2Units}
	return config.Create(stateSize, actionSize, seed)
}

// NewDefaultCritic returns a new Critic with 400 and 300 units in its
// hidden layers.
func NewDefaultCritic(stateSize, actionSize int, seed int64) (*Critic,
	error) {
	return DefaultCriticConfig().Create(stateSize, actionSize, seed)
}

// Create creates a new Critic as described by the configuration
func (c CriticConfig) Create(stateSize, actionSize int,
	seed int64) (*Critic, error) {
	if err := validateSizes("newcritic", stateSize, actionSize); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	src := rand.NewSource(uint64(seed))
	layers := newLayers(src, stateSize+actionSize,
		[3]int{c.FCS1Units, c.FC2Units, 1}, c.HiddenInit, c.OutputInit,
		network.Identity())

	net, err := network.NewMLP(G.NewGraph(), "critic/",
		[]int{stateSize, actionSize}, 1, layers)
	if err != nil {
		return nil, fmt.Errorf("newcritic: could not create network: %v", err)
	}

	return &Critic{
		net:        net,
		stateSize:  stateSize,
		actionSize: actionSize,
		seed:       seed,
		config:     c,
	}, nil
}

// Forward returns the value estimate of each (state, action) pair.
// Each row of states and actions is a single sample, and the returned
// vector has one value per row.
//
// An error matching network.ErrDimensionMismatch is returned if the
// state and action batches have different numbers of rows, or if
// either has the wrong number of features.
func (c *Critic) Forward(states, actions mat.Matrix) (*mat.VecDense, error) {
	stateData, batch, err := rowMajor("forward", "states", states,
		c.stateSize)
	if err != nil {
		return nil, err
	}

	actionData, actionBatch, err := rowMajor("forward", "actions", actions,
		c.actionSize)
	if err != nil {
		return nil, err
	}

	if actionBatch != batch {
		return nil, network.DimensionError("forward", "batch size of actions",
			batch, actionBatch)
	}

	net, err := c.snapshot(batch)
	if err != nil {
		return nil, fmt.Errorf("forward: %v", err)
	}

	values, err := network.Predict(net, stateData, actionData)
	if err != nil {
		return nil, fmt.Errorf("forward: %v", err)
	}

	return mat.NewVecDense(batch, values), nil
}

// snapshot returns a copy of the Critic's network with the given batch
// size on a new graph.
func (c *Critic) snapshot(batch int) (network.NeuralNet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.net.CloneWithBatch(batch)
}

// CloneWithInputTo adds a copy of the Critic's network to the graph g,
// taking states and actions from the given input nodes. For example,
// passing the prediction node of an Actor cloned to g as the actions
// evaluates the Critic on the actions of the policy.
func (c *Critic) CloneWithInputTo(g *G.ExprGraph, states,
	actions *G.Node) (network.NeuralNet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.net.CloneWithInputTo(g, states, actions)
}

// Network returns the network that holds the Critic's parameters. The
// network has a batch size of 1.
func (c *Critic) Network() network.NeuralNet {
	return c.net
}

// StateSize returns the number of features of a state
func (c *Critic) StateSize() int {
	return c.stateSize
}

// ActionSize returns the number of dimensions of an action
func (c *Critic) ActionSize() int {
	return c.actionSize
}

// Seed returns the seed used to initialize the Critic
func (c *Critic) Seed() int64 {
	return c.seed
}

// Config returns the configuration the Critic was created with
func (c *Critic) Config() CriticConfig {
	return c.config
}

// Clone returns a copy of the Critic with equal, but not shared,
// parameters.
func (c *Critic) Clone() (*Critic, error) {
	net, err := c.snapshot(1)
	if err != nil {
		return nil, fmt.Errorf("clone: %v", err)
	}

	return &Critic{
		net:        net,
		stateSize:  c.stateSize,
		actionSize: c.actionSize,
		seed:       c.seed,
		config:     c.config,
	}, nil
}

// Set sets the parameters of the Critic to equal those of source
func (c *Critic) Set(source *Critic) error {
	sourceNet, err := source.snapshot(1)
	if err != nil {
		return fmt.Errorf("set: %v", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.net.Set(sourceNet)
}

// Polyak sets the parameters θ of the Critic to the polyak average
// (1 - τ)θ + τθ_source.
func (c *Critic) Polyak(source *Critic, tau float64) error {
	sourceNet, err := source.snapshot(1)
	if err != nil {
		return fmt.Errorf("polyak: %v", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.net.Polyak(sourceNet, tau)
}

// Save writes the Critic to w
func (c *Critic) Save(w io.Writer) error {
	return gob.NewEncoder(w).Encode(c)
}

// LoadCritic reads a Critic written by Save from r.
// If r is not an io.ByteReader, it is buffered and may be read past the
// end of the checkpoint.
func LoadCritic(r io.Reader) (*Critic, error) {
	c := &Critic{}
	if err := gob.NewDecoder(r).Decode(c); err != nil {
		return nil, fmt.Errorf("loadcritic: %v", err)
	}
	return c, nil
}

// GobEncode implements the gob.GobEncoder interface
func (c *Critic) GobEncode() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	header := []int{c.stateSize, c.actionSize, c.config.FCS1Units,
		c.config.FC2Units}
	if err := enc.Encode(header); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode dimensions: %v",
			err)
	}

	if err := enc.Encode(c.seed); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode seed: %v", err)
	}

	netBytes, err := c.net.GobEncode()
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode network: %v", err)
	}
	if err := enc.Encode(netBytes); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode network: %v", err)
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface
func (c *Critic) GobDecode(in []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(in))

	var header []int
	if err := dec.Decode(&header); err != nil {
		return fmt.Errorf("gobdecode: could not decode dimensions: %v", err)
	}
	if len(header) != 4 {
		return fmt.Errorf("gobdecode: corrupt critic header")
	}

	var seed int64
	if err := dec.Decode(&seed); err != nil {
		return fmt.Errorf("gobdecode: could not decode seed: %v", err)
	}

	var netBytes []byte
	if err := dec.Decode(&netBytes); err != nil {
		return fmt.Errorf("gobdecode: could not decode network: %v", err)
	}
	net, err := network.Decode(netBytes)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode network: %v", err)
	}

	stateSize, actionSize := header[0], header[1]
	if err := checkTopology("gobdecode", net, []int{stateSize, actionSize},
		1); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.net = net
	c.stateSize = stateSize
	c.actionSize = actionSize
	c.seed = seed
	c.config = CriticConfig{FCS1Units: header[2], FC2Units: header[3]}
	return nil
}
