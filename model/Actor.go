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

// Actor implements a deterministic policy network that maps states to
// actions. The network has three fully connected layers:
//
//	state ─→ fc1 ─→ ReLU ─→ fc2 ─→ ReLU ─→ fc3 ─→ tanh ─→ action
//
// so that every component of every action lies in [-1, 1].
//
// The parameters of the Actor live on a network of batch size 1.
// Forward copies the parameters to a new graph sized for its input
// batch, so Forward never alters the Actor and may be called from
// multiple goroutines.
type Actor struct {
	mu  sync.Mutex
	net network.NeuralNet

	stateSize  int
	actionSize int
	seed       int64
	config     ActorConfig
}

// NewActor returns a new Actor for states with stateSize features and
// actions with actionSize dimensions. The hidden layers have fc1Units
// and fc2Units units. The seed determines the initial parameters.
func NewActor(stateSize, actionSize int, seed int64, fc1Units,
	fc2Units int) (*Actor, error) {
	config := ActorConfig{FC1Units: fc1Units, FC2Units: fc2Units}
	return config.Create(stateSize, actionSize, seed)
}

// NewDefaultActor returns a new Actor with 400 and 300 units in its
// hidden layers.
func NewDefaultActor(stateSize, actionSize int, seed int64) (*Actor, error) {
	return DefaultActorConfig().Create(stateSize, actionSize, seed)
}

// Create creates a new Actor as described by the configuration
func (c ActorConfig) Create(stateSize, actionSize int,
	seed int64) (*Actor, error) {
	if err := validateSizes("newactor", stateSize, actionSize); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	src := rand.NewSource(uint64(seed))
	layers := newLayers(src, stateSize,
		[3]int{c.FC1Units, c.FC2Units, actionSize}, c.HiddenInit,
		c.OutputInit, network.TanH())

	net, err := network.NewMLP(G.NewGraph(), "actor/", []int{stateSize}, 1,
		layers)
	if err != nil {
		return nil, fmt.Errorf("newactor: could not create network: %v", err)
	}

	return &Actor{
		net:        net,
		stateSize:  stateSize,
		actionSize: actionSize,
		seed:       seed,
		config:     c,
	}, nil
}

// Forward returns the action taken by the policy in each state.
//
// If states is a mat.Vector, it is treated as a single unbatched state
// and the returned matrix has a single row. Otherwise, each row of
// states is a state and the returned matrix has one action per row.
// An error matching network.ErrDimensionMismatch is returned if the
// states do not have StateSize() features.
func (a *Actor) Forward(states mat.Matrix) (*mat.Dense, error) {
	data, batch, err := promote("forward", states, a.stateSize)
	if err != nil {
		return nil, err
	}

	net, err := a.snapshot(batch)
	if err != nil {
		return nil, fmt.Errorf("forward: %v", err)
	}

	actions, err := network.Predict(net, data)
	if err != nil {
		return nil, fmt.Errorf("forward: %v", err)
	}

	return mat.NewDense(batch, a.actionSize, actions), nil
}

// snapshot returns a copy of the Actor's network with the given batch
// size on a new graph.
func (a *Actor) snapshot(batch int) (network.NeuralNet, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.net.CloneWithBatch(batch)
}

// CloneWithInputTo adds a copy of the Actor's network to the graph g,
// taking states from the input node. This can be used to construct the
// training graph of an actor-critic algorithm.
func (a *Actor) CloneWithInputTo(g *G.ExprGraph,
	states *G.Node) (network.NeuralNet, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.net.CloneWithInputTo(g, states)
}

// Network returns the network that holds the Actor's parameters. The
// network has a batch size of 1.
func (a *Actor) Network() network.NeuralNet {
	return a.net
}

// StateSize returns the number of features of a state
func (a *Actor) StateSize() int {
	return a.stateSize
}

// ActionSize returns the number of dimensions of an action
func (a *Actor) ActionSize() int {
	return a.actionSize
}

// Seed returns the seed used to initialize the Actor
func (a *Actor) Seed() int64 {
	return a.seed
}

// Config returns the configuration the Actor was created with
func (a *Actor) Config() ActorConfig {
	return a.config
}

// Clone returns a copy of the Actor with equal, but not shared,
// parameters. This is typically used to create a target network.
func (a *Actor) Clone() (*Actor, error) {
	net, err := a.snapshot(1)
	if err != nil {
		return nil, fmt.Errorf("clone: %v", err)
	}

	return &Actor{
		net:        net,
		stateSize:  a.stateSize,
		actionSize: a.actionSize,
		seed:       a.seed,
		config:     a.config,
	}, nil
}

// Set sets the parameters of the Actor to equal those of source
func (a *Actor) Set(source *Actor) error {
	sourceNet, err := source.snapshot(1)
	if err != nil {
		return fmt.Errorf("set: %v", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.net.Set(sourceNet)
}

// Polyak sets the parameters θ of the Actor to the polyak average
// (1 - τ)θ + τθ_source.
func (a *Actor) Polyak(source *Actor, tau float64) error {
	sourceNet, err := source.snapshot(1)
	if err != nil {
		return fmt.Errorf("polyak: %v", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.net.Polyak(sourceNet, tau)
}

// Save writes the Actor to w
func (a *Actor) Save(w io.Writer) error {
	return gob.NewEncoder(w).Encode(a)
}

// LoadActor reads an Actor written by Save from r.
// If r is not an io.ByteReader, it is buffered and may be read past the
// end of the checkpoint.
func LoadActor(r io.Reader) (*Actor, error) {
	a := &Actor{}
	if err := gob.NewDecoder(r).Decode(a); err != nil {
		return nil, fmt.Errorf("loadactor: %v", err)
	}
	return a, nil
}

// GobEncode implements the gob.GobEncoder interface
func (a *Actor) GobEncode() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	header := []int{a.stateSize, a.actionSize, a.config.FC1Units,
		a.config.FC2Units}
	if err := enc.Encode(header); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode dimensions: %v",
			err)
	}

	if err := enc.Encode(a.seed); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode seed: %v", err)
	}

	netBytes, err := a.net.GobEncode()
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode network: %v", err)
	}
	if err := enc.Encode(netBytes); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode network: %v", err)
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface
func (a *Actor) GobDecode(in []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(in))

	var header []int
	if err := dec.Decode(&header); err != nil {
		return fmt.Errorf("gobdecode: could not decode dimensions: %v", err)
	}
	if len(header) != 4 {
		return fmt.Errorf("gobdecode: corrupt actor header")
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
	if err := checkTopology("gobdecode", net, []int{stateSize},
		actionSize); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.net = net
	a.stateSize = stateSize
	a.actionSize = actionSize
	a.seed = seed
	a.config = ActorConfig{FC1Units: header[2], FC2Units: header[3]}
	return nil
}

// checkTopology ensures a decoded network has the inputs and outputs
// described by a checkpoint.
func checkTopology(op string, net network.NeuralNet, features []int,
	outputs int) error {
	if net.Layers() != 3 {
		return network.DimensionError(op, "number of layers", 3, net.Layers())
	}

	have := net.Features()
	if len(have) != len(features) {
		return network.DimensionError(op, "number of inputs", len(features),
			len(have))
	}
	for i := range features {
		if have[i] != features[i] {
			return network.DimensionError(op, "features", features, have)
		}
	}

	if net.Outputs() != outputs {
		return network.DimensionError(op, "outputs", outputs, net.Outputs())
	}
	return nil
}
