package network

import (
	"bytes"
	"encoding/gob"
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// mlp implements a multi-layered perceptron built from fully connected
// layers. The mlp may have multiple input nodes, in which case the
// inputs are concatenated along the feature (column) dimension before
// the first layer.
type mlp struct {
	g         *G.ExprGraph
	prefix    string
	layers    []*fcLayer
	inputs    []*G.Node
	features  []int
	batchSize int

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    *G.Value
}

// NewMLP creates and returns a new multi-layered perceptron on the
// graph g. The network has one input node of shape (batch, features[i])
// for each element of features, and one fully connected layer for each
// element of layers. The number of outputs of the network is the
// number of units in the last layer.
//
// All nodes added to g are named with prefix, so that more than one
// network may share a single graph as long as their prefixes differ.
func NewMLP(g *G.ExprGraph, prefix string, features []int, batch int,
	layers []LayerConfig) (NeuralNet, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("newmlp: at least one input is required")
	}
	if len(layers) == 0 {
		return nil, fmt.Errorf("newmlp: at least one layer is required")
	}
	if batch <= 0 {
		return nil, fmt.Errorf("newmlp: invalid batch size\n\twant(>0)"+
			"\n\thave(%v)", batch)
	}

	inputs := make([]*G.Node, len(features))
	fanIn := 0
	for i, f := range features {
		if f <= 0 {
			return nil, fmt.Errorf("newmlp: invalid number of features for "+
				"input %v\n\twant(>0)\n\thave(%v)", i, f)
		}
		fanIn += f
		inputs[i] = newInput(g, prefix, i, batch, f)
	}

	fcLayers := make([]*fcLayer, len(layers))
	for i, config := range layers {
		layer, err := newfcLayer(g, fanIn, config, layerName(prefix, i))
		if err != nil {
			return nil, fmt.Errorf("newmlp: could not create layer %v: %v", i,
				err)
		}
		fcLayers[i] = layer
		fanIn = config.Units
	}

	net := &mlp{
		g:         g,
		prefix:    prefix,
		layers:    fcLayers,
		features:  append([]int(nil), features...),
		batchSize: batch,
	}
	if err := net.fwd(inputs); err != nil {
		return nil, fmt.Errorf("newmlp: could not compute forward pass: %v",
			err)
	}

	return net, nil
}

// Decode returns the NeuralNet encoded by a NeuralNet's GobEncode
// method. The returned network lives on a new graph.
func Decode(data []byte) (NeuralNet, error) {
	net := &mlp{}
	if err := net.GobDecode(data); err != nil {
		return nil, err
	}
	return net, nil
}

// newInput adds the i-th input node of a network to g
func newInput(g *G.ExprGraph, prefix string, i, batch, features int) *G.Node {
	return G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, features),
		G.WithName(fmt.Sprintf("%vinput%d", prefix, i)),
		G.WithInit(G.Zeroes()),
	)
}

// layerName returns the name prefix of the nodes of layer i
func layerName(prefix string, i int) string {
	return fmt.Sprintf("%vfc%d", prefix, i+1)
}

// Graph returns the computational graph of the mlp.
func (m *mlp) Graph() *G.ExprGraph {
	return m.g
}

// Clone clones an mlp to a new graph with the same batch size
func (m *mlp) Clone() (NeuralNet, error) {
	return m.CloneWithBatch(m.batchSize)
}

// CloneWithBatch clones an mlp to a new graph with a new input batch
// size.
func (m *mlp) CloneWithBatch(batchSize int) (NeuralNet, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("clonewithbatch: invalid batch size"+
			"\n\twant(>0)\n\thave(%v)", batchSize)
	}
	graph := G.NewGraph()

	inputs := make([]*G.Node, len(m.features))
	for i, f := range m.features {
		inputs[i] = newInput(graph, m.prefix, i, batchSize, f)
	}

	return m.CloneWithInputTo(graph, inputs...)
}

// CloneWithInputTo clones an mlp to the graph g, using inputs as the
// input nodes of the clone. There must be one input node per input of
// the mlp, each a matrix with the same number of rows and the same
// number of columns as the corresponding input of the mlp.
//
// The clone's learnables hold copies of the values of the learnables
// of the mlp.
func (m *mlp) CloneWithInputTo(g *G.ExprGraph,
	inputs ...*G.Node) (NeuralNet, error) {
	if len(inputs) != len(m.features) {
		return nil, DimensionError("clonewithinputto", "number of inputs",
			len(m.features), len(inputs))
	}

	batchSize := -1
	for i, input := range inputs {
		if input.Graph() != g {
			return nil, fmt.Errorf("clonewithinputto: not all inputs " +
				"have the same graph")
		}
		if !input.IsMatrix() {
			return nil, fmt.Errorf("clonewithinputto: input %v must be a "+
				"matrix node", i)
		}
		shape := input.Shape()
		if shape[1] != m.features[i] {
			return nil, DimensionError("clonewithinputto",
				fmt.Sprintf("features for input %v", i), m.features[i],
				shape[1])
		}
		if batchSize != -1 && shape[0] != batchSize {
			return nil, DimensionError("clonewithinputto",
				fmt.Sprintf("batch size for input %v", i), batchSize,
				shape[0])
		}
		batchSize = shape[0]
	}

	layers := make([]*fcLayer, len(m.layers))
	for i := range m.layers {
		layers[i] = m.layers[i].cloneTo(g)
	}

	net := &mlp{
		g:         g,
		prefix:    m.prefix,
		layers:    layers,
		features:  m.features,
		batchSize: batchSize,
	}
	if err := net.fwd(inputs); err != nil {
		return nil, fmt.Errorf("clonewithinputto: could not compute forward "+
			"pass: %v", err)
	}

	return net, nil
}

// BatchSize returns the batch size of inputs to the mlp
func (m *mlp) BatchSize() int {
	return m.batchSize
}

// Features returns the number of features of each input to the mlp
func (m *mlp) Features() []int {
	return append([]int(nil), m.features...)
}

// Outputs returns the number of outputs from the network
func (m *mlp) Outputs() int {
	return m.layers[len(m.layers)-1].Units()
}

// Layers returns the number of fully connected layers in the network
func (m *mlp) Layers() int {
	return len(m.layers)
}

// Activations returns the activation of each layer
func (m *mlp) Activations() []*Activation {
	acts := make([]*Activation, len(m.layers))
	for i, l := range m.layers {
		acts[i] = l.Activation()
	}
	return acts
}

// SetInput sets the value of each input node before running the
// forward pass. Each input is a row-major batch of observations.
func (m *mlp) SetInput(inputs ...[]float64) error {
	if len(inputs) != len(m.inputs) {
		return DimensionError("setinput", "number of inputs", len(m.inputs),
			len(inputs))
	}

	for i, input := range inputs {
		if want := m.features[i] * m.batchSize; len(input) != want {
			return DimensionError("setinput",
				fmt.Sprintf("number of values for input %v", i), want,
				len(input))
		}
		inputTensor := tensor.New(
			tensor.WithBacking(input),
			tensor.WithShape(m.inputs[i].Shape().Clone()...),
		)
		if err := G.Let(m.inputs[i], inputTensor); err != nil {
			return fmt.Errorf("setinput: could not set input %v: %v", i, err)
		}
	}
	return nil
}

// compatible returns an error if source does not have the same
// learnable shapes as the mlp
func (m *mlp) compatible(op string, source NeuralNet) ([]*G.Node, error) {
	sourceNodes := source.Learnables()
	nodes := m.Learnables()
	if len(sourceNodes) != len(nodes) {
		return nil, DimensionError(op, "number of learnables", len(nodes),
			len(sourceNodes))
	}
	for i := range nodes {
		if !nodes[i].Shape().Eq(sourceNodes[i].Shape()) {
			return nil, DimensionError(op,
				fmt.Sprintf("shape of learnable %v", nodes[i].Name()),
				nodes[i].Shape(), sourceNodes[i].Shape())
		}
	}
	return sourceNodes, nil
}

// Set sets the weights of the mlp to be equal to the weights of
// another network with the same topology
func (m *mlp) Set(source NeuralNet) error {
	sourceNodes, err := m.compatible("set", source)
	if err != nil {
		return err
	}

	for i, destLearnable := range m.Learnables() {
		sourceValue, err := G.CloneValue(sourceNodes[i].Value())
		if err != nil {
			return fmt.Errorf("set: could not copy %v: %v",
				sourceNodes[i].Name(), err)
		}
		if err := G.Let(destLearnable, sourceValue); err != nil {
			return err
		}
	}
	return nil
}

// Polyak sets the weights of the mlp to be a polyak average between its
// existing weights and the weights of another network:
//
//	θ ← (1 - τ)θ + τθ_source
func (m *mlp) Polyak(source NeuralNet, tau float64) error {
	if tau < 0 || tau > 1 {
		return fmt.Errorf("polyak: invalid polyak constant\n\twant(0 <= τ "+
			"<= 1)\n\thave(%v)", tau)
	}
	sourceNodes, err := m.compatible("polyak", source)
	if err != nil {
		return err
	}

	for i, node := range m.Learnables() {
		weights := node.Value().(*tensor.Dense)
		sourceWeights := sourceNodes[i].Value().(*tensor.Dense)

		weights, err := weights.MulScalar(1-tau, true)
		if err != nil {
			return err
		}

		sourceWeights, err = sourceWeights.MulScalar(tau, true)
		if err != nil {
			return err
		}

		newWeights, err := weights.Add(sourceWeights)
		if err != nil {
			return err
		}

		if err := G.Let(node, newWeights); err != nil {
			return err
		}
	}
	return nil
}

// Learnables returns the learnable nodes in the mlp, ordered by layer
// with each layer's weights before its bias.
func (m *mlp) Learnables() G.Nodes {
	// Lazy instantiation
	if m.learnables == nil {
		learnables := make([]*G.Node, 0, 2*len(m.layers))
		for _, l := range m.layers {
			learnables = append(learnables, l.Weights())
			if bias := l.Bias(); bias != nil {
				learnables = append(learnables, bias)
			}
		}
		m.learnables = G.Nodes(learnables)
	}
	return m.learnables
}

// Model returns the learnables nodes with their gradients.
func (m *mlp) Model() []G.ValueGrad {
	// Lazy instantiation
	if m.model == nil {
		model := make([]G.ValueGrad, 0, len(m.Learnables()))
		for _, node := range m.Learnables() {
			model = append(model, node)
		}
		m.model = model
	}
	return m.model
}

// fwd performs the forward pass of the mlp on the input nodes
func (m *mlp) fwd(inputs []*G.Node) error {
	// Concatenate inputs if necessary
	var pred *G.Node
	if len(inputs) > 1 {
		var err error
		if pred, err = G.Concat(1, inputs...); err != nil {
			return fmt.Errorf("fwd: could not concatenate inputs: %v", err)
		}
	} else {
		pred = inputs[0]
	}

	if have, want := pred.Shape()[1], m.layers[0].FanIn(); have != want {
		return DimensionError("fwd", "number of input features", want, have)
	}

	var err error
	for i, l := range m.layers {
		if pred, err = l.fwd(pred); err != nil {
			msg := "fwd: could not compute forward pass of layer %v: %v"
			return fmt.Errorf(msg, i, err)
		}
	}

	m.inputs = inputs
	m.prediction = pred
	m.predVal = new(G.Value)
	G.Read(m.prediction, m.predVal)

	return nil
}

// Output returns the output of the mlp after its graph has been run
func (m *mlp) Output() G.Value {
	if m.predVal == nil {
		return nil
	}
	return *m.predVal
}

// Prediction returns the node of the computational graph that stores
// the output of the mlp
func (m *mlp) Prediction() *G.Node {
	return m.prediction
}

// GobEncode implements the gob.GobEncoder interface
func (m *mlp) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	if err := enc.Encode(m.prefix); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode prefix: %v", err)
	}

	if err := enc.Encode(m.features); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode features: %v",
			err)
	}

	if err := enc.Encode(m.batchSize); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode batch size: %v",
			err)
	}

	units := make([]int, len(m.layers))
	biases := make([]bool, len(m.layers))
	activations := make([]string, len(m.layers))
	for i, l := range m.layers {
		units[i] = l.Units()
		biases[i] = l.Bias() != nil
		activations[i] = l.Activation().String()
	}

	if err := enc.Encode(units); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode units: %v", err)
	}

	if err := enc.Encode(biases); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode biases: %v", err)
	}

	if err := enc.Encode(activations); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode activations: %v",
			err)
	}

	// Store the learnables of each layer
	for i, layer := range m.layers {
		if err := enc.Encode(layer); err != nil {
			msg := "gobencode: could not encode layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface. The decoded mlp
// lives on a new graph.
func (m *mlp) GobDecode(in []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(in))

	var prefix string
	if err := dec.Decode(&prefix); err != nil {
		return fmt.Errorf("gobdecode: could not decode prefix: %v", err)
	}

	var features []int
	if err := dec.Decode(&features); err != nil {
		return fmt.Errorf("gobdecode: could not decode features: %v", err)
	}

	var batchSize int
	if err := dec.Decode(&batchSize); err != nil {
		return fmt.Errorf("gobdecode: could not decode batch size: %v", err)
	}

	var units []int
	if err := dec.Decode(&units); err != nil {
		return fmt.Errorf("gobdecode: could not decode units: %v", err)
	}

	var biases []bool
	if err := dec.Decode(&biases); err != nil {
		return fmt.Errorf("gobdecode: could not decode biases: %v", err)
	}

	var activations []string
	if err := dec.Decode(&activations); err != nil {
		return fmt.Errorf("gobdecode: could not decode activations: %v", err)
	}

	if len(units) != len(biases) || len(units) != len(activations) {
		return fmt.Errorf("gobdecode: corrupt layer description")
	}

	configs := make([]LayerConfig, len(units))
	for i := range units {
		act, err := ParseActivation(activations[i])
		if err != nil {
			return fmt.Errorf("gobdecode: layer %v: %v", i, err)
		}
		configs[i] = LayerConfig{
			Units:      units[i],
			Bias:       biases[i],
			Activation: act,
		}
	}

	// Create a new MLP with zero weights, then fill in the learnables
	newNet, err := NewMLP(G.NewGraph(), prefix, features, batchSize, configs)
	if err != nil {
		return fmt.Errorf("gobdecode: could not construct new MLP: %v", err)
	}
	newMLP := newNet.(*mlp)

	for i, layer := range newMLP.layers {
		if err := dec.Decode(layer); err != nil {
			return fmt.Errorf("gobdecode: could not decode layer %v: %v", i,
				err)
		}
	}

	*m = *newMLP
	return nil
}
