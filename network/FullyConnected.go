package network

import (
	"bytes"
	"encoding/gob"
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// LayerConfig describes a single fully connected layer of an MLP
type LayerConfig struct {
	Units      int         // Number of outputs of the layer
	Bias       bool        // Whether the layer has a bias unit
	Activation *Activation // Nonlinearity applied to the layer output

	// WeightInit initializes the (fanIn x Units) weight matrix and
	// BiasInit initializes the (1 x Units) bias row. Both are called
	// once, in that order, when the layer is created.
	WeightInit G.InitWFn
	BiasInit   G.InitWFn
}

// fcLayer implements a fully connected layer of a feed forward neural
// network: act(x·W + b) for a batch of row inputs x.
type fcLayer struct {
	weights *G.Node
	bias    *G.Node
	act     *Activation
}

// newfcLayer adds the learnable nodes of a single fully connected layer
// to the graph g.
func newfcLayer(g *G.ExprGraph, fanIn int, config LayerConfig,
	name string) (*fcLayer, error) {
	if config.Units <= 0 {
		return nil, fmt.Errorf("newfclayer: layer %v must have a positive "+
			"number of units\n\twant(>0)\n\thave(%v)", name, config.Units)
	}

	weightInit := config.WeightInit
	if weightInit == nil {
		weightInit = G.Zeroes()
	}
	weights := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(fanIn, config.Units),
		G.WithName(name+"W"),
		G.WithInit(weightInit),
	)

	var bias *G.Node
	if config.Bias {
		biasInit := config.BiasInit
		if biasInit == nil {
			biasInit = G.Zeroes()
		}
		bias = G.NewMatrix(
			g,
			tensor.Float64,
			G.WithShape(1, config.Units),
			G.WithName(name+"B"),
			G.WithInit(biasInit),
		)
	}

	act := config.Activation
	if act == nil {
		act = Nil()
	}

	return &fcLayer{
		weights: weights,
		bias:    bias,
		act:     act,
	}, nil
}

// fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(x *G.Node) (*G.Node, error) {
	var err error
	if x, err = G.Mul(x, f.Weights()); err != nil {
		return nil, err
	}
	if f.Bias() != nil {
		// Broadcast the bias weights to all samples along the batch
		// dimension
		if x, err = G.BroadcastAdd(x, f.Bias(), nil, []byte{0}); err != nil {
			return nil, err
		}
	}
	return f.Activation().fwd(x)
}

// cloneTo clones an fcLayer to a new computational graph. The values of
// the learnables are copied.
func (f *fcLayer) cloneTo(g *G.ExprGraph) *fcLayer {
	var newBias *G.Node
	if f.Bias() != nil {
		newBias = f.Bias().CloneTo(g)
	}

	return &fcLayer{
		weights: f.Weights().CloneTo(g),
		bias:    newBias,
		act:     f.act,
	}
}

// FanIn returns the number of inputs to the layer
func (f *fcLayer) FanIn() int {
	return f.weights.Shape()[0]
}

// Units returns the number of outputs of the layer
func (f *fcLayer) Units() int {
	return f.weights.Shape()[1]
}

func (f *fcLayer) Activation() *Activation {
	return f.act
}

func (f *fcLayer) Bias() *G.Node {
	return f.bias
}

func (f *fcLayer) Weights() *G.Node {
	return f.weights
}

// GobEncode implements the gob.GobEncoder interface. Only the values of
// the learnables are stored, the topology is stored by the network.
func (f *fcLayer) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	weights, err := nodeData(f.weights)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode weights: %v", err)
	}
	if err := enc.Encode(weights); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode weights: %v", err)
	}

	var bias []float64
	if f.bias != nil {
		if bias, err = nodeData(f.bias); err != nil {
			return nil, fmt.Errorf("gobencode: could not encode bias: %v", err)
		}
	}
	if err := enc.Encode(bias); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode bias: %v", err)
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface. The layer must
// already exist on a graph with the same shape as the encoded layer.
func (f *fcLayer) GobDecode(in []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(in))

	var weights []float64
	if err := dec.Decode(&weights); err != nil {
		return fmt.Errorf("gobdecode: could not decode weights: %v", err)
	}
	if err := letData(f.weights, weights); err != nil {
		return fmt.Errorf("gobdecode: could not set weights: %v", err)
	}

	var bias []float64
	if err := dec.Decode(&bias); err != nil {
		return fmt.Errorf("gobdecode: could not decode bias: %v", err)
	}
	if (f.bias == nil) != (len(bias) == 0) {
		return fmt.Errorf("gobdecode: bias unit mismatch\n\twant(%v)"+
			"\n\thave(%v)", f.bias != nil, len(bias) != 0)
	}
	if f.bias != nil {
		if err := letData(f.bias, bias); err != nil {
			return fmt.Errorf("gobdecode: could not set bias: %v", err)
		}
	}

	return nil
}

// nodeData returns a copy of the float64 data bound to a node
func nodeData(n *G.Node) ([]float64, error) {
	if n.Value() == nil {
		return nil, fmt.Errorf("node %v has no value", n.Name())
	}
	data, ok := n.Value().Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("node %v does not hold float64 data", n.Name())
	}
	out := make([]float64, len(data))
	copy(out, data)
	return out, nil
}

// letData binds data, shaped like n, to the node n
func letData(n *G.Node, data []float64) error {
	if size := n.Shape().TotalSize(); size != len(data) {
		return DimensionError("letdata", "number of values for node "+
			n.Name(), size, len(data))
	}
	t := tensor.New(
		tensor.WithShape(n.Shape().Clone()...),
		tensor.WithBacking(data),
	)
	return G.Let(n, t)
}
