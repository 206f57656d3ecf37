// Package network implements feed forward neural networks on top of
// Gorgonia computational graphs.
//
// A NeuralNet lives on a single *G.ExprGraph with a fixed batch size.
// To predict with a different batch size, the network is cloned to a
// new graph with CloneWithBatch, which copies the values of all
// learnables. To compose networks, for example to evaluate a critic on
// the actions predicted by an actor, use CloneWithInputTo with the
// prediction node of the first network.
package network

import (
	"encoding/gob"

	G "gorgonia.org/gorgonia"
)

// NeuralNet is a function approximator built on a Gorgonia graph
type NeuralNet interface {
	gob.GobEncoder
	gob.GobDecoder

	Graph() *G.ExprGraph
	Clone() (NeuralNet, error)
	CloneWithBatch(int) (NeuralNet, error)
	CloneWithInputTo(*G.ExprGraph, ...*G.Node) (NeuralNet, error)

	BatchSize() int
	Features() []int // Number of features of each input node
	Outputs() int

	SetInput(...[]float64) error
	Set(NeuralNet) error
	Polyak(NeuralNet, float64) error

	Learnables() G.Nodes
	Model() []G.ValueGrad
	Layers() int
	Activations() []*Activation

	Output() G.Value
	Prediction() *G.Node
}
