package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Predict sets the inputs of net, runs its graph on a new tape machine
// and returns a copy of the row-major output of net.
//
// The whole graph of net is run, so Predict should only be used on
// graphs that hold nothing but the network itself, for example a graph
// created by CloneWithBatch.
func Predict(net NeuralNet, inputs ...[]float64) ([]float64, error) {
	if err := net.SetInput(inputs...); err != nil {
		return nil, err
	}

	vm := G.NewTapeMachine(net.Graph())
	defer vm.Close()

	if err := vm.RunAll(); err != nil {
		return nil, fmt.Errorf("predict: could not run graph: %v", err)
	}
	defer vm.Reset()

	output := net.Output()
	if output == nil {
		return nil, fmt.Errorf("predict: network produced no output")
	}

	var data []float64
	switch d := output.Data().(type) {
	case []float64:
		data = d
	case float64:
		data = []float64{d}
	default:
		return nil, fmt.Errorf("predict: expected float64 output but got %T",
			d)
	}

	prediction := make([]float64, len(data))
	copy(prediction, data)
	return prediction, nil
}
