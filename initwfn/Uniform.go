package initwfn

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// UniformConfig implements a configuration of a weight initializer that
// draws weights from a uniform distribution over [Low, High]
type UniformConfig struct {
	Low, High float64
}

// NewUniform returns a new uniform weight initializer
func NewUniform(low, high float64) (*InitWFn, error) {
	config := UniformConfig{
		Low:  low,
		High: high,
	}

	return newInitWFn(config)
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (u UniformConfig) Type() Type {
	return Uniform
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (u UniformConfig) Create(src rand.Source) G.InitWFn {
	return func(dt tensor.Dtype, s ...int) interface{} {
		dist := distuv.Uniform{Min: u.Low, Max: u.High, Src: src}
		return fill(dist, dt, s...)
	}
}

// FanInUniformConfig implements a configuration of a weight initializer
// that draws weights uniformly from [-1/√fanIn, 1/√fanIn], where fanIn
// is the number of inputs to the layer, i.e. the first dimension of
// the weight tensor.
type FanInUniformConfig struct{}

// NewFanInUniform returns a new fan-in scaled uniform weight
// initializer
func NewFanInUniform() (*InitWFn, error) {
	return newInitWFn(FanInUniformConfig{})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (f FanInUniformConfig) Type() Type {
	return FanInUniform
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (f FanInUniformConfig) Create(src rand.Source) G.InitWFn {
	return func(dt tensor.Dtype, s ...int) interface{} {
		fanIn, _ := fans(s...)
		lim := FanInLimit(fanIn)
		dist := distuv.Uniform{Min: -lim, Max: lim, Src: src}
		return fill(dist, dt, s...)
	}
}

// FanInLimit returns 1/√fanIn, the bound of the fan-in scaled uniform
// initialization of a layer with fanIn inputs.
func FanInLimit(fanIn int) float64 {
	return 1 / math.Sqrt(float64(fanIn))
}
