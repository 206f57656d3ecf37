// Package initwfn implements seeded weight initializers that produce
// Gorgonia InitWFn's and can be JSON serialized into configuration
// files.
//
// Gorgonia's own initializers draw from the global random source. The
// initializers in this package instead draw every value from a
// caller-supplied rand.Source so that networks constructed with the
// same seed have identical parameters.
package initwfn

import (
	"encoding/json"
	"fmt"
	"reflect"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Type describes different types of InitWFn that are available.
// Type is used to implement a basic type system of InitWFn's.
type Type string

// Available InitWFn types
const (
	Uniform      Type = "Uniform"
	FanInUniform Type = "FanInUniform"
	Gaussian     Type = "Gaussian"
	GlorotU      Type = "GlorotU"
	HeU          Type = "HeU"
	Zeroes       Type = "Zeroes"
)

// Config implements a weight initializer configuration and can be used
// to create the described Gorgonia InitWFn's.
type Config interface {
	// Create returns the Gorgonia InitWFn that the Config describes,
	// drawing all random values from src.
	Create(src rand.Source) G.InitWFn

	// Type returns the type of Gorgonia InitWFn that is returned
	Type() Type
}

// InitWFn wraps a weight initializer Config so that it can be JSON
// marshalled and unmarshalled.
type InitWFn struct {
	Type
	Config
}

// newInitWFn returns a new InitWFn
func newInitWFn(c Config) (*InitWFn, error) {
	return &InitWFn{Type: c.Type(), Config: c}, nil
}

// InitWFn returns the Gorgonia InitWFn described by w, drawing random
// values from src.
func (w *InitWFn) InitWFn(src rand.Source) G.InitWFn {
	return w.Config.Create(src)
}

// String implements the fmt.Stringer interface
func (w *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: %v}", w.Type, w.Config)
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (w *InitWFn) UnmarshalJSON(data []byte) error {
	config, typeName, err := unmarshalConfig(
		data,
		"Type",
		"Config",
		map[string]reflect.Type{
			string(Uniform):      reflect.TypeOf(UniformConfig{}),
			string(FanInUniform): reflect.TypeOf(FanInUniformConfig{}),
			string(Gaussian):     reflect.TypeOf(GaussianConfig{}),
			string(GlorotU):      reflect.TypeOf(GlorotUConfig{}),
			string(HeU):          reflect.TypeOf(HeUConfig{}),
			string(Zeroes):       reflect.TypeOf(ZeroesConfig{}),
		})
	if err != nil {
		return err
	}

	w.Type = typeName
	w.Config = config

	return nil
}

// unmarshalConfig uses reflection to unmarshall a Config into its
// concrete type. Both the Config and its Type are returned.
func unmarshalConfig(data []byte, typeJsonField, valueJsonField string,
	customTypes map[string]reflect.Type) (Config, Type, error) {
	m := map[string]interface{}{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, "", err
	}

	typeName, ok := m[typeJsonField].(string)
	if !ok {
		return nil, "", fmt.Errorf("unmarshalconfig: missing %v field",
			typeJsonField)
	}
	ty, found := customTypes[typeName]
	if !found {
		return nil, "", fmt.Errorf("unmarshalconfig: unknown InitWFn type %q",
			typeName)
	}
	value := reflect.New(ty).Interface()

	if raw, ok := m[valueJsonField]; ok && raw != nil {
		valueBytes, err := json.Marshal(raw)
		if err != nil {
			return nil, "", err
		}

		if err = json.Unmarshal(valueBytes, value); err != nil {
			return nil, "", err
		}
	}
	concreteValue := reflect.ValueOf(value).Elem().Interface().(Config)

	return concreteValue, Type(typeName), nil
}

// fill returns the backing data of a tensor of shape s and type dt with
// all values drawn from dist.
func fill(dist distuv.Rander, dt tensor.Dtype, s ...int) interface{} {
	size := tensor.Shape(s).TotalSize()

	switch dt {
	case tensor.Float64:
		retVal := make([]float64, size)
		for i := range retVal {
			retVal[i] = dist.Rand()
		}
		return retVal
	case tensor.Float32:
		retVal := make([]float32, size)
		for i := range retVal {
			retVal[i] = float32(dist.Rand())
		}
		return retVal
	default:
		panic(fmt.Sprintf("dtype %v not supported for weight initialization",
			dt))
	}
}

// fans returns the fan-in and fan-out of a weight tensor of shape s.
// Weights are laid out as (inputs, outputs).
func fans(s ...int) (fanIn, fanOut int) {
	switch len(s) {
	case 0:
		return 1, 1
	case 1:
		return s[0], s[0]
	default:
		return s[0], tensor.Shape(s[1:]).TotalSize()
	}
}
