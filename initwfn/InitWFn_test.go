package initwfn

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gorgonia.org/tensor"
)

func draw(t *testing.T, c Config, seed uint64, shape ...int) []float64 {
	t.Helper()
	values, ok := c.Create(rand.NewSource(seed))(tensor.Float64, shape...).([]float64)
	require.True(t, ok)
	return values
}

func TestFanInUniformBounds(t *testing.T) {
	for _, fanIn := range []int{1, 4, 33, 400} {
		values := draw(t, FanInUniformConfig{}, 1, fanIn, 7)
		require.Len(t, values, fanIn*7)

		lim := 1 / math.Sqrt(float64(fanIn))
		for _, v := range values {
			assert.LessOrEqual(t, math.Abs(v), lim)
		}
	}
}

func TestUniformBounds(t *testing.T) {
	values := draw(t, UniformConfig{Low: -3e-3, High: 3e-3}, 9, 300, 2)
	distinct := map[float64]bool{}
	for _, v := range values {
		assert.GreaterOrEqual(t, v, -3e-3)
		assert.LessOrEqual(t, v, 3e-3)
		distinct[v] = true
	}
	assert.Greater(t, len(distinct), 1)
}

func TestSeededDraws(t *testing.T) {
	configs := []Config{
		UniformConfig{Low: -1, High: 1},
		FanInUniformConfig{},
		GaussianConfig{Mean: 0, StdDev: 1},
		GlorotUConfig{Gain: 1},
		HeUConfig{Gain: 1},
	}

	for _, c := range configs {
		t.Run(string(c.Type()), func(t *testing.T) {
			a := draw(t, c, 42, 5, 3)
			b := draw(t, c, 42, 5, 3)
			other := draw(t, c, 43, 5, 3)

			assert.Equal(t, a, b)
			assert.NotEqual(t, a, other)
		})
	}
}

func TestZeroes(t *testing.T) {
	values := draw(t, ZeroesConfig{}, 0, 2, 2)
	assert.Equal(t, []float64{0, 0, 0, 0}, values)
}

func TestFloat32(t *testing.T) {
	values, ok := UniformConfig{Low: 0, High: 1}.Create(rand.NewSource(0))(
		tensor.Float32, 3).([]float32)
	require.True(t, ok)
	assert.Len(t, values, 3)
}

func TestUnmarshalJSON(t *testing.T) {
	var w InitWFn
	data := []byte(`{"Type": "Uniform", "Config": {"Low": -0.5, "High": 0.5}}`)
	require.NoError(t, json.Unmarshal(data, &w))
	assert.Equal(t, Uniform, w.Type)
	assert.Equal(t, UniformConfig{Low: -0.5, High: 0.5}, w.Config)

	require.NoError(t, json.Unmarshal([]byte(`{"Type": "FanInUniform"}`),
		&w))
	assert.Equal(t, FanInUniformConfig{}, w.Config)

	err := json.Unmarshal([]byte(`{"Type": "Orthogonal"}`), &w)
	assert.Error(t, err)
}

func TestConstructors(t *testing.T) {
	w, err := NewFanInUniform()
	require.NoError(t, err)
	assert.Equal(t, FanInUniform, w.Type)

	w, err = NewUniform(-1, 1)
	require.NoError(t, err)
	encoded, err := json.Marshal(w)
	require.NoError(t, err)

	var decoded InitWFn
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, w.Config, decoded.Config)
}
