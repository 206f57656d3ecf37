package model

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/ddpgnet/initwfn"
	"github.com/samuelfneumann/ddpgnet/network"
)

// parameters returns a copy of the values of all learnables of net
func parameters(t *testing.T, net network.NeuralNet) [][]float64 {
	t.Helper()
	var params [][]float64
	for _, node := range net.Learnables() {
		data, ok := node.Value().Data().([]float64)
		require.True(t, ok, node.Name())
		params = append(params, append([]float64(nil), data...))
	}
	return params
}

// randomBatch returns a batch of rows x cols values in [-scale, scale]
func randomBatch(rows, cols int, scale float64, seed uint64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = scale * (2*rng.Float64() - 1)
	}
	return mat.NewDense(rows, cols, data)
}

func assertBounded(t *testing.T, actions mat.Matrix) {
	t.Helper()
	rows, cols := actions.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := actions.At(i, j)
			assert.True(t, v >= -1 && v <= 1, "action (%d, %d) = %v", i, j, v)
		}
	}
}

func TestActorForwardShapeAndBounds(t *testing.T) {
	actor, err := NewActor(4, 2, 0, 64, 48)
	require.NoError(t, err)

	for _, batch := range []int{1, 3, 17} {
		for _, scale := range []float64{1, 1000} {
			states := randomBatch(batch, 4, scale, uint64(batch))
			actions, err := actor.Forward(states)
			require.NoError(t, err)

			rows, cols := actions.Dims()
			assert.Equal(t, batch, rows)
			assert.Equal(t, 2, cols)
			assertBounded(t, actions)
		}
	}
}

func TestActorZeroState(t *testing.T) {
	actor, err := NewDefaultActor(4, 2, 0)
	require.NoError(t, err)

	actions, err := actor.Forward(mat.NewVecDense(4, nil))
	require.NoError(t, err)

	rows, cols := actions.Dims()
	assert.Equal(t, 1, rows)
	assert.Equal(t, 2, cols)
	assertBounded(t, actions)

	again, err := NewDefaultActor(4, 2, 0)
	require.NoError(t, err)
	actionsAgain, err := again.Forward(mat.NewVecDense(4, nil))
	require.NoError(t, err)
	assert.Equal(t, actions.RawMatrix().Data, actionsAgain.RawMatrix().Data)

	// Repeated evaluation does not alter the actor
	repeated, err := actor.Forward(mat.NewVecDense(4, nil))
	require.NoError(t, err)
	assert.Equal(t, actions.RawMatrix().Data, repeated.RawMatrix().Data)
}

func TestActorSingleStatePromotion(t *testing.T) {
	actor, err := NewActor(3, 2, 7, 16, 8)
	require.NoError(t, err)

	state := []float64{0.3, -1.2, 2.5}
	single, err := actor.Forward(mat.NewVecDense(3, state))
	require.NoError(t, err)

	batch, err := actor.Forward(mat.NewDense(1, 3, state))
	require.NoError(t, err)

	assert.Equal(t, batch.RawMatrix().Data, single.RawMatrix().Data)

	// Each row of a batch is evaluated independently
	states := mat.NewDense(2, 3, []float64{1, 1, 1, 0.3, -1.2, 2.5})
	actions, err := actor.Forward(states)
	require.NoError(t, err)
	assert.Equal(t, single.RawRowView(0), actions.RawRowView(1))
}

func TestActorReproducible(t *testing.T) {
	a, err := NewActor(5, 3, 123, 32, 16)
	require.NoError(t, err)
	b, err := NewActor(5, 3, 123, 32, 16)
	require.NoError(t, err)
	c, err := NewActor(5, 3, 124, 32, 16)
	require.NoError(t, err)

	assert.Equal(t, parameters(t, a.Network()), parameters(t, b.Network()))
	assert.NotEqual(t, parameters(t, a.Network()), parameters(t, c.Network()))
}

func TestActorInitializationRanges(t *testing.T) {
	stateSize, fc1, fc2, actionSize := 6, 40, 30, 2
	actor, err := NewActor(stateSize, actionSize, 3, fc1, fc2)
	require.NoError(t, err)

	params := parameters(t, actor.Network())
	require.Len(t, params, 6)

	limits := []float64{
		1 / math.Sqrt(float64(stateSize)), // fc1 weights
		1 / math.Sqrt(float64(stateSize)), // fc1 bias
		1 / math.Sqrt(float64(fc1)),       // fc2 weights
		1 / math.Sqrt(float64(fc1)),       // fc2 bias
		OutputInitLimit,                   // fc3 weights
		1 / math.Sqrt(float64(fc2)),       // fc3 bias
	}
	sizes := []int{
		stateSize * fc1, fc1,
		fc1 * fc2, fc2,
		fc2 * actionSize, actionSize,
	}

	for i, p := range params {
		assert.Len(t, p, sizes[i])
		nonZero := false
		for _, v := range p {
			assert.LessOrEqual(t, math.Abs(v), limits[i], "learnable %d", i)
			nonZero = nonZero || v != 0
		}
		assert.True(t, nonZero, "learnable %d", i)
	}
}

func TestActorCustomInit(t *testing.T) {
	zeroes, err := initwfn.NewZeroes()
	require.NoError(t, err)

	config := ActorConfig{FC1Units: 8, FC2Units: 8, OutputInit: zeroes}
	actor, err := config.Create(2, 2, 0)
	require.NoError(t, err)

	params := parameters(t, actor.Network())
	for _, v := range params[4] {
		assert.Equal(t, 0.0, v)
	}
}

func TestActorDimensionMismatch(t *testing.T) {
	actor, err := NewActor(4, 2, 0, 8, 8)
	require.NoError(t, err)

	_, err = actor.Forward(mat.NewDense(2, 3, nil))
	assert.True(t, network.IsDimensionMismatch(err))

	_, err = actor.Forward(mat.NewVecDense(5, nil))
	assert.True(t, network.IsDimensionMismatch(err))

	_, err = actor.Forward(nil)
	assert.True(t, network.IsDimensionMismatch(err))
}

func TestNewActorInvalid(t *testing.T) {
	tests := []struct {
		name                  string
		stateSize, actionSize int
		fc1Units, fc2Units    int
	}{
		{"ZeroState", 0, 2, 8, 8},
		{"ZeroAction", 4, 0, 8, 8},
		{"ZeroFC1", 4, 2, 0, 8},
		{"NegativeFC2", 4, 2, 8, -1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewActor(test.stateSize, test.actionSize, 0,
				test.fc1Units, test.fc2Units)
			assert.Error(t, err)
		})
	}
}

func TestActorTargetUpdates(t *testing.T) {
	actor, err := NewActor(3, 2, 1, 16, 16)
	require.NoError(t, err)
	other, err := NewActor(3, 2, 2, 16, 16)
	require.NoError(t, err)

	target, err := actor.Clone()
	require.NoError(t, err)
	assert.Equal(t, parameters(t, actor.Network()),
		parameters(t, target.Network()))

	require.NoError(t, target.Polyak(other, 0))
	assert.Equal(t, parameters(t, actor.Network()),
		parameters(t, target.Network()))

	require.NoError(t, target.Polyak(other, 1))
	assert.Equal(t, parameters(t, other.Network()),
		parameters(t, target.Network()))

	require.NoError(t, target.Set(actor))
	assert.Equal(t, parameters(t, actor.Network()),
		parameters(t, target.Network()))

	// Soft updates move each parameter part of the way to the source
	tau := 0.1
	require.NoError(t, target.Polyak(other, tau))
	want := parameters(t, actor.Network())
	src := parameters(t, other.Network())
	have := parameters(t, target.Network())
	for i := range want {
		for j := range want[i] {
			expected := (1-tau)*want[i][j] + tau*src[i][j]
			assert.InDelta(t, expected, have[i][j], 1e-12)
		}
	}

	assert.Error(t, target.Polyak(other, -0.5))

	wide, err := NewActor(4, 2, 1, 16, 16)
	require.NoError(t, err)
	assert.True(t, network.IsDimensionMismatch(target.Set(wide)))
}

func TestActorSaveLoad(t *testing.T) {
	actor, err := NewActor(4, 2, 11, 32, 24)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, actor.Save(&buf))

	loaded, err := LoadActor(&buf)
	require.NoError(t, err)
	assert.Equal(t, actor.StateSize(), loaded.StateSize())
	assert.Equal(t, actor.ActionSize(), loaded.ActionSize())
	assert.Equal(t, actor.Seed(), loaded.Seed())
	assert.Equal(t, 32, loaded.Config().FC1Units)
	assert.Equal(t, 24, loaded.Config().FC2Units)

	states := randomBatch(5, 4, 2, 99)
	want, err := actor.Forward(states)
	require.NoError(t, err)
	have, err := loaded.Forward(states)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want.RawMatrix().Data, have.RawMatrix().Data,
		1e-12)

	_, err = LoadActor(bytes.NewReader([]byte("not an actor")))
	assert.Error(t, err)
}

func TestActorConcurrentForward(t *testing.T) {
	actor, err := NewActor(4, 2, 0, 16, 16)
	require.NoError(t, err)

	states := randomBatch(4, 4, 1, 5)
	want, err := actor.Forward(states)
	require.NoError(t, err)

	errs := make(chan error, 8)
	results := make(chan *mat.Dense, 8)
	for i := 0; i < 8; i++ {
		go func() {
			actions, err := actor.Forward(states)
			errs <- err
			results <- actions
		}()
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-errs)
		assert.Equal(t, want.RawMatrix().Data, (<-results).RawMatrix().Data)
	}
}
