package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/ddpgnet/network"
	"github.com/samuelfneumann/ddpgnet/utils/matutils"
)

// rowMajor returns the row-major data of a batch of inputs along with
// the number of rows in the batch. Each row of m is one sample and must
// have exactly features columns.
func rowMajor(op, what string, m mat.Matrix, features int) ([]float64,
	int, error) {
	if m == nil {
		return nil, 0, network.DimensionError(op, "batch size of "+what,
			">0", 0)
	}

	rows, cols := m.Dims()
	if rows == 0 {
		return nil, 0, network.DimensionError(op, "batch size of "+what,
			">0", rows)
	}
	if cols != features {
		return nil, 0, network.DimensionError(op, "features of "+what,
			features, cols)
	}

	return matutils.Flatten(m), rows, nil
}

// promote normalizes the shape of a batch of states. A mat.Vector is a
// single unbatched state and is reshaped to a batch of one. Any other
// matrix is already a batch with one state per row.
func promote(op string, states mat.Matrix, features int) ([]float64, int,
	error) {
	v, ok := states.(mat.Vector)
	if !ok {
		return rowMajor(op, "states", states, features)
	}

	if v.Len() != features {
		return nil, 0, network.DimensionError(op, "features of state",
			features, v.Len())
	}
	return matutils.Flatten(v), 1, nil
}
