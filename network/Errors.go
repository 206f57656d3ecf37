package network

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrDimensionMismatch is reported whenever the shape of some input
// does not agree with the dimensions a network was built with.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// IsDimensionMismatch returns whether or not an error reports that
// some input had the wrong shape.
func IsDimensionMismatch(err error) bool {
	return errors.Is(err, ErrDimensionMismatch)
}

// DimensionError returns an error wrapping ErrDimensionMismatch that
// describes the expected and actual value of some dimension.
func DimensionError(op, what string, want, have interface{}) error {
	msg := fmt.Sprintf("%v: invalid %v\n\twant(%v)\n\thave(%v)", op, what,
		want, have)
	return errors.Wrap(ErrDimensionMismatch, msg)
}
