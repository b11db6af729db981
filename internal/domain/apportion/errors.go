package apportion

import (
	"errors"
)

// Sentinel kinds for apportionment errors.
var (
	ErrInvalidWeight     = errors.New("weight must be a finite non-negative number")
	ErrDegenerateWeights = errors.New("no positive weights to apportion across")
)
