package grain

import (
	"errors"
)

// Sentinel kinds for grain amount errors.
var (
	ErrInvalidAmount  = errors.New("invalid grain amount")
	ErrNegativeAmount = errors.New("negative grain amount")
	ErrPrecision      = errors.New("amount finer than grain resolution")
	ErrUnderflow      = errors.New("grain underflow")
	ErrBadFactor      = errors.New("multiplier must be a finite non-negative number")
)
