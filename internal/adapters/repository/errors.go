package repository

import "errors"

// Sentinel kinds for earnings store errors.
var (
	ErrNotFound           = errors.New("identity not found")
	ErrInvalidLimit       = errors.New("invalid earners limit")
	ErrDistributionExists = errors.New("distribution already recorded")
)
