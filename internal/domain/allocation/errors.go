package allocation

import (
	"errors"
)

// Sentinel kinds for allocation errors.
var (
	ErrNoIdentities      = errors.New("no identities to allocate across")
	ErrInvalidIdentity   = errors.New("invalid identity id")
	ErrDuplicateIdentity = errors.New("duplicate identity id")
	ErrCredMismatch      = errors.New("inconsistent cred series length")
	ErrInvalidCred       = errors.New("cred score must be a finite non-negative number")
	ErrZeroCred          = errors.New("total cred is zero")
	ErrNegativePaid      = errors.New("negative paid amount")
	ErrNegativeBudget    = errors.New("negative policy budget")
	ErrDiscountRange     = errors.New("discount must be between 0 and 1")
	ErrUnknownRecipient  = errors.New("recipient absent from identity set")
	ErrBadPolicy         = errors.New("invalid policy")
	ErrBadTransform      = errors.New("score transform returned wrong length")
	ErrNoPolicies        = errors.New("no policies to compute")
	ErrConservation      = errors.New("allocation does not conserve its budget")
)
