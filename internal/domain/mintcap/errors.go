package mintcap

import (
	"errors"
)

// Sentinel kinds for minting cap errors.
var (
	ErrInvalidAddress         = errors.New("invalid contribution address")
	ErrBadSchedule            = errors.New("invalid minting schedule")
	ErrPrefixConflict         = errors.New("schedule prefixes overlap")
	ErrUnorderedPeriods       = errors.New("schedule periods out of chronological order")
	ErrUnsupportedGranularity = errors.New("unsupported interval granularity")
	ErrInvalidCeiling         = errors.New("ceiling must be a finite non-negative number")
	ErrInvalidPartition       = errors.New("invalid interval partition")
	ErrInvalidWeight          = errors.New("weight must be a finite non-negative number")
)
